package Exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/Transformer"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
)

var shapefileFieldRe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// ShapefileUnitExportOptions 单元类别写回配置
type ShapefileUnitExportOptions struct {
	IMDFCategoryField        string            `json:"imdf_category_field"`
	WriteIMDFCategory        bool              `json:"write_imdf_category"`
	OverwriteLegacyCodeField *string           `json:"overwrite_legacy_code_field"`
	LegacyCodeMap            map[string]string `json:"legacy_code_map"`
}

// ShapefileExportRequest 回写导出请求
type ShapefileExportRequest struct {
	Mode          string                     `json:"mode"`
	Encoding      string                     `json:"encoding"`
	IncludeReport bool                       `json:"include_report"`
	Unit          ShapefileUnitExportOptions `json:"unit"`
}

func DefaultShapefileExportRequest() ShapefileExportRequest {
	return ShapefileExportRequest{
		Mode:          "update_source",
		Encoding:      "utf-8",
		IncludeReport: true,
		Unit: ShapefileUnitExportOptions{
			IMDFCategoryField: "IMDF_CAT",
			WriteIMDFCategory: true,
			LegacyCodeMap:     map[string]string{},
		},
	}
}

type LegacyCodeConflict struct {
	Category     string `json:"category"`
	SelectedCode string `json:"selected_code"`
	IgnoredCode  string `json:"ignored_code"`
	Reason       string `json:"reason"`
}

type StemReport struct {
	Stem        string `json:"stem"`
	RowsTotal   int    `json:"rows_total"`
	RowsUpdated int    `json:"rows_updated"`
}

type RowConflict struct {
	Stem       string   `json:"stem"`
	RowIndex   int      `json:"row_index"`
	Reason     string   `json:"reason"`
	Categories []string `json:"categories"`
	FeatureIDs []string `json:"feature_ids"`
}

type SkippedRow struct {
	Stem     string `json:"stem"`
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
	Category string `json:"category,omitempty"`
}

type UnappliedFeature struct {
	FeatureID string `json:"feature_id"`
	Reason    string `json:"reason"`
}

// ShapefileExportReport 回写导出报告, 附在归档内
type ShapefileExportReport struct {
	Mode                string               `json:"mode"`
	Encoding            string               `json:"encoding"`
	LegacyCodeMapSource string               `json:"legacy_code_map_source"`
	LegacyCodeConflicts []LegacyCodeConflict `json:"legacy_code_conflicts"`
	RowsRequested       int                  `json:"rows_requested"`
	RowsUpdated         int                  `json:"rows_updated"`
	StemsProcessed      []StemReport         `json:"stems_processed"`
	Conflicts           []RowConflict        `json:"conflicts"`
	Skipped             []SkippedRow         `json:"skipped"`
	UnappliedFeatures   []UnappliedFeature   `json:"unapplied_features"`
}

func newShapefileExportReport(request ShapefileExportRequest) *ShapefileExportReport {
	return &ShapefileExportReport{
		Mode:                request.Mode,
		Encoding:            request.Encoding,
		LegacyCodeMapSource: "none",
		LegacyCodeConflicts: []LegacyCodeConflict{},
		StemsProcessed:      []StemReport{},
		Conflicts:           []RowConflict{},
		Skipped:             []SkippedRow{},
		UnappliedFeatures:   []UnappliedFeature{},
	}
}

// NormalizeShapefileFieldName DBF字段名只留字母数字下划线并截断到10位, 中文列名先转拼音首字母
func NormalizeShapefileFieldName(value string, fallback string) string {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = fallback
	}
	candidate = methods.AsciiFieldName(candidate)
	candidate = shapefileFieldRe.ReplaceAllString(candidate, "_")
	candidate = strings.Trim(candidate, "_")
	if candidate == "" {
		candidate = fallback
	}
	if len(candidate) > 10 {
		candidate = candidate[:10]
	}
	return candidate
}

type rowKey struct {
	Stem string
	Row  int
}

type rowUpdate struct {
	categories map[string]bool
	featureIDs map[string]bool
}

// parseSourceFeatureRef 解析 "stem:row:part" 形式的来源引用
func parseSourceFeatureRef(value interface{}) (string, int, bool) {
	text, ok := value.(string)
	if !ok {
		return "", 0, false
	}
	last := strings.LastIndex(text, ":")
	if last < 0 {
		return "", 0, false
	}
	second := strings.LastIndex(text[:last], ":")
	if second < 0 {
		return "", 0, false
	}
	stem := strings.TrimSpace(text[:second])
	if stem == "" {
		return "", 0, false
	}
	rowIndex, err := strconv.Atoi(text[second+1 : last])
	if err != nil {
		return "", 0, false
	}
	partIndex, err := strconv.Atoi(text[last+1:])
	if err != nil {
		return "", 0, false
	}
	if rowIndex < 0 || partIndex < 0 {
		return "", 0, false
	}
	return stem, rowIndex, true
}

// collectUnitRowUpdates 把单元类别按来源(stem, 行号)聚合
func collectUnitRowUpdates(fc *IMDF.FeatureCollection) (map[rowKey]*rowUpdate, []rowKey, []UnappliedFeature) {
	updates := make(map[rowKey]*rowUpdate)
	var order []rowKey
	unapplied := []UnappliedFeature{}
	if fc == nil {
		return updates, order, unapplied
	}

	for _, feature := range fc.Features {
		if feature == nil || feature.Type != IMDF.TypeUnit {
			continue
		}
		props, ok := feature.Props.(*IMDF.UnitProps)
		if !ok {
			continue
		}
		category := strings.ToLower(strings.TrimSpace(props.Category))
		if category == "" {
			continue
		}

		stem := strings.TrimSpace(feature.Review.SourceFile)
		rowIndex := feature.Review.SourceRowIndex
		if stem == "" || rowIndex == nil {
			if refStem, refRow, okRef := parseSourceFeatureRef(feature.Review.Metadata["source_feature_ref"]); okRef {
				stem = refStem
				row := refRow
				rowIndex = &row
			}
		}
		if stem == "" || rowIndex == nil {
			unapplied = append(unapplied, UnappliedFeature{
				FeatureID: feature.ID,
				Reason:    "missing_source_linkage",
			})
			continue
		}

		key := rowKey{Stem: stem, Row: *rowIndex}
		update := updates[key]
		if update == nil {
			update = &rowUpdate{categories: map[string]bool{}, featureIDs: map[string]bool{}}
			updates[key] = update
			order = append(order, key)
		}
		update.categories[category] = true
		if feature.ID != "" {
			update.featureIDs[feature.ID] = true
		}
	}
	return updates, order, unapplied
}

func normalizeLegacyCodeMap(raw map[string]string) map[string]string {
	normalized := map[string]string{}
	for rawCategory, rawCode := range raw {
		category := strings.ToLower(strings.TrimSpace(rawCategory))
		code := strings.TrimSpace(rawCode)
		if category == "" || code == "" {
			continue
		}
		normalized[category] = code
	}
	return normalized
}

// deriveLegacyCodeMapFromWizard 从公司编码表反推类别→编码
// 按编码大写字典序遍历, 同类别首个编码生效, 其余记冲突
func deriveLegacyCodeMapFromWizard(companyMappings map[string]string) (map[string]string, []LegacyCodeConflict) {
	derived := map[string]string{}
	conflicts := []LegacyCodeConflict{}

	codes := make([]string, 0, len(companyMappings))
	for code := range companyMappings {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return strings.ToUpper(codes[i]) < strings.ToUpper(codes[j])
	})

	for _, rawCode := range codes {
		code := strings.TrimSpace(rawCode)
		category := strings.ToLower(strings.TrimSpace(companyMappings[rawCode]))
		if code == "" || category == "" {
			continue
		}
		existing, ok := derived[category]
		if !ok {
			derived[category] = code
			continue
		}
		if existing == code {
			continue
		}
		conflicts = append(conflicts, LegacyCodeConflict{
			Category:     category,
			SelectedCode: existing,
			IgnoredCode:  code,
			Reason:       "duplicate_category_mapping",
		})
	}
	return derived, conflicts
}

func resolveLegacyCodeMap(payloadMap map[string]string, wizardCompanyMappings map[string]string) (map[string]string, string, []LegacyCodeConflict) {
	normalizedPayload := normalizeLegacyCodeMap(payloadMap)
	if len(normalizedPayload) > 0 {
		return normalizedPayload, "payload", []LegacyCodeConflict{}
	}
	derived, conflicts := deriveLegacyCodeMapFromWizard(wizardCompanyMappings)
	if len(derived) > 0 {
		return derived, "wizard_company_mappings", conflicts
	}
	return map[string]string{}, "none", conflicts
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func ensureColumn(layer *Transformer.ShapefileLayer, column string) {
	if methods.IsStringInSlice(column, layer.Columns) {
		return
	}
	layer.Columns = append(layer.Columns, column)
}

// BuildShapefileExportArchive 把确认后的单元类别写回上传的源shapefile并打包
func BuildShapefileExportArchive(session *models.SessionRecord, request ShapefileExportRequest) ([]byte, string, error) {
	artifactDir := session.UploadArtifactDir
	if artifactDir == "" {
		return nil, "", fmt.Errorf("Shapefile export unavailable: uploaded source files are not available for this session.")
	}
	if info, err := os.Stat(artifactDir); err != nil || !info.IsDir() {
		return nil, "", fmt.Errorf("Shapefile export unavailable: uploaded source files are not available for this session.")
	}

	grouped, err := Transformer.GroupShapefileComponents(artifactDir)
	if err != nil {
		return nil, "", err
	}
	shapefileGroups := make(map[string]map[string]string)
	for stem, components := range grouped {
		complete := true
		for _, ext := range []string{".shp", ".shx", ".dbf"} {
			if _, ok := components[ext]; !ok {
				complete = false
				break
			}
		}
		if complete {
			shapefileGroups[stem] = components
		}
	}
	if len(shapefileGroups) == 0 {
		return nil, "", fmt.Errorf("Shapefile export unavailable: no complete source shapefile groups found.")
	}

	updates, updateOrder, unapplied := collectUnitRowUpdates(session.FeatureCollection)
	report := newShapefileExportReport(request)
	report.RowsRequested = len(updates)
	report.UnappliedFeatures = unapplied

	imdfField := NormalizeShapefileFieldName(request.Unit.IMDFCategoryField, "IMDF_CAT")
	legacyField := ""
	if request.Unit.OverwriteLegacyCodeField != nil && *request.Unit.OverwriteLegacyCodeField != "" {
		legacyField = NormalizeShapefileFieldName(*request.Unit.OverwriteLegacyCodeField, "LEGACY_CD")
	}
	legacyMap, legacyMapSource, legacyConflicts := resolveLegacyCodeMap(request.Unit.LegacyCodeMap, session.Wizard.CompanyMappings)
	report.LegacyCodeMapSource = legacyMapSource
	report.LegacyCodeConflicts = legacyConflicts

	outputDir, err := os.MkdirTemp("", "shpexport")
	if err != nil {
		return nil, "", err
	}
	defer os.RemoveAll(outputDir)

	handled := make(map[rowKey]bool)
	stems := make([]string, 0, len(shapefileGroups))
	for stem := range shapefileGroups {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	for _, stem := range stems {
		components := shapefileGroups[stem]
		layer, err := Transformer.ReadShapefileLayer(components[".shp"])
		if err != nil {
			return nil, "", err
		}
		stemUpdateCount := 0

		for _, key := range updateOrder {
			if key.Stem != stem {
				continue
			}
			update := updates[key]
			if key.Row < 0 || key.Row >= len(layer.Rows) {
				report.Skipped = append(report.Skipped, SkippedRow{
					Stem:     stem,
					RowIndex: key.Row,
					Reason:   "row_index_out_of_range",
				})
				handled[key] = true
				continue
			}
			if len(update.categories) != 1 {
				report.Conflicts = append(report.Conflicts, RowConflict{
					Stem:       stem,
					RowIndex:   key.Row,
					Reason:     "conflicting_categories",
					Categories: sortedKeys(update.categories),
					FeatureIDs: sortedKeys(update.featureIDs),
				})
				handled[key] = true
				continue
			}

			category := ""
			for item := range update.categories {
				category = item
			}
			rowUpdated := false

			if request.Unit.WriteIMDFCategory {
				ensureColumn(layer, imdfField)
				layer.Rows[key.Row].Attributes[imdfField] = category
				rowUpdated = true
			}
			if legacyField != "" {
				legacyCode, okLegacy := legacyMap[category]
				if !okLegacy {
					report.Skipped = append(report.Skipped, SkippedRow{
						Stem:     stem,
						RowIndex: key.Row,
						Reason:   "legacy_code_mapping_missing",
						Category: category,
					})
				} else {
					ensureColumn(layer, legacyField)
					layer.Rows[key.Row].Attributes[legacyField] = legacyCode
					rowUpdated = true
				}
			}

			if rowUpdated {
				stemUpdateCount++
				report.RowsUpdated++
			} else {
				report.Skipped = append(report.Skipped, SkippedRow{
					Stem:     stem,
					RowIndex: key.Row,
					Reason:   "no_writable_fields_configured",
				})
			}
			handled[key] = true
		}

		destination := filepath.Join(outputDir, stem+".shp")
		if err := Transformer.WriteShapefileLayer(layer, destination, request.Encoding); err != nil {
			return nil, "", err
		}
		// 投影定义原样带回
		if prjPath, ok := components[".prj"]; ok {
			if prjContent, err := os.ReadFile(prjPath); err == nil {
				os.WriteFile(filepath.Join(outputDir, stem+".prj"), prjContent, 0644)
			}
		}
		report.StemsProcessed = append(report.StemsProcessed, StemReport{
			Stem:        stem,
			RowsTotal:   len(layer.Rows),
			RowsUpdated: stemUpdateCount,
		})
	}

	for _, key := range updateOrder {
		if handled[key] {
			continue
		}
		report.Skipped = append(report.Skipped, SkippedRow{
			Stem:     key.Stem,
			RowIndex: key.Row,
			Reason:   "source_stem_not_found",
		})
	}

	members := map[string][]byte{}
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outputDir, entry.Name()))
		if err != nil {
			return nil, "", err
		}
		members[entry.Name()] = content
	}
	if request.IncludeReport {
		reportRaw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, "", err
		}
		members["export_report.json"] = reportRaw
	}

	payload, err := methods.ZipBytesOut(members)
	if err != nil {
		return nil, "", err
	}
	filename := safeExportName(exportBaseName(session), "shapefile_export") + "_shapefiles.zip"
	return payload, filename, nil
}
