package Generator

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
)

type unitCategoryConfig struct {
	Categories      []string `json:"categories"`
	DefaultCategory string   `json:"default_category"`
}

// LoadUnitCategories 读取单元类别表, 默认类别不在表内时补入
func LoadUnitCategories(configPath string) (map[string]bool, string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, "", err
	}
	var payload unitCategoryConfig
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, "", err
	}
	categories := make(map[string]bool)
	for _, item := range payload.Categories {
		cleaned := strings.ToLower(strings.TrimSpace(item))
		if cleaned != "" {
			categories[cleaned] = true
		}
	}
	defaultCategory := strings.ToLower(strings.TrimSpace(payload.DefaultCategory))
	if defaultCategory == "" {
		defaultCategory = "unspecified"
	}
	categories[defaultCategory] = true
	return categories, defaultCategory, nil
}

// anyToString 元数据值转文本, DBF读出的都是字符串, 会话JSON往返后可能变数值
func anyToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NormalizeCompanyMappingsPayload 公司编码表清洗: 编码大写, 类别小写, 不认识的类别落默认
func NormalizeCompanyMappingsPayload(payload map[string]interface{}, validCategories map[string]bool, fallbackDefault string) (map[string]string, string) {
	rawDefault := strings.ToLower(strings.TrimSpace(anyToString(payload["default_category"])))
	defaultCategory := fallbackDefault
	if validCategories[rawDefault] {
		defaultCategory = rawDefault
	}

	mappings := make(map[string]string)
	if rawMappings, ok := payload["mappings"].(map[string]interface{}); ok {
		for rawCode, rawCategory := range rawMappings {
			code := strings.ToUpper(strings.TrimSpace(rawCode))
			if code == "" {
				continue
			}
			category := strings.ToLower(strings.TrimSpace(anyToString(rawCategory)))
			if !validCategories[category] {
				category = defaultCategory
			}
			mappings[code] = category
		}
	}
	return mappings, defaultCategory
}

// NormalizeUnitCategoryOverrides 向导内直接覆盖单条编码映射, 非法类别直接丢弃
func NormalizeUnitCategoryOverrides(overrides map[string]string, validCategories map[string]bool) map[string]string {
	normalized := make(map[string]string)
	for rawCode, rawCategory := range overrides {
		code := strings.ToUpper(strings.TrimSpace(rawCode))
		// "(empty)" 是预览里的占位标签, 不是真实编码
		if code == "" || strings.EqualFold(code, "(empty)") {
			continue
		}
		category := strings.ToLower(strings.TrimSpace(rawCategory))
		if !validCategories[category] {
			continue
		}
		normalized[code] = category
	}
	return normalized
}

// WrapAnyLabels 任意元数据值包装为LABELS对象
func WrapAnyLabels(value interface{}, language string) IMDF.Labels {
	if value == nil {
		return nil
	}
	if mapped, ok := value.(map[string]interface{}); ok {
		normalized := make(IMDF.Labels)
		for key, item := range mapped {
			text := anyToString(item)
			if strings.TrimSpace(text) != "" {
				normalized[key] = text
			}
		}
		if len(normalized) == 0 {
			return nil
		}
		return normalized
	}
	if labels, ok := value.(IMDF.Labels); ok {
		normalized := make(IMDF.Labels)
		for key, item := range labels {
			if strings.TrimSpace(item) != "" {
				normalized[key] = item
			}
		}
		if len(normalized) == 0 {
			return nil
		}
		return normalized
	}
	return IMDF.WrapLabels(anyToString(value), language)
}

// DetectCandidateColumns 汇总指定类型全部文件的属性列
func DetectCandidateColumns(files []models.ImportedFile, featureType string) []string {
	columnSet := make(map[string]bool)
	for _, file := range files {
		detected := ""
		if file.DetectedType != nil {
			detected = strings.ToLower(*file.DetectedType)
		}
		if detected != strings.ToLower(featureType) {
			continue
		}
		for _, column := range file.AttributeColumns {
			columnSet[column] = true
		}
	}
	columns := make([]string, 0, len(columnSet))
	for column := range columnSet {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// ResolveUnitCategory 单元编码解析: 公司表优先, 其次类别名直配, 都不中落默认并标记未解析
func ResolveUnitCategory(rawCode interface{}, companyMappings map[string]string, validCategories map[string]bool, defaultCategory string) (string, bool) {
	codeText := strings.TrimSpace(anyToString(rawCode))
	if codeText == "" {
		return defaultCategory, true
	}

	if mapped := companyMappings[strings.ToUpper(codeText)]; mapped != "" {
		return mapped, false
	}

	normalized := strings.ToLower(codeText)
	if validCategories[normalized] {
		return normalized, false
	}

	return defaultCategory, true
}

// BuildUnitCodePreview 按编码聚合单元文件的映射预览, 同码多行合并计数
func BuildUnitCodePreview(fc *IMDF.FeatureCollection, files []models.ImportedFile, codeColumn *string, companyMappings map[string]string, validCategories map[string]bool, defaultCategory string) []models.UnitCodePreviewRow {
	if codeColumn == nil || *codeColumn == "" {
		return []models.UnitCodePreviewRow{}
	}

	unitStems := make(map[string]bool)
	for _, file := range files {
		if file.DetectedType != nil && strings.ToLower(*file.DetectedType) == "unit" {
			unitStems[file.Stem] = true
		}
	}
	if len(unitStems) == 0 {
		return []models.UnitCodePreviewRow{}
	}

	aggregated := make(map[string]*models.UnitCodePreviewRow)
	if fc != nil {
		for _, feature := range fc.Features {
			if !unitStems[feature.Review.SourceFile] {
				continue
			}
			var rawCode interface{}
			if feature.Review.Metadata != nil {
				rawCode = feature.Review.Metadata[*codeColumn]
			}
			codeLabel := strings.TrimSpace(anyToString(rawCode))
			if codeLabel == "" {
				codeLabel = "(empty)"
			}
			resolved, unresolved := ResolveUnitCategory(rawCode, companyMappings, validCategories, defaultCategory)
			if existing, ok := aggregated[codeLabel]; ok {
				existing.Count++
				existing.Unresolved = existing.Unresolved || unresolved
				continue
			}
			aggregated[codeLabel] = &models.UnitCodePreviewRow{
				Code:             codeLabel,
				Count:            1,
				ResolvedCategory: resolved,
				Unresolved:       unresolved,
			}
		}
	}

	preview := make([]models.UnitCodePreviewRow, 0, len(aggregated))
	for _, row := range aggregated {
		preview = append(preview, *row)
	}
	sort.Slice(preview, func(i, j int) bool { return preview[i].Code < preview[j].Code })
	return preview
}
