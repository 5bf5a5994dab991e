package Transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// 可入库的shapefile成员文件扩展名
var SupportedShapefileExtensions = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
	".prj": true,
	".cpg": true,
	".qix": true,
}

var requiredShapefileExtensions = []string{".shp", ".shx", ".dbf"}

// ImportArtifacts 一次导入的全部产物
type ImportArtifacts struct {
	Files             []models.ImportedFile
	CleanupSummary    models.CleanupSummary
	FeatureCollection *IMDF.FeatureCollection
	Warnings          []string
}

// GroupShapefileComponents 按stem归组目录下的shapefile成员文件
func GroupShapefileComponents(dir string) (map[string]map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !SupportedShapefileExtensions[ext] {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if grouped[stem] == nil {
			grouped[stem] = make(map[string]string)
		}
		grouped[stem][ext] = filepath.Join(dir, entry.Name())
	}
	return grouped, nil
}

var epsgAuthorityRegex = regexp.MustCompile(`AUTHORITY\["EPSG",\s*"?(\d+)"?\]`)

// parsePrjEPSG 从PRJ的WKT里解析EPSG代码, 认不出返回空串
func parsePrjEPSG(prjText string) string {
	matches := epsgAuthorityRegex.FindAllStringSubmatch(prjText, -1)
	if len(matches) > 0 {
		// WKT1里最后一个AUTHORITY属于坐标系本身
		return matches[len(matches)-1][1]
	}
	upper := strings.ToUpper(prjText)
	if strings.Contains(upper, "WGS_1984") || strings.Contains(upper, "WGS 84") || strings.Contains(upper, "WGS84") {
		return "4326"
	}
	if strings.Contains(upper, "CGCS2000") || strings.Contains(upper, "CHINA_2000") {
		if strings.Contains(upper, "PROJCS") {
			return ""
		}
		return "4490"
	}
	return ""
}

// ListGeoJSONFiles 目录下松散的GeoJSON图层文件, 按文件名排序
func ListGeoJSONFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".geojson" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// ImportSurveyDirectory 读入目录下所有shapefile与GeoJSON图层并完成几何清洗
// 返回的要素均为feature_type=source, 源属性放在properties.metadata
func ImportSurveyDirectory(dir string) (*ImportArtifacts, error) {
	grouped, err := GroupShapefileComponents(dir)
	if err != nil {
		return nil, err
	}
	geojsonPaths := ListGeoJSONFiles(dir)
	if len(grouped) == 0 && len(geojsonPaths) == 0 {
		return nil, fmt.Errorf("No shapefile components found in upload.")
	}

	artifacts := &ImportArtifacts{
		Files:             []models.ImportedFile{},
		FeatureCollection: IMDF.NewFeatureCollection(),
		Warnings:          []string{},
	}

	stems := make([]string, 0, len(grouped))
	for stem := range grouped {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	for _, stem := range stems {
		components := grouped[stem]
		if _, ok := components[".shp"]; !ok {
			continue
		}

		var missing []string
		for _, ext := range requiredShapefileExtensions {
			if _, ok := components[ext]; !ok {
				missing = append(missing, ext)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, fmt.Errorf("Missing required shapefile sidecars for '%s': %s", stem, strings.Join(missing, ", "))
		}

		fileWarnings := []string{}
		var crsDetected *string
		epsg := ""
		if prjPath, ok := components[".prj"]; ok {
			prjText, err := os.ReadFile(prjPath)
			if err == nil {
				epsg = parsePrjEPSG(string(prjText))
			}
		} else {
			fileWarnings = append(fileWarnings, fmt.Sprintf("%s: missing .prj; CRS could not be auto-detected.", stem))
		}

		layer, err := ReadShapefileLayer(components[".shp"])
		if err != nil {
			return nil, fmt.Errorf("读取图层 %s 失败: %w", stem, err)
		}

		// PRJ认不出时退回坐标范围推断
		if epsg == "" {
			epsg = layer.RangeCRS
		}
		if epsg != "" {
			code := "EPSG:" + epsg
			crsDetected = &code
		}
		if epsg != "" && epsg != "4326" {
			if models.HasPostgres() {
				if err := ReprojectRowsTo4326(layer.Rows, epsg); err != nil {
					fileWarnings = append(fileWarnings, fmt.Sprintf("%s: reprojection from EPSG:%s failed; coordinates imported unchanged.", stem, epsg))
				}
			} else {
				fileWarnings = append(fileWarnings, fmt.Sprintf("%s: source CRS EPSG:%s requires a PostGIS connection to reproject; coordinates imported unchanged.", stem, epsg))
			}
		}

		geometryTypes := make(map[string]bool)
		featureCount := 0
		for _, row := range layer.Rows {
			cleaned := CleanGeometry(row.Geometry, &artifacts.CleanupSummary)
			for _, geometry := range cleaned {
				metadata := make(map[string]interface{}, len(row.Attributes))
				for k, v := range row.Attributes {
					metadata[k] = v
				}
				rowIndex := row.Index
				feature := &IMDF.Feature{
					ID:       uuid.New().String(),
					Type:     IMDF.TypeSource,
					Geometry: geometry,
					Props:    &IMDF.SourceProps{},
					Review: IMDF.Review{
						Status:         "mapped",
						Issues:         []IMDF.Issue{},
						Metadata:       metadata,
						SourceFile:     stem,
						SourceRowIndex: &rowIndex,
					},
				}
				artifacts.FeatureCollection.Features = append(artifacts.FeatureCollection.Features, feature)
				geometryTypes[geometry.GeoJSONType()] = true
				featureCount++
			}
		}

		geometryType := "Unknown"
		if len(geometryTypes) == 1 {
			for name := range geometryTypes {
				geometryType = name
			}
		} else if len(geometryTypes) > 1 {
			geometryType = "Mixed"
		}

		columns := layer.Columns
		if columns == nil {
			columns = []string{}
		}
		artifacts.Files = append(artifacts.Files, models.ImportedFile{
			Stem:             stem,
			GeometryType:     geometryType,
			FeatureCount:     featureCount,
			AttributeColumns: columns,
			Confidence:       "red",
			CRSDetected:      crsDetected,
			Warnings:         fileWarnings,
			LevelCategory:    "unspecified",
		})
		artifacts.Warnings = append(artifacts.Warnings, fileWarnings...)
	}

	usedStems := make(map[string]bool, len(artifacts.Files))
	for _, file := range artifacts.Files {
		usedStems[file.Stem] = true
	}

	for _, path := range geojsonPaths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if usedStems[stem] {
			artifacts.Warnings = append(artifacts.Warnings, fmt.Sprintf("%s: stem collides with a shapefile layer; GeoJSON file skipped.", stem))
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			artifacts.Warnings = append(artifacts.Warnings, fmt.Sprintf("%s: GeoJSON file could not be read; layer skipped.", stem))
			continue
		}
		collection, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			artifacts.Warnings = append(artifacts.Warnings, fmt.Sprintf("%s: invalid GeoJSON; layer skipped.", stem))
			continue
		}

		fileWarnings := []string{}
		if len(collection.Features) == 0 {
			fileWarnings = append(fileWarnings, fmt.Sprintf("%s: GeoJSON file contains no features.", stem))
		}

		columnSet := make(map[string]bool)
		geometryTypes := make(map[string]bool)
		featureCount := 0
		for i, source := range collection.Features {
			if source == nil {
				continue
			}
			for key := range source.Properties {
				columnSet[key] = true
			}
			cleaned := CleanGeometry(source.Geometry, &artifacts.CleanupSummary)
			for _, geometry := range cleaned {
				metadata := make(map[string]interface{}, len(source.Properties))
				for k, v := range source.Properties {
					metadata[k] = v
				}
				rowIndex := i
				feature := &IMDF.Feature{
					ID:       uuid.New().String(),
					Type:     IMDF.TypeSource,
					Geometry: geometry,
					Props:    &IMDF.SourceProps{},
					Review: IMDF.Review{
						Status:         "mapped",
						Issues:         []IMDF.Issue{},
						Metadata:       metadata,
						SourceFile:     stem,
						SourceRowIndex: &rowIndex,
					},
				}
				artifacts.FeatureCollection.Features = append(artifacts.FeatureCollection.Features, feature)
				geometryTypes[geometry.GeoJSONType()] = true
				featureCount++
			}
		}

		geometryType := "Unknown"
		if len(geometryTypes) == 1 {
			for name := range geometryTypes {
				geometryType = name
			}
		} else if len(geometryTypes) > 1 {
			geometryType = "Mixed"
		}

		columns := make([]string, 0, len(columnSet))
		for key := range columnSet {
			columns = append(columns, key)
		}
		sort.Strings(columns)

		// RFC 7946规定GeoJSON坐标始终为WGS84
		crs := "EPSG:4326"
		artifacts.Files = append(artifacts.Files, models.ImportedFile{
			Stem:             stem,
			GeometryType:     geometryType,
			FeatureCount:     featureCount,
			AttributeColumns: columns,
			Confidence:       "red",
			CRSDetected:      &crs,
			Warnings:         fileWarnings,
			LevelCategory:    "unspecified",
		})
		artifacts.Warnings = append(artifacts.Warnings, fileWarnings...)
		usedStems[stem] = true
	}

	return artifacts, nil
}
