package Exporter

import (
	"github.com/GrainArc/IndoorMap/IMDF"
)

// ExportFile 归档内的单个GeoJSON文件
type ExportFile struct {
	Name       string
	Collection *IMDF.FeatureCollection
}

// CleanExportFeature 去掉审查期属性后的导出副本
func CleanExportFeature(f *IMDF.Feature) *IMDF.Feature {
	out := f.Clone()
	out.Review.Status = ""
	out.Review.Issues = nil
	out.Review.Metadata = nil
	out.Review.SourceFile = ""
	return out
}

// BuildIMDFGeoJSONFiles 按类型拆分为独立文件, 固定顺序
// 必备类型空集合也要出文件, 可选类型仅在非空时出文件
func BuildIMDFGeoJSONFiles(fc *IMDF.FeatureCollection) []ExportFile {
	grouped := make(map[IMDF.FeatureType][]*IMDF.Feature, len(IMDF.TypeOrder))
	for _, featureType := range IMDF.TypeOrder {
		grouped[featureType] = []*IMDF.Feature{}
	}
	if fc != nil {
		for _, row := range fc.Features {
			if row == nil {
				continue
			}
			if _, ok := grouped[row.Type]; !ok {
				continue
			}
			grouped[row.Type] = append(grouped[row.Type], CleanExportFeature(row))
		}
	}

	var out []ExportFile
	for _, featureType := range IMDF.TypeOrder {
		features := grouped[featureType]
		if !IMDF.RequiredTypes[featureType] && len(features) == 0 {
			continue
		}
		out = append(out, ExportFile{
			Name:       string(featureType) + ".geojson",
			Collection: &IMDF.FeatureCollection{Features: features},
		})
	}
	return out
}
