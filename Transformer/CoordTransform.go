package Transformer

import (
	"encoding/json"
	"fmt"

	"github.com/GrainArc/IndoorMap/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type GeometryData struct {
	GeoJSON []byte `gorm:"column:geojson"`
}

// ReprojectTo4326 借助PostGIS的ST_Transform把几何转到4326
func ReprojectTo4326(geometry orb.Geometry, epsg string) (orb.Geometry, error) {
	db := models.DB
	if db == nil {
		return nil, fmt.Errorf("坐标转换需要数据库连接")
	}
	originalJSON, err := json.Marshal(geojson.NewGeometry(geometry))
	if err != nil {
		return nil, err
	}

	// 定义SQL查询，使用ST_Transform进行坐标系转换
	sql := fmt.Sprintf(`SELECT ST_AsGeoJSON(ST_Transform(ST_SetSRID(ST_GeomFromGeoJSON(?), %s), 4326)) as geojson;`, epsg)
	var geomData GeometryData
	if err := db.Raw(sql, string(originalJSON)).Scan(&geomData).Error; err != nil {
		return nil, err
	}
	converted, err := geojson.UnmarshalGeometry(geomData.GeoJSON)
	if err != nil {
		return nil, err
	}
	return converted.Geometry(), nil
}

// ReprojectRowsTo4326 逐行转换图层坐标, 任一行失败整体保持原坐标
func ReprojectRowsTo4326(rows []ShapeRow, epsg string) error {
	converted := make([]orb.Geometry, len(rows))
	for i, row := range rows {
		if row.Geometry == nil {
			continue
		}
		geometry, err := ReprojectTo4326(row.Geometry, epsg)
		if err != nil {
			return err
		}
		converted[i] = geometry
	}
	for i := range rows {
		if converted[i] != nil {
			rows[i].Geometry = converted[i]
		}
	}
	return nil
}
