package Transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/paulmach/orb"
)

// cpgContentFor 写出sidecar用的编码名
func cpgContentFor(encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "utf-8", "utf8":
		return "UTF-8"
	case "cp932", "shift_jis", "sjis":
		return "CP932"
	default:
		return "GBK"
	}
}

func shapeTypeFor(layer *ShapefileLayer) shp.ShapeType {
	for _, row := range layer.Rows {
		switch row.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			return shp.POLYGON
		case orb.LineString, orb.MultiLineString:
			return shp.POLYLINE
		case orb.Point, orb.MultiPoint:
			return shp.POINT
		}
	}
	return shp.POLYGON
}

// polygonParts 把面要素的全部环平铺为shapefile的parts
func polygonParts(geometry orb.Geometry) [][]shp.Point {
	var PL [][]shp.Point
	appendRing := func(ring orb.Ring) {
		var points []shp.Point
		for _, pt := range ring {
			points = append(points, shp.Point{X: pt[0], Y: pt[1]})
		}
		PL = append(PL, points)
	}
	switch geom := geometry.(type) {
	case orb.Polygon:
		for _, ring := range geom {
			appendRing(ring)
		}
	case orb.MultiPolygon:
		for _, polygon := range geom {
			for _, ring := range polygon {
				appendRing(ring)
			}
		}
	}
	return PL
}

func lineParts(geometry orb.Geometry) [][]shp.Point {
	var PL [][]shp.Point
	appendLine := func(line orb.LineString) {
		var points []shp.Point
		for _, pt := range line {
			points = append(points, shp.Point{X: pt[0], Y: pt[1]})
		}
		PL = append(PL, points)
	}
	switch geom := geometry.(type) {
	case orb.LineString:
		appendLine(geom)
	case orb.MultiLineString:
		for _, line := range geom {
			appendLine(line)
		}
	}
	return PL
}

// WriteShapefileLayer 按列顺序回写图层, 行序与读入时一致
// MultiPolygon作为单条记录写出, 环全部进parts, 不拆行
func WriteShapefileLayer(layer *ShapefileLayer, destPath string, encoding string) error {
	shpFile, err := shp.Create(destPath, shapeTypeFor(layer))
	if err != nil {
		return fmt.Errorf("创建shapefile失败: %w", err)
	}
	defer shpFile.Close()

	var fields []shp.Field
	fieldMap := make(map[string]int)
	for i, column := range layer.Columns {
		fields = append(fields, shp.StringField(EncodeAttribute(column, encoding), 120))
		fieldMap[column] = i
	}
	shpFile.SetFields(fields)

	rowIndex := 0
	for _, row := range layer.Rows {
		if row.Geometry == nil {
			continue
		}
		switch row.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			PL := polygonParts(row.Geometry)
			if len(PL) == 0 {
				continue
			}
			shpFile.Write(shp.NewPolyLine(PL))
		case orb.LineString, orb.MultiLineString:
			PL := lineParts(row.Geometry)
			if len(PL) == 0 {
				continue
			}
			shpFile.Write(shp.NewPolyLine(PL))
		case orb.Point:
			pt := row.Geometry.(orb.Point)
			NewPT := shp.Point{X: pt[0], Y: pt[1]}
			shpFile.Write(&NewPT)
		default:
			continue
		}

		for key, item := range row.Attributes {
			fieldIndex, exists := fieldMap[key]
			if !exists {
				continue
			}
			var itemStr string
			switch v := item.(type) {
			case string:
				itemStr = v
			case float64:
				itemStr = fmt.Sprintf("%f", v)
			case int:
				itemStr = fmt.Sprintf("%d", v)
			case nil:
				itemStr = ""
			default:
				itemStr = fmt.Sprintf("%v", v)
			}
			if err := shpFile.WriteAttribute(rowIndex, fieldIndex, EncodeAttribute(itemStr, encoding)); err != nil {
				fmt.Println(err.Error())
			}
		}
		rowIndex++
	}

	// 编码sidecar
	cpgPath := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ".cpg"
	if err := os.WriteFile(cpgPath, []byte(cpgContentFor(encoding)), 0644); err != nil {
		return err
	}
	return nil
}
