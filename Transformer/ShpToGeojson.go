package Transformer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/paulmach/orb"
)

func trimTrailingZeros(input string) string {
	// 使用正则表达式匹配纯数字字符串（整数或小数）
	numericRegex := regexp.MustCompile(`^\d+(\.\d+)?$`)

	if !numericRegex.MatchString(input) {
		return input
	}

	// 如果输入包含小数点，处理小数部分
	if strings.Contains(input, ".") {
		parts := strings.Split(input, ".")
		intPart := parts[0]
		fracPart := parts[1]

		// 去掉尾部多余的零
		fracPart = strings.TrimRight(fracPart, "0")

		// 如果小数部分被去光了，则只返回整数部分
		if len(fracPart) == 0 {
			return intPart
		} else if len(fracPart) >= 5 {
			fracPart = fracPart[:5]
		}

		return intPart + "." + fracPart
	}

	return input
}

func SplitPoints(points []shp.Point, parts []int32) [][]shp.Point {
	var polygons [][]shp.Point
	for i, partIndex := range parts {
		start := partIndex
		var end int32
		if i < len(parts)-1 {
			end = parts[i+1]
		} else {
			end = int32(len(points))
		}
		polygon := points[start:end]
		polygons = append(polygons, polygon)
	}
	return polygons
}

func IsClockwise(points []orb.Point) bool {
	sum := 0.0
	for i := 0; i < len(points)-1; i++ {
		p1 := points[i]
		p2 := points[i+1]
		sum += (p2[0] - p1[0]) * (p2[1] + p1[1])
	}
	// If sum is positive, points are in clockwise order.
	return sum > 0
}

// splitParts 根据dounts切片中的true和false分割parts切片。
func splitParts(parts []int32, dounts []bool) [][]int32 {
	var result [][]int32
	var currentGroup []int32
	groupStarted := false
	for i, part := range parts {
		if dounts[i] {
			if groupStarted {
				// End the current group and start a new one
				result = append(result, currentGroup)
				currentGroup = []int32{part}
			} else {
				// Start a new group
				currentGroup = []int32{part}
				groupStarted = true
			}
		} else {
			if groupStarted {
				// Continue the current group
				currentGroup = append(currentGroup, part)
			}
		}
	}
	// Append the last group if it exists
	if len(currentGroup) > 0 {
		result = append(result, currentGroup)
	}
	return result
}

func createIndexSlice(n int32) []int32 {
	indexSlice := make([]int32, 0, n)
	for i := int32(0); i < n; i++ {
		indexSlice = append(indexSlice, i)
	}
	return indexSlice
}

// readCPGEncoding 读取CPG文件获取字符编码
// 没有CPG时对DBF字节做一次编码探测, 探不出按GBK兜底
func readCPGEncoding(shpfilePath string) string {
	dir := filepath.Dir(shpfilePath)
	base := filepath.Base(shpfilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	cpgContent, err := os.ReadFile(filepath.Join(dir, stem+".cpg"))
	if err == nil && len(strings.TrimSpace(string(cpgContent))) > 0 {
		return strings.TrimSpace(string(cpgContent))
	}

	dbfContent, err := os.ReadFile(filepath.Join(dir, stem+".dbf"))
	if err == nil {
		// DBF头部是二进制, 只取属性区采样
		sample := dbfContent
		if len(sample) > 65536 {
			sample = sample[:65536]
		}
		if charset := DetectCharset(sample); charset != "" {
			return charset
		}
	}
	return "GBK"
}

// detectCRS 根据X坐标值范围判断坐标系
func detectCRS(x float64) string {
	switch {
	case x <= 1000:
		return "4326" // WGS84 经纬度坐标系

	case x >= 100000 && x <= 10000000:
		return "4544" // CGCS2000 / 3-degree Gauss-Kruger zone

	// CGCS2000 / Gauss-Kruger 6度分带投影坐标系
	case x >= 33000000 && x <= 34000000:
		return "4521" // CGCS2000 / Gauss-Kruger CM 75E (带号13)
	case x >= 34000000 && x <= 35000000:
		return "4522" // CGCS2000 / Gauss-Kruger CM 81E (带号14)
	case x >= 35000000 && x <= 36000000:
		return "4523" // CGCS2000 / Gauss-Kruger CM 87E (带号15)
	case x >= 36000000 && x <= 37000000:
		return "4524" // CGCS2000 / Gauss-Kruger CM 93E (带号16)
	case x >= 37000000 && x <= 38000000:
		return "4525" // CGCS2000 / Gauss-Kruger CM 99E (带号17)
	case x >= 38000000 && x <= 39000000:
		return "4526" // CGCS2000 / Gauss-Kruger CM 105E (带号18)
	case x >= 39000000 && x <= 40000000:
		return "4527" // CGCS2000 / Gauss-Kruger CM 111E (带号19)
	case x >= 40000000 && x <= 41000000:
		return "4528" // CGCS2000 / Gauss-Kruger CM 117E (带号20)
	case x >= 41000000 && x <= 42000000:
		return "4529" // CGCS2000 / Gauss-Kruger CM 123E (带号21)
	case x >= 42000000 && x <= 43000000:
		return "4530" // CGCS2000 / Gauss-Kruger CM 129E (带号22)
	case x >= 43000000 && x <= 44000000:
		return "4531" // CGCS2000 / Gauss-Kruger CM 135E (带号23)

	default:
		return "" // 未知坐标系
	}
}

// selectCRS 从检测到的坐标系中按优先级选择一个返回
func selectCRS(detectedCRS map[string]bool) string {
	priority := []string{"4326", "4544", "4521", "4522", "4523", "4524"}

	for _, crs := range priority {
		if detectedCRS[crs] {
			return crs
		}
	}
	return ""
}

// buildAttributes 构建要素属性字典, 字段名与值都走解码和清洗
func buildAttributes(n int, shape *shp.Reader, fields []shp.Field, decode func(string) string) map[string]interface{} {
	attrs := make(map[string]interface{})

	for k, f := range fields {
		attrValue := shape.ReadAttribute(n, k)
		fieldName := CleanAttributeValue(decode(f.String()))
		convertedValue := CleanAttributeValue(decode(attrValue))
		attrs[fieldName] = trimTrailingZeros(convertedValue)
	}

	// 如果没有任何字段,添加一个默认属性
	if len(fields) == 0 {
		attrs["attribute"] = "null"
	}

	return attrs
}

func polylineGeometry(points []shp.Point, parts []int32, detectedCRS map[string]bool) orb.Geometry {
	segments := SplitPoints(points, parts)
	if len(segments) == 0 {
		segments = [][]shp.Point{points}
	}

	var multi orb.MultiLineString
	for _, segment := range segments {
		coords := make([]orb.Point, len(segment))
		for i, vertex := range segment {
			if crs := detectCRS(vertex.X); crs != "" {
				detectedCRS[crs] = true
			}
			coords[i] = orb.Point{vertex.X, vertex.Y}
		}
		multi = append(multi, orb.LineString(coords))
	}
	if len(multi) == 1 {
		return multi[0]
	}
	return multi
}

// polygonGeometry 按环方向重组shapefile面: 顺时针为外环, 其后的逆时针环为洞
func polygonGeometry(points []shp.Point, parts []int32, detectedCRS map[string]bool) orb.Geometry {
	var multiPolygons orb.MultiPolygon

	polygons := SplitPoints(points, parts)

	dounts := make([]bool, len(polygons))
	for i, part := range polygons {
		orbPoints := make([]orb.Point, len(part))
		for j, point := range part {
			orbPoints[j] = orb.Point{point.X, point.Y}
		}
		dounts[i] = IsClockwise(orbPoints)
	}

	polygonsIndex := createIndexSlice(int32(len(polygons)))
	newParts := splitParts(polygonsIndex, dounts)

	for _, item := range newParts {
		var rings []orb.Ring
		for _, i := range item {
			coords := make([]orb.Point, len(polygons[i]))
			for j, vertex := range polygons[i] {
				if crs := detectCRS(vertex.X); crs != "" {
					detectedCRS[crs] = true
				}
				coords[j] = orb.Point{vertex.X, vertex.Y}
			}
			rings = append(rings, orb.Ring(coords))
		}
		multiPolygons = append(multiPolygons, orb.Polygon(rings))
	}
	return multiPolygons
}

// ShapeRow 一行shapefile记录, Index是DBF中的原始行号
type ShapeRow struct {
	Index      int
	Geometry   orb.Geometry
	Attributes map[string]interface{}
}

// ShapefileLayer 读出的单个图层
type ShapefileLayer struct {
	Stem     string
	Columns  []string
	Rows     []ShapeRow
	Encoding string
	RangeCRS string // 坐标范围推断出的EPSG, 没有PRJ时兜底用
}

// ReadShapefileLayer 读取shp及其DBF属性表
func ReadShapefileLayer(shpfileFilePath string) (*ShapefileLayer, error) {
	shape, err := shp.Open(shpfileFilePath)
	if err != nil {
		return nil, err
	}
	defer shape.Close()

	fields := shape.Fields()

	// 读取字符编码配置(CPG文件), 移到循环外避免重复读取
	encoding := readCPGEncoding(shpfileFilePath)
	decode := NewAttributeDecoder(encoding)

	layer := &ShapefileLayer{
		Stem:     strings.TrimSuffix(filepath.Base(shpfileFilePath), filepath.Ext(shpfileFilePath)),
		Encoding: encoding,
	}
	for _, f := range fields {
		layer.Columns = append(layer.Columns, CleanAttributeValue(decode(f.String())))
	}

	// 用于存储检测到的坐标系, 使用map去重
	detectedCRS := make(map[string]bool)

	for shape.Next() {
		n, p := shape.Shape()

		var geometry orb.Geometry
		switch s := p.(type) {
		case *shp.Point:
			if crs := detectCRS(s.X); crs != "" {
				detectedCRS[crs] = true
			}
			geometry = orb.Point{s.X, s.Y}
		case *shp.PointZ:
			if crs := detectCRS(s.X); crs != "" {
				detectedCRS[crs] = true
			}
			geometry = orb.Point{s.X, s.Y}
		case *shp.PointM:
			if crs := detectCRS(s.X); crs != "" {
				detectedCRS[crs] = true
			}
			geometry = orb.Point{s.X, s.Y}
		case *shp.PolyLine:
			geometry = polylineGeometry(s.Points, s.Parts, detectedCRS)
		case *shp.PolyLineZ:
			geometry = polylineGeometry(s.Points, s.Parts, detectedCRS)
		case *shp.PolyLineM:
			geometry = polylineGeometry(s.Points, s.Parts, detectedCRS)
		case *shp.Polygon:
			geometry = polygonGeometry(s.Points, s.Parts, detectedCRS)
		case *shp.PolygonZ:
			geometry = polygonGeometry(s.Points, s.Parts, detectedCRS)
		case *shp.PolygonM:
			geometry = polygonGeometry(s.Points, s.Parts, detectedCRS)
		default:
			continue
		}

		layer.Rows = append(layer.Rows, ShapeRow{
			Index:      n,
			Geometry:   geometry,
			Attributes: buildAttributes(n, shape, fields, decode),
		})
	}

	layer.RangeCRS = selectCRS(detectedCRS)
	return layer, nil
}
