package IMDF

import "strings"

// IMDF要素类型与分类常量

type FeatureType string

const (
	TypeAddress   FeatureType = "address"
	TypeVenue     FeatureType = "venue"
	TypeBuilding  FeatureType = "building"
	TypeFootprint FeatureType = "footprint"
	TypeLevel     FeatureType = "level"
	TypeUnit      FeatureType = "unit"
	TypeOpening   FeatureType = "opening"
	TypeFixture   FeatureType = "fixture"
	TypeDetail    FeatureType = "detail"
	TypeSource    FeatureType = "source"
)

// TypeOrder 导出时的固定类型顺序
var TypeOrder = []FeatureType{
	TypeAddress,
	TypeVenue,
	TypeBuilding,
	TypeFootprint,
	TypeLevel,
	TypeUnit,
	TypeOpening,
	TypeFixture,
	TypeDetail,
}

// RequiredTypes 导出前必须存在的类型
var RequiredTypes = map[FeatureType]bool{
	TypeAddress:   true,
	TypeVenue:     true,
	TypeBuilding:  true,
	TypeFootprint: true,
	TypeLevel:     true,
	TypeUnit:      true,
}

// 几何规则: 面类型, 线类型, 空几何类型
var PolygonTypes = map[FeatureType]bool{
	TypeVenue:     true,
	TypeFootprint: true,
	TypeLevel:     true,
	TypeUnit:      true,
	TypeFixture:   true,
}

var LineTypes = map[FeatureType]bool{
	TypeOpening: true,
	TypeDetail:  true,
}

var NullGeomTypes = map[FeatureType]bool{
	TypeAddress:  true,
	TypeBuilding: true,
}

// LevelLinkedTypes 必须携带level_id的类型
var LevelLinkedTypes = map[FeatureType]bool{
	TypeUnit:    true,
	TypeOpening: true,
	TypeFixture: true,
	TypeDetail:  true,
}

// OpeningCategories 开口类别白名单
var OpeningCategories = map[string]bool{
	"automobile":           true,
	"bicycle":              true,
	"pedestrian":           true,
	"emergencyexit":        true,
	"pedestrian.principal": true,
	"pedestrian.transit":   true,
	"service":              true,
}

const DefaultOpeningCategory = "pedestrian"

// DegreesPerMeter WGS84纬度方向近似换算
const DegreesPerMeter = 1.0 / 111320.0

// ReviewOnlyKeys 导出时剥离的审查属性
var ReviewOnlyKeys = map[string]bool{
	"status":      true,
	"issues":      true,
	"metadata":    true,
	"source_file": true,
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Labels IMDF多语言名称对象, 例如 {"en": "Lobby"}
type Labels map[string]string

// WrapLabels 把单个名称包装为LABELS对象, 空白返回nil
func WrapLabels(value string, language string) Labels {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "en"
	}
	return Labels{lang: text}
}

func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}
