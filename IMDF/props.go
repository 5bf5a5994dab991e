package IMDF

import (
	"github.com/paulmach/orb/geojson"
)

// Props 按要素类型封闭的属性联合体, 序列化边界转为开放map
type Props interface {
	Kind() FeatureType
	CloneProps() Props
}

// LevelLinked 携带level_id的属性
type LevelLinked interface {
	GetLevelID() string
	SetLevelID(id string)
}

// Categorized 携带category的属性
type Categorized interface {
	GetCategory() string
}

// Issue 单条校验问题
type Issue struct {
	FeatureID        string            `json:"feature_id,omitempty"`
	RelatedFeatureID string            `json:"related_feature_id,omitempty"`
	Check            string            `json:"check"`
	Message          string            `json:"message"`
	Severity         Severity          `json:"severity"`
	AutoFixable      bool              `json:"auto_fixable"`
	FixDescription   string            `json:"fix_description,omitempty"`
	OverlapGeometry  *geojson.Geometry `json:"overlap_geometry,omitempty"`
}

// Door 开口门属性, 全部为空时整体写null
type Door struct {
	Automatic *bool   `json:"automatic"`
	Material  *string `json:"material"`
	Type      *string `json:"type"`
}

func (d *Door) Empty() bool {
	return d == nil || (d.Automatic == nil && d.Material == nil && d.Type == nil)
}

type AddressProps struct {
	Address          string  `json:"address"`
	Unit             *string `json:"unit"`
	Locality         string  `json:"locality"`
	Province         *string `json:"province"`
	Country          string  `json:"country"`
	PostalCode       *string `json:"postal_code"`
	PostalCodeExt    *string `json:"postal_code_ext"`
	PostalCodeVanity *string `json:"postal_code_vanity"`
}

func (p *AddressProps) Kind() FeatureType { return TypeAddress }

type VenueProps struct {
	Category     string            `json:"category"`
	Restriction  *string           `json:"restriction"`
	Name         Labels            `json:"name"`
	AltName      Labels            `json:"alt_name"`
	Hours        *string           `json:"hours"`
	Phone        *string           `json:"phone"`
	Website      *string           `json:"website"`
	DisplayPoint *geojson.Geometry `json:"display_point"`
	AddressID    *string           `json:"address_id"`
}

func (p *VenueProps) Kind() FeatureType   { return TypeVenue }
func (p *VenueProps) GetCategory() string { return p.Category }

type BuildingProps struct {
	Name         Labels            `json:"name"`
	AltName      Labels            `json:"alt_name"`
	Category     string            `json:"category"`
	Restriction  *string           `json:"restriction"`
	DisplayPoint *geojson.Geometry `json:"display_point"`
	AddressID    *string           `json:"address_id"`
}

func (p *BuildingProps) Kind() FeatureType   { return TypeBuilding }
func (p *BuildingProps) GetCategory() string { return p.Category }

type FootprintProps struct {
	Category    string   `json:"category"`
	Name        Labels   `json:"name"`
	BuildingIDs []string `json:"building_ids"`
	Ordinal     *int     `json:"ordinal,omitempty"`
}

func (p *FootprintProps) Kind() FeatureType   { return TypeFootprint }
func (p *FootprintProps) GetCategory() string { return p.Category }

type LevelProps struct {
	Category     string            `json:"category"`
	Restriction  *string           `json:"restriction"`
	Outdoor      *bool             `json:"outdoor"`
	Ordinal      *int              `json:"ordinal"`
	Name         Labels            `json:"name"`
	ShortName    Labels            `json:"short_name"`
	DisplayPoint *geojson.Geometry `json:"display_point"`
	AddressID    *string           `json:"address_id"`
	BuildingIDs  []string          `json:"building_ids"`
	SourceFiles  []string          `json:"source_files,omitempty"`
}

func (p *LevelProps) Kind() FeatureType   { return TypeLevel }
func (p *LevelProps) GetCategory() string { return p.Category }

type UnitProps struct {
	Category      string            `json:"category"`
	Restriction   *string           `json:"restriction"`
	Accessibility []string          `json:"accessibility"`
	Name          Labels            `json:"name"`
	AltName       Labels            `json:"alt_name"`
	LevelID       string            `json:"level_id"`
	DisplayPoint  *geojson.Geometry `json:"display_point"`
}

func (p *UnitProps) Kind() FeatureType   { return TypeUnit }
func (p *UnitProps) GetCategory() string { return p.Category }
func (p *UnitProps) GetLevelID() string  { return p.LevelID }
func (p *UnitProps) SetLevelID(id string) {
	p.LevelID = id
}

type OpeningProps struct {
	Category      string            `json:"category"`
	Accessibility []string          `json:"accessibility"`
	AccessControl []string          `json:"access_control"`
	Door          *Door             `json:"door"`
	Name          Labels            `json:"name"`
	AltName       Labels            `json:"alt_name"`
	DisplayPoint  *geojson.Geometry `json:"display_point"`
	LevelID       string            `json:"level_id"`
}

func (p *OpeningProps) Kind() FeatureType   { return TypeOpening }
func (p *OpeningProps) GetCategory() string { return p.Category }
func (p *OpeningProps) GetLevelID() string  { return p.LevelID }
func (p *OpeningProps) SetLevelID(id string) {
	p.LevelID = id
}

type FixtureProps struct {
	Category     string            `json:"category"`
	Name         Labels            `json:"name"`
	AltName      Labels            `json:"alt_name"`
	AnchorID     *string           `json:"anchor_id"`
	LevelID      string            `json:"level_id"`
	DisplayPoint *geojson.Geometry `json:"display_point"`
}

func (p *FixtureProps) Kind() FeatureType   { return TypeFixture }
func (p *FixtureProps) GetCategory() string { return p.Category }
func (p *FixtureProps) GetLevelID() string  { return p.LevelID }
func (p *FixtureProps) SetLevelID(id string) {
	p.LevelID = id
}

type DetailProps struct {
	LevelID string `json:"level_id"`
}

func (p *DetailProps) Kind() FeatureType  { return TypeDetail }
func (p *DetailProps) GetLevelID() string { return p.LevelID }
func (p *DetailProps) SetLevelID(id string) {
	p.LevelID = id
}

// SourceProps 导入的原始要素, DBF属性列存放在Review.Metadata
type SourceProps struct{}

func (p *SourceProps) Kind() FeatureType { return TypeSource }
