package IMDF

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Review 审查期属性, 与IMDF属性同层存储, 导出时剥离
type Review struct {
	Status           string
	Issues           []Issue
	Metadata         map[string]interface{}
	SourceFile       string
	SourceRowIndex   *int
	Draft            bool
	WizardBuildingID string
}

// Feature 单个要素, 属性为封闭联合体
type Feature struct {
	ID          string
	Type        FeatureType
	Geometry    orb.Geometry
	BadGeometry json.RawMessage // 无法解析的原始geometry, 原样回写
	Props       Props
	Review      Review
}

type featureEnvelope struct {
	Type        string                 `json:"type"`
	ID          string                 `json:"id,omitempty"`
	FeatureType FeatureType            `json:"feature_type,omitempty"`
	Geometry    json.RawMessage        `json:"geometry"`
	Properties  map[string]interface{} `json:"properties"`
}

func (f *Feature) MarshalJSON() ([]byte, error) {
	props := map[string]interface{}{}
	if f.Props != nil {
		if _, ok := f.Props.(*SourceProps); !ok {
			raw, err := json.Marshal(f.Props)
			if err != nil {
				return nil, err
			}
			if err = json.Unmarshal(raw, &props); err != nil {
				return nil, err
			}
		}
	}
	if f.Review.Status != "" {
		props["status"] = f.Review.Status
	}
	if f.Review.Issues != nil {
		props["issues"] = f.Review.Issues
	}
	if f.Review.Metadata != nil {
		props["metadata"] = f.Review.Metadata
	}
	if f.Review.SourceFile != "" {
		props["source_file"] = f.Review.SourceFile
	}
	if f.Review.SourceRowIndex != nil {
		props["source_row_index"] = *f.Review.SourceRowIndex
	}
	if f.Review.Draft {
		props["_phase3_generated"] = true
	}
	if f.Review.WizardBuildingID != "" {
		props["_wizard_building_id"] = f.Review.WizardBuildingID
	}

	var geomRaw json.RawMessage
	switch {
	case f.BadGeometry != nil:
		geomRaw = f.BadGeometry
	case f.Geometry == nil:
		geomRaw = json.RawMessage("null")
	default:
		raw, err := json.Marshal(geojson.NewGeometry(f.Geometry))
		if err != nil {
			return nil, err
		}
		geomRaw = raw
	}

	return json.Marshal(featureEnvelope{
		Type:        "Feature",
		ID:          f.ID,
		FeatureType: f.Type,
		Geometry:    geomRaw,
		Properties:  props,
	})
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	var doc struct {
		ID          interface{}                `json:"id"`
		FeatureType string                     `json:"feature_type"`
		Geometry    json.RawMessage            `json:"geometry"`
		Properties  map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*f = Feature{}
	if s, ok := doc.ID.(string); ok {
		f.ID = s
	}
	f.Type = FeatureType(doc.FeatureType)

	if len(doc.Geometry) > 0 && !bytes.Equal(bytes.TrimSpace(doc.Geometry), []byte("null")) {
		geom, err := geojson.UnmarshalGeometry(doc.Geometry)
		if err != nil {
			f.BadGeometry = append(json.RawMessage(nil), doc.Geometry...)
		} else {
			f.Geometry = geom.Geometry()
		}
	}

	f.Review = decodeReview(doc.Properties)
	f.Props = decodeProps(f.Type, doc.Properties)
	return nil
}

func decodeReview(m map[string]json.RawMessage) Review {
	review := Review{
		Status:     rawString(m, "status"),
		SourceFile: rawString(m, "source_file"),
	}
	if raw, ok := m["issues"]; ok {
		var list []Issue
		if json.Unmarshal(raw, &list) == nil {
			if list == nil {
				list = []Issue{}
			}
			review.Issues = list
		}
	}
	if raw, ok := m["metadata"]; ok {
		var meta map[string]interface{}
		if json.Unmarshal(raw, &meta) == nil {
			review.Metadata = meta
		}
	}
	review.SourceRowIndex = rawIntPtr(m, "source_row_index")
	if raw, ok := m["_phase3_generated"]; ok {
		var flag bool
		if json.Unmarshal(raw, &flag) == nil {
			review.Draft = flag
		}
	}
	review.WizardBuildingID = rawString(m, "_wizard_building_id")
	return review
}

func decodeProps(ft FeatureType, m map[string]json.RawMessage) Props {
	switch ft {
	case TypeAddress:
		return &AddressProps{
			Address:          rawString(m, "address"),
			Unit:             rawStringPtr(m, "unit"),
			Locality:         rawString(m, "locality"),
			Province:         rawStringPtr(m, "province"),
			Country:          rawString(m, "country"),
			PostalCode:       rawStringPtr(m, "postal_code"),
			PostalCodeExt:    rawStringPtr(m, "postal_code_ext"),
			PostalCodeVanity: rawStringPtr(m, "postal_code_vanity"),
		}
	case TypeVenue:
		return &VenueProps{
			Category:     rawString(m, "category"),
			Restriction:  rawStringPtr(m, "restriction"),
			Name:         rawLabels(m, "name"),
			AltName:      rawLabels(m, "alt_name"),
			Hours:        rawStringPtr(m, "hours"),
			Phone:        rawStringPtr(m, "phone"),
			Website:      rawStringPtr(m, "website"),
			DisplayPoint: rawGeometry(m, "display_point"),
			AddressID:    rawStringPtr(m, "address_id"),
		}
	case TypeBuilding:
		return &BuildingProps{
			Name:         rawLabels(m, "name"),
			AltName:      rawLabels(m, "alt_name"),
			Category:     rawString(m, "category"),
			Restriction:  rawStringPtr(m, "restriction"),
			DisplayPoint: rawGeometry(m, "display_point"),
			AddressID:    rawStringPtr(m, "address_id"),
		}
	case TypeFootprint:
		return &FootprintProps{
			Category:    rawString(m, "category"),
			Name:        rawLabels(m, "name"),
			BuildingIDs: rawStrings(m, "building_ids"),
			Ordinal:     rawIntPtr(m, "ordinal"),
		}
	case TypeLevel:
		return &LevelProps{
			Category:     rawString(m, "category"),
			Restriction:  rawStringPtr(m, "restriction"),
			Outdoor:      rawBoolPtr(m, "outdoor"),
			Ordinal:      rawIntPtr(m, "ordinal"),
			Name:         rawLabels(m, "name"),
			ShortName:    rawLabels(m, "short_name"),
			DisplayPoint: rawGeometry(m, "display_point"),
			AddressID:    rawStringPtr(m, "address_id"),
			BuildingIDs:  rawStrings(m, "building_ids"),
			SourceFiles:  rawStrings(m, "source_files"),
		}
	case TypeUnit:
		return &UnitProps{
			Category:      rawString(m, "category"),
			Restriction:   rawStringPtr(m, "restriction"),
			Accessibility: rawStrings(m, "accessibility"),
			Name:          rawLabels(m, "name"),
			AltName:       rawLabels(m, "alt_name"),
			LevelID:       rawString(m, "level_id"),
			DisplayPoint:  rawGeometry(m, "display_point"),
		}
	case TypeOpening:
		return &OpeningProps{
			Category:      rawString(m, "category"),
			Accessibility: rawStrings(m, "accessibility"),
			AccessControl: rawStrings(m, "access_control"),
			Door:          rawDoor(m, "door"),
			Name:          rawLabels(m, "name"),
			AltName:       rawLabels(m, "alt_name"),
			DisplayPoint:  rawGeometry(m, "display_point"),
			LevelID:       rawString(m, "level_id"),
		}
	case TypeFixture:
		return &FixtureProps{
			Category:     rawString(m, "category"),
			Name:         rawLabels(m, "name"),
			AltName:      rawLabels(m, "alt_name"),
			AnchorID:     rawStringPtr(m, "anchor_id"),
			LevelID:      rawString(m, "level_id"),
			DisplayPoint: rawGeometry(m, "display_point"),
		}
	case TypeDetail:
		return &DetailProps{
			LevelID: rawString(m, "level_id"),
		}
	case TypeSource:
		return &SourceProps{}
	default:
		return nil
	}
}

// 宽容解码: 类型不符或null一律按缺失处理, 由校验器负责报错

func rawString(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var v string
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}
	return v
}

func rawStringPtr(m map[string]json.RawMessage, key string) *string {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v *string
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func rawBoolPtr(m map[string]json.RawMessage, key string) *bool {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v *bool
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func rawIntPtr(m map[string]json.RawMessage, key string) *int {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v *int
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func rawStrings(m map[string]json.RawMessage, key string) []string {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v []string
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func rawLabels(m map[string]json.RawMessage, key string) Labels {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v Labels
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func rawGeometry(m map[string]json.RawMessage, key string) *geojson.Geometry {
	raw, ok := m[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	geom, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil
	}
	return geom
}

func rawDoor(m map[string]json.RawMessage, key string) *Door {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var v *Door
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

// Clone 要素深拷贝
func (f *Feature) Clone() *Feature {
	if f == nil {
		return nil
	}
	out := &Feature{
		ID:   f.ID,
		Type: f.Type,
	}
	if f.Geometry != nil {
		out.Geometry = orb.Clone(f.Geometry)
	}
	if f.BadGeometry != nil {
		out.BadGeometry = append(json.RawMessage(nil), f.BadGeometry...)
	}
	if f.Props != nil {
		out.Props = f.Props.CloneProps()
	}
	out.Review = f.Review.Clone()
	return out
}

func (r Review) Clone() Review {
	out := Review{
		Status:           r.Status,
		SourceFile:       r.SourceFile,
		Draft:            r.Draft,
		WizardBuildingID: r.WizardBuildingID,
	}
	if r.Issues != nil {
		out.Issues = make([]Issue, len(r.Issues))
		for i, issue := range r.Issues {
			out.Issues[i] = issue.Clone()
		}
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	out.SourceRowIndex = cloneIntPtr(r.SourceRowIndex)
	return out
}

func (i Issue) Clone() Issue {
	out := i
	out.OverlapGeometry = cloneGeometry(i.OverlapGeometry)
	return out
}

// FeatureCollection 要素集合
type FeatureCollection struct {
	Features []*Feature
}

func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Features: []*Feature{}}
}

func (fc *FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []*Feature{}
	}
	return json.Marshal(struct {
		Type     string     `json:"type"`
		Features []*Feature `json:"features"`
	}{Type: "FeatureCollection", Features: features})
}

func (fc *FeatureCollection) UnmarshalJSON(data []byte) error {
	var doc struct {
		Features []*Feature `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	fc.Features = doc.Features
	if fc.Features == nil {
		fc.Features = []*Feature{}
	}
	return nil
}

func (fc *FeatureCollection) Clone() *FeatureCollection {
	if fc == nil {
		return nil
	}
	out := &FeatureCollection{Features: make([]*Feature, 0, len(fc.Features))}
	for _, f := range fc.Features {
		out.Features = append(out.Features, f.Clone())
	}
	return out
}

// ByID 按id索引, 重复id后者覆盖前者
func (fc *FeatureCollection) ByID() map[string]*Feature {
	out := make(map[string]*Feature)
	for _, f := range fc.Features {
		if f != nil && f.ID != "" {
			out[f.ID] = f
		}
	}
	return out
}

// OfType 按类型过滤
func (fc *FeatureCollection) OfType(ft FeatureType) []*Feature {
	var out []*Feature
	for _, f := range fc.Features {
		if f != nil && f.Type == ft {
			out = append(out, f)
		}
	}
	return out
}
