package Generator

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeneratorNamespace 稳定ID命名空间, 同一会话重复生成时ID不变
var GeneratorNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("shp2imdf-converter/generator"))

var listSplitRe = regexp.MustCompile(`[;,|]`)

// StableID 由会话与键派生确定性UUID
func StableID(sessionID string, key string) string {
	return uuid.NewSHA1(GeneratorNamespace, []byte(sessionID+":"+key)).String()
}

// DisplayPoint 取几何内部代表点
func DisplayPoint(geom orb.Geometry) *geojson.Geometry {
	if geom == nil || methods.GeomIsEmpty(geom) {
		return nil
	}
	point, ok := methods.RepresentativePoint(geom)
	if !ok {
		return nil
	}
	return geojson.NewGeometry(point)
}

// ParseList 分号逗号竖线分隔的文本拆成列表
func ParseList(value interface{}) []string {
	if value == nil {
		return nil
	}
	if items, ok := value.([]interface{}); ok {
		var normalized []string
		for _, item := range items {
			text := strings.TrimSpace(anyToString(item))
			if text != "" {
				normalized = append(normalized, text)
			}
		}
		return normalized
	}
	text := strings.TrimSpace(anyToString(value))
	if text == "" {
		return nil
	}
	var parts []string
	for _, token := range listSplitRe.Split(text, -1) {
		token = strings.TrimSpace(token)
		if token != "" {
			parts = append(parts, token)
		}
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

// ParseBool 宽松布尔解析, 认不出返回nil
func ParseBool(value interface{}) *bool {
	if value == nil {
		return nil
	}
	if b, ok := value.(bool); ok {
		out := b
		return &out
	}
	text := strings.ToLower(strings.TrimSpace(anyToString(value)))
	if text == "" {
		return nil
	}
	switch text {
	case "1", "true", "yes", "y", "on":
		out := true
		return &out
	case "0", "false", "no", "n", "off":
		out := false
		return &out
	}
	return nil
}

// NormalizeText 去空白, 空值与空白串都归nil
func NormalizeText(value interface{}) *string {
	if value == nil {
		return nil
	}
	text := strings.TrimSpace(anyToString(value))
	if text == "" {
		return nil
	}
	return &text
}

// CleanFeature 剥掉向导草稿标记, 进入正式集合
func CleanFeature(feature *IMDF.Feature) *IMDF.Feature {
	copied := feature.Clone()
	copied.Review.Draft = false
	copied.Review.WizardBuildingID = ""
	return copied
}

func metaValue(metadata map[string]interface{}, column *string) interface{} {
	if column == nil || *column == "" || metadata == nil {
		return nil
	}
	return metadata[*column]
}

func sourceFeatureRows(session *models.SessionRecord) []*IMDF.Feature {
	collection := session.SourceFeatureCollection
	if collection == nil {
		collection = session.FeatureCollection
	}
	if collection == nil {
		return nil
	}
	return collection.Features
}

func levelItemsFromFiles(session *models.SessionRecord) []models.LevelWizardItem {
	var items []models.LevelWizardItem
	for i := range session.Files {
		file := session.Files[i]
		detectedType := ""
		if file.DetectedType != nil {
			detectedType = strings.ToLower(*file.DetectedType)
		}
		if !LevelFileTypes[detectedType] {
			continue
		}
		category := file.LevelCategory
		items = append(items, models.LevelWizardItem{
			Stem:         file.Stem,
			DetectedType: file.DetectedType,
			Ordinal:      file.DetectedLevel,
			Name:         file.LevelName,
			ShortName:    file.ShortName,
			Outdoor:      file.Outdoor,
			Category:     &category,
		})
	}
	return items
}

type levelGroup struct {
	Ordinal   int
	Name      *string
	ShortName *string
	Category  string
	Outdoor   bool
	Stems     map[string]bool
}

func collectLevelGroups(session *models.SessionRecord) map[int]*levelGroup {
	levelItems := session.Wizard.Levels.Items
	if len(levelItems) == 0 {
		levelItems = levelItemsFromFiles(session)
	}
	grouped := make(map[int]*levelGroup)
	for _, item := range levelItems {
		if item.Ordinal == nil {
			continue
		}
		group, ok := grouped[*item.Ordinal]
		if !ok {
			group = &levelGroup{
				Ordinal:  *item.Ordinal,
				Category: "unspecified",
				Stems:    make(map[string]bool),
			}
			grouped[*item.Ordinal] = group
		}
		if item.Name != nil && *item.Name != "" && group.Name == nil {
			group.Name = item.Name
		}
		if item.ShortName != nil && *item.ShortName != "" && group.ShortName == nil {
			group.ShortName = item.ShortName
		}
		if item.Category != nil && *item.Category != "" && *item.Category != "unspecified" {
			group.Category = *item.Category
		}
		if item.Outdoor {
			group.Outdoor = true
		}
		group.Stems[item.Stem] = true
	}
	return grouped
}

func collectAddressFeatures(session *models.SessionRecord) ([]*IMDF.Feature, string) {
	project := session.Wizard.Project
	venueAddressFeature := session.Wizard.VenueAddressFeature
	if project != nil && venueAddressFeature == nil {
		venueAddressFeature = BuildAddressFeature(project.Address, project.VenueName)
	}

	var addresses []*IMDF.Feature
	venueAddressID := ""
	if venueAddressFeature != nil {
		cleaned := CleanFeature(venueAddressFeature)
		addresses = append(addresses, cleaned)
		venueAddressID = cleaned.ID
	}

	knownIDs := make(map[string]bool)
	for _, item := range addresses {
		if item.ID != "" {
			knownIDs[item.ID] = true
		}
	}
	for _, feature := range session.Wizard.BuildingAddressFeatures {
		if feature == nil {
			continue
		}
		cleaned := CleanFeature(feature)
		if cleaned.ID != "" && knownIDs[cleaned.ID] {
			continue
		}
		if cleaned.ID != "" {
			knownIDs[cleaned.ID] = true
		}
		addresses = append(addresses, cleaned)
	}
	return addresses, venueAddressID
}

func unitGeometriesByStem(sourceRows []*IMDF.Feature, fileMap map[string]*models.ImportedFile) map[string][]orb.Geometry {
	geomsByStem := make(map[string][]orb.Geometry)
	for _, row := range sourceRows {
		stem := row.Review.SourceFile
		file, ok := fileMap[stem]
		if stem == "" || !ok {
			continue
		}
		if file.DetectedType == nil || strings.ToLower(*file.DetectedType) != "unit" {
			continue
		}
		if row.Geometry == nil || methods.GeomIsEmpty(row.Geometry) {
			continue
		}
		geomsByStem[stem] = append(geomsByStem[stem], row.Geometry)
	}
	return geomsByStem
}

func sortedStems(stems map[string]bool) []string {
	out := make([]string, 0, len(stems))
	for stem := range stems {
		out = append(out, stem)
	}
	sort.Strings(out)
	return out
}

func expandPolygon(poly orb.Polygon, distance float64) orb.Polygon {
	if len(poly) == 0 {
		return poly
	}
	center := methods.GeomCentroid(poly)
	out := make(orb.Polygon, len(poly))
	for ri, ring := range poly {
		if ri > 0 {
			out[ri] = append(orb.Ring(nil), ring...)
			continue
		}
		newRing := make(orb.Ring, len(ring))
		for i, pt := range ring {
			dx := pt[0] - center[0]
			dy := pt[1] - center[1]
			norm := math.Hypot(dx, dy)
			if norm == 0 {
				newRing[i] = pt
				continue
			}
			scale := (norm + distance) / norm
			newRing[i] = orb.Point{center[0] + dx*scale, center[1] + dy*scale}
		}
		out[ri] = newRing
	}
	return out
}

// BufferGeometry 外环顶点沿质心方向径向外扩, 作为场馆外扩缓冲
func BufferGeometry(geom orb.Geometry, distance float64) orb.Geometry {
	if distance <= 0 || geom == nil {
		return geom
	}
	switch g := geom.(type) {
	case orb.Polygon:
		return expandPolygon(g, distance)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(g))
		for _, poly := range g {
			out = append(out, expandPolygon(poly, distance))
		}
		return out
	default:
		return geom
	}
}

func labelsOrFallback(value string, language string) IMDF.Labels {
	labels := IMDF.WrapLabels(value, language)
	if labels == nil {
		labels = IMDF.Labels{language: value}
	}
	return labels
}

// GenerateFeatureCollection 全量生成: 地址+场馆+建筑+轮廓+楼层+映射后的源要素
// 楼层轮廓由单元面合并得来, 建筑与楼层ID对同一会话可重复生成保持稳定
func GenerateFeatureCollection(session *models.SessionRecord, unitCategoriesPath string) (*IMDF.FeatureCollection, error) {
	SeedWizardState(session)
	sourceRows := sourceFeatureRows(session)
	fileMap := make(map[string]*models.ImportedFile, len(session.Files))
	for i := range session.Files {
		fileMap[session.Files[i].Stem] = &session.Files[i]
	}
	validUnitCategories, fallbackUnitCategory, err := LoadUnitCategories(unitCategoriesPath)
	if err != nil {
		return nil, err
	}

	project := session.Wizard.Project
	language := "en"
	if project != nil && strings.TrimSpace(project.Language) != "" {
		language = strings.TrimSpace(project.Language)
	}
	buildingRows := session.Wizard.Buildings
	if len(buildingRows) == 0 {
		stems := make([]string, 0, len(session.Files))
		for _, item := range session.Files {
			stems = append(stems, item.Stem)
		}
		buildingRows = []models.BuildingWizardState{{ID: "building-1", AddressMode: DefaultAddressMode, FileStems: stems}}
	}
	levelGroups := collectLevelGroups(session)
	unitGeomsByStem := unitGeometriesByStem(sourceRows, fileMap)

	addresses, venueAddressID := collectAddressFeatures(session)

	buildingUUIDByID := make(map[string]string, len(buildingRows))
	for _, building := range buildingRows {
		buildingUUIDByID[building.ID] = StableID(session.SessionID, "building:"+building.ID)
	}

	ordinals := make([]int, 0, len(levelGroups))
	for ordinal := range levelGroups {
		ordinals = append(ordinals, ordinal)
	}
	sort.Ints(ordinals)

	var levelFeatures []*IMDF.Feature
	levelIDByOrdinal := make(map[int]string)
	levelGeomByOrdinal := make(map[int]orb.Geometry)
	levelBuildingIDs := make(map[int][]string)
	for _, ordinal := range ordinals {
		group := levelGroups[ordinal]
		var polygonGeoms []orb.Geometry
		for _, stem := range sortedStems(group.Stems) {
			polygonGeoms = append(polygonGeoms, unitGeomsByStem[stem]...)
		}

		if len(polygonGeoms) == 0 {
			for _, row := range sourceRows {
				if !group.Stems[row.Review.SourceFile] {
					continue
				}
				if row.Geometry == nil || methods.GeomIsEmpty(row.Geometry) {
					continue
				}
				switch row.Geometry.(type) {
				case orb.Polygon, orb.MultiPolygon:
					polygonGeoms = append(polygonGeoms, row.Geometry)
				}
			}
		}
		if len(polygonGeoms) == 0 {
			continue
		}

		merged := methods.UnionAll(polygonGeoms)
		if merged == nil || methods.GeomIsEmpty(merged) {
			continue
		}

		levelID := StableID(session.SessionID, "level:"+strconv.Itoa(ordinal))
		levelIDByOrdinal[ordinal] = levelID
		levelGeomByOrdinal[ordinal] = merged

		var linkedBuildings []string
		for _, building := range buildingRows {
			for _, stem := range building.FileStems {
				if group.Stems[stem] {
					linkedBuildings = append(linkedBuildings, buildingUUIDByID[building.ID])
					break
				}
			}
		}
		linkedBuildings = uniqueSorted(linkedBuildings)
		if len(linkedBuildings) == 0 && len(buildingRows) > 0 {
			linkedBuildings = []string{buildingUUIDByID[buildingRows[0].ID]}
		}
		levelBuildingIDs[ordinal] = linkedBuildings

		levelName := "Level " + strconv.Itoa(ordinal)
		if group.Name != nil && *group.Name != "" {
			levelName = *group.Name
		}
		levelShortName := *DefaultShortName(&ordinal)
		if group.ShortName != nil && *group.ShortName != "" {
			levelShortName = *group.ShortName
		}
		category := group.Category
		if category == "" {
			category = "unspecified"
		}
		ordinalCopy := ordinal
		outdoor := group.Outdoor
		levelFeatures = append(levelFeatures, &IMDF.Feature{
			ID:       levelID,
			Type:     IMDF.TypeLevel,
			Geometry: merged,
			Props: &IMDF.LevelProps{
				Category:     category,
				Restriction:  nil,
				Outdoor:      &outdoor,
				Ordinal:      &ordinalCopy,
				Name:         labelsOrFallback(levelName, language),
				ShortName:    labelsOrFallback(levelShortName, language),
				DisplayPoint: DisplayPoint(merged),
				AddressID:    nil,
				BuildingIDs:  linkedBuildings,
				SourceFiles:  sortedStems(group.Stems),
			},
			Review: IMDF.Review{Status: "mapped", Issues: []IMDF.Issue{}},
		})
	}

	var footprintFeatures []*IMDF.Feature
	groundGeomByBuilding := make(map[string]orb.Geometry)
	firstGeomByBuilding := make(map[string]orb.Geometry)
	for _, building := range buildingRows {
		buildingUUID := buildingUUIDByID[building.ID]
		buildingStems := make(map[string]bool, len(building.FileStems))
		for _, stem := range building.FileStems {
			buildingStems[stem] = true
		}
		levelOrdinals := make([]int, 0, len(levelGeomByOrdinal))
		for ordinal := range levelGeomByOrdinal {
			levelOrdinals = append(levelOrdinals, ordinal)
		}
		sort.Ints(levelOrdinals)
		for _, ordinal := range levelOrdinals {
			levelGeom := levelGeomByOrdinal[ordinal]
			var geometries []orb.Geometry
			for _, stem := range sortedStems(buildingStems) {
				file, ok := fileMap[stem]
				if !ok {
					continue
				}
				if file.DetectedType == nil || strings.ToLower(*file.DetectedType) != "unit" {
					continue
				}
				if file.DetectedLevel == nil || *file.DetectedLevel != ordinal {
					continue
				}
				geometries = append(geometries, unitGeomsByStem[stem]...)
			}
			if len(geometries) == 0 && methods.IsStringInSlice(buildingUUID, levelBuildingIDs[ordinal]) {
				geometries = []orb.Geometry{levelGeom}
			}
			if len(geometries) == 0 {
				continue
			}
			merged := methods.UnionAll(geometries)
			if merged == nil || methods.GeomIsEmpty(merged) {
				continue
			}

			category := "ground"
			if ordinal > 0 {
				category = "aerial"
			} else if ordinal < 0 {
				category = "subterranean"
			}
			ordinalCopy := ordinal
			footprintFeatures = append(footprintFeatures, &IMDF.Feature{
				ID:       StableID(session.SessionID, "footprint:"+building.ID+":"+strconv.Itoa(ordinal)),
				Type:     IMDF.TypeFootprint,
				Geometry: merged,
				Props: &IMDF.FootprintProps{
					Category:    category,
					Name:        nil,
					BuildingIDs: []string{buildingUUID},
					Ordinal:     &ordinalCopy,
				},
				Review: IMDF.Review{Status: "mapped", Issues: []IMDF.Issue{}},
			})
			if _, ok := firstGeomByBuilding[building.ID]; !ok {
				firstGeomByBuilding[building.ID] = merged
			}
			if ordinal == 0 {
				groundGeomByBuilding[building.ID] = merged
			}
		}
	}

	var buildingFeatures []*IMDF.Feature
	for _, building := range buildingRows {
		buildingUUID := buildingUUIDByID[building.ID]
		anchorGeom := groundGeomByBuilding[building.ID]
		if anchorGeom == nil {
			anchorGeom = firstGeomByBuilding[building.ID]
		}
		resolvedName := ""
		if project != nil {
			resolvedName = project.VenueName
		}
		if building.Name != nil && *building.Name != "" {
			resolvedName = *building.Name
		}
		category := "unspecified"
		if building.Category != nil && *building.Category != "" {
			category = *building.Category
		}
		var displayPoint *geojson.Geometry
		if anchorGeom != nil {
			displayPoint = DisplayPoint(anchorGeom)
		}
		buildingFeatures = append(buildingFeatures, &IMDF.Feature{
			ID:   buildingUUID,
			Type: IMDF.TypeBuilding,
			Props: &IMDF.BuildingProps{
				Name:         IMDF.WrapLabels(resolvedName, language),
				AltName:      nil,
				Category:     category,
				Restriction:  building.Restriction,
				DisplayPoint: displayPoint,
				AddressID:    building.AddressFeatureID,
			},
			Review: IMDF.Review{Status: "mapped", Issues: []IMDF.Issue{}},
		})
	}

	var venueFeature *IMDF.Feature
	if project != nil {
		var venueGeometries []orb.Geometry
		for _, footprint := range footprintFeatures {
			if footprint.Geometry != nil {
				venueGeometries = append(venueGeometries, footprint.Geometry)
			}
		}
		if len(venueGeometries) == 0 {
			for _, ordinal := range ordinals {
				if geom, ok := levelGeomByOrdinal[ordinal]; ok && !methods.GeomIsEmpty(geom) {
					venueGeometries = append(venueGeometries, geom)
				}
			}
		}
		if len(venueGeometries) == 0 {
			for _, stem := range sortedStemsOfGeoms(unitGeomsByStem) {
				for _, geom := range unitGeomsByStem[stem] {
					if geom != nil && !methods.GeomIsEmpty(geom) {
						venueGeometries = append(venueGeometries, geom)
					}
				}
			}
		}

		if len(venueGeometries) > 0 {
			mergedVenue := methods.UnionAll(venueGeometries)
			venueBuffer := math.Max(session.Wizard.Footprint.VenueBufferM, 0) * IMDF.DegreesPerMeter
			if venueBuffer > 0 {
				mergedVenue = BufferGeometry(mergedVenue, venueBuffer)
			}
			var venueAddressIDPtr *string
			if venueAddressID != "" {
				id := venueAddressID
				venueAddressIDPtr = &id
			}
			venueFeature = &IMDF.Feature{
				ID:       StableID(session.SessionID, "venue"),
				Type:     IMDF.TypeVenue,
				Geometry: mergedVenue,
				Props: &IMDF.VenueProps{
					Category:     project.VenueCategory,
					Restriction:  project.VenueRestriction,
					Name:         IMDF.WrapLabels(project.VenueName, language),
					AltName:      nil,
					Hours:        project.VenueHours,
					Phone:        project.VenuePhone,
					Website:      project.VenueWebsite,
					DisplayPoint: DisplayPoint(mergedVenue),
					AddressID:    venueAddressIDPtr,
				},
				Review: IMDF.Review{Status: "mapped", Issues: []IMDF.Issue{}},
			}
		}
	}

	companyMappings := session.Wizard.CompanyMappings
	defaultUnitCategory := session.Wizard.CompanyDefaultCategory
	if defaultUnitCategory == "" {
		defaultUnitCategory = fallbackUnitCategory
	}
	if !validUnitCategories[defaultUnitCategory] {
		defaultUnitCategory = fallbackUnitCategory
	}
	mappingConfig := session.Wizard.Mappings

	var mappedFeatures []*IMDF.Feature
	for _, row := range sourceRows {
		stem := row.Review.SourceFile
		if stem == "" {
			continue
		}
		file, ok := fileMap[stem]
		if !ok {
			continue
		}

		featureType := ""
		if file.DetectedType != nil {
			featureType = strings.ToLower(*file.DetectedType)
		}
		if !LevelFileTypes[featureType] {
			continue
		}

		if row.Geometry == nil || methods.GeomIsEmpty(row.Geometry) {
			continue
		}

		if file.DetectedLevel == nil {
			continue
		}
		levelID := levelIDByOrdinal[*file.DetectedLevel]
		if levelID == "" {
			continue
		}

		metadata := make(map[string]interface{}, len(row.Review.Metadata))
		for key, item := range row.Review.Metadata {
			metadata[key] = item
		}

		var props IMDF.Props
		switch featureType {
		case "unit":
			rawCode := metaValue(metadata, mappingConfig.Unit.CodeColumn)
			category, _ := ResolveUnitCategory(rawCode, companyMappings, validUnitCategories, defaultUnitCategory)
			props = &IMDF.UnitProps{
				Category:      category,
				Restriction:   NormalizeText(metaValue(metadata, mappingConfig.Unit.RestrictionColumn)),
				Accessibility: ParseList(metaValue(metadata, mappingConfig.Unit.AccessibilityColumn)),
				Name:          WrapAnyLabels(metaValue(metadata, mappingConfig.Unit.NameColumn), language),
				AltName:       WrapAnyLabels(metaValue(metadata, mappingConfig.Unit.AltNameColumn), language),
				LevelID:       levelID,
				DisplayPoint:  DisplayPoint(row.Geometry),
			}
		case "opening":
			category := IMDF.DefaultOpeningCategory
			if raw := NormalizeText(metaValue(metadata, mappingConfig.Opening.CategoryColumn)); raw != nil {
				lowered := strings.ToLower(*raw)
				if IMDF.OpeningCategories[lowered] {
					category = lowered
				}
			}
			door := &IMDF.Door{
				Automatic: ParseBool(metaValue(metadata, mappingConfig.Opening.DoorAutomaticColumn)),
				Material:  NormalizeText(metaValue(metadata, mappingConfig.Opening.DoorMaterialColumn)),
				Type:      NormalizeText(metaValue(metadata, mappingConfig.Opening.DoorTypeColumn)),
			}
			if door.Empty() {
				door = nil
			}
			props = &IMDF.OpeningProps{
				Category:      category,
				Accessibility: ParseList(metaValue(metadata, mappingConfig.Opening.AccessibilityColumn)),
				AccessControl: ParseList(metaValue(metadata, mappingConfig.Opening.AccessControlColumn)),
				Door:          door,
				Name:          WrapAnyLabels(metaValue(metadata, mappingConfig.Opening.NameColumn), language),
				AltName:       nil,
				DisplayPoint:  DisplayPoint(row.Geometry),
				LevelID:       levelID,
			}
		case "fixture":
			fixtureCategory := "unspecified"
			if raw := NormalizeText(metaValue(metadata, mappingConfig.Fixture.CategoryColumn)); raw != nil {
				fixtureCategory = *raw
			}
			props = &IMDF.FixtureProps{
				Category:     strings.ToLower(fixtureCategory),
				Name:         WrapAnyLabels(metaValue(metadata, mappingConfig.Fixture.NameColumn), language),
				AltName:      WrapAnyLabels(metaValue(metadata, mappingConfig.Fixture.AltNameColumn), language),
				AnchorID:     nil,
				LevelID:      levelID,
				DisplayPoint: DisplayPoint(row.Geometry),
			}
		default:
			props = &IMDF.DetailProps{LevelID: levelID}
		}

		featureID := row.ID
		if featureID == "" {
			featureID = uuid.New().String()
		}
		mappedFeatures = append(mappedFeatures, &IMDF.Feature{
			ID:       featureID,
			Type:     IMDF.FeatureType(featureType),
			Geometry: orb.Clone(row.Geometry),
			Props:    props,
			Review: IMDF.Review{
				Status:         "mapped",
				Issues:         []IMDF.Issue{},
				Metadata:       metadata,
				SourceFile:     stem,
				SourceRowIndex: cloneRowIndex(row.Review.SourceRowIndex),
			},
		})
	}

	finalFeatures := make([]*IMDF.Feature, 0, len(addresses)+1+len(buildingFeatures)+len(footprintFeatures)+len(levelFeatures)+len(mappedFeatures))
	finalFeatures = append(finalFeatures, addresses...)
	if venueFeature != nil {
		finalFeatures = append(finalFeatures, venueFeature)
	}
	finalFeatures = append(finalFeatures, buildingFeatures...)
	finalFeatures = append(finalFeatures, footprintFeatures...)
	finalFeatures = append(finalFeatures, levelFeatures...)
	finalFeatures = append(finalFeatures, mappedFeatures...)
	return &IMDF.FeatureCollection{Features: finalFeatures}, nil
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

func sortedStemsOfGeoms(geomsByStem map[string][]orb.Geometry) []string {
	out := make([]string, 0, len(geomsByStem))
	for stem := range geomsByStem {
		out = append(out, stem)
	}
	sort.Strings(out)
	return out
}

func cloneRowIndex(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
