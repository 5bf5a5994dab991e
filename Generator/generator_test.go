package Generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func unitSquareAt(x, y float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func writeUnitCategoriesConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit_categories.json")
	payload := `{"categories": ["retail", "restroom", "walkway"], "default_category": "unspecified"}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func sourceFeature(id, stem string, rowIndex int, geom orb.Geometry, metadata map[string]interface{}) *IMDF.Feature {
	idx := rowIndex
	return &IMDF.Feature{
		ID:       id,
		Type:     IMDF.TypeSource,
		Geometry: geom,
		Props:    &IMDF.SourceProps{},
		Review: IMDF.Review{
			Status:         "mapped",
			Issues:         []IMDF.Issue{},
			Metadata:       metadata,
			SourceFile:     stem,
			SourceRowIndex: &idx,
		},
	}
}

// buildGeneratorSession 两层楼: 一层两个单元加一个开口, 二层一个单元, 外加一个未识别文件
func buildGeneratorSession() *models.SessionRecord {
	unit := "unit"
	opening := "opening"
	fc := IMDF.NewFeatureCollection()
	fc.Features = append(fc.Features,
		sourceFeature("src-1", "rooms_1f", 0, unitSquareAt(0, 0), map[string]interface{}{"CODE": "RETAIL", "NAME": "Shop A"}),
		sourceFeature("src-2", "rooms_1f", 1, unitSquareAt(1, 0), map[string]interface{}{"CODE": "WC", "NAME": "Restroom"}),
		sourceFeature("src-3", "doors_1f", 0, orb.LineString{{0.4, 0}, {0.6, 0}}, map[string]interface{}{"TYPE": "service"}),
		sourceFeature("src-4", "rooms_2f", 0, unitSquareAt(0, 0), map[string]interface{}{"CODE": "RETAIL", "NAME": "Shop B"}),
	)
	session := &models.SessionRecord{
		SessionID: "11111111-2222-3333-4444-555555555555",
		Files: []models.ImportedFile{
			{Stem: "rooms_1f", GeometryType: "Polygon", FeatureCount: 2, AttributeColumns: []string{"CODE", "NAME"}, DetectedType: &unit, DetectedLevel: intPtr(0), Confidence: "green", LevelCategory: "unspecified"},
			{Stem: "doors_1f", GeometryType: "LineString", FeatureCount: 1, AttributeColumns: []string{"TYPE"}, DetectedType: &opening, DetectedLevel: intPtr(0), Confidence: "green", LevelCategory: "unspecified"},
			{Stem: "rooms_2f", GeometryType: "Polygon", FeatureCount: 1, AttributeColumns: []string{"CODE", "NAME"}, DetectedType: &unit, DetectedLevel: intPtr(1), Confidence: "green", LevelCategory: "unspecified"},
			{Stem: "survey_notes", GeometryType: "Point", FeatureCount: 0, Confidence: "red", LevelCategory: "unspecified"},
		},
		FeatureCollection:       fc.Clone(),
		SourceFeatureCollection: fc.Clone(),
		Warnings:                []string{},
		LearnedKeywords:         map[string]string{},
		Wizard:                  models.NewWizardState(),
	}
	session.Wizard.Project = &models.ProjectWizardState{
		ProjectName:   "demo",
		VenueName:     "Central Mall",
		VenueCategory: "shoppingcenter",
		Language:      "en",
		Address: models.AddressInput{
			Address:  "1 Main Street",
			Locality: "Springfield",
			Country:  "US",
		},
	}
	session.Wizard.CompanyMappings = map[string]string{"WC": "restroom"}
	session.Wizard.Mappings.Unit.CodeColumn = strPtr("CODE")
	session.Wizard.Mappings.Unit.NameColumn = strPtr("NAME")
	session.Wizard.Mappings.Opening.CategoryColumn = strPtr("TYPE")
	return session
}

func TestDefaultShortName(t *testing.T) {
	assert.Nil(t, DefaultShortName(nil))
	assert.Equal(t, "GF", *DefaultShortName(intPtr(0)))
	assert.Equal(t, "2F", *DefaultShortName(intPtr(2)))
	assert.Equal(t, "B1", *DefaultShortName(intPtr(-1)))
}

func TestStableID(t *testing.T) {
	a := StableID("session-a", "building:building-1")
	b := StableID("session-a", "building:building-1")
	c := StableID("session-a", "building:building-2")
	d := StableID("session-b", "building:building-1")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseList("a; b,c"))
	assert.Equal(t, []string{"wheelchair"}, ParseList(" wheelchair "))
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList(nil))
	assert.Equal(t, []string{"x", "y"}, ParseList([]interface{}{"x", " y ", ""}))
}

func TestParseBool(t *testing.T) {
	require.NotNil(t, ParseBool("YES"))
	assert.True(t, *ParseBool("YES"))
	require.NotNil(t, ParseBool(true))
	assert.True(t, *ParseBool(true))
	require.NotNil(t, ParseBool("0"))
	assert.False(t, *ParseBool("0"))
	assert.Nil(t, ParseBool("sometimes"))
	assert.Nil(t, ParseBool(nil))
	assert.Nil(t, ParseBool(""))
}

func TestNormalizeText(t *testing.T) {
	require.NotNil(t, NormalizeText(" Lobby "))
	assert.Equal(t, "Lobby", *NormalizeText(" Lobby "))
	assert.Nil(t, NormalizeText("   "))
	assert.Nil(t, NormalizeText(nil))
	assert.Equal(t, "3", *NormalizeText(float64(3)))
}

func TestBufferGeometry(t *testing.T) {
	square := unitSquareAt(0, 0)
	expanded := BufferGeometry(square, 0.5)
	assert.Greater(t, methods.GeomArea(expanded), methods.GeomArea(square))
	assert.Equal(t, orb.Geometry(square), BufferGeometry(square, 0))
}

func TestSeedWizardState(t *testing.T) {
	session := buildGeneratorSession()
	SeedWizardState(session)

	require.Len(t, session.Wizard.Buildings, 1)
	building := session.Wizard.Buildings[0]
	assert.Equal(t, "building-1", building.ID)
	assert.Equal(t, DefaultAddressMode, building.AddressMode)
	assert.Equal(t, []string{"rooms_1f", "doors_1f", "rooms_2f", "survey_notes"}, building.FileStems)

	// 未识别类型的文件不进楼层表
	require.Len(t, session.Wizard.Levels.Items, 3)
	first := session.Wizard.Levels.Items[0]
	assert.Equal(t, "rooms_1f", first.Stem)
	require.NotNil(t, first.ShortName)
	assert.Equal(t, "GF", *first.ShortName)
	third := session.Wizard.Levels.Items[2]
	assert.Equal(t, "rooms_2f", third.Stem)
	require.NotNil(t, third.ShortName)
	assert.Equal(t, "1F", *third.ShortName)

	// 已有内容不重复播种
	session.Wizard.Levels.Items = session.Wizard.Levels.Items[:1]
	SeedWizardState(session)
	assert.Len(t, session.Wizard.Levels.Items, 1)
}

func TestGenerateDraft(t *testing.T) {
	session := buildGeneratorSession()
	count := GenerateDraft(session)
	assert.Equal(t, 2, count)
	assert.Equal(t, "draft_ready", session.Wizard.GenerationStatus)
	require.Len(t, session.FeatureCollection.Features, 6)

	var draftBuilding *IMDF.Feature
	drafts := 0
	for _, feature := range session.FeatureCollection.Features {
		if feature.Review.Draft {
			drafts++
		}
		if feature.Type == IMDF.TypeBuilding {
			draftBuilding = feature
		}
	}
	assert.Equal(t, 2, drafts)
	require.NotNil(t, draftBuilding)
	assert.True(t, draftBuilding.Review.Draft)
	assert.Equal(t, "building-1", draftBuilding.Review.WizardBuildingID)
	props := draftBuilding.Props.(*IMDF.BuildingProps)
	assert.Equal(t, IMDF.Labels{"en": "Central Mall"}, props.Name)

	// 重复生成时替换上一轮草稿而不是叠加
	again := GenerateDraft(session)
	assert.Equal(t, 2, again)
	assert.Len(t, session.FeatureCollection.Features, 6)
}

func TestGenerateFeatureCollection(t *testing.T) {
	configPath := writeUnitCategoriesConfig(t)
	session := buildGeneratorSession()

	fc, err := GenerateFeatureCollection(session, configPath)
	require.NoError(t, err)

	addresses := fc.OfType(IMDF.TypeAddress)
	venues := fc.OfType(IMDF.TypeVenue)
	buildings := fc.OfType(IMDF.TypeBuilding)
	footprints := fc.OfType(IMDF.TypeFootprint)
	levels := fc.OfType(IMDF.TypeLevel)
	units := fc.OfType(IMDF.TypeUnit)
	openings := fc.OfType(IMDF.TypeOpening)

	require.Len(t, addresses, 1)
	require.Len(t, venues, 1)
	require.Len(t, buildings, 1)
	require.Len(t, footprints, 2)
	require.Len(t, levels, 2)
	require.Len(t, units, 3)
	require.Len(t, openings, 1)

	t.Run("venue", func(t *testing.T) {
		props := venues[0].Props.(*IMDF.VenueProps)
		assert.Equal(t, "shoppingcenter", props.Category)
		assert.Equal(t, IMDF.Labels{"en": "Central Mall"}, props.Name)
		require.NotNil(t, props.AddressID)
		assert.Equal(t, addresses[0].ID, *props.AddressID)
		require.NotNil(t, venues[0].Geometry)
		assert.False(t, methods.GeomIsEmpty(venues[0].Geometry))
	})

	t.Run("levels", func(t *testing.T) {
		byOrdinal := map[int]*IMDF.LevelProps{}
		for _, level := range levels {
			props := level.Props.(*IMDF.LevelProps)
			require.NotNil(t, props.Ordinal)
			byOrdinal[*props.Ordinal] = props
		}
		require.Contains(t, byOrdinal, 0)
		require.Contains(t, byOrdinal, 1)
		assert.Equal(t, IMDF.Labels{"en": "GF"}, byOrdinal[0].ShortName)
		assert.Equal(t, IMDF.Labels{"en": "Level 0"}, byOrdinal[0].Name)
		assert.Equal(t, []string{"doors_1f", "rooms_1f"}, byOrdinal[0].SourceFiles)
		assert.Equal(t, []string{buildings[0].ID}, byOrdinal[0].BuildingIDs)
		assert.Equal(t, []string{buildings[0].ID}, byOrdinal[1].BuildingIDs)
	})

	t.Run("footprints", func(t *testing.T) {
		categories := map[int]string{}
		for _, footprint := range footprints {
			props := footprint.Props.(*IMDF.FootprintProps)
			require.NotNil(t, props.Ordinal)
			categories[*props.Ordinal] = props.Category
			assert.Equal(t, []string{buildings[0].ID}, props.BuildingIDs)
		}
		assert.Equal(t, "ground", categories[0])
		assert.Equal(t, "aerial", categories[1])
	})

	t.Run("mapped units", func(t *testing.T) {
		levelIDs := map[int]string{}
		for _, level := range levels {
			props := level.Props.(*IMDF.LevelProps)
			levelIDs[*props.Ordinal] = level.ID
		}
		byID := fc.ByID()

		shopA := byID["src-1"]
		require.NotNil(t, shopA)
		props := shopA.Props.(*IMDF.UnitProps)
		assert.Equal(t, "retail", props.Category)
		assert.Equal(t, IMDF.Labels{"en": "Shop A"}, props.Name)
		assert.Equal(t, levelIDs[0], props.LevelID)
		assert.NotNil(t, props.DisplayPoint)

		restroom := byID["src-2"]
		require.NotNil(t, restroom)
		assert.Equal(t, "restroom", restroom.Props.(*IMDF.UnitProps).Category)

		upstairs := byID["src-4"]
		require.NotNil(t, upstairs)
		assert.Equal(t, levelIDs[1], upstairs.Props.(*IMDF.UnitProps).LevelID)
	})

	t.Run("mapped opening", func(t *testing.T) {
		props := openings[0].Props.(*IMDF.OpeningProps)
		assert.Equal(t, "service", props.Category)
		assert.Nil(t, props.Door)
		assert.NotEmpty(t, props.LevelID)
	})
}

// 同一会话重复生成时建筑楼层轮廓场馆ID保持稳定
func TestGenerateFeatureCollectionStableIDs(t *testing.T) {
	configPath := writeUnitCategoriesConfig(t)

	first, err := GenerateFeatureCollection(buildGeneratorSession(), configPath)
	require.NoError(t, err)
	second, err := GenerateFeatureCollection(buildGeneratorSession(), configPath)
	require.NoError(t, err)

	for _, featureType := range []IMDF.FeatureType{IMDF.TypeVenue, IMDF.TypeBuilding, IMDF.TypeLevel, IMDF.TypeFootprint} {
		firstIDs := idsOfType(first, featureType)
		secondIDs := idsOfType(second, featureType)
		assert.Equal(t, firstIDs, secondIDs, "ids of %s should be stable", featureType)
	}
}

func idsOfType(fc *IMDF.FeatureCollection, featureType IMDF.FeatureType) []string {
	var out []string
	for _, feature := range fc.OfType(featureType) {
		out = append(out, feature.ID)
	}
	return out
}
