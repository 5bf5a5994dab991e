package Exporter

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"testing"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func unitSquare() orb.Polygon {
	return orb.Polygon{orb.Ring{{10.0, 50.0}, {10.001, 50.0}, {10.001, 50.001}, {10.0, 50.001}, {10.0, 50.0}}}
}

func exportSession() *models.SessionRecord {
	fc := IMDF.NewFeatureCollection()
	unit := &IMDF.Feature{
		ID:       "66666666-6666-4666-8666-666666666666",
		Type:     IMDF.TypeUnit,
		Geometry: unitSquare(),
		Props:    &IMDF.UnitProps{Category: "retail", LevelID: "55555555-5555-4555-8555-555555555555"},
	}
	unit.Review.Status = "mapped"
	unit.Review.SourceFile = "rooms_1f"
	unit.Review.SourceRowIndex = intPtr(3)
	fc.Features = append(fc.Features, unit)

	session := &models.SessionRecord{
		SessionID:         "11111111-2222-3333-4444-555555555555",
		FeatureCollection: fc,
		Wizard:            models.NewWizardState(),
	}
	session.Wizard.Project = &models.ProjectWizardState{
		VenueName:     "Central Mall",
		VenueCategory: "shoppingcenter",
		Language:      "en",
	}
	return session
}

func TestBuildManifest(t *testing.T) {
	session := exportSession()
	session.Wizard.Project.Language = "zh-Hans"

	manifest := BuildManifest(session)

	assert.Equal(t, "1.0.0", manifest.Version)
	assert.Equal(t, "shp2imdf-converter phase3", manifest.GeneratedBy)
	assert.Equal(t, "zh-Hans", manifest.Language)
	assert.Nil(t, manifest.Extensions)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`), manifest.Created)

	// 未配置项目时语言回退en
	session.Wizard.Project = nil
	assert.Equal(t, "en", BuildManifest(session).Language)
}

func TestSafeExportName(t *testing.T) {
	assert.Equal(t, "My_Mall", SafeExportName("My Mall!"))
	assert.Equal(t, "hidden", SafeExportName(" .hidden. "))
	assert.Equal(t, "Caf_99", SafeExportName("Café 99"))
	assert.Equal(t, "west-wing_2.v1", SafeExportName("west-wing_2.v1"))
	// 全量非法字符回退固定名
	assert.Equal(t, "imdf_export", SafeExportName("___"))
	assert.Equal(t, "imdf_export", SafeExportName("中文商场"))
}

func TestExportFileName(t *testing.T) {
	session := exportSession()
	session.Wizard.Project.ProjectName = "West Wing"
	assert.Equal(t, "West_Wing.imdf", ExportFileName(session))

	session.Wizard.Project.ProjectName = ""
	assert.Equal(t, "Central_Mall.imdf", ExportFileName(session))

	session.Wizard.Project = nil
	assert.Equal(t, "11111111-2222-3333-4444-555555555555.imdf", ExportFileName(session))
}

func TestCleanExportFeature(t *testing.T) {
	feature := &IMDF.Feature{
		ID:       "66666666-6666-4666-8666-666666666666",
		Type:     IMDF.TypeUnit,
		Geometry: unitSquare(),
		Props:    &IMDF.UnitProps{Category: "retail"},
	}
	feature.Review.Status = "error"
	feature.Review.Issues = []IMDF.Issue{{Check: "empty_geometry", Severity: "error"}}
	feature.Review.Metadata = map[string]interface{}{"source_feature_ref": "rooms_1f:3:0"}
	feature.Review.SourceFile = "rooms_1f"
	feature.Review.SourceRowIndex = intPtr(3)
	feature.Review.Draft = true
	feature.Review.WizardBuildingID = "building-1"

	cleaned := CleanExportFeature(feature)
	raw, err := json.Marshal(cleaned)
	require.NoError(t, err)
	var doc struct {
		Properties map[string]interface{} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, key := range []string{"status", "issues", "metadata", "source_file"} {
		assert.NotContains(t, doc.Properties, key)
	}
	// 行号与生成器标记不属于审查期属性, 原样保留
	assert.Equal(t, float64(3), doc.Properties["source_row_index"])
	assert.Equal(t, true, doc.Properties["_phase3_generated"])
	assert.Equal(t, "building-1", doc.Properties["_wizard_building_id"])

	// 原要素不受影响
	assert.Equal(t, "error", feature.Review.Status)
	assert.Len(t, feature.Review.Issues, 1)
}

func TestBuildIMDFGeoJSONFiles(t *testing.T) {
	requiredNames := []string{
		"address.geojson", "venue.geojson", "building.geojson",
		"footprint.geojson", "level.geojson", "unit.geojson",
	}

	t.Run("empty collection still emits required files", func(t *testing.T) {
		files := BuildIMDFGeoJSONFiles(IMDF.NewFeatureCollection())
		require.Len(t, files, len(requiredNames))
		for i, file := range files {
			assert.Equal(t, requiredNames[i], file.Name)
			assert.Empty(t, file.Collection.Features)
		}
	})

	t.Run("optional types only when present", func(t *testing.T) {
		fc := IMDF.NewFeatureCollection()
		fc.Features = append(fc.Features,
			&IMDF.Feature{ID: "u1", Type: IMDF.TypeUnit, Geometry: unitSquare(), Props: &IMDF.UnitProps{Category: "retail"}},
			&IMDF.Feature{ID: "o1", Type: IMDF.TypeOpening, Geometry: orb.LineString{{10.0, 50.0}, {10.0005, 50.0}}, Props: &IMDF.OpeningProps{Category: "pedestrian"}},
			&IMDF.Feature{ID: "d1", Type: IMDF.TypeDetail, Geometry: orb.LineString{{10.0, 50.0}, {10.001, 50.001}}, Props: &IMDF.DetailProps{}},
		)
		fc.Features[0].Review.Status = "mapped"

		files := BuildIMDFGeoJSONFiles(fc)
		names := make([]string, 0, len(files))
		for _, file := range files {
			names = append(names, file.Name)
		}
		assert.Equal(t, append(append([]string{}, requiredNames...), "opening.geojson", "detail.geojson"), names)

		byName := map[string]*IMDF.FeatureCollection{}
		for _, file := range files {
			byName[file.Name] = file.Collection
		}
		require.Len(t, byName["unit.geojson"].Features, 1)
		assert.Equal(t, "u1", byName["unit.geojson"].Features[0].ID)
		// 拆分时已剥离审查属性
		assert.Equal(t, "", byName["unit.geojson"].Features[0].Review.Status)
		assert.Len(t, byName["opening.geojson"].Features, 1)
		assert.Len(t, byName["detail.geojson"].Features, 1)
	})
}

func TestBuildExportArchive(t *testing.T) {
	session := exportSession()

	payload, filename, err := BuildExportArchive(session)
	require.NoError(t, err)
	assert.Equal(t, "Central_Mall.imdf", filename)

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	members := map[string][]byte{}
	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		members[file.Name] = content
	}

	for _, name := range []string{
		"manifest.json", "address.geojson", "venue.geojson", "building.geojson",
		"footprint.geojson", "level.geojson", "unit.geojson",
	} {
		assert.Contains(t, members, name)
	}

	var manifest Manifest
	require.NoError(t, json.Unmarshal(members["manifest.json"], &manifest))
	assert.Equal(t, "1.0.0", manifest.Version)
	assert.Equal(t, "shp2imdf-converter phase3", manifest.GeneratedBy)
	assert.Equal(t, "en", manifest.Language)

	var units IMDF.FeatureCollection
	require.NoError(t, json.Unmarshal(members["unit.geojson"], &units))
	require.Len(t, units.Features, 1)
	assert.Equal(t, "66666666-6666-4666-8666-666666666666", units.Features[0].ID)
	assert.Equal(t, "", units.Features[0].Review.Status)
	assert.Equal(t, "", units.Features[0].Review.SourceFile)
}
