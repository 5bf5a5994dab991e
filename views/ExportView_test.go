package views_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/GrainArc/IndoorMap/Exporter"
	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/GrainArc/IndoorMap/views"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrID    = "11111111-1111-4111-8111-111111111111"
	venueID   = "22222222-2222-4222-8222-222222222222"
	bldgID    = "33333333-3333-4333-8333-333333333333"
	footID    = "44444444-4444-4444-8444-444444444444"
	levelID   = "55555555-5555-4555-8555-555555555555"
	unit1ID   = "66666666-6666-4666-8666-666666666666"
	unit2ID   = "77777777-7777-4777-8777-777777777777"
	openingID = "88888888-8888-4888-8888-888888888888"
)

func boolPtr(v bool) *bool { return &v }

func rectPoly(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

// exportReadyCollection 校验全绿的最小完整集合
func exportReadyCollection() *IMDF.FeatureCollection {
	extent := rectPoly(10.0, 50.0, 10.002, 50.001)
	addressRef := addrID

	fc := IMDF.NewFeatureCollection()
	fc.Features = append(fc.Features,
		&IMDF.Feature{ID: addrID, Type: IMDF.TypeAddress, Props: &IMDF.AddressProps{
			Address: "1 Main Street", Locality: "Springfield", Country: "US",
		}},
		&IMDF.Feature{ID: venueID, Type: IMDF.TypeVenue, Geometry: extent, Props: &IMDF.VenueProps{
			Category:     "shoppingcenter",
			Name:         IMDF.Labels{"en": "Central Mall"},
			DisplayPoint: geojson.NewGeometry(orb.Point{10.001, 50.0005}),
			AddressID:    &addressRef,
		}},
		&IMDF.Feature{ID: bldgID, Type: IMDF.TypeBuilding, Props: &IMDF.BuildingProps{
			Name: IMDF.Labels{"en": "Central Mall"}, Category: "unspecified",
		}},
		&IMDF.Feature{ID: footID, Type: IMDF.TypeFootprint, Geometry: extent, Props: &IMDF.FootprintProps{
			Category: "ground", BuildingIDs: []string{bldgID}, Ordinal: intPtr(0),
		}},
		&IMDF.Feature{ID: levelID, Type: IMDF.TypeLevel, Geometry: extent, Props: &IMDF.LevelProps{
			Category:    "unspecified",
			Outdoor:     boolPtr(false),
			Ordinal:     intPtr(0),
			Name:        IMDF.Labels{"en": "Ground"},
			ShortName:   IMDF.Labels{"en": "GF"},
			BuildingIDs: []string{bldgID},
		}},
		&IMDF.Feature{ID: unit1ID, Type: IMDF.TypeUnit, Geometry: rectPoly(10.0, 50.0, 10.001, 50.001), Props: &IMDF.UnitProps{
			Category: "retail", Name: IMDF.Labels{"en": "Shop A"}, LevelID: levelID,
		}, Review: IMDF.Review{Status: "mapped", SourceFile: "rooms_1f"}},
		&IMDF.Feature{ID: unit2ID, Type: IMDF.TypeUnit, Geometry: rectPoly(10.001, 50.0, 10.002, 50.001), Props: &IMDF.UnitProps{
			Category: "restroom", Name: IMDF.Labels{"en": "Restroom"}, LevelID: levelID,
		}},
		&IMDF.Feature{ID: openingID, Type: IMDF.TypeOpening, Geometry: orb.LineString{{10.0004, 50.0}, {10.00045, 50.0}}, Props: &IMDF.OpeningProps{
			Category: "pedestrian", Door: &IMDF.Door{Material: strPtr("wood")}, LevelID: levelID,
		}},
	)
	return fc
}

func setWizardProject(t *testing.T, uc *views.UserController, session *models.SessionRecord, projectName string) {
	t.Helper()
	session.Wizard.Project = &models.ProjectWizardState{
		ProjectName:   projectName,
		VenueName:     "Central Mall",
		VenueCategory: "shoppingcenter",
		Language:      "en",
		Address: models.AddressInput{
			Address:  "1 Main Street",
			Locality: "Springfield",
			Country:  "US",
		},
	}
	require.NoError(t, uc.Sessions.SaveSession(session))
}

func TestValidateSessionEndpoint(t *testing.T) {
	t.Run("clean collection passes", func(t *testing.T) {
		router, uc := newTestServer(t)
		session := seedSession(t, uc, nil, exportReadyCollection())

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/validate", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body models.ValidationResponse
		decodeBody(t, recorder, &body)
		assert.Empty(t, body.Errors)
		assert.Empty(t, body.Warnings)
		assert.Equal(t, 0, body.Summary.ErrorCount)
		assert.Equal(t, 8, body.Summary.TotalFeatures)
		assert.Equal(t, []string{
			"building_exists", "display_points_valid", "labels_format_valid",
			"unique_uuids", "valid_geometry", "venue_exists",
		}, body.Passed)
	})

	t.Run("empty collection reports structural errors", func(t *testing.T) {
		router, uc := newTestServer(t)
		session := seedSession(t, uc, nil, nil)

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/validate", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body models.ValidationResponse
		decodeBody(t, recorder, &body)
		checks := make(map[string]bool, len(body.Errors))
		for _, issue := range body.Errors {
			checks[issue.Check] = true
		}
		assert.True(t, checks["missing_venue"])
		assert.True(t, checks["missing_building"])
		assert.GreaterOrEqual(t, body.Summary.ErrorCount, 1)
	})

	t.Run("issues annotated onto features", func(t *testing.T) {
		router, uc := newTestServer(t)
		fc := exportReadyCollection()
		fc.ByID()[venueID].Props.(*IMDF.VenueProps).DisplayPoint = nil
		session := seedSession(t, uc, nil, fc)

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/validate", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		features := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/features", nil)
		var raw struct {
			Features []struct {
				ID         string                 `json:"id"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"features"`
		}
		decodeBody(t, features, &raw)
		for _, feature := range raw.Features {
			if feature.ID != venueID {
				continue
			}
			assert.Equal(t, "error", feature.Properties["status"])
			issues, _ := feature.Properties["issues"].([]interface{})
			require.Len(t, issues, 1)
			issue, _ := issues[0].(map[string]interface{})
			assert.Equal(t, "venue_missing_display_point_error", issue["check"])
		}
	})
}

func TestAutofixSessionEndpoint(t *testing.T) {
	t.Run("rounds precision without confirmation", func(t *testing.T) {
		router, uc := newTestServer(t)
		fc := exportReadyCollection()
		fc.ByID()[unit1ID].Geometry = rectPoly(10.123456789, 50.0, 10.124456789, 50.001)
		session := seedSession(t, uc, nil, fc)

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/autofix", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body views.AutofixResponse
		decodeBody(t, recorder, &body)
		require.NotEmpty(t, body.FixesApplied)
		rounded := false
		for _, fix := range body.FixesApplied {
			if fix.Action == "round_coordinates" && fix.FeatureID == unit1ID {
				rounded = true
			}
		}
		assert.True(t, rounded)
		assert.Equal(t, len(body.FixesApplied), body.TotalFixed)
		assert.Empty(t, body.FixesRequiringConfirmation)

		require.NotNil(t, body.Revalidation)
		for _, issue := range body.Revalidation.Warnings {
			assert.NotEqual(t, "excessive_precision", issue.Check)
		}
	})

	t.Run("duplicate deletion needs confirmation", func(t *testing.T) {
		router, uc := newTestServer(t)
		fc := exportReadyCollection()
		fc.ByID()[unit2ID].Geometry = rectPoly(10.0, 50.0, 10.001, 50.001)
		session := seedSession(t, uc, nil, fc)

		first := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/autofix", nil)
		require.Equal(t, http.StatusOK, first.Code)

		var body views.AutofixResponse
		decodeBody(t, first, &body)
		assert.Empty(t, body.FixesApplied)
		require.Len(t, body.FixesRequiringConfirmation, 1)
		prompt := body.FixesRequiringConfirmation[0]
		assert.Equal(t, "delete_duplicate", prompt.Action)
		assert.Equal(t, unit1ID, prompt.FeatureID)
		assert.Equal(t, unit2ID, prompt.RelatedFeatureID)
		assert.Equal(t, 1, body.TotalRequiringConfirmation)

		// 未确认时集合不动
		features := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/features", nil)
		var fcOut IMDF.FeatureCollection
		decodeBody(t, features, &fcOut)
		assert.Len(t, fcOut.Features, 8)

		second := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/autofix",
			map[string]interface{}{"apply_prompted": true})
		require.Equal(t, http.StatusOK, second.Code)
		decodeBody(t, second, &body)

		deleted := false
		for _, fix := range body.FixesApplied {
			if fix.Action == "delete_feature" && fix.FeatureID == unit2ID {
				deleted = true
			}
		}
		assert.True(t, deleted)
		assert.Empty(t, body.FixesRequiringConfirmation)

		features = doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/features", nil)
		decodeBody(t, features, &fcOut)
		assert.Len(t, fcOut.Features, 7)
		assert.Nil(t, fcOut.ByID()[unit2ID])
	})
}

func TestExportIMDF(t *testing.T) {
	t.Run("blocked while errors remain", func(t *testing.T) {
		router, uc := newTestServer(t)
		session := seedSession(t, uc, nil, nil)

		recorder := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/export", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		var errBody views.ErrorResponse
		decodeBody(t, recorder, &errBody)
		assert.Equal(t, "Export blocked: unresolved validation errors remain.", errBody.Detail)
	})

	t.Run("archive download", func(t *testing.T) {
		router, uc := newTestServer(t)
		session := seedSession(t, uc, nil, exportReadyCollection())
		setWizardProject(t, uc, session, "")

		recorder := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/export", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "application/zip", recorder.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="Central_Mall.imdf"`, recorder.Header().Get("Content-Disposition"))

		reader, err := zip.NewReader(bytes.NewReader(recorder.Body.Bytes()), int64(recorder.Body.Len()))
		require.NoError(t, err)
		names := make(map[string]*zip.File, len(reader.File))
		for _, member := range reader.File {
			names[member.Name] = member
		}
		for _, expected := range []string{"manifest.json", "address.geojson", "venue.geojson", "building.geojson", "footprint.geojson", "level.geojson", "unit.geojson"} {
			assert.Contains(t, names, expected)
		}

		manifestFile, err := names["manifest.json"].Open()
		require.NoError(t, err)
		defer manifestFile.Close()
		manifestRaw, err := io.ReadAll(manifestFile)
		require.NoError(t, err)
		var manifest Exporter.Manifest
		require.NoError(t, json.Unmarshal(manifestRaw, &manifest))
		assert.Equal(t, "1.0.0", manifest.Version)
		assert.Equal(t, "en", manifest.Language)

		unitFile, err := names["unit.geojson"].Open()
		require.NoError(t, err)
		defer unitFile.Close()
		unitRaw, err := io.ReadAll(unitFile)
		require.NoError(t, err)
		var units IMDF.FeatureCollection
		require.NoError(t, json.Unmarshal(unitRaw, &units))
		require.Len(t, units.Features, 2)
		// 导出文件里不带审查期属性
		assert.Equal(t, "", units.ByID()[unit1ID].Review.Status)
		assert.Equal(t, "", units.ByID()[unit1ID].Review.SourceFile)
	})
}

func TestExportTypeGeoJSON(t *testing.T) {
	router, uc := newTestServer(t)
	session := seedSession(t, uc, nil, exportReadyCollection())

	t.Run("unknown type rejected", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/export/geojson/bogus", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		var errBody views.ErrorResponse
		decodeBody(t, recorder, &errBody)
		assert.Equal(t, "Unknown feature type: bogus", errBody.Detail)
	})

	t.Run("single type with review props stripped", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/export/geojson/unit", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var raw struct {
			Features []struct {
				ID         string                 `json:"id"`
				Properties map[string]interface{} `json:"properties"`
			} `json:"features"`
		}
		decodeBody(t, recorder, &raw)
		require.Len(t, raw.Features, 2)
		for _, feature := range raw.Features {
			assert.NotContains(t, feature.Properties, "status")
			assert.NotContains(t, feature.Properties, "source_file")
		}
	})
}

func TestGenerateDraftEndpoint(t *testing.T) {
	router, uc := newTestServer(t)
	session := seedSession(t, uc, nil, nil)
	setWizardProject(t, uc, session, "demo")

	recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/generate/draft", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body views.GenerateResponse
	decodeBody(t, recorder, &body)
	assert.Equal(t, "draft", body.Status)
	assert.Equal(t, 2, body.GeneratedFeatureCount)
	assert.Equal(t, "Draft generation completed (address/building only). Full geometry generation is implemented in Phase 4.", body.Message)
	assert.Nil(t, body.Validation)

	// 草稿要素带生成标记
	features := doJSON(t, router, http.MethodGet, "/api/session/"+session.SessionID+"/features", nil)
	var raw struct {
		Features []struct {
			ID         string                 `json:"id"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	decodeBody(t, features, &raw)
	require.Len(t, raw.Features, 2)
	for _, feature := range raw.Features {
		assert.Equal(t, true, feature.Properties["_phase3_generated"])
	}
}

func TestGenerateEndpoint(t *testing.T) {
	t.Run("missing project falls back to draft", func(t *testing.T) {
		router, uc := newTestServer(t)
		session := seedSession(t, uc, nil, nil)

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/generate", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body views.GenerateResponse
		decodeBody(t, recorder, &body)
		assert.Equal(t, "draft", body.Status)
		assert.Equal(t, 1, body.GeneratedFeatureCount)
	})

	t.Run("untyped files rejected", func(t *testing.T) {
		router, uc := newTestServer(t)
		session := seedSession(t, uc, []models.ImportedFile{
			polygonFile("rooms_1f", "unit", "green", intPtr(0)),
			polygonFile("bare_map", "", "red", nil),
		}, nil)
		setWizardProject(t, uc, session, "demo")

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/generate", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		var errBody views.ErrorResponse
		decodeBody(t, recorder, &errBody)
		assert.Equal(t, "Assign a feature type to every file before full generation: bare_map.", errBody.Detail)
	})

	t.Run("full generation", func(t *testing.T) {
		router, uc := newTestServer(t)
		rooms := polygonFile("rooms_1f", "unit", "green", intPtr(0))
		rooms.AttributeColumns = []string{"CODE", "NAME"}
		rowA := 0
		rowB := 1
		fc := &IMDF.FeatureCollection{Features: []*IMDF.Feature{
			{ID: "src-1", Type: IMDF.TypeSource, Geometry: squareAt(10, 50), Props: &IMDF.SourceProps{},
				Review: IMDF.Review{SourceFile: "rooms_1f", SourceRowIndex: &rowA,
					Metadata: map[string]interface{}{"CODE": "RETAIL", "NAME": "Shop A"}}},
			{ID: "src-2", Type: IMDF.TypeSource, Geometry: squareAt(10.002, 50), Props: &IMDF.SourceProps{},
				Review: IMDF.Review{SourceFile: "rooms_1f", SourceRowIndex: &rowB,
					Metadata: map[string]interface{}{"CODE": "RESTROOM", "NAME": "Restroom"}}},
		}}
		session := seedSession(t, uc, []models.ImportedFile{rooms}, fc)
		setWizardProject(t, uc, session, "demo")
		session.Wizard.Mappings.Unit.CodeColumn = strPtr("CODE")
		session.Wizard.Mappings.Unit.NameColumn = strPtr("NAME")
		require.NoError(t, uc.Sessions.SaveSession(session))

		recorder := doJSON(t, router, http.MethodPost, "/api/session/"+session.SessionID+"/generate", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body views.GenerateResponse
		decodeBody(t, recorder, &body)
		assert.Equal(t, "generated", body.Status)
		assert.Equal(t, "Full generation completed.", body.Message)
		// 地址+场馆+建筑+轮廓+楼层+两个单元
		assert.Equal(t, 7, body.GeneratedFeatureCount)
		require.NotNil(t, body.Validation)

		detail := doJSON(t, router, http.MethodGet, "/api/sessions/"+session.SessionID, nil)
		var record models.SessionRecord
		decodeBody(t, detail, &record)
		assert.Equal(t, "generated", record.Wizard.GenerationStatus)

		units := record.FeatureCollection.OfType(IMDF.TypeUnit)
		require.Len(t, units, 2)
		categories := map[string]bool{}
		for _, unit := range units {
			categories[unit.Props.(*IMDF.UnitProps).Category] = true
		}
		assert.True(t, categories["retail"])
		assert.True(t, categories["restroom"])
	})
}
