package Classifier

import (
	"testing"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeywords() map[string][]string {
	return map[string][]string{
		"unit":    {"room", "unit"},
		"opening": {"door"},
		"fixture": {"counter"},
		"level":   {"floor"},
	}
}

func TestDetectLevelOrdinal(t *testing.T) {
	cases := []struct {
		stem string
		want *int
	}{
		{"B1_walls", intPtr(-1)},
		{"B2", intPtr(-2)},
		{"parking_-2", intPtr(-2)},
		{"GF_units", intPtr(0)},
		{"G_hall", intPtr(0)},
		{"rooms_0", intPtr(0)},
		{"plan_1F", intPtr(0)},
		{"plan_2F", intPtr(1)},
		{"3_rooms", intPtr(2)},
		{"lobby", nil},
	}
	for _, tc := range cases {
		t.Run(tc.stem, func(t *testing.T) {
			got := DetectLevelOrdinal(tc.stem)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func TestDetectFeatureType(t *testing.T) {
	t.Run("keyword hit wins green", func(t *testing.T) {
		ft, conf := DetectFeatureType("ROOMS_1F", "Polygon", testKeywords())
		assert.Equal(t, "unit", ft)
		assert.Equal(t, "green", conf)
	})

	t.Run("longest keyword wins", func(t *testing.T) {
		keywords := map[string][]string{
			"unit":    {"room"},
			"fixture": {"roomdivider"},
		}
		ft, _ := DetectFeatureType("roomdivider_a", "Polygon", keywords)
		assert.Equal(t, "fixture", ft)
	})

	t.Run("geometry fallback", func(t *testing.T) {
		ft, conf := DetectFeatureType("misc", "Polygon", testKeywords())
		assert.Equal(t, "unit", ft)
		assert.Equal(t, "yellow", conf)

		ft, conf = DetectFeatureType("misc", "LineString", testKeywords())
		assert.Equal(t, "opening", ft)
		assert.Equal(t, "yellow", conf)

		ft, conf = DetectFeatureType("misc", "Point", testKeywords())
		assert.Equal(t, "", ft)
		assert.Equal(t, "red", conf)
	})
}

func TestMergeLearnedKeywords(t *testing.T) {
	base := map[string][]string{"unit": {"room"}}
	merged := MergeLearnedKeywords(base, map[string]string{
		"Tila":    "unit",
		"room":    "unit",
		"ignored": "nosuchtype",
	})

	assert.ElementsMatch(t, []string{"room", "tila"}, merged["unit"])
	// 原表不被修改
	assert.Equal(t, []string{"room"}, base["unit"])
}

func TestDetectFilesPreservesManualLevels(t *testing.T) {
	manual := 5
	files := []models.ImportedFile{
		{Stem: "B1_rooms", GeometryType: "Polygon", DetectedLevel: &manual},
		{Stem: "plan_2F", GeometryType: "Polygon"},
	}

	preserved := DetectFiles(files, testKeywords(), true)
	require.NotNil(t, preserved[0].DetectedLevel)
	assert.Equal(t, 5, *preserved[0].DetectedLevel)
	require.NotNil(t, preserved[1].DetectedLevel)
	assert.Equal(t, 1, *preserved[1].DetectedLevel)

	redetected := DetectFiles(files, testKeywords(), false)
	require.NotNil(t, redetected[0].DetectedLevel)
	assert.Equal(t, -1, *redetected[0].DetectedLevel)
}

func TestSyncFeatureTypes(t *testing.T) {
	unitType := "unit"
	files := []models.ImportedFile{
		{Stem: "rooms", DetectedType: &unitType},
		{Stem: "misc"},
	}
	fc := IMDF.NewFeatureCollection()
	fc.Features = append(fc.Features,
		&IMDF.Feature{ID: "f-1", Type: IMDF.TypeSource, Props: &IMDF.SourceProps{}, Review: IMDF.Review{SourceFile: "rooms"}},
		&IMDF.Feature{ID: "f-2", Type: IMDF.TypeUnit, Props: &IMDF.SourceProps{}, Review: IMDF.Review{SourceFile: "misc"}},
	)

	synced := SyncFeatureTypes(fc, files)
	assert.Equal(t, IMDF.TypeUnit, synced.Features[0].Type)
	assert.Equal(t, IMDF.TypeSource, synced.Features[1].Type)
	// 原集合不受影响
	assert.Equal(t, IMDF.TypeSource, fc.Features[0].Type)
}

func TestInferLearningSuggestion(t *testing.T) {
	opening := "opening"
	files := []models.ImportedFile{
		{Stem: "tila_rooms"},
		{Stem: "tila_123", DetectedType: &opening},
		{Stem: "corridor"},
	}

	suggestion := InferLearningSuggestion(files, "tila_rooms", "unit", testKeywords())
	require.NotNil(t, suggestion)
	assert.Equal(t, "tila", suggestion.Keyword)
	assert.Equal(t, "unit", suggestion.FeatureType)
	assert.Equal(t, []string{"tila_123"}, suggestion.AffectedStems)

	// 没有可波及文件时不给建议
	assert.Nil(t, InferLearningSuggestion(files, "corridor", "unit", testKeywords()))
}

func intPtr(v int) *int { return &v }
