package Generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUnitCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit_categories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories": ["Retail", " restroom "], "default_category": "Unspecified"}`), 0o644))

	categories, defaultCategory, err := LoadUnitCategories(path)
	require.NoError(t, err)
	assert.Equal(t, "unspecified", defaultCategory)
	assert.True(t, categories["retail"])
	assert.True(t, categories["restroom"])
	assert.True(t, categories["unspecified"])

	_, _, err = LoadUnitCategories(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestResolveUnitCategory(t *testing.T) {
	valid := map[string]bool{"retail": true, "restroom": true, "unspecified": true}
	company := map[string]string{"WC": "restroom"}

	category, unresolved := ResolveUnitCategory("wc", company, valid, "unspecified")
	assert.Equal(t, "restroom", category)
	assert.False(t, unresolved)

	category, unresolved = ResolveUnitCategory("Retail", company, valid, "unspecified")
	assert.Equal(t, "retail", category)
	assert.False(t, unresolved)

	category, unresolved = ResolveUnitCategory("X99", company, valid, "unspecified")
	assert.Equal(t, "unspecified", category)
	assert.True(t, unresolved)

	category, unresolved = ResolveUnitCategory("", company, valid, "unspecified")
	assert.Equal(t, "unspecified", category)
	assert.True(t, unresolved)
}

func TestNormalizeCompanyMappingsPayload(t *testing.T) {
	valid := map[string]bool{"retail": true, "restroom": true, "unspecified": true}
	payload := map[string]interface{}{
		"default_category": "Retail",
		"mappings": map[string]interface{}{
			" wc ": "Restroom",
			"X1":   "bogus",
			"":     "retail",
			"SHOP": "RETAIL",
		},
	}

	mappings, defaultCategory := NormalizeCompanyMappingsPayload(payload, valid, "unspecified")
	assert.Equal(t, "retail", defaultCategory)
	assert.Equal(t, map[string]string{"WC": "restroom", "X1": "retail", "SHOP": "retail"}, mappings)
}

func TestNormalizeUnitCategoryOverrides(t *testing.T) {
	valid := map[string]bool{"retail": true, "restroom": true}
	overrides := map[string]string{
		"wc":      "Restroom",
		"(empty)": "retail",
		"X1":      "bogus",
		"  ":      "retail",
	}
	assert.Equal(t, map[string]string{"WC": "restroom"}, NormalizeUnitCategoryOverrides(overrides, valid))
}

func TestWrapAnyLabels(t *testing.T) {
	assert.Nil(t, WrapAnyLabels(nil, "en"))
	assert.Nil(t, WrapAnyLabels("   ", "en"))
	assert.Equal(t, IMDF.Labels{"en": "Lobby"}, WrapAnyLabels("Lobby", "en"))
	assert.Equal(t, IMDF.Labels{"ja": "ロビー"}, WrapAnyLabels(map[string]interface{}{"ja": "ロビー", "en": " "}, "en"))
}

func TestDetectCandidateColumns(t *testing.T) {
	unit := "unit"
	files := []models.ImportedFile{
		{Stem: "rooms_1f", DetectedType: &unit, AttributeColumns: []string{"NAME", "CODE"}},
		{Stem: "rooms_2f", DetectedType: &unit, AttributeColumns: []string{"CODE", "AREA"}},
		{Stem: "walls", AttributeColumns: []string{"WALL_TYPE"}},
	}
	assert.Equal(t, []string{"AREA", "CODE", "NAME"}, DetectCandidateColumns(files, "unit"))
	assert.Empty(t, DetectCandidateColumns(files, "opening"))
}

func TestPickPreferredColumn(t *testing.T) {
	candidates := []string{"SHOP_NAME", "CATEGORY", "NAME_EN"}

	assert.Equal(t, "CATEGORY", PickPreferredColumn(candidates, nil, []string{"CATEGORY"}, []string{"CAT"}))
	// 精确匹配不中时按包含计分, 同分取字典序靠前的列
	assert.Equal(t, "NAME_EN", PickPreferredColumn(candidates, nil, []string{"NAME"}, []string{"NAME"}))
	assert.Equal(t, "SHOP_NAME", PickPreferredColumn(candidates, map[string]bool{"NAME_EN": true}, []string{"NAME"}, []string{"NAME"}))
	assert.Equal(t, "", PickPreferredColumn(candidates, nil, []string{"DOOR"}, []string{"DOOR"}))
}

func TestSetDefaultMappingColumns(t *testing.T) {
	session := buildGeneratorSession()
	session.Wizard.Mappings = models.MappingsState{}
	SetDefaultMappingColumns(session)

	unitMapping := session.Wizard.Mappings.Unit
	require.NotNil(t, unitMapping.CodeColumn)
	assert.Equal(t, "CODE", *unitMapping.CodeColumn)
	require.NotNil(t, unitMapping.NameColumn)
	assert.Equal(t, "NAME", *unitMapping.NameColumn)
	assert.Nil(t, unitMapping.AltNameColumn)

	openingMapping := session.Wizard.Mappings.Opening
	require.NotNil(t, openingMapping.CategoryColumn)
	assert.Equal(t, "TYPE", *openingMapping.CategoryColumn)
	assert.Nil(t, openingMapping.DoorTypeColumn)
}

func TestBuildUnitCodePreview(t *testing.T) {
	session := buildGeneratorSession()
	valid := map[string]bool{"retail": true, "restroom": true, "unspecified": true}
	code := "CODE"

	preview := BuildUnitCodePreview(session.FeatureCollection, session.Files, &code, session.Wizard.CompanyMappings, valid, "unspecified")
	require.Len(t, preview, 2)
	assert.Equal(t, "RETAIL", preview[0].Code)
	assert.Equal(t, 2, preview[0].Count)
	assert.Equal(t, "retail", preview[0].ResolvedCategory)
	assert.False(t, preview[0].Unresolved)
	assert.Equal(t, "WC", preview[1].Code)
	assert.Equal(t, "restroom", preview[1].ResolvedCategory)

	assert.Empty(t, BuildUnitCodePreview(session.FeatureCollection, session.Files, nil, nil, valid, "unspecified"))
}

func TestRefreshUnitPreview(t *testing.T) {
	configPath := writeUnitCategoriesConfig(t)
	session := buildGeneratorSession()

	total, unresolved, err := RefreshUnitPreview(session, configPath)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, unresolved)
	assert.Equal(t, []string{"restroom", "retail", "unspecified", "walkway"}, session.Wizard.Mappings.Unit.AvailableCategories)
	require.Len(t, session.Wizard.Mappings.Unit.Preview, 2)
}
