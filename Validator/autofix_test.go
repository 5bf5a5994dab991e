package Validator

import (
	"testing"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/Transformer"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutofixRegeneratesInvalidAndDuplicateIDs(t *testing.T) {
	fc := validCollection()
	byID := fc.ByID()
	byID[unit1ID].ID = "unit-99"
	byID[unit2ID].ID = openingID
	validation := ValidateFeatureCollection(fc)

	updated, applied, prompts := ApplyAutofix(fc, validation, false)

	// 输入集合不被改动
	assert.NotNil(t, fc.ByID()["unit-99"])

	counts := map[string]int{}
	for _, row := range updated.Features {
		assert.True(t, looksLikeUUID(row.ID))
		counts[row.ID]++
	}
	for id, count := range counts {
		assert.Equal(t, 1, count, "id %s must be unique", id)
	}

	// 先出现的保住原id, 后出现的重复者换新
	assert.Equal(t, IMDF.TypeUnit, updated.ByID()[openingID].Type)

	regenerated := 0
	for _, fix := range applied {
		if fix.Action == "regenerate_uuid" {
			regenerated++
		}
	}
	assert.Equal(t, 2, regenerated)
	assert.Empty(t, prompts)
}

func TestAutofixRepairsInvalidGeometry(t *testing.T) {
	fc := validCollection()
	bowtie := orb.Polygon{orb.Ring{{10.0, 50.0}, {10.001, 50.001}, {10.001, 50.0}, {10.0, 50.001}, {10.0, 50.0}}}
	fc.ByID()[unit1ID].Geometry = bowtie
	validation := ValidateFeatureCollection(fc)
	require.NotEmpty(t, issuesOfCheck(validation.Errors, "invalid_geometry"))

	updated, applied, _ := ApplyAutofix(fc, validation, false)

	assert.True(t, Transformer.GeometryIsValid(updated.ByID()[unit1ID].Geometry))
	found := false
	for _, fix := range applied {
		if fix.Action == "make_valid" && fix.FeatureID == unit1ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAutofixRoundsExcessivePrecision(t *testing.T) {
	fc := validCollection()
	fc.ByID()[unit1ID].Geometry = rectPoly(10.123456789, 50.0, 10.124456789, 50.001)
	validation := ValidateFeatureCollection(fc)
	require.NotEmpty(t, issuesOfCheck(validation.Warnings, "excessive_precision"))

	updated, applied, _ := ApplyAutofix(fc, validation, false)

	found := false
	for _, fix := range applied {
		if fix.Action == "round_coordinates" && fix.FeatureID == unit1ID {
			found = true
		}
	}
	assert.True(t, found)

	revalidated := ValidateFeatureCollection(updated)
	assert.Empty(t, issuesOfCheck(revalidated.Warnings, "excessive_precision"))
}

func TestAutofixPromptsForDuplicates(t *testing.T) {
	fc := validCollection()
	fc.ByID()[unit2ID].Geometry = rectPoly(10.0, 50.0, 10.001, 50.001)
	validation := ValidateFeatureCollection(fc)

	updated, applied, prompts := ApplyAutofix(fc, validation, false)

	require.Len(t, prompts, 1)
	assert.Equal(t, unit1ID, prompts[0].FeatureID)
	assert.Equal(t, unit2ID, prompts[0].RelatedFeatureID)
	assert.Equal(t, "delete_duplicate", prompts[0].Action)
	// 未确认前不删除
	assert.Len(t, updated.Features, 8)
	assert.Empty(t, applied)
}

// 确认删除时保留字典序较小的id
func TestAutofixAppliesPromptedDeletes(t *testing.T) {
	fc := validCollection()
	fc.ByID()[unit2ID].Geometry = rectPoly(10.0, 50.0, 10.001, 50.001)
	validation := ValidateFeatureCollection(fc)

	updated, applied, _ := ApplyAutofix(fc, validation, true)

	assert.Len(t, updated.Features, 7)
	assert.Nil(t, updated.ByID()[unit2ID])
	assert.NotNil(t, updated.ByID()[unit1ID])

	deleted := 0
	for _, fix := range applied {
		if fix.Action == "delete_feature" {
			deleted++
			assert.Equal(t, unit2ID, fix.FeatureID)
		}
	}
	assert.Equal(t, 1, deleted)
}

func TestAutofixDeletesEmptyGeometryOnConfirm(t *testing.T) {
	fc := validCollection()
	fc.ByID()[unit1ID].Geometry = nil
	validation := ValidateFeatureCollection(fc)

	updated, _, prompts := ApplyAutofix(fc, validation, false)
	require.Len(t, prompts, 1)
	assert.Equal(t, "delete_empty", prompts[0].Action)
	assert.Equal(t, unit1ID, prompts[0].FeatureID)
	assert.Len(t, updated.Features, 8)

	confirmed, _, _ := ApplyAutofix(fc, validation, true)
	assert.Len(t, confirmed.Features, 7)
	assert.Nil(t, confirmed.ByID()[unit1ID])

	// 对已删除的id重复执行是无操作
	again, appliedAgain, _ := ApplyAutofix(confirmed, validation, true)
	assert.Len(t, again.Features, 7)
	assert.Empty(t, appliedAgain)
}
