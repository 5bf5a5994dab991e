package Validator

import (
	"fmt"
	"sort"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/Transformer"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/google/uuid"
)

// PromptedChecks 需要用户确认才执行的修复项
var PromptedChecks = map[string]bool{
	"duplicate_geometry_warning": true,
	"empty_geometry":             true,
}

// ApplyAutofix 在副本上执行安全修复, 返回修复清单与待确认项
// applyPrompted为true时连同确认项一并执行删除
func ApplyAutofix(fc *IMDF.FeatureCollection, validation *models.ValidationResponse, applyPrompted bool) (*IMDF.FeatureCollection, []models.AutofixApplied, []models.AutofixPrompt) {
	updated := fc.Clone()
	fixesApplied := []models.AutofixApplied{}
	prompts := []models.AutofixPrompt{}
	if updated == nil || validation == nil {
		return updated, fixesApplied, prompts
	}

	issues := make([]IMDF.Issue, 0, len(validation.Errors)+len(validation.Warnings))
	issues = append(issues, validation.Errors...)
	issues = append(issues, validation.Warnings...)

	// 先换掉非法与重复的UUID
	seen := make(map[string]bool)
	for _, row := range updated.Features {
		if row == nil {
			continue
		}
		if looksLikeUUID(row.ID) && !seen[row.ID] {
			seen[row.ID] = true
			continue
		}
		newID := uuid.New().String()
		for seen[newID] {
			newID = uuid.New().String()
		}
		seen[newID] = true
		row.ID = newID
		fixesApplied = append(fixesApplied, models.AutofixApplied{
			FeatureID:   newID,
			Check:       "duplicate_uuids",
			Action:      "regenerate_uuid",
			Description: "Regenerated duplicate/invalid UUID.",
		})
	}

	// UUID换新后重建索引, 指向旧id的问题自然落空
	byID := make(map[string]*IMDF.Feature)
	for _, row := range updated.Features {
		if row != nil && row.ID != "" {
			byID[row.ID] = row
		}
	}

	for _, issue := range issues {
		if issue.FeatureID == "" {
			continue
		}
		row := byID[issue.FeatureID]
		if row == nil {
			continue
		}
		if issue.Check == "invalid_geometry" && row.Geometry != nil {
			row.Geometry = Transformer.MakeValid(row.Geometry)
			fixesApplied = append(fixesApplied, models.AutofixApplied{
				FeatureID:   issue.FeatureID,
				Check:       issue.Check,
				Action:      "make_valid",
				Description: "Repaired invalid geometry using make_valid().",
			})
		}
		if issue.Check == "excessive_precision" && row.Geometry != nil {
			rounded, _ := methods.RoundGeometry(row.Geometry, 7)
			row.Geometry = rounded
			fixesApplied = append(fixesApplied, models.AutofixApplied{
				FeatureID:   issue.FeatureID,
				Check:       issue.Check,
				Action:      "round_coordinates",
				Description: "Rounded geometry coordinates to 7 decimals.",
			})
		}
	}

	duplicatePairs := make(map[[2]string]bool)
	emptyIDs := make(map[string]bool)
	for _, issue := range issues {
		if !PromptedChecks[issue.Check] {
			continue
		}
		if issue.Check == "duplicate_geometry_warning" && issue.FeatureID != "" && issue.RelatedFeatureID != "" {
			pair := [2]string{issue.FeatureID, issue.RelatedFeatureID}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			duplicatePairs[pair] = true
		}
		if issue.Check == "empty_geometry" && issue.FeatureID != "" {
			emptyIDs[issue.FeatureID] = true
		}
	}

	sortedPairs := make([][2]string, 0, len(duplicatePairs))
	for pair := range duplicatePairs {
		sortedPairs = append(sortedPairs, pair)
	}
	sort.Slice(sortedPairs, func(i, j int) bool {
		if sortedPairs[i][0] != sortedPairs[j][0] {
			return sortedPairs[i][0] < sortedPairs[j][0]
		}
		return sortedPairs[i][1] < sortedPairs[j][1]
	})
	for _, pair := range sortedPairs {
		prompts = append(prompts, models.AutofixPrompt{
			FeatureID:        pair[0],
			RelatedFeatureID: pair[1],
			Check:            "duplicate_geometry_warning",
			Action:           "delete_duplicate",
			Description:      fmt.Sprintf("Delete one duplicate geometry (%s).", shortID(pair[1])),
		})
	}
	sortedEmpty := make([]string, 0, len(emptyIDs))
	for fid := range emptyIDs {
		sortedEmpty = append(sortedEmpty, fid)
	}
	sort.Strings(sortedEmpty)
	for _, fid := range sortedEmpty {
		prompts = append(prompts, models.AutofixPrompt{
			FeatureID:   fid,
			Check:       "empty_geometry",
			Action:      "delete_empty",
			Description: "Delete feature with empty geometry.",
		})
	}

	if applyPrompted {
		toDelete := make(map[string]bool)
		for pair := range duplicatePairs {
			// 保留字典序较小的id, 删除行为可复现
			toDelete[pair[1]] = true
		}
		for fid := range emptyIDs {
			toDelete[fid] = true
		}
		if len(toDelete) > 0 {
			kept := make([]*IMDF.Feature, 0, len(updated.Features))
			for _, row := range updated.Features {
				if row == nil {
					continue
				}
				if row.ID != "" && toDelete[row.ID] {
					fixesApplied = append(fixesApplied, models.AutofixApplied{
						FeatureID:   row.ID,
						Check:       "prompted_delete",
						Action:      "delete_feature",
						Description: "Deleted feature after user confirmation.",
					})
					continue
				}
				kept = append(kept, row)
			}
			updated.Features = kept
		}
	}

	return updated, fixesApplied, prompts
}
