package Generator

import (
	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
)

// GenerateDraft 草稿生成: 只产出地址与建筑要素并替换上一轮草稿, 返回生成数
func GenerateDraft(session *models.SessionRecord) int {
	SeedWizardState(session)

	project := session.Wizard.Project
	if project != nil && session.Wizard.VenueAddressFeature == nil {
		session.Wizard.VenueAddressFeature = BuildAddressFeature(project.Address, project.VenueName)
	}

	var generated []*IMDF.Feature
	if session.Wizard.VenueAddressFeature != nil {
		generated = append(generated, session.Wizard.VenueAddressFeature)
	}
	generated = append(generated, session.Wizard.BuildingAddressFeatures...)
	for _, building := range session.Wizard.Buildings {
		generated = append(generated, BuildBuildingFeature(building, project))
	}

	var existing []*IMDF.Feature
	if session.FeatureCollection != nil {
		for _, feature := range session.FeatureCollection.Features {
			if feature.Review.Draft {
				continue
			}
			existing = append(existing, feature)
		}
	}

	session.FeatureCollection = &IMDF.FeatureCollection{Features: append(existing, generated...)}
	session.Wizard.GenerationStatus = "draft_ready"
	return len(generated)
}
