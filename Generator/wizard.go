package Generator

import (
	"fmt"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/google/uuid"
)

// LevelFileTypes 参与楼层分配的文件类型
var LevelFileTypes = map[string]bool{
	"unit":    true,
	"opening": true,
	"fixture": true,
	"detail":  true,
}

const DefaultAddressMode = "same_as_venue"

// DefaultShortName 按楼层序号生成默认短名: 0层GF, 地上NF, 地下BN
func DefaultShortName(ordinal *int) *string {
	if ordinal == nil {
		return nil
	}
	var name string
	switch {
	case *ordinal == 0:
		name = "GF"
	case *ordinal > 0:
		name = fmt.Sprintf("%dF", *ordinal)
	default:
		name = fmt.Sprintf("B%d", -*ordinal)
	}
	return &name
}

// SeedWizardState 建筑分组与楼层表为空时按导入档案播种默认值
func SeedWizardState(session *models.SessionRecord) {
	if len(session.Wizard.Buildings) == 0 {
		stems := make([]string, 0, len(session.Files))
		for _, item := range session.Files {
			stems = append(stems, item.Stem)
		}
		session.Wizard.Buildings = []models.BuildingWizardState{
			{
				ID:          "building-1",
				AddressMode: DefaultAddressMode,
				FileStems:   stems,
			},
		}
	}

	if len(session.Wizard.Levels.Items) == 0 {
		var levelItems []models.LevelWizardItem
		for i := range session.Files {
			file := session.Files[i].Clone()
			detectedType := ""
			if file.DetectedType != nil {
				detectedType = strings.ToLower(*file.DetectedType)
			}
			if !LevelFileTypes[detectedType] {
				continue
			}
			shortName := file.ShortName
			if shortName == nil {
				shortName = DefaultShortName(file.DetectedLevel)
			}
			category := file.LevelCategory
			levelItems = append(levelItems, models.LevelWizardItem{
				Stem:         file.Stem,
				DetectedType: file.DetectedType,
				Ordinal:      file.DetectedLevel,
				Name:         file.LevelName,
				ShortName:    shortName,
				Outdoor:      file.Outdoor,
				Category:     &category,
			})
		}
		session.Wizard.Levels.Items = levelItems
	}
}

// BuildAddressFeature 地址要素, 街道地址留空时回落到场馆名
func BuildAddressFeature(address models.AddressInput, fallbackName string) *IMDF.Feature {
	line := strings.TrimSpace(address.Address)
	if line == "" {
		line = strings.TrimSpace(fallbackName)
	}
	return &IMDF.Feature{
		ID:   uuid.New().String(),
		Type: IMDF.TypeAddress,
		Props: &IMDF.AddressProps{
			Address:          line,
			Unit:             address.Unit,
			Locality:         address.Locality,
			Province:         address.Province,
			Country:          address.Country,
			PostalCode:       address.PostalCode,
			PostalCodeExt:    address.PostalCodeExt,
			PostalCodeVanity: address.PostalCodeVanity,
		},
		Review: IMDF.Review{
			Status: "mapped",
			Issues: []IMDF.Issue{},
			Draft:  true,
		},
	}
}

// BuildBuildingFeature 建筑要素, 名称缺省时借用场馆名
func BuildBuildingFeature(building models.BuildingWizardState, project *models.ProjectWizardState) *IMDF.Feature {
	language := "en"
	fallbackName := ""
	if project != nil {
		language = project.Language
		fallbackName = project.VenueName
	}
	buildingName := fallbackName
	if building.Name != nil && *building.Name != "" {
		buildingName = *building.Name
	}
	category := "unspecified"
	if building.Category != nil && *building.Category != "" {
		category = *building.Category
	}
	return &IMDF.Feature{
		ID:   uuid.New().String(),
		Type: IMDF.TypeBuilding,
		Props: &IMDF.BuildingProps{
			Name:        IMDF.WrapLabels(buildingName, language),
			AltName:     nil,
			Category:    category,
			Restriction: building.Restriction,
			AddressID:   building.AddressFeatureID,
		},
		Review: IMDF.Review{
			Status:           "mapped",
			Issues:           []IMDF.Issue{},
			Draft:            true,
			WizardBuildingID: building.ID,
		},
	}
}
