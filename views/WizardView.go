package views

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/GrainArc/IndoorMap/Generator"
	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/config"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
)

type WizardStateResponse struct {
	SessionID string             `json:"session_id"`
	Wizard    models.WizardState `json:"wizard"`
}

type ProjectWizardResponse struct {
	SessionID      string             `json:"session_id"`
	Wizard         models.WizardState `json:"wizard"`
	AddressFeature *IMDF.Feature      `json:"address_feature"`
}

type LevelsWizardRequest struct {
	Items []models.LevelWizardItem `json:"items"`
}

type BuildingsWizardRequest struct {
	Buildings []models.BuildingWizardState `json:"buildings"`
}

type BuildingsWizardResponse struct {
	SessionID       string             `json:"session_id"`
	Wizard          models.WizardState `json:"wizard"`
	AddressFeatures []*IMDF.Feature    `json:"address_features"`
}

// MappingsWizardRequest 列映射修改, nil段保持原样
type MappingsWizardRequest struct {
	Unit                  *models.UnitMappingState    `json:"unit"`
	Opening               *models.OpeningMappingState `json:"opening"`
	Fixture               *models.FixtureMappingState `json:"fixture"`
	DetailConfirmed       *bool                       `json:"detail_confirmed"`
	UnitCategoryOverrides map[string]string           `json:"unit_category_overrides"`
}

type CompanyMappingsUploadResponse struct {
	SessionID       string                      `json:"session_id"`
	DefaultCategory string                      `json:"default_category"`
	MappingsCount   int                         `json:"mappings_count"`
	Preview         []models.UnitCodePreviewRow `json:"preview"`
	UnresolvedCount int                         `json:"unresolved_count"`
}

// GetWizardState 读向导状态, 顺带补默认列映射并刷新单元预览
func (uc *UserController) GetWizardState(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	Generator.SeedWizardState(session)
	Generator.SetDefaultMappingColumns(session)
	if _, _, err := Generator.RefreshUnitPreview(session, config.MainConfig.CategoryFile); err != nil {
		respondInternalError(c)
		return
	}
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, WizardStateResponse{SessionID: session.SessionID, Wizard: session.Wizard})
}

// PatchWizardProject 场馆项目信息
func (uc *UserController) PatchWizardProject(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	var payload models.ProjectWizardState
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	Generator.SeedWizardState(session)

	if strings.TrimSpace(payload.VenueName) == "" {
		respondBadRequest(c, "venue_name is required")
		return
	}
	if strings.TrimSpace(payload.VenueCategory) == "" {
		respondBadRequest(c, "venue_category is required")
		return
	}
	if strings.TrimSpace(payload.Address.Locality) == "" {
		respondBadRequest(c, "address.locality is required")
		return
	}
	if strings.TrimSpace(payload.Address.Country) == "" {
		respondBadRequest(c, "address.country is required")
		return
	}

	project := payload
	session.Wizard.Project = &project
	session.Wizard.VenueAddressFeature = Generator.BuildAddressFeature(payload.Address, payload.VenueName)
	if strings.TrimSpace(payload.Address.Address) == "" {
		session.Wizard.Warnings = []string{
			"Venue street address is blank; venue name will be used as the address line.",
		}
	} else {
		session.Wizard.Warnings = []string{}
	}
	session.Wizard.GenerationStatus = "not_started"

	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, ProjectWizardResponse{
		SessionID:      session.SessionID,
		Wizard:         session.Wizard,
		AddressFeature: session.Wizard.VenueAddressFeature,
	})
}

// PatchWizardLevels 楼层分配, 同步回写图层档案
func (uc *UserController) PatchWizardLevels(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	var payload LevelsWizardRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	Generator.SeedWizardState(session)

	items := payload.Items
	if items == nil {
		items = []models.LevelWizardItem{}
	}
	session.Wizard.Levels.Items = items

	byStem := make(map[string]models.LevelWizardItem, len(items))
	for _, item := range items {
		byStem[item.Stem] = item
	}
	for i := range session.Files {
		item, assigned := byStem[session.Files[i].Stem]
		if !assigned {
			continue
		}
		updated := session.Files[i].Clone()
		if item.Ordinal != nil {
			ordinal := *item.Ordinal
			updated.DetectedLevel = &ordinal
		}
		if item.Name != nil {
			name := *item.Name
			updated.LevelName = &name
		}
		if item.ShortName != nil {
			shortName := *item.ShortName
			updated.ShortName = &shortName
		}
		updated.Outdoor = item.Outdoor
		if item.Category != nil && *item.Category != "" {
			updated.LevelCategory = *item.Category
		} else {
			updated.LevelCategory = "unspecified"
		}
		session.Files[i] = updated
	}
	session.Wizard.GenerationStatus = "not_started"

	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, WizardStateResponse{SessionID: session.SessionID, Wizard: session.Wizard})
}

// PatchWizardBuildings 建筑分组, independent地址即时生成地址要素
func (uc *UserController) PatchWizardBuildings(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	var payload BuildingsWizardRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	Generator.SeedWizardState(session)

	seen := make(map[string]int, len(payload.Buildings))
	for _, building := range payload.Buildings {
		seen[building.ID]++
	}
	var duplicates []string
	for id, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, id)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		respondBadRequest(c, "Duplicate building ids are not allowed: "+strings.Join(duplicates, ", "))
		return
	}

	venueName := ""
	if session.Wizard.Project != nil {
		venueName = session.Wizard.Project.VenueName
	}
	buildingRows := make([]models.BuildingWizardState, 0, len(payload.Buildings))
	addressFeatures := []*IMDF.Feature{}
	for _, building := range payload.Buildings {
		updated := building
		if updated.AddressMode == "different_address" {
			if updated.Address == nil {
				respondBadRequest(c, fmt.Sprintf("Building '%s' requires an address when address_mode=different_address", updated.ID))
				return
			}
			fallback := venueName
			if updated.Name != nil && *updated.Name != "" {
				fallback = *updated.Name
			}
			feature := Generator.BuildAddressFeature(*updated.Address, fallback)
			featureID := feature.ID
			updated.AddressFeatureID = &featureID
			addressFeatures = append(addressFeatures, feature)
		} else {
			updated.Address = nil
			updated.AddressFeatureID = nil
		}
		buildingRows = append(buildingRows, updated)
	}

	session.Wizard.Buildings = buildingRows
	session.Wizard.BuildingAddressFeatures = addressFeatures
	session.Wizard.GenerationStatus = "not_started"

	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, BuildingsWizardResponse{
		SessionID:       session.SessionID,
		Wizard:          session.Wizard,
		AddressFeatures: addressFeatures,
	})
}

// PatchWizardMappings 列映射与单元类别覆盖
func (uc *UserController) PatchWizardMappings(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	var payload MappingsWizardRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	Generator.SeedWizardState(session)

	if payload.Unit != nil {
		session.Wizard.Mappings.Unit = *payload.Unit
	}
	if payload.Opening != nil {
		session.Wizard.Mappings.Opening = *payload.Opening
	}
	if payload.Fixture != nil {
		session.Wizard.Mappings.Fixture = *payload.Fixture
	}
	if payload.DetailConfirmed != nil {
		session.Wizard.Mappings.DetailConfirmed = *payload.DetailConfirmed
	}
	if len(payload.UnitCategoryOverrides) > 0 {
		validCategories, _, err := Generator.LoadUnitCategories(config.MainConfig.CategoryFile)
		if err != nil {
			respondInternalError(c)
			return
		}
		overrides := Generator.NormalizeUnitCategoryOverrides(payload.UnitCategoryOverrides, validCategories)
		if session.Wizard.CompanyMappings == nil {
			session.Wizard.CompanyMappings = map[string]string{}
		}
		for code, category := range overrides {
			session.Wizard.CompanyMappings[code] = category
		}
	}

	if _, _, err := Generator.RefreshUnitPreview(session, config.MainConfig.CategoryFile); err != nil {
		respondInternalError(c)
		return
	}
	session.Wizard.GenerationStatus = "not_started"

	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, WizardStateResponse{SessionID: session.SessionID, Wizard: session.Wizard})
}

// PatchWizardFootprint 轮廓缓冲参数
func (uc *UserController) PatchWizardFootprint(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	var payload models.FootprintWizardState
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	Generator.SeedWizardState(session)

	session.Wizard.Footprint = payload
	session.Wizard.GenerationStatus = "not_started"

	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, WizardStateResponse{SessionID: session.SessionID, Wizard: session.Wizard})
}

// UploadCompanyMappings 公司编码映射表上传, 整表替换
func (uc *UserController) UploadCompanyMappings(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	Generator.SeedWizardState(session)

	file, err := c.FormFile("file")
	if err != nil {
		respondValidationError(c, "file is required")
		return
	}
	reader, err := file.Open()
	if err != nil {
		respondInternalError(c)
		return
	}
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	if err != nil {
		respondInternalError(c)
		return
	}
	if len(raw) == 0 {
		respondBadRequest(c, "Uploaded company mappings file is empty")
		return
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		respondBadRequest(c, "Invalid JSON in company mappings upload: "+err.Error())
		return
	}

	validCategories, fallbackDefault, err := Generator.LoadUnitCategories(config.MainConfig.CategoryFile)
	if err != nil {
		respondInternalError(c)
		return
	}
	mappings, defaultCategory := Generator.NormalizeCompanyMappingsPayload(payload, validCategories, fallbackDefault)
	session.Wizard.CompanyMappings = mappings
	session.Wizard.CompanyDefaultCategory = defaultCategory
	_, unresolvedCount, err := Generator.RefreshUnitPreview(session, config.MainConfig.CategoryFile)
	if err != nil {
		respondInternalError(c)
		return
	}
	session.Wizard.GenerationStatus = "not_started"

	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, CompanyMappingsUploadResponse{
		SessionID:       session.SessionID,
		DefaultCategory: defaultCategory,
		MappingsCount:   len(mappings),
		Preview:         session.Wizard.Mappings.Unit.Preview,
		UnresolvedCount: unresolvedCount,
	})
}

// sessionCentroid 源要素外包框中心, 没有可用几何时第二个返回值为false
func sessionCentroid(session *models.SessionRecord) (orb.Point, bool) {
	collection := session.SourceFeatureCollection
	if collection == nil {
		collection = session.FeatureCollection
	}
	if collection == nil {
		return orb.Point{}, false
	}
	var bound orb.Bound
	found := false
	for _, feature := range collection.Features {
		if feature == nil || feature.Geometry == nil || methods.GeomIsEmpty(feature.Geometry) {
			continue
		}
		if !found {
			bound = feature.Geometry.Bound()
			found = true
		} else {
			bound = bound.Union(feature.Geometry.Bound())
		}
	}
	if !found {
		return orb.Point{}, false
	}
	return bound.Center(), true
}

// SuggestWizardAddress 以测区质心反查地址, 用于预填项目地址表单
// 反查失败不报错, 前端拿到空match继续人工填写
func (uc *UserController) SuggestWizardAddress(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	if uc.Geocoder == nil {
		respondError(c, http.StatusServiceUnavailable, "Geocoding is disabled.", "GEOCODER_DISABLED")
		return
	}

	centroid, found := sessionCentroid(session)
	if !found {
		c.JSON(http.StatusOK, gin.H{"session_id": session.SessionID, "match": nil})
		return
	}
	language := "en"
	if session.Wizard.Project != nil && strings.TrimSpace(session.Wizard.Project.Language) != "" {
		language = session.Wizard.Project.Language
	}
	match, err := uc.Geocoder.ReverseGeocode(c.Request.Context(), centroid[0], centroid[1], language)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"session_id": session.SessionID, "match": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.SessionID, "match": match})
}
