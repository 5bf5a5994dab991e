package views

import (
	"net/http"
	"sort"
	"strings"

	"github.com/GrainArc/IndoorMap/Generator"
	"github.com/GrainArc/IndoorMap/Validator"
	"github.com/GrainArc/IndoorMap/config"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/gin-gonic/gin"
)

const draftGenerationMessage = "Draft generation completed (address/building only). Full geometry generation is implemented in Phase 4."

// GenerateResponse 生成接口响应, 完整生成时附带校验结果
type GenerateResponse struct {
	SessionID             string                     `json:"session_id"`
	Status                string                     `json:"status"`
	GeneratedFeatureCount int                        `json:"generated_feature_count"`
	Message               string                     `json:"message"`
	Validation            *models.ValidationResponse `json:"validation,omitempty"`
}

// GenerateDraft 草稿生成, 只产出地址与建筑要素
func (uc *UserController) GenerateDraft(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	count := Generator.GenerateDraft(session)
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, GenerateResponse{
		SessionID:             session.SessionID,
		Status:                "draft",
		GeneratedFeatureCount: count,
		Message:               draftGenerationMessage,
	})
}

// Generate 完整生成: 层级推导+校验+标注, 项目信息未配置时退回草稿
func (uc *UserController) Generate(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	if session.Wizard.Project == nil {
		count := Generator.GenerateDraft(session)
		if err := uc.Sessions.SaveSession(session); err != nil {
			respondInternalError(c)
			return
		}
		c.JSON(http.StatusOK, GenerateResponse{
			SessionID:             session.SessionID,
			Status:                "draft",
			GeneratedFeatureCount: count,
			Message:               draftGenerationMessage,
		})
		return
	}

	var untyped []string
	for _, file := range session.Files {
		if file.DetectedType == nil || strings.TrimSpace(*file.DetectedType) == "" {
			untyped = append(untyped, file.Stem)
		}
	}
	if len(untyped) > 0 {
		sort.Strings(untyped)
		respondBadRequest(c, "Assign a feature type to every file before full generation: "+strings.Join(untyped, ", ")+".")
		return
	}

	generated, err := Generator.GenerateFeatureCollection(session, config.MainConfig.CategoryFile)
	if err != nil {
		respondInternalError(c)
		return
	}

	validation := Validator.ValidateFeatureCollection(generated)
	session.FeatureCollection = Validator.AnnotateFeatureCollection(generated, validation)
	session.Validation = validation
	session.Wizard.GenerationStatus = "generated"
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		SessionID:             session.SessionID,
		Status:                "generated",
		GeneratedFeatureCount: len(generated.Features),
		Message:               "Full generation completed.",
		Validation:            validation,
	})
}
