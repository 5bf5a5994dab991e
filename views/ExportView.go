package views

import (
	"net/http"
	"strings"

	"github.com/GrainArc/IndoorMap/Exporter"
	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/Validator"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/gin-gonic/gin"
)

type AutofixRequest struct {
	ApplyPrompted bool `json:"apply_prompted"`
}

type AutofixResponse struct {
	FixesApplied               []models.AutofixApplied    `json:"fixes_applied"`
	FixesRequiringConfirmation []models.AutofixPrompt     `json:"fixes_requiring_confirmation"`
	TotalFixed                 int                        `json:"total_fixed"`
	TotalRequiringConfirmation int                        `json:"total_requiring_confirmation"`
	Revalidation               *models.ValidationResponse `json:"revalidation"`
}

// ValidateSession 全量校验并把结果标注回工作要素集
func (uc *UserController) ValidateSession(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	validation := Validator.ValidateFeatureCollection(session.FeatureCollection)
	session.FeatureCollection = Validator.AnnotateFeatureCollection(session.FeatureCollection, validation)
	session.Validation = validation
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, validation)
}

// AutofixSession 自动修复后重新校验
func (uc *UserController) AutofixSession(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	payload := AutofixRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondValidationError(c, err.Error())
			return
		}
	}

	validation := session.Validation
	if validation == nil {
		validation = Validator.ValidateFeatureCollection(session.FeatureCollection)
	}
	updated, applied, prompts := Validator.ApplyAutofix(session.FeatureCollection, validation, payload.ApplyPrompted)
	session.FeatureCollection = updated

	revalidation := Validator.ValidateFeatureCollection(session.FeatureCollection)
	session.FeatureCollection = Validator.AnnotateFeatureCollection(session.FeatureCollection, revalidation)
	session.Validation = revalidation
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}

	if applied == nil {
		applied = []models.AutofixApplied{}
	}
	remaining := prompts
	if payload.ApplyPrompted || remaining == nil {
		remaining = []models.AutofixPrompt{}
	}
	c.JSON(http.StatusOK, AutofixResponse{
		FixesApplied:               applied,
		FixesRequiringConfirmation: remaining,
		TotalFixed:                 len(applied),
		TotalRequiringConfirmation: len(remaining),
		Revalidation:               revalidation,
	})
}

// ExportIMDF 校验通过才放行归档下载, 有error级问题一律拦截
func (uc *UserController) ExportIMDF(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	validation := Validator.ValidateFeatureCollection(session.FeatureCollection)
	session.FeatureCollection = Validator.AnnotateFeatureCollection(session.FeatureCollection, validation)
	session.Validation = validation
	if validation.Summary.ErrorCount > 0 {
		uc.Sessions.SaveSession(session)
		respondBadRequest(c, "Export blocked: unresolved validation errors remain.")
		return
	}

	payload, filename, err := Exporter.BuildExportArchive(session)
	if err != nil {
		respondInternalError(c)
		return
	}
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", payload)
}

// ExportTypeGeoJSON 单类型GeoJSON, 导出口径同归档文件
func (uc *UserController) ExportTypeGeoJSON(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	featureType := strings.ToLower(c.Param("feature_type"))
	known := false
	for _, item := range IMDF.TypeOrder {
		if string(item) == featureType {
			known = true
			break
		}
	}
	if !known {
		respondBadRequest(c, "Unknown feature type: "+featureType)
		return
	}

	features := []*IMDF.Feature{}
	if session.FeatureCollection != nil {
		for _, feature := range session.FeatureCollection.Features {
			if feature != nil && string(feature.Type) == featureType {
				features = append(features, Exporter.CleanExportFeature(feature))
			}
		}
	}
	c.JSON(http.StatusOK, &IMDF.FeatureCollection{Features: features})
}

// ExportShapefiles 单元图层回写shapefile打包下载
func (uc *UserController) ExportShapefiles(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	request := Exporter.DefaultShapefileExportRequest()
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			respondValidationError(c, err.Error())
			return
		}
	}

	archive, filename, err := Exporter.BuildShapefileExportArchive(session, request)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", archive)
}
