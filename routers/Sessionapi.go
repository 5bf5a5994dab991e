package routers

import (
	"github.com/GrainArc/IndoorMap/services"
	"github.com/GrainArc/IndoorMap/views"
	"github.com/gin-gonic/gin"
)

// ApiRouters 注册会话API路由
func ApiRouters(r *gin.Engine, uc *views.UserController) {
	artifactCtrl := services.NewArtifactController(uc.Storage)
	apiRouter := r.Group("/api")
	{
		apiRouter.GET("/health", uc.Health)
		apiRouter.POST("/import", uc.ImportSurvey)
	}
	{
		apiRouter.GET("/sessions", uc.ListSessions)
		apiRouter.POST("/sessions", uc.CreateEmptySession)
		apiRouter.GET("/sessions/:session_id", uc.GetSessionDetail)
		apiRouter.DELETE("/sessions/:session_id", uc.DeleteSession)
	}
	{
		apiRouter.GET("/geocode/search", uc.GeocodeSearch)
		apiRouter.GET("/geocode/reverse", uc.GeocodeReverse)
	}
	sessionRouter := r.Group("/api/session/:session_id")
	{
		sessionRouter.GET("/features", uc.GetFeatures)
		sessionRouter.PATCH("/features", uc.UpdateFeatures)
		sessionRouter.GET("/files", uc.GetFiles)
		sessionRouter.POST("/detect", uc.DetectAll)
		sessionRouter.PATCH("/files/:stem", uc.PatchFile)
		sessionRouter.GET("/artifacts", artifactCtrl.GetSessionArtifacts)
	}
	{
		sessionRouter.GET("/wizard", uc.GetWizardState)
		sessionRouter.GET("/wizard/address/suggest", uc.SuggestWizardAddress)
		sessionRouter.PATCH("/wizard/project", uc.PatchWizardProject)
		sessionRouter.PATCH("/wizard/levels", uc.PatchWizardLevels)
		sessionRouter.PATCH("/wizard/buildings", uc.PatchWizardBuildings)
		sessionRouter.PATCH("/wizard/mappings", uc.PatchWizardMappings)
		sessionRouter.PATCH("/wizard/footprint", uc.PatchWizardFootprint)
		sessionRouter.POST("/config/company-mappings", uc.UploadCompanyMappings)
	}
	{
		sessionRouter.POST("/generate", uc.Generate)
		sessionRouter.POST("/generate/draft", uc.GenerateDraft)
		sessionRouter.POST("/validate", uc.ValidateSession)
		sessionRouter.POST("/autofix", uc.AutofixSession)
	}
	{
		sessionRouter.GET("/export", uc.ExportIMDF)
		sessionRouter.GET("/export/geojson/:feature_type", uc.ExportTypeGeoJSON)
		sessionRouter.POST("/export/shapefiles", uc.ExportShapefiles)
	}
}
