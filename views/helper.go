package views

import (
	"errors"
	"net/http"

	"github.com/GrainArc/IndoorMap/Classifier"
	"github.com/GrainArc/IndoorMap/config"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/GrainArc/IndoorMap/services"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, detail string, code string) {
	c.JSON(status, ErrorResponse{Detail: detail, Code: code})
}

func respondNotFound(c *gin.Context, detail string) {
	respondError(c, http.StatusNotFound, detail, "SESSION_NOT_FOUND")
}

func respondBadRequest(c *gin.Context, detail string) {
	respondError(c, http.StatusBadRequest, detail, "BAD_REQUEST")
}

func respondValidationError(c *gin.Context, detail string) {
	respondError(c, http.StatusUnprocessableEntity, detail, "VALIDATION_ERROR")
}

func respondInternalError(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "Unexpected server error", "INTERNAL_ERROR")
}

// respondGeocodingError 地理编码错误带自己的状态码与错误码
func respondGeocodingError(c *gin.Context, err error) bool {
	var geocodingErr *services.GeocodingError
	if errors.As(err, &geocodingErr) {
		respondError(c, geocodingErr.StatusCode, geocodingErr.Detail, geocodingErr.Code)
		return true
	}
	return false
}

// fetchSession 取会话并刷新访问时间, 不存在时已写出404
func (uc *UserController) fetchSession(c *gin.Context) (*models.SessionRecord, bool) {
	sessionID := c.Param("session_id")
	session, err := uc.Sessions.GetSession(sessionID, true)
	if err != nil {
		respondInternalError(c)
		return nil, false
	}
	if session == nil {
		respondNotFound(c, "Session not found")
		return nil, false
	}
	return session, true
}

// mergedKeywordMap 配置关键词与会话学习关键词的合并表
func mergedKeywordMap(learned map[string]string) (map[string][]string, error) {
	base, err := Classifier.LoadKeywordMap(config.MainConfig.KeywordFile)
	if err != nil {
		return nil, err
	}
	return Classifier.MergeLearnedKeywords(base, learned), nil
}
