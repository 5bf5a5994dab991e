package views

import (
	"net/http"
	"time"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/gin-gonic/gin"
)

// SessionSummary 会话清单项, 不携带要素集
type SessionSummary struct {
	SessionID        string    `json:"session_id"`
	CreatedAt        time.Time `json:"created_at"`
	LastAccessed     time.Time `json:"last_accessed"`
	FileCount        int       `json:"file_count"`
	FeatureCount     int       `json:"feature_count"`
	WarningCount     int       `json:"warning_count"`
	GenerationStatus string    `json:"generation_status"`
}

func summarizeSession(record *models.SessionRecord) SessionSummary {
	featureCount := 0
	if record.FeatureCollection != nil {
		featureCount = len(record.FeatureCollection.Features)
	}
	return SessionSummary{
		SessionID:        record.SessionID,
		CreatedAt:        record.CreatedAt,
		LastAccessed:     record.LastAccessed,
		FileCount:        len(record.Files),
		FeatureCount:     featureCount,
		WarningCount:     len(record.Warnings),
		GenerationStatus: record.Wizard.GenerationStatus,
	}
}

// ListSessions 会话清单
func (uc *UserController) ListSessions(c *gin.Context) {
	records, err := uc.Sessions.ListSessions()
	if err != nil {
		respondInternalError(c)
		return
	}
	summaries := make([]SessionSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summarizeSession(record))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// CreateEmptySession 空会话, 供不走导入先建会话的前端流程
func (uc *UserController) CreateEmptySession(c *gin.Context) {
	session, err := uc.Sessions.CreateSession([]models.ImportedFile{}, models.CleanupSummary{}, IMDF.NewFeatureCollection(), nil, nil)
	if err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusCreated, summarizeSession(session))
}

// GetSessionDetail 会话全量状态
func (uc *UserController) GetSessionDetail(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session)
}

// DeleteSession 删除会话与上传产物
func (uc *UserController) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	session, err := uc.Sessions.GetSession(sessionID, false)
	if err != nil {
		respondInternalError(c)
		return
	}
	if session == nil {
		respondNotFound(c, "Session not found")
		return
	}
	if err := uc.Sessions.DeleteSession(sessionID); err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "deleted": true})
}

// Health 存活探针, 带会话数与运行时长
func (uc *UserController) Health(c *gin.Context) {
	count := 0
	if records, err := uc.Sessions.ListSessions(); err == nil {
		count = len(records)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"sessions":       count,
		"uptime_seconds": int(time.Since(uc.StartedAt).Seconds()),
	})
}
