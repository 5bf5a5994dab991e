package views

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/GrainArc/IndoorMap/Classifier"
	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/gin-gonic/gin"
)

// DetectResponse 重识别完成响应
type DetectResponse struct {
	SessionID string                `json:"session_id"`
	Files     []models.ImportedFile `json:"files"`
}

// UpdateFileRequest 图层档案修改, 指针字段区分"未提交"与"显式置空"
type UpdateFileRequest struct {
	DetectedType    *string `json:"detected_type"`
	DetectedLevel   *int    `json:"detected_level"`
	LevelName       *string `json:"level_name"`
	ShortName       *string `json:"short_name"`
	Outdoor         *bool   `json:"outdoor"`
	LevelCategory   *string `json:"level_category"`
	ApplyLearning   bool    `json:"apply_learning"`
	LearningKeyword *string `json:"learning_keyword"`
}

type UpdateFileResponse struct {
	SessionID          string                         `json:"session_id"`
	File               models.ImportedFile            `json:"file"`
	Files              []models.ImportedFile          `json:"files"`
	LearningSuggestion *Classifier.LearningSuggestion `json:"learning_suggestion"`
}

type FeatureUpdateItem struct {
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
}

type BulkFeatureUpdateRequest struct {
	Updates   []FeatureUpdateItem `json:"updates"`
	DeleteIDs []string            `json:"delete_ids"`
}

type BulkFeatureUpdateResponse struct {
	SessionID    string `json:"session_id"`
	UpdatedCount int    `json:"updated_count"`
	DeletedCount int    `json:"deleted_count"`
}

// GetFeatures 工作要素集
func (uc *UserController) GetFeatures(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	featureCollection := session.FeatureCollection
	if featureCollection == nil {
		featureCollection = IMDF.NewFeatureCollection()
	}
	c.JSON(http.StatusOK, featureCollection)
}

// GetFiles 图层档案列表
func (uc *UserController) GetFiles(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.SessionID, "files": session.Files})
}

// DetectAll 全量重识别, 保留手工指定的楼层
func (uc *UserController) DetectAll(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}

	keywords, err := mergedKeywordMap(session.LearnedKeywords)
	if err != nil {
		respondInternalError(c)
		return
	}
	session.Files = Classifier.DetectFiles(session.Files, keywords, true)
	session.FeatureCollection = Classifier.SyncFeatureTypes(session.FeatureCollection, session.Files)
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusOK, DetectResponse{SessionID: session.SessionID, Files: session.Files})
}

// PatchFile 按stem修改单个图层档案, 可附带关键词学习
func (uc *UserController) PatchFile(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	stem := c.Param("stem")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	var payload UpdateFileRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	has := func(key string) bool {
		_, present := fields[key]
		return present
	}

	fileIndex := -1
	for i := range session.Files {
		if session.Files[i].Stem == stem {
			fileIndex = i
			break
		}
	}
	if fileIndex == -1 {
		respondNotFound(c, "File stem not found")
		return
	}

	current := session.Files[fileIndex].Clone()
	updated := session.Files[fileIndex].Clone()

	if has("detected_type") {
		updated.DetectedType = payload.DetectedType
		if payload.DetectedType != nil && *payload.DetectedType != "" {
			updated.Confidence = "green"
		}
	}
	if has("detected_level") {
		updated.DetectedLevel = payload.DetectedLevel
	}
	if has("level_name") {
		updated.LevelName = payload.LevelName
	}
	if has("short_name") {
		updated.ShortName = payload.ShortName
	}
	if has("outdoor") && payload.Outdoor != nil {
		updated.Outdoor = *payload.Outdoor
	}
	if has("level_category") {
		if payload.LevelCategory != nil && *payload.LevelCategory != "" {
			updated.LevelCategory = *payload.LevelCategory
		} else {
			updated.LevelCategory = "unspecified"
		}
	}

	session.Files[fileIndex] = updated
	var suggestion *Classifier.LearningSuggestion

	if payload.ApplyLearning {
		keyword := ""
		if payload.LearningKeyword != nil {
			keyword = strings.ToLower(strings.TrimSpace(*payload.LearningKeyword))
		}
		featureType := ""
		if payload.DetectedType != nil && *payload.DetectedType != "" {
			featureType = *payload.DetectedType
		} else if updated.DetectedType != nil {
			featureType = *updated.DetectedType
		}
		featureType = strings.ToLower(strings.TrimSpace(featureType))
		if keyword == "" {
			respondBadRequest(c, "learning_keyword is required when apply_learning=true")
			return
		}
		if featureType == "" {
			respondBadRequest(c, "detected_type is required when apply_learning=true")
			return
		}
		if session.LearnedKeywords == nil {
			session.LearnedKeywords = map[string]string{}
		}
		session.LearnedKeywords[keyword] = featureType
		merged, err := mergedKeywordMap(session.LearnedKeywords)
		if err != nil {
			respondInternalError(c)
			return
		}
		session.Files = Classifier.DetectFiles(session.Files, merged, true)
	} else if payload.DetectedType != nil && *payload.DetectedType != "" &&
		(current.DetectedType == nil || *current.DetectedType != *payload.DetectedType) {
		merged, err := mergedKeywordMap(session.LearnedKeywords)
		if err != nil {
			respondInternalError(c)
			return
		}
		suggestion = Classifier.InferLearningSuggestion(session.Files, stem, *payload.DetectedType, merged)
	}

	session.FeatureCollection = Classifier.SyncFeatureTypes(session.FeatureCollection, session.Files)
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}

	finalFile := updated
	if item := session.FileByStem(stem); item != nil {
		finalFile = *item
	}
	c.JSON(http.StatusOK, UpdateFileResponse{
		SessionID:          session.SessionID,
		File:               finalFile,
		Files:              session.Files,
		LearningSuggestion: suggestion,
	})
}

// mergeFeatureProperties 属性合并走一遍编解码, 保持强类型props一致
func mergeFeatureProperties(feature *IMDF.Feature, updates map[string]interface{}) (*IMDF.Feature, error) {
	raw, err := json.Marshal(feature)
	if err != nil {
		return nil, err
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	props, _ := wire["properties"].(map[string]interface{})
	if props == nil {
		props = map[string]interface{}{}
	}
	for key, value := range updates {
		if value == nil {
			delete(props, key)
			continue
		}
		props[key] = value
	}
	wire["properties"] = props

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	var out IMDF.Feature
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFeatures 批量改属性与删除, 未知id跳过
func (uc *UserController) UpdateFeatures(c *gin.Context) {
	session, ok := uc.fetchSession(c)
	if !ok {
		return
	}
	var payload BulkFeatureUpdateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	deleteSet := make(map[string]bool, len(payload.DeleteIDs))
	for _, id := range payload.DeleteIDs {
		deleteSet[id] = true
	}
	updatesByID := make(map[string]map[string]interface{}, len(payload.Updates))
	for _, item := range payload.Updates {
		if item.ID != "" {
			updatesByID[item.ID] = item.Properties
		}
	}

	updatedCount := 0
	deletedCount := 0
	var kept []*IMDF.Feature
	if session.FeatureCollection != nil {
		for _, feature := range session.FeatureCollection.Features {
			if feature == nil {
				continue
			}
			if deleteSet[feature.ID] {
				deletedCount++
				continue
			}
			if props, wanted := updatesByID[feature.ID]; wanted {
				if merged, err := mergeFeatureProperties(feature, props); err == nil {
					feature = merged
					updatedCount++
				}
			}
			kept = append(kept, feature)
		}
	}
	session.FeatureCollection = &IMDF.FeatureCollection{Features: kept}
	if err := uc.Sessions.SaveSession(session); err != nil {
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusOK, BulkFeatureUpdateResponse{
		SessionID:    session.SessionID,
		UpdatedCount: updatedCount,
		DeletedCount: deletedCount,
	})
}
