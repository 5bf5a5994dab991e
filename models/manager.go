package models

import (
	"os"
	"sort"
	"time"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/google/uuid"
)

// SessionManager 会话生命周期管理, TTL过期与容量淘汰
type SessionManager struct {
	Backend     SessionBackend
	TTL         time.Duration
	MaxSessions int
}

func NewSessionManager(backend SessionBackend, ttlHours int, maxSessions int) *SessionManager {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	if maxSessions <= 0 {
		maxSessions = 5
	}
	return &SessionManager{
		Backend:     backend,
		TTL:         time.Duration(ttlHours) * time.Hour,
		MaxSessions: maxSessions,
	}
}

// CreateSession 新建会话, 工作集与源要素集各存一份深拷贝
func (m *SessionManager) CreateSession(
	files []ImportedFile,
	cleanupSummary CleanupSummary,
	featureCollection *IMDF.FeatureCollection,
	warnings []string,
	learnedKeywords map[string]string,
) (*SessionRecord, error) {
	m.PruneExpired()
	if err := m.evictIfNeeded(); err != nil {
		return nil, err
	}

	if learnedKeywords == nil {
		learnedKeywords = map[string]string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	now := time.Now().UTC()
	record := &SessionRecord{
		SessionID:               uuid.New().String(),
		CreatedAt:               now,
		LastAccessed:            now,
		Files:                   files,
		CleanupSummary:          cleanupSummary,
		FeatureCollection:       featureCollection.Clone(),
		SourceFeatureCollection: featureCollection.Clone(),
		Warnings:                warnings,
		LearnedKeywords:         learnedKeywords,
		Wizard:                  NewWizardState(),
	}
	if err := m.Backend.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetSession touch为真时刷新最后访问时间
func (m *SessionManager) GetSession(sessionID string, touch bool) (*SessionRecord, error) {
	record, err := m.Backend.Get(sessionID)
	if err != nil || record == nil {
		return nil, err
	}
	if touch {
		record.LastAccessed = time.Now().UTC()
		if err := m.Backend.Save(record); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (m *SessionManager) SaveSession(record *SessionRecord) error {
	record.LastAccessed = time.Now().UTC()
	return m.Backend.Save(record)
}

// ListSessions 全部会话, 创建时间倒序
func (m *SessionManager) ListSessions() ([]*SessionRecord, error) {
	records, err := m.Backend.ListAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// DeleteSession 连同上传的源文件目录一并清理
func (m *SessionManager) DeleteSession(sessionID string) error {
	record, err := m.Backend.Get(sessionID)
	if err == nil && record != nil && record.UploadArtifactDir != "" {
		if err := methods.DeleteFiles(record.UploadArtifactDir); err == nil {
			os.Remove(record.UploadArtifactDir)
		}
	}
	return m.Backend.Delete(sessionID)
}

// PruneExpired 删除超过TTL未访问的会话, 返回清理数量
func (m *SessionManager) PruneExpired() int {
	records, err := m.Backend.ListAll()
	if err != nil {
		return 0
	}
	now := time.Now().UTC()
	count := 0
	for _, record := range records {
		if now.Sub(record.LastAccessed) >= m.TTL {
			if err := m.DeleteSession(record.SessionID); err == nil {
				count++
			}
		}
	}
	return count
}

// 容量到达上限时按最后访问时间淘汰最旧会话
func (m *SessionManager) evictIfNeeded() error {
	records, err := m.Backend.ListAll()
	if err != nil {
		return err
	}
	for len(records) >= m.MaxSessions {
		oldest := records[0]
		oldestIdx := 0
		for i, record := range records {
			if record.LastAccessed.Before(oldest.LastAccessed) {
				oldest = record
				oldestIdx = i
			}
		}
		if err := m.DeleteSession(oldest.SessionID); err != nil {
			return err
		}
		records = append(records[:oldestIdx], records[oldestIdx+1:]...)
	}
	return nil
}
