package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionBackend 会话存储后端, 查不到时返回nil而非错误
type SessionBackend interface {
	Save(session *SessionRecord) error
	Get(sessionID string) (*SessionRecord, error)
	Delete(sessionID string) error
	ListAll() ([]*SessionRecord, error)
}

type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*SessionRecord
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*SessionRecord)}
}

func (b *MemoryBackend) Save(session *SessionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[session.SessionID] = session
	return nil
}

func (b *MemoryBackend) Get(sessionID string) (*SessionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessions[sessionID], nil
}

func (b *MemoryBackend) Delete(sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
	return nil
}

func (b *MemoryBackend) ListAll() ([]*SessionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*SessionRecord, 0, len(b.sessions))
	for _, s := range b.sessions {
		out = append(out, s)
	}
	return out, nil
}

// FileSystemBackend 每个会话落盘为 {session_id}.json
type FileSystemBackend struct {
	Dir string
}

func NewFileSystemBackend(dir string) (*FileSystemBackend, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("创建会话目录失败: %w", err)
	}
	return &FileSystemBackend{Dir: dir}, nil
}

func (b *FileSystemBackend) path(sessionID string) string {
	return filepath.Join(b.Dir, sessionID+".json")
}

func (b *FileSystemBackend) Save(session *SessionRecord) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path(session.SessionID), data, 0644)
}

func (b *FileSystemBackend) Get(sessionID string) (*SessionRecord, error) {
	data, err := os.ReadFile(b.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var session SessionRecord
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (b *FileSystemBackend) Delete(sessionID string) error {
	err := os.Remove(b.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *FileSystemBackend) ListAll() ([]*SessionRecord, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return nil, err
	}
	var out []*SessionRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		session, err := b.Get(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil || session == nil {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

// SessionRow 数据库后端的会话行, 全量状态存jsonb
type SessionRow struct {
	SessionID    string         `gorm:"primaryKey;type:varchar(64)"`
	LastAccessed time.Time      `gorm:"index"`
	Payload      datatypes.JSON `gorm:"type:jsonb"`
}

type DatabaseBackend struct {
	db *gorm.DB
}

func NewDatabaseBackend(db *gorm.DB) (*DatabaseBackend, error) {
	if db == nil {
		return nil, errors.New("database backend requires an initialized database")
	}
	if err := db.AutoMigrate(&SessionRow{}); err != nil {
		return nil, err
	}
	return &DatabaseBackend{db: db}, nil
}

func (b *DatabaseBackend) Save(session *SessionRecord) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	row := SessionRow{
		SessionID:    session.SessionID,
		LastAccessed: session.LastAccessed,
		Payload:      payload,
	}
	return b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (b *DatabaseBackend) Get(sessionID string) (*SessionRecord, error) {
	var row SessionRow
	result := b.db.Where("session_id = ?", sessionID).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	var session SessionRecord
	if err := json.Unmarshal(row.Payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (b *DatabaseBackend) Delete(sessionID string) error {
	return b.db.Where("session_id = ?", sessionID).Delete(&SessionRow{}).Error
}

func (b *DatabaseBackend) ListAll() ([]*SessionRecord, error) {
	var rows []SessionRow
	if err := b.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*SessionRecord, 0, len(rows))
	for _, row := range rows {
		var session SessionRecord
		if err := json.Unmarshal(row.Payload, &session); err != nil {
			continue
		}
		s := session
		out = append(out, &s)
	}
	return out, nil
}

// BuildSessionBackend 按配置选择后端, 未知名称回退内存
func BuildSessionBackend(backendName string, sessionDataDir string) SessionBackend {
	switch strings.ToLower(strings.TrimSpace(backendName)) {
	case "filesystem":
		backend, err := NewFileSystemBackend(sessionDataDir)
		if err != nil {
			fmt.Println("文件会话后端初始化失败, 回退内存:", err)
			return NewMemoryBackend()
		}
		return backend
	case "database":
		backend, err := NewDatabaseBackend(DB)
		if err != nil {
			fmt.Println("数据库会话后端初始化失败, 回退内存:", err)
			return NewMemoryBackend()
		}
		return backend
	default:
		return NewMemoryBackend()
	}
}
