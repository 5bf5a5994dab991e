// services/task.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 任务状态枚举
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// WebSocket消息结构体
type ProgressMessage struct {
	Type       string `json:"type"`
	Percentage int    `json:"percentage,omitempty"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type ClientMessage struct {
	Action string `json:"action"`
}

// ImportTaskInfo 一次后台导入任务, 上传目录先落盘再由websocket驱动执行
type ImportTaskInfo struct {
	ID        string
	Status    TaskStatus
	UploadDir string
	SessionID string
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Error     string
	Context   context.Context
	Cancel    context.CancelFunc
	mutex     sync.RWMutex
}

// ImportTaskView 任务状态查询的返回体
type ImportTaskView struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	SessionID string     `json:"session_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// 更新任务状态
func (task *ImportTaskInfo) UpdateStatus(status TaskStatus) {
	task.mutex.Lock()
	defer task.mutex.Unlock()
	task.Status = status
	now := time.Now()

	switch status {
	case TaskStatusRunning:
		task.StartedAt = &now
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		task.EndedAt = &now
	}
}

func (task *ImportTaskInfo) SetError(message string) {
	task.mutex.Lock()
	defer task.mutex.Unlock()
	task.Error = message
}

func (task *ImportTaskInfo) SetSession(sessionID string) {
	task.mutex.Lock()
	defer task.mutex.Unlock()
	task.SessionID = sessionID
}

func (task *ImportTaskInfo) CurrentStatus() TaskStatus {
	task.mutex.RLock()
	defer task.mutex.RUnlock()
	return task.Status
}

// View 带锁快照, 状态查询接口用
func (task *ImportTaskInfo) View() ImportTaskView {
	task.mutex.RLock()
	defer task.mutex.RUnlock()
	return ImportTaskView{
		TaskID:    task.ID,
		Status:    task.Status,
		SessionID: task.SessionID,
		CreatedAt: task.CreatedAt,
		StartedAt: task.StartedAt,
		EndedAt:   task.EndedAt,
		Error:     task.Error,
	}
}

// 全局导入任务管理器
type ImportTaskManager struct {
	tasks map[string]*ImportTaskInfo
	mutex sync.RWMutex
}

func NewImportTaskManager() *ImportTaskManager {
	return &ImportTaskManager{tasks: make(map[string]*ImportTaskInfo)}
}

// NewTask 登记一个待执行的导入任务
func (tm *ImportTaskManager) NewTask(uploadDir string) *ImportTaskInfo {
	ctx, cancel := context.WithCancel(context.Background())
	task := &ImportTaskInfo{
		ID:        uuid.New().String(),
		Status:    TaskStatusPending,
		UploadDir: uploadDir,
		CreatedAt: time.Now(),
		Context:   ctx,
		Cancel:    cancel,
	}
	tm.AddTask(task)
	return task
}

// 添加任务
func (tm *ImportTaskManager) AddTask(task *ImportTaskInfo) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.tasks[task.ID] = task
}

// 获取任务
func (tm *ImportTaskManager) GetTask(taskID string) (*ImportTaskInfo, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	task, exists := tm.tasks[taskID]
	return task, exists
}

// 删除任务
func (tm *ImportTaskManager) RemoveTask(taskID string) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	if task, exists := tm.tasks[taskID]; exists {
		if task.Cancel != nil {
			task.Cancel()
		}
		delete(tm.tasks, taskID)
	}
}
