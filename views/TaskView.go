package views

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/GrainArc/IndoorMap/Transformer"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/GrainArc/IndoorMap/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// CreateImportTask 创建后台导入任务, 上传文件同步收取, 导入在WebSocket连接后执行
func (uc *UserController) CreateImportTask(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondBadRequest(c, "No files were uploaded.")
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		respondBadRequest(c, "No files were uploaded.")
		return
	}

	dir, err := uc.stageUploads(c, uploads)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	task := uc.Tasks.NewTask(dir)
	c.JSON(http.StatusOK, gin.H{
		"task_id": task.ID,
		"status":  task.CurrentStatus(),
		"message": "Import task created; connect to the WebSocket to start execution",
		"ws_url":  fmt.Sprintf("/api/import/tasks/ws/%s", task.ID),
	})
}

// GetImportTaskStatus 查询导入任务状态
func (uc *UserController) GetImportTaskStatus(c *gin.Context) {
	task, exists := uc.Tasks.GetTask(c.Param("taskId"))
	if !exists {
		respondError(c, http.StatusNotFound, "Task not found", "TASK_NOT_FOUND")
		return
	}
	c.JSON(http.StatusOK, task.View())
}

// ImportTaskWebSocket 连接后开始执行导入并推送进度, 支持客户端取消
func (uc *UserController) ImportTaskWebSocket(c *gin.Context) {
	taskID := c.Param("taskId")

	task, exists := uc.Tasks.GetTask(taskID)
	if !exists {
		respondError(c, http.StatusNotFound, "Task not found", "TASK_NOT_FOUND")
		return
	}
	if task.CurrentStatus() != services.TaskStatusPending {
		respondError(c, http.StatusBadRequest, "Task already started or finished", "TASK_ALREADY_STARTED")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "WebSocket upgrade failed", "INTERNAL_ERROR")
		return
	}
	defer ws.Close()

	task.UpdateStatus(services.TaskStatusRunning)

	cancelChan := make(chan bool, 1)

	// 监听客户端取消消息
	go func() {
		for {
			var msg services.ClientMessage
			if err := ws.ReadJSON(&msg); err != nil {
				cancelChan <- true
				return
			}
			if msg.Action == "cancel" {
				cancelChan <- true
				task.Cancel()
				return
			}
		}
	}()

	progress := func(percentage int, message string) {
		select {
		case <-task.Context.Done():
			return
		default:
		}
		ws.WriteJSON(services.ProgressMessage{
			Type:       "progress",
			Percentage: percentage,
			Message:    message,
			Timestamp:  time.Now().UnixMilli(),
		})
	}

	startTime := time.Now()
	resultChan := make(chan *models.SessionRecord, 1)
	errorChan := make(chan error, 1)

	go func() {
		progress(10, "Reading uploaded layers")
		artifacts, err := Transformer.ImportSurveyDirectory(task.UploadDir)
		if err != nil {
			errorChan <- err
			return
		}
		progress(55, "Classifying layers")
		session, err := uc.finalizeImport(task.UploadDir, artifacts)
		if err != nil {
			errorChan <- err
			return
		}
		progress(90, "Session created")
		resultChan <- session
	}()

	select {
	case <-cancelChan:
		task.UpdateStatus(services.TaskStatusCancelled)
		os.RemoveAll(task.UploadDir)
		ws.WriteJSON(services.ProgressMessage{
			Type:      "cancelled",
			Message:   fmt.Sprintf("Import task %s was cancelled", taskID),
			Timestamp: time.Now().UnixMilli(),
		})
		return

	case <-task.Context.Done():
		task.UpdateStatus(services.TaskStatusCancelled)
		os.RemoveAll(task.UploadDir)
		ws.WriteJSON(services.ProgressMessage{
			Type:      "cancelled",
			Message:   fmt.Sprintf("Import task %s was cancelled", taskID),
			Timestamp: time.Now().UnixMilli(),
		})
		return

	case err := <-errorChan:
		task.UpdateStatus(services.TaskStatusFailed)
		task.SetError(err.Error())
		os.RemoveAll(task.UploadDir)
		ws.WriteJSON(services.ProgressMessage{
			Type:      "error",
			Message:   "Import failed: " + err.Error(),
			Timestamp: time.Now().UnixMilli(),
		})
		return

	case session := <-resultChan:
		// 收尾前再确认一次未被取消
		select {
		case <-task.Context.Done():
			task.UpdateStatus(services.TaskStatusCancelled)
			ws.WriteJSON(services.ProgressMessage{
				Type:      "cancelled",
				Message:   fmt.Sprintf("Import task %s was cancelled", taskID),
				Timestamp: time.Now().UnixMilli(),
			})
			return
		default:
		}

		task.SetSession(session.SessionID)
		task.UpdateStatus(services.TaskStatusCompleted)
		ws.WriteJSON(services.ProgressMessage{
			Type:       "complete",
			Percentage: 100,
			Message:    fmt.Sprintf("Import completed in %v; session %s is ready", time.Since(startTime), session.SessionID),
			Timestamp:  time.Now().UnixMilli(),
		})
	}
}
