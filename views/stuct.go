package views

import (
	"time"

	"github.com/GrainArc/IndoorMap/models"
	"github.com/GrainArc/IndoorMap/services"
)

// ErrorResponse 统一错误响应体
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type UserController struct {
	Sessions  *models.SessionManager
	Storage   *services.UploadStorage
	Tasks     *services.ImportTaskManager
	Geocoder  services.Geocoder
	StartedAt time.Time
}

func NewUserController(sessions *models.SessionManager, storage *services.UploadStorage, tasks *services.ImportTaskManager, geocoder services.Geocoder) *UserController {
	return &UserController{
		Sessions:  sessions,
		Storage:   storage,
		Tasks:     tasks,
		Geocoder:  geocoder,
		StartedAt: time.Now(),
	}
}
