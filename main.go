package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GrainArc/IndoorMap/config"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/GrainArc/IndoorMap/routers"
	"github.com/GrainArc/IndoorMap/services"
	"github.com/GrainArc/IndoorMap/views"
	"github.com/gin-gonic/gin"
)

// corsMiddleware 按配置放行前端来源
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool)
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "*")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// serveFrontend 挂载打包好的前端, 未命中的路径回退index.html
func serveFrontend(r *gin.Engine, dist string) {
	info, err := os.Stat(dist)
	if err != nil || !info.IsDir() {
		return
	}
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found", "code": "NOT_FOUND"})
			return
		}
		target := filepath.Join(dist, filepath.Clean("/"+c.Request.URL.Path))
		if stat, statErr := os.Stat(target); statErr == nil && !stat.IsDir() {
			c.File(target)
			return
		}
		c.File(filepath.Join(dist, "index.html"))
	})
}

func main() {
	models.InitDB()

	backend := models.BuildSessionBackend(config.MainConfig.SessionBackend, filepath.Join(config.MainConfig.Download, "sessions"))
	sessions := models.NewSessionManager(backend, config.MainConfig.SessionTTL, config.MainConfig.MaxSession)
	storage := services.NewUploadStorage(filepath.Join(config.MainConfig.Download, "uploads"))
	tasks := services.NewImportTaskManager()

	geocoder, err := services.BuildGeocoder(config.MainConfig.Geocoder, config.MainConfig.GeocoderURL, config.MainConfig.GeocoderAgent, config.MainConfig.GeocoderWait, config.MainConfig.GeocoderCache)
	if err != nil {
		fmt.Println("地理编码器配置无效, 已禁用:", err)
	}

	// 每小时清理一次过期会话
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if removed := sessions.PruneExpired(); removed > 0 {
				fmt.Printf("已清理%d个过期会话\n", removed)
			}
		}
	}()

	uc := views.NewUserController(sessions, storage, tasks, geocoder)

	r := gin.Default()
	r.Use(corsMiddleware(strings.Split(config.MainConfig.CORSOrigins, ",")))
	routers.ApiRouters(r, uc)
	routers.TaskRouters(r, uc)
	serveFrontend(r, "./frontend/dist")

	fmt.Println("IndoorMap server listening on", config.MainConfig.MainRouter)
	if err := r.Run(config.MainConfig.MainRouter); err != nil {
		fmt.Println("Server exited:", err)
		os.Exit(1)
	}
}
