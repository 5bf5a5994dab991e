package routers

import (
	"github.com/GrainArc/IndoorMap/views"
	"github.com/gin-gonic/gin"
)

// TaskRouters 注册后台导入任务路由
func TaskRouters(r *gin.Engine, uc *views.UserController) {
	taskRouter := r.Group("/api/import/tasks")
	{
		// POST用于暂存上传文件并创建任务
		taskRouter.POST("", uc.CreateImportTask)
		// GET用于WebSocket连接, 连接后才开始执行导入
		taskRouter.GET("/ws/:taskId", uc.ImportTaskWebSocket)
		// GET用于查询任务状态
		taskRouter.GET("/status/:taskId", uc.GetImportTaskStatus)
	}
}
