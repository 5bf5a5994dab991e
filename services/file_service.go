// service/file_service.go
package services

import (
	"github.com/gin-gonic/gin"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type FileNode struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"` // 绝对路径
	IsDir   bool      `json:"isDir"`
	Size    int64     `json:"size"`
	Ext     string    `json:"ext"` // 文件扩展名
	ModTime time.Time `json:"modTime"`
}

// UploadStorage 会话上传文件的落盘根目录, 每个会话一个子目录
type UploadStorage struct {
	RootPath string
}

func NewUploadStorage(rootPath string) *UploadStorage {
	// 确保根路径是绝对路径
	absRoot, _ := filepath.Abs(rootPath)
	os.MkdirAll(absRoot, os.ModePerm)
	return &UploadStorage{
		RootPath: absRoot,
	}
}

// SessionDir 返回会话的上传目录并确保存在
func (s *UploadStorage) SessionDir(sessionID string) (string, error) {
	target := filepath.Join(s.RootPath, sessionID)
	if !s.isPathSafe(target) {
		return "", os.ErrPermission
	}
	if err := os.MkdirAll(target, os.ModePerm); err != nil {
		return "", err
	}
	return target, nil
}

// ListSession 列出会话目录下的直接子项（非递归）
func (s *UploadStorage) ListSession(sessionID string) ([]FileNode, error) {
	targetPath := filepath.Join(s.RootPath, sessionID)

	// 安全检查：确保请求的路径在根目录下
	if !s.isPathSafe(targetPath) {
		return nil, os.ErrPermission
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrInvalid
	}

	entries, err := os.ReadDir(targetPath)
	if err != nil {
		return nil, err
	}

	nodes := make([]FileNode, 0, len(entries))
	for _, entry := range entries {
		absolutePath := filepath.Join(targetPath, entry.Name())
		fileInfo, err := entry.Info()
		if err != nil {
			continue
		}

		ext := ""
		if !entry.IsDir() {
			ext = strings.ToLower(filepath.Ext(entry.Name()))
			if len(ext) > 0 {
				ext = ext[1:]
			}
		}

		nodes = append(nodes, FileNode{
			Name:    entry.Name(),
			Path:    absolutePath,
			IsDir:   entry.IsDir(),
			Size:    fileInfo.Size(),
			Ext:     ext,
			ModTime: fileInfo.ModTime(),
		})
	}

	return nodes, nil
}

// RemoveSession 会话删除时连目录一起清掉
func (s *UploadStorage) RemoveSession(sessionID string) error {
	targetPath := filepath.Join(s.RootPath, sessionID)
	if !s.isPathSafe(targetPath) {
		return os.ErrPermission
	}
	return os.RemoveAll(targetPath)
}

// GetRootPath 获取根目录信息
func (s *UploadStorage) GetRootPath() string {
	return s.RootPath
}

// isPathSafe 检查路径是否安全（防止目录遍历攻击）
func (s *UploadStorage) isPathSafe(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absRoot, err := filepath.Abs(s.RootPath)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}

	// 不允许访问根目录之外的路径
	return !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

type ArtifactController struct {
	storage *UploadStorage
}

func NewArtifactController(storage *UploadStorage) *ArtifactController {
	return &ArtifactController{
		storage: storage,
	}
}

// GetSessionArtifacts 查看某个会话已落盘的上传文件
func (c *ArtifactController) GetSessionArtifacts(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	content, err := c.storage.ListSession(sessionID)
	if err != nil {
		if os.IsNotExist(err) {
			ctx.JSON(http.StatusNotFound, gin.H{
				"detail": "No stored upload artifacts for this session.",
				"code":   "SESSION_NOT_FOUND",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"detail": err.Error(),
			"code":   "INTERNAL_ERROR",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"files":      content,
	})
}
