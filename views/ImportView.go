package views

import (
	"archive/zip"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/GrainArc/IndoorMap/Classifier"
	"github.com/GrainArc/IndoorMap/Transformer"
	"github.com/GrainArc/IndoorMap/config"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mholt/archiver/v3"
)

// ImportResponse 导入完成响应
type ImportResponse struct {
	SessionID      string                `json:"session_id"`
	Files          []models.ImportedFile `json:"files"`
	CleanupSummary models.CleanupSummary `json:"cleanup_summary"`
	Warnings       []string              `json:"warnings"`
}

// zipEntryName 压缩包成员名统一到UTF-8后只保留文件名
func zipEntryName(zf *zip.File) string {
	name := zf.Name
	if zf.NonUTF8 || !utf8.ValidString(name) {
		name = Transformer.GbkToUtf8(name)
	}
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Base(name)
}

// expandZipFlat 展开zip到目标目录, 丢弃包内子目录结构
func expandZipFlat(src string, dest string) (int64, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var written int64
	for _, zf := range reader.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := zipEntryName(zf)
		if name == "" || name == "." || name == "/" {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return written, err
		}
		outFile, err := os.OpenFile(filepath.Join(dest, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			rc.Close()
			return written, err
		}
		n, err := io.Copy(outFile, rc)
		rc.Close()
		outFile.Close()
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// expandArchiveFlat rar等归档先解到暂存目录再平铺搬运
func expandArchiveFlat(src string, dest string) (int64, error) {
	staging := src + "_unpack"
	if err := os.MkdirAll(staging, os.ModePerm); err != nil {
		return 0, err
	}
	defer os.RemoveAll(staging)
	if err := archiver.Unarchive(src, staging); err != nil {
		return 0, err
	}

	var written int64
	err := filepath.Walk(staging, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if err := os.Rename(path, filepath.Join(dest, filepath.Base(path))); err != nil {
			return err
		}
		written += info.Size()
		return nil
	})
	return written, err
}

// stageUploads 收取multipart文件并平铺展开到暂存目录, 超限即中止
func (uc *UserController) stageUploads(c *gin.Context, uploads []*multipart.FileHeader) (string, error) {
	dir, err := uc.Storage.SessionDir(uuid.New().String())
	if err != nil {
		return "", err
	}

	maxBytes := int64(config.MainConfig.MaxUploadMB) * 1024 * 1024
	var rawTotal int64
	var expandedTotal int64
	for _, upload := range uploads {
		rawTotal += upload.Size
		if rawTotal > maxBytes {
			os.RemoveAll(dir)
			return "", fmt.Errorf("Upload exceeds configured limit (MAX_UPLOAD_MB).")
		}

		target := filepath.Join(dir, filepath.Base(upload.Filename))
		if err := c.SaveUploadedFile(upload, target); err != nil {
			os.RemoveAll(dir)
			return "", err
		}

		switch strings.ToLower(filepath.Ext(target)) {
		case ".zip":
			written, err := expandZipFlat(target, dir)
			os.Remove(target)
			if err != nil {
				os.RemoveAll(dir)
				return "", err
			}
			expandedTotal += written
		case ".rar":
			written, err := expandArchiveFlat(target, dir)
			os.Remove(target)
			if err != nil {
				os.RemoveAll(dir)
				return "", err
			}
			expandedTotal += written
		default:
			expandedTotal += upload.Size
		}
		if expandedTotal > maxBytes {
			os.RemoveAll(dir)
			return "", fmt.Errorf("Expanded upload exceeds configured limit (MAX_UPLOAD_MB).")
		}
	}
	return dir, nil
}

// finalizeImport 识别类型归档上传目录并落会话
func (uc *UserController) finalizeImport(dir string, artifacts *Transformer.ImportArtifacts) (*models.SessionRecord, error) {
	keywords, err := mergedKeywordMap(nil)
	if err != nil {
		return nil, err
	}
	artifacts.Files = Classifier.DetectFiles(artifacts.Files, keywords, false)
	featureCollection := Classifier.SyncFeatureTypes(artifacts.FeatureCollection, artifacts.Files)

	session, err := uc.Sessions.CreateSession(artifacts.Files, artifacts.CleanupSummary, featureCollection, artifacts.Warnings, nil)
	if err != nil {
		return nil, err
	}

	// 上传源文件归到会话名下, 会话删除时一并清理
	archiveDir := filepath.Join(uc.Storage.GetRootPath(), session.SessionID)
	if err := os.Rename(dir, archiveDir); err == nil {
		session.UploadArtifactDir = archiveDir
	} else {
		session.UploadArtifactDir = dir
	}
	if err := uc.Sessions.SaveSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ImportSurvey 同步导入, 成功即建会话
func (uc *UserController) ImportSurvey(c *gin.Context) {
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

	artifacts, err := Transformer.ImportSurveyDirectory(dir)
	if err != nil {
		os.RemoveAll(dir)
		respondBadRequest(c, err.Error())
		return
	}

	session, err := uc.finalizeImport(dir, artifacts)
	if err != nil {
		os.RemoveAll(dir)
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusCreated, ImportResponse{
		SessionID:      session.SessionID,
		Files:          artifacts.Files,
		CleanupSummary: artifacts.CleanupSummary,
		Warnings:       artifacts.Warnings,
	})
}
