package Exporter

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
)

const (
	IMDFVersion = "1.0.0"
	GeneratedBy = "shp2imdf-converter phase3"
)

var exportNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Manifest IMDF归档清单
type Manifest struct {
	Version     string      `json:"version"`
	Created     string      `json:"created"`
	GeneratedBy string      `json:"generated_by"`
	Language    string      `json:"language"`
	Extensions  interface{} `json:"extensions"`
}

func utcNowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

func BuildManifest(session *models.SessionRecord) Manifest {
	language := "en"
	if session != nil && session.Wizard.Project != nil {
		if text := strings.TrimSpace(session.Wizard.Project.Language); text != "" {
			language = text
		}
	}
	return Manifest{
		Version:     IMDFVersion,
		Created:     utcNowISO(),
		GeneratedBy: GeneratedBy,
		Language:    language,
		Extensions:  nil,
	}
}

func safeExportName(value string, fallback string) string {
	normalized := exportNameRe.ReplaceAllString(strings.TrimSpace(value), "_")
	normalized = strings.Trim(normalized, "._-")
	if normalized == "" {
		return fallback
	}
	return normalized
}

// SafeExportName 文件名只留字母数字点横线, 清空时回退固定名
func SafeExportName(value string) string {
	return safeExportName(value, "imdf_export")
}

// exportBaseName 项目名优先, 其次场馆名, 没有项目配置用会话id
func exportBaseName(session *models.SessionRecord) string {
	if session.Wizard.Project != nil {
		if session.Wizard.Project.ProjectName != "" {
			return session.Wizard.Project.ProjectName
		}
		return session.Wizard.Project.VenueName
	}
	return session.SessionID
}

func ExportFileName(session *models.SessionRecord) string {
	return SafeExportName(exportBaseName(session)) + ".imdf"
}

// BuildExportArchive 内存打包manifest与按类型拆分的GeoJSON
func BuildExportArchive(session *models.SessionRecord) ([]byte, string, error) {
	manifest := BuildManifest(session)
	manifestRaw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", err
	}

	members := map[string][]byte{
		"manifest.json": manifestRaw,
	}
	for _, file := range BuildIMDFGeoJSONFiles(session.FeatureCollection) {
		raw, err := json.MarshalIndent(file.Collection, "", "  ")
		if err != nil {
			return nil, "", err
		}
		members[file.Name] = raw
	}

	payload, err := methods.ZipBytesOut(members)
	if err != nil {
		return nil, "", err
	}
	return payload, ExportFileName(session), nil
}
