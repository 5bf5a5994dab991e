package models

import (
	"time"

	"github.com/GrainArc/IndoorMap/IMDF"
)

// CleanupSummary 导入清洗统计
type CleanupSummary struct {
	MultipolygonsExploded int `json:"multipolygons_exploded"`
	RingsClosed           int `json:"rings_closed"`
	FeaturesReoriented    int `json:"features_reoriented"`
	EmptyFeaturesDropped  int `json:"empty_features_dropped"`
	CoordinatesRounded    int `json:"coordinates_rounded"`
}

// ImportedFile 单个shapefile图层的导入档案
type ImportedFile struct {
	Stem             string   `json:"stem"`
	GeometryType     string   `json:"geometry_type"`
	FeatureCount     int      `json:"feature_count"`
	AttributeColumns []string `json:"attribute_columns"`
	DetectedType     *string  `json:"detected_type"`
	DetectedLevel    *int     `json:"detected_level"`
	Confidence       string   `json:"confidence"`
	CRSDetected      *string  `json:"crs_detected"`
	Warnings         []string `json:"warnings"`
	LevelName        *string  `json:"level_name"`
	ShortName        *string  `json:"short_name"`
	Outdoor          bool     `json:"outdoor"`
	LevelCategory    string   `json:"level_category"`
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// Clone 深拷贝, 重检测时不污染会话内原档案
func (f ImportedFile) Clone() ImportedFile {
	out := f
	out.AttributeColumns = append([]string(nil), f.AttributeColumns...)
	out.Warnings = append([]string(nil), f.Warnings...)
	out.DetectedType = cloneStringPtr(f.DetectedType)
	out.DetectedLevel = cloneIntPtr(f.DetectedLevel)
	out.CRSDetected = cloneStringPtr(f.CRSDetected)
	out.LevelName = cloneStringPtr(f.LevelName)
	out.ShortName = cloneStringPtr(f.ShortName)
	return out
}

// AddressInput 向导录入的地址
type AddressInput struct {
	Address          string  `json:"address"`
	Unit             *string `json:"unit"`
	Locality         string  `json:"locality"`
	Province         *string `json:"province"`
	Country          string  `json:"country"`
	PostalCode       *string `json:"postal_code"`
	PostalCodeExt    *string `json:"postal_code_ext"`
	PostalCodeVanity *string `json:"postal_code_vanity"`
}

// ProjectWizardState 场馆项目信息
type ProjectWizardState struct {
	ProjectName      string       `json:"project_name"`
	VenueName        string       `json:"venue_name"`
	VenueCategory    string       `json:"venue_category"`
	VenueRestriction *string      `json:"venue_restriction"`
	VenueHours       *string      `json:"venue_hours"`
	VenuePhone       *string      `json:"venue_phone"`
	VenueWebsite     *string      `json:"venue_website"`
	Language         string       `json:"language"`
	Address          AddressInput `json:"address"`
}

// LevelWizardItem 楼层分配表的一行, 对应一个图层文件
type LevelWizardItem struct {
	Stem         string  `json:"stem"`
	DetectedType *string `json:"detected_type"`
	Ordinal      *int    `json:"ordinal"`
	Name         *string `json:"name"`
	ShortName    *string `json:"short_name"`
	Outdoor      bool    `json:"outdoor"`
	Category     *string `json:"category"`
}

type LevelsWizardState struct {
	Items []LevelWizardItem `json:"items"`
}

// BuildingWizardState 建筑定义, address_mode为different_address时需附带独立地址
type BuildingWizardState struct {
	ID               string        `json:"id"`
	Name             *string       `json:"name"`
	Category         *string       `json:"category"`
	Restriction      *string       `json:"restriction"`
	AddressMode      string        `json:"address_mode"`
	Address          *AddressInput `json:"address"`
	AddressFeatureID *string       `json:"address_feature_id"`
	FileStems        []string      `json:"file_stems"`
}

// UnitCodePreviewRow 单元编码到IMDF类别的映射预览
type UnitCodePreviewRow struct {
	Code             string `json:"code"`
	Count            int    `json:"count"`
	ResolvedCategory string `json:"resolved_category"`
	Unresolved       bool   `json:"unresolved"`
}

type UnitMappingState struct {
	CodeColumn          *string              `json:"code_column"`
	NameColumn          *string              `json:"name_column"`
	AltNameColumn       *string              `json:"alt_name_column"`
	RestrictionColumn   *string              `json:"restriction_column"`
	AccessibilityColumn *string              `json:"accessibility_column"`
	AvailableCategories []string             `json:"available_categories"`
	Preview             []UnitCodePreviewRow `json:"preview"`
}

type OpeningMappingState struct {
	CategoryColumn      *string `json:"category_column"`
	NameColumn          *string `json:"name_column"`
	AccessibilityColumn *string `json:"accessibility_column"`
	AccessControlColumn *string `json:"access_control_column"`
	DoorAutomaticColumn *string `json:"door_automatic_column"`
	DoorMaterialColumn  *string `json:"door_material_column"`
	DoorTypeColumn      *string `json:"door_type_column"`
}

type FixtureMappingState struct {
	CategoryColumn *string `json:"category_column"`
	NameColumn     *string `json:"name_column"`
	AltNameColumn  *string `json:"alt_name_column"`
}

type MappingsState struct {
	Unit            UnitMappingState    `json:"unit"`
	Opening         OpeningMappingState `json:"opening"`
	Fixture         FixtureMappingState `json:"fixture"`
	DetailConfirmed bool                `json:"detail_confirmed"`
}

type FootprintWizardState struct {
	VenueBufferM float64 `json:"venue_buffer_m"`
}

// WizardState 会话内的向导全量状态
type WizardState struct {
	Project                 *ProjectWizardState   `json:"project"`
	Levels                  LevelsWizardState     `json:"levels"`
	Buildings               []BuildingWizardState `json:"buildings"`
	Mappings                MappingsState         `json:"mappings"`
	Footprint               FootprintWizardState  `json:"footprint"`
	CompanyMappings         map[string]string     `json:"company_mappings"`
	CompanyDefaultCategory  string                `json:"company_default_category"`
	VenueAddressFeature     *IMDF.Feature         `json:"venue_address_feature"`
	BuildingAddressFeatures []*IMDF.Feature       `json:"building_address_features"`
	Warnings                []string              `json:"warnings"`
	GenerationStatus        string                `json:"generation_status"`
}

// NewWizardState 空向导状态, 切片与map保持非nil便于序列化
func NewWizardState() WizardState {
	return WizardState{
		Buildings:               []BuildingWizardState{},
		CompanyMappings:         map[string]string{},
		CompanyDefaultCategory:  "unspecified",
		BuildingAddressFeatures: []*IMDF.Feature{},
		Warnings:                []string{},
		GenerationStatus:        "not_started",
	}
}

// ValidationSummary 校验汇总计数
type ValidationSummary struct {
	TotalFeatures      int            `json:"total_features"`
	ByType             map[string]int `json:"by_type"`
	ErrorCount         int            `json:"error_count"`
	WarningCount       int            `json:"warning_count"`
	AutoFixableCount   int            `json:"auto_fixable_count"`
	ChecksPassed       int            `json:"checks_passed"`
	ChecksFailed       int            `json:"checks_failed"`
	UnspecifiedCount   int            `json:"unspecified_count"`
	OverlapCount       int            `json:"overlap_count"`
	OpeningIssuesCount int            `json:"opening_issues_count"`
}

// ValidationResponse 一次完整校验的结果
type ValidationResponse struct {
	Errors   []IMDF.Issue      `json:"errors"`
	Warnings []IMDF.Issue      `json:"warnings"`
	Passed   []string          `json:"passed"`
	Summary  ValidationSummary `json:"summary"`
}

// AutofixApplied 已自动执行的修复
type AutofixApplied struct {
	FeatureID   string `json:"feature_id"`
	Check       string `json:"check"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// AutofixPrompt 需用户确认后才执行的修复
type AutofixPrompt struct {
	FeatureID        string `json:"feature_id"`
	RelatedFeatureID string `json:"related_feature_id,omitempty"`
	Check            string `json:"check"`
	Action           string `json:"action"`
	Description      string `json:"description"`
}

// SessionRecord 一次转换会话的全部持久状态
type SessionRecord struct {
	SessionID               string                  `json:"session_id"`
	CreatedAt               time.Time               `json:"created_at"`
	LastAccessed            time.Time               `json:"last_accessed"`
	Files                   []ImportedFile          `json:"files"`
	CleanupSummary          CleanupSummary          `json:"cleanup_summary"`
	FeatureCollection       *IMDF.FeatureCollection `json:"feature_collection"`
	SourceFeatureCollection *IMDF.FeatureCollection `json:"source_feature_collection"`
	Warnings                []string                `json:"warnings"`
	LearnedKeywords         map[string]string       `json:"learned_keywords"`
	Wizard                  WizardState             `json:"wizard"`
	Validation              *ValidationResponse     `json:"validation"`
	UploadArtifactDir       string                  `json:"upload_artifact_dir"`
}

// FileByStem 按stem查找导入档案
func (s *SessionRecord) FileByStem(stem string) *ImportedFile {
	for i := range s.Files {
		if s.Files[i].Stem == stem {
			return &s.Files[i]
		}
	}
	return nil
}
