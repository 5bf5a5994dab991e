package Classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
)

// FeatureTypeValues 文件名关键字允许映射到的要素类型
var FeatureTypeValues = map[string]bool{
	"unit":     true,
	"opening":  true,
	"fixture":  true,
	"detail":   true,
	"level":    true,
	"building": true,
	"venue":    true,
}

// StopwordTokens 不参与关键字学习的常见词
var StopwordTokens = map[string]bool{
	"jr":      true,
	"sta":     true,
	"station": true,
	"drawing": true,
	"shape":   true,
	"shp":     true,
}

var (
	tokenRe    = regexp.MustCompile(`[a-zA-Z0-9]+`)
	basementRe = regexp.MustCompile(`(^|[^A-Z0-9])B(\d+)([^A-Z0-9]|$)`)
	negativeRe = regexp.MustCompile(`(^|[^A-Z0-9])-(\d+)([^A-Z0-9]|$)`)
	groundRe   = regexp.MustCompile(`(^|[^A-Z0-9])(GF|GH|G)([^A-Z0-9]|$)`)
	zeroRe     = regexp.MustCompile(`(^|[^A-Z0-9])0([^A-Z0-9]|$)`)
	floorRe    = regexp.MustCompile(`(^|[^A-Z0-9])(\d+)(F)?([^A-Z0-9]|$)`)
)

type LearningSuggestion struct {
	SourceStem    string   `json:"source_stem"`
	Keyword       string   `json:"keyword"`
	FeatureType   string   `json:"feature_type"`
	AffectedStems []string `json:"affected_stems"`
	Message       string   `json:"message"`
}

type keywordConfig struct {
	FeatureTypeKeywords map[string][]string `json:"feature_type_keywords"`
}

// LoadKeywordMap 读取关键字配置, 键小写去空格
func LoadKeywordMap(configPath string) (map[string][]string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var payload keywordConfig
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	mapped := make(map[string][]string)
	for featureType, keywords := range payload.FeatureTypeKeywords {
		var values []string
		for _, keyword := range keywords {
			cleaned := strings.ToLower(strings.TrimSpace(keyword))
			if cleaned == "" {
				continue
			}
			if !methods.IsStringInSlice(cleaned, values) {
				values = append(values, cleaned)
			}
		}
		sort.Strings(values)
		mapped[featureType] = values
	}
	return mapped, nil
}

// MergeLearnedKeywords 会话学到的关键字并入基础关键字表
func MergeLearnedKeywords(base map[string][]string, learned map[string]string) map[string][]string {
	merged := make(map[string][]string, len(base))
	for featureType, values := range base {
		merged[featureType] = append([]string(nil), values...)
	}
	keywords := make([]string, 0, len(learned))
	for keyword := range learned {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	for _, keyword := range keywords {
		featureType := learned[keyword]
		if !FeatureTypeValues[featureType] {
			continue
		}
		lowered := strings.ToLower(keyword)
		if !methods.IsStringInSlice(lowered, merged[featureType]) {
			merged[featureType] = append(merged[featureType], lowered)
			sort.Strings(merged[featureType])
		}
	}
	return merged
}

func StemTokens(stem string) []string {
	var tokens []string
	for _, token := range tokenRe.FindAllString(stem, -1) {
		tokens = append(tokens, strings.ToLower(token))
	}
	return tokens
}

// DetectFeatureType 文件名关键字优先取最长命中, 其次按几何类型兜底
// 返回类型为空串表示未识别, confidence为green/yellow/red
func DetectFeatureType(stem string, geometryType string, keywords map[string][]string) (string, string) {
	lowered := strings.ToLower(stem)
	bestType := ""
	bestLen := 0
	featureTypes := make([]string, 0, len(keywords))
	for featureType := range keywords {
		featureTypes = append(featureTypes, featureType)
	}
	sort.Strings(featureTypes)
	for _, featureType := range featureTypes {
		for _, keyword := range keywords[featureType] {
			if strings.Contains(lowered, keyword) && len(keyword) > bestLen {
				bestType = featureType
				bestLen = len(keyword)
			}
		}
	}
	if bestType != "" {
		return bestType, "green"
	}

	normalizedGeom := strings.ToLower(geometryType)
	if strings.Contains(normalizedGeom, "polygon") {
		return "unit", "yellow"
	}
	if strings.Contains(normalizedGeom, "linestring") {
		return "opening", "yellow"
	}
	return "", "red"
}

// DetectLevelOrdinal 从文件名推断楼层序号
// B2→-2, -1→-1, GF/G→0, 1F→0, 2F→1, 数字楼层按人读楼层减一
func DetectLevelOrdinal(stem string) *int {
	normalized := strings.ToUpper(stem)

	if m := basementRe.FindStringSubmatch(normalized); m != nil {
		n := parseInt(m[2])
		n = -n
		return &n
	}
	if m := negativeRe.FindStringSubmatch(normalized); m != nil {
		n := parseInt(m[2])
		n = -n
		return &n
	}
	if groundRe.MatchString(normalized) {
		n := 0
		return &n
	}
	if zeroRe.MatchString(normalized) {
		n := 0
		return &n
	}
	if m := floorRe.FindStringSubmatch(normalized); m != nil {
		n := parseInt(m[2]) - 1
		return &n
	}
	return nil
}

func parseInt(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// DetectFiles 批量识别类型与楼层, preserveManualLevels为真时不覆盖人工楼层
func DetectFiles(files []models.ImportedFile, keywords map[string][]string, preserveManualLevels bool) []models.ImportedFile {
	detected := make([]models.ImportedFile, 0, len(files))
	for _, item := range files {
		inferredType, confidence := DetectFeatureType(item.Stem, item.GeometryType, keywords)
		inferredLevel := DetectLevelOrdinal(item.Stem)

		updated := item.Clone()
		if inferredType != "" {
			updated.DetectedType = &inferredType
		} else {
			updated.DetectedType = nil
		}
		updated.Confidence = confidence
		if !preserveManualLevels || updated.DetectedLevel == nil {
			updated.DetectedLevel = inferredLevel
		}
		detected = append(detected, updated)
	}
	return detected
}

// GroupFeaturesByStem 按来源文件归组要素
func GroupFeaturesByStem(fc *IMDF.FeatureCollection) map[string][]*IMDF.Feature {
	grouped := make(map[string][]*IMDF.Feature)
	if fc == nil {
		return grouped
	}
	for _, feature := range fc.Features {
		stem := feature.Review.SourceFile
		if stem != "" {
			grouped[stem] = append(grouped[stem], feature)
		}
	}
	return grouped
}

// SyncFeatureTypes 把识别结果写回要素顶层feature_type, 未识别的回落source
func SyncFeatureTypes(fc *IMDF.FeatureCollection, files []models.ImportedFile) *IMDF.FeatureCollection {
	stemToType := make(map[string]string, len(files))
	for _, item := range files {
		if item.DetectedType != nil && *item.DetectedType != "" {
			stemToType[item.Stem] = *item.DetectedType
		} else {
			stemToType[item.Stem] = "source"
		}
	}
	copied := fc.Clone()
	for _, feature := range copied.Features {
		if t, ok := stemToType[feature.Review.SourceFile]; ok {
			feature.Type = IMDF.FeatureType(t)
		}
	}
	return copied
}

func allKeywords(keywords map[string][]string) map[string]bool {
	known := make(map[string]bool)
	for _, values := range keywords {
		for _, keyword := range values {
			known[keyword] = true
		}
	}
	return known
}

func isDigits(token string) bool {
	for _, c := range token {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(token) > 0
}

// InferLearningSuggestion 用户改判类型后, 从文件名里挑可学习的关键字
// 候选按波及文件数降序, 同数取更短更靠前的token
func InferLearningSuggestion(files []models.ImportedFile, changedStem string, newType string, keywords map[string][]string) *LearningSuggestion {
	var target *models.ImportedFile
	for i := range files {
		if files[i].Stem == changedStem {
			target = &files[i]
			break
		}
	}
	if target == nil {
		return nil
	}

	known := allKeywords(keywords)
	type candidate struct {
		token    string
		affected []string
	}
	var candidates []candidate
	for _, token := range StemTokens(changedStem) {
		if known[token] || StopwordTokens[token] || isDigits(token) || len(token) < 3 {
			continue
		}
		var affected []string
		for _, item := range files {
			if item.Stem == changedStem {
				continue
			}
			if !strings.Contains(strings.ToLower(item.Stem), token) {
				continue
			}
			current := ""
			if item.DetectedType != nil {
				current = *item.DetectedType
			}
			if current != newType {
				affected = append(affected, item.Stem)
			}
		}
		if len(affected) > 0 {
			candidates = append(candidates, candidate{token: token, affected: affected})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i].affected) != len(candidates[j].affected) {
			return len(candidates[i].affected) > len(candidates[j].affected)
		}
		if len(candidates[i].token) != len(candidates[j].token) {
			return len(candidates[i].token) < len(candidates[j].token)
		}
		return candidates[i].token < candidates[j].token
	})
	best := candidates[0]
	return &LearningSuggestion{
		SourceStem:    changedStem,
		Keyword:       best.token,
		FeatureType:   newType,
		AffectedStems: best.affected,
		Message:       fmt.Sprintf("Apply '%s' as %s keyword to %d other files?", best.token, newType, len(best.affected)),
	}
}
