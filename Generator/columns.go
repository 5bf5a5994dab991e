package Generator

import (
	"sort"
	"strings"

	"github.com/GrainArc/IndoorMap/models"
)

// PickPreferredColumn 先精确匹配再按包含计分挑列, 已占用的列跳过
func PickPreferredColumn(candidates []string, used map[string]bool, exactKeys []string, containsKeys []string) string {
	lookup := make(map[string]string, len(candidates))
	for _, item := range candidates {
		lookup[strings.ToUpper(item)] = item
	}
	for _, key := range exactKeys {
		value := lookup[strings.ToUpper(key)]
		if value != "" && !used[value] {
			return value
		}
	}

	type scoredColumn struct {
		score  int
		column string
	}
	var scored []scoredColumn
	for _, column := range candidates {
		if used[column] {
			continue
		}
		upper := strings.ToUpper(column)
		score := 0
		for _, key := range containsKeys {
			if strings.Contains(upper, strings.ToUpper(key)) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredColumn{score: score, column: column})
		}
	}
	if len(scored) == 0 {
		return ""
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].column < scored[j].column
	})
	return scored[0].column
}

func hasColumn(value *string) bool {
	return value != nil && *value != ""
}

func columnSet(values ...*string) map[string]bool {
	used := make(map[string]bool)
	for _, value := range values {
		if value != nil && *value != "" {
			used[*value] = true
		}
	}
	return used
}

func setColumn(target **string, candidates []string, used map[string]bool, exactKeys []string, containsKeys []string) {
	if hasColumn(*target) {
		return
	}
	selected := PickPreferredColumn(candidates, used, exactKeys, containsKeys)
	if selected != "" {
		*target = &selected
		used[selected] = true
	}
}

func setDefaultUnitMappingColumns(session *models.SessionRecord) {
	mapping := &session.Wizard.Mappings.Unit
	if hasColumn(mapping.CodeColumn) && hasColumn(mapping.NameColumn) && hasColumn(mapping.AltNameColumn) &&
		hasColumn(mapping.RestrictionColumn) && hasColumn(mapping.AccessibilityColumn) {
		return
	}

	candidates := DetectCandidateColumns(session.Files, "unit")
	if len(candidates) == 0 {
		return
	}

	used := columnSet(mapping.CodeColumn, mapping.NameColumn, mapping.AltNameColumn, mapping.RestrictionColumn, mapping.AccessibilityColumn)

	if !hasColumn(mapping.CodeColumn) {
		selected := PickPreferredColumn(
			candidates,
			used,
			[]string{"CATEGORY", "COMPANY_CO", "COMPANY_CODE", "TYPE", "CAT"},
			[]string{"CATEGORY", "COMPANY", "TYPE", "CAT"},
		)
		if selected == "" {
			selected = candidates[0]
		}
		mapping.CodeColumn = &selected
		used[selected] = true
	}

	setColumn(&mapping.NameColumn, candidates, used,
		[]string{"NAME", "UNIT_NAME", "SHOP_NAME", "TENANT_NAM", "TENANT_NAME", "LABEL", "TITLE"},
		[]string{"NAME", "TITLE", "LABEL"})
	setColumn(&mapping.AltNameColumn, candidates, used,
		[]string{"ALT_NAME", "ALTNAME", "NAME_EN", "EN_NAME", "NAME_KANA"},
		[]string{"ALT", "EN_NAME", "KANA"})
	setColumn(&mapping.RestrictionColumn, candidates, used,
		[]string{"RESTRICTION", "ACCESS_CTRL", "ACCESS_CON", "PRIVATE", "SECURITY"},
		[]string{"RESTRICT", "ACCESS_CTRL", "PRIVATE", "SECURITY"})
	setColumn(&mapping.AccessibilityColumn, candidates, used,
		[]string{"ACCESSIBILITY", "ACCESSIBLE", "BARRIER_FR", "BARRIER", "WHEELCHAI", "WHEELCHAIR", "ADA"},
		[]string{"ACCESS", "BARRIER", "WHEEL", "ADA"})
}

func setDefaultOpeningMappingColumns(session *models.SessionRecord) {
	mapping := &session.Wizard.Mappings.Opening
	candidates := DetectCandidateColumns(session.Files, "opening")
	if len(candidates) == 0 {
		return
	}

	used := columnSet(mapping.CategoryColumn, mapping.AccessibilityColumn, mapping.AccessControlColumn,
		mapping.DoorAutomaticColumn, mapping.DoorMaterialColumn, mapping.DoorTypeColumn, mapping.NameColumn)

	setColumn(&mapping.CategoryColumn, candidates, used,
		[]string{"CATEGORY", "TYPE", "OPENING_TYPE", "CLASS"},
		[]string{"CATEGORY", "OPENING", "TYPE", "CLASS"})
	setColumn(&mapping.NameColumn, candidates, used,
		[]string{"NAME", "OPENING_NAME", "LABEL", "TITLE"},
		[]string{"NAME", "LABEL", "TITLE"})
	setColumn(&mapping.AccessibilityColumn, candidates, used,
		[]string{"ACCESSIBILITY", "ACCESSIBLE", "BARRIER_FR", "BARRIER", "WHEELCHAIR", "ADA"},
		[]string{"ACCESS", "BARRIER", "WHEEL", "ADA"})
	setColumn(&mapping.AccessControlColumn, candidates, used,
		[]string{"ACCESS_CONTROL", "ACCESS_CTRL", "SECURITY", "RESTRICTION"},
		[]string{"ACCESS_CTRL", "SECURITY", "RESTRICT", "CONTROL"})
	setColumn(&mapping.DoorAutomaticColumn, candidates, used,
		[]string{"DOOR_AUTO", "AUTOMATIC", "AUTO_DOOR", "DOOR_AUTOM"},
		[]string{"AUTOMATIC", "AUTO"})
	setColumn(&mapping.DoorMaterialColumn, candidates, used,
		[]string{"DOOR_MATER", "DOOR_MTRL", "MATERIAL"},
		[]string{"MATERIAL", "MTRL"})
	setColumn(&mapping.DoorTypeColumn, candidates, used,
		[]string{"DOOR_TYPE", "OPENING_TYPE"},
		[]string{"DOOR_TYPE", "OPENING_TYPE"})
}

func setDefaultFixtureMappingColumns(session *models.SessionRecord) {
	mapping := &session.Wizard.Mappings.Fixture
	candidates := DetectCandidateColumns(session.Files, "fixture")
	if len(candidates) == 0 {
		return
	}

	used := columnSet(mapping.NameColumn, mapping.AltNameColumn, mapping.CategoryColumn)

	setColumn(&mapping.CategoryColumn, candidates, used,
		[]string{"CATEGORY", "TYPE", "FIXTURE_CA", "CLASS"},
		[]string{"CATEGORY", "FIXTURE", "TYPE", "CLASS"})
	setColumn(&mapping.NameColumn, candidates, used,
		[]string{"NAME", "FIXTURE_NAME", "LABEL", "TITLE"},
		[]string{"NAME", "LABEL", "TITLE"})
	setColumn(&mapping.AltNameColumn, candidates, used,
		[]string{"ALT_NAME", "ALTNAME", "NAME_EN", "EN_NAME", "NAME_KANA"},
		[]string{"ALT", "EN_NAME", "KANA"})
}

// SetDefaultMappingColumns 给三类映射挑默认属性列
func SetDefaultMappingColumns(session *models.SessionRecord) {
	setDefaultUnitMappingColumns(session)
	setDefaultOpeningMappingColumns(session)
	setDefaultFixtureMappingColumns(session)
}

// RefreshUnitPreview 重算单元编码预览, 返回预览行数与未解析数
func RefreshUnitPreview(session *models.SessionRecord, unitCategoriesPath string) (int, int, error) {
	validCategories, configDefault, err := LoadUnitCategories(unitCategoriesPath)
	if err != nil {
		return 0, 0, err
	}
	defaultCategory := session.Wizard.CompanyDefaultCategory
	if defaultCategory == "" || !validCategories[defaultCategory] {
		defaultCategory = configDefault
	}

	available := make([]string, 0, len(validCategories))
	for category := range validCategories {
		available = append(available, category)
	}
	sort.Strings(available)
	session.Wizard.Mappings.Unit.AvailableCategories = available

	preview := BuildUnitCodePreview(
		session.FeatureCollection,
		session.Files,
		session.Wizard.Mappings.Unit.CodeColumn,
		session.Wizard.CompanyMappings,
		validCategories,
		defaultCategory,
	)
	session.Wizard.Mappings.Unit.Preview = preview
	unresolved := 0
	for _, item := range preview {
		if item.Unresolved {
			unresolved++
		}
	}
	return len(preview), unresolved, nil
}
