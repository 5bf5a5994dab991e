package Validator

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/GrainArc/IndoorMap/IMDF"
	"github.com/GrainArc/IndoorMap/Transformer"
	"github.com/GrainArc/IndoorMap/methods"
	"github.com/GrainArc/IndoorMap/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var labelRe = regexp.MustCompile(`^[A-Za-z]{2,3}([_-][A-Za-z0-9]{2,8})*$`)

// 开口线离单元边界的容差与长度阈值(米换算为度)
const (
	boundaryTolerance = 5e-6
	minOpeningMeters  = 0.3
	maxOpeningMeters  = 10.0
	sliverArea        = 1e-10
)

func labelsOK(value IMDF.Labels) bool {
	if len(value) == 0 {
		return false
	}
	hasLang := false
	hasText := false
	for key, item := range value {
		if labelRe.MatchString(strings.ReplaceAll(key, "_", "-")) {
			hasLang = true
		}
		if strings.TrimSpace(item) != "" {
			hasText = true
		}
	}
	return hasLang && hasText
}

func coordsOutOfBounds(g orb.Geometry) bool {
	out := false
	methods.EachPoint(g, func(pt orb.Point) {
		if pt[0] < -180 || pt[0] > 180 || pt[1] < -90 || pt[1] > 90 {
			out = true
		}
	})
	return out
}

func maxDecimals(g orb.Geometry) int {
	maxDec := 0
	methods.EachPoint(g, func(pt orb.Point) {
		for _, value := range pt {
			text := strconv.FormatFloat(value, 'f', 12, 64)
			text = strings.TrimRight(text, "0")
			text = strings.TrimRight(text, ".")
			if idx := strings.Index(text, "."); idx >= 0 {
				if dec := len(text) - idx - 1; dec > maxDec {
					maxDec = dec
				}
			}
		}
	})
	return maxDec
}

func pointInGeometry(displayPoint *geojson.Geometry, geom orb.Geometry) bool {
	if geom == nil || methods.GeomIsEmpty(geom) {
		return false
	}
	if displayPoint == nil {
		return false
	}
	point, ok := displayPoint.Geometry().(orb.Point)
	if !ok {
		return false
	}
	return methods.ContainsOrTouches(geom, point)
}

func looksLikeUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func featureDisplayPoint(f *IMDF.Feature) *geojson.Geometry {
	switch p := f.Props.(type) {
	case *IMDF.VenueProps:
		return p.DisplayPoint
	case *IMDF.BuildingProps:
		return p.DisplayPoint
	case *IMDF.LevelProps:
		return p.DisplayPoint
	case *IMDF.UnitProps:
		return p.DisplayPoint
	case *IMDF.OpeningProps:
		return p.DisplayPoint
	case *IMDF.FixtureProps:
		return p.DisplayPoint
	}
	return nil
}

type labelEntry struct {
	key    string
	labels IMDF.Labels
}

// 各类型携带的LABELS字段, 顺序与导出字段序一致
func featureLabelEntries(f *IMDF.Feature) []labelEntry {
	switch p := f.Props.(type) {
	case *IMDF.VenueProps:
		return []labelEntry{{"name", p.Name}, {"alt_name", p.AltName}}
	case *IMDF.BuildingProps:
		return []labelEntry{{"name", p.Name}, {"alt_name", p.AltName}}
	case *IMDF.FootprintProps:
		return []labelEntry{{"name", p.Name}}
	case *IMDF.LevelProps:
		return []labelEntry{{"name", p.Name}, {"short_name", p.ShortName}}
	case *IMDF.UnitProps:
		return []labelEntry{{"name", p.Name}, {"alt_name", p.AltName}}
	case *IMDF.OpeningProps:
		return []labelEntry{{"name", p.Name}, {"alt_name", p.AltName}}
	case *IMDF.FixtureProps:
		return []labelEntry{{"name", p.Name}, {"alt_name", p.AltName}}
	}
	return nil
}

type unitEntry struct {
	id   string
	geom orb.Geometry
}

// ValidateFeatureCollection 全量校验, 错误与警告分列, 汇总计数
func ValidateFeatureCollection(fc *IMDF.FeatureCollection) *models.ValidationResponse {
	var rows []*IMDF.Feature
	if fc != nil {
		for _, row := range fc.Features {
			if row != nil {
				rows = append(rows, row)
			}
		}
	}

	var errors []IMDF.Issue
	var warnings []IMDF.Issue
	addIssue := func(severity IMDF.Severity, check string, message string, issue IMDF.Issue) {
		issue.Check = check
		issue.Message = message
		issue.Severity = severity
		if severity == IMDF.SeverityError {
			errors = append(errors, issue)
		} else {
			warnings = append(warnings, issue)
		}
	}

	byType := make(map[string]int)
	idCounts := make(map[string]int)
	for _, row := range rows {
		byType[string(row.Type)]++
		if row.ID != "" {
			idCounts[row.ID]++
		}
	}
	byID := make(map[string]*IMDF.Feature)
	for _, row := range rows {
		if row.ID != "" {
			byID[row.ID] = row
		}
	}

	for _, required := range []string{"venue", "building"} {
		if byType[required] == 0 {
			addIssue(IMDF.SeverityError, "missing_"+required, fmt.Sprintf("Missing required '%s' feature.", required), IMDF.Issue{})
		}
	}

	for _, row := range rows {
		if row.ID == "" {
			addIssue(IMDF.SeverityError, "missing_id", "Feature is missing id.", IMDF.Issue{})
			continue
		}
		if !looksLikeUUID(row.ID) {
			addIssue(IMDF.SeverityError, "id_not_uuid", "Feature id is not a UUID string.", IMDF.Issue{
				FeatureID:      row.ID,
				AutoFixable:    true,
				FixDescription: "Regenerate UUID for this feature.",
			})
		}
		if idCounts[row.ID] > 1 {
			addIssue(IMDF.SeverityError, "duplicate_uuids", "Duplicate UUID detected.", IMDF.Issue{
				FeatureID:      row.ID,
				AutoFixable:    true,
				FixDescription: "Regenerate duplicate UUIDs.",
			})
		}
	}

	levelIDs := make(map[string]bool)
	buildingIDs := make(map[string]bool)
	addressIDs := make(map[string]bool)
	for fid, row := range byID {
		switch row.Type {
		case IMDF.TypeLevel:
			levelIDs[fid] = true
		case IMDF.TypeBuilding:
			buildingIDs[fid] = true
		case IMDF.TypeAddress:
			addressIDs[fid] = true
		}
	}

	geomsByID := make(map[string]orb.Geometry)
	for _, row := range rows {
		fid := row.ID
		ftype := string(row.Type)
		payloadPresent := row.Geometry != nil || row.BadGeometry != nil

		if IMDF.NullGeomTypes[row.Type] {
			if payloadPresent {
				addIssue(IMDF.SeverityError, ftype+"_must_be_null", fmt.Sprintf("%s geometry must be null.", titleWord(ftype)), IMDF.Issue{FeatureID: fid})
			}
			continue
		}
		if !payloadPresent {
			addIssue(IMDF.SeverityError, "empty_geometry", "Geometry is missing.", IMDF.Issue{FeatureID: fid})
			continue
		}
		if IMDF.PolygonTypes[row.Type] {
			switch row.Geometry.(type) {
			case orb.Polygon, orb.MultiPolygon:
			default:
				addIssue(IMDF.SeverityError, ftype+"_must_be_polygon", fmt.Sprintf("%s geometry must be Polygon.", titleWord(ftype)), IMDF.Issue{FeatureID: fid})
			}
		}
		if IMDF.LineTypes[row.Type] {
			if _, ok := row.Geometry.(orb.LineString); !ok {
				addIssue(IMDF.SeverityError, ftype+"_must_be_linestring", fmt.Sprintf("%s geometry must be LineString.", titleWord(ftype)), IMDF.Issue{FeatureID: fid})
			}
		}
		if row.Geometry == nil {
			addIssue(IMDF.SeverityError, "invalid_geometry", "Geometry could not be parsed.", IMDF.Issue{
				FeatureID:      fid,
				AutoFixable:    true,
				FixDescription: "Run make_valid() to repair geometry.",
			})
			continue
		}
		if methods.GeomIsEmpty(row.Geometry) {
			addIssue(IMDF.SeverityError, "empty_geometry", "Geometry is empty.", IMDF.Issue{FeatureID: fid})
			continue
		}
		if !Transformer.GeometryIsValid(row.Geometry) {
			addIssue(IMDF.SeverityError, "invalid_geometry", "Geometry is invalid.", IMDF.Issue{
				FeatureID:      fid,
				AutoFixable:    true,
				FixDescription: "Run make_valid() to repair geometry.",
			})
		}
		if coordsOutOfBounds(row.Geometry) {
			addIssue(IMDF.SeverityError, "coordinates_out_of_bounds", "Coordinates are out of bounds.", IMDF.Issue{FeatureID: fid})
		}
		centroid := methods.GeomCentroid(row.Geometry)
		if math.Abs(centroid[0]) < 1 && math.Abs(centroid[1]) < 1 {
			addIssue(IMDF.SeverityError, "null_island_detection", "Feature appears near Null Island.", IMDF.Issue{FeatureID: fid})
		}
		if maxDecimals(row.Geometry) > 7 {
			addIssue(IMDF.SeverityWarning, "excessive_precision", "Geometry precision is above 7 decimal places.", IMDF.Issue{
				FeatureID:      fid,
				AutoFixable:    true,
				FixDescription: "Round coordinates to 7 decimal places.",
			})
		}
		if fid != "" {
			geomsByID[fid] = row.Geometry
		}
	}

	levelGeoms := make(map[string]orb.Geometry)
	for fid := range levelIDs {
		if geom, ok := geomsByID[fid]; ok {
			levelGeoms[fid] = geom
		}
	}

	unitsByLevel := make(map[string][]unitEntry)
	var unitLevelOrder []string

	for _, row := range rows {
		fid := row.ID
		ftype := string(row.Type)
		var geom orb.Geometry
		if fid != "" {
			geom = geomsByID[fid]
		}

		for _, entry := range featureLabelEntries(row) {
			if entry.labels != nil && !labelsOK(entry.labels) {
				addIssue(IMDF.SeverityError, "labels_format_valid", fmt.Sprintf("'%s' must be LABELS object.", entry.key), IMDF.Issue{FeatureID: fid})
			}
		}

		if dp := featureDisplayPoint(row); geom != nil && dp != nil && !pointInGeometry(dp, geom) {
			addIssue(IMDF.SeverityError, "display_point_within_geometry", "display_point is outside geometry.", IMDF.Issue{FeatureID: fid})
		}

		if IMDF.LevelLinkedTypes[row.Type] {
			levelID := ""
			if linked, ok := row.Props.(IMDF.LevelLinked); ok {
				levelID = linked.GetLevelID()
			}
			if levelID == "" {
				addIssue(IMDF.SeverityError, ftype+"_missing_level_id_error", fmt.Sprintf("%s is missing level_id.", titleWord(ftype)), IMDF.Issue{FeatureID: fid})
			} else if !levelIDs[levelID] {
				addIssue(IMDF.SeverityError, "orphaned_reference_error", "Feature has invalid level_id.", IMDF.Issue{FeatureID: fid})
			}
		}

		switch props := row.Props.(type) {
		case *IMDF.UnitProps:
			if strings.TrimSpace(props.Category) == "" {
				addIssue(IMDF.SeverityError, "unit_missing_category_error", "Unit has no category.", IMDF.Issue{FeatureID: fid})
			} else if strings.ToLower(strings.TrimSpace(props.Category)) == "unspecified" {
				addIssue(IMDF.SeverityWarning, "unspecified_category", "Unit category is unspecified.", IMDF.Issue{FeatureID: fid})
			}
			if fid != "" && geom != nil {
				if _, seen := unitsByLevel[props.LevelID]; !seen {
					unitLevelOrder = append(unitLevelOrder, props.LevelID)
				}
				unitsByLevel[props.LevelID] = append(unitsByLevel[props.LevelID], unitEntry{id: fid, geom: geom})
			}
			if geom != nil && methods.GeomArea(geom) < sliverArea {
				addIssue(IMDF.SeverityWarning, "sliver_polygon_warning", "Unit appears to be a sliver polygon.", IMDF.Issue{FeatureID: fid})
			}
		case *IMDF.OpeningProps:
			if props.Category == "" {
				addIssue(IMDF.SeverityError, "opening_missing_category_error", "Opening has no category.", IMDF.Issue{FeatureID: fid})
			}
		case *IMDF.FixtureProps:
			if props.Category == "" {
				addIssue(IMDF.SeverityError, "fixture_missing_category_error", "Fixture has no category.", IMDF.Issue{FeatureID: fid})
			}
		case *IMDF.DetailProps:
			if geom != nil && methods.GeomLength(geom) == 0 {
				addIssue(IMDF.SeverityWarning, "detail_degenerate_line", "Detail line has zero length.", IMDF.Issue{FeatureID: fid})
			}
		case *IMDF.LevelProps:
			if props.Ordinal == nil {
				addIssue(IMDF.SeverityError, "level_missing_ordinal_error", "Level is missing ordinal.", IMDF.Issue{FeatureID: fid})
			}
			if !labelsOK(props.ShortName) {
				addIssue(IMDF.SeverityError, "level_missing_short_name_error", "Level is missing short_name.", IMDF.Issue{FeatureID: fid})
			}
			if props.Outdoor == nil {
				addIssue(IMDF.SeverityError, "level_missing_outdoor_error", "Level is missing outdoor boolean.", IMDF.Issue{FeatureID: fid})
			}
			if len(props.BuildingIDs) == 0 {
				addIssue(IMDF.SeverityError, "level_missing_building_ids_error", "Level is missing building_ids.", IMDF.Issue{FeatureID: fid})
			} else {
				for _, bid := range props.BuildingIDs {
					if !buildingIDs[bid] {
						addIssue(IMDF.SeverityError, "orphaned_reference_error", "Level building_ids include missing building.", IMDF.Issue{FeatureID: fid})
						break
					}
				}
			}
		case *IMDF.FootprintProps:
			if props.Category == "" {
				addIssue(IMDF.SeverityError, "footprint_missing_category_error", "Footprint is missing category.", IMDF.Issue{FeatureID: fid})
			}
			if len(props.BuildingIDs) == 0 {
				addIssue(IMDF.SeverityError, "footprint_missing_building_ids_error", "Footprint is missing building_ids.", IMDF.Issue{FeatureID: fid})
			} else {
				for _, bid := range props.BuildingIDs {
					if !buildingIDs[bid] {
						addIssue(IMDF.SeverityError, "orphaned_reference_error", "Footprint building_ids include missing building.", IMDF.Issue{FeatureID: fid})
						break
					}
				}
			}
		case *IMDF.VenueProps:
			if props.AddressID == nil || *props.AddressID == "" {
				addIssue(IMDF.SeverityError, "venue_missing_address_error", "Venue is missing address_id.", IMDF.Issue{FeatureID: fid})
			} else if !addressIDs[*props.AddressID] {
				addIssue(IMDF.SeverityError, "venue_missing_address_id", "Venue address_id does not match an address feature.", IMDF.Issue{FeatureID: fid})
			}
			if props.DisplayPoint == nil {
				addIssue(IMDF.SeverityError, "venue_missing_display_point_error", "Venue is missing display_point.", IMDF.Issue{FeatureID: fid})
			}
		case *IMDF.BuildingProps:
			if props.AddressID != nil && !addressIDs[*props.AddressID] {
				addIssue(IMDF.SeverityError, "building_address_id_valid", "Building address_id does not match an address feature.", IMDF.Issue{FeatureID: fid})
			}
		}
	}

	for _, levelID := range unitLevelOrder {
		pairs := unitsByLevel[levelID]
		levelGeom := levelGeoms[levelID]
		for _, unit := range pairs {
			if levelGeom != nil && !methods.ContainsOrTouches(levelGeom, methods.GeomCentroid(unit.geom)) {
				addIssue(IMDF.SeverityWarning, "unit_outside_level_warning", "Unit centroid is outside assigned level.", IMDF.Issue{FeatureID: unit.id})
			}
		}
		for i := 0; i < len(pairs); i++ {
			for j := i + 1; j < len(pairs); j++ {
				left, right := pairs[i], pairs[j]
				overlap := methods.IntersectionGeom(left.geom, right.geom)
				if overlap == nil || methods.GeomIsEmpty(overlap) || methods.GeomArea(overlap) <= 0 {
					continue
				}
				overlapGeoJSON := geojson.NewGeometry(overlap)
				addIssue(IMDF.SeverityWarning, "overlapping_units", fmt.Sprintf("Overlaps with unit %s.", shortID(right.id)), IMDF.Issue{
					FeatureID:        left.id,
					RelatedFeatureID: right.id,
					OverlapGeometry:  overlapGeoJSON,
				})
				addIssue(IMDF.SeverityWarning, "overlapping_units", fmt.Sprintf("Overlaps with unit %s.", shortID(left.id)), IMDF.Issue{
					FeatureID:        right.id,
					RelatedFeatureID: left.id,
					OverlapGeometry:  overlapGeoJSON,
				})
			}
		}
	}

	// 同层同类的重复几何, 后出现者指向先出现者
	geometryHashes := make(map[string]string)
	for _, row := range rows {
		fid := row.ID
		if fid == "" {
			continue
		}
		geom, ok := geomsByID[fid]
		if !ok {
			continue
		}
		if !IMDF.LevelLinkedTypes[row.Type] {
			continue
		}
		levelID := ""
		if linked, ok := row.Props.(IMDF.LevelLinked); ok {
			levelID = linked.GetLevelID()
		}
		key := string(row.Type) + "|" + levelID + "|" + methods.GeomMD5(geom)
		if existing := geometryHashes[key]; existing != "" {
			addIssue(IMDF.SeverityWarning, "duplicate_geometry_warning", "Feature geometry duplicates another feature.", IMDF.Issue{
				FeatureID:        fid,
				RelatedFeatureID: existing,
				FixDescription:   "Delete one duplicate feature.",
			})
		} else {
			geometryHashes[key] = fid
		}
	}

	var venueGeom orb.Geometry
	for _, row := range rows {
		if row.Type == IMDF.TypeVenue && row.ID != "" {
			if geom, ok := geomsByID[row.ID]; ok {
				venueGeom = geom
				break
			}
		}
	}
	var footprints []orb.Geometry
	for _, row := range rows {
		if row.Type == IMDF.TypeFootprint && row.ID != "" {
			if geom, ok := geomsByID[row.ID]; ok {
				footprints = append(footprints, geom)
			}
		}
	}
	if venueGeom != nil {
		for _, row := range rows {
			if row.Type != IMDF.TypeFootprint || row.ID == "" {
				continue
			}
			geom, ok := geomsByID[row.ID]
			if !ok {
				continue
			}
			if !methods.ContainsOrTouches(venueGeom, methods.GeomCentroid(geom)) {
				addIssue(IMDF.SeverityWarning, "footprint_outside_venue_warning", "Footprint centroid is outside venue.", IMDF.Issue{FeatureID: row.ID})
			}
		}
	}
	if len(footprints) > 0 {
		footprintsUnion := methods.UnionAll(footprints)
		for _, row := range rows {
			if row.Type != IMDF.TypeLevel || row.ID == "" {
				continue
			}
			geom, ok := geomsByID[row.ID]
			if !ok {
				continue
			}
			if !methods.ContainsOrTouches(footprintsUnion, methods.GeomCentroid(geom)) {
				addIssue(IMDF.SeverityWarning, "level_outside_footprint_warning", "Level centroid is outside footprint.", IMDF.Issue{FeatureID: row.ID})
			}
		}
	}

	for _, row := range rows {
		fid := row.ID
		if fid == "" {
			continue
		}
		geom, ok := geomsByID[fid]
		if !ok {
			continue
		}
		switch props := row.Props.(type) {
		case *IMDF.OpeningProps:
			if line, isLine := geom.(orb.LineString); isLine {
				pairs := unitsByLevel[props.LevelID]
				if props.LevelID != "" && len(pairs) > 0 {
					touching := false
					for _, unit := range pairs {
						if methods.LineToPolygonBoundaryDistance(line, unit.geom) <= boundaryTolerance {
							touching = true
							break
						}
					}
					if !touching {
						addIssue(IMDF.SeverityWarning, "opening_not_touching_boundary", "Opening does not touch any unit boundary.", IMDF.Issue{FeatureID: fid})
					}
				}
				meters := methods.GeomLength(line) * 111320
				if meters < minOpeningMeters {
					addIssue(IMDF.SeverityWarning, "opening_too_short", "Opening length is unusually short.", IMDF.Issue{FeatureID: fid})
				}
				if meters > maxOpeningMeters {
					addIssue(IMDF.SeverityWarning, "opening_too_long", "Opening length is unusually long.", IMDF.Issue{FeatureID: fid})
				}
			}
			if strings.HasPrefix(props.Category, "pedestrian") && props.Door == nil {
				addIssue(IMDF.SeverityWarning, "opening_missing_door_warning", "Pedestrian opening is missing door metadata.", IMDF.Issue{FeatureID: fid})
			}
		case *IMDF.DetailProps:
			if levelGeom, okLevel := levelGeoms[props.LevelID]; okLevel {
				if !methods.LineIntersectsPolygon(geom, levelGeom) {
					addIssue(IMDF.SeverityWarning, "detail_outside_level", "Detail geometry is outside assigned level.", IMDF.Issue{FeatureID: fid})
				}
			}
		}
	}

	ordinalSet := make(map[int]bool)
	for _, row := range rows {
		if props, ok := row.Props.(*IMDF.LevelProps); ok && row.Type == IMDF.TypeLevel && props.Ordinal != nil {
			ordinalSet[*props.Ordinal] = true
		}
	}
	ordinals := make([]int, 0, len(ordinalSet))
	for ordinal := range ordinalSet {
		ordinals = append(ordinals, ordinal)
	}
	sort.Ints(ordinals)
	if len(ordinals) >= 2 {
		var missing []string
		for i := 0; i+1 < len(ordinals); i++ {
			for v := ordinals[i] + 1; v < ordinals[i+1]; v++ {
				missing = append(missing, strconv.Itoa(v))
			}
		}
		if len(missing) > 0 {
			addIssue(IMDF.SeverityWarning, "level_ordinal_gap", fmt.Sprintf("Level ordinals have gap(s): %s.", strings.Join(missing, ", ")), IMDF.Issue{})
		}
	}
	sortedLevelIDs := make([]string, 0, len(levelIDs))
	for fid := range levelIDs {
		sortedLevelIDs = append(sortedLevelIDs, fid)
	}
	sort.Strings(sortedLevelIDs)
	for _, levelID := range sortedLevelIDs {
		if len(unitsByLevel[levelID]) == 0 {
			addIssue(IMDF.SeverityWarning, "level_no_units", "Level has no units assigned.", IMDF.Issue{FeatureID: levelID})
		}
	}

	failedChecks := make(map[string]bool)
	autoFixable := 0
	for _, issue := range errors {
		failedChecks[issue.Check] = true
		if issue.AutoFixable {
			autoFixable++
		}
	}
	unspecifiedCount := 0
	overlapCount := 0
	openingIssues := 0
	for _, issue := range warnings {
		failedChecks[issue.Check] = true
		if issue.AutoFixable {
			autoFixable++
		}
		switch {
		case issue.Check == "unspecified_category":
			unspecifiedCount++
		case issue.Check == "overlapping_units":
			overlapCount++
		}
		if strings.HasPrefix(issue.Check, "opening_") {
			openingIssues++
		}
	}

	var passed []string
	for _, name := range []string{"unique_uuids", "valid_geometry", "venue_exists", "building_exists", "labels_format_valid", "display_points_valid"} {
		if !failedChecks[name] {
			passed = append(passed, name)
		}
	}
	sort.Strings(passed)

	if errors == nil {
		errors = []IMDF.Issue{}
	}
	if warnings == nil {
		warnings = []IMDF.Issue{}
	}
	if passed == nil {
		passed = []string{}
	}
	return &models.ValidationResponse{
		Errors:   errors,
		Warnings: warnings,
		Passed:   passed,
		Summary: models.ValidationSummary{
			TotalFeatures:      len(rows),
			ByType:             byType,
			ErrorCount:         len(errors),
			WarningCount:       len(warnings),
			AutoFixableCount:   autoFixable,
			ChecksPassed:       len(passed),
			ChecksFailed:       len(failedChecks),
			UnspecifiedCount:   unspecifiedCount,
			OverlapCount:       overlapCount,
			OpeningIssuesCount: openingIssues,
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func featureCategory(f *IMDF.Feature) string {
	if categorized, ok := f.Props.(IMDF.Categorized); ok {
		return categorized.GetCategory()
	}
	return ""
}

// AnnotateFeatureCollection 把校验结论写回每个要素的status与issues
// 状态优先级: error > warning > unspecified > mapped
func AnnotateFeatureCollection(fc *IMDF.FeatureCollection, validation *models.ValidationResponse) *IMDF.FeatureCollection {
	annotated := fc.Clone()
	if annotated == nil || validation == nil {
		return annotated
	}

	issuesByID := make(map[string][]IMDF.Issue)
	for _, issue := range validation.Errors {
		if issue.FeatureID != "" {
			issuesByID[issue.FeatureID] = append(issuesByID[issue.FeatureID], issue)
		}
	}
	for _, issue := range validation.Warnings {
		if issue.FeatureID != "" {
			issuesByID[issue.FeatureID] = append(issuesByID[issue.FeatureID], issue)
		}
	}

	for _, row := range annotated.Features {
		if row == nil {
			continue
		}
		var issues []IMDF.Issue
		if row.ID != "" {
			issues = issuesByID[row.ID]
		}
		hasError := false
		hasWarning := false
		for _, issue := range issues {
			if issue.Severity == IMDF.SeverityError {
				hasError = true
			}
			if issue.Severity == IMDF.SeverityWarning {
				hasWarning = true
			}
		}
		category := featureCategory(row)
		switch {
		case hasError:
			row.Review.Status = "error"
		case hasWarning:
			row.Review.Status = "warning"
		case strings.ToLower(strings.TrimSpace(category)) == "unspecified":
			row.Review.Status = "unspecified"
		default:
			row.Review.Status = "mapped"
		}
		if issues == nil {
			issues = []IMDF.Issue{}
		}
		row.Review.Issues = issues
	}
	return annotated
}
