package domain

import (
	"strconv"
	"strings"
)

// Level is a depth in the administrative hierarchy.
type Level int

const (
	LevelCountry Level = 1
	LevelVRG     Level = 8
)

// SchemeVRG is the village-grid scheme tag.
const SchemeVRG = "CRSVG"

const (
	schemePrefix    = "CRSL"
	areaLevelPrefix = "AREA_LEVEL_"
	aggregationVRG  = "VRG"
	maxAdminLevel   = 7
)

// ParseScheme maps a GeogScheme1 tag to its level.
func ParseScheme(tag string) (Level, bool) {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == SchemeVRG {
		return LevelVRG, true
	}
	if len(tag) != len(schemePrefix)+1 || !strings.HasPrefix(tag, schemePrefix) {
		return 0, false
	}
	n := int(tag[len(schemePrefix)] - '0')
	if n < int(LevelCountry) || n > maxAdminLevel {
		return 0, false
	}
	return Level(n), true
}

// parseAggregationLevel maps an AGGREGATION_LEVEL value (VRG, AREA_LEVEL_n).
func parseAggregationLevel(v string) (Level, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == aggregationVRG {
		return LevelVRG, true
	}
	if !strings.HasPrefix(v, areaLevelPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(v, areaLevelPrefix))
	if err != nil || n < int(LevelCountry) || n > maxAdminLevel {
		return 0, false
	}
	return Level(n), true
}

// Scheme returns the GeogScheme1 tag for the level.
func (l Level) Scheme() string {
	if l == LevelVRG {
		return SchemeVRG
	}
	return schemePrefix + strconv.Itoa(int(l))
}

// SheetName returns the AREA_LEVEL_n name used by the reference workbook.
func (l Level) SheetName() string {
	return areaLevelPrefix + strconv.Itoa(int(l))
}

func (l Level) String() string {
	return l.Scheme()
}

// AdminLevels lists the administrative levels with a name mapping table.
func AdminLevels() []Level {
	levels := make([]Level, 0, maxAdminLevel)
	for l := LevelCountry; l <= maxAdminLevel; l++ {
		levels = append(levels, l)
	}
	return levels
}
