package domain

import "strconv"

// AreaRecord is one row of the area-peril dictionary.
type AreaRecord struct {
	AreaPerilID      int
	AreaID           int
	PerilCode        string
	Lon              float64
	Lat              float64
	Population       float64
	AreaLevels       [LevelVRG + 1]string // index 0..7 from the sheet; 8 is the area-peril id
	AggregationLevel string
}

// Country returns the record's level-1 name.
func (a AreaRecord) Country() string {
	return a.AreaLevels[LevelCountry]
}

// NameAt returns the record's ancestor name at the given level. At LevelVRG it
// is the area-peril id.
func (a AreaRecord) NameAt(l Level) string {
	if l == LevelVRG {
		return strconv.Itoa(a.AreaPerilID)
	}
	if l < 0 || l > LevelVRG {
		return ""
	}
	return a.AreaLevels[l]
}

// AdminNameMapping translates a local administrative name to the model's name.
type AdminNameMapping struct {
	LocalName  string
	CountryKey string
	ModelName  string
}

// VulnerabilityEntry maps a composite vulnerability code to its curve id.
type VulnerabilityEntry struct {
	ID   int
	Code string
}

// ConstructionClassEntry describes a construction class for one peril.
type ConstructionClassEntry struct {
	Class          string
	PerilCode      string
	StructuralType string
	QualityCode    string
}

// OccupancyEntry maps an OED occupancy code to a vulnerability risk code.
type OccupancyEntry struct {
	Code     string
	RiskCode string
}

// ReferenceTables holds the parsed reference workbook.
type ReferenceTables struct {
	Areas               []AreaRecord
	AdminNames          map[Level][]AdminNameMapping
	Vulnerabilities     []VulnerabilityEntry
	ConstructionClasses []ConstructionClassEntry
	Occupancies         []OccupancyEntry
}
