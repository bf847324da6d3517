package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixture geography: Morocco (reported as MAR or MOR) with two level-2 regions
// and three level-3 areas, plus one Turkish cell reachable from the grid.
//
//	MOR
//	└── MOR-NORTH (2001)
//	    ├── MOR-RABAT (3001): cells 9001 (pop 100), 9002 (pop 300)
//	    └── MOR-SALE  (3002): cell 9003 (pop 600)
//	MOR-SOUTH (2002): cell 9004 (pop 0)
//	TUR: cell 9100
func fixtureAreas() []AreaRecord {
	admin := func(id int, level Level, country string, names ...string) AreaRecord {
		a := AreaRecord{AreaPerilID: id, AreaID: id, PerilCode: "QEQ", AggregationLevel: level.SheetName()}
		a.AreaLevels[1] = country
		for i, n := range names {
			a.AreaLevels[i+2] = n
		}
		return a
	}
	cell := func(id int, country, l2, l3 string, pop, lon, lat float64) AreaRecord {
		a := AreaRecord{
			AreaPerilID: id, AreaID: id, PerilCode: "QEQ", AggregationLevel: "VRG",
			Population: pop, Lon: lon, Lat: lat,
		}
		a.AreaLevels[1] = country
		a.AreaLevels[2] = l2
		a.AreaLevels[3] = l3
		for l := 4; l <= 7; l++ {
			a.AreaLevels[l] = "Null"
		}
		a.AreaLevels[8] = itoa(id)
		return a
	}
	return []AreaRecord{
		admin(1001, 1, "MOR"),
		admin(1002, 1, "TUR"),
		admin(2001, 2, "MOR", "MOR-NORTH"),
		admin(2002, 2, "MOR", "MOR-SOUTH"),
		admin(3001, 3, "MOR", "MOR-NORTH", "MOR-RABAT"),
		admin(3002, 3, "MOR", "MOR-NORTH", "MOR-SALE"),
		cell(9001, "MOR", "MOR-NORTH", "MOR-RABAT", 100, -7.0, 33.5),
		cell(9002, "MOR", "MOR-NORTH", "MOR-RABAT", 300, -6.5, 33.5),
		cell(9003, "MOR", "MOR-NORTH", "MOR-SALE", 600, -7.0, 33.0),
		cell(9004, "MOR", "MOR-SOUTH", "Null", 0, -5.5, 33.0),
		cell(9100, "TUR", "TUR-WEST", "TUR-IZMIR", 50, -6.5, 34.0),
	}
}

func fixtureTables() ReferenceTables {
	return ReferenceTables{
		Areas: fixtureAreas(),
		AdminNames: map[Level][]AdminNameMapping{
			1: {
				{LocalName: "MAR", CountryKey: "MOR", ModelName: "MOR"},
				{LocalName: "MOR", CountryKey: "MOR", ModelName: "MOR"},
				{LocalName: "TUR", CountryKey: "TUR", ModelName: "TUR"},
				{LocalName: "NA", CountryKey: "NA", ModelName: "NA"},
			},
			2: {
				{LocalName: "MOR-NORTH", CountryKey: "MOR", ModelName: "MOR-NORTH"},
				{LocalName: "NORD", CountryKey: "MOR", ModelName: "MOR-NORTH"},
				{LocalName: "MOR-SOUTH", CountryKey: "MOR", ModelName: "MOR-SOUTH"},
			},
			3: {
				{LocalName: "MAR-RABAT", CountryKey: "MOR", ModelName: "MOR-RABAT"},
				{LocalName: "MOR-RABAT", CountryKey: "MOR", ModelName: "MOR-RABAT"},
				{LocalName: "MOR-SALE", CountryKey: "MOR", ModelName: "MOR-SALE"},
			},
		},
		Vulnerabilities: []VulnerabilityEntry{
			{ID: 5001, Code: "MOR-QEQ-R-B-RCF-LR-GQU"},
			{ID: 5002, Code: "MOR-QEQ-R-C-RCF-LR-GQU"},
			{ID: 5003, Code: "MOR-QEQ-R-I-RCF-LR-GQU"},
			{ID: 5004, Code: "MOR-QEQ-A-B-MAS-LR-LQU"},
		},
		ConstructionClasses: []ConstructionClassEntry{
			{Class: "5050", PerilCode: "QEQ", StructuralType: "RCF", QualityCode: "MQU"},
			{Class: "5100", PerilCode: "QEQ", StructuralType: "MAS", QualityCode: "LQU"},
			{Class: "5200", PerilCode: "QEQ", StructuralType: "XXX", QualityCode: "GQU"},
		},
		Occupancies: []OccupancyEntry{
			{Code: "1050", RiskCode: "R"},
			{Code: "1100", RiskCode: "A"},
		},
	}
}

// fixtureGrid is 4x3 cells of 0.5 degrees anchored at (-7.0, 33.0).
//
//	lat 34.0: -9999  9100 -9999 -9999
//	lat 33.5:  9001  9002 -9999 -9999
//	lat 33.0:  9003 -9999 -9999 -9999
func fixtureGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(GridHeader{
		NCols: 4, NRows: 3, XLLCenter: -7.0, YLLCenter: 33.0, DX: 0.5, DY: 0.5, NoData: -9999,
	}, []int{
		-9999, 9100, -9999, -9999,
		9001, 9002, -9999, -9999,
		9003, -9999, -9999, -9999,
	})
	require.NoError(t, err)
	return g
}

func fixtureIndex(t *testing.T) *ReferenceIndex {
	t.Helper()
	ix, err := NewReferenceIndex(fixtureTables())
	require.NoError(t, err)
	return ix
}

func fixtureEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(fixtureIndex(t), fixtureGrid(t))
}

// location builds a pre-analysis input row with sensible defaults.
func location(t *testing.T, overrides map[string]string) LocationRecord {
	t.Helper()
	row := Row{
		ColPortNumber:        "1",
		ColAccNumber:         "1",
		ColLocNumber:         "1",
		ColCountryCode:       "MOR",
		ColGeogScheme1:       "CRSL3",
		ColGeogName1:         "MOR-RABAT",
		ColLatitude:          "",
		ColLongitude:         "",
		ColLocPerilsCovered:  "QEQ",
		ColConstructionCode:  "5050",
		ColOccupancyCode:     "1050",
		ColNumberOfStoreys:   "2",
		ColYearBuilt:         "2000",
		ColDisaggKey:         "0",
		ColNumberOfBuildings: "10",
		"BuildingTIV":        "1000000",
		"ContentsTIV":        "400000",
		"BITIV":              "200000",
		"OtherTIV":           "0",
	}
	for k, v := range overrides {
		row[k] = v
	}
	rec, err := ParseLocation(row, PreAnalysisSchema)
	require.NoError(t, err)
	return rec
}
