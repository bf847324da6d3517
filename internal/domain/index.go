package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateAreaKey is returned when two area records share an index key.
var ErrDuplicateAreaKey = errors.New("duplicate area key")

// AdminKey addresses an administrative area record.
type AdminKey struct {
	Country string
	Name    string
	Peril   string
}

// NewAdminKey builds an upper-cased key.
func NewAdminKey(country, name, peril string) AdminKey {
	return AdminKey{Country: upper(country), Name: upper(name), Peril: upper(peril)}
}

// CellKey addresses a village-grid cell by its area-peril id.
type CellKey struct {
	AreaPerilID string
	Peril       string
}

// NewCellKey builds an upper-cased key.
func NewCellKey(areaPerilID, peril string) CellKey {
	return CellKey{AreaPerilID: upper(areaPerilID), Peril: upper(peril)}
}

// NameKey addresses a local administrative name at one level.
type NameKey struct {
	Level     Level
	LocalName string
	Country   string
}

// ConstructionKey addresses a construction class for one peril.
type ConstructionKey struct {
	Class string
	Peril string
}

// ReferenceIndex is the immutable lookup structure built from the reference
// tables. It is safe for concurrent reads.
type ReferenceIndex struct {
	byAdmin   map[AdminKey]AreaRecord
	byCell    map[CellKey]AreaRecord
	vrgCells  map[string][]AreaRecord
	names     map[Level]map[string]struct{}
	countries map[string]string
	nameMap   map[NameKey]string

	vulnerabilities map[string]int
	classes         map[string]struct{}
	constructions   map[ConstructionKey]ConstructionClassEntry
	occupancies     map[string]OccupancyEntry
}

// NewReferenceIndex builds the index. Area key collisions are rejected; for
// the other tables the first entry for a key wins.
func NewReferenceIndex(t ReferenceTables) (*ReferenceIndex, error) {
	ix := &ReferenceIndex{
		byAdmin:         make(map[AdminKey]AreaRecord),
		byCell:          make(map[CellKey]AreaRecord),
		vrgCells:        make(map[string][]AreaRecord),
		names:           make(map[Level]map[string]struct{}),
		countries:       make(map[string]string),
		nameMap:         make(map[NameKey]string),
		vulnerabilities: make(map[string]int, len(t.Vulnerabilities)),
		classes:         make(map[string]struct{}),
		constructions:   make(map[ConstructionKey]ConstructionClassEntry),
		occupancies:     make(map[string]OccupancyEntry),
	}

	if err := ix.addAreas(t.Areas); err != nil {
		return nil, err
	}
	ix.addAdminNames(t.AdminNames)

	for _, v := range t.Vulnerabilities {
		code := upper(v.Code)
		if _, ok := ix.vulnerabilities[code]; !ok {
			ix.vulnerabilities[code] = v.ID
		}
	}
	for _, c := range t.ConstructionClasses {
		ix.classes[upper(c.Class)] = struct{}{}
		key := ConstructionKey{Class: upper(c.Class), Peril: upper(c.PerilCode)}
		if _, ok := ix.constructions[key]; !ok {
			ix.constructions[key] = c
		}
	}
	for _, o := range t.Occupancies {
		code := upper(o.Code)
		if _, ok := ix.occupancies[code]; !ok {
			ix.occupancies[code] = o
		}
	}
	return ix, nil
}

func (ix *ReferenceIndex) addAreas(areas []AreaRecord) error {
	var duplicates []string
	for _, a := range areas {
		level, ok := parseAggregationLevel(a.AggregationLevel)
		if !ok {
			return fmt.Errorf("area peril %d: unknown aggregation level %q", a.AreaPerilID, a.AggregationLevel)
		}
		country := upper(a.Country())

		if level == LevelVRG {
			key := NewCellKey(itoa(a.AreaPerilID), a.PerilCode)
			if _, exists := ix.byCell[key]; exists {
				duplicates = append(duplicates, fmt.Sprintf("(%s, %s)", key.AreaPerilID, key.Peril))
				continue
			}
			ix.byCell[key] = a
			ix.vrgCells[country] = append(ix.vrgCells[country], a)
			continue
		}

		key := NewAdminKey(country, a.NameAt(level), a.PerilCode)
		if _, exists := ix.byAdmin[key]; exists {
			duplicates = append(duplicates, fmt.Sprintf("(%s, %s, %s)", key.Country, key.Name, key.Peril))
			continue
		}
		ix.byAdmin[key] = a
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return fmt.Errorf("%w: %d collisions, first %s", ErrDuplicateAreaKey, len(duplicates), duplicates[0])
	}
	return nil
}

func (ix *ReferenceIndex) addAdminNames(tables map[Level][]AdminNameMapping) {
	for level, rows := range tables {
		names := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			local := upper(r.LocalName)
			names[local] = struct{}{}
			if level == LevelCountry {
				if _, ok := ix.countries[local]; !ok {
					ix.countries[local] = upper(r.ModelName)
				}
			}
			key := NameKey{Level: level, LocalName: local, Country: upper(r.CountryKey)}
			if _, ok := ix.nameMap[key]; !ok {
				ix.nameMap[key] = r.ModelName
			}
		}
		ix.names[level] = names
	}
}

// AreaByName looks up an administrative area record.
func (ix *ReferenceIndex) AreaByName(country, name, peril string) (AreaRecord, bool) {
	a, ok := ix.byAdmin[NewAdminKey(country, name, peril)]
	return a, ok
}

// AreaByCell looks up a village-grid cell.
func (ix *ReferenceIndex) AreaByCell(areaPerilID, peril string) (AreaRecord, bool) {
	a, ok := ix.byCell[NewCellKey(areaPerilID, peril)]
	return a, ok
}

// VRGCells returns the village-grid cells of a country. The slice must not be
// modified.
func (ix *ReferenceIndex) VRGCells(country string) []AreaRecord {
	return ix.vrgCells[upper(country)]
}

// IsKnownName reports whether a local name appears in the level's mapping table.
func (ix *ReferenceIndex) IsKnownName(level Level, name string) bool {
	_, ok := ix.names[level][upper(name)]
	return ok
}

// ModelCountry translates a local country code to the model's country.
func (ix *ReferenceIndex) ModelCountry(local string) (string, bool) {
	c, ok := ix.countries[upper(local)]
	return c, ok
}

// ModelName translates a local administrative name for a country.
func (ix *ReferenceIndex) ModelName(level Level, local, country string) (string, bool) {
	n, ok := ix.nameMap[NameKey{Level: level, LocalName: upper(local), Country: upper(country)}]
	return n, ok
}

// VulnerabilityID looks up a composite vulnerability code.
func (ix *ReferenceIndex) VulnerabilityID(code string) (int, bool) {
	id, ok := ix.vulnerabilities[upper(code)]
	return id, ok
}

// HasConstructionClass reports whether the class exists for any peril.
func (ix *ReferenceIndex) HasConstructionClass(class string) bool {
	_, ok := ix.classes[upper(class)]
	return ok
}

// Construction looks up a construction class for a peril.
func (ix *ReferenceIndex) Construction(class, peril string) (ConstructionClassEntry, bool) {
	c, ok := ix.constructions[ConstructionKey{Class: upper(class), Peril: upper(peril)}]
	return c, ok
}

// Occupancy looks up an occupancy code.
func (ix *ReferenceIndex) Occupancy(code string) (OccupancyEntry, bool) {
	o, ok := ix.occupancies[upper(code)]
	return o, ok
}
