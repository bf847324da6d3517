package domain

import (
	"fmt"
	"strings"
)

// UnknownID marks an unresolved area-peril or vulnerability id.
const UnknownID = -1

// Match is the outcome of an area-peril resolution.
type Match struct {
	AreaPerilID  int
	Level        Level
	Message      string
	CrossCountry bool
}

// Resolved reports whether an area-peril id was found.
func (m Match) Resolved() bool {
	return m.AreaPerilID != UnknownID
}

// strategy is one step of the resolution chain. A miss returns a Match whose
// message explains it.
type strategy interface {
	accepts(loc LocationRecord) bool
	tryResolve(loc LocationRecord) (Match, bool)
}

// gridStrategy maps coordinates to a village-grid cell.
type gridStrategy struct {
	grid  *Grid
	index *ReferenceIndex
}

func (s gridStrategy) accepts(loc LocationRecord) bool {
	_, _, ok := loc.Point()
	return ok && s.grid != nil
}

func (s gridStrategy) tryResolve(loc LocationRecord) (Match, bool) {
	lon, lat, _ := loc.Point()
	id, ok := s.grid.Lookup(lon, lat)
	if !ok {
		return Match{AreaPerilID: UnknownID, Message: "No valid VRG cell for the given location"}, false
	}
	area, ok := s.index.AreaByCell(itoa(id), loc.Perils)
	if !ok {
		return Match{AreaPerilID: UnknownID, Message: fmt.Sprintf("VRG cell %d has no area for peril %s", id, loc.Perils)}, false
	}

	dist := ChordDistance(lon, lat, area.Lon, area.Lat)
	m := Match{AreaPerilID: id, Level: LevelVRG}
	if upper(area.Country()) == upper(loc.Country) {
		m.Message = fmt.Sprintf("Mapped by Lon/Lat to VRG in: %s, distance of %.2f km", area.Country(), dist)
	} else {
		m.CrossCountry = true
		m.Message = fmt.Sprintf("Warning-Mapped by Lon/Lat to VRG but in another country:'%s', distance of %.2f km", upper(area.Country()), dist)
	}
	return m, true
}

// schemeStrategy looks a reported name up at one level.
type schemeStrategy struct {
	level Level
	label string
	index *ReferenceIndex
}

func (s schemeStrategy) accepts(loc LocationRecord) bool {
	l, ok := ParseScheme(loc.Scheme)
	return ok && l == s.level
}

func (s schemeStrategy) tryResolve(loc LocationRecord) (Match, bool) {
	var (
		area AreaRecord
		ok   bool
	)
	if s.level == LevelVRG {
		area, ok = s.index.AreaByCell(loc.GeoName, loc.Perils)
	} else {
		area, ok = s.index.AreaByName(loc.Country, loc.GeoName, loc.Perils)
	}
	if !ok {
		return Match{
			AreaPerilID: UnknownID,
			Message:     fmt.Sprintf("'%s' is not a valid %s in: '%s'", loc.GeoName, s.label, loc.Country),
		}, false
	}

	m := Match{AreaPerilID: area.AreaPerilID, Level: s.level}
	if upper(area.Country()) == upper(loc.Country) {
		m.Message = fmt.Sprintf("Mapped by %s: %d", s.label, area.AreaPerilID)
	} else {
		m.CrossCountry = true
		m.Message = fmt.Sprintf("Warning-Mapped by %s in another country:'%s'", s.label, upper(area.Country()))
	}
	return m, true
}

// countryStrategy is the terminal fallback and accepts every location.
type countryStrategy struct {
	index *ReferenceIndex
}

func (countryStrategy) accepts(LocationRecord) bool { return true }

func (s countryStrategy) tryResolve(loc LocationRecord) (Match, bool) {
	area, ok := s.index.AreaByName(loc.Country, loc.Country, loc.Perils)
	if !ok {
		return Match{
			AreaPerilID: UnknownID,
			Level:       LevelCountry,
			Message:     fmt.Sprintf("%s is not a valid country name", loc.Country),
		}, false
	}
	return Match{
		AreaPerilID: area.AreaPerilID,
		Level:       LevelCountry,
		Message:     fmt.Sprintf("Mapped by country name: %s", upper(loc.Country)),
	}, true
}

// AreaPerilResolver walks the strategy chain in priority order.
type AreaPerilResolver struct {
	strategies []strategy
}

// NewAreaPerilResolver builds the chain: lon/lat, village grid, levels 7 to 2,
// country. grid may be nil, which disables coordinate matching.
func NewAreaPerilResolver(ix *ReferenceIndex, grid *Grid) *AreaPerilResolver {
	return &AreaPerilResolver{strategies: []strategy{
		gridStrategy{grid: grid, index: ix},
		schemeStrategy{level: LevelVRG, label: "VRG", index: ix},
		schemeStrategy{level: 7, label: "L7 Cell", index: ix},
		schemeStrategy{level: 6, label: "L6 Cell", index: ix},
		schemeStrategy{level: 5, label: "City name", index: ix},
		schemeStrategy{level: 4, label: "Municipality ID", index: ix},
		schemeStrategy{level: 3, label: "L3 Admin", index: ix},
		schemeStrategy{level: 2, label: "L2 Admin", index: ix},
		countryStrategy{index: ix},
	}}
}

// Resolve returns the location rewritten to the scheme and name it matched at,
// with the area-peril id and message set. A miss on every strategy leaves the
// id unknown.
func (r *AreaPerilResolver) Resolve(loc LocationRecord) (LocationRecord, Match) {
	if strings.TrimSpace(loc.Country) == "" {
		m := Match{AreaPerilID: UnknownID, Message: "The country code should not be empty!"}
		return applyMatch(loc, m), m
	}

	var notes []string
	if _, ok := ParseScheme(loc.Scheme); !ok {
		notes = append(notes, fmt.Sprintf("'%s' is not a valid GeoScheme", loc.Scheme))
	}

	for _, s := range r.strategies {
		if !s.accepts(loc) {
			continue
		}
		m, ok := s.tryResolve(loc)
		if !ok {
			notes = append(notes, m.Message)
			continue
		}
		m.Message = strings.Join(append(notes, m.Message), "; ")
		return r.hit(loc, m), m
	}

	m := Match{AreaPerilID: UnknownID, Level: LevelCountry, Message: strings.Join(notes, "; ")}
	return r.hit(loc, m), m
}

// hit moves the location to the level it matched at. Country matches, hits
// or misses, reset the name to the country code.
func (r *AreaPerilResolver) hit(loc LocationRecord, m Match) LocationRecord {
	switch m.Level {
	case LevelCountry:
		loc.Scheme = LevelCountry.Scheme()
		loc.GeoName = upper(loc.Country)
	case LevelVRG:
		loc.Scheme = SchemeVRG
		loc.GeoName = itoa(m.AreaPerilID)
	}
	return applyMatch(loc, m)
}

func applyMatch(loc LocationRecord, m Match) LocationRecord {
	loc.AreaPerilID = m.AreaPerilID
	loc.Message = m.Message
	return loc
}
