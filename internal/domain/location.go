package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is returned when a required column is absent from a location.
var ErrMissingField = errors.New("missing field in location record")

// Schema lists the columns a processing phase reads from a location.
type Schema struct {
	Name     string
	Required []string
	Optional []string
}

// PreAnalysisSchema is read by resolution and disaggregation.
var PreAnalysisSchema = Schema{
	Name: "pre-analysis",
	Required: []string{
		ColLocNumber, ColGeogScheme1, ColGeogName1, ColLatitude, ColLongitude,
		ColCountryCode, ColLocPerilsCovered,
	},
	Optional: []string{ColDisaggKey},
}

// KeysSchema is read by the keys lookup on a pre-analysed location file.
var KeysSchema = Schema{
	Name: "keys",
	Required: []string{
		ColLocNumber, ColGeogScheme1, ColGeogName1, ColCountryCode,
		ColConstructionCode, ColOccupancyCode, ColLocPerilsCovered,
		ColAreaPerilID, ColOrigLocNumber, ColLocMessage,
	},
	Optional: []string{ColNumberOfStoreys, ColDisaggKey, ColYearBuilt},
}

// ValidateHeader checks that every required column is present.
func (s Schema) ValidateHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range s.Required {
		if !present[col] {
			return fmt.Errorf("%s: %w: %q", s.Name, ErrMissingField, col)
		}
	}
	return nil
}

// LocationRecord is the typed view of one OED location. Stages take and return
// records by value; the underlying row is cloned before any change.
type LocationRecord struct {
	LocNumber     string
	PortNumber    string
	AccNumber     string
	Country       string
	Scheme        string
	GeoName       string
	Lat           float64
	Lon           float64
	HasLat        bool
	HasLon        bool
	Perils        string
	Construction  string
	Occupancy     string
	Storeys       int
	YearBuilt     int
	DisaggKey     int
	AreaPerilID   int
	OrigLocNumber string
	Message       string

	fields Row
}

// ParseLocation builds a record from a row, failing on any required column
// absent from the row.
func ParseLocation(row Row, s Schema) (LocationRecord, error) {
	for _, col := range s.Required {
		if _, ok := row[col]; !ok {
			return LocationRecord{}, fmt.Errorf("%s: %w: %q", s.Name, ErrMissingField, col)
		}
	}

	rec := LocationRecord{
		LocNumber:     strings.TrimSpace(row[ColLocNumber]),
		PortNumber:    strings.TrimSpace(row[ColPortNumber]),
		AccNumber:     strings.TrimSpace(row[ColAccNumber]),
		Country:       nullToEmpty(row[ColCountryCode]),
		Scheme:        nullToEmpty(row[ColGeogScheme1]),
		GeoName:       nullToEmpty(row[ColGeogName1]),
		Perils:        nullToEmpty(row[ColLocPerilsCovered]),
		Construction:  nullToEmpty(row[ColConstructionCode]),
		Occupancy:     nullToEmpty(row[ColOccupancyCode]),
		OrigLocNumber: nullToEmpty(row[ColOrigLocNumber]),
		Message:       nullToEmpty(row[ColLocMessage]),
		AreaPerilID:   UnknownID,
		fields:        row.Clone(),
	}
	rec.Lat, rec.HasLat = parseFloat(row[ColLatitude])
	rec.Lon, rec.HasLon = parseFloat(row[ColLongitude])
	rec.Storeys, _ = parseInt(row[ColNumberOfStoreys])
	rec.YearBuilt, _ = parseInt(row[ColYearBuilt])
	rec.DisaggKey, _ = parseInt(row[ColDisaggKey])
	if id, ok := parseInt(row[ColAreaPerilID]); ok {
		rec.AreaPerilID = id
	}
	return rec, nil
}

// Point returns the coordinates when both are present and within range.
func (r LocationRecord) Point() (lon, lat float64, ok bool) {
	if !r.HasLat || !r.HasLon {
		return 0, 0, false
	}
	if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
		return 0, 0, false
	}
	return r.Lon, r.Lat, true
}

// Field returns a pass-through column value.
func (r LocationRecord) Field(col string) (string, bool) {
	v, ok := r.fields[col]
	return v, ok
}

// withFields returns a copy of the record using the given pass-through row.
func (r LocationRecord) withFields(row Row) LocationRecord {
	r.fields = row
	return r
}

// Row renders the record back to OED columns.
func (r LocationRecord) Row() Row {
	row := r.fields.Clone()
	row[ColLocNumber] = r.LocNumber
	row[ColCountryCode] = r.Country
	row[ColGeogScheme1] = r.Scheme
	row[ColGeogName1] = r.GeoName
	row[ColLocPerilsCovered] = r.Perils
	row[ColDisaggKey] = itoa(r.DisaggKey)
	row[ColAreaPerilID] = itoa(r.AreaPerilID)
	row[ColOrigLocNumber] = r.OrigLocNumber
	row[ColLocMessage] = r.Message
	row[ColIsAggregate] = "0"
	return row
}

func nullToEmpty(v string) string {
	if IsNull(v) {
		return ""
	}
	return strings.TrimSpace(v)
}
