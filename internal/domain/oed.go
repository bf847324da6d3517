package domain

import (
	"maps"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// OED location columns read or written by the engine.
const (
	ColPortNumber        = "PortNumber"
	ColAccNumber         = "AccNumber"
	ColLocNumber         = "LocNumber"
	ColCountryCode       = "CountryCode"
	ColGeogScheme1       = "GeogScheme1"
	ColGeogName1         = "GeogName1"
	ColLatitude          = "Latitude"
	ColLongitude         = "Longitude"
	ColLocPerilsCovered  = "LocPerilsCovered"
	ColConstructionCode  = "ConstructionCode"
	ColOccupancyCode     = "OccupancyCode"
	ColNumberOfStoreys   = "NumberOfStoreys"
	ColYearBuilt         = "YearBuilt"
	ColNumberOfBuildings = "NumberOfBuildings"
	ColIsAggregate       = "IsAggregate"
	ColDisaggKey         = "FlexiLocDisaggKey"
	ColAreaPerilID       = "FlexiLocAP_ID"
	ColOrigLocNumber     = "FlexiLocNumber"
	ColLocMessage        = "FlexiLocMessage"
)

// OutputColumns are appended to an input header when absent.
var OutputColumns = []string{
	ColAreaPerilID,
	ColDisaggKey,
	ColOrigLocNumber,
	ColLocMessage,
	ColIsAggregate,
}

// Row is one OED location keyed by column header.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	maps.Copy(out, r)
	return out
}

// LocationTable is a header plus its rows in file order.
type LocationTable struct {
	Header []string
	Rows   []Row
}

// OutputHeader returns the header extended with any missing output column.
func (t LocationTable) OutputHeader() []string {
	header := append([]string(nil), t.Header...)
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, c := range OutputColumns {
		if !seen[c] {
			header = append(header, c)
		}
	}
	return header
}

var nullValues = map[string]struct{}{
	"":     {},
	"n/a":  {},
	"N/A":  {},
	"null": {},
	"Null": {},
	"NULL": {},
	"nan":  {},
	"NaN":  {},
}

// IsNull reports whether an OED cell holds one of the null spellings.
func IsNull(v string) bool {
	_, ok := nullValues[strings.TrimSpace(v)]
	return ok
}

func parseFloat(v string) (float64, bool) {
	if IsNull(v) {
		return 0, false
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseInt truncates like the float-then-int conversion OED tools apply to
// integer columns written as "3.0".
func parseInt(v string) (int, bool) {
	f, ok := parseFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// compareNatural orders numerically when both values are numbers.
func compareNatural(a, b string) int {
	fa, okA := parseFloat(a)
	fb, okB := parseFloat(b)
	switch {
	case okA && okB:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
