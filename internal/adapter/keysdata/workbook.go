package keysdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/spf13/cast"
	"github.com/tealeg/xlsx"
)

var (
	// ErrMissingSheet is returned when the workbook lacks a required sheet.
	ErrMissingSheet = errors.New("missing sheet")
	// ErrMissingColumn is returned when a sheet lacks a required column.
	ErrMissingColumn = errors.New("missing column")
)

const (
	sheetAreaPeril     = "DICTAREAPERIL"
	sheetVulnerability = "DICTVULNERABILITY"
	sheetConstruction  = "OED_CONSTRUCTION_CLASS"
	sheetOccupancy     = "OED_OCCUPANCY_SCHEME"
)

// ParseWorkbook reads the reference tables from xlsx bytes.
func ParseWorkbook(data []byte) (domain.ReferenceTables, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return domain.ReferenceTables{}, fmt.Errorf("open workbook: %w", err)
	}

	var t domain.ReferenceTables
	if t.Areas, err = parseAreas(f); err != nil {
		return t, err
	}
	t.AdminNames = make(map[domain.Level][]domain.AdminNameMapping)
	for _, level := range domain.AdminLevels() {
		names, err := parseAdminNames(f, level)
		if err != nil {
			return t, err
		}
		t.AdminNames[level] = names
	}
	if t.Vulnerabilities, err = parseVulnerabilities(f); err != nil {
		return t, err
	}
	if t.ConstructionClasses, err = parseConstructionClasses(f); err != nil {
		return t, err
	}
	if t.Occupancies, err = parseOccupancies(f); err != nil {
		return t, err
	}
	return t, nil
}

// record is one data row keyed by upper-cased header.
type record struct {
	sheet string
	line  int
	cells map[string]string
}

func (r record) str(col string) string {
	return strings.TrimSpace(r.cells[col])
}

func (r record) toInt(col string) (int, error) {
	f, err := cast.ToFloat64E(r.str(col))
	if err != nil {
		return 0, fmt.Errorf("%s row %d: %s: %w", r.sheet, r.line, col, err)
	}
	return int(f), nil
}

// toFloat treats null spellings as zero.
func (r record) toFloat(col string) (float64, error) {
	v := r.str(col)
	if domain.IsNull(v) {
		return 0, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%s row %d: %s: %w", r.sheet, r.line, col, err)
	}
	return f, nil
}

// readSheet returns the data rows of a sheet, skipping blank rows. The first
// row is the header.
func readSheet(f *xlsx.File, name string, required ...string) ([]record, error) {
	sheet, ok := f.Sheet[name]
	if !ok || len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingSheet, name)
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	present := make(map[string]bool, len(header))
	for i, c := range sheet.Rows[0].Cells {
		header[i] = strings.ToUpper(strings.TrimSpace(c.Value))
		present[header[i]] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, fmt.Errorf("%s: %w: %s", name, ErrMissingColumn, col)
		}
	}

	records := make([]record, 0, len(sheet.Rows)-1)
	for i, row := range sheet.Rows[1:] {
		rec := record{sheet: name, line: i + 2, cells: make(map[string]string, len(header))}
		blank := true
		for j, c := range row.Cells {
			if j >= len(header) || header[j] == "" {
				continue
			}
			rec.cells[header[j]] = c.Value
			if strings.TrimSpace(c.Value) != "" {
				blank = false
			}
		}
		if !blank {
			records = append(records, rec)
		}
	}
	return records, nil
}

func parseAreas(f *xlsx.File) ([]domain.AreaRecord, error) {
	levelCols := make([]string, 0, 7)
	for _, l := range domain.AdminLevels() {
		levelCols = append(levelCols, l.SheetName())
	}
	required := append([]string{"AREA_PERIL_ID", "AREA_ID", "PERIL_CODE", "LON", "LAT", "POPULATION", "AGGREGATION_LEVEL"}, levelCols...)

	rows, err := readSheet(f, sheetAreaPeril, required...)
	if err != nil {
		return nil, err
	}

	areas := make([]domain.AreaRecord, 0, len(rows))
	for _, r := range rows {
		var a domain.AreaRecord
		if a.AreaPerilID, err = r.toInt("AREA_PERIL_ID"); err != nil {
			return nil, err
		}
		if a.AreaID, err = r.toInt("AREA_ID"); err != nil {
			return nil, err
		}
		if a.Lon, err = r.toFloat("LON"); err != nil {
			return nil, err
		}
		if a.Lat, err = r.toFloat("LAT"); err != nil {
			return nil, err
		}
		if a.Population, err = r.toFloat("POPULATION"); err != nil {
			return nil, err
		}
		a.PerilCode = r.str("PERIL_CODE")
		a.AggregationLevel = r.str("AGGREGATION_LEVEL")
		a.AreaLevels[0] = r.str("AREA_LEVEL_0")
		for _, l := range domain.AdminLevels() {
			a.AreaLevels[l] = r.str(l.SheetName())
		}
		a.AreaLevels[domain.LevelVRG] = cast.ToString(a.AreaPerilID)
		areas = append(areas, a)
	}
	return areas, nil
}

func parseAdminNames(f *xlsx.File, level domain.Level) ([]domain.AdminNameMapping, error) {
	rows, err := readSheet(f, level.SheetName(), "AREA_LEVEL_NAMES", "COUNTRY_KEY", "AREA_LEVEL_MODEL_NAMES")
	if err != nil {
		return nil, err
	}
	names := make([]domain.AdminNameMapping, 0, len(rows))
	for _, r := range rows {
		names = append(names, domain.AdminNameMapping{
			LocalName:  r.str("AREA_LEVEL_NAMES"),
			CountryKey: r.str("COUNTRY_KEY"),
			ModelName:  r.str("AREA_LEVEL_MODEL_NAMES"),
		})
	}
	return names, nil
}

func parseVulnerabilities(f *xlsx.File) ([]domain.VulnerabilityEntry, error) {
	rows, err := readSheet(f, sheetVulnerability, "VULNERABILITY_ID", "REF")
	if err != nil {
		return nil, err
	}
	out := make([]domain.VulnerabilityEntry, 0, len(rows))
	for _, r := range rows {
		id, err := r.toInt("VULNERABILITY_ID")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.VulnerabilityEntry{ID: id, Code: r.str("REF")})
	}
	return out, nil
}

func parseConstructionClasses(f *xlsx.File) ([]domain.ConstructionClassEntry, error) {
	rows, err := readSheet(f, sheetConstruction,
		"CONSTRUCTION_CLASS", "PERIL_CODE", "VULNERABILITY_STRUCTURAL_TYPE", "VULNERABILITY_QUALITY_CODE")
	if err != nil {
		return nil, err
	}
	out := make([]domain.ConstructionClassEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ConstructionClassEntry{
			Class:          r.str("CONSTRUCTION_CLASS"),
			PerilCode:      r.str("PERIL_CODE"),
			StructuralType: r.str("VULNERABILITY_STRUCTURAL_TYPE"),
			QualityCode:    r.str("VULNERABILITY_QUALITY_CODE"),
		})
	}
	return out, nil
}

func parseOccupancies(f *xlsx.File) ([]domain.OccupancyEntry, error) {
	rows, err := readSheet(f, sheetOccupancy, "OED_OCCUPANCY_CODE", "VULNERABILITY_RISK_CODE")
	if err != nil {
		return nil, err
	}
	out := make([]domain.OccupancyEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.OccupancyEntry{
			Code:     r.str("OED_OCCUPANCY_CODE"),
			RiskCode: r.str("VULNERABILITY_RISK_CODE"),
		})
	}
	return out, nil
}
