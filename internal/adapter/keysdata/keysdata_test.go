package keysdata

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/exposure-keys-etl/internal/config"
	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/couchcryptid/exposure-keys-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/yeka/zip"
)

const testPassword = "s3cret"

var areaHeader = []string{
	"AREA_PERIL_ID", "AREA_ID", "PERIL_CODE", "LON", "LAT", "POPULATION",
	"AREA_LEVEL_0", "AREA_LEVEL_1", "AREA_LEVEL_2", "AREA_LEVEL_3", "AREA_LEVEL_4",
	"AREA_LEVEL_5", "AREA_LEVEL_6", "AREA_LEVEL_7", "AGGREGATION_LEVEL",
}

// testSheets is a small Moroccan workbook: one country, one region, two cells.
func testSheets() map[string][][]string {
	nameHeader := []string{"AREA_LEVEL_NAMES", "COUNTRY_KEY", "AREA_LEVEL_MODEL_NAMES"}
	sheets := map[string][][]string{
		sheetAreaPeril: {
			areaHeader,
			{"1001", "1001", "QEQ", "", "", "", "AF", "MOR", "", "", "", "", "", "", "AREA_LEVEL_1"},
			{"2001", "2001", "QEQ", "", "", "", "AF", "MOR", "MOR-NORTH", "", "", "", "", "", "AREA_LEVEL_2"},
			{"9001", "9001", "QEQ", "-7.0", "33.5", "100", "AF", "MOR", "MOR-NORTH", "Null", "Null", "Null", "Null", "Null", "VRG"},
			{"9002.0", "9002", "QEQ", "-6.5", "33.5", "300", "AF", "MOR", "MOR-NORTH", "Null", "Null", "Null", "Null", "Null", "VRG"},
			{},
		},
		"AREA_LEVEL_1": {nameHeader, {"MAR", "MOR", "MOR"}, {"MOR", "MOR", "MOR"}},
		"AREA_LEVEL_2": {nameHeader, {"Nord", "MOR", "MOR-NORTH"}},
		sheetVulnerability: {
			{"VULNERABILITY_ID", "REF"},
			{"5001", "MOR-QEQ-R-B-RCF-LR-GQU"},
		},
		sheetConstruction: {
			{"CONSTRUCTION_CLASS", "PERIL_CODE", "VULNERABILITY_STRUCTURAL_TYPE", "VULNERABILITY_QUALITY_CODE"},
			{"5050", "QEQ", "RCF", "MQU"},
		},
		sheetOccupancy: {
			{"OED_OCCUPANCY_CODE", "VULNERABILITY_RISK_CODE"},
			{"1050", "R"},
		},
	}
	for l := 3; l <= 7; l++ {
		sheets[domain.Level(l).SheetName()] = [][]string{nameHeader}
	}
	return sheets
}

func buildWorkbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, values := range rows {
			row := sheet.AddRow()
			for _, v := range values {
				row.AddCell().SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// writeArchive zips data as the single member of dir/name, encrypting it when
// password is set.
func writeArchive(t *testing.T, dir, name, member string, data []byte, password string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	var w io.Writer
	if password != "" {
		w, err = zw.Encrypt(member, password, zip.AES256Encryption)
	} else {
		w, err = zw.Create(member)
	}
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return path
}

const testGrid = "NCOLS 2\nNROWS 1\nXLLCENTER -7.0\nYLLCENTER 33.5\nDX 0.5\nDY 0.5\nNODATA_VALUE -9999\n9001 9002\n"

func TestParseWorkbook(t *testing.T) {
	tables, err := ParseWorkbook(buildWorkbook(t, testSheets()))
	require.NoError(t, err)

	require.Len(t, tables.Areas, 4, "blank rows are skipped")
	cell := tables.Areas[3]
	assert.Equal(t, 9002, cell.AreaPerilID)
	assert.Equal(t, "9002", cell.NameAt(domain.LevelVRG))
	assert.Equal(t, "MOR-NORTH", cell.NameAt(2))
	assert.InDelta(t, 300, cell.Population, 1e-9)
	assert.InDelta(t, -6.5, cell.Lon, 1e-9)
	assert.Equal(t, "VRG", cell.AggregationLevel)

	assert.Len(t, tables.AdminNames[1], 2)
	assert.Empty(t, tables.AdminNames[5])
	assert.Equal(t, "MOR-NORTH", tables.AdminNames[2][0].ModelName)
	assert.Equal(t, []domain.VulnerabilityEntry{{ID: 5001, Code: "MOR-QEQ-R-B-RCF-LR-GQU"}}, tables.Vulnerabilities)
	assert.Equal(t, "RCF", tables.ConstructionClasses[0].StructuralType)
	assert.Equal(t, "R", tables.Occupancies[0].RiskCode)

	ix, err := domain.NewReferenceIndex(tables)
	require.NoError(t, err)
	a, ok := ix.AreaByName("MOR", "MOR-NORTH", "QEQ")
	require.True(t, ok)
	assert.Equal(t, 2001, a.AreaPerilID)
	assert.Len(t, ix.VRGCells("MOR"), 2)
}

func TestParseWorkbook_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string][][]string)
		wantErr error
	}{
		{
			name:    "missing sheet",
			mutate:  func(s map[string][][]string) { delete(s, sheetOccupancy) },
			wantErr: ErrMissingSheet,
		},
		{
			name:    "missing admin level sheet",
			mutate:  func(s map[string][][]string) { delete(s, "AREA_LEVEL_6") },
			wantErr: ErrMissingSheet,
		},
		{
			name: "missing column",
			mutate: func(s map[string][][]string) {
				s[sheetVulnerability] = [][]string{{"VULNERABILITY_ID", "CODE"}, {"5001", "X"}}
			},
			wantErr: ErrMissingColumn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheets := testSheets()
			tt.mutate(sheets)

			_, err := ParseWorkbook(buildWorkbook(t, sheets))

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseWorkbook_BadNumber(t *testing.T) {
	sheets := testSheets()
	sheets[sheetVulnerability] = [][]string{{"VULNERABILITY_ID", "REF"}, {"abc", "X"}}

	_, err := ParseWorkbook(buildWorkbook(t, sheets))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DICTVULNERABILITY row 2")
}

func TestReadFirstMember(t *testing.T) {
	dir := t.TempDir()

	plain := writeArchive(t, dir, "plain.dat", "grid.asc", []byte(testGrid), "")
	data, err := ReadFirstMember(plain, "")
	require.NoError(t, err)
	assert.Equal(t, testGrid, string(data))

	locked := writeArchive(t, dir, "locked.dat", "grid.asc", []byte(testGrid), testPassword)
	data, err = ReadFirstMember(locked, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testGrid, string(data))

	_, err = ReadFirstMember(locked, "wrong")
	assert.Error(t, err)

	_, err = ReadFirstMember(filepath.Join(dir, "absent.dat"), "")
	assert.Error(t, err)
}

func TestReadFirstMember_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(out).Close())
	require.NoError(t, out.Close())

	_, err = ReadFirstMember(path, "")

	require.ErrorIs(t, err, ErrEmptyArchive)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "keys.dat", "keys.xlsx", buildWorkbook(t, testSheets()), testPassword)
	writeArchive(t, dir, "grid.dat", "grid.asc", []byte(testGrid), testPassword)

	cfg := &config.Config{DataDir: dir, DataFile: "keys.dat", GridFile: "grid.dat", ArchivePassword: testPassword}
	metrics := observability.NewMetricsForTesting()
	loader := NewLoader(cfg, slog.Default(), metrics)

	ix, grid, err := loader.Load(context.Background())
	require.NoError(t, err)

	id, ok := grid.Lookup(-6.5, 33.5)
	require.True(t, ok)
	assert.Equal(t, 9002, id)
	_, ok = ix.AreaByCell("9002", "QEQ")
	assert.True(t, ok)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.ReferenceRows.WithLabelValues(sheetAreaPeril)), 1e-9)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loader := NewLoader(&config.Config{DataDir: t.TempDir(), DataFile: "k", GridFile: "g"}, slog.Default(), nil)

	_, _, err := loader.Load(ctx)

	require.ErrorIs(t, err, context.Canceled)
}
