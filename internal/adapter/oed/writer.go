package oed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
)

// KeysHeader is the header of the keys file.
var KeysHeader = []string{"LocID", "PerilID", "CoverageTypeID", "AreaPerilID", "VulnerabilityID", "Message", "Status"}

// WriteLocations writes locations as CSV in header order.
func WriteLocations(w io.Writer, header []string, locs []domain.LocationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, loc := range locs {
		row := loc.Row()
		for i, h := range header {
			rec[i] = row[h]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteKeys writes key results as CSV.
func WriteKeys(w io.Writer, results []domain.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(KeysHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write([]string{
			r.LocID,
			r.PerilID,
			strconv.Itoa(r.CoverageType),
			strconv.Itoa(r.AreaPerilID),
			strconv.Itoa(r.VulnerabilityID),
			r.Message,
			r.Status,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadKeys parses a keys file written by WriteKeys.
func ReadKeys(r io.Reader) ([]domain.ResultRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(KeysHeader) {
		return nil, fmt.Errorf("keys header has %d columns, want %d", len(header), len(KeysHeader))
	}

	var out []domain.ResultRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		res := domain.ResultRecord{LocID: rec[0], PerilID: rec[1], Message: rec[5], Status: rec[6]}
		if res.CoverageType, err = strconv.Atoi(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: CoverageTypeID: %w", line, err)
		}
		if res.AreaPerilID, err = strconv.Atoi(rec[3]); err != nil {
			return nil, fmt.Errorf("line %d: AreaPerilID: %w", line, err)
		}
		if res.VulnerabilityID, err = strconv.Atoi(rec[4]); err != nil {
			return nil, fmt.Errorf("line %d: VulnerabilityID: %w", line, err)
		}
		out = append(out, res)
	}
}

// LocationFile writes pre-analysed locations to disk.
// It implements pipeline.LocationLoader.
type LocationFile struct {
	path string
}

// NewLocationFile creates a loader writing to path.
func NewLocationFile(path string) *LocationFile {
	return &LocationFile{path: path}
}

// LoadLocations replaces the file with the given locations.
func (l *LocationFile) LoadLocations(ctx context.Context, header []string, locs []domain.LocationRecord) error {
	return writeFile(ctx, l.path, func(w io.Writer) error { return WriteLocations(w, header, locs) })
}

// KeysFile writes key results to disk.
// It implements pipeline.KeysLoader.
type KeysFile struct {
	path string
}

// NewKeysFile creates a loader writing to path.
func NewKeysFile(path string) *KeysFile {
	return &KeysFile{path: path}
}

// LoadKeys replaces the file with the given results.
func (k *KeysFile) LoadKeys(ctx context.Context, _ domain.Run, results []domain.ResultRecord) error {
	return writeFile(ctx, k.path, func(w io.Writer) error { return WriteKeys(w, results) })
}

func writeFile(ctx context.Context, path string, write func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
