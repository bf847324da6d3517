// Package oed reads and writes Open Exposure Data location files and the keys
// file produced from them.
package oed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
)

// ErrNoHeader is returned for an empty file.
var ErrNoHeader = errors.New("csv file has no header")

const bom = "\ufeff"

// ReadLocations parses a location CSV. Cells are kept verbatim; short rows
// are padded with empty cells so every header column is present.
func ReadLocations(r io.Reader) (domain.LocationTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.LocationTable{}, ErrNoHeader
	}
	if err != nil {
		return domain.LocationTable{}, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, bom))
	}

	table := domain.LocationTable{Header: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.LocationTable{}, fmt.Errorf("read line %d: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}
		row := make(domain.Row, len(header))
		for j, h := range header {
			if j < len(rec) {
				row[h] = rec[j]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// FileSource reads a location file from disk.
// It implements pipeline.Extractor.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the location file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Extract reads the whole location file.
func (s *FileSource) Extract(ctx context.Context) (domain.LocationTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocationTable{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return domain.LocationTable{}, fmt.Errorf("open location file: %w", err)
	}
	defer f.Close()

	t, err := ReadLocations(f)
	if err != nil {
		return domain.LocationTable{}, fmt.Errorf("location file %s: %w", s.path, err)
	}
	return t, nil
}
