package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// GridHeader describes the village-grid raster.
type GridHeader struct {
	NCols     int
	NRows     int
	XLLCenter float64
	YLLCenter float64
	DX        float64
	DY        float64
	NoData    int
}

// Grid maps coordinates to village-grid area-peril ids. Rows run north to
// south, the last row sits on YLLCENTER.
type Grid struct {
	GridHeader
	cells []int
}

var gridHeaderKeys = []string{"NCOLS", "NROWS", "XLLCENTER", "YLLCENTER", "DX", "DY", "NODATA_VALUE"}

// NewGrid builds a grid from row-major cells.
func NewGrid(h GridHeader, cells []int) (*Grid, error) {
	if h.NCols <= 0 || h.NRows <= 0 {
		return nil, fmt.Errorf("grid dimensions %dx%d must be positive", h.NCols, h.NRows)
	}
	if h.DX <= 0 || h.DY <= 0 {
		return nil, errors.New("grid cell size must be positive")
	}
	if len(cells) != h.NCols*h.NRows {
		return nil, fmt.Errorf("grid has %d cells, want %d", len(cells), h.NCols*h.NRows)
	}
	return &Grid{GridHeader: h, cells: cells}, nil
}

// ParseGrid reads an ASCII raster: seven "KEY value" header lines followed
// by NROWS x NCOLS whitespace-separated integers.
func ParseGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	values := make(map[string]string, len(gridHeaderKeys))
	for range gridHeaderKeys {
		key, ok := next()
		if !ok {
			return nil, errors.New("parse grid: truncated header")
		}
		val, ok := next()
		if !ok {
			return nil, fmt.Errorf("parse grid: missing value for %s", key)
		}
		values[strings.ToUpper(key)] = val
	}

	h, err := gridHeaderFrom(values)
	if err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}

	cells := make([]int, 0, h.NCols*h.NRows)
	for len(cells) < h.NCols*h.NRows {
		tok, ok := next()
		if !ok {
			break
		}
		v, ok := parseInt(tok)
		if !ok {
			return nil, fmt.Errorf("parse grid: cell %d: invalid value %q", len(cells), tok)
		}
		cells = append(cells, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}

	g, err := NewGrid(h, cells)
	if err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}
	return g, nil
}

func gridHeaderFrom(values map[string]string) (GridHeader, error) {
	var h GridHeader
	for _, key := range gridHeaderKeys {
		raw, ok := values[key]
		if !ok {
			return h, fmt.Errorf("missing header %s", key)
		}
		f, ok := parseFloat(raw)
		if !ok {
			return h, fmt.Errorf("invalid %s %q", key, raw)
		}
		switch key {
		case "NCOLS":
			h.NCols = int(f)
		case "NROWS":
			h.NRows = int(f)
		case "XLLCENTER":
			h.XLLCenter = f
		case "YLLCENTER":
			h.YLLCenter = f
		case "DX":
			h.DX = f
		case "DY":
			h.DY = f
		case "NODATA_VALUE":
			h.NoData = int(f)
		}
	}
	return h, nil
}

// Lookup returns the cell value at a point. Points off the raster or on a
// no-data cell are not valid. Pixel indices round half to even.
func (g *Grid) Lookup(lon, lat float64) (int, bool) {
	fx := math.RoundToEven((lon - g.XLLCenter) / g.DX)
	fy := math.RoundToEven((g.YLLCenter - lat) / g.DY)
	if math.IsNaN(fx) || math.IsNaN(fy) || math.IsInf(fx, 0) || math.IsInf(fy, 0) {
		return 0, false
	}
	x := int(fx)
	y := g.NRows + int(fy) - 1
	if x < 0 || y < 0 || x >= g.NCols || y >= g.NRows {
		return 0, false
	}
	v := g.cells[y*g.NCols+x]
	if v == g.NoData {
		return 0, false
	}
	return v, true
}
