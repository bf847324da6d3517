package keysdata

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/exposure-keys-etl/internal/config"
	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/couchcryptid/exposure-keys-etl/internal/observability"
)

// Loader reads the reference archives named by the configuration.
type Loader struct {
	dataPath string
	gridPath string
	password string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewLoader creates a loader for the configured archives. metrics may be nil.
func NewLoader(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		dataPath: cfg.DataPath(),
		gridPath: cfg.GridPath(),
		password: cfg.ArchivePassword,
		logger:   logger,
		metrics:  metrics,
	}
}

// LoadIndex parses the keys workbook and builds the reference index.
func (l *Loader) LoadIndex(ctx context.Context) (*domain.ReferenceIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	data, err := ReadFirstMember(l.dataPath, l.password)
	if err != nil {
		return nil, err
	}
	tables, err := ParseWorkbook(data)
	if err != nil {
		return nil, fmt.Errorf("keys workbook %s: %w", l.dataPath, err)
	}
	ix, err := domain.NewReferenceIndex(tables)
	if err != nil {
		return nil, fmt.Errorf("build reference index: %w", err)
	}

	l.observeRows(tables)
	l.logger.Info("reference data loaded",
		"path", l.dataPath,
		"areas", len(tables.Areas),
		"vulnerabilities", len(tables.Vulnerabilities),
		"duration", time.Since(start),
	)
	return ix, nil
}

// LoadGrid parses the village-grid raster.
func (l *Loader) LoadGrid(ctx context.Context) (*domain.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadFirstMember(l.gridPath, l.password)
	if err != nil {
		return nil, err
	}
	g, err := domain.ParseGrid(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", l.gridPath, err)
	}
	l.logger.Info("village grid loaded", "path", l.gridPath, "cols", g.NCols, "rows", g.NRows)
	return g, nil
}

// Load reads both archives.
func (l *Loader) Load(ctx context.Context) (*domain.ReferenceIndex, *domain.Grid, error) {
	ix, err := l.LoadIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	g, err := l.LoadGrid(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ix, g, nil
}

func (l *Loader) observeRows(t domain.ReferenceTables) {
	if l.metrics == nil {
		return
	}
	l.metrics.ReferenceRows.WithLabelValues(sheetAreaPeril).Set(float64(len(t.Areas)))
	l.metrics.ReferenceRows.WithLabelValues(sheetVulnerability).Set(float64(len(t.Vulnerabilities)))
	l.metrics.ReferenceRows.WithLabelValues(sheetConstruction).Set(float64(len(t.ConstructionClasses)))
	l.metrics.ReferenceRows.WithLabelValues(sheetOccupancy).Set(float64(len(t.Occupancies)))
	for level, names := range t.AdminNames {
		l.metrics.ReferenceRows.WithLabelValues(level.SheetName()).Set(float64(len(names)))
	}
}
