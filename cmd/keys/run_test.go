package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/exposure-keys-etl/internal/config"
	"github.com/couchcryptid/exposure-keys-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEngine_Errors(t *testing.T) {
	a := &app{
		cfg:     &config.Config{DataDir: t.TempDir(), DataFile: "keys.dat", GridFile: "grid.dat", DisaggCacheSize: 10},
		logger:  slog.Default(),
		metrics: observability.NewMetricsForTesting(),
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		withGrid bool
	}{
		{name: "index and grid", ctx: context.Background(), withGrid: true},
		{name: "index only", ctx: context.Background(), withGrid: false},
		{name: "cancelled", ctx: cancelled, withGrid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := a.buildEngine(tt.ctx, tt.withGrid)

			require.Error(t, err)
			assert.Nil(t, engine)
			assert.Contains(t, err.Error(), "load reference data")
		})
	}
}
