package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	httpadapter "github.com/couchcryptid/exposure-keys-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/exposure-keys-etl/internal/adapter/kafka"
	"github.com/couchcryptid/exposure-keys-etl/internal/adapter/keysdata"
	"github.com/couchcryptid/exposure-keys-etl/internal/adapter/oed"
	"github.com/couchcryptid/exposure-keys-etl/internal/cache"
	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/couchcryptid/exposure-keys-etl/internal/pipeline"
	"github.com/spf13/cobra"
)

type runFlags struct {
	input      string
	outputLoc  string
	outputKeys string
	serve      bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pre-analyse locations and look up their keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.outputLoc == "" && f.outputKeys == "" && !a.cfg.KafkaEnabled {
				return errors.New("run: set --output-loc, --output-keys, or KAFKA_KEYS_TOPIC")
			}
			return a.runPipeline(cmd.Context(), pipeline.ModeFull, f)
		},
	}
	cmd.Flags().StringVar(&f.input, "input", "", "OED location file")
	cmd.Flags().StringVar(&f.outputLoc, "output-loc", "", "pre-analysed location file to write")
	cmd.Flags().StringVar(&f.outputKeys, "output-keys", "", "keys file to write")
	cmd.Flags().BoolVar(&f.serve, "serve", false, "keep the health and metrics server up after the run until interrupted")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newPreAnalysisCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "preanalysis",
		Short: "Resolve area-perils and disaggregate locations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPipeline(cmd.Context(), pipeline.ModePreAnalysis, f)
		},
	}
	cmd.Flags().StringVar(&f.input, "input", "", "OED location file")
	cmd.Flags().StringVar(&f.outputLoc, "output-loc", "", "pre-analysed location file to write")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output-loc")
	return cmd
}

func newLookupCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up keys on a pre-analysed location file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.outputKeys == "" && !a.cfg.KafkaEnabled {
				return errors.New("lookup: set --output-keys or KAFKA_KEYS_TOPIC")
			}
			return a.runPipeline(cmd.Context(), pipeline.ModeKeys, f)
		},
	}
	cmd.Flags().StringVar(&f.input, "input", "", "pre-analysed location file")
	cmd.Flags().StringVar(&f.outputKeys, "output-keys", "", "keys file to write")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// runPipeline loads the reference data, wires the loaders selected by flags
// and configuration, and runs the pipeline once.
func (a *app) runPipeline(ctx context.Context, mode pipeline.Mode, f *runFlags) error {
	engine, err := a.buildEngine(ctx, mode != pipeline.ModeKeys)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithWorkers(a.cfg.Workers)}
	if f.outputLoc != "" {
		opts = append(opts, pipeline.WithLocationLoader(oed.NewLocationFile(f.outputLoc)))
	}
	if f.outputKeys != "" {
		opts = append(opts, pipeline.WithKeysLoader(oed.NewKeysFile(f.outputKeys)))
	}
	if a.cfg.KafkaEnabled && mode != pipeline.ModePreAnalysis {
		writer := kafkaadapter.NewWriter(a.cfg, a.logger)
		defer func() {
			if err := writer.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithKeysLoader(writer))
		a.logger.Info("publishing keys to kafka", "topic", a.cfg.KafkaKeysTopic, "batch_size", a.cfg.BatchSize)
	}

	p := pipeline.New(engine, oed.NewFileSource(f.input), a.logger, a.metrics, opts...)
	a.logger.Info("starting keys run", "model", a.cfg.ModelID, "mode", mode.String(), "input", f.input)

	var srv *httpadapter.Server
	if a.cfg.MetricsEnabled || f.serve {
		srv = httpadapter.NewServer(a.cfg.HTTPAddr, p, a.logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", "error", err)
			}
		}()
		defer a.shutdown(srv)
	}

	if _, err := p.Run(ctx, mode); err != nil {
		a.logger.Error("pipeline error", "error", err)
		return err
	}

	if srv != nil && f.serve {
		a.logger.Info("run complete, serving until interrupted", "addr", a.cfg.HTTPAddr)
		<-ctx.Done()
	}
	return nil
}

func (a *app) shutdown(srv *httpadapter.Server) {
	a.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
}

// buildEngine loads the reference index, and the village grid when
// withGrid is set, and wraps the partitioner in the LRU cache.
func (a *app) buildEngine(ctx context.Context, withGrid bool) (*domain.Engine, error) {
	loader := keysdata.NewLoader(a.cfg, a.logger, a.metrics)

	var (
		ix   *domain.ReferenceIndex
		grid *domain.Grid
		err  error
	)
	if withGrid {
		ix, grid, err = loader.Load(ctx)
	} else {
		ix, err = loader.LoadIndex(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}

	partitioner := cache.NewCachedPartitioner(domain.NewAreaPartitioner(ix), a.cfg.DisaggCacheSize, a.metrics)
	return domain.NewEngine(ix, grid, domain.WithPartitioner(partitioner)), nil
}
