// Command keys assigns area-peril and vulnerability keys to OED location files.
//
// Usage:
//
//	keys run --input loc.csv --output-loc out_loc.csv --output-keys keys.csv
//	keys preanalysis --input loc.csv --output-loc out_loc.csv
//	keys lookup --input out_loc.csv --output-keys keys.csv
//	keys grid --lon -6.84 --lat 34.02
//	keys validate --loc out_loc.csv --keys keys.csv
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/exposure-keys-etl/internal/config"
	"github.com/couchcryptid/exposure-keys-etl/internal/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the process-wide dependencies built before any subcommand runs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		a       = &app{}
	)

	root := &cobra.Command{
		Use:   "keys",
		Short: "Assign area-peril and vulnerability keys to OED locations",
		Long: "Resolves every location of an OED location file to an area-peril id, " +
			"optionally disaggregates coarse locations over the village grid, and derives " +
			"a vulnerability id per coverage.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside local development.
			_ = godotenv.Load(envFile)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.logger = observability.NewLogger(cfg)
			a.metrics = observability.NewMetrics()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newRunCmd(a),
		newPreAnalysisCmd(a),
		newLookupCmd(a),
		newGridCmd(a),
		newValidateCmd(),
	)
	return root
}
