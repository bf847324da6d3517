package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/exposure-keys-etl/internal/adapter/oed"
	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/spf13/cobra"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the errors printed per phase.
const maxReported = 20

func newValidateCmd() *cobra.Command {
	var locPath, keysPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a pre-analysed location file against its keys file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			locs, err := readLocations(cmd.Context(), locPath)
			if err != nil {
				return err
			}
			keys, err := readKeys(keysPath)
			if err != nil {
				return err
			}
			if !report(cmd.OutOrStdout(), validate(locs, keys)) {
				return errors.New("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&locPath, "loc", "", "pre-analysed location file")
	cmd.Flags().StringVar(&keysPath, "keys", "", "keys file")
	_ = cmd.MarkFlagRequired("loc")
	_ = cmd.MarkFlagRequired("keys")
	return cmd
}

func readLocations(ctx context.Context, path string) ([]domain.LocationRecord, error) {
	table, err := oed.NewFileSource(path).Extract(ctx)
	if err != nil {
		return nil, err
	}
	if err := domain.KeysSchema.ValidateHeader(table.Header); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	locs := make([]domain.LocationRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		loc, err := domain.ParseLocation(row, domain.KeysSchema)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func readKeys(path string) ([]domain.ResultRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keys file: %w", err)
	}
	defer f.Close()
	keys, err := oed.ReadKeys(f)
	if err != nil {
		return nil, fmt.Errorf("keys file %s: %w", path, err)
	}
	return keys, nil
}

func validate(locs []domain.LocationRecord, keys []domain.ResultRecord) []*phase {
	return []*phase{
		validateOrdering(locs),
		validateCoverage(locs, keys),
		validateStatus(keys),
	}
}

// validateOrdering checks the dense renumbering of the location file.
func validateOrdering(locs []domain.LocationRecord) *phase {
	p := &phase{name: "Location ordering"}
	if err := domain.CheckSequential(locs); err != nil {
		p.errorf("%v", err)
	}
	return p
}

type keyID struct {
	locID    string
	coverage int
}

// validateCoverage checks that every location has exactly one result per
// keyed coverage and no result points at an unknown location.
func validateCoverage(locs []domain.LocationRecord, keys []domain.ResultRecord) *phase {
	p := &phase{name: "Keys per location and coverage"}

	counts := make(map[keyID]int, len(keys))
	for _, k := range keys {
		counts[keyID{k.LocID, k.CoverageType}]++
	}

	known := make(map[string]bool, len(locs))
	for _, loc := range locs {
		known[loc.LocNumber] = true
		for _, cov := range domain.KeyedCoverages {
			if n := counts[keyID{loc.LocNumber, int(cov)}]; n != 1 {
				p.errorf("LocID %s coverage %d: %d results, want 1", loc.LocNumber, cov, n)
			}
		}
	}
	for _, k := range keys {
		if !known[k.LocID] {
			p.errorf("LocID %s coverage %d: no such location", k.LocID, k.CoverageType)
		}
	}
	return p
}

// validateStatus checks each status against its ids.
func validateStatus(keys []domain.ResultRecord) *phase {
	p := &phase{name: "Key status"}
	for _, k := range keys {
		want := domain.StatusFailed
		if domain.ValidID(k.AreaPerilID) && domain.ValidID(k.VulnerabilityID) {
			want = domain.StatusSuccess
		}
		if k.Status != want {
			p.errorf("LocID %s coverage %d: status %q, want %q (ap=%d vul=%d)",
				k.LocID, k.CoverageType, k.Status, want, k.AreaPerilID, k.VulnerabilityID)
		}
	}
	return p
}

// report prints the phase table and the errors of failed phases. It returns
// whether every phase passed.
func report(w io.Writer, phases []*phase) bool {
	fmt.Fprintln(w, "=== Keys Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Fprintf(w, "  ... and %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return allPassed
}
