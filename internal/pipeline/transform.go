package pipeline

import (
	"context"
	"strconv"

	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

const unresolvedLabel = "unresolved"

type preAnalysisStats struct {
	skipped       int
	disaggregated int
}

// preAnalyze resolves and splits every location on the worker pool. Output
// keeps input order: the children of row i precede those of row i+1.
func (p *Pipeline) preAnalyze(ctx context.Context, locs []domain.LocationRecord) ([]domain.LocationRecord, preAnalysisStats, error) {
	results, err := parallelMap(ctx, p.workers, locs, p.engine.PreAnalyze)
	if err != nil {
		return nil, preAnalysisStats{}, err
	}

	var stats preAnalysisStats
	out := make([]domain.LocationRecord, 0, len(locs))
	for i, res := range results {
		p.observePreAnalysis(locs[i], res)
		if res.Skip != domain.SkipNone {
			stats.skipped++
		}
		if res.Partition != nil {
			stats.disaggregated++
		}
		out = append(out, res.Locations...)
	}
	return out, stats, nil
}

func (p *Pipeline) observePreAnalysis(in domain.LocationRecord, res domain.PreAnalysis) {
	if res.Skip != domain.SkipNone {
		p.metrics.LocationsSkipped.WithLabelValues(strconv.Itoa(int(res.Skip))).Inc()
		p.logger.Debug("location skipped", "loc_number", in.LocNumber, "reason", int(res.Skip))
		return
	}

	level := unresolvedLabel
	if res.Match.Resolved() {
		level = res.Match.Level.String()
	} else {
		p.logger.Debug("location unresolved", "loc_number", in.LocNumber, "message", res.Match.Message)
	}
	p.metrics.AreaPerilMatches.WithLabelValues(level).Inc()

	if res.Partition != nil {
		p.metrics.Disaggregations.WithLabelValues(strconv.Itoa(int(res.Partition.Reason))).Inc()
	}
}

// lookupKeys produces the key results of every location in order.
func (p *Pipeline) lookupKeys(ctx context.Context, locs []domain.LocationRecord) ([]domain.ResultRecord, error) {
	perLoc, err := parallelMap(ctx, p.workers, locs, func(loc domain.LocationRecord) ([]domain.ResultRecord, error) {
		return p.engine.LookupKeys(loc), nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.ResultRecord, 0, len(locs)*len(domain.KeyedCoverages))
	for _, rs := range perLoc {
		for _, r := range rs {
			p.metrics.KeyResults.WithLabelValues(r.Status).Inc()
		}
		out = append(out, rs...)
	}
	return out, nil
}

// parallelMap applies fn to every input with at most workers goroutines and
// slots each result at its input index. The first error stops the remaining work.
func parallelMap[T, R any](ctx context.Context, workers int, in []T, fn func(T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, v := range in {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(v)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The loop may stop on cancellation before any goroutine observes it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
