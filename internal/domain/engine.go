package domain

import "fmt"

// PreAnalysis is the outcome of resolving and splitting one input location.
type PreAnalysis struct {
	Locations []LocationRecord
	Skip      SkipReason
	Match     Match
	Partition *Partition
}

// Engine runs the pre-analysis and keys lookup over a reference index. It
// holds no mutable state of its own and is safe for concurrent use when its
// partitioner is.
type Engine struct {
	index         *ReferenceIndex
	resolver      *AreaPerilResolver
	partitioner   Partitioner
	vulnerability *VulnerabilityResolver
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPartitioner replaces the default AreaPartitioner, typically with a
// caching decorator around it.
func WithPartitioner(p Partitioner) EngineOption {
	return func(e *Engine) { e.partitioner = p }
}

// NewEngine wires the resolvers over an index and an optional grid.
func NewEngine(ix *ReferenceIndex, grid *Grid, opts ...EngineOption) *Engine {
	e := &Engine{
		index:         ix,
		resolver:      NewAreaPerilResolver(ix, grid),
		partitioner:   NewAreaPartitioner(ix),
		vulnerability: NewVulnerabilityResolver(ix),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PreAnalyze checks eligibility, normalizes and resolves a location, then
// splits it when its FlexiLocDisaggKey asks for it. Output locations keep the
// input LocNumber; callers renumber the whole set afterwards. A split fails
// with ErrInvalidAmount when a monetary column is not a number.
func (e *Engine) PreAnalyze(loc LocationRecord) (PreAnalysis, error) {
	directive := loc.DisaggKey

	skip := SkipReason(min(directive, 0))
	if skip == SkipNone {
		skip = e.index.Eligibility(loc)
	}
	if skip != SkipNone {
		out := loc
		out.AreaPerilID = UnknownID
		out.DisaggKey = int(skip)
		out.OrigLocNumber = out.Country + "_" + loc.LocNumber
		out.Message = skip.Describe(loc)
		return PreAnalysis{Locations: []LocationRecord{out}, Skip: skip}, nil
	}

	out, match := e.resolver.Resolve(e.index.Normalize(loc))
	result := PreAnalysis{Match: match}

	from, _ := ParseScheme(out.Scheme)
	if directive < 1 || directive > maxAdminLevel || from == LevelVRG {
		out.DisaggKey = int(SkipNone)
		out.OrigLocNumber = out.Country + "_" + loc.LocNumber
		result.Locations = []LocationRecord{out}
		return result, nil
	}

	to := Level(directive)
	if directive == 1 {
		to = LevelVRG
	}
	p := e.partitioner.Partition(PartitionRequest{
		Country: out.Country,
		From:    from,
		Name:    out.GeoName,
		Peril:   out.Perils,
		To:      to,
	})
	children, err := Expand(out, p)
	if err != nil {
		return PreAnalysis{}, fmt.Errorf("location %s: %w", loc.LocNumber, err)
	}
	result.Partition = &p
	result.Locations = children
	return result, nil
}

// LookupKeys returns one result per keyed coverage for a pre-analysed location.
func (e *Engine) LookupKeys(loc LocationRecord) []ResultRecord {
	results := make([]ResultRecord, 0, len(KeyedCoverages))
	for _, cov := range KeyedCoverages {
		results = append(results, e.vulnerability.keyResult(loc, cov))
	}
	return results
}
