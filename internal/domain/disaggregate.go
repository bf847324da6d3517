package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a monetary column that must be split is
// not a number.
var ErrInvalidAmount = errors.New("invalid amount in location record")

// Reason is the FlexiLocDisaggKey stamped on disaggregated children.
type Reason int

const (
	ReasonUnresolved   Reason = 100
	ReasonProportional Reason = 101
	ReasonUniform      Reason = 102
)

// Part is one weighted share of a disaggregated location.
type Part struct {
	AreaID      string
	AreaPerilID int
	Weight      float64
}

// Partition splits a location into weighted parts at one level. Weights sum to 1.
type Partition struct {
	Level  Level
	Reason Reason
	Parts  []Part
}

// PartitionRequest identifies the area being split and the target level.
type PartitionRequest struct {
	Country string
	From    Level
	Name    string
	Peril   string
	To      Level
}

// Partitioner computes partitions.
type Partitioner interface {
	Partition(req PartitionRequest) Partition
}

// AreaPartitioner groups village-grid cells by their ancestor at the target
// level and weights the groups by population.
type AreaPartitioner struct {
	index *ReferenceIndex
}

// NewAreaPartitioner creates a partitioner over the index.
func NewAreaPartitioner(ix *ReferenceIndex) *AreaPartitioner {
	return &AreaPartitioner{index: ix}
}

type cellGroup struct {
	areaID      string
	areaPerilID int
	population  float64
}

// Partition selects the cells under req.Name at req.From and groups them at
// req.To. A target that is not finer than the source, or an area with no
// cells, stays whole with ReasonUnresolved.
func (p *AreaPartitioner) Partition(req PartitionRequest) Partition {
	whole := Partition{
		Level:  req.From,
		Reason: ReasonUnresolved,
		Parts:  []Part{{AreaID: req.Name, AreaPerilID: UnknownID, Weight: 1}},
	}
	if req.To <= req.From {
		return whole
	}

	byID := make(map[string]*cellGroup)
	for _, cell := range p.index.VRGCells(req.Country) {
		if upper(cell.PerilCode) != upper(req.Peril) || upper(cell.NameAt(req.From)) != upper(req.Name) {
			continue
		}
		key := cell.NameAt(req.To)
		if req.To != LevelVRG && IsNull(key) {
			continue
		}
		g, ok := byID[key]
		if !ok {
			g = &cellGroup{areaID: key, areaPerilID: UnknownID}
			if req.To == LevelVRG {
				g.areaPerilID = cell.AreaPerilID
			} else if area, found := p.index.AreaByName(req.Country, key, req.Peril); found {
				g.areaPerilID = area.AreaPerilID
			}
			byID[key] = g
		}
		g.population += cell.Population
	}
	if len(byID) == 0 {
		return whole
	}

	groups := make([]*cellGroup, 0, len(byID))
	var total float64
	for _, g := range byID {
		groups = append(groups, g)
		total += g.population
	}
	slices.SortFunc(groups, func(a, b *cellGroup) int {
		return compareNatural(a.areaID, b.areaID)
	})

	out := Partition{Level: req.To, Parts: make([]Part, len(groups))}
	if total > 0 {
		out.Reason = ReasonProportional
	} else {
		out.Reason = ReasonUniform
	}
	for i, g := range groups {
		w := 1 / float64(len(groups))
		if total > 0 {
			w = g.population / total
		}
		out.Parts[i] = Part{AreaID: g.areaID, AreaPerilID: g.areaPerilID, Weight: w}
	}
	return out
}

// Expand turns a partition into child locations. Parts with zero weight are
// dropped. The child keeps the parent's LocNumber until renumbering.
func Expand(loc LocationRecord, p Partition) ([]LocationRecord, error) {
	children := make([]LocationRecord, 0, len(p.Parts))
	for _, part := range p.Parts {
		if part.Weight <= 0 {
			continue
		}
		fields, err := scaleFinancials(loc.fields, part.Weight)
		if err != nil {
			return nil, err
		}
		child := loc.withFields(fields)
		child.GeoName = part.AreaID
		child.Scheme = p.Level.Scheme()
		child.AreaPerilID = part.AreaPerilID
		if p.Reason == ReasonUnresolved && part.AreaPerilID == UnknownID {
			child.AreaPerilID = loc.AreaPerilID
		}
		child.DisaggKey = int(p.Reason)
		child.OrigLocNumber = loc.Country + "_" + loc.LocNumber
		child.Message = "Disaggregated to: " + p.Level.Scheme()
		children = append(children, child)
	}
	return children, nil
}

var (
	tivColumns = []string{"BuildingTIV", "OtherTIV", "ContentsTIV", "BITIV"}
	tivTypes   = []string{"1Building", "2Others", "3Contents", "4BI", "5PD", "6All"}
)

// scaleFinancials multiplies the monetary columns of a row by weight. Per-type
// deductibles and limits scale only when their type flag is 0 (monetary).
func scaleFinancials(src Row, weight float64) (Row, error) {
	dst := src.Clone()
	w := decimal.NewFromFloat(weight)

	var cols []string
	cols = append(cols, tivColumns...)
	for _, t := range tivTypes {
		if isMonetary(src, "LocDedType"+t) {
			cols = append(cols, "LocDed"+t)
		}
		cols = append(cols, "LocMinDed"+t, "LocMaxDed"+t)
		if isMonetary(src, "LocLimitType"+t) {
			cols = append(cols, "LocLimit"+t)
		}
	}

	for _, col := range cols {
		v, ok := src[col]
		if !ok || IsNull(v) {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidAmount, col, v)
		}
		dst[col] = d.Mul(w).String()
	}

	if n, ok := parseFloat(src[ColNumberOfBuildings]); ok {
		dst[ColNumberOfBuildings] = itoa(max(int(n*weight), 1))
	}
	return dst, nil
}

func isMonetary(src Row, typeCol string) bool {
	t, ok := parseFloat(src[typeCol])
	return ok && t == 0
}
