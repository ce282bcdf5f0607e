package schema

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Mode is how a dimension's score range is defined.
type Mode string

const (
	// ModeContinuous scores live anywhere in [Min, Max] and carry a baseline.
	ModeContinuous Mode = "continuous"
	// ModeQuantized scores are restricted to a fixed ordered set of levels.
	ModeQuantized Mode = "quantized"
)

// Aggregation selects how a record's aggregate scalar is derived from its scores.
type Aggregation string

const (
	// AggregateMeanExcluding averages every dimension not flagged ExcludeFromAggregate.
	AggregateMeanExcluding Aggregation = "mean_excluding"
	// AggregateMeanAll averages every dimension unweighted.
	AggregateMeanAll Aggregation = "mean_all"
)

// Dimension is one evaluation axis.
type Dimension struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Mode        Mode   `yaml:"mode" json:"mode"`

	// Continuous mode.
	Min      float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Baseline float64 `yaml:"baseline,omitempty" json:"baseline,omitempty"`

	// Quantized mode. Levels order is significant: it breaks snapping ties.
	Levels  []float64 `yaml:"levels,omitempty" json:"levels,omitempty"`
	Default float64   `yaml:"default,omitempty" json:"default,omitempty"`

	ExcludeFromAggregate bool `yaml:"exclude_from_aggregate,omitempty" json:"exclude_from_aggregate,omitempty"`
}

// Continuous reports whether the dimension uses a baseline and a closed range.
func (d Dimension) Continuous() bool {
	return d.Mode == ModeContinuous
}

// Bounds returns the legal score range.
func (d Dimension) Bounds() (lo, hi float64) {
	if d.Continuous() {
		return d.Min, d.Max
	}
	if len(d.Levels) == 0 {
		return 0, 0
	}
	return slices.Min(d.Levels), slices.Max(d.Levels)
}

// DefaultScore is the score used when nothing was supplied: the baseline for
// continuous dimensions, the declared default level for quantized ones.
func (d Dimension) DefaultScore() float64 {
	if d.Continuous() {
		return d.Baseline
	}
	return d.Default
}

// Legalize maps any value onto the dimension's legal range. Quantized values
// are clamped, then snapped to the nearest level. Non-finite input yields the
// default score.
func (d Dimension) Legalize(v float64) float64 {
	if math.IsNaN(v) {
		return d.DefaultScore()
	}
	lo, hi := d.Bounds()
	v = clamp(v, lo, hi)
	if d.Continuous() {
		return v
	}
	return d.snap(v)
}

// snap picks the level with the smallest absolute distance to v. Ties keep
// the earliest declared level.
func (d Dimension) snap(v float64) float64 {
	best := d.Levels[0]
	bestDist := math.Abs(v - best)
	for _, lvl := range d.Levels[1:] {
		if dist := math.Abs(v - lvl); dist < bestDist {
			best, bestDist = lvl, dist
		}
	}
	return best
}

// Schema is the fixed, ordered set of dimensions a deployment scores against.
// It is loaded once at startup and never mutated afterwards.
type Schema struct {
	Name          string      `yaml:"name" json:"name"`
	Aggregation   Aggregation `yaml:"aggregation" json:"aggregation"`
	Rubric        string      `yaml:"rubric,omitempty" json:"rubric,omitempty"`
	// HigherIsWorse marks schemas whose aggregate grows with harm.
	HigherIsWorse bool        `yaml:"higher_is_worse,omitempty" json:"higher_is_worse,omitempty"`
	Dimensions    []Dimension `yaml:"dimensions" json:"dimensions"`
}

// IDs returns the dimension identifiers in configured order.
func (s *Schema) IDs() []string {
	ids := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		ids[i] = d.ID
	}
	return ids
}

// Lookup finds a dimension by identifier.
func (s *Schema) Lookup(id string) (Dimension, bool) {
	for _, d := range s.Dimensions {
		if d.ID == id {
			return d, true
		}
	}
	return Dimension{}, false
}

// Aggregate reduces scores, aligned index-for-index with Dimensions, to one
// scalar according to the schema's aggregation policy. Returns 0 when no
// dimension contributes.
func (s *Schema) Aggregate(scores []float64) float64 {
	var sum float64
	var n int
	for i, d := range s.Dimensions {
		if i >= len(scores) {
			break
		}
		if s.Aggregation == AggregateMeanExcluding && d.ExcludeFromAggregate {
			continue
		}
		sum += scores[i]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Validate checks the invariants every other package relies on.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New("schema name is required")
	}
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("schema %q: no dimensions", s.Name)
	}
	switch s.Aggregation {
	case AggregateMeanAll, AggregateMeanExcluding:
	default:
		return fmt.Errorf("schema %q: unknown aggregation %q", s.Name, s.Aggregation)
	}

	seen := make(map[string]bool, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if d.ID == "" {
			return fmt.Errorf("schema %q: dimension with empty id", s.Name)
		}
		if seen[d.ID] {
			return fmt.Errorf("schema %q: duplicate dimension %q", s.Name, d.ID)
		}
		seen[d.ID] = true

		if err := d.validate(); err != nil {
			return fmt.Errorf("schema %q: dimension %q: %w", s.Name, d.ID, err)
		}
	}
	return nil
}

func (d Dimension) validate() error {
	switch d.Mode {
	case ModeContinuous:
		for name, v := range map[string]float64{"min": d.Min, "max": d.Max, "baseline": d.Baseline} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s %g is not finite", name, v)
			}
		}
		if !(d.Min < d.Max) {
			return fmt.Errorf("range [%g, %g] is empty", d.Min, d.Max)
		}
		if d.Baseline < d.Min || d.Baseline > d.Max {
			return fmt.Errorf("baseline %g outside [%g, %g]", d.Baseline, d.Min, d.Max)
		}
	case ModeQuantized:
		if len(d.Levels) == 0 {
			return errors.New("quantized dimension needs levels")
		}
		for i, lvl := range d.Levels {
			if math.IsNaN(lvl) || math.IsInf(lvl, 0) {
				return fmt.Errorf("level %d is not finite", i)
			}
			if slices.Index(d.Levels, lvl) != i {
				return fmt.Errorf("level %g declared twice", lvl)
			}
		}
		if !slices.Contains(d.Levels, d.Default) {
			return fmt.Errorf("default %g is not a declared level", d.Default)
		}
	default:
		return fmt.Errorf("unknown mode %q", d.Mode)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
