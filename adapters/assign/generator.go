package assign

import (
	"context"
	"fmt"
	mrand "math/rand"

	"github.com/axekar/Demodigi/domain/core"
	"github.com/axekar/Demodigi/domain/dataset"
	"github.com/axekar/Demodigi/domain/design"
)

// Policy selects how participants are mapped to conditions.
type Policy string

const (
	// Simple draws each participant's condition independently and
	// uniformly at random.
	Simple Policy = "simple"
	// Balanced gives every condition either floor(N/C) or ceil(N/C)
	// participants, with the assignment order randomized so condition
	// never correlates with arrival order.
	Balanced Policy = "balanced"
)

// Config configures a generator.
type Config struct {
	Policy Policy

	// AllowIncomplete permits balanced assignment with fewer
	// participants than conditions, leaving some conditions empty.
	// Off by default: an accidental under-recruitment should fail
	// loudly.
	AllowIncomplete bool
}

// Generator assigns participants to design conditions under a
// randomization policy. The random stream is passed per call, so the
// caller controls reproducibility: the same stream seed, design,
// count and policy always reproduce the same assignment.
type Generator struct {
	cfg Config
}

// NewGenerator validates the policy and returns a generator.
func NewGenerator(cfg Config) (*Generator, error) {
	switch cfg.Policy {
	case Simple, Balanced:
	default:
		return nil, core.NewConfigurationError("unknown randomization policy %q", cfg.Policy)
	}
	return &Generator{cfg: cfg}, nil
}

// MinCount returns the smallest participant count the policy can
// assign over d without error. Balanced assignment needs one
// participant per condition unless incomplete assignment is allowed.
func (g *Generator) MinCount(d *design.Design) int {
	if g.cfg.Policy == Balanced && !g.cfg.AllowIncomplete {
		return d.ConditionCount()
	}
	return 1
}

// Generate assigns n participants to conditions on d, returning an
// unfrozen dataset with no outcomes. Participant identifiers are
// sequential so that the stream fully determines the result.
func (g *Generator) Generate(ctx context.Context, d *design.Design, n int, stream *mrand.Rand) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, core.NewConfigurationError("participant count cannot be negative, got %d", n)
	}

	c := d.ConditionCount()
	var slots []int
	switch g.cfg.Policy {
	case Simple:
		slots = make([]int, n)
		for i := range slots {
			slots[i] = stream.Intn(c)
		}
	case Balanced:
		if n < c && !g.cfg.AllowIncomplete {
			return nil, core.NewConfigurationError("balanced assignment of %d participants leaves conditions empty (%d conditions)", n, c)
		}
		slots = balancedSlots(n, c, stream)
	}

	ds := dataset.New(d)
	for i, slot := range slots {
		p := dataset.Participant{
			ID:        fmt.Sprintf("P%06d", i+1),
			Condition: d.ConditionAt(slot),
		}
		if err := ds.Append(p); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// balancedSlots builds floor(n/c) full blocks, hands the n mod c
// leftover participants to randomly chosen distinct conditions, then
// shuffles the whole sequence.
func balancedSlots(n, c int, stream *mrand.Rand) []int {
	slots := make([]int, 0, n)
	full := n / c
	for cond := 0; cond < c; cond++ {
		for j := 0; j < full; j++ {
			slots = append(slots, cond)
		}
	}
	perm := stream.Perm(c)
	for i := 0; i < n%c; i++ {
		slots = append(slots, perm[i])
	}
	stream.Shuffle(len(slots), func(i, j int) {
		slots[i], slots[j] = slots[j], slots[i]
	})
	return slots
}
