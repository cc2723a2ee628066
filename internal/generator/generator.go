// Package generator produces randomized kernel inputs. It owns the
// campaign's pseudo-random source, which is the only state carried from one
// trial to the next.
package generator

import (
	"fmt"
	"math/rand/v2"

	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"

	"go.uber.org/zap"
)

// Range is an inclusive range of operand values.
type Range struct {
	Min uint32 `yaml:"min" json:"min"`
	Max uint32 `yaml:"max" json:"max"`
}

// DefaultRange is [0, 2^32-2], the range the kernels are sampled from.
var DefaultRange = Range{Min: 0, Max: 0xFFFFFFFE}

// Size returns the number of values in the range.
func (r Range) Size() uint64 {
	return uint64(r.Max) - uint64(r.Min) + 1
}

// Validate reports an inverted range.
func (r Range) Validate() error {
	if r.Min > r.Max {
		return &kernel.ConfigurationError{
			Param:  "values",
			Reason: fmt.Sprintf("min %d is greater than max %d", r.Min, r.Max),
		}
	}
	return nil
}

// SizePolicy selects the dot length for one draw.
type SizePolicy struct {
	// Fixed, when positive, is used as n verbatim.
	Fixed int
	// Max bounds a uniformly drawn n in [1, Max] when Fixed is zero.
	Max int
}

// Generator draws kernel inputs from a seeded source.
type Generator struct {
	rng    *rand.Rand
	values Range
	seed   uint64
	log    *zap.Logger
}

// New creates a generator over values seeded with seed. The same seed
// always produces the same sequence of instances.
func New(seed uint64, values Range) (*Generator, error) {
	if err := values.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		values: values,
		seed:   seed,
		log:    logging.Get(logging.CategoryGenerator),
	}, nil
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() uint64 { return g.seed }

// Values returns the operand range.
func (g *Generator) Values() Range { return g.values }

// Distinct draws k distinct values uniformly from the range, in random
// order. It uses Floyd's algorithm, so memory is O(k) regardless of the
// range size, and it never loops on rejection.
func (g *Generator) Distinct(k int) ([]uint32, error) {
	size := g.values.Size()
	if k < 0 || uint64(k) > size {
		return nil, &kernel.ConfigurationError{
			Param:  "sample",
			Reason: fmt.Sprintf("cannot draw %d distinct values from a range of %d", k, size),
		}
	}

	out := make([]uint32, 0, k)
	seen := make(map[uint64]struct{}, k)
	for j := size - uint64(k); j < size; j++ {
		t := g.rng.Uint64N(j + 1)
		if _, dup := seen[t]; dup {
			t = j
		}
		seen[t] = struct{}{}
		out = append(out, g.values.Min+uint32(t))
	}

	// Floyd's picks are uniform as a set but not as a sequence.
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// Length draws n uniformly from [1, maxN].
func (g *Generator) Length(maxN int) (int, error) {
	if maxN < 1 {
		return 0, &kernel.ConfigurationError{Param: "max_n", Reason: fmt.Sprintf("must be at least 1, got %d", maxN)}
	}
	return 1 + g.rng.IntN(maxN), nil
}

// Mul draws two distinct operands.
func (g *Generator) Mul() (kernel.MulInput, error) {
	vals, err := g.Distinct(2)
	if err != nil {
		return kernel.MulInput{}, err
	}
	return kernel.MulInput{X: vals[0], Y: vals[1]}, nil
}

// Dot draws 2n distinct operands and splits them into A and B.
func (g *Generator) Dot(n int) (kernel.DotInput, error) {
	if n < 1 {
		return kernel.DotInput{}, &kernel.ConfigurationError{Param: "n", Reason: fmt.Sprintf("must be at least 1, got %d", n)}
	}
	vals, err := g.Distinct(2 * n)
	if err != nil {
		return kernel.DotInput{}, err
	}
	return kernel.DotInput{A: vals[:n:n], B: vals[n:]}, nil
}

// Generate draws one instance of kind. The size policy only matters for
// the dot kernel.
func (g *Generator) Generate(kind kernel.Kind, policy SizePolicy) (kernel.Instance, error) {
	switch kind {
	case kernel.KindUMul:
		in, err := g.Mul()
		if err != nil {
			return nil, err
		}
		g.log.Debug("generated umul case",
			zap.String("x", kernel.Hex32(in.X)),
			zap.String("y", kernel.Hex32(in.Y)))
		return in, nil

	case kernel.KindDot:
		n := policy.Fixed
		if n <= 0 {
			var err error
			if n, err = g.Length(policy.Max); err != nil {
				return nil, err
			}
		}
		in, err := g.Dot(n)
		if err != nil {
			return nil, err
		}
		g.log.Debug("generated dot case", zap.Int("n", n))
		return in, nil
	}
	return nil, &kernel.ConfigurationError{Param: "kind", Reason: fmt.Sprintf("unknown kernel kind %q", kind)}
}
