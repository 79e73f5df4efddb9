// Package factor splits positive integers into prime factors using trial
// division for small primes and Pollard's rho for the remaining cofactor.
package factor

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/bluele/gcache"
	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/pkg/modarith"
	"github.com/mahdiidarabi/ntsig/pkg/primality"
	"github.com/mahdiidarabi/ntsig/pkg/primegen"
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// Config configures a Factorizer.
type Config struct {
	// SmallPrimeBound is the largest prime removed by trial division before
	// Pollard's rho starts.
	SmallPrimeBound int

	// TrialDivisionBits is the cofactor size below which primality is
	// decided exactly by trial division. Larger cofactors use the
	// probabilistic tester.
	TrialDivisionBits int

	// Rounds is the Miller–Rabin/Fermat round count for large cofactors.
	Rounds int

	// CacheSize bounds the number of memoised factorizations (0 = no cache).
	CacheSize int
}

// DefaultConfig returns the default factorizer configuration.
func DefaultConfig() Config {
	return Config{
		SmallPrimeBound:   1000,
		TrialDivisionBits: 48,
		Rounds:            20,
		CacheSize:         256,
	}
}

// Factorizer factors integers. It is safe for concurrent use.
type Factorizer struct {
	config      Config
	smallPrimes []*big.Int
	tester      *primality.Tester
	cache       gcache.Cache
	log         logger.Logger
}

// New creates a factorizer with default settings.
func New() *Factorizer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a factorizer from config.
func NewWithConfig(config Config) *Factorizer {
	f := &Factorizer{
		config:      config,
		smallPrimes: primegen.SieveBig(config.SmallPrimeBound),
		tester:      primality.NewTester(primality.Config{Rounds: config.Rounds}),
	}
	if config.CacheSize > 0 {
		f.cache = gcache.New(config.CacheSize).ARC().Build()
	}
	return f
}

// WithLogger attaches a logger.
func (f *Factorizer) WithLogger(log logger.Logger) *Factorizer {
	f.log = log.Named("factor")
	return f
}

// Factorize returns the prime factors of n with multiplicity, in ascending
// order. The product of the result equals n; Factorize(1) is empty.
func (f *Factorizer) Factorize(ctx context.Context, n *big.Int) ([]*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: cannot factorize %s", modarith.ErrDomain, n)
	}

	key := n.Text(16)
	if f.cache != nil {
		if v, err := f.cache.Get(key); err == nil {
			return copyFactors(v.([]*big.Int)), nil
		}
	}

	factors, err := f.factorize(ctx, n)
	if err != nil {
		return nil, err
	}
	sort.Slice(factors, func(i, j int) bool { return factors[i].Cmp(factors[j]) < 0 })

	if f.cache != nil {
		if err := f.cache.Set(key, copyFactors(factors)); err != nil && f.log != nil {
			f.log.Debug("factorization not cached", logger.NewField("error", err))
		}
	}
	return factors, nil
}

func (f *Factorizer) factorize(ctx context.Context, n *big.Int) ([]*big.Int, error) {
	cofactor := new(big.Int).Set(n)
	factors := make([]*big.Int, 0)

	// powers of two
	if tz := cofactor.TrailingZeroBits(); tz > 0 {
		cofactor.Rsh(cofactor, tz)
		for i := uint(0); i < tz; i++ {
			factors = append(factors, big.NewInt(2))
		}
	}

	q, r := new(big.Int), new(big.Int)
	for _, p := range f.smallPrimes {
		if p.Cmp(bigTwo) == 0 {
			continue
		}
		if new(big.Int).Mul(p, p).Cmp(cofactor) > 0 {
			break
		}
		for {
			q.QuoRem(cofactor, p, r)
			if r.Sign() != 0 {
				break
			}
			cofactor.Set(q)
			factors = append(factors, new(big.Int).Set(p))
		}
	}

	// composites still to split
	pending := []*big.Int{cofactor}
	for len(pending) > 0 {
		m := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if m.Cmp(bigOne) == 0 {
			continue
		}
		if f.isPrime(m) {
			factors = append(factors, new(big.Int).Set(m))
			continue
		}

		d, err := f.PollardRho(ctx, m)
		if err != nil {
			return nil, err
		}

		// d may be composite; it is pushed back and split on its own
		rest := new(big.Int).Set(m)
		for {
			q.QuoRem(rest, d, r)
			if r.Sign() != 0 {
				break
			}
			rest.Set(q)
			pending = append(pending, d)
		}
		pending = append(pending, rest)
	}

	return factors, nil
}

func (f *Factorizer) isPrime(n *big.Int) bool {
	if n.BitLen() <= f.config.TrialDivisionBits {
		return primality.TrialDivision(n)
	}
	return f.tester.IsPrime(n)
}

// PollardRho returns a non-trivial divisor of the odd composite n. It uses
// f(t) = t^2 + c mod n with Floyd cycle detection, starting from x = y = 2
// and c = 1; a cycle that collapses to d = n restarts with the next c.
//
// n must be composite; for a prime n the search never terminates unless ctx
// is cancelled.
func (f *Factorizer) PollardRho(ctx context.Context, n *big.Int) (*big.Int, error) {
	if n.Bit(0) == 0 {
		return big.NewInt(2), nil
	}

	c := big.NewInt(1)
	x, y := big.NewInt(2), big.NewInt(2)
	diff := new(big.Int)

	step := func(t *big.Int) {
		t.Mul(t, t)
		t.Add(t, c)
		t.Mod(t, n)
	}

	for iter := 0; ; iter++ {
		if iter&0x3ff == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		step(x)
		step(y)
		step(y)

		diff.Sub(x, y)
		diff.Abs(diff)
		d := modarith.GCD(diff, n)

		if d.Cmp(n) == 0 {
			c.Add(c, bigOne)
			x.SetInt64(2)
			y.SetInt64(2)
			if f.log != nil {
				f.log.Debug("rho cycle collapsed, restarting",
					logger.NewField("bits", n.BitLen()),
					logger.NewField("c", c.Int64()))
			}
			continue
		}
		if d.Cmp(bigOne) > 0 {
			return d, nil
		}
	}
}

func copyFactors(in []*big.Int) []*big.Int {
	out := make([]*big.Int, len(in))
	for i, v := range in {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

var defaultFactorizer = New()

// Factorize factors n with the default factorizer.
func Factorize(n *big.Int) ([]*big.Int, error) {
	return defaultFactorizer.Factorize(context.Background(), n)
}

// PollardRho finds a non-trivial divisor of the composite n.
func PollardRho(ctx context.Context, n *big.Int) (*big.Int, error) {
	return defaultFactorizer.PollardRho(ctx, n)
}
