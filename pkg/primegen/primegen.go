// Package primegen generates random probable primes of an exact bit length
// and enumerates small primes with the sieve of Eratosthenes.
package primegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"
	"sync/atomic"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/internal/randutil"
	"github.com/mahdiidarabi/ntsig/pkg/modarith"
	"github.com/mahdiidarabi/ntsig/pkg/primality"
)

// MinBits is the smallest bit length for which a prime exists (3 = 0b11).
const MinBits = 2

// Config configures a Generator.
type Config struct {
	// Rounds is passed to the primality tests (0 = primality.DefaultRounds).
	Rounds int

	// Workers races this many candidate searches; the first accepted prime
	// wins (0 or 1 = search on the calling goroutine).
	Workers int

	// Candidates supplies the random candidate bits. nil selects
	// crypto/rand.Reader, since generated primes are often secret.
	Candidates io.Reader
}

// DefaultConfig returns a sequential generator configuration.
func DefaultConfig() Config {
	return Config{
		Rounds:  primality.DefaultRounds,
		Workers: 1,
	}
}

// Generator searches for random primes.
type Generator struct {
	config Config
	tester *primality.Tester
	log    logger.Logger
}

// NewGenerator creates a generator with default settings.
func NewGenerator() *Generator {
	return NewGeneratorWithConfig(DefaultConfig())
}

// NewGeneratorWithConfig creates a generator from config.
func NewGeneratorWithConfig(config Config) *Generator {
	if config.Candidates == nil {
		config.Candidates = rand.Reader
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Generator{
		config: config,
		tester: primality.NewTester(primality.Config{Rounds: config.Rounds}),
	}
}

// WithTester replaces the primality tester used to filter candidates.
func (g *Generator) WithTester(tester *primality.Tester) *Generator {
	g.tester = tester
	return g
}

// WithLogger attaches a logger.
func (g *Generator) WithLogger(log logger.Logger) *Generator {
	g.log = log.Named("primegen")
	return g
}

// Tester returns the primality tester candidates are filtered through.
func (g *Generator) Tester() *primality.Tester {
	return g.tester
}

// Generate returns a probable prime with exactly bits significant bits. It
// loops until a candidate passes both the Fermat and the Miller–Rabin test or
// ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, bits int) (*big.Int, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: prime bit length must be at least %d, got %d", modarith.ErrDomain, MinBits, bits)
	}

	if g.config.Workers == 1 {
		var tried int64
		p, err := g.search(ctx, bits, g.tester, &tried)
		g.found(bits, tried, err)
		return p, err
	}
	return g.race(ctx, bits)
}

// Candidate draws one random bits-bit odd integer with the top bit set.
func (g *Generator) Candidate(bits int) (*big.Int, error) {
	c, err := randutil.Bits(g.config.Candidates, bits)
	if err != nil {
		return nil, err
	}
	c.SetBit(c, bits-1, 1)
	c.SetBit(c, 0, 1)
	return c, nil
}

func (g *Generator) search(ctx context.Context, bits int, tester *primality.Tester, tried *int64) (*big.Int, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		c, err := g.Candidate(bits)
		if err != nil {
			return nil, err
		}
		atomic.AddInt64(tried, 1)

		if tester.Fermat(c) && tester.MillerRabin(c) {
			return c, nil
		}
	}
}

// race runs Workers searches. Each worker tests with a fork of the
// configured tester, so no witness stream is shared between goroutines.
func (g *Generator) race(ctx context.Context, bits int) (*big.Int, error) {
	testers := make([]*primality.Tester, g.config.Workers)
	for w := range testers {
		tester, err := g.tester.Fork()
		if err != nil {
			g.found(bits, 0, err)
			return nil, err
		}
		testers[w] = tester
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tried int64
	resultChan := make(chan *big.Int, 1)
	errChan := make(chan error, g.config.Workers)

	var wg sync.WaitGroup
	for _, tester := range testers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p, err := g.search(ctx, bits, tester, &tried)
			if err != nil {
				errChan <- err
				cancel()
				return
			}
			select {
			case resultChan <- p:
				cancel()
			default:
			}
		}()
	}

	wg.Wait()
	close(errChan)

	select {
	case p := <-resultChan:
		g.found(bits, atomic.LoadInt64(&tried), nil)
		return p, nil
	default:
	}

	err := <-errChan
	g.found(bits, atomic.LoadInt64(&tried), err)
	return nil, err
}

func (g *Generator) found(bits int, tried int64, err error) {
	if g.log == nil {
		return
	}
	if err != nil {
		g.log.Warn("prime search aborted",
			logger.NewField("bits", bits),
			logger.NewField("candidates", tried),
			logger.NewField("error", err))
		return
	}
	g.log.Debug("prime found",
		logger.NewField("bits", bits),
		logger.NewField("candidates", tried),
		logger.NewField("workers", g.config.Workers))
}

// GeneratePair returns two distinct primes of the given bit length.
func (g *Generator) GeneratePair(ctx context.Context, bits int) (p, q *big.Int, err error) {
	p, err = g.Generate(ctx, bits)
	if err != nil {
		return nil, nil, err
	}
	for {
		q, err = g.Generate(ctx, bits)
		if err != nil {
			return nil, nil, err
		}
		if p.Cmp(q) != 0 {
			return p, q, nil
		}
		if bits == MinBits {
			// 3 is the only 2-bit prime
			return nil, nil, fmt.Errorf("%w: no two distinct %d-bit primes", modarith.ErrDomain, bits)
		}
	}
}

var defaultGenerator = NewGenerator()

// GeneratePrime returns a probable prime of exactly bits bits using the
// default generator.
func GeneratePrime(bits int) (*big.Int, error) {
	return defaultGenerator.Generate(context.Background(), bits)
}
