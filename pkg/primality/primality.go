// Package primality provides probabilistic primality tests (Fermat and
// Miller–Rabin) and an exact trial-division check.
//
// A true prime always passes both probabilistic tests. A composite passes k
// Miller–Rabin rounds with probability at most 4^-k; the Fermat test gives no
// such bound (Carmichael numbers pass it for every base coprime to them),
// which is why Tester.IsPrime requires both. The default round count of 5 is
// not derived from any security level.
package primality

import (
	"fmt"
	"io"
	"math/big"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/internal/randutil"
)

// DefaultRounds is the number of witnesses each test draws by default.
const DefaultRounds = 5

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// Config configures a Tester.
type Config struct {
	// Rounds is the number of random witnesses per test (0 = DefaultRounds).
	Rounds int

	// Witnesses supplies randomness for base selection. nil selects a
	// ChaCha8 stream keyed from crypto/rand.
	Witnesses io.Reader
}

// DefaultConfig returns the configuration used by the package-level helpers.
func DefaultConfig() Config {
	return Config{Rounds: DefaultRounds}
}

// Tester runs Fermat and Miller–Rabin tests. It is safe for concurrent use as
// long as its witness reader is.
type Tester struct {
	rounds    int
	witnesses io.Reader
	log       logger.Logger
}

// NewTester creates a tester from config.
func NewTester(config Config) *Tester {
	t := &Tester{
		rounds:    config.Rounds,
		witnesses: config.Witnesses,
	}
	if t.rounds <= 0 {
		t.rounds = DefaultRounds
	}
	if t.witnesses == nil {
		t.witnesses = randutil.NewRandomWitnessReader()
	}
	return t
}

// WithLogger attaches a logger; rejected witnesses are reported at debug level.
func (t *Tester) WithLogger(log logger.Logger) *Tester {
	t.log = log.Named("primality")
	return t
}

// Rounds returns the configured number of rounds.
func (t *Tester) Rounds() int {
	return t.rounds
}

// Fork returns a tester with the same rounds and logger and its own witness
// stream keyed from t's. Forks of a seeded tester are reproducible.
func (t *Tester) Fork() (*Tester, error) {
	var seed [32]byte
	if _, err := io.ReadFull(t.witnesses, seed[:]); err != nil {
		return nil, fmt.Errorf("primality: fork witness stream: %w", err)
	}
	return &Tester{
		rounds:    t.rounds,
		witnesses: randutil.NewWitnessReader(seed),
		log:       t.log,
	}, nil
}

// IsPrime reports whether n passes both the Fermat and the Miller–Rabin test.
func (t *Tester) IsPrime(n *big.Int) bool {
	return t.Fermat(n) && t.MillerRabin(n)
}

// Fermat reports whether a^(n-1) ≡ 1 (mod n) for Rounds random bases
// a in [2, n-1].
func (t *Tester) Fermat(n *big.Int) bool {
	if done, verdict := trivial(n); done {
		return verdict
	}

	nMinusOne := new(big.Int).Sub(n, bigOne)
	x := new(big.Int)
	for i := 0; i < t.rounds; i++ {
		a, err := t.witness(nMinusOne)
		if err != nil {
			return false
		}
		if x.Exp(a, nMinusOne, n).Cmp(bigOne) != 0 {
			t.reject("fermat", n, a)
			return false
		}
	}
	return true
}

// MillerRabin runs Rounds rounds of the Miller–Rabin test with random bases
// a in [2, n-1].
func (t *Tester) MillerRabin(n *big.Int) bool {
	if done, verdict := trivial(n); done {
		return verdict
	}

	// n-1 = 2^s * d with d odd
	nMinusOne := new(big.Int).Sub(n, bigOne)
	s := nMinusOne.TrailingZeroBits()
	d := new(big.Int).Rsh(nMinusOne, s)

	for i := 0; i < t.rounds; i++ {
		a, err := t.witness(nMinusOne)
		if err != nil {
			return false
		}
		if !strongProbablePrime(n, nMinusOne, a, d, s) {
			t.reject("miller-rabin", n, a)
			return false
		}
	}
	return true
}

// strongProbablePrime checks one Miller–Rabin witness.
func strongProbablePrime(n, nMinusOne, a, d *big.Int, s uint) bool {
	x := new(big.Int).Exp(a, d, n)
	if x.Cmp(bigOne) == 0 || x.Cmp(nMinusOne) == 0 {
		return true
	}
	for r := uint(1); r < s; r++ {
		x.Mul(x, x)
		x.Mod(x, n)
		if x.Cmp(nMinusOne) == 0 {
			return true
		}
		if x.Cmp(bigOne) == 0 {
			// 1 reached without passing through n-1
			return false
		}
	}
	return false
}

// trivial settles n < 2, n = 2 and even n without drawing randomness.
func trivial(n *big.Int) (done, verdict bool) {
	switch {
	case n.Cmp(bigTwo) < 0:
		return true, false
	case n.Cmp(bigTwo) == 0:
		return true, true
	case n.Bit(0) == 0:
		return true, false
	}
	return false, false
}

func (t *Tester) witness(nMinusOne *big.Int) (*big.Int, error) {
	a, err := randutil.Range(t.witnesses, bigTwo, nMinusOne)
	if err != nil && t.log != nil {
		t.log.Warn("witness draw failed", logger.NewField("error", err))
	}
	return a, err
}

func (t *Tester) reject(test string, n, a *big.Int) {
	if t.log == nil {
		return
	}
	t.log.Debug("composite witness found",
		logger.NewField("test", test),
		logger.NewField("bits", n.BitLen()),
		logger.NewField("witness", a.String()))
}

var defaultTester = NewTester(DefaultConfig())

// IsProbablePrime runs both tests with DefaultRounds rounds.
func IsProbablePrime(n *big.Int) bool {
	return defaultTester.IsPrime(n)
}

// Fermat runs the Fermat test with k rounds using the default witness stream.
func Fermat(n *big.Int, k int) bool {
	return NewTester(Config{Rounds: k, Witnesses: defaultTester.witnesses}).Fermat(n)
}

// MillerRabin runs the Miller–Rabin test with k rounds using the default
// witness stream.
func MillerRabin(n *big.Int, k int) bool {
	return NewTester(Config{Rounds: k, Witnesses: defaultTester.witnesses}).MillerRabin(n)
}
