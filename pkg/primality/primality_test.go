package primality

import (
	"io"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ntsig/internal/randutil"
)

func newSeededTester(seed uint64) *Tester {
	return NewTester(Config{Rounds: DefaultRounds, Witnesses: randutil.NewSeededWitnessReader(seed)})
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 0)
	require.True(t, ok, "invalid integer %q", s)
	return n
}

func TestTester_AcceptsAllSmallPrimes(t *testing.T) {
	tester := newSeededTester(1)

	count := 0
	for i := int64(2); i <= 10000; i++ {
		n := big.NewInt(i)
		if !TrialDivision(n) {
			continue
		}
		count++
		assert.True(t, tester.Fermat(n), "fermat rejected prime %d", i)
		assert.True(t, tester.MillerRabin(n), "miller-rabin rejected prime %d", i)
	}
	assert.Equal(t, 1229, count)
}

func TestTester_AcceptsLargePrimes(t *testing.T) {
	tester := newSeededTester(2)
	primes := []string{
		"2305843009213693951",                                                // 2^61-1
		"618970019642690137449562111",                                        // 2^89-1
		"170141183460469231731687303715884105727",                            // 2^127-1
		"0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", // secp256k1 field prime
	}
	for _, s := range primes {
		assert.True(t, tester.IsPrime(mustBig(t, s)), "rejected prime %s", s)
	}
}

func TestTester_EvenAndTinyInputs(t *testing.T) {
	tester := newSeededTester(3)

	assert.True(t, tester.Fermat(big.NewInt(2)))
	assert.True(t, tester.MillerRabin(big.NewInt(2)))
	assert.True(t, tester.IsPrime(big.NewInt(3)))

	for _, n := range []int64{4, 6, 100, 1 << 40} {
		assert.False(t, tester.Fermat(big.NewInt(n)), "fermat accepted %d", n)
		assert.False(t, tester.MillerRabin(big.NewInt(n)), "miller-rabin accepted %d", n)
	}

	for _, n := range []int64{-7, 0, 1} {
		assert.False(t, tester.IsPrime(big.NewInt(n)), "accepted %d", n)
	}
}

func TestTester_EvenInputDrawsNoRandomness(t *testing.T) {
	tester := NewTester(Config{Witnesses: failingReader{}})

	assert.False(t, tester.Fermat(big.NewInt(1000)))
	assert.False(t, tester.MillerRabin(big.NewInt(1000)))
	assert.True(t, tester.IsPrime(big.NewInt(2)))
}

func TestTester_RejectsComposites(t *testing.T) {
	carmichael := []int64{561, 1105, 1729, 2465, 2821, 6601, 8911, 10585, 15841, 29341, 41041, 46657, 52633, 62745, 63973, 75361}
	semiprimes := []string{
		"4951760154835678088235319297",                   // (2^31-1)(2^61-1)
		"1427247692705959880439315947500961989719490561", // (2^61-1)(2^89-1)
		"18446744073709551617",                           // 2^64+1 = 274177 * 67280421310721
		"340282366920938463463374607431768211457",        // 2^128+1
	}

	var composites []*big.Int
	for _, c := range carmichael {
		composites = append(composites, big.NewInt(c))
	}
	for _, s := range semiprimes {
		composites = append(composites, mustBig(t, s))
	}
	for i := int64(9); i < 5000; i += 2 {
		if !TrialDivision(big.NewInt(i)) {
			composites = append(composites, big.NewInt(i))
		}
	}

	// A single false acceptance at k=5 is tolerated; the bound is per number,
	// so only the aggregate is asserted.
	falseAccepts := 0
	for trial := uint64(0); trial < 3; trial++ {
		tester := newSeededTester(100 + trial)
		for _, n := range composites {
			if tester.IsPrime(n) {
				falseAccepts++
			}
		}
	}
	assert.LessOrEqual(t, falseAccepts, 1, "too many composites accepted")
}

func TestMillerRabin_CatchesCarmichaelNumbers(t *testing.T) {
	tester := NewTester(Config{Rounds: 20, Witnesses: randutil.NewSeededWitnessReader(7)})
	for _, c := range []int64{561, 1105, 1729, 2465, 2821, 6601, 8911} {
		assert.False(t, tester.MillerRabin(big.NewInt(c)), "accepted Carmichael number %d", c)
	}
}

func TestStrongProbablePrime_KnownWitnesses(t *testing.T) {
	// 2047 = 23*89 is a strong pseudoprime to base 2 but not to base 3
	n := big.NewInt(2047)
	nMinusOne := big.NewInt(2046)
	s := nMinusOne.TrailingZeroBits()
	d := new(big.Int).Rsh(nMinusOne, s)

	assert.True(t, strongProbablePrime(n, nMinusOne, big.NewInt(2), d, s))
	assert.False(t, strongProbablePrime(n, nMinusOne, big.NewInt(3), d, s))
}

func TestTester_DefaultRounds(t *testing.T) {
	assert.Equal(t, DefaultRounds, NewTester(Config{}).Rounds())
	assert.Equal(t, 12, NewTester(Config{Rounds: 12}).Rounds())
}

func TestPackageHelpers(t *testing.T) {
	assert.True(t, IsProbablePrime(big.NewInt(7919)))
	assert.False(t, IsProbablePrime(big.NewInt(7917)))
	assert.True(t, Fermat(big.NewInt(104729), 5))
	assert.True(t, MillerRabin(big.NewInt(104729), 5))
	assert.False(t, MillerRabin(big.NewInt(104727), 10))
}

func TestTrialDivision(t *testing.T) {
	primes := []int64{2, 3, 5, 7, 11, 13, 7919, 104729, 2147483647}
	for _, p := range primes {
		assert.True(t, TrialDivision(big.NewInt(p)), "%d", p)
	}

	composites := []int64{-3, 0, 1, 4, 9, 25, 49, 561, 7917, 2147483649}
	for _, c := range composites {
		assert.False(t, TrialDivision(big.NewInt(c)), "%d", c)
	}

	// beyond uint64: 2^64+1 = 274177 * 67280421310721, and 2^65
	assert.False(t, TrialDivision(mustBig(t, "18446744073709551617")))
	assert.False(t, TrialDivision(mustBig(t, "36893488147419103232")))
}

func TestTester_Fork(t *testing.T) {
	a, err := newSeededTester(11).Fork()
	require.NoError(t, err)
	b, err := newSeededTester(11).Fork()
	require.NoError(t, err)
	assert.Equal(t, DefaultRounds, a.Rounds())

	// same parent seed, same witnesses
	n := mustBig(t, "1000000007")
	for i := 0; i < 5; i++ {
		wa, err := a.witness(n)
		require.NoError(t, err)
		wb, err := b.witness(n)
		require.NoError(t, err)
		assert.Equal(t, 0, wa.Cmp(wb))
	}

	_, err = NewTester(Config{Witnesses: emptyReader{}}).Fork()
	assert.Error(t, err)
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	panic("randomness must not be drawn")
}
