package primegen

import "math/big"

// Sieve returns every prime p <= n in ascending order.
func Sieve(n int) []int {
	if n < 2 {
		return nil
	}

	composite := make([]bool, n+1)
	primes := make([]int, 0, estimateCount(n))
	for p := 2; p <= n; p++ {
		if composite[p] {
			continue
		}
		primes = append(primes, p)
		for i := p * p; i <= n; i += p {
			composite[i] = true
		}
	}
	return primes
}

// SieveBig is Sieve with big.Int results.
func SieveBig(n int) []*big.Int {
	primes := Sieve(n)
	out := make([]*big.Int, len(primes))
	for i, p := range primes {
		out[i] = big.NewInt(int64(p))
	}
	return out
}

// estimateCount over-approximates pi(n) for preallocation.
func estimateCount(n int) int {
	if n < 100 {
		return 25
	}
	bits := 0
	for v := n; v > 0; v >>= 1 {
		bits++
	}
	// n/ln(n) * 1.3, with ln(n) ~ 0.69*bits
	return int(float64(n) / (0.69 * float64(bits)) * 1.3)
}
