package primality

import "math/big"

// TrialDivision reports exactly whether n is prime by dividing by 2, 3 and
// every 6k±1 up to sqrt(n). Only practical for n below roughly 2^50.
func TrialDivision(n *big.Int) bool {
	if n.Sign() <= 0 || n.Cmp(bigOne) == 0 {
		return false
	}
	if n.IsUint64() {
		return trialDivisionUint64(n.Uint64())
	}

	limit := new(big.Int).Sqrt(n)
	m := new(big.Int)
	for _, p := range []int64{2, 3} {
		if n.Cmp(big.NewInt(p)) == 0 {
			return true
		}
		if m.Mod(n, big.NewInt(p)).Sign() == 0 {
			return false
		}
	}

	i, j := big.NewInt(5), big.NewInt(7)
	six := big.NewInt(6)
	for i.Cmp(limit) <= 0 {
		if m.Mod(n, i).Sign() == 0 || m.Mod(n, j).Sign() == 0 {
			return false
		}
		i.Add(i, six)
		j.Add(j, six)
	}
	return true
}

func trialDivisionUint64(n uint64) bool {
	switch {
	case n < 2:
		return false
	case n < 4:
		return true
	case n%2 == 0 || n%3 == 0:
		return false
	}
	for i := uint64(5); i <= n/i; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}
