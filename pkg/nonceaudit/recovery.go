package nonceaudit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
	"github.com/mahdiidarabi/ntsig/pkg/modarith"
)

// MaxCandidates caps the number of solutions RecoverPrivateKey enumerates
// when the coefficient shares a large factor with p-1.
const MaxCandidates = 1 << 16

var (
	// ErrDegenerate is returned when the pair carries no information about x.
	ErrDegenerate = errors.New("nonceaudit: coefficient is zero mod p-1")

	// ErrNoSolution is returned when the congruence has no solution, i.e.
	// the pair does not satisfy the assumed relationship.
	ErrNoSolution = errors.New("nonceaudit: congruence has no solution")

	// ErrTooManyCandidates is returned when gcd(coefficient, p-1) exceeds
	// MaxCandidates.
	ErrTooManyCandidates = errors.New("nonceaudit: too many candidate exponents")
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// RecoverPrivateKey returns every x in [0, p-1) consistent with two samples
// signed under pub with nonces k2 = a*k1 + b.
//
// It solves
//
//	x * (a*s2*r1 - s1*r2) ≡ a*s2*h1 - s1*h2 + b*s1*s2 (mod p-1)
//
// When d = gcd(coefficient, p-1) > 1 there are d solutions, spaced (p-1)/d
// apart; all of them are returned in ascending order.
func RecoverPrivateKey(pub *dlsig.PublicKey, sig1, sig2 *Sample, a, b *big.Int) ([]*big.Int, error) {
	if pub == nil || pub.P == nil || pub.P.Cmp(big.NewInt(5)) < 0 {
		return nil, fmt.Errorf("%w: invalid public modulus", modarith.ErrDomain)
	}
	q := new(big.Int).Sub(pub.P, bigOne)

	// Calculate coefficient: (a * s2 * r1 - s1 * r2) mod q
	as2r1 := new(big.Int).Mul(a, sig2.S)
	as2r1.Mul(as2r1, sig1.R)

	s1r2 := new(big.Int).Mul(sig1.S, sig2.R)

	coeff := new(big.Int).Sub(as2r1, s1r2)
	coeff.Mod(coeff, q)

	// Calculate right-hand side: (a * s2 * h1 - s1 * h2 + b * s1 * s2) mod q
	as2h1 := new(big.Int).Mul(a, sig2.S)
	as2h1.Mul(as2h1, sig1.H)

	s1h2 := new(big.Int).Mul(sig1.S, sig2.H)

	bs1s2 := new(big.Int).Mul(b, sig1.S)
	bs1s2.Mul(bs1s2, sig2.S)

	rhs := new(big.Int).Sub(as2h1, s1h2)
	rhs.Add(rhs, bs1s2)
	rhs.Mod(rhs, q)

	if coeff.Sign() == 0 {
		return nil, ErrDegenerate
	}

	d := modarith.GCD(coeff, q)
	if new(big.Int).Mod(rhs, d).Sign() != 0 {
		return nil, ErrNoSolution
	}
	if d.Cmp(big.NewInt(MaxCandidates)) > 0 {
		return nil, fmt.Errorf("%w: gcd is %s", ErrTooManyCandidates, d)
	}

	// reduce to coeff' * x ≡ rhs' (mod q') with coeff' invertible
	step := new(big.Int).Quo(q, d)
	coeff.Quo(coeff, d)
	rhs.Quo(rhs, d)

	inv, err := modarith.ModInverse(coeff, step)
	if err != nil {
		return nil, fmt.Errorf("failed to compute modular inverse: %w", err)
	}

	x0 := new(big.Int).Mul(rhs, inv)
	x0.Mod(x0, step)

	n := int(d.Int64())
	candidates := make([]*big.Int, 0, n)
	for i := 0; i < n; i++ {
		x := new(big.Int).Mul(step, big.NewInt(int64(i)))
		x.Add(x, x0)
		candidates = append(candidates, x)
	}
	return candidates, nil
}

// VerifyRecoveredKey reports whether x is the private exponent of pub, i.e.
// x lies in [2, p-2] and g^x mod p == y.
func VerifyRecoveredKey(pub *dlsig.PublicKey, x *big.Int) (bool, error) {
	if pub == nil || pub.P == nil || pub.G == nil || pub.Y == nil {
		return false, errors.New("public key must have p, g and y")
	}

	pMinusTwo := new(big.Int).Sub(pub.P, bigTwo)
	if x.Cmp(bigTwo) < 0 || x.Cmp(pMinusTwo) > 0 {
		return false, nil
	}

	return new(big.Int).Exp(pub.G, x, pub.P).Cmp(pub.Y) == 0, nil
}

// recoverVerified runs RecoverPrivateKey and returns the candidate that
// matches pub.Y. Without Y, a unique in-range candidate is returned
// unverified.
func recoverVerified(pub *dlsig.PublicKey, sig1, sig2 *Sample, a, b *big.Int) (*big.Int, bool) {
	candidates, err := RecoverPrivateKey(pub, sig1, sig2, a, b)
	if err != nil {
		return nil, false
	}

	if pub.Y == nil {
		if len(candidates) != 1 {
			return nil, false
		}
		x := candidates[0]
		pMinusTwo := new(big.Int).Sub(pub.P, bigTwo)
		if x.Cmp(bigTwo) < 0 || x.Cmp(pMinusTwo) > 0 {
			return nil, false
		}
		return x, false
	}

	for _, x := range candidates {
		if ok, _ := VerifyRecoveredKey(pub, x); ok {
			return x, true
		}
	}
	return nil, false
}

// HashMessage hashes message the way dlsig does by default (SHA-256).
func HashMessage(message []byte) *big.Int {
	return dlsig.HashMessage(message)
}
