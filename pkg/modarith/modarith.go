// Package modarith implements the extended Euclidean algorithm and modular
// inverses over math/big integers.
package modarith

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotInvertible is returned by ModInverse when gcd(e, n) != 1.
	ErrNotInvertible = errors.New("modarith: element is not invertible")

	// ErrDomain marks an argument outside an operation's precondition, such
	// as a non-positive modulus or bit length. Other packages in this module
	// wrap it so callers can match with errors.Is.
	ErrDomain = errors.New("arithmetic domain error")
)

var bigOne = big.NewInt(1)

// ExtendedGCD returns g = gcd(a, b) together with Bézout coefficients x, y
// such that a*x + b*y = g. g is never negative.
//
// The loop keeps the invariants a*x0 + b*y0 = r0 and a*x1 + b*y1 = r1 and
// uses floor division, so arbitrary signs (including a = 0 or b = 0) are
// handled without recursion.
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	r0, r1 := new(big.Int).Set(a), new(big.Int).Set(b)
	x0, x1 := big.NewInt(1), big.NewInt(0)
	y0, y1 := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	t := new(big.Int)
	for r1.Sign() != 0 {
		floorDiv(q, r0, r1)

		// (r0, r1) = (r1, r0 - q*r1)
		t.Mul(q, r1)
		t.Sub(r0, t)
		r0, r1 = r1, new(big.Int).Set(t)

		t.Mul(q, x1)
		t.Sub(x0, t)
		x0, x1 = x1, new(big.Int).Set(t)

		t.Mul(q, y1)
		t.Sub(y0, t)
		y0, y1 = y1, new(big.Int).Set(t)
	}

	if r0.Sign() < 0 {
		r0.Neg(r0)
		x0.Neg(x0)
		y0.Neg(y0)
	}
	return r0, x0, y0
}

// GCD returns the non-negative greatest common divisor of a and b. It runs
// the same remainder sequence as ExtendedGCD without tracking coefficients.
func GCD(a, b *big.Int) *big.Int {
	r0 := new(big.Int).Abs(a)
	r1 := new(big.Int).Abs(b)
	for r1.Sign() != 0 {
		r0.Rem(r0, r1)
		r0, r1 = r1, r0
	}
	return r0
}

// ModInverse returns d in [0, n) with e*d ≡ 1 (mod n).
func ModInverse(e, n *big.Int) (*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus must be positive, got %s", ErrDomain, n)
	}
	if n.Cmp(bigOne) == 0 {
		// every integer is congruent to 0 and 1 mod 1
		return new(big.Int), nil
	}

	g, x, _ := ExtendedGCD(e, n)
	if g.Cmp(bigOne) != 0 {
		return nil, fmt.Errorf("%w: gcd(%s, %s) = %s", ErrNotInvertible, e, n, g)
	}

	// x may be negative or exceed n when e is outside [0, n)
	x.Mod(x, n)
	return x, nil
}

// Normalize reduces a into [0, n). n must be positive.
func Normalize(a, n *big.Int) *big.Int {
	return new(big.Int).Mod(a, n)
}

// floorDiv sets q = floor(a / b). big.Int.Div is Euclidean division, which
// differs from floor division when b is negative.
func floorDiv(q, a, b *big.Int) *big.Int {
	m := new(big.Int)
	q.QuoRem(a, b, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, bigOne)
	}
	return q
}
