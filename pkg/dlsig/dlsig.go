// Package dlsig implements an ElGamal-type digital signature over the
// multiplicative group modulo a prime, in the style of GOST R 34.10-94.
//
// A key pair is (p, g, x, y = g^x mod p). A signature on message m is
//
//	r = g^k mod p
//	s = k^-1 * (H(m) - x*r) mod (p-1)
//
// for a fresh nonce k coprime to p-1, and it verifies when
// g^H(m) ≡ y^r * r^s (mod p).
//
// Private exponents and nonces are drawn from crypto/rand by default. The
// prime modulus comes from primegen, whose witnesses use a cheaper stream.
package dlsig

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/internal/randutil"
	"github.com/mahdiidarabi/ntsig/pkg/modarith"
	"github.com/mahdiidarabi/ntsig/pkg/primegen"
)

// MinBits is the smallest modulus size GenerateKeys accepts. Below it p-1
// has too few invertible nonces for every message to be signable.
const MinBits = 8

// smallModulusBits is the largest modulus for which Sign walks every nonce
// instead of drawing them at random.
const smallModulusBits = 16

// ErrNonceExhausted is returned when no usable nonce was found within
// Config.MaxNonceAttempts draws.
var ErrNonceExhausted = errors.New("dlsig: no invertible nonce found")

var (
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
	bigFive = big.NewInt(5)
)

// Signature is the pair (R, S).
type Signature struct {
	R *big.Int
	S *big.Int
}

// Config configures a Scheme.
type Config struct {
	// MaxNonceAttempts bounds the search for k with gcd(k, p-1) = 1.
	MaxNonceAttempts int

	// Hasher maps messages to integers (nil = SHA256).
	Hasher Hasher

	// Rand supplies private exponents, generators and nonces
	// (nil = crypto/rand.Reader).
	Rand io.Reader
}

// DefaultConfig returns the default scheme configuration.
func DefaultConfig() Config {
	return Config{
		MaxNonceAttempts: 1000,
		Hasher:           SHA256,
		Rand:             rand.Reader,
	}
}

// Scheme signs and verifies with a fixed digest and randomness source.
type Scheme struct {
	config    Config
	generator *primegen.Generator
	log       logger.Logger
}

// NewScheme creates a scheme with default settings.
func NewScheme() *Scheme {
	return NewSchemeWithConfig(DefaultConfig())
}

// NewSchemeWithConfig creates a scheme from config.
func NewSchemeWithConfig(config Config) *Scheme {
	if config.MaxNonceAttempts <= 0 {
		config.MaxNonceAttempts = DefaultConfig().MaxNonceAttempts
	}
	if config.Hasher == nil {
		config.Hasher = SHA256
	}
	if config.Rand == nil {
		config.Rand = rand.Reader
	}
	return &Scheme{
		config:    config,
		generator: primegen.NewGenerator(),
	}
}

// WithGenerator sets the prime generator used by GenerateKeys.
func (s *Scheme) WithGenerator(generator *primegen.Generator) *Scheme {
	s.generator = generator
	return s
}

// WithLogger attaches a logger.
func (s *Scheme) WithLogger(log logger.Logger) *Scheme {
	s.log = log.Named("dlsig")
	return s
}

// GenerateKeys creates a key pair with a bits-bit prime modulus.
func (s *Scheme) GenerateKeys(ctx context.Context, bits int) (*KeyPair, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: key size must be at least %d bits, got %d", modarith.ErrDomain, MinBits, bits)
	}

	p, err := s.generator.Generate(ctx, bits)
	if err != nil {
		return nil, fmt.Errorf("dlsig: generate modulus: %w", err)
	}

	pMinusTwo := new(big.Int).Sub(p, bigTwo)
	g, err := randutil.Range(s.config.Rand, bigTwo, pMinusTwo)
	if err != nil {
		return nil, fmt.Errorf("dlsig: draw generator: %w", err)
	}
	x, err := randutil.Range(s.config.Rand, bigTwo, pMinusTwo)
	if err != nil {
		return nil, fmt.Errorf("dlsig: draw private exponent: %w", err)
	}

	if s.log != nil {
		s.log.Info("key pair generated", logger.NewField("bits", p.BitLen()))
	}

	return &KeyPair{
		PublicKey: PublicKey{P: p, G: g, Y: new(big.Int).Exp(g, x, p)},
		x:         x,
		scheme:    s,
	}, nil
}

// HashMessage maps message to an integer with the scheme's digest.
func (s *Scheme) HashMessage(message []byte) *big.Int {
	return digest(s.config.Hasher, message)
}

// Sign signs message under (p, g, x) with a fresh random nonce.
func (s *Scheme) Sign(message []byte, p, g, x *big.Int) (*Signature, error) {
	if err := checkModulus(p); err != nil {
		return nil, err
	}

	pMinusOne := new(big.Int).Sub(p, bigOne)
	pMinusTwo := new(big.Int).Sub(p, bigTwo)
	h := s.HashMessage(message)

	if p.BitLen() <= smallModulusBits {
		return s.signSmall(h, p, pMinusOne, pMinusTwo, g, x)
	}

	for attempt := 1; attempt <= s.config.MaxNonceAttempts; attempt++ {
		k, err := randutil.Range(s.config.Rand, bigTwo, pMinusTwo)
		if err != nil {
			return nil, fmt.Errorf("dlsig: draw nonce: %w", err)
		}

		sig, err := sign(h, p, pMinusOne, g, x, k)
		if errors.Is(err, modarith.ErrNotInvertible) || (err == nil && sig.S.Sign() == 0) {
			// s = 0 would fail the verifier's range check
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.log != nil && attempt > 1 {
			s.log.Debug("nonce accepted after retries", logger.NewField("attempts", attempt))
		}
		return sig, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrNonceExhausted, s.config.MaxNonceAttempts)
}

// signSmall tries every nonce in [2, p-2] once, starting at a random offset.
// For tiny moduli all usable nonces may give s = 0, which random retries
// could never detect.
func (s *Scheme) signSmall(h, p, pMinusOne, pMinusTwo, g, x *big.Int) (*Signature, error) {
	start, err := randutil.Range(s.config.Rand, bigTwo, pMinusTwo)
	if err != nil {
		return nil, fmt.Errorf("dlsig: draw nonce: %w", err)
	}

	span := new(big.Int).Sub(pMinusTwo, bigOne) // |[2, p-2]|
	offset := new(big.Int).Sub(start, bigTwo)
	k := new(big.Int)
	for i := int64(0); i < span.Int64(); i++ {
		k.Add(offset, big.NewInt(i))
		k.Mod(k, span)
		k.Add(k, bigTwo)

		sig, err := sign(h, p, pMinusOne, g, x, k)
		if errors.Is(err, modarith.ErrNotInvertible) || (err == nil && sig.S.Sign() == 0) {
			continue
		}
		return sig, err
	}

	return nil, fmt.Errorf("%w: no nonce mod %s gives s != 0 for this message", modarith.ErrDomain, p)
}

// SignWithNonce signs with the caller's nonce k. It is deterministic and
// meant for test vectors and audits; reusing or relating nonces across
// messages leaks x (see package nonceaudit).
func (s *Scheme) SignWithNonce(message []byte, p, g, x, k *big.Int) (*Signature, error) {
	if err := checkModulus(p); err != nil {
		return nil, err
	}
	pMinusOne := new(big.Int).Sub(p, bigOne)
	return sign(s.HashMessage(message), p, pMinusOne, g, x, k)
}

func sign(h, p, pMinusOne, g, x, k *big.Int) (*Signature, error) {
	kInv, err := modarith.ModInverse(k, pMinusOne)
	if err != nil {
		return nil, err
	}

	r := new(big.Int).Exp(g, k, p)

	// s = kInv * (h - x*r) mod (p-1)
	sv := new(big.Int).Mul(x, r)
	sv.Sub(h, sv)
	sv.Mul(sv, kInv)
	sv.Mod(sv, pMinusOne)

	return &Signature{R: r, S: sv}, nil
}

// Verify reports whether sig is a valid signature on message under
// (p, g, y). Malformed input of any kind yields false.
func (s *Scheme) Verify(message []byte, sig *Signature, p, g, y *big.Int) bool {
	if sig == nil || sig.R == nil || sig.S == nil || p == nil || g == nil || y == nil {
		return false
	}
	if p.Cmp(bigFive) < 0 {
		return false
	}

	pMinusOne := new(big.Int).Sub(p, bigOne)
	pMinusTwo := new(big.Int).Sub(p, bigTwo)
	if !inRange(sig.R, bigOne, pMinusOne) || !inRange(sig.S, bigOne, pMinusTwo) {
		return false
	}
	if g.Sign() < 0 || y.Sign() < 0 {
		return false
	}

	h := s.HashMessage(message)
	v1 := new(big.Int).Exp(g, h, p)

	v2 := new(big.Int).Exp(y, sig.R, p)
	v2.Mul(v2, new(big.Int).Exp(sig.R, sig.S, p))
	v2.Mod(v2, p)

	return v1.Cmp(v2) == 0
}

var defaultScheme = NewScheme()

// GenerateKeys creates a key pair with a bits-bit prime modulus using the
// default scheme.
func GenerateKeys(bits int) (*KeyPair, error) {
	return defaultScheme.GenerateKeys(context.Background(), bits)
}

// Sign signs message under (p, g, x) with SHA-256 and a random nonce.
func Sign(message []byte, p, g, x *big.Int) (*Signature, error) {
	return defaultScheme.Sign(message, p, g, x)
}

// SignWithNonce signs message with a caller-supplied nonce k.
func SignWithNonce(message []byte, p, g, x, k *big.Int) (*Signature, error) {
	return defaultScheme.SignWithNonce(message, p, g, x, k)
}

// Verify checks sig on message under (p, g, y) with SHA-256.
func Verify(message []byte, sig *Signature, p, g, y *big.Int) bool {
	return defaultScheme.Verify(message, sig, p, g, y)
}
