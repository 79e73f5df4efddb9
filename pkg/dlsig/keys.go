package dlsig

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mahdiidarabi/ntsig/pkg/modarith"
)

// PublicKey holds the verification parameters. Y = G^x mod P.
type PublicKey struct {
	P *big.Int // prime modulus
	G *big.Int // generator in [2, P-2]
	Y *big.Int // public value
}

// KeyPair is a public key together with its private exponent x. The exponent
// never leaves the pair except through MarshalJSON.
type KeyPair struct {
	PublicKey
	x      *big.Int
	scheme *Scheme
}

// NewKeyPair rebuilds a key pair from p, g and the private exponent x,
// recomputing y = g^x mod p.
func NewKeyPair(p, g, x *big.Int) (*KeyPair, error) {
	return defaultScheme.NewKeyPair(p, g, x)
}

// NewKeyPair is the package-level NewKeyPair bound to s.
func (s *Scheme) NewKeyPair(p, g, x *big.Int) (*KeyPair, error) {
	if err := checkModulus(p); err != nil {
		return nil, err
	}
	pMinusTwo := new(big.Int).Sub(p, bigTwo)
	if !inRange(g, bigTwo, pMinusTwo) {
		return nil, fmt.Errorf("%w: generator must be in [2, p-2]", modarith.ErrDomain)
	}
	if !inRange(x, bigTwo, pMinusTwo) {
		return nil, fmt.Errorf("%w: private exponent must be in [2, p-2]", modarith.ErrDomain)
	}

	return &KeyPair{
		PublicKey: PublicKey{
			P: new(big.Int).Set(p),
			G: new(big.Int).Set(g),
			Y: new(big.Int).Exp(g, x, p),
		},
		x:      new(big.Int).Set(x),
		scheme: s,
	}, nil
}

// Public returns a copy of the public half of the pair.
func (kp *KeyPair) Public() *PublicKey {
	return &PublicKey{
		P: new(big.Int).Set(kp.P),
		G: new(big.Int).Set(kp.G),
		Y: new(big.Int).Set(kp.Y),
	}
}

// Sign signs message with the pair's private exponent.
func (kp *KeyPair) Sign(message []byte) (*Signature, error) {
	return kp.scheme.Sign(message, kp.P, kp.G, kp.x)
}

// SignWithNonce signs message with the caller's nonce k. Related nonces leak
// x; this exists for test vectors and audit fixtures.
func (kp *KeyPair) SignWithNonce(message []byte, k *big.Int) (*Signature, error) {
	return kp.scheme.SignWithNonce(message, kp.P, kp.G, kp.x, k)
}

// Verify checks sig against the pair's public key using the pair's digest.
func (kp *KeyPair) Verify(message []byte, sig *Signature) bool {
	return kp.scheme.Verify(message, sig, kp.P, kp.G, kp.Y)
}

// Verify checks sig against pub with the default SHA-256 digest.
func (pub *PublicKey) Verify(message []byte, sig *Signature) bool {
	return Verify(message, sig, pub.P, pub.G, pub.Y)
}

type keyJSON struct {
	P string `json:"p"`
	G string `json:"g"`
	Y string `json:"y"`
	X string `json:"x,omitempty"`
}

// MarshalJSON encodes the pair as 0x-prefixed hex, private exponent included.
func (kp *KeyPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyJSON{
		P: hexInt(kp.P),
		G: hexInt(kp.G),
		Y: hexInt(kp.Y),
		X: hexInt(kp.x),
	})
}

// MarshalJSON encodes the public key as 0x-prefixed hex.
func (pub *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyJSON{P: hexInt(pub.P), G: hexInt(pub.G), Y: hexInt(pub.Y)})
}

func hexInt(z *big.Int) string {
	return "0x" + z.Text(16)
}

// checkModulus rejects moduli for which [2, p-2] is empty.
func checkModulus(p *big.Int) error {
	if p == nil || p.Cmp(bigFive) < 0 {
		return fmt.Errorf("%w: modulus must be at least 5", modarith.ErrDomain)
	}
	return nil
}

func inRange(v, lo, hi *big.Int) bool {
	return v != nil && v.Cmp(lo) >= 0 && v.Cmp(hi) <= 0
}
