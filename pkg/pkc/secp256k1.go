package pkc

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Secp256k1Signer signs SHA-256 digests with deterministic (RFC 6979)
// ECDSA over secp256k1. Signatures are DER encoded.
type Secp256k1Signer struct {
	key *secp256k1.PrivateKey
}

// GenerateSecp256k1 creates a signer with a fresh private key.
func GenerateSecp256k1() (*Secp256k1Signer, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("pkc: generate secp256k1 key: %w", err)
	}
	return &Secp256k1Signer{key: key}, nil
}

// ParseSecp256k1 builds a signer from a hex encoded 32 byte private key.
func ParseSecp256k1(keyHex string) (*Secp256k1Signer, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("pkc: invalid private key hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("pkc: private key must be 32 bytes, got %d", len(raw))
	}
	return &Secp256k1Signer{key: secp256k1.PrivKeyFromBytes(raw)}, nil
}

// Algorithm implements Verifier.
func (s *Secp256k1Signer) Algorithm() string { return "ecdsa-secp256k1-sha256" }

// PrivateKeyHex returns the private scalar as 64 hex digits.
func (s *Secp256k1Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.key.Serialize())
}

// PublicKeyHex returns the 33 byte compressed public key in hex.
func (s *Secp256k1Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.key.PubKey().SerializeCompressed())
}

// Sign implements Signer.
func (s *Secp256k1Signer) Sign(message []byte) ([]byte, error) {
	return ecdsa.Sign(s.key, sha256Sum(message)).Serialize(), nil
}

// Verify implements Verifier.
func (s *Secp256k1Signer) Verify(message, signature []byte) bool {
	return verifySecp256k1(s.key.PubKey(), message, signature)
}

// Secp256k1Verifier checks signatures against a public key only.
type Secp256k1Verifier struct {
	pub *secp256k1.PublicKey
}

// ParseSecp256k1PublicKey accepts a compressed or uncompressed public key in hex.
func ParseSecp256k1PublicKey(pubHex string) (*Secp256k1Verifier, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(pubHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("pkc: invalid public key hex: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("pkc: parse public key: %w", err)
	}
	return &Secp256k1Verifier{pub: pub}, nil
}

// Algorithm implements Verifier.
func (v *Secp256k1Verifier) Algorithm() string { return "ecdsa-secp256k1-sha256" }

// Verify implements Verifier.
func (v *Secp256k1Verifier) Verify(message, signature []byte) bool {
	return verifySecp256k1(v.pub, message, signature)
}

func verifySecp256k1(pub *secp256k1.PublicKey, message, signature []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(sha256Sum(message), pub)
}
