package pkc

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"
)

// DefaultRSABits is the modulus size used by GenerateRSA callers that do
// not care.
const DefaultRSABits = 2048

// RSASigner signs with RSASSA-PSS over SHA-256, using the largest salt the
// modulus allows.
type RSASigner struct {
	key  *rsa.PrivateKey
	rand io.Reader
}

// GenerateRSA creates a fresh RSA key of the given size.
func GenerateRSA(bits int) (*RSASigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("pkc: generate rsa key: %w", err)
	}
	return NewRSASigner(key), nil
}

// NewRSASigner wraps an existing key.
func NewRSASigner(key *rsa.PrivateKey) *RSASigner {
	return &RSASigner{key: key, rand: rand.Reader}
}

// Algorithm implements Verifier.
func (s *RSASigner) Algorithm() string { return "rsa-pss-sha256" }

// Public returns the public half of the key.
func (s *RSASigner) Public() *rsa.PublicKey { return &s.key.PublicKey }

// Sign implements Signer.
func (s *RSASigner) Sign(message []byte) ([]byte, error) {
	sig, err := rsa.SignPSS(s.rand, s.key, crypto.SHA256, sha256Sum(message), &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("pkc: rsa-pss sign: %w", err)
	}
	return sig, nil
}

// Verify implements Verifier.
func (s *RSASigner) Verify(message, signature []byte) bool {
	return VerifyRSAPSS(s.Public(), message, signature)
}

// VerifyRSAPSS checks an RSASSA-PSS SHA-256 signature with any salt length.
func VerifyRSAPSS(pub *rsa.PublicKey, message, signature []byte) bool {
	err := rsa.VerifyPSS(pub, crypto.SHA256, sha256Sum(message), signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	return err == nil
}

// EncryptOAEP encrypts plaintext to pub with RSAES-OAEP (SHA-256, empty label).
func EncryptOAEP(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("pkc: oaep encrypt: %w", err)
	}
	return ct, nil
}

// DecryptOAEP reverses EncryptOAEP.
func (s *RSASigner) DecryptOAEP(ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), nil, s.key, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("pkc: oaep decrypt: %w", err)
	}
	return pt, nil
}
