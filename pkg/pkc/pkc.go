// Package pkc wraps established public-key primitives behind one Signer
// interface so they can be used side by side with dlsig: RSA-PSS, secp256k1
// ECDSA and an adapter that encodes dlsig signatures as DER.
//
// Nothing here implements padding or curve arithmetic; the RSA code calls
// crypto/rsa and the ECDSA code calls github.com/decred/dcrd/dcrec/secp256k1.
package pkc

import (
	"crypto/sha256"
	"errors"
)

// ErrMalformedSignature is returned when signature bytes cannot be decoded.
var ErrMalformedSignature = errors.New("pkc: malformed signature")

// Verifier checks signatures produced by the matching Signer.
type Verifier interface {
	// Verify reports whether signature is valid for message. Malformed
	// signatures yield false.
	Verify(message, signature []byte) bool

	// Algorithm names the scheme, e.g. "rsa-pss-sha256".
	Algorithm() string
}

// Signer produces signatures over arbitrary messages. Messages are hashed
// by the implementation.
type Signer interface {
	Verifier

	Sign(message []byte) ([]byte, error)
}

func sha256Sum(message []byte) []byte {
	sum := sha256.Sum256(message)
	return sum[:]
}
