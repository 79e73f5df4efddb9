package pkc

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
)

// dlSignatureASN1 is SEQUENCE { r INTEGER, s INTEGER }, the same layout
// DSA and ECDSA use.
type dlSignatureASN1 struct {
	R, S *big.Int
}

// DLSigner adapts a dlsig key pair to Signer.
type DLSigner struct {
	kp *dlsig.KeyPair
}

// NewDLSigner wraps kp.
func NewDLSigner(kp *dlsig.KeyPair) *DLSigner {
	return &DLSigner{kp: kp}
}

// Algorithm implements Verifier.
func (s *DLSigner) Algorithm() string { return "dlsig" }

// Sign implements Signer.
func (s *DLSigner) Sign(message []byte) ([]byte, error) {
	sig, err := s.kp.Sign(message)
	if err != nil {
		return nil, err
	}
	return MarshalDLSignature(sig)
}

// Verify implements Verifier.
func (s *DLSigner) Verify(message, signature []byte) bool {
	sig, err := UnmarshalDLSignature(signature)
	if err != nil {
		return false
	}
	return s.kp.Verify(message, sig)
}

// MarshalDLSignature DER-encodes sig.
func MarshalDLSignature(sig *dlsig.Signature) ([]byte, error) {
	der, err := asn1.Marshal(dlSignatureASN1{R: sig.R, S: sig.S})
	if err != nil {
		return nil, fmt.Errorf("pkc: encode signature: %w", err)
	}
	return der, nil
}

// UnmarshalDLSignature decodes a DER signature written by MarshalDLSignature.
// Trailing bytes are rejected.
func UnmarshalDLSignature(der []byte) (*dlsig.Signature, error) {
	var v dlSignatureASN1
	rest, err := asn1.Unmarshal(der, &v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedSignature, len(rest))
	}
	return &dlsig.Signature{R: v.R, S: v.S}, nil
}
