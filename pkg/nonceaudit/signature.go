package nonceaudit

import "math/big"

// Sample is a dlsig signature together with the hash of the signed message.
type Sample struct {
	H *big.Int // message hash as an integer
	R *big.Int // r component of the signature
	S *big.Int // s component of the signature
}

// AffineRelationship represents the relationship between two nonces.
// k2 = a*k1 + b
type AffineRelationship struct {
	A *big.Int // Affine coefficient
	B *big.Int // Affine offset
}

// RecoveryResult contains the result of a key recovery operation.
type RecoveryResult struct {
	PrivateKey   *big.Int           // Recovered private exponent x
	Relationship AffineRelationship // The affine relationship found (k2 = a*k1 + b)
	SamplePair   [2]int             // Indices of the sample pair used
	Verified     bool               // Whether y = g^x mod p was checked
	Pattern      string             // Human-readable pattern description
}
