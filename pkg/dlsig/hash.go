package dlsig

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Hasher constructs the 256-bit digest used to map messages to integers.
type Hasher func() hash.Hash

var (
	// SHA256 is the default digest.
	SHA256 Hasher = sha256.New

	// SHA3_256 is FIPS 202 SHA3-256.
	SHA3_256 Hasher = sha3.New256

	// BLAKE2b256 is unkeyed BLAKE2b with a 32 byte output.
	BLAKE2b256 Hasher = func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			// only returned for keys longer than 64 bytes
			panic(err)
		}
		return h
	}
)

var hashers = map[string]Hasher{
	"sha256":     SHA256,
	"sha3-256":   SHA3_256,
	"blake2b256": BLAKE2b256,
}

// HasherByName returns the digest registered under name ("sha256",
// "sha3-256" or "blake2b256").
func HasherByName(name string) (Hasher, error) {
	h, ok := hashers[name]
	if !ok {
		return nil, fmt.Errorf("dlsig: unknown digest %q (available: %v)", name, HasherNames())
	}
	return h, nil
}

// HasherNames lists the registered digest names in sorted order.
func HasherNames() []string {
	names := make([]string, 0, len(hashers))
	for name := range hashers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// digest hashes message with h and interprets the output as a big-endian
// non-negative integer.
func digest(h Hasher, message []byte) *big.Int {
	d := h()
	d.Write(message)
	return new(big.Int).SetBytes(d.Sum(nil))
}

// Int hashes message and returns the digest as a non-negative integer.
func (h Hasher) Int(message []byte) *big.Int {
	return digest(h, message)
}

// HashMessage returns SHA-256(message) as a non-negative integer.
func HashMessage(message []byte) *big.Int {
	return digest(SHA256, message)
}
