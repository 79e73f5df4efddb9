// Package randutil draws uniform big integers from an io.Reader.
//
// Two kinds of readers are used across the module. Secret material (private
// exponents, signing nonces) is drawn from crypto/rand.Reader. Primality
// witnesses only need to be uniform, so testers default to a ChaCha8 stream
// from NewWitnessReader, which is cheaper and can be seeded for reproducible
// runs.
package randutil

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

var one = big.NewInt(1)

// ErrEmptyRange is returned when lo > hi.
var ErrEmptyRange = errors.New("randutil: empty range")

// Range returns a uniform integer in [lo, hi].
func Range(r io.Reader, lo, hi *big.Int) (*big.Int, error) {
	if lo.Cmp(hi) > 0 {
		return nil, fmt.Errorf("%w: [%s, %s]", ErrEmptyRange, lo, hi)
	}
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, one)
	n, err := rand.Int(r, span)
	if err != nil {
		return nil, fmt.Errorf("randutil: read random: %w", err)
	}
	return n.Add(n, lo), nil
}

// Bits returns a uniform integer in [0, 2^bits).
func Bits(r io.Reader, bits int) (*big.Int, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("randutil: bit length must be positive, got %d", bits)
	}
	limit := new(big.Int).Lsh(one, uint(bits))
	n, err := rand.Int(r, limit)
	if err != nil {
		return nil, fmt.Errorf("randutil: read random: %w", err)
	}
	return n, nil
}

type witnessReader struct {
	mu  sync.Mutex
	src *mrand.ChaCha8
}

func (w *witnessReader) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.src.Read(p)
}

// NewWitnessReader returns a ChaCha8 stream keyed with seed. It is safe for
// concurrent use.
func NewWitnessReader(seed [32]byte) io.Reader {
	return &witnessReader{src: mrand.NewChaCha8(seed)}
}

// NewSeededWitnessReader is NewWitnessReader with a small integer seed, for
// tests and reproducible command line runs.
func NewSeededWitnessReader(seed uint64) io.Reader {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:], seed)
	return NewWitnessReader(s)
}

// NewRandomWitnessReader returns a witness stream keyed from crypto/rand.
func NewRandomWitnessReader() io.Reader {
	var s [32]byte
	if _, err := io.ReadFull(rand.Reader, s[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic("randutil: crypto/rand unavailable: " + err.Error())
	}
	return NewWitnessReader(s)
}
