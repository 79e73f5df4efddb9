package nonceaudit

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
	"github.com/mahdiidarabi/ntsig/pkg/modarith"
)

// 64-bit safe prime p = 2q+1 with generator 5.
const (
	testPrime    = "9223372036854778487"
	testExponent = "1234567890123456789"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	z, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad integer literal %q", s)
	}
	return z
}

// testX is the private exponent of testKey.
func testX(t *testing.T) *big.Int {
	t.Helper()
	return mustBig(t, testExponent)
}

// testKey returns the fixed key pair used across the package tests.
func testKey(t *testing.T) *dlsig.KeyPair {
	t.Helper()
	kp, err := dlsig.NewKeyPair(mustBig(t, testPrime), big.NewInt(5), mustBig(t, testExponent))
	if err != nil {
		t.Fatalf("Failed to build key pair: %v", err)
	}
	return kp
}

// relatedNonces returns n nonces k_{i+1} = a*k_i + b (mod p-1), all
// invertible mod p-1, starting from the first suitable value at or above start.
func relatedNonces(t *testing.T, p *big.Int, n int, start, a, b int64) []*big.Int {
	t.Helper()
	q := new(big.Int).Sub(p, big.NewInt(1))
	aBig, bBig := big.NewInt(a), big.NewInt(b)

	for k1 := big.NewInt(start); ; k1.Add(k1, big.NewInt(1)) {
		nonces := []*big.Int{new(big.Int).Set(k1)}
		for len(nonces) < n {
			next := new(big.Int).Mul(aBig, nonces[len(nonces)-1])
			next.Add(next, bBig)
			next.Mod(next, q)
			nonces = append(nonces, next)
		}

		ok := true
		for _, k := range nonces {
			if k.Sign() == 0 || modarith.GCD(k, q).Cmp(big.NewInt(1)) != 0 {
				ok = false
				break
			}
		}
		if ok {
			return nonces
		}
		if k1.Int64() > start+1000 {
			t.Fatalf("no invertible nonce chain for a=%d b=%d", a, b)
		}
	}
}

// relatedSamples signs n distinct messages with nonces k_{i+1} = a*k_i + b.
func relatedSamples(t *testing.T, kp *dlsig.KeyPair, n int, a, b int64) ([]*Sample, []string) {
	t.Helper()
	nonces := relatedNonces(t, kp.P, n, 987654321987, a, b)

	samples := make([]*Sample, 0, n)
	messages := make([]string, 0, n)
	for i, k := range nonces {
		msg := fmt.Sprintf("audit message %d", i)
		sig, err := kp.SignWithNonce([]byte(msg), k)
		if err != nil {
			t.Fatalf("Failed to sign: %v", err)
		}
		if !kp.Verify([]byte(msg), sig) {
			t.Fatalf("Signature %d does not verify", i)
		}
		samples = append(samples, &Sample{H: HashMessage([]byte(msg)), R: sig.R, S: sig.S})
		messages = append(messages, msg)
	}
	return samples, messages
}

// writeSamplesJSON writes samples as a JSON array of {message, r, s} records.
func writeSamplesJSON(t *testing.T, samples []*Sample, messages []string) string {
	t.Helper()
	items := make([]map[string]string, 0, len(samples))
	for i, s := range samples {
		items = append(items, map[string]string{
			"message": messages[i],
			"r":       "0x" + s.R.Text(16),
			"s":       s.S.Text(10),
		})
	}

	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("Failed to marshal samples: %v", err)
	}
	path := filepath.Join(t.TempDir(), "signatures.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func containsInt(list []*big.Int, want *big.Int) bool {
	for _, v := range list {
		if v.Cmp(want) == 0 {
			return true
		}
	}
	return false
}
