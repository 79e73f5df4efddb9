package dlsig

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/harwoeck/liblog/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/ntsig/internal/randutil"
	"github.com/mahdiidarabi/ntsig/pkg/modarith"
	"github.com/mahdiidarabi/ntsig/pkg/primality"
)

func TestGenerateKeys(t *testing.T) {
	for _, bits := range []int{MinBits, 16, 32, 64, 128, 256} {
		kp, err := GenerateKeys(bits)
		require.NoError(t, err, "bits=%d", bits)

		assert.Equal(t, bits, kp.P.BitLen())
		if bits <= 40 {
			assert.True(t, primality.TrialDivision(kp.P))
		}

		pMinusTwo := new(big.Int).Sub(kp.P, big.NewInt(2))
		assert.True(t, kp.G.Cmp(big.NewInt(2)) >= 0 && kp.G.Cmp(pMinusTwo) <= 0, "g out of range")
		x := kp.x
		assert.True(t, x.Cmp(big.NewInt(2)) >= 0 && x.Cmp(pMinusTwo) <= 0, "x out of range")

		assert.Equal(t, 0, new(big.Int).Exp(kp.G, x, kp.P).Cmp(kp.Y), "y != g^x mod p")
	}
}

func TestGenerateKeys_Domain(t *testing.T) {
	for _, bits := range []int{-1, 0, 1, 2, 3, MinBits - 1} {
		_, err := GenerateKeys(bits)
		assert.ErrorIs(t, err, modarith.ErrDomain, "bits=%d", bits)
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	messages := [][]byte{
		[]byte("Hello, world!"),
		{},
		make([]byte, 1024),
		[]byte("Привет, мир"),
	}

	for _, bits := range []int{16, 64, 128, 256} {
		kp, err := GenerateKeys(bits)
		require.NoError(t, err)

		for _, msg := range messages {
			sig, err := Sign(msg, kp.P, kp.G, kp.x)
			require.NoError(t, err)

			assertShape(t, kp.P, sig)
			assert.True(t, Verify(msg, sig, kp.P, kp.G, kp.Y), "bits=%d msg=%q", bits, msg)

			sig2, err := kp.Sign(msg)
			require.NoError(t, err)
			assert.True(t, kp.Verify(msg, sig2))
			assert.True(t, kp.Public().Verify(msg, sig2))
		}
	}
}

func TestSignVerify_KeyPairIsReusable(t *testing.T) {
	kp, err := GenerateKeys(96)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		msg := []byte{byte(i), byte(i * 7)}
		sig, err := kp.Sign(msg)
		require.NoError(t, err)
		require.True(t, kp.Verify(msg, sig))
	}
}

func TestSignWithNonce_KnownVector(t *testing.T) {
	p, g, x, k := big.NewInt(467), big.NewInt(2), big.NewInt(127), big.NewInt(213)

	kp, err := NewKeyPair(p, g, x)
	require.NoError(t, err)
	assert.Equal(t, int64(132), kp.Y.Int64())

	sig, err := SignWithNonce([]byte("Hello, world!"), p, g, x, k)
	require.NoError(t, err)
	assert.Equal(t, int64(29), sig.R.Int64())
	assert.Equal(t, int64(356), sig.S.Int64())

	assert.True(t, Verify([]byte("Hello, world!"), sig, p, g, kp.Y))
	assert.False(t, Verify([]byte("Hello, world?"), sig, p, g, kp.Y))
}

func TestSignWithNonce_NonInvertibleNonce(t *testing.T) {
	p, g, x := big.NewInt(467), big.NewInt(2), big.NewInt(127)

	// 466 = 2 * 233, so even nonces have no inverse
	_, err := SignWithNonce([]byte("m"), p, g, x, big.NewInt(10))
	assert.ErrorIs(t, err, modarith.ErrNotInvertible)
}

func TestSign_Domain(t *testing.T) {
	_, err := Sign([]byte("m"), big.NewInt(3), big.NewInt(2), big.NewInt(2))
	assert.ErrorIs(t, err, modarith.ErrDomain)

	_, err = Sign([]byte("m"), nil, big.NewInt(2), big.NewInt(2))
	assert.ErrorIs(t, err, modarith.ErrDomain)
}

func TestSign_NonceExhausted(t *testing.T) {
	// every draw from a zero stream maps to k = 2, which is never coprime
	// to the even p-1
	scheme := NewSchemeWithConfig(Config{MaxNonceAttempts: 5, Rand: zeroReader{}})
	p, _ := new(big.Int).SetString("9223372036854778487", 10)

	_, err := scheme.Sign([]byte("m"), p, big.NewInt(5), big.NewInt(127))
	assert.ErrorIs(t, err, ErrNonceExhausted)
}

func TestSign_SmallModulus(t *testing.T) {
	// 6 = 2 * 3 leaves k = 5 as the only usable nonce in [2, 5]
	p, g := big.NewInt(7), big.NewInt(3)

	for x := int64(2); x <= 5; x++ {
		for i := 0; i < 20; i++ {
			msg := []byte{byte(i), 'm'}
			only, err := SignWithNonce(msg, p, g, big.NewInt(x), big.NewInt(5))
			require.NoError(t, err)

			sig, err := Sign(msg, p, g, big.NewInt(x))
			if only.S.Sign() == 0 {
				assert.ErrorIs(t, err, modarith.ErrDomain, "x=%d msg=%d", x, i)
				assert.NotErrorIs(t, err, ErrNonceExhausted)
				continue
			}
			require.NoError(t, err, "x=%d msg=%d", x, i)
			assert.True(t, Verify(msg, sig, p, g, new(big.Int).Exp(g, big.NewInt(x), p)), "x=%d msg=%d", x, i)
		}
	}
}

func TestSignVerify_MinBitsKeys(t *testing.T) {
	for i := 0; i < 20; i++ {
		kp, err := GenerateKeys(MinBits)
		require.NoError(t, err)

		for j := 0; j < 10; j++ {
			msg := []byte{byte(i), byte(j)}
			sig, err := kp.Sign(msg)
			require.NoError(t, err, "p=%s g=%s", kp.P, kp.G)
			assert.True(t, kp.Verify(msg, sig))
		}
	}
}

func TestSign_ReaderFailure(t *testing.T) {
	boom := errors.New("no entropy")
	scheme := NewSchemeWithConfig(Config{Rand: errReader{boom}})

	_, err := scheme.Sign([]byte("m"), big.NewInt(467), big.NewInt(2), big.NewInt(127))
	assert.ErrorIs(t, err, boom)

	_, err = scheme.GenerateKeys(context.Background(), 64)
	assert.ErrorIs(t, err, boom)
}

func TestVerify_TamperDetection(t *testing.T) {
	kp, err := GenerateKeys(128)
	require.NoError(t, err)

	msg := []byte("transfer 100 to alice")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	require.True(t, kp.Verify(msg, sig))

	for bit := 0; bit < len(msg)*8; bit++ {
		tampered := append([]byte(nil), msg...)
		tampered[bit/8] ^= 1 << (bit % 8)
		assert.False(t, kp.Verify(tampered, sig), "message bit %d", bit)
	}

	for bit := 0; bit < kp.P.BitLen(); bit++ {
		r := new(big.Int).Set(sig.R)
		r.SetBit(r, bit, r.Bit(bit)^1)
		assert.False(t, kp.Verify(msg, &Signature{R: r, S: sig.S}), "r bit %d", bit)

		s := new(big.Int).Set(sig.S)
		s.SetBit(s, bit, s.Bit(bit)^1)
		assert.False(t, kp.Verify(msg, &Signature{R: sig.R, S: s}), "s bit %d", bit)
	}

	other, err := GenerateKeys(128)
	require.NoError(t, err)
	assert.False(t, Verify(msg, sig, other.P, other.G, other.Y))
}

func TestVerify_MalformedSignatures(t *testing.T) {
	kp, err := GenerateKeys(64)
	require.NoError(t, err)
	msg := []byte("m")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	p := kp.P
	pMinusOne := new(big.Int).Sub(p, big.NewInt(1))

	bad := []*Signature{
		nil,
		{R: nil, S: sig.S},
		{R: sig.R, S: nil},
		{R: big.NewInt(0), S: sig.S},
		{R: new(big.Int).Set(p), S: sig.S},
		{R: big.NewInt(-1), S: sig.S},
		{R: sig.R, S: big.NewInt(0)},
		{R: sig.R, S: pMinusOne},
		{R: sig.R, S: big.NewInt(-5)},
	}
	for i, b := range bad {
		assert.NotPanics(t, func() {
			assert.False(t, Verify(msg, b, kp.P, kp.G, kp.Y), "case %d", i)
		})
	}

	assert.False(t, Verify(msg, sig, nil, kp.G, kp.Y))
	assert.False(t, Verify(msg, sig, kp.P, nil, kp.Y))
	assert.False(t, Verify(msg, sig, kp.P, kp.G, nil))
	assert.False(t, Verify(msg, sig, big.NewInt(3), kp.G, kp.Y))
	assert.False(t, Verify(msg, sig, kp.P, big.NewInt(-2), kp.Y))
}

func TestNewKeyPair_Validation(t *testing.T) {
	p := big.NewInt(467)

	_, err := NewKeyPair(p, big.NewInt(1), big.NewInt(5))
	assert.ErrorIs(t, err, modarith.ErrDomain)

	_, err = NewKeyPair(p, big.NewInt(2), big.NewInt(466))
	assert.ErrorIs(t, err, modarith.ErrDomain)

	_, err = NewKeyPair(big.NewInt(3), big.NewInt(2), big.NewInt(2))
	assert.ErrorIs(t, err, modarith.ErrDomain)

	kp, err := NewKeyPair(p, big.NewInt(2), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(32), kp.Y.Int64())
}

func TestKeyPair_MarshalJSON(t *testing.T) {
	kp, err := NewKeyPair(big.NewInt(467), big.NewInt(2), big.NewInt(127))
	require.NoError(t, err)

	data, err := json.Marshal(kp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"0x1d3","g":"0x2","y":"0x84","x":"0x7f"}`, string(data))

	data, err = json.Marshal(kp.Public())
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"0x1d3","g":"0x2","y":"0x84"}`, string(data))
}

func TestKeyPair_SignWithNonce(t *testing.T) {
	kp, err := NewKeyPair(big.NewInt(467), big.NewInt(2), big.NewInt(127))
	require.NoError(t, err)

	sig, err := kp.SignWithNonce([]byte("Hello, world!"), big.NewInt(213))
	require.NoError(t, err)
	assert.Equal(t, int64(29), sig.R.Int64())
	assert.Equal(t, int64(356), sig.S.Int64())
}

func TestScheme_AlternativeDigests(t *testing.T) {
	ctx := context.Background()
	msg := []byte("abc")

	for _, name := range HasherNames() {
		hasher, err := HasherByName(name)
		require.NoError(t, err)

		scheme := NewSchemeWithConfig(Config{Hasher: hasher}).WithLogger(contract.MustNewStd())
		kp, err := scheme.GenerateKeys(ctx, 128)
		require.NoError(t, err)

		sig, err := kp.Sign(msg)
		require.NoError(t, err)
		assert.True(t, kp.Verify(msg, sig), name)
		assert.True(t, scheme.Verify(msg, sig, kp.P, kp.G, kp.Y), name)
	}

	_, err := HasherByName("md5")
	assert.Error(t, err)
}

func TestHashMessage(t *testing.T) {
	h := HashMessage([]byte("Hello, world!"))
	want, _ := new(big.Int).SetString("315f5bdb76d078c43b8ac0064e4a0164612b1fce77c869345bfc94c75894edd3", 16)
	assert.Equal(t, 0, h.Cmp(want))
	assert.Equal(t, 0, h.Cmp(HashMessage([]byte("Hello, world!"))))
	assert.NotEqual(t, 0, h.Cmp(HashMessage([]byte("Hello, world"))))
	assert.LessOrEqual(t, h.BitLen(), 256)

	mod := big.NewInt(1000)
	assert.Equal(t, int64(965), new(big.Int).Mod(HashMessage([]byte("abc")), mod).Int64())

	sha3 := NewSchemeWithConfig(Config{Hasher: SHA3_256}).HashMessage([]byte("abc"))
	assert.Equal(t, int64(274), new(big.Int).Mod(sha3, mod).Int64())

	b2 := NewSchemeWithConfig(Config{Hasher: BLAKE2b256}).HashMessage([]byte("abc"))
	assert.Equal(t, int64(385), new(big.Int).Mod(b2, mod).Int64())
}

func TestScheme_DeterministicWithSeededReader(t *testing.T) {
	p, g, x := big.NewInt(467), big.NewInt(2), big.NewInt(127)

	a := NewSchemeWithConfig(Config{Rand: randutil.NewSeededWitnessReader(42)})
	b := NewSchemeWithConfig(Config{Rand: randutil.NewSeededWitnessReader(42)})

	sigA, err := a.Sign([]byte("m"), p, g, x)
	require.NoError(t, err)
	sigB, err := b.Sign([]byte("m"), p, g, x)
	require.NoError(t, err)

	assert.Equal(t, 0, sigA.R.Cmp(sigB.R))
	assert.Equal(t, 0, sigA.S.Cmp(sigB.S))
}

func assertShape(t *testing.T, p *big.Int, sig *Signature) {
	t.Helper()
	pMinusOne := new(big.Int).Sub(p, big.NewInt(1))
	pMinusTwo := new(big.Int).Sub(p, big.NewInt(2))
	assert.True(t, sig.R.Sign() > 0 && sig.R.Cmp(pMinusOne) <= 0, "r out of range")
	assert.True(t, sig.S.Sign() > 0 && sig.S.Cmp(pMinusTwo) <= 0, "s out of range")
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
