package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
	"github.com/mahdiidarabi/ntsig/pkg/nonceaudit"
)

// keyFile is the JSON layout written by keygen. X is omitted for public keys.
type keyFile struct {
	P      string `json:"p"`
	G      string `json:"g"`
	Y      string `json:"y"`
	X      string `json:"x,omitempty"`
	Digest string `json:"digest,omitempty"`
}

// signatureLine is one record of sign's output; nonceaudit.JSONParser reads it.
type signatureLine struct {
	Message string `json:"message"`
	R       string `json:"r"`
	S       string `json:"s"`
}

// loadedKey is a parsed key file. Pair is nil for public-only files.
type loadedKey struct {
	Public *dlsig.PublicKey
	Pair   *dlsig.KeyPair
	Scheme *dlsig.Scheme
	Hasher dlsig.Hasher
}

func loadKey(path string, log logger.Logger) (*loadedKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key: %w", err)
	}

	digest := kf.Digest
	if digest == "" {
		digest = "sha256"
	}
	hasher, err := dlsig.HasherByName(digest)
	if err != nil {
		return nil, err
	}
	scheme := dlsig.NewSchemeWithConfig(dlsig.Config{Hasher: hasher}).WithLogger(log)

	p, err := parseInt(kf.P)
	if err != nil {
		return nil, fmt.Errorf("key field p: %w", err)
	}
	g, err := parseInt(kf.G)
	if err != nil {
		return nil, fmt.Errorf("key field g: %w", err)
	}

	key := &loadedKey{Scheme: scheme, Hasher: hasher}
	if kf.X != "" {
		x, err := parseInt(kf.X)
		if err != nil {
			return nil, fmt.Errorf("key field x: %w", err)
		}
		kp, err := scheme.NewKeyPair(p, g, x)
		if err != nil {
			return nil, err
		}
		if kf.Y != "" {
			y, err := parseInt(kf.Y)
			if err != nil {
				return nil, fmt.Errorf("key field y: %w", err)
			}
			if y.Cmp(kp.Y) != 0 {
				return nil, errors.New("key file is inconsistent: y != g^x mod p")
			}
		}
		key.Pair = kp
		key.Public = kp.Public()
		return key, nil
	}

	y, err := parseInt(kf.Y)
	if err != nil {
		return nil, fmt.Errorf("key field y: %w", err)
	}
	key.Public = &dlsig.PublicKey{P: p, G: g, Y: y}
	return key, nil
}

func runKeygen(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "keygen")
	bits := fs.Int("bits", 512, "Bit length of the prime modulus")
	digest := fs.String("digest", "sha256", fmt.Sprintf("Message digest %v", dlsig.HasherNames()))
	out := fs.String("out", "", "Write the key to FILE instead of stdout")
	public := fs.Bool("public", false, "Omit the private exponent")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasher, err := dlsig.HasherByName(*digest)
	if err != nil {
		return err
	}
	scheme := dlsig.NewSchemeWithConfig(dlsig.Config{Hasher: hasher}).WithLogger(e.log)
	kp, err := scheme.GenerateKeys(ctx, *bits)
	if err != nil {
		return err
	}

	var encoded interface{} = kp
	if *public {
		encoded = kp.Public()
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return err
	}
	kf.Digest = *digest

	data, err = json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = e.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	e.log.Info("key written", logger.NewField("file", *out), logger.NewField("bits", kp.P.BitLen()))
	return nil
}

func runSign(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "sign")
	keyPath := fs.String("key", "", "Key file with private exponent")
	nonce := fs.String("nonce", "", "Fixed first nonce (audit fixtures only)")
	nonceA := fs.Int64("nonce-a", 1, "With -nonce: k(i+1) = a*k(i) + b")
	nonceB := fs.Int64("nonce-b", 0, "With -nonce: k(i+1) = a*k(i) + b")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyPath == "" {
		return errors.New("-key is required")
	}
	if fs.NArg() == 0 {
		return errors.New("sign needs at least one message")
	}

	key, err := loadKey(*keyPath, e.log)
	if err != nil {
		return err
	}
	if key.Pair == nil {
		return errors.New("key file has no private exponent")
	}

	var k *big.Int
	if *nonce != "" {
		if k, err = parseInt(*nonce); err != nil {
			return fmt.Errorf("-nonce: %w", err)
		}
		e.log.Warn("signing with caller-chosen nonces leaks the private exponent",
			logger.NewField("a", *nonceA), logger.NewField("b", *nonceB))
	}

	return signMessages(e.stdout, key, fs.Args(), k, big.NewInt(*nonceA), big.NewInt(*nonceB))
}

func signMessages(w io.Writer, key *loadedKey, messages []string, k, a, b *big.Int) error {
	kp := key.Pair
	q := new(big.Int).Sub(kp.P, big.NewInt(1))
	enc := json.NewEncoder(w)

	for _, msg := range messages {
		var (
			sig *dlsig.Signature
			err error
		)
		if k == nil {
			sig, err = kp.Sign([]byte(msg))
		} else {
			sig, err = kp.SignWithNonce([]byte(msg), k)
			k = new(big.Int).Mul(a, k)
			k.Add(k, b)
			k.Mod(k, q)
		}
		if err != nil {
			return fmt.Errorf("sign %q: %w", msg, err)
		}

		line := signatureLine{Message: msg, R: formatInt(sig.R, true), S: formatInt(sig.S, true)}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func runVerify(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "verify")
	keyPath := fs.String("key", "", "Key file (public part is enough)")
	rStr := fs.String("r", "", "Signature component r")
	sStr := fs.String("s", "", "Signature component s")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyPath == "" || *rStr == "" || *sStr == "" {
		return errors.New("-key, -r and -s are required")
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("verify takes exactly one message, got %d", fs.NArg())
	}

	key, err := loadKey(*keyPath, e.log)
	if err != nil {
		return err
	}
	r, err := parseInt(*rStr)
	if err != nil {
		return fmt.Errorf("-r: %w", err)
	}
	s, err := parseInt(*sStr)
	if err != nil {
		return fmt.Errorf("-s: %w", err)
	}

	pub := key.Public
	if !key.Scheme.Verify([]byte(fs.Arg(0)), &dlsig.Signature{R: r, S: s}, pub.P, pub.G, pub.Y) {
		return errInvalid
	}
	fmt.Fprintln(e.stdout, "valid")
	return nil
}

func runAudit(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "audit")
	keyPath := fs.String("key", "", "Key file (public part is enough)")
	signaturesFile := fs.String("signatures", "", "Path to signatures file (JSON or CSV)")
	format := fs.String("format", "json", "Signature file format (json or csv)")
	knownA := fs.Int64("known-a", 0, "Known affine coefficient a (k2 = a*k1 + b)")
	knownB := fs.Int64("known-b", 0, "Known affine offset b (k2 = a*k1 + b)")
	bruteForce := fs.Bool("brute-force", false, "Search only the given a and b ranges")
	aRange := fs.String("a-range", "-100,100", "Range for a values in brute-force (format: min,max)")
	bRange := fs.String("b-range", "-100,100", "Range for b values in brute-force (format: min,max)")
	maxPairs := fs.Int("max-pairs", 100, "Maximum signature pairs to test in brute-force")
	numWorkers := fs.Int("workers", 0, "Number of parallel workers (0 = 16)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyPath == "" || *signaturesFile == "" {
		return errors.New("-key and -signatures are required")
	}

	key, err := loadKey(*keyPath, e.log)
	if err != nil {
		return err
	}

	var parser nonceaudit.SignatureParser
	switch *format {
	case "json":
		parser = &nonceaudit.JSONParser{Hasher: key.Hasher}
	case "csv":
		parser = &nonceaudit.CSVParser{Hasher: key.Hasher}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	client := nonceaudit.NewClient().WithParser(parser).WithLogger(e.log)

	var result *nonceaudit.RecoveryResult
	switch {
	case *knownA != 0 || *knownB != 0:
		e.log.Info("using known relationship", logger.NewField("a", *knownA), logger.NewField("b", *knownB))
		result, err = client.RecoverKeyWithKnownRelationship(ctx, *signaturesFile, *knownA, *knownB, key.Public)

	case *bruteForce:
		aMin, aMax, perr := parseRange(*aRange)
		if perr != nil {
			return fmt.Errorf("-a-range: %w", perr)
		}
		bMin, bMax, perr := parseRange(*bRange)
		if perr != nil {
			return fmt.Errorf("-b-range: %w", perr)
		}

		strategy := nonceaudit.NewSmartBruteForceStrategy().
			WithRangeConfig(nonceaudit.RangeConfig{
				ARange:     [2]int{aMin, aMax},
				BRange:     [2]int{bMin, bMax},
				MaxPairs:   *maxPairs,
				NumWorkers: *numWorkers,
				SkipZeroA:  true,
			}).
			WithPatternConfig(nonceaudit.PatternConfig{IncludeCommonPatterns: true}).
			WithLogger(e.log)
		result, err = client.WithStrategy(strategy).RecoverKey(ctx, *signaturesFile, key.Public)

	default:
		result, err = client.RecoverKey(ctx, *signaturesFile, key.Public)
	}
	if err != nil {
		return err
	}

	printResult(e.stdout, result)
	return nil
}

func printResult(w io.Writer, result *nonceaudit.RecoveryResult) {
	fmt.Fprintf(w, "x = %s\n", formatInt(result.PrivateKey, true))
	fmt.Fprintf(w, "relationship: k2 = %s*k1 + %s\n", result.Relationship.A, result.Relationship.B)
	fmt.Fprintf(w, "signature pair: (%d, %d)\n", result.SamplePair[0], result.SamplePair[1])
	fmt.Fprintf(w, "pattern: %s\n", result.Pattern)
	fmt.Fprintf(w, "verified: %v\n", result.Verified)
}
