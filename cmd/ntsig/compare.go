package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
	"github.com/mahdiidarabi/ntsig/pkg/pkc"
)

// runCompare signs one message with RSA-PSS, secp256k1 ECDSA and the
// discrete-log scheme and prints each signature with its verification result.
func runCompare(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "compare")
	rsaBits := fs.Int("rsa-bits", pkc.DefaultRSABits, "RSA modulus size")
	dlBits := fs.Int("dl-bits", 256, "Discrete-log modulus size (ignored with -key)")
	keyPath := fs.String("key", "", "Discrete-log key file with private exponent")
	secpKey := fs.String("secp256k1-key", "", "Hex secp256k1 private key (random if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("compare takes exactly one message, got %d", fs.NArg())
	}
	message := []byte(fs.Arg(0))

	var (
		secp *pkc.Secp256k1Signer
		err  error
	)
	if *secpKey != "" {
		secp, err = pkc.ParseSecp256k1(*secpKey)
	} else {
		secp, err = pkc.GenerateSecp256k1()
	}
	if err != nil {
		return err
	}

	rsaSigner, err := pkc.GenerateRSA(*rsaBits)
	if err != nil {
		return err
	}

	var kp *dlsig.KeyPair
	if *keyPath != "" {
		key, err := loadKey(*keyPath, e.log)
		if err != nil {
			return err
		}
		if key.Pair == nil {
			return errors.New("key file has no private exponent")
		}
		kp = key.Pair
	} else {
		kp, err = dlsig.NewScheme().WithLogger(e.log).GenerateKeys(ctx, *dlBits)
		if err != nil {
			return err
		}
	}

	failed := false
	for _, signer := range []pkc.Signer{rsaSigner, secp, pkc.NewDLSigner(kp)} {
		sig, err := signer.Sign(message)
		if err != nil {
			return fmt.Errorf("%s: %w", signer.Algorithm(), err)
		}

		status := "valid"
		if !signer.Verify(message, sig) {
			status = "invalid"
			failed = true
		}
		e.log.Debug("signed", logger.NewField("algorithm", signer.Algorithm()), logger.NewField("bytes", len(sig)))
		fmt.Fprintf(e.stdout, "%s %s %s\n", signer.Algorithm(), status, hex.EncodeToString(sig))
	}

	if failed {
		return errInvalid
	}
	return nil
}
