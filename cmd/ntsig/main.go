// Command ntsig exposes the number-theory primitives and the discrete-log
// signature scheme on the command line.
//
//	ntsig inverse 17 3120
//	ntsig prime -bits 256
//	ntsig keygen -bits 512 -out key.json
//	ntsig sign -key key.json "first message" "second message" > sigs.jsonl
//	ntsig verify -key key.json -r 0x... -s 0x... "first message"
//	ntsig audit -key key.json -signatures sigs.jsonl
//	ntsig compare -key key.json "first message"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	logger "github.com/harwoeck/liblog/contract"
)

// errInvalid marks a verification that ran but rejected the signature.
var errInvalid = errors.New("signature invalid")

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"inverse": {"inverse <e> <n>: modular inverse of e mod n", runInverse},
	"prime":   {"prime -bits N [-workers W] [-rounds K]: random probable prime", runPrime},
	"primes":  {"primes -bits N: two distinct probable primes", runPrimes},
	"sieve":   {"sieve -n N: all primes up to N", runSieve},
	"factor":  {"factor <n>...: prime factorization", runFactor},
	"keygen":  {"keygen -bits N [-digest D] [-out FILE]: discrete-log key pair", runKeygen},
	"sign":    {"sign -key FILE [-nonce K -nonce-a A -nonce-b B] <message>...: JSON line per message", runSign},
	"verify":  {"verify -key FILE -r R -s S <message>: check a signature", runVerify},
	"audit":   {"audit -key FILE -signatures FILE [...]: recover x from related nonces", runAudit},
	"compare": {"compare [-rsa-bits N] [-key FILE] [-secp256k1-key HEX] <message>: sign with RSA-PSS, secp256k1 and dlsig", runCompare},
}

// env carries process-wide dependencies so commands can be tested.
type env struct {
	stdout io.Writer
	stderr io.Writer
	log    logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e := &env{stdout: os.Stdout, stderr: os.Stderr, log: logger.MustNewStd().Named("ntsig")}
	err := run(ctx, e, os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, errInvalid):
		fmt.Fprintln(os.Stdout, "invalid")
		os.Exit(1)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		usage(e.stderr)
		return flag.ErrHelp
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage(e.stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, e, args[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: ntsig <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}
