package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/mahdiidarabi/ntsig/pkg/factor"
	"github.com/mahdiidarabi/ntsig/pkg/modarith"
	"github.com/mahdiidarabi/ntsig/pkg/primality"
	"github.com/mahdiidarabi/ntsig/pkg/primegen"
)

func runInverse(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "inverse")
	hex := fs.Bool("hex", false, "Print the result in hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("inverse takes exactly two integers, got %d", fs.NArg())
	}

	a, err := parseInt(fs.Arg(0))
	if err != nil {
		return err
	}
	n, err := parseInt(fs.Arg(1))
	if err != nil {
		return err
	}

	d, err := modarith.ModInverse(a, n)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, formatInt(d, *hex))
	return nil
}

func runPrime(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "prime")
	bits := fs.Int("bits", 256, "Bit length of the prime")
	workers := fs.Int("workers", 1, "Parallel search workers")
	rounds := fs.Int("rounds", primality.DefaultRounds, "Fermat and Miller-Rabin rounds")
	hex := fs.Bool("hex", false, "Print the result in hex")
	if err := fs.Parse(args); err != nil {
		return err
	}

	gen := primegen.NewGeneratorWithConfig(primegen.Config{Rounds: *rounds, Workers: *workers}).WithLogger(e.log)
	p, err := gen.Generate(ctx, *bits)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, formatInt(p, *hex))
	return nil
}

func runPrimes(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "primes")
	bits := fs.Int("bits", 256, "Bit length of each prime")
	hex := fs.Bool("hex", false, "Print the results in hex")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, q, err := primegen.NewGenerator().WithLogger(e.log).GeneratePair(ctx, *bits)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "p = %s\nq = %s\n", formatInt(p, *hex), formatInt(q, *hex))
	return nil
}

func runSieve(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "sieve")
	n := fs.Int("n", 100, "Upper bound (inclusive)")
	count := fs.Bool("count", false, "Print only the number of primes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	primes := primegen.Sieve(*n)
	if *count {
		fmt.Fprintln(e.stdout, len(primes))
		return nil
	}

	parts := make([]string, len(primes))
	for i, p := range primes {
		parts[i] = strconv.Itoa(p)
	}
	fmt.Fprintln(e.stdout, strings.Join(parts, " "))
	return nil
}

func runFactor(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "factor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("factor needs at least one integer")
	}

	f := factor.New().WithLogger(e.log)
	for _, arg := range fs.Args() {
		n, err := parseInt(arg)
		if err != nil {
			return err
		}
		factors, err := f.Factorize(ctx, n)
		if err != nil {
			return fmt.Errorf("factor %s: %w", arg, err)
		}

		parts := make([]string, len(factors))
		for i, p := range factors {
			parts[i] = p.String()
		}
		fmt.Fprintf(e.stdout, "%s: %s\n", n, strings.Join(parts, " "))
	}
	return nil
}

// parseInt accepts decimal or 0x-prefixed hex, optionally signed.
func parseInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")

	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits, base = digits[2:], 16
	}

	z, ok := new(big.Int).SetString(digits, base)
	if !ok || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if neg {
		z.Neg(z)
	}
	return z, nil
}

func formatInt(z *big.Int, hex bool) string {
	if hex {
		return "0x" + z.Text(16)
	}
	return z.String()
}

func parseRange(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range format: %s", s)
	}

	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}

	if lo > hi {
		return 0, 0, fmt.Errorf("invalid range %s: min > max", s)
	}
	return lo, hi, nil
}
