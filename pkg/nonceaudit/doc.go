// Package nonceaudit recovers discrete-log signature private exponents from
// signatures whose nonces are affinely related (k₂ = a·k₁ + b mod p-1).
//
// It is the dlsig counterpart of the affine-nonce attack on ECDSA described in
// "Breaking ECDSA with Two Affinely Related Nonces" (arXiv:2504.13737). Two
// signatures (r₁, s₁) and (r₂, s₂) on hashes h₁, h₂ satisfy
//
//	x·(a·s₂·r₁ − s₁·r₂) ≡ a·s₂·h₁ − s₁·h₂ + b·s₁·s₂  (mod p−1)
//
// Because p−1 is even the coefficient is not always invertible; every
// solution of the congruence is tried against y = g^x mod p.
//
// # Quick Start
//
//	client := nonceaudit.NewClient()
//
//	result, err := client.RecoverKey(ctx, "signatures.json", pub)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Recovered exponent: %s\n", result.PrivateKey.Text(10))
//
// # Customization
//
//	strategy := nonceaudit.NewSmartBruteForceStrategy().
//	    WithRangeConfig(nonceaudit.RangeConfig{
//	        ARange:     [2]int{1, 10},
//	        BRange:     [2]int{-5000, 5000},
//	        MaxPairs:   100,
//	        NumWorkers: 8,
//	    })
//
//	client := nonceaudit.NewClient().WithStrategy(strategy)
//
// Implement BruteForceStrategy to plug in a different search.
package nonceaudit
