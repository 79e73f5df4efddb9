package nonceaudit

import (
	"context"
	"fmt"
	"math/big"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
)

// Client provides a high-level API for key recovery operations.
type Client struct {
	strategy BruteForceStrategy
	parser   SignatureParser
	log      logger.Logger
}

// NewClient creates a new client with default settings.
func NewClient() *Client {
	return &Client{
		strategy: NewSmartBruteForceStrategy(),
		parser:   &JSONParser{},
		log:      logger.MustNewStd().Named("nonceaudit"),
	}
}

// WithStrategy sets a custom brute-force strategy.
func (c *Client) WithStrategy(strategy BruteForceStrategy) *Client {
	c.strategy = strategy
	return c
}

// WithParser sets a custom signature parser.
func (c *Client) WithParser(parser SignatureParser) *Client {
	c.parser = parser
	return c
}

// WithLogger sets the client logger. A SmartBruteForceStrategy installed on
// the client logs through it as well.
func (c *Client) WithLogger(log logger.Logger) *Client {
	c.log = log.Named("nonceaudit")
	if s, ok := c.strategy.(*SmartBruteForceStrategy); ok {
		s.WithLogger(log)
	}
	return c
}

// RecoverKey attempts to recover a private exponent from samples in a file.
//
// Args:
//   - ctx: Context for cancellation.
//   - source: Path to signature file (JSON or CSV, depending on the parser).
//   - pub: Public key the samples were signed under; y is required.
//
// Returns:
//   - RecoveryResult if successful, error otherwise.
func (c *Client) RecoverKey(ctx context.Context, source string, pub *dlsig.PublicKey) (*RecoveryResult, error) {
	samples, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}
	return c.RecoverKeyFromSamples(ctx, samples, pub)
}

// RecoverKeyFromSamples attempts to recover a private exponent from in-memory samples.
// Use this when you have already parsed samples (e.g. from your own parser or API).
func (c *Client) RecoverKeyFromSamples(ctx context.Context, samples []*Sample, pub *dlsig.PublicKey) (*RecoveryResult, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 signatures, got %d", len(samples))
	}
	if pub == nil || pub.P == nil || pub.G == nil || pub.Y == nil {
		return nil, fmt.Errorf("public key with p, g and y is required for a search")
	}

	c.log.Debug("searching", logger.NewField("strategy", c.strategy.Name()), logger.NewField("samples", len(samples)))
	result := c.strategy.Search(ctx, samples, pub)
	if result == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to recover private key")
	}
	return result, nil
}

// RecoverKeyWithKnownRelationship recovers a private exponent when the affine relationship is known.
//
// Args:
//   - ctx: Context for cancellation.
//   - source: Path to signature file.
//   - a: Affine coefficient (k2 = a*k1 + b).
//   - b: Affine offset (k2 = a*k1 + b).
//   - pub: Public key; p is required, y is optional and enables verification.
//
// Returns:
//   - RecoveryResult if successful, error otherwise.
func (c *Client) RecoverKeyWithKnownRelationship(ctx context.Context, source string, a, b int64, pub *dlsig.PublicKey) (*RecoveryResult, error) {
	samples, err := c.parser.ParseSignatures(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}

	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 signatures, got %d", len(samples))
	}
	if pub == nil || pub.P == nil {
		return nil, fmt.Errorf("public key with p is required")
	}

	aBig := big.NewInt(a)
	bBig := big.NewInt(b)

	// Try all sample pairs
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			priv, verified := recoverVerified(pub, samples[i], samples[j], aBig, bBig)
			if priv == nil {
				continue
			}

			c.log.Info("recovered exponent",
				logger.NewField("pair", fmt.Sprintf("%d,%d", i, j)),
				logger.NewField("verified", verified))

			return &RecoveryResult{
				PrivateKey:   priv,
				Relationship: AffineRelationship{A: aBig, B: bBig},
				SamplePair:   [2]int{i, j},
				Verified:     verified,
				Pattern:      fmt.Sprintf("known_a%d_b%d", a, b),
			}, nil
		}
	}

	return nil, fmt.Errorf("failed to recover private key with known relationship a=%d, b=%d", a, b)
}
