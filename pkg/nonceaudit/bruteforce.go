package nonceaudit

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	logger "github.com/harwoeck/liblog/contract"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
)

// SmartBruteForceStrategy implements a multi-phase brute-force strategy
// that tries common patterns first, then expands the search range.
type SmartBruteForceStrategy struct {
	RangeConfig   RangeConfig
	PatternConfig PatternConfig

	log logger.Logger
}

// NewSmartBruteForceStrategy creates a new smart brute-force strategy with default settings.
func NewSmartBruteForceStrategy() *SmartBruteForceStrategy {
	return &SmartBruteForceStrategy{
		RangeConfig:   DefaultRangeConfig(),
		PatternConfig: DefaultPatternConfig(),
		log:           logger.MustNewStd().Named("nonceaudit"),
	}
}

// WithRangeConfig sets the range configuration for the strategy.
func (s *SmartBruteForceStrategy) WithRangeConfig(config RangeConfig) *SmartBruteForceStrategy {
	s.RangeConfig = config
	return s
}

// WithPatternConfig sets the pattern configuration for the strategy.
func (s *SmartBruteForceStrategy) WithPatternConfig(config PatternConfig) *SmartBruteForceStrategy {
	s.PatternConfig = config
	return s
}

// WithLogger sets the logger that receives phase progress.
func (s *SmartBruteForceStrategy) WithLogger(log logger.Logger) *SmartBruteForceStrategy {
	s.log = log.Named("nonceaudit")
	return s
}

// Name returns the name of this strategy.
func (s *SmartBruteForceStrategy) Name() string {
	return "SmartBruteForce"
}

// Search implements the BruteForceStrategy interface.
func (s *SmartBruteForceStrategy) Search(ctx context.Context, samples []*Sample, pub *dlsig.PublicKey) *RecoveryResult {
	// every candidate is checked against y; without it any pattern would match
	if len(samples) < 2 || pub == nil || pub.P == nil || pub.G == nil || pub.Y == nil {
		return nil
	}

	s.log.Info("starting key recovery", logger.NewField("samples", len(samples)))

	// Phase 0: Check for same nonce reuse (fastest)
	if result := s.checkSameNonceReuse(samples, pub); result != nil {
		s.log.Info("found same nonce reuse")
		return result
	}

	// Phase 1: Try common patterns
	if s.PatternConfig.IncludeCommonPatterns {
		if result := s.tryPatterns(ctx, samples, pub, commonPatterns()); result != nil {
			s.log.Info("found common pattern", logger.NewField("pattern", result.Pattern))
			return result
		}
		s.log.Debug("no common patterns matched")
	}

	// Phase 2: Try custom patterns
	if len(s.PatternConfig.CustomPatterns) > 0 {
		patterns := append([]Pattern(nil), s.PatternConfig.CustomPatterns...)
		sort.SliceStable(patterns, func(i, j int) bool { return patterns[i].Priority < patterns[j].Priority })

		if result := s.tryPatterns(ctx, samples, pub, patterns); result != nil {
			s.log.Info("found custom pattern", logger.NewField("pattern", result.Pattern))
			return result
		}
		s.log.Debug("no custom patterns matched", logger.NewField("patterns", len(patterns)))
	}

	// Phase 3: Adaptive range search
	return s.adaptiveRangeSearch(ctx, samples, pub)
}

// checkSameNonceReuse checks for identical r values (same nonce reuse).
func (s *SmartBruteForceStrategy) checkSameNonceReuse(samples []*Sample, pub *dlsig.PublicKey) *RecoveryResult {
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			if samples[i].R.Cmp(samples[j].R) != 0 {
				continue
			}
			// Same nonce reuse: k2 = k1, so a=1, b=0
			if result := s.tryPair(samples, pub, i, j, big.NewInt(1), big.NewInt(0), "same_nonce_reuse"); result != nil {
				return result
			}
		}
	}
	return nil
}

// tryPatterns tries each (a, b) pattern across all sample pairs.
func (s *SmartBruteForceStrategy) tryPatterns(ctx context.Context, samples []*Sample, pub *dlsig.PublicKey, patterns []Pattern) *RecoveryResult {
	for _, pattern := range patterns {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		for i := 0; i < len(samples); i++ {
			for j := i + 1; j < len(samples); j++ {
				if result := s.tryPair(samples, pub, i, j, pattern.A, pattern.B, pattern.Name); result != nil {
					return result
				}
			}
		}
	}
	return nil
}

// tryPair attempts recovery for one pair under one relationship.
func (s *SmartBruteForceStrategy) tryPair(samples []*Sample, pub *dlsig.PublicKey, i, j int, a, b *big.Int, pattern string) *RecoveryResult {
	priv, verified := recoverVerified(pub, samples[i], samples[j], a, b)
	if priv == nil {
		return nil
	}
	return &RecoveryResult{
		PrivateKey:   priv,
		Relationship: AffineRelationship{A: a, B: b},
		SamplePair:   [2]int{i, j},
		Verified:     verified,
		Pattern:      pattern,
	}
}

type searchRange struct {
	aRange [2]int
	bRange [2]int
	name   string
}

// adaptiveRangeSearch performs an adaptive range search with expanding ranges.
func (s *SmartBruteForceStrategy) adaptiveRangeSearch(ctx context.Context, samples []*Sample, pub *dlsig.PublicKey) *RecoveryResult {
	ranges := []searchRange{
		{[2]int{1, 1}, [2]int{-100, 100}, "a=1, small b"},
		{[2]int{1, 1}, [2]int{-1000, 1000}, "a=1, medium b"},
		{[2]int{1, 1}, [2]int{-10000, 10000}, "a=1, larger b"},
		{[2]int{2, 4}, [2]int{-1000, 1000}, "small a, medium b"},
		{[2]int{-5, -1}, [2]int{-1000, 1000}, "negative a, medium b"},
		{[2]int{1, 10}, [2]int{-50000, 50000}, "wider a, larger b"},
	}

	// Use the configured range if it's different from defaults
	defaults := DefaultRangeConfig()
	if s.RangeConfig.ARange != defaults.ARange || s.RangeConfig.BRange != defaults.BRange {
		ranges = []searchRange{{s.RangeConfig.ARange, s.RangeConfig.BRange, "custom range"}}
	}

	for _, r := range ranges {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		aCount := r.aRange[1] - r.aRange[0] + 1
		if s.RangeConfig.SkipZeroA && r.aRange[0] <= 0 && r.aRange[1] >= 0 {
			aCount--
		}
		bCount := r.bRange[1] - r.bRange[0] + 1
		s.log.Info("range search",
			logger.NewField("phase", r.name),
			logger.NewField("a", fmt.Sprintf("[%d,%d]", r.aRange[0], r.aRange[1])),
			logger.NewField("b", fmt.Sprintf("[%d,%d]", r.bRange[0], r.bRange[1])),
			logger.NewField("combinations", aCount*bCount))

		if result := s.rangeSearch(ctx, samples, pub, r.aRange, r.bRange); result != nil {
			s.log.Info("found key", logger.NewField("phase", r.name), logger.NewField("pattern", result.Pattern))
			return result
		}
	}

	s.log.Info("all phases completed, key not found")
	return nil
}

// rangeSearch performs a brute-force search over a specific range.
func (s *SmartBruteForceStrategy) rangeSearch(ctx context.Context, samples []*Sample, pub *dlsig.PublicKey, aRange, bRange [2]int) *RecoveryResult {
	numWorkers := s.RangeConfig.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 16
	}
	maxPairs := s.RangeConfig.MaxPairs
	if maxPairs <= 0 {
		maxPairs = DefaultRangeConfig().MaxPairs
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	testedCombinations := int64(0)
	resultChan := make(chan *RecoveryResult, 1)
	workChan := make(chan [2]int, numWorkers*100)

	// Generate work
	go func() {
		defer close(workChan)
		pairCount := 0
		for i := 0; i < len(samples) && pairCount < maxPairs; i++ {
			for j := i + 1; j < len(samples) && pairCount < maxPairs; j++ {
				select {
				case <-ctx.Done():
					return
				case workChan <- [2]int{i, j}:
					pairCount++
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case pair, ok := <-workChan:
					if !ok {
						return
					}
					if result := s.searchPair(ctx, samples, pub, pair, aRange, bRange, &testedCombinations); result != nil {
						select {
						case resultChan <- result:
						default:
						}
						cancel()
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	s.log.Debug("range search finished", logger.NewField("tested", atomic.LoadInt64(&testedCombinations)))

	select {
	case result := <-resultChan:
		return result
	default:
		return nil
	}
}

func (s *SmartBruteForceStrategy) searchPair(ctx context.Context, samples []*Sample, pub *dlsig.PublicKey, pair [2]int, aRange, bRange [2]int, tested *int64) *RecoveryResult {
	i, j := pair[0], pair[1]
	for a := aRange[0]; a <= aRange[1]; a++ {
		if s.RangeConfig.SkipZeroA && a == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		aBig := big.NewInt(int64(a))
		for b := bRange[0]; b <= bRange[1]; b++ {
			atomic.AddInt64(tested, 1)
			bBig := big.NewInt(int64(b))
			if result := s.tryPair(samples, pub, i, j, aBig, bBig, fmt.Sprintf("brute_force_a%d_b%d", a, b)); result != nil {
				return result
			}
		}
	}
	return nil
}

// commonPatterns returns the list of common patterns to try.
func commonPatterns() []Pattern {
	return []Pattern{
		{big.NewInt(1), big.NewInt(0), "same_nonce", 1},
		{big.NewInt(1), big.NewInt(1), "counter_+1", 2},
		{big.NewInt(1), big.NewInt(-1), "counter_-1", 2},
		{big.NewInt(1), big.NewInt(2), "counter_+2", 3},
		{big.NewInt(1), big.NewInt(-2), "counter_-2", 3},
		{big.NewInt(1), big.NewInt(3), "counter_+3", 3},
		{big.NewInt(1), big.NewInt(-3), "counter_-3", 3},
		{big.NewInt(1), big.NewInt(8), "step_8", 4},
		{big.NewInt(1), big.NewInt(16), "step_16", 4},
		{big.NewInt(1), big.NewInt(32), "step_32", 4},
		{big.NewInt(1), big.NewInt(64), "step_64", 4},
		{big.NewInt(1), big.NewInt(256), "step_256", 4},
		{big.NewInt(1), big.NewInt(1024), "step_1024", 4},
		{big.NewInt(1), big.NewInt(10), "step_10", 4},
		{big.NewInt(1), big.NewInt(100), "step_100", 4},
		{big.NewInt(1), big.NewInt(1000), "step_1000", 4},
		{big.NewInt(2), big.NewInt(0), "multiply_2", 5},
		{big.NewInt(2), big.NewInt(1), "multiply_2_+1", 5},
		{big.NewInt(3), big.NewInt(0), "multiply_3", 5},
		{big.NewInt(-1), big.NewInt(0), "negate", 6},
	}
}
