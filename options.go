package ranger

import (
	"log/slog"

	"github.com/dwhowett/httpiovec/internal/tracelog"
)

// sizeGuardMinBytes and sizeGuardRatio implement spec.md section 4.5's
// size-guard heuristic: a 200-OK full-body response is only scattered if
// its Content-Length is <= 1 MiB, or <= 2x the total requested bytes.
const (
	defaultSizeGuardMinBytes = 1 << 20
	defaultSizeGuardRatio    = 2
)

type orchestratorConfig struct {
	headerBudget      int
	sizeGuardMinBytes int64
	sizeGuardRatio    int64
	fallbackRateHz    float64
	logger            *tracelog.Logger
}

func defaultConfig() orchestratorConfig {
	return orchestratorConfig{
		headerBudget:      DefaultHeaderBudget,
		sizeGuardMinBytes: defaultSizeGuardMinBytes,
		sizeGuardRatio:    defaultSizeGuardRatio,
		fallbackRateHz:    1 << 10, // generous default; callers tune via options
		logger:            tracelog.NewNop(),
	}
}

// Option configures a VectorReadOrchestrator.
type Option func(*orchestratorConfig)

// WithHeaderBudget overrides the per-Range-header-value byte budget
// (spec.md's open question on the 3900 default). Values <= 0 are ignored.
func WithHeaderBudget(budget int) Option {
	return func(c *orchestratorConfig) {
		if budget > 0 {
			c.headerBudget = budget
		}
	}
}

// WithSizeGuard overrides the full-body size-guard thresholds.
func WithSizeGuard(minBytes int64, ratio int64) Option {
	return func(c *orchestratorConfig) {
		if minBytes > 0 {
			c.sizeGuardMinBytes = minBytes
		}
		if ratio > 0 {
			c.sizeGuardRatio = ratio
		}
	}
}

// WithFallbackRate caps the rate, in requests/sec, at which simulated
// multirange issues its successive single-range GETs. The fallback always
// reads one range at a time on the caller's goroutine; this only paces the
// gap between requests, it never parallelizes them.
func WithFallbackRate(rateHz float64) Option {
	return func(c *orchestratorConfig) {
		if rateHz > 0 {
			c.fallbackRateHz = rateHz
		}
	}
}

// WithLogger routes the orchestrator's trace/debug logging through base
// (slog.Default() when base is nil); without it that logging is discarded.
func WithLogger(base *slog.Logger) Option {
	return func(c *orchestratorConfig) { c.logger = tracelog.New(base) }
}
