// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tabularium/internal/metrics"
)

// Circuit breaker configuration for the log query source:
// consecutive failures open the circuit because pagination issues
// requests sequentially, so ratio-based tripping would need an
// unrealistic request volume inside one measurement window.
const (
	breakerName         = "loki-query"
	breakerMaxRequests  = 3
	breakerInterval     = time.Minute
	breakerTimeout      = 2 * time.Minute
	breakerTripFailures = 3
)

// BreakerQuerySource wraps a QuerySource with circuit breaker
// protection so a dead or overloaded query endpoint fails fast instead
// of burning the pass timeout on every page.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. Tests exercise the trip
// threshold, not the recovery timing.
type BreakerQuerySource struct {
	source QuerySource
	cb     *gobreaker.CircuitBreaker[[]LogEntry]
	logger zerolog.Logger
}

// NewBreakerQuerySource wraps source with a circuit breaker that opens
// after consecutive query failures.
func NewBreakerQuerySource(source QuerySource, logger zerolog.Logger) *BreakerQuerySource {
	logger = logger.With().Str("component", "query-breaker").Logger()

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]LogEntry](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= breakerTripFailures
			if shouldTrip {
				logger.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logger.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerQuerySource{
		source: source,
		cb:     cb,
		logger: logger,
	}
}

// QueryRange delegates to the wrapped source through the breaker.
// When the circuit is open the call fails immediately with
// gobreaker.ErrOpenState.
func (b *BreakerQuerySource) QueryRange(ctx context.Context, query string, limit int, start, end time.Time) ([]LogEntry, error) {
	entries, err := b.cb.Execute(func() ([]LogEntry, error) {
		return b.source.QueryRange(ctx, query, limit, start, end)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			b.logger.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
			counts := b.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	return entries, nil
}

// stateToFloat converts circuit breaker state to a numeric gauge value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
