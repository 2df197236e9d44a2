package resilience

import (
	"testing"
	"time"
)

func TestNormalizeFillsZeroFields(t *testing.T) {
	got := Config{RetryMaxAttempts: 5}.normalize()
	def := DefaultConfig()

	if got.RetryMaxAttempts != 5 {
		t.Fatalf("explicit attempts overwritten: %d", got.RetryMaxAttempts)
	}
	if got.RetryInitialBackoff != def.RetryInitialBackoff || got.BreakerOpenTimeout != def.BreakerOpenTimeout {
		t.Fatalf("zero durations not defaulted: %+v", got)
	}
	if got.BreakerMinRequests != def.BreakerMinRequests || got.BreakerHalfOpenMaxCalls != def.BreakerHalfOpenMaxCalls {
		t.Fatalf("zero breaker counts not defaulted: %+v", got)
	}
}

func TestNormalizeKeepsMaxBackoffAboveInitial(t *testing.T) {
	got := Config{RetryInitialBackoff: 5 * time.Second, RetryMaxBackoff: time.Second}.normalize()
	if got.RetryMaxBackoff != 5*time.Second {
		t.Fatalf("expected max backoff raised to initial, got %v", got.RetryMaxBackoff)
	}
}

func TestNormalizeRejectsOutOfRangeRatio(t *testing.T) {
	got := Config{BreakerFailureRatio: 1.5, RetryMultiplier: 0.5}.normalize()
	if got.BreakerFailureRatio != DefaultConfig().BreakerFailureRatio || got.RetryMultiplier != DefaultConfig().RetryMultiplier {
		t.Fatalf("invalid ratio or multiplier kept: %+v", got)
	}
}

func TestTuned(t *testing.T) {
	cfg := Tuned(5, false)
	if cfg.RetryMaxAttempts != 5 || cfg.BreakerEnabled {
		t.Fatalf("unexpected tuned config %+v", cfg)
	}
	if got := Tuned(0, true); got.RetryMaxAttempts != DefaultConfig().RetryMaxAttempts || !got.BreakerEnabled {
		t.Fatalf("non-positive attempts should keep default, got %+v", got)
	}
}
