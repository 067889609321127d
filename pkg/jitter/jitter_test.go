package jitter_test

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/med-caption/pkg/jitter"
	"github.com/stretchr/testify/assert"
)

func TestDuration_Range(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := jitter.Duration(base, jitter.DefaultJitter)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}

func TestExponentialBackoff_CappedAtMax(t *testing.T) {
	base := 10 * time.Millisecond
	max := 50 * time.Millisecond

	tests := []struct {
		attempt int
		min     time.Duration
	}{
		{attempt: 0, min: 10 * time.Millisecond},
		{attempt: 1, min: 20 * time.Millisecond},
		{attempt: 2, min: 40 * time.Millisecond},
		{attempt: 3, min: 50 * time.Millisecond},
		{attempt: 10, min: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		d := jitter.ExponentialBackoff(base, max, tt.attempt, 0)
		assert.Equal(t, tt.min, d, "attempt %d", tt.attempt)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := jitter.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_Elapses(t *testing.T) {
	assert.NoError(t, jitter.Sleep(context.Background(), time.Millisecond))
}
