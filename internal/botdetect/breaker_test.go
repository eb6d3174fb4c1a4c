package botdetect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consentry/consentry/internal/circuitbreaker"
)

type countingClassifier struct {
	calls int
	err   error
}

func (c *countingClassifier) Classify(ctx context.Context, trace Trace) (*RemoteVerdict, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &RemoteVerdict{IsBot: false, Confidence: 0.9}, nil
}

func TestBreakerShortCircuitsFailingClassifier(t *testing.T) {
	inner := &countingClassifier{err: errors.New("connection refused")}
	wrapped := WithBreaker(inner, circuitbreaker.New(2, time.Minute))

	ctx := context.Background()
	_, err := wrapped.Classify(ctx, Trace{})
	require.Error(t, err)
	_, err = wrapped.Classify(ctx, Trace{})
	require.Error(t, err)

	// Circuit is now open; the remote endpoint must not be called again.
	_, err = wrapped.Classify(ctx, Trace{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerPassesThroughHealthyClassifier(t *testing.T) {
	inner := &countingClassifier{}
	wrapped := WithBreaker(inner, circuitbreaker.New(2, time.Minute))

	verdict, err := wrapped.Classify(context.Background(), Trace{})
	require.NoError(t, err)
	require.NotNil(t, verdict)
	assert.InDelta(t, 0.9, verdict.Confidence, 0.0001)
	assert.Equal(t, 1, inner.calls)
}

func TestBreakerRecoversAfterOpenWindow(t *testing.T) {
	inner := &countingClassifier{err: errors.New("boom")}
	wrapped := WithBreaker(inner, circuitbreaker.New(1, 10*time.Millisecond))

	ctx := context.Background()
	_, _ = wrapped.Classify(ctx, Trace{})
	_, err := wrapped.Classify(ctx, Trace{})
	assert.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(20 * time.Millisecond)
	inner.err = nil

	verdict, err := wrapped.Classify(ctx, Trace{})
	require.NoError(t, err)
	assert.NotNil(t, verdict)
}
