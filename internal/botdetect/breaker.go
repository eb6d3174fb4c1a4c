package botdetect

import (
	"context"
	"errors"

	"github.com/consentry/consentry/internal/circuitbreaker"
)

const breakerKey = "classifier"

// ErrCircuitOpen is returned when the classifier circuit is open and the
// call was short-circuited without reaching the remote endpoint.
var ErrCircuitOpen = errors.New("classifier circuit open")

type breakerClassifier struct {
	next Classifier
	cb   *circuitbreaker.Breaker
}

// WithBreaker wraps a classifier with a circuit breaker so a failing remote
// endpoint stops being hit after repeated errors. Analysis degrades to the
// local heuristic verdict while the circuit is open.
func WithBreaker(next Classifier, cb *circuitbreaker.Breaker) Classifier {
	return &breakerClassifier{next: next, cb: cb}
}

func (b *breakerClassifier) Classify(ctx context.Context, trace Trace) (*RemoteVerdict, error) {
	if !b.cb.Allow(breakerKey) {
		return nil, ErrCircuitOpen
	}
	verdict, err := b.next.Classify(ctx, trace)
	if err != nil {
		b.cb.RecordFailure(breakerKey)
		return nil, err
	}
	b.cb.RecordSuccess(breakerKey)
	return verdict, nil
}
