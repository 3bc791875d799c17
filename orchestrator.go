package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrEmailRequired is returned when the caller supplied an empty
// address after trimming.
var ErrEmailRequired = errors.New("email is required")

// RequestOrchestrator sequences cache lookup, pipeline evaluation, and
// cache write for a single address (spec.md §4.11).
type RequestOrchestrator struct {
	pipeline *Pipeline
	cache    VerdictStore
	log      *logrus.Logger
}

func NewRequestOrchestrator(pipeline *Pipeline, cache VerdictStore, log *logrus.Logger) *RequestOrchestrator {
	return &RequestOrchestrator{pipeline: pipeline, cache: cache, log: log}
}

// Verify returns the verdict for rawAddress, consulting and
// populating the cache around a live pipeline run on a miss. Cache
// failures are logged and never surface to the caller.
func (o *RequestOrchestrator) Verify(ctx context.Context, rawAddress string) (Verdict, error) {
	address := normalizeAddress(rawAddress)
	if address == "" {
		return Verdict{}, ErrEmailRequired
	}

	if cached, err := o.cache.Get(ctx, address); err != nil {
		o.log.WithError(err).WithField("email", address).Warn("cache read failed, evaluating live")
	} else if cached != nil {
		return *cached, nil
	}

	verdict := o.pipeline.Evaluate(ctx, address)

	if ctx.Err() != nil {
		// A cancelled request must not populate the cache.
		return verdict, nil
	}

	if err := o.cache.Put(ctx, address, verdict); err != nil {
		o.log.WithError(err).WithField("email", address).Warn("cache write failed")
	}

	return verdict, nil
}
