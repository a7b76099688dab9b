// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package workerpool offloads the DB façade's value-codec encrypt/decrypt
// calls onto a bounded pool of goroutines, optionally rate-limited. It is
// a performance detail: the crypto
// contract itself stays synchronous, and a DB with no pool attached simply
// runs these calls inline.
package workerpool

import (
	"context"
	"time"

	"github.com/cockroachdb/tokenbucket"
	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent crypto work to a fixed number of goroutines and,
// if configured with a rate, throttles how often new work may start.
type Pool struct {
	sem     *semaphore.Weighted
	limiter *tokenbucket.TokenBucket
}

// New returns a Pool allowing up to maxConcurrency calls to Submit's
// function to run at once. If ratePerSecond is > 0, Submit additionally
// waits for a token bucket refilling at that rate before running the call.
func New(maxConcurrency int, ratePerSecond float64, burst float64) *Pool {
	p := &Pool{sem: semaphore.NewWeighted(int64(maxConcurrency))}
	if ratePerSecond > 0 {
		p.limiter = &tokenbucket.TokenBucket{}
		p.limiter.Init(tokenbucket.Rate(ratePerSecond), burst)
	}
	return p
}

// Submit runs fn on the pool, blocking until a slot (and, if rate-limited,
// a token) is available or ctx is cancelled.
func (p *Pool) Submit(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	if p.limiter != nil {
		if ok, wait := p.limiter.TryToFulfill(1); !ok {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	type result struct {
		b   []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		b, err := fn()
		done <- result{b, err}
	}()
	select {
	case r := <-done:
		return r.b, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
