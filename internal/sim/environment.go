package sim

import (
	"context"
	"sync"
	"time"

	"drivepilot-sim/internal/policy"
)

// ConditionProvider supplies environmental flags once per tick.
type ConditionProvider interface {
	Conditions(ctx context.Context) (policy.Conditions, error)
}

// StaticConditions is a provider backed by a mutable flag set, updated by
// scenario phases or the admin UI.
type StaticConditions struct {
	mu   sync.Mutex
	cond policy.Conditions
}

// NewStaticConditions creates a provider with an initial flag set.
func NewStaticConditions(cond policy.Conditions) *StaticConditions {
	return &StaticConditions{cond: cond}
}

// Conditions implements ConditionProvider.
func (s *StaticConditions) Conditions(ctx context.Context) (policy.Conditions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cond, nil
}

// SetLowLight flips the low-light flag.
func (s *StaticConditions) SetLowLight(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.LowLight = v
}

// boundedConditions wraps a provider with a per-query timeout. On timeout
// or error the last-known value is reused with the degraded flag set.
type boundedConditions struct {
	inner   ConditionProvider
	timeout time.Duration
	last    policy.Conditions
}

func newBoundedConditions(inner ConditionProvider, timeout time.Duration) *boundedConditions {
	return &boundedConditions{inner: inner, timeout: timeout}
}

func (b *boundedConditions) Conditions(ctx context.Context) (policy.Conditions, error) {
	qctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		cond policy.Conditions
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := b.inner.Conditions(qctx)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			c := b.last
			c.Degraded = true
			return c, r.err
		}
		b.last = r.cond
		return r.cond, nil
	case <-qctx.Done():
		c := b.last
		c.Degraded = true
		return c, qctx.Err()
	}
}
