package fallback

import (
	"context"
	"errors"
	"log/slog"
)

var ErrExhausted = errors.New("fallback: all strategies exhausted")

// Strategy is one way of obtaining a value.
//
// Try reports ok = false when the strategy did not apply so that the next
// one can be attempted, a non-nil error aborts the whole chain.
type Strategy[T any] struct {
	Name string
	Try  func(ctx context.Context) (value T, ok bool, err error)
}

// Chain is an ordered list of strategies, earlier strategies are preferred.
type Chain[T any] []Strategy[T]

// Resolve runs the strategies in order and returns the value and name of
// the first one that succeeds.
func (c Chain[T]) Resolve(ctx context.Context) (T, string, error) {
	var zero T
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		value, ok, err := s.Try(ctx)
		if err != nil {
			return zero, s.Name, err
		}
		if ok {
			return value, s.Name, nil
		}
		slog.DebugContext(ctx, "strategy did not apply", "strategy", s.Name)
	}
	return zero, "", ErrExhausted
}

// Value is Resolve for chains where exhaustion is a normal outcome, it
// returns the zero value instead of ErrExhausted.
func (c Chain[T]) Value(ctx context.Context) (T, error) {
	value, _, err := c.Resolve(ctx)
	if errors.Is(err, ErrExhausted) {
		return value, nil
	}
	return value, err
}
