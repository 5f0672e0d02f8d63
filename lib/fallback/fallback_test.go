package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixed(name string, value string, ok bool, err error, calls *[]string) Strategy[string] {
	return Strategy[string]{
		Name: name,
		Try: func(ctx context.Context) (string, bool, error) {
			*calls = append(*calls, name)
			return value, ok, err
		},
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	var calls []string
	chain := Chain[string]{
		fixed("primary", "", false, nil, &calls),
		fixed("secondary", "maps", true, nil, &calls),
		fixed("tertiary", "never", true, nil, &calls),
	}
	value, name, err := chain.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, "maps", value)
	require.Equal(t, "secondary", name)
	require.Equal(t, []string{"primary", "secondary"}, calls)

	calls = nil
	_, _, err = Chain[string]{
		fixed("primary", "", false, nil, &calls),
		fixed("secondary", "", false, nil, &calls),
	}.Resolve(ctx)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, []string{"primary", "secondary"}, calls)

	calls = nil
	broken := errors.New("session lost")
	_, name, err = Chain[string]{
		fixed("primary", "", false, broken, &calls),
		fixed("secondary", "x", true, nil, &calls),
	}.Resolve(ctx)
	require.ErrorIs(t, err, broken)
	require.Equal(t, "primary", name)
	require.Equal(t, []string{"primary"}, calls)
}

func TestValue(t *testing.T) {
	ctx := context.Background()

	var calls []string
	value, err := Chain[string]{fixed("only", "", false, nil, &calls)}.Value(ctx)
	require.NoError(t, err)
	require.Empty(t, value)

	value, err = Chain[string]{}.Value(ctx)
	require.NoError(t, err)
	require.Empty(t, value)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Chain[string]{fixed("only", "x", true, nil, &calls)}.Value(cancelled)
	require.ErrorIs(t, err, context.Canceled)
}
