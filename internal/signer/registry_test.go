package signer

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signoracle/internal/determinism"
)

func unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

func TestRegister_AndLoadNative(t *testing.T) {
	Register("test-echo", func(src determinism.Source) (Signer, error) {
		return Func(func(_ context.Context, q, id string) (string, error) {
			return q + "/" + id + "/" + strconv.FormatFloat(src.Random(), 'g', -1, 64), nil
		}), nil
	})
	defer unregister("test-echo")

	assert.Contains(t, Registered(), "test-echo")

	src := determinism.MustFixed(determinism.Sequence{0.5}, 0)
	l := &Loader{}
	s, err := l.Load(context.Background(), MustParseRef("native:test-echo"), src)
	require.NoError(t, err)

	got, err := s.Sign(context.Background(), "q", "id")
	require.NoError(t, err)
	assert.Equal(t, "q/id/0.5", got)
	assert.Equal(t, int64(1), src.Draws())
}

func TestLoadNative_Unknown(t *testing.T) {
	l := &Loader{}
	_, err := l.Load(context.Background(), MustParseRef("native:does-not-exist"), determinism.System())
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownNative, LoadErrorCodeOf(err))
}

func TestLoadNative_FactoryFails(t *testing.T) {
	Register("test-broken", func(determinism.Source) (Signer, error) {
		return nil, errors.New("version mismatch")
	})
	defer unregister("test-broken")

	Register("test-nil", func(determinism.Source) (Signer, error) {
		return nil, nil
	})
	defer unregister("test-nil")

	l := &Loader{}
	_, err := l.Load(context.Background(), MustParseRef("native:test-broken"), determinism.System())
	require.Error(t, err)
	assert.Equal(t, ErrCodeNativeInit, LoadErrorCodeOf(err))
	assert.Contains(t, err.Error(), "version mismatch")

	_, err = l.Load(context.Background(), MustParseRef("native:test-nil"), determinism.System())
	require.Error(t, err)
	assert.Equal(t, ErrCodeNativeInit, LoadErrorCodeOf(err))
}

func TestRegister_Panics(t *testing.T) {
	noop := func(determinism.Source) (Signer, error) { return nil, nil }

	assert.Panics(t, func() { Register("", noop) })
	assert.Panics(t, func() { Register("test-nil-factory", nil) })

	Register("test-dup", noop)
	defer unregister("test-dup")
	assert.Panics(t, func() { Register("test-dup", noop) })
}

func TestRegistered_Sorted(t *testing.T) {
	noop := func(determinism.Source) (Signer, error) { return nil, nil }
	Register("test-b", noop)
	Register("test-a", noop)
	defer unregister("test-a")
	defer unregister("test-b")

	names := Registered()
	ia, ib := indexOf(names, "test-a"), indexOf(names, "test-b")
	require.GreaterOrEqual(t, ia, 0)
	require.GreaterOrEqual(t, ib, 0)
	assert.Less(t, ia, ib)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
