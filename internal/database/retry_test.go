package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := pingWithRetry(context.Background(), "test", time.Millisecond, zerolog.Nop(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPingWithRetry_GivesUp(t *testing.T) {
	calls := 0
	refused := errors.New("connection refused")
	err := pingWithRetry(context.Background(), "test", time.Millisecond, zerolog.Nop(), func(context.Context) error {
		calls++
		return refused
	})
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, connectAttempts, calls)
}

func TestPingWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := pingWithRetry(ctx, "test", time.Hour, zerolog.Nop(), func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
