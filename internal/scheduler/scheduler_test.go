package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUsageResetter struct {
	mock.Mock
}

func (m *MockUsageResetter) ResetUsage(ctx context.Context, country string, actor domain.Actor) (int64, error) {
	args := m.Called(ctx, country, actor)
	return args.Get(0).(int64), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := scheduler.NewScheduler(new(MockUsageResetter), "not a schedule", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid usage reset schedule")
}

func TestResetUsage_ActsAsSystemOnEveryCountry(t *testing.T) {
	cards := new(MockUsageResetter)
	cards.On("ResetUsage", mock.Anything, "", scheduler.SystemActor).Return(int64(12), nil).Once()

	s, err := scheduler.NewScheduler(cards, "0 0 1 * *", discardLogger())
	require.NoError(t, err)
	assert.True(t, s.IsRunning())

	s.ResetUsage(context.Background())
	cards.AssertExpectations(t)
}

func TestResetUsage_ErrorIsLoggedOnly(t *testing.T) {
	cards := new(MockUsageResetter)
	cards.On("ResetUsage", mock.Anything, "", scheduler.SystemActor).Return(int64(0), errors.New("db down")).Once()

	s, err := scheduler.NewScheduler(cards, "@monthly", discardLogger())
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.ResetUsage(context.Background()) })
	cards.AssertExpectations(t)
}

func TestRun_StopsWithContext(t *testing.T) {
	s, err := scheduler.NewScheduler(new(MockUsageResetter), "@monthly", discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
