package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vidscreen/internal/config"
)

type MockRecordSweeper struct {
	mock.Mock
}

func (m *MockRecordSweeper) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func TestRecoverOrphansFailsEverythingNonTerminal(t *testing.T) {
	// Arrange
	sweeper := new(MockRecordSweeper)
	sweeper.On("FailStale", mock.Anything, time.Duration(0)).Return(int64(3), nil)
	j := NewJanitor(sweeper, nil, config.JanitorConfig{}, zerolog.Nop())

	// Act
	err := j.RecoverOrphans(context.Background())

	// Assert
	require.NoError(t, err)
	sweeper.AssertExpectations(t)
}

func TestRecoverOrphansPropagatesError(t *testing.T) {
	sweeper := new(MockRecordSweeper)
	sweeper.On("FailStale", mock.Anything, time.Duration(0)).Return(int64(0), errors.New("db down"))
	j := NewJanitor(sweeper, nil, config.JanitorConfig{}, zerolog.Nop())

	err := j.RecoverOrphans(context.Background())

	assert.Error(t, err)
}

func TestSweepUsesConfiguredStaleness(t *testing.T) {
	sweeper := new(MockRecordSweeper)
	sweeper.On("FailStale", mock.Anything, time.Hour).Return(int64(1), nil)
	j := NewJanitor(sweeper, nil, config.JanitorConfig{StaleAfter: time.Hour}, zerolog.Nop())

	j.sweep()

	sweeper.AssertExpectations(t)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j := NewJanitor(new(MockRecordSweeper), nil, config.JanitorConfig{Schedule: "not a schedule"}, zerolog.Nop())

	err := j.Start()

	assert.Error(t, err)
}
