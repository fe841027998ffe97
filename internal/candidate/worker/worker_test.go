package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockService struct {
	mock.Mock
	domain.Service
}

func (m *mockService) AdoptAllMatchable(ctx context.Context) (domain.BatchSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BatchSummary), args.Error(1)
}

func newTestWorker(svc domain.Service) *Worker {
	cfg := config.DefaultMatcherConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RunTimeout = time.Second
	return NewWorker(Params{
		Log:     zap.NewNop(),
		Service: svc,
		Matcher: config.NewStaticMatcherConfigHolder(cfg),
	})
}

func TestRunOnceReturnsSummary(t *testing.T) {
	svc := &mockService{}
	svc.On("AdoptAllMatchable", mock.Anything).Return(domain.BatchSummary{Considered: 3, Adopted: 2, Failed: 1}, nil).Once()

	summary, err := newTestWorker(svc).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Adopted)
	assert.Equal(t, 1, summary.Failed)
	svc.AssertExpectations(t)
}

func TestRunOnceAppliesTimeout(t *testing.T) {
	svc := &mockService{}
	svc.On("AdoptAllMatchable", mock.Anything).Return(domain.BatchSummary{}, nil).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, ok := ctx.Deadline()
		assert.True(t, ok)
	}).Once()

	_, err := newTestWorker(svc).RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOncePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	svc := &mockService{}
	svc.On("AdoptAllMatchable", mock.Anything).Return(domain.BatchSummary{}, boom).Once()

	_, err := newTestWorker(svc).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	svc := &mockService{}
	svc.On("AdoptAllMatchable", mock.Anything).Return(domain.BatchSummary{}, nil).Run(func(mock.Arguments) {
		runs.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		newTestWorker(svc).RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestLockTTLOutlivesRun(t *testing.T) {
	assert.Equal(t, 2*time.Minute+lockTTLSlack, lockTTL(2*time.Minute))
	assert.Equal(t, lockTTLSlack, lockTTL(0))
}
