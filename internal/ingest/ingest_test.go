package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"github.com/smallbiznis/pricewatch/internal/config"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
	fetchErr  error
	fetches   int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	r.fetches++
	if r.fetchErr != nil {
		r.mu.Unlock()
		return kafka.Message{}, r.fetchErr
	}
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type mockHistory struct {
	mock.Mock
	pricehistorydomain.Service
}

func (m *mockHistory) Append(ctx context.Context, req pricehistorydomain.AppendRequest) (*pricehistorydomain.AppendResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*pricehistorydomain.AppendResult)
	return res, args.Error(1)
}

type mockCandidates struct {
	mock.Mock
	candidatedomain.Service
}

func (m *mockCandidates) Submit(ctx context.Context, req candidatedomain.SubmitRequest) (*candidatedomain.CandidateRecord, error) {
	args := m.Called(ctx, req)
	rec, _ := args.Get(0).(*candidatedomain.CandidateRecord)
	return rec, args.Error(1)
}

func TestConsumerCommitsEveryMessage(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	var (
		mu   sync.Mutex
		seen []int64
	)
	handler := func(_ context.Context, msg kafka.Message) error {
		mu.Lock()
		seen = append(seen, msg.Offset)
		mu.Unlock()
		if msg.Offset == 2 {
			return Permanent(errors.New("bad payload"))
		}
		return nil
	}

	c := newConsumer(reader, "price.observations", handler, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))
	assert.Error(t, c.Start(context.Background()))

	require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())
	assert.True(t, reader.closed)
	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestConsumerBacksOffWhenFetchFails(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("broker unreachable")}
	c := newConsumer(reader, "t", func(context.Context, kafka.Message) error { return nil }, zap.NewNop())
	c.backoff = 50 * time.Millisecond

	require.NoError(t, c.Start(context.Background()))
	time.Sleep(120 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- c.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop while backing off")
	}

	assert.GreaterOrEqual(t, reader.fetchCount(), 2)
	assert.LessOrEqual(t, reader.fetchCount(), 4)
	assert.Empty(t, reader.commits())
}

func TestConsumerRetriesTransientErrors(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{{Offset: 7}}}
	calls := 0
	handler := func(context.Context, kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("db unavailable")
		}
		return nil
	}

	c := newConsumer(reader, "t", handler, zap.NewNop())
	c.backoff = time.Millisecond
	require.NoError(t, c.handle(context.Background(), kafka.Message{Offset: 7}))
	assert.Equal(t, 3, calls)
}

func TestConsumerDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	handler := func(context.Context, kafka.Message) error {
		calls++
		return Permanent(errors.New("invalid"))
	}
	c := newConsumer(&fakeReader{}, "t", handler, zap.NewNop())
	err := c.handle(context.Background(), kafka.Message{})
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestObservationHandler(t *testing.T) {
	history := &mockHistory{}
	h := &handlers{log: zap.NewNop(), history: history}

	history.On("Append", mock.Anything, mock.MatchedBy(func(req pricehistorydomain.AppendRequest) bool {
		return req.ProductID == 1 && req.StoreID == 2 && req.Price.Equal(decimal.RequireFromString("1.25"))
	})).Return(&pricehistorydomain.AppendResult{Outcome: pricehistorydomain.OutcomeAccepted}, nil).Once()

	err := h.observation(context.Background(), kafka.Message{
		Value: []byte(`{"product_id":"1","store_id":"2","price":"1.25","source":"physical"}`),
	})
	require.NoError(t, err)

	err = h.observation(context.Background(), kafka.Message{Value: []byte(`{not json`)})
	assert.True(t, IsPermanent(err))

	history.On("Append", mock.Anything, mock.Anything).Return(nil, pricehistorydomain.ErrInvalidPrice).Once()
	err = h.observation(context.Background(), kafka.Message{Value: []byte(`{"product_id":"1","store_id":"2","price":"-1"}`)})
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, pricehistorydomain.ErrInvalidPrice)

	history.On("Append", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
	err = h.observation(context.Background(), kafka.Message{Value: []byte(`{"product_id":"1","store_id":"2","price":"1"}`)})
	assert.Error(t, err)
	assert.False(t, IsPermanent(err))
	history.AssertExpectations(t)
}

func TestCandidateHandler(t *testing.T) {
	candidates := &mockCandidates{}
	h := &handlers{log: zap.NewNop(), candidates: candidates}

	candidates.On("Submit", mock.Anything, mock.MatchedBy(func(req candidatedomain.SubmitRequest) bool {
		return req.Source == "selver" && req.ExternalID == "sku-1"
	})).Return(&candidatedomain.CandidateRecord{ID: 9}, nil).Once()
	require.NoError(t, h.candidate(context.Background(), kafka.Message{
		Value: []byte(`{"source":"selver","external_id":"sku-1","name":"Piim","price":"0.99"}`),
	}))

	candidates.On("Submit", mock.Anything, mock.Anything).Return(nil, candidatedomain.ErrInvalidName).Once()
	err := h.candidate(context.Background(), kafka.Message{Value: []byte(`{"source":"selver","external_id":"sku-2"}`)})
	assert.True(t, IsPermanent(err))
	candidates.AssertExpectations(t)
}

func TestNewDisabledWithoutBrokers(t *testing.T) {
	ingester, err := New(Params{Cfg: config.Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, ingester)
	assert.NoError(t, ingester.Start(context.Background()))
	assert.NoError(t, ingester.Stop())
}
