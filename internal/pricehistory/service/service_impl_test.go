package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/pricewatch/internal/catalog/repository"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/smallbiznis/pricewatch/internal/migration/migrationtest"
	"github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"github.com/smallbiznis/pricewatch/internal/pricehistory/repository"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	snapshotrepository "github.com/smallbiznis/pricewatch/internal/snapshot/repository"
	snapshotservice "github.com/smallbiznis/pricewatch/internal/snapshot/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	productID int64 = 100
	storeID   int64 = 200
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	snapshots snapshotdomain.Service
	clock     *clock.FakeClock
}

func setupLedger(t *testing.T, maintainer snapshotdomain.Maintainer) fixture {
	t.Helper()
	db := migrationtest.OpenSQLite(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)

	catalogRepo := catalogrepository.Provide()
	ctx := context.Background()
	require.NoError(t, catalogRepo.CreateProduct(ctx, db, &catalogdomain.Product{ID: productID, Name: "Piim", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, catalogRepo.CreateStore(ctx, db, &catalogdomain.Store{ID: storeID, Name: "Selver Kristiine", Chain: "Selver", ChainKey: "selver", CreatedAt: now, UpdatedAt: now}))

	snapshots := snapshotservice.New(snapshotservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  snapshotrepository.Provide(),
		Clock: clk,
	})
	if maintainer == nil {
		maintainer = snapshots
	}

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Cfg:         config.Config{DefaultCurrency: "EUR"},
		Repo:        repository.Provide(),
		CatalogRepo: catalogRepo,
		Snapshots:   maintainer,
		Clock:       clk,
	})
	return fixture{svc: svc, db: db, snapshots: snapshots, clock: clk}
}

func observation(price string, at time.Time) domain.AppendRequest {
	return domain.AppendRequest{
		ProductID:   productID,
		StoreID:     storeID,
		Price:       decimal.RequireFromString(price),
		Currency:    "EUR",
		CollectedAt: at,
		Source:      domain.SourcePhysical,
	}
}

func countObservations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM price_observations").Scan(&count).Error)
	return count
}

func TestAppendAcceptedAdvancesSnapshot(t *testing.T) {
	f := setupLedger(t, nil)
	ctx := context.Background()

	res, err := f.svc.Append(ctx, observation("1.29", now.Add(-time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAccepted, res.Outcome)

	snap, err := f.snapshots.Get(ctx, productID, storeID)
	require.NoError(t, err)
	assert.Equal(t, res.Observation.ID, snap.ObservationID)
	assert.True(t, decimal.RequireFromString("1.29").Equal(snap.Price))
	assert.Equal(t, domain.SourcePhysical, snap.Source)
}

func TestAppendDuplicateIsNoop(t *testing.T) {
	f := setupLedger(t, nil)
	ctx := context.Background()

	first, err := f.svc.Append(ctx, observation("1.50", now.Add(-time.Hour)))
	require.NoError(t, err)

	// Same scrape re-delivered with a different decimal spelling and sub-microsecond noise.
	again := observation("1.5000", now.Add(-time.Hour).Add(300*time.Nanosecond))
	second, err := f.svc.Append(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, first.Observation.ID, second.Observation.ID)

	assert.Equal(t, int64(1), countObservations(t, f.db))

	snap, err := f.snapshots.Get(ctx, productID, storeID)
	require.NoError(t, err)
	assert.Equal(t, first.Observation.ID, snap.ObservationID)
}

func TestAppendStaleKeepsHistoryOnly(t *testing.T) {
	f := setupLedger(t, nil)
	ctx := context.Background()

	latest, err := f.svc.Append(ctx, observation("2.00", now))
	require.NoError(t, err)

	stale, err := f.svc.Append(ctx, observation("1.00", now.Add(-24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStale, stale.Outcome)
	assert.Equal(t, int64(2), countObservations(t, f.db))

	snap, err := f.snapshots.Get(ctx, productID, storeID)
	require.NoError(t, err)
	assert.Equal(t, latest.Observation.ID, snap.ObservationID)
}

func TestAppendDefaults(t *testing.T) {
	f := setupLedger(t, nil)
	ctx := context.Background()

	res, err := f.svc.Append(ctx, domain.AppendRequest{
		ProductID: productID,
		StoreID:   storeID,
		Price:     decimal.RequireFromString("0"),
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", res.Observation.Currency)
	assert.Equal(t, domain.SourceUnknown, res.Observation.Source)
	assert.True(t, now.Equal(res.Observation.CollectedAt))
}

func TestAppendValidation(t *testing.T) {
	f := setupLedger(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.AppendRequest
		want error
	}{
		{name: "negative_price", req: observation("-0.01", now), want: domain.ErrInvalidPrice},
		{name: "huge_price", req: observation("10000000000", now), want: domain.ErrInvalidPrice},
		{name: "zero_product", req: func() domain.AppendRequest { r := observation("1", now); r.ProductID = 0; return r }(), want: domain.ErrInvalidProduct},
		{name: "unknown_product", req: func() domain.AppendRequest { r := observation("1", now); r.ProductID = 999; return r }(), want: domain.ErrInvalidProduct},
		{name: "unknown_store", req: func() domain.AppendRequest { r := observation("1", now); r.StoreID = 999; return r }(), want: domain.ErrInvalidStore},
		{name: "bad_currency", req: func() domain.AppendRequest { r := observation("1", now); r.Currency = "euro"; return r }(), want: domain.ErrInvalidCurrency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Append(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, int64(0), countObservations(t, f.db))
}

type maintainerMock struct {
	mock.Mock
}

func (m *maintainerMock) Apply(ctx context.Context, tx *gorm.DB, in snapshotdomain.ApplyInput) (bool, error) {
	args := m.Called(ctx, tx, in)
	return args.Bool(0), args.Error(1)
}

func TestAppendRollsBackWhenSnapshotFails(t *testing.T) {
	m := &maintainerMock{}
	m.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("boom"))
	f := setupLedger(t, m)

	_, err := f.svc.Append(context.Background(), observation("1.00", now))
	require.Error(t, err)
	assert.Equal(t, int64(0), countObservations(t, f.db))
	m.AssertExpectations(t)
}

func TestListNewestFirst(t *testing.T) {
	f := setupLedger(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Append(ctx, observation("1.00", now.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	items, err := f.svc.List(ctx, domain.ListRequest{ProductID: productID, StoreID: storeID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, now.Add(2*time.Minute).Equal(items[0].CollectedAt))
	assert.True(t, now.Add(time.Minute).Equal(items[1].CollectedAt))

	_, err = f.svc.List(ctx, domain.ListRequest{ProductID: productID})
	assert.ErrorIs(t, err, domain.ErrInvalidStore)
}
