package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/pricewatch/internal/catalog/repository"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/fallback/domain"
	"github.com/smallbiznis/pricewatch/internal/fallback/repository"
	"github.com/smallbiznis/pricewatch/internal/migration/migrationtest"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	snapshotrepository "github.com/smallbiznis/pricewatch/internal/snapshot/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

const product int64 = 1

// Stores: 1 Selver e-pood (online), 2 Selver Kristiine, 3 Selver Järve,
// 4 Prisma Mustamäe, 7 Rimi Solaris.
func setupFallback(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := migrationtest.OpenSQLite(t)
	ctx := context.Background()

	catalogRepo := catalogrepository.Provide()
	require.NoError(t, catalogRepo.CreateProduct(ctx, db, &catalogdomain.Product{ID: product, Name: "Kohv", CreatedAt: now, UpdatedAt: now}))
	for _, st := range []catalogdomain.Store{
		{ID: 1, Name: "Selver e-pood", Chain: "Selver", ChainKey: "selver", Online: true},
		{ID: 2, Name: "Selver Kristiine", Chain: "Selver", ChainKey: "selver"},
		{ID: 3, Name: "Selver Järve", Chain: "Selver", ChainKey: "selver"},
		{ID: 4, Name: "Prisma Mustamäe", Chain: "Prisma", ChainKey: "prisma"},
		{ID: 7, Name: "Rimi Solaris", Chain: "Rimi", ChainKey: "rimi"},
	} {
		st := st
		st.CreatedAt, st.UpdatedAt = now, now
		require.NoError(t, catalogRepo.CreateStore(ctx, db, &st))
	}

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Repo:         repository.Provide(),
		CatalogRepo:  catalogRepo,
		SnapshotRepo: snapshotrepository.Provide(),
		Clock:        clock.NewFakeClock(now),
	})
	return svc, db
}

func putSnapshot(t *testing.T, db *gorm.DB, storeID int64, price string, source string) {
	t.Helper()
	_, err := snapshotrepository.Provide().Upsert(context.Background(), db, &snapshotdomain.PriceSnapshot{
		ProductID:     product,
		StoreID:       storeID,
		ObservationID: storeID * 100,
		Price:         decimal.RequireFromString(price),
		Currency:      "EUR",
		CollectedAt:   now,
		Source:        source,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
}

func TestOwnSnapshotWinsOverMapping(t *testing.T) {
	svc, db := setupFallback(t)
	ctx := context.Background()

	putSnapshot(t, db, 1, "3.99", "selver:online")
	putSnapshot(t, db, 2, "4.49", "physical")
	_, err := svc.SetMapping(ctx, 2, 1)
	require.NoError(t, err)

	price, ok, err := svc.EffectivePrice(ctx, product, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, price.Inherited)
	assert.Equal(t, "physical", price.Source)
	assert.Equal(t, int64(2), price.SourceStoreID)
	assert.True(t, decimal.RequireFromString("4.49").Equal(price.Price))
}

func TestInheritsFromOnlineSource(t *testing.T) {
	svc, db := setupFallback(t)
	ctx := context.Background()

	putSnapshot(t, db, 1, "3.99", "selver:online")
	_, err := svc.SetMapping(ctx, 3, 1)
	require.NoError(t, err)

	price, ok, err := svc.EffectivePrice(ctx, product, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Inherited)
	assert.Equal(t, "mirror:selver:online", price.Source)
	assert.Equal(t, int64(3), price.StoreID)
	assert.Equal(t, int64(1), price.SourceStoreID)
	assert.True(t, now.Equal(price.CollectedAt))

	// Nothing is ever written for the mirrored store.
	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM price_snapshots WHERE store_id = 3").Scan(&count).Error)
	assert.Zero(t, count)
}

func TestInheritsFromPhysicalSource(t *testing.T) {
	svc, db := setupFallback(t)
	ctx := context.Background()

	putSnapshot(t, db, 2, "4.49", "physical")
	_, err := svc.SetMapping(ctx, 3, 2)
	require.NoError(t, err)

	price, ok, err := svc.EffectivePrice(ctx, product, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mirror:selver:2", price.Source)
}

func TestFallbackIsOneHop(t *testing.T) {
	svc, db := setupFallback(t)
	ctx := context.Background()

	putSnapshot(t, db, 1, "3.99", "selver:online")
	_, err := svc.SetMapping(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.SetMapping(ctx, 3, 2)
	require.NoError(t, err)

	_, ok, err := svc.EffectivePrice(ctx, product, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = svc.EffectivePrice(ctx, product, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAbsentWithoutSnapshotOrMapping(t *testing.T) {
	svc, _ := setupFallback(t)

	price, ok, err := svc.EffectivePrice(context.Background(), product, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, price)
}

func TestSetMappingSelfReferenceKeepsPrior(t *testing.T) {
	svc, _ := setupFallback(t)
	ctx := context.Background()

	_, err := svc.SetMapping(ctx, 7, 1)
	require.NoError(t, err)

	_, err = svc.SetMapping(ctx, 7, 7)
	assert.ErrorIs(t, err, domain.ErrSelfReference)

	_, err = svc.SetMapping(ctx, 7, 999)
	assert.ErrorIs(t, err, domain.ErrInvalidSourceStore)

	mapping, err := svc.GetMapping(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mapping.SourceStoreID)
}

func TestSetMappingReplacesAndDeletes(t *testing.T) {
	svc, _ := setupFallback(t)
	ctx := context.Background()

	_, err := svc.SetMapping(ctx, 3, 1)
	require.NoError(t, err)
	updated, err := svc.SetMapping(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.SourceStoreID)

	items, err := svc.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, svc.DeleteMapping(ctx, 3))
	assert.ErrorIs(t, svc.DeleteMapping(ctx, 3), domain.ErrNotFound)
	_, err = svc.GetMapping(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEffectivePricesCoversMirroredStores(t *testing.T) {
	svc, db := setupFallback(t)
	ctx := context.Background()

	putSnapshot(t, db, 1, "3.99", "selver:online")
	putSnapshot(t, db, 2, "4.49", "physical")
	putSnapshot(t, db, 4, "3.79", "physical")
	for _, storeID := range []int64{2, 3} {
		_, err := svc.SetMapping(ctx, storeID, 1)
		require.NoError(t, err)
	}

	prices, err := svc.EffectivePrices(ctx, product)
	require.NoError(t, err)
	require.Len(t, prices, 4)

	byStore := map[int64]domain.EffectivePrice{}
	for _, p := range prices {
		byStore[p.StoreID] = p
	}
	assert.False(t, byStore[2].Inherited)
	assert.True(t, byStore[3].Inherited)
	assert.Equal(t, "mirror:selver:online", byStore[3].Source)
	assert.Equal(t, []int64{1, 2, 3, 4}, []int64{prices[0].StoreID, prices[1].StoreID, prices[2].StoreID, prices[3].StoreID})
}
