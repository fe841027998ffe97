package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/catalog/repository"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/migration/migrationtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCatalogService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    migrationtest.OpenSQLite(t),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
}

func strPtr(v string) *string { return &v }

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "4740012345678", domain.NormalizeIdentifier(" 474-0012 345678 "))
	assert.Equal(t, "", domain.NormalizeIdentifier("n/a"))
	assert.Equal(t, "123", domain.NormalizeIdentifier("١٢٣123"))
}

func TestChainKey(t *testing.T) {
	assert.Equal(t, "selver", domain.ChainKey(" Selver "))
	assert.Equal(t, "coop-eesti", domain.ChainKey("Coop Eesti"))
	assert.Equal(t, "", domain.ChainKey("   "))
}

func TestCreateProductWithIdentifiers(t *testing.T) {
	svc := setupCatalogService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.CreateProductRequest{
		Name:        " Piim 2,5% ",
		SizeText:    strPtr("1 l"),
		Brand:       strPtr("  "),
		Identifiers: []string{"4740-1234", "4740 1234", "99"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Piim 2,5%", product.Name)
	assert.Nil(t, product.Brand)
	assert.Equal(t, []string{"47401234", "99"}, product.Identifiers)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)
	assert.Equal(t, "1 l", *got.SizeText)
}

func TestCreateProductValidation(t *testing.T) {
	svc := setupCatalogService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Leib", Identifiers: []string{"abc"}})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	_, err = svc.GetProduct(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetProduct(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestAttachIdentifierIsIdempotent(t *testing.T) {
	svc := setupCatalogService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Leib"})
	require.NoError(t, err)

	_, err = svc.AttachIdentifier(ctx, product.ID, "4740 555")
	require.NoError(t, err)
	got, err := svc.AttachIdentifier(ctx, product.ID, "4740555")
	require.NoError(t, err)
	assert.Equal(t, []string{"4740555"}, got.Identifiers)

	_, err = svc.AttachIdentifier(ctx, product.ID, "--")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}

func TestIdentifierHasOneOwner(t *testing.T) {
	svc := setupCatalogService(t)
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Leib", Identifiers: []string{"4740555"}})
	require.NoError(t, err)
	second, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Sai"})
	require.NoError(t, err)

	_, err = svc.AttachIdentifier(ctx, second.ID, "4740 555")
	assert.ErrorIs(t, err, domain.ErrIdentifierOwned)

	_, err = svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Rukkileib", Identifiers: []string{"4740-555"}})
	assert.ErrorIs(t, err, domain.ErrIdentifierOwned)

	got, err := svc.GetProduct(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Identifiers)
	got, err = svc.GetProduct(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"4740555"}, got.Identifiers)
}

func TestCreateStoreOneOnlinePerChain(t *testing.T) {
	svc := setupCatalogService(t)
	ctx := context.Background()

	online, err := svc.CreateStore(ctx, domain.CreateStoreRequest{Name: "Selver e-pood", Chain: "Selver", Online: true})
	require.NoError(t, err)
	assert.Equal(t, "selver", online.ChainKey)
	assert.True(t, online.Online)

	_, err = svc.CreateStore(ctx, domain.CreateStoreRequest{Name: "Selver veeb", Chain: "selver", Online: true})
	assert.ErrorIs(t, err, domain.ErrOnlineStoreExists)

	physical, err := svc.CreateStore(ctx, domain.CreateStoreRequest{Name: "Selver Kristiine", Chain: "Selver"})
	require.NoError(t, err)
	assert.False(t, physical.Online)

	stores, err := svc.ListStores(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 2)

	got, err := svc.GetStore(ctx, physical.ID)
	require.NoError(t, err)
	assert.Equal(t, "Selver Kristiine", got.Name)
}

func TestCreateStoreValidation(t *testing.T) {
	svc := setupCatalogService(t)
	ctx := context.Background()

	_, err := svc.CreateStore(ctx, domain.CreateStoreRequest{Name: "", Chain: "Rimi"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateStore(ctx, domain.CreateStoreRequest{Name: "Rimi", Chain: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidChain)

	lat := 91.0
	_, err = svc.CreateStore(ctx, domain.CreateStoreRequest{Name: "Rimi", Chain: "Rimi", Lat: &lat})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
}
