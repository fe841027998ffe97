package service

import (
	"sort"

	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/fallback/domain"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
)

func ownPrice(snap snapshotdomain.PriceSnapshot) domain.EffectivePrice {
	return domain.EffectivePrice{
		ProductID:     snap.ProductID,
		StoreID:       snap.StoreID,
		SourceStoreID: snap.StoreID,
		Price:         snap.Price,
		Currency:      snap.Currency,
		CollectedAt:   snap.CollectedAt,
		Source:        snap.Source,
	}
}

func inheritedPrice(storeID int64, snap snapshotdomain.PriceSnapshot, source catalogdomain.Store) domain.EffectivePrice {
	return domain.EffectivePrice{
		ProductID:     snap.ProductID,
		StoreID:       storeID,
		SourceStoreID: snap.StoreID,
		Price:         snap.Price,
		Currency:      snap.Currency,
		CollectedAt:   snap.CollectedAt,
		Source:        domain.MirrorTag(source.ChainKey, source.ID, source.Online),
		Inherited:     true,
	}
}

// resolve joins snapshots with fallback mappings. A store's own snapshot always
// wins; otherwise the mapped source's snapshot is inherited, one hop only.
func resolve(
	snapshots []snapshotdomain.PriceSnapshot,
	mappings []domain.StoreFallback,
	sources map[int64]catalogdomain.Store,
) []domain.EffectivePrice {
	own := make(map[int64]snapshotdomain.PriceSnapshot, len(snapshots))
	for _, snap := range snapshots {
		own[snap.StoreID] = snap
	}

	out := make([]domain.EffectivePrice, 0, len(snapshots)+len(mappings))
	for _, snap := range snapshots {
		out = append(out, ownPrice(snap))
	}
	for _, m := range mappings {
		if _, ok := own[m.StoreID]; ok {
			continue
		}
		snap, ok := own[m.SourceStoreID]
		if !ok {
			continue
		}
		source, ok := sources[m.SourceStoreID]
		if !ok {
			continue
		}
		out = append(out, inheritedPrice(m.StoreID, snap, source))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}
