package domain

import (
	"sort"
	"strings"
)

// Less orders offers by price, then most recent collection, then store id.
// A zero CollectedAt sorts as the oldest possible time.
func Less(a, b Offer) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	if !a.CollectedAt.Equal(b.CollectedAt) {
		switch {
		case a.CollectedAt.IsZero():
			return false
		case b.CollectedAt.IsZero():
			return true
		}
		return a.CollectedAt.After(b.CollectedAt)
	}
	return a.StoreID < b.StoreID
}

// Rank returns a sorted copy of offers. An empty currency keeps every offer;
// otherwise only offers in that currency are ranked.
func Rank(offers []Offer, currency string) []Offer {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if currency != "" && !strings.EqualFold(o.Currency, currency) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Cheapest returns the first offer under Rank.
func Cheapest(offers []Offer, currency string) (Offer, bool) {
	var (
		best  Offer
		found bool
	)
	currency = strings.TrimSpace(currency)
	for _, o := range offers {
		if currency != "" && !strings.EqualFold(o.Currency, currency) {
			continue
		}
		if !found || Less(o, best) {
			best = o
			found = true
		}
	}
	return best, found
}
