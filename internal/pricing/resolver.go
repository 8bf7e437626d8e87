package pricing

import (
	"fmt"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// Resolver picks the effective unit price for a quantity out of a variant's
// quantity-banded tiers. It is advisory when rendering a cart and
// authoritative at checkout, where callers must pass freshly fetched tiers
// and never a client-supplied price.
type Resolver struct {
	defaultCurrency string
}

// NewResolver builds a resolver with an explicit default currency. There is
// no implicit global fallback; callers that accept a currency from a request
// resolve it through Currency.
func NewResolver(defaultCurrency string) *Resolver {
	return &Resolver{defaultCurrency: defaultCurrency}
}

// Currency resolves a possibly empty requested currency code.
func (r *Resolver) Currency(requested string) string {
	if requested == "" {
		return r.defaultCurrency
	}
	return requested
}

func (r *Resolver) DefaultCurrency() string {
	return r.defaultCurrency
}

type Price struct {
	UnitAmount int64 `json:"unit_amount"`
	OnSale     bool  `json:"on_sale"`
}

// Resolve returns the unit price for quantity from tiers already filtered to
// one variant and currency. The tier whose band contains the quantity wins;
// when several bands match, the highest min_quantity is the most specific.
// An empty tier set prices at zero, which signals a catalog data problem
// upstream rather than a resolver failure.
func (r *Resolver) Resolve(tiers []domain.PriceTier, quantity int) Price {
	var best *domain.PriceTier
	for i := range tiers {
		t := &tiers[i]
		if !t.Contains(quantity) {
			continue
		}
		if best == nil || minQuantity(t) > minQuantity(best) {
			best = t
		}
	}
	if best == nil {
		return Price{}
	}
	if best.SaleAmount != nil && *best.SaleAmount < best.BaseAmount {
		return Price{UnitAmount: *best.SaleAmount, OnSale: true}
	}
	return Price{UnitAmount: best.BaseAmount}
}

func minQuantity(t *domain.PriceTier) int {
	if t.MinQuantity == nil {
		return 0
	}
	return *t.MinQuantity
}

// ValidateTiers rejects tier sets where two bands of the same currency
// overlap, so ambiguity is caught when tiers are written instead of being
// tolerated at read time. Catalog writers call it before persisting.
func ValidateTiers(tiers []domain.PriceTier) error {
	for i := range tiers {
		for j := i + 1; j < len(tiers); j++ {
			a, b := &tiers[i], &tiers[j]
			if a.Currency != b.Currency {
				continue
			}
			if bandsOverlap(a, b) {
				return fmt.Errorf("price tiers %s and %s have overlapping quantity bands: %w",
					a.ID, b.ID, domain.ErrConflict)
			}
		}
	}
	return nil
}

func bandsOverlap(a, b *domain.PriceTier) bool {
	aMax, bMax := upperBound(a), upperBound(b)
	return minQuantity(a) <= bMax && minQuantity(b) <= aMax
}

func upperBound(t *domain.PriceTier) int {
	if t.MaxQuantity == nil {
		return int(^uint(0) >> 1)
	}
	return *t.MaxQuantity
}
