package pricing

import (
	"errors"
	"testing"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func tier(base int64, sale *int64, min, max *int) domain.PriceTier {
	return domain.PriceTier{
		Currency:    "UGX",
		BaseAmount:  base,
		SaleAmount:  sale,
		MinQuantity: min,
		MaxQuantity: max,
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("UGX")

	t.Run("no tiers prices at zero", func(t *testing.T) {
		got := r.Resolve(nil, 3)
		if got.UnitAmount != 0 || got.OnSale {
			t.Fatalf("expected zero price, got %+v", got)
		}
	})

	t.Run("open-ended bands default to 0 and infinity", func(t *testing.T) {
		tiers := []domain.PriceTier{tier(5000, nil, nil, nil)}
		if got := r.Resolve(tiers, 1); got.UnitAmount != 5000 {
			t.Fatalf("expected 5000 at qty 1, got %d", got.UnitAmount)
		}
		if got := r.Resolve(tiers, 100000); got.UnitAmount != 5000 {
			t.Fatalf("expected 5000 at qty 100000, got %d", got.UnitAmount)
		}
	})

	t.Run("quantity outside every band prices at zero", func(t *testing.T) {
		tiers := []domain.PriceTier{tier(5000, nil, intPtr(10), nil)}
		if got := r.Resolve(tiers, 2); got.UnitAmount != 0 {
			t.Fatalf("expected zero price below band, got %d", got.UnitAmount)
		}
	})

	t.Run("bulk tier example", func(t *testing.T) {
		tiers := []domain.PriceTier{
			tier(10000, nil, intPtr(1), intPtr(4)),
			tier(9000, nil, intPtr(5), nil),
		}
		if got := r.Resolve(tiers, 2); got.UnitAmount != 10000 {
			t.Fatalf("qty 2: expected 10000, got %d", got.UnitAmount)
		}
		if got := r.Resolve(tiers, 6); got.UnitAmount != 9000 {
			t.Fatalf("qty 6: expected 9000, got %d", got.UnitAmount)
		}
	})

	t.Run("most specific band wins when several match", func(t *testing.T) {
		tiers := []domain.PriceTier{
			tier(10000, nil, nil, nil),
			tier(8000, nil, intPtr(10), nil),
			tier(9000, nil, intPtr(5), nil),
		}
		if got := r.Resolve(tiers, 12); got.UnitAmount != 8000 {
			t.Fatalf("expected tier with min 10 to win, got %d", got.UnitAmount)
		}
	})

	t.Run("sale applies only when strictly below base", func(t *testing.T) {
		onSale := []domain.PriceTier{tier(10000, int64Ptr(8500), nil, nil)}
		got := r.Resolve(onSale, 1)
		if got.UnitAmount != 8500 || !got.OnSale {
			t.Fatalf("expected sale price 8500, got %+v", got)
		}

		notBelow := []domain.PriceTier{tier(10000, int64Ptr(10000), nil, nil)}
		got = r.Resolve(notBelow, 1)
		if got.UnitAmount != 10000 || got.OnSale {
			t.Fatalf("expected base price when sale is not below base, got %+v", got)
		}
	})

	t.Run("effective price never exceeds base", func(t *testing.T) {
		tiers := []domain.PriceTier{
			tier(10000, int64Ptr(12000), intPtr(1), intPtr(4)),
			tier(9000, int64Ptr(7000), intPtr(5), intPtr(9)),
			tier(8000, nil, intPtr(10), nil),
		}
		for qty := 1; qty <= 30; qty++ {
			got := r.Resolve(tiers, qty)
			for i := range tiers {
				if tiers[i].Contains(qty) && got.UnitAmount > tiers[i].BaseAmount {
					t.Fatalf("qty %d: effective %d exceeds base %d", qty, got.UnitAmount, tiers[i].BaseAmount)
				}
			}
		}
	})
}

func TestResolver_Currency(t *testing.T) {
	r := NewResolver("UGX")
	if got := r.Currency(""); got != "UGX" {
		t.Fatalf("expected default UGX, got %s", got)
	}
	if got := r.Currency("KES"); got != "KES" {
		t.Fatalf("expected requested KES, got %s", got)
	}
}

func TestValidateTiers(t *testing.T) {
	t.Run("accepts disjoint bands", func(t *testing.T) {
		tiers := []domain.PriceTier{
			tier(10000, nil, intPtr(1), intPtr(4)),
			tier(9000, nil, intPtr(5), nil),
		}
		if err := ValidateTiers(tiers); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects overlapping bands", func(t *testing.T) {
		tiers := []domain.PriceTier{
			{ID: "a", Currency: "UGX", BaseAmount: 10000, MinQuantity: intPtr(1), MaxQuantity: intPtr(5)},
			{ID: "b", Currency: "UGX", BaseAmount: 9000, MinQuantity: intPtr(5)},
		}
		err := ValidateTiers(tiers)
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("different currencies never overlap", func(t *testing.T) {
		tiers := []domain.PriceTier{
			{Currency: "UGX", BaseAmount: 10000},
			{Currency: "KES", BaseAmount: 400},
		}
		if err := ValidateTiers(tiers); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
