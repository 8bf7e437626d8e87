package dispatch

import (
	"testing"
	"time"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

func TestRankDeliveriesForRider(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nearest vendor first", func(t *testing.T) {
		farLat, farLng := coords(0, 32.6)
		nearLat, nearLng := coords(0, 32.51)
		candidates := []DeliveryCandidate{
			{OrderID: "far", VendorLatitude: farLat, VendorLongitude: farLng, CreatedAt: base},
			{OrderID: "near", VendorLatitude: nearLat, VendorLongitude: nearLng, CreatedAt: base.Add(time.Minute)},
		}

		ranked := RankDeliveriesForRider(candidates, 0, 32.5)
		if ranked[0].OrderID != "near" || ranked[1].OrderID != "far" {
			t.Fatalf("expected [near far], got [%s %s]", ranked[0].OrderID, ranked[1].OrderID)
		}
		if ranked[0].DistanceKm == nil || *ranked[0].DistanceKm > 1.2 {
			t.Fatalf("expected ~1.1 km for the near vendor, got %v", ranked[0].DistanceKm)
		}
	})

	t.Run("unlocated vendors sort last by age", func(t *testing.T) {
		lat, lng := coords(0, 32.51)
		candidates := []DeliveryCandidate{
			{OrderID: "no-coords-new", CreatedAt: base.Add(time.Hour)},
			{OrderID: "no-coords-old", CreatedAt: base},
			{OrderID: "located", VendorLatitude: lat, VendorLongitude: lng, CreatedAt: base.Add(2 * time.Hour)},
		}

		ranked := RankDeliveriesForRider(candidates, 0, 32.5)
		want := []string{"located", "no-coords-old", "no-coords-new"}
		for i, id := range want {
			if ranked[i].OrderID != id {
				t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].OrderID)
			}
		}
		if ranked[1].DistanceKm != nil {
			t.Fatal("expected no distance for an unlocated vendor")
		}
	})

	t.Run("equal distance breaks ties by age", func(t *testing.T) {
		aLat, aLng := coords(0, 32.51)
		bLat, bLng := coords(0, 32.51)
		candidates := []DeliveryCandidate{
			{OrderID: "newer", VendorLatitude: aLat, VendorLongitude: aLng, CreatedAt: base.Add(time.Minute)},
			{OrderID: "older", VendorLatitude: bLat, VendorLongitude: bLng, CreatedAt: base},
		}

		ranked := RankDeliveriesForRider(candidates, 0, 32.5)
		if ranked[0].OrderID != "older" {
			t.Fatalf("expected older order first, got %s", ranked[0].OrderID)
		}
	})
}

func TestRankRidersForVendor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nearest online rider first", func(t *testing.T) {
		riders := []domain.RiderLocation{
			{RiderID: "far", Latitude: 0, Longitude: 32.6, Status: domain.RiderOnline, UpdatedAt: now},
			{RiderID: "near", Latitude: 0, Longitude: 32.51, Status: domain.RiderOnline, UpdatedAt: now},
		}

		ranked := RankRidersForVendor(riders, 0, 32.5, now)
		if len(ranked) != 2 || ranked[0].RiderID != "near" {
			t.Fatalf("expected near rider first, got %+v", ranked)
		}
	})

	t.Run("stale and non-online riders are excluded", func(t *testing.T) {
		riders := []domain.RiderLocation{
			{RiderID: "stale", Latitude: 0, Longitude: 32.5, Status: domain.RiderOnline, UpdatedAt: now.Add(-11 * time.Minute)},
			{RiderID: "busy", Latitude: 0, Longitude: 32.5, Status: domain.RiderBusy, UpdatedAt: now},
			{RiderID: "fresh", Latitude: 0, Longitude: 32.51, Status: domain.RiderOnline, UpdatedAt: now.Add(-9 * time.Minute)},
		}

		ranked := RankRidersForVendor(riders, 0, 32.5, now)
		if len(ranked) != 1 || ranked[0].RiderID != "fresh" {
			t.Fatalf("expected only the fresh rider, got %+v", ranked)
		}
	})
}
