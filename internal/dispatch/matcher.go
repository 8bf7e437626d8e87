package dispatch

import (
	"sort"
	"time"

	"github.com/mwondhaf/boxconv-sub001/internal/domain"
)

// RankedDelivery is a delivery candidate with the rider's distance to its
// vendor. DistanceKm is nil when the vendor has no coordinates on file.
type RankedDelivery struct {
	DeliveryCandidate
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// RankDeliveriesForRider orders unclaimed deliveries by vendor proximity to
// the rider. Vendors without coordinates cannot be ranked by distance, so
// they sort after every ranked one, oldest order first, instead of being
// hidden from the rider altogether.
func RankDeliveriesForRider(candidates []DeliveryCandidate, riderLat, riderLng float64) []RankedDelivery {
	ranked := make([]RankedDelivery, 0, len(candidates))
	for _, c := range candidates {
		rd := RankedDelivery{DeliveryCandidate: c}
		if c.VendorLatitude != nil && c.VendorLongitude != nil {
			d := DistanceKm(riderLat, riderLng, *c.VendorLatitude, *c.VendorLongitude)
			rd.DistanceKm = &d
		}
		ranked = append(ranked, rd)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.DistanceKm != nil && b.DistanceKm != nil:
			if *a.DistanceKm != *b.DistanceKm {
				return *a.DistanceKm < *b.DistanceKm
			}
			return a.CreatedAt.Before(b.CreatedAt)
		case a.DistanceKm != nil:
			return true
		case b.DistanceKm != nil:
			return false
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})

	return ranked
}

// RankedRider is an online rider with their distance to a vendor.
type RankedRider struct {
	RiderID    string    `json:"rider_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	DistanceKm float64   `json:"distance_km"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RankRidersForVendor orders fresh online riders by distance to the vendor.
// Stale heartbeats are dropped here as well in case the caller fetched the
// locations some time ago.
func RankRidersForVendor(riders []domain.RiderLocation, vendorLat, vendorLng float64, now time.Time) []RankedRider {
	ranked := make([]RankedRider, 0, len(riders))
	for _, r := range riders {
		if r.Status != domain.RiderOnline || r.Stale(now) {
			continue
		}
		ranked = append(ranked, RankedRider{
			RiderID:    r.RiderID,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			DistanceKm: DistanceKm(vendorLat, vendorLng, r.Latitude, r.Longitude),
			UpdatedAt:  r.UpdatedAt,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	return ranked
}
