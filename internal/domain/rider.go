package domain

import "time"

// RiderLocationTTL bounds how old a heartbeat may be before the rider is
// excluded from dispatch listings entirely.
const RiderLocationTTL = 10 * time.Minute

type RiderStatus string

const (
	RiderOffline RiderStatus = "offline"
	RiderOnline  RiderStatus = "online"
	RiderBusy    RiderStatus = "busy"
)

func (s RiderStatus) Valid() bool {
	switch s {
	case RiderOffline, RiderOnline, RiderBusy:
		return true
	}
	return false
}

// RiderLocation is the rider's last reported position, owned by the rider's
// own heartbeat process.
type RiderLocation struct {
	RiderID   string      `json:"rider_id"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Status    RiderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Stale reports whether the location is too old to be trusted for matching.
func (l RiderLocation) Stale(now time.Time) bool {
	return now.Sub(l.UpdatedAt) > RiderLocationTTL
}
