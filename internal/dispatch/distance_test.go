package dispatch

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		if d := DistanceKm(0.3476, 32.5825, 0.3476, 32.5825); d != 0 {
			t.Fatalf("expected 0, got %v", d)
		}
	})

	t.Run("short hop on the equator", func(t *testing.T) {
		// 0.01 degrees of longitude at the equator is about 1.11 km.
		d := DistanceKm(0, 32.5, 0, 32.51)
		if math.Abs(d-1.11) > 0.02 {
			t.Fatalf("expected ~1.11 km, got %v", d)
		}
	})

	t.Run("longer hop scales linearly", func(t *testing.T) {
		d := DistanceKm(0, 32.5, 0, 32.6)
		if math.Abs(d-11.12) > 0.05 {
			t.Fatalf("expected ~11.12 km, got %v", d)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := DistanceKm(0.3476, 32.5825, 0.0512, 32.4637)
		b := DistanceKm(0.0512, 32.4637, 0.3476, 32.5825)
		if a != b {
			t.Fatalf("expected symmetric distance, got %v and %v", a, b)
		}
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		d := DistanceKm(0.3476, 32.5825, 0.3490, 32.5900)
		if d != math.Round(d*100)/100 {
			t.Fatalf("expected two-decimal rounding, got %v", d)
		}
	})
}
