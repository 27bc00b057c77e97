package geo

import (
	"math"
	"testing"

	"explorafit-server/internal/domain"
)

func TestPathLengthKm_DegeneratePaths(t *testing.T) {
	t.Parallel()

	if got := PathLengthKm(nil); got != 0 {
		t.Fatalf("empty path: got %v want 0", got)
	}
	if got := PathLengthKm([]domain.LatLng{{Lat: 51.5, Lng: -0.09}}); got != 0 {
		t.Fatalf("single point: got %v want 0", got)
	}
}

func TestPathLengthKm_OneDegreeAtEquator(t *testing.T) {
	t.Parallel()

	got := PathLengthKm([]domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})
	if math.Abs(got-111.19) > 0.01 {
		t.Fatalf("one degree of longitude at the equator: got %v want ~111.19", got)
	}
}

func TestPathLengthKm_SumsSegments(t *testing.T) {
	t.Parallel()

	oneDegree := PathLengthKm([]domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})
	twoDegrees := PathLengthKm([]domain.LatLng{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 1},
		{Lat: 0, Lng: 2},
	})
	if math.Abs(twoDegrees-2*oneDegree) > 0.01 {
		t.Fatalf("two equal segments: got %v want ~%v", twoDegrees, 2*oneDegree)
	}
}

func TestPathLengthKm_ZeroLengthSegment(t *testing.T) {
	t.Parallel()

	got := PathLengthKm([]domain.LatLng{{Lat: 48.85, Lng: 2.35}, {Lat: 48.85, Lng: 2.35}})
	if got != 0 {
		t.Fatalf("coincident points: got %v want 0", got)
	}
}

func TestPathLengthKm_RoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	got := PathLengthKm([]domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0.0001, Lng: 0.0001}})
	if got != math.Round(got*100)/100 {
		t.Fatalf("expected value rounded to two decimals, got %v", got)
	}
}
