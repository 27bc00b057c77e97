package domain

import "time"

type Difficulty string

const (
	DifficultyEasy     Difficulty = "Easy"
	DifficultyModerate Difficulty = "Moderate"
	DifficultyHard     Difficulty = "Hard"
)

// Valid reports whether the difficulty is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return true
	}
	return false
}

// LatLng is a single geographic point of a route polyline.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Route is a user-authored cycling route. DistanceKm is derived server-side
// from the polyline at creation time and never taken from the caller.
type Route struct {
	ID          int64
	OwnerID     int64
	Name        string
	Difficulty  Difficulty
	Description string
	Landmarks   string
	City        string
	DistanceKm  float64
	Polyline    []LatLng
	CreatedAt   time.Time
}
