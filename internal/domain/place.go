package domain

type PlaceKind string

const (
	PlaceRestaurant PlaceKind = "restaurant"
	PlaceMosque     PlaceKind = "mosque"
)

func (k PlaceKind) Valid() bool {
	return k == PlaceRestaurant || k == PlaceMosque
}

// Place is a restaurant or mosque attached to a city.
type Place struct {
	ID          string    `json:"id"`
	CitySlug    string    `json:"citySlug"`
	Kind        PlaceKind `json:"kind"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Coordinates *Coords   `json:"coordinates,omitempty"`
	Cuisine     string    `json:"cuisine,omitempty"`
	Rating      *float64  `json:"rating,omitempty"` // 0..5
}
