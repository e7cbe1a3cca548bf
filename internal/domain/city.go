package domain

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Scores struct {
	Halal                   int `json:"halal"`
	Food                    int `json:"food"`
	Community               int `json:"community"`
	Cost                    int `json:"cost"`
	Internet                int `json:"internet"`
	Safety                  int `json:"safety"`
	Overall                 int `json:"overall"`
	MuslimPopulationPercent int `json:"muslimPopulationPercent"`
}

type Stats struct {
	MuslimPopulation int64   `json:"muslimPopulation"`
	Mosques          int     `json:"mosques"`
	HalalRestaurants int     `json:"halalRestaurants"`
	MonthlyBudget    float64 `json:"monthlyBudget"` // USD
	InternetSpeed    float64 `json:"internetSpeed"` // Mbps
}

type Features struct {
	AirportPrayerRoom bool `json:"airportPrayerRoom"`
	HalalHotels       bool `json:"halalHotels"`
	IslamicBanks      bool `json:"islamicBanks"`
	IslamicSchools    bool `json:"islamicSchools"`
}

// City is one immutable entry of the city store, keyed by Slug.
type City struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Country     string   `json:"country"`
	Coordinates Coords   `json:"coordinates"`
	Scores      Scores   `json:"scores"`
	Stats       Stats    `json:"stats"`
	Features    Features `json:"features"`
}

// Normalize clamps scores to [0,100] and stats to non-negative values.
func (c City) Normalize() City {
	s := &c.Scores
	for _, p := range []*int{&s.Halal, &s.Food, &s.Community, &s.Cost, &s.Internet, &s.Safety, &s.Overall, &s.MuslimPopulationPercent} {
		*p = ClampScore(*p)
	}
	st := &c.Stats
	if st.MuslimPopulation < 0 {
		st.MuslimPopulation = 0
	}
	if st.Mosques < 0 {
		st.Mosques = 0
	}
	if st.HalalRestaurants < 0 {
		st.HalalRestaurants = 0
	}
	if st.MonthlyBudget < 0 {
		st.MonthlyBudget = 0
	}
	if st.InternetSpeed < 0 {
		st.InternetSpeed = 0
	}
	return c
}

func ClampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
