package app

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

/********** alias registries (single source of truth) **********/

var cityAliases = map[string][]string{
	"slug":    {"slug", "id", "city_slug"},
	"name":    {"name", "city", "city_name", "title"},
	"country": {"country", "country_name", "location.country", "address.country"},
	"lat":     {"coordinates.lat", "lat", "latitude", "location.lat", "geo.lat"},
	"lng":     {"coordinates.lng", "lng", "lon", "longitude", "location.lng", "location.lon", "geo.lng"},

	"halal":     {"scores.halal", "halal_score", "halalScore"},
	"food":      {"scores.food", "food_score", "foodScore"},
	"community": {"scores.community", "community_score", "communityScore"},
	"cost":      {"scores.cost", "cost_score", "costScore"},
	"internet":  {"scores.internet", "internet_score", "internetScore"},
	"safety":    {"scores.safety", "safety_score", "safetyScore"},
	"overall":   {"scores.overall", "overall_score", "overallScore", "score"},
	"mpp":       {"scores.muslimPopulationPercent", "muslim_population_percent", "muslimPopulationPercent", "demographics.muslim_percent"},

	"muslimPopulation": {"stats.muslimPopulation", "muslim_population", "muslimPopulation", "demographics.muslim_population"},
	"mosques":          {"stats.mosques", "mosques", "mosque_count", "mosqueCount"},
	"halalRestaurants": {"stats.halalRestaurants", "halal_restaurants", "halalRestaurants", "restaurant_count"},
	"monthlyBudget":    {"stats.monthlyBudget", "monthly_budget", "monthlyBudget", "cost_of_living.monthly", "budget"},
	"internetSpeed":    {"stats.internetSpeed", "internet_speed", "internetSpeed", "internet.mbps"},

	"airportPrayerRoom": {"features.airportPrayerRoom", "airport_prayer_room", "airportPrayerRoom"},
	"halalHotels":       {"features.halalHotels", "halal_hotels", "halalHotels"},
	"islamicBanks":      {"features.islamicBanks", "islamic_banks", "islamicBanks"},
	"islamicSchools":    {"features.islamicSchools", "islamic_schools", "islamicSchools"},
}

var placeAliases = map[string][]string{
	"id":      {"id", "place_id", "placeId"},
	"name":    {"name", "title", "business_name"},
	"address": {"address", "formatted_address", "vicinity", "location.address", "address.line"},
	"lat":     {"coordinates.lat", "lat", "latitude", "location.lat", "geometry.location.lat"},
	"lng":     {"coordinates.lng", "lng", "lon", "longitude", "location.lng", "geometry.location.lng"},
	"cuisine": {"cuisine", "category", "categories", "types"},
	"rating":  {"rating", "stars", "score", "rating.value"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstStr: first non-empty string for a named alias set. Lists of strings
// yield their first element.
func firstStr(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []any:
			for _, it := range v {
				if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

// firstFloat: number from an alias set (float64/int/string like "8,0" or "1,200").
func firstFloat(m map[string]any, aliases map[string][]string, key string) *float64 {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			if f, ok := parseLooseFloat(v); ok {
				return &f
			}
		}
	}
	return nil
}

func parseLooseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, false
	}
	// "1,200" is a thousands separator, "8,5" a decimal comma
	if i := strings.LastIndexByte(s, ','); i >= 0 {
		if len(s)-i-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func firstInt(m map[string]any, aliases map[string][]string, key string) int {
	if f := firstFloat(m, aliases, key); f != nil {
		return int(math.Round(*f))
	}
	return 0
}

func firstBool(m map[string]any, aliases map[string][]string, key string) bool {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "y", "1":
				return true
			case "false", "no", "n", "0":
				return false
			}
		}
	}
	return false
}

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

/********** city mapper **********/

func mapCity(slug string, p map[string]any) domain.City {
	c := domain.City{
		Slug:    slug,
		Name:    firstStr(p, cityAliases, "name"),
		Country: firstStr(p, cityAliases, "country"),
	}
	if c.Slug == "" {
		c.Slug = Slugify(firstStr(p, cityAliases, "slug"))
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if lat, lng := firstFloat(p, cityAliases, "lat"), firstFloat(p, cityAliases, "lng"); lat != nil && lng != nil {
		c.Coordinates = domain.Coords{Lat: *lat, Lng: *lng}
	}

	c.Scores = domain.Scores{
		Halal:                   firstInt(p, cityAliases, "halal"),
		Food:                    firstInt(p, cityAliases, "food"),
		Community:               firstInt(p, cityAliases, "community"),
		Cost:                    firstInt(p, cityAliases, "cost"),
		Internet:                firstInt(p, cityAliases, "internet"),
		Safety:                  firstInt(p, cityAliases, "safety"),
		MuslimPopulationPercent: firstInt(p, cityAliases, "mpp"),
	}
	if f := firstFloat(p, cityAliases, "overall"); f != nil {
		c.Scores.Overall = int(math.Round(*f))
	} else {
		c.Scores.Overall = overallOf(c.Scores)
	}

	c.Stats = domain.Stats{
		Mosques:          firstInt(p, cityAliases, "mosques"),
		HalalRestaurants: firstInt(p, cityAliases, "halalRestaurants"),
	}
	if f := firstFloat(p, cityAliases, "muslimPopulation"); f != nil {
		c.Stats.MuslimPopulation = int64(math.Round(*f))
	}
	if f := firstFloat(p, cityAliases, "monthlyBudget"); f != nil {
		c.Stats.MonthlyBudget = *f
	}
	if f := firstFloat(p, cityAliases, "internetSpeed"); f != nil {
		c.Stats.InternetSpeed = *f
	}

	c.Features = domain.Features{
		AirportPrayerRoom: firstBool(p, cityAliases, "airportPrayerRoom"),
		HalalHotels:       firstBool(p, cityAliases, "halalHotels"),
		IslamicBanks:      firstBool(p, cityAliases, "islamicBanks"),
		IslamicSchools:    firstBool(p, cityAliases, "islamicSchools"),
	}
	return c.Normalize()
}

// overallOf is the rounded mean of the six category scores, used when a
// payload carries no precomputed overall score.
func overallOf(s domain.Scores) int {
	sum := s.Halal + s.Food + s.Community + s.Cost + s.Internet + s.Safety
	return int(math.Round(float64(sum) / 6))
}

/********** place mapper **********/

func mapPlaces(slug string, kind domain.PlaceKind, in []map[string]any) []domain.Place {
	out := make([]domain.Place, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		pl := domain.Place{
			CitySlug: slug,
			Kind:     kind,
			Name:     firstStr(r, placeAliases, "name"),
			Address:  firstStr(r, placeAliases, "address"),
		}
		if pl.Name == "" {
			continue
		}
		if lat, lng := firstFloat(r, placeAliases, "lat"), firstFloat(r, placeAliases, "lng"); lat != nil && lng != nil {
			pl.Coordinates = &domain.Coords{Lat: *lat, Lng: *lng}
		}
		if kind == domain.PlaceRestaurant {
			pl.Cuisine = firstStr(r, placeAliases, "cuisine")
		}
		if f := firstFloat(r, placeAliases, "rating"); f != nil && *f >= 0 && *f <= 5 {
			pl.Rating = f
		}

		// ID → prefer explicit; else synthesize a stable hash.
		if id := firstStr(r, placeAliases, "id"); id != "" {
			pl.ID = id
		} else if id := lookupNumberID(r); id != "" {
			pl.ID = id
		} else {
			sum := sha1.Sum([]byte(strings.Join([]string{slug, string(kind), pl.Name, pl.Address}, "|")))
			pl.ID = hex.EncodeToString(sum[:10])
		}
		if _, dup := seen[pl.ID]; dup {
			continue
		}
		seen[pl.ID] = struct{}{}
		out = append(out, pl)
	}
	return out
}

func lookupNumberID(m map[string]any) string {
	for _, p := range placeAliases["id"] {
		if f, ok := lookupAny(m, p).(float64); ok {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return ""
}
