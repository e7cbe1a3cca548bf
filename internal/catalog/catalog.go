// Package catalog holds the immutable in-memory snapshot of cities, places and
// sponsored listings that the API serves. A snapshot is built once at startup
// and is safe for concurrent reads without locking.
package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

// Data is the on-disk catalog document.
type Data struct {
	Cities   []domain.City             `json:"cities"`
	Places   []domain.Place            `json:"places,omitempty"`
	Listings []domain.SponsoredListing `json:"sponsoredListings,omitempty"`
}

type Snapshot struct {
	version  string
	cities   []domain.City
	bySlug   map[string]int
	places   map[string][]domain.Place // slug -> places, restaurants and mosques mixed
	listings []domain.SponsoredListing
	byID     map[string]int
}

var _ domain.Catalog = (*Snapshot)(nil)

// New validates d and builds a snapshot. City order is preserved; it is the
// tie-break order for every sort the query engine performs.
func New(d Data) (*Snapshot, error) {
	s := &Snapshot{
		cities:   make([]domain.City, 0, len(d.Cities)),
		bySlug:   make(map[string]int, len(d.Cities)),
		places:   make(map[string][]domain.Place),
		listings: make([]domain.SponsoredListing, 0, len(d.Listings)),
		byID:     make(map[string]int, len(d.Listings)),
	}

	for _, c := range d.Cities {
		if c.Slug == "" {
			return nil, fmt.Errorf("catalog: city %q has empty slug", c.Name)
		}
		if _, dup := s.bySlug[c.Slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate city slug %q", c.Slug)
		}
		s.bySlug[c.Slug] = len(s.cities)
		s.cities = append(s.cities, c.Normalize())
	}

	for _, p := range d.Places {
		if !p.Kind.Valid() {
			return nil, fmt.Errorf("catalog: place %q has unknown kind %q", p.ID, p.Kind)
		}
		s.places[p.CitySlug] = append(s.places[p.CitySlug], p)
	}

	for _, l := range d.Listings {
		if l.ID == "" {
			return nil, fmt.Errorf("catalog: listing for %q has empty id", l.BusinessName)
		}
		if _, dup := s.byID[l.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate listing id %q", l.ID)
		}
		if !l.Tier.Valid() {
			return nil, fmt.Errorf("catalog: listing %q has unknown tier %q", l.ID, l.Tier)
		}
		if !l.Type.Valid() {
			return nil, fmt.Errorf("catalog: listing %q has unknown type %q", l.ID, l.Type)
		}
		if l.EndDate.Before(l.StartDate.Time) {
			return nil, fmt.Errorf("catalog: listing %q ends before it starts", l.ID)
		}
		if l.Impressions < 0 || l.Clicks < 0 {
			return nil, fmt.Errorf("catalog: listing %q has negative counters", l.ID)
		}
		s.byID[l.ID] = len(s.listings)
		s.listings = append(s.listings, l)
	}

	v, err := fingerprint(s.cities, d.Places, s.listings)
	if err != nil {
		return nil, err
	}
	s.version = v
	return s, nil
}

func fingerprint(parts ...any) (string, error) {
	h := sha1.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("catalog: fingerprint: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}

// Version identifies the snapshot contents; it changes whenever the data does.
func (s *Snapshot) Version() string { return s.version }

// Cities returns a copy of the city sequence in store order.
func (s *Snapshot) Cities() []domain.City { return slices.Clone(s.cities) }

func (s *Snapshot) City(slug string) (domain.City, bool) {
	i, ok := s.bySlug[slug]
	if !ok {
		return domain.City{}, false
	}
	return s.cities[i], true
}

// Places returns the places of one kind for a city. Restaurants are ordered by
// rating (unrated last), then name; mosques by name.
func (s *Snapshot) Places(slug string, kind domain.PlaceKind) []domain.Place {
	out := []domain.Place{}
	for _, p := range s.places[slug] {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if kind == domain.PlaceRestaurant {
			ri, rj := rating(out[i]), rating(out[j])
			if ri != rj {
				return ri > rj
			}
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func rating(p domain.Place) float64 {
	if p.Rating == nil {
		return -1
	}
	return *p.Rating
}

func (s *Snapshot) Listings() []domain.SponsoredListing { return slices.Clone(s.listings) }

func (s *Snapshot) Listing(id string) (domain.SponsoredListing, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.SponsoredListing{}, false
	}
	return s.listings[i], true
}

func (s *Snapshot) Len() int { return len(s.cities) }
