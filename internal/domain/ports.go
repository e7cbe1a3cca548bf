package domain

import (
	"context"
	"time"
)

// Catalog is the read-only snapshot of cities, places and sponsored listings.
type Catalog interface {
	Version() string
	Cities() []City
	City(slug string) (City, bool)
	Places(slug string, kind PlaceKind) []Place
	Listings() []SponsoredListing
	Listing(id string) (SponsoredListing, bool)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}

// TrackingStore records impressions, clicks and affiliate clicks.
type TrackingStore interface {
	RecordListingEvent(ctx context.Context, ev ListingEvent) error
	RecordAffiliateClick(ctx context.Context, ev AffiliateClick) error
	ListingCounters(ctx context.Context, listingID string) (Counters, error)
}

// CatalogWriter is the write side used by the out-of-band catalog builder.
type CatalogWriter interface {
	UpsertCity(ctx context.Context, c City) error
	UpsertPlaces(ctx context.Context, slug string, ps []Place) error
	UpsertListings(ctx context.Context, ls []SponsoredListing) error
	LogMiss(ctx context.Context, slug string, status int, reason string) error
}

// DatasetClient fetches pre-scraped city payloads.
type DatasetClient interface {
	GetCity(ctx context.Context, slug string) (map[string]any, error)
	GetPlaces(ctx context.Context, slug string, kind PlaceKind) ([]map[string]any, error)
}

type EventKind string

const (
	EventImpression EventKind = "impression"
	EventClick      EventKind = "click"
)

type ListingEvent struct {
	ID        string
	ListingID string
	Kind      EventKind
	At        time.Time
}

type AffiliateClick struct {
	ID       string
	Partner  string
	Category string
	City     string
	Country  string
	URL      string
	At       time.Time
}

type Counters struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

// Read models & queries

type CityQuery struct {
	Search    string
	MinHalal  *int
	MaxBudget *float64
	Limit     int
	Offset    int
}

type CitiesPage struct {
	Cities  []City `json:"cities"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"hasMore"`
}

type Community struct {
	MuslimPopulation        int64   `json:"muslimPopulation"`
	MuslimPopulationPercent int     `json:"muslimPopulationPercent"`
	CommunityScore          int     `json:"communityScore"`
	MosqueCount             int     `json:"mosqueCount"`
	MosquesPer100k          float64 `json:"mosquesPer100k"`
}

type CityDetail struct {
	City
	Restaurants []Place   `json:"restaurants"`
	Mosques     []Place   `json:"mosques"`
	Community   Community `json:"community"`
}

type ListingStats struct {
	ID          string  `json:"id"`
	Tier        Tier    `json:"tier"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Revenue     float64 `json:"revenue"`
}
