package app

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

// SelectListings returns the listings of a city that are eligible at now,
// optionally restricted to one type, ordered elite, premium, basic. Listings of
// equal tier keep their input order.
func SelectListings(ls []domain.SponsoredListing, citySlug string, typ domain.ListingType, now time.Time) []domain.SponsoredListing {
	out := []domain.SponsoredListing{}
	for _, l := range ls {
		if l.CitySlug != citySlug {
			continue
		}
		if typ != "" && l.Type != typ {
			continue
		}
		if !l.ActiveAt(now) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tier.Rank() < out[j].Tier.Rank()
	})
	return out
}

// ByTier filters an already selected sequence to a single tier.
func ByTier(ls []domain.SponsoredListing, t domain.Tier) []domain.SponsoredListing {
	out := []domain.SponsoredListing{}
	for _, l := range ls {
		if l.Tier == t {
			out = append(out, l)
		}
	}
	return out
}

// CalculateCTR is the click-through rate in percent; zero without impressions.
func CalculateCTR(l domain.SponsoredListing) float64 {
	if l.Impressions == 0 {
		return 0
	}
	return float64(l.Clicks) / float64(l.Impressions) * 100
}

const billingMonth = 30 * 24 * time.Hour

// CalculateRevenue prices a listing at its tier rate for every started 30-day
// month between its start and end dates. The 30-day month is an estimate, not
// calendar billing.
func CalculateRevenue(l domain.SponsoredListing) float64 {
	span := l.EndDate.Sub(l.StartDate.Time)
	if span <= 0 {
		return 0
	}
	months := math.Ceil(float64(span) / float64(billingMonth))
	return l.Tier.MonthlyPrice() * months
}

// Placement is the selector output grouped for rendering.
type Placement struct {
	Listings []domain.SponsoredListing `json:"listings"`
	Elite    []domain.SponsoredListing `json:"elite"`
	Premium  []domain.SponsoredListing `json:"premium"`
	Basic    []domain.SponsoredListing `json:"basic"`
}

type ListingService struct {
	catalog domain.Catalog
	store   domain.TrackingStore
	now     func() time.Time
}

// NewListingService builds the selector. store may be nil, in which case
// stats report only the counters present in the catalog.
func NewListingService(cat domain.Catalog, store domain.TrackingStore, now func() time.Time) *ListingService {
	if now == nil {
		now = time.Now
	}
	return &ListingService{catalog: cat, store: store, now: now}
}

func (s *ListingService) Select(citySlug string, typ domain.ListingType) Placement {
	ls := SelectListings(s.catalog.Listings(), citySlug, typ, s.now())
	return Placement{
		Listings: ls,
		Elite:    ByTier(ls, domain.TierElite),
		Premium:  ByTier(ls, domain.TierPremium),
		Basic:    ByTier(ls, domain.TierBasic),
	}
}

// Stats merges catalog counters with live tracked counters. A failing
// tracking store degrades to catalog counters only.
func (s *ListingService) Stats(ctx context.Context, id string) (domain.ListingStats, error) {
	l, ok := s.catalog.Listing(id)
	if !ok {
		return domain.ListingStats{}, domain.NotFoundf("Listing not found")
	}
	if s.store != nil {
		live, err := s.store.ListingCounters(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("listing_id", id).Msg("listing counters unavailable")
		} else {
			l.Impressions += live.Impressions
			l.Clicks += live.Clicks
		}
	}
	return domain.ListingStats{
		ID:          l.ID,
		Tier:        l.Tier,
		Impressions: l.Impressions,
		Clicks:      l.Clicks,
		CTR:         CalculateCTR(l),
		Revenue:     CalculateRevenue(l),
	}, nil
}
