package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/armieahmed7/halalcities-sub003/internal/catalog"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

// ErrSkipped marks a city whose payload was missing or inaccessible; it was
// logged as a miss and left out of the catalog.
var ErrSkipped = errors.New("city skipped")

// CitySeed is one manifest entry. Name and Country override the payload.
type CitySeed struct {
	Slug    string `yaml:"slug"`
	Name    string `yaml:"name"`
	Country string `yaml:"country"`
}

// BuiltCity is the mapped result for one seed.
type BuiltCity struct {
	City   domain.City
	Places []domain.Place
}

// CatalogBuilder turns pre-scraped city payloads into catalog records. It runs
// out-of-band; the API only ever reads the result.
type CatalogBuilder struct {
	dataset domain.DatasetClient
	writer  domain.CatalogWriter
}

// NewCatalogBuilder returns a builder; writer may be nil when the output is a
// catalog file only.
func NewCatalogBuilder(d domain.DatasetClient, w domain.CatalogWriter) *CatalogBuilder {
	return &CatalogBuilder{dataset: d, writer: w}
}

func (b *CatalogBuilder) BuildCity(ctx context.Context, seed CitySeed) (BuiltCity, error) {
	// 1) City payload first. Known 404/401/403 are misses, anything else bubbles up.
	p, err := b.dataset.GetCity(ctx, seed.Slug)
	if err != nil {
		if status, reason, ok := missOf(err); ok {
			b.logMiss(ctx, seed.Slug, status, reason)
			return BuiltCity{}, fmt.Errorf("%s: %w", seed.Slug, ErrSkipped)
		}
		return BuiltCity{}, err
	}

	city := mapCity(seed.Slug, p)
	if seed.Name != "" {
		city.Name = seed.Name
	}
	if seed.Country != "" {
		city.Country = seed.Country
	}

	// 2) Places: best-effort per kind.
	var places []domain.Place
	for _, kind := range []domain.PlaceKind{domain.PlaceRestaurant, domain.PlaceMosque} {
		raw, perr := b.dataset.GetPlaces(ctx, seed.Slug, kind)
		if perr != nil {
			if status, _, ok := missOf(perr); ok {
				b.logMiss(ctx, seed.Slug, status, string(kind)+"s")
				continue
			}
			return BuiltCity{}, perr
		}
		mapped := mapPlaces(seed.Slug, kind, raw)
		places = append(places, mapped...)

		// counts from the payload win unless the place list proves them low
		switch kind {
		case domain.PlaceRestaurant:
			city.Stats.HalalRestaurants = max(city.Stats.HalalRestaurants, len(mapped))
		case domain.PlaceMosque:
			city.Stats.Mosques = max(city.Stats.Mosques, len(mapped))
		}
	}

	// 3) Persist when a writer is configured. City first to satisfy FK for places.
	if b.writer != nil {
		if err := b.writer.UpsertCity(ctx, city); err != nil {
			return BuiltCity{}, fmt.Errorf("upsert city %s: %w", seed.Slug, err)
		}
		if err := b.writer.UpsertPlaces(ctx, seed.Slug, places); err != nil {
			return BuiltCity{}, fmt.Errorf("upsert places %s: %w", seed.Slug, err)
		}
	}
	return BuiltCity{City: city, Places: places}, nil
}

// BuildAll builds every seed with at most workers concurrent fetches and
// returns the catalog in manifest order. Skipped cities are omitted; the
// first unexpected error is returned after all workers finish.
func (b *CatalogBuilder) BuildAll(ctx context.Context, seeds []CitySeed, workers int) (catalog.Data, error) {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	results := make([]BuiltCity, len(seeds))
	errs := make([]error, len(seeds))
	var wg sync.WaitGroup

	for i, seed := range seeds {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}

		wg.Add(1)
		go func(i int, seed CitySeed) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := b.BuildCity(ctx, seed)
			if err != nil {
				errs[i] = err
				if errors.Is(err, ErrSkipped) {
					log.Warn().Str("slug", seed.Slug).Msg("city skipped")
				} else {
					log.Error().Str("slug", seed.Slug).Err(err).Msg("city build failed")
				}
				return
			}
			results[i] = res
			log.Info().Str("slug", seed.Slug).Int("places", len(res.Places)).Msg("city built")
		}(i, seed)
	}
	wg.Wait()

	var out catalog.Data
	for i := range seeds {
		if err := errs[i]; err != nil {
			if errors.Is(err, ErrSkipped) {
				continue
			}
			return catalog.Data{}, err
		}
		if results[i].City.Slug == "" {
			continue
		}
		out.Cities = append(out.Cities, results[i].City)
		out.Places = append(out.Places, results[i].Places...)
	}
	return out, nil
}

// PublishListings validates sponsored listings and upserts them when a writer
// is configured. Listings are curated by hand, not downloaded.
func (b *CatalogBuilder) PublishListings(ctx context.Context, ls []domain.SponsoredListing) error {
	seen := make(map[string]struct{}, len(ls))
	for _, l := range ls {
		if l.ID == "" {
			return domain.Validationf("listing for %q has empty id", l.BusinessName)
		}
		if _, dup := seen[l.ID]; dup {
			return domain.Validationf("duplicate listing id %q", l.ID)
		}
		seen[l.ID] = struct{}{}
		if !l.Tier.Valid() || !l.Type.Valid() {
			return domain.Validationf("listing %q: unknown tier %q or type %q", l.ID, l.Tier, l.Type)
		}
		if l.EndDate.Before(l.StartDate.Time) {
			return domain.Validationf("listing %q ends before it starts", l.ID)
		}
	}
	if b.writer == nil || len(ls) == 0 {
		return nil
	}
	if err := b.writer.UpsertListings(ctx, ls); err != nil {
		return fmt.Errorf("upsert listings: %w", err)
	}
	return nil
}

func (b *CatalogBuilder) logMiss(ctx context.Context, slug string, status int, reason string) {
	if b.writer == nil {
		return
	}
	if err := b.writer.LogMiss(ctx, slug, status, reason); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("log miss failed")
	}
}

// missOf classifies dataset errors that mean "no data for this city".
func missOf(err error) (status int, reason string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return 404, "not found", true
	case errors.Is(err, domain.ErrForbidden):
		return 403, "forbidden", true
	case errors.Is(err, domain.ErrUnauthorized):
		return 401, "unauthorized", true
	}
	return 0, "", false
}
