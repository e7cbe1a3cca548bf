package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

const (
	DefaultLimit    = 200
	DefaultMaxLimit = 500
)

// QueryCities filters, sorts and paginates cities. It is a pure function of
// its inputs and never modifies the cities slice.
//
// Filters apply in order search, minHalal, maxBudget; the result is sorted by
// overall score descending with ties kept in store order. Total counts the
// filtered set before pagination.
func QueryCities(cities []domain.City, q domain.CityQuery) domain.CitiesPage {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	filtered := make([]domain.City, 0, len(cities))
	for _, c := range cities {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Country), search) {
			continue
		}
		if q.MinHalal != nil && c.Scores.Halal < *q.MinHalal {
			continue
		}
		if q.MaxBudget != nil && c.Stats.MonthlyBudget > *q.MaxBudget {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Scores.Overall > filtered[j].Scores.Overall
	})

	total := len(filtered)
	page := domain.CitiesPage{
		Cities: []domain.City{},
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Offset < total {
		end := total
		if q.Limit < total-q.Offset {
			end = q.Offset + q.Limit
		}
		page.Cities = filtered[q.Offset:end]
	}
	// offset+limit can overflow for huge offsets
	page.HasMore = q.Offset < total && q.Limit < total-q.Offset
	return page
}

type CityQueryService struct {
	catalog  domain.Catalog
	cache    domain.Cache
	cacheTTL time.Duration
	maxLimit int
}

// NewQueryService wires the query engine to a catalog snapshot. A nil cache or
// a zero ttl disables result caching.
func NewQueryService(cat domain.Catalog, c domain.Cache, ttl time.Duration, maxLimit int) *CityQueryService {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &CityQueryService{catalog: cat, cache: c, cacheTTL: ttl, maxLimit: maxLimit}
}

func (s *CityQueryService) MaxLimit() int { return s.maxLimit }

// Normalize applies defaults and rejects out-of-range parameters. A limit of
// zero means "use the default"; limits above the maximum are clamped.
func (s *CityQueryService) Normalize(q domain.CityQuery) (domain.CityQuery, error) {
	details := map[string]string{}
	if q.MinHalal != nil && (*q.MinHalal < 0 || *q.MinHalal > 100) {
		details["minHalal"] = "must be between 0 and 100"
	}
	if q.MaxBudget != nil && (*q.MaxBudget < 0 || math.IsNaN(*q.MaxBudget) || math.IsInf(*q.MaxBudget, 0)) {
		details["maxBudget"] = "must be a finite number greater than or equal to 0"
	}
	if q.Limit < 0 {
		details["limit"] = "must be greater than 0"
	}
	if q.Offset < 0 {
		details["offset"] = "must be greater than or equal to 0"
	}
	if len(details) > 0 {
		return q, domain.ValidationWithDetails("invalid query parameters", details)
	}

	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}
	return q, nil
}

func (s *CityQueryService) QueryCities(ctx context.Context, q domain.CityQuery) (domain.CitiesPage, error) {
	q, err := s.Normalize(q)
	if err != nil {
		return domain.CitiesPage{}, err
	}

	key := s.cacheKey(q)
	var out domain.CitiesPage
	if s.caching() {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	out = QueryCities(s.catalog.Cities(), q)

	if s.caching() {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

func (s *CityQueryService) GetCity(ctx context.Context, slug string) (domain.CityDetail, error) {
	c, ok := s.catalog.City(slug)
	if !ok {
		return domain.CityDetail{}, domain.NotFoundf("City not found")
	}
	return domain.CityDetail{
		City:        c,
		Restaurants: s.catalog.Places(slug, domain.PlaceRestaurant),
		Mosques:     s.catalog.Places(slug, domain.PlaceMosque),
		Community:   communityOf(c),
	}, nil
}

func communityOf(c domain.City) domain.Community {
	out := domain.Community{
		MuslimPopulation:        c.Stats.MuslimPopulation,
		MuslimPopulationPercent: c.Scores.MuslimPopulationPercent,
		CommunityScore:          c.Scores.Community,
		MosqueCount:             c.Stats.Mosques,
	}
	if c.Stats.MuslimPopulation > 0 {
		// per 100k Muslim residents, one decimal
		v := float64(c.Stats.Mosques) / float64(c.Stats.MuslimPopulation) * 100_000
		out.MosquesPer100k = math.Round(v*10) / 10
	}
	return out
}

func (s *CityQueryService) caching() bool {
	return s.cache != nil && s.cacheTTL > 0
}

// cacheKey includes the catalog version so a restart with new data never
// serves pages computed from the previous snapshot.
func (s *CityQueryService) cacheKey(q domain.CityQuery) string {
	minHalal, maxBudget := "-", "-"
	if q.MinHalal != nil {
		minHalal = fmt.Sprint(*q.MinHalal)
	}
	if q.MaxBudget != nil {
		maxBudget = fmt.Sprint(*q.MaxBudget)
	}
	sig := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Search)), minHalal, maxBudget,
		fmt.Sprint(q.Limit), fmt.Sprint(q.Offset),
	}, "|")
	sum := sha1.Sum([]byte(sig))
	return fmt.Sprintf("cities:%s:%s", s.catalog.Version(), hex.EncodeToString(sum[:8]))
}
