package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/armieahmed7/halalcities-sub003/internal/app"
	"github.com/armieahmed7/halalcities-sub003/internal/catalog"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

// ---- fakes ----

// fakeCache stores JSON like the redis adapter so round-trips are realistic.
type fakeCache struct {
	store map[string][]byte
	gets  int
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sets++
	c.store[key] = b
	return nil
}

func ptr[T any](v T) *T { return &v }

func city(slug, name, country string, halal, overall int, budget float64) domain.City {
	return domain.City{
		Slug: slug, Name: name, Country: country,
		Scores: domain.Scores{Halal: halal, Overall: overall},
		Stats:  domain.Stats{MonthlyBudget: budget},
	}
}

func sampleCities() []domain.City {
	return []domain.City{
		city("london", "London", "United Kingdom", 85, 79, 3000),
		city("istanbul", "Istanbul", "Turkey", 98, 91, 1200),
		city("paris", "Paris", "France", 70, 68, 2800),
		city("dubai", "Dubai", "United Arab Emirates", 99, 90, 2500),
		city("sarajevo", "Sarajevo", "Bosnia and Herzegovina", 92, 79, 900),
	}
}

// ---- pure engine ----

func TestQueryCities_SearchMatchesNameOrCountry(t *testing.T) {
	for _, s := range []string{"istan", "turk", "ISTANBUL", "  Turkey "} {
		page := app.QueryCities(sampleCities(), domain.CityQuery{Search: s, Limit: 200})
		if page.Total != 1 || page.Cities[0].Slug != "istanbul" {
			t.Fatalf("search %q: unexpected page %+v", s, page)
		}
	}
}

func TestQueryCities_FiltersAndSort(t *testing.T) {
	cities := []domain.City{
		city("a", "A", "X", 70, 95, 1000),
		city("b", "B", "X", 85, 88, 1000),
		city("c", "C", "X", 90, 92, 1000),
	}
	page := app.QueryCities(cities, domain.CityQuery{MinHalal: ptr(80), Limit: 1})
	if page.Total != 2 || len(page.Cities) != 1 || page.Cities[0].Slug != "c" || !page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestQueryCities_Properties(t *testing.T) {
	all := sampleCities()
	queries := []domain.CityQuery{
		{Limit: 200},
		{Limit: 2, Offset: 1},
		{Limit: 3, Offset: 4},
		{Limit: 1, Offset: 10},
		{MaxBudget: ptr(2500.0), Limit: 2},
		{Search: "united", MinHalal: ptr(90), Limit: 5},
		{Limit: 200, Offset: math.MaxInt},
		{Limit: 500, Offset: math.MaxInt - 100},
	}
	for _, q := range queries {
		page := app.QueryCities(all, q)
		full := app.QueryCities(all, domain.CityQuery{Search: q.Search, MinHalal: q.MinHalal, MaxBudget: q.MaxBudget, Limit: 1000})

		if page.Total != len(full.Cities) {
			t.Fatalf("%+v: total %d, want %d", q, page.Total, len(full.Cities))
		}
		var want []domain.City
		if q.Offset < len(full.Cities) {
			end := min(q.Offset+q.Limit, len(full.Cities))
			want = full.Cities[q.Offset:end]
		}
		if len(want) == 0 {
			want = []domain.City{}
		}
		if q.Offset >= page.Total && (len(page.Cities) != 0 || page.HasMore) {
			t.Fatalf("%+v: offset past total must give an empty last page", q)
		}
		if !reflect.DeepEqual(page.Cities, want) {
			t.Fatalf("%+v: page is not a window of the sorted set", q)
		}
		if page.HasMore != (q.Offset < page.Total && q.Limit < page.Total-q.Offset) {
			t.Fatalf("%+v: hasMore %v", q, page.HasMore)
		}
		for i := 1; i < len(page.Cities); i++ {
			if page.Cities[i-1].Scores.Overall < page.Cities[i].Scores.Overall {
				t.Fatalf("%+v: not sorted by overall desc", q)
			}
		}
	}
}

func TestQueryCities_TiesKeepStoreOrder(t *testing.T) {
	page := app.QueryCities(sampleCities(), domain.CityQuery{Limit: 200})
	// london and sarajevo both score 79; london comes first in the store
	var order []string
	for _, c := range page.Cities {
		if c.Scores.Overall == 79 {
			order = append(order, c.Slug)
		}
	}
	if !reflect.DeepEqual(order, []string{"london", "sarajevo"}) {
		t.Fatalf("tie order = %v", order)
	}
}

func TestQueryCities_IdempotentAndNonMutating(t *testing.T) {
	all := sampleCities()
	before := sampleCities()
	q := domain.CityQuery{MaxBudget: ptr(3000.0), Limit: 3}
	a := app.QueryCities(all, q)
	b := app.QueryCities(all, q)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("query is not idempotent")
	}
	if !reflect.DeepEqual(all, before) {
		t.Fatal("input slice was modified")
	}
}

func TestQueryCities_EmptyStore(t *testing.T) {
	page := app.QueryCities(nil, domain.CityQuery{Limit: 10})
	if page.Cities == nil || len(page.Cities) != 0 || page.Total != 0 || page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
}

// ---- service ----

func newSnapshot(t *testing.T, d catalog.Data) *catalog.Snapshot {
	t.Helper()
	s, err := catalog.New(d)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return s
}

func TestQueryService_DefaultsAndClamp(t *testing.T) {
	svc := app.NewQueryService(newSnapshot(t, catalog.Data{Cities: sampleCities()}), nil, 0, 3)

	page, err := svc.QueryCities(context.Background(), domain.CityQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if page.Limit != 3 {
		t.Fatalf("default limit should clamp to max 3, got %d", page.Limit)
	}

	svc = app.NewQueryService(newSnapshot(t, catalog.Data{Cities: sampleCities()}), nil, 0, 0)
	page, _ = svc.QueryCities(context.Background(), domain.CityQuery{})
	if page.Limit != app.DefaultLimit {
		t.Fatalf("limit = %d, want %d", page.Limit, app.DefaultLimit)
	}
}

func TestQueryService_RejectsInvalid(t *testing.T) {
	svc := app.NewQueryService(newSnapshot(t, catalog.Data{Cities: sampleCities()}), nil, 0, 0)
	for _, q := range []domain.CityQuery{
		{Offset: -1},
		{Limit: -1},
		{MinHalal: ptr(-3)},
		{MaxBudget: ptr(-1.0)},
	} {
		_, err := svc.QueryCities(context.Background(), q)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", q, err)
		}
	}
}

func TestQueryService_CacheMissThenHit(t *testing.T) {
	cache := &fakeCache{}
	snap := newSnapshot(t, catalog.Data{Cities: sampleCities()})
	svc := app.NewQueryService(snap, cache, 10*time.Minute, 0)

	q := domain.CityQuery{Search: "u", Limit: 2}
	first, err := svc.QueryCities(context.Background(), q)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
	second, err := svc.QueryCities(context.Background(), q)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("hit must not write again, sets=%d", cache.sets)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached page differs:\n%+v\n%+v", first, second)
	}
}

func TestQueryService_NoCacheWhenTTLZero(t *testing.T) {
	cache := &fakeCache{}
	svc := app.NewQueryService(newSnapshot(t, catalog.Data{Cities: sampleCities()}), cache, 0, 0)
	_, _ = svc.QueryCities(context.Background(), domain.CityQuery{})
	if cache.gets != 0 || cache.sets != 0 {
		t.Fatalf("cache used with ttl 0: gets=%d sets=%d", cache.gets, cache.sets)
	}
}

func TestGetCity_DetailAndNotFound(t *testing.T) {
	ist := city("istanbul", "Istanbul", "Turkey", 98, 91, 1200)
	ist.Stats.MuslimPopulation = 15_400_000
	ist.Stats.Mosques = 3269
	ist.Scores.Community = 96
	ist.Scores.MuslimPopulationPercent = 99

	low, high := 4.1, 4.8
	snap := newSnapshot(t, catalog.Data{
		Cities: []domain.City{ist},
		Places: []domain.Place{
			{ID: "r1", CitySlug: "istanbul", Kind: domain.PlaceRestaurant, Name: "B", Rating: &low},
			{ID: "r2", CitySlug: "istanbul", Kind: domain.PlaceRestaurant, Name: "A"},
			{ID: "r3", CitySlug: "istanbul", Kind: domain.PlaceRestaurant, Name: "C", Rating: &high},
			{ID: "m1", CitySlug: "istanbul", Kind: domain.PlaceMosque, Name: "Suleymaniye"},
		},
	})
	svc := app.NewQueryService(snap, nil, 0, 0)

	d, err := svc.GetCity(context.Background(), "istanbul")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	var names []string
	for _, r := range d.Restaurants {
		names = append(names, r.Name)
	}
	if !reflect.DeepEqual(names, []string{"C", "B", "A"}) {
		t.Fatalf("restaurant order = %v", names)
	}
	if len(d.Mosques) != 1 {
		t.Fatalf("mosques = %+v", d.Mosques)
	}
	want := domain.Community{
		MuslimPopulation: 15_400_000, MuslimPopulationPercent: 99, CommunityScore: 96,
		MosqueCount: 3269, MosquesPer100k: 21.2,
	}
	if d.Community != want {
		t.Fatalf("community = %+v, want %+v", d.Community, want)
	}

	_, err = svc.GetCity(context.Background(), "atlantis")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Message != "City not found" {
		t.Fatalf("unexpected error %v", err)
	}
}
