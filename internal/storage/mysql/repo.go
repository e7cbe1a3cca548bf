package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/armieahmed7/halalcities-sub003/internal/catalog"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

var (
	_ domain.CatalogWriter = (*Repo)(nil)
	_ domain.TrackingStore = (*Repo)(nil)
	_ catalog.Source       = (*Repo)(nil)
)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- catalog write side ----

func (r *Repo) UpsertCity(ctx context.Context, c domain.City) error {
	s, st, f := c.Scores, c.Stats, c.Features
	_, err := r.db.ExecContext(ctx, upsertCitySQL,
		c.Slug, c.Name, c.Country, c.Coordinates.Lat, c.Coordinates.Lng,
		s.Halal, s.Food, s.Community, s.Cost, s.Internet, s.Safety, s.Overall,
		s.MuslimPopulationPercent, st.MuslimPopulation, st.Mosques, st.HalalRestaurants, st.MonthlyBudget, st.InternetSpeed,
		f.AirportPrayerRoom, f.HalalHotels, f.IslamicBanks, f.IslamicSchools,
	)
	return err
}

// UpsertPlaces replaces every place of a city in one transaction.
func (r *Repo) UpsertPlaces(ctx context.Context, slug string, ps []domain.Place) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deletePlacesSQL, slug); err != nil {
		return err
	}
	if len(ps) > 0 {
		values := make([]string, 0, len(ps))
		args := make([]any, 0, len(ps)*9) // 9 params per row
		for _, p := range ps {
			var lat, lng *float64
			if p.Coordinates != nil {
				lat, lng = &p.Coordinates.Lat, &p.Coordinates.Lng
			}
			values = append(values, "(?,?,?,?,?,?,?,?,?)")
			args = append(args,
				p.ID,
				slug,
				string(p.Kind),
				p.Name,
				valStr(p.Address),
				valF64(lat),
				valF64(lng),
				valStr(p.Cuisine),
				valF64(p.Rating),
			)
		}
		sqlStr := insertPlacesPrefix + strings.Join(values, ",") + insertPlacesOnDup
		if _, err = tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertListings writes sponsored listings; existing counters are kept.
func (r *Repo) UpsertListings(ctx context.Context, ls []domain.SponsoredListing) error {
	for _, l := range ls {
		if _, err := r.db.ExecContext(ctx, upsertListingSQL,
			l.ID, l.BusinessID, l.BusinessName, l.CitySlug, string(l.Type), string(l.Tier),
			l.StartDate.Time, l.EndDate.Time, l.IsActive, l.Impressions, l.Clicks,
		); err != nil {
			return fmt.Errorf("upsert listing %s: %w", l.ID, err)
		}
	}
	return nil
}

func (r *Repo) LogMiss(ctx context.Context, slug string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, slug, status, reason)
	return err
}

// ---- catalog read side ----

// LoadCatalog reads the whole catalog; it runs once at API startup.
func (r *Repo) LoadCatalog(ctx context.Context) (catalog.Data, error) {
	var d catalog.Data
	var err error
	if d.Cities, err = r.listCities(ctx); err != nil {
		return catalog.Data{}, fmt.Errorf("list cities: %w", err)
	}
	if d.Places, err = r.listPlaces(ctx); err != nil {
		return catalog.Data{}, fmt.Errorf("list places: %w", err)
	}
	if d.Listings, err = r.listListings(ctx); err != nil {
		return catalog.Data{}, fmt.Errorf("list listings: %w", err)
	}
	return d, nil
}

func (r *Repo) listCities(ctx context.Context) ([]domain.City, error) {
	rows, err := r.db.QueryContext(ctx, listCitiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.City
	for rows.Next() {
		var c domain.City
		s, st, f := &c.Scores, &c.Stats, &c.Features
		if err := rows.Scan(
			&c.Slug, &c.Name, &c.Country, &c.Coordinates.Lat, &c.Coordinates.Lng,
			&s.Halal, &s.Food, &s.Community, &s.Cost, &s.Internet, &s.Safety, &s.Overall,
			&s.MuslimPopulationPercent, &st.MuslimPopulation, &st.Mosques, &st.HalalRestaurants, &st.MonthlyBudget, &st.InternetSpeed,
			&f.AirportPrayerRoom, &f.HalalHotels, &f.IslamicBanks, &f.IslamicSchools,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) listPlaces(ctx context.Context) ([]domain.Place, error) {
	rows, err := r.db.QueryContext(ctx, listPlacesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Place
	for rows.Next() {
		var p domain.Place
		var kind string
		var address, cuisine sql.NullString
		var lat, lng, rating sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.CitySlug, &kind, &p.Name, &address, &lat, &lng, &cuisine, &rating); err != nil {
			return nil, err
		}
		p.Kind = domain.PlaceKind(kind)
		p.Address = address.String
		p.Cuisine = cuisine.String
		if lat.Valid && lng.Valid {
			p.Coordinates = &domain.Coords{Lat: lat.Float64, Lng: lng.Float64}
		}
		if rating.Valid {
			v := rating.Float64
			p.Rating = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) listListings(ctx context.Context) ([]domain.SponsoredListing, error) {
	rows, err := r.db.QueryContext(ctx, listListingsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SponsoredListing
	for rows.Next() {
		var l domain.SponsoredListing
		var typ, tier string
		var start, end time.Time
		if err := rows.Scan(&l.ID, &l.BusinessID, &l.BusinessName, &l.CitySlug, &typ, &tier,
			&start, &end, &l.IsActive, &l.Impressions, &l.Clicks); err != nil {
			return nil, err
		}
		l.Type = domain.ListingType(typ)
		l.Tier = domain.Tier(tier)
		l.StartDate = domain.NewDate(start.Year(), start.Month(), start.Day())
		l.EndDate = domain.NewDate(end.Year(), end.Month(), end.Day())
		out = append(out, l)
	}
	return out, rows.Err()
}

// ---- tracking ----

// RecordListingEvent appends the raw event and bumps the counter row in one
// transaction.
func (r *Repo) RecordListingEvent(ctx context.Context, ev domain.ListingEvent) (err error) {
	var imp, clk int
	switch ev.Kind {
	case domain.EventImpression:
		imp = 1
	case domain.EventClick:
		clk = 1
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, insertEventSQL, ev.ID, ev.ListingID, string(ev.Kind), ev.At.UTC()); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, upsertCounterSQL, ev.ListingID, imp, clk); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) RecordAffiliateClick(ctx context.Context, ev domain.AffiliateClick) error {
	_, err := r.db.ExecContext(ctx, insertAffiliateSQL,
		ev.ID, ev.Partner, ev.Category, ev.City, ev.Country, valStr(ev.URL), ev.At.UTC())
	return err
}

func (r *Repo) ListingCounters(ctx context.Context, id string) (domain.Counters, error) {
	var c domain.Counters
	err := r.db.QueryRowContext(ctx, getCounterSQL, id).Scan(&c.Impressions, &c.Clicks)
	if err == sql.ErrNoRows {
		return domain.Counters{}, nil
	}
	return c, err
}
