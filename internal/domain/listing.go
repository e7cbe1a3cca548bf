package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tier is the commercial level of a sponsored listing.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierElite   Tier = "elite"
)

// Tiers lists every tier in ranking order.
var Tiers = []Tier{TierElite, TierPremium, TierBasic}

// Rank orders tiers for placement: lower ranks are shown first.
func (t Tier) Rank() int {
	switch t {
	case TierElite:
		return 0
	case TierPremium:
		return 1
	case TierBasic:
		return 2
	default:
		return len(Tiers)
	}
}

// MonthlyPrice is the list price in USD per 30-day month.
func (t Tier) MonthlyPrice() float64 {
	switch t {
	case TierElite:
		return 399
	case TierPremium:
		return 149
	case TierBasic:
		return 49
	default:
		return 0
	}
}

func (t Tier) Valid() bool { return t.Rank() < len(Tiers) }

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", Validationf("unknown tier %q", s)
	}
	return t, nil
}

type ListingType string

const (
	ListingRestaurant ListingType = "restaurant"
	ListingHotel      ListingType = "hotel"
	ListingMosque     ListingType = "mosque"
	ListingBusiness   ListingType = "business"
	ListingTour       ListingType = "tour"
)

func (t ListingType) Valid() bool {
	switch t {
	case ListingRestaurant, ListingHotel, ListingMosque, ListingBusiness, ListingTour:
		return true
	}
	return false
}

func ParseListingType(s string) (ListingType, error) {
	t := ListingType(s)
	if !t.Valid() {
		return "", Validationf("unknown listing type %q", s)
	}
	return t, nil
}

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC, encoded as YYYY-MM-DD.
type Date struct{ time.Time }

func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		// full timestamps are accepted and truncated to their UTC day
		ts, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return Date{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		ts = ts.UTC()
		return NewDate(ts.Year(), ts.Month(), ts.Day()), nil
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	p, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// SponsoredListing is a paid placement of a business within a city.
type SponsoredListing struct {
	ID           string      `json:"id"`
	BusinessID   string      `json:"businessId"`
	BusinessName string      `json:"businessName"`
	CitySlug     string      `json:"citySlug"`
	Type         ListingType `json:"type"`
	Tier         Tier        `json:"tier"`
	StartDate    Date        `json:"startDate"`
	EndDate      Date        `json:"endDate"`
	IsActive     bool        `json:"isActive"`
	Impressions  int64       `json:"impressions"`
	Clicks       int64       `json:"clicks"`
}

// ActiveAt reports whether now falls inside [StartDate, EndDate], with
// EndDate covering its whole calendar day.
func (l SponsoredListing) ActiveAt(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	end := l.EndDate.AddDate(0, 0, 1)
	return !now.Before(l.StartDate.Time) && now.Before(end)
}
