package redisad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

const (
	affiliateKey    = "affiliate:clicks"
	affiliateMaxLen = 10_000
)

// TrackingStore keeps live sponsored-listing counters in one hash per listing
// and the most recent affiliate clicks in a capped list.
type TrackingStore struct{ c *redis.Client }

var _ domain.TrackingStore = (*TrackingStore)(nil)

func NewTrackingStore(c *redis.Client) *TrackingStore { return &TrackingStore{c: c} }

func listingKey(id string) string { return "sponsored:" + id }

func field(k domain.EventKind) (string, error) {
	switch k {
	case domain.EventImpression:
		return "impressions", nil
	case domain.EventClick:
		return "clicks", nil
	}
	return "", fmt.Errorf("unknown event kind %q", k)
}

func (s *TrackingStore) RecordListingEvent(ctx context.Context, ev domain.ListingEvent) error {
	f, err := field(ev.Kind)
	if err != nil {
		return err
	}
	pipe := s.c.TxPipeline()
	pipe.HIncrBy(ctx, listingKey(ev.ListingID), f, 1)
	pipe.HSet(ctx, listingKey(ev.ListingID), "last_"+string(ev.Kind)+"_at", ev.At.Format(time.RFC3339))
	_, err = pipe.Exec(ctx)
	return err
}

type affiliateRecord struct {
	ID       string    `json:"id"`
	Partner  string    `json:"partner"`
	Category string    `json:"category"`
	City     string    `json:"city"`
	Country  string    `json:"country"`
	URL      string    `json:"url,omitempty"`
	At       time.Time `json:"at"`
}

func (s *TrackingStore) RecordAffiliateClick(ctx context.Context, ev domain.AffiliateClick) error {
	b, err := json.Marshal(affiliateRecord(ev))
	if err != nil {
		return err
	}
	pipe := s.c.TxPipeline()
	pipe.LPush(ctx, affiliateKey, b)
	pipe.LTrim(ctx, affiliateKey, 0, affiliateMaxLen-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentAffiliateClicks returns up to n clicks, newest first.
func (s *TrackingStore) RecentAffiliateClicks(ctx context.Context, n int64) ([]domain.AffiliateClick, error) {
	raw, err := s.c.LRange(ctx, affiliateKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AffiliateClick, 0, len(raw))
	for _, r := range raw {
		var rec affiliateRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("decode affiliate click: %w", err)
		}
		out = append(out, domain.AffiliateClick(rec))
	}
	return out, nil
}

func (s *TrackingStore) ListingCounters(ctx context.Context, id string) (domain.Counters, error) {
	var out struct {
		Impressions int64 `redis:"impressions"`
		Clicks      int64 `redis:"clicks"`
	}
	if err := s.c.HMGet(ctx, listingKey(id), "impressions", "clicks").Scan(&out); err != nil {
		return domain.Counters{}, err
	}
	return domain.Counters{Impressions: out.Impressions, Clicks: out.Clicks}, nil
}
