package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/armieahmed7/halalcities-sub003/internal/adapters/observability"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

// Tracker records impressions and clicks in the background. Callers never
// wait for the store and never see its errors: an event is either handed to
// a worker or dropped when all workers are busy.
type Tracker struct {
	store   domain.TrackingStore
	sem     *semaphore.Weighted
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex // guards closed against wg.Add racing Close
	wg     sync.WaitGroup
	closed bool
}

func NewTracker(store domain.TrackingStore, workers int, timeout time.Duration) *Tracker {
	if workers <= 0 {
		workers = 16
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Tracker{
		store:   store,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
		now:     time.Now,
	}
}

func (t *Tracker) TrackImpression(listingID string, at time.Time) {
	t.trackListing(domain.EventImpression, listingID, at)
}

func (t *Tracker) TrackClick(listingID string, at time.Time) {
	t.trackListing(domain.EventClick, listingID, at)
}

func (t *Tracker) trackListing(kind domain.EventKind, listingID string, at time.Time) {
	ev := domain.ListingEvent{ID: uuid.NewString(), ListingID: listingID, Kind: kind, At: t.stamp(at)}
	t.dispatch(string(kind), func(ctx context.Context) error {
		return t.store.RecordListingEvent(ctx, ev)
	})
}

func (t *Tracker) TrackAffiliateClick(ev domain.AffiliateClick) {
	ev.ID = uuid.NewString()
	ev.At = t.stamp(ev.At)
	t.dispatch("affiliate_click", func(ctx context.Context) error {
		return t.store.RecordAffiliateClick(ctx, ev)
	})
}

func (t *Tracker) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return t.now().UTC()
	}
	return at.UTC()
}

func (t *Tracker) dispatch(kind string, record func(ctx context.Context) error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.store == nil || t.closed {
		observability.ObserveTracking(kind, "dropped")
		return
	}
	if !t.sem.TryAcquire(1) {
		observability.ObserveTracking(kind, "dropped")
		log.Warn().Str("kind", kind).Msg("tracking pool saturated, event dropped")
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := safeRecord(ctx, record); err != nil {
			observability.ObserveTracking(kind, "error")
			log.Warn().Err(err).Str("kind", kind).Msg("tracking failed")
			return
		}
		observability.ObserveTracking(kind, "ok")
	}()
}

func safeRecord(ctx context.Context, record func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tracking panic: %v", r)
		}
	}()
	return record(ctx)
}

// Close stops accepting events and waits for in-flight ones.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}
