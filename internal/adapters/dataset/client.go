package dataset

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/armieahmed7/halalcities-sub003/internal/adapters/observability"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

const maxAttempts = 4

// Client reads pre-scraped city payloads from a static dataset host.
type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

var _ domain.DatasetClient = (*Client)(nil)

func New(base, token string, rps int) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("dataset base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  base,
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// GetCity returns the raw city document. Static hosts usually serve the
// .json file; API-style hosts serve the bare path.
func (c *Client) GetCity(ctx context.Context, slug string) (map[string]any, error) {
	s := url.PathEscape(slug)
	candidates := []string{
		fmt.Sprintf("%s/cities/%s.json", c.base, s),
		fmt.Sprintf("%s/cities/%s", c.base, s),
	}
	var out map[string]any
	return out, c.getFirst(ctx, "city", candidates, &out)
}

// GetPlaces returns the raw place list of one kind for a city.
func (c *Client) GetPlaces(ctx context.Context, slug string, kind domain.PlaceKind) ([]map[string]any, error) {
	s := url.PathEscape(slug)
	candidates := []string{
		fmt.Sprintf("%s/cities/%s/%ss.json", c.base, s, kind),
		fmt.Sprintf("%s/cities/%s/%ss", c.base, s, kind),
	}
	var raw json.RawMessage
	if err := c.getFirst(ctx, string(kind)+"s", candidates, &raw); err != nil {
		return nil, err
	}
	return decodePlaceList(raw)
}

// decodePlaceList accepts a bare array or an object wrapping it.
func decodePlaceList(raw json.RawMessage) ([]map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode places: %w", err)
	}
	for _, k := range []string{"results", "items", "data"} {
		if v, ok := wrapped[k]; ok {
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, fmt.Errorf("decode places.%s: %w", k, err)
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("decode places: no list in payload")
}

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.get(ctx, endpoint, u, out); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				last = err
				continue
			}
			return err
		}
		return nil
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get is a rate-limited GET with retries on 429 and transient 5xx.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "halalcities-builder/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("dataset", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("dataset", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", u, err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.NotFoundf("dataset: %s not found", u)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.Wrap(domain.ErrUnauthorized, domain.CodeUnauthorized, "dataset: unauthorized")

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.Wrap(domain.ErrForbidden, domain.CodeForbidden, "dataset: forbidden")

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("dataset: remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("dataset: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After in seconds or HTTP-date form; 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(0.5*float64(b[0])/255.0*float64(base))
}
