package dataset_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/armieahmed7/halalcities-sub003/internal/adapters/dataset"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

func TestClient_GetCity_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			if r.URL.Path != "/cities/istanbul.json" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("unexpected auth header %q", got)
			}
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "Istanbul"})
		}
	}))
	defer ts.Close()

	cl, err := dataset.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.GetCity(ctx, "istanbul")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["name"] != "Istanbul" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetCity_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := dataset.New(ts.URL, "", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.GetCity(ctx, "atlantis")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_GetCity_Forbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL, "bad", 100)
	_, err := cl.GetCity(context.Background(), "istanbul")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestClient_GetPlaces_FallbackAndWrapped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cities/london/mosques":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"name": "East London Mosque"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL, "", 100)
	got, err := cl.GetPlaces(context.Background(), "london", domain.PlaceMosque)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["name"] != "East London Mosque" {
		t.Fatalf("unexpected places: %+v", got)
	}
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := dataset.New("", "", 1); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestClient_GetCity_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL, "", 100)
	_, err := cl.GetCity(context.Background(), "istanbul")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestClient_GetCity_HonorsRetryAfter(t *testing.T) {
	var hits int32
	var first atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			first.Store(time.Now().UnixNano())
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if d := time.Since(time.Unix(0, first.Load())); d < 900*time.Millisecond {
			t.Errorf("retried after %v, before Retry-After elapsed", d)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "Doha"})
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL, "", 100)
	got, err := cl.GetCity(context.Background(), "doha")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["name"] != "Doha" || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("got %+v after %d calls", got, hits)
	}
}

func TestClient_GetCity_GivesUpAfterRetries(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL, "", 100)
	_, err := cl.GetCity(context.Background(), "cairo")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("5xx must not look like a miss: %v", err)
	}
	// a non-404 error stops the candidate walk at the first URL
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Fatalf("expected 4 attempts, got %d", n)
	}
}

func TestClient_GetPlaces_BareArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cities/istanbul/restaurants.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"Ciya Sofrasi"},{"name":"Hamdi"}]`))
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL+"/", "", 100)
	got, err := cl.GetPlaces(context.Background(), "istanbul", domain.PlaceRestaurant)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[1]["name"] != "Hamdi" {
		t.Fatalf("unexpected places: %+v", got)
	}
}

func TestClient_GetPlaces_NotFoundEverywhere(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer ts.Close()

	cl, _ := dataset.New(ts.URL, "", 100)
	_, err := cl.GetPlaces(context.Background(), "atlantis", domain.PlaceMosque)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected both candidates tried, got %d", n)
	}
}
