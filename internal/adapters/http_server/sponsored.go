package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/armieahmed7/halalcities-sub003/internal/domain"
)

const maxBodyBytes = 16 << 10

type success struct {
	Success bool `json:"success"`
}

type listingEventRequest struct {
	ListingID string     `json:"listingId" validate:"notblank,max=128"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type affiliateClickRequest struct {
	Partner   string     `json:"partner" validate:"notblank,max=64"`
	Category  string     `json:"category" validate:"notblank,max=64"`
	City      string     `json:"city" validate:"notblank,max=128"`
	Country   string     `json:"country" validate:"notblank,max=128"`
	URL       string     `json:"url,omitempty" validate:"max=2048"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// decodeBody reads a bounded JSON body into dst and validates it.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validationf("Request body is required")
		}
		return domain.ValidationWithDetails("Malformed JSON body", err.Error())
	}
	return h.V.Validate(dst)
}

func (h *Handlers) listSponsored(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	city := strings.ToLower(strings.TrimSpace(qs.Get("city")))
	if city == "" {
		writeError(w, r, domain.ValidationWithDetails("Invalid query parameters", map[string]string{"city": "is required"}))
		return
	}
	var typ domain.ListingType
	if s := strings.TrimSpace(qs.Get("type")); s != "" {
		t, err := domain.ParseListingType(strings.ToLower(s))
		if err != nil {
			writeError(w, r, domain.ValidationWithDetails("Invalid query parameters",
				map[string]string{"type": "must be one of: restaurant hotel mosque business tour"}))
			return
		}
		typ = t
	}
	writeCacheable(w, r, h.L.Select(city, typ))
}

func (h *Handlers) sponsoredStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.L.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) trackImpression(w http.ResponseWriter, r *http.Request) {
	h.trackListing(w, r, domain.EventImpression)
}

func (h *Handlers) trackClick(w http.ResponseWriter, r *http.Request) {
	h.trackListing(w, r, domain.EventClick)
}

// trackListing answers as soon as the event is handed to the tracker; the
// outcome of recording is never reported to the client.
func (h *Handlers) trackListing(w http.ResponseWriter, r *http.Request, kind domain.EventKind) {
	var req listingEventRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var at time.Time
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	id := strings.TrimSpace(req.ListingID)
	switch kind {
	case domain.EventClick:
		h.T.TrackClick(id, at)
	default:
		h.T.TrackImpression(id, at)
	}
	writeJSON(w, http.StatusOK, success{Success: true})
}

func (h *Handlers) trackAffiliateClick(w http.ResponseWriter, r *http.Request) {
	var req affiliateClickRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev := domain.AffiliateClick{
		Partner:  strings.TrimSpace(req.Partner),
		Category: strings.TrimSpace(req.Category),
		City:     strings.TrimSpace(req.City),
		Country:  strings.TrimSpace(req.Country),
		URL:      strings.TrimSpace(req.URL),
	}
	if req.Timestamp != nil {
		ev.At = *req.Timestamp
	}
	h.T.TrackAffiliateClick(ev)
	writeJSON(w, http.StatusOK, success{Success: true})
}
