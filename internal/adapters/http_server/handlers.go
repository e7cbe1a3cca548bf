package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/armieahmed7/halalcities-sub003/internal/app"
	"github.com/armieahmed7/halalcities-sub003/internal/domain"
	"github.com/armieahmed7/halalcities-sub003/internal/validation"
)

type Handlers struct {
	Q *app.CityQueryService
	L *app.ListingService
	T *app.Tracker
	V *validation.Validator
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.V == nil {
		h.V = validation.New()
	}
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/cities", h.listCities)
		r.Get("/cities/{slug}", h.getCity)

		r.Get("/sponsored", h.listSponsored)
		r.Get("/sponsored/{id}/stats", h.sponsoredStats)
		r.Post("/sponsored/impression", h.trackImpression)
		r.Post("/sponsored/click", h.trackClick)

		r.Post("/analytics/affiliate-click", h.trackAffiliateClick)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps domain error codes to HTTP statuses. Anything that is not a
// *domain.Error becomes a 500 with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Details: "unexpected failure"})
		return
	}
	status := de.HTTPStatus()
	if status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, errorBody{Error: "Internal server error", Details: de.Message})
		return
	}
	writeJSON(w, status, errorBody{Error: de.Message, Details: de.Details})
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable writes v with an ETag and answers 304 when the client
// already holds the same representation.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeError(w, r, domain.ErrInternal)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// ---- cities ----

type citiesParams struct {
	Search    string   `query:"search" validate:"max=200"`
	MinHalal  *int     `query:"minHalal" validate:"omitempty,gte=0,lte=100"`
	MaxBudget *float64 `query:"maxBudget" validate:"omitempty,gte=0"`
	Limit     *int     `query:"limit" validate:"omitempty,gt=0"`
	Offset    *int     `query:"offset" validate:"omitempty,gte=0"`
}

// parseCitiesParams rejects values that are not numbers at all; range checks
// are left to the validator.
func parseCitiesParams(r *http.Request) (citiesParams, map[string]string) {
	qs := r.URL.Query()
	p := citiesParams{Search: strings.TrimSpace(qs.Get("search"))}
	details := map[string]string{}

	parseInt := func(name string) *int {
		s := strings.TrimSpace(qs.Get(name))
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			details[name] = "must be an integer"
			return nil
		}
		return &n
	}

	p.MinHalal = parseInt("minHalal")
	p.Limit = parseInt("limit")
	p.Offset = parseInt("offset")

	if s := strings.TrimSpace(qs.Get("maxBudget")); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			details["maxBudget"] = "must be a finite number"
		} else {
			p.MaxBudget = &f
		}
	}
	return p, details
}

func (h *Handlers) listCities(w http.ResponseWriter, r *http.Request) {
	p, details := parseCitiesParams(r)
	if len(details) > 0 {
		writeError(w, r, domain.ValidationWithDetails("Invalid query parameters", details))
		return
	}
	if err := h.V.Validate(p); err != nil {
		var de *domain.Error
		if errors.As(err, &de) && de.Code == domain.CodeValidation {
			de.Message = "Invalid query parameters"
		}
		writeError(w, r, err)
		return
	}

	q := domain.CityQuery{Search: p.Search, MinHalal: p.MinHalal, MaxBudget: p.MaxBudget}
	if p.Limit != nil {
		q.Limit = *p.Limit
	}
	if p.Offset != nil {
		q.Offset = *p.Offset
	}

	page, err := h.Q.QueryCities(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, page)
}

func (h *Handlers) getCity(w http.ResponseWriter, r *http.Request) {
	slug := strings.ToLower(chi.URLParam(r, "slug"))
	detail, err := h.Q.GetCity(r.Context(), slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, detail)
}
