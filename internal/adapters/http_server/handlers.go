// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pms_sync/internal/app"
	"pms_sync/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type bookingsResponse struct {
	Items     []domain.BookingView `json:"items"`
	NextAfter *int64               `json:"next_after,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/bookings", h.listBookings)
	s.mux.Get("/v1/bookings/{id}", h.getBooking)
	s.mux.Get("/v1/guests/{id}", h.getGuest)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any, what string) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("handler", what).Msg("failed to write response body")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func lookupFailed(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Str("resource", what).Msg("lookup failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.Q.GetBooking(r.Context(), id)
	if err != nil {
		lookupFailed(w, err, "booking")
		return
	}
	writeJSON(w, r, b, "getBooking")
}

func (h *Handlers) getGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, err := h.Q.GetGuest(r.Context(), id)
	if err != nil {
		lookupFailed(w, err, "guest")
		return
	}
	writeJSON(w, r, g, "getGuest")
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	var q domain.BookingsQuery

	if s := strings.TrimSpace(qs.Get("status")); s != "" {
		st := domain.BookingStatus(strings.ToLower(s))
		if !st.Valid() {
			writeProblem(w, http.StatusBadRequest, "Invalid status", "status must be one of confirmed, pending, cancelled, completed")
			return
		}
		q.Status = &st
	}
	if ls := qs.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 100 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
			return
		}
		q.Limit = l
	}
	if as := qs.Get("after"); as != "" {
		a, err := strconv.ParseInt(as, 10, 64)
		if err != nil || a < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "after must be a non-negative booking id")
			return
		}
		q.After = a
	}

	page, err := h.Q.ListBookings(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list bookings failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, bookingsResponse{Items: page.Items, NextAfter: page.NextAfter}, "listBookings")
}
