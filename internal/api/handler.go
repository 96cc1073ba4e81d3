package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blueprintdash/blueprintdash/internal/alerts"
	"github.com/blueprintdash/blueprintdash/internal/certs"
	"github.com/blueprintdash/blueprintdash/internal/display"
	"github.com/blueprintdash/blueprintdash/internal/jsonapi"
	"github.com/blueprintdash/blueprintdash/internal/metrics"
	"github.com/blueprintdash/blueprintdash/internal/poller"
	"github.com/blueprintdash/blueprintdash/internal/store"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// StatusSource reports the poller's loop state.
type StatusSource interface {
	Status() poller.Status
}

// CertChecker inspects the upstream's TLS certificate.
type CertChecker interface {
	Check(ctx context.Context) *certs.Status
}

// Handler serves every /api/v1/* endpoint from the store, the alert center
// and the poller status.
type Handler struct {
	store  *store.Store
	alerts *alerts.Center
	status StatusSource
	certs  CertChecker
	router chi.Router
}

// New creates a Handler and registers all routes. cc may be nil, in which
// case GET /api/v1/certs always returns an empty list.
func New(st *store.Store, al *alerts.Center, status StatusSource, cc CertChecker) http.Handler {
	h := &Handler{store: st, alerts: al, status: status, certs: cc}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/blueprints", h.listBlueprints)
		r.Get("/blueprints/{id}", h.getBlueprint)
		r.Get("/blueprints/{id}/details", h.blueprintDetails)
		r.Get("/alerts", h.listAlerts)
		r.Get("/certs", h.listCerts)
		r.Get("/snapshot", h.snapshot)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	bps, updatedAt := h.store.Snapshot()
	st := h.status.Status()

	resp := HealthResponse{
		BlueprintCount: len(bps),
		Polling:        st.Running,
		Subscribers:    st.Subscribers,
		LastError:      st.LastError,
		AlertCount:     h.alerts.Len(),
	}
	for _, bp := range bps {
		b := bp.UI.StagesStatesBadges
		resp.Badges.Green += b.Green
		resp.Badges.Orange += b.Orange
		resp.Badges.Grey += b.Grey
	}
	if !updatedAt.IsZero() {
		t := updatedAt.UTC()
		resp.UpdatedAt = &t
	}
	if !st.LastErrorAt.IsZero() {
		t := st.LastErrorAt.UTC()
		resp.LastErrorAt = &t
	}
	resp.State = healthState(bps != nil, st)

	jsonResp(w, http.StatusOK, resp)
}

// healthState derives the overall state from data presence and the last
// fetch outcome.
func healthState(hasData bool, st poller.Status) string {
	failedLast := !st.LastErrorAt.IsZero() && st.LastErrorAt.After(st.LastSuccess)
	switch {
	case hasData && failedLast:
		return StateDegraded
	case hasData:
		return StateOK
	case failedLast:
		return StateDown
	default:
		return StateUnknown
	}
}

// listBlueprints returns GET /api/v1/blueprints.
func (h *Handler) listBlueprints(w http.ResponseWriter, _ *http.Request) {
	bps := h.store.List()
	if bps == nil {
		bps = []types.Blueprint{}
	}
	jsonResp(w, http.StatusOK, bps)
}

// getBlueprint returns GET /api/v1/blueprints/{id}.
func (h *Handler) getBlueprint(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "blueprint not found")
		return
	}
	jsonResp(w, http.StatusOK, bp)
}

// blueprintDetails returns GET /api/v1/blueprints/{id}/details as text.
func (h *Handler) blueprintDetails(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		jsonErr(w, http.StatusNotFound, "blueprint not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := display.Render(w, bp); err != nil {
		slog.Error("api: render details", "id", bp.ID, "err", err)
	}
}

// listAlerts returns GET /api/v1/alerts, newest first.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	jsonResp(w, http.StatusOK, h.alerts.Recent(limit))
}

// listCerts returns GET /api/v1/certs: the upstream's certificate status, or
// an empty list for plain-HTTP endpoints.
func (h *Handler) listCerts(w http.ResponseWriter, r *http.Request) {
	out := make([]*certs.Status, 0, 1)
	if h.certs != nil {
		if cs := h.certs.Check(r.Context()); cs != nil {
			out = append(out, cs)
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	bps, updatedAt := h.store.Snapshot()
	if bps == nil {
		bps = []types.Blueprint{}
	}
	resp := SnapshotResponse{
		Blueprints:  bps,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if !updatedAt.IsZero() {
		t := updatedAt.UTC()
		resp.UpdatedAt = &t
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, jsonapi.NewErrorDocument(msg))
}
