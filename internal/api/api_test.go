package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blueprintdash/blueprintdash/internal/alerts"
	"github.com/blueprintdash/blueprintdash/internal/api"
	"github.com/blueprintdash/blueprintdash/internal/certs"
	"github.com/blueprintdash/blueprintdash/internal/config"
	"github.com/blueprintdash/blueprintdash/internal/poller"
	"github.com/blueprintdash/blueprintdash/internal/store"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// --- test helpers -----------------------------------------------------------

type fixedStatus poller.Status

func (s fixedStatus) Status() poller.Status { return poller.Status(s) }

func newStore(bps ...types.Blueprint) *store.Store {
	st := store.New(5 * time.Minute)
	if len(bps) > 0 {
		st.Replace(bps)
	}
	return st
}

func bp(id string, badges types.BadgeSummary) types.Blueprint {
	return types.Blueprint{
		ID:          id,
		Name:        "bp-" + id,
		Provisioner: "docker",
		State:       "running",
		UI:          types.UI{StagesStatesBadges: badges},
	}
}

func newHandler(st *store.Store, status poller.Status) (http.Handler, *alerts.Center) {
	c := alerts.New(config.AlertsConfig{History: 10})
	return api.New(st, c, fixedStatus(status), nil), c
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodGet, path)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func errorDetails(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var doc struct {
		Errors []struct {
			Details string `json:"details"`
		} `json:"errors"`
	}
	decode(t, rr, &doc)
	if len(doc.Errors) != 1 {
		t.Fatalf("errors: got %d entries, want 1", len(doc.Errors))
	}
	return doc.Errors[0].Details
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != api.StateUnknown {
		t.Errorf("state: got %q, want unknown", resp.State)
	}
	if resp.BlueprintCount != 0 || resp.UpdatedAt != nil {
		t.Errorf("resp: got %+v", resp)
	}
}

func TestHealth_States(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		data   bool
		status poller.Status
		want   string
	}{
		{"ok", true, poller.Status{Running: true, LastSuccess: now}, api.StateOK},
		{"degraded", true, poller.Status{LastSuccess: now.Add(-time.Minute), LastErrorAt: now, LastError: "x"}, api.StateDegraded},
		{"recovered", true, poller.Status{LastSuccess: now, LastErrorAt: now.Add(-time.Minute), LastError: "x"}, api.StateOK},
		{"down", false, poller.Status{LastErrorAt: now, LastError: "x"}, api.StateDown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStore()
			if tc.data {
				st.Replace([]types.Blueprint{bp("a", types.BadgeSummary{})})
			}
			h, _ := newHandler(st, tc.status)
			var resp api.HealthResponse
			decode(t, get(t, h, "/api/v1/health"), &resp)
			if resp.State != tc.want {
				t.Errorf("state: got %q, want %q", resp.State, tc.want)
			}
		})
	}
}

func TestHealth_LiveEmptyCollectionIsData(t *testing.T) {
	st := newStore()
	st.Replace([]types.Blueprint{})
	h, _ := newHandler(st, poller.Status{Running: true, LastSuccess: time.Now()})

	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)
	if resp.State != api.StateOK {
		t.Errorf("state: got %q, want ok", resp.State)
	}
	if resp.BlueprintCount != 0 || resp.UpdatedAt == nil {
		t.Errorf("resp: got %+v, want zero count with updated_at set", resp)
	}

	var snap api.SnapshotResponse
	decode(t, get(t, h, "/api/v1/snapshot"), &snap)
	if snap.UpdatedAt == nil {
		t.Error("snapshot updated_at: got nil, want set")
	}
}

func TestHealth_BadgeTotalsAndAlerts(t *testing.T) {
	st := newStore(
		bp("a", types.BadgeSummary{Green: 1, Orange: 1, Grey: 1}),
		bp("b", types.BadgeSummary{Orange: 3}),
	)
	h, c := newHandler(st, poller.Status{Running: true, Subscribers: 2, LastSuccess: time.Now()})
	c.ReportError("bad provisioner")

	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)

	want := types.BadgeSummary{Green: 1, Orange: 4, Grey: 1}
	if resp.Badges != want {
		t.Errorf("badges: got %+v, want %+v", resp.Badges, want)
	}
	if resp.BlueprintCount != 2 || !resp.Polling || resp.Subscribers != 2 {
		t.Errorf("resp: got %+v", resp)
	}
	if resp.AlertCount != 1 {
		t.Errorf("alert_count: got %d, want 1", resp.AlertCount)
	}
}

// --- /api/v1/blueprints -----------------------------------------------------

func TestListBlueprints_Empty(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	rr := get(t, h, "/api/v1/blueprints")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body: got %s, want []", body)
	}
}

func TestListBlueprints_OrderAndShape(t *testing.T) {
	h, _ := newHandler(newStore(
		bp("z", types.BadgeSummary{Green: 1, Orange: 1, Grey: 1}),
		bp("a", types.BadgeSummary{}),
	), poller.Status{})

	var resp []map[string]interface{}
	decode(t, get(t, h, "/api/v1/blueprints"), &resp)
	if len(resp) != 2 {
		t.Fatalf("len: got %d, want 2", len(resp))
	}
	if resp[0]["id"] != "z" || resp[1]["id"] != "a" {
		t.Errorf("order: got %v, %v", resp[0]["id"], resp[1]["id"])
	}
	ui, ok := resp[0]["ui"].(map[string]interface{})
	if !ok {
		t.Fatalf("ui: missing in %v", resp[0])
	}
	badges, ok := ui["stagesStatesBadges"].(map[string]interface{})
	if !ok {
		t.Fatalf("stagesStatesBadges: missing in %v", ui)
	}
	for _, k := range []string{"green", "orange", "grey"} {
		if badges[k] != 1.0 {
			t.Errorf("%s: got %v, want 1", k, badges[k])
		}
	}
}

func TestGetBlueprint_Found(t *testing.T) {
	h, _ := newHandler(newStore(bp("a", types.BadgeSummary{})), poller.Status{})
	rr := get(t, h, "/api/v1/blueprints/a")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var got types.Blueprint
	decode(t, rr, &got)
	if got.Name != "bp-a" {
		t.Errorf("name: got %q", got.Name)
	}
}

func TestGetBlueprint_NotFound(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	rr := get(t, h, "/api/v1/blueprints/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	if d := errorDetails(t, rr); d != "blueprint not found" {
		t.Errorf("details: got %q", d)
	}
}

func TestBlueprintDetails(t *testing.T) {
	h, _ := newHandler(newStore(bp("a", types.BadgeSummary{Orange: 3})), poller.Status{})
	rr := get(t, h, "/api/v1/blueprints/a/details")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "bp-a") || !strings.Contains(body, "orange 3") {
		t.Errorf("body:\n%s", body)
	}
}

func TestBlueprintDetails_NotFound(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	if rr := get(t, h, "/api/v1/blueprints/x/details"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/alerts ---------------------------------------------------------

func TestAlerts_ReturnsEmptyArray(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	rr := get(t, h, "/api/v1/alerts")

	var resp []interface{}
	decode(t, rr, &resp)
	if resp == nil || len(resp) != 0 {
		t.Errorf("alerts: got %v, want []", resp)
	}
}

func TestAlerts_NewestFirstWithLimit(t *testing.T) {
	h, c := newHandler(newStore(), poller.Status{})
	c.ReportError("first")
	c.ReportError("")
	c.ReportError("third")

	var resp []alerts.Alert
	decode(t, get(t, h, "/api/v1/alerts?limit=2"), &resp)
	if len(resp) != 2 {
		t.Fatalf("len: got %d, want 2", len(resp))
	}
	if resp[0].Message != "third" || !resp[1].Generic {
		t.Errorf("alerts: got %+v", resp)
	}
}

func TestAlerts_BadLimit(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	if rr := get(t, h, "/api/v1/alerts?limit=abc"); rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

// --- /api/v1/certs ---------------------------------------------------------

type fixedCert struct{ cs *certs.Status }

func (f fixedCert) Check(context.Context) *certs.Status { return f.cs }

func TestCerts_NoChecker(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	if body := strings.TrimSpace(get(t, h, "/api/v1/certs").Body.String()); body != "[]" {
		t.Errorf("body: got %s, want []", body)
	}
}

func TestCerts_PlainHTTPUpstream(t *testing.T) {
	c := alerts.New(config.AlertsConfig{History: 1})
	h := api.New(newStore(), c, fixedStatus{}, fixedCert{})
	if body := strings.TrimSpace(get(t, h, "/api/v1/certs").Body.String()); body != "[]" {
		t.Errorf("body: got %s, want []", body)
	}
}

func TestCerts_ReturnsCertData(t *testing.T) {
	c := alerts.New(config.AlertsConfig{History: 1})
	h := api.New(newStore(), c, fixedStatus{}, fixedCert{&certs.Status{
		Endpoint: "https://upstream/api/v1/blueprints", AuthType: "bearer", Status: certs.StatusExpiring, DaysLeft: 12,
	}})

	var resp []map[string]interface{}
	decode(t, get(t, h, "/api/v1/certs"), &resp)
	if len(resp) != 1 {
		t.Fatalf("certs: got %d, want 1", len(resp))
	}
	if resp[0]["status"] != "expiring" || resp[0]["days_left"] != 12.0 {
		t.Errorf("cert: got %v", resp[0])
	}
}

// --- /api/v1/snapshot -------------------------------------------------------

func TestSnapshot(t *testing.T) {
	h, _ := newHandler(newStore(bp("a", types.BadgeSummary{})), poller.Status{})

	var resp api.SnapshotResponse
	decode(t, get(t, h, "/api/v1/snapshot"), &resp)
	if resp.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
	if resp.UpdatedAt == nil {
		t.Error("updated_at: missing")
	}
	if len(resp.Blueprints) != 1 {
		t.Errorf("blueprints: got %d, want 1", len(resp.Blueprints))
	}
}

// --- method and content type ------------------------------------------------

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/blueprints",
		"/api/v1/blueprints/a",
		"/api/v1/alerts",
		"/api/v1/snapshot",
	} {
		for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rr := do(t, h, m, path)
			if rr.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s %s: got %d, want 405", m, path, rr.Code)
			}
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	rr := get(t, h, "/api/v1/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	if d := errorDetails(t, rr); d != "not found" {
		t.Errorf("details: got %q", d)
	}
}

func TestContentTypeJSON(t *testing.T) {
	h, _ := newHandler(newStore(), poller.Status{})
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/blueprints",
		"/api/v1/alerts",
		"/api/v1/certs",
		"/api/v1/snapshot",
	} {
		rr := get(t, h, path)
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}
