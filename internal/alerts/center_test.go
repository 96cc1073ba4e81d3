package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blueprintdash/blueprintdash/internal/config"
)

func TestReportError_WithMessage(t *testing.T) {
	c := New(config.AlertsConfig{History: 10})
	c.ReportError("bad provisioner")

	got := c.Recent(0)
	if len(got) != 1 {
		t.Fatalf("Recent: got %d alerts, want 1", len(got))
	}
	a := got[0]
	if a.Message != "bad provisioner" || a.Generic {
		t.Errorf("alert: got %+v", a)
	}
	if a.Severity != SeverityWarning {
		t.Errorf("Severity: got %q, want %q", a.Severity, SeverityWarning)
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", a.ID, err)
	}
}

func TestReportError_Generic(t *testing.T) {
	c := New(config.AlertsConfig{History: 10})
	c.ReportError("")

	a := c.Recent(1)[0]
	if !a.Generic {
		t.Error("Generic: got false, want true")
	}
	if a.Text() != GenericMessage {
		t.Errorf("Text: got %q, want %q", a.Text(), GenericMessage)
	}
	if a.Severity != SeverityCritical {
		t.Errorf("Severity: got %q, want %q", a.Severity, SeverityCritical)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	c := New(config.AlertsConfig{History: 10})
	for _, m := range []string{"one", "two", "three"} {
		c.ReportError(m)
	}

	got := c.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2): got %d", len(got))
	}
	if got[0].Message != "three" || got[1].Message != "two" {
		t.Errorf("order: got %q, %q", got[0].Message, got[1].Message)
	}
}

func TestHistory_Capped(t *testing.T) {
	c := New(config.AlertsConfig{History: 3})
	for i := 0; i < 10; i++ {
		c.ReportError(string(rune('a' + i)))
	}
	if n := c.Len(); n != 3 {
		t.Fatalf("Len: got %d, want 3", n)
	}
	if got := c.Recent(0)[2].Message; got != "h" {
		t.Errorf("oldest retained: got %q, want h", got)
	}
}

func TestRecent_ReturnsCopies(t *testing.T) {
	c := New(config.AlertsConfig{History: 3})
	c.ReportError("x")
	c.Recent(0)[0].Message = "mutated"
	if got := c.Recent(0)[0].Message; got != "x" {
		t.Errorf("Message: got %q, want x", got)
	}
}

func TestReportedAt_UsesClock(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New(config.AlertsConfig{History: 3})
	c.now = func() time.Time { return at }
	c.ReportError("x")
	if got := c.Recent(0)[0].ReportedAt; !got.Equal(at) {
		t.Errorf("ReportedAt: got %v, want %v", got, at)
	}
}

// captureServer records every request body it receives.
type captureServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newCaptureServer(status int) *captureServer {
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, string(b))
		cs.mu.Unlock()
		w.WriteHeader(status)
	}))
	return cs
}

func (cs *captureServer) Bodies() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.bodies...)
}

func TestWebhooks_Delivered(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"slack", `"text":"*[WARNING]* Blueprint poll of upstream was rejected: bad provisioner"`},
		{"teams", `"@type":"MessageCard"`},
		{"http", `"message":"bad provisioner"`},
	}
	for _, tc := range tests {
		t.Run(tc.typ, func(t *testing.T) {
			srv := newCaptureServer(http.StatusOK)
			defer srv.Close()
			t.Setenv("HOOK_URL", srv.URL)

			c := New(config.AlertsConfig{
				History:  10,
				Webhooks: []config.WebhookConfig{{Type: tc.typ, URLEnv: "HOOK_URL"}},
			})
			c.ReportError("bad provisioner")
			c.Wait()

			bodies := srv.Bodies()
			if len(bodies) != 1 {
				t.Fatalf("deliveries: got %d, want 1", len(bodies))
			}
			if !strings.Contains(bodies[0], tc.want) {
				t.Errorf("body %s does not contain %s", bodies[0], tc.want)
			}
		})
	}
}

func TestWebhook_GenericUsesFallbackText(t *testing.T) {
	srv := newCaptureServer(http.StatusOK)
	defer srv.Close()
	t.Setenv("HOOK_URL", srv.URL)

	c := New(config.AlertsConfig{
		History:  10,
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "HOOK_URL"}},
	})
	c.ReportError("")
	c.Wait()

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(srv.Bodies()[0]), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "*[CRITICAL]* Blueprint poll of upstream failed with no error details: " + GenericMessage
	if payload.Text != want {
		t.Errorf("text: got %q, want %q", payload.Text, want)
	}
}

func TestWebhook_PayloadsNameUpstream(t *testing.T) {
	const upstream = "https://ci.example.com/api/blueprints"
	hooks := map[string]*captureServer{}
	var cfgHooks []config.WebhookConfig
	for _, typ := range []string{"slack", "teams", "http"} {
		srv := newCaptureServer(http.StatusOK)
		defer srv.Close()
		env := "HOOK_URL_" + strings.ToUpper(typ)
		t.Setenv(env, srv.URL)
		hooks[typ] = srv
		cfgHooks = append(cfgHooks, config.WebhookConfig{Type: typ, URLEnv: env})
	}

	c := New(config.AlertsConfig{History: 10, Webhooks: cfgHooks}, WithSource(upstream))
	c.ReportError("bad provisioner")
	c.Wait()

	if got := c.Recent(1)[0].Source; got != upstream {
		t.Errorf("Alert.Source: got %q, want %q", got, upstream)
	}

	var slack struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(hooks["slack"].Bodies()[0]), &slack); err != nil {
		t.Fatalf("unmarshal slack: %v", err)
	}
	if !strings.Contains(slack.Text, upstream) || !strings.Contains(slack.Text, "bad provisioner") {
		t.Errorf("slack text %q should name the upstream and the details", slack.Text)
	}

	var teams struct {
		Summary  string `json:"summary"`
		Text     string `json:"text"`
		Sections []struct {
			Facts []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"facts"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(hooks["teams"].Bodies()[0]), &teams); err != nil {
		t.Fatalf("unmarshal teams: %v", err)
	}
	if teams.Summary == teams.Text {
		t.Errorf("teams summary and text are both %q", teams.Text)
	}
	if teams.Text != "bad provisioner" {
		t.Errorf("teams text: got %q, want bad provisioner", teams.Text)
	}
	found := false
	for _, sec := range teams.Sections {
		for _, f := range sec.Facts {
			if f.Name == "Upstream" && f.Value == upstream {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("teams facts do not include Upstream=%s: %+v", upstream, teams.Sections)
	}

	if body := hooks["http"].Bodies()[0]; !strings.Contains(body, `"source":"`+upstream+`"`) {
		t.Errorf("http body %s does not carry the source", body)
	}
}

func TestWebhook_MissingURLSkipped(t *testing.T) {
	c := New(config.AlertsConfig{
		History:  10,
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "BLUEPRINTDASH_UNSET_HOOK"}},
	})
	c.ReportError("x")
	c.Wait()
	if c.Len() != 1 {
		t.Errorf("Len: got %d, want 1", c.Len())
	}
}

func TestPost_ErrorStatus(t *testing.T) {
	srv := newCaptureServer(http.StatusInternalServerError)
	defer srv.Close()

	c := New(config.AlertsConfig{History: 1})
	if err := c.post(srv.URL, []byte(`{}`)); err == nil {
		t.Error("post: expected error for HTTP 500")
	}
}
