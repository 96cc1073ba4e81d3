package alerts

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blueprintdash/blueprintdash/internal/config"
	"github.com/blueprintdash/blueprintdash/internal/metrics"
)

// GenericMessage is shown in place of an alert that carries no message.
const GenericMessage = "Blueprints could not be loaded"

// Severities. A report with upstream-provided details means the endpoint
// answered and rejected the request; a bare report means nothing usable came
// back at all.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is one reported failure.
type Alert struct {
	ID         string    `json:"id"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message,omitempty"`
	Generic    bool      `json:"generic"`
	Source     string    `json:"source,omitempty"` // upstream URL that failed
	ReportedAt time.Time `json:"reported_at"`
}

// Text returns the message to present for a, falling back to GenericMessage.
func (a *Alert) Text() string {
	if a.Generic {
		return GenericMessage
	}
	return a.Message
}

// Center records reported errors and fans them out to webhooks.
// It satisfies poller.Reporter.
//
// Center is safe for concurrent use.
type Center struct {
	webhooks []config.WebhookConfig
	limit    int
	source   string

	mu      sync.Mutex
	history []*Alert // oldest first
	client  *http.Client
	now     func() time.Time
	wg      sync.WaitGroup
}

// Option configures a Center.
type Option func(*Center)

// WithSource stamps every alert with the upstream URL being polled.
func WithSource(url string) Option {
	return func(c *Center) { c.source = url }
}

// New creates a Center from the alerts configuration.
func New(cfg config.AlertsConfig, opts ...Option) *Center {
	limit := cfg.History
	if limit <= 0 {
		limit = config.DefaultAlertHistory
	}
	c := &Center{
		webhooks: cfg.Webhooks,
		limit:    limit,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReportError records one alert. An empty message is a generic failure
// report; the UI shows GenericMessage for it.
func (c *Center) ReportError(message string) {
	a := &Alert{
		ID:         uuid.NewString(),
		Severity:   SeverityWarning,
		Message:    message,
		Generic:    message == "",
		Source:     c.source,
		ReportedAt: c.now(),
	}
	if a.Generic {
		a.Severity = SeverityCritical
	}

	c.mu.Lock()
	c.history = append(c.history, a)
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
	alertCopy := *a
	c.mu.Unlock()

	slog.Warn("alert reported",
		"id", a.ID,
		"severity", a.Severity,
		"message", a.Text(),
	)
	metrics.RecordAlert(!a.Generic)

	if len(c.webhooks) > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.deliver(&alertCopy)
		}()
	}
}

// Recent returns copies of up to n most recent alerts, newest first.
// n <= 0 returns the whole history.
func (c *Center) Recent(n int) []*Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.history) {
		n = len(c.history)
	}
	out := make([]*Alert, 0, n)
	for i := len(c.history) - 1; i >= 0 && len(out) < n; i-- {
		cp := *c.history[i]
		out = append(out, &cp)
	}
	return out
}

// Len returns the number of alerts currently retained.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (c *Center) Wait() {
	c.wg.Wait()
}
