package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (c *Center) deliver(a *Alert) {
	for _, wh := range c.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = c.sendSlack(url, a)
		case "teams":
			err = c.sendTeams(url, a)
		case "http":
			err = c.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"id", a.ID,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered", "type", wh.Type, "id", a.ID)
		}
	}
}

// headline is the one-line description of a used by chat webhooks.
func headline(a *Alert) string {
	src := a.Source
	if src == "" {
		src = "upstream"
	}
	if a.Generic {
		return fmt.Sprintf("Blueprint poll of %s failed with no error details", src)
	}
	return fmt.Sprintf("Blueprint poll of %s was rejected", src)
}

func (c *Center) sendSlack(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{
		"text": fmt.Sprintf("*%s* %s: %s", severityLabel(a.Severity), headline(a), a.Text()),
		"attachments": []map[string]interface{}{{
			"color": "#" + severityColor(a.Severity),
			"fields": []map[string]interface{}{
				{"title": "Details", "value": a.Text(), "short": false},
				{"title": "Alert ID", "value": a.ID, "short": true},
				{"title": "Reported", "value": a.ReportedAt.UTC().Format(time.RFC3339), "short": true},
			},
		}},
	})
	return c.post(url, body)
}

func (c *Center) sendTeams(url string, a *Alert) error {
	facts := []map[string]string{
		{"name": "Severity", "value": a.Severity},
		{"name": "Alert ID", "value": a.ID},
		{"name": "Reported", "value": a.ReportedAt.UTC().Format(time.RFC3339)},
	}
	if a.Source != "" {
		facts = append(facts, map[string]string{"name": "Upstream", "value": a.Source})
	}
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    headline(a),
		"title":      "blueprintdash: blueprint fetch failed",
		"text":       a.Text(),
		"sections":   []map[string]interface{}{{"facts": facts}},
	}
	body, _ := json.Marshal(payload)
	return c.post(url, body)
}

func (c *Center) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return c.post(url, body)
}

func (c *Center) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case SeverityCritical:
		return "[CRITICAL]"
	case SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case SeverityCritical:
		return "FF4F6A"
	case SeverityWarning:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
