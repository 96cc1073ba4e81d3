package api

import (
	"time"

	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// Health states reported by GET /api/v1/health.
const (
	StateOK       = "ok"       // fresh data, last fetch succeeded
	StateDegraded = "degraded" // serving data, but the latest fetch failed
	StateDown     = "down"     // no data and the latest fetch failed
	StateUnknown  = "unknown"  // nothing fetched yet
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State          string             `json:"state"`
	BlueprintCount int                `json:"blueprint_count"`
	Badges         types.BadgeSummary `json:"badges"`
	Polling        bool               `json:"polling"`
	Subscribers    int                `json:"subscribers"`
	UpdatedAt      *time.Time         `json:"updated_at,omitempty"`
	LastError      string             `json:"last_error,omitempty"`
	LastErrorAt    *time.Time         `json:"last_error_at,omitempty"`
	AlertCount     int                `json:"alert_count"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Blueprints  []types.Blueprint `json:"blueprints"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}
