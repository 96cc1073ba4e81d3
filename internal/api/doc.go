// Package api implements the read-only REST API of blueprintdash.
//
// New returns an http.Handler (a chi router) that serves:
//
//	GET /api/v1/health                  poller state, freshness, badge totals
//	GET /api/v1/blueprints              last-known-good collection, upstream order
//	GET /api/v1/blueprints/{id}         single blueprint; 404 if unknown or stale
//	GET /api/v1/blueprints/{id}/details text render of one blueprint
//	GET /api/v1/alerts                  recent alerts, newest first (?limit=N)
//	GET /api/v1/certs                   upstream TLS certificate status
//	GET /api/v1/snapshot                collection plus updated_at/generated_at
//
// Every endpoint returns 405 for non-GET methods. Errors use the JSON:API
// envelope {"errors":[{"details":"..."}]}.
package api
