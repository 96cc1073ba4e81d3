// Package auth guards the dashboard's own listeners with an optional shared
// API key.
//
// APIKeyInterceptor and APIKeyStreamInterceptor cover the gRPC health
// service; APIKeyMiddleware covers the REST API and the WebSocket stream.
// When mode != "apikey" or key == "", everything passes through.
package auth
