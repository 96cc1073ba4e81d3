// Package types defines the display records shared by the poller, the store
// and the HTTP/WebSocket surfaces. These are the canonical in-memory
// representations of blueprint data, separate from the JSON:API wire format
// decoded by internal/jsonapi.
package types
