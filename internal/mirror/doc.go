// Package mirror keeps the store in step with the blueprint poller.
//
// A Mirror is a permanent subscriber: every collection it receives replaces
// the store's contents and marks the health service SERVING. When the poller
// terminates the subscription with an error, the Mirror marks NOT_SERVING and
// subscribes again after truncated exponential backoff (1s→60s, ±25% jitter),
// which restarts polling at tick 0.
package mirror
