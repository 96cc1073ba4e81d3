// Package store holds the last-known-good blueprint collection. The whole
// collection is replaced on every successful poll, upstream order is kept,
// and a TTL loop drops it once it has not been refreshed for too long.
package store
