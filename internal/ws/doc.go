// Package ws streams blueprint collections to dashboard clients over
// WebSocket.
//
// Every connection is one poller subscriber. On connect the client receives
// the last-known-good collection from the store (when there is one), then one
// message per tick:
//
//	{"event":"blueprints","data":[...]}
//
// When polling fails the client receives
//
//	{"event":"error","data":{"message":"..."}}
//
// and the connection is closed; reconnecting restarts polling at tick 0.
package ws
