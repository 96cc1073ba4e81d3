// Package certs inspects the TLS certificate presented by the upstream
// blueprints endpoint so operators can see an expiring certificate before
// polling starts failing.
package certs
