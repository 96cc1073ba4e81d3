// Package display renders a blueprint as read-only text: its name,
// provisioner, state and stage badge counters.
package display
