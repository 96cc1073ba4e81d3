// Package health exposes the poller's serving status over the standard
// grpc.health.v1 service, so orchestrators can check whether the dashboard
// currently holds fresh upstream data.
package health
