// Package alerts is the error handler of the blueprint poller. Every report
// becomes an Alert: it is logged, kept in a bounded history for the REST API
// and delivered asynchronously to the configured Slack, Teams or generic HTTP
// webhooks.
package alerts
