// Package poller implements the blueprints fetch loop.
//
// A Poller ticks while at least one Subscription is attached: the first
// Subscribe starts the loop and fetches immediately (tick 0), then once per
// interval. Every tick runs one fetch whose result is delivered to all
// attached subscriptions; nothing is fetched per subscriber. When the last
// subscription is dropped the ticker stops and any in-flight fetch is
// cancelled, so the next Subscribe starts again from tick 0.
//
// A tick that fires while the previous fetch is still running cancels that
// fetch and replaces it. The superseded fetch is dropped silently.
//
// A failed fetch is terminal. The error is logged with the poller's tag and
// turned into Reporter calls (one per JSON:API error entry, or one call with
// an empty message when the body is not an error envelope). Every attached
// subscription then receives an Update carrying the error and is closed. The
// loop stops until somebody subscribes again.
//
// HTTPFetcher (fetch.go) is the production Fetcher: it GETs the configured
// URL through a client built by NewHTTPClient (client.go), which handles
// apikey, bearer, basic and mTLS authentication.
package poller
