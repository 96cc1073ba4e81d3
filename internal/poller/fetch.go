package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/blueprintdash/blueprintdash/internal/blueprint"
	"github.com/blueprintdash/blueprintdash/internal/config"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Fetcher produces one normalized collection per call.
type Fetcher interface {
	Fetch(ctx context.Context) ([]types.Blueprint, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]types.Blueprint, error)

// Fetch calls f(ctx).
func (f FetcherFunc) Fetch(ctx context.Context) ([]types.Blueprint, error) { return f(ctx) }

// TransportError is a network failure or a non-2xx response.
// StatusCode is 0 when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedPayloadError is a 2xx response whose body is not a blueprints
// document.
type MalformedPayloadError struct {
	URL  string
	Body []byte
	Err  error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("GET %s: malformed payload: %v", e.URL, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// HTTPFetcher fetches and normalizes the blueprints collection over HTTP.
type HTTPFetcher struct {
	url        string
	client     *http.Client
	normalizer blueprint.Normalizer
}

// NewHTTPFetcher returns a fetcher for api.BlueprintsURL.
func NewHTTPFetcher(api config.APIConfig) (*HTTPFetcher, error) {
	client, err := NewHTTPClient(api)
	if err != nil {
		return nil, fmt.Errorf("poller: build http client: %w", err)
	}
	return &HTTPFetcher{url: api.BlueprintsURL, client: client}, nil
}

// Fetch performs one GET and normalizes the body.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]types.Blueprint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{URL: f.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: f.url, StatusCode: resp.StatusCode, Body: body}
	}

	bps, err := f.normalizer.Normalize(body)
	if err != nil {
		return nil, &MalformedPayloadError{URL: f.url, Body: body, Err: err}
	}
	return bps, nil
}
