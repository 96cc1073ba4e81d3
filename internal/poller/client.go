package poller

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/blueprintdash/blueprintdash/internal/config"
)

const (
	acceptJSONAPI = "application/vnd.api+json, application/json;q=0.9"
	userAgent     = "blueprintdash"
)

// authRoundTripper injects authentication and content negotiation headers
// into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", acceptJSONAPI)
	}
	req.Header.Set("User-Agent", userAgent)

	switch t.auth.Mode {
	case "apikey":
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient builds an http.Client for the API's auth, TLS and timeout
// settings.
func NewHTTPClient(api config.APIConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: api.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if api.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(api.Auth.CertFile, api.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if api.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(api.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", api.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	timeout := api.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{base: transport, auth: api.Auth},
		Timeout:   timeout,
	}, nil
}
