package auth

import (
	"encoding/json"
	"net/http"

	"github.com/blueprintdash/blueprintdash/internal/jsonapi"
)

// QueryParam carries the key for clients that cannot set headers, such as
// browser WebSocket connections.
const QueryParam = "api_key"

// APIKeyMiddleware returns HTTP middleware enforcing the same rules as
// APIKeyInterceptor. The key is read from header, or from the api_key query
// parameter when the header is absent. Rejections are answered with 401 and a
// JSON:API error envelope.
func APIKeyMiddleware(mode, header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enforced(mode, key) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" {
				got = r.URL.Query().Get(QueryParam)
			}
			if got == "" || !keyMatches(got, key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(jsonapi.NewErrorDocument("invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
