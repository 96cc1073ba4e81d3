// Package config loads and watches the blueprintdash configuration file.
//
// Top-level types:
//   - Config{Log, API, Timers, Server, Alerts}: full tree parsed from YAML
//   - APIConfig: blueprints_url, auth, tls, timeout of the upstream API
//   - AuthConfig: mode (none|apikey|bearer|basic|mtls), cert/key/ca files,
//     header, key_env, token_env, username, password_env; Key(), Token() and
//     Password() resolve secrets from environment variables
//   - TimersConfig: blueprints_interval_ms, the poll period in milliseconds
//   - ServerConfig: http/grpc ports, snapshot TTL, inbound auth
//   - AlertsConfig: alert history size and webhook targets
//
// Load(path) reads the YAML file, applies defaults (5000ms poll, 10s timeout,
// port 8090, 5m snapshot TTL), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after every
// event so atomic-save editors (rename then create) keep being tracked.
package config
