// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort               port for the REST API, WebSocket stream and /metrics (default 8080)
//   - LogLevel               debug | info | warn | error (default info)
//   - EventLog.Path          JSON file holding the event log (default data/agent-health-events.json)
//   - EventLog.MaxEvents     log capacity; oldest events are evicted past it (default 1000)
//   - Monitor.StallAfter     silence before a running session is stalled (default 10m)
//   - Monitor.StuckAfter     silence before a running session is stuck (default 15m)
//   - Monitor.Window         aggregation window for rates and durations (default 24h)
//   - Monitor.DurationLookback  how far back a run start is searched (default 168h)
//   - Monitor.RecentFailures    error events listed per snapshot (default 25)
//   - Stream.Interval        WebSocket snapshot broadcast interval (default 5s)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change.
package config
