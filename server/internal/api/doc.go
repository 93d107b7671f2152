// Package api implements the HTTP surface of the painless server.
//
// New(store, hub) returns an http.Handler that serves:
//
//	GET  /                          — the parameter editor page
//	GET  /socket                    — realtime channel (only when a hub is given)
//	POST /update                    — {name, value}; 200 with an empty body
//	POST /remove                    — {name}; 204 with an empty body
//	GET  /api/v1/parameters         — all parameters, sorted by name
//	GET  /api/v1/parameters/{name}  — one parameter; 404 if absent
//	GET  /metrics                   — Prometheus text exposition
//
// /update and /remove are the routes of the page before it gained the
// realtime channel. They still trigger a broadcast so that connected
// clients see the change.
//
// JSON endpoints respond with Content-Type: application/json and report
// failures as {"error": "..."}. No external HTTP framework is used.
package api
