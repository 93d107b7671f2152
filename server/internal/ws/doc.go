// Package ws implements the realtime channel of the painless server.
//
// Hub manages the set of connected WebSocket clients. Every client receives
// the full parameter list right after connecting and again after every
// change. Clients mutate parameters by sending commands.
//
// New(store, opts) creates a Hub.
// Hub.Run(ctx) blocks until ctx is cancelled, then closes all connections.
// Hub.ServeHTTP upgrades an HTTP connection and serves one client.
// Hub.Broadcast pushes the current list to every client; the filesystem
// watcher and the legacy HTTP routes call it.
//
// Messages are JSON text frames with an event name and a payload:
//
//	server → client  {"event": "parameter_list", "data": {"parameters": [{"name": "a", "value": "1"}]}}
//	server → client  {"event": "error",          "data": {"message": "..."}}
//	client → server  {"event": "update",         "data": {"parameter": "a", "value": "9"}}
//	client → server  {"event": "remove",         "data": {"parameter": "b"}}
//
// A failed command is reported to the sending client only. The upgrader
// accepts all origins.
package ws
