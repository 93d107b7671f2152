// Package config loads the painless server configuration from a YAML file
// and the environment.
//
// Config fields:
//   - Server.HTTPPort              — port for the web UI, socket and API (default 8080)
//   - Server.BaseDir               — directory holding the parameter files (default /tmp/painless)
//   - Realtime.Watch               — start the filesystem watcher (default true)
//   - Realtime.CommandsPerSecond   — per-client command rate (default 20)
//   - Realtime.Burst               — per-client command burst (default 40)
//   - Log.Level                    — debug | info | warn | error (default info)
//   - Log.Format                   — json | text (default json)
//
// Load(path) applies defaults, unmarshals the file when path is non-empty,
// applies PAINLESS_* environment overrides, then validates.
package config
