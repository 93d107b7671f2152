// Package param declares typed, hot-reloaded parameters backed by files.
//
// A program declares a parameter with a name and a default value:
//
//	speed, err := param.New("speed", 1.5)
//	...
//	for {
//		move(speed.Value())
//	}
//
// New writes the default to <dir>/<name> (first line: the value, followed by
// two comment lines) and watches the file. Whenever the file is written, the
// first line is parsed again; an empty line or a parse error falls back to
// the default. Editing the file, from a shell or from the painless web UI,
// therefore changes the value seen by the running program.
//
// Parameters are process-wide: declaring the same name twice in one process
// returns the existing parameter without touching the file. Close releases
// one declaration; the last Close removes the file.
package param
