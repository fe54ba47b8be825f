// Package diag is the pass's logging surface: every subsystem writes
// debug-level diagnostics through a Logger instead of fmt.Println or
// log.Print directly.
//
// Grounded on gospal's migoinfer/internal/migoinfer.Logger: the same
// *zap.SugaredLogger embedding plus a module tag, constructed by a
// build-tag-split pair (debug.go/nodebug.go) instead of a single
// constructor, so a -tags debug build gets human-readable development
// logging and a normal build gets zap's production encoder with color
// forced off.
package diag

import "go.uber.org/zap"

// Logger wraps a zap.SugaredLogger with the module tag that scopes it.
type Logger struct {
	*zap.SugaredLogger
	module string
}

// Module returns the logger's (colourized) module tag.
func (l *Logger) Module() string { return l.module }

// Panicf logs at panic level and then panics, matching gospal's
// log.Fatal usage for "this should never happen" conditions (e.g.
// ssa/build/config.go, funcs/call.go): a verifier failure after a mutation
// is exactly such a condition.
func (l *Logger) Panicf(format string, args ...interface{}) {
	l.SugaredLogger.Panicf(format, args...)
}
