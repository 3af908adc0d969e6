// Package telemetry wraps github.com/tliron/commonlog as this pipeline's
// structured logging backbone, giving every stage transition, solver
// call, and cache hit/miss a consistent leveled, contextual log line
// (SPEC_FULL.md, "Ambient stack"). The teacher's only LSP entry point
// configures commonlog with a single `commonlog.Configure` call; this
// package gives that same backend a second job, outside the LSP.
package telemetry

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple" // registers the simple backend Configure selects
)

// Logger is the narrow interface the rest of the pipeline depends on, so
// that Noop can stand in wherever nothing has configured commonlog.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

var configured bool

// New returns a Logger backed by commonlog, named after the pipeline
// stage it will be used from (e.g. "bmbc.verify", "bmbc.emit").
// Verbosity follows commonlog's 0 (quiet) .. 2 (debug) convention.
func New(name string, verbosity int) Logger {
	if !configured {
		commonlog.Configure(verbosity, nil)
		configured = true
	}
	return &commonLogger{delegate: commonlog.GetLogger(name)}
}

type commonLogger struct {
	delegate commonlog.Logger
}

func (l *commonLogger) render(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
	}
	return msg + " (" + strings.Join(parts, " ") + ")"
}

func (l *commonLogger) Debug(msg string, kv ...any) { l.delegate.Debug(l.render(msg, kv)) }
func (l *commonLogger) Info(msg string, kv ...any)  { l.delegate.Info(l.render(msg, kv)) }
func (l *commonLogger) Warn(msg string, kv ...any)  { l.delegate.Warning(l.render(msg, kv)) }
func (l *commonLogger) Error(msg string, kv ...any) { l.delegate.Error(l.render(msg, kv)) }

type noop struct{}

func (noop) Debug(string, ...any) {}
func (noop) Info(string, ...any)  {}
func (noop) Warn(string, ...any)  {}
func (noop) Error(string, ...any) {}

// Noop returns a Logger that discards every message.
func Noop() Logger { return noop{} }
