package planecut

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/soypat/planecut/flyingedges"
	"github.com/soypat/planecut/sgrid"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the logger for planecut and the cutting kernels it drives. Cuts
// are logged at info level and per pass timings at debug level. By default
// nothing is logged. Pass nil to disable logging again.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
	flyingedges.SetLogger(l)
	sgrid.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger { return slogger() }
