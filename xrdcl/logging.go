package xrdcl

import (
	"sync"

	"go.uber.org/zap"
)

// defaultLogger is the package-wide production logger: most callers
// never configure a logger at all and just get a sane production
// default; Connection.Options.Logger lets a caller swap in its own
// per-handler logger (e.g. one tagged with the owning Stream's
// identity).
var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   = newDefaultLogger()
)

func newDefaultLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on a broken encoder config,
		// which never happens with the zero value; fall back to Nop
		// rather than panic out of a package init path.
		return zap.NewNop()
	}
	return logger
}

// Log returns the current default logger used by connections that don't
// supply their own.
func Log() *zap.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the package-wide default logger, returning
// the previous one so callers can restore it (tests do this routinely).
func SetDefaultLogger(l *zap.Logger) *zap.Logger {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	old := defaultLogger
	defaultLogger = l
	return old
}
