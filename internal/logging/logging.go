// Package logging builds the zap.Logger atilink's daemon and driver share,
// grounded on cmd/vaultaire/main.go's logger construction.
package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger, or a development logger (human-readable,
// debug-level) when debug is true.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	return zap.NewProduction()
}

// SessionID mints a correlation ID for one accepted connection, attached
// to every log line the session's handler emits.
func SessionID() string {
	return uuid.NewString()
}

// ForSession returns a child logger tagged with session, so every line it
// emits can be grepped back to one transfer.
func ForSession(log *zap.Logger, session string) *zap.Logger {
	return log.With(zap.String("session", session))
}
