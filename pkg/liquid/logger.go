package liquid

import (
	"errors"
	"log/slog"
)

// Logger receives reports about malformed templates. *slog.Logger
// satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	ErrOrphanElse  = errors.New("else block must have a preceding if block")
	ErrOrphanElsif = errors.New("elsif block must have a preceding if block")
)

func defaultLogger(l Logger) Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
