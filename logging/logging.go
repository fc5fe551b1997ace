package logging

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New builds the logger shared by every component of a session. An
// unparseable level falls back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "harmonybeat",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
}

func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard lets constructors accept a nil logger.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func WithContext(ctx context.Context, l *log.Logger) context.Context {
	return log.WithContext(ctx, l)
}

func FromContext(ctx context.Context) *log.Logger {
	return log.FromContext(ctx)
}
