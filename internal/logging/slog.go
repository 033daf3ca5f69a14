package logging

import (
	"io"
	"log/slog"
)

// #region logger
// Mode selects the log handler.
type Mode string

const (
	ModeDev    Mode = "dev"    // text, debug level
	ModeProd   Mode = "prod"   // JSON, info level
	ModeSilent Mode = "silent" // discard
)

// NewLogger builds a *slog.Logger writing to w. Unknown modes fall back to dev.
func NewLogger(mode Mode, w io.Writer) *slog.Logger {
	return slog.New(buildHandler(mode, w))
}

func buildHandler(mode Mode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilent:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// #endregion logger
