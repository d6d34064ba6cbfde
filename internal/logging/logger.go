package logging

import (
	"context"
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(stdoutHandler()))
}

// SetupWithDB switches the global logger to a tee of stdout and the batched
// database handler. Returns the DB handler so the caller can Stop it on
// shutdown.
func SetupWithDB(dbHandler *DBHandler) {
	slog.SetDefault(slog.New(&teeHandler{out: stdoutHandler(), db: dbHandler}))
}

func stdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

// teeHandler forwards every record to stdout and, for records the DB handler
// accepts (ERROR+), to the database.
type teeHandler struct {
	out slog.Handler
	db  *DBHandler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.out.Enabled(ctx, level) || t.db.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	if t.out.Enabled(ctx, record.Level) {
		firstErr = t.out.Handle(ctx, record)
	}
	if t.db.Enabled(ctx, record.Level) {
		if err := t.db.Handle(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{out: t.out.WithAttrs(attrs), db: t.db}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{out: t.out.WithGroup(name), db: t.db}
}
