// Package logging defines the structured-logging interface used by the
// station packages and its log/slog implementation. Station logs go to a
// daily file and, outside debug mode, carry only errors.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Error(ctx, "validate user", "user", name, "err", err)
//
// Passwords, hashes and the salt must never be passed as args.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}
