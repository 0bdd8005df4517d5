package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = "imrelay.logger"
	// sessionIDKey is the context key for the relay session ID.
	sessionIDKey contextKey = "imrelay.session_id"
	// remoteAddrKey is the context key for the client address.
	remoteAddrKey contextKey = "imrelay.remote_addr"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithSessionID adds a relay session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext extracts the session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRemoteAddr adds the client address to the context.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteAddrKey, addr)
}

// RemoteAddrFromContext extracts the client address from context.
func RemoteAddrFromContext(ctx context.Context) string {
	if addr, ok := ctx.Value(remoteAddrKey).(string); ok {
		return addr
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with session ID and remote address from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if id := SessionIDFromContext(ctx); id != "" {
		l = l.With("session_id", id)
	}
	if addr := RemoteAddrFromContext(ctx); addr != "" {
		l = l.With("remote_addr", addr)
	}

	return l
}
