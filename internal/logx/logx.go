package logx

import (
	"context"

	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	operatorKey contextKey = iota
	sessionKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithOperator annotates the logger with the operator id if present.
func WithOperator(ctx context.Context, operator schema.OperatorID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if operator != "" {
		if current, ok := ctx.Value(operatorKey).(schema.OperatorID); ok && current == operator {
			return log
		}
		log = log.With("operator", operator)
	}
	return log
}

// WithOperatorSession annotates the logger with operator and session identifiers.
func WithOperatorSession(ctx context.Context, operator schema.OperatorID, session schema.SessionID) pslog.Logger {
	log := WithOperator(ctx, operator)
	if session != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == session {
			return log
		}
		log = log.With("session", session)
	}
	return log
}

// WithVariant annotates the logger with the console variant.
func WithVariant(log pslog.Logger, variant schema.Variant) pslog.Logger {
	if variant != "" {
		log = log.With("variant", variant)
	}
	return log
}

// WithCommand annotates the logger with an authority command name.
func WithCommand(log pslog.Logger, name schema.CommandName) pslog.Logger {
	if name != "" {
		log = log.With("command", name)
	}
	return log
}

// ContextWithOperator stores the operator marker on the context for log de-duplication.
func ContextWithOperator(ctx context.Context, operator schema.OperatorID) context.Context {
	if ctx == nil || operator == "" {
		return ctx
	}
	return context.WithValue(ctx, operatorKey, operator)
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, session schema.SessionID) context.Context {
	if ctx == nil || session == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, session)
}

// ContextWithSessionLogger attaches the logger and operator/session markers to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, operator schema.OperatorID, session schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ContextWithOperator(ctx, operator), session)
}
