package log

import (
	"context"
	"errors"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return Default()
}

// ErrorType classifies err for the error_type field.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrForbidden):
		return ErrorTypeForbidden
	default:
		return ErrorTypeInternal
	}
}

// StructuredLogger writes the ledger's recurring log lines with a fixed
// field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	if logger == nil {
		logger = Default()
	}
	return &StructuredLogger{logger: logger}
}

// LogLedgerWrite records a committed ledger mutation.
func (sl *StructuredLogger) LogLedgerWrite(ctx context.Context, op, actor string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithOperation(op).WithActor(actor)
	sl.logger.InfoContext(ctx, "Ledger write committed", fields.ToSlice()...)
}

// LogRejected records an operation refused by validation or authorization.
// Caller mistakes log at Warn; anything else at Error.
func (sl *StructuredLogger) LogRejected(ctx context.Context, op string, err error, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	errType := ErrorType(err)
	fields.WithOperation(op).WithError(err).WithErrorType(errType)
	if errType == ErrorTypeInternal {
		sl.logger.ErrorContext(ctx, "Ledger operation failed", fields.ToSlice()...)
		return
	}
	sl.logger.WarnContext(ctx, "Ledger operation rejected", fields.ToSlice()...)
}
