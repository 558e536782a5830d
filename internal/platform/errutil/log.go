// Package errutil bridges coded errors and structured logging.
package errutil

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Code and context of oops errors are
// flattened into attributes so operators can filter on them.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	if err == nil {
		logger.Error(msg, attrs...)
		return
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, slog.String("error", oopsErr.Error()))
		if code := Code(err); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, slog.Any("context", ctx))
		}
		logger.Error(msg, attrs...)
		return
	}
	attrs = append(attrs, slog.Any("error", err))
	logger.Error(msg, attrs...)
}

// Code returns the oops code attached to err, or "" when none is present.
func Code(err error) string {
	var oopsErr oops.OopsError
	if !errors.As(err, &oopsErr) {
		return ""
	}
	code := any(oopsErr.Code())
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
