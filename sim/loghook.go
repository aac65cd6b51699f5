package sim

import (
	"context"
	"fmt"
	"log/slog"
)

// LogHook writes every hook invocation to a structured logger.
type LogHook struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogHook creates a LogHook that logs at the given level.
func NewLogHook(logger *slog.Logger, level slog.Level) *LogHook {
	return &LogHook{logger: logger, level: level}
}

// Func logs the hook context.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	attrs := []slog.Attr{slog.Int("cpu", ctx.CPU)}
	if ctx.Env != 0 {
		attrs = append(attrs, slog.String("env", fmt.Sprintf("%08x", uint32(ctx.Env))))
	}

	if ctx.Detail != nil {
		attrs = append(attrs, slog.Any("detail", ctx.Detail))
	}

	h.logger.LogAttrs(context.Background(), h.level, ctx.Pos.Name, attrs...)
}
