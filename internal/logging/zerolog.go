package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// ZerologHandler implements slog.Handler on top of a zerolog.Logger.
//
// Attributes added with WithAttrs are encoded once into the child logger's
// context. Groups become dotted key prefixes ("request.method").
type ZerologHandler struct {
	logger zerolog.Logger
	prefix string // open groups joined by "."
}

// NewZerologHandler wraps logger. Its level decides what Enabled reports.
func NewZerologHandler(logger zerolog.Logger) *ZerologHandler {
	return &ZerologHandler{logger: logger}
}

func (h *ZerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toZerologLevel(level) >= h.logger.GetLevel()
}

func (h *ZerologHandler) Handle(_ context.Context, r slog.Record) error {
	var ev *zerolog.Event
	switch {
	case r.Level >= slog.LevelError:
		ev = h.logger.Error()
	case r.Level >= slog.LevelWarn:
		ev = h.logger.Warn()
	case r.Level >= slog.LevelInfo:
		ev = h.logger.Info()
	default:
		ev = h.logger.Debug()
	}
	if ev == nil {
		return nil
	}

	r.Attrs(func(a slog.Attr) bool {
		ev = appendAttr(ev, h.prefix, a)
		return true
	})
	ev.Msg(r.Message)
	return nil
}

func (h *ZerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	ctx := h.logger.With()
	for _, a := range attrs {
		ctx = appendContext(ctx, h.prefix, a)
	}
	return &ZerologHandler{logger: ctx.Logger(), prefix: h.prefix}
}

func (h *ZerologHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ZerologHandler{logger: h.logger, prefix: join(h.prefix, name)}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func appendAttr(ev *zerolog.Event, prefix string, a slog.Attr) *zerolog.Event {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ev
	}
	key := join(prefix, a.Key)

	switch a.Value.Kind() {
	case slog.KindString:
		return ev.Str(key, a.Value.String())
	case slog.KindInt64:
		return ev.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return ev.Uint64(key, a.Value.Uint64())
	case slog.KindFloat64:
		return ev.Float64(key, a.Value.Float64())
	case slog.KindBool:
		return ev.Bool(key, a.Value.Bool())
	case slog.KindDuration:
		return ev.Dur(key, a.Value.Duration())
	case slog.KindTime:
		return ev.Time(key, a.Value.Time())
	case slog.KindGroup:
		inner := key
		if a.Key == "" {
			inner = prefix
		}
		for _, ga := range a.Value.Group() {
			ev = appendAttr(ev, inner, ga)
		}
		return ev
	}
	if err, ok := a.Value.Any().(error); ok {
		return ev.AnErr(key, err)
	}
	return ev.Interface(key, a.Value.Any())
}

// appendContext is appendAttr for a child logger's context.
func appendContext(ctx zerolog.Context, prefix string, a slog.Attr) zerolog.Context {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ctx
	}
	key := join(prefix, a.Key)

	switch a.Value.Kind() {
	case slog.KindString:
		return ctx.Str(key, a.Value.String())
	case slog.KindInt64:
		return ctx.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return ctx.Uint64(key, a.Value.Uint64())
	case slog.KindFloat64:
		return ctx.Float64(key, a.Value.Float64())
	case slog.KindBool:
		return ctx.Bool(key, a.Value.Bool())
	case slog.KindDuration:
		return ctx.Dur(key, a.Value.Duration())
	case slog.KindTime:
		return ctx.Time(key, a.Value.Time())
	case slog.KindGroup:
		inner := key
		if a.Key == "" {
			inner = prefix
		}
		for _, ga := range a.Value.Group() {
			ctx = appendContext(ctx, inner, ga)
		}
		return ctx
	}
	return ctx.Interface(key, a.Value.Any())
}

func toZerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l >= slog.LevelError:
		return zerolog.ErrorLevel
	case l >= slog.LevelWarn:
		return zerolog.WarnLevel
	case l >= slog.LevelInfo:
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}
