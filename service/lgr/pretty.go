package lgr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// prettyHandler is a dev-only handler that prints colorized levels and
// pretty-printed attributes. Not meant for production volumes.
type prettyHandler struct {
	opts  *slog.HandlerOptions
	attrs []slog.Attr
	l     *log.Logger
	mu    *sync.Mutex
}

func newPrettyHandler(out io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &prettyHandler{
		opts: opts,
		l:    log.New(out, "", log.LstdFlags),
		mu:   &sync.Mutex{},
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = resolveAttr(a, h.opts.ReplaceAttr)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = resolveAttr(a, h.opts.ReplaceAttr)
		return true
	})

	var fieldsStr string
	if len(fields) > 0 {
		b, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
		fieldsStr = string(b)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.l.Println(level, color.CyanString(r.Message), color.WhiteString(fieldsStr))

	return nil
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened in dev output
	return h
}

func resolveAttr(a slog.Attr, replace func([]string, slog.Attr) slog.Attr) interface{} {
	if replace != nil {
		a = replace(nil, a)
	}

	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := map[string]interface{}{}
		for _, ga := range v.Group() {
			group[ga.Key] = resolveAttr(ga, replace)
		}
		return group
	}

	return fmt.Sprintf("%v", v.Any())
}
