package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PrettyJSONHandler writes each record as an indented JSON object. It is
// meant for people watching a terminal, not for log shippers.
type PrettyJSONHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool

	// root holds attrs added before any group; each scope holds the attrs
	// added after the matching WithGroup call.
	root   []slog.Attr
	scopes []scope
}

type scope struct {
	name  string
	attrs []slog.Attr
}

func NewPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyJSONHandler {
	h := &PrettyJSONHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
	}
	return h
}

func (h *PrettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}
	payload := map[string]any{
		"time":  when.Format(time.RFC3339Nano),
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	if h.addSource {
		if src := sourceFromPC(r.PC); src != "" {
			payload["source"] = src
		}
	}
	putAttrs(payload, h.root)

	// Record attrs belong to the innermost group.
	dst := payload
	for i, sc := range h.scopes {
		child := map[string]any{}
		putAttrs(child, sc.attrs)
		if i == len(h.scopes)-1 {
			r.Attrs(func(a slog.Attr) bool {
				putAttr(child, a)
				return true
			})
		}
		dst[sc.name] = child
		dst = child
	}
	if len(h.scopes) == 0 {
		r.Attrs(func(a slog.Attr) bool {
			putAttr(payload, a)
			return true
		})
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		b = []byte(`{"time":` + strconv.Quote(when.Format(time.RFC3339Nano)) +
			`,"level":` + strconv.Quote(r.Level.String()) +
			`,"msg":` + strconv.Quote(r.Message) + `}`)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(b, '\n'))
	return err
}

func (h *PrettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	if n := len(clone.scopes); n > 0 {
		clone.scopes[n-1].attrs = append(clone.scopes[n-1].attrs, attrs...)
	} else {
		clone.root = append(clone.root, attrs...)
	}
	return clone
}

func (h *PrettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.scopes = append(clone.scopes, scope{name: name})
	return clone
}

func (h *PrettyJSONHandler) clone() *PrettyJSONHandler {
	c := *h
	c.root = append([]slog.Attr(nil), h.root...)
	c.scopes = make([]scope, len(h.scopes))
	for i, sc := range h.scopes {
		c.scopes[i] = scope{name: sc.name, attrs: append([]slog.Attr(nil), sc.attrs...)}
	}
	return &c
}

func putAttrs(dst map[string]any, attrs []slog.Attr) {
	for _, a := range attrs {
		putAttr(dst, a)
	}
}

func putAttr(dst map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		// An unnamed group is inlined.
		if a.Key == "" {
			putAttrs(dst, group)
			return
		}
		child := map[string]any{}
		putAttrs(child, group)
		dst[a.Key] = child
		return
	}
	if a.Key == "" {
		return
	}
	dst[a.Key] = plain(v)
}

func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	}
	switch x := v.Any().(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return x
	}
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
