package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05Z INFO [1a2b3c4d] conversion idle@combat: clip converted strategy=primary
//
// The run, component or stage, and item@category come first so lines from
// parallel workers stay readable. Remaining fields follow in emission order,
// with error_hint and impact moved to the end.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Level
	addSource bool
	attrs     []slog.Attr
	groups    []string
}

func newConsoleHandler(w io.Writer, level slog.Level, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		fields = appendField(fields, h.groups, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.groups, a)
		return true
	})
	head, rest := splitHeader(fields)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	head.writeTo(&buf)
	buf.WriteByte(' ')
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}
	for _, f := range rest {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(f.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

type field struct {
	key   string
	value slog.Value
}

func appendField(dst []field, groups []string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := groups
		if a.Key != "" {
			inner = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			dst = appendField(dst, inner, ga)
		}
		return dst
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
	}
	return append(dst, field{key: key, value: a.Value})
}

// header holds the pipeline fields rendered ahead of the message. The last
// value wins when a key is attached more than once.
type header struct {
	runID     string
	component string
	stage     string
	item      string
	rename    string
	category  string
}

func splitHeader(fields []field) (header, []field) {
	var (
		h    header
		rest = make([]field, 0, len(fields))
		tail []field
	)
	for _, f := range fields {
		switch f.key {
		case FieldRunID:
			h.runID = attrString(f.value)
		case FieldComponent:
			h.component = attrString(f.value)
		case FieldStage:
			h.stage = attrString(f.value)
		case FieldItem:
			h.item = attrString(f.value)
		case FieldRename:
			h.rename = attrString(f.value)
		case FieldCategory:
			h.category = attrString(f.value)
		case FieldErrorHint, FieldImpact:
			tail = append(tail, f)
		default:
			rest = append(rest, f)
		}
	}
	if h.item != "" && h.rename != "" && h.rename != h.item {
		rest = append([]field{{key: FieldRename, value: slog.StringValue(h.rename)}}, rest...)
	}
	return h, append(rest, tail...)
}

func (h header) writeTo(buf *bytes.Buffer) {
	if h.runID != "" {
		buf.WriteString(" [")
		buf.WriteString(shortRunID(h.runID))
		buf.WriteByte(']')
	}
	source := h.component
	if source == "" {
		source = h.stage
	} else if h.stage != "" && h.stage != h.component {
		source = h.component + "/" + h.stage
	}
	subject := h.item
	if subject == "" {
		subject = h.rename
	}
	if subject != "" && h.category != "" {
		subject += "@" + h.category
	}
	if source == "" && subject == "" {
		return
	}
	for _, part := range []string{source, subject} {
		if part != "" {
			buf.WriteByte(' ')
			buf.WriteString(part)
		}
	}
	buf.WriteByte(':')
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
