package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

type field struct {
	key string
	val slog.Value
}

// sink serializes writes from every handler cloned off the same root.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) write(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line)
	return err
}

// consoleHandler renders one line per record:
//
//	2026-01-02 15:04:05 INFO [workflow] save(PROJ_MOD.ma): snapshot written version=v003
//
// Component, operation and path are lifted out of the field list into the
// line prefix. Request ids only show up at debug level.
type consoleHandler struct {
	out    *sink
	level  slog.Leveler
	source bool
	fields []field
	prefix string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{out: &sink{w: w}, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = make([]field, 0, len(h.fields)+len(attrs))
	next.fields = append(next.fields, h.fields...)
	for _, attr := range attrs {
		next.fields = appendField(next.fields, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	all := make([]field, 0, len(h.fields)+record.NumAttrs())
	all = append(all, h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		all = appendField(all, h.prefix, attr)
		return true
	})

	var component, operation, path string
	extra := make([]field, 0, len(all))
	for _, f := range lastWins(all) {
		switch f.key {
		case FieldComponent:
			component = plainValue(f.val)
		case FieldOperation:
			operation = plainValue(f.val)
		case FieldPath:
			path = plainValue(f.val)
		case FieldRequestID:
			if record.Level < slog.LevelInfo {
				extra = append(extra, f)
			}
		default:
			extra = append(extra, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelName(record.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject := subjectOf(operation, path); subject != "" {
		b.WriteString(" " + subject + ":")
	}
	b.WriteByte(' ')
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	for _, f := range extra {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(renderValue(f.key, f.val))
	}
	if h.source && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')
	return h.out.write(b.String())
}

// subjectOf reads as "save(PROJ_MOD.ma)"; only the base name of the path is
// shown since project roots are long and identical across a session.
func subjectOf(operation, path string) string {
	operation = strings.TrimSpace(operation)
	if path = strings.TrimSpace(path); path != "" {
		path = filepath.Base(path)
	}
	switch {
	case operation != "" && path != "":
		return operation + "(" + path + ")"
	case path != "":
		return path
	default:
		return operation
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		nested := joinKey(prefix, attr.Key)
		for _, child := range val.Group() {
			dst = appendField(dst, nested, child)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: joinKey(prefix, attr.Key), val: val})
}

// lastWins keeps the first position of each key with the latest value, so a
// field re-set by a nested logger overrides the inherited one in place.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].val = f.val
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func plainValue(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// renderValue formats a field for the console. Version numbers use the same
// vNNN form as file names; negative versions mean unversioned.
func renderValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		n := v.Int64()
		if isVersionKey(key) {
			if n < 0 {
				return "none"
			}
			return fmt.Sprintf("v%03d", n)
		}
		return strconv.FormatInt(n, 10)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		if v.Time().IsZero() {
			return `""`
		}
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindBool, slog.KindUint64, slog.KindFloat64:
		return v.String()
	}
	return quoteIfNeeded(plainValue(v))
}

func isVersionKey(key string) bool {
	key = key[strings.LastIndexByte(key, '.')+1:]
	return key == "version" || strings.HasSuffix(key, "_version")
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

// newJSONHandler emits one object per line with short keys (ts, level, msg)
// and UTC timestamps for log shippers.
func newJSONHandler(w io.Writer, level slog.Leveler, source bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   source,
		ReplaceAttr: shortenJSONAttr,
	})
}

func shortenJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
	case slog.LevelKey:
		return slog.String("level", strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String("source", filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
		}
	}
	return attr
}
