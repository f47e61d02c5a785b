package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one header line per record followed by indented
// fields. Debug records list every attr; info and above list a curated
// subset and suppress fields that repeat unchanged for the same shot.
type consoleHandler struct {
	out       *consoleOutput
	level     *slog.LevelVar
	addSource bool
	preset    []field
	groups    []string
}

// consoleOutput is shared by every handler derived through WithAttrs or
// WithGroup, so writes and the repeat cache use one lock.
type consoleOutput struct {
	mu   sync.Mutex
	w    io.Writer
	last map[string]map[string]string
}

type field struct {
	key   string
	value slog.Value
}

// entry is the header of one rendered record.
type entry struct {
	at        time.Time
	level     slog.Level
	component string
	shot      string
	runID     string
	message   string
	source    *slog.Source
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &consoleOutput{w: w, last: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	fields := append(make([]field, 0, len(h.preset)+r.NumAttrs()), h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendFlat(fields, h.groups, a)
		return true
	})
	fields = lastWins(fields)

	e := entry{
		at:        r.Time,
		level:     r.Level,
		component: lookup(fields, FieldComponent),
		shot:      lookup(fields, FieldShot),
		runID:     lookup(fields, FieldRunID),
		message:   strings.TrimSpace(r.Message),
	}
	if e.at.IsZero() {
		e.at = time.Now()
	}
	if e.message == "" {
		e.message = "(no message)"
	}
	if h.addSource {
		e.source = r.Source()
	}

	var buf bytes.Buffer
	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	e.writeHeader(&buf)
	if r.Level < slog.LevelInfo {
		writeEveryField(&buf, fields)
	} else {
		h.out.writeSummary(&buf, e, fields)
	}
	_, err := h.out.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	for _, a := range attrs {
		next.preset = appendFlat(next.preset, h.groups, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func (e entry) writeHeader(buf *bytes.Buffer) {
	buf.WriteString(formatTimestamp(e.at))
	buf.WriteString(" " + levelLabel(e.level))
	if e.component != "" {
		buf.WriteString(" [" + e.component + "]")
	}
	if subject := composeSubject(e.shot, e.runID); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" - " + e.message)
	if e.source != nil && e.source.File != "" {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(e.source.File), e.source.Line)
	}
	buf.WriteByte('\n')
}

func writeEveryField(buf *bytes.Buffer, fields []field) {
	for _, f := range fields {
		fmt.Fprintf(buf, "    %s: %s\n", f.key, formatValue(f.value))
	}
}

func (o *consoleOutput) writeSummary(buf *bytes.Buffer, e entry, fields []field) {
	shown, hidden := selectInfoFields(fields, infoAttrLimit)
	shown = o.dropRepeats(infoSummaryKey(e.component, e.shot), shown, e.level > slog.LevelInfo)
	for _, f := range shown {
		fmt.Fprintf(buf, "    - %s: %s\n", f.label, f.value)
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(buf, "    + %d more fields hidden\n", hidden)
	}
}

// dropRepeats removes fields whose value matches the last one printed under
// key. Warnings and errors always print in full but still update the cache.
func (o *consoleOutput) dropRepeats(key string, fields []infoField, keepAll bool) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	seen := o.last[key]
	if seen == nil {
		seen = make(map[string]string)
		o.last[key] = seen
	}
	kept := make([]infoField, 0, len(fields))
	for _, f := range fields {
		if prev, ok := seen[f.label]; ok && prev == f.value && !keepAll {
			continue
		}
		seen[f.label] = f.value
		kept = append(kept, f)
	}
	return kept
}

// composeSubject renders "shot_010 (run 1a2b3c4d)". Run IDs are cut at
// their first dash.
func composeSubject(shot, runID string) string {
	shot = strings.TrimSpace(shot)
	runID, _, _ = strings.Cut(strings.TrimSpace(runID), "-")
	switch {
	case shot != "" && runID != "":
		return shot + " (run " + runID + ")"
	case runID != "":
		return "run " + runID
	default:
		return shot
	}
}

// appendFlat resolves a and appends it, expanding groups into dotted keys.
func appendFlat(dst []field, groups []string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			groups = append(groups[:len(groups):len(groups)], a.Key)
		}
		for _, member := range a.Value.Group() {
			dst = appendFlat(dst, groups, member)
		}
		return dst
	}
	key := strings.Join(append(groups[:len(groups):len(groups)], a.Key), ".")
	key = strings.Trim(key, ".")
	if key == "" {
		return dst
	}
	return append(dst, field{key: key, value: a.Value})
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	at := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if i, ok := at[f.key]; ok {
			out[i].value = f.value
			continue
		}
		at[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func lookup(fields []field, key string) string {
	for _, f := range fields {
		if f.key == key {
			return attrString(f.value)
		}
	}
	return ""
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
