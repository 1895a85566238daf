package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// FieldSubject is added to JSON records that carry a recording, stage or
// starship so log queries can group lines the way the console shows them.
const FieldSubject = "subject"

// jsonHandler wraps slog's JSON handler. Recording, stage and starship values
// seen through WithAttrs or on the record are folded into a subject field;
// the original fields are kept.
type jsonHandler struct {
	inner     slog.Handler
	recording string
	stage     string
	starship  string
	grouped   bool
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return &jsonHandler{inner: slog.NewJSONHandler(w, &opts)}, nil
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	recording, stage, starship := h.recording, h.stage, h.starship
	if !h.grouped {
		record.Attrs(func(attr slog.Attr) bool {
			noteSubjectAttr(attr, &recording, &stage, &starship)
			return true
		})
	}
	if recording != "" {
		recording = filepath.Base(recording)
	}
	subject := composeSubject(recording, stage)
	if starship != "" {
		subject = strings.TrimSpace("starship " + starship + " " + subject)
	}
	if subject != "" {
		record = record.Clone()
		record.AddAttrs(slog.String(FieldSubject, subject))
	}
	return h.inner.Handle(ctx, record)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	if !clone.grouped {
		for _, attr := range attrs {
			noteSubjectAttr(attr, &clone.recording, &clone.stage, &clone.starship)
		}
	}
	clone.inner = h.inner.WithAttrs(attrs)
	return &clone
}

func (h *jsonHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.grouped = true
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

func noteSubjectAttr(attr slog.Attr, recording, stage, starship *string) {
	switch attr.Key {
	case FieldRecording:
		*recording = attrString(attr.Value)
	case FieldStage:
		*stage = attrString(attr.Value)
	case FieldStarship:
		*starship = attrString(attr.Value)
	}
}
