package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders v without quoting, for values the console handler lifts
// out of the key=value tail.
func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return renderValue(v)
}

// formatValue renders v for the key=value tail, quoting when the text would
// be ambiguous.
func formatValue(v slog.Value) string {
	s := renderValue(v.Resolve())
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return formatFloat(v.Float64())
	case slog.KindDuration:
		return formatDuration(v.Duration())
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case []float64:
			parts := make([]string, len(x))
			for i, f := range x {
				parts[i] = formatFloat(f)
			}
			return "[" + strings.Join(parts, " ") + "]"
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// formatFloat keeps six significant digits. Levels, frequencies and sample
// rates read cleanly and float noise from dB arithmetic is hidden.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// formatDuration rounds to milliseconds above one second.
func formatDuration(d time.Duration) string {
	if d >= time.Second {
		d = d.Round(time.Millisecond)
	}
	return d.String()
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
