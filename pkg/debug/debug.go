// Package debug sets up funcall's slog output and adds category-scoped
// debug logging on top of it.
//
// Levels decide how much is logged at all (FUNCALL_LOG_LEVEL, LOG_LEVEL or
// logging.level). Categories decide which subsystems emit debug records
// (FUNCALL_DEBUG or logging.debug):
//
//	debug.Log("providers", "inference request", "dialect", "chat", "tools", 3)
//	if debug.Enabled("engine") { /* expensive formatting */ }
//
// Categories in use: providers, engine, tools, mcp, cluster, session,
// transport, config. "all" enables every category.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"
)

// LevelTrace sits below slog.LevelDebug. Full model output and capability
// results are only logged at this level.
const LevelTrace = slog.LevelDebug - 4

// categories is written by init and Init only.
var categories = parseCategories(os.Getenv("FUNCALL_DEBUG"))

// Init installs the default slog logger and the enabled categories.
// Environment variables win over the configured values. format is "json"
// for JSON records; anything else selects the text handler.
func Init(configCategories, configLevel, format string) {
	categories = parseCategories(firstNonEmpty(os.Getenv("FUNCALL_DEBUG"), configCategories))

	level := ParseLevel(firstNonEmpty(os.Getenv("FUNCALL_LOG_LEVEL"), os.Getenv("LOG_LEVEL"), configLevel))
	slog.SetDefault(slog.New(NewHandler(os.Stderr, level, format)))
}

// NewHandler returns the slog handler Init installs, writing to w.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Enabled reports whether category emits debug records.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a DEBUG record tagged with category, if it is enabled.
func Log(category string, msg string, args ...any) {
	if Enabled(category) {
		slog.Debug(msg, append([]any{"debug", category}, args...)...)
	}
}

// Trace emits a TRACE record tagged with category, if it is enabled.
func Trace(category string, msg string, args ...any) {
	if Enabled(category) {
		slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names are INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories, sorted.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence and marks the cut with "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
