package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyPermalink  = "permalink"
	KeySection    = "section"
	KeyLang       = "lang"
	KeyTaxonomy   = "taxonomy"
	KeyTerm       = "term"
	KeyCount      = "count"
	KeyURL        = "url"
	KeyMode       = "mode"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr          { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr          { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr      { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr              { return slog.String(KeyPath, p) }
func Permalink(p string) slog.Attr         { return slog.String(KeyPermalink, p) }
func Section(s string) slog.Attr           { return slog.String(KeySection, s) }
func Lang(l string) slog.Attr              { return slog.String(KeyLang, l) }
func Taxonomy(name string) slog.Attr       { return slog.String(KeyTaxonomy, name) }
func Term(name string) slog.Attr           { return slog.String(KeyTerm, name) }
func Count(n int) slog.Attr                { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr               { return slog.String(KeyURL, u) }
func Mode(m string) slog.Attr              { return slog.String(KeyMode, m) }
func Duration(d time.Duration) slog.Attr   { return DurationMS(float64(d.Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
