package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Stage", KeyStage, "sections", Stage("sections")},
		{"Path", KeyPath, "/content/a.md", Path("/content/a.md")},
		{"Permalink", KeyPermalink, "https://x/a/", Permalink("https://x/a/")},
		{"Section", KeySection, "blog", Section("blog")},
		{"Lang", KeyLang, "fr", Lang("fr")},
		{"Taxonomy", KeyTaxonomy, "tags", Taxonomy("tags")},
		{"Term", KeyTerm, "rust", Term("rust")},
		{"URL", KeyURL, "http://example", URL("http://example")},
		{"Mode", KeyMode, "memory", Mode("memory")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Fatalf("unexpected count attr %v", a)
	}
	if a := Duration(1500 * time.Microsecond); a.Value.Float64() != 1.5 {
		t.Fatalf("expected 1.5ms, got %v", a.Value.Float64())
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should log empty string, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error value %q", a.Value.String())
	}
}
