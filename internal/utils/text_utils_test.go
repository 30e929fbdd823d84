package utils

import (
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncateTextKeepsRunesWhole(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.TruncateText("héllo wörld", 2)
	if got != "h" {
		t.Fatalf("TruncateText = %q, want %q", got, "h")
	}
	if !utf8.ValidString(got) {
		t.Fatalf("TruncateText returned invalid UTF-8: %q", got)
	}
	if got := tp.TruncateText("short", 0); got != "short" {
		t.Errorf("TruncateText with no limit = %q", got)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	got := tp.SanitizeUTF8("ok\xffay")
	if got != "okay" {
		t.Fatalf("SanitizeUTF8 = %q, want %q", got, "okay")
	}
}

func TestFoldText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	tests := map[string]string{
		"Résumé":        "resume",
		"CRÈME Brûlée":  "creme brulee",
		"ＦＵＬＬ width": "full width",
	}
	for in, want := range tests {
		if got := tp.FoldText(in); got != want {
			t.Errorf("FoldText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a \n\t b  "); got != "a b" {
		t.Fatalf("CollapseSpace = %q", got)
	}
}
