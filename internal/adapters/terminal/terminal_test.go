package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/scan"
)

func prompt() review.Prompt {
	return review.Prompt{
		ClusterID:      1,
		Position:       1,
		Total:          2,
		Predicted:      core.CategoryFinanceBills,
		MeanConfidence: 0.41,
		Size:           3,
		Samples: []core.MessageSummary{
			{Sender: "alerts@hdfcbank.com", Subject: "Statement ready", Snippet: "Your statement"},
		},
		Categories: []core.Category{core.CategoryFinanceBills, core.CategoryPromotionsMarketing},
	}
}

func TestPresentParsesAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  review.Response
	}{
		{"c\n", review.Response{Action: review.ActionConfirm}},
		{"s\n", review.Response{Action: review.ActionSkip}},
		{"q\n", review.Response{Action: review.ActionAbort}},
		{"2\n", review.Response{Action: review.ActionCorrect, Category: core.CategoryPromotionsMarketing}},
		{"1\n", review.Response{Action: review.ActionConfirm}},
		{"9\nwhat\n2\n", review.Response{Action: review.ActionCorrect, Category: core.CategoryPromotionsMarketing}},
		{"", review.Response{Action: review.ActionAbort}},
		{"c", review.Response{Action: review.ActionConfirm}},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		fe := NewFrontEnd(strings.NewReader(tt.input), &out)
		got, err := fe.Present(context.Background(), prompt())
		if err != nil {
			t.Fatalf("Present(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Present(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestPresentRendersCluster(t *testing.T) {
	var out bytes.Buffer
	fe := NewFrontEnd(strings.NewReader("s\n"), &out)
	if _, err := fe.Present(context.Background(), prompt()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Cluster 1 of 2", "Finance & Bills", "0.41", "alerts@hdfcbank.com | Statement ready", " 2) Promotions & Marketing"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPresentHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fe := NewFrontEnd(strings.NewReader("c\n"), &bytes.Buffer{})
	if _, err := fe.Present(ctx, prompt()); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestPrinterScanState(t *testing.T) {
	state := scan.NewState("sess-1", core.ScanFull, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	state.ProcessedCount = 3
	state.CategoryCounts[core.CategoryFinanceBills] = 2
	state.CategoryCounts[core.CategoryPromotionsMarketing] = 1

	var out bytes.Buffer
	NewPrinter(&out, false).ScanState(state)
	text := out.String()
	if !strings.Contains(text, "Session: sess-1") || !strings.Contains(text, "Processed: 3") {
		t.Errorf("unexpected output:\n%s", text)
	}
	if strings.Index(text, "Finance & Bills") > strings.Index(text, "Promotions & Marketing") {
		t.Errorf("categories not ordered by count:\n%s", text)
	}
}
