package terminal

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/scan"
	"github.com/mikey/mail-triage/internal/training"
)

// Printer writes human-readable reports
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a printer. Verbose output includes body previews and
// every vote.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose}
}

// Classification prints a message summary and its classification result
func (p *Printer) Classification(msg *core.Message, result *core.ClassificationResult, taxonomy *core.Taxonomy, duration time.Duration) {
	fmt.Fprintf(p.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(p.out, "From: %s\n", msg.Sender)
	fmt.Fprintf(p.out, "Subject: %s\n", msg.Subject)
	if !msg.Timestamp.IsZero() {
		fmt.Fprintf(p.out, "Date: %s\n", msg.Timestamp.Format(time.RFC1123Z))
	}
	fmt.Fprintf(p.out, "Body length: %d bytes\n", len(msg.BodyExcerpt))
	if msg.HasAttachment {
		fmt.Fprintf(p.out, "Attachments: yes\n")
	}

	if p.verbose {
		preview := []rune(msg.BodyExcerpt)
		if len(preview) > 500 {
			preview = append(preview[:500], []rune("...")...)
		}
		fmt.Fprintf(p.out, "\nBody preview:\n%s\n", string(preview))
	}

	fmt.Fprintf(p.out, "\n=== Results ===\n")
	fmt.Fprintf(p.out, "Category: %s\n", result.Category)
	fmt.Fprintf(p.out, "Label: %s\n", taxonomy.LabelName(result.Category))
	fmt.Fprintf(p.out, "Confidence: %.4f\n", result.Confidence)
	fmt.Fprintf(p.out, "Method: %s\n", result.Method)
	fmt.Fprintf(p.out, "Uncertain: %t\n", result.Uncertain)
	fmt.Fprintf(p.out, "Rule table: %s\n", result.RuleTableVersion)
	fmt.Fprintf(p.out, "Snapshot: %s\n", result.SnapshotVersion)
	fmt.Fprintf(p.out, "Processing time: %v\n", duration)

	if p.verbose {
		fmt.Fprintf(p.out, "\nVotes:\n")
		for _, v := range result.Votes {
			fmt.Fprintf(p.out, "  %-12s %-28s %.4f\n", v.ModelID, v.Category, v.Confidence)
		}
		for _, d := range result.Dropped {
			fmt.Fprintf(p.out, "  %-12s dropped: %s\n", d.ModelID, d.Reason)
		}
	}
}

// ScanState prints the progress record of a scan session
func (p *Printer) ScanState(state *scan.State) {
	fmt.Fprintf(p.out, "Session: %s\n", state.SessionID)
	fmt.Fprintf(p.out, "Mode: %s\n", state.Mode)
	fmt.Fprintf(p.out, "Status: %s\n", state.Status)
	fmt.Fprintf(p.out, "Started: %s\n", state.SessionStart.Format(time.RFC3339))
	fmt.Fprintf(p.out, "Updated: %s\n", state.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(p.out, "Processed: %d (uncertain %d, skipped %d, failed %d)\n",
		state.ProcessedCount, state.UncertainCount, state.SkippedCount, len(state.Failed))
	fmt.Fprintf(p.out, "Batches committed: %d\n", state.BatchesCommitted)
	if state.LabelFailures > 0 {
		fmt.Fprintf(p.out, "Labels not applied: %d\n", state.LabelFailures)
	}
	if state.LastError != "" {
		fmt.Fprintf(p.out, "Last error: %s\n", state.LastError)
	}

	categories := make([]core.Category, 0, len(state.CategoryCounts))
	for c := range state.CategoryCounts {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		ci, cj := state.CategoryCounts[categories[i]], state.CategoryCounts[categories[j]]
		if ci != cj {
			return ci > cj
		}
		return categories[i] < categories[j]
	})
	if len(categories) > 0 {
		fmt.Fprintf(p.out, "Categories:\n")
		for _, c := range categories {
			fmt.Fprintf(p.out, "  %-28s %d\n", c, state.CategoryCounts[c])
		}
	}
	if p.verbose {
		for _, f := range state.Failed {
			fmt.Fprintf(p.out, "  failed %s after %d attempts: %s\n", f.ID, f.Attempts, f.Reason)
		}
	}
}

// ReviewSummary prints the outcome of a review session
func (p *Printer) ReviewSummary(summary review.Summary, report *training.Report) {
	fmt.Fprintf(p.out, "\n=== Review ===\n")
	fmt.Fprintf(p.out, "Review session: %s (scan %s)\n", summary.ReviewSessionID, summary.ScanSessionID)
	fmt.Fprintf(p.out, "Clusters: %d (confirmed %d, corrected %d, skipped %d)\n",
		summary.Clusters, summary.Confirmed, summary.Corrected, summary.Skipped)
	fmt.Fprintf(p.out, "Records: %d confirmations, %d corrections\n", summary.ConfirmationRecords, summary.CorrectionRecords)
	if summary.Aborted {
		fmt.Fprintf(p.out, "Session aborted, retraining skipped\n")
	}
	if report != nil {
		p.TrainingReport(report)
	}
}

// TrainingReport prints the outcome of a retraining run
func (p *Printer) TrainingReport(report *training.Report) {
	fmt.Fprintf(p.out, "\n=== Retraining ===\n")
	fmt.Fprintf(p.out, "Candidate: %s (held-out accuracy %.4f)\n", report.Version, report.Accuracy)
	if report.PreviousVersion != "" {
		fmt.Fprintf(p.out, "Previous: %s (held-out accuracy %.4f)\n", report.PreviousVersion, report.PreviousAccuracy)
	}
	fmt.Fprintf(p.out, "Training examples: %d, validation examples: %d\n", report.TrainingSize, report.ValidationSize)
	switch {
	case report.Promoted:
		fmt.Fprintf(p.out, "Promoted %s\n", report.Version)
	case report.RolledBack:
		fmt.Fprintf(p.out, "Accuracy regressed, kept %s\n", report.PreviousVersion)
	}
	if report.RulesLearned {
		fmt.Fprintf(p.out, "Learned sender domains into rule table %s\n", report.RuleTableVersion)
	}
}

// Snapshot prints the identity and metrics of a snapshot
func (p *Printer) Snapshot(snap *ensemble.Snapshot) {
	fmt.Fprintf(p.out, "Snapshot: %s\n", snap.Version)
	fmt.Fprintf(p.out, "Created: %s\n", snap.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(p.out, "Taxonomy: %s\n", snap.Taxonomy)
	fmt.Fprintf(p.out, "Held-out accuracy: %.4f\n", snap.Metrics.HeldOutAccuracy)
	if p.verbose {
		models := make([]string, 0, len(snap.Metrics.ModelAccuracy))
		for m := range snap.Metrics.ModelAccuracy {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			fmt.Fprintf(p.out, "  %-12s %.4f\n", m, snap.Metrics.ModelAccuracy[m])
		}
	}
}
