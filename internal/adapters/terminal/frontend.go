// Package terminal renders review prompts and classification results on a
// terminal and reads the reviewer's answers.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mikey/mail-triage/internal/review"
)

// FrontEnd implements review.FrontEnd over a line-oriented terminal
type FrontEnd struct {
	in  *bufio.Reader
	out io.Writer
}

// NewFrontEnd creates a front end reading answers from in and writing prompts to out
func NewFrontEnd(in io.Reader, out io.Writer) *FrontEnd {
	return &FrontEnd{in: bufio.NewReader(in), out: out}
}

// Present shows one cluster and reads answers until a valid one is given.
// End of input aborts the session.
func (f *FrontEnd) Present(ctx context.Context, p review.Prompt) (review.Response, error) {
	f.render(p)
	for {
		if err := ctx.Err(); err != nil {
			return review.Response{}, err
		}
		fmt.Fprint(f.out, "[c]onfirm, [s]kip, [q]uit or category number > ")

		line, err := f.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return review.Response{}, fmt.Errorf("failed to read answer: %w", err)
		}
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
			fmt.Fprintln(f.out)
			return review.Response{Action: review.ActionAbort}, nil
		}

		resp, ok := parseAnswer(strings.TrimSpace(line), p)
		if ok {
			return resp, nil
		}
		fmt.Fprintf(f.out, "Unrecognised answer %q\n", strings.TrimSpace(line))
		if errors.Is(err, io.EOF) {
			return review.Response{Action: review.ActionAbort}, nil
		}
	}
}

func (f *FrontEnd) render(p review.Prompt) {
	fmt.Fprintf(f.out, "\n=== Cluster %d of %d ===\n", p.Position, p.Total)
	fmt.Fprintf(f.out, "Predicted: %s (mean confidence %.2f, %d messages)\n", p.Predicted, p.MeanConfidence, p.Size)
	for i, s := range p.Samples {
		fmt.Fprintf(f.out, "  %d. %s | %s\n", i+1, s.Sender, s.Subject)
		if s.Snippet != "" {
			fmt.Fprintf(f.out, "     %s\n", s.Snippet)
		}
	}
	fmt.Fprintln(f.out, "Categories:")
	for i, c := range p.Categories {
		fmt.Fprintf(f.out, "  %2d) %s\n", i+1, c)
	}
}

func parseAnswer(answer string, p review.Prompt) (review.Response, bool) {
	switch strings.ToLower(answer) {
	case "c", "y", "confirm", "yes":
		return review.Response{Action: review.ActionConfirm}, true
	case "s", "skip", "":
		return review.Response{Action: review.ActionSkip}, true
	case "q", "quit", "abort":
		return review.Response{Action: review.ActionAbort}, true
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(p.Categories) {
		return review.Response{}, false
	}
	category := p.Categories[n-1]
	if category == p.Predicted {
		return review.Response{Action: review.ActionConfirm}, true
	}
	return review.Response{Action: review.ActionCorrect, Category: category}, true
}
