package gmail

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-triage/internal/core"
)

// BuildQuery turns a list filter into a Gmail search query. Chats, drafts,
// spam and trash never take part in a scan.
func BuildQuery(filter core.ListFilter) string {
	parts := make([]string, 0, 6)
	if q := strings.TrimSpace(filter.Query); q != "" {
		parts = append(parts, q)
	}
	if filter.DaysBack > 0 {
		parts = append(parts, fmt.Sprintf("newer_than:%dd", filter.DaysBack))
	}
	if filter.UnlabeledOnly {
		parts = append(parts, "has:nouserlabels")
	}
	parts = append(parts, "-in:chats", "-in:drafts", "-in:spam", "-in:trash")
	return strings.Join(parts, " ")
}
