package core

import (
	"strings"
	"time"
)

// Message represents a message record fetched from the mail service.
// It is treated as immutable once fetched.
type Message struct {
	ID            string
	ThreadID      string
	Sender        string
	SenderDomain  string
	Subject       string
	BodyExcerpt   string
	Snippet       string
	Timestamp     time.Time
	Labels        []string
	HasAttachment bool
}

// MessageSummary is the reviewable subset of a message kept alongside results
type MessageSummary struct {
	Sender  string `json:"sender"`
	Domain  string `json:"domain"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// Text returns the text used to compare messages during review and retraining
func (s MessageSummary) Text() string {
	return strings.TrimSpace(s.Subject + " " + s.Snippet + " " + s.Sender)
}

// Summary returns the reviewable subset of the message
func (m *Message) Summary() MessageSummary {
	snippet := m.Snippet
	if snippet == "" {
		snippet = m.BodyExcerpt
		if r := []rune(snippet); len(r) > 200 {
			snippet = string(r[:200])
		}
	}
	return MessageSummary{
		Sender:  m.Sender,
		Domain:  m.SenderDomain,
		Subject: m.Subject,
		Snippet: snippet,
	}
}

// systemLabels are the mail-service labels that do not count as organization
var systemLabels = map[string]bool{
	"INBOX": true, "UNREAD": true, "STARRED": true, "IMPORTANT": true,
	"SENT": true, "DRAFT": true, "SPAM": true, "TRASH": true, "CHAT": true,
}

// IsSystemLabel reports whether a label id is managed by the mail service itself
func IsSystemLabel(label string) bool {
	return systemLabels[label] || strings.HasPrefix(label, "CATEGORY_") || strings.HasSuffix(label, "_STAR")
}

// HasUserLabels reports whether any label is not a system label
func HasUserLabels(labels []string) bool {
	for _, l := range labels {
		if !IsSystemLabel(l) {
			return true
		}
	}
	return false
}

// TimeBucket groups the hour of day a message arrived
type TimeBucket string

const (
	BucketNight     TimeBucket = "night"
	BucketMorning   TimeBucket = "morning"
	BucketAfternoon TimeBucket = "afternoon"
	BucketEvening   TimeBucket = "evening"
)

// Features is the normalized representation of a message.
// It is a pure function of the message and never mutated.
type Features struct {
	MessageID      string
	Domain         string
	SubjectText    string
	BodyText       string
	// RawSubject and RawBody keep case and accents for case-sensitive rules
	RawSubject     string
	RawBody        string
	Tokens         []string
	TimeBucket     TimeBucket
	DayOfWeek      time.Weekday
	Weekend        bool
	HasAttachment  bool
	HasLinks       bool
	IsReply        bool
	HasUnsubscribe bool
	NoReplySender  bool
	Summary        MessageSummary
}

// ModelTokens returns the normalized tokens plus synthetic tokens for the
// domain, time bucket and structural flags
func (f *Features) ModelTokens() []string {
	tokens := make([]string, 0, len(f.Tokens)+8)
	tokens = append(tokens, f.Tokens...)
	if f.Domain != "" {
		tokens = append(tokens, "__domain_"+f.Domain)
	}
	if f.TimeBucket != "" {
		tokens = append(tokens, "__time_"+string(f.TimeBucket))
	}
	if f.Weekend {
		tokens = append(tokens, "__weekend")
	}
	if f.HasAttachment {
		tokens = append(tokens, "__attachment")
	}
	if f.HasLinks {
		tokens = append(tokens, "__links")
	}
	if f.IsReply {
		tokens = append(tokens, "__reply")
	}
	if f.HasUnsubscribe {
		tokens = append(tokens, "__unsubscribe")
	}
	if f.NoReplySender {
		tokens = append(tokens, "__noreply")
	}
	return tokens
}

// Text returns the normalized tokens joined by spaces
func (f *Features) Text() string {
	return strings.Join(f.Tokens, " ")
}

// Vote is one model's opinion on a message
type Vote struct {
	ModelID    string   `json:"model_id"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// DroppedVote records an ensemble member whose vote was discarded
type DroppedVote struct {
	ModelID string `json:"model_id"`
	Reason  string `json:"reason"`
}

// RuleScore is the score of one category under the rule table
type RuleScore struct {
	Category Category
	Score    float64
	Raw      float64
}

// RuleResult is the output of the rule scorer. Scores only holds categories
// that cleared the threshold, best first.
type RuleResult struct {
	TableVersion string
	Scores       []RuleScore
}

// Decided reports whether at least one category cleared the threshold
func (r *RuleResult) Decided() bool {
	return r != nil && len(r.Scores) > 0
}

// Best returns the highest scoring category
func (r *RuleResult) Best() (RuleScore, bool) {
	if !r.Decided() {
		return RuleScore{}, false
	}
	return r.Scores[0], true
}

// DecisionMethod describes which signals produced a classification
type DecisionMethod string

const (
	MethodRule       DecisionMethod = "rule"
	MethodML         DecisionMethod = "ml"
	MethodHybrid     DecisionMethod = "hybrid"
	MethodOverridden DecisionMethod = "overridden"
	MethodNone       DecisionMethod = "none"
)

// Decision is the output of the confidence arbiter
type Decision struct {
	Category   Category
	Confidence float64
	Score      float64
	Method     DecisionMethod
	Uncertain  bool
	Votes      []Vote
}

// ClassificationResult is the final outcome for one message in one scan session.
// It is appended to the result log and never mutated afterwards.
type ClassificationResult struct {
	SessionID        string         `json:"session_id"`
	MessageID        string         `json:"message_id"`
	Category         Category       `json:"category"`
	Confidence       float64        `json:"confidence"`
	Score            float64        `json:"score"`
	Method           DecisionMethod `json:"method"`
	Uncertain        bool           `json:"uncertain"`
	Votes            []Vote         `json:"votes"`
	Dropped          []DroppedVote  `json:"dropped,omitempty"`
	RuleTableVersion string         `json:"rule_table_version"`
	SnapshotVersion  string         `json:"snapshot_version"`
	Summary          MessageSummary `json:"summary"`
	// Batch is the scan batch whose commit appended the result
	Batch            int            `json:"batch"`
	ClassifiedAt     time.Time      `json:"classified_at"`
}

// Correction is a human-supplied relabelling of a previously classified message
type Correction struct {
	ID                string         `json:"id"`
	MessageID         string         `json:"message_id"`
	SessionID         string         `json:"session_id"`
	ReviewSessionID   string         `json:"review_session_id"`
	ClusterID         int            `json:"cluster_id"`
	OriginalCategory  Category       `json:"original_category"`
	CorrectedCategory Category       `json:"corrected_category"`
	Summary           MessageSummary `json:"summary"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Confirmation records a reviewer accepting a predicted category
type Confirmation struct {
	ID              string         `json:"id"`
	MessageID       string         `json:"message_id"`
	SessionID       string         `json:"session_id"`
	ReviewSessionID string         `json:"review_session_id"`
	ClusterID       int            `json:"cluster_id"`
	Category        Category       `json:"category"`
	Summary         MessageSummary `json:"summary"`
	CreatedAt       time.Time      `json:"created_at"`
}
