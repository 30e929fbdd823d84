// Package features turns message records into normalized feature records.
package features

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	urlRe     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe   = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phoneRe   = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// DefaultMaxBody bounds the body excerpt considered for features
const DefaultMaxBody = 4096

// Extractor implements core.FeatureExtractor
type Extractor struct {
	text     *utils.TextProcessor
	maxBody  int
	location *time.Location
}

// NewExtractor creates a feature extractor. Time buckets are computed in loc,
// or UTC when loc is nil.
func NewExtractor(text *utils.TextProcessor, maxBody int, loc *time.Location) *Extractor {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{text: text, maxBody: maxBody, location: loc}
}

// Extract derives the feature record of a message
func (e *Extractor) Extract(msg *core.Message) (*core.Features, error) {
	if msg == nil || strings.TrimSpace(msg.ID) == "" {
		return nil, fmt.Errorf("missing message id: %w", core.ErrMalformedMessage)
	}
	if strings.TrimSpace(msg.Sender) == "" {
		return nil, fmt.Errorf("message %s has no sender: %w", msg.ID, core.ErrMalformedMessage)
	}

	domain := msg.SenderDomain
	if domain == "" {
		domain = DomainOf(msg.Sender)
	}
	domain = strings.ToLower(strings.TrimSpace(domain))

	body := msg.BodyExcerpt
	if body == "" {
		body = msg.Snippet
	}
	rawBody := e.text.CleanText(body, e.maxBody)
	rawSubject := e.text.CleanText(msg.Subject, 0)
	body = e.text.FoldText(rawBody)
	subject := e.text.FoldText(rawSubject)

	f := &core.Features{
		MessageID:      msg.ID,
		Domain:         domain,
		SubjectText:    utils.CollapseSpace(htmlTagRe.ReplaceAllString(subject, " ")),
		BodyText:       utils.CollapseSpace(htmlTagRe.ReplaceAllString(body, " ")),
		RawSubject:     utils.CollapseSpace(htmlTagRe.ReplaceAllString(rawSubject, " ")),
		RawBody:        utils.CollapseSpace(htmlTagRe.ReplaceAllString(rawBody, " ")),
		HasAttachment:  msg.HasAttachment,
		HasLinks:       urlRe.MatchString(body),
		IsReply:        isReply(subject),
		HasUnsubscribe: strings.Contains(body, "unsubscribe"),
		NoReplySender:  isNoReply(msg.Sender),
		Summary:        msg.Summary(),
	}
	f.Summary.Domain = domain
	f.Tokens = Tokenize(f.SubjectText + " " + f.BodyText)

	if !msg.Timestamp.IsZero() {
		ts := msg.Timestamp.In(e.location)
		f.TimeBucket = BucketFor(ts.Hour())
		f.DayOfWeek = ts.Weekday()
		f.Weekend = f.DayOfWeek == time.Saturday || f.DayOfWeek == time.Sunday
	}

	return f, nil
}

// Tokenize strips urls, addresses, phone numbers and markup from already
// folded text and returns the content tokens longer than two characters
func Tokenize(text string) []string {
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = emailRe.ReplaceAllString(text, " ")
	text = phoneRe.ReplaceAllString(text, " ")
	text = nonWordRe.ReplaceAllString(text, " ")

	fields := strings.Fields(strings.ToLower(text))
	tokens := fields[:0]
	for _, w := range fields {
		if len(w) <= 2 || isStopword(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// DomainOf returns the lowercased domain of an address such as
// "Bank <alerts@mail.bank.com>"
func DomainOf(address string) string {
	address = strings.TrimSpace(address)
	if i := strings.LastIndex(address, "<"); i >= 0 {
		address = strings.TrimSuffix(address[i+1:], ">")
	}
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(address[at+1:], " >"))
}

// BucketFor maps an hour of day to its time bucket
func BucketFor(hour int) core.TimeBucket {
	switch {
	case hour < 6:
		return core.BucketNight
	case hour < 12:
		return core.BucketMorning
	case hour < 18:
		return core.BucketAfternoon
	default:
		return core.BucketEvening
	}
}

func isReply(subject string) bool {
	for _, p := range []string{"re:", "fw:", "fwd:"} {
		if strings.HasPrefix(subject, p) {
			return true
		}
	}
	return false
}

func isNoReply(sender string) bool {
	s := strings.ToLower(sender)
	return strings.Contains(s, "noreply") || strings.Contains(s, "no-reply") || strings.Contains(s, "donotreply")
}
