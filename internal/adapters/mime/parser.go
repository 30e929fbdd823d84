// Package mime turns raw RFC 5322 messages into message records
package mime

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/features"
)

var (
	tagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]*>`)
	entityReplace = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'")
)

// Parse reads a raw message and fills the header-derived fields of a
// message record. The body excerpt holds at most maxBody bytes of text,
// preferring text/plain parts over text/html ones.
func Parse(raw []byte, maxBody int) (*core.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}
	defer mr.Close()

	msg := &core.Message{}
	if id, err := mr.Header.MessageID(); err == nil {
		msg.ID = id
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(subject)
	} else {
		msg.Subject = strings.TrimSpace(mr.Header.Get("Subject"))
	}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = from[0].Address
		if from[0].Name != "" {
			msg.Sender = fmt.Sprintf("%s <%s>", from[0].Name, from[0].Address)
		}
	} else {
		msg.Sender = strings.TrimSpace(mr.Header.Get("From"))
	}
	msg.SenderDomain = features.DomainOf(msg.Sender)

	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		msg.Timestamp = date
	}

	var plain, html strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				continue
			}
			// Keep whatever text was read before the broken part
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			switch contentType {
			case "text/plain", "":
				appendText(&plain, part.Body, maxBody)
			case "text/html":
				appendText(&html, part.Body, maxBody)
			}
		case *mail.AttachmentHeader:
			msg.HasAttachment = true
		}
	}

	body := plain.String()
	if strings.TrimSpace(body) == "" {
		body = StripHTML(html.String())
	}
	msg.BodyExcerpt = truncate(strings.TrimSpace(body), maxBody)
	return msg, nil
}

func appendText(sb *strings.Builder, r io.Reader, maxBody int) {
	if maxBody > 0 && sb.Len() >= maxBody {
		return
	}
	limit := int64(1 << 20)
	if maxBody > 0 {
		// html needs headroom for the markup that gets stripped
		limit = int64(maxBody * 4)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil && len(data) == 0 {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.Write(data)
}

// StripHTML removes markup and collapses whitespace
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = entityReplace.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxBody int) string {
	if maxBody <= 0 || len(s) <= maxBody {
		return s
	}
	cut := maxBody
	// back up to a rune boundary
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Timestamp converts a mail-service internal date in milliseconds
func Timestamp(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
