package mime

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

const plainMessage = "From: Acme Bank <alerts@mail.acmebank.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Your statement is ready\r\n" +
	"Date: Mon, 03 Mar 2025 09:15:00 +0000\r\n" +
	"Message-ID: <stmt-0303@mail.acmebank.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Your monthly statement is available.\r\n"

const multipartMessage = "From: shop@store.example\r\n" +
	"Subject: =?UTF-8?Q?Order_shipped_=E2=9C=93?=\r\n" +
	"Date: Tue, 04 Mar 2025 18:00:00 +0100\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><style>p{}</style><p>Your order &amp; receipt</p></html>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=receipt.pdf\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0=\r\n" +
	"--outer--\r\n"

func TestParsePlain(t *testing.T) {
	msg, err := Parse([]byte(plainMessage), 1000)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.ID != "stmt-0303@mail.acmebank.com" {
		t.Errorf("ID = %q", msg.ID)
	}
	if msg.Sender != "Acme Bank <alerts@mail.acmebank.com>" {
		t.Errorf("Sender = %q", msg.Sender)
	}
	if msg.SenderDomain != "mail.acmebank.com" {
		t.Errorf("SenderDomain = %q", msg.SenderDomain)
	}
	if msg.Subject != "Your statement is ready" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	want := time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC)
	if !msg.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, want)
	}
	if msg.BodyExcerpt != "Your monthly statement is available." {
		t.Errorf("BodyExcerpt = %q", msg.BodyExcerpt)
	}
	if msg.HasAttachment {
		t.Error("HasAttachment = true for a plain message")
	}
}

func TestParseMultipart(t *testing.T) {
	msg, err := Parse([]byte(multipartMessage), 1000)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.Subject != "Order shipped ✓" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.SenderDomain != "store.example" {
		t.Errorf("SenderDomain = %q", msg.SenderDomain)
	}
	if !msg.HasAttachment {
		t.Error("attachment not detected")
	}
	if msg.BodyExcerpt != "Your order & receipt" {
		t.Errorf("BodyExcerpt = %q", msg.BodyExcerpt)
	}
}

func TestParseTruncatesBody(t *testing.T) {
	raw := "From: a@b.com\r\nSubject: long\r\n\r\n" + strings.Repeat("é", 50)
	msg, err := Parse([]byte(raw), 11)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.BodyExcerpt != strings.Repeat("é", 5) {
		t.Errorf("BodyExcerpt = %q", msg.BodyExcerpt)
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("not a header line without colon\r\n\r\n"), 100)
	if !errors.Is(err, core.ErrMalformedMessage) {
		t.Errorf("err = %v, want ErrMalformedMessage", err)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"<script>var x = 1;</script>Pay now", "Pay now"},
		{"a&nbsp;&lt;b&gt;", "a <b>"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
