package gmail

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mikey/mail-triage/internal/core"
	"google.golang.org/api/gmail/v1"
)

// iterator pages through a message listing. Its cursor is the token of the
// page holding a candidate plus the number of entries consumed from it. A
// resumed listing re-fetches that page from its start: the listing may have
// shrunk since, so entries are never skipped by offset and the caller drops
// the ones it already handled.
type iterator struct {
	client    *Client
	query     string
	pageToken string
	nextToken string
	page      []*gmail.Message
	index     int
	fetched   bool
	done      bool
}

// Buffered returns how many candidates can be served without an API call
func (it *iterator) Buffered() int {
	return len(it.page) - it.index
}

// Next returns the next candidate or io.EOF
func (it *iterator) Next(ctx context.Context) (core.Candidate, error) {
	for it.index >= len(it.page) {
		if it.done {
			return core.Candidate{}, io.EOF
		}
		if it.fetched {
			if it.nextToken == "" {
				it.done = true
				return core.Candidate{}, io.EOF
			}
			it.pageToken = it.nextToken
		}
		if err := it.fetch(ctx); err != nil {
			return core.Candidate{}, err
		}
	}

	m := it.page[it.index]
	it.index++
	return core.Candidate{
		ID:     m.Id,
		Cursor: formatCursor(it.pageToken, it.index),
		Labels: m.LabelIds,
	}, nil
}

func (it *iterator) fetch(ctx context.Context) error {
	var resp *gmail.ListMessagesResponse
	err := it.client.execute("list_messages", func() error {
		var err error
		resp, err = it.client.api.ListMessages(ctx, it.query, it.pageToken, it.client.opts.PageSize)
		return err
	})
	if err != nil {
		return err
	}

	it.fetched = true
	it.page = resp.Messages
	it.nextToken = resp.NextPageToken
	it.index = 0
	return nil
}

func formatCursor(pageToken string, consumed int) string {
	return pageToken + "|" + strconv.Itoa(consumed)
}

// parseCursor returns the page token a cursor points into
func parseCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	i := strings.LastIndex(cursor, "|")
	if i < 0 {
		return "", fmt.Errorf("invalid listing cursor %q", cursor)
	}
	if n, err := strconv.Atoi(cursor[i+1:]); err != nil || n < 0 {
		return "", fmt.Errorf("invalid listing cursor %q", cursor)
	}
	return cursor[:i], nil
}
