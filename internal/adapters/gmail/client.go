// Package gmail adapts the Gmail REST API to the mail-service boundary
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mikey/mail-triage/internal/adapters/mime"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Options tunes the Gmail client
type Options struct {
	User             string
	PageSize         int64
	MaxBody          int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		User:             "me",
		PageSize:         100,
		MaxBody:          4000,
		BreakerFailures:  5,
		BreakerOpenDelay: 30 * time.Second,
	}
}

// Client implements core.MailService on top of Gmail
type Client struct {
	api      api
	cb       *gobreaker.CircuitBreaker
	taxonomy *core.Taxonomy
	opts     Options
	logger   *zap.Logger

	labelMu sync.Mutex
	labels  map[string]string
	listed  bool
}

// NewClient creates a Gmail client using an authorized HTTP client
func NewClient(ctx context.Context, httpClient *http.Client, taxonomy *core.Taxonomy, opts Options, logger *zap.Logger) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return newClient(&serviceAPI{svc: svc, user: opts.User}, taxonomy, opts, logger), nil
}

func newClient(a api, taxonomy *core.Taxonomy, opts Options, logger *zap.Logger) *Client {
	if opts.User == "" {
		opts.User = "me"
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultOptions().BreakerFailures
	}
	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Client{
		api:      a,
		cb:       gobreaker.NewCircuitBreaker(settings),
		taxonomy: taxonomy,
		opts:     opts,
		logger:   logger,
		labels:   make(map[string]string),
	}
}

// execute runs one API call behind the circuit breaker
func (c *Client) execute(op string, fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		c.logger.Debug("Gmail call failed",
			zap.String("op", op),
			zap.String("breaker", c.cb.State().String()),
			zap.Error(err))
	}
	return wrapError(op, err)
}

// ListCandidates lists the messages matching filter, resuming at the page
// filter.After points into. A listing of unlabeled messages loses every
// message the scan labels, so its page tokens go stale and it always
// restarts from the first page.
func (c *Client) ListCandidates(ctx context.Context, filter core.ListFilter) (core.CandidateIterator, error) {
	pageToken, err := parseCursor(filter.After)
	if err != nil {
		return nil, err
	}
	if filter.UnlabeledOnly {
		pageToken = ""
	}
	query := BuildQuery(filter)
	c.logger.Debug("Listing candidates",
		zap.String("query", query),
		zap.String("after", filter.After),
		zap.String("page_token", pageToken))
	return &iterator{
		client:    c,
		query:     query,
		pageToken: pageToken,
	}, nil
}

// FetchMessage downloads and parses one message
func (c *Client) FetchMessage(ctx context.Context, id string) (*core.Message, error) {
	var raw *gmail.Message
	err := c.execute("fetch_message", func() error {
		var err error
		raw, err = c.api.GetRaw(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	data, err := base64.URLEncoding.DecodeString(raw.Raw)
	if err != nil {
		// Some responses omit the padding
		data, err = base64.RawURLEncoding.DecodeString(raw.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: message %s: %v", core.ErrMalformedMessage, id, err)
		}
	}

	msg, err := mime.Parse(data, c.opts.MaxBody)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, err)
	}
	msg.ID = raw.Id
	msg.ThreadID = raw.ThreadId
	msg.Labels = raw.LabelIds
	msg.Snippet = raw.Snippet
	if msg.Timestamp.IsZero() {
		msg.Timestamp = mime.Timestamp(raw.InternalDate)
	}
	return msg, nil
}

// ApplyCategory adds the category label to a message, creating the label
// on first use
func (c *Client) ApplyCategory(ctx context.Context, id string, category core.Category) error {
	if !c.taxonomy.Contains(category) {
		return fmt.Errorf("category %q is not part of taxonomy %s", category, c.taxonomy.Variant())
	}
	labelID, err := c.labelID(ctx, c.taxonomy.LabelName(category))
	if err != nil {
		return err
	}
	return c.execute("apply_category", func() error {
		return c.api.AddLabels(ctx, id, []string{labelID})
	})
}

func (c *Client) labelID(ctx context.Context, name string) (string, error) {
	c.labelMu.Lock()
	defer c.labelMu.Unlock()

	if id, ok := c.labels[name]; ok {
		return id, nil
	}
	if !c.listed {
		var labels []*gmail.Label
		err := c.execute("list_labels", func() error {
			var err error
			labels, err = c.api.ListLabels(ctx)
			return err
		})
		if err != nil {
			return "", err
		}
		for _, l := range labels {
			c.labels[l.Name] = l.Id
		}
		c.listed = true
		if id, ok := c.labels[name]; ok {
			return id, nil
		}
	}

	var created *gmail.Label
	err := c.execute("create_label", func() error {
		var err error
		created, err = c.api.CreateLabel(ctx, name)
		return err
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("Created label", zap.String("name", name), zap.String("id", created.Id))
	c.labels[name] = created.Id
	return created.Id, nil
}
