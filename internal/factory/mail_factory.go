package factory

import (
	"context"
	"io"

	"github.com/mikey/mail-triage/internal/adapters/gmail"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MailFactory creates the mail-service client
type MailFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	taxonomy *core.Taxonomy
	in       io.Reader
	out      io.Writer
}

// NewMailFactory creates a new mail factory. in and out are used for the
// interactive authorization when no token is cached; either may be nil.
func NewMailFactory(cfg *config.Config, logger *zap.Logger, taxonomy *core.Taxonomy, in io.Reader, out io.Writer) *MailFactory {
	return &MailFactory{
		cfg:      cfg,
		logger:   logger,
		taxonomy: taxonomy,
		in:       in,
		out:      out,
	}
}

// CreateMailService authorizes against Gmail and returns the client
func (f *MailFactory) CreateMailService(ctx context.Context) (*gmail.Client, error) {
	gmailCfg, err := f.cfg.GetGmail()
	if err != nil {
		return nil, err
	}

	auth := &gmail.Authorizer{
		CredentialsFile: gmailCfg.CredentialsFile,
		TokenFile:       gmailCfg.TokenFile,
		In:              f.in,
		Out:             f.out,
	}
	httpClient, err := auth.Client(ctx)
	if err != nil {
		return nil, err
	}

	opts := gmail.DefaultOptions()
	opts.User = gmailCfg.User
	if gmailCfg.PageSize > 0 {
		opts.PageSize = gmailCfg.PageSize
	}
	if gmailCfg.BreakerFailures > 0 {
		opts.BreakerFailures = gmailCfg.BreakerFailures
	}
	if gmailCfg.BreakerOpenDelay > 0 {
		opts.BreakerOpenDelay = gmailCfg.BreakerOpenDelay
	}
	opts.MaxBody = f.cfg.GetClassifier().MaxBodySize

	f.logger.Info("Connecting to Gmail", zap.String("user", opts.User))
	return gmail.NewClient(ctx, httpClient, f.taxonomy, opts, f.logger)
}
