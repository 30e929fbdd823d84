package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikey/mail-triage/internal/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes are the OAuth scopes needed to read messages and apply labels
var Scopes = []string{gmail.GmailModifyScope, gmail.GmailLabelsScope}

// Authorizer obtains an authorized HTTP client from an OAuth client
// secrets file and a cached token
type Authorizer struct {
	CredentialsFile string
	TokenFile       string
	In              io.Reader
	Out             io.Writer
}

// Client returns an HTTP client carrying the cached token. Without a cached
// token the user is asked to authorize interactively.
func (a *Authorizer) Client(ctx context.Context) (*http.Client, error) {
	data, err := os.ReadFile(a.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client credentials: %w", err)
	}
	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client credentials: %w", err)
	}

	tok, err := LoadToken(a.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		tok, err = a.authorize(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(a.TokenFile, tok); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return config.Client(ctx, tok), nil
}

func (a *Authorizer) authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	if a.In == nil || a.Out == nil {
		return nil, core.NewBoundaryError(core.KindAuthRevoked, "authorize", errors.New("no cached token and no terminal to authorize"))
	}
	url := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(a.Out, "Open the following link in your browser, then paste the authorization code:\n%s\n> ", url)

	code, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && code == "" {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	tok, err := config.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, core.NewBoundaryError(core.KindAuthRevoked, "authorize", err)
	}
	return tok, nil
}

// LoadToken reads a cached OAuth token
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken caches an OAuth token readable only by the owner
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
