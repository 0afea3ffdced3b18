// Package oauth runs the Google authorization-code handshake used by the
// spreadsheet export. One anti-forgery state token is held per session
// between the init and callback steps.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrMissingState rejects a callback whose session has no pending state
// token, or whose presented state does not match the pending one.
var ErrMissingState = errors.New("oauth state missing or expired")

// TokenExchangeError wraps a failed authorization-code exchange.
type TokenExchangeError struct {
	Err error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// StateStore holds the single pending state token per session.
type StateStore struct {
	mu     sync.Mutex
	states map[string]string
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]string)}
}

// Put replaces any pending state for the session. Only the latest issued
// state is valid.
func (s *StateStore) Put(sessionID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = state
}

// Consume removes and returns the pending state for the session. The token
// is single-use: it is cleared whether or not the caller's check succeeds.
func (s *StateStore) Consume(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[sessionID]
	delete(s.states, sessionID)
	return state, ok
}

// Flow drives the authorization-code handshake against Google.
type Flow struct {
	cfg    *oauth2.Config
	states *StateStore
	logger *logrus.Logger
}

func NewFlow(clientID, clientSecret, redirectURI string, logger *logrus.Logger) *Flow {
	return &Flow{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/drive",
				"https://www.googleapis.com/auth/spreadsheets",
				"https://www.googleapis.com/auth/userinfo.email",
				"openid",
			},
			Endpoint: google.Endpoint,
		},
		states: NewStateStore(),
		logger: logger,
	}
}

// AuthURL issues a fresh state token for the session and returns the
// authorization URL to redirect the user-agent to. Offline access is
// requested so a refresh token is issued.
func (f *Flow) AuthURL(sessionID string) string {
	state := uuid.New().String()
	f.states.Put(sessionID, state)

	f.logger.WithField("session_id", sessionID).Info("OAuth flow initialized")

	return f.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Callback consumes the session's pending state and exchanges the
// authorization code for a credential. The pending state is cleared even
// when the exchange fails.
func (f *Flow) Callback(ctx context.Context, sessionID, state, code string) (*oauth2.Token, error) {
	pending, ok := f.states.Consume(sessionID)
	if !ok || pending == "" || pending != state {
		return nil, ErrMissingState
	}

	token, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		f.logger.WithError(err).Error("OAuth token exchange failed")
		return nil, &TokenExchangeError{Err: err}
	}

	f.logger.WithField("session_id", sessionID).Info("OAuth flow authorized")
	return token, nil
}

// TokenSource wraps an exchanged credential for API client construction.
func (f *Flow) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return f.cfg.TokenSource(ctx, token)
}
