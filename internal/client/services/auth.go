// Package services contains application services for the storefront client.
// This file defines the session manager: login, logout, session restore on
// start-up, and reaction to the transport's unauthorized signal.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/cookie"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/repositories/kv"
	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/dbx"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

const (
	// DefaultAuthErrorMessage is shown when a failed login carries no message.
	DefaultAuthErrorMessage = "Authorization error"
	// MissingCredentialsMessage is shown when username or password is blank.
	MissingCredentialsMessage = "Username and password are required"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrNoSessionUser  = errors.New("no user to attach the session to")

	errInconsistentSession = errors.New("inconsistent persisted session")
)

// SessionState is a snapshot of the session.
// IsAuthenticated implies User != nil and Token != "".
type SessionState struct {
	User            *models.User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	Error           *string
}

func (s SessionState) clone() SessionState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	if s.Error != nil {
		e := *s.Error
		s.Error = &e
	}
	return s
}

// SessionManager owns the session state. Create one per process with
// NewSessionManager and hand it to whatever needs the session.
//
// Network calls are made without holding the state lock, so a 401 signal
// raised during a call can re-enter the manager.
type SessionManager struct {
	gateway     client.AuthGateway
	db          *sql.DB
	log         logging.Logger
	interactive func() bool
	cookieOpts  []cookie.Option

	mu      sync.RWMutex
	state   SessionState
	nextSub int
	subs    map[int]func(SessionState)
}

type SessionOption func(*SessionManager)

// WithInteractive sets the probe InitializeAuth uses to decide whether it
// runs at all. The default treats every process as interactive.
func WithInteractive(fn func() bool) SessionOption {
	return func(m *SessionManager) { m.interactive = fn }
}

func WithSessionLogger(l logging.Logger) SessionOption {
	return func(m *SessionManager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithCookieOptions configures the token cookie (lifetime, clock).
func WithCookieOptions(opts ...cookie.Option) SessionOption {
	return func(m *SessionManager) { m.cookieOpts = append(m.cookieOpts, opts...) }
}

// NewSessionManager returns a manager with an empty, anonymous session.
func NewSessionManager(gateway client.AuthGateway, db *sql.DB, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		gateway:     gateway,
		db:          db,
		log:         logging.Discard(),
		interactive: func() bool { return true },
		subs:        make(map[int]func(SessionState)),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *SessionManager) getKVRepo() kv.Repository {
	return kv.NewSQLiteRepository(m.db)
}

func (m *SessionManager) tokenCookie(repo kv.Repository) *cookie.Channel {
	return cookie.New(repo, common.AuthCookieName, m.cookieOpts...)
}

// State returns a copy of the current session.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Subscribe registers fn to receive the new session after every change.
// fn runs on the goroutine that made the change.
func (m *SessionManager) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *SessionManager) update(fn func(s *SessionState)) {
	m.mu.Lock()
	fn(&m.state)
	if m.state.User == nil || m.state.Token == "" {
		m.state.IsAuthenticated = false
	}
	snapshot := m.state.clone()
	subs := make([]func(SessionState), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot.clone())
	}
}

func clearSession(s *SessionState) {
	s.User = nil
	s.Token = ""
	s.IsAuthenticated = false
	s.Error = nil
}

// Login exchanges the credentials for a session. Inputs are trimmed first.
// On success the tokens and the session record are persisted and the token
// cookie is written. On failure the error message is stored in the state and
// any previously persisted session is left untouched.
func (m *SessionManager) Login(ctx context.Context, username, password string) bool {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	m.update(func(s *SessionState) {
		s.IsLoading = true
		s.Error = nil
	})

	if username == "" || password == "" {
		m.loginFailed(MissingCredentialsMessage)
		return false
	}

	m.log.Info(ctx, "login started", "username", username)

	resp, err := m.gateway.Login(ctx, models.Credentials{Username: username, Password: password})
	if err != nil {
		m.log.Warn(ctx, "login rejected", "username", username, "error", err)
		m.loginFailed(client.ErrorMessage(err, DefaultAuthErrorMessage))
		return false
	}
	if resp.Token == "" {
		m.log.Warn(ctx, "login response carries no access token", "username", username)
		m.loginFailed(DefaultAuthErrorMessage)
		return false
	}

	user := resp.User
	if err := m.saveSession(ctx, &user, resp.Token, resp.RefreshToken); err != nil {
		m.log.Error(ctx, "saving session failed", "username", username, "error", err)
		m.loginFailed(DefaultAuthErrorMessage)
		return false
	}

	m.update(func(s *SessionState) {
		s.User = &user
		s.Token = resp.Token
		s.IsAuthenticated = true
		s.IsLoading = false
		s.Error = nil
	})

	m.log.Info(ctx, "login succeeded",
		"username", username,
		"token", common.Preview(resp.Token, 20))
	return true
}

func (m *SessionManager) loginFailed(msg string) {
	m.update(func(s *SessionState) {
		s.Error = &msg
		s.IsAuthenticated = false
		s.IsLoading = false
	})
}

// saveSession writes the tokens, the session record and the token cookie in
// one transaction.
func (m *SessionManager) saveSession(ctx context.Context, user *models.User, token, refreshToken string) error {
	record, err := models.PersistedSession{
		State: models.PersistedState{User: user, Token: token, IsAuthenticated: true},
	}.Marshal()
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)

		if err := repo.Set(ctx, common.AuthTokenKey, []byte(token)); err != nil {
			return err
		}
		if refreshToken != "" {
			if err := repo.Set(ctx, common.RefreshTokenKey, []byte(refreshToken)); err != nil {
				return err
			}
		}
		if err := repo.Set(ctx, common.SessionRecordKey, record); err != nil {
			return err
		}
		return m.tokenCookie(repo).Write(ctx, token)
	})
}

// Logout clears the session, removes the stored tokens and the session
// record, and expires the token cookie. It never fails; storage errors are
// logged.
func (m *SessionManager) Logout(ctx context.Context) {
	repo := m.getKVRepo()

	if err := repo.Delete(ctx, common.AuthTokenKey, common.RefreshTokenKey, common.SessionRecordKey); err != nil {
		m.log.Error(ctx, "removing stored session failed", "error", err)
	}
	if err := m.tokenCookie(repo).Expire(ctx); err != nil {
		m.log.Error(ctx, "expiring token cookie failed", "error", err)
	}

	m.update(clearSession)
	m.log.Info(ctx, "logged out")
}

// InitializeAuth restores the session persisted by an earlier process.
//
// The stored record is trusted as long as the raw token is present; the
// token is not re-validated against the server, so a revoked or expired
// token is accepted until the first authenticated call is rejected.
func (m *SessionManager) InitializeAuth(ctx context.Context) {
	if !m.interactive() {
		return
	}

	repo := m.getKVRepo()

	token, err := repo.Get(ctx, common.AuthTokenKey)
	if err != nil {
		m.log.Error(ctx, "reading stored token failed", "error", err)
	}
	record, recErr := repo.Get(ctx, common.SessionRecordKey)
	if recErr != nil {
		m.log.Error(ctx, "reading session record failed", "error", recErr)
	}

	m.log.Debug(ctx, "restoring session",
		"has_token", len(token) > 0,
		"has_record", len(record) > 0,
		"token", common.Preview(string(token), 20))

	if len(token) == 0 {
		m.update(func(s *SessionState) {
			clearSession(s)
			s.IsLoading = false
		})
		return
	}

	if len(record) == 0 {
		m.restoreFailed(ctx, fmt.Errorf("%w: no session record", errInconsistentSession))
		return
	}

	session, err := models.ParsePersistedSession(record)
	if err != nil {
		m.restoreFailed(ctx, fmt.Errorf("%w: %w", errInconsistentSession, err))
		return
	}

	if err := m.tokenCookie(repo).Write(ctx, string(token)); err != nil {
		m.log.Warn(ctx, "rewriting token cookie failed", "error", err)
	}

	user := *session.State.User
	m.update(func(s *SessionState) {
		s.User = &user
		s.Token = string(token)
		s.IsAuthenticated = true
		s.IsLoading = false
	})
	m.log.Info(ctx, "session restored", "username", user.Username)
}

func (m *SessionManager) restoreFailed(ctx context.Context, err error) {
	m.log.Warn(ctx, "discarding stored session", "error", err)
	m.Logout(ctx)
	m.update(func(s *SessionState) { s.IsLoading = false })
}

// ClearError drops the last error message and nothing else.
func (m *SessionManager) ClearError() {
	m.update(func(s *SessionState) { s.Error = nil })
}

// HandleUnauthorized evicts the stored tokens and the token cookie and
// clears the session. It is meant to be subscribed to the client's
// unauthorized signal.
func (m *SessionManager) HandleUnauthorized(ctx context.Context) {
	repo := m.getKVRepo()

	if err := repo.Delete(ctx, common.AuthTokenKey, common.RefreshTokenKey); err != nil {
		m.log.Error(ctx, "evicting stored tokens failed", "error", err)
	}
	if err := m.tokenCookie(repo).Expire(ctx); err != nil {
		m.log.Error(ctx, "expiring token cookie failed", "error", err)
	}

	m.update(clearSession)
	m.log.Warn(ctx, "session evicted after unauthorized response")
}

// RefreshSession trades the stored refresh token for a new token pair and
// persists it. The current user is kept. When neither the session nor the
// response names a user, nothing is persisted and ErrNoSessionUser is
// returned.
func (m *SessionManager) RefreshSession(ctx context.Context) error {
	repo := m.getKVRepo()

	refreshToken, err := repo.Get(ctx, common.RefreshTokenKey)
	if err != nil {
		return fmt.Errorf("read refresh token: %w", err)
	}
	if len(refreshToken) == 0 {
		return ErrNoRefreshToken
	}

	resp, err := m.gateway.RefreshToken(ctx, string(refreshToken))
	if err != nil {
		return fmt.Errorf("refresh token error: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("refresh token error: %w", client.ErrUnexpectedResponse)
	}

	user := m.State().User
	if user == nil && resp.ID != 0 {
		u := resp.User
		user = &u
	}
	if user == nil {
		return fmt.Errorf("refresh token error: %w", ErrNoSessionUser)
	}

	next := resp.RefreshToken
	if next == "" {
		next = string(refreshToken)
	}
	if err := m.saveSession(ctx, user, resp.Token, next); err != nil {
		return fmt.Errorf("save refreshed session: %w", err)
	}

	m.update(func(s *SessionState) {
		s.User = user
		s.Token = resp.Token
		s.IsAuthenticated = true
	})
	m.log.Info(ctx, "session refreshed", "token", common.Preview(resp.Token, 20))
	return nil
}

// FetchCurrentUser asks the server who the stored token belongs to and, when
// a session is active, updates its user.
func (m *SessionManager) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	resp, err := m.gateway.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current user error: %w", err)
	}
	user := resp.User

	st := m.State()
	if !st.IsAuthenticated {
		return &user, nil
	}

	record, err := models.PersistedSession{
		State: models.PersistedState{User: &user, Token: st.Token, IsAuthenticated: true},
	}.Marshal()
	if err == nil {
		err = m.getKVRepo().Set(ctx, common.SessionRecordKey, record)
	}
	if err != nil {
		m.log.Warn(ctx, "updating session record failed", "error", err)
	}

	m.update(func(s *SessionState) {
		if s.IsAuthenticated {
			u := user
			s.User = &u
		}
	})
	return &user, nil
}
