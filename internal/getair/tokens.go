package getair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSettleDelay = time.Second
	DefaultRefreshSkew = time.Minute

	// MaxTokenLifetime caps the expires_in reported by the service.
	MaxTokenLifetime = 30 * 24 * time.Hour
)

// Token is an access token issued by the authentication endpoint.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidAt returns true if the token can still be used at the given time, keeping skew in reserve.
func (t Token) ValidAt(now time.Time, skew time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-skew))
}

func (t Token) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("issued", t.IssuedAt),
		slog.Time("expires", t.ExpiresAt),
	)
}

// SessionState is the authentication state of a TokenManager.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateReauthenticating
	StateFailed
)

var sessionStateNames = map[SessionState]string{
	StateUnauthenticated:  "unauthenticated",
	StateAuthenticating:   "authenticating",
	StateAuthenticated:    "authenticated",
	StateReauthenticating: "reauthenticating",
	StateFailed:           "failed",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// TokenStore persists tokens across restarts.
type TokenStore interface {
	Load(ctx context.Context, key string) (Token, bool, error)
	Save(ctx context.Context, key string, token Token) error
	Delete(ctx context.Context, key string) error
}

// TokenManager owns the access token for one set of Credentials.
//
// Concurrent callers that need a new token share a single authentication request.
// Every authentication attempt passes the RateLimiter first.
type TokenManager struct {
	credentials Credentials
	httpClient  *http.Client
	limiter     *RateLimiter
	store       TokenStore
	backoff     Backoff
	settleDelay time.Duration
	refreshSkew time.Duration
	now         func() time.Time
	attempts    *prometheus.CounterVec
	logger      *slog.Logger

	group        singleflight.Group
	lock         sync.RWMutex
	token        Token
	state        SessionState
	failure      error
	storeChecked bool
}

type TokenManagerOption func(*TokenManager)

func WithAuthHTTPClient(c *http.Client) TokenManagerOption {
	return func(m *TokenManager) { m.httpClient = c }
}

func WithRateLimiter(l *RateLimiter) TokenManagerOption {
	return func(m *TokenManager) { m.limiter = l }
}

func WithTokenStore(s TokenStore) TokenManagerOption {
	return func(m *TokenManager) { m.store = s }
}

func WithAuthBackoff(b Backoff) TokenManagerOption {
	return func(m *TokenManager) { m.backoff = b }
}

func WithSettleDelay(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) { m.settleDelay = d }
}

func WithRefreshSkew(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) { m.refreshSkew = d }
}

// WithClock overrides the time source used to check token expiry.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) { m.now = now }
}

// WithAttemptCounter counts authentication attempts. The counter must have a single "result" label.
func WithAttemptCounter(c *prometheus.CounterVec) TokenManagerOption {
	return func(m *TokenManager) { m.attempts = c }
}

func WithTokenLogger(l *slog.Logger) TokenManagerOption {
	return func(m *TokenManager) { m.logger = l }
}

// NewAuthAttemptCounter returns a counter suitable for WithAttemptCounter.
func NewAuthAttemptCounter(namespace, subsystem string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "auth_attempts_total",
		Help:      "number of authentication attempts, by result",
	}, []string{"result"})
}

func NewTokenManager(credentials Credentials, opts ...TokenManagerOption) *TokenManager {
	m := TokenManager{
		credentials: credentials.Normalized(),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     NewRateLimiter(DefaultAuthLimit, DefaultAuthWindow, DefaultAuthMaxWait),
		backoff:     DefaultAuthBackoff,
		settleDelay: DefaultSettleDelay,
		refreshSkew: DefaultRefreshSkew,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

// State returns the current session state. If the state is StateFailed, the error explains why.
func (m *TokenManager) State() (SessionState, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state, m.failure
}

// EnsureValid returns a token that is valid for at least the refresh skew, authenticating if needed.
// Once the credentials have been rejected, EnsureValid fails without contacting the service.
func (m *TokenManager) EnsureValid(ctx context.Context) (Token, error) {
	m.lock.RLock()
	token, state, failure := m.token, m.state, m.failure
	m.lock.RUnlock()

	if m.valid(token) {
		return token, nil
	}
	if state == StateFailed && IsFatal(failure) {
		return Token{}, failure
	}
	return m.refresh(ctx)
}

// ForceRefresh discards the current token and authenticates.
func (m *TokenManager) ForceRefresh(ctx context.Context) (Token, error) {
	m.lock.Lock()
	m.token = Token{}
	m.lock.Unlock()
	return m.refresh(ctx)
}

// RefreshRejected discards the rejected token, unless another caller already replaced it, and returns a new one.
// A stored copy of the rejected token is removed.
func (m *TokenManager) RefreshRejected(ctx context.Context, rejected Token) (Token, error) {
	m.lock.Lock()
	discard := m.token.Value == rejected.Value
	if discard {
		m.token = Token{}
	}
	m.lock.Unlock()
	if discard {
		m.forgetStoredToken(ctx)
	}
	return m.EnsureValid(ctx)
}

// valid returns true if the token can be used for at least the refresh skew.
// The skew never exceeds half the token's lifetime, so short-lived tokens remain usable.
func (m *TokenManager) valid(token Token) bool {
	skew := m.refreshSkew
	if lifetime := token.ExpiresAt.Sub(token.IssuedAt); !token.IssuedAt.IsZero() && lifetime > 0 {
		skew = min(skew, lifetime/2)
	}
	return token.ValidAt(m.now(), skew)
}

func (m *TokenManager) refresh(ctx context.Context) (Token, error) {
	ch := m.group.DoChan("authenticate", func() (any, error) {
		return m.authenticate(ctx)
	})
	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return Token{}, result.Err
		}
		return result.Val.(Token), nil
	}
}

func (m *TokenManager) authenticate(ctx context.Context) (Token, error) {
	m.lock.RLock()
	state, failure := m.state, m.failure
	m.lock.RUnlock()
	if state == StateFailed && IsFatal(failure) {
		return Token{}, failure
	}
	if token, ok := m.current(); ok {
		return token, nil
	}
	if token, ok := m.loadStoredToken(ctx); ok {
		return token, nil
	}

	m.lock.Lock()
	if m.state == StateAuthenticated || m.state == StateReauthenticating {
		m.state = StateReauthenticating
	} else {
		m.state = StateAuthenticating
	}
	m.logger.Debug("authenticating", "state", m.state, "attempts", m.limiter.Admitted())
	m.lock.Unlock()

	token, err := m.login(ctx)
	if err == nil {
		// the service rejects tokens that are used immediately after they are issued
		err = sleep(ctx, m.settleDelay)
	}

	m.lock.Lock()
	if err != nil {
		m.state = StateFailed
		m.failure = err
	} else {
		m.token = token
		m.state = StateAuthenticated
		m.failure = nil
	}
	m.lock.Unlock()

	if err != nil {
		m.logger.Warn("authentication failed", "err", err)
		if IsFatal(err) {
			m.forgetStoredToken(ctx)
		}
		return Token{}, err
	}

	m.logger.Debug("authenticated", "token", token)
	if m.store != nil {
		if err := m.store.Save(ctx, m.credentials.Key(), token); err != nil {
			m.logger.Warn("failed to save token", "err", err)
		}
	}
	return token, nil
}

func (m *TokenManager) current() (Token, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.token, m.valid(m.token)
}

func (m *TokenManager) loadStoredToken(ctx context.Context) (Token, bool) {
	m.lock.Lock()
	checked := m.storeChecked
	m.storeChecked = true
	m.lock.Unlock()

	if m.store == nil || checked {
		return Token{}, false
	}
	token, ok, err := m.store.Load(ctx, m.credentials.Key())
	if err != nil {
		m.logger.Warn("failed to load stored token", "err", err)
		return Token{}, false
	}
	if !ok || !m.valid(token) {
		return Token{}, false
	}

	m.lock.Lock()
	m.token = token
	m.state = StateAuthenticated
	m.failure = nil
	m.lock.Unlock()
	m.logger.Debug("using stored token", "token", token)
	return token, true
}

func (m *TokenManager) forgetStoredToken(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(context.WithoutCancel(ctx), m.credentials.Key()); err != nil {
		m.logger.Warn("failed to delete stored token", "err", err)
	}
}

func (m *TokenManager) login(ctx context.Context) (Token, error) {
	attempts := m.backoff.attempts()
	for attempt := 1; ; attempt++ {
		if err := m.limiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrRateLimited) {
				m.count("rate_limited")
			}
			return Token{}, err
		}
		token, err := m.requestToken(ctx)
		switch {
		case err == nil:
			m.count("success")
			return token, nil
		case IsFatal(err):
			m.count("invalid_credentials")
			return Token{}, err
		case errors.Is(err, ErrRateLimited):
			m.count("rate_limited")
			return Token{}, err
		}
		m.count("error")
		if ctx.Err() != nil {
			return Token{}, ctx.Err()
		}
		if !errors.Is(err, ErrUnreachable) || attempt >= attempts {
			return Token{}, err
		}
		delay := m.backoff.Delay(attempt)
		m.logger.Debug("authentication attempt failed. retrying", "attempt", attempt, "delay", delay, "err", err)
		if err = sleep(ctx, delay); err != nil {
			return Token{}, err
		}
	}
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	ClientID  string `json:"client_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type tokenResponse struct {
	AccessToken *string  `json:"access_token"`
	ExpiresIn   *float64 `json:"expires_in"`
}

func (m *TokenManager) requestToken(ctx context.Context) (Token, error) {
	const op = "authenticate"

	body, err := json.Marshal(tokenRequest{
		GrantType: "password",
		ClientID:  m.credentials.ClientID,
		Username:  m.credentials.Username,
		Password:  m.credentials.Password,
	})
	if err != nil {
		return Token{}, fmt.Errorf("encode token request: %w", err)
	}
	// a request on the wire is bounded by the http client's timeout, not by ctx
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, m.credentials.AuthURL, bytes.NewReader(body))
	if err != nil {
		return Token{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	issuedAt := m.now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Token{}, &Error{Op: op, Kind: ErrUnreachable, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Token{}, &Error{Op: op, Kind: ErrUnreachable, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Token{}, &Error{Op: op, Kind: ErrInvalidCredentials, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Token{}, &Error{Op: op, Kind: ErrRateLimited, StatusCode: resp.StatusCode}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Token{}, &Error{Op: op, Kind: ErrUnreachable, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return Token{}, &Error{Op: op, Kind: ErrUnexpectedStatus, StatusCode: resp.StatusCode}
	}

	var r tokenResponse
	if err = decodeObject(payload, &r); err == nil && (r.AccessToken == nil || *r.AccessToken == "" || r.ExpiresIn == nil || *r.ExpiresIn <= 0) {
		err = errors.New("access_token or expires_in missing")
	}
	if err != nil {
		m.logger.Warn("malformed token response", "body", redact(payload), "err", err)
		return Token{}, &Error{Op: op, Kind: ErrMalformedResponse, Err: err}
	}
	lifetime := MaxTokenLifetime
	if *r.ExpiresIn < MaxTokenLifetime.Seconds() {
		lifetime = time.Duration(*r.ExpiresIn * float64(time.Second))
	}
	return Token{
		Value:     *r.AccessToken,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(lifetime),
	}, nil
}

func (m *TokenManager) count(result string) {
	if m.attempts != nil {
		m.attempts.WithLabelValues(result).Inc()
	}
}
