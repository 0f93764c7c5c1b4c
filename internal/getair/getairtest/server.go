// Package getairtest provides an authenticating getAir API server for tests.
package getairtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

const (
	authPath = "/oauth/token"
	apiPath  = "/api/v1"
)

// Command is a write received by the server.
type Command struct {
	Path   string
	Fields map[string]any
}

// Server implements the authentication and device endpoints of the getAir service.
// Device state is kept per path and updated by PUT requests.
type Server struct {
	*httptest.Server
	Username string
	Password string

	lock        sync.Mutex
	authCalls   int
	dataCalls   int
	tokenCount  int
	current     string
	expiresIn   int
	authStatus  int
	authDelay   time.Duration
	dataDelay   time.Duration
	aborted     int
	rejectNext  int
	failNext    int
	payloads    map[string]map[string]any
	raw         map[string]string
	commands    []Command
	inflight    int
	maxInflight int
}

// New starts a server that accepts the given username and password.
func New(username, password string) *Server {
	s := Server{
		Username:  username,
		Password:  password,
		expiresIn: 3600,
		payloads:  make(map[string]map[string]any),
		raw:       make(map[string]string),
	}
	s.Server = httptest.NewServer(&s)
	return &s
}

func (s *Server) AuthURL() string { return s.URL + authPath }
func (s *Server) APIURL() string  { return s.URL + apiPath }

// SetPayload sets the JSON object returned for a device path, e.g. "/devices/AABBCCDDEEFF".
func (s *Server) SetPayload(path string, payload map[string]any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.payloads[path] = payload
	delete(s.raw, path)
}

// SetRawPayload sets the body returned for a device path as-is.
func (s *Server) SetRawPayload(path string, body string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.raw[path] = body
}

// Payload returns the current state of a device path.
func (s *Server) Payload(path string) map[string]any {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.payloads[path]
}

// SetAuthStatus makes the authentication endpoint fail with the given status. 0 restores normal behaviour.
func (s *Server) SetAuthStatus(status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.authStatus = status
}

// SetAuthDelay delays every authentication response.
func (s *Server) SetAuthDelay(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.authDelay = d
}

// SetDataDelay delays every device response. Requests cancelled by the client during the delay are not processed.
func (s *Server) SetDataDelay(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.dataDelay = d
}

// Aborted returns the number of device requests that the client cancelled before they were processed.
func (s *Server) Aborted() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.aborted
}

// SetExpiresIn sets the lifetime, in seconds, of newly issued tokens.
func (s *Server) SetExpiresIn(seconds int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.expiresIn = seconds
}

// RejectNext makes the next n device requests fail with 401, regardless of the token.
func (s *Server) RejectNext(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.rejectNext = n
}

// FailNext makes the next n device requests fail with 500.
func (s *Server) FailNext(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failNext = n
}

// RevokeTokens invalidates all issued tokens.
func (s *Server) RevokeTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = ""
}

func (s *Server) AuthCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.authCalls
}

func (s *Server) DataCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.dataCalls
}

// MaxInflight returns the highest number of device requests that were handled concurrently.
func (s *Server) MaxInflight() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.maxInflight
}

func (s *Server) Commands() []Command {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Command(nil), s.commands...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == authPath:
		s.handleAuth(w, r)
	case strings.HasPrefix(r.URL.Path, apiPath+"/"):
		s.handleDevice(w, r)
	default:
		http.NotFound(w, r)
	}
}

type authRequest struct {
	GrantType string `json:"grant_type"`
	ClientID  string `json:"client_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	s.authCalls++
	delay := s.authDelay
	s.lock.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GrantType != "password" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.authStatus != 0 {
		http.Error(w, http.StatusText(s.authStatus), s.authStatus)
		return
	}
	if req.Username != s.Username || req.Password != s.Password {
		http.Error(w, "invalid_grant", http.StatusUnauthorized)
		return
	}
	s.tokenCount++
	s.current = fmt.Sprintf("token_%d", s.tokenCount)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": s.current,
		"token_type":   "bearer",
		"expires_in":   s.expiresIn,
	})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPath)

	s.lock.Lock()
	s.dataCalls++
	s.inflight++
	s.maxInflight = max(s.maxInflight, s.inflight)
	delay := s.dataDelay
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		s.inflight--
		s.lock.Unlock()
	}()

	if delay > 0 {
		select {
		case <-r.Context().Done():
			s.lock.Lock()
			s.aborted++
			s.lock.Unlock()
			return
		case <-time.After(delay):
		}
	}

	status, body := s.deviceResponse(r, path)
	if status != http.StatusOK {
		http.Error(w, body, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *Server) deviceResponse(r *http.Request, path string) (int, string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.rejectNext > 0 {
		s.rejectNext--
		return http.StatusUnauthorized, "token rejected"
	}
	if s.current == "" || r.Header.Get("Authorization") != "Bearer "+s.current {
		return http.StatusUnauthorized, "invalid token"
	}
	if s.failNext > 0 {
		s.failNext--
		return http.StatusInternalServerError, "internal error"
	}

	switch r.Method {
	case http.MethodGet:
		if body, ok := s.raw[path]; ok {
			return http.StatusOK, body
		}
		payload, ok := s.payloads[path]
		if !ok {
			return http.StatusNotFound, "device not found"
		}
		body, _ := json.Marshal(payload)
		return http.StatusOK, string(body)
	case http.MethodPut:
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return http.StatusBadRequest, err.Error()
		}
		s.commands = append(s.commands, Command{Path: path, Fields: fields})
		payload, ok := s.payloads[path]
		if !ok {
			payload = make(map[string]any)
			s.payloads[path] = payload
		}
		for key, value := range fields {
			payload[key] = value
		}
		return http.StatusOK, "{}"
	default:
		return http.StatusMethodNotAllowed, "method not allowed"
	}
}
