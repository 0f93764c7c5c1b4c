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
	"regexp"
	"strconv"
	"time"

	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/go-common/set"
)

const maxBodySize = 1 << 20

// Authenticator provides access tokens to the Client. TokenManager implements it.
type Authenticator interface {
	EnsureValid(ctx context.Context) (Token, error)
	RefreshRejected(ctx context.Context, rejected Token) (Token, error)
}

var _ Authenticator = &TokenManager{}

// Client calls the getAir device API for a single device.
type Client struct {
	credentials Credentials
	tokens      Authenticator
	httpClient  *http.Client
	backoff     Backoff
	logger      *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) { client.httpClient = c }
}

func WithBackoff(b Backoff) ClientOption {
	return func(client *Client) { client.backoff = b }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) { client.logger = l }
}

func NewClient(credentials Credentials, tokens Authenticator, opts ...ClientOption) *Client {
	c := Client{
		credentials: credentials.Normalized(),
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		backoff:     DefaultBackoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// DeviceID returns the normalized ID of the managed device.
func (c *Client) DeviceID() string {
	return c.credentials.DeviceID
}

// Request is a call to the device API. Path is relative to the API URL. Body, if not nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
}

func (r Request) op() string {
	return r.Method + " " + r.Path
}

type Response struct {
	StatusCode int
	Body       []byte
}

type requestState int

const (
	stateAttempt requestState = iota
	stateReauthenticate
	stateRetry
)

// Execute performs a request.
//
// If the service rejects the token, Execute obtains a new token and retries exactly once.
// A second rejection fails with ErrUnauthorized. Transport errors and server errors are retried
// according to the client's Backoff and fail with ErrUnreachable once all attempts are used.
func (c *Client) Execute(ctx context.Context, req Request) (Response, error) {
	token, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return Response{}, err
	}

	state := stateAttempt
	for {
		switch state {
		case stateAttempt, stateRetry:
			resp, err := c.send(ctx, req, token)
			if err != nil {
				return Response{}, err
			}
			if resp.StatusCode != http.StatusUnauthorized {
				return resp, c.checkStatus(req, resp)
			}
			if state == stateRetry {
				return resp, &Error{Op: req.op(), Kind: ErrUnauthorized, StatusCode: resp.StatusCode}
			}
			c.logger.Debug("token rejected. reauthenticating", "request", req.op())
			state = stateReauthenticate
		case stateReauthenticate:
			if token, err = c.tokens.RefreshRejected(ctx, token); err != nil {
				return Response{}, err
			}
			state = stateRetry
		}
	}
}

func (c *Client) send(ctx context.Context, req Request, token Token) (Response, error) {
	attempts := c.backoff.attempts()
	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, req, token)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if attempt >= attempts {
			return Response{}, &Error{Op: req.op(), Kind: ErrUnreachable, StatusCode: resp.StatusCode, Err: err}
		}
		delay := c.backoff.Delay(attempt)
		c.logger.Debug("request failed. retrying", "request", req.op(), "attempt", attempt, "delay", delay, "code", resp.StatusCode, "err", err)
		if err = sleep(ctx, delay); err != nil {
			return Response{}, err
		}
	}
}

func (c *Client) do(ctx context.Context, req Request, token Token) (Response, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	// once sent, a request completes or hits the http client's timeout. Cancelling ctx does not abort it
	httpReq, err := http.NewRequestWithContext(context.WithoutCancel(ctx), req.Method, c.credentials.APIURL+req.Path, body)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.Value)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = httpResp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	return Response{StatusCode: httpResp.StatusCode, Body: payload}, err
}

func (c *Client) checkStatus(req Request, resp Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	return &Error{Op: req.op(), Kind: ErrUnexpectedStatus, StatusCode: resp.StatusCode}
}

func (c *Client) systemPath() string {
	return "/devices/" + c.credentials.DeviceID
}

func (c *Client) zonePath(zone int) string {
	return "/devices/" + strconv.Itoa(zone) + "." + c.credentials.DeviceID
}

// FetchSnapshot retrieves the system payload and the payload of every zone in zones.
func (c *Client) FetchSnapshot(ctx context.Context, zones set.Set[int]) (device.RawSnapshot, error) {
	snapshot := device.RawSnapshot{Zones: make(map[int]device.RawZone, len(zones))}
	if err := c.get(ctx, c.systemPath(), &snapshot.System); err != nil {
		return device.RawSnapshot{}, err
	}
	for _, zone := range zones.ListOrdered() {
		if err := device.ValidateZone(zone); err != nil {
			return device.RawSnapshot{}, err
		}
		var raw device.RawZone
		if err := c.get(ctx, c.zonePath(zone), &raw); err != nil {
			return device.RawSnapshot{}, err
		}
		if err := raw.Validate(); err != nil {
			c.logger.Warn("unsupported zone state", "zone", zone, "err", err)
			return device.RawSnapshot{}, &Error{Op: "GET " + c.zonePath(zone), Kind: ErrMalformedResponse, Err: err}
		}
		snapshot.Zones[zone] = raw
	}
	return snapshot, nil
}

// SendCommand applies an action to a zone. The zone and the action are validated before anything is sent.
func (c *Client) SendCommand(ctx context.Context, zone int, action device.Action) error {
	if err := device.ValidateZone(zone); err != nil {
		return err
	}
	if err := action.Validate(); err != nil {
		return err
	}
	_, err := c.Execute(ctx, Request{Method: http.MethodPut, Path: c.zonePath(zone), Body: action.Fields()})
	return err
}

// SendSystemCommand applies an action to the central unit. The action is validated before anything is sent.
func (c *Client) SendSystemCommand(ctx context.Context, action device.SystemAction) error {
	if err := action.Validate(); err != nil {
		return err
	}
	_, err := c.Execute(ctx, Request{Method: http.MethodPut, Path: c.systemPath(), Body: action.Fields()})
	return err
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req := Request{Method: http.MethodGet, Path: path}
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return err
	}
	if err = decodeObject(resp.Body, target); err != nil {
		c.logger.Warn("malformed response", "request", req.op(), "body", redact(resp.Body), "err", err)
		return &Error{Op: req.op(), Kind: ErrMalformedResponse, Err: err}
	}
	return nil
}

// decodeObject decodes a JSON object into target. Anything other than a single object is rejected.
func decodeObject(body []byte, target any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return errors.New("response is not a JSON object")
	}
	return json.Unmarshal(body, target)
}

var sensitiveFields = regexp.MustCompile(`"(access_token|refresh_token|id_token|token|password|client_secret)"\s*:\s*"[^"]*"`)

const maxLoggedBody = 512

func redact(body []byte) string {
	redacted := sensitiveFields.ReplaceAll(body, []byte(`"$1":"<redacted>"`))
	if len(redacted) > maxLoggedBody {
		return string(redacted[:maxLoggedBody]) + "..."
	}
	return string(redacted)
}
