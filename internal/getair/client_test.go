package getair

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/getair-monitor/internal/getair/getairtest"
	"github.com/clambin/go-common/set"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	systemEndpoint = "/devices/AABBCCDDEEFF"
	zone1Endpoint  = "/devices/1.AABBCCDDEEFF"
	zone2Endpoint  = "/devices/2.AABBCCDDEEFF"
)

func newTestClient(t *testing.T) (*Client, *getairtest.Server) {
	t.Helper()
	s := getairtest.New(testUsername, testPassword)
	t.Cleanup(s.Close)
	s.SetPayload(systemEndpoint, map[string]any{"air_quality": 650.0, "air_pressure": 1013.2, "humidity": 48.5, "temperature": 21.4, "fw_version": "2.1.0"})
	s.SetPayload(zone1Endpoint, map[string]any{"name": "Living", "speed": 1.5, "mode": "ventilate", "temperature": 20.5})
	s.SetPayload(zone2Endpoint, map[string]any{"name": "Bedroom", "speed": 0.5, "mode": "night"})

	c := NewClient(
		testCredentials(s),
		newTestTokenManager(s),
		WithBackoff(Backoff{Initial: time.Millisecond, Max: 4 * time.Millisecond, Attempts: 4}),
	)
	return c, s
}

func TestClient_FetchSnapshot(t *testing.T) {
	c, s := newTestClient(t)
	assert.Equal(t, "AABBCCDDEEFF", c.DeviceID())

	raw, err := c.FetchSnapshot(context.Background(), set.New(1, 2))
	require.NoError(t, err)

	require.NotNil(t, raw.System.AirQuality)
	assert.Equal(t, 650.0, *raw.System.AirQuality)
	require.NotNil(t, raw.System.FirmwareVersion)
	assert.Equal(t, "2.1.0", *raw.System.FirmwareVersion)
	require.Len(t, raw.Zones, 2)
	require.NotNil(t, raw.Zones[1].Speed)
	assert.Equal(t, 1.5, *raw.Zones[1].Speed)
	require.NotNil(t, raw.Zones[2].Mode)
	assert.Equal(t, "night", *raw.Zones[2].Mode)
	assert.Nil(t, raw.Zones[2].Temperature)

	assert.Equal(t, 1, s.AuthCalls())
	assert.Equal(t, 3, s.DataCalls())
}

func TestClient_Reauthenticate(t *testing.T) {
	tests := []struct {
		name          string
		reject        int
		wantErr       assert.ErrorAssertionFunc
		wantAuthCalls int
		wantDataCalls int
	}{
		{name: "accepted", reject: 0, wantErr: assert.NoError, wantAuthCalls: 1, wantDataCalls: 1},
		{name: "rejected once", reject: 1, wantErr: assert.NoError, wantAuthCalls: 2, wantDataCalls: 2},
		{
			name:   "rejected twice",
			reject: 2,
			wantErr: func(t assert.TestingT, err error, _ ...any) bool {
				return assert.ErrorIs(t, err, ErrUnauthorized)
			},
			wantAuthCalls: 2,
			wantDataCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, s := newTestClient(t)
			s.RejectNext(tt.reject)

			_, err := c.Execute(context.Background(), Request{Method: http.MethodGet, Path: systemEndpoint})
			tt.wantErr(t, err)
			assert.Equal(t, tt.wantAuthCalls, s.AuthCalls())
			assert.Equal(t, tt.wantDataCalls, s.DataCalls())
		})
	}
}

func TestClient_RevokedToken(t *testing.T) {
	c, s := newTestClient(t)

	_, err := c.FetchSnapshot(context.Background(), set.New(1))
	require.NoError(t, err)

	s.RevokeTokens()
	_, err = c.FetchSnapshot(context.Background(), set.New(1))
	require.NoError(t, err)
	assert.Equal(t, 2, s.AuthCalls())
}

func TestClient_ServerErrors(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		wantErr       error
		wantDataCalls int
	}{
		{name: "transient", failures: 2, wantDataCalls: 3},
		{name: "persistent", failures: 10, wantErr: ErrUnreachable, wantDataCalls: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, s := newTestClient(t)
			s.FailNext(tt.failures)

			_, err := c.Execute(context.Background(), Request{Method: http.MethodGet, Path: systemEndpoint})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantDataCalls, s.DataCalls())
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	c, s := newTestClient(t)
	_, err := c.FetchSnapshot(context.Background(), set.New(1))
	require.NoError(t, err)

	s.Close()
	_, err = c.FetchSnapshot(context.Background(), set.New(1))
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.False(t, IsFatal(err))
	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
}

func TestClient_Cancel(t *testing.T) {
	s := getairtest.New(testUsername, testPassword)
	t.Cleanup(s.Close)
	c := NewClient(testCredentials(s), newTestTokenManager(s), WithBackoff(Backoff{Initial: time.Hour, Max: time.Hour, Attempts: 2}))
	s.FailNext(1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.Execute(ctx, Request{Method: http.MethodGet, Path: systemEndpoint})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CancelDuringRequest(t *testing.T) {
	c, s := newTestClient(t)
	_, err := c.FetchSnapshot(context.Background(), set.New(1))
	require.NoError(t, err)
	s.SetDataDelay(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// the command is on the wire when ctx is cancelled: it still completes
	require.NoError(t, c.SendCommand(ctx, 2, device.SetMode{Mode: device.ModeRush}))
	assert.Zero(t, s.Aborted())
	require.Len(t, s.Commands(), 1)
	assert.Equal(t, "rush", s.Payload(zone2Endpoint)["mode"])
}

func TestClient_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>maintenance</html>`},
		{name: "array", body: `[]`},
		{name: "null", body: `null`},
		{name: "wrong type", body: `{"speed":"fast"}`},
		{name: "unsupported speed", body: `{"speed":2.2}`},
		{name: "unsupported mode", body: `{"mode":"boost"}`},
		{name: "trailing data", body: `{"speed":1.0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, s := newTestClient(t)
			s.SetRawPayload(zone1Endpoint, tt.body)

			_, err := c.FetchSnapshot(context.Background(), set.New(1))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.FetchSnapshot(context.Background(), set.New(3))
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_SendCommand(t *testing.T) {
	c, s := newTestClient(t)

	require.NoError(t, c.SendCommand(context.Background(), 2, device.SetSpeed{Percentage: 42}))
	require.NoError(t, c.SendCommand(context.Background(), 1, device.SetMode{Mode: device.ModeAuto}))

	commands := s.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, zone2Endpoint, commands[0].Path)
	assert.Equal(t, map[string]any{"speed": 1.5}, commands[0].Fields)
	assert.Equal(t, zone1Endpoint, commands[1].Path)
	assert.Equal(t, map[string]any{"mode": "auto"}, commands[1].Fields)
}

func TestClient_SendSystemCommand(t *testing.T) {
	c, s := newTestClient(t)

	require.NoError(t, c.SendSystemCommand(context.Background(), device.SetAutoUpdate{Enabled: true}))
	commands := s.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, systemEndpoint, commands[0].Path)
	assert.Equal(t, map[string]any{"auto_update_enabled": true}, commands[0].Fields)
	assert.Equal(t, true, s.Payload(systemEndpoint)["auto_update_enabled"])
}

func TestClient_SendCommand_Validation(t *testing.T) {
	tests := []struct {
		name   string
		zone   int
		action device.Action
	}{
		{name: "zone too low", zone: 0, action: device.SetMode{Mode: device.ModeNight}},
		{name: "zone too high", zone: 4, action: device.SetMode{Mode: device.ModeNight}},
		{name: "invalid percentage", zone: 1, action: device.SetSpeed{Percentage: -5}},
		{name: "invalid mode", zone: 1, action: device.SetMode{Mode: "turbo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, s := newTestClient(t)
			err := c.SendCommand(context.Background(), tt.zone, tt.action)
			assert.ErrorIs(t, err, device.ErrValidation)
			assert.Zero(t, s.AuthCalls())
			assert.Zero(t, s.DataCalls())
		})
	}
}

func TestRedact(t *testing.T) {
	body := []byte(`{"access_token":"abc123","password": "hunter2","speed":1.5}`)
	out := redact(body)
	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, `"speed":1.5`)

	long := make([]byte, 2*maxLoggedBody)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, redact(long), maxLoggedBody+3)
}
