package status_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clambin/getair-monitor/internal/cmd/status"
	"github.com/clambin/getair-monitor/internal/coordinator/mocks"
	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/go-common/set"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func ptr[T any](v T) *T { return &v }

func TestShowStatus(t *testing.T) {
	ctx := context.Background()
	zones := set.New(2)
	f := mocks.NewDeviceClient(t)
	f.EXPECT().FetchSnapshot(ctx, zones).Return(device.RawSnapshot{
		System: device.RawSystem{AirQuality: ptr(650.0), FirmwareVersion: ptr("2.1.0")},
		Zones: map[int]device.RawZone{
			2: {Name: ptr("Bedroom"), Speed: ptr(1.5), Mode: ptr("night"), Temperature: ptr(19.5)},
		},
	}, nil).Twice()

	var out bytes.Buffer
	e1 := yaml.NewEncoder(&out)
	e1.SetIndent(2)
	require.NoError(t, status.ShowStatus(ctx, f, zones, e1))
	assert.Equal(t, `system:
  air_quality_ppm: 650
  firmware_version: 2.1.0
zones:
  - index: 2
    enabled: true
    name: Bedroom
    temperature_c: 19.5
    speed: 1.5
    mode: night
`, out.String())

	out.Reset()
	e2 := json.NewEncoder(&out)
	require.NoError(t, status.ShowStatus(ctx, f, zones, e2))
	assert.Equal(t, `{"system":{"air_quality_ppm":650,"firmware_version":"2.1.0"},"zones":[{"index":2,"enabled":true,"name":"Bedroom","temperature_c":19.5,"speed":1.5,"mode":"night"}]}
`, out.String())
}

func TestShowStatus_Failure(t *testing.T) {
	f := mocks.NewDeviceClient(t)
	f.EXPECT().FetchSnapshot(mock.Anything, mock.Anything).Return(device.RawSnapshot{}, errors.New("service unreachable"))

	var out bytes.Buffer
	err := status.ShowStatus(context.Background(), f, set.New(1), json.NewEncoder(&out))
	assert.Error(t, err)
	assert.Empty(t, out.String())
}
