package device

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActions(t *testing.T) {
	tests := []struct {
		name       string
		action     Action
		wantErr    assert.ErrorAssertionFunc
		wantFields map[string]any
		check      func(t *testing.T, z ZoneState)
	}{
		{
			name:       "speed percentage",
			action:     SetSpeed{Percentage: 42},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"speed": 1.5},
			check: func(t *testing.T, z ZoneState) {
				if assert.NotNil(t, z.Speed) {
					assert.Equal(t, SpeedLevel(1.5), *z.Speed)
				}
			},
		},
		{
			name:    "speed percentage out of range",
			action:  SetSpeed{Percentage: 120},
			wantErr: assert.Error,
		},
		{
			name:       "speed level",
			action:     SetSpeedLevel{Level: 4},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"speed": 4.0},
		},
		{
			name:    "invalid speed level",
			action:  SetSpeedLevel{Level: 4.5},
			wantErr: assert.Error,
		},
		{
			name:       "mode",
			action:     SetMode{Mode: ModeNight},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"mode": "night"},
			check: func(t *testing.T, z ZoneState) {
				assert.Equal(t, ModeNight, z.Mode)
			},
		},
		{
			name:    "invalid mode",
			action:  SetMode{Mode: "boost"},
			wantErr: assert.Error,
		},
		{
			name:       "target temperature",
			action:     SetTargetTemperature{Celsius: 21.5},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"target_temp": 21.5},
			check: func(t *testing.T, z ZoneState) {
				if assert.NotNil(t, z.TargetTemperatureC) {
					assert.Equal(t, 21.5, *z.TargetTemperatureC)
				}
			},
		},
		{
			name:    "target temperature too low",
			action:  SetTargetTemperature{Celsius: 9.5},
			wantErr: assert.Error,
		},
		{
			name:    "target temperature off step",
			action:  SetTargetTemperature{Celsius: 21.2},
			wantErr: assert.Error,
		},
		{
			name:       "auto mode voc",
			action:     SetAutoModeVOC{Enabled: true},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"auto_mode_voc": true},
		},
		{
			name:       "auto mode silent",
			action:     SetAutoModeSilent{Enabled: false},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"auto_mode_silent": false},
		},
		{
			name:       "time profile",
			action:     SetTimeProfile{Profile: 3},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"time_profile": 3},
		},
		{
			name:    "invalid time profile",
			action:  SetTimeProfile{Profile: 11},
			wantErr: assert.Error,
		},
		{
			name:       "reset filter",
			action:     ResetFilterRuntime{},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"last_filter_change": 0},
			check: func(t *testing.T, z ZoneState) {
				if assert.NotNil(t, z.FilterRuntimeHours) {
					assert.Zero(t, *z.FilterRuntimeHours)
				}
			},
		},
		{
			name:       "filter runtime",
			action:     SetFilterRuntime{Hours: 1200},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"last_filter_change": 1200.0},
			check: func(t *testing.T, z ZoneState) {
				if assert.NotNil(t, z.FilterRuntimeHours) {
					assert.Equal(t, 1200.0, *z.FilterRuntimeHours)
				}
			},
		},
		{
			name:    "filter runtime too high",
			action:  SetFilterRuntime{Hours: 10001},
			wantErr: assert.Error,
		},
		{
			name:    "partial filter runtime",
			action:  SetFilterRuntime{Hours: 12.5},
			wantErr: assert.Error,
		},
		{
			name:       "mode deadline",
			action:     SetModeDeadline{At: time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"mode_deadline": int64(1790856000)},
			check: func(t *testing.T, z ZoneState) {
				if assert.NotNil(t, z.ModeDeadline) {
					assert.Equal(t, time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC), *z.ModeDeadline)
				}
			},
		},
		{
			name:       "clear mode deadline",
			action:     SetModeDeadline{},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"mode_deadline": int64(0)},
			check: func(t *testing.T, z ZoneState) {
				assert.Nil(t, z.ModeDeadline)
			},
		},
		{
			name:    "mode deadline beyond 2038",
			action:  SetModeDeadline{At: time.Date(2040, time.January, 1, 0, 0, 0, 0, time.UTC)},
			wantErr: assert.Error,
		},
		{
			name:       "zone name",
			action:     SetZoneName{Name: " Kitchen "},
			wantErr:    assert.NoError,
			wantFields: map[string]any{"name": "Kitchen"},
			check: func(t *testing.T, z ZoneState) {
				assert.Equal(t, "Kitchen", z.Name)
			},
		},
		{
			name:    "empty zone name",
			action:  SetZoneName{Name: "  "},
			wantErr: assert.Error,
		},
		{
			name:    "zone name too long",
			action:  SetZoneName{Name: strings.Repeat("a", 51)},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.action.Validate()
			tt.wantErr(t, err)
			if err != nil {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.Equal(t, tt.wantFields, tt.action.Fields())
			assert.NotEmpty(t, tt.action.String())
			if tt.check != nil {
				var z ZoneState
				tt.action.Apply(&z)
				tt.check(t, z)
			}
		})
	}
}

func TestModeDeadlineIn(t *testing.T) {
	now := time.Date(2026, time.October, 1, 12, 0, 0, 500, time.UTC)

	action, err := ModeDeadlineIn(30*time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 1, 12, 30, 0, 0, time.UTC), action.At)

	action, err = ModeDeadlineIn(0, now)
	require.NoError(t, err)
	assert.True(t, action.At.IsZero())

	_, err = ModeDeadlineIn(3*time.Hour, now)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ModeDeadlineIn(-time.Minute, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetAutoUpdate(t *testing.T) {
	action := SetAutoUpdate{Enabled: true}
	require.NoError(t, action.Validate())
	assert.Equal(t, map[string]any{"auto_update_enabled": true}, action.Fields())
	assert.Equal(t, "auto update true", action.String())

	var s SystemReadings
	action.Apply(&s)
	require.NotNil(t, s.AutoUpdateEnabled)
	assert.True(t, *s.AutoUpdateEnabled)
}
