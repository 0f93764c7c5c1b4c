package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapPercentage(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		wantErr    assert.ErrorAssertionFunc
		want       SpeedLevel
	}{
		{name: "zero", percentage: 0, wantErr: assert.NoError, want: 0},
		{name: "exact", percentage: 60, wantErr: assert.NoError, want: 2.0},
		{name: "nearest up", percentage: 42, wantErr: assert.NoError, want: 1.5},
		{name: "nearest down", percentage: 33, wantErr: assert.NoError, want: 1.0},
		{name: "tie resolves low", percentage: 90, wantErr: assert.NoError, want: 3.0},
		{name: "low end", percentage: 7, wantErr: assert.NoError, want: 0},
		{name: "low end tie", percentage: 7.5, wantErr: assert.NoError, want: 0},
		{name: "just above tie", percentage: 7.6, wantErr: assert.NoError, want: 0.5},
		{name: "max", percentage: 100, wantErr: assert.NoError, want: 4.0},
		{name: "negative", percentage: -1, wantErr: assert.Error},
		{name: "too high", percentage: 100.5, wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			level, err := SnapPercentage(tt.percentage)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, level)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestSnapPercentage_Nearest(t *testing.T) {
	for p := 0.0; p <= 100; p += 0.5 {
		level, err := SnapPercentage(p)
		require.NoError(t, err)
		distance := abs(float64(level.Percentage()) - p)
		for _, other := range SpeedLevels() {
			assert.LessOrEqual(t, distance, abs(float64(other.Percentage())-p), "percentage %g: level %s is not nearest", p, level)
		}
	}
}

func TestSpeedLevel(t *testing.T) {
	assert.Len(t, SpeedLevels(), 9)
	assert.Equal(t, 45, SpeedLevel(1.5).Percentage())
	assert.Equal(t, 85, SpeedLevel(3.0).Percentage())
	assert.Equal(t, -1, SpeedLevel(1.25).Percentage())
	assert.Equal(t, "2.5", SpeedLevel(2.5).String())

	_, err := ParseSpeedLevel(1.25)
	assert.ErrorIs(t, err, ErrValidation)
	level, err := ParseSpeedLevel(3.5)
	require.NoError(t, err)
	assert.Equal(t, SpeedLevel(3.5), level)
}

func TestParseMode(t *testing.T) {
	assert.Len(t, Modes(), 8)
	for _, m := range Modes() {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("turbo")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseMode("")
	assert.ErrorIs(t, err, ErrValidation)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
