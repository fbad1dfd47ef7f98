package utils

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		initial := rng.Float64() * 10
		final := rng.Float64() * 10
		start := rng.Float64() * 100
		end := start + 0.001 + rng.Float64()*100

		assert.Equal(t, initial, Interpolate(start, initial, final, start, end))
		assert.Equal(t, initial, Interpolate(start-rng.Float64()*50, initial, final, start, end))
		assert.Equal(t, final, Interpolate(end, initial, final, start, end))
		assert.Equal(t, final, Interpolate(end+rng.Float64()*50, initial, final, start, end))

		lo, hi := initial, final
		if lo > hi {
			lo, hi = hi, lo
		}
		v := Interpolate(start+rng.Float64()*(end-start), initial, final, start, end)
		assert.GreaterOrEqual(t, v, lo-1e-9)
		assert.LessOrEqual(t, v, hi+1e-9)
	}
}

func TestScheduleAt(t *testing.T) {
	s := Schedule{
		Initial:     1,
		Final:       3,
		StartMargin: 10 * time.Second,
		EndMargin:   20 * time.Second,
	}
	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"before start", 0, 1},
		{"at start", 10 * time.Second, 1},
		{"midway", 15 * time.Second, 2},
		{"at end", 20 * time.Second, 3},
		{"after end", time.Minute, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.At(tt.elapsed), 1e-9)
		})
	}
}

func TestScheduleFlat(t *testing.T) {
	s := Schedule{Initial: 2.5, Final: 2.5, StartMargin: time.Second, EndMargin: 2 * time.Second}
	for _, d := range []time.Duration{0, 1500 * time.Millisecond, time.Hour} {
		assert.Equal(t, 2.5, s.At(d))
	}
}

func TestRandomString(t *testing.T) {
	id, err := RandomString(RoomIdAlphabet, 8)
	assert.NoError(t, err)
	assert.Len(t, id, 8)
	for _, c := range id {
		assert.Contains(t, RoomIdAlphabet, string(c))
	}
	assert.Len(t, NewKey(), 32)
}

func TestTimerReset(t *testing.T) {
	timer := NewTimer(time.Hour)
	assert.Greater(t, timer.TimeRemaining(), 59*time.Minute)
	timer.Reset(0)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after reset to zero")
	}
	assert.Equal(t, time.Duration(0), timer.TimeRemaining())
}
