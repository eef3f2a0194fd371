package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeMeanOfSleeps(t *testing.T) {
	calls := 0
	mean := Time(5, func() {
		calls++
		time.Sleep(10 * time.Millisecond)
	})

	assert.Equal(t, 5, calls)
	assert.GreaterOrEqual(t, mean, 0.010)
	assert.Less(t, mean, 0.030, "mean %.4fs outside noise bounds", mean)
}

func TestTimeRunsExactlyTrials(t *testing.T) {
	tests := []struct {
		trials int
		want   int
	}{
		{1, 1},
		{3, 3},
		{200, 200},
		{0, 1},
		{-4, 1},
	}

	for _, tt := range tests {
		calls := 0
		Time(tt.trials, func() { calls++ })

		if calls != tt.want {
			t.Errorf("Time(%d) ran op %d times, want %d",
				tt.trials, calls, tt.want)
		}
	}
}

func TestMeasureDividesByTrials(t *testing.T) {
	single := Measure(1, func() { time.Sleep(20 * time.Millisecond) })
	batch := Measure(4, func() { time.Sleep(5 * time.Millisecond) })

	assert.GreaterOrEqual(t, single, 20*time.Millisecond)
	assert.GreaterOrEqual(t, batch, 5*time.Millisecond)
	assert.Less(t, batch, single)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 3*time.Millisecond, Mean(15*time.Millisecond, 5))
	assert.Equal(t, 7*time.Microsecond, Mean(7*time.Microsecond, 0))
	assert.Equal(t, 7*time.Microsecond, Mean(7*time.Microsecond, -2))
	assert.Zero(t, Mean(0, 200))
}
