package agent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimebaseStep(t *testing.T) {
	var tb Timebase

	assert.Equal(t, uint64(0), tb.Now())

	tb.Step(100)
	tb.Step(250)
	assert.Equal(t, uint64(350), tb.Now())
	assert.Equal(t, uint64(350), tb.Elapsed(0))
	assert.Equal(t, uint64(100), tb.Elapsed(250))
}

func TestTimebaseIsElapsed(t *testing.T) {
	var tb Timebase
	tb.Step(1000)

	start := tb.Now()
	tb.Step(499)
	assert.False(t, tb.IsElapsed(start, 500))
	tb.Step(1)
	assert.True(t, tb.IsElapsed(start, 500))
}

func TestTimebaseWraparound(t *testing.T) {
	var tb Timebase
	tb.Reset(math.MaxUint64 - 10)

	start := tb.Now()
	tb.Step(25)

	assert.Equal(t, uint64(14), tb.Now())
	assert.Equal(t, uint64(25), tb.Elapsed(start))
	assert.True(t, tb.IsElapsed(start, 20))
	assert.False(t, tb.IsElapsed(start, 30))
}
