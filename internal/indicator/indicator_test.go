package indicator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

type recorder struct {
	mu     sync.Mutex
	writes []struct {
		ch types.IndicatorChannel
		v  byte
	}
}

func (r *recorder) set(ch types.IndicatorChannel, v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, struct {
		ch types.IndicatorChannel
		v  byte
	}{ch, v})
}

func (r *recorder) last(ch types.IndicatorChannel) (byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.writes) - 1; i >= 0; i-- {
		if r.writes[i].ch == ch {
			return r.writes[i].v, true
		}
	}
	return 0, false
}

func TestPulseOnThenOff(t *testing.T) {
	t.Parallel()

	rec := new(recorder)
	p := NewMockPanel(log2.NewTest(t, log2.LDebug), rec.set)

	p.Pulse(types.IndicatorPedal, 30*time.Millisecond)
	v, ok := rec.last(types.IndicatorPedal)
	require.True(t, ok)
	assert.Equal(t, byte(1), v)

	time.Sleep(100 * time.Millisecond)
	v, ok = rec.last(types.IndicatorPedal)
	require.True(t, ok)
	assert.Equal(t, byte(0), v)
}

func TestOffForcesAllDark(t *testing.T) {
	t.Parallel()

	rec := new(recorder)
	p := NewMockPanel(log2.NewTest(t, log2.LDebug), rec.set)

	p.Pulse(types.IndicatorRedeem, time.Hour)
	p.Pulse(types.IndicatorError, time.Hour)
	p.Off()

	for _, ch := range []types.IndicatorChannel{types.IndicatorPedal, types.IndicatorRedeem, types.IndicatorError} {
		v, ok := rec.last(ch)
		require.True(t, ok, ch.String())
		assert.Equal(t, byte(0), v, ch.String())
	}
}
