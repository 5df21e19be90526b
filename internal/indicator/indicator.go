// Package indicator drives the three status LEDs over GPIO output lines.
package indicator

import (
	"sync"
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

const DefaultPulse = 150 * time.Millisecond

type setFunc func(channel types.IndicatorChannel, value byte)

type LedPanel struct {
	mu     sync.Mutex
	log    *log2.Log
	lines  gpio.Lineser
	set    setFunc
	timers map[types.IndicatorChannel]*time.Timer
}

var _ types.Indicator = new(LedPanel)

func NewPanel(chip gpio.Chiper, log *log2.Log, pinPedal, pinRedeem, pinError uint32) (*LedPanel, error) {
	lines, err := chip.OpenLines(
		gpio.GPIOHANDLE_REQUEST_OUTPUT, "indicator",
		pinPedal, pinRedeem, pinError,
	)
	if err != nil {
		return nil, errors.Annotate(err, "indicator lines")
	}
	fns := map[types.IndicatorChannel]gpio.LineSetFunc{
		types.IndicatorPedal:  lines.SetFunc(pinPedal),
		types.IndicatorRedeem: lines.SetFunc(pinRedeem),
		types.IndicatorError:  lines.SetFunc(pinError),
	}
	p := newPanel(log, func(ch types.IndicatorChannel, value byte) {
		fns[ch](value)
		if err := lines.Flush(); err != nil {
			log.Errorf("indicator flush channel=%s err=%v", ch.String(), err)
		}
	})
	p.lines = lines
	p.Off()
	return p, nil
}

// NewMockPanel records writes through record, tests only.
func NewMockPanel(log *log2.Log, record setFunc) *LedPanel {
	return newPanel(log, record)
}

func newPanel(log *log2.Log, set setFunc) *LedPanel {
	return &LedPanel{
		log:    log,
		set:    set,
		timers: make(map[types.IndicatorChannel]*time.Timer, 3),
	}
}

func (p *LedPanel) Pulse(channel types.IndicatorChannel, d time.Duration) {
	if d == 0 {
		d = DefaultPulse
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t := p.timers[channel]; t != nil {
		t.Stop()
	}
	p.set(channel, 1)
	p.timers[channel] = time.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.set(channel, 0)
	})
}

// Off forces every LED dark. Must be safe to call on all exit paths,
// including after Close.
func (p *LedPanel) Off() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range []types.IndicatorChannel{types.IndicatorPedal, types.IndicatorRedeem, types.IndicatorError} {
		if t := p.timers[ch]; t != nil {
			t.Stop()
		}
		p.set(ch, 0)
	}
}

func (p *LedPanel) Close() error {
	p.Off()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lines != nil {
		err := p.lines.Close()
		p.lines = nil
		p.set = func(types.IndicatorChannel, byte) {}
		return errors.Trace(err)
	}
	return nil
}

// Noop satisfies the contract where no LEDs are wired.
type Noop struct{}

var _ types.Indicator = Noop{}

func (Noop) Pulse(types.IndicatorChannel, time.Duration) {}
func (Noop) Off()                                        {}
