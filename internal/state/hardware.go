package state

import (
	"context"
	"image"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/ahmadadeltub/green-smart-pedal/helpers"
	"github.com/ahmadadeltub/green-smart-pedal/internal/display"
	"github.com/ahmadadeltub/green-smart-pedal/internal/indicator"
	"github.com/ahmadadeltub/green-smart-pedal/internal/input"
	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
)

type hardware struct {
	Input *input.Dispatch

	display struct {
		once
		d *display.Display
	}
	gpio struct {
		once
		chip gpio.Chiper
	}
	leds struct {
		once
		panel *indicator.LedPanel
	}

	closers []io.Closer

	released sync.Once
}

func (g *Global) Gpio() (gpio.Chiper, error) {
	x := &g.Hardware.gpio // short alias
	_ = x.do(func() error {
		chipName := g.Config.Hardware.PinChip
		if chipName == "" {
			chipName = "/dev/gpiochip0"
		}
		var err error
		x.chip, err = gpio.Open(chipName, "green-smart-pedal")
		x.err = errors.Annotatef(err, "gpio chip=%s", chipName)
		return x.err
	})
	return x.chip, x.err
}

func (g *Global) Display() (*display.Display, error) {
	x := &g.Hardware.display
	_ = x.do(func() error {
		cfg := &g.Config.Hardware.Display
		if cfg.Framebuffer == "" {
			g.Log.Infof("display: no framebuffer configured, using offscreen canvas")
			x.d = display.NewMock(image.Point{X: 240, Y: 240})
			return nil
		}
		x.d, x.err = display.NewFb(cfg.Framebuffer)
		return x.err
	})
	return x.d, x.err
}

func (g *Global) Leds() (types.Indicator, error) {
	x := &g.Hardware.leds
	err := x.do(func() error {
		cfg := &g.Config.Hardware.Leds
		if !cfg.Enable {
			return nil
		}
		chip, err := g.Gpio()
		if err != nil {
			return errors.Trace(err)
		}
		pinPedal, err := confPin(cfg.PedalPin, "leds.pedal_pin")
		if err != nil {
			return err
		}
		pinRedeem, err := confPin(cfg.RedeemPin, "leds.redeem_pin")
		if err != nil {
			return err
		}
		pinError, err := confPin(cfg.ErrorPin, "leds.error_pin")
		if err != nil {
			return err
		}
		x.panel, x.err = indicator.NewPanel(chip, g.Log, pinPedal, pinRedeem, pinError)
		return x.err
	})
	if err != nil {
		return nil, err
	}
	if x.panel == nil {
		return indicator.Noop{}, nil
	}
	return x.panel, nil
}

// InitHardware acquires every input device and starts the dispatch bus.
// Any failure here is a HardwareError: the process must not enter the
// session loop.
func (g *Global) InitHardware(ctx context.Context) error {
	chip, err := g.Gpio()
	if err != nil {
		return errors.Trace(types.HardwareError{Err: err})
	}

	hwconf := &g.Config.Hardware
	pinPedal, err := confPin(hwconf.Pedal.Pin, "pedal.pin")
	if err != nil {
		return errors.Trace(types.HardwareError{Err: err})
	}
	pinRedeem, err := confPin(hwconf.Redeem.Pin, "redeem.pin")
	if err != nil {
		return errors.Trace(types.HardwareError{Err: err})
	}

	sources := make([]input.Source, 0, 3)

	pedal, err := input.NewButtonSource(chip, pinPedal, input.PedalSourceTag, types.KeyPedal,
		helpers.IntMillisecondDefault(hwconf.Pedal.DebounceMs, input.DefaultDebounce))
	if err != nil {
		return errors.Trace(types.HardwareError{Err: err})
	}
	g.Hardware.closers = append(g.Hardware.closers, pedal)
	sources = append(sources, pedal)

	redeem, err := input.NewButtonSource(chip, pinRedeem, input.RedeemSourceTag, types.KeyRedeem,
		helpers.IntMillisecondDefault(hwconf.Redeem.DebounceMs, input.DefaultDebounce))
	if err != nil {
		return errors.Trace(types.HardwareError{Err: err})
	}
	g.Hardware.closers = append(g.Hardware.closers, redeem)
	sources = append(sources, redeem)

	if hwconf.Rfid.Enable {
		rfid, err := input.NewRfidSource(hwconf.Rfid.Device)
		if err != nil {
			return errors.Trace(types.HardwareError{Err: errors.Annotatef(err, "rfid device=%s", hwconf.Rfid.Device)})
		}
		g.Hardware.closers = append(g.Hardware.closers, rfid)
		sources = append(sources, rfid)
	}

	if _, err := g.Leds(); err != nil {
		return errors.Trace(types.HardwareError{Err: err})
	}

	g.Hardware.Input = input.NewDispatch(g.Log, g.Alive.StopChan())
	g.Alive.Add(1)
	go func() {
		defer g.Alive.Done()
		g.Hardware.Input.Run(sources)
	}()

	return nil
}

// ReleaseHardware sets indicators inactive and closes GPIO handles.
// Idempotent, runs on every exit path.
func (g *Global) ReleaseHardware() {
	g.Hardware.released.Do(func() {
		if p := g.Hardware.leds.panel; p != nil {
			if err := p.Close(); err != nil {
				g.Log.Errorf("release leds err=%v", err)
			}
		}
		for _, c := range g.Hardware.closers {
			if err := c.Close(); err != nil {
				g.Log.Errorf("release input err=%v", err)
			}
		}
		if chip := g.Hardware.gpio.chip; chip != nil {
			if err := chip.Close(); err != nil && !gpio.IsClosed(err) {
				g.Log.Errorf("release gpio chip err=%v", err)
			}
		}
		if d := g.Hardware.display.d; d != nil {
			d.Close()
		}
		g.Log.Debugf("hardware released")
	})
}

func confPin(s, tag string) (uint32, error) {
	if s == "" {
		return 0, errors.Errorf("config: %s is not set", tag)
	}
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Annotatef(err, "config: %s=%s", tag, s)
	}
	return uint32(u), nil
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
