package input

import (
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
)

const (
	PedalSourceTag  = "gpio-pedal"
	RedeemSourceTag = "gpio-redeem"
)

const DefaultDebounce = 300 * time.Millisecond

// waitChunk bounds Eventer.Wait so the read loop can notice shutdown.
const waitChunk = 1 * time.Second

// debounce folds electrical bounce within window into one logical press.
type debounce struct {
	window time.Duration
	last   time.Time
}

func (d *debounce) accept(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	return true
}

// ButtonSource turns falling edges on one GPIO line into logical presses.
type ButtonSource struct {
	tag      string
	key      types.InputKey
	event    gpio.Eventer
	debounce debounce
}

var _ Source = new(ButtonSource) // compile-time interface check

func NewButtonSource(chip gpio.Chiper, line uint32, tag string, key types.InputKey, window time.Duration) (*ButtonSource, error) {
	if window == 0 {
		window = DefaultDebounce
	}
	ev, err := chip.GetLineEvent(line, gpio.GPIOHANDLE_REQUEST_INPUT, gpio.GPIOEVENT_REQUEST_FALLING_EDGE, tag)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio line=%d tag=%s", line, tag)
	}
	return &ButtonSource{
		tag:      tag,
		key:      key,
		event:    ev,
		debounce: debounce{window: window},
	}, nil
}

func (self *ButtonSource) String() string { return self.tag }

func (self *ButtonSource) Close() error { return self.event.Close() }

func (self *ButtonSource) Read() (types.Event, error) {
	for {
		_, err := self.event.Wait(waitChunk)
		if err != nil {
			if gpio.IsTimeout(err) {
				continue
			}
			return types.Event{}, errors.Annotatef(err, "gpio wait tag=%s", self.tag)
		}
		if !self.debounce.accept(time.Now()) {
			continue
		}
		return types.Event{
			Kind:  types.EventInput,
			Input: types.InputEvent{Source: self.tag, Key: self.key},
		}, nil
	}
}
