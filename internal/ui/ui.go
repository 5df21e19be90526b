package ui

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/juju/errors"

	"github.com/ahmadadeltub/green-smart-pedal/helpers"
	"github.com/ahmadadeltub/green-smart-pedal/internal/display"
	"github.com/ahmadadeltub/green-smart-pedal/internal/state"
	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
)

const DefaultRedeemTimeout = 10 * time.Second

const defaultCodeTemplate = "green-smart-pedal card=%s points=%d"

// Session is the in-memory working copy of one card's ledger record.
// Owned exclusively by the UI loop goroutine.
type Session struct {
	CardID string
	Count  int
}

func (s *Session) Active() bool { return s.CardID != "" }

type UI struct { //nolint:maligned
	// Set before Init to override hardware bindings, tests do.
	Display   types.Displayer
	Indicator types.Indicator
	Events    chan types.Event

	g       *state.Global
	state   State
	session Session
	eventch chan types.Event

	redeemTimeout time.Duration
	codeTemplate  string

	XXX_testHook func(State)
}

func (self *UI) Init(ctx context.Context) error {
	self.g = state.GetGlobal(ctx)
	self.setState(StateAwaitCard)

	cfg := &self.g.Config.UI
	if cfg.MsgIntro == "" {
		cfg.MsgIntro = "scan your card"
	}
	if cfg.MsgCardLoaded == "" {
		cfg.MsgCardLoaded = "card loaded"
	}
	if cfg.MsgStorageFail == "" {
		cfg.MsgStorageFail = "points not saved - call staff"
	}
	if cfg.MsgCodeFail == "" {
		cfg.MsgCodeFail = "code failed - points are saved"
	}
	self.codeTemplate = cfg.CodeTemplate
	if self.codeTemplate == "" {
		self.codeTemplate = defaultCodeTemplate
	}
	self.redeemTimeout = helpers.IntSecondDefault(cfg.RedeemSec, DefaultRedeemTimeout)

	if self.Display == nil {
		d, err := self.g.Display()
		if err != nil {
			return errors.Annotate(err, "ui display")
		}
		self.Display = display.NewSink(d, self.g.Log)
	}
	if self.Indicator == nil {
		leds, err := self.g.Leds()
		if err != nil {
			return errors.Annotate(err, "ui leds")
		}
		self.Indicator = leds
	}
	if self.Events != nil {
		self.eventch = self.Events
	} else {
		self.eventch = self.g.Hardware.Input.SubscribeChan("ui", self.g.Alive.StopChan())
	}

	// Error LED mirrors every logged error. The guard breaks the cycle
	// when the pulse itself fails and logs.
	var pulsing int32
	self.g.Log.SetErrorFunc(func(error) {
		if atomic.CompareAndSwapInt32(&pulsing, 0, 1) {
			self.Indicator.Pulse(types.IndicatorError, 0)
			atomic.StoreInt32(&pulsing, 0)
		}
	})

	return nil
}

func (self *UI) wait(timeout time.Duration) types.Event {
	tmr := time.NewTimer(timeout)
	defer tmr.Stop()
	select {
	case e, ok := <-self.eventch:
		if !ok {
			return types.Event{Kind: types.EventStop}
		}
		return e

	case <-tmr.C:
		return types.Event{Kind: types.EventTime}

	case <-self.g.Alive.StopChan():
		return types.Event{Kind: types.EventStop}
	}
}
