package ui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	atomic_clock "github.com/temoto/atomic_clock"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
)

type State uint32

const (
	StateDefault State = iota

	StateAwaitCard // t=card +scan=Active +cancel=AwaitCard
	StateActive    // t=input +pedal=Active +redeem=Redeem
	StateRedeem    // t=timeout ->AwaitCard; pedal/redeem ignored (lockout)

	StateStop
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateAwaitCard:
		return "AwaitCard"
	case StateActive:
		return "Active"
	case StateRedeem:
		return "Redeem"
	case StateStop:
		return "Stop"
	}
	return fmt.Sprintf("?%d", uint32(s))
}

// idlePoll bounds waits in non-timed states so the loop notices stop.
const idlePoll = 1 * time.Second

func (self *UI) State() State       { return State(atomic.LoadUint32((*uint32)(&self.state))) }
func (self *UI) setState(new State) { atomic.StoreUint32((*uint32)(&self.state), uint32(new)) }

func (self *UI) Loop(ctx context.Context) {
	self.g.Alive.Add(1)
	defer self.g.Alive.Done()
	next := StateDefault
	for next != StateStop && self.g.Alive.IsRunning() {
		current := self.State()
		next = self.enter(ctx, current)
		if next == StateDefault {
			self.g.Log.Fatalf("ui state=%s next=default", current.String())
		}
		self.exit(ctx, current, next)

		if !self.g.Alive.IsRunning() {
			self.g.Log.Debugf("ui Loop stopping because g.Alive")
			next = StateStop
		}

		self.setState(next)
		if self.XXX_testHook != nil {
			self.XXX_testHook(next)
		}
	}
	self.Indicator.Off()
	self.g.Log.Debugf("ui loop end")
}

func (self *UI) enter(ctx context.Context, s State) State {
	self.g.Log.Debugf("ui enter %s", s.String())
	switch s {
	case StateAwaitCard:
		return self.onAwaitCard()

	case StateActive:
		return self.onActive()

	case StateRedeem:
		return self.onRedeem()

	case StateStop:
		return StateStop

	default:
		self.g.Log.Fatalf("unhandled ui state=%s", s.String())
		return StateDefault
	}
}

func (self *UI) exit(ctx context.Context, current, next State) {
	self.g.Log.Debugf("ui exit %s -> %s", current.String(), next.String())
}

func (self *UI) onAwaitCard() State {
	self.session = Session{}
	if card := self.g.Config.UI.AnonymousCard; card != "" {
		// readerless kiosk: one implicit card, no prompt
		return self.onCardScan(card)
	}
	self.Display.PromptCard()
	self.Display.Status(self.g.Config.UI.MsgIntro, types.SeverityInfo)

	for self.g.Alive.IsRunning() {
		e := self.wait(idlePoll)
		switch e.Kind {
		case types.EventCard:
			if e.Card.Cancelled {
				self.g.Log.Debugf("ui card prompt cancelled")
				self.Display.PromptCard()
				self.Display.Status(self.g.Config.UI.MsgIntro, types.SeverityInfo)
				continue
			}
			uid := strings.TrimSpace(e.Card.UID)
			if uid == "" {
				continue
			}
			return self.onCardScan(uid)

		case types.EventInput:
			self.g.Log.Debugf("ui await-card ignore %s", e.String())

		case types.EventStop:
			return StateStop
		}
	}
	return StateStop
}

func (self *UI) onCardScan(uid string) State {
	count := 0
	if l, err := self.g.LedgerStore(); err != nil {
		self.g.Log.Error(errors.Annotatef(err, "ledger open card=%s", uid))
		self.Display.Status(self.g.Config.UI.MsgStorageFail, types.SeverityError)
	} else if points, found, err := l.Find(uid); err != nil {
		self.g.Log.Error(errors.Annotatef(err, "ledger find card=%s", uid))
		self.Display.Status(self.g.Config.UI.MsgStorageFail, types.SeverityError)
	} else if found {
		count = points
	}

	self.session = Session{CardID: uid, Count: count}
	if err := self.g.Journal.Store(uid, count); err != nil {
		self.g.Log.Error(err)
	}
	self.g.Log.Infof("ui session begin card=%s count=%d", uid, count)
	self.Display.Status(self.g.Config.UI.MsgCardLoaded, types.SeverityInfo)
	self.Display.CountChanged(count)
	return StateActive
}

func (self *UI) onActive() State {
	for self.g.Alive.IsRunning() {
		e := self.wait(idlePoll)
		switch e.Kind {
		case types.EventInput:
			switch e.Input.Key {
			case types.KeyPedal:
				self.session.Count++
				if err := self.g.Journal.Store(self.session.CardID, self.session.Count); err != nil {
					self.g.Log.Error(err)
				}
				self.Indicator.Pulse(types.IndicatorPedal, 0)
				self.Display.CountChanged(self.session.Count)

			case types.KeyRedeem:
				return StateRedeem

			default:
				self.g.Log.Debugf("ui active ignore %s", e.String())
			}

		case types.EventCard:
			// mid-session scans don't switch users, finish this session first
			self.g.Log.Debugf("ui active ignore %s", e.String())

		case types.EventStop:
			return StateStop
		}
	}
	return StateStop
}

func (self *UI) onRedeem() State {
	text := fmt.Sprintf(self.codeTemplate, self.session.CardID, self.session.Count)
	if err := self.Display.CodeReady(text); err != nil {
		// recoverable: show failure, points still get saved below
		self.g.Log.Error(errors.Annotatef(err, "redeem code card=%s", self.session.CardID))
		self.Display.CodeFailed()
		self.Display.Status(self.g.Config.UI.MsgCodeFail, types.SeverityWarning)
	}

	// The ledger write is not optional and happens before the lockout
	// timer is armed.
	if err := self.saveSession(); err != nil {
		self.g.Log.Error(errors.Annotatef(err, "redeem save card=%s count=%d", self.session.CardID, self.session.Count))
		self.Display.Status(self.g.Config.UI.MsgStorageFail, types.SeverityError)
	} else {
		if err := self.g.Journal.Clear(); err != nil {
			self.g.Log.Error(err)
		}
		self.Indicator.Pulse(types.IndicatorRedeem, 0)
		self.g.Log.Infof("ui redeem card=%s points=%d", self.session.CardID, self.session.Count)
	}

	armed := atomic_clock.Now()
	for {
		elapsed := atomic_clock.Since(armed)
		if elapsed >= self.redeemTimeout {
			return StateAwaitCard
		}
		e := self.wait(self.redeemTimeout - elapsed)
		switch e.Kind {
		case types.EventTime:
			// loop re-checks elapsed

		case types.EventStop:
			return StateStop

		default:
			// lockout: no increments, no second redeem
			self.g.Log.Debugf("ui redeem lockout ignore %s", e.String())
		}
	}
}

func (self *UI) saveSession() error {
	l, err := self.g.LedgerStore()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(l.Upsert(self.session.CardID, self.session.Count))
}
