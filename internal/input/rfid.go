package input

import (
	"io"
	"os"
	"strings"

	inputevent "github.com/temoto/inputevent-go"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
)

const RfidSourceTag = "rfid-scan"

// RFID readers in keyboard-wedge mode type the card UID as digit keys
// and finish with enter. Escape aborts the prompt.
type RfidSource struct {
	f   io.ReadCloser
	buf strings.Builder
}

var _ Source = new(RfidSource)

func (self *RfidSource) String() string { return RfidSourceTag }

func NewRfidSource(device string) (*RfidSource, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return &RfidSource{f: f}, nil
}

func (self *RfidSource) Close() error { return self.f.Close() }

func (self *RfidSource) Read() (types.Event, error) {
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			return types.Event{}, err
		}
		if ie.Type != evKey || ie.Value != int32(inputevent.KeyStateDown) {
			continue
		}
		switch {
		case ie.Code == keyEnter || ie.Code == keyKpEnter:
			uid := strings.TrimSpace(self.buf.String())
			self.buf.Reset()
			if uid == "" {
				continue
			}
			return types.Event{Kind: types.EventCard, Card: types.CardEvent{UID: uid}}, nil

		case ie.Code == keyEsc:
			self.buf.Reset()
			return types.Event{Kind: types.EventCard, Card: types.CardEvent{Cancelled: true}}, nil

		default:
			if d, ok := scanDigit(ie.Code); ok {
				self.buf.WriteByte(d)
			}
		}
	}
}

// Constants from linux input-event-codes.h.
const (
	evKey      = 1 // EV_KEY
	keyEsc     = 1
	keyEnter   = 28
	keyKpEnter = 96
)

// Top-row and keypad digit scan codes from linux input-event-codes.h.
var topRowDigits = [10]byte{'1', '2', '3', '4', '5', '6', '7', '8', '9', '0'} // codes 2..11
var keypadDigits = map[uint16]byte{
	82: '0', 79: '1', 80: '2', 81: '3', 75: '4',
	76: '5', 77: '6', 71: '7', 72: '8', 73: '9',
}

func scanDigit(code uint16) (byte, bool) {
	if code >= 2 && code <= 11 {
		return topRowDigits[code-2], true
	}
	d, ok := keypadDigits[code]
	return d, ok
}
