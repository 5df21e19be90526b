package display

import (
	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

// Sink adapts the pixel canvas to the session notification contract.
// The GUI process mirrors the same notifications from the log stream;
// this sink owns only what the session must render itself: the QR code.
type Sink struct {
	d   *Display
	log *log2.Log
}

var _ types.Displayer = new(Sink)

func NewSink(d *Display, log *log2.Log) *Sink {
	return &Sink{d: d, log: log}
}

func (s *Sink) CountChanged(count int) {
	s.log.Infof("display count=%d", count)
}

func (s *Sink) CodeReady(text string) error {
	if err := s.d.QR(text, true, qrcode.High); err != nil {
		return errors.Trace(types.CodeGenError{Err: err})
	}
	s.log.Infof("display code text=%s", text)
	return nil
}

func (s *Sink) CodeFailed() {
	if err := s.d.Clear(); err != nil {
		s.log.Errorf("display clear err=%v", err)
	}
	s.log.Infof("display code failed")
}

func (s *Sink) Status(msg string, severity types.Severity) {
	switch severity {
	case types.SeverityError:
		s.log.Errorf("display status: %s", msg)
	default:
		s.log.Infof("display status [%s]: %s", severity.String(), msg)
	}
}

func (s *Sink) PromptCard() {
	if err := s.d.Clear(); err != nil {
		s.log.Errorf("display clear err=%v", err)
	}
	s.log.Infof("display prompt card")
}
