package input

import (
	"io"

	"github.com/ahmadadeltub/green-smart-pedal/internal/types"
)

// ChanSource feeds scripted events through the dispatch, tests only.
type ChanSource struct {
	Tag string
	Ch  chan types.Event
}

var _ Source = new(ChanSource)

func NewChanSource(tag string) *ChanSource {
	return &ChanSource{Tag: tag, Ch: make(chan types.Event)}
}

func (self *ChanSource) String() string { return self.Tag }

func (self *ChanSource) Read() (types.Event, error) {
	e, ok := <-self.Ch
	if !ok {
		return types.Event{}, io.EOF
	}
	return e, nil
}
