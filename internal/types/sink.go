package types

import "time"

type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "?"
}

// Displayer receives session snapshots. Implementations must not retain
// or mutate session state; they only render.
type Displayer interface {
	CountChanged(count int)
	// CodeReady renders text as a scannable image. Returns CodeGenError
	// on encode failure, caller surfaces it and keeps going.
	CodeReady(text string) error
	CodeFailed()
	Status(msg string, severity Severity)
	PromptCard()
}

type IndicatorChannel uint8

const (
	IndicatorPedal IndicatorChannel = iota
	IndicatorRedeem
	IndicatorError
)

func (c IndicatorChannel) String() string {
	switch c {
	case IndicatorPedal:
		return "pedal"
	case IndicatorRedeem:
		return "redeem"
	case IndicatorError:
		return "error"
	}
	return "?"
}

type Indicator interface {
	Pulse(channel IndicatorChannel, d time.Duration)
	// Off forces every indicator output inactive. Called on all exit paths.
	Off()
}
