package types

import "fmt"

type EventKind uint8

const (
	EventInvalid EventKind = iota
	EventInput
	EventCard
	EventTime
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventInvalid:
		return "Invalid"
	case EventInput:
		return "Input"
	case EventCard:
		return "Card"
	case EventTime:
		return "Time"
	case EventStop:
		return "Stop"
	}
	return fmt.Sprintf("?%d", uint8(k))
}

type Event struct {
	Input InputEvent
	Card  CardEvent
	Kind  EventKind
}

func (e *Event) String() string {
	inner := ""
	switch e.Kind {
	case EventInput:
		inner = fmt.Sprintf(" source=%s key=%v up=%t", e.Input.Source, e.Input.Key, e.Input.Up)
	case EventCard:
		inner = fmt.Sprintf(" uid=%s cancelled=%t", e.Card.UID, e.Card.Cancelled)
	}
	return fmt.Sprintf("Event(%s%s)", e.Kind.String(), inner)
}

type InputKey uint16

// Logical keys, not scan codes. Sources translate hardware edges to these.
const (
	KeyInvalid InputKey = iota
	KeyPedal
	KeyRedeem
)

type InputEvent struct {
	Source string
	Key    InputKey
	Up     bool
}

func (e *InputEvent) IsZero() bool { return e.Key == KeyInvalid }

// CardEvent is one completed RFID scan, or an explicit user abort of the
// card prompt. UID is trimmed, opaque.
type CardEvent struct {
	UID       string
	Cancelled bool
}
