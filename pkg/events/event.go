// Package events is the notification bus. Game code emits events
// addressed to a player or object; subscribers (the console, loggers,
// tests) receive the ones addressed to what they watch.
package events

import "github.com/crystal-mush/mushcore/pkg/gamedb"

// EventType classifies an event.
type EventType int

const (
	EvText   EventType = iota // plain notification
	EvThink                   // think output, seen only by the actor
	EvPemit                   // @pemit and pemit()
	EvTrace                   // trace lines sent to an owner
	EvQueue                   // scheduler notices: admission failures, halts
	EvSystem                  // administrative responses
)

func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvThink:
		return "think"
	case EvPemit:
		return "pemit"
	case EvTrace:
		return "trace"
	case EvQueue:
		return "queue"
	case EvSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Event is one message flowing through the bus.
type Event struct {
	Type   EventType
	Player gamedb.DBRef // recipient
	Source gamedb.DBRef // who generated it, Nothing for the game itself
	Text   string
}
