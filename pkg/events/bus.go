package events

import (
	"sync"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus is a per-recipient pub/sub bus with global subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[gamedb.DBRef][]Subscriber
	global      []Subscriber
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[gamedb.DBRef][]Subscriber),
	}
}

// Subscribe registers sub for events addressed to who.
func (b *Bus) Subscribe(who gamedb.DBRef, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[who] = append(b.subscribers[who], sub)
}

func (b *Bus) Unsubscribe(who gamedb.DBRef, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[who]
	for i, s := range subs {
		if s == sub {
			b.subscribers[who] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[who]) == 0 {
		delete(b.subscribers, who)
	}
}

// SubscribeGlobal registers sub for every event.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// Emit delivers ev to the subscribers of ev.Player and to every global
// subscriber. It returns the number of deliveries.
func (b *Bus) Emit(ev Event) int {
	b.mu.RLock()
	subs := b.subscribers[ev.Player]
	globals := b.global
	b.mu.RUnlock()

	n := 0
	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
			n++
		}
	}
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
			n++
		}
	}
	return n
}

// Notify emits a text event from the game to who.
func (b *Bus) Notify(who gamedb.DBRef, typ EventType, text string) {
	b.Emit(Event{Type: typ, Player: who, Source: gamedb.Nothing, Text: text})
}

// Subscribers returns the number of subscribers watching who.
func (b *Bus) Subscribers(who gamedb.DBRef) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[who])
}

// Cleanup drops closed subscribers.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for who, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, who)
		} else {
			b.subscribers[who] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}

// Recorder is a Subscriber that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *Recorder) Receive(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close stops the recorder from receiving further events.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Events returns a copy of everything received so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Texts returns the text of every event received so far.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Text
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// SubscriberFunc adapts a function to the Subscriber interface. It never
// closes.
type SubscriberFunc func(ev Event)

func (f SubscriberFunc) Receive(ev Event) { f(ev) }
func (f SubscriberFunc) Closed() bool     { return false }
