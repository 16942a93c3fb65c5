// Package queue implements the command queue scheduler: four intrusive
// queues (player, object, wait, semaphore), a bounded handle table,
// admission control, the dispatch tick and the timer sweep.
package queue

import (
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// Kind names the queue an entry is threaded on.
type Kind int

const (
	KindNone Kind = iota // not threaded (new, dispatching or freed)
	KindPlayer
	KindObject
	KindWait
	KindSemaphore
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindPlayer:
		return "Player"
	case KindObject:
		return "Object"
	case KindWait:
		return "Wait"
	case KindSemaphore:
		return "Semaphore"
	}
	invariant(false, "unknown queue kind %d", int(k))
	return ""
}

// Entry is one pending command. An Actor of gamedb.Nothing marks the entry
// as halted; it is never dispatched, only reaped.
type Entry struct {
	Actor   gamedb.DBRef
	Cause   gamedb.DBRef
	Handle  int
	Due     time.Time    // zero means ready, or no timeout for a semaphore wait
	Sem     gamedb.DBRef // semaphore object, Nothing when not blocked
	Attr    int          // counter attribute on Sem
	Command string
	Args    []string
	Regs    *eval.RegisterData

	kind       Kind
	prev, next *Entry
}

// Kind reports which queue currently threads e.
func (e *Entry) Kind() Kind { return e.kind }

// Halted reports whether e has been halted.
func (e *Entry) Halted() bool { return e.Actor == gamedb.Nothing }

// list is an intrusive doubly-linked queue. An entry is on at most one
// list at a time; its kind records which.
type list struct {
	kind       Kind
	head, tail *Entry
	n          int
}

func (l *list) len() int { return l.n }

func (l *list) pushBack(e *Entry) {
	invariant(e.kind == KindNone, "entry %d threaded on %v and %v", e.Handle, e.kind, l.kind)
	e.kind = l.kind
	e.prev, e.next = l.tail, nil
	if l.tail != nil {
		l.tail.next = e
	} else {
		l.head = e
	}
	l.tail = e
	l.n++
}

// insertSorted threads e after every entry due no later than it, so equal
// due times keep submission order.
func (l *list) insertSorted(e *Entry) {
	p := l.tail
	for p != nil && p.Due.After(e.Due) {
		p = p.prev
	}
	if p == nil {
		l.pushFront(e)
		return
	}
	invariant(e.kind == KindNone, "entry %d threaded on %v and %v", e.Handle, e.kind, l.kind)
	e.kind = l.kind
	e.prev, e.next = p, p.next
	if p.next != nil {
		p.next.prev = e
	} else {
		l.tail = e
	}
	p.next = e
	l.n++
}

func (l *list) pushFront(e *Entry) {
	invariant(e.kind == KindNone, "entry %d threaded on %v and %v", e.Handle, e.kind, l.kind)
	e.kind = l.kind
	e.prev, e.next = nil, l.head
	if l.head != nil {
		l.head.prev = e
	} else {
		l.tail = e
	}
	l.head = e
	l.n++
}

func (l *list) remove(e *Entry) {
	invariant(e.kind == l.kind, "entry %d removed from %v but threaded on %v", e.Handle, l.kind, e.kind)
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
	e.kind = KindNone
	l.n--
}

func (l *list) popFront() *Entry {
	e := l.head
	if e != nil {
		l.remove(e)
	}
	return e
}

// appendList moves every entry of o onto the tail of l, preserving order.
func (l *list) appendList(o *list) {
	if o.head == nil {
		return
	}
	for e := o.head; e != nil; e = e.next {
		e.kind = l.kind
	}
	if l.tail != nil {
		l.tail.next = o.head
		o.head.prev = l.tail
	} else {
		l.head = o.head
	}
	l.tail = o.tail
	l.n += o.n
	o.head, o.tail, o.n = nil, nil, 0
}

// checkSorted verifies the wait queue ordering.
func (l *list) checkSorted() {
	for e := l.head; e != nil && e.next != nil; e = e.next {
		invariant(!e.Due.After(e.next.Due), "wait queue out of order at entry %d", e.Handle)
	}
}
