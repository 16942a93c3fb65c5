package queue

import (
	"log"
	"time"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// Halt cancels every entry whose actor is owned by owner and/or is object.
// Either filter may be gamedb.Nothing; both Nothing halts everything.
// Ready entries are marked halted in place and reaped at dispatch; wait
// and semaphore entries are freed at once. It returns the number of
// entries halted.
func (s *Scheduler) Halt(owner, object gamedb.DBRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haltLocked(owner, object)
}

func (s *Scheduler) wants(e *Entry, owner, object gamedb.DBRef) bool {
	if e.Halted() || !s.objs.Valid(e.Actor) {
		return false
	}
	if owner != gamedb.Nothing && s.objs.Owner(e.Actor) != owner {
		return false
	}
	return object == gamedb.Nothing || e.Actor == object
}

func (s *Scheduler) haltLocked(owner, object gamedb.DBRef) int {
	bulk := owner == gamedb.Nothing && object == gamedb.Nothing
	perOwner := make(map[gamedb.DBRef]int)
	n := 0

	mark := func(e *Entry) {
		perOwner[s.objs.Owner(e.Actor)]++
		e.Actor = gamedb.Nothing
		n++
	}
	for _, l := range []*list{&s.player, &s.object} {
		for e := l.head; e != nil; e = e.next {
			if s.wants(e, owner, object) {
				mark(e)
			}
		}
	}
	for e := s.wait.head; e != nil; {
		next := e.next
		if s.wants(e, owner, object) {
			mark(e)
			s.wait.remove(e)
			s.release(e)
		}
		e = next
	}
	for e := s.sem.head; e != nil; {
		next := e.next
		if s.wants(e, owner, object) {
			mark(e)
			s.sem.remove(e)
			s.counters.AddInt(e.Sem, e.Attr, -1)
			s.release(e)
		}
		e = next
	}
	s.stats.Halted += uint64(n)

	if bulk {
		for o, c := range perOwner {
			s.ledger.GiveTo(o, s.cfg.WaitCost*c)
		}
		clear(s.queued)
		return n
	}

	victim := owner
	if victim == gamedb.Nothing {
		victim = s.objs.Owner(object)
	}
	if n > 0 {
		s.ledger.GiveTo(victim, s.cfg.WaitCost*n)
	}
	if object == gamedb.Nothing {
		delete(s.queued, victim)
	} else {
		s.unqueue(victim, n)
	}
	return n
}

// HaltHandle cancels the single entry holding handle h.
func (s *Scheduler) HaltHandle(h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h < 1 || h > s.handles.max {
		return ErrInvalidHandle
	}
	e := s.handles.get(h)
	if e == nil {
		return ErrNoSuchHandle
	}
	if e.Halted() {
		return ErrAlreadyHalted
	}

	victim := s.objs.Owner(e.Actor)
	e.Actor = gamedb.Nothing
	switch e.kind {
	case KindWait:
		s.wait.remove(e)
		s.release(e)
	case KindSemaphore:
		s.sem.remove(e)
		s.counters.AddInt(e.Sem, e.Attr, -1)
		s.release(e)
	}
	s.ledger.GiveTo(victim, s.cfg.WaitCost)
	s.unqueue(victim, 1)
	s.stats.Halted++
	return nil
}

// Notify releases up to count entries waiting on (obj, attr), oldest
// first, and lowers the counter by the number released. Attr 0 means
// the SEMAPHORE attribute. Nothing happens unless the counter is
// positive. It returns the number released.
func (s *Scheduler) Notify(obj gamedb.DBRef, attr, count int) int {
	if attr == 0 {
		attr = gamedb.AttrSemaphore
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters.Int(obj, attr) <= 0 {
		return 0
	}
	n := s.releaseLocked(obj, attr, count)
	if n > 0 {
		s.counters.AddInt(obj, attr, -n)
	}
	return n
}

// NotifyAll releases every entry waiting on (obj, attr) and clears the
// counter. Entries are only released while the counter is positive, but
// the counter is cleared either way.
func (s *Scheduler) NotifyAll(obj gamedb.DBRef, attr int) int {
	if attr == 0 {
		attr = gamedb.AttrSemaphore
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	if s.counters.Int(obj, attr) > 0 {
		n = s.releaseLocked(obj, attr, -1)
	}
	s.counters.Clear(obj, attr)
	return n
}

// releaseLocked moves up to limit matching semaphore entries to the ready
// queues. A negative limit releases them all.
func (s *Scheduler) releaseLocked(obj gamedb.DBRef, attr, limit int) int {
	n := 0
	for e := s.sem.head; e != nil && (limit < 0 || n < limit); {
		next := e.next
		if e.Sem == obj && e.Attr == attr {
			s.sem.remove(e)
			e.Sem = gamedb.Nothing
			s.ready(e)
			n++
		}
		e = next
	}
	s.stats.Released += uint64(n)
	return n
}

// Drain discards every entry waiting on (obj, attr) without running it,
// refunds each actor and clears the counter. It returns the number
// discarded.
func (s *Scheduler) Drain(obj gamedb.DBRef, attr int) int {
	if attr == 0 {
		attr = gamedb.AttrSemaphore
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for e := s.sem.head; e != nil; {
		next := e.next
		if e.Sem == obj && e.Attr == attr {
			s.sem.remove(e)
			if !e.Halted() {
				s.ledger.GiveTo(e.Actor, s.cfg.WaitCost)
				s.unqueue(s.objs.Owner(e.Actor), 1)
			}
			s.release(e)
			n++
		}
		e = next
	}
	s.counters.Clear(obj, attr)
	s.stats.Drained += uint64(n)
	if n > 0 {
		log.Printf("QUEUE: drained %d entries waiting on #%d/%d", n, obj, attr)
	}
	return n
}

// WaitMode selects how AdjustWait interprets its argument.
type WaitMode int

const (
	WaitFromNow  WaitMode = iota // due = now + secs
	WaitRelative                 // due = due + secs
	WaitUntil                    // due = epoch secs; negative means now
)

// AdjustWait changes the due time of a waiting entry. A result in the
// past becomes now.
func (s *Scheduler) AdjustWait(h int, mode WaitMode, secs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h < 1 || h > s.handles.max {
		return ErrInvalidHandle
	}
	e := s.handles.get(h)
	if e == nil {
		return ErrNoSuchHandle
	}
	if e.Halted() {
		return ErrAlreadyHalted
	}
	switch e.kind {
	case KindWait:
	case KindSemaphore:
		if e.Due.IsZero() {
			return ErrNoTimeout
		}
	default:
		return ErrNotWaiting
	}

	now := s.cfg.Clock()
	var due time.Time
	switch mode {
	case WaitUntil:
		if secs < 0 {
			due = now
		} else {
			due = time.Unix(secs, 0)
		}
	case WaitRelative:
		due = e.Due.Add(time.Duration(secs) * time.Second)
	case WaitFromNow:
		due = now.Add(time.Duration(secs) * time.Second)
	default:
		invariant(false, "unknown wait mode %d", int(mode))
	}
	if due.Before(now) {
		due = now
	}

	e.Due = due
	if e.kind == KindWait {
		s.wait.remove(e)
		s.wait.insertSorted(e)
		s.wait.checkSorted()
	}
	return nil
}
