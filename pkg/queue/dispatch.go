package queue

import (
	"context"
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// RunTick dispatches up to n entries from the head of the player queue.
// It does nothing while dequeueing is off. It returns the number of
// entries popped, halted ones included.
func (s *Scheduler) RunTick(ctx context.Context, n int) int {
	if !s.Dequeue() {
		return 0
	}
	return s.run(ctx, n)
}

// Kick dispatches up to n entries regardless of the dequeue switch.
func (s *Scheduler) Kick(ctx context.Context, n int) int {
	return s.run(ctx, n)
}

func (s *Scheduler) run(ctx context.Context, n int) int {
	done := 0
	for done < n && ctx.Err() == nil {
		s.mu.Lock()
		e := s.player.popFront()
		if e == nil {
			s.mu.Unlock()
			break
		}
		done++

		actor := e.Actor
		live := actor != gamedb.Nothing && s.objs.Valid(actor) && !s.objs.IsGoing(actor)
		if live {
			s.ledger.GiveTo(actor, s.cfg.WaitCost)
			s.unqueue(s.objs.Owner(actor), 1)
			e.Actor = gamedb.Nothing
		}
		runnable := live && !s.objs.IsHalted(actor)
		var regs *eval.RegisterData
		if runnable {
			s.installRegs(e.Regs)
			regs = s.regs
		} else {
			s.stats.Reaped++
		}
		s.mu.Unlock()

		if runnable && s.exec != nil {
			regs = s.exec.Execute(ctx, actor, e, regs)
		}

		s.mu.Lock()
		if runnable {
			s.regs = regs
			s.stats.Dispatched++
		}
		s.release(e)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.regs = nil
	s.mu.Unlock()
	return done
}

// installRegs makes r the active register set, keeping the current one
// when it is an unmodified copy of r.
func (s *Scheduler) installRegs(r *eval.RegisterData) {
	if s.regs != nil && r != nil && s.regs.Version == r.Version {
		s.stats.RegsSkipped++
		return
	}
	s.regs = r
	s.stats.RegsInstalled++
}

// Sweep runs the timer pass: the object queue moves to the tail of the
// player queue, due wait entries become ready and timed semaphore waits
// that have expired are released. It does nothing while dequeueing is off.
func (s *Scheduler) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dequeue {
		return
	}
	s.sweepLocked()
}

func (s *Scheduler) sweepLocked() {
	now := s.cfg.Clock()
	s.player.appendList(&s.object)

	for e := s.wait.head; e != nil && !e.Due.After(now); e = s.wait.head {
		s.wait.remove(e)
		s.ready(e)
	}

	for e := s.sem.head; e != nil; {
		next := e.next
		if !e.Due.IsZero() && !e.Due.After(now) {
			s.sem.remove(e)
			s.counters.AddInt(e.Sem, e.Attr, -1)
			e.Sem = gamedb.Nothing
			s.ready(e)
		}
		e = next
	}
}

// Warp moves every wait and timed semaphore deadline d earlier, then
// sweeps. Like Kick it ignores the dequeue switch.
func (s *Scheduler) Warp(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved []*Entry
	for e := s.wait.popFront(); e != nil; e = s.wait.popFront() {
		e.Due = e.Due.Add(-d)
		moved = append(moved, e)
	}
	for _, e := range moved {
		s.wait.insertSorted(e)
	}
	s.wait.checkSorted()

	for e := s.sem.head; e != nil; e = e.next {
		if !e.Due.IsZero() {
			e.Due = e.Due.Add(-d)
		}
	}
	s.sweepLocked()
}

// NextWake reports how long the caller may sleep before the next tick
// has work to do. Zero means run again immediately.
func (s *Scheduler) NextWake() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player.len() > 0 {
		return 0
	}
	if s.object.len() > 0 {
		return time.Second
	}

	now := s.cfg.Clock()
	wake := IdleWake
	if e := s.wait.head; e != nil {
		wake = min(wake, e.Due.Sub(now))
	}
	for e := s.sem.head; e != nil; e = e.next {
		if !e.Due.IsZero() {
			wake = min(wake, e.Due.Sub(now))
		}
	}
	if wake <= time.Second {
		return 0
	}
	return wake
}
