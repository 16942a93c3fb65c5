package queue

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// Objects answers the questions the scheduler asks about actors.
type Objects interface {
	Valid(ref gamedb.DBRef) bool
	Owner(ref gamedb.DBRef) gamedb.DBRef
	IsPlayer(ref gamedb.DBRef) bool
	IsGoing(ref gamedb.DBRef) bool
	IsHalted(ref gamedb.DBRef) bool
	SetHalted(ref gamedb.DBRef, halted bool)
}

// Ledger is the economy admission charges against.
type Ledger interface {
	// PayFor deducts cost from who, reporting false if they cannot afford it.
	PayFor(who gamedb.DBRef, cost int) bool
	GiveTo(who gamedb.DBRef, amount int)
	// QueueMax is the most entries owner may have queued at once.
	QueueMax(owner gamedb.DBRef) int
}

// Counters stores semaphore counts in integer attributes.
type Counters interface {
	AddInt(obj gamedb.DBRef, attr, delta int) int
	Int(obj gamedb.DBRef, attr int) int
	Clear(obj gamedb.DBRef, attr int)
}

// Executor runs one dispatched command line. regs is the active register
// set for the command; the set active when the command finishes is
// returned.
type Executor interface {
	Execute(ctx context.Context, actor gamedb.DBRef, e *Entry, regs *eval.RegisterData) *eval.RegisterData
}

// Notifier delivers a message to a player or object.
type Notifier interface {
	Notify(target gamedb.DBRef, msg string)
}

// Config holds the scheduler limits.
type Config struct {
	MaxHandles  int // size of the handle space
	WaitCost    int // pennies held per queued command
	MachineCost int // 1-in-N chance of a one penny surcharge; 0 disables
	Clock       func() time.Time
	Rand        func(n int) int // uniform in [0, n)
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxHandles:  10000,
		WaitCost:    10,
		MachineCost: 64,
		Clock:       time.Now,
		Rand:        rand.IntN,
	}
}

// IdleWake is the longest NextWake will ever ask the caller to sleep.
const IdleWake = 1000 * time.Second

// Stats is a point-in-time snapshot for metrics and the heartbeat.
type Stats struct {
	Player, Object, Wait, Semaphore int
	Handles                         int
	Dispatched                      uint64
	Reaped                          uint64 // halted entries skipped at dispatch
	Halted                          uint64
	Rejected                        uint64
	Released                        uint64 // semaphore waits made ready
	Drained                         uint64
	RegsInstalled                   uint64
	RegsSkipped                     uint64
}

// Request describes a command to queue.
type Request struct {
	Actor   gamedb.DBRef
	Cause   gamedb.DBRef
	Command string
	Args    []string
	Regs    *eval.RegisterData // copied on submit
	Delay   time.Duration      // > 0 puts the entry on the wait queue
	Wait    *SemWait           // non-nil blocks on a semaphore
}

// SemWait blocks a request until (Obj, Attr) is notified. Attr 0 means
// the SEMAPHORE attribute. Timeout applies to SEMAPHORE waits only.
type SemWait struct {
	Obj     gamedb.DBRef
	Attr    int
	Timeout time.Duration
}

// Scheduler owns the four queues and the handle table. All state is
// guarded by one mutex, which is released while a command executes so
// commands may call back into the scheduler. Dispatch (RunTick, Kick)
// must be driven from a single goroutine.
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	objs     Objects
	ledger   Ledger
	counters Counters
	exec     Executor
	notifier Notifier

	player, object, wait, sem list
	handles                   handleTable
	queued                    map[gamedb.DBRef]int // entries per owner
	dequeue                   bool
	regs                      *eval.RegisterData
	stats                     Stats
}

// New creates a scheduler with automatic dequeueing enabled.
func New(cfg Config, objs Objects, ledger Ledger, counters Counters, exec Executor, notifier Notifier) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.IntN
	}
	if cfg.MaxHandles <= 0 {
		cfg.MaxHandles = DefaultConfig().MaxHandles
	}
	return &Scheduler{
		cfg:      cfg,
		objs:     objs,
		ledger:   ledger,
		counters: counters,
		exec:     exec,
		notifier: notifier,
		player:   list{kind: KindPlayer},
		object:   list{kind: KindObject},
		wait:     list{kind: KindWait},
		sem:      list{kind: KindSemaphore},
		handles:  newHandleTable(cfg.MaxHandles),
		queued:   make(map[gamedb.DBRef]int),
		dequeue:  true,
	}
}

// Reconfigure applies new limits. Clock and Rand are kept when unset.
func (s *Scheduler) Reconfigure(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Clock == nil {
		cfg.Clock = s.cfg.Clock
	}
	if cfg.Rand == nil {
		cfg.Rand = s.cfg.Rand
	}
	if cfg.MaxHandles <= 0 {
		cfg.MaxHandles = s.cfg.MaxHandles
	}
	s.cfg = cfg
	s.handles.resize(cfg.MaxHandles)
}

type note struct {
	to  gamedb.DBRef
	msg string
}

func (s *Scheduler) send(notes []note) {
	if s.notifier == nil {
		return
	}
	for _, n := range notes {
		s.notifier.Notify(n.to, n.msg)
	}
}

// Submit runs admission control and queues r. It returns the new entry's
// handle.
func (s *Scheduler) Submit(r Request) (int, error) {
	var notes []note
	s.mu.Lock()
	h, err := s.submitLocked(r, &notes)
	s.mu.Unlock()
	s.send(notes)
	return h, err
}

func (s *Scheduler) submitLocked(r Request, notes *[]note) (int, error) {
	e, err := s.admit(r, notes)
	if err != nil {
		s.stats.Rejected++
		return 0, err
	}
	now := s.cfg.Clock()

	switch {
	case r.Wait != nil:
		attr := r.Wait.Attr
		if attr == 0 {
			attr = gamedb.AttrSemaphore
		}
		// A counter already driven negative by notifies lets the wait through.
		if s.counters.AddInt(r.Wait.Obj, attr, 1) <= 0 {
			s.ready(e)
			break
		}
		e.Sem = r.Wait.Obj
		e.Attr = attr
		if r.Wait.Timeout > 0 && attr == gamedb.AttrSemaphore {
			e.Due = now.Add(r.Wait.Timeout)
		}
		s.sem.pushBack(e)
	case r.Delay > 0:
		e.Due = now.Add(r.Delay)
		s.wait.insertSorted(e)
	default:
		s.ready(e)
	}
	return e.Handle, nil
}

// admit charges the actor, enforces the owner's quota and allocates a
// handle. On failure nothing is left behind.
func (s *Scheduler) admit(r Request, notes *[]note) (*Entry, error) {
	if s.objs.IsHalted(r.Actor) {
		return nil, ErrHalted
	}
	owner := s.objs.Owner(r.Actor)

	cost := s.cfg.WaitCost
	if cost > 0 && s.cfg.MachineCost > 0 && s.cfg.Rand(s.cfg.MachineCost) == 0 {
		cost++
	}
	if !s.ledger.PayFor(r.Actor, cost) {
		*notes = append(*notes, note{owner, "Not enough money to queue command."})
		return nil, ErrInsufficientFunds
	}

	s.queued[owner]++
	if s.queued[owner] > s.ledger.QueueMax(owner) {
		log.Printf("QUEUE: run-away owner #%d (%d queued), halting", owner, s.queued[owner])
		*notes = append(*notes, note{owner, "Run away objects: too many commands queued.  Halted."})
		s.haltLocked(owner, gamedb.Nothing)
		s.objs.SetHalted(r.Actor, true)
		s.ledger.GiveTo(r.Actor, cost)
		return nil, ErrQuotaExceeded
	}

	e := &Entry{
		Actor:   r.Actor,
		Cause:   r.Cause,
		Sem:     gamedb.Nothing,
		Command: r.Command,
		Regs:    r.Regs.Clone(),
	}
	if len(r.Args) > 0 {
		e.Args = append([]string(nil), r.Args...)
	}
	if !s.handles.alloc(e) {
		log.Printf("QUEUE: handle space exhausted (%d), rejecting command from #%d", s.cfg.MaxHandles, r.Actor)
		*notes = append(*notes, note{owner, "Could not queue command. The queue is full."})
		s.unqueue(owner, 1)
		s.ledger.GiveTo(r.Actor, cost)
		return nil, ErrQueueFull
	}
	return e, nil
}

// ready threads e onto the player or object queue by the actor's category.
func (s *Scheduler) ready(e *Entry) {
	e.Due = time.Time{}
	if s.objs.IsPlayer(e.Actor) {
		s.player.pushBack(e)
	} else {
		s.object.pushBack(e)
	}
}

// unqueue lowers owner's queued count by n, never below zero.
func (s *Scheduler) unqueue(owner gamedb.DBRef, n int) {
	if c := s.queued[owner] - n; c > 0 {
		s.queued[owner] = c
	} else {
		delete(s.queued, owner)
	}
}

// release frees e's handle. e must not be threaded on any queue.
func (s *Scheduler) release(e *Entry) {
	invariant(e.kind == KindNone, "freeing entry %d still threaded on %v", e.Handle, e.kind)
	s.handles.free(e)
}

// Queued reports how many entries owner has queued.
func (s *Scheduler) Queued(owner gamedb.DBRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued[owner]
}

// Lookup returns a copy of the entry holding handle h. Its arguments and
// registers are copies too.
func (s *Scheduler) Lookup(h int) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.handles.get(h)
	if e == nil {
		return Entry{}, false
	}
	cp := *e
	cp.prev, cp.next = nil, nil
	cp.Args = append([]string(nil), e.Args...)
	cp.Regs = e.Regs.Clone()
	return cp, true
}

// Stats returns a snapshot of queue lengths and counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Player = s.player.len()
	st.Object = s.object.len()
	st.Wait = s.wait.len()
	st.Semaphore = s.sem.len()
	st.Handles = s.handles.inUse()
	return st
}

// SetDequeue turns automatic dequeueing on or off. While off, RunTick and
// Sweep do nothing; Kick still dispatches.
func (s *Scheduler) SetDequeue(on bool) {
	s.mu.Lock()
	s.dequeue = on
	s.mu.Unlock()
}

// Dequeue reports whether automatic dequeueing is on.
func (s *Scheduler) Dequeue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dequeue
}
