package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

type counterKey struct {
	obj  gamedb.DBRef
	attr int
}

type sentNote struct {
	To  gamedb.DBRef
	Msg string
}

// fakeWorld stands in for the game: objects, pennies, counters, an
// executor that records what ran and a notifier that records messages.
type fakeWorld struct {
	names    map[gamedb.DBRef]string
	owners   map[gamedb.DBRef]gamedb.DBRef
	players  map[gamedb.DBRef]bool
	going    map[gamedb.DBRef]bool
	halted   map[gamedb.DBRef]bool
	money    map[gamedb.DBRef]int
	quota    int
	counters map[counterKey]int

	ran   []string
	regs  []*eval.RegisterData
	notes []sentNote
	onRun func(e *Entry)
}

const (
	wizard gamedb.DBRef = 1
	bob    gamedb.DBRef = 3
	widget gamedb.DBRef = 5
	gadget gamedb.DBRef = 6
)

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		names:    map[gamedb.DBRef]string{wizard: "Wizard", bob: "Bob", widget: "Widget", gadget: "Gadget"},
		owners:   map[gamedb.DBRef]gamedb.DBRef{wizard: wizard, bob: bob, widget: wizard, gadget: bob},
		players:  map[gamedb.DBRef]bool{wizard: true, bob: true},
		going:    map[gamedb.DBRef]bool{},
		halted:   map[gamedb.DBRef]bool{},
		money:    map[gamedb.DBRef]int{wizard: 100, bob: 100, widget: 100, gadget: 100},
		quota:    100,
		counters: map[counterKey]int{},
	}
}

func (w *fakeWorld) Valid(ref gamedb.DBRef) bool {
	_, ok := w.names[ref]
	return ok
}

func (w *fakeWorld) Owner(ref gamedb.DBRef) gamedb.DBRef {
	if o, ok := w.owners[ref]; ok {
		return o
	}
	return gamedb.Nothing
}

func (w *fakeWorld) IsPlayer(ref gamedb.DBRef) bool { return w.players[ref] }
func (w *fakeWorld) IsGoing(ref gamedb.DBRef) bool  { return w.going[ref] }
func (w *fakeWorld) IsHalted(ref gamedb.DBRef) bool { return w.halted[ref] }

func (w *fakeWorld) SetHalted(ref gamedb.DBRef, h bool) { w.halted[ref] = h }

func (w *fakeWorld) PayFor(who gamedb.DBRef, cost int) bool {
	if w.money[who] < cost {
		return false
	}
	w.money[who] -= cost
	return true
}

func (w *fakeWorld) GiveTo(who gamedb.DBRef, amount int) { w.money[who] += amount }
func (w *fakeWorld) QueueMax(gamedb.DBRef) int           { return w.quota }

func (w *fakeWorld) AddInt(obj gamedb.DBRef, attr, delta int) int {
	k := counterKey{obj, attr}
	w.counters[k] += delta
	return w.counters[k]
}

func (w *fakeWorld) Int(obj gamedb.DBRef, attr int) int { return w.counters[counterKey{obj, attr}] }

func (w *fakeWorld) Clear(obj gamedb.DBRef, attr int) { delete(w.counters, counterKey{obj, attr}) }

func (w *fakeWorld) Execute(_ context.Context, _ gamedb.DBRef, e *Entry, regs *eval.RegisterData) *eval.RegisterData {
	w.ran = append(w.ran, e.Command)
	w.regs = append(w.regs, regs)
	if w.onRun != nil {
		w.onRun(e)
	}
	return regs
}

func (w *fakeWorld) Notify(target gamedb.DBRef, msg string) {
	w.notes = append(w.notes, sentNote{target, msg})
}

func (w *fakeWorld) name(ref gamedb.DBRef) string {
	return fmt.Sprintf("%s(#%d)", w.names[ref], ref)
}

// testClock is a settable clock.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestScheduler(mod func(*Config)) (*Scheduler, *fakeWorld, *testClock) {
	w := newFakeWorld()
	clk := &testClock{now: time.Unix(1700000000, 0)}
	cfg := DefaultConfig()
	cfg.Clock = clk.Now
	cfg.Rand = func(n int) int { return n - 1 }
	if mod != nil {
		mod(&cfg)
	}
	return New(cfg, w, w, w, w, w), w, clk
}
