// Package server wires the database, the evaluator and the command queue
// into a running game: it executes queued command lines, answers the
// scheduler's questions about objects and money, and drives the tick loop.
package server

import (
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/crystal-mush/mushcore/pkg/boltstore"
	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/eval/functions"
	"github.com/crystal-mush/mushcore/pkg/events"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/queue"
)

// Game is the running world. Everything except Bus, Metrics and the
// scheduler's own state is touched only from the loop goroutine.
type Game struct {
	DB      *gamedb.Database
	Store   *boltstore.Store // nil when running without persistence
	Bus     *events.Bus
	Queue   *queue.Scheduler
	Metrics *Metrics

	Conf  *Conf
	Clock func() time.Time

	funcs  map[string]*eval.Function
	ufuncs map[string]*eval.UFunction

	input   chan Line
	reload  chan *Conf
	objects atomic.Int64
}

// NewGame builds a game around db. store may be nil.
func NewGame(conf *Conf, db *gamedb.Database, store *boltstore.Store, bus *events.Bus) *Game {
	if bus == nil {
		bus = events.NewBus()
	}
	g := &Game{
		DB:     db,
		Store:  store,
		Bus:    bus,
		Conf:   conf,
		Clock:  time.Now,
		ufuncs: make(map[string]*eval.UFunction),
		input:  make(chan Line, 64),
		reload: make(chan *Conf, 1),
	}

	// The built-in catalog is shared by every evaluation.
	proto := eval.NewEvalContext(db)
	functions.RegisterAll(proto)
	g.funcs = proto.Functions

	g.Queue = queue.New(g.queueConfig(conf), g, g, g, g, g)
	g.objects.Store(int64(len(db.Objects)))
	return g
}

// Seed creates the minimal world: Limbo (#0) and the God player. It does
// nothing if the database already has objects.
func (g *Game) Seed() {
	if len(g.DB.Objects) > 0 {
		return
	}
	now := g.Clock()
	god := g.Conf.God()
	g.DB.Objects[0] = &gamedb.Object{
		DBRef: 0, Name: "Limbo", Location: gamedb.Nothing, Owner: god, Parent: gamedb.Nothing,
		Flags: [3]int{int(gamedb.TypeRoom)}, CreateTime: now, LastMod: now,
	}
	g.DB.Objects[god] = &gamedb.Object{
		DBRef: god, Name: "Wizard", Location: 0, Owner: god, Parent: gamedb.Nothing,
		Pennies: g.Conf.StartingMoney,
		Flags:   [3]int{int(gamedb.TypePlayer) | gamedb.FlagWizard}, CreateTime: now, LastMod: now,
	}
	g.markDirty(0)
	g.markDirty(god)
	g.objects.Store(int64(len(g.DB.Objects)))
	log.Printf("Seeded new world: Limbo(#0), Wizard(#%d)", god)
}

// Create adds a new object owned by owner and returns its dbref. Players
// own themselves.
func (g *Game) Create(name string, typ gamedb.ObjectType, owner gamedb.DBRef) gamedb.DBRef {
	ref := gamedb.DBRef(g.DB.Size())
	if typ == gamedb.TypePlayer {
		owner = ref
	}
	now := g.Clock()
	g.DB.Objects[ref] = &gamedb.Object{
		DBRef: ref, Name: name, Location: 0, Owner: owner, Parent: gamedb.Nothing,
		Pennies: g.Conf.StartingMoney,
		Flags:   [3]int{int(typ)}, CreateTime: now, LastMod: now,
	}
	g.markDirty(ref)
	g.objects.Store(int64(len(g.DB.Objects)))
	return ref
}

// queueConfig ties the scheduler clock to g.Clock so both agree on now.
func (g *Game) queueConfig(conf *Conf) queue.Config {
	qc := conf.QueueConfig()
	qc.Clock = func() time.Time { return g.Clock() }
	return qc
}

// ObjectCount is safe to call from any goroutine.
func (g *Game) ObjectCount() int {
	return int(g.objects.Load())
}

func (g *Game) markDirty(ref gamedb.DBRef) {
	if g.Store != nil {
		g.Store.MarkDirty(ref)
	}
}

// Name renders ref as Name(#N), the way listings show objects.
func (g *Game) Name(ref gamedb.DBRef) string {
	obj := g.DB.Get(ref)
	if obj == nil {
		return fmt.Sprintf("*NOTHING*(#%d)", ref)
	}
	return fmt.Sprintf("%s(#%d)", obj.Name, ref)
}

// --- permission predicates ---

func (g *Game) hasFlag(ref gamedb.DBRef, flag int) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag(flag)
}

// Wizard reports whether ref is God or carries the WIZARD flag.
func (g *Game) Wizard(ref gamedb.DBRef) bool {
	return ref == g.Conf.God() || g.hasFlag(ref, gamedb.FlagWizard)
}

func (g *Game) hasPower(ref gamedb.DBRef, pow int) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasPower(0, pow)
}

// CanHalt reports whether ref may halt other people's queues.
func (g *Game) CanHalt(ref gamedb.DBRef) bool {
	return g.Wizard(ref) || g.hasPower(ref, gamedb.PowHalt)
}

// SeeQueue reports whether ref may list every queue entry.
func (g *Game) SeeQueue(ref gamedb.DBRef) bool {
	return g.Wizard(ref) || g.hasFlag(ref, gamedb.FlagRoyalty) || g.hasPower(ref, gamedb.PowSeeQueue)
}

// Controls reports whether player may act on thing.
func (g *Game) Controls(player, thing gamedb.DBRef) bool {
	if !g.DB.Valid(thing) {
		return false
	}
	if player == g.Conf.God() {
		return true
	}
	if thing == g.Conf.God() {
		return false
	}
	if g.Wizard(player) {
		return true
	}
	return g.Owner(player) == g.Owner(thing) && !g.Wizard(thing)
}

func (g *Game) quiet(ref gamedb.DBRef) bool {
	return g.hasFlag(ref, gamedb.FlagQuiet)
}

// --- queue.Objects ---

func (g *Game) Valid(ref gamedb.DBRef) bool { return g.DB.Valid(ref) }

func (g *Game) Owner(ref gamedb.DBRef) gamedb.DBRef { return g.DB.Owner(ref) }

func (g *Game) IsPlayer(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.ObjType() == gamedb.TypePlayer
}

func (g *Game) IsGoing(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.IsGoing()
}

func (g *Game) IsHalted(ref gamedb.DBRef) bool {
	return g.hasFlag(ref, gamedb.FlagHalt)
}

func (g *Game) SetHalted(ref gamedb.DBRef, halted bool) {
	if obj := g.DB.Get(ref); obj != nil {
		obj.SetFlag(gamedb.FlagHalt, halted)
		g.markDirty(ref)
	}
}

// --- queue.Ledger ---

func (g *Game) freeMoney(who gamedb.DBRef) bool {
	return g.Wizard(who) || g.Wizard(g.Owner(who))
}

// PayFor charges the owner of who. Wizards and their objects pay nothing.
func (g *Game) PayFor(who gamedb.DBRef, cost int) bool {
	if g.freeMoney(who) {
		return true
	}
	obj := g.DB.Get(g.Owner(who))
	if obj == nil || obj.Pennies < cost {
		return false
	}
	obj.Pennies -= cost
	g.markDirty(obj.DBRef)
	return true
}

// GiveTo credits the owner of who. Wizards and their objects are skipped.
func (g *Game) GiveTo(who gamedb.DBRef, amount int) {
	if g.freeMoney(who) {
		return
	}
	if obj := g.DB.Get(g.Owner(who)); obj != nil {
		obj.Pennies += amount
		g.markDirty(obj.DBRef)
	}
}

// QueueMax is the numeric QUEUEMAX attribute on owner when set, otherwise
// the configured per-player limit, raised to the database size for
// wizards.
func (g *Game) QueueMax(owner gamedb.DBRef) int {
	if v, ok := g.DB.AttrValue(owner, gamedb.AttrQueueMax); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	m := g.Conf.PlayerQueueLimit
	if g.Wizard(owner) {
		m = max(m, g.DB.Size()+1)
	}
	return m
}

// --- queue.Counters ---

func (g *Game) AddInt(obj gamedb.DBRef, attr, delta int) int {
	n := g.DB.AddToAttr(obj, attr, delta)
	g.markDirty(obj)
	return n
}

func (g *Game) Int(obj gamedb.DBRef, attr int) int { return g.DB.AttrInt(obj, attr) }

func (g *Game) Clear(obj gamedb.DBRef, attr int) {
	g.DB.SetAttr(obj, attr, "")
	g.markDirty(obj)
}

// --- queue.Notifier ---

// Notify delivers a scheduler notice.
func (g *Game) Notify(target gamedb.DBRef, msg string) {
	g.Bus.Notify(target, events.EvQueue, msg)
}

func (g *Game) tell(target gamedb.DBRef, typ events.EventType, msg string) {
	g.Bus.Notify(target, typ, msg)
}
