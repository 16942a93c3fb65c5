package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/mushcore/pkg/events"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

const (
	limbo  gamedb.DBRef = 0
	god    gamedb.DBRef = 1
	bob    gamedb.DBRef = 2
	widget gamedb.DBRef = 3
	alice  gamedb.DBRef = 4
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestGame seeds Limbo and God, then adds Bob, Bob's Widget and Alice.
func newTestGame(t *testing.T, mod func(*Conf)) (*Game, *events.Recorder, *testClock) {
	t.Helper()
	conf := DefaultConf()
	conf.MachineCommandCost = 0
	if mod != nil {
		mod(conf)
	}
	require.NoError(t, conf.Validate())

	g := NewGame(conf, gamedb.NewDatabase(), nil, nil)
	clk := &testClock{now: time.Unix(1700000000, 0)}
	g.Clock = clk.Now
	g.Seed()
	require.Equal(t, bob, g.Create("Bob", gamedb.TypePlayer, gamedb.Nothing))
	require.Equal(t, widget, g.Create("Widget", gamedb.TypeThing, bob))
	require.Equal(t, alice, g.Create("Alice", gamedb.TypePlayer, gamedb.Nothing))

	rec := &events.Recorder{}
	g.Bus.SubscribeGlobal(rec)
	return g, rec, clk
}

// run executes text as player immediately, outside the queue.
func run(g *Game, player gamedb.DBRef, text string) {
	g.ExecuteEntry(context.Background(), player, player, text, nil, nil)
}

// settle sweeps and dispatches until the ready queues are empty.
func settle(g *Game) {
	for i := 0; i < 10; i++ {
		g.Queue.Sweep()
		g.Queue.RunTick(context.Background(), 100)
		st := g.Queue.Stats()
		if st.Player == 0 && st.Object == 0 {
			return
		}
	}
}

// textsTo returns the text of every event addressed to who.
func textsTo(rec *events.Recorder, who gamedb.DBRef) []string {
	var out []string
	for _, ev := range rec.Events() {
		if ev.Player == who {
			out = append(out, ev.Text)
		}
	}
	return out
}

func TestSeedCreatesLimboAndGod(t *testing.T) {
	g, _, _ := newTestGame(t, nil)
	assert.Equal(t, "Limbo(#0)", g.Name(limbo))
	assert.Equal(t, "Wizard(#1)", g.Name(god))
	assert.Equal(t, "*NOTHING*(#99)", g.Name(99))
	assert.True(t, g.Wizard(god))
	assert.Equal(t, 5, g.ObjectCount())

	g.Seed()
	assert.Equal(t, 5, g.ObjectCount(), "seeding twice must not reset the world")
}

func TestCreatePlayersOwnThemselves(t *testing.T) {
	g, _, _ := newTestGame(t, nil)
	assert.Equal(t, bob, g.Owner(bob))
	assert.Equal(t, bob, g.Owner(widget))
	assert.True(t, g.IsPlayer(bob))
	assert.False(t, g.IsPlayer(widget))
}

func TestControls(t *testing.T) {
	g, _, _ := newTestGame(t, nil)
	g.DB.Get(alice).SetFlag(gamedb.FlagWizard, true)

	tests := []struct {
		name          string
		player, thing gamedb.DBRef
		want          bool
	}{
		{"god controls everything", god, widget, true},
		{"god controls wizards", god, alice, true},
		{"owner controls own thing", bob, widget, true},
		{"player controls self", bob, bob, true},
		{"wizard controls mortals", alice, widget, true},
		{"wizard does not control god", alice, god, false},
		{"mortal does not control wizard", bob, alice, false},
		{"nothing is controlled", god, gamedb.Nothing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Controls(tt.player, tt.thing))
		})
	}
}

func TestLedgerChargesOwner(t *testing.T) {
	g, _, _ := newTestGame(t, nil)
	require.True(t, g.PayFor(widget, 10))
	assert.Equal(t, 140, g.DB.Get(bob).Pennies)
	assert.Equal(t, 150, g.DB.Get(widget).Pennies, "things never pay for themselves")

	g.GiveTo(widget, 10)
	assert.Equal(t, 150, g.DB.Get(bob).Pennies)

	assert.False(t, g.PayFor(bob, 1000))
	assert.Equal(t, 150, g.DB.Get(bob).Pennies)
}

func TestLedgerWizardsAreFree(t *testing.T) {
	g, _, _ := newTestGame(t, nil)
	before := g.DB.Get(god).Pennies
	assert.True(t, g.PayFor(god, 1000000))
	g.GiveTo(god, 5)
	assert.Equal(t, before, g.DB.Get(god).Pennies)
}

func TestQueueMax(t *testing.T) {
	g, _, _ := newTestGame(t, func(c *Conf) { c.PlayerQueueLimit = 3 })
	assert.Equal(t, 3, g.QueueMax(bob))
	assert.Equal(t, g.DB.Size()+1, g.QueueMax(god))

	g.DB.SetAttr(bob, gamedb.AttrQueueMax, "7")
	assert.Equal(t, 7, g.QueueMax(bob))

	g.DB.SetAttr(bob, gamedb.AttrQueueMax, "-1")
	assert.Equal(t, 3, g.QueueMax(bob), "negative QUEUEMAX falls back to the default")
}

func TestRunawayOwnerIsHalted(t *testing.T) {
	g, rec, _ := newTestGame(t, func(c *Conf) { c.PlayerQueueLimit = 2 })
	run(g, bob, "@wait 10=think a;@wait 10=think b;@wait 10=think c")

	assert.True(t, g.IsHalted(bob))
	assert.Equal(t, 0, g.Queue.Stats().Wait)
	assert.Contains(t, textsTo(rec, bob), "Run away objects: too many commands queued.  Halted.")
	assert.Equal(t, 150, g.DB.Get(bob).Pennies)
}

func TestSemaphoreCounterLivesInAttribute(t *testing.T) {
	g, _, _ := newTestGame(t, nil)
	assert.Equal(t, 2, g.AddInt(widget, gamedb.AttrSemaphore, 2))
	assert.Equal(t, 2, g.Int(widget, gamedb.AttrSemaphore))
	g.Clear(widget, gamedb.AttrSemaphore)
	assert.Equal(t, 0, g.Int(widget, gamedb.AttrSemaphore))
}
