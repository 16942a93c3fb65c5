package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/queue"
)

// Line is one line of typed input from a player.
type Line struct {
	Player gamedb.DBRef
	Text   string
}

const heartbeatInterval = 60 * time.Second

var errNoStore = errors.New("server: no bolt store configured")

// Input hands a typed line to the loop. It blocks while the input buffer
// is full.
func (g *Game) Input(ctx context.Context, l Line) error {
	select {
	case g.input <- l:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload schedules conf to replace the running configuration on the loop
// goroutine. A reload that has not been picked up yet is replaced.
func (g *Game) Reload(conf *Conf) {
	for {
		select {
		case g.reload <- conf:
			return
		default:
		}
		select {
		case <-g.reload:
		default:
		}
	}
}

// ApplyConf installs conf and pushes the queue limits to the scheduler.
func (g *Game) ApplyConf(conf *Conf) {
	g.Conf = conf
	g.Queue.Reconfigure(g.queueConfig(conf))
	log.Printf("CONF: applied (queue_max_size=%d, player_queue_limit=%d, tick=%v)",
		conf.QueueMaxSize, conf.PlayerQueueLimit, conf.Tick())
}

// Run drives the game until ctx is done: typed input is queued, the
// scheduler is ticked and dirty objects are flushed to the store.
func (g *Game) Run(ctx context.Context) error {
	timer := time.NewTimer(g.Conf.Tick())
	defer timer.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var lastSweep time.Time
	active := false
	for {
		select {
		case <-ctx.Done():
			g.flush()
			return nil
		case l := <-g.input:
			g.submitInput(l)
			active = true
			resetTimer(timer, g.Conf.Tick())
		case c := <-g.reload:
			g.ApplyConf(c)
		case <-heartbeat.C:
			g.heartbeat()
		case <-timer.C:
			lastSweep = g.step(ctx, lastSweep, active)
			active = false
			resetTimer(timer, max(g.Queue.NextWake(), g.Conf.Tick()))
		}
	}
}

// Step runs one iteration of the loop body: a timer sweep, one dispatch
// chunk and a store flush.
func (g *Game) Step(ctx context.Context) int {
	before := g.Queue.Stats().Dispatched
	g.step(ctx, time.Time{}, false)
	return int(g.Queue.Stats().Dispatched - before)
}

func (g *Game) step(ctx context.Context, lastSweep time.Time, active bool) time.Time {
	now := g.Clock()
	if now.Sub(lastSweep) >= time.Second {
		g.Queue.Sweep()
		lastSweep = now
	}
	chunk := g.Conf.QueueIdleChunk
	if active {
		chunk = g.Conf.QueueActiveChunk
	}
	g.Queue.RunTick(ctx, chunk)
	g.flush()
	return lastSweep
}

func (g *Game) submitInput(l Line) {
	if !g.DB.Valid(l.Player) {
		return
	}
	g.submit(queue.Request{Actor: l.Player, Cause: l.Player, Command: l.Text})
}

func (g *Game) flush() {
	if g.Store == nil || g.Store.Dirty() == 0 {
		return
	}
	if _, err := g.Store.Flush(); err != nil {
		log.Printf("boltstore: flush: %v", err)
	}
}

// Backup flushes pending changes and writes a snapshot of the store to
// path.
func (g *Game) Backup(path string) error {
	if g.Store == nil {
		return errNoStore
	}
	if _, err := g.Store.Flush(); err != nil {
		return err
	}
	return g.Store.Backup(path)
}

func (g *Game) heartbeat() {
	st := g.Queue.Stats()
	if st.Player+st.Object+st.Wait+st.Semaphore == 0 {
		return
	}
	log.Printf("QUEUE: heartbeat: player=%d object=%d wait=%d semaphore=%d dispatched=%s halted=%s",
		st.Player, st.Object, st.Wait, st.Semaphore,
		humanize.Comma(int64(st.Dispatched)), humanize.Comma(int64(st.Halted)))
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
