package eval

import (
	"fmt"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

type traceEntry struct {
	orig   string
	result string
}

// traceCache collects (input, output) pairs for traced objects until the
// outermost traced evaluation finishes.
type traceCache struct {
	entries []traceEntry
	count   int
	active  bool
}

// begin reports whether the caller is the outermost traced evaluation.
func (tc *traceCache) begin() bool {
	if tc.active {
		return false
	}
	tc.active = true
	tc.count = 0
	return true
}

func (tc *traceCache) add(orig, result string, limit int) {
	if orig == result {
		return
	}
	tc.count++
	if tc.count <= limit {
		tc.entries = append(tc.entries, traceEntry{orig: orig, result: result})
	}
}

// traceFinish sends the cached lines, newest first, to the owner of player.
func (ctx *EvalContext) traceFinish(player gamedb.DBRef) {
	target := ctx.DB.Owner(player)
	if target == gamedb.Nothing {
		target = player
	}
	name := ctx.nameOf(player)
	tc := &ctx.trace
	for i := len(tc.entries) - 1; i >= 0; i-- {
		e := tc.entries[i]
		ctx.Tell(target, fmt.Sprintf("%s(#%d)} '%s' -> '%s'", name, player, e.orig, e.result))
	}
	tc.entries = tc.entries[:0]
	tc.active = false
	tc.count = 0
}

func (ctx *EvalContext) traced(player gamedb.DBRef, eval int) bool {
	if eval&EvNoTrace != 0 {
		return false
	}
	obj := ctx.DB.Get(player)
	return obj != nil && obj.HasFlag(gamedb.FlagTrace)
}
