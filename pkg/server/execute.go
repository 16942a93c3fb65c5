package server

import (
	"context"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/events"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/queue"
)

const (
	huhMessage     = `Huh?  (Type "help" for help.)`
	noPermMessage  = "Permission denied."
	noMatchMessage = "I don't see that here."
)

// slowEntry is how long a dispatched entry may run before the watchdog
// logs it.
const slowEntry = 5 * time.Second

// Execute runs one dispatched queue entry. Panics are logged and the
// entry is dropped; a broken scheduler invariant is re-raised.
func (g *Game) Execute(ctx context.Context, actor gamedb.DBRef, e *queue.Entry, regs *eval.RegisterData) (out *eval.RegisterData) {
	out = regs
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok && strings.HasPrefix(msg, queue.InvariantPrefix) {
				panic(r)
			}
			log.Printf("PANIC in queue entry (actor=#%d cmd=%q): %v\n%s", actor, e.Command, r, debug.Stack())
			g.Metrics.panic()
		}
	}()

	timer := time.AfterFunc(slowEntry, func() {
		snippet := e.Command
		if len(snippet) > 80 {
			snippet = snippet[:80]
		}
		log.Printf("SLOW queue entry >%v (actor=#%d cmd=%q)", slowEntry, actor, snippet)
		g.Metrics.slow()
	})
	defer timer.Stop()

	return g.ExecuteEntry(ctx, actor, e.Cause, e.Command, e.Args, regs)
}

// ExecuteEntry runs a command line as actor on behalf of cause. The line
// is split on top-level semicolons and each command is evaluated and run
// in turn with args as %0-%9. regs is the register set the commands see;
// the set they leave behind is returned.
func (g *Game) ExecuteEntry(ctx context.Context, actor, cause gamedb.DBRef, line string, args []string, regs *eval.RegisterData) *eval.RegisterData {
	ec := g.evalContext(actor, cause, regs)
	rest := line
	for rest != "" && ctx.Err() == nil {
		var cmd string
		cmd, rest, _ = ec.ParseTo(rest, ';', 0)
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		if !g.DB.Valid(actor) || g.IsHalted(actor) {
			break
		}
		g.runCommand(ctx, ec, cmd, args)
	}
	g.Metrics.limits(ec.LimitHits)
	return ec.RData
}

func (g *Game) evalContext(player, cause gamedb.DBRef, regs *eval.RegisterData) *eval.EvalContext {
	ec := eval.NewEvalContext(g.DB)
	ec.Functions = g.funcs
	ec.UFunctions = g.ufuncs
	ec.Player, ec.Caller, ec.Cause = player, player, cause
	ec.God = g.Conf.God()
	ec.Limits = g.Conf.EvalLimits()
	ec.SpaceCompress = g.Conf.SpaceCompress
	ec.AnsiColors = g.Conf.AnsiColors
	ec.CCmdSubst = g.Conf.CCmdSubst
	ec.BufferSize = g.Conf.OutputLimit
	ec.Now = g.Clock
	ec.Notify = func(target gamedb.DBRef, msg string) {
		g.tell(target, events.EvText, msg)
	}
	if regs != nil {
		ec.RData = regs
	}
	return ec
}

// command is one parsed command invocation.
type command struct {
	ctx      context.Context
	ec       *eval.EvalContext
	name     string
	switches []string
	arg      string   // raw text after the command word
	args     []string // %0-%9 of the running entry
}

func (c *command) player() gamedb.DBRef { return c.ec.Player }
func (c *command) cause() gamedb.DBRef  { return c.ec.Cause }

func (c *command) has(sw string) bool {
	for _, s := range c.switches {
		if s == sw {
			return true
		}
	}
	return false
}

// split cuts the argument at the first top-level '='.
func (c *command) split() (left, right string, found bool) {
	left, right, found = c.ec.ParseTo(c.arg, '=', 0)
	return strings.TrimSpace(left), strings.TrimSpace(right), found
}

// eval evaluates s as a command argument.
func (c *command) eval(s string) string {
	return strings.TrimSpace(c.ec.Exec(s, eval.EvFCheck|eval.EvEval|eval.EvStrip, c.args))
}

// regs snapshots the current registers for a queued command.
func (c *command) regs() *eval.RegisterData {
	return c.ec.RData.Clone()
}

type cmdHandler func(g *Game, c *command)

type cmdEntry struct {
	fn       cmdHandler
	switches []string
	wizard   bool
}

var commandTable = map[string]cmdEntry{
	"think":     {fn: (*Game).doThink},
	"@pemit":    {fn: (*Game).doPemit},
	"@wait":     {fn: (*Game).doWait, switches: []string{"until", "pid"}},
	"@notify":   {fn: (*Game).doNotify, switches: []string{"all", "first"}},
	"@drain":    {fn: (*Game).doDrain},
	"@halt":     {fn: (*Game).doHalt, switches: []string{"all", "pid"}},
	"@ps":       {fn: (*Game).doPs, switches: []string{"all", "long", "summary"}},
	"@queue":    {fn: (*Game).doQueue, switches: []string{"kick", "warp"}, wizard: true},
	"@trigger":  {fn: (*Game).doTrigger},
	"@force":    {fn: (*Game).doForce},
	"@set":      {fn: (*Game).doSet},
	"@function": {fn: (*Game).doFunction, switches: []string{"privileged", "preserve", "noregs", "noeval"}, wizard: true},
}

func (g *Game) runCommand(ctx context.Context, ec *eval.EvalContext, text string, args []string) {
	ec.ResetLimits()
	ec.CurrCmd = text
	g.Metrics.command()
	player := ec.Player

	if text[0] == '&' {
		g.doSetAttr(&command{ctx: ctx, ec: ec, name: "&", arg: text[1:], args: args})
		return
	}

	word, arg := splitKeyVal(text)
	name, swText, _ := strings.Cut(strings.ToLower(word), "/")
	ent, ok := commandTable[name]
	if !ok {
		g.tell(player, events.EvSystem, huhMessage)
		return
	}
	if ent.wizard && !g.Wizard(player) {
		g.tell(player, events.EvSystem, noPermMessage)
		return
	}

	c := &command{ctx: ctx, ec: ec, name: name, arg: arg, args: args}
	if swText != "" {
		for _, sw := range strings.Split(swText, "/") {
			full, ok := matchSwitch(ent.switches, sw)
			if !ok {
				g.tell(player, events.EvSystem, "Unrecognized switch '"+sw+"' for command '"+name+"'.")
				return
			}
			c.switches = append(c.switches, full)
		}
	}
	ent.fn(g, c)
}

// matchSwitch resolves sw against the allowed switches, accepting any
// unique prefix.
func matchSwitch(allowed []string, sw string) (string, bool) {
	if sw == "" {
		return "", false
	}
	found, n := "", 0
	for _, a := range allowed {
		if a == sw {
			return a, true
		}
		if strings.HasPrefix(a, sw) {
			found = a
			n++
		}
	}
	return found, n == 1
}

// stripAround removes one pair of braces enclosing all of s.
func stripAround(s string) string {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return s
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	return s[1 : len(s)-1]
}

// splitList cuts s at top-level commas.
func splitList(ec *eval.EvalContext, s string) []string {
	var out []string
	for rest := s; rest != ""; {
		var seg string
		var more bool
		seg, rest, more = ec.ParseTo(rest, ',', 0)
		out = append(out, seg)
		if more && rest == "" {
			out = append(out, "")
		}
	}
	return out
}

// match resolves an object name for player, telling them when nothing
// matches.
func (g *Game) match(c *command, name string) gamedb.DBRef {
	ref := c.ec.ResolveRef(name)
	if !g.DB.Valid(ref) {
		g.tell(c.player(), events.EvSystem, noMatchMessage)
		return gamedb.Nothing
	}
	return ref
}

// submit queues r. Admission failures are reported to the owner by the
// scheduler itself.
func (g *Game) submit(r queue.Request) (int, bool) {
	h, err := g.Queue.Submit(r)
	if err != nil {
		log.Printf("QUEUE: #%d could not queue %q: %v", r.Actor, r.Command, err)
		return 0, false
	}
	return h, true
}

// makeAttr resolves or creates a user attribute and persists any new
// definition.
func (g *Game) makeAttr(name string) (int, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !validAttrName(name) {
		return 0, false
	}
	num, created := g.DB.MakeAttr(name)
	if created && g.Store != nil {
		if err := g.Store.PutAttrDef(g.DB.AttrNames[num]); err != nil {
			log.Printf("boltstore: attr def %s: %v", name, err)
		}
		if err := g.Store.PutMeta(); err != nil {
			log.Printf("boltstore: meta: %v", err)
		}
	}
	return num, true
}

func validAttrName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	if c := name[0]; !(c >= 'A' && c <= 'Z' || c == '_') {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.IndexByte("_-.#`'+", c) >= 0) {
			return false
		}
	}
	return true
}
