package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/events"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/queue"
)

func (g *Game) reply(c *command, msg string) {
	g.tell(c.player(), events.EvSystem, msg)
}

// think <expr>
func (g *Game) doThink(c *command) {
	g.tell(c.player(), events.EvThink, c.eval(c.arg))
}

// @pemit <object>=<message>
func (g *Game) doPemit(c *command) {
	left, right, _ := c.split()
	target := g.match(c, c.eval(left))
	if target == gamedb.Nothing {
		return
	}
	g.tell(target, events.EvPemit, c.eval(right))
}

// @wait <seconds>=<command>
// @wait <object>[/<seconds>|/<attr>]=<command>
// @wait/until <epoch>=<command>
// @wait/pid <pid>=[+|-]<seconds>
func (g *Game) doWait(c *command) {
	if c.has("pid") {
		g.doWaitPid(c)
		return
	}
	left, right, _ := c.split()
	event := c.eval(left)
	req := queue.Request{
		Actor:   c.player(),
		Cause:   c.cause(),
		Command: stripAround(right),
		Args:    c.args,
		Regs:    c.regs(),
	}

	if secs, err := strconv.ParseInt(event, 10, 64); err == nil {
		if c.has("until") {
			secs -= g.Clock().Unix()
		}
		req.Delay = time.Duration(max(secs, 0)) * time.Second
		g.submit(req)
		return
	}

	what, suffix, hasSuffix := strings.Cut(event, "/")
	thing := c.ec.ResolveRef(what)
	if !g.DB.Valid(thing) {
		g.reply(c, "No match.")
		return
	}
	if !g.Controls(c.player(), thing) {
		g.reply(c, noPermMessage)
		return
	}
	wait := &queue.SemWait{Obj: thing}
	if hasSuffix {
		if secs, err := strconv.ParseInt(suffix, 10, 64); err == nil {
			// A non-positive timeout waits forever.
			wait.Timeout = time.Duration(max(secs, 0)) * time.Second
		} else {
			num, ok := g.makeAttr(suffix)
			if !ok {
				g.reply(c, "Invalid attribute.")
				return
			}
			wait.Attr = num
		}
	}
	req.Wait = wait
	g.submit(req)
}

func (g *Game) doWaitPid(c *command) {
	left, right, _ := c.split()
	when := c.eval(right)
	secs, err := strconv.ParseInt(when, 10, 64)
	if err != nil {
		g.reply(c, "That is not a valid wait time.")
		return
	}
	pid, err := strconv.Atoi(c.eval(left))
	if err != nil {
		g.reply(c, "That is not a valid PID.")
		return
	}

	mode := queue.WaitFromNow
	switch {
	case c.has("until"):
		mode = queue.WaitUntil
	case when[0] == '+' || when[0] == '-':
		mode = queue.WaitRelative
	}

	if e, ok := g.Queue.Lookup(pid); ok && !e.Halted() && !g.Controls(c.player(), e.Actor) {
		g.reply(c, noPermMessage)
		return
	}
	if err := g.Queue.AdjustWait(pid, mode, secs); err != nil {
		g.reply(c, handleMessage(err))
		return
	}
	if !g.quiet(c.player()) {
		g.reply(c, fmt.Sprintf("Adjusted wait time for queue entry PID %d.", pid))
	}
}

// handleMessage renders an administrative handle error for players.
func handleMessage(err error) string {
	switch {
	case errors.Is(err, queue.ErrInvalidHandle):
		return "That is not a valid PID."
	case errors.Is(err, queue.ErrNoSuchHandle):
		return "That PID is not associated with an active queue entry."
	case errors.Is(err, queue.ErrAlreadyHalted):
		return "That queue entry has been halted."
	case errors.Is(err, queue.ErrNoTimeout):
		return "That semaphore does not have a wait time."
	case errors.Is(err, queue.ErrNotWaiting):
		return "That queue entry is not waiting."
	}
	return err.Error()
}

// semTarget parses <object>[/<attr>] for @notify and @drain. An unknown
// attribute means SEMAPHORE.
func (g *Game) semTarget(c *command, text string) (gamedb.DBRef, int, bool) {
	what, attrName, _ := strings.Cut(c.eval(text), "/")
	thing := c.ec.ResolveRef(what)
	if !g.DB.Valid(thing) {
		g.reply(c, "No match.")
		return gamedb.Nothing, 0, false
	}
	if !g.Controls(c.player(), thing) {
		g.reply(c, noPermMessage)
		return gamedb.Nothing, 0, false
	}
	attr := gamedb.AttrSemaphore
	if attrName != "" {
		if num, ok := g.DB.LookupAttr(attrName); ok {
			attr = num
		}
	}
	return thing, attr, true
}

// @notify[/all] <object>[/<attr>][=<count>]
func (g *Game) doNotify(c *command) {
	left, right, _ := c.split()
	thing, attr, ok := g.semTarget(c, left)
	if !ok {
		return
	}
	count := 1
	if right != "" {
		count = atoi(c.eval(right), 0)
	}
	if count <= 0 {
		return
	}
	if c.has("all") {
		g.Queue.NotifyAll(thing, attr)
	} else {
		g.Queue.Notify(thing, attr, count)
	}
	if !g.quiet(c.player()) && !g.quiet(thing) {
		g.reply(c, "Notified.")
	}
}

// @drain <object>[/<attr>]
func (g *Game) doDrain(c *command) {
	thing, attr, ok := g.semTarget(c, c.arg)
	if !ok {
		return
	}
	g.Queue.Drain(thing, attr)
	if !g.quiet(c.player()) && !g.quiet(thing) {
		g.reply(c, "Drained.")
	}
}

// queueTarget picks the owner/object filter for @halt and @ps. With no
// target it is the player's own queue, or just the object's when an
// object runs the command; /all lifts both filters. privileged lets the
// player name objects they do not control.
func (g *Game) queueTarget(c *command, all, privileged bool) (owner, object gamedb.DBRef, ok bool) {
	player := c.player()
	owner, object = gamedb.Nothing, gamedb.Nothing
	target := c.eval(c.arg)
	if target == "" {
		if !all {
			owner = g.Owner(player)
			if !g.IsPlayer(player) {
				object = player
			}
		}
		return owner, object, true
	}

	thing := g.match(c, target)
	if thing == gamedb.Nothing {
		return owner, object, false
	}
	if !privileged && !g.Controls(player, thing) {
		g.reply(c, noPermMessage)
		return owner, object, false
	}
	if all {
		g.reply(c, "Can't specify a target and /all")
		return owner, object, false
	}
	if g.IsPlayer(thing) {
		owner = thing
	} else {
		object = thing
	}
	return owner, object, true
}

// @halt [<object>]
// @halt/all
// @halt/pid <pid>
func (g *Game) doHalt(c *command) {
	if c.has("pid") {
		g.doHaltPid(c)
		return
	}
	player := c.player()
	all := c.has("all")
	if all && !g.CanHalt(player) {
		g.reply(c, noPermMessage)
		return
	}

	owner, object, ok := g.queueTarget(c, all, g.CanHalt(player))
	if !ok {
		return
	}
	n := g.Queue.Halt(owner, object)
	if !g.quiet(player) {
		g.tell(g.Owner(player), events.EvSystem, fmt.Sprintf("%d queue entries removed.", n))
	}
}

func (g *Game) doHaltPid(c *command) {
	pid, err := strconv.Atoi(c.eval(c.arg))
	if err != nil {
		g.reply(c, "That is not a valid PID.")
		return
	}
	if e, ok := g.Queue.Lookup(pid); ok && !e.Halted() &&
		!g.CanHalt(c.player()) && !g.Controls(c.player(), e.Actor) {
		g.reply(c, noPermMessage)
		return
	}
	if err := g.Queue.HaltHandle(pid); err != nil {
		if errors.Is(err, queue.ErrAlreadyHalted) {
			g.reply(c, "That queue entry has already been halted.")
			return
		}
		g.reply(c, handleMessage(err))
		return
	}
	g.reply(c, fmt.Sprintf("Halted queue entry PID %d.", pid))
}

// @ps[/long|/summary|/all] [<object>]
func (g *Game) doPs(c *command) {
	player := c.player()
	all := c.has("all")
	if all && !g.SeeQueue(player) {
		g.reply(c, noPermMessage)
		return
	}

	owner, object, ok := g.queueTarget(c, all, g.SeeQueue(player))
	if !ok {
		return
	}

	detail := queue.DetailBrief
	switch {
	case c.has("long") && c.has("summary"):
		g.reply(c, "Illegal combination of switches.")
		return
	case c.has("long"):
		detail = queue.DetailLong
	case c.has("summary"):
		detail = queue.DetailSummary
	}

	listing := g.Queue.List(owner, object)
	for _, line := range listing.Lines(detail, g.Name, g.DB.GetAttrName, g.SeeQueue(player)) {
		g.reply(c, line)
	}
}

// @queue/kick <n>
// @queue/warp <seconds>
func (g *Game) doQueue(c *command) {
	n := atoi(c.eval(c.arg), 0)
	quiet := g.quiet(c.player())
	switch {
	case c.has("kick"):
		if !g.Queue.Dequeue() {
			g.reply(c, "Warning: automatic dequeueing is disabled.")
		}
		done := g.Queue.Kick(c.ctx, n)
		if !quiet {
			g.reply(c, fmt.Sprintf("%d commands processed.", done))
		}
	case c.has("warp"):
		if !g.Queue.Dequeue() {
			g.reply(c, "Warning: automatic dequeueing is disabled.")
		}
		g.Queue.Warp(time.Duration(n) * time.Second)
		switch {
		case quiet:
		case n > 0:
			g.reply(c, fmt.Sprintf("WaitQ timer advanced %d seconds.", n))
		case n < 0:
			g.reply(c, fmt.Sprintf("WaitQ timer set back %d seconds.", n))
		default:
			g.reply(c, "Object queue appended to player queue.")
		}
	}
}

// @trigger <object>/<attr>[=<arg0>,<arg1>,...]
func (g *Game) doTrigger(c *command) {
	left, right, _ := c.split()
	what, attrName, found := strings.Cut(c.eval(left), "/")
	thing := c.ec.ResolveRef(what)
	if !found || !g.DB.Valid(thing) {
		g.reply(c, "No match.")
		return
	}
	if !g.Controls(c.player(), thing) {
		g.reply(c, noPermMessage)
		return
	}
	num, ok := g.DB.LookupAttr(attrName)
	if !ok {
		g.reply(c, "No such attribute.")
		return
	}

	var args []string
	for _, a := range splitList(c.ec, right) {
		args = append(args, c.eval(a))
	}
	if text := g.DB.AttrText(thing, num); text != "" {
		g.submit(queue.Request{
			Actor:   thing,
			Cause:   c.player(),
			Command: text,
			Args:    args,
			Regs:    c.regs(),
		})
	}
	if !g.quiet(c.player()) {
		g.reply(c, "Triggered.")
	}
}

// @force <object>=<command>
func (g *Game) doForce(c *command) {
	left, right, _ := c.split()
	thing := g.match(c, c.eval(left))
	if thing == gamedb.Nothing {
		return
	}
	if !g.Controls(c.player(), thing) {
		g.reply(c, noPermMessage)
		return
	}
	g.submit(queue.Request{
		Actor:   thing,
		Cause:   c.player(),
		Command: stripAround(right),
		Args:    c.args,
		Regs:    c.regs(),
	})
}

// settable flags for @set.
var setFlags = map[string]int{
	"HALT":    gamedb.FlagHalt,
	"QUIET":   gamedb.FlagQuiet,
	"TRACE":   gamedb.FlagTrace,
	"WIZARD":  gamedb.FlagWizard,
	"ROYALTY": gamedb.FlagRoyalty,
}

// @set <object>=<attr>:<value>
// @set <object>=[!]<flag>
func (g *Game) doSet(c *command) {
	left, right, _ := c.split()
	thing := g.match(c, c.eval(left))
	if thing == gamedb.Nothing {
		return
	}
	if !g.Controls(c.player(), thing) {
		g.reply(c, noPermMessage)
		return
	}
	right = c.eval(right)

	if name, value, ok := strings.Cut(right, ":"); ok && !strings.ContainsAny(name, " !") {
		g.setAttr(c, thing, name, value)
		return
	}

	name, negate := strings.CutPrefix(strings.TrimSpace(right), "!")
	flag, ok := setFlags[strings.ToUpper(name)]
	if !ok {
		g.reply(c, "I don't understand that flag.")
		return
	}
	if (flag == gamedb.FlagWizard || flag == gamedb.FlagRoyalty) && !g.Wizard(c.player()) {
		g.reply(c, noPermMessage)
		return
	}
	obj := g.DB.Get(thing)
	obj.SetFlag(flag, !negate)
	g.markDirty(thing)
	if flag == gamedb.FlagHalt && !negate {
		g.Queue.Halt(gamedb.Nothing, thing)
	}
	if negate {
		g.reply(c, "Cleared.")
	} else {
		g.reply(c, "Set.")
	}
}

// &<attr> <object>=<value>. The value is stored unevaluated.
func (g *Game) doSetAttr(c *command) {
	attrName, rest := splitKeyVal(c.arg)
	c.arg = rest
	left, right, _ := c.split()
	thing := g.match(c, c.eval(left))
	if thing == gamedb.Nothing {
		return
	}
	if !g.Controls(c.player(), thing) {
		g.reply(c, noPermMessage)
		return
	}
	g.setAttr(c, thing, attrName, stripAround(right))
}

func (g *Game) setAttr(c *command, thing gamedb.DBRef, name, value string) {
	num, ok := g.makeAttr(name)
	if !ok {
		g.reply(c, "Invalid attribute.")
		return
	}
	if num == gamedb.AttrQueueMax && !g.Wizard(c.player()) {
		g.reply(c, noPermMessage)
		return
	}
	g.DB.SetAttr(thing, num, value)
	g.markDirty(thing)
	if !g.quiet(c.player()) {
		g.reply(c, "Set.")
	}
}

// @function[/privileged|/preserve|/noregs|/noeval] <name>=<object>/<attr>
func (g *Game) doFunction(c *command) {
	left, right, _ := c.split()
	name := strings.ToUpper(c.eval(left))
	if name == "" {
		g.reply(c, "Function name required.")
		return
	}
	if _, ok := g.funcs[name]; ok {
		g.reply(c, "Function already defined in builtin function table.")
		return
	}
	what, attrName, found := strings.Cut(c.eval(right), "/")
	obj := c.ec.ResolveRef(what)
	if !found || !g.DB.Valid(obj) {
		g.reply(c, noMatchMessage)
		return
	}
	num, ok := g.DB.LookupAttr(attrName)
	if !ok {
		g.reply(c, "No such attribute.")
		return
	}
	if c.has("privileged") && !g.Controls(c.player(), obj) {
		g.reply(c, noPermMessage)
		return
	}

	flags := 0
	if c.has("privileged") {
		flags |= eval.UfPriv
	}
	if c.has("noeval") {
		flags |= eval.UfNoEval
	}
	switch {
	case c.has("noregs"):
		flags |= eval.UfNoregs
	case c.has("preserve"):
		flags |= eval.UfPres
	}

	_, existed := g.ufuncs[name]
	g.ufuncs[name] = &eval.UFunction{Name: name, Obj: obj, Attr: num, Flags: flags}
	if existed {
		g.reply(c, fmt.Sprintf("Function %s updated.", name))
	} else {
		g.reply(c, fmt.Sprintf("Function %s defined.", name))
	}
}
