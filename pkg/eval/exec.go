package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// Exec evaluates a MUSH expression string and returns the result.
// This is the Go equivalent of TinyMUSH's exec() function.
func (ctx *EvalContext) Exec(input string, evalFlags int, cargs []string) string {
	buf := NewBuffer(ctx.BufferSize)
	ctx.ExecInto(buf, input, evalFlags, cargs)
	return buf.String()
}

func (ctx *EvalContext) special(c byte) bool {
	switch c {
	case escChar, ' ', '%', '(', '[', '\\', '{':
		return true
	case '#':
		return ctx.Loop.InLoop > 0 || ctx.Loop.InSwitch > 0
	}
	return false
}

// ExecInto evaluates input and appends the result to buf.
func (ctx *EvalContext) ExecInto(buf *Buffer, input string, eval int, cargs []string) {
	if input == "" {
		return
	}
	if eval&EvNoFCheck != 0 {
		eval &^= EvFCheck
	}

	player := ctx.Player
	start := buf.Len()
	oldp := start
	compress := ctx.SpaceCompress
	atSpace := true
	alldone := false
	var st execState

	savedCArgs := ctx.CArgs
	ctx.CArgs = cargs
	defer func() { ctx.CArgs = savedCArgs }()

	isTrace := ctx.traced(player, eval)
	isTop := false
	if isTrace {
		isTop = ctx.trace.begin()
	}

	n := len(input)
	i := 0
	for i < n && !alldone {
		// Block-copy runs of ordinary characters.
		if !ctx.special(input[i]) {
			j := i + 1
			for j < n && !ctx.special(input[j]) {
				j++
			}
			buf.WriteString(input[i:j])
			atSpace = false
			i = j
			continue
		}

		switch input[i] {
		case ' ':
			if !(compress && atSpace) || eval&EvNoCompress != 0 {
				buf.WriteByte(' ')
				atSpace = true
			}
			i++

		case '\\':
			atSpace = false
			if i+1 < n {
				buf.WriteByte(input[i+1])
				i += 2
			} else {
				i++
			}

		case '[':
			atSpace = false
			if eval&EvNoFCheck != 0 {
				buf.WriteByte('[')
				i++
				break
			}
			seg, rest, found := parseTo(input[i+1:], ']', 0, compress)
			if !found {
				buf.WriteByte('[')
				i++
				break
			}
			ctx.ExecInto(buf, seg, eval|EvFCheck|EvFMand, cargs)
			i = n - len(rest)

		case '{':
			atSpace = false
			seg, rest, found := parseTo(input[i+1:], '}', 0, compress)
			if !found {
				buf.WriteByte('{')
				i++
				break
			}
			if eval&EvStrip == 0 {
				buf.WriteByte('{')
			}
			if len(seg) > 0 && seg[0] == ' ' {
				buf.WriteByte(' ')
				seg = seg[1:]
			}
			ctx.ExecInto(buf, seg, eval&^(EvStrip|EvFCheck), cargs)
			if eval&EvStrip == 0 {
				buf.WriteByte('}')
			}
			i = n - len(rest)

		case '%':
			atSpace = false
			i = ctx.percent(buf, input, i, eval, cargs, &st)

		case '(':
			atSpace = false
			if eval&EvFCheck == 0 {
				buf.WriteByte('(')
				i++
				break
			}
			i, alldone = ctx.call(buf, input, i, oldp, eval, cargs)
			eval &^= EvFCheck

		case '#':
			atSpace = false
			i = ctx.loopTokenSub(buf, input, i)

		case escChar:
			l := escLen(input[i:])
			buf.WriteString(input[i : i+l])
			i += l
		}
	}

	if compress && atSpace && eval&EvNoCompress == 0 && buf.Len() > start && buf.Last() == ' ' {
		buf.Truncate(buf.Len() - 1)
	}

	if st.ansi {
		buf.WriteString(AnsiNormal)
	}

	if isTrace {
		ctx.trace.add(input, buf.Since(start), ctx.Limits.TraceLimit)
		discarded := ctx.trace.count - ctx.Limits.TraceLimit
		if isTop || !ctx.Limits.TraceTopDown {
			ctx.traceFinish(player)
		}
		if isTop && discarded > 0 {
			ctx.Tell(player, fmt.Sprintf("%d lines of trace output discarded.", discarded))
		}
	}
}

// loopTokenSub handles '#' inside a loop or switch.
func (ctx *EvalContext) loopTokenSub(buf *Buffer, input string, i int) int {
	if i+1 >= len(input) {
		buf.WriteByte('#')
		return i + 1
	}
	lp := &ctx.Loop
	switch t := input[i+1]; {
	case t == '#' && lp.InLoop > 0:
		buf.WriteString(ctx.loopToken(lp.InLoop - 1))
	case t == '@' && lp.InLoop > 0:
		buf.WriteString(strconv.Itoa(ctx.loopNumber(lp.InLoop - 1)))
	case t == '+' && lp.InLoop > 0:
		buf.WriteString(ctx.loopToken2(lp.InLoop - 1))
	case t == '$' && lp.InSwitch > 0:
		buf.WriteString(lp.SwitchToken)
	case t == '!':
		if lp.InLoop > 0 {
			buf.WriteString(strconv.Itoa(lp.InLoop - 1))
		} else {
			buf.WriteString(strconv.Itoa(lp.InSwitch))
		}
	default:
		buf.WriteByte('#')
		return i + 1
	}
	return i + 2
}

// call dispatches the function whose name is the output written since
// oldp and whose argument list opens at input[i]. It returns the index to
// resume at and whether evaluation of this call should stop.
func (ctx *EvalContext) call(buf *Buffer, input string, i, oldp, eval int, cargs []string) (int, bool) {
	name := buf.Since(oldp)
	if ctx.SpaceCompress && eval&EvFMand != 0 {
		name = strings.TrimRight(name, " \t\r\n")
	}
	name = strings.ToUpper(name)

	fn := ctx.Functions[name]
	var ufp *UFunction
	if fn == nil {
		ufp = ctx.UFunctions[name]
	}
	if fn == nil && ufp == nil {
		if eval&EvFMand != 0 {
			buf.Truncate(oldp)
			fmt.Fprintf(buf, "#-1 FUNCTION (%s) NOT FOUND", name)
			return i + 1, true
		}
		buf.WriteByte('(')
		return i + 1, false
	}

	nfargs := MaxNFArgs
	if fn != nil && fn.NArgs < 0 {
		nfargs = -fn.NArgs
	}
	feval := eval
	if (fn != nil && fn.Flags&FnNoEval != 0) || (ufp != nil && ufp.Flags&UfNoEval != 0) {
		feval = (eval &^ EvEval) | EvStripESC
	}

	emptyList := i+1 < len(input) && input[i+1] == ')'
	args, rest, ok := ctx.ParseArgList(input[i+1:], ')', feval, nfargs, cargs)
	if !ok {
		buf.WriteByte('(')
		return i + 1, false
	}
	next := len(input) - len(rest)
	buf.Truncate(oldp)

	if ufp != nil {
		ctx.callUser(buf, ufp, args, feval)
		return next, false
	}

	if fn.NArgs == 0 && emptyList && len(args) == 1 && args[0] == "" {
		args = args[:0]
	}
	nf := len(args)
	if nf != fn.NArgs && nf != -fn.NArgs && fn.Flags&FnVarArgs == 0 {
		want := fn.NArgs
		if want < 0 {
			want = -want
		}
		fmt.Fprintf(buf, "#-1 FUNCTION (%s) EXPECTS %d ARGUMENTS BUT GOT %d", fn.Name, want, nf)
		return next, false
	}

	ctx.FuncNestLev++
	ctx.FuncInvkCtr++
	if ctx.admit(buf, fn.Perms, fn.Flags&FnPriv != 0) {
		var preserve *RegisterData
		switch {
		case fn.Flags&FnNoregs != 0:
			preserve = ctx.RData
			ctx.RData = nil
		case fn.Flags&FnPres != 0:
			preserve = ctx.SaveRegisters()
		}
		fn.Handler(ctx, args, buf, ctx.Caller, ctx.Cause)
		switch {
		case fn.Flags&FnNoregs != 0:
			ctx.RData = preserve
		case fn.Flags&FnPres != 0:
			ctx.RestoreRegisters(preserve)
		}
	}
	ctx.FuncNestLev--
	return next, false
}

// admit runs the per-call ceilings in order and writes the error token for
// the first one that trips.
func (ctx *EvalContext) admit(buf *Buffer, perms int, priv bool) bool {
	switch {
	case ctx.FuncNestLev >= ctx.Limits.NestLim:
		ctx.LimitHits.Recursion++
		buf.WriteString("#-1 FUNCTION RECURSION LIMIT EXCEEDED")
	case ctx.FuncInvkCtr >= ctx.Limits.InvkLim:
		ctx.LimitHits.Invocation++
		buf.WriteString("#-1 FUNCTION INVOCATION LIMIT EXCEEDED")
	case ctx.tooMuchCPU():
		ctx.LimitHits.CPU++
		buf.WriteString("#-1 FUNCTION CPU LIMIT EXCEEDED")
	case ctx.isGoing(ctx.Player):
		buf.WriteString("#-1 BAD INVOKER")
	case !ctx.checkAccess(ctx.Player, perms), priv && !ctx.checkAccess(ctx.Player, PermWizard):
		buf.WriteString("#-1 PERMISSION DENIED")
	default:
		return true
	}
	return false
}

// callUser runs an @function.
func (ctx *EvalContext) callUser(buf *Buffer, ufp *UFunction, args []string, feval int) {
	ctx.FuncNestLev++
	ctx.FuncInvkCtr++
	defer func() { ctx.FuncNestLev-- }()
	if !ctx.admit(buf, ufp.Perms, false) {
		return
	}

	player := ctx.Player
	executor := player
	if ufp.Flags&UfPriv != 0 {
		executor = ufp.Obj
	}
	text := ctx.DB.AttrText(ufp.Obj, ufp.Attr)

	var preserve *RegisterData
	switch {
	case ufp.Flags&UfNoregs != 0:
		preserve = ctx.RData
		ctx.RData = nil
	case ufp.Flags&UfPres != 0:
		preserve = ctx.SaveRegisters()
	}

	flags := feval
	if ufp.Flags&UfNoEval != 0 {
		flags = EvFCheck | EvEval
	}
	savedCaller := ctx.Caller
	ctx.Player, ctx.Caller = executor, player
	ctx.ExecInto(buf, text, flags, args)
	ctx.Player, ctx.Caller = player, savedCaller

	switch {
	case ufp.Flags&UfNoregs != 0:
		ctx.RData = preserve
	case ufp.Flags&UfPres != 0:
		ctx.RestoreRegisters(preserve)
	}
}
