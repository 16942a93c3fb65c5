package functions

import (
	"strings"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func splitList(s, delim string) []string {
	if s == "" {
		return nil
	}
	if delim == "" || delim == " " {
		return strings.Fields(s)
	}
	return strings.Split(s, delim)
}

func delimArg(args []string, i int) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return " "
}

func fnWords(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 1 {
		writeInt(buf, 0)
		return
	}
	writeInt(buf, len(splitList(args[0], delimArg(args, 1))))
}

func fnFirst(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 1 {
		return
	}
	if words := splitList(args[0], delimArg(args, 1)); len(words) > 0 {
		buf.WriteString(words[0])
	}
}

func fnRest(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 1 {
		return
	}
	delim := delimArg(args, 1)
	if words := splitList(args[0], delim); len(words) > 1 {
		buf.WriteString(strings.Join(words[1:], delim))
	}
}

// lnum(n) gives 0..n-1; lnum(lo, hi[, sep]) gives lo..hi.
func fnLnum(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 1 {
		return
	}
	lo, hi := 0, toInt(args[0])-1
	if len(args) > 1 {
		lo, hi = toInt(args[0]), toInt(args[1])
	}
	sep := delimArg(args, 2)
	step := 1
	if hi < lo {
		step = -1
	}
	for i := lo; ; i += step {
		if i != lo {
			buf.WriteString(sep)
		}
		writeInt(buf, i)
		if i == hi || buf.Avail() == 0 {
			break
		}
	}
}

// fnIter implements iter(list, pattern[, idelim[, odelim]]).
func fnIter(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 2 {
		return
	}
	listStr := ctx.Exec(args[0], eval.EvFCheck|eval.EvEval, ctx.CArgs)
	pattern := args[1]
	idelim := " "
	if len(args) > 2 {
		idelim = ctx.Exec(args[2], eval.EvFCheck|eval.EvEval, ctx.CArgs)
	}
	odelim := idelim
	if len(args) > 3 {
		odelim = ctx.Exec(args[3], eval.EvFCheck|eval.EvEval, ctx.CArgs)
	}
	if idelim == "" {
		idelim = " "
	}

	words := splitList(listStr, idelim)
	if len(words) == 0 {
		return
	}

	cargs := ctx.CArgs
	ctx.Loop.InLoop++
	ctx.Loop.LoopTokens = append(ctx.Loop.LoopTokens, "")
	ctx.Loop.LoopTokens2 = append(ctx.Loop.LoopTokens2, "")
	ctx.Loop.LoopNumbers = append(ctx.Loop.LoopNumbers, 0)
	idx := ctx.Loop.InLoop - 1

	for i, word := range words {
		if i > 0 {
			buf.WriteString(odelim)
		}
		ctx.Loop.LoopTokens[idx] = word
		ctx.Loop.LoopNumbers[idx] = i + 1
		ctx.ExecInto(buf, pattern, eval.EvFCheck|eval.EvEval|eval.EvStrip, cargs)
		if ctx.Loop.BreakLevel > 0 {
			ctx.Loop.BreakLevel--
			break
		}
	}

	ctx.Loop.LoopTokens = ctx.Loop.LoopTokens[:idx]
	ctx.Loop.LoopTokens2 = ctx.Loop.LoopTokens2[:idx]
	ctx.Loop.LoopNumbers = ctx.Loop.LoopNumbers[:idx]
	ctx.Loop.InLoop--
}
