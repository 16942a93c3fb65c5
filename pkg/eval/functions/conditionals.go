package functions

import (
	"strings"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func isTrue(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "0" && !strings.HasPrefix(s, "#-")
}

// fnIf implements if()/ifelse(): if(cond,true[,false])
func fnIf(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 2 {
		return
	}
	cond := ctx.Exec(args[0], eval.EvFCheck|eval.EvEval, ctx.CArgs)
	if isTrue(cond) {
		ctx.ExecInto(buf, args[1], eval.EvFCheck|eval.EvEval|eval.EvStrip, ctx.CArgs)
	} else if len(args) > 2 {
		ctx.ExecInto(buf, args[2], eval.EvFCheck|eval.EvEval|eval.EvStrip, ctx.CArgs)
	}
}

// fnSwitch implements switch(expr, pat1, result1, ..., default). #$ in a
// result is the switch expression.
func fnSwitch(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 2 {
		return
	}
	cargs := ctx.CArgs
	expr := ctx.Exec(args[0], eval.EvFCheck|eval.EvEval, cargs)

	oldSwitch := ctx.Loop.InSwitch
	oldToken := ctx.Loop.SwitchToken
	ctx.Loop.InSwitch++
	ctx.Loop.SwitchToken = expr
	defer func() {
		ctx.Loop.InSwitch = oldSwitch
		ctx.Loop.SwitchToken = oldToken
	}()

	i := 1
	for i+1 < len(args) {
		pattern := ctx.Exec(args[i], eval.EvFCheck|eval.EvEval, cargs)
		if wildMatch(pattern, expr) {
			ctx.ExecInto(buf, args[i+1], eval.EvFCheck|eval.EvEval|eval.EvStrip, cargs)
			return
		}
		i += 2
	}
	if i < len(args) {
		ctx.ExecInto(buf, args[i], eval.EvFCheck|eval.EvEval|eval.EvStrip, cargs)
	}
}

// wildMatch is a case-insensitive glob with * and ?.
func wildMatch(pattern, str string) bool {
	pattern = strings.ToLower(pattern)
	str = strings.ToLower(str)
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(str); i++ {
				if wildMatch(pattern, str[i:]) {
					return true
				}
			}
			return false
		case '?':
			if str == "" {
				return false
			}
		case '\\':
			if len(pattern) > 1 {
				pattern = pattern[1:]
			}
			fallthrough
		default:
			if str == "" || pattern[0] != str[0] {
				return false
			}
		}
		pattern = pattern[1:]
		str = str[1:]
	}
	return str == ""
}
