// Package functions holds the built-in softcode function catalog.
package functions

import "github.com/crystal-mush/mushcore/pkg/eval"

// RegisterAll installs every built-in function on ctx.
func RegisterAll(ctx *eval.EvalContext) {
	// math
	ctx.RegisterFunction("ADD", fnAdd, 0, eval.FnVarArgs)
	ctx.RegisterFunction("SUB", fnSub, 2, 0)
	ctx.RegisterFunction("MUL", fnMul, 0, eval.FnVarArgs)
	ctx.RegisterFunction("DIV", fnDiv, 2, 0)
	ctx.RegisterFunction("MOD", fnMod, 2, 0)
	ctx.RegisterFunction("MAX", fnMax, 0, eval.FnVarArgs)
	ctx.RegisterFunction("MIN", fnMin, 0, eval.FnVarArgs)
	ctx.RegisterFunction("EQ", fnEq, 2, 0)
	ctx.RegisterFunction("NEQ", fnNeq, 2, 0)
	ctx.RegisterFunction("GT", fnGt, 2, 0)
	ctx.RegisterFunction("GTE", fnGte, 2, 0)
	ctx.RegisterFunction("LT", fnLt, 2, 0)
	ctx.RegisterFunction("LTE", fnLte, 2, 0)
	ctx.RegisterFunction("NOT", fnNot, 1, 0)

	// strings
	ctx.RegisterFunction("CAT", fnCat, 0, eval.FnVarArgs)
	ctx.RegisterFunction("STRLEN", fnStrlen, -1, 0)
	ctx.RegisterFunction("UCSTR", fnUcstr, -1, 0)
	ctx.RegisterFunction("LCSTR", fnLcstr, -1, 0)
	ctx.RegisterFunction("CAPSTR", fnCapstr, -1, 0)
	ctx.RegisterFunction("REVERSE", fnReverse, -1, 0)
	ctx.RegisterFunction("REPEAT", fnRepeat, 2, 0)
	ctx.RegisterFunction("SPACE", fnSpace, 1, 0)
	ctx.RegisterFunction("ANSI", fnAnsi, 2, 0)
	ctx.RegisterFunction("LIT", fnLit, -1, eval.FnNoEval)

	// lists
	ctx.RegisterFunction("WORDS", fnWords, 0, eval.FnVarArgs)
	ctx.RegisterFunction("FIRST", fnFirst, 0, eval.FnVarArgs)
	ctx.RegisterFunction("REST", fnRest, 0, eval.FnVarArgs)
	ctx.RegisterFunction("LNUM", fnLnum, 0, eval.FnVarArgs)
	ctx.RegisterFunction("ITER", fnIter, 0, eval.FnVarArgs|eval.FnNoEval)
	ctx.AliasFunction("PARSE", "ITER")

	// conditionals
	ctx.RegisterFunction("IF", fnIf, 0, eval.FnVarArgs|eval.FnNoEval)
	ctx.AliasFunction("IFELSE", "IF")
	ctx.RegisterFunction("SWITCH", fnSwitch, 0, eval.FnVarArgs|eval.FnNoEval)

	// registers and attributes
	ctx.RegisterFunction("SETQ", fnSetq, 0, eval.FnVarArgs)
	ctx.RegisterFunction("SETR", fnSetr, 2, 0)
	ctx.RegisterFunction("R", fnR, 1, 0)
	ctx.RegisterFunction("V", fnV, 1, 0)
	ctx.RegisterFunction("GET", fnGet, 1, 0)
	ctx.RegisterFunction("U", fnU, 0, eval.FnVarArgs)
	ctx.RegisterFunction("ULOCAL", fnU, 0, eval.FnVarArgs|eval.FnPres)
	ctx.RegisterFunction("S", fnS, -1, 0)

	// objects and time
	ctx.RegisterFunction("NUM", fnNum, 1, 0)
	ctx.RegisterFunction("NAME", fnName, 1, 0)
	ctx.RegisterFunction("SECS", fnSecs, 0, 0)
	ctx.RegisterFunction("TIME", fnTime, 0, 0)
	ctx.RegisterFunction("PEMIT", fnPemit, 2, 0)
	ctx.RegisterFunction("OBJEVAL", fnObjeval, 2, eval.FnNoEval)
	ctx.Functions["OBJEVAL"].Perms = eval.PermWizard
}
