package functions

import (
	"strconv"
	"strings"
	"time"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func activeRegs(ctx *eval.EvalContext) *eval.RegisterData {
	if ctx.RData == nil {
		ctx.RData = eval.NewRegisterData()
	}
	return ctx.RData
}

func setRegister(ctx *eval.EvalContext, name, value string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if len(name) == 1 {
		idx := qidx(name[0])
		if idx < 0 {
			return false
		}
		activeRegs(ctx).Set(idx, value)
		return true
	}
	activeRegs(ctx).SetNamed(name, value)
	return true
}

func qidx(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'z':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10
	}
	return -1
}

// setq(register, value[, register, value, ...])
func fnSetq(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 2 || len(args)%2 != 0 {
		buf.WriteString("#-1 FUNCTION (SETQ) EXPECTS AN EVEN NUMBER OF ARGUMENTS")
		return
	}
	for i := 0; i+1 < len(args); i += 2 {
		if !setRegister(ctx, args[i], args[i+1]) {
			buf.WriteString("#-1 INVALID GLOBAL REGISTER")
		}
	}
}

func fnSetr(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if !setRegister(ctx, args[0], args[1]) {
		buf.WriteString("#-1 INVALID GLOBAL REGISTER")
		return
	}
	buf.WriteString(args[1])
}

func fnR(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	name := strings.TrimSpace(args[0])
	if len(name) == 1 {
		v, _ := ctx.RData.Get(qidx(name[0]))
		buf.WriteString(v)
		return
	}
	v, _ := ctx.RData.GetNamed(name)
	buf.WriteString(v)
}

// v(attr) reads an attribute on the executor.
func fnV(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	num, ok := ctx.DB.LookupAttr(args[0])
	if !ok {
		return
	}
	buf.WriteString(ctx.DB.AttrText(ctx.Player, num))
}

// get(obj/attr)
func fnGet(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	obj, attr, found := strings.Cut(args[0], "/")
	if !found {
		buf.WriteString("#-1 BAD ARGUMENT FORMAT TO GET")
		return
	}
	ref := ctx.ResolveRef(obj)
	if ref == gamedb.Nothing {
		buf.WriteString("#-1 NO MATCH")
		return
	}
	num, ok := ctx.DB.LookupAttr(attr)
	if !ok {
		return
	}
	buf.WriteString(ctx.DB.AttrText(ref, num))
}

func fnU(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) < 1 {
		return
	}
	buf.WriteString(ctx.CallUFun(args[0], args[1:]))
}

func fnS(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	ctx.ExecInto(buf, args[0], eval.EvFCheck|eval.EvEval, ctx.CArgs)
}

func fnNum(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString("#" + strconv.Itoa(int(ctx.ResolveRef(args[0]))))
}

func fnName(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if obj := ctx.DB.Get(ctx.ResolveRef(args[0])); obj != nil {
		buf.WriteString(obj.Name)
		return
	}
	buf.WriteString("#-1 NO MATCH")
}

func fnSecs(ctx *eval.EvalContext, _ []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(strconv.FormatInt(ctx.Now().Unix(), 10))
}

func fnTime(ctx *eval.EvalContext, _ []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(ctx.Now().Format(time.ANSIC))
}

// pemit(targets, message) sends message to each space-separated target.
func fnPemit(ctx *eval.EvalContext, args []string, _ *eval.Buffer, _, _ gamedb.DBRef) {
	for _, t := range strings.Fields(args[0]) {
		if ref := ctx.ResolveRef(t); ctx.DB.Valid(ref) {
			ctx.Tell(ref, args[1])
		}
	}
}

// objeval(obj, expr) evaluates expr as obj. Wizard only.
func fnObjeval(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	name := ctx.Exec(args[0], eval.EvFCheck|eval.EvEval, ctx.CArgs)
	ref := ctx.ResolveRef(name)
	if !ctx.DB.Valid(ref) {
		buf.WriteString("#-1 NO MATCH")
		return
	}
	oldPlayer, oldCaller := ctx.Player, ctx.Caller
	ctx.Caller = ctx.Player
	ctx.Player = ref
	ctx.ExecInto(buf, args[1], eval.EvFCheck|eval.EvEval, ctx.CArgs)
	ctx.Player, ctx.Caller = oldPlayer, oldCaller
}
