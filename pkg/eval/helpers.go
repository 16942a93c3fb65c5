package eval

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// CallUFun calls a user-defined function specified as "obj/attr" with the given arguments.
// It fetches the attribute text, sets up %0-%9 from callArgs, evaluates it, and returns the result.
func (ctx *EvalContext) CallUFun(objAttr string, callArgs []string) string {
	ref, attrName := ctx.splitObjAttr(objAttr)
	if ref == gamedb.Nothing {
		return "#-1 NOT FOUND"
	}
	if attrName == "" {
		return "#-1 NO SUCH ATTRIBUTE"
	}
	num, ok := ctx.DB.LookupAttr(attrName)
	if !ok {
		return ""
	}
	text := ctx.DB.AttrText(ref, num)
	if text == "" {
		return ""
	}

	// u(obj/attr) runs as obj, so unqualified references resolve there.
	oldPlayer, oldCaller := ctx.Player, ctx.Caller
	ctx.Caller = ctx.Player
	ctx.Player = ref
	result := ctx.Exec(text, EvFCheck|EvEval, callArgs)
	ctx.Player, ctx.Caller = oldPlayer, oldCaller
	return result
}

// splitObjAttr parses "obj/attr" or a bare "attr" on the executor.
func (ctx *EvalContext) splitObjAttr(objAttr string) (gamedb.DBRef, string) {
	obj, attr, found := strings.Cut(objAttr, "/")
	if !found {
		return ctx.Player, strings.ToUpper(strings.TrimSpace(objAttr))
	}
	return ctx.ResolveRef(obj), strings.ToUpper(strings.TrimSpace(attr))
}

// ResolveRef converts a string to a DBRef (handles me, here, #N and *player).
func (ctx *EvalContext) ResolveRef(s string) gamedb.DBRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return gamedb.Nothing
	}
	if strings.EqualFold(s, "me") {
		return ctx.Player
	}
	if strings.EqualFold(s, "here") {
		if obj := ctx.DB.Get(ctx.Player); obj != nil {
			return obj.Location
		}
		return gamedb.Nothing
	}
	return ResolveName(ctx.DB, s)
}

// ResolveName finds #N, *player or an exact object name.
func ResolveName(db *gamedb.Database, s string) gamedb.DBRef {
	if strings.HasPrefix(s, "#") {
		n, err := strconv.Atoi(s[1:])
		if err != nil || !db.Valid(gamedb.DBRef(n)) {
			return gamedb.Nothing
		}
		return gamedb.DBRef(n)
	}
	s = strings.TrimPrefix(s, "*")
	for _, obj := range db.Objects {
		if obj.ObjType() == gamedb.TypePlayer && strings.EqualFold(obj.Name, s) {
			return obj.DBRef
		}
	}
	for _, obj := range db.Objects {
		if strings.EqualFold(obj.Name, s) {
			return obj.DBRef
		}
	}
	return gamedb.Nothing
}
