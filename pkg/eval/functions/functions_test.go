package functions

import (
	"testing"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func newFnCtx(t *testing.T) *eval.EvalContext {
	t.Helper()
	db := gamedb.NewDatabase()
	db.Objects[1] = &gamedb.Object{DBRef: 1, Name: "Wizard", Location: gamedb.Nothing, Owner: 1,
		Parent: gamedb.Nothing, Flags: [3]int{int(gamedb.TypePlayer) | gamedb.FlagWizard, 0, 0}}
	ctx := eval.NewEvalContext(db)
	RegisterAll(ctx)
	ctx.Player, ctx.Caller, ctx.Cause = 1, 1, 1
	return ctx
}

func TestFunctionResults(t *testing.T) {
	ctx := newFnCtx(t)
	tests := []struct {
		in, want string
	}{
		{"[sub(10,3)]", "7"},
		{"[add(1.5,1.6)]", "3"},
		{"[div(7,2)]", "3"},
		{"[div(1,0)]", "#-1 DIVIDE BY ZERO"},
		{"[mod(7,3)]", "1"},
		{"[max(3,9,2)]", "9"},
		{"[min(3,9,2)]", "2"},
		{"[gt(2,1)][lt(2,1)][gte(2,2)][lte(3,2)]", "1010"},
		{"[neq(1,2)]", "1"},
		{"[not(0)][not(abc)]", "10"},
		{"[lcstr(ABC)]", "abc"},
		{"[capstr(hello)]", "Hello"},
		{"[reverse(abc)]", "cba"},
		{"[repeat(xy,3)]", "xyxyxy"},
		{"a[space(3)]b", "a   b"},
		{"[first(a b c)]", "a"},
		{"[rest(a b c)]", "b c"},
		{"[first(a|b,|)]", "a"},
		{"[lnum(3)]", "0 1 2"},
		{"[lnum(3,1)]", "3 2 1"},
		{"[lnum(1,3,-)]", "1-2-3"},
		{"[words(a|b|c,|)]", "3"},
		{"[num(me)]", "#1"},
		{"[name(#1)]", "Wizard"},
		{"[name(#42)]", "#-1 NO MATCH"},
		{"[get(me/nosuch)]", ""},
		{"[get(nothing)]", "#-1 BAD ARGUMENT FORMAT TO GET"},
		{"[setq(0,z)][s(%%q0)]", "z"},
		{"[setq(1)]", "#-1 FUNCTION (SETQ) EXPECTS AN EVEN NUMBER OF ARGUMENTS"},
		{"[setq(!,x)]", "#-1 INVALID GLOBAL REGISTER"},
	}
	for _, tt := range tests {
		if got := ctx.Exec(tt.in, eval.EvFCheck|eval.EvEval, nil); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnsiFunction(t *testing.T) {
	ctx := newFnCtx(t)
	if got := ctx.Exec("[ansi(hr,x)]", eval.EvFCheck|eval.EvEval, nil); got != "\033[1m\033[31mx\033[0m" {
		t.Errorf("ansi on = %q", got)
	}
	ctx.AnsiColors = false
	if got := ctx.Exec("[ansi(hr,x)]", eval.EvFCheck|eval.EvEval, nil); got != "x" {
		t.Errorf("ansi off = %q", got)
	}
}

func TestWildMatch(t *testing.T) {
	tests := []struct {
		pattern, str string
		want         bool
	}{
		{"*", "", true},
		{"*", "anything", true},
		{"a*c", "abbbc", true},
		{"a*c", "abbbd", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"ABC", "abc", true},
		{`a\*`, "a*", true},
		{`a\*`, "ab", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, tt := range tests {
		if got := wildMatch(tt.pattern, tt.str); got != tt.want {
			t.Errorf("wildMatch(%q, %q) = %v, want %v", tt.pattern, tt.str, got, tt.want)
		}
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{" 3.5 ", 3.5},
		{"-2abc", -2},
		{"abc", 0},
		{"1.2.3", 1.2},
		{"", 0},
	}
	for _, tt := range tests {
		if got := toFloat(tt.in); got != tt.want {
			t.Errorf("toFloat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
