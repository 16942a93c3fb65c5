package eval_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/eval/functions"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// newExecEnv builds a small world and a context running as #1 with #3 as
// the enactor.
//
//	#0 Limbo (ROOM)
//	#1 Wizard (PLAYER, WIZARD) in #0
//	#2 Widget (THING) owned by #1
//	#3 Bob (PLAYER) in #0, SEX=female
func newExecEnv(t *testing.T) *eval.EvalContext {
	t.Helper()
	db := gamedb.NewDatabase()
	db.Objects[0] = &gamedb.Object{DBRef: 0, Name: "Limbo", Location: gamedb.Nothing, Owner: 1,
		Parent: gamedb.Nothing, Flags: [3]int{int(gamedb.TypeRoom), 0, 0}}
	db.Objects[1] = &gamedb.Object{DBRef: 1, Name: "Wizard", Location: 0, Owner: 1,
		Parent: gamedb.Nothing, Flags: [3]int{int(gamedb.TypePlayer) | gamedb.FlagWizard, 0, 0}}
	db.Objects[2] = &gamedb.Object{DBRef: 2, Name: "Widget", Location: 0, Owner: 1,
		Parent: gamedb.Nothing, Flags: [3]int{int(gamedb.TypeThing), 0, 0},
		CreateTime: time.Unix(1600000000, 0)}
	db.Objects[3] = &gamedb.Object{DBRef: 3, Name: "Bob", Location: 0, Owner: 3,
		Parent: gamedb.Nothing, Flags: [3]int{int(gamedb.TypePlayer), 0, 0},
		CreateTime: time.Unix(1500000000, 0)}
	db.SetAttr(3, gamedb.AttrSex, "female")

	ctx := eval.NewEvalContext(db)
	functions.RegisterAll(ctx)
	ctx.Player = 1
	ctx.Caller = 1
	ctx.Cause = 3
	ctx.Now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx.ResetLimits()
	return ctx
}

func setAttr(t *testing.T, ctx *eval.EvalContext, ref gamedb.DBRef, name, value string) int {
	t.Helper()
	num, _ := ctx.DB.MakeAttr(name)
	if !ctx.DB.SetAttr(ref, num, value) {
		t.Fatalf("SetAttr(#%d, %s) failed", ref, name)
	}
	return num
}

func run(ctx *eval.EvalContext, input string, cargs ...string) string {
	return ctx.Exec(input, eval.EvFCheck|eval.EvEval, cargs)
}

func TestExecLiteralText(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		in, want string
	}{
		{"hello world", "hello world"},
		{"hello    world", "hello world"},
		{"   leading", "leading"},
		{"trailing   ", "trailing"},
		{`a\[b`, "a[b"},
		{`trail\`, "trail"},
		{`\%0`, "%0"},
		{"[unclosed", "[unclosed"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecNoCompress(t *testing.T) {
	ctx := newExecEnv(t)
	got := ctx.Exec("a   b", eval.EvFCheck|eval.EvEval|eval.EvNoCompress, nil)
	if got != "a   b" {
		t.Errorf("got %q", got)
	}
	ctx.SpaceCompress = false
	if got := run(ctx, "  a  b  "); got != "  a  b  " {
		t.Errorf("with compression off got %q", got)
	}
}

func TestExecFunctions(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		in, want string
	}{
		{"[add(1,2)]", "3"},
		{"add(1,2)", "3"},
		{"[add(1,[mul(2,3)])]", "7"},
		{"x [add(1,1)] y", "x 2 y"},
		{"[cat(a,b,c)]", "a b c"},
		{"[strlen(a,b)]", "3"},
		{"[strlen()]", "0"},
		{"[secs()]", "1700000000"},
		{"[ucstr(abc)]", "ABC"},
		{"[ADD(2,2)]", "4"},
		{"[ add(2,2)]", "4"},
		{"[words(a b  c)]", "3"},
		{"[eq(1)]", "#-1 FUNCTION (EQ) EXPECTS 2 ARGUMENTS BUT GOT 1"},
		{"[secs(1)]", "#-1 FUNCTION (SECS) EXPECTS 0 ARGUMENTS BUT GOT 1"},
		{"[secs( )]", "#-1 FUNCTION (SECS) EXPECTS 0 ARGUMENTS BUT GOT 1"},
		{"[secs(,)]", "#-1 FUNCTION (SECS) EXPECTS 0 ARGUMENTS BUT GOT 2"},
		{"[nosuch(1)]", "#-1 FUNCTION (NOSUCH) NOT FOUND"},
		{"[nosuch(1)] after", "#-1 FUNCTION (NOSUCH) NOT FOUND after"},
		{"nosuch(1)", "nosuch(1)"},
		{"add(1,2) add(1,2)", "3 add(1,2)"},
		{"[add(1,2]", "add(1,2"},
		{"{a [add(1,1)]}", "{a 2}"},
		{"{a,b(c)}", "{a,b(c)}"},
		{"[if(1,yes,no)]", "yes"},
		{"[if(0,yes,no)]", "no"},
		{"[ifelse(#-1,yes,no)]", "no"},
		{"[switch(b,a,1,b,2,3)]", "2"},
		{"[switch(z,a,1,3)]", "3"},
		{"[switch(foo,f*,#$!)]", "foo!"},
		{"[lit([add(1,1)])]", "[add(1,1)]"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecStrip(t *testing.T) {
	ctx := newExecEnv(t)
	got := ctx.Exec("{a b} c", eval.EvFCheck|eval.EvEval|eval.EvStrip, nil)
	if got != "a b c" {
		t.Errorf("got %q, want %q", got, "a b c")
	}
	got = ctx.Exec("[add(1,1)]", eval.EvFCheck|eval.EvEval|eval.EvNoFCheck, nil)
	if got != "[add(1,1)]" {
		t.Errorf("EvNoFCheck got %q", got)
	}
}

func TestExecPercentSubstitutions(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		in, want string
	}{
		{"%0-%1-%2", "x-y-"},
		{"%+", "2"},
		{"%#", "#3"},
		{"%!", "#1"},
		{"%@", "#1"},
		{"%n", "Bob"},
		{"%N", "Bob"},
		{"%s %o %p %a", "she her her hers"},
		{"%S", "She"},
		{"%l", "#0"},
		{"%:", ":1500000000"},
		{"%r", "\r\n"},
		{"%t", "\t"},
		{"a%bb", "a b"},
		{"%%", "%"},
		{"%z", "z"},
		{"100%", "100"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in, "x", "y"); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecPronounsByGender(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		sex, want string
	}{
		{"", "it its"},
		{"Male", "he his"},
		{"plural", "they their"},
		{"woman", "she her"},
		{"xyzzy", "it its"},
	}
	for _, tt := range tests {
		ctx.DB.SetAttr(3, gamedb.AttrSex, tt.sex)
		if got := run(ctx, "%s %p"); got != tt.want {
			t.Errorf("sex %q: got %q, want %q", tt.sex, got, tt.want)
		}
	}
}

func TestExecAttributeSubstitutions(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.DB.SetAttr(1, gamedb.AttrVA, "alpha")
	setAttr(t, ctx, 1, "MOOD", "happy")
	hidden := setAttr(t, ctx, 1, "HIDDEN", "secret")
	ctx.DB.AttrNames[hidden].Flags |= gamedb.AFInternal

	tests := []struct {
		in, want string
	}{
		{"%va", "alpha"},
		{"%VA", "Alpha"},
		{"%vb", ""},
		{"%=<mood>", "happy"},
		{"%=<hidden>", ""},
		{"%=<nosuch>!", "!"},
		{"%=<mood", "mood"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecRegisters(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		in, want string
	}{
		{"[setq(0,hi)]%q0", "hi"},
		{"[setq(a,x)]%qA", "X"},
		{"[setq(foo,bar)]%q<foo>", "bar"},
		{"[setr(1,val)]-%q1", "val-val"},
		{"[setq(2,two)][r(2)]", "two"},
		{"%q<never", "never"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecSetqCreatesRegisters(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.RData = nil
	if got := run(ctx, "[setq(0,v)]%q0"); got != "v" {
		t.Errorf("got %q", got)
	}
	if ctx.RData == nil {
		t.Error("setq did not create a register set")
	}
}

func TestExecColours(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		in, want string
	}{
		{"%xrred%xn", "\033[31mred\033[0m"},
		{"%xrred", "\033[31mred\033[0m"},
		{"%xRx", "\033[41mx\033[0m"},
		{"%x<#ff0000>x", "\033[38;5;9mx\033[0m"},
		{"%x/<196>x", "\033[48;5;196mx\033[0m"},
		{"%x<9>/<21>x", "\033[38;5;9m\033[48;5;21mx\033[0m"},
		{"%x<red", "red"},
		{"%x<bogus>x", "x"},
		{"%cgx", "\033[32mx\033[0m"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	ctx.AnsiColors = false
	if got := run(ctx, "%xrred"); got != "red" {
		t.Errorf("colours off: got %q", got)
	}
}

func TestExecCurrentCommand(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.CurrCmd = "look"
	if got := run(ctx, "%m"); got != "look" {
		t.Errorf("%%m = %q", got)
	}
	ctx.CCmdSubst = true
	if got := run(ctx, "%c"); got != "look" {
		t.Errorf("%%c with command substitution = %q", got)
	}
}

func TestExecIter(t *testing.T) {
	ctx := newExecEnv(t)
	tests := []struct {
		in, want string
	}{
		{"[iter(a b c,<##>)]", "<a> <b> <c>"},
		{"[iter(a b,#@)]", "1 2"},
		{"[iter(a|b,##,|,-)]", "a-b"},
		{"[iter(a b,[iter(1 2,##%i1)])]", "1a 2a 1b 2b"},
		{"[iter(a b,%i-0)]", "a b"},
		{"[iter(x y,#!)]", "0 0"},
		{"[iter(,##)]", ""},
		{"## outside", "## outside"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if ctx.Loop.InLoop != 0 || len(ctx.Loop.LoopTokens) != 0 {
		t.Errorf("loop state leaked: %+v", ctx.Loop)
	}
}

func TestExecUserFunctions(t *testing.T) {
	ctx := newExecEnv(t)
	setAttr(t, ctx, 2, "SUM", "[add(%0,%1)]")
	setAttr(t, ctx, 2, "WHO", "%!/%@")
	setAttr(t, ctx, 2, "SETIT", "[setq(0,inner)]%q0")
	double := setAttr(t, ctx, 2, "DOUBLE", "[mul(%0,2)]")
	who := setAttr(t, ctx, 2, "WHOAMI", "%!")

	ctx.UFunctions["DOUBLE"] = &eval.UFunction{Name: "DOUBLE", Obj: 2, Attr: double}
	ctx.UFunctions["WHOAMI"] = &eval.UFunction{Name: "WHOAMI", Obj: 2, Attr: who}
	ctx.UFunctions["PWHOAMI"] = &eval.UFunction{Name: "PWHOAMI", Obj: 2, Attr: who, Flags: eval.UfPriv}

	tests := []struct {
		in, want string
	}{
		{"[u(#2/SUM,2,3)]", "5"},
		{"[u(#2/WHO)]", "#2/#1"},
		{"[u(#2/NOSUCH)]", ""},
		{"[u(#99/SUM)]", "#-1 NOT FOUND"},
		{"[double(4)]", "8"},
		{"[whoami()]", "#1"},
		{"[pwhoami()]", "#2"},
		{"[setq(0,outer)][u(#2/SETIT)]%q0", "innerinner"},
		{"[setq(0,outer)][ulocal(#2/SETIT)]%q0", "innerouter"},
	}
	for _, tt := range tests {
		if got := run(ctx, tt.in); got != tt.want {
			t.Errorf("exec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExecUserFunctionRegisterModes(t *testing.T) {
	ctx := newExecEnv(t)
	num := setAttr(t, ctx, 2, "PEEK", "[setq(0,changed)]<%q0>")
	ctx.UFunctions["NOREGS"] = &eval.UFunction{Name: "NOREGS", Obj: 2, Attr: num, Flags: eval.UfNoregs}
	ctx.UFunctions["PRES"] = &eval.UFunction{Name: "PRES", Obj: 2, Attr: num, Flags: eval.UfPres}

	if got := run(ctx, "[setq(0,mine)][pres()]%q0"); got != "<changed>mine" {
		t.Errorf("preserve: got %q", got)
	}
	if got := run(ctx, "[setq(0,mine)][noregs()]%q0"); got != "<changed>mine" {
		t.Errorf("noregs: got %q", got)
	}
}

func TestExecUserFunctionNoEval(t *testing.T) {
	ctx := newExecEnv(t)
	num := setAttr(t, ctx, 2, "RAW", "%0")
	ctx.UFunctions["RAW"] = &eval.UFunction{Name: "RAW", Obj: 2, Attr: num, Flags: eval.UfNoEval}
	if got := run(ctx, "[raw(add(1,1))]"); got != "add(1,1)" {
		t.Errorf("got %q", got)
	}
}

func TestExecLimits(t *testing.T) {
	t.Run("recursion", func(t *testing.T) {
		ctx := newExecEnv(t)
		ctx.Limits.NestLim = 5
		setAttr(t, ctx, 2, "REC", "[u(#2/REC)]")
		got := run(ctx, "[u(#2/REC)]")
		if !strings.Contains(got, "#-1 FUNCTION RECURSION LIMIT EXCEEDED") {
			t.Errorf("got %q", got)
		}
		if ctx.LimitHits.Recursion == 0 {
			t.Error("recursion hit not counted")
		}
		if ctx.FuncNestLev != 0 {
			t.Errorf("nesting level leaked: %d", ctx.FuncNestLev)
		}
	})

	t.Run("invocation", func(t *testing.T) {
		ctx := newExecEnv(t)
		ctx.Limits.InvkLim = 3
		const e = "#-1 FUNCTION INVOCATION LIMIT EXCEEDED"
		got := run(ctx, "[add(1,1)][add(1,1)][add(1,1)][add(1,1)]")
		if got != "22"+e+e {
			t.Errorf("got %q", got)
		}
		if ctx.LimitHits.Invocation != 2 {
			t.Errorf("invocation hits = %d, want 2", ctx.LimitHits.Invocation)
		}
	})

	t.Run("cpu", func(t *testing.T) {
		ctx := newExecEnv(t)
		ctx.Limits.CPULim = time.Second
		ctx.CPUBase = time.Unix(1699999990, 0)
		if got := run(ctx, "[add(1,1)]"); got != "#-1 FUNCTION CPU LIMIT EXCEEDED" {
			t.Errorf("got %q", got)
		}
		if ctx.LimitHits.CPU != 1 {
			t.Errorf("cpu hits = %d", ctx.LimitHits.CPU)
		}
	})

	t.Run("going invoker", func(t *testing.T) {
		ctx := newExecEnv(t)
		ctx.DB.Objects[1].SetFlag(gamedb.FlagGoing, true)
		if got := run(ctx, "[add(1,1)]"); got != "#-1 BAD INVOKER" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("permission", func(t *testing.T) {
		ctx := newExecEnv(t)
		if got := run(ctx, "[objeval(#2,%!)]"); got != "#2" {
			t.Errorf("wizard got %q", got)
		}
		ctx.Player = 3
		if got := run(ctx, "[objeval(#2,%!)]"); got != "#-1 PERMISSION DENIED" {
			t.Errorf("mortal got %q", got)
		}
	})
}

func TestExecTrace(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.Player = 2
	ctx.DB.Objects[2].SetFlag(gamedb.FlagTrace, true)

	if got := run(ctx, "[add(1,1)]"); got != "2" {
		t.Fatalf("got %q", got)
	}
	want := []eval.Notification{
		{Target: 1, Message: "Widget(#2)} '[add(1,1)]' -> '2'"},
		{Target: 1, Message: "Widget(#2)} 'add(1,1)' -> '2'"},
	}
	if diff := cmp.Diff(want, ctx.Notifications); diff != "" {
		t.Errorf("top-down trace mismatch (-want +got):\n%s", diff)
	}

	ctx.Notifications = nil
	ctx.Limits.TraceTopDown = false
	run(ctx, "[add(1,1)]")
	want = []eval.Notification{
		{Target: 1, Message: "Widget(#2)} 'add(1,1)' -> '2'"},
		{Target: 1, Message: "Widget(#2)} '[add(1,1)]' -> '2'"},
	}
	if diff := cmp.Diff(want, ctx.Notifications); diff != "" {
		t.Errorf("bottom-up trace mismatch (-want +got):\n%s", diff)
	}
}

func TestExecTraceLimit(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.Player = 2
	ctx.DB.Objects[2].SetFlag(gamedb.FlagTrace, true)
	ctx.Limits.TraceLimit = 1

	run(ctx, "[add(1,1)]")
	want := []eval.Notification{
		{Target: 1, Message: "Widget(#2)} 'add(1,1)' -> '2'"},
		{Target: 2, Message: "1 lines of trace output discarded."},
	}
	if diff := cmp.Diff(want, ctx.Notifications); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestExecNoTrace(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.Player = 2
	ctx.DB.Objects[2].SetFlag(gamedb.FlagTrace, true)
	ctx.Exec("[add(1,1)]", eval.EvFCheck|eval.EvEval|eval.EvNoTrace, nil)
	if len(ctx.Notifications) != 0 {
		t.Errorf("notifications = %+v", ctx.Notifications)
	}
}

func TestExecOutputBounded(t *testing.T) {
	ctx := newExecEnv(t)
	ctx.BufferSize = 10
	if got := run(ctx, "[repeat(ab,20)]"); got != "ababababab" {
		t.Errorf("got %q", got)
	}
}

func TestExecPemit(t *testing.T) {
	ctx := newExecEnv(t)
	var got []string
	ctx.Notify = func(target gamedb.DBRef, msg string) {
		got = append(got, msg)
	}
	run(ctx, "[pemit(#3 #99,hello %n)]")
	if diff := cmp.Diff([]string{"hello Bob"}, got); diff != "" {
		t.Errorf("pemit mismatch (-want +got):\n%s", diff)
	}
}
