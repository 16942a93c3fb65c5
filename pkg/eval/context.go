package eval

import (
	"time"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// EvalFlags control expression evaluation behavior
const (
	EvEval        = 0x0001 // Evaluate functions
	EvFCheck      = 0x0002 // Check for function invocations
	EvFMand       = 0x0004 // Function evaluation is mandatory (inside [])
	EvStrip       = 0x0008 // Strip {} from nested blocks
	EvNoCompress  = 0x0010 // Don't compress spaces
	EvStripLS     = 0x0020 // Strip leading spaces
	EvStripTS     = 0x0040 // Strip trailing spaces
	EvStripESC    = 0x0080 // Strip backslash escapes
	EvStripAround = 0x0100 // Strip surrounding {}
	EvNoFCheck    = 0x0200 // Don't check for functions
	EvNoTrace     = 0x0400 // Don't trace
	EvNoLocation  = 0x0800 // Don't resolve %l
)

// MaxNFArgs is the argument capacity of a call that does not fix its arity.
const MaxNFArgs = 30

// Limits bounds the work one top-level command may do.
type Limits struct {
	NestLim      int           // function recursion ceiling
	InvkLim      int           // function invocations per command
	CPULim       time.Duration // wall-clock budget per command, 0 disables
	TraceLimit   int           // trace lines kept per top-level evaluation
	TraceTopDown bool          // flush trace outermost first
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		NestLim:      50,
		InvkLim:      2500,
		CPULim:       60 * time.Second,
		TraceLimit:   200,
		TraceTopDown: true,
	}
}

// LimitStats counts ceiling hits, for metrics.
type LimitStats struct {
	Recursion  int
	Invocation int
	CPU        int
}

// LoopState tracks iter()/switch() nesting
type LoopState struct {
	InLoop      int
	InSwitch    int
	LoopTokens  []string // ## values per nesting level
	LoopTokens2 []string // #+ values
	LoopNumbers []int    // #@ values
	SwitchToken string   // #$ value
	BreakLevel  int      // > 0 means break out of this many loop levels
}

// EvalContext is the execution context for MUSH expression evaluation.
type EvalContext struct {
	DB *gamedb.Database

	// Object context
	Player gamedb.DBRef // Executor (the object running code, %!)
	Caller gamedb.DBRef // Caller (%@)
	Cause  gamedb.DBRef // Enactor (%#)
	God    gamedb.DBRef

	RData    *RegisterData
	RegStats RegisterStats

	Loop LoopState

	// Function call tracking
	FuncNestLev int
	FuncInvkCtr int
	Limits      Limits
	LimitHits   LimitStats
	CPUBase     time.Time
	Now         func() time.Time

	CurrCmd string
	PipeOut string

	// Output for side-effect notifications. When Notify is nil they
	// accumulate in Notifications.
	Notify        func(target gamedb.DBRef, msg string)
	Notifications []Notification

	SpaceCompress bool
	AnsiColors    bool
	CCmdSubst     bool
	BufferSize    int

	UFunctions map[string]*UFunction
	Functions  map[string]*Function

	// CArgs holds the current command arguments (%0-%9) so FnNoEval
	// handlers can pass them on when they evaluate internally.
	CArgs []string

	trace traceCache
}

// Notification is a message produced during evaluation.
type Notification struct {
	Target  gamedb.DBRef
	Message string
}

// UFunction is a user-defined (@function) function
type UFunction struct {
	Name  string
	Obj   gamedb.DBRef
	Attr  int
	Flags int
	Perms int
}

// UFunction flags
const (
	UfPriv   = 0x0001 // /privileged: runs as the defining object
	UfPres   = 0x0002 // /preserve: caller registers survive the call
	UfNoregs = 0x0004 // call runs with no registers
	UfNoEval = 0x0008 // arguments are passed unevaluated
)

// FnHandler is the signature for built-in function handlers.
type FnHandler func(ctx *EvalContext, args []string, buf *Buffer, caller, cause gamedb.DBRef)

// Function is a registered built-in function.
type Function struct {
	Name    string
	Handler FnHandler
	NArgs   int // exact arity; -N means join everything past N-1 into the last
	Flags   int
	Perms   int
}

// Function flags
const (
	FnVarArgs = 0x0001 // Variable number of args
	FnNoEval  = 0x0002 // Don't evaluate args before calling
	FnPriv    = 0x0004 // Privileged function
	FnNoregs  = 0x0008 // Don't pass registers
	FnPres    = 0x0010 // Preserve registers across call
)

// Permission bits for functions.
const (
	PermWizard = 0x0001
	PermGod    = 0x0002
)

// NewEvalContext creates an EvalContext with reasonable defaults.
func NewEvalContext(db *gamedb.Database) *EvalContext {
	return &EvalContext{
		DB:            db,
		Player:        gamedb.Nothing,
		Caller:        gamedb.Nothing,
		Cause:         gamedb.Nothing,
		God:           1,
		RData:         NewRegisterData(),
		Limits:        DefaultLimits(),
		Now:           time.Now,
		SpaceCompress: true,
		AnsiColors:    true,
		BufferSize:    DefaultBufferSize,
		UFunctions:    make(map[string]*UFunction),
		Functions:     make(map[string]*Function),
	}
}

// ResetLimits starts a new top-level command: counters are zeroed and the
// CPU budget restarts.
func (ctx *EvalContext) ResetLimits() {
	ctx.FuncNestLev = 0
	ctx.FuncInvkCtr = 0
	ctx.CPUBase = ctx.Now()
}

func (ctx *EvalContext) tooMuchCPU() bool {
	if ctx.Limits.CPULim <= 0 || ctx.CPUBase.IsZero() {
		return false
	}
	return ctx.Now().Sub(ctx.CPUBase) > ctx.Limits.CPULim
}

// Tell delivers msg to target.
func (ctx *EvalContext) Tell(target gamedb.DBRef, msg string) {
	if ctx.Notify != nil {
		ctx.Notify(target, msg)
		return
	}
	ctx.Notifications = append(ctx.Notifications, Notification{Target: target, Message: msg})
}

// RegisterFunction adds a built-in function to the registry.
func (ctx *EvalContext) RegisterFunction(name string, handler FnHandler, nargs int, flags int) {
	ctx.Functions[name] = &Function{
		Name:    name,
		Handler: handler,
		NArgs:   nargs,
		Flags:   flags,
	}
}

// AliasFunction creates an alias for an existing function.
// Both alias and target should be uppercase.
func (ctx *EvalContext) AliasFunction(alias, target string) {
	if fn, ok := ctx.Functions[target]; ok {
		ctx.Functions[alias] = fn
	}
}

// checkAccess applies function permission bits to the executor.
func (ctx *EvalContext) checkAccess(player gamedb.DBRef, perms int) bool {
	if perms == 0 {
		return true
	}
	if player == ctx.God {
		return true
	}
	if perms&PermGod != 0 {
		return false
	}
	obj := ctx.DB.Get(player)
	if obj == nil {
		return false
	}
	if perms&PermWizard != 0 && !obj.HasFlag(gamedb.FlagWizard) {
		return false
	}
	return true
}

func (ctx *EvalContext) isGoing(ref gamedb.DBRef) bool {
	obj := ctx.DB.Get(ref)
	return obj != nil && obj.IsGoing()
}
