package queue

import "fmt"

// InvariantPrefix starts the panic message of every invariant violation.
const InvariantPrefix = "queue: invariant violated: "

// invariant panics when cond is false. Scheduler state that breaks one of
// these is corrupt and the process should not continue.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(InvariantPrefix+format, args...))
	}
}
