package eval

// ParseArgList splits an argument list. s begins just past the opening
// delimiter; the list runs to the matching delim. At most nfargs arguments
// are produced: once the last slot is reached it takes the remainder,
// commas included. When flags carries EvEval each argument is evaluated.
//
// An empty list yields a single empty argument. ok is false when the list
// is never closed, in which case nothing is evaluated.
func (ctx *EvalContext) ParseArgList(s string, delim byte, flags int, nfargs int, cargs []string) (args []string, rest string, ok bool) {
	body, rest, found := parseTo(s, int(delim), 0, ctx.SpaceCompress)
	if !found {
		return nil, s, false
	}
	if nfargs <= 0 {
		nfargs = 1
	}
	peval := flags &^ EvEval
	cur, more := body, true
	for len(args) < nfargs && more {
		var seg string
		if len(args) < nfargs-1 {
			seg, cur, more = parseTo(cur, ',', peval, ctx.SpaceCompress)
		} else {
			seg, cur, more = parseTo(cur, noDelim, peval, ctx.SpaceCompress)
		}
		if flags&EvEval != 0 {
			seg = ctx.Exec(seg, flags|EvFCheck, cargs)
		}
		args = append(args, seg)
	}
	return args, rest, true
}
