package eval

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// Pronoun tables, indexed by gender: 1 neuter, 2 feminine, 3 masculine, 4 plural.
var (
	subjPronoun = [...]string{"", "it", "she", "he", "they"}
	objPronoun  = [...]string{"", "it", "her", "him", "them"}
	possPronoun = [...]string{"", "its", "her", "his", "their"}
	absPronoun  = [...]string{"", "its", "hers", "his", "theirs"}
)

// execState is per-call scratch shared between exec and its helpers.
type execState struct {
	ansi   bool // a colour was started and not reset
	gender int  // cached gender of the enactor, 0 until looked up
}

func (ctx *EvalContext) genderOf(ref gamedb.DBRef) int {
	sex := ctx.DB.AttrText(ref, gamedb.AttrSex)
	if sex == "" {
		return 1
	}
	switch sex[0] {
	case 'P', 'p':
		return 4
	case 'M', 'm':
		return 3
	case 'F', 'f', 'W', 'w':
		return 2
	}
	return 1
}

func (ctx *EvalContext) nameOf(ref gamedb.DBRef) string {
	if obj := ctx.DB.Get(ref); obj != nil {
		return obj.Name
	}
	return ""
}

// percent expands the substitution whose '%' is at input[i] and returns the
// index of the first byte it did not consume.
func (ctx *EvalContext) percent(buf *Buffer, input string, i int, eval int, cargs []string, st *execState) int {
	j := i + 1
	if j >= len(input) {
		return j
	}
	code := input[j]
	savepos := buf.Len()
	next := j + 1

	switch code {
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if n := int(code - '0'); n < len(cargs) {
			buf.WriteString(cargs[n])
		}
	case 'r', 'R':
		buf.WriteString("\r\n")
	case 't', 'T':
		buf.WriteByte('\t')
	case 'b', 'B':
		buf.WriteByte(' ')
	case 'c', 'C':
		if ctx.CCmdSubst {
			buf.WriteString(ctx.CurrCmd)
			break
		}
		next = ctx.colour(buf, input, j+1, st)
	case 'x', 'X':
		next = ctx.colour(buf, input, j+1, st)
	case '=':
		next = ctx.attrSub(buf, input, j+1)
	case 'v', 'V':
		if next >= len(input) {
			break
		}
		ch := input[next] &^ 0x20
		next++
		if ch >= 'A' && ch <= 'Z' {
			buf.WriteString(ctx.DB.AttrText(ctx.Player, gamedb.AttrVA+int(ch-'A')))
		}
	case 'q', 'Q':
		next = ctx.registerSub(buf, input, j+1)
	case 'o', 'O', 'p', 'P', 's', 'S', 'a', 'A':
		if st.gender == 0 {
			st.gender = ctx.genderOf(ctx.Cause)
		}
		switch code | 0x20 {
		case 'o':
			buf.WriteString(objPronoun[st.gender])
		case 'p':
			buf.WriteString(possPronoun[st.gender])
		case 's':
			buf.WriteString(subjPronoun[st.gender])
		case 'a':
			buf.WriteString(absPronoun[st.gender])
		}
	case '#':
		writeRef(buf, ctx.Cause)
	case '!':
		writeRef(buf, ctx.Player)
	case '@':
		writeRef(buf, ctx.Caller)
	case 'n', 'N':
		buf.WriteString(ctx.nameOf(ctx.Cause))
	case 'l', 'L':
		if eval&EvNoLocation == 0 {
			loc := gamedb.Nothing
			if obj := ctx.DB.Get(ctx.Cause); obj != nil {
				loc = obj.Location
			}
			writeRef(buf, loc)
		}
	case ':':
		buf.WriteByte(':')
		var created int64
		if obj := ctx.DB.Get(ctx.Cause); obj != nil && !obj.CreateTime.IsZero() {
			created = obj.CreateTime.Unix()
		}
		buf.WriteString(strconv.FormatInt(created, 10))
	case 'm', 'M':
		buf.WriteString(ctx.CurrCmd)
	case 'i', 'I', 'j', 'J':
		next = ctx.loopSub(buf, input, j+1, code|0x20 == 'j')
	case '+':
		buf.WriteString(strconv.Itoa(len(cargs)))
	case '|':
		buf.WriteString(ctx.PipeOut)
	case '%':
		buf.WriteByte('%')
	default:
		buf.WriteByte(code)
	}

	if code >= 'A' && code <= 'Z' {
		buf.UpperAt(savepos)
	}
	return next
}

func writeRef(buf *Buffer, ref gamedb.DBRef) {
	buf.WriteByte('#')
	buf.WriteString(strconv.Itoa(int(ref)))
}

// angled returns the text of a <...> group starting at input[k] and the
// index just past the closing '>'. ok is false if input[k] is not '<' or
// the group is never closed.
func angled(input string, k int) (body string, end int, ok bool) {
	if k >= len(input) || input[k] != '<' {
		return "", k, false
	}
	n := strings.IndexByte(input[k+1:], '>')
	if n < 0 {
		return "", k, false
	}
	return input[k+1 : k+1+n], k + n + 2, true
}

// colour handles %x. k indexes the byte after the 'x'.
func (ctx *EvalContext) colour(buf *Buffer, input string, k int, st *execState) int {
	if k >= len(input) {
		return k
	}
	if !ctx.AnsiColors {
		return k + 1
	}
	c := input[k]
	if c != '<' && c != '/' {
		if code := ansiTab[c]; code != "" {
			buf.WriteString(code)
			st.ansi = c != 'n'
		} else {
			buf.WriteByte(c)
		}
		return k + 1
	}

	p := k
	for {
		bg := false
		if input[p] == '/' {
			if p+1 >= len(input) {
				return p + 1
			}
			bg = true
			p++
		}
		spec, end, ok := angled(input, p)
		if !ok {
			if p < len(input) && input[p] == '<' {
				// Unclosed: resume right after the '<'.
				return p + 1
			}
			return p
		}
		if code := XtermCode(spec, bg); code != "" {
			buf.WriteString(code)
			st.ansi = true
		}
		p = end
		if p >= len(input) || (input[p] != '<' && input[p] != '/') {
			return p
		}
	}
}

// attrSub handles %=<attr>. k indexes the byte after the '='.
func (ctx *EvalContext) attrSub(buf *Buffer, input string, k int) int {
	name, end, ok := angled(input, k)
	if !ok {
		if k < len(input) && input[k] == '<' {
			return k + 1
		}
		return k
	}
	num, found := ctx.DB.LookupAttr(name)
	if !found {
		return end
	}
	if def, ok := ctx.DB.AttrNames[num]; ok && def.Flags&gamedb.AFInternal != 0 {
		return end
	}
	buf.WriteString(ctx.DB.AttrText(ctx.Player, num))
	return end
}

// registerSub handles %qN and %q<name>. k indexes the byte after the 'q'.
func (ctx *EvalContext) registerSub(buf *Buffer, input string, k int) int {
	if k >= len(input) {
		return k
	}
	if input[k] != '<' {
		if v, ok := ctx.RData.Get(qidxChar(input[k])); ok {
			buf.WriteString(v)
		}
		return k + 1
	}
	name, end, ok := angled(input, k)
	if !ok {
		return k + 1
	}
	if v, ok := ctx.RData.GetNamed(name); ok {
		buf.WriteString(v)
	}
	return end
}

// loopSub handles %iN, %i-N and the %j forms. k indexes the byte after
// the letter.
func (ctx *EvalContext) loopSub(buf *Buffer, input string, k int, second bool) int {
	if k >= len(input) {
		return k
	}
	var lvl int
	if input[k] == '-' {
		k++
		if k >= len(input) {
			return k
		}
		if !isDigit(input[k]) {
			return k + 1
		}
		lvl = int(input[k] - '0')
	} else {
		if ctx.Loop.InLoop == 0 || !isDigit(input[k]) {
			return k + 1
		}
		lvl = ctx.Loop.InLoop - 1 - int(input[k]-'0')
		if lvl < 0 {
			return k + 1
		}
	}
	if lvl > ctx.Loop.InLoop-1 {
		return k + 1
	}
	if second {
		buf.WriteString(ctx.loopToken2(lvl))
	} else {
		buf.WriteString(ctx.loopToken(lvl))
	}
	return k + 1
}

func (ctx *EvalContext) loopToken(lvl int) string {
	if lvl >= 0 && lvl < len(ctx.Loop.LoopTokens) {
		return ctx.Loop.LoopTokens[lvl]
	}
	return ""
}

func (ctx *EvalContext) loopToken2(lvl int) string {
	if lvl >= 0 && lvl < len(ctx.Loop.LoopTokens2) {
		return ctx.Loop.LoopTokens2[lvl]
	}
	return ""
}

func (ctx *EvalContext) loopNumber(lvl int) int {
	if lvl >= 0 && lvl < len(ctx.Loop.LoopNumbers) {
		return ctx.Loop.LoopNumbers[lvl]
	}
	return 0
}
