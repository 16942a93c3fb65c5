package functions

import (
	"strings"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func fnCat(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(strings.Join(args, " "))
}

func fnStrlen(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	writeInt(buf, len(stripAnsi(args[0])))
}

func fnUcstr(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(strings.ToUpper(args[0]))
}

func fnLcstr(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(strings.ToLower(args[0]))
}

func fnCapstr(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	s := args[0]
	if s == "" {
		return
	}
	buf.WriteString(strings.ToUpper(s[:1]))
	buf.WriteString(s[1:])
}

func fnReverse(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	s := []byte(args[0])
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	buf.Write(s)
}

func fnRepeat(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	n := toInt(args[1])
	if n <= 0 || args[0] == "" {
		return
	}
	for i := 0; i < n && buf.Avail() > 0; i++ {
		buf.WriteString(args[0])
	}
}

func fnSpace(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	n := 1
	if strings.TrimSpace(args[0]) != "" {
		n = toInt(args[0])
	}
	for i := 0; i < n && buf.Avail() > 0; i++ {
		buf.WriteByte(' ')
	}
}

// ansi(codes, text) wraps text in the colour letters of codes.
func fnAnsi(ctx *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if !ctx.AnsiColors {
		buf.WriteString(args[1])
		return
	}
	wrote := false
	for i := 0; i < len(args[0]); i++ {
		if code := eval.AnsiCode(args[0][i]); code != "" {
			buf.WriteString(code)
			wrote = true
		}
	}
	buf.WriteString(args[1])
	if wrote {
		buf.WriteString(eval.AnsiNormal)
	}
}

func fnLit(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(args[0])
}

// stripAnsi drops escape sequences so lengths count visible bytes.
func stripAnsi(s string) string {
	if strings.IndexByte(s, 0x1b) < 0 {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != 0x1b {
			sb.WriteByte(s[i])
			continue
		}
		i++
		if i < len(s) && s[i] == '[' {
			for i+1 < len(s) && (s[i+1] < 0x40 || s[i+1] > 0x7e) {
				i++
			}
			i++
		}
	}
	return sb.String()
}
