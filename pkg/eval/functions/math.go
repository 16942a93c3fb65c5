package functions

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func toFloat(s string) float64 {
	s = strings.TrimSpace(s)
	// Match C atof() behavior: parse leading numeric characters (including
	// decimal point), ignore trailing non-numeric text.
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	sawDot := false
	for end < len(s) {
		if s[end] == '.' && !sawDot {
			sawDot = true
			end++
		} else if s[end] >= '0' && s[end] <= '9' {
			end++
		} else {
			break
		}
	}
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

func toInt(s string) int {
	return int(toFloat(s))
}

func boolToStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func writeInt(buf *eval.Buffer, i int) {
	buf.WriteString(strconv.Itoa(i))
}

// add() returns integer result (parse as float, compute, truncate).
func fnAdd(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	sum := 0.0
	for _, a := range args {
		sum += toFloat(a)
	}
	writeInt(buf, int(sum))
}

func fnSub(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	writeInt(buf, int(toFloat(args[0])-toFloat(args[1])))
}

func fnMul(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) == 0 {
		buf.WriteString("0")
		return
	}
	prod := 1.0
	for _, a := range args {
		prod *= toFloat(a)
	}
	writeInt(buf, int(prod))
}

func fnDiv(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	d := toInt(args[1])
	if d == 0 {
		buf.WriteString("#-1 DIVIDE BY ZERO")
		return
	}
	writeInt(buf, toInt(args[0])/d)
}

func fnMod(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	d := toInt(args[1])
	if d == 0 {
		buf.WriteString("#-1 DIVIDE BY ZERO")
		return
	}
	writeInt(buf, toInt(args[0])%d)
}

func fnMax(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) == 0 {
		buf.WriteString("#-1 TOO FEW ARGUMENTS")
		return
	}
	m := toInt(args[0])
	for _, a := range args[1:] {
		m = max(m, toInt(a))
	}
	writeInt(buf, m)
}

func fnMin(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	if len(args) == 0 {
		buf.WriteString("#-1 TOO FEW ARGUMENTS")
		return
	}
	m := toInt(args[0])
	for _, a := range args[1:] {
		m = min(m, toInt(a))
	}
	writeInt(buf, m)
}

func fnEq(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toInt(args[0]) == toInt(args[1])))
}

func fnNeq(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toInt(args[0]) != toInt(args[1])))
}

func fnGt(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) > toFloat(args[1])))
}

func fnGte(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) >= toFloat(args[1])))
}

func fnLt(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) < toFloat(args[1])))
}

func fnLte(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) <= toFloat(args[1])))
}

func fnNot(_ *eval.EvalContext, args []string, buf *eval.Buffer, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(!isTrue(args[0])))
}
