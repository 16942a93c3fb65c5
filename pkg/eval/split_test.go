package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTo(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		delim     int
		flags     int
		seg, rest string
		found     bool
	}{
		{"simple", "a,b", ',', 0, "a", "b", true},
		{"not found", "abc", ',', 0, "abc", "", false},
		{"empty", "", ',', 0, "", "", false},
		{"bracket protects", "[a,b],c", ',', 0, "[a,b]", "c", true},
		{"paren protects", "f(a,b),c", ',', 0, "f(a,b)", "c", true},
		{"brace group", "{a,b},c", ',', 0, "{a,b}", "c", true},
		{"brace stripped", "{a,b},c", ',', EvStrip, "a,b", "c", true},
		{"escape kept", `a\,b,c`, ',', 0, `a\,b`, "c", true},
		{"escape stripped", `a\,b,c`, ',', EvStripESC, "a,b", "c", true},
		{"percent kept", "a%,b,c", ',', 0, "a%,b", "c", true},
		{"leading spaces", "   a,b", ',', 0, "a", "b", true},
		{"squash runs", "a   b,c", ',', 0, "a b", "c", true},
		{"trailing space", "a ,b", ',', 0, "a", "b", true},
		{"no compress", "  a  ,b", ',', EvNoCompress, "  a  ", "b", true},
		{"unmatched closer is delim", "a)b", ')', 0, "a", "b", true},
		{"matched closer nests", "f(x))rest", ')', 0, "f(x)", "rest", true},
		{"strip around", "{ a b },c", ',', EvStripAround, "a b", "c", true},
		{"whole input", "a,b,c", noDelim, 0, "a,b,c", "", false},
		{"escape sequence whole", "\x1b[31m,x", ',', 0, "\x1b[31m", "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, rest, found := parseTo(tt.in, tt.delim, tt.flags, true)
			if seg != tt.seg || rest != tt.rest || found != tt.found {
				t.Errorf("parseTo(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, seg, rest, found, tt.seg, tt.rest, tt.found)
			}
		})
	}
}

func TestParseToWithoutCompression(t *testing.T) {
	seg, rest, found := parseTo("  a   b ,c", ',', 0, false)
	if seg != "  a   b " || rest != "c" || !found {
		t.Errorf("got (%q, %q, %v)", seg, rest, found)
	}
}

func TestParseArgList(t *testing.T) {
	db := newTestDB()
	ctx := NewEvalContext(db)

	tests := []struct {
		name   string
		in     string
		nfargs int
		args   []string
		rest   string
		ok     bool
	}{
		{"two args", "a,b)tail", MaxNFArgs, []string{"a", "b"}, "tail", true},
		{"empty list", ")", MaxNFArgs, []string{""}, "", true},
		{"last slot takes rest", "a,b,c)", 2, []string{"a", "b,c"}, "", true},
		{"nested call", "f(x,y),z)", MaxNFArgs, []string{"f(x,y)", "z"}, "", true},
		{"unterminated", "a,b", MaxNFArgs, nil, "a,b", false},
		{"empty middle", "a,,c)", MaxNFArgs, []string{"a", "", "c"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, rest, ok := ctx.ParseArgList(tt.in, ')', 0, tt.nfargs, nil)
			if ok != tt.ok || rest != tt.rest {
				t.Fatalf("ParseArgList(%q) rest=%q ok=%v, want rest=%q ok=%v", tt.in, rest, ok, tt.rest, tt.ok)
			}
			if diff := cmp.Diff(tt.args, args); diff != "" {
				t.Errorf("ParseArgList(%q) args mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseArgListEvaluates(t *testing.T) {
	ctx := NewEvalContext(newTestDB())
	args, _, ok := ctx.ParseArgList("%0,x%1y)", ')', EvEval, MaxNFArgs, []string{"one", "two"})
	if !ok {
		t.Fatal("ParseArgList reported unterminated list")
	}
	if diff := cmp.Diff([]string{"one", "xtwoy"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

// splitsAtTopLevel reports whether pos is the first delim in s that sits
// outside every bracket, brace group and escape, scanning the way
// parseTo does.
func splitsAtTopLevel(s string, pos int, delim byte) bool {
	var stack []byte
	i := 0
	for i < pos {
		switch c := s[i]; c {
		case '\\', '%':
			i += 2
		case escChar:
			i += escLen(s[i:])
		case '{':
			lev := 1
			for i++; i < len(s) && lev > 0; i++ {
				switch s[i] {
				case '\\', '%':
					i++
				case '{':
					lev++
				case '}':
					lev--
				}
			}
			if lev > 0 {
				return false
			}
		case '[', '(':
			if len(stack) < stackLimit {
				closer := byte(']')
				if c == '(' {
					closer = ')'
				}
				stack = append(stack, closer)
			}
			i++
		case ']', ')':
			for tp := len(stack) - 1; tp >= 0; tp-- {
				if stack[tp] == c {
					stack = stack[:tp]
					break
				}
			}
			i++
		default:
			if c == delim && len(stack) == 0 {
				return false
			}
			i++
		}
	}
	return i == pos && len(stack) == 0
}

func FuzzParseTo(f *testing.F) {
	for _, seed := range []string{
		"a,b", "[a,b],c", "f(a,b),c", "{a,b},c", `a\,b,c`, "a%,b,c",
		"a)b,c", "f(x)),y", "{a{b}c},d", "[(],x", "\x1b[31m,x", `a\`, "{,",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		if s == "" {
			return
		}
		seg, rest, found := parseTo(s, ',', 0, false)
		if !found {
			if seg != s || rest != "" {
				t.Fatalf("parseTo(%q) without a split = (%q, %q)", s, seg, rest)
			}
			return
		}
		if seg+","+rest != s {
			t.Fatalf("parseTo(%q) = (%q, %q) does not rebuild the input", s, seg, rest)
		}
		if !splitsAtTopLevel(s, len(seg), ',') {
			t.Fatalf("parseTo(%q) split inside nesting or an escape at %d", s, len(seg))
		}
	})
}
