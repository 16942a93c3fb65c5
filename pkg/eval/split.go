package eval

// stackLimit bounds the bracket stack; openers past this depth are not tracked.
const stackLimit = 32

// noDelim makes parseTo consume the whole input.
const noDelim = -1

// ParseTo splits s at the first delim found outside any nesting. It returns
// the segment before the delimiter, the text after it, and whether the
// delimiter was found. When it is not, the segment is all of s and rest is
// empty. An empty input is reported as not found.
//
// Brackets and parentheses nest; a closer that matches nothing on the stack
// may itself be the delimiter. Brace groups are copied as a unit. Escapes
// (\X and %X) and ANSI escape sequences are never split.
func (ctx *EvalContext) ParseTo(s string, delim byte, flags int) (seg, rest string, found bool) {
	return parseTo(s, int(delim), flags, ctx.SpaceCompress)
}

func parseTo(s string, delim int, flags int, compress bool) (string, string, bool) {
	if s == "" {
		return "", "", false
	}
	noCompress := flags&EvNoCompress != 0
	squash := compress && !noCompress

	i := 0
	if (compress || flags&EvStripLS != 0) && !noCompress {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
	}

	out := make([]byte, 0, len(s)-i)
	var stack [stackLimit]byte
	sp := 0
	first := true

	finish := func(end int) string {
		if (compress || flags&EvStripTS != 0) && !noCompress && !first &&
			end > 0 && s[end-1] == ' ' && len(out) > 0 && out[len(out)-1] == ' ' {
			out = out[:len(out)-1]
		}
		if flags&EvStripAround != 0 && len(out) >= 2 && out[0] == '{' && out[len(out)-1] == '}' {
			out = out[1 : len(out)-1]
			if squash || flags&EvStripLS != 0 {
				for len(out) > 0 && isSpace(out[0]) {
					out = out[1:]
				}
			}
			if squash || flags&EvStripTS != 0 {
				for len(out) > 0 && isSpace(out[len(out)-1]) {
					out = out[:len(out)-1]
				}
			}
		}
		return string(out)
	}

	for i < len(s) {
		c := s[i]
		switch c {
		case '\\', '%':
			if i+1 < len(s) {
				if c == '\\' && flags&EvStripESC != 0 {
					i++
				} else {
					out = append(out, c)
					i++
				}
			}
			out = append(out, s[i])
			i++
			first = false

		case ']', ')':
			tp := sp - 1
			for tp >= 0 && stack[tp] != c {
				tp--
			}
			if tp >= 0 {
				sp = tp
			} else if int(c) == delim {
				return finish(i), s[i+1:], true
			}
			out = append(out, c)
			i++
			first = false

		case '{':
			lev := 1
			if flags&EvStrip == 0 {
				out = append(out, c)
			}
			i++
			for i < len(s) && lev > 0 {
				switch s[i] {
				case '\\', '%':
					if i+1 < len(s) {
						if s[i] == '\\' && flags&EvStripESC != 0 {
							i++
						} else {
							out = append(out, s[i])
							i++
						}
					}
				case '{':
					lev++
				case '}':
					lev--
				}
				if lev > 0 {
					out = append(out, s[i])
					i++
				}
			}
			if lev == 0 {
				if flags&EvStrip == 0 {
					out = append(out, '}')
				}
				i++
			}
			first = false

		default:
			if int(c) == delim && sp == 0 {
				return finish(i), s[i+1:], true
			}
			switch c {
			case ' ':
				if squash && (first || (i > 0 && s[i-1] == ' ')) {
					i++
					continue
				}
				out = append(out, c)
				i++
			case '[':
				if sp < stackLimit {
					stack[sp] = ']'
					sp++
				}
				out = append(out, c)
				i++
				first = false
			case '(':
				if sp < stackLimit {
					stack[sp] = ')'
					sp++
				}
				out = append(out, c)
				i++
				first = false
			case escChar:
				n := escLen(s[i:])
				out = append(out, s[i:i+n]...)
				i += n
				first = false
			default:
				out = append(out, c)
				i++
				first = false
			}
		}
	}
	return finish(len(s)), "", false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

const escChar = 0x1b

// escLen returns the length of the escape sequence at the start of s,
// which must begin with ESC.
func escLen(s string) int {
	i := 1
	if i < len(s) && s[i] == '[' {
		i++
		for i < len(s) && s[i]&0xf0 == 0x30 {
			i++
		}
	}
	for i < len(s) && s[i]&0xf0 == 0x20 {
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}
