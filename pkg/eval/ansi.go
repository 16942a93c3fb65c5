package eval

import (
	"strconv"
	"strings"
)

// AnsiNormal resets all colour attributes.
const AnsiNormal = "\033[0m"

const (
	xtermFG = "\033[38;5;"
	xtermBG = "\033[48;5;"
)

// ansiTab maps a %x colour letter to its escape sequence. Lower case
// letters set the foreground, upper case the background.
var ansiTab = [256]string{
	'n': AnsiNormal,
	'f': "\033[5m",
	'h': "\033[1m",
	'i': "\033[7m",
	'u': "\033[4m",
	'x': "\033[30m",
	'r': "\033[31m",
	'g': "\033[32m",
	'y': "\033[33m",
	'b': "\033[34m",
	'm': "\033[35m",
	'c': "\033[36m",
	'w': "\033[37m",
	'X': "\033[40m",
	'R': "\033[41m",
	'G': "\033[42m",
	'Y': "\033[43m",
	'B': "\033[44m",
	'M': "\033[45m",
	'C': "\033[46m",
	'W': "\033[47m",
}

// AnsiCode maps a single colour letter to its escape sequence, or "".
func AnsiCode(ch byte) string {
	return ansiTab[ch]
}

// XtermCode returns the escape sequence selecting xterm colour spec as
// foreground or background. The empty string means spec was unusable.
func XtermCode(spec string, background bool) string {
	idx := str2xterm(spec)
	if idx < 0 {
		return ""
	}
	if background {
		return xtermBG + strconv.Itoa(idx) + "m"
	}
	return xtermFG + strconv.Itoa(idx) + "m"
}

// str2xterm accepts a palette index (0-255), a decimal packed RGB value,
// "#rrggbb", or three decimal components separated by non-digits.
func str2xterm(spec string) int {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return -1
	}
	if spec[0] == '#' {
		rgb, err := strconv.ParseInt(spec[1:], 16, 64)
		if err != nil {
			return -1
		}
		return rgb2xterm(rgb)
	}
	parts := strings.FieldsFunc(spec, func(r rune) bool { return r < '0' || r > '9' })
	switch len(parts) {
	case 1:
		if !isDigit(spec[0]) {
			return -1
		}
		n, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return -1
		}
		if n < 256 {
			return int(n)
		}
		return rgb2xterm(n)
	case 3:
		var c [3]int64
		for i, p := range parts {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil || n > 255 {
				return -1
			}
			c[i] = n
		}
		return rgb2xterm(c[0]<<16 | c[1]<<8 | c[2])
	}
	return -1
}

var xtermStandard = map[int64]int{
	0x000000: 0, 0x800000: 1, 0x008000: 2, 0x808000: 3,
	0x000080: 4, 0x800080: 5, 0x008080: 6, 0xc0c0c0: 7,
	0x808080: 8, 0xff0000: 9, 0x00ff00: 10, 0xffff00: 11,
	0x0000ff: 12, 0xff00ff: 13, 0x00ffff: 14, 0xffffff: 15,
}

var cubeLevels = [6]int64{0x00, 0x5f, 0x87, 0xaf, 0xd7, 0xff}

func rgb2xterm(rgb int64) int {
	rgb &= 0xffffff
	if idx, ok := xtermStandard[rgb]; ok {
		return idx
	}
	r, g, b := rgb>>16&0xff, rgb>>8&0xff, rgb&0xff
	if r == g && g == b {
		if r <= 0x08 {
			return 232
		}
		return min(232+int((r-0x08+9)/10), 255)
	}
	return 16 + 36*cubeIndex(r) + 6*cubeIndex(g) + cubeIndex(b)
}

func cubeIndex(v int64) int {
	best, bestDist := 0, int64(1<<62)
	for i, l := range cubeLevels {
		d := v - l
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
