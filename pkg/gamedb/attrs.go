package gamedb

import (
	"strconv"
	"strings"
	"time"
)

// Attribute numbers the evaluator and the queue use directly.
const (
	AttrSex       = 7
	AttrQueueMax  = 31
	AttrSemaphore = 47
	AttrTimeout   = 48
	AttrVA        = 100
	AttrVZ        = 125
)

// UserAttrBase is the first attribute number handed out to user attributes.
const UserAttrBase = 256

// WellKnownAttrs are built-in attribute numbers. They are always present and
// never persisted as definitions.
var WellKnownAttrs = map[int]string{
	1:   "OSUCC",
	3:   "FAIL",
	4:   "SUCC",
	6:   "DESC",
	7:   "SEX",
	25:  "MONEY",
	26:  "LISTEN",
	29:  "AHEAR",
	30:  "LAST",
	31:  "QUEUEMAX",
	39:  "ACONNECT",
	43:  "NAME",
	44:  "COMMENT",
	47:  "SEMAPHORE",
	48:  "TIMEOUT",
	58:  "ALIAS",
	100: "VA",
	101: "VB",
	102: "VC",
	103: "VD",
	104: "VE",
	105: "VF",
	106: "VG",
	107: "VH",
	108: "VI",
	109: "VJ",
	110: "VK",
	111: "VL",
	112: "VM",
	113: "VN",
	114: "VO",
	115: "VP",
	116: "VQ",
	117: "VR",
	118: "VS",
	119: "VT",
	120: "VU",
	121: "VV",
	122: "VW",
	123: "VX",
	124: "VY",
	125: "VZ",
}

var wellKnownByName map[string]int

func init() {
	wellKnownByName = make(map[string]int, len(WellKnownAttrs))
	for num, name := range WellKnownAttrs {
		wellKnownByName[name] = num
	}
}

// LookupAttr resolves an attribute name (case-insensitive) to its number.
func (db *Database) LookupAttr(name string) (int, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, false
	}
	if num, ok := wellKnownByName[name]; ok {
		return num, true
	}
	if def, ok := db.AttrByName[name]; ok {
		return def.Number, true
	}
	return 0, false
}

// MakeAttr resolves name, creating a user attribute definition if needed.
// The second result is true when a new definition was created.
func (db *Database) MakeAttr(name string) (int, bool) {
	if num, ok := db.LookupAttr(name); ok {
		return num, false
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	def := db.AddAttrDef(db.NextAttr, name, 0)
	return def.Number, true
}

// AttrValue returns the raw value of attribute num set directly on ref.
func (db *Database) AttrValue(ref DBRef, num int) (string, bool) {
	obj, ok := db.Objects[ref]
	if !ok {
		return "", false
	}
	for _, a := range obj.Attrs {
		if a.Number == num {
			return a.Value, true
		}
	}
	return "", false
}

// AttrText returns attribute num from ref or the nearest parent that has it.
// Private attributes are not inherited.
func (db *Database) AttrText(ref DBRef, num int) string {
	cur := ref
	for depth := 0; depth < 10 && cur != Nothing; depth++ {
		obj, ok := db.Objects[cur]
		if !ok {
			break
		}
		if v, ok := db.AttrValue(cur, num); ok {
			if cur == ref || db.attrFlags(num)&AFPrivate == 0 {
				return v
			}
		}
		cur = obj.Parent
	}
	return ""
}

func (db *Database) attrFlags(num int) int {
	if def, ok := db.AttrNames[num]; ok {
		return def.Flags
	}
	return 0
}

// SetAttr sets (or with an empty value, clears) attribute num on ref.
// It reports whether the object exists.
func (db *Database) SetAttr(ref DBRef, num int, value string) bool {
	obj, ok := db.Objects[ref]
	if !ok {
		return false
	}
	obj.LastMod = time.Now()
	for i, a := range obj.Attrs {
		if a.Number != num {
			continue
		}
		if value == "" {
			obj.Attrs = append(obj.Attrs[:i], obj.Attrs[i+1:]...)
		} else {
			obj.Attrs[i].Value = value
		}
		return true
	}
	if value != "" {
		obj.Attrs = append(obj.Attrs, Attribute{Number: num, Value: value})
	}
	return true
}

// AttrInt parses attribute num on ref as an integer. Unset or
// non-numeric values read as zero.
func (db *Database) AttrInt(ref DBRef, num int) int {
	v, _ := db.AttrValue(ref, num)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// AddToAttr adds delta to the integer stored in attribute num on ref and
// returns the new value. A zero result clears the attribute.
func (db *Database) AddToAttr(ref DBRef, num, delta int) int {
	n := db.AttrInt(ref, num) + delta
	if n == 0 {
		db.SetAttr(ref, num, "")
	} else {
		db.SetAttr(ref, num, strconv.Itoa(n))
	}
	return n
}
