package gamedb

import "time"

// DBRef is the fundamental object reference type in MUSH.
type DBRef int

const (
	Nothing   DBRef = -1
	Ambiguous DBRef = -2
	Home      DBRef = -3
	NoPerm    DBRef = -4
)

// ObjectType represents the type of a MUSH object.
type ObjectType int

const (
	TypeRoom    ObjectType = 0
	TypeThing   ObjectType = 1
	TypeExit    ObjectType = 2
	TypePlayer  ObjectType = 3
	TypeZone    ObjectType = 4
	TypeGarbage ObjectType = 5
)

func (t ObjectType) String() string {
	switch t {
	case TypeRoom:
		return "ROOM"
	case TypeThing:
		return "THING"
	case TypeExit:
		return "EXIT"
	case TypePlayer:
		return "PLAYER"
	case TypeZone:
		return "ZONE"
	case TypeGarbage:
		return "GARBAGE"
	default:
		return "UNKNOWN"
	}
}

const TypeMask = 0x7

// Flag constants - first word. Only the bits the evaluator and the
// queue consult are named here.
const (
	FlagWizard  = 0x00000010
	FlagQuiet   = 0x00000800
	FlagHalt    = 0x00001000
	FlagTrace   = 0x00002000
	FlagGoing   = 0x00004000
	FlagRoyalty = 0x20000000
)

// Power constants - first word (Powers[0])
const (
	PowHalt     = 0x00000010
	PowSeeQueue = 0x00100000
)

// HasPower checks if a power bit is set in the given power word (0 or 1).
func (o *Object) HasPower(word, bit int) bool {
	if word < 0 || word > 1 {
		return false
	}
	return o.Powers[word]&bit != 0
}

// SetPower sets or clears a power bit in the given power word (0 or 1).
func (o *Object) SetPower(word, bit int, set bool) {
	if word < 0 || word > 1 {
		return
	}
	if set {
		o.Powers[word] |= bit
	} else {
		o.Powers[word] &^= bit
	}
}

// Attribute flag constants
const (
	AFWizard   = 0x00000004 // Only wizards can change
	AFInternal = 0x00000010 // Don't show even to God
	AFGod      = 0x00000200 // Only God can change
	AFPrivate  = 0x00001000 // Not inherited by children
	AFConst    = 0x00020000 // No one can change (server-only)
	AFTrace    = 0x02000000 // Trace ufunction
)

// Attribute represents a single attribute on an object.
type Attribute struct {
	Number int
	Value  string
}

// AttrDef represents a user-defined attribute name definition.
type AttrDef struct {
	Number int
	Name   string
	Flags  int
}

// Object represents a MUSH database object.
type Object struct {
	DBRef      DBRef
	Name       string
	Location   DBRef
	Owner      DBRef
	Parent     DBRef
	Pennies    int
	Flags      [3]int
	Powers     [2]int
	CreateTime time.Time
	LastMod    time.Time
	Attrs      []Attribute
}

// ObjType returns the object type from the flags.
func (o *Object) ObjType() ObjectType {
	return ObjectType(o.Flags[0] & TypeMask)
}

// HasFlag checks if a flag bit is set in the first flag word.
func (o *Object) HasFlag(flag int) bool {
	return o.Flags[0]&flag != 0
}

// SetFlag sets or clears a flag bit in the first flag word.
func (o *Object) SetFlag(flag int, set bool) {
	if set {
		o.Flags[0] |= flag
	} else {
		o.Flags[0] &^= flag
	}
}

// IsGoing returns true if the object is marked for destruction.
func (o *Object) IsGoing() bool {
	return o.HasFlag(FlagGoing)
}

// Database holds the complete in-memory game state.
type Database struct {
	Version    int
	NextAttr   int
	Objects    map[DBRef]*Object
	AttrNames  map[int]*AttrDef    // attr number -> definition
	AttrByName map[string]*AttrDef // attr name -> definition
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		NextAttr:   UserAttrBase,
		Objects:    make(map[DBRef]*Object),
		AttrNames:  make(map[int]*AttrDef),
		AttrByName: make(map[string]*AttrDef),
	}
}

// AddAttrDef registers a user-defined attribute.
func (db *Database) AddAttrDef(num int, name string, flags int) *AttrDef {
	def := &AttrDef{Number: num, Name: name, Flags: flags}
	db.AttrNames[num] = def
	db.AttrByName[name] = def
	if num >= db.NextAttr {
		db.NextAttr = num + 1
	}
	return def
}

// GetAttrName returns the name for an attribute number, or "" if unknown.
func (db *Database) GetAttrName(num int) string {
	if def, ok := db.AttrNames[num]; ok {
		return def.Name
	}
	if name, ok := WellKnownAttrs[num]; ok {
		return name
	}
	return ""
}

// Size returns the number of object slots in use, the equivalent of db_top.
func (db *Database) Size() int {
	top := 0
	for ref := range db.Objects {
		if int(ref)+1 > top {
			top = int(ref) + 1
		}
	}
	return top
}

// Get returns the object for ref, or nil.
func (db *Database) Get(ref DBRef) *Object {
	return db.Objects[ref]
}

// Valid reports whether ref names an existing, non-garbage object.
func (db *Database) Valid(ref DBRef) bool {
	obj, ok := db.Objects[ref]
	return ok && obj.ObjType() != TypeGarbage
}

// Owner returns the owner of ref, or Nothing.
func (db *Database) Owner(ref DBRef) DBRef {
	if obj, ok := db.Objects[ref]; ok {
		return obj.Owner
	}
	return Nothing
}
