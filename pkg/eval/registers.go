package eval

import (
	"strings"
	"sync/atomic"
)

// MaxGlobalRegs is the number of positional q-registers (%q0-%q9, %qa-%qz).
const MaxGlobalRegs = 36

// regVersion hands out versions. Every fresh or mutated RegisterData gets a
// new value, so two snapshots share a version only when one is an
// unmodified copy of the other.
var regVersion atomic.Uint64

func nextRegVersion() uint64 { return regVersion.Add(1) }

// XReg is a named register (%q<name>).
type XReg struct {
	Name  string
	Value string
}

// RegisterData holds the q-register state. Register values are Go strings
// and may carry any bytes, including NUL.
type RegisterData struct {
	QRegs   [MaxGlobalRegs]string
	QSet    [MaxGlobalRegs]bool
	XRegs   []XReg
	Version uint64
}

// NewRegisterData returns an empty register set with a fresh version.
func NewRegisterData() *RegisterData {
	return &RegisterData{Version: nextRegVersion()}
}

// Clone returns a deep copy carrying the same version. Cloning nil yields nil.
func (r *RegisterData) Clone() *RegisterData {
	if r == nil {
		return nil
	}
	nr := &RegisterData{
		QRegs:   r.QRegs,
		QSet:    r.QSet,
		Version: r.Version,
	}
	if len(r.XRegs) > 0 {
		nr.XRegs = make([]XReg, len(r.XRegs))
		copy(nr.XRegs, r.XRegs)
	}
	return nr
}

// Empty reports whether no register holds a value.
func (r *RegisterData) Empty() bool {
	if r == nil {
		return true
	}
	for _, set := range r.QSet {
		if set {
			return false
		}
	}
	return len(r.XRegs) == 0
}

// Get returns positional register i.
func (r *RegisterData) Get(i int) (string, bool) {
	if r == nil || i < 0 || i >= MaxGlobalRegs || !r.QSet[i] {
		return "", false
	}
	return r.QRegs[i], true
}

// Set stores positional register i and bumps the version.
func (r *RegisterData) Set(i int, value string) {
	if i < 0 || i >= MaxGlobalRegs {
		return
	}
	r.QRegs[i] = value
	r.QSet[i] = true
	r.Version = nextRegVersion()
}

// GetNamed returns the named register, matched case-insensitively.
func (r *RegisterData) GetNamed(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, x := range r.XRegs {
		if strings.EqualFold(x.Name, name) {
			return x.Value, true
		}
	}
	return "", false
}

// SetNamed stores a named register and bumps the version.
func (r *RegisterData) SetNamed(name, value string) {
	name = strings.ToLower(name)
	r.Version = nextRegVersion()
	for i := range r.XRegs {
		if r.XRegs[i].Name == name {
			r.XRegs[i].Value = value
			return
		}
	}
	r.XRegs = append(r.XRegs, XReg{Name: name, Value: value})
}

// RegisterStats counts snapshot traffic on a context.
type RegisterStats struct {
	Saves    int
	Restores int
	Skipped  int
}

// SaveRegisters returns a deep copy of the active registers, or nil when
// there are none.
func (ctx *EvalContext) SaveRegisters() *RegisterData {
	if ctx.RData == nil {
		return nil
	}
	ctx.RegStats.Saves++
	return ctx.RData.Clone()
}

// RestoreRegisters makes prior the active register set. When the active set
// still carries prior's version nothing changed since the save and the
// active set is kept as is.
func (ctx *EvalContext) RestoreRegisters(prior *RegisterData) {
	if prior != nil && ctx.RData != nil && prior.Version == ctx.RData.Version {
		ctx.RegStats.Skipped++
		return
	}
	ctx.RegStats.Restores++
	ctx.RData = prior
}

// qidxChar maps a register name character to its positional index.
func qidxChar(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'z':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10
	}
	return -1
}
