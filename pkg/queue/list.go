package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

// Detail is the @ps verbosity level.
type Detail int

const (
	DetailBrief Detail = iota
	DetailLong
	DetailSummary
)

// Row is a snapshot of one listed entry.
type Row struct {
	Handle  int
	Actor   gamedb.DBRef
	Cause   gamedb.DBRef
	Sem     gamedb.DBRef
	Attr    int
	Left    time.Duration // time until due, zero when untimed
	Timed   bool
	Command string
	Args    []string
}

// Section is one queue's part of a listing.
type Section struct {
	Kind    Kind
	Rows    []Row
	Total   int // entries on the queue
	Deleted int // halted entries still awaiting reaping
}

// Listing is a filtered snapshot of all four queues.
type Listing struct {
	Sections [4]Section
}

// List snapshots the queues, keeping entries whose actor is owned by
// owner and/or is object. Either filter may be gamedb.Nothing.
func (s *Scheduler) List(owner, object gamedb.DBRef) Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Clock()

	var out Listing
	for i, l := range []*list{&s.player, &s.object, &s.wait, &s.sem} {
		sec := &out.Sections[i]
		sec.Kind = l.kind
		for e := l.head; e != nil; e = e.next {
			sec.Total++
			if !s.wants(e, owner, object) {
				if e.Halted() {
					sec.Deleted++
				}
				continue
			}
			r := Row{
				Handle:  e.Handle,
				Actor:   e.Actor,
				Cause:   e.Cause,
				Sem:     e.Sem,
				Attr:    e.Attr,
				Command: e.Command,
				Args:    append([]string(nil), e.Args...),
			}
			if !e.Due.IsZero() {
				r.Timed = true
				r.Left = e.Due.Sub(now)
			}
			sec.Rows = append(sec.Rows, r)
		}
	}
	return out
}

// Lines renders the listing the way @ps prints it. name renders an
// object reference and attrName an attribute number; seeDeleted adds
// halted counts to the totals line.
func (l Listing) Lines(detail Detail, name func(gamedb.DBRef) string, attrName func(int) string, seeDeleted bool) []string {
	var lines []string
	if detail != DetailSummary {
		for _, sec := range l.Sections {
			if len(sec.Rows) > 0 {
				lines = append(lines, fmt.Sprintf("----- %s Queue -----", sec.Kind))
			}
			for _, r := range sec.Rows {
				lines = append(lines, r.line(name, attrName))
				if detail == DetailLong {
					lines = append(lines, fmt.Sprintf("   Enactor: %s%s", name(r.Cause), r.argText()))
				}
			}
		}
	}

	p, o, w, sm := l.Sections[0], l.Sections[1], l.Sections[2], l.Sections[3]
	if seeDeleted {
		lines = append(lines, fmt.Sprintf("Totals: Player...%d/%d[%ddel]  Object...%d/%d[%ddel]  Wait...%d/%d  Semaphore...%d/%d",
			len(p.Rows), p.Total, p.Deleted, len(o.Rows), o.Total, o.Deleted, len(w.Rows), w.Total, len(sm.Rows), sm.Total))
	} else {
		lines = append(lines, fmt.Sprintf("Totals: Player...%d/%d  Object...%d/%d  Wait...%d/%d  Semaphore...%d/%d",
			len(p.Rows), p.Total, len(o.Rows), o.Total, len(w.Rows), w.Total, len(sm.Rows), sm.Total))
	}
	return lines
}

func (r Row) line(name func(gamedb.DBRef) string, attrName func(int) string) string {
	secs := int64(r.Left / time.Second)
	who := name(r.Actor)
	switch {
	case r.Timed && r.Sem != gamedb.Nothing:
		return fmt.Sprintf("[#%d/%d] %d:%s:%s", r.Sem, secs, r.Handle, who, r.Command)
	case r.Timed:
		return fmt.Sprintf("[%d] %d:%s:%s", secs, r.Handle, who, r.Command)
	case r.Sem != gamedb.Nothing:
		if r.Attr != gamedb.AttrSemaphore {
			if an := attrName(r.Attr); an != "" {
				return fmt.Sprintf("[#%d/%s] %d:%s:%s", r.Sem, an, r.Handle, who, r.Command)
			}
		}
		return fmt.Sprintf("[#%d] %d:%s:%s", r.Sem, r.Handle, who, r.Command)
	}
	return fmt.Sprintf("%d:%s:%s", r.Handle, who, r.Command)
}

func (r Row) argText() string {
	var b strings.Builder
	for i, a := range r.Args {
		if a == "" {
			continue
		}
		fmt.Fprintf(&b, "; Arg%d='%s'", i, a)
	}
	return b.String()
}
