package queue

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func TestListingLines(t *testing.T) {
	s, w, _ := newTestScheduler(nil)
	const lockq = gamedb.UserAttrBase + 4
	submit(t, s, Request{Actor: wizard, Cause: bob, Command: "think hi", Args: []string{"a", "", "c"}})
	doomed := submit(t, s, Request{Actor: wizard, Command: "doomed"})
	submit(t, s, Request{Actor: wizard, Command: "w", Delay: 30 * time.Second})
	submit(t, s, Request{Actor: widget, Command: "s1", Wait: &SemWait{Obj: widget}})
	submit(t, s, Request{Actor: widget, Command: "s2", Wait: &SemWait{Obj: widget, Attr: lockq}})
	submit(t, s, Request{Actor: widget, Command: "s3", Wait: &SemWait{Obj: widget, Timeout: 15 * time.Second}})
	require.NoError(t, s.HaltHandle(doomed))

	attrName := func(n int) string {
		if n == lockq {
			return "LOCKQ"
		}
		return ""
	}
	all := s.List(gamedb.Nothing, gamedb.Nothing)

	tests := []struct {
		name       string
		detail     Detail
		seeDeleted bool
		want       []string
	}{
		{"brief", DetailBrief, true, []string{
			"----- Player Queue -----",
			"1:Wizard(#1):think hi",
			"----- Wait Queue -----",
			"[30] 3:Wizard(#1):w",
			"----- Semaphore Queue -----",
			"[#5] 4:Widget(#5):s1",
			"[#5/LOCKQ] 5:Widget(#5):s2",
			"[#5/15] 6:Widget(#5):s3",
			"Totals: Player...1/2[1del]  Object...0/0[0del]  Wait...1/1  Semaphore...3/3",
		}},
		{"summary", DetailSummary, false, []string{
			"Totals: Player...1/2  Object...0/0  Wait...1/1  Semaphore...3/3",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := all.Lines(tt.detail, w.name, attrName, tt.seeDeleted)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lines (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListingLong(t *testing.T) {
	s, w, _ := newTestScheduler(nil)
	submit(t, s, Request{Actor: wizard, Cause: bob, Command: "think %0", Args: []string{"a", "", "c"}})

	got := s.List(gamedb.Nothing, gamedb.Nothing).Lines(DetailLong, w.name, func(int) string { return "" }, false)
	want := []string{
		"----- Player Queue -----",
		"1:Wizard(#1):think %0",
		"   Enactor: Bob(#3); Arg0='a'; Arg2='c'",
		"Totals: Player...1/1  Object...0/0  Wait...0/0  Semaphore...0/0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lines (-want +got):\n%s", diff)
	}
}

func TestListFilters(t *testing.T) {
	s, _, _ := newTestScheduler(nil)
	submit(t, s, Request{Actor: wizard, Command: "a"})
	submit(t, s, Request{Actor: bob, Command: "b"})
	submit(t, s, Request{Actor: widget, Command: "c"})

	handles := func(l Listing) []int {
		var hs []int
		for _, sec := range l.Sections {
			for _, r := range sec.Rows {
				hs = append(hs, r.Handle)
			}
		}
		return hs
	}
	tests := []struct {
		name          string
		owner, object gamedb.DBRef
		want          []int
	}{
		{"everything", gamedb.Nothing, gamedb.Nothing, []int{1, 2, 3}},
		{"by owner", wizard, gamedb.Nothing, []int{1, 3}},
		{"by object", gamedb.Nothing, widget, []int{3}},
		{"both", bob, widget, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, handles(s.List(tt.owner, tt.object))); diff != "" {
				t.Errorf("handles (-want +got):\n%s", diff)
			}
		})
	}
}
