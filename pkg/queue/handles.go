package queue

// handleTable hands out small integer handles in [1, max], probing
// forward from the last one issued and wrapping around.
type handleTable struct {
	max  int
	next int
	byID map[int]*Entry
}

func newHandleTable(max int) handleTable {
	return handleTable{max: max, next: 1, byID: make(map[int]*Entry)}
}

func (h *handleTable) alloc(e *Entry) bool {
	for range h.max {
		id := h.next
		h.next++
		if h.next > h.max {
			h.next = 1
		}
		if _, used := h.byID[id]; !used {
			h.byID[id] = e
			e.Handle = id
			return true
		}
	}
	return false
}

func (h *handleTable) free(e *Entry) {
	invariant(h.byID[e.Handle] == e, "handle %d does not belong to the entry being freed", e.Handle)
	delete(h.byID, e.Handle)
}

func (h *handleTable) get(id int) *Entry {
	return h.byID[id]
}

func (h *handleTable) inUse() int {
	return len(h.byID)
}

// resize changes the handle space. Live handles above the new maximum
// stay valid until their entries are freed.
func (h *handleTable) resize(max int) {
	h.max = max
	if h.next > max {
		h.next = 1
	}
}
