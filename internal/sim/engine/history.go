package engine

// History is a linear undo/redo stack of whole-world snapshots. Every commit
// pushes the pre-mutation snapshot and clears the future; there is no
// coalescing, one commit is one undo step.
type History struct {
	past   []Snapshot
	future []Snapshot
	max    int
}

func NewHistory(maxDepth int) *History {
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &History{max: maxDepth}
}

func (h *History) Push(pre Snapshot) {
	h.past = append(h.past, pre)
	if len(h.past) > h.max {
		h.past = h.past[len(h.past)-h.max:]
	}
	h.future = h.future[:0]
}

// Undo trades the current snapshot for the most recent past one. ok is false
// on an empty stack; that is a no-op, not a fault.
func (h *History) Undo(cur Snapshot) (Snapshot, bool) {
	if len(h.past) == 0 {
		return Snapshot{}, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, cur)
	return prev, true
}

func (h *History) Redo(cur Snapshot) (Snapshot, bool) {
	if len(h.future) == 0 {
		return Snapshot{}, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, cur)
	return next, true
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.future) > 0 }
