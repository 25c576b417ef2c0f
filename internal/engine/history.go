package engine

import "time"

type SnapshotAction string

const (
	BeforeBid  SnapshotAction = "BEFORE_BID"
	BeforeSold SnapshotAction = "BEFORE_SOLD"
	BeforeSkip SnapshotAction = "BEFORE_SKIP"
)

var snapshotActions = map[CommandType]SnapshotAction{
	CmdPlaceBid: BeforeBid,
	CmdSell:     BeforeSold,
	CmdSkip:     BeforeSkip,
}

func (a SnapshotAction) undoable() bool {
	switch a {
	case BeforeBid, BeforeSold, BeforeSkip:
		return true
	}
	return false
}

// SnapshotPayload is what the undo notice shows about the reverted action.
type SnapshotPayload struct {
	ItemID   int    `json:"itemId,omitempty"`
	ItemName string `json:"itemName,omitempty"`
	Team     int    `json:"team,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
}

// Snapshot is the state as it was right before Action. State is an owned
// copy.
type Snapshot struct {
	At      time.Time
	Action  SnapshotAction
	Payload SnapshotPayload
	State   State
}

// History is a bounded LIFO of snapshots; pushing past the depth evicts the
// oldest entry.
type History struct {
	depth   int
	entries []Snapshot
}

func NewHistory(depth int) *History {
	if depth < 1 {
		depth = 1
	}
	return &History{depth: depth}
}

func (h *History) Push(s Snapshot) {
	if len(h.entries) == h.depth {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, s)
}

func (h *History) Pop() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries[len(h.entries)-1] = Snapshot{}
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

func (h *History) Peek() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) Clear() {
	clear(h.entries)
	h.entries = h.entries[:0]
}
