package gatesched

import (
	"fmt"
	"golang.org/x/exp/slices"
)

// GateWindow is a reserved interval [Open, Close) of the cycle during which the
// gate with index Priority is open on an egress queue
type GateWindow struct {
	Priority int    `json:"priority" yaml:"priority"`
	Open     Time   `json:"open" yaml:"open"`
	Close    Time   `json:"close" yaml:"close"`
	Stream   string `json:"stream" yaml:"stream"` // stream the window carries, informational
}

// overlaps tells whether the window and [open, end) come closer than gap to each other
func (w GateWindow) overlaps(open, end, gap Time) bool {
	return !(w.Close+gap <= open || end+gap <= w.Open)
}

// GateWindowSet is the list of windows committed on one egress queue, in commit order
type GateWindowSet struct {
	windows []GateWindow
}

// Len returns the number of committed windows
func (gws *GateWindowSet) Len() int {
	if gws == nil {
		return 0
	}
	return len(gws.windows)
}

// Windows returns a copy of the committed windows, in commit order
func (gws *GateWindowSet) Windows() []GateWindow {
	if gws == nil {
		return nil
	}
	return slices.Clone(gws.windows)
}

// fit returns the earliest time, not before open, at which a window of the given duration
// keeps at least gap away from every committed window.  On a conflict the candidate moves to
// just after the conflicting window and the scan starts over, because the move may have
// created a conflict with a window already passed.  Every move is strictly forward, so the
// scan ends.
func (gws *GateWindowSet) fit(open, duration, gap Time) Time {
	if gws == nil {
		return open
	}
	end := open + duration
	for idx := 0; idx < len(gws.windows); idx++ {
		w := gws.windows[idx]
		if !w.overlaps(open, end, gap) {
			continue
		}
		open = w.Close + gap
		end = open + duration
		idx = -1
	}
	return open
}

// GateReader is the read-only view of committed windows.  The start offset resolver
// only ever holds one, so it can probe but cannot commit.
type GateReader interface {
	// Fit returns the earliest time, not before open, at which a window of the given
	// duration fits on the egress queue of intrfc with gap to spare on both sides
	Fit(intrfc *Intrfc, open, duration, gap Time) Time
}

// GateState owns the window sets of every gated interface during a run.  The allocator
// is its only writer.
type GateState struct {
	cycle Time
	sets  map[*Intrfc]*GateWindowSet
}

// CreateGateState is a constructor for an empty state over a cycle of the given length
func CreateGateState(cycle Time) *GateState {
	return &GateState{cycle: cycle, sets: make(map[*Intrfc]*GateWindowSet)}
}

// Fit implements GateReader
func (gs *GateState) Fit(intrfc *Intrfc, open, duration, gap Time) Time {
	return gs.sets[intrfc].fit(open, duration, gap)
}

// WindowSet returns the windows committed on intrfc, nil if there are none
func (gs *GateState) WindowSet(intrfc *Intrfc) *GateWindowSet {
	return gs.sets[intrfc]
}

// commit adds a window to the queue of intrfc.  A window that would close after the
// end of the cycle means the load does not fit and fails the run.
func (gs *GateState) commit(intrfc *Intrfc, w GateWindow) error {
	if w.Close > gs.cycle {
		return fmt.Errorf("%w: window [%v, %v) of %s on %s ends after cycle duration %v",
			ErrCapacity, w.Open, w.Close, w.Stream, intrfc.FullName(), gs.cycle)
	}
	gws, present := gs.sets[intrfc]
	if !present {
		gws = &GateWindowSet{windows: make([]GateWindow, 0)}
		gs.sets[intrfc] = gws
	}
	gws.windows = append(gws.windows, w)
	return nil
}
