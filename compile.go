package gatesched

// compile.go reduces the committed windows of each gate into the form a gate driver
// applies: whether the gate is open when the cycle starts, and the durations of the
// alternating open and closed phases that follow.

import (
	"fmt"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"strings"
)

// GateControlList is the cyclic schedule of one gate of one egress queue.  Durations
// alternate between phases, starting with an open phase if InitiallyOpen is set and a
// closed one otherwise; together they cover the cycle exactly once.  The exception is a
// gate that carries no windows: it stays closed for the whole cycle, InitiallyOpen is
// false and Durations is empty, so Total is 0 rather than the cycle duration.
type GateControlList struct {
	Node          string `json:"node" yaml:"node" csv:"node"`
	Interface     string `json:"interface" yaml:"interface" csv:"interface"`
	Gate          int    `json:"gate" yaml:"gate" csv:"gate"`
	InitiallyOpen bool   `json:"initiallyopen" yaml:"initiallyopen" csv:"initially_open"`
	Offset        Time   `json:"offset" yaml:"offset" csv:"offset_ps"`
	Durations     []Time `json:"durations" yaml:"durations" csv:"-"`
}

// DurationString prints the durations the way they are usually written in gate configurations, e.g. "[10us 50us 940us 0s]"
func (gcl *GateControlList) DurationString() string {
	parts := make([]string, 0, len(gcl.Durations))
	for _, d := range gcl.Durations {
		parts = append(parts, d.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Total returns the sum of the durations
func (gcl *GateControlList) Total() Time {
	var total Time
	for _, d := range gcl.Durations {
		total += d
	}
	return total
}

// OpenWindows rebuilds the open intervals the list describes, in time order.
// Zero-length phases produce no window.
func (gcl *GateControlList) OpenWindows() []GateWindow {
	windows := make([]GateWindow, 0)
	open := gcl.InitiallyOpen
	at := gcl.Offset
	for _, d := range gcl.Durations {
		if open && d > 0 {
			windows = append(windows, GateWindow{Priority: gcl.Gate, Open: at, Close: at + d})
		}
		at += d
		open = !open
	}
	return windows
}

// IsOpenAt tells whether the gate is open at time t of the cycle
func (gcl *GateControlList) IsOpenAt(t Time) bool {
	open := gcl.InitiallyOpen
	at := gcl.Offset
	for _, d := range gcl.Durations {
		if t < at+d {
			return open
		}
		at += d
		open = !open
	}
	return open
}

// compileGate builds the control list of gate index gate from the windows committed on its queue.
// Only windows whose priority equals the gate index belong to the gate.
func compileGate(intrfc *Intrfc, gate int, windows []GateWindow, cycle Time) (GateControlList, error) {
	gcl := GateControlList{Node: intrfc.DevName(), Interface: intrfc.Name(), Gate: gate, Durations: make([]Time, 0)}

	mine := make([]GateWindow, 0)
	for _, w := range windows {
		if w.Priority == gate {
			mine = append(mine, w)
		}
	}
	slices.SortFunc(mine, func(a, b GateWindow) int {
		switch {
		case a.Open < b.Open:
			return -1
		case a.Open > b.Open:
			return 1
		}
		return 0
	})

	var gateCloseTime Time
	for _, w := range mine {
		if w.Open == 0 {
			gcl.InitiallyOpen = true
		} else {
			gcl.Durations = append(gcl.Durations, w.Open-gateCloseTime)
		}
		gcl.Durations = append(gcl.Durations, w.Close-w.Open)
		gateCloseTime = w.Close
	}

	remainingDuration := cycle - gateCloseTime
	if remainingDuration < 0 {
		return gcl, fmt.Errorf("%w: gate %d of %s closes at %v, after cycle duration %v",
			ErrCapacity, gate, intrfc.FullName(), gateCloseTime, cycle)
	}
	if gateCloseTime != 0 {
		if remainingDuration != 0 {
			gcl.Durations = append(gcl.Durations, remainingDuration)
		}
		// an even count ends the cycle in the state it started in
		if len(gcl.Durations)%2 != 0 {
			gcl.Durations = append(gcl.Durations, 0)
		}
	}

	return gcl, nil
}

// compileSchedule builds the control list of every gate of every gated interface, in topology order
func compileSchedule(topo *Topology, state *GateState, logger *zap.Logger) ([]GateControlList, error) {
	gcls := make([]GateControlList, 0)
	for _, intrfc := range topo.intrfcs {
		if !intrfc.Gated() {
			continue
		}
		windows := state.WindowSet(intrfc).Windows()
		for gate := 0; gate < intrfc.gates; gate++ {
			gcl, err := compileGate(intrfc, gate, windows, state.cycle)
			if err != nil {
				return nil, err
			}
			logger.Debug("configuring gate scheduling parameters",
				zap.String("node", gcl.Node),
				zap.String("interface", gcl.Interface),
				zap.Int("gate", gate),
				zap.Bool("initiallyOpen", gcl.InitiallyOpen),
				zap.Stringer("offset", gcl.Offset),
				zap.String("durations", gcl.DurationString()))
			gcls = append(gcls, gcl)
		}
	}
	return gcls, nil
}
