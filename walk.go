package gatesched

// walk.go follows one packet of a stream along its path fragments, hop by hop.
// Both the start offset resolver and the window allocator use it; they differ only
// in what they do when the packet reaches a gated egress queue.

import (
	"fmt"
	"golang.org/x/exp/slices"
)

// hop describes the transmission of one packet out of an egress interface
type hop struct {
	node     *Node
	intrfc   *Intrfc
	duration Time // time to serialize the packet at the interface datarate
	gap      Time // interframe guard kept free on both sides of the window
}

// pendingWalk is a point where the walk of the fragment tree continues: the node
// reached, the earliest time the packet can leave it, and the nodes already passed.
// Each branch holds its own copy of visited.
type pendingWalk struct {
	node    string
	at      Time
	visited []string
}

// placeFunc chooses the open time of the window for a gated hop, given the earliest
// time the packet is ready to leave
type placeFunc func(h hop, earliest Time) (Time, error)

// walker holds what is fixed while walking one stream
type walker struct {
	topo    *Topology
	stream  *StreamReservation
	ifgBits int64
}

// hopFor builds the hop from the named node towards next
func (wk *walker) hopFor(nodeName, next string) (hop, error) {
	node := wk.topo.nodeByName[nodeName]
	if node == nil {
		return hop{}, fmt.Errorf("%w: %s: unknown node %s", ErrUnresolvable, wk.stream.Name, nodeName)
	}
	intrfc := node.linkOut(next)
	if intrfc == nil {
		return hop{}, fmt.Errorf("%w: %s: no link from %s to %s", ErrUnresolvable, wk.stream.Name, nodeName, next)
	}
	if intrfc.datarate <= 0 {
		return hop{}, fmt.Errorf("%w: %s: interface %s has no transmission channel",
			ErrUnresolvable, wk.stream.Name, intrfc.FullName())
	}
	if intrfc.Gated() && wk.stream.Priority >= intrfc.gates {
		return hop{}, fmt.Errorf("%w: %s: interface %s has %d gates, none for priority %d",
			ErrUnresolvable, wk.stream.Name, intrfc.FullName(), intrfc.gates, wk.stream.Priority)
	}

	return hop{
		node:     node,
		intrfc:   intrfc,
		duration: bitTime(wk.stream.PacketLength, intrfc.datarate),
		gap:      bitTime(wk.ifgBits, intrfc.datarate),
	}, nil
}

// walk sends one packet, released at start by the source, through every path fragment.
// Fragments are entered breadth first from the source and from the ends of fragments already
// walked.  At a gated hop place decides the window; the packet then leaves the next node no
// earlier than the window closes plus the link latency.
//
// When stopOnDelay is set, a hop whose window could not open at the moment the packet was
// ready ends the walk of that fragment, and the delay is added to the returned shift.
func (wk *walker) walk(start Time, place placeFunc, stopOnDelay bool) (Time, error) {
	var shift Time
	dst := wk.stream.Destination.name
	todos := []pendingWalk{{node: wk.stream.Source.name, at: start}}

	for len(todos) > 0 {
		todo := todos[0]
		todos = todos[1:]

		for _, fragment := range wk.stream.PathFragments {
			if fragment[0] != todo.node {
				continue
			}

			nextGateOpenTime := todo.at
			visited := slices.Clone(todo.visited)
			delayed := false
			for idx := 0; idx < len(fragment)-1; idx++ {
				visited = append(visited, fragment[idx])
				h, err := wk.hopFor(fragment[idx], fragment[idx+1])
				if err != nil {
					return 0, err
				}

				if !h.intrfc.Gated() {
					nextGateOpenTime += h.duration + h.intrfc.latency
					continue
				}

				open, err := place(h, nextGateOpenTime)
				if err != nil {
					return 0, err
				}
				if delay := open - nextGateOpenTime; delay != 0 && stopOnDelay {
					shift += delay
					delayed = true
					break
				}
				nextGateOpenTime = open + h.duration + h.intrfc.latency
			}
			if delayed {
				continue
			}

			// the fragment ends where the tree branches on, unless it is the destination or a loop
			end := fragment[len(fragment)-1]
			if end != dst && !slices.Contains(visited, end) {
				todos = append(todos, pendingWalk{node: end, at: nextGateOpenTime, visited: visited})
			}
		}
	}

	return shift, nil
}
