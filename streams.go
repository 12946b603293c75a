package gatesched

// streams.go turns the stream configuration list into stream reservations:
// concrete (source, destination) pairs with their path fragments resolved against the topology

import (
	"fmt"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"path"
)

// StreamReservation is a periodic stream from one node to another whose packets are
// given reserved transmission windows on every gated egress interface they cross
type StreamReservation struct {
	Name           string
	Source         *Node
	Destination    *Node
	Priority       int
	PacketLength   int64   // bits
	PacketInterval Time    // period between packet releases
	MaxLatency     Time    // advisory
	Datarate       float64 // bits per second, PacketLength / PacketInterval

	// PathFragments are sequences of node names.  Together they form a tree rooted at
	// Source; a fragment is entered when the walk arrives at its first node.
	PathFragments [][]string

	// StartOffset is the cycle-relative release time of the stream's first packet,
	// Unresolved until the resolver has computed it
	StartOffset Time
}

// instances returns the number of packets the stream releases in one cycle
func (sr *StreamReservation) instances(cycle Time) int {
	return int(cycle / sr.PacketInterval)
}

// BuildStreamReservations makes one StreamReservation for every stream request and every
// pair of distinct nodes matched by its source and destination patterns.  The reservations
// are ordered by source node, then destination node, then position in the configuration list.
// A request that matches no pair contributes nothing.
func BuildStreamReservations(topo *Topology, sc *StreamCfg, logger *zap.Logger) ([]*StreamReservation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	// a request matching a single pair keeps its name, otherwise the pair is appended
	pairCount := make([]int, len(sc.Streams))
	for _, src := range topo.nodes {
		for _, dst := range topo.nodes {
			for k := range sc.Streams {
				if matchPair(&sc.Streams[k], src, dst) {
					pairCount[k] += 1
				}
			}
		}
	}

	reservations := make([]*StreamReservation, 0)
	errs := []error{}
	for _, src := range topo.nodes {
		for _, dst := range topo.nodes {
			for k := range sc.Streams {
				sd := &sc.Streams[k]
				if !matchPair(sd, src, dst) {
					continue
				}
				name := sd.Name
				if len(name) == 0 {
					name = fmt.Sprintf("streams[%d]", k)
				}
				if pairCount[k] > 1 {
					name = fmt.Sprintf("%s(%s->%s)", name, src.name, dst.name)
				}

				sr := &StreamReservation{
					Name:           name,
					Source:         src,
					Destination:    dst,
					Priority:       sd.Priority,
					PacketLength:   sd.PacketLength,
					PacketInterval: SecondsToTime(sd.PacketInterval),
					MaxLatency:     SecondsToTime(sd.MaxLatency),
					Datarate:       float64(sd.PacketLength) / sd.PacketInterval,
					StartOffset:    Unresolved,
				}

				if len(sd.PathFragments) > 0 {
					for _, fragment := range sd.PathFragments {
						sr.PathFragments = append(sr.PathFragments, slices.Clone(fragment))
					}
				} else {
					route, ok := topo.Route(src.name, dst.name)
					if !ok {
						errs = append(errs, fmt.Errorf("%w: %s: no path from %s to %s",
							ErrInconsistent, name, src.name, dst.name))
						continue
					}
					sr.PathFragments = [][]string{route}
				}

				if err := checkFragments(topo, sr); err != nil {
					errs = append(errs, err)
					continue
				}

				logger.Debug("adding stream reservation from configuration",
					zap.String("stream", sr.Name),
					zap.String("source", src.name),
					zap.String("destination", dst.name),
					zap.Int("priority", sr.Priority),
					zap.Int64("packetLength", sr.PacketLength),
					zap.Stringer("packetInterval", sr.PacketInterval),
					zap.Float64("datarate", sr.Datarate),
					zap.Stringer("maxLatency", sr.MaxLatency))
				reservations = append(reservations, sr)
			}
		}
	}

	if err := ReportErrs(errs); err != nil {
		return nil, err
	}
	return reservations, nil
}

// matchPair tells whether the request applies to the (src, dst) pair.  The patterns
// have been validated already, so match errors cannot occur here.
func matchPair(sd *StreamDesc, src, dst *Node) bool {
	if src == dst {
		return false
	}
	srcMatch, _ := path.Match(sd.Source, src.name)
	dstMatch, _ := path.Match(sd.Destination, dst.name)
	return srcMatch && dstMatch
}

// checkFragments verifies that every node a fragment names exists, that consecutive nodes
// are linked, and that the fragments form a tree that is entered from the source and
// reaches the destination.
func checkFragments(topo *Topology, sr *StreamReservation) error {
	for _, fragment := range sr.PathFragments {
		for idx, name := range fragment {
			node := topo.nodeByName[name]
			if node == nil {
				return fmt.Errorf("%w: %s: path names unknown node %s", ErrUnresolvable, sr.Name, name)
			}
			if idx+1 < len(fragment) && node.linkOut(fragment[idx+1]) == nil {
				return fmt.Errorf("%w: %s: no link from %s to %s", ErrUnresolvable, sr.Name, name, fragment[idx+1])
			}
		}
	}

	// a fragment is entered at its head, which must be the source or the end of a fragment already entered
	reached := []string{sr.Source.name}
	entered := make([]bool, len(sr.PathFragments))
	for progress := true; progress; {
		progress = false
		for idx, fragment := range sr.PathFragments {
			if entered[idx] || !slices.Contains(reached, fragment[0]) {
				continue
			}
			entered[idx] = true
			progress = true
			if end := fragment[len(fragment)-1]; !slices.Contains(reached, end) {
				reached = append(reached, end)
			}
		}
	}

	for idx, fragment := range sr.PathFragments {
		if !entered[idx] {
			return fmt.Errorf("%w: %s: path fragment starting at %s cannot be reached from %s",
				ErrInconsistent, sr.Name, fragment[0], sr.Source.name)
		}
	}
	if !slices.Contains(reached, sr.Destination.name) {
		return fmt.Errorf("%w: %s: path fragments do not lead to %s", ErrInconsistent, sr.Name, sr.Destination.name)
	}
	return nil
}
