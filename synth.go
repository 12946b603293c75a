package gatesched

// synth.go generates synthetic stream configurations over a topology, for exercising
// the scheduler on loads nobody wrote by hand

import (
	"fmt"
	"github.com/iti/rngstream"
)

// synthetic packets are Ethernet frames between these sizes, in bytes
const (
	minFrameBytes = 64
	maxFrameBytes = 1522
)

// SynthParams bound the streams GenerateStreamCfg draws
type SynthParams struct {
	Name          string
	Streams       int     // number of stream requests
	CycleDuration float64 // seconds
	MaxDivisor    int     // packet intervals are CycleDuration/d for d in 1..MaxDivisor
}

// uniformInt draws an integer in [lo, hi] from the stream
func uniformInt(rng *rngstream.RngStream, lo, hi int) int {
	span := hi - lo + 1
	k := int(rng.RandU01() * float64(span))
	if k >= span {
		k = span - 1
	}
	return lo + k
}

// GenerateStreamCfg draws a stream configuration for the topology.  Sources and destinations are
// host nodes (any nodes, if there are fewer than two hosts) that have a route between them;
// priorities stay below the smallest gate count of any gated interface; packet intervals
// divide the cycle, so the result always passes Validate.  Draws come from rng, so a
// stream created afresh under the same name gives the same configuration.
func GenerateStreamCfg(topo *Topology, params SynthParams, rng *rngstream.RngStream) (*StreamCfg, error) {
	if topo == nil || len(topo.nodes) == 0 {
		return nil, ErrEmptyTopology
	}
	if params.CycleDuration <= 0 {
		return nil, fmt.Errorf("%w: cycle duration %v", ErrInconsistent, params.CycleDuration)
	}
	if params.MaxDivisor < 1 {
		params.MaxDivisor = 1
	}

	endpts := make([]*Node, 0)
	for _, node := range topo.nodes {
		if node.devType == hostCode {
			endpts = append(endpts, node)
		}
	}
	if len(endpts) < 2 {
		endpts = topo.nodes
	}
	if len(endpts) < 2 {
		return nil, fmt.Errorf("%w: %d candidate endpoints, at least 2 needed", ErrInconsistent, len(endpts))
	}

	// the pairs a stream can run between
	type pair struct{ src, dst *Node }
	pairs := make([]pair, 0)
	for _, src := range endpts {
		for _, dst := range endpts {
			if src == dst {
				continue
			}
			if _, ok := topo.Route(src.name, dst.name); ok {
				pairs = append(pairs, pair{src: src, dst: dst})
			}
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no two endpoints are connected", ErrInconsistent)
	}

	priorities := 0
	for _, intrfc := range topo.intrfcs {
		if intrfc.Gated() && (priorities == 0 || intrfc.gates < priorities) {
			priorities = intrfc.gates
		}
	}
	if priorities == 0 {
		priorities = 1
	}

	cycle := SecondsToTime(params.CycleDuration)
	sc := CreateStreamCfg(params.Name, params.CycleDuration)
	for idx := 0; idx < params.Streams; idx++ {
		p := pairs[uniformInt(rng, 0, len(pairs)-1)]

		// keep the interval an exact divisor of the cycle in picoseconds
		divisor := uniformInt(rng, 1, params.MaxDivisor)
		for cycle%Time(divisor) != 0 {
			divisor -= 1
		}
		interval := cycle / Time(divisor)

		sc.AddStream(StreamDesc{
			Name:           fmt.Sprintf("synth-%d", idx),
			Source:         p.src.name,
			Destination:    p.dst.name,
			Priority:       uniformInt(rng, 0, priorities-1),
			PacketLength:   8 * int64(uniformInt(rng, minFrameBytes, maxFrameBytes)),
			PacketInterval: interval.Seconds(),
			MaxLatency:     interval.Seconds(),
		})
	}

	return sc, nil
}
