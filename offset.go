package gatesched

import (
	"fmt"
	"go.uber.org/zap"
)

// offsetResolver computes start offsets.  It sees the committed windows only through
// a GateReader, so resolving never changes the schedule.
type offsetResolver struct {
	topo          *Topology
	gates         GateReader
	ifgBits       int64
	maxIterations int
	cycle         Time
	logger        *zap.Logger
	metrics       *Metrics
	trace         *TraceManager
}

// resolve finds the start offset of the stream: beginning at zero, a packet released at the
// current guess is walked along the fragments; every hop where a committed window makes it
// wait pushes the guess forward by the wait, and the walk is repeated until one passes without
// waiting anywhere.  The result is written to sr.StartOffset.
func (or *offsetResolver) resolve(sr *StreamReservation) error {
	or.logger.Debug("computing start offset for stream reservation",
		zap.String("stream", sr.Name),
		zap.String("source", sr.Source.name),
		zap.String("destination", sr.Destination.name),
		zap.Int("priority", sr.Priority),
		zap.Int64("packetLength", sr.PacketLength),
		zap.Float64("datarate", sr.Datarate),
		zap.Stringer("gateCycleDuration", or.cycle))

	wk := &walker{topo: or.topo, stream: sr, ifgBits: or.ifgBits}
	probe := func(h hop, earliest Time) (Time, error) {
		return or.gates.Fit(h.intrfc, earliest, h.duration, h.gap), nil
	}

	var startOffset Time
	for iteration := 1; iteration <= or.maxIterations; iteration++ {
		shift, err := wk.walk(startOffset, probe, true)
		if err != nil {
			return err
		}
		if shift == 0 {
			or.logger.Debug("setting start offset for stream reservation",
				zap.String("stream", sr.Name),
				zap.Stringer("startOffset", startOffset),
				zap.Int("iterations", iteration))
			or.metrics.observeIterations(iteration)
			or.trace.addOffset(sr, startOffset, iteration)
			sr.StartOffset = startOffset
			return nil
		}
		startOffset += shift
	}

	or.metrics.observeIterations(or.maxIterations)
	return fmt.Errorf("%w: %s: still shifting (offset %v) after %d iterations",
		ErrNotConverged, sr.Name, startOffset, or.maxIterations)
}
