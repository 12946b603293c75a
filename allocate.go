package gatesched

import (
	"fmt"
	"go.uber.org/zap"
)

// gateAllocator commits the transmission windows of resolved streams.  It is the
// only writer of the GateState.
type gateAllocator struct {
	topo    *Topology
	state   *GateState
	ifgBits int64
	logger  *zap.Logger
	metrics *Metrics
	trace   *TraceManager
}

// addGateScheduling commits the windows of the packets with indices startIndex up to,
// but excluding, endIndex.  Packet i is released at StartOffset + i*PacketInterval.
func (ga *gateAllocator) addGateScheduling(sr *StreamReservation, startIndex, endIndex int) error {
	if sr.StartOffset == Unresolved {
		panic(fmt.Sprintf("allocating windows for stream %s before its start offset is resolved", sr.Name))
	}

	ga.logger.Debug("allocating gate scheduling for stream reservation",
		zap.String("stream", sr.Name),
		zap.Int("priority", sr.Priority),
		zap.Int64("packetLength", sr.PacketLength),
		zap.Stringer("startOffset", sr.StartOffset),
		zap.Int("startIndex", startIndex),
		zap.Int("endIndex", endIndex))

	wk := &walker{topo: ga.topo, stream: sr, ifgBits: ga.ifgBits}
	for index := startIndex; index < endIndex; index++ {
		startTime := sr.StartOffset + Time(index)*sr.PacketInterval
		if _, err := wk.walk(startTime, ga.placeFor(sr, index), false); err != nil {
			return err
		}
	}
	return nil
}

// placeFor returns the placeFunc that commits the window of packet index of the stream at
// the earliest free position of the queue
func (ga *gateAllocator) placeFor(sr *StreamReservation, index int) placeFunc {
	return func(h hop, earliest Time) (Time, error) {
		open := ga.state.Fit(h.intrfc, earliest, h.duration, h.gap)
		w := GateWindow{Priority: sr.Priority, Open: open, Close: open + h.duration, Stream: sr.Name}

		ga.logger.Debug("extending gate scheduling for stream reservation",
			zap.String("stream", sr.Name),
			zap.String("node", h.node.name),
			zap.String("interface", h.intrfc.name),
			zap.Int("index", index),
			zap.Float64("interfaceDatarate", h.intrfc.datarate),
			zap.Stringer("gateOpenTime", w.Open),
			zap.Stringer("gateCloseTime", w.Close),
			zap.Stringer("extraDelay", open-earliest))

		if err := ga.state.commit(h.intrfc, w); err != nil {
			return 0, err
		}
		ga.metrics.windowCommitted()
		ga.trace.addWindow(h.intrfc, w, index)
		return open, nil
	}
}
