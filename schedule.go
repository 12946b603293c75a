package gatesched

// schedule.go ties the stages of a run together: the stream reservations are built,
// every stream's start offset is resolved and its first packet committed, the remaining
// packets of every stream are committed, and the windows are compiled into gate control lists.

import (
	"fmt"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"time"
)

const (
	// DefaultInterFrameGapBits is the Ethernet interframe gap, used as the guard between windows
	DefaultInterFrameGapBits int64 = 96

	// DefaultMaxOffsetIterations bounds the start offset search of a single stream
	DefaultMaxOffsetIterations = 1000
)

// Options tune a scheduling run. The zero value selects the defaults.
type Options struct {
	// guard gap between windows of one queue, in bit times of the queue's interface
	InterFrameGapBits int64

	// number of walks the start offset search of one stream may take before the run fails
	MaxOffsetIterations int

	Logger  *zap.Logger
	Trace   *TraceManager
	Metrics *Metrics
}

// withDefaults returns a copy of the options with empty fields filled in
func (opts Options) withDefaults() Options {
	if opts.InterFrameGapBits <= 0 {
		opts.InterFrameGapBits = DefaultInterFrameGapBits
	}
	if opts.MaxOffsetIterations <= 0 {
		opts.MaxOffsetIterations = DefaultMaxOffsetIterations
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

// StreamOffset reports the outcome of a run for one stream reservation
type StreamOffset struct {
	Stream      string `json:"stream" yaml:"stream"`
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Priority    int    `json:"priority" yaml:"priority"`
	StartOffset Time   `json:"startoffset" yaml:"startoffset"`
	Instances   int    `json:"instances" yaml:"instances"` // packets per cycle
}

// InterfaceWindows lists the windows committed on one gated interface, in commit order
type InterfaceWindows struct {
	Node      string       `json:"node" yaml:"node"`
	Interface string       `json:"interface" yaml:"interface"`
	Windows   []GateWindow `json:"windows" yaml:"windows"`
}

// Schedule is the result of a successful run
type Schedule struct {
	Name          string             `json:"name" yaml:"name"`
	CycleDuration Time               `json:"cycleduration" yaml:"cycleduration"`
	Streams       []StreamOffset     `json:"streams" yaml:"streams"`
	Windows       []InterfaceWindows `json:"windows" yaml:"windows"`
	Gates         []GateControlList  `json:"gates" yaml:"gates"`
}

// Run computes the gate schedule of the streams requested by sc over topo.  Every run starts
// from empty window lists, so calling Run again after the configuration changed recomputes
// the schedule from scratch.  Any error aborts the whole run; no partial schedule is returned.
func Run(topo *Topology, sc *StreamCfg, opts Options) (sched *Schedule, err error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	begin := time.Now()
	defer func() {
		opts.Metrics.runFinished(err, time.Since(begin))
	}()

	if topo == nil || len(topo.nodes) == 0 {
		return nil, ErrEmptyTopology
	}
	if sc == nil {
		return nil, fmt.Errorf("%w: no stream configuration", ErrInconsistent)
	}

	opts.Trace.Clear()
	reservations, err := BuildStreamReservations(topo, sc, logger)
	if err != nil {
		return nil, err
	}

	// lower priority values are scheduled first; equal priorities keep configuration order
	slices.SortStableFunc(reservations, func(a, b *StreamReservation) int {
		return a.Priority - b.Priority
	})

	cycle := SecondsToTime(sc.CycleDuration)
	state := CreateGateState(cycle)
	opts.Trace.addNames(topo, reservations)

	resolver := &offsetResolver{topo: topo, gates: state, ifgBits: opts.InterFrameGapBits,
		maxIterations: opts.MaxOffsetIterations, cycle: cycle, logger: logger,
		metrics: opts.Metrics, trace: opts.Trace}
	allocator := &gateAllocator{topo: topo, state: state, ifgBits: opts.InterFrameGapBits,
		logger: logger, metrics: opts.Metrics, trace: opts.Trace}

	// first pass: each stream's offset is resolved against the first packets of the streams
	// before it, and its own first packet is committed
	for _, sr := range reservations {
		if err := resolver.resolve(sr); err != nil {
			return nil, err
		}
		if err := allocator.addGateScheduling(sr, 0, 1); err != nil {
			return nil, err
		}
	}

	// second pass: the remaining packets of every stream
	for _, sr := range reservations {
		count := sr.instances(cycle)
		if Time(count)*sr.PacketInterval != cycle {
			return nil, fmt.Errorf("%w: %s: packet interval %v does not divide cycle duration %v",
				ErrInconsistent, sr.Name, sr.PacketInterval, cycle)
		}
		if err := allocator.addGateScheduling(sr, 1, count); err != nil {
			return nil, err
		}
	}

	gates, err := compileSchedule(topo, state, logger)
	if err != nil {
		return nil, err
	}

	sched = &Schedule{Name: sc.Name, CycleDuration: cycle, Gates: gates,
		Streams: make([]StreamOffset, 0, len(reservations)), Windows: make([]InterfaceWindows, 0)}
	for _, sr := range reservations {
		sched.Streams = append(sched.Streams, StreamOffset{Stream: sr.Name, Source: sr.Source.name,
			Destination: sr.Destination.name, Priority: sr.Priority, StartOffset: sr.StartOffset,
			Instances: sr.instances(cycle)})
	}
	for _, intrfc := range topo.intrfcs {
		if gws := state.WindowSet(intrfc); gws.Len() > 0 {
			sched.Windows = append(sched.Windows, InterfaceWindows{Node: intrfc.DevName(),
				Interface: intrfc.Name(), Windows: gws.Windows()})
		}
	}
	opts.Metrics.streamsScheduled(len(reservations))

	logger.Info("gate scheduling computed",
		zap.String("name", sched.Name),
		zap.Int("streams", len(sched.Streams)),
		zap.Int("gates", len(sched.Gates)),
		zap.Stringer("cycleDuration", cycle),
		zap.Duration("elapsed", time.Since(begin)))

	return sched, nil
}

// BuildSchedule is called from programs that keep their inputs in files.  syn binds the
// keys "topo" and "streams" to the names of a topology and a stream configuration file;
// yaml or json is chosen by each file's extension.
func BuildSchedule(syn map[string]string, opts Options) (*Schedule, error) {
	var empty []byte

	tc, terr := ReadTopoCfg(syn["topo"], UseYAMLFor(syn["topo"]), empty)
	sc, serr := ReadStreamCfg(syn["streams"], UseYAMLFor(syn["streams"]), empty)
	if err := ReportErrs([]error{terr, serr}); err != nil {
		return nil, err
	}

	topo, err := CreateTopology(tc)
	if err != nil {
		return nil, err
	}

	return Run(topo, sc, opts)
}
