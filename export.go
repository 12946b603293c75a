package gatesched

// export.go writes a computed Schedule out for the tools that apply or inspect it

import (
	"fmt"
	"github.com/gocarina/gocsv"
	"github.com/iti/evt/vrtime"
	"os"
)

// gateRow is the csv form of a GateControlList, one row per gate
type gateRow struct {
	Node          string `csv:"node"`
	Interface     string `csv:"interface"`
	Gate          int    `csv:"gate"`
	InitiallyOpen bool   `csv:"initially_open"`
	Offset        int64  `csv:"offset_ps"`
	Durations     string `csv:"durations"`
}

func (sched *Schedule) gateRows() []*gateRow {
	rows := make([]*gateRow, 0, len(sched.Gates))
	for idx := range sched.Gates {
		gcl := &sched.Gates[idx]
		rows = append(rows, &gateRow{Node: gcl.Node, Interface: gcl.Interface, Gate: gcl.Gate,
			InitiallyOpen: gcl.InitiallyOpen, Offset: int64(gcl.Offset), Durations: gcl.DurationString()})
	}
	return rows
}

// GateCSV renders the gate control lists as csv text with a header line
func (sched *Schedule) GateCSV() (string, error) {
	return gocsv.MarshalString(sched.gateRows())
}

// WriteGateCSV writes the gate control lists to the named csv file
func (sched *Schedule) WriteGateCSV(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.MarshalFile(sched.gateRows(), f); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return f.Close()
}

// WriteToFile serializes the Schedule to the named file, yaml or json by extension
func (sched *Schedule) WriteToFile(filename string) error {
	return writeDescFile(filename, *sched)
}

// ReadSchedule deserializes a Schedule written by WriteToFile.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.
func ReadSchedule(filename string, useYAML bool, dict []byte) (*Schedule, error) {
	example := Schedule{}
	if err := readDescFile(filename, useYAML, dict, &example); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", filename, err)
	}
	return &example, nil
}

// StartOffsets maps each stream name to its start offset in the virtual time of the
// iti simulators, for traffic generators there to release their packets on.  An offset
// that is not a whole number of vrtime ticks cannot be released on time, and is reported
// as an error; raise vrtime.TicksPerSecond to the resolution the schedule needs.
func (sched *Schedule) StartOffsets() (map[string]vrtime.Time, error) {
	offsets := make(map[string]vrtime.Time)
	errs := []error{}
	for _, so := range sched.Streams {
		vrt, exact := so.StartOffset.VrTime()
		if !exact {
			errs = append(errs, fmt.Errorf("%w: stream %s: start offset %v is not a whole number of ticks at %d ticks per second",
				ErrInconsistent, so.Stream, so.StartOffset, vrtime.TicksPerSecond))
			continue
		}
		offsets[so.Stream] = vrt
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}
	return offsets, nil
}

// GateControlList returns the list of gate index gate on the named interface of the named node
func (sched *Schedule) GateControlList(node, intrfc string, gate int) (*GateControlList, bool) {
	for idx := range sched.Gates {
		gcl := &sched.Gates[idx]
		if gcl.Node == node && gcl.Interface == intrfc && gcl.Gate == gate {
			return gcl, true
		}
	}
	return nil, false
}

// InterfaceWindows returns the windows committed on the named interface, empty if it has none
func (sched *Schedule) InterfaceWindows(node, intrfc string) []GateWindow {
	for _, iw := range sched.Windows {
		if iw.Node == node && iw.Interface == intrfc {
			return iw.Windows
		}
	}
	return []GateWindow{}
}
