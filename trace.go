package gatesched

import (
	"encoding/json"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"strconv"
)

type TraceRecordType int

const (
	OffsetType TraceRecordType = iota
	WindowType
)

var trtToStr map[TraceRecordType]string = map[TraceRecordType]string{OffsetType: "offset", WindowType: "window"}

type TraceInst struct {
	TraceTime string `json:"tracetime" yaml:"tracetime"`
	TraceType string `json:"tracetype" yaml:"tracetype"`
	TraceStr  string `json:"tracestr" yaml:"tracestr"`
}

// NameType is an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers a record of every start offset resolved and every window
// committed during a scheduling run.  Run clears it before scheduling, so after a run
// it holds the records of that run only.  A nil or inactive TraceManager records nothing.
type TraceManager struct {
	// run uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records, by the id of the interface or stream they concern
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`

	idByName map[string]int
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	tm.idByName = make(map[string]int)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// Clear drops the records and names gathered so far
func (tm *TraceManager) Clear() {
	if tm == nil {
		return
	}
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	tm.idByName = make(map[string]int)
}

// AddTrace stores a trace record under the object id given
func (tm *TraceManager) AddTrace(objID int, trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.Traces[objID] = append(tm.Traces[objID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file.
// Registering the same name again keeps its id.
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if !tm.Active() {
		return
	}
	if prev, present := tm.NameByID[id]; present && prev.Name != name {
		panic(fmt.Sprintf("id %d of %s already names %s", id, name, prev.Name))
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	tm.idByName[name] = id
}

// lookupID returns the id of a registered name, registering it when it is new
func (tm *TraceManager) lookupID(name, objDesc string) int {
	id, present := tm.idByName[name]
	if !present {
		id = len(tm.NameByID)
		for {
			if _, taken := tm.NameByID[id]; !taken {
				break
			}
			id += 1
		}
		tm.AddName(id, name, objDesc)
	}
	return id
}

// addNames registers the gated interfaces of the topology and the streams of a run
func (tm *TraceManager) addNames(topo *Topology, reservations []*StreamReservation) {
	if !tm.Active() {
		return
	}
	for _, intrfc := range topo.intrfcs {
		if intrfc.Gated() {
			tm.lookupID(intrfc.FullName(), "interface")
		}
	}
	for _, sr := range reservations {
		tm.lookupID(sr.Name, "stream")
	}
}

// OffsetTrace records the start offset resolved for a stream
type OffsetTrace struct {
	Time        float64 // offset in seconds
	Ticks       int64   // offset in vrtime ticks, rounded up
	Priority    int64   // priority field of time-stamp
	Stream      string
	Source      string
	Destination string
	Iterations  int // walks taken to converge
}

// WindowTrace records a transmission window committed on a gated interface
type WindowTrace struct {
	Time      float64 // gate open time in seconds
	Ticks     int64   // gate open time in vrtime ticks, rounded up
	Priority  int64
	Interface string
	Stream    string
	Gate      int
	PcktIdx   int // index of the packet within the cycle
	Open      Time
	Close     Time
}

func serializeTrace(rec any) string {
	bytes, merr := yaml.Marshal(rec)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// addOffset creates a record of a resolved start offset, and stores it under the stream
func (tm *TraceManager) addOffset(sr *StreamReservation, offset Time, iterations int) {
	if !tm.Active() {
		return
	}
	vrt, _ := offset.VrTime()
	otr := OffsetTrace{Time: offset.Seconds(), Ticks: vrt.Ticks(), Priority: vrt.Pri(),
		Stream: sr.Name, Source: sr.Source.name, Destination: sr.Destination.name, Iterations: iterations}

	traceTime := strconv.FormatFloat(offset.Seconds(), 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: trtToStr[OffsetType], TraceStr: serializeTrace(otr)}
	tm.AddTrace(tm.lookupID(sr.Name, "stream"), trcInst)
}

// addWindow creates a record of a committed window, and stores it under the interface
func (tm *TraceManager) addWindow(intrfc *Intrfc, w GateWindow, index int) {
	if !tm.Active() {
		return
	}
	vrt, _ := w.Open.VrTime()
	wtr := WindowTrace{Time: w.Open.Seconds(), Ticks: vrt.Ticks(), Priority: vrt.Pri(),
		Interface: intrfc.FullName(), Stream: w.Stream, Gate: w.Priority, PcktIdx: index,
		Open: w.Open, Close: w.Close}

	traceTime := strconv.FormatFloat(w.Open.Seconds(), 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: trtToStr[WindowType], TraceStr: serializeTrace(wtr)}
	tm.AddTrace(tm.lookupID(intrfc.FullName(), "interface"), trcInst)
}

// WriteToFile stores the TraceManager to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// Nothing is written, and false returned, when the manager is not active.
func (tm *TraceManager) WriteToFile(filename string) (bool, error) {
	if !tm.Active() {
		return false, nil
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(*tm)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
	default:
		return false, fmt.Errorf("trace file %s: unrecognized extension %q", filename, pathExt)
	}
	if merr != nil {
		return false, merr
	}

	if werr := os.WriteFile(filename, bytes, 0644); werr != nil {
		return false, werr
	}
	return true, nil
}
