package gatesched

import (
	"encoding/json"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"path/filepath"
)

// To most easily serialize and deserialize the structures that describe a network,
// we ensure that they are completely described without pointers.  On the other hand it
// is easiest to build a description programmatically if pointers are allowed.
// Our approach then is to define two representations for each kind of structure.  One
// has the final appellation of 'Frame', and holds pointers.  The pointer free version
// has the final appellation of 'Desc'.   After completely building the structures using
// Frames we transform each into a Desc version for serialization.

// IntrfcDesc defines a serializable description of an egress interface
type IntrfcDesc struct {
	// name for interface, unique among interfaces on hosting device.
	Name string `json:"name" yaml:"name"`

	// name of the node on which this interface is resident
	Device string `json:"device" yaml:"device"`

	// name of the node at the far end of the link leaving this interface
	Peer string `json:"peer" yaml:"peer"`

	// name of the interface (on Peer) to which this interface is directly connected
	Connects string `json:"connects" yaml:"connects"`

	// transmission rate in bits per second
	Datarate float64 `json:"datarate" yaml:"datarate"`

	// propagation delay of the link, in seconds
	Latency float64 `json:"latency" yaml:"latency"`

	// number of priority-indexed gates on the egress queue, zero when the queue is not gated
	Gates int `json:"gates" yaml:"gates"`
}

// IntrfcFrame gives a pre-serializable description of an interface, used in topology construction.
// 'Almost' the same as IntrfcDesc, with the exception of one pointer
type IntrfcFrame struct {
	Name     string
	Device   string
	Connects *IntrfcFrame // interface at the other end of the link
	Datarate float64
	Latency  float64
	Gates    int
}

// CreateIntrfcFrame is a constructor for [IntrfcFrame] that fills in every attribute except Connects.
// An empty name asks for a default one, derived from the device name and the number of interfaces it already has
func CreateIntrfcFrame(device *NodeFrame, name string, datarate, latency float64, gates int) *IntrfcFrame {
	if len(name) == 0 {
		name = fmt.Sprintf("eth%d", len(device.Interfaces))
	}
	return &IntrfcFrame{Name: name, Device: device.Name, Datarate: datarate, Latency: latency, Gates: gates}
}

// ConnectIntrfcFrames links two interfaces through their 'Connects' attributes
func ConnectIntrfcFrames(intrfc1, intrfc2 *IntrfcFrame) {
	intrfc1.Connects = intrfc2
	intrfc2.Connects = intrfc1
}

// Transform converts an IntrfcFrame and returns an IntrfcDesc, for serialization.
func (iff *IntrfcFrame) Transform() IntrfcDesc {
	intrfcDesc := IntrfcDesc{Name: iff.Name, Device: iff.Device, Datarate: iff.Datarate,
		Latency: iff.Latency, Gates: iff.Gates}

	// the desc representation names the peer rather than pointing at it
	if iff.Connects != nil {
		intrfcDesc.Peer = iff.Connects.Device
		intrfcDesc.Connects = iff.Connects.Name
	}
	return intrfcDesc
}

// NodeDesc defines a serializable representation of a host or a switch
type NodeDesc struct {
	Name       string       `json:"name" yaml:"name"`
	DevType    string       `json:"devtype" yaml:"devtype"`
	Model      string       `json:"model" yaml:"model"`
	Interfaces []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// NodeFrame defines the pre-serialization representation of a host or switch
type NodeFrame struct {
	Name       string         // unique string identifier of the node
	DevType    string         // "Host" or "Switch"
	Model      string         // device model identifier, informational
	Gates      int            // gate count given to interfaces created by ConnectNodes
	Interfaces []*IntrfcFrame // egress interfaces, in order
}

// CreateNodeFrame is a constructor. The gates argument is the number of gates
// on each egress queue the node will get when connected with ConnectNodes
func CreateNodeFrame(name, devType string, gates int) *NodeFrame {
	nf := new(NodeFrame)
	nf.Name = name
	nf.DevType = devType
	nf.Gates = gates
	nf.Interfaces = make([]*IntrfcFrame, 0)

	return nf
}

// AddIntrfc includes a new interface frame for the node.  Error is returned
// if the interface (or one with the same name) is already attached to the NodeFrame
func (nf *NodeFrame) AddIntrfc(iff *IntrfcFrame) error {
	for _, ih := range nf.Interfaces {
		if ih == iff || ih.Name == iff.Name {
			return fmt.Errorf("attempt to re-add interface %s to node %s", iff.Name, nf.Name)
		}
	}

	// ensure that the interface has stored the home device name
	iff.Device = nf.Name
	nf.Interfaces = append(nf.Interfaces, iff)

	return nil
}

// Transform returns a serializable NodeDesc, transformed from a NodeFrame.
func (nf *NodeFrame) Transform() NodeDesc {
	nd := NodeDesc{Name: nf.Name, DevType: nf.DevType, Model: nf.Model}

	// serialize the interfaces by calling their own serialization routines
	nd.Interfaces = make([]IntrfcDesc, len(nf.Interfaces))
	for idx := 0; idx < len(nf.Interfaces); idx += 1 {
		nd.Interfaces[idx] = nf.Interfaces[idx].Transform()
	}

	return nd
}

// ConnectNodes creates a full-duplex link between two nodes: one new interface on each,
// connected to each other, both with the given datarate (bits/sec) and latency (seconds)
func ConnectNodes(node1, node2 *NodeFrame, datarate, latency float64) error {
	intrfc1 := CreateIntrfcFrame(node1, "", datarate, latency, node1.Gates)
	intrfc2 := CreateIntrfcFrame(node2, "", datarate, latency, node2.Gates)
	ConnectIntrfcFrames(intrfc1, intrfc2)

	return ReportErrs([]error{node1.AddIntrfc(intrfc1), node2.AddIntrfc(intrfc2)})
}

// The TopoCfgFrame struct gives the highest level structure of the topology,
// is ultimately the encompassing dictionary in the serialization
type TopoCfgFrame struct {
	Name  string
	Nodes []*NodeFrame
}

// CreateTopoCfgFrame is a constructor.
func CreateTopoCfgFrame(name string) *TopoCfgFrame {
	return &TopoCfgFrame{Name: name, Nodes: make([]*NodeFrame, 0)}
}

// AddNode adds a node to the topology configuration (if it is not already present)
func (tf *TopoCfgFrame) AddNode(node *NodeFrame) {
	// test for duplication either by address or by name
	for _, stored := range tf.Nodes {
		if node == stored || node.Name == stored.Name {
			return
		}
	}
	tf.Nodes = append(tf.Nodes, node)
}

// Transform transforms the slice of pointers to nodes
// into a slice of instances of those nodes, for serialization
func (tf *TopoCfgFrame) Transform() TopoCfg {
	tc := TopoCfg{Name: tf.Name, Nodes: make([]NodeDesc, 0, len(tf.Nodes))}
	for _, nodef := range tf.Nodes {
		tc.Nodes = append(tc.Nodes, nodef.Transform())
	}

	return tc
}

// TopoCfg is the serializable topology snapshot consumed by a scheduling run
type TopoCfg struct {
	Name  string     `json:"name" yaml:"name"`
	Nodes []NodeDesc `json:"nodes" yaml:"nodes"`
}

// WriteToFile serializes the TopoCfg and writes to the file whose name is given as an input argument.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (tc *TopoCfg) WriteToFile(filename string) error {
	return writeDescFile(filename, *tc)
}

// ReadTopoCfg deserializes a slice of bytes into a TopoCfg.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.  Error returned if
// any part of the process generates the error.
func ReadTopoCfg(topoFileName string, useYAML bool, dict []byte) (*TopoCfg, error) {
	example := TopoCfg{}
	if err := readDescFile(topoFileName, useYAML, dict, &example); err != nil {
		return nil, fmt.Errorf("topology %s: %w", topoFileName, err)
	}

	return &example, nil
}

// UseYAMLFor reports whether the file name's extension selects yaml (rather than json)
func UseYAMLFor(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".YAML" || ext == ".yml"
}

// writeDescFile is the serialization shared by every descriptor that can be stored.
// The path extension of the output file determines whether we serialize to json or to yaml
func writeDescFile(filename string, desc any) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if UseYAMLFor(filename) {
		bytes, merr = yaml.Marshal(desc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(desc, "", "\t")
	} else {
		return fmt.Errorf("%s: unrecognized extension %q", filename, pathExt)
	}

	if merr != nil {
		return merr
	}

	return os.WriteFile(filename, bytes, 0o644)
}

// readDescFile deserializes dict into desc, reading dict from the named file first when it is empty
func readDescFile(filename string, useYAML bool, dict []byte, desc any) error {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, serr := os.Stat(filename)
		if serr != nil || fileInfo.IsDir() {
			return fmt.Errorf("%s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return err
		}
	}

	if useYAML {
		err = yaml.Unmarshal(dict, desc)
	} else {
		err = json.Unmarshal(dict, desc)
	}

	return err
}

// CheckReadableFiles probes the file system to ensure that every
// one of the argument filenames exists and is readable
func CheckReadableFiles(names []string) (bool, error) {
	return CheckFiles(names, true)
}

// CheckOutputFiles probes the file system to ensure that the directory
// of every argument filename exists, so that the file can be written.
func CheckOutputFiles(names []string) (bool, error) {
	return CheckFiles(names, false)
}

// CheckFiles probes the file system for permitted access to all the
// argument filenames, optionally checking also for the existence
// of those files for the purposes of reading them.  Empty names are skipped.
func CheckFiles(names []string, checkExistence bool) (bool, error) {
	errs := make([]error, 0)

	for _, name := range names {
		if len(name) == 0 {
			continue
		}

		// split off the directory portion of the path
		directory, _ := filepath.Split(name)
		if len(directory) == 0 {
			directory = "."
		}
		if _, err := os.Stat(directory); err != nil {
			errs = append(errs, err)
			continue
		}

		if checkExistence {
			if _, err := os.Stat(name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := ReportErrs(errs); err != nil {
		return false, err
	}
	return true, nil
}

// errMissingName is used when a descriptor leaves a required name empty
var errMissingName = errors.New("missing name")
