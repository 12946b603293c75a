package gatesched

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"path"
	"strings"
)

// validate is the validator shared by all descriptor checks
var validate = validator.New()

// StreamDesc is one entry of the stream configuration list.  Source and Destination are
// shell-style patterns (e.g. "host*", "sw[12]") matched against node names; one reservation
// is made for every matching (source, destination) pair.
type StreamDesc struct {
	// label for the stream, used in traces and output
	Name string `json:"name" yaml:"name"`

	Source      string `json:"source" yaml:"source" validate:"required"`
	Destination string `json:"destination" yaml:"destination" validate:"required"`

	// processing order, lower values are scheduled first.  Also selects the gate index.
	Priority int `json:"priority" yaml:"priority" validate:"min=0"`

	// packet length in bits
	PacketLength int64 `json:"packetlength" yaml:"packetlength" validate:"gt=0"`

	// time between packet releases, in seconds
	PacketInterval float64 `json:"packetinterval" yaml:"packetinterval" validate:"gt=0"`

	// advisory end-to-end latency bound, in seconds
	MaxLatency float64 `json:"maxlatency" yaml:"maxlatency" validate:"gte=0"`

	// optional explicit route, as one or more sequences of node names
	PathFragments [][]string `json:"pathfragments,omitempty" yaml:"pathfragments,omitempty" validate:"omitempty,dive,min=2,dive,required"`
}

// StreamCfg holds the global cycle duration and the list of stream requests of a run
type StreamCfg struct {
	Name string `json:"name" yaml:"name"`

	// length of the gate cycle, in seconds
	CycleDuration float64 `json:"cycleduration" yaml:"cycleduration" validate:"gt=0"`

	Streams []StreamDesc `json:"streams" yaml:"streams" validate:"dive"`
}

// CreateStreamCfg is a constructor
func CreateStreamCfg(name string, cycleDuration float64) *StreamCfg {
	return &StreamCfg{Name: name, CycleDuration: cycleDuration, Streams: make([]StreamDesc, 0)}
}

// AddStream appends a stream request to the list
func (sc *StreamCfg) AddStream(sd StreamDesc) {
	sc.Streams = append(sc.Streams, sd)
}

// Validate checks the configuration before any scheduling is attempted: the
// struct constraints, the match patterns, and that every packet interval divides the cycle
func (sc *StreamCfg) Validate() error {
	if err := validate.Struct(sc); err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, formatValidationError(err))
	}

	errs := []error{}
	cycle := SecondsToTime(sc.CycleDuration)
	for idx, sd := range sc.Streams {
		label := sd.Name
		if len(label) == 0 {
			label = fmt.Sprintf("streams[%d]", idx)
		}
		for _, pattern := range []string{sd.Source, sd.Destination} {
			if _, err := path.Match(pattern, ""); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: bad pattern %q", ErrInconsistent, label, pattern))
			}
		}
		interval := SecondsToTime(sd.PacketInterval)
		if interval <= 0 || cycle%interval != 0 {
			errs = append(errs, fmt.Errorf("%w: %s: packet interval %v does not divide cycle duration %v",
				ErrInconsistent, label, interval, cycle))
		}
	}

	return ReportErrs(errs)
}

// formatValidationError turns the validator's report into one line per failed field
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// WriteToFile serializes the StreamCfg to the named file, yaml or json by extension
func (sc *StreamCfg) WriteToFile(filename string) error {
	return writeDescFile(filename, *sc)
}

// ReadStreamCfg deserializes a slice of bytes into a StreamCfg.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.
func ReadStreamCfg(filename string, useYAML bool, dict []byte) (*StreamCfg, error) {
	example := StreamCfg{}
	if err := readDescFile(filename, useYAML, dict, &example); err != nil {
		return nil, fmt.Errorf("stream configuration %s: %w", filename, err)
	}

	return &example, nil
}
