package command

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the stream encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Envelope wraps a command on the stream.
type Envelope struct {
	Seq  uint64  `json:"seq"`
	Type Type    `json:"type"`
	Data Command `json:"data"`
}

// Encoder is a Sink that writes every command as an envelope: one JSON
// object per line, or a CBOR sequence. The first write error is kept and all
// later commands are dropped.
type Encoder struct {
	w      io.Writer
	format Format
	cbor   cbor.EncMode
	seq    uint64
	err    error
}

// NewEncoder returns an encoder for the given format.
func NewEncoder(w io.Writer, format Format) (*Encoder, error) {
	e := &Encoder{w: w, format: format}
	switch format {
	case FormatJSON:
	case FormatCBOR:
		mode, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
		}
		e.cbor = mode
	default:
		return nil, fmt.Errorf("unknown stream format %q", format)
	}
	return e, nil
}

// Emit implements Sink.
func (e *Encoder) Emit(c Command) {
	if e.err != nil {
		return
	}
	e.seq++
	env := Envelope{Seq: e.seq, Type: c.Type(), Data: c}

	var data []byte
	var err error
	switch e.format {
	case FormatCBOR:
		data, err = e.cbor.Marshal(env)
	default:
		data, err = json.Marshal(env)
		data = append(data, '\n')
	}
	if err != nil {
		e.err = SinkError{Sink: string(e.format), Operation: "encode", Seq: e.seq, Cause: err}
		return
	}
	if _, err := e.w.Write(data); err != nil {
		e.err = SinkError{Sink: string(e.format), Operation: "write", Seq: e.seq, Cause: err}
	}
}

// Err returns the first encode or write error.
func (e *Encoder) Err() error {
	return e.err
}

// Count returns the number of commands emitted so far.
func (e *Encoder) Count() uint64 {
	return e.seq
}
