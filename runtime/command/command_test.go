package command_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/sketchvm/runtime/command"
)

func TestRequestsCarryIDs(t *testing.T) {
	requests := []command.Request{
		command.DigitalReadRequest{Pin: 2, ID: "r1"},
		command.AnalogReadRequest{Pin: 14, ID: "r2"},
		command.MillisRequest{ID: "r3"},
		command.MicrosRequest{ID: "r4"},
		command.SerialRequest{Port: "Serial", Method: "read", ID: "r5"},
		command.LibraryMethodRequest{Library: "Servo", Object: "s", Method: "read", ID: "r6"},
	}
	for i, r := range requests {
		assert.NotEmpty(t, r.Type())
		assert.Equal(t, "r"+string(rune('1'+i)), r.RequestID())
	}

	var c command.Command = command.DigitalWrite{Pin: 13, Value: 1}
	_, isRequest := c.(command.Request)
	assert.False(t, isRequest, "writes never suspend")
}

func TestRecorder(t *testing.T) {
	var rec command.Recorder
	assert.Nil(t, rec.Last())

	rec.Emit(command.SetupStart{})
	rec.Emit(command.PinMode{Pin: 13, Mode: 1})
	rec.Emit(command.DigitalWrite{Pin: 13, Value: 1})
	rec.Emit(command.DigitalWrite{Pin: 13, Value: 0})
	rec.Emit(command.SetupEnd{})

	assert.Equal(t, []command.Type{
		command.TypeSetupStart,
		command.TypePinMode,
		command.TypeDigitalWrite,
		command.TypeDigitalWrite,
		command.TypeSetupEnd,
	}, rec.Types())
	assert.Equal(t, 2, rec.Count(command.TypeDigitalWrite))
	assert.Equal(t, command.DigitalWrite{Pin: 13, Value: 0}, rec.Filter(command.TypeDigitalWrite)[1])
	assert.Equal(t, command.SetupEnd{}, rec.Last())

	rec.Reset()
	assert.Empty(t, rec.Commands)
}

func TestMultiAndSinkFunc(t *testing.T) {
	var a, b command.Recorder
	var seen []command.Type
	sink := command.Multi{&a, &b, command.SinkFunc(func(c command.Command) {
		seen = append(seen, c.Type())
	}), command.Discard}

	sink.Emit(command.Delay{Duration: 500})

	assert.Len(t, a.Commands, 1)
	assert.Len(t, b.Commands, 1)
	assert.Equal(t, []command.Type{command.TypeDelay}, seen)
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := command.NewEncoder(&buf, command.FormatJSON)
	require.NoError(t, err)

	enc.Emit(command.DigitalReadRequest{Pin: 2, ID: "req-1"})
	enc.Emit(command.SerialPrintln{Port: "Serial", Data: "hello"})
	require.NoError(t, enc.Err())
	assert.Equal(t, uint64(2), enc.Count())

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, float64(1), lines[0]["seq"])
	assert.Equal(t, "DIGITAL_READ_REQUEST", lines[0]["type"])
	assert.Equal(t, map[string]any{"pin": float64(2), "requestId": "req-1"}, lines[0]["data"])

	assert.Equal(t, float64(2), lines[1]["seq"])
	assert.Equal(t, "SERIAL_PRINTLN", lines[1]["type"])
	assert.Equal(t, map[string]any{"port": "Serial", "data": "hello"}, lines[1]["data"])
}

func TestCBOREncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := command.NewEncoder(&buf, command.FormatCBOR)
	require.NoError(t, err)

	enc.Emit(command.AnalogWrite{Pin: 9, Value: 128})
	enc.Emit(command.LoopLimitReached{Kind: "loop", Limit: 3, Message: "loop limit reached"})
	require.NoError(t, enc.Err())

	dec := cbor.NewDecoder(&buf)
	var first struct {
		Seq  uint64         `cbor:"seq"`
		Type string         `cbor:"type"`
		Data map[string]any `cbor:"data"`
	}
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, "ANALOG_WRITE", first.Type)
	assert.EqualValues(t, 128, first.Data["value"])

	var second struct {
		Type string `cbor:"type"`
	}
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "LOOP_LIMIT_REACHED", second.Type)
}

func TestCBOREncoderDeterministic(t *testing.T) {
	encode := func() []byte {
		var buf bytes.Buffer
		enc, err := command.NewEncoder(&buf, command.FormatCBOR)
		require.NoError(t, err)
		enc.Emit(command.LibraryMethodCall{Library: "Servo", Object: "s", Method: "write", Args: []any{int32(90)}})
		require.NoError(t, enc.Err())
		return buf.Bytes()
	}
	assert.Equal(t, encode(), encode())
}

func TestEncoderUnknownFormat(t *testing.T) {
	_, err := command.NewEncoder(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
}

type failingWriter struct{ writes int }

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errDiskFull
}

func TestEncoderKeepsFirstError(t *testing.T) {
	w := &failingWriter{}
	enc, err := command.NewEncoder(w, command.FormatJSON)
	require.NoError(t, err)

	enc.Emit(command.SetupStart{})
	enc.Emit(command.SetupEnd{})

	var sinkErr command.SinkError
	require.True(t, errors.As(enc.Err(), &sinkErr))
	assert.Equal(t, "write", sinkErr.Operation)
	assert.Equal(t, uint64(1), sinkErr.Seq)
	assert.ErrorIs(t, enc.Err(), errDiskFull)
	assert.Equal(t, 1, w.writes, "later commands are dropped after a failure")
}
