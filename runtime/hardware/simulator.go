// Package hardware is the driver side of the continuation protocol: a
// simulated board that observes the command stream and answers request
// commands, and Run, which ticks an interpreter to completion against it.
package hardware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/opal-lang/sketchvm/runtime/builtins"
	"github.com/opal-lang/sketchvm/runtime/command"
)

// Board is the initial state of a simulated board.
type Board struct {
	Digital     map[int32]int32 // digitalRead values by pin
	Analog      map[int32]int32 // analogRead values by pin
	ClockStart  int64           // millis() at power-on
	ClockStep   int64           // ms the clock advances on every millis() or micros() read
	SerialInput string          // bytes waiting on Serial
	Library     map[string]any  // fixed answers by "Class.method"
}

// Simulator is a Device backed by in-memory board state. Digital writes are
// read back by digitalRead, delays advance the clock, and library getters
// return what the matching setter last wrote.
type Simulator struct {
	digital map[int32]int32
	analog  map[int32]int32
	modes   map[int32]int32
	nowMs   int64
	nowUs   int64
	step    int64
	rx      map[string][]byte
	tx      map[string]*strings.Builder
	library map[string]any
	objects map[string]map[string][]any
	pixels  map[string]map[int32]int32
}

// NewSimulator creates a simulator in the state b describes.
func NewSimulator(b Board) *Simulator {
	s := &Simulator{
		digital: make(map[int32]int32),
		analog:  make(map[int32]int32),
		modes:   make(map[int32]int32),
		nowMs:   b.ClockStart,
		step:    b.ClockStep,
		rx:      make(map[string][]byte),
		tx:      make(map[string]*strings.Builder),
		library: make(map[string]any),
		objects: make(map[string]map[string][]any),
		pixels:  make(map[string]map[int32]int32),
	}
	for pin, v := range b.Digital {
		s.digital[pin] = v
	}
	for pin, v := range b.Analog {
		s.analog[pin] = v
	}
	for k, v := range b.Library {
		s.library[k] = v
	}
	if b.SerialInput != "" {
		s.rx["Serial"] = []byte(b.SerialInput)
	}
	return s
}

// Emit updates the board from a command.
func (s *Simulator) Emit(c command.Command) {
	switch c := c.(type) {
	case command.PinMode:
		s.modes[c.Pin] = c.Mode
		if _, set := s.digital[c.Pin]; !set && c.Mode == builtins.InputPullup {
			s.digital[c.Pin] = builtins.High
		}
	case command.DigitalWrite:
		s.digital[c.Pin] = c.Value
	case command.AnalogWrite:
		s.analog[c.Pin] = c.Value
	case command.Delay:
		s.advance(int64(c.Duration) * 1000)
	case command.DelayMicroseconds:
		s.advance(int64(c.Duration))
	case command.SerialPrint:
		s.out(c.Port).WriteString(c.Data)
	case command.SerialPrintln:
		s.out(c.Port).WriteString(c.Data + "\r\n")
	case command.SerialWrite:
		s.out(c.Port).WriteString(c.Data)
	case command.LibraryMethodCall:
		s.libraryCall(c)
	}
}

// Respond answers a request from the board state. It never blocks.
func (s *Simulator) Respond(_ context.Context, req command.Request) (any, error) {
	switch r := req.(type) {
	case command.DigitalReadRequest:
		return s.digital[r.Pin], nil
	case command.AnalogReadRequest:
		return s.analog[r.Pin], nil
	case command.MillisRequest:
		v := s.nowMs
		s.advance(s.step * 1000)
		return v, nil
	case command.MicrosRequest:
		v := s.nowMs*1000 + s.nowUs
		s.advance(s.step * 1000)
		return v, nil
	case command.SerialRequest:
		return s.serial(r.Port, r.Method), nil
	case command.LibraryMethodRequest:
		return s.libraryData(r), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRequest, req.Type())
}

// Output returns everything the sketch has written to port.
func (s *Simulator) Output(port string) string {
	if b, ok := s.tx[port]; ok {
		return b.String()
	}
	return ""
}

// Feed appends bytes to the serial input of port.
func (s *Simulator) Feed(port, data string) {
	s.rx[port] = append(s.rx[port], data...)
}

// Millis returns the current virtual time in milliseconds.
func (s *Simulator) Millis() int64 {
	return s.nowMs
}

// PinMode returns the mode last set for pin.
func (s *Simulator) PinMode(pin int32) (int32, bool) {
	m, ok := s.modes[pin]
	return m, ok
}

func (s *Simulator) advance(us int64) {
	s.nowUs += us
	s.nowMs += s.nowUs / 1000
	s.nowUs %= 1000
}

func (s *Simulator) out(port string) *strings.Builder {
	b, ok := s.tx[port]
	if !ok {
		b = &strings.Builder{}
		s.tx[port] = b
	}
	return b
}

func (s *Simulator) serial(port, method string) any {
	buf := s.rx[port]
	switch method {
	case "available":
		return len(buf)
	case "read", "peek":
		if len(buf) == 0 {
			return -1
		}
		c := buf[0]
		if method == "read" {
			s.rx[port] = buf[1:]
		}
		return int32(c)
	case "parseInt":
		text, rest := scanNumber(buf, false)
		s.rx[port] = rest
		n, _ := strconv.ParseInt(text, 10, 32)
		return int32(n)
	case "parseFloat":
		text, rest := scanNumber(buf, true)
		s.rx[port] = rest
		f, _ := strconv.ParseFloat(text, 64)
		return f
	case "readString":
		s.rx[port] = nil
		return string(buf)
	case "readStringUntil":
		i := strings.IndexByte(string(buf), '\n')
		if i < 0 {
			s.rx[port] = nil
			return string(buf)
		}
		s.rx[port] = buf[i+1:]
		return string(buf[:i])
	}
	return 0
}

// scanNumber skips to the first number in buf and returns its text and the
// bytes after it.
func scanNumber(buf []byte, float bool) (string, []byte) {
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	i := 0
	for i < len(buf) && !isDigit(buf[i]) && buf[i] != '-' {
		i++
	}
	start := i
	if i < len(buf) && buf[i] == '-' {
		i++
	}
	dot := false
	for i < len(buf) && (isDigit(buf[i]) || (float && buf[i] == '.' && !dot)) {
		dot = dot || buf[i] == '.'
		i++
	}
	return string(buf[start:i]), buf[i:]
}

// getters maps a library data method to the setter whose last arguments it
// reads back.
var getters = map[string]string{
	"read":             "write",
	"readMicroseconds": "writeMicroseconds",
	"getBrightness":    "setBrightness",
}

func (s *Simulator) libraryCall(c command.LibraryMethodCall) {
	obj, ok := s.objects[c.Object]
	if !ok {
		obj = make(map[string][]any)
		s.objects[c.Object] = obj
	}
	obj[c.Method] = c.Args

	if c.Method != "setPixelColor" || len(c.Args) < 2 {
		return
	}
	px, ok := s.pixels[c.Object]
	if !ok {
		px = make(map[int32]int32)
		s.pixels[c.Object] = px
	}
	color := toInt(c.Args[1])
	if len(c.Args) >= 4 {
		color = rgb(c.Args[1], c.Args[2], c.Args[3])
	}
	px[toInt(c.Args[0])] = color
}

func (s *Simulator) libraryData(r command.LibraryMethodRequest) any {
	if v, ok := s.library[r.Library+"."+r.Method]; ok {
		return v
	}
	obj := s.objects[r.Object]

	switch r.Method {
	case "attached":
		_, attached := obj["attach"]
		_, detached := obj["detach"]
		return attached && !detached
	case "numPixels":
		// The constructor call carries the pixel count first.
		if args := obj[r.Library]; len(args) > 0 {
			return toInt(args[0])
		}
		return 0
	case "getPixelColor":
		if len(r.Args) > 0 {
			return s.pixels[r.Object][toInt(r.Args[0])]
		}
		return 0
	case "Color":
		if len(r.Args) >= 3 {
			return rgb(r.Args[0], r.Args[1], r.Args[2])
		}
		return 0
	}

	if setter, ok := getters[r.Method]; ok {
		if args := obj[setter]; len(args) > 0 {
			return args[0]
		}
	}
	return 0
}

func rgb(r, g, b any) int32 {
	return (toInt(r)&0xFF)<<16 | (toInt(g)&0xFF)<<8 | toInt(b)&0xFF
}

func toInt(x any) int32 {
	switch v := x.(type) {
	case int32:
		return v
	case int:
		return int32(v)
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	case bool:
		if v {
			return 1
		}
	case string:
		n, _ := strconv.Atoi(v)
		return int32(n)
	}
	return 0
}
