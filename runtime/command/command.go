// Package command defines the structured events an interpreter emits in place
// of real I/O, and the sinks that receive them.
package command

// Type is the wire name of a command.
type Type string

const (
	TypeVersionInfo      Type = "VERSION_INFO"
	TypeProgramStart     Type = "PROGRAM_START"
	TypeProgramEnd       Type = "PROGRAM_END"
	TypeSetupStart       Type = "SETUP_START"
	TypeSetupEnd         Type = "SETUP_END"
	TypeLoopStart        Type = "LOOP_START"
	TypeLoopEnd          Type = "LOOP_END"
	TypeLoopLimitReached Type = "LOOP_LIMIT_REACHED"

	TypeIfStatement       Type = "IF_STATEMENT"
	TypeBreakStatement    Type = "BREAK_STATEMENT"
	TypeContinueStatement Type = "CONTINUE_STATEMENT"

	TypePinMode            Type = "PIN_MODE"
	TypeDigitalWrite       Type = "DIGITAL_WRITE"
	TypeAnalogWrite        Type = "ANALOG_WRITE"
	TypeDigitalReadRequest Type = "DIGITAL_READ_REQUEST"
	TypeAnalogReadRequest  Type = "ANALOG_READ_REQUEST"
	TypeMillisRequest      Type = "MILLIS_REQUEST"
	TypeMicrosRequest      Type = "MICROS_REQUEST"
	TypeDelay              Type = "DELAY"
	TypeDelayMicroseconds  Type = "DELAY_MICROSECONDS"
	TypeTone               Type = "TONE"
	TypeNoTone             Type = "NO_TONE"

	TypeSerialBegin   Type = "SERIAL_BEGIN"
	TypeSerialPrint   Type = "SERIAL_PRINT"
	TypeSerialPrintln Type = "SERIAL_PRINTLN"
	TypeSerialWrite   Type = "SERIAL_WRITE"
	TypeSerialFlush   Type = "SERIAL_FLUSH"
	TypeSerialRequest Type = "SERIAL_REQUEST"

	TypeLibraryMethodCall    Type = "LIBRARY_METHOD_CALL"
	TypeLibraryMethodRequest Type = "LIBRARY_METHOD_REQUEST"

	TypeVarSet Type = "VAR_SET"
	TypeError  Type = "ERROR"
)

// Command is one emitted event.
type Command interface {
	Type() Type
}

// Request is a command that suspends execution until a response carrying
// the same id is delivered.
type Request interface {
	Command
	RequestID() string
}

// Lifecycle

type VersionInfo struct {
	Component string `json:"component"`
	Version   string `json:"version"`
	Format    string `json:"format"`
}

type ProgramStart struct {
	Message string `json:"message"`
}

type ProgramEnd struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type SetupStart struct{}

type SetupEnd struct{}

// LoopStart marks one iteration. Kind is "loop" for the loop() driver and the
// statement kind ("while", "for", "do-while", "range-for") otherwise.
type LoopStart struct {
	Kind      string `json:"kind"`
	Iteration int    `json:"iteration"`
}

type LoopEnd struct {
	Kind      string `json:"kind"`
	Iteration int    `json:"iteration"`
}

// LoopLimitReached is emitted once when a loop is cut off by its iteration
// budget. It is not an error.
type LoopLimitReached struct {
	Kind    string `json:"kind"`
	Limit   int    `json:"limit"`
	Message string `json:"message"`
}

// Control flow trace

type IfStatement struct {
	Condition any    `json:"condition"`
	Branch    string `json:"branch"`
}

type BreakStatement struct{}

type ContinueStatement struct{}

// Hardware

type PinMode struct {
	Pin  int32  `json:"pin"`
	Mode int32  `json:"mode"`
	Name string `json:"modeName,omitempty"`
}

type DigitalWrite struct {
	Pin   int32 `json:"pin"`
	Value int32 `json:"value"`
}

type AnalogWrite struct {
	Pin   int32 `json:"pin"`
	Value int32 `json:"value"`
}

type DigitalReadRequest struct {
	Pin int32  `json:"pin"`
	ID  string `json:"requestId"`
}

type AnalogReadRequest struct {
	Pin int32  `json:"pin"`
	ID  string `json:"requestId"`
}

type MillisRequest struct {
	ID string `json:"requestId"`
}

type MicrosRequest struct {
	ID string `json:"requestId"`
}

type Delay struct {
	Duration int32 `json:"duration"`
}

type DelayMicroseconds struct {
	Duration int32 `json:"duration"`
}

type Tone struct {
	Pin       int32 `json:"pin"`
	Frequency int32 `json:"frequency"`
	Duration  int32 `json:"duration,omitempty"`
}

type NoTone struct {
	Pin int32 `json:"pin"`
}

// Serial

type SerialBegin struct {
	Port string `json:"port"`
	Baud int32  `json:"baudRate"`
}

type SerialPrint struct {
	Port string `json:"port"`
	Data string `json:"data"`
}

type SerialPrintln struct {
	Port string `json:"port"`
	Data string `json:"data"`
}

type SerialWrite struct {
	Port string `json:"port"`
	Data string `json:"data"`
}

type SerialFlush struct {
	Port string `json:"port"`
}

// SerialRequest asks for serial input. Method is the builtin that asked
// ("available", "read", "peek", "parseInt", "readString").
type SerialRequest struct {
	Port   string `json:"port"`
	Method string `json:"method"`
	ID     string `json:"requestId"`
}

// Libraries

type LibraryMethodCall struct {
	Library string `json:"library"`
	Object  string `json:"object"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type LibraryMethodRequest struct {
	Library string `json:"library"`
	Object  string `json:"object"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
	ID      string `json:"requestId"`
}

// Trace and errors

type VarSet struct {
	Name  string `json:"variable"`
	Value any    `json:"value"`
}

// Error reports a recoverable runtime error. Kind is the error class
// ("UndefinedVariable", "DivisionByZero", ...).
type Error struct {
	Kind    string `json:"errorType"`
	Message string `json:"message"`
}

func (VersionInfo) Type() Type          { return TypeVersionInfo }
func (ProgramStart) Type() Type         { return TypeProgramStart }
func (ProgramEnd) Type() Type           { return TypeProgramEnd }
func (SetupStart) Type() Type           { return TypeSetupStart }
func (SetupEnd) Type() Type             { return TypeSetupEnd }
func (LoopStart) Type() Type            { return TypeLoopStart }
func (LoopEnd) Type() Type              { return TypeLoopEnd }
func (LoopLimitReached) Type() Type     { return TypeLoopLimitReached }
func (IfStatement) Type() Type          { return TypeIfStatement }
func (BreakStatement) Type() Type       { return TypeBreakStatement }
func (ContinueStatement) Type() Type    { return TypeContinueStatement }
func (PinMode) Type() Type              { return TypePinMode }
func (DigitalWrite) Type() Type         { return TypeDigitalWrite }
func (AnalogWrite) Type() Type          { return TypeAnalogWrite }
func (DigitalReadRequest) Type() Type   { return TypeDigitalReadRequest }
func (AnalogReadRequest) Type() Type    { return TypeAnalogReadRequest }
func (MillisRequest) Type() Type        { return TypeMillisRequest }
func (MicrosRequest) Type() Type        { return TypeMicrosRequest }
func (Delay) Type() Type                { return TypeDelay }
func (DelayMicroseconds) Type() Type    { return TypeDelayMicroseconds }
func (Tone) Type() Type                 { return TypeTone }
func (NoTone) Type() Type               { return TypeNoTone }
func (SerialBegin) Type() Type          { return TypeSerialBegin }
func (SerialPrint) Type() Type          { return TypeSerialPrint }
func (SerialPrintln) Type() Type        { return TypeSerialPrintln }
func (SerialWrite) Type() Type          { return TypeSerialWrite }
func (SerialFlush) Type() Type          { return TypeSerialFlush }
func (SerialRequest) Type() Type        { return TypeSerialRequest }
func (LibraryMethodCall) Type() Type    { return TypeLibraryMethodCall }
func (LibraryMethodRequest) Type() Type { return TypeLibraryMethodRequest }
func (VarSet) Type() Type               { return TypeVarSet }
func (Error) Type() Type                { return TypeError }

func (c DigitalReadRequest) RequestID() string   { return c.ID }
func (c AnalogReadRequest) RequestID() string    { return c.ID }
func (c MillisRequest) RequestID() string        { return c.ID }
func (c MicrosRequest) RequestID() string        { return c.ID }
func (c SerialRequest) RequestID() string        { return c.ID }
func (c LibraryMethodRequest) RequestID() string { return c.ID }
