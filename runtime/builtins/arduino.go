package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// Pin modes and levels.
const (
	Low         = 0
	High        = 1
	Input       = 0
	Output      = 1
	InputPullup = 2
	LedBuiltin  = 13

	// A0 is the first analog input on an Uno; A1-A5 follow.
	A0 = 14
)

// Default returns a registry holding the Arduino core catalog and the
// bundled library classes.
func Default() *Registry {
	r := NewRegistry()
	for _, e := range coreEntries() {
		mustRegister(r, e)
	}
	for _, e := range mathEntries() {
		mustRegister(r, e)
	}
	for _, e := range serialEntries() {
		mustRegister(r, e)
	}
	for _, e := range stringEntries() {
		mustRegister(r, e)
	}
	for name, v := range coreConstants() {
		r.DefineConstant(name, v)
	}
	for _, lib := range Libraries() {
		if err := r.RegisterLibrary(lib); err != nil {
			panic(err)
		}
	}
	return r
}

func mustRegister(r *Registry, e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

func coreConstants() map[string]value.Value {
	c := map[string]value.Value{
		"HIGH":         value.Int(High),
		"LOW":          value.Int(Low),
		"INPUT":        value.Int(Input),
		"OUTPUT":       value.Int(Output),
		"INPUT_PULLUP": value.Int(InputPullup),
		"LED_BUILTIN":  value.Int(LedBuiltin),
		"true":         value.Bool(true),
		"false":        value.Bool(false),
		"NULL":         value.Pointer(nil),
		"nullptr":      value.Pointer(nil),
		"PI":           value.Double(math.Pi),
		"HALF_PI":      value.Double(math.Pi / 2),
		"TWO_PI":       value.Double(2 * math.Pi),
		"DEG_TO_RAD":   value.Double(math.Pi / 180),
		"RAD_TO_DEG":   value.Double(180 / math.Pi),
		"DEC":          value.Int(10),
		"HEX":          value.Int(16),
		"OCT":          value.Int(8),
		"BIN":          value.Int(2),
		"CHANGE":       value.Int(1),
		"FALLING":      value.Int(2),
		"RISING":       value.Int(3),
	}
	for i := int32(0); i < 6; i++ {
		c["A"+strconv.Itoa(int(i))] = value.Int(A0 + i)
	}
	for _, port := range []string{"Serial", "Serial1", "Serial2", "Serial3"} {
		c[port] = value.NewObject("Serial", port)
	}
	return c
}

// ModeName renders a pin mode for PIN_MODE commands.
func ModeName(mode int32) string {
	switch mode {
	case Input:
		return "INPUT"
	case Output:
		return "OUTPUT"
	case InputPullup:
		return "INPUT_PULLUP"
	default:
		return ""
	}
}

func syncEntry(name string, minArgs, maxArgs int, fn SyncFunc) Entry {
	return Entry{Name: name, Kind: KindSync, MinArgs: minArgs, MaxArgs: maxArgs, Sync: fn}
}

func asyncEntry(name string, minArgs, maxArgs int, req RequestFunc, res ResultFunc) Entry {
	return Entry{Name: name, Kind: KindAsync, MinArgs: minArgs, MaxArgs: maxArgs, Request: req, Result: res}
}

func asInt(_ Call, v value.Value) value.Value { return value.Int(v.AsInt()) }

func coreEntries() []Entry {
	return []Entry{
		syncEntry("pinMode", 2, 2, func(ctx Context, c Call) (value.Value, error) {
			mode := c.Arg(1).AsInt()
			ctx.Emit(command.PinMode{Pin: c.Arg(0).AsInt(), Mode: mode, Name: ModeName(mode)})
			return value.Void(), nil
		}),
		syncEntry("digitalWrite", 2, 2, func(ctx Context, c Call) (value.Value, error) {
			level := int32(Low)
			if c.Arg(1).Truthy() {
				level = High
			}
			ctx.Emit(command.DigitalWrite{Pin: c.Arg(0).AsInt(), Value: level})
			return value.Void(), nil
		}),
		syncEntry("analogWrite", 2, 2, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.AnalogWrite{Pin: c.Arg(0).AsInt(), Value: clamp(c.Arg(1).AsInt(), 0, 255)})
			return value.Void(), nil
		}),
		syncEntry("delay", 1, 1, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.Delay{Duration: c.Arg(0).AsInt()})
			return value.Void(), nil
		}),
		syncEntry("delayMicroseconds", 1, 1, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.DelayMicroseconds{Duration: c.Arg(0).AsInt()})
			return value.Void(), nil
		}),
		syncEntry("tone", 2, 3, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.Tone{Pin: c.Arg(0).AsInt(), Frequency: c.Arg(1).AsInt(), Duration: c.Arg(2).AsInt()})
			return value.Void(), nil
		}),
		syncEntry("noTone", 1, 1, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.NoTone{Pin: c.Arg(0).AsInt()})
			return value.Void(), nil
		}),

		asyncEntry("digitalRead", 1, 1, func(id string, c Call) command.Request {
			return command.DigitalReadRequest{Pin: c.Arg(0).AsInt(), ID: id}
		}, func(_ Call, v value.Value) value.Value {
			if v.Truthy() {
				return value.Int(High)
			}
			return value.Int(Low)
		}),
		asyncEntry("analogRead", 1, 1, func(id string, c Call) command.Request {
			return command.AnalogReadRequest{Pin: c.Arg(0).AsInt(), ID: id}
		}, asInt),
		asyncEntry("millis", 0, 0, func(id string, _ Call) command.Request {
			return command.MillisRequest{ID: id}
		}, asInt),
		asyncEntry("micros", 0, 0, func(id string, _ Call) command.Request {
			return command.MicrosRequest{ID: id}
		}, asInt),

		syncEntry("String", 0, 2, func(_ Context, c Call) (value.Value, error) {
			return value.String(formatValue(c.Arg(0), c.Arg(1), false)), nil
		}),
	}
}

func mathEntries() []Entry {
	return []Entry{
		syncEntry("abs", 1, 1, func(_ Context, c Call) (value.Value, error) {
			x := c.Arg(0)
			if x.Kind == value.KindDouble {
				return value.Double(math.Abs(x.Double)), nil
			}
			n := x.AsInt()
			if n < 0 {
				n = -n
			}
			return value.Int(n), nil
		}),
		syncEntry("min", 2, 2, func(_ Context, c Call) (value.Value, error) {
			return pick(c.Arg(0), c.Arg(1), "<")
		}),
		syncEntry("max", 2, 2, func(_ Context, c Call) (value.Value, error) {
			return pick(c.Arg(0), c.Arg(1), ">")
		}),
		syncEntry("constrain", 3, 3, func(_ Context, c Call) (value.Value, error) {
			x, lo, hi := c.Arg(0), c.Arg(1), c.Arg(2)
			if below, _ := value.Binary("<", x, lo); below.Truthy() {
				return lo, nil
			}
			if above, _ := value.Binary(">", x, hi); above.Truthy() {
				return hi, nil
			}
			return x, nil
		}),
		syncEntry("map", 5, 5, func(_ Context, c Call) (value.Value, error) {
			x, inMin, inMax := int64(c.Arg(0).AsInt()), int64(c.Arg(1).AsInt()), int64(c.Arg(2).AsInt())
			outMin, outMax := int64(c.Arg(3).AsInt()), int64(c.Arg(4).AsInt())
			if inMax == inMin {
				return value.Void(), value.ErrDivisionByZero
			}
			return value.Int(int32((x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin)), nil
		}),
		syncEntry("pow", 2, 2, func(_ Context, c Call) (value.Value, error) {
			return value.Double(math.Pow(c.Arg(0).AsDouble(), c.Arg(1).AsDouble())), nil
		}),
		syncEntry("sq", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Binary("*", c.Arg(0), c.Arg(0))
		}),
		unaryMath("sqrt", math.Sqrt),
		unaryMath("sin", math.Sin),
		unaryMath("cos", math.Cos),
		unaryMath("tan", math.Tan),
		unaryMath("floor", math.Floor),
		unaryMath("ceil", math.Ceil),
		unaryMath("exp", math.Exp),
		unaryMath("log", math.Log),
		syncEntry("round", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Int(int32(math.Round(c.Arg(0).AsDouble()))), nil
		}),

		syncEntry("random", 1, 2, func(ctx Context, c Call) (value.Value, error) {
			lo, hi := int32(0), c.Arg(0).AsInt()
			if len(c.Args) == 2 {
				lo, hi = c.Arg(0).AsInt(), c.Arg(1).AsInt()
			}
			if hi <= lo {
				return value.Int(lo), nil
			}
			return value.Int(lo + ctx.Rand().Int31n(hi-lo)), nil
		}),
		syncEntry("randomSeed", 1, 1, func(ctx Context, c Call) (value.Value, error) {
			ctx.Rand().Seed(int64(c.Arg(0).AsInt()))
			return value.Void(), nil
		}),

		syncEntry("bit", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Int(1 << uint(c.Arg(0).AsInt()&31)), nil
		}),
		syncEntry("bitRead", 2, 2, func(_ Context, c Call) (value.Value, error) {
			return value.Int((c.Arg(0).AsInt() >> uint(c.Arg(1).AsInt()&31)) & 1), nil
		}),
		{Name: "bitSet", Kind: KindSync, MinArgs: 2, MaxArgs: 2, Writeback: WritebackFirstArg,
			Sync: func(_ Context, c Call) (value.Value, error) {
				return value.Int(c.Arg(0).AsInt() | 1<<uint(c.Arg(1).AsInt()&31)), nil
			}},
		{Name: "bitClear", Kind: KindSync, MinArgs: 2, MaxArgs: 2, Writeback: WritebackFirstArg,
			Sync: func(_ Context, c Call) (value.Value, error) {
				return value.Int(c.Arg(0).AsInt() &^ (1 << uint(c.Arg(1).AsInt()&31))), nil
			}},
		{Name: "bitWrite", Kind: KindSync, MinArgs: 3, MaxArgs: 3, Writeback: WritebackFirstArg,
			Sync: func(_ Context, c Call) (value.Value, error) {
				x, mask := c.Arg(0).AsInt(), int32(1)<<uint(c.Arg(1).AsInt()&31)
				if c.Arg(2).Truthy() {
					return value.Int(x | mask), nil
				}
				return value.Int(x &^ mask), nil
			}},
		syncEntry("lowByte", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Int(c.Arg(0).AsInt() & 0xFF), nil
		}),
		syncEntry("highByte", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Int((c.Arg(0).AsInt() >> 8) & 0xFF), nil
		}),

		charClass("isDigit", func(b byte) bool { return b >= '0' && b <= '9' }),
		charClass("isAlpha", func(b byte) bool { return (b|0x20) >= 'a' && (b|0x20) <= 'z' }),
		charClass("isSpace", func(b byte) bool { return strings.IndexByte(" \t\n\v\f\r", b) >= 0 }),
		charClass("isUpperCase", func(b byte) bool { return b >= 'A' && b <= 'Z' }),
		charClass("isLowerCase", func(b byte) bool { return b >= 'a' && b <= 'z' }),
	}
}

func unaryMath(name string, fn func(float64) float64) Entry {
	return syncEntry(name, 1, 1, func(_ Context, c Call) (value.Value, error) {
		return value.Double(fn(c.Arg(0).AsDouble())), nil
	})
}

func charClass(name string, fn func(byte) bool) Entry {
	return syncEntry(name, 1, 1, func(_ Context, c Call) (value.Value, error) {
		return value.Bool(fn(byte(c.Arg(0).AsInt()))), nil
	})
}

// pick returns a or b, whichever satisfies "a op b", keeping its kind.
func pick(a, b value.Value, op string) (value.Value, error) {
	r, err := value.Binary(op, a, b)
	if err != nil {
		return value.Void(), err
	}
	if r.Truthy() {
		return a, nil
	}
	return b, nil
}

func clamp(v, lo, hi int32) int32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// formatValue renders v for print-style output. A numeric second argument
// is a base (DEC, HEX, OCT, BIN) for integers and a digit count for doubles.
func formatValue(v, arg value.Value, upper bool) string {
	if arg.IsVoid() {
		return v.AsString()
	}
	n := arg.AsInt()
	switch v.Kind {
	case value.KindDouble:
		if n < 0 {
			n = 0
		}
		return strconv.FormatFloat(v.Double, 'f', int(n), 64)
	case value.KindInt, value.KindBool:
		if n < 2 || n > 36 {
			return v.AsString()
		}
		x := v.AsInt()
		var s string
		if n == 10 {
			s = strconv.FormatInt(int64(x), 10)
		} else {
			s = strconv.FormatUint(uint64(uint32(x)), int(n))
		}
		if upper {
			s = strings.ToUpper(s)
		}
		return s
	default:
		return v.AsString()
	}
}
