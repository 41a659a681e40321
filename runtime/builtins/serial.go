package builtins

import (
	"github.com/opal-lang/sketchvm/runtime/command"
	"github.com/opal-lang/sketchvm/runtime/value"
)

// Serial methods are registered once under the "Serial" class; the receiver
// object names the port (Serial, Serial1, ...).
func serialEntries() []Entry {
	port := func(c Call) string { return c.Object("Serial") }

	entries := []Entry{
		syncEntry("Serial.begin", 1, 2, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.SerialBegin{Port: port(c), Baud: c.Arg(0).AsInt()})
			return value.Void(), nil
		}),
		syncEntry("Serial.end", 0, 0, func(_ Context, _ Call) (value.Value, error) {
			return value.Void(), nil
		}),
		syncEntry("Serial.print", 1, 2, func(ctx Context, c Call) (value.Value, error) {
			data := formatValue(c.Arg(0), c.Arg(1), true)
			ctx.Emit(command.SerialPrint{Port: port(c), Data: data})
			return value.Int(int32(len(data))), nil
		}),
		syncEntry("Serial.println", 0, 2, func(ctx Context, c Call) (value.Value, error) {
			data := formatValue(c.Arg(0), c.Arg(1), true)
			ctx.Emit(command.SerialPrintln{Port: port(c), Data: data})
			return value.Int(int32(len(data) + 2)), nil
		}),
		syncEntry("Serial.write", 1, 1, func(ctx Context, c Call) (value.Value, error) {
			data := c.Arg(0).AsString()
			if v := c.Arg(0); v.Kind == value.KindInt {
				data = string(rune(byte(v.Int)))
			}
			ctx.Emit(command.SerialWrite{Port: port(c), Data: data})
			return value.Int(int32(len(data))), nil
		}),
		syncEntry("Serial.flush", 0, 0, func(ctx Context, c Call) (value.Value, error) {
			ctx.Emit(command.SerialFlush{Port: port(c)})
			return value.Void(), nil
		}),
		syncEntry("Serial.setTimeout", 1, 1, func(_ Context, _ Call) (value.Value, error) {
			return value.Void(), nil
		}),
	}

	for _, m := range []struct {
		name   string
		result ResultFunc
	}{
		{"available", asInt},
		{"read", asInt},
		{"peek", asInt},
		{"parseInt", asInt},
		{"parseFloat", func(_ Call, v value.Value) value.Value { return value.Double(v.AsDouble()) }},
		{"readString", func(_ Call, v value.Value) value.Value { return value.String(v.AsString()) }},
		{"readStringUntil", func(_ Call, v value.Value) value.Value { return value.String(v.AsString()) }},
	} {
		method := m.name
		maxArgs := 0
		if method == "readStringUntil" {
			maxArgs = 1
		}
		entries = append(entries, asyncEntry("Serial."+method, 0, maxArgs, func(id string, c Call) command.Request {
			return command.SerialRequest{Port: port(c), Method: method, ID: id}
		}, m.result))
	}
	return entries
}
