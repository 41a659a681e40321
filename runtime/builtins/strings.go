package builtins

import (
	"strings"

	"github.com/opal-lang/sketchvm/runtime/value"
)

// String methods are registered under "String.<method>" and receive the
// string as Call.Receiver.
func stringEntries() []Entry {
	str := func(c Call) string { return c.Receiver.AsString() }
	text := func(v value.Value) string {
		if v.Kind == value.KindInt && v.Char {
			return string(rune(byte(v.Int)))
		}
		return v.AsString()
	}

	mutator := func(name string, minArgs, maxArgs int, fn func(s string, c Call) string) Entry {
		return Entry{
			Name: "String." + name, Kind: KindSync, MinArgs: minArgs, MaxArgs: maxArgs,
			Writeback: WritebackReceiver,
			Sync: func(_ Context, c Call) (value.Value, error) {
				return value.String(fn(str(c), c)), nil
			},
		}
	}

	return []Entry{
		syncEntry("String.length", 0, 0, func(_ Context, c Call) (value.Value, error) {
			return value.Int(int32(len(str(c)))), nil
		}),
		syncEntry("String.charAt", 1, 1, func(_ Context, c Call) (value.Value, error) {
			s, i := str(c), int(c.Arg(0).AsInt())
			if i < 0 || i >= len(s) {
				return value.Char(0), nil
			}
			return value.Char(s[i]), nil
		}),
		syncEntry("String.indexOf", 1, 2, func(_ Context, c Call) (value.Value, error) {
			s, from := str(c), int(c.Arg(1).AsInt())
			if from < 0 || from > len(s) {
				return value.Int(-1), nil
			}
			i := strings.Index(s[from:], text(c.Arg(0)))
			if i < 0 {
				return value.Int(-1), nil
			}
			return value.Int(int32(i + from)), nil
		}),
		syncEntry("String.lastIndexOf", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Int(int32(strings.LastIndex(str(c), text(c.Arg(0))))), nil
		}),
		syncEntry("String.substring", 1, 2, func(_ Context, c Call) (value.Value, error) {
			s := str(c)
			from, to := int(c.Arg(0).AsInt()), len(s)
			if len(c.Args) == 2 {
				to = int(c.Arg(1).AsInt())
			}
			if from > to {
				from, to = to, from
			}
			from, to = max(from, 0), min(to, len(s))
			if from >= to {
				return value.String(""), nil
			}
			return value.String(s[from:to]), nil
		}),
		syncEntry("String.equals", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Bool(str(c) == text(c.Arg(0))), nil
		}),
		syncEntry("String.equalsIgnoreCase", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Bool(strings.EqualFold(str(c), text(c.Arg(0)))), nil
		}),
		syncEntry("String.startsWith", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Bool(strings.HasPrefix(str(c), text(c.Arg(0)))), nil
		}),
		syncEntry("String.endsWith", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Bool(strings.HasSuffix(str(c), text(c.Arg(0)))), nil
		}),
		syncEntry("String.compareTo", 1, 1, func(_ Context, c Call) (value.Value, error) {
			return value.Int(int32(strings.Compare(str(c), text(c.Arg(0))))), nil
		}),
		syncEntry("String.toInt", 0, 0, func(_ Context, c Call) (value.Value, error) {
			return value.Int(value.String(str(c)).AsInt()), nil
		}),
		syncEntry("String.toFloat", 0, 0, func(_ Context, c Call) (value.Value, error) {
			return value.Double(value.String(str(c)).AsDouble()), nil
		}),
		syncEntry("String.c_str", 0, 0, func(_ Context, c Call) (value.Value, error) {
			return value.String(str(c)), nil
		}),

		mutator("toUpperCase", 0, 0, func(s string, _ Call) string { return strings.ToUpper(s) }),
		mutator("toLowerCase", 0, 0, func(s string, _ Call) string { return strings.ToLower(s) }),
		mutator("trim", 0, 0, func(s string, _ Call) string { return strings.TrimSpace(s) }),
		mutator("concat", 1, 1, func(s string, c Call) string { return s + text(c.Arg(0)) }),
		mutator("replace", 2, 2, func(s string, c Call) string {
			return strings.ReplaceAll(s, text(c.Arg(0)), text(c.Arg(1)))
		}),
		mutator("remove", 1, 2, func(s string, c Call) string {
			from := int(c.Arg(0).AsInt())
			if from < 0 || from >= len(s) {
				return s
			}
			to := len(s)
			if len(c.Args) == 2 {
				to = min(from+int(c.Arg(1).AsInt()), len(s))
			}
			return s[:from] + s[to:]
		}),
	}
}
