package builtins

import "github.com/opal-lang/sketchvm/runtime/value"

// Libraries returns the bundled library classes.
func Libraries() []Library {
	return []Library{
		{
			Name:        "Servo",
			Methods:     []string{"attach", "detach", "write", "writeMicroseconds"},
			DataMethods: []string{"read", "readMicroseconds", "attached"},
		},
		{
			Name: "LiquidCrystal",
			Methods: []string{
				"begin", "clear", "home", "setCursor", "print", "write",
				"cursor", "noCursor", "blink", "noBlink", "display", "noDisplay",
				"scrollDisplayLeft", "scrollDisplayRight", "createChar",
			},
		},
		{
			Name: "Adafruit_NeoPixel",
			Methods: []string{
				"begin", "show", "clear", "setPixelColor", "setBrightness", "fill",
			},
			DataMethods: []string{"numPixels", "getPixelColor", "getBrightness", "Color", "ColorHSV"},
			Constants: map[string]value.Value{
				"NEO_RGB":    value.Int(0x06),
				"NEO_GRB":    value.Int(0x52),
				"NEO_RGBW":   value.Int(0x1B),
				"NEO_GRBW":   value.Int(0xD2),
				"NEO_KHZ800": value.Int(0x0000),
				"NEO_KHZ400": value.Int(0x0100),
			},
		},
	}
}
