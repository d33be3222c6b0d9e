// Package library models the Arduino library surface the interpreter
// recognizes (spec §4.4, §4.7.3): Serial/Serial1, NeoPixel-style strips,
// Servo, Wire, SPI, EEPROM and LiquidCrystal. Each method is classified as
// either computable locally (pure function of its arguments and the
// instance's tracked state) or external (must round-trip through the host
// via a LIBRARY_METHOD_REQUEST, spec §3.6).
package library

import (
	"math"

	"github.com/samber/lo"
)

// Kind distinguishes where a method's result comes from.
type Kind int

const (
	Computable Kind = iota
	External
)

// MethodKey identifies a (library, method) pair. lo.Tuple2 is used directly
// as the registry key (rather than a hand-rolled struct) since it is already
// comparable and this mirrors how the pack's cc/v4-driven generator keys its
// intrinsic tables by (header, symbol) pairs.
type MethodKey = lo.Tuple2[string, string]

// MethodSpec describes one library method's dispatch rule.
type MethodSpec struct {
	Kind Kind
	// Compute runs for Kind == Computable. It receives the instance's
	// tracked state (mutated in place) and the call arguments, and returns
	// the method's result value.
	Compute func(state map[string]any, args []any) (any, error)
}

// ClassSpec describes one library class: its name and its method table.
type ClassSpec struct {
	Name    string
	Methods map[string]MethodSpec
}

// Registry is the set of recognized library classes, keyed by class name
// (e.g. "Servo", "Adafruit_NeoPixel").
type Registry struct {
	classes map[string]ClassSpec
	methods map[MethodKey]MethodSpec
}

func NewRegistry() *Registry {
	r := &Registry{
		classes: map[string]ClassSpec{},
		methods: map[MethodKey]MethodSpec{},
	}
	r.registerSerial()
	r.registerNeoPixel()
	r.registerServo()
	r.registerWire()
	r.registerSPI()
	r.registerEEPROM()
	r.registerLCD()
	return r
}

func (r *Registry) register(class ClassSpec) {
	r.classes[class.Name] = class
	for method, spec := range class.Methods {
		r.methods[lo.Tuple2[string, string]{A: class.Name, B: method}] = spec
	}
}

// Lookup returns the dispatch rule for a (class, method) call.
func (r *Registry) Lookup(class, method string) (MethodSpec, bool) {
	spec, ok := r.methods[lo.Tuple2[string, string]{A: class, B: method}]
	return spec, ok
}

// Classes returns the names of every registered library class, in no
// particular order.
func (r *Registry) Classes() []string {
	return lo.Keys(r.classes)
}

// Has reports whether className names a recognized library class, per
// the library detection described in spec §4.2/§4.4.
func (r *Registry) Has(className string) bool {
	_, ok := r.classes[className]
	return ok
}

// ----------------------------------------------------------------------------
// Serial / Serial1: println/print are computable (they only format text for
// the command stream); everything reading from the wire is external.

func (r *Registry) registerSerial() {
	methods := map[string]MethodSpec{
		"begin": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
			if len(args) > 0 {
				s["baud"] = args[0]
			}
			return nil, nil
		}},
		// print/println only format text for the SERIAL_PRINT(LN) command;
		// the interpreter builds that command directly from the call's
		// arguments rather than through Compute, so both are no-ops here.
		"print":      {Kind: Computable, Compute: noop},
		"println":    {Kind: Computable, Compute: noop},
		"available":  {Kind: External},
		"read":       {Kind: External},
		"readString": {Kind: External},
		"parseInt":   {Kind: External},
	}
	r.register(ClassSpec{Name: "Serial", Methods: methods})
	r.register(ClassSpec{Name: "Serial1", Methods: methods})
}

// ----------------------------------------------------------------------------
// NeoPixel-style addressable strips: pixel buffer math is computable, the
// physical show() flush is external (it represents a real I/O write).

func (r *Registry) registerNeoPixel() {
	r.register(ClassSpec{
		Name: "Adafruit_NeoPixel",
		Methods: map[string]MethodSpec{
			"begin": {Kind: Computable, Compute: noop},
			"setPixelColor": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				pixels, _ := s["pixels"].(map[int64]int64)
				if pixels == nil {
					pixels = map[int64]int64{}
					s["pixels"] = pixels
				}
				if len(args) >= 2 {
					idx := toInt64(args[0])
					pixels[idx] = toInt64(args[1])
				}
				return nil, nil
			}},
			"getPixelColor": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				pixels, _ := s["pixels"].(map[int64]int64)
				if len(args) >= 1 && pixels != nil {
					return pixels[toInt64(args[0])], nil
				}
				return int64(0), nil
			}},
			"numPixels": {Kind: Computable, Compute: func(s map[string]any, _ []any) (any, error) {
				return s["count"], nil
			}},
			"setBrightness": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				if len(args) > 0 {
					s["brightness"] = args[0]
				}
				return nil, nil
			}},
			"clear": {Kind: Computable, Compute: func(s map[string]any, _ []any) (any, error) {
				s["pixels"] = map[int64]int64{}
				return nil, nil
			}},
			// Color/ColorHSV/gamma8 are static helpers (no instance state):
			// a caller can reach them on a strip object, e.g. strip.Color(r,
			// g, b), but they don't read or mutate s.
			"Color": {Kind: Computable, Compute: func(_ map[string]any, args []any) (any, error) {
				var r, g, b int64
				if len(args) >= 3 {
					r, g, b = toInt64(args[0]), toInt64(args[1]), toInt64(args[2])
				}
				return packRGB(r, g, b), nil
			}},
			"ColorHSV": {Kind: Computable, Compute: func(_ map[string]any, args []any) (any, error) {
				hue := int64(0)
				sat, val := int64(255), int64(255)
				if len(args) >= 1 {
					hue = toInt64(args[0])
				}
				if len(args) >= 2 {
					sat = toInt64(args[1])
				}
				if len(args) >= 3 {
					val = toInt64(args[2])
				}
				r, g, b := hsvToRGB(hue, sat, val)
				return packRGB(r, g, b), nil
			}},
			"gamma8": {Kind: Computable, Compute: func(_ map[string]any, args []any) (any, error) {
				idx := int64(0)
				if len(args) >= 1 {
					idx = toInt64(args[0])
				}
				return int64(neoPixelGamma8(idx)), nil
			}},
			"show": {Kind: External},
		},
	})
}

// packRGB mirrors Adafruit_NeoPixel::Color(r,g,b): pack three 8-bit channels
// into the strip's 32-bit wire format.
func packRGB(r, g, b int64) int64 {
	return ((r & 0xFF) << 16) | ((g & 0xFF) << 8) | (b & 0xFF)
}

// hsvToRGB mirrors Adafruit_NeoPixel::ColorHSV: hue spans the full 16-bit
// wheel (0-65535), sat/val are 8-bit (0-255).
func hsvToRGB(hue, sat, val int64) (r, g, b int64) {
	hue %= 65536
	if hue < 0 {
		hue += 65536
	}

	sector := (hue * 6) >> 16
	remainder := (hue - sector*(65536/6)) * 6

	v1 := val
	v2 := (val * (255 - sat)) >> 8
	v3 := (val * (255 - ((sat * remainder) >> 16))) >> 8
	v4 := (val * (255 - ((sat * (65536 - remainder)) >> 16))) >> 8

	switch sector % 6 {
	case 0:
		return v1, v4, v2
	case 1:
		return v3, v1, v2
	case 2:
		return v2, v1, v4
	case 3:
		return v2, v3, v1
	case 4:
		return v4, v2, v1
	default:
		return v1, v2, v3
	}
}

// neoPixelGammaTable is a gamma=2.8 correction table, generated the same way
// Adafruit_NeoPixel's hardcoded gamma8[] is: out = round(255*(in/255)^2.8).
var neoPixelGammaTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = byte(math.Pow(float64(i)/255.0, 2.8)*255.0 + 0.5)
	}
	return t
}()

func neoPixelGamma8(i int64) byte {
	if i < 0 {
		i = 0
	}
	if i > 255 {
		i = 255
	}
	return neoPixelGammaTable[i]
}

// ----------------------------------------------------------------------------
// Servo: attach/write/read are all pure state tracking, no physical actuator
// feedback is modeled, so everything is computable.

func (r *Registry) registerServo() {
	r.register(ClassSpec{
		Name: "Servo",
		Methods: map[string]MethodSpec{
			"attach": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				if len(args) > 0 {
					s["pin"] = args[0]
				}
				return nil, nil
			}},
			"write": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				if len(args) > 0 {
					s["angle"] = args[0]
				}
				return nil, nil
			}},
			"read": {Kind: Computable, Compute: func(s map[string]any, _ []any) (any, error) {
				if v, ok := s["angle"]; ok {
					return v, nil
				}
				return int64(0), nil
			}},
			"detach": {Kind: Computable, Compute: noop},
		},
	})
}

// ----------------------------------------------------------------------------
// Wire (I2C) and SPI: bus transactions are inherently external, they
// represent real communication with a peripheral the interpreter can't model.

func (r *Registry) registerWire() {
	r.register(ClassSpec{
		Name: "Wire",
		Methods: map[string]MethodSpec{
			"begin":             {Kind: Computable, Compute: noop},
			"beginTransmission": {Kind: Computable, Compute: noop},
			"write":             {Kind: Computable, Compute: noop},
			"endTransmission":   {Kind: External},
			"requestFrom":       {Kind: External},
			"available":         {Kind: External},
			"read":              {Kind: External},
		},
	})
}

func (r *Registry) registerSPI() {
	r.register(ClassSpec{
		Name: "SPI",
		Methods: map[string]MethodSpec{
			"begin":     {Kind: Computable, Compute: noop},
			"transfer":  {Kind: External},
			"beginTransaction": {Kind: Computable, Compute: noop},
			"endTransaction":   {Kind: Computable, Compute: noop},
		},
	})
}

// ----------------------------------------------------------------------------
// EEPROM: persistent storage is modeled as an external round trip on both
// read and write, since its contents outlive a single program run.

func (r *Registry) registerEEPROM() {
	r.register(ClassSpec{
		Name: "EEPROM",
		Methods: map[string]MethodSpec{
			"read":  {Kind: External},
			"write": {Kind: External},
			"update": {Kind: External},
		},
	})
}

// ----------------------------------------------------------------------------
// LiquidCrystal: character-buffer math is computable, the physical display
// refresh is external.

func (r *Registry) registerLCD() {
	r.register(ClassSpec{
		Name: "LiquidCrystal",
		Methods: map[string]MethodSpec{
			"begin": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				if len(args) >= 2 {
					s["cols"], s["rows"] = args[0], args[1]
				}
				return nil, nil
			}},
			"setCursor": {Kind: Computable, Compute: func(s map[string]any, args []any) (any, error) {
				if len(args) >= 2 {
					s["col"], s["row"] = args[0], args[1]
				}
				return nil, nil
			}},
			"print": {Kind: External},
			"clear": {Kind: External},
		},
	})
}

func noop(_ map[string]any, _ []any) (any, error) { return nil, nil }

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
