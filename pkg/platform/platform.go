// Package platform holds the named, immutable platform profiles that seed the
// preprocessor's macro table and the interpreter's global scope (spec §4.5).
package platform

// ----------------------------------------------------------------------------
// General information

// A Profile bundles everything a board-family contributes before parsing starts:
// pre-defined macros (BOARD names, feature flags), named pin identifiers, the
// capability set for each pin, and hints about which libraries the board ships
// with. Two profiles are required by spec §4.5: Uno and ESP32Nano; additional
// profiles can be registered at startup via Register, per spec §6.4.
type Capability string

const (
	CapDigitalIO Capability = "digital_io"
	CapAnalogIn  Capability = "analog_in"
	CapPWM       Capability = "pwm"
	CapI2C       Capability = "i2c"
	CapSPI       Capability = "spi"
	CapUART      Capability = "uart"
)

type Profile struct {
	Name            string
	Defines         map[string]string
	Pins            map[string]int
	PinCapabilities map[int]map[Capability]bool
	LibraryHints    []string
}

var registry = map[string]Profile{}

func init() {
	Register(ArduinoUno.Name, ArduinoUno)
	Register(ESP32Nano.Name, ESP32Nano)
}

// Register makes a profile available by name, satisfying spec §6.4's
// "extensible by registering a new profile at startup".
func Register(name string, p Profile) { registry[name] = p }

// Lookup returns a previously registered profile.
func Lookup(name string) (Profile, bool) {
	p, ok := registry[name]
	return p, ok
}

func withCaps(caps ...Capability) map[Capability]bool {
	m := map[Capability]bool{}
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// ArduinoUno models the ATmega328P-based Uno: 14 digital pins (6 PWM-capable),
// 6 analog inputs, one hardware UART, one I2C and one SPI bus.
var ArduinoUno = Profile{
	Name: "ARDUINO_UNO",
	Defines: map[string]string{
		"ARDUINO_UNO": "1", "ARDUINO_ARCH_AVR": "1", "F_CPU": "16000000L",
		"__AVR_ATmega328P__": "1",
	},
	Pins: map[string]int{
		"LED_BUILTIN": 13,
		"A0": 14, "A1": 15, "A2": 16, "A3": 17, "A4": 18, "A5": 19,
		"SDA": 18, "SCL": 19,
	},
	PinCapabilities: map[int]map[Capability]bool{
		0: withCaps(CapDigitalIO, CapUART), 1: withCaps(CapDigitalIO, CapUART),
		3: withCaps(CapDigitalIO, CapPWM), 5: withCaps(CapDigitalIO, CapPWM),
		6: withCaps(CapDigitalIO, CapPWM), 9: withCaps(CapDigitalIO, CapPWM),
		10: withCaps(CapDigitalIO, CapPWM), 11: withCaps(CapDigitalIO, CapPWM, CapSPI),
		12: withCaps(CapDigitalIO, CapSPI), 13: withCaps(CapDigitalIO, CapSPI),
		14: withCaps(CapAnalogIn), 15: withCaps(CapAnalogIn), 16: withCaps(CapAnalogIn),
		17: withCaps(CapAnalogIn), 18: withCaps(CapAnalogIn, CapI2C), 19: withCaps(CapAnalogIn, CapI2C),
	},
	LibraryHints: []string{"Serial", "Wire", "SPI", "EEPROM", "Servo"},
}

// ESP32Nano models an ESP32-class board with ~512KB RAM plus external PSRAM,
// as called out in spec §1 for embedded hosts.
var ESP32Nano = Profile{
	Name: "ESP32_NANO",
	Defines: map[string]string{
		"ESP32_NANO": "1", "ARDUINO_ARCH_ESP32": "1", "CONFIG_IDF_TARGET_ESP32": "1",
		"ESP32": "1",
	},
	Pins: map[string]int{
		"LED_BUILTIN": 2,
		"A0": 36, "A1": 39, "A2": 34, "A3": 35, "A4": 32, "A5": 33,
		"SDA": 21, "SCL": 22,
	},
	PinCapabilities: map[int]map[Capability]bool{
		2: withCaps(CapDigitalIO, CapPWM), 4: withCaps(CapDigitalIO, CapPWM),
		5: withCaps(CapDigitalIO, CapPWM, CapSPI), 18: withCaps(CapDigitalIO, CapSPI),
		19: withCaps(CapDigitalIO, CapSPI), 21: withCaps(CapDigitalIO, CapI2C),
		22: withCaps(CapDigitalIO, CapI2C),
		32: withCaps(CapAnalogIn), 33: withCaps(CapAnalogIn), 34: withCaps(CapAnalogIn),
		35: withCaps(CapAnalogIn), 36: withCaps(CapAnalogIn), 39: withCaps(CapAnalogIn),
	},
	LibraryHints: []string{"Serial", "Wire", "SPI", "EEPROM", "Servo", "NeoPixel"},
}

// Arduino level constants shared by every profile (spec §4.7.2 "Arduino constants").
var CommonConstants = map[string]int64{
	"HIGH": 1, "LOW": 0,
	"INPUT": 0, "OUTPUT": 1, "INPUT_PULLUP": 2,
	"TRUE": 1, "FALSE": 0,
	"LSBFIRST": 0, "MSBFIRST": 1,
}
