package library_test

import (
	"testing"

	"arduinoast.dev/core/pkg/library"
)

func TestLookupKnownLibraries(t *testing.T) {
	registry := library.NewRegistry()

	test := func(class, method string, expectedKind library.Kind, found bool) {
		spec, ok := registry.Lookup(class, method)
		if ok != found {
			t.Fatalf("expected Lookup(%s, %s) found=%v, got found=%v", class, method, found, ok)
		}
		if found && spec.Kind != expectedKind {
			t.Errorf("expected %s.%s kind %v, got %v", class, method, expectedKind, spec.Kind)
		}
	}

	test("Serial", "print", library.Computable, true)
	test("Serial", "available", library.External, true)
	test("Adafruit_NeoPixel", "setPixelColor", library.Computable, true)
	test("Adafruit_NeoPixel", "show", library.External, true)
	test("Servo", "write", library.Computable, true)
	test("Wire", "endTransmission", library.External, true)
	test("EEPROM", "read", library.External, true)
	test("Servo", "levitate", library.Computable, false)
	test("NotALibrary", "anything", library.Computable, false)
}

func TestHasReportsRegisteredClasses(t *testing.T) {
	registry := library.NewRegistry()

	for _, class := range []string{"Serial", "Serial1", "Adafruit_NeoPixel", "Servo", "Wire", "SPI", "EEPROM", "LiquidCrystal"} {
		if !registry.Has(class) {
			t.Errorf("expected %s to be a registered class", class)
		}
	}
	if registry.Has("Ethernet") {
		t.Errorf("expected Ethernet to be unregistered")
	}
}

func TestNeoPixelPixelBufferIsComputedLocally(t *testing.T) {
	registry := library.NewRegistry()
	state := map[string]any{}

	setPixel, _ := registry.Lookup("Adafruit_NeoPixel", "setPixelColor")
	if _, err := setPixel.Compute(state, []any{int64(3), int64(0xFF0000)}); err != nil {
		t.Fatalf("unexpected error from setPixelColor: %v", err)
	}

	getPixel, _ := registry.Lookup("Adafruit_NeoPixel", "getPixelColor")
	result, err := getPixel.Compute(state, []any{int64(3)})
	if err != nil {
		t.Fatalf("unexpected error from getPixelColor: %v", err)
	}
	if result != int64(0xFF0000) {
		t.Errorf("expected pixel 3 to read back 0xFF0000, got %v", result)
	}
}

func TestServoTracksLastWrittenAngle(t *testing.T) {
	registry := library.NewRegistry()
	state := map[string]any{}

	write, _ := registry.Lookup("Servo", "write")
	write.Compute(state, []any{int64(90)})

	read, _ := registry.Lookup("Servo", "read")
	result, err := read.Compute(state, nil)
	if err != nil {
		t.Fatalf("unexpected error from Servo.read: %v", err)
	}
	if result != int64(90) {
		t.Errorf("expected Servo.read to report the last written angle 90, got %v", result)
	}
}
