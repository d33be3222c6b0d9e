package arduinoast_test

import (
	"testing"

	"arduinoast.dev/core/pkg/arduinoast"
	"arduinoast.dev/core/pkg/command"
	"arduinoast.dev/core/pkg/platform"
)

const blinkSketch = `
void setup() {
  pinMode(LED_BUILTIN, OUTPUT);
}

void loop() {
  digitalWrite(LED_BUILTIN, HIGH);
  delay(1000);
  digitalWrite(LED_BUILTIN, LOW);
  delay(1000);
}
`

func TestParseProducesACompleteProgram(t *testing.T) {
	root, errs, err := arduinoast.Parse(blinkSketch, arduinoast.ParseOptions{
		Platform:           platform.ArduinoUno,
		EnablePreprocessor: true,
	})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no recovery errors, got %v", errs)
	}
	if len(root.Children()) < 2 {
		t.Fatalf("expected at least setup() and loop() at the top level, got %d children", len(root.Children()))
	}
}

func TestExportParseCompactASTRoundTrips(t *testing.T) {
	root, _, err := arduinoast.Parse(blinkSketch, arduinoast.ParseOptions{Platform: platform.ArduinoUno})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	encoded, err := arduinoast.ExportCompactAST(root)
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}

	decoded, err := arduinoast.ParseCompactAST(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(decoded.Children()) != len(root.Children()) {
		t.Fatalf("expected %d top-level children after round trip, got %d", len(root.Children()), len(decoded.Children()))
	}
}

func TestNewInterpreterRunsAParsedProgram(t *testing.T) {
	root, _, err := arduinoast.Parse(blinkSketch, arduinoast.ParseOptions{Platform: platform.ArduinoUno})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	it := arduinoast.NewInterpreter(root, platform.ArduinoUno, arduinoast.InterpreterOptions{MaxLoopIterations: 1})
	it.Start()
	it.Wait()

	sawDigitalWrite := false
	for _, c := range it.Commands() {
		if c.Type == command.DigitalWrite {
			sawDigitalWrite = true
		}
	}
	if !sawDigitalWrite {
		t.Errorf("expected at least one DIGITAL_WRITE command from the blink sketch")
	}
}
