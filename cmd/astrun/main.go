package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/teris-io/cli"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/arduinoast"
	"arduinoast.dev/core/pkg/command"
	"arduinoast.dev/core/pkg/interpreter"
	"arduinoast.dev/core/pkg/platform"
)

var Description = strings.ReplaceAll(`
astrun loads a sketch (.ino/.cpp source, or a pre-compiled .astbin) and drives
it against a simulated host: digitalRead/analogRead return a fixed line
state, millis/micros report wall-clock time since start, and every emitted
command is printed to stdout as one JSON object per line.
`, "\n", " ")

var AstRun = cli.New(Description).
	WithArg(cli.NewArg("input", "The sketch (.ino/.cpp) or compiled (.astbin) file to run").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("platform", "Target platform profile (ARDUINO_UNO, ESP32_NANO)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("max-loop", "Maximum loop() iterations before LOOP_LIMIT_REACHED").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	profileName := strings.ToUpper(options["platform"])
	if profileName == "" {
		profileName = "ARDUINO_UNO"
	}
	profile, ok := platform.Lookup(profileName)
	if !ok {
		fmt.Printf("ERROR: Unknown platform profile '%s'\n", profileName)
		return -1
	}

	input := args[0]
	content, err := os.ReadFile(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	root, err := loadProgram(input, content, profile)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	maxLoop := 3
	if raw := options["max-loop"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			maxLoop = n
		}
	}

	it := arduinoast.NewInterpreter(root, profile, arduinoast.InterpreterOptions{MaxLoopIterations: maxLoop})

	host := newSimHost()
	it.OnCommand(func(c command.Command) {
		line, _ := json.Marshal(flattenCommand(c))
		fmt.Println(string(line))
		host.handle(it, c)
	})

	start := time.Now()
	it.Start()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for it.State() != interpreter.StateComplete && it.State() != interpreter.StateError {
		<-ticker.C
		it.Tick(time.Since(start).Milliseconds())
	}
	it.Wait()

	return 0
}

// loadProgram parses a .ino/.cpp source file, or deserializes a pre-compiled
// .astbin, depending on the input file's extension.
func loadProgram(path string, content []byte, profile platform.Profile) (ast.Node, error) {
	if filepath.Ext(path) == ".astbin" {
		return arduinoast.ParseCompactAST(content)
	}
	root, errs, err := arduinoast.Parse(string(content), arduinoast.ParseOptions{
		Platform:           profile,
		EnablePreprocessor: true,
	})
	for _, e := range errs {
		fmt.Printf("WARNING: %s (line %d, col %d)\n", e.Message, e.Line, e.Column)
	}
	return root, err
}

func flattenCommand(c command.Command) map[string]any {
	out := map[string]any{"type": string(c.Type), "timestamp": c.Timestamp}
	for k, v := range c.Fields {
		out[k] = v
	}
	return out
}

func main() { os.Exit(AstRun.Run(os.Args, os.Stdout)) }
