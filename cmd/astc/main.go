package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"arduinoast.dev/core/pkg/arduinoast"
	"arduinoast.dev/core/pkg/platform"
)

var Description = strings.ReplaceAll(`
The AST Compiler parses a single Arduino/C++ sketch (.ino/.cpp) and emits its
CompactAST binary representation (.astbin), ready to be loaded by astrun or
any other host embedding the interpreter.
`, "\n", " ")

var AstCompiler = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The sketch (.ino/.cpp) file to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.astbin)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("platform", "Target platform profile (ARDUINO_UNO, ESP32_NANO)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("no-preprocess", "Skips the preprocessor pass (#define/#ifdef/#include)").
		WithType(cli.TypeBool)).
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

	_, noPreprocess := options["no-preprocess"]
	root, errs, err := arduinoast.Parse(string(content), arduinoast.ParseOptions{
		Platform:           profile,
		EnablePreprocessor: !noPreprocess,
	})
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}
	for _, e := range errs {
		fmt.Printf("WARNING: %s (line %d, col %d)\n", e.Message, e.Line, e.Column)
	}

	compacted, err := arduinoast.ExportCompactAST(root)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'compactast' pass: %s\n", err)
		return -1
	}

	outPath := options["output"]
	if outPath == "" {
		ext := filepath.Ext(input)
		outPath = strings.TrimSuffix(input, ext) + ".astbin"
	}

	output, err := os.Create(outPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	if _, err := output.Write(compacted); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

func main() { os.Exit(AstCompiler.Run(os.Args, os.Stdout)) }
