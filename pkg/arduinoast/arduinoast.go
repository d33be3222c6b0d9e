// Package arduinoast is the module's public face: spec §6.1's programmatic
// API, re-exported from pkg/lexer, pkg/preprocess, pkg/parser, pkg/compactast
// and pkg/interpreter rather than reimplemented here, so hosts embedding the
// interpreter (cmd/astrun, or a future GUI) can wire the pipeline without
// going through a CLI.
package arduinoast

import (
	"fmt"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/compactast"
	"arduinoast.dev/core/pkg/interpreter"
	"arduinoast.dev/core/pkg/lexer"
	"arduinoast.dev/core/pkg/parser"
	"arduinoast.dev/core/pkg/platform"
	"arduinoast.dev/core/pkg/preprocess"
)

// ParseOptions mirrors spec §6.1's parse(source, { platform, enablePreprocessor }).
type ParseOptions struct {
	Platform           platform.Profile
	EnablePreprocessor bool
}

// Parse lexes, optionally preprocesses, and parses a single translation unit,
// returning the root ast.Node plus any parse errors collected along the way
// (spec §4.6's error-recovery rule: a syntax error yields an ast.ErrorNode in
// place rather than aborting the whole parse).
func Parse(source string, opts ParseOptions) (ast.Node, []*ast.ErrorNode, error) {
	lx := lexer.New(source)
	var tokens []lexer.Token
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}

	meta := preprocess.Metadata{}
	if opts.EnablePreprocessor {
		pp := preprocess.New(opts.Platform)
		tokens, meta = pp.Expand(tokens)
	}

	p := parser.New(tokens)
	root := p.Parse(meta)
	if root == nil {
		return nil, p.Errors(), fmt.Errorf("parse produced no root node")
	}
	return root, p.Errors(), nil
}

// ExportCompactAST serializes a parsed program to the CompactAST binary
// format (spec §3/§6.2).
func ExportCompactAST(root ast.Node) ([]byte, error) {
	return compactast.Export(root)
}

// ParseCompactAST deserializes a CompactAST binary blob back into an ast.Node
// tree, the inverse of ExportCompactAST.
func ParseCompactAST(data []byte) (ast.Node, error) {
	return compactast.Parse(data)
}

// InterpreterOptions mirrors spec §6.1's options bag passed to createInterpreter.
type InterpreterOptions struct {
	MaxLoopIterations int // default 3 for tests, raised by production hosts
	DefaultTimeoutMs  int64
	MillisTimeoutMs   int64
}

// NewInterpreter constructs an Interpreter bound to a parsed program and
// platform profile (spec §6.1's createInterpreter). Its State()/Start/Pause/
// Step/Resume/Stop/OnCommand/OnError/HandleResponse/HandleResponseError
// methods are pkg/interpreter's directly: this constructor exists purely so
// callers never need to import pkg/interpreter themselves.
func NewInterpreter(program ast.Node, profile platform.Profile, opts InterpreterOptions) *interpreter.Interpreter {
	it := interpreter.New(program, profile)
	if opts.MaxLoopIterations > 0 {
		it.SetMaxLoopIterations(opts.MaxLoopIterations)
	}
	it.SetTimeouts(opts.DefaultTimeoutMs, opts.MillisTimeoutMs)
	return it
}
