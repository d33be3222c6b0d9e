// Package preprocess expands macros, activates libraries from '#include' and
// evaluates conditional compilation (spec §4.2), working on the token stream
// produced by pkg/lexer so macro expansion never re-lexes raw characters.
package preprocess

import (
	"strings"

	"arduinoast.dev/core/pkg/lexer"
	"arduinoast.dev/core/pkg/platform"
)

// ----------------------------------------------------------------------------
// Macro table

type Macro struct {
	Params []string // nil for an object macro
	Body   []lexer.Token
}

func (m Macro) IsFunctionLike() bool { return m.Params != nil }

// Metadata is the side-channel record spec §4.2 says is "available to the AST
// root": the libraries '#include' activated and the final macro table.
type Metadata struct {
	ActiveLibraries []string
	Macros          map[string]string // textual form, used by EvalCondition and diagnostics
}

// Preprocessor expands macros on lexer tokens, never on raw characters. Expand
// rewrites the whole token slice in one pass before parsing starts; expansion
// does not happen lazily at parse-time token fetch.
type Preprocessor struct {
	macros    map[string]Macro
	expanding map[string]bool // masks a macro being expanded against self-recursion
	libraries map[string]bool
	condStack []condFrame
}

type condFrame struct {
	taken    bool // this branch (or an earlier sibling) already matched
	branched bool // currently emitting tokens
}

func New(profile platform.Profile) *Preprocessor {
	p := &Preprocessor{
		macros:    map[string]Macro{},
		expanding: map[string]bool{},
		libraries: map[string]bool{},
	}
	for name, value := range profile.Defines {
		p.macros[name] = Macro{Body: []lexer.Token{{Type: lexer.IntLiteral, Literal: value}}}
	}
	return p
}

// active reports whether tokens are currently being emitted, i.e. every enclosing
// conditional frame is on its matching branch.
func (p *Preprocessor) active() bool {
	for _, f := range p.condStack {
		if !f.branched {
			return false
		}
	}
	return true
}

// Expand runs the full token stream through macro expansion and conditional
// compilation and returns the resulting tokens plus the activation metadata.
func (p *Preprocessor) Expand(tokens []lexer.Token) ([]lexer.Token, Metadata) {
	var out []lexer.Token

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok.Type == lexer.Directive {
			p.handleDirective(tok.Literal)
			continue
		}
		if !p.active() {
			continue
		}
		if tok.Type == lexer.Comment {
			continue
		}
		if tok.Type == lexer.Identifier {
			expanded := p.expandIdentifier(tok, tokens, &i)
			out = append(out, expanded...)
			continue
		}
		out = append(out, tok)
	}

	libs := make([]string, 0, len(p.libraries))
	for name := range p.libraries {
		libs = append(libs, name)
	}
	macroSnapshot := make(map[string]string, len(p.macros))
	for name, m := range p.macros {
		macroSnapshot[name] = renderTokens(m.Body)
	}
	return out, Metadata{ActiveLibraries: libs, Macros: macroSnapshot}
}

func renderTokens(toks []lexer.Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Literal
	}
	return strings.Join(parts, " ")
}

// ----------------------------------------------------------------------------
// Directive handling

func (p *Preprocessor) handleDirective(line string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "#")
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	name := fields[0]
	rest := ""
	if len(fields) > 1 {
		rest = strings.TrimSpace(fields[1])
	}

	switch name {
	case "define":
		if p.active() {
			p.define(rest)
		}
	case "undef":
		if p.active() {
			delete(p.macros, strings.TrimSpace(rest))
		}
	case "include":
		if p.active() {
			p.includeLibrary(rest)
		}
	case "ifdef":
		_, ok := p.macros[strings.TrimSpace(rest)]
		p.condStack = append(p.condStack, condFrame{taken: ok, branched: ok})
	case "ifndef":
		_, ok := p.macros[strings.TrimSpace(rest)]
		p.condStack = append(p.condStack, condFrame{taken: !ok, branched: !ok})
	case "if":
		v, _ := EvalCondition(rest, p.conditionMacros())
		taken := v != 0
		p.condStack = append(p.condStack, condFrame{taken: taken, branched: taken})
	case "elif":
		if len(p.condStack) == 0 {
			return
		}
		top := &p.condStack[len(p.condStack)-1]
		if top.taken {
			top.branched = false
			return
		}
		v, _ := EvalCondition(rest, p.conditionMacros())
		top.branched = v != 0
		top.taken = top.branched
	case "else":
		if len(p.condStack) == 0 {
			return
		}
		top := &p.condStack[len(p.condStack)-1]
		top.branched = !top.taken
		top.taken = true
	case "endif":
		if len(p.condStack) > 0 {
			p.condStack = p.condStack[:len(p.condStack)-1]
		}
	}
}

func (p *Preprocessor) conditionMacros() map[string]string {
	m := make(map[string]string, len(p.macros))
	for name, macro := range p.macros {
		m[name] = renderTokens(macro.Body)
	}
	return m
}

// define parses "NAME value", "NAME(p1,p2) body" forms from spec §4.2.
func (p *Preprocessor) define(rest string) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return
	}

	if paren := strings.IndexByte(rest, '('); paren >= 0 && !strings.ContainsAny(rest[:paren], " \t") {
		closeParen := strings.IndexByte(rest, ')')
		if closeParen < paren {
			return
		}
		name := rest[:paren]
		paramList := rest[paren+1 : closeParen]
		var params []string
		if strings.TrimSpace(paramList) != "" {
			for _, param := range strings.Split(paramList, ",") {
				params = append(params, strings.TrimSpace(param))
			}
		} else {
			params = []string{}
		}
		body := strings.TrimSpace(rest[closeParen+1:])
		p.macros[name] = Macro{Params: params, Body: tokenizeBody(body)}
		return
	}

	parts := strings.SplitN(rest, " ", 2)
	name := strings.TrimSpace(parts[0])
	body := ""
	if len(parts) > 1 {
		body = strings.TrimSpace(parts[1])
	}
	p.macros[name] = Macro{Body: tokenizeBody(body)}
}

func tokenizeBody(body string) []lexer.Token {
	if body == "" {
		return nil
	}
	lx := lexer.New(body)
	var toks []lexer.Token
	for {
		t := lx.Next()
		if t.Type == lexer.EOF {
			break
		}
		toks = append(toks, t)
	}
	return toks
}

// includeLibrary pattern-matches the include path against the library registry
// hints (spec §4.2: "no file I/O; the path is pattern-matched against the library
// registry to activate a library and inject its associated constants as macros").
func (p *Preprocessor) includeLibrary(path string) {
	path = strings.Trim(path, "<>\"")
	name := strings.TrimSuffix(path, ".h")
	if lib, ok := knownLibraries[strings.ToLower(name)]; ok {
		p.libraries[lib.Name] = true
		for k, v := range lib.Constants {
			p.macros[k] = Macro{Body: tokenizeBody(v)}
		}
	}
	// Unknown '#include' paths are a silent no-op: no diagnostic is produced for
	// them, here or in the parser.
}

// ----------------------------------------------------------------------------
// Macro expansion

// expandIdentifier resolves obj/function macros, advancing *i across consumed
// argument tokens for function-like macros. Self-recursive expansion is masked
// via p.expanding, per spec §4.2.
func (p *Preprocessor) expandIdentifier(tok lexer.Token, all []lexer.Token, i *int) []lexer.Token {
	macro, ok := p.macros[tok.Literal]
	if !ok || p.expanding[tok.Literal] {
		return []lexer.Token{tok}
	}

	if !macro.IsFunctionLike() {
		p.expanding[tok.Literal] = true
		defer delete(p.expanding, tok.Literal)
		return p.expandTokens(macro.Body)
	}

	// Function macro: require a parenthesized argument list immediately following.
	j := *i + 1
	if j >= len(all) || !(all[j].Type == lexer.Punctuator && all[j].Literal == "(") {
		// No argument list: the identifier is left unexpanded; no diagnostic is recorded.
		return []lexer.Token{tok}
	}

	args, end := collectArgs(all, j)
	if end < 0 {
		return []lexer.Token{tok}
	}
	*i = end

	substituted := substituteParams(macro, args)
	p.expanding[tok.Literal] = true
	defer delete(p.expanding, tok.Literal)
	return p.expandTokens(substituted)
}

func (p *Preprocessor) expandTokens(toks []lexer.Token) []lexer.Token {
	var out []lexer.Token
	for idx := 0; idx < len(toks); idx++ {
		t := toks[idx]
		if t.Type == lexer.Identifier {
			out = append(out, p.expandIdentifier(t, toks, &idx)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// collectArgs scans a "(" at position open through its matching ")", splitting on
// top-level commas, and returns the raw argument token lists plus the index of the
// closing paren.
func collectArgs(all []lexer.Token, open int) ([][]lexer.Token, int) {
	depth := 0
	var args [][]lexer.Token
	var cur []lexer.Token

	for i := open; i < len(all); i++ {
		t := all[i]
		if t.Type == lexer.Punctuator && t.Literal == "(" {
			depth++
			if depth == 1 {
				continue
			}
		}
		if t.Type == lexer.Punctuator && t.Literal == ")" {
			depth--
			if depth == 0 {
				if len(cur) > 0 || len(args) > 0 {
					args = append(args, cur)
				}
				return args, i
			}
		}
		if depth == 1 && t.Type == lexer.Punctuator && t.Literal == "," {
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, -1
}

// substituteParams does token-for-token parameter substitution (spec §4.2:
// "parameter substitution by token, no stringizing or pasting required").
func substituteParams(macro Macro, args [][]lexer.Token) []lexer.Token {
	index := map[string]int{}
	for i, p := range macro.Params {
		index[p] = i
	}

	var out []lexer.Token
	for _, t := range macro.Body {
		if t.Type == lexer.Identifier {
			if argIdx, ok := index[t.Literal]; ok && argIdx < len(args) {
				out = append(out, args[argIdx]...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// ----------------------------------------------------------------------------
// Library activation table (spec §4.2, §4.7.5)

type libraryHint struct {
	Name      string
	Constants map[string]string
}

var knownLibraries = map[string]libraryHint{
	"arduino": {Name: "Arduino", Constants: map[string]string{}},
	"wire":    {Name: "Wire", Constants: map[string]string{}},
	"spi":     {Name: "SPI", Constants: map[string]string{}},
	"eeprom":  {Name: "EEPROM", Constants: map[string]string{}},
	"servo":   {Name: "Servo", Constants: map[string]string{}},
	"adafruit_neopixel": {Name: "NeoPixel", Constants: map[string]string{
		"NEO_GRB": "0x52", "NEO_RGB": "0x06", "NEO_KHZ800": "0x0000",
	}},
	"liquidcrystal": {Name: "LCD", Constants: map[string]string{}},
}
