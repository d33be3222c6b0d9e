// Package parser implements the recursive-descent, Pratt-precedence parser
// described in spec §4.3/§4.4. It wraps a lower scan step before exposing
// Parse, but is hand-written rather than combinator-based: the grammar needs
// precedence climbing and lookahead-based disambiguation (dangling else,
// '*'/'&' unary-vs-binary, declarator vs expression) that goparsec's flat
// And/OrdChoice rules do not model directly.
package parser

import (
	"strconv"
	"strings"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/lexer"
	"arduinoast.dev/core/pkg/preprocess"
)

// Parser consumes a fully macro-expanded token slice (see pkg/preprocess) and
// produces an *ast.Generic Program node. It peeks at most one token past the
// current one, and backtracks (resets pos) when a declaration attempt does
// not fit.
type Parser struct {
	tokens []lexer.Token
	pos    int
	errors []*ast.ErrorNode
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) at(off int) lexer.Token {
	idx := p.pos + off
	if idx >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) isPunct(lit string) bool {
	return p.cur().Type == lexer.Punctuator && p.cur().Literal == lit
}

func (p *Parser) isKeyword(lit string) bool {
	return p.cur().Type == lexer.Keyword && p.cur().Literal == lit
}

func (p *Parser) expectPunct(lit string) bool {
	if p.isPunct(lit) {
		p.advance()
		return true
	}
	return false
}

// Errors returns every ErrorNode produced during this parse, letting a caller
// scan for diagnostics per spec §4.3.
func (p *Parser) Errors() []*ast.ErrorNode { return p.errors }

func (p *Parser) errorNode(message string) *ast.ErrorNode {
	tok := p.cur()
	n := ast.NewErrorNode(message, tok.Line, tok.Column)
	p.errors = append(p.errors, n)
	return n
}

// recover skips tokens until the next statement terminator, closing brace, or
// EOF, per spec §4.3's error-recovery rule.
func (p *Parser) recover() {
	for p.cur().Type != lexer.EOF {
		if p.isPunct(";") {
			p.advance()
			return
		}
		if p.isPunct("}") {
			return
		}
		p.advance()
	}
}

// ----------------------------------------------------------------------------
// Program

// Parse parses a full translation unit into an ast.Program node. The meta
// argument (library activations + final macro table) is accepted but not
// attached: the root's "activeLibraries" named slot is set to nil and the
// macro table is dropped, so neither reaches CompactAST or the interpreter.
func (p *Parser) Parse(meta preprocess.Metadata) ast.Node {
	program := ast.NewNode(ast.Program)
	program.Named()["activeLibraries"] = nil
	_ = meta // not stored anywhere on the tree

	var decls []ast.Node
	for p.cur().Type != lexer.EOF {
		decls = append(decls, p.parseTopLevel())
	}
	program.SetChildren(decls)
	return program
}

func (p *Parser) parseTopLevel() ast.Node {
	if p.isPunct(";") {
		p.advance()
		return ast.NewNode(ast.Empty)
	}

	start := p.pos
	if decl := p.tryParseDeclOrFunc(); decl != nil {
		return decl
	}
	p.pos = start

	// Fall back to treating the construct as a statement (e.g. a bare expression
	// at top level, unusual but tolerated) with error recovery otherwise.
	stmt := p.parseStatement()
	return stmt
}

// tryParseDeclOrFunc implements spec §4.3's declarator lookahead: a type
// specifier (possibly qualified) followed by an identifier and either '(' (a
// function) or a declarator suffix/'='/';' (a variable). It also accepts the
// "Identifier Identifier (" heuristic for user-defined return types.
func (p *Parser) tryParseDeclOrFunc() ast.Node {
	qualifiers := p.consumeQualifiers()
	if !p.looksLikeTypeStart() {
		return nil
	}
	typeNode := p.parseTypeSpecifier()

	for p.isPunct("*") {
		p.advance()
		typeNode = p.makePointerType(typeNode)
	}

	if p.cur().Type != lexer.Identifier {
		return nil
	}
	name := p.advance().Literal

	if p.isPunct("(") {
		return p.parseFunctionTail(qualifiers, typeNode, name)
	}

	return p.parseVarDeclTail(qualifiers, typeNode, name)
}

func (p *Parser) consumeQualifiers() ast.Flags {
	var flags ast.Flags
	for {
		switch {
		case p.isKeyword("const"):
			flags |= ast.FlagConst
			p.advance()
		case p.isKeyword("static"):
			flags |= ast.FlagStatic
			p.advance()
		case p.isKeyword("volatile"):
			flags |= ast.FlagVolatile
			p.advance()
		case p.isKeyword("extern"):
			flags |= ast.FlagExtern
			p.advance()
		default:
			return flags
		}
	}
}

var builtinTypeWords = map[string]bool{
	"void": true, "int": true, "long": true, "short": true, "float": true,
	"double": true, "char": true, "bool": true, "byte": true, "word": true,
	"boolean": true, "String": true, "unsigned": true, "signed": true,
}

func (p *Parser) looksLikeTypeStart() bool {
	if p.cur().Type == lexer.Keyword && builtinTypeWords[p.cur().Literal] {
		return true
	}
	// "Identifier Identifier (" heuristic (spec §4.3): a type name followed by
	// another identifier is treated as a declarator even for unknown types.
	if p.cur().Type == lexer.Identifier && p.at(1).Type == lexer.Identifier {
		return true
	}
	return false
}

func (p *Parser) parseTypeSpecifier() ast.Node {
	n := ast.NewNode(ast.Type)
	var words []string
	for (p.cur().Type == lexer.Keyword && builtinTypeWords[p.cur().Literal]) ||
		(len(words) == 0 && p.cur().Type == lexer.Identifier && p.at(1).Type != lexer.Punctuator) {
		words = append(words, p.advance().Literal)
		if p.at(0).Type != lexer.Keyword || !builtinTypeWords[p.cur().Literal] {
			break
		}
	}
	if len(words) == 0 && p.cur().Type == lexer.Identifier {
		words = append(words, p.advance().Literal)
	}
	n.SetValue(ast.StringValue(strings.Join(words, " ")))
	return n
}

func (p *Parser) makePointerType(base ast.Node) ast.Node {
	n := ast.NewNode(ast.PointerDeclarator)
	n.SetChildren([]ast.Node{base})
	return n
}

func (p *Parser) parseFunctionTail(flags ast.Flags, returnType ast.Node, name string) ast.Node {
	p.advance() // '('
	var params []ast.Node
	for !p.isPunct(")") && p.cur().Type != lexer.EOF {
		params = append(params, p.parseParam())
		if !p.expectPunct(",") {
			break
		}
	}
	if !p.expectPunct(")") {
		return p.errorNode("expected ')' after parameter list")
	}

	fn := ast.NewNode(ast.FuncDef)
	fn.SetFlags(flags)
	fn.SetValue(ast.StringValue(name))
	fn.SetNamed("name", nameLiteral(name))

	if p.isPunct(";") {
		p.advance()
		decl := ast.NewNode(ast.FuncDecl)
		decl.SetValue(ast.StringValue(name))
		children := append([]ast.Node{returnType}, params...)
		decl.SetChildren(children)
		return decl
	}

	body := p.parseCompoundStmt()
	children := append([]ast.Node{returnType}, params...)
	children = append(children, body)
	fn.SetChildren(children)
	fn.SetNamed("returnType", returnType)
	fn.SetNamed("body", body)
	return fn
}

func nameLiteral(name string) ast.Node {
	n := ast.NewNode(ast.Identifier)
	n.SetValue(ast.StringValue(name))
	return n
}

func (p *Parser) parseParam() ast.Node {
	p.consumeQualifiers()
	typeNode := p.parseTypeSpecifier()
	for p.isPunct("*") {
		p.advance()
		typeNode = p.makePointerType(typeNode)
	}
	param := ast.NewNode(ast.Param)
	children := []ast.Node{typeNode}
	if p.cur().Type == lexer.Identifier {
		decl := ast.NewNode(ast.Declarator)
		decl.SetValue(ast.StringValue(p.advance().Literal))
		if p.isPunct("[") {
			decl = p.parseArraySuffix(decl)
		}
		children = append(children, decl)
	}
	if p.expectPunct("=") {
		children = append(children, p.parseAssignment())
	}
	param.SetChildren(children)
	return param
}

func (p *Parser) parseArraySuffix(decl ast.Node) ast.Node {
	arr := ast.NewNode(ast.ArrayDeclarator)
	kids := []ast.Node{decl}
	for p.isPunct("[") {
		p.advance()
		if !p.isPunct("]") {
			kids = append(kids, p.parseExpression())
		}
		p.expectPunct("]")
	}
	arr.SetChildren(kids)
	return arr
}

func (p *Parser) parseVarDeclTail(flags ast.Flags, typeNode ast.Node, firstName string) ast.Node {
	decl := ast.NewNode(ast.VarDecl)
	decl.SetFlags(flags)
	children := []ast.Node{typeNode}

	declarator := ast.NewNode(ast.Declarator)
	declarator.SetValue(ast.StringValue(firstName))
	if p.isPunct("[") {
		declarator = p.parseArraySuffix(declarator)
	}
	children = append(children, declarator)

	if p.expectPunct("=") {
		children = append(children, p.parseInitializer())
	}

	for p.expectPunct(",") {
		if p.cur().Type != lexer.Identifier {
			break
		}
		name := p.advance().Literal
		d := ast.NewNode(ast.Declarator)
		d.SetValue(ast.StringValue(name))
		if p.isPunct("[") {
			d = p.parseArraySuffix(d)
		}
		children = append(children, d)
		if p.expectPunct("=") {
			children = append(children, p.parseInitializer())
		}
	}

	if !p.expectPunct(";") {
		p.errorNode("expected ';' after variable declaration")
	}
	decl.SetChildren(children)
	return decl
}

func (p *Parser) parseInitializer() ast.Node {
	if p.isPunct("{") {
		return p.parseBraceInitializer()
	}
	return p.parseAssignment()
}

func (p *Parser) parseBraceInitializer() ast.Node {
	p.advance() // '{'
	n := ast.NewNode(ast.ArrayInitializer)
	var elems []ast.Node
	for !p.isPunct("}") && p.cur().Type != lexer.EOF {
		elems = append(elems, p.parseInitializer())
		if !p.expectPunct(",") {
			break
		}
	}
	p.expectPunct("}")
	n.SetChildren(elems)
	return n
}

// ----------------------------------------------------------------------------
// Statements

func (p *Parser) parseStatement() ast.Node {
	switch {
	case p.isPunct("{"):
		return p.parseCompoundStmt()
	case p.isPunct(";"):
		p.advance()
		return ast.NewNode(ast.Empty)
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("do"):
		return p.parseDoWhile()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("switch"):
		return p.parseSwitch()
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("break"):
		p.advance()
		p.expectPunct(";")
		return ast.NewNode(ast.Break)
	case p.isKeyword("continue"):
		p.advance()
		p.expectPunct(";")
		return ast.NewNode(ast.Continue)
	}

	if decl := p.tryParseDeclOrFunc(); decl != nil {
		return decl
	}

	return p.parseExpressionStatement()
}

func (p *Parser) parseCompoundStmt() ast.Node {
	if !p.expectPunct("{") {
		return p.errorNode("expected '{'")
	}
	n := ast.NewNode(ast.CompoundStmt)
	var stmts []ast.Node
	for !p.isPunct("}") && p.cur().Type != lexer.EOF {
		stmts = append(stmts, p.parseStatement())
	}
	if !p.expectPunct("}") {
		p.errorNode("expected '}'")
	}
	n.SetChildren(stmts)
	return n
}

func (p *Parser) parseIf() ast.Node {
	p.advance() // 'if'
	n := ast.NewNode(ast.If)
	if !p.expectPunct("(") {
		return p.errorNode("expected '(' after 'if'")
	}
	cond := p.parseExpression()
	p.expectPunct(")")
	then := p.parseStatement()
	children := []ast.Node{cond, then}
	n.SetNamed("condition", cond)
	n.SetNamed("consequent", then)
	// Dangling else binds to the nearest unmatched 'if', which falls out naturally
	// here since we greedily consume an 'else' right after parsing 'then'.
	if p.isKeyword("else") {
		p.advance()
		alt := p.parseStatement()
		children = append(children, alt)
		n.SetNamed("alternate", alt)
	}
	n.SetChildren(children)
	return n
}

func (p *Parser) parseWhile() ast.Node {
	p.advance()
	n := ast.NewNode(ast.While)
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	body := p.parseStatement()
	n.SetChildren([]ast.Node{cond, body})
	n.SetNamed("condition", cond)
	n.SetNamed("body", body)
	return n
}

func (p *Parser) parseDoWhile() ast.Node {
	p.advance() // 'do'
	n := ast.NewNode(ast.DoWhile)
	body := p.parseStatement()
	if !p.isKeyword("while") {
		return p.errorNode("expected 'while' after 'do' body")
	}
	p.advance()
	p.expectPunct("(")
	cond := p.parseExpression()
	p.expectPunct(")")
	p.expectPunct(";")
	// Child order is swapped relative to While per spec §4.6.4: body, condition.
	n.SetChildren([]ast.Node{body, cond})
	n.SetNamed("condition", cond)
	n.SetNamed("body", body)
	return n
}

func (p *Parser) parseFor() ast.Node {
	p.advance()
	p.expectPunct("(")

	// RangeFor: "for (Type x : iterable)"
	save := p.pos
	if rf := p.tryParseRangeFor(); rf != nil {
		return rf
	}
	p.pos = save

	n := ast.NewNode(ast.For)
	var init ast.Node = ast.NewNode(ast.Empty)
	if !p.isPunct(";") {
		if d := p.tryParseDeclOrFunc(); d != nil {
			init = d
		} else {
			init = p.parseExpressionStatement()
		}
	} else {
		p.advance()
	}

	var cond ast.Node = ast.NewNode(ast.Empty)
	if !p.isPunct(";") {
		cond = p.parseExpression()
	}
	p.expectPunct(";")

	var inc ast.Node = ast.NewNode(ast.Empty)
	if !p.isPunct(")") {
		inc = p.parseExpression()
	}
	p.expectPunct(")")

	body := p.parseStatement()
	n.SetChildren([]ast.Node{init, cond, inc, body})
	n.SetNamed("initializer", init)
	n.SetNamed("condition", cond)
	n.SetNamed("increment", inc)
	n.SetNamed("body", body)
	return n
}

func (p *Parser) tryParseRangeFor() ast.Node {
	p.consumeQualifiers()
	if !p.looksLikeTypeStart() {
		return nil
	}
	typeNode := p.parseTypeSpecifier()
	if p.cur().Type != lexer.Identifier {
		return nil
	}
	name := p.advance().Literal
	if !p.isPunct(":") {
		return nil
	}
	p.advance()
	iterable := p.parseExpression()
	if !p.expectPunct(")") {
		return p.errorNode("expected ')' after range-for")
	}
	body := p.parseStatement()

	variable := ast.NewNode(ast.Declarator)
	variable.SetValue(ast.StringValue(name))
	variable.SetNamed("type", typeNode)

	n := ast.NewNode(ast.RangeFor)
	n.SetChildren([]ast.Node{variable, iterable, body})
	n.SetNamed("variable", variable)
	n.SetNamed("iterable", iterable)
	n.SetNamed("body", body)
	return n
}

func (p *Parser) parseSwitch() ast.Node {
	p.advance()
	n := ast.NewNode(ast.Switch)
	p.expectPunct("(")
	discriminant := p.parseExpression()
	p.expectPunct(")")
	p.expectPunct("{")

	children := []ast.Node{discriminant}
	for !p.isPunct("}") && p.cur().Type != lexer.EOF {
		children = append(children, p.parseCase())
	}
	p.expectPunct("}")
	n.SetChildren(children)
	n.SetNamed("discriminant", discriminant)
	return n
}

func (p *Parser) parseCase() ast.Node {
	n := ast.NewNode(ast.Case)
	var test ast.Node
	if p.isKeyword("default") {
		p.advance()
		test = ast.NewNode(ast.Empty)
	} else if p.isKeyword("case") || (p.cur().Type == lexer.Identifier && p.cur().Literal == "case") {
		p.advance()
		test = p.parseExpression()
	} else {
		p.advance()
		test = ast.NewNode(ast.Empty)
	}
	p.expectPunct(":")

	var body []ast.Node
	for !p.isKeyword("case") && !p.isKeyword("default") && !p.isPunct("}") && p.cur().Type != lexer.EOF {
		body = append(body, p.parseStatement())
	}
	children := append([]ast.Node{test}, body...)
	n.SetChildren(children)
	n.SetNamed("test", test)
	return n
}

func (p *Parser) parseReturn() ast.Node {
	p.advance()
	n := ast.NewNode(ast.Return)
	if !p.isPunct(";") {
		expr := p.parseExpression()
		n.SetChildren([]ast.Node{expr})
		n.SetNamed("expression", expr)
	}
	p.expectPunct(";")
	return n
}

func (p *Parser) parseExpressionStatement() ast.Node {
	expr := p.parseExpression()
	if !p.expectPunct(";") {
		p.errorNode("expected ';' after expression")
		p.recover()
	}
	n := ast.NewNode(ast.ExpressionStmt)
	n.SetChildren([]ast.Node{expr})
	n.SetNamed("expression", expr)
	return n
}

// ----------------------------------------------------------------------------
// Expressions — Pratt precedence climbing

// precedence table, lower binds looser; §4.3 "Pratt-style precedence".
var binPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func (p *Parser) parseExpression() ast.Node {
	expr := p.parseAssignment()
	if p.isPunct(",") {
		n := ast.NewOperatorNode(ast.Comma, ",")
		children := []ast.Node{expr}
		for p.expectPunct(",") {
			children = append(children, p.parseAssignment())
		}
		n.SetChildren(children)
		n.SetNamed("left", children[0])
		n.SetNamed("right", children[len(children)-1])
		return n
	}
	return expr
}

func (p *Parser) parseAssignment() ast.Node {
	lhs := p.parseTernary()
	if p.cur().Type == lexer.Punctuator && assignOps[p.cur().Literal] {
		op := p.advance().Literal
		rhs := p.parseAssignment()
		n := ast.NewOperatorNode(ast.Assignment, op)
		n.SetChildren([]ast.Node{lhs, rhs})
		n.SetNamed("left", lhs)
		n.SetNamed("right", rhs)
		return n
	}
	return lhs
}

func (p *Parser) parseTernary() ast.Node {
	cond := p.parseBinary(1)
	if p.isPunct("?") {
		p.advance()
		then := p.parseAssignment()
		p.expectPunct(":")
		els := p.parseAssignment()
		n := ast.NewNode(ast.Ternary)
		n.SetChildren([]ast.Node{cond, then, els})
		n.SetNamed("condition", cond)
		n.SetNamed("consequent", then)
		n.SetNamed("alternate", els)
		return n
	}
	return cond
}

func (p *Parser) parseBinary(minPrec int) ast.Node {
	lhs := p.parseUnary()
	for {
		op, prec, ok := p.peekBinaryOp()
		if !ok || prec < minPrec {
			return lhs
		}
		p.advance()
		rhs := p.parseBinary(prec + 1)
		n := ast.NewOperatorNode(ast.BinaryOp, op)
		n.SetChildren([]ast.Node{lhs, rhs})
		n.SetNamed("left", lhs)
		n.SetNamed("right", rhs)
		lhs = n
	}
}

// peekBinaryOp resolves '<' as relational. No parser path, parseTypeSpecifier
// and parsePrimary included, recognises template instantiation, so a form
// like Name<Type> is parsed as comparisons.
func (p *Parser) peekBinaryOp() (string, int, bool) {
	if p.cur().Type != lexer.Punctuator {
		return "", 0, false
	}
	op := p.cur().Literal
	prec, ok := binPrecedence[op]
	return op, prec, ok
}

func (p *Parser) parseUnary() ast.Node {
	switch {
	case p.isPunct("!") || p.isPunct("-") || p.isPunct("~"):
		op := p.advance().Literal
		operand := p.parseUnary()
		n := ast.NewOperatorNode(ast.UnaryOp, op)
		n.SetChildren([]ast.Node{operand})
		n.SetNamed("operand", operand)
		return n
	case p.isPunct("+"):
		p.advance()
		return p.parseUnary()
	case p.isPunct("++") || p.isPunct("--"):
		op := p.advance().Literal
		operand := p.parseUnary()
		n := ast.NewOperatorNode(ast.UnaryOp, op)
		n.SetChildren([]ast.Node{operand})
		n.SetNamed("operand", operand)
		return n
	case p.isPunct("*"):
		// Dereference when in unary-operand position, per spec §4.3 disambiguation.
		p.advance()
		operand := p.parseUnary()
		n := ast.NewOperatorNode(ast.UnaryOp, "*")
		n.SetChildren([]ast.Node{operand})
		n.SetNamed("operand", operand)
		return n
	case p.isPunct("&"):
		p.advance()
		operand := p.parseUnary()
		n := ast.NewOperatorNode(ast.UnaryOp, "&")
		n.SetChildren([]ast.Node{operand})
		n.SetNamed("operand", operand)
		return n
	case p.isKeyword("sizeof"):
		p.advance()
		n := ast.NewNode(ast.Sizeof)
		paren := p.expectPunct("(")
		operand := p.parseUnary()
		if paren {
			p.expectPunct(")")
		}
		n.SetChildren([]ast.Node{operand})
		return n
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Node {
	expr := p.parsePrimary()
	for {
		switch {
		case p.isPunct("("):
			expr = p.parseCallTail(expr)
		case p.isPunct("["):
			p.advance()
			index := p.parseExpression()
			p.expectPunct("]")
			n := ast.NewNode(ast.ArrayAccess)
			n.SetChildren([]ast.Node{expr, index})
			n.SetNamed("object", expr)
			n.SetNamed("index", index)
			expr = n
		case p.isPunct(".") || p.isPunct("->"):
			p.advance()
			propName := ""
			if p.cur().Type == lexer.Identifier || p.cur().Type == lexer.Keyword {
				propName = p.advance().Literal
			}
			prop := nameLiteral(propName)
			n := ast.NewNode(ast.MemberAccess)
			n.SetChildren([]ast.Node{expr, prop})
			n.SetNamed("object", expr)
			n.SetNamed("property", prop)
			expr = n
		case p.isPunct("++") || p.isPunct("--"):
			op := p.advance().Literal
			n := ast.NewOperatorNode(ast.Postfix, op)
			n.SetChildren([]ast.Node{expr})
			n.SetNamed("operand", expr)
			expr = n
		default:
			return expr
		}
	}
}

func (p *Parser) parseCallTail(callee ast.Node) ast.Node {
	p.advance() // '('
	var args []ast.Node
	for !p.isPunct(")") && p.cur().Type != lexer.EOF {
		args = append(args, p.parseAssignment())
		if !p.expectPunct(",") {
			break
		}
	}
	p.expectPunct(")")
	n := ast.NewNode(ast.FuncCall)
	children := append([]ast.Node{callee}, args...)
	n.SetChildren(children)
	n.SetNamed("callee", callee)
	return n
}

func (p *Parser) parsePrimary() ast.Node {
	tok := p.cur()
	switch tok.Type {
	case lexer.IntLiteral:
		p.advance()
		return numberLiteral(tok.Literal, false)
	case lexer.FloatLiteral:
		p.advance()
		return numberLiteral(tok.Literal, true)
	case lexer.StringLiteral:
		p.advance()
		n := ast.NewNode(ast.StringLiteral)
		n.SetValue(ast.StringValue(tok.Literal))
		return n
	case lexer.CharLiteral:
		p.advance()
		r, _ := lexer.DecodeCharLiteral(tok.Literal)
		n := ast.NewNode(ast.CharLiteral)
		n.SetValue(ast.Int32Value(int32(r)))
		return n
	case lexer.Keyword:
		if tok.Literal == "true" || tok.Literal == "false" {
			p.advance()
			n := ast.NewNode(ast.Constant)
			n.SetValue(ast.BoolValue(tok.Literal == "true"))
			return n
		}
		if tok.Literal == "new" {
			return p.parseConstructorCall()
		}
		if tok.Literal == "null" || tok.Literal == "NULL" || tok.Literal == "nullptr" {
			p.advance()
			n := ast.NewNode(ast.Constant)
			n.SetValue(ast.Value{Kind: ast.VNull})
			return n
		}
	case lexer.Identifier:
		p.advance()
		return nameLiteral(tok.Literal)
	case lexer.Punctuator:
		if tok.Literal == "(" {
			p.advance()
			inner := p.parseExpression()
			p.expectPunct(")")
			return inner
		}
		if tok.Literal == "{" {
			return p.parseBraceInitializer()
		}
	}

	n := p.errorNode("unexpected token in expression: " + tok.Literal)
	if tok.Type != lexer.EOF {
		p.advance()
	}
	return n
}

func (p *Parser) parseConstructorCall() ast.Node {
	p.advance() // 'new'
	typeNode := p.parseTypeSpecifier()
	n := ast.NewNode(ast.ConstructorCall)
	children := []ast.Node{typeNode}
	if p.expectPunct("(") {
		for !p.isPunct(")") && p.cur().Type != lexer.EOF {
			children = append(children, p.parseAssignment())
			if !p.expectPunct(",") {
				break
			}
		}
		p.expectPunct(")")
	}
	n.SetChildren(children)
	return n
}

func numberLiteral(lit string, isFloat bool) ast.Node {
	n := ast.NewNode(ast.NumberLiteral)
	if isFloat {
		f, _ := strconv.ParseFloat(strings.TrimRight(lit, "fFlL"), 64)
		n.SetValue(ast.Float64Value(f))
		return n
	}

	clean := strings.TrimRight(lit, "uUlL")
	base := 10
	switch {
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		base = 16
		clean = clean[2:]
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		base = 2
		clean = clean[2:]
	case strings.HasPrefix(clean, "0") && len(clean) > 1:
		base = 8
		clean = clean[1:]
	}
	v, err := strconv.ParseInt(clean, base, 64)
	if err != nil {
		if u, uerr := strconv.ParseUint(clean, base, 64); uerr == nil {
			n.SetValue(ast.Uint32Value(uint32(u)))
			return n
		}
		n.SetValue(ast.Int32Value(0))
		return n
	}
	n.SetValue(ast.Int64Value(v))
	return n
}
