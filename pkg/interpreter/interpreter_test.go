package interpreter_test

import (
	"testing"
	"time"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/command"
	"arduinoast.dev/core/pkg/interpreter"
	"arduinoast.dev/core/pkg/platform"
)

// ----------------------------------------------------------------------------
// Small AST builders, just enough to drive the interpreter end to end without
// going through pkg/lexer/pkg/parser.

func ident(name string) ast.Node {
	n := ast.NewNode(ast.Identifier)
	n.SetValue(ast.StringValue(name))
	return n
}

func num(v int64) ast.Node {
	n := ast.NewNode(ast.NumberLiteral)
	n.SetValue(ast.Int64Value(v))
	return n
}

func str(s string) ast.Node {
	n := ast.NewNode(ast.StringLiteral)
	n.SetValue(ast.StringValue(s))
	return n
}

func call(callee string, args ...ast.Node) ast.Node {
	n := ast.NewNode(ast.FuncCall)
	c := ident(callee)
	n.SetChildren(append([]ast.Node{c}, args...))
	n.SetNamed("callee", c)
	return n
}

func exprStmt(expr ast.Node) ast.Node {
	n := ast.NewNode(ast.ExpressionStmt)
	n.SetChildren([]ast.Node{expr})
	return n
}

func block(stmts ...ast.Node) ast.Node {
	n := ast.NewNode(ast.CompoundStmt)
	n.SetChildren(stmts)
	return n
}

func funcDef(name string, body ast.Node) ast.Node {
	n := ast.NewNode(ast.FuncDef)
	n.SetValue(ast.StringValue(name))
	n.SetChildren([]ast.Node{ast.NewNode(ast.Type), body})
	n.SetNamed("name", ident(name))
	n.SetNamed("body", body)
	return n
}

func program(funcs ...ast.Node) ast.Node {
	n := ast.NewNode(ast.Program)
	n.SetChildren(funcs)
	return n
}

// ----------------------------------------------------------------------------

func TestRunEmitsSetupAndLoopBoundaryCommands(t *testing.T) {
	setup := funcDef("setup", block(
		exprStmt(call("pinMode", ident("LED_BUILTIN"), ident("OUTPUT"))),
	))
	loop := funcDef("loop", block(
		exprStmt(call("digitalWrite", ident("LED_BUILTIN"), ident("HIGH"))),
	))

	it := interpreter.New(program(setup, loop), platform.ArduinoUno)
	it.SetMaxLoopIterations(1)
	it.Start()
	it.Wait()

	types := []command.Type{}
	for _, c := range it.Commands() {
		types = append(types, c.Type)
	}

	expectPresent := []command.Type{
		command.VersionInfo, command.ProgramStart, command.SetupStart,
		command.SetupEnd, command.LoopStart, command.PinMode,
		command.DigitalWrite, command.LoopEnd, command.LoopLimitReached,
		command.ProgramEnd,
	}
	for _, want := range expectPresent {
		found := false
		for _, got := range types {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command stream to contain %s, got %v", want, types)
		}
	}

	if it.State() != interpreter.StateComplete {
		t.Errorf("expected final state %s, got %s", interpreter.StateComplete, it.State())
	}
}

func TestPinModeCommandCarriesResolvedConstants(t *testing.T) {
	setup := funcDef("setup", block(
		exprStmt(call("pinMode", ident("LED_BUILTIN"), ident("OUTPUT"))),
	))
	loop := funcDef("loop", block())

	it := interpreter.New(program(setup, loop), platform.ArduinoUno)
	it.SetMaxLoopIterations(1)
	it.Start()
	it.Wait()

	for _, c := range it.Commands() {
		if c.Type != command.PinMode {
			continue
		}
		if c.Fields["pin"] != 13 {
			t.Errorf("expected LED_BUILTIN to resolve to pin 13, got %v", c.Fields["pin"])
		}
		if c.Fields["mode"] != 1 {
			t.Errorf("expected OUTPUT to resolve to 1, got %v", c.Fields["mode"])
		}
		return
	}
	t.Fatalf("expected a PIN_MODE command in the stream")
}

func TestLoopLimitReachedStopsTheLoop(t *testing.T) {
	calls := 0
	loop := funcDef("loop", block(exprStmt(call("delay", num(1)))))
	it := interpreter.New(program(loop), platform.ArduinoUno)
	it.SetMaxLoopIterations(2)
	it.OnCommand(func(c command.Command) {
		if c.Type == command.LoopStart {
			calls++
		}
	})
	it.Start()
	it.Wait()

	if calls != 2 {
		t.Errorf("expected exactly 2 LOOP_START commands before the limit, got %d", calls)
	}

	found := false
	for _, c := range it.Commands() {
		if c.Type == command.LoopLimitReached {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a LOOP_LIMIT_REACHED command once maxLoop is exceeded")
	}
}

func TestDigitalReadSuspendsUntilHandleResponse(t *testing.T) {
	requestIDs := make(chan string, 1)
	setup := funcDef("setup", block(
		exprStmt(call("digitalRead", ident("LED_BUILTIN"))),
	))
	it := interpreter.New(program(setup), platform.ArduinoUno)
	it.SetMaxLoopIterations(0)
	it.OnCommand(func(c command.Command) {
		if c.Type == command.DigitalReadRequest {
			id, _ := c.Fields["requestId"].(string)
			requestIDs <- id
		}
	})
	it.Start()

	var requestID string
	select {
	case requestID = <-requestIDs:
	case <-time.After(time.Second):
		t.Fatalf("expected a DIGITAL_READ_REQUEST to be emitted")
	}
	if it.State() != interpreter.StateWaitingForResponse {
		t.Fatalf("expected state %s while a request is outstanding, got %s", interpreter.StateWaitingForResponse, it.State())
	}

	if ok := it.HandleResponse(requestID, 1); !ok {
		t.Fatalf("expected HandleResponse to match the outstanding request")
	}
	it.Wait()
}

// methodCall builds a FuncCall whose callee is a MemberAccess, the shape
// pkg/parser produces for obj.method(args) call expressions.
func methodCall(object ast.Node, method string, args ...ast.Node) ast.Node {
	member := ast.NewNode(ast.MemberAccess)
	member.SetNamed("object", object)
	member.SetNamed("property", ident(method))

	n := ast.NewNode(ast.FuncCall)
	n.SetChildren(append([]ast.Node{member}, args...))
	n.SetNamed("callee", member)
	return n
}

// caseClause builds a Switch 'case'/'default' clause; test == nil means
// 'default', matching pkg/parser.parseCase's ast.Empty placeholder.
func caseClause(test ast.Node, stmts ...ast.Node) ast.Node {
	if test == nil {
		test = ast.NewNode(ast.Empty)
	}
	n := ast.NewNode(ast.Case)
	n.SetChildren(append([]ast.Node{test}, stmts...))
	n.SetNamed("test", test)
	return n
}

func switchStmt(discriminant ast.Node, cases ...ast.Node) ast.Node {
	n := ast.NewNode(ast.Switch)
	n.SetChildren(append([]ast.Node{discriminant}, cases...))
	n.SetNamed("discriminant", discriminant)
	return n
}

func TestSwitchRunsDefaultWhenNoCaseMatches(t *testing.T) {
	setup := funcDef("setup", block(
		switchStmt(num(2),
			caseClause(num(1), exprStmt(call("digitalWrite", num(1), ident("HIGH"))), ast.NewNode(ast.Break)),
			caseClause(nil, exprStmt(call("digitalWrite", num(2), ident("HIGH")))),
		),
	))
	it := interpreter.New(program(setup), platform.ArduinoUno)
	it.SetMaxLoopIterations(0)
	it.Start()
	it.Wait()

	sawCase1, sawDefault := false, false
	for _, c := range it.Commands() {
		if c.Type != command.DigitalWrite {
			continue
		}
		switch c.Fields["pin"] {
		case 1:
			sawCase1 = true
		case 2:
			sawDefault = true
		}
	}
	if sawCase1 {
		t.Errorf("expected the non-matching case to be skipped")
	}
	if !sawDefault {
		t.Errorf("expected 'default' to run when no case matches")
	}
}

func TestSwitchFallsThroughMatchedCaseIntoDefault(t *testing.T) {
	setup := funcDef("setup", block(
		switchStmt(num(1),
			caseClause(num(1), exprStmt(call("digitalWrite", num(1), ident("HIGH")))),
			caseClause(nil, exprStmt(call("digitalWrite", num(2), ident("HIGH")))),
		),
	))
	it := interpreter.New(program(setup), platform.ArduinoUno)
	it.SetMaxLoopIterations(0)
	it.Start()
	it.Wait()

	sawCase1, sawDefault := false, false
	for _, c := range it.Commands() {
		if c.Type != command.DigitalWrite {
			continue
		}
		switch c.Fields["pin"] {
		case 1:
			sawCase1 = true
		case 2:
			sawDefault = true
		}
	}
	if !sawCase1 || !sawDefault {
		t.Errorf("expected fall-through from the matched case into default, got case1=%v default=%v", sawCase1, sawDefault)
	}
}

func TestDivisionByZeroEmitsRuntimeError(t *testing.T) {
	divExpr := ast.NewOperatorNode(ast.BinaryOp, "/")
	divExpr.SetChildren([]ast.Node{num(10), num(0)})
	divExpr.SetNamed("left", num(10))
	divExpr.SetNamed("right", num(0))

	setup := funcDef("setup", block(exprStmt(divExpr)))
	it := interpreter.New(program(setup), platform.ArduinoUno)
	it.SetMaxLoopIterations(0)
	it.Start()
	it.Wait()

	for _, c := range it.Commands() {
		if c.Type == command.ErrorCommand && c.Fields["errorType"] == string(command.RuntimeError) {
			return
		}
	}
	t.Fatalf("expected an ERROR command with errorType=RuntimeError on division by zero")
}

// TestVarDeclEmitsVarSet mirrors the 'bool c=true; int x = c?10:20;' scenario:
// an initialized VarDecl must emit VAR_SET{name:"x", value:10}.
func TestVarDeclEmitsVarSet(t *testing.T) {
	boolLiteral := func(b bool) ast.Node {
		n := ast.NewNode(ast.Constant)
		n.SetValue(ast.BoolValue(b))
		return n
	}

	cDeclarator := ast.NewNode(ast.Declarator)
	cDeclarator.SetValue(ast.StringValue("c"))
	cDecl := ast.NewNode(ast.VarDecl)
	cDecl.SetChildren([]ast.Node{ast.NewNode(ast.Type), cDeclarator, boolLiteral(true)})

	cond := ident("c")
	consequent, alternate := num(10), num(20)
	ternary := ast.NewNode(ast.Ternary)
	ternary.SetChildren([]ast.Node{cond, consequent, alternate})
	ternary.SetNamed("condition", cond)
	ternary.SetNamed("consequent", consequent)
	ternary.SetNamed("alternate", alternate)

	xDeclarator := ast.NewNode(ast.Declarator)
	xDeclarator.SetValue(ast.StringValue("x"))
	xDecl := ast.NewNode(ast.VarDecl)
	xDecl.SetChildren([]ast.Node{ast.NewNode(ast.Type), xDeclarator, ternary})

	setup := funcDef("setup", block(cDecl, xDecl))
	it := interpreter.New(program(setup), platform.ArduinoUno)
	it.SetMaxLoopIterations(0)
	it.Start()
	it.Wait()

	for _, c := range it.Commands() {
		if c.Type == command.VarSet && c.Fields["name"] == "x" && c.Fields["value"] == int64(10) {
			return
		}
	}
	t.Fatalf("expected VAR_SET{name:x, value:10} for the initialized declaration")
}

func TestSerialPrintlnEmitsWithoutRegistryRoundTrip(t *testing.T) {
	setup := funcDef("setup", block(
		exprStmt(methodCall(ident("Serial"), "println", str("hello"))),
	))
	it := interpreter.New(program(setup), platform.ArduinoUno)
	it.SetMaxLoopIterations(0)
	it.Start()
	it.Wait()

	for _, c := range it.Commands() {
		if c.Type == command.SerialPrintln && c.Fields["data"] == "hello" {
			return
		}
	}
	t.Fatalf("expected a SERIAL_PRINTLN command with data=hello")
}
