// Package interpreter implements the tree-walking evaluator described in
// spec §3.3/§4.7: scopes, values, control flow, the seven-state execution
// machine, the computable/external built-in split, and the request/response
// protocol that suspends execution while the embedded host answers a query.
//
// It keeps the same split between "building the executable form" (pkg/parser,
// pkg/compactast) and "executing it step by step, one unit of work per call"
// that a two-pass VM would, except the "instructions" are AST nodes and the
// walk is recursive rather than flat; execution state lives in one struct
// rather than spread across globals.
package interpreter

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/command"
	"arduinoast.dev/core/pkg/library"
	"arduinoast.dev/core/pkg/platform"
	"arduinoast.dev/core/pkg/request"
	"arduinoast.dev/core/pkg/utils"
)

type State string

const (
	StateIdle              State = "idle"
	StateRunning           State = "running"
	StatePaused            State = "paused"
	StateStepping          State = "stepping"
	StateWaitingForResponse State = "waitingForResponse"
	StateError             State = "error"
	StateComplete          State = "complete"
)

const (
	defaultRequestTimeoutMs = 5000
	timerRequestTimeoutMs   = 1000 // millis()/micros()
	defaultMaxLoopIterations = 3   // spec §6.4 default for tests; hosts raise it for production runs
)

// signal carries a statement's non-local exit (break/continue/return) up
// through the recursive exec* calls, the role a dedicated jump opcode would
// play in a flat instruction stream, expressed here as Go control flow
// instead of an instruction pointer.
type signalKind int

const (
	sigNone signalKind = iota
	sigBreak
	sigContinue
	sigReturn
)

type flow struct {
	sig signalKind
	ret Value
}

var noFlow = flow{sig: sigNone}

// instance is one constructed library object: Servo, a NeoPixel strip, etc.
type instance struct {
	class string
	state map[string]any
}

// Interpreter walks a parsed program, emitting command.Command values and
// suspending at external-call boundaries via pkg/request.
type Interpreter struct {
	program  ast.Node
	profile  platform.Profile
	registry *library.Registry

	functions map[string]ast.Node
	global    *Scope

	instances  map[string]*instance
	instanceSeq int

	// scopes mirrors the live lexical nesting (global -> function -> block)
	// as a utils.Stack[T] (pkg/utils/stack.go); variable resolution itself
	// still walks Scope.parent directly (cheaper, and correct under
	// recursion). Function and block scopes are pushed and popped here; the
	// global scope is not, and nothing reads the stack back.
	scopes utils.Stack[*Scope]

	requests *request.Table

	mu               sync.Mutex
	state            State
	now              int64
	loopIteration    int
	maxLoop          int
	defaultTimeoutMs int64
	timerTimeoutMs   int64
	commands      []command.Command
	onCommand     func(command.Command)
	onErrorCB     func(command.Command)

	resumeCh chan struct{}
	stopped  bool
	started  bool
	runDone  chan struct{}
}

// New constructs an Interpreter bound to a parsed program and a target
// platform profile (spec §4.5). maxLoopIterations defaults per spec §6.4 and
// can be overridden with SetMaxLoopIterations before Start.
func New(program ast.Node, profile platform.Profile) *Interpreter {
	return &Interpreter{
		program:   program,
		profile:   profile,
		registry:  library.NewRegistry(),
		functions: map[string]ast.Node{},
		instances: map[string]*instance{},
		requests:  request.NewTable(),
		state:     StateIdle,
		maxLoop:   defaultMaxLoopIterations,
		defaultTimeoutMs: defaultRequestTimeoutMs,
		timerTimeoutMs:   timerRequestTimeoutMs,
		resumeCh:  make(chan struct{}, 1),
		runDone:   make(chan struct{}),
	}
}

func (it *Interpreter) SetMaxLoopIterations(n int) { it.maxLoop = n }

// SetTimeouts overrides the default per-request timeouts (spec §6.1's
// options.timeouts). A zero value leaves the corresponding timeout
// unchanged.
func (it *Interpreter) SetTimeouts(defaultMs, millisMs int64) {
	if defaultMs > 0 {
		it.defaultTimeoutMs = defaultMs
	}
	if millisMs > 0 {
		it.timerTimeoutMs = millisMs
	}
}

func (it *Interpreter) OnCommand(cb func(command.Command)) { it.onCommand = cb }
func (it *Interpreter) OnError(cb func(command.Command))   { it.onErrorCB = cb }

func (it *Interpreter) State() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

func (it *Interpreter) setState(s State) {
	it.mu.Lock()
	it.state = s
	it.mu.Unlock()
}

// Commands returns every command emitted so far, in emission order.
func (it *Interpreter) Commands() []command.Command {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]command.Command, len(it.commands))
	copy(out, it.commands)
	return out
}

// Errors returns every ERROR command emitted so far, in emission order, a
// convenience filter over Commands() for hosts that only care about failures.
func (it *Interpreter) Errors() []command.Command {
	return lo.Filter(it.Commands(), func(c command.Command, _ int) bool {
		return c.Type == command.ErrorCommand
	})
}

func (it *Interpreter) emit(c command.Command) {
	it.mu.Lock()
	it.commands = append(it.commands, c)
	cb := it.onCommand
	errCb := it.onErrorCB
	it.mu.Unlock()
	if cb != nil {
		cb(c)
	}
	if c.Type == command.ErrorCommand && errCb != nil {
		errCb(c)
	}
}

// Tick advances the interpreter's notion of time and sweeps the request
// table for timeouts (spec §5, §4.7.4 step 6). The reference host
// (cmd/astrun) calls this from a simple loop driven by time.Now(); nothing
// in this package reads the wall clock itself.
func (it *Interpreter) Tick(nowMillis int64) {
	it.mu.Lock()
	it.now = nowMillis
	it.mu.Unlock()
	it.requests.Sweep(nowMillis)
}

// HandleResponse resolves the currently outstanding request with a value
// from the host (spec §6.1's handleResponse).
func (it *Interpreter) HandleResponse(requestID string, value any) bool {
	return it.requests.Resolve(requestID, value)
}

// HandleResponseError resolves the currently outstanding request with a
// host-reported failure (spec §6.1's handleResponseError).
func (it *Interpreter) HandleResponseError(requestID string, errMsg string) bool {
	return it.requests.Reject(requestID, fmt.Errorf("%s", errMsg))
}

// Start begins executing the program in its own goroutine and returns
// immediately; state transitions and commands arrive via OnCommand/OnError
// as the goroutine progresses. Per spec §5, only one side (interpreter
// goroutine or host) is ever doing interpreter-relevant work at a time — the
// goroutine parks completely while waitingForResponse or paused.
func (it *Interpreter) Start() {
	it.mu.Lock()
	if it.started {
		it.mu.Unlock()
		return
	}
	it.started = true
	it.state = StateRunning
	it.mu.Unlock()
	go it.run()
}

func (it *Interpreter) Pause() {
	it.mu.Lock()
	if it.state == StateRunning {
		it.state = StatePaused
	}
	it.mu.Unlock()
}

func (it *Interpreter) Resume() {
	it.mu.Lock()
	if it.state == StatePaused {
		it.state = StateRunning
	}
	it.mu.Unlock()
	select {
	case it.resumeCh <- struct{}{}:
	default:
	}
}

// Step executes exactly one more statement then returns to paused, per
// spec §4.7.1's stepping state.
func (it *Interpreter) Step() {
	it.mu.Lock()
	it.state = StateStepping
	it.mu.Unlock()
	select {
	case it.resumeCh <- struct{}{}:
	default:
	}
}

// Stop aborts execution, draining the request table with timeout errors
// (spec §5's cancellation rule).
func (it *Interpreter) Stop() {
	it.mu.Lock()
	it.stopped = true
	it.mu.Unlock()
	if p, ok := it.requests.Outstanding(); ok {
		it.requests.Reject(p.ID, fmt.Errorf("interpreter stopped"))
	}
	select {
	case it.resumeCh <- struct{}{}:
	default:
	}
}

// Wait blocks the calling goroutine until the interpreter's run loop exits
// (reached complete or error), useful for hosts driving a batch run.
func (it *Interpreter) Wait() { <-it.runDone }

// ----------------------------------------------------------------------------
// Run loop

func (it *Interpreter) run() {
	defer close(it.runDone)
	defer func() {
		if r := recover(); r != nil {
			it.emit(command.ErrorCmd(it.now, fmt.Sprintf("%v", r), command.RuntimeError))
			it.setState(StateError)
		}
	}()

	it.global = newScope(nil)
	it.bindGlobals()

	it.emit(command.Version(it.now, "arduinoast-interpreter", "1.0", "ok"))
	it.emit(command.ProgramStartCmd(it.now))

	if setupFn, ok := it.functions["setup"]; ok {
		it.emit(command.SetupStartCmd(it.now))
		it.callFunction(setupFn, nil)
		it.emit(command.SetupEndCmd(it.now))
	}

	loopFn, hasLoop := it.functions["loop"]
	for hasLoop {
		if !it.checkpoint() {
			break
		}
		it.loopIteration++
		if it.loopIteration > it.maxLoop {
			it.emit(command.LoopLimitReachedCmd(it.now, it.loopIteration-1))
			break
		}
		it.emit(command.LoopStartCmd(it.now))
		it.emit(command.FuncCallStart(it.now, "loop", nil, it.loopIteration))
		it.callFunction(loopFn, nil)
		it.emit(command.FuncCallComplete(it.now, "loop", it.loopIteration))
		it.emit(command.LoopEndCmd(it.now))
	}

	it.emit(command.ProgramEndCmd(it.now))
	it.setState(StateComplete)
}

// checkpoint is the yield point between statements: it blocks while paused
// or after a single step, and reports whether execution should continue.
func (it *Interpreter) checkpoint() bool {
	it.mu.Lock()
	if it.stopped {
		it.mu.Unlock()
		return false
	}
	state := it.state
	it.mu.Unlock()

	if state != StatePaused && state != StateStepping {
		return true
	}
	<-it.resumeCh
	it.mu.Lock()
	stopped := it.stopped
	wasStepping := it.state == StateStepping
	if wasStepping {
		it.state = StatePaused
	}
	it.mu.Unlock()
	if stopped {
		return false
	}
	_ = wasStepping
	return true
}

// bindGlobals registers every top-level function and evaluates every
// top-level global variable declaration, per spec §4.3's translation-unit
// semantics.
func (it *Interpreter) bindGlobals() {
	for _, child := range it.program.Children() {
		switch child.Type() {
		case ast.FuncDef:
			name := child.GetValue().Str
			it.functions[name] = child
		case ast.VarDecl:
			it.execVarDecl(child, it.global)
		}
	}
}

// ----------------------------------------------------------------------------
// Functions and calls

func (it *Interpreter) callFunction(fn ast.Node, args []Value) Value {
	children := fn.Children()
	if len(children) < 2 {
		return Void()
	}
	params := children[1 : len(children)-1]
	body := children[len(children)-1]

	scope := newScope(it.global)
	it.scopes.Push(scope)
	defer it.scopes.Pop()
	for i, param := range params {
		name := paramName(param)
		if name == "" {
			continue
		}
		var v Value
		if i < len(args) {
			v = args[i]
		} else if def := paramDefault(param); def != nil {
			v = it.evalExpr(def, scope)
		}
		scope.declare(name, v)
	}

	f := it.execBlock(body, scope)
	if f.sig == sigReturn {
		return f.ret
	}
	return Void()
}

func paramName(param ast.Node) string {
	children := param.Children()
	if len(children) < 2 {
		return ""
	}
	return declaratorName(children[1])
}

func paramDefault(param ast.Node) ast.Node {
	children := param.Children()
	if len(children) < 3 {
		return nil
	}
	return children[2]
}

func declaratorName(n ast.Node) string {
	switch n.Type() {
	case ast.Declarator:
		return n.GetValue().Str
	case ast.ArrayDeclarator, ast.PointerDeclarator:
		if kids := n.Children(); len(kids) > 0 {
			return declaratorName(kids[0])
		}
	}
	return n.GetValue().Str
}

// ----------------------------------------------------------------------------
// Statements

func (it *Interpreter) execBlock(n ast.Node, scope *Scope) flow {
	if n.Type() != ast.CompoundStmt {
		return it.execStmt(n, scope)
	}
	inner := newScope(scope)
	it.scopes.Push(inner)
	defer it.scopes.Pop()
	for _, stmt := range n.Children() {
		f := it.execStmt(stmt, inner)
		if f.sig != sigNone {
			return f
		}
	}
	return noFlow
}

func (it *Interpreter) execStmt(n ast.Node, scope *Scope) flow {
	if !it.checkpoint() {
		return flow{sig: sigReturn}
	}

	switch n.Type() {
	case ast.Empty, ast.FuncDecl, ast.Comment:
		return noFlow
	case ast.Error:
		msg := n.(*ast.ErrorNode).Message
		it.emit(command.ErrorCmd(it.now, msg, command.SourceError))
		return noFlow
	case ast.CompoundStmt:
		return it.execBlock(n, scope)
	case ast.VarDecl:
		it.execVarDecl(n, scope)
		return noFlow
	case ast.FuncDef:
		it.functions[n.GetValue().Str] = n
		return noFlow
	case ast.ExpressionStmt:
		it.evalExpr(n.Children()[0], scope)
		return noFlow
	case ast.If:
		return it.execIf(n, scope)
	case ast.While:
		return it.execWhile(n, scope)
	case ast.DoWhile:
		return it.execDoWhile(n, scope)
	case ast.For:
		return it.execFor(n, scope)
	case ast.RangeFor:
		return it.execRangeFor(n, scope)
	case ast.Switch:
		return it.execSwitch(n, scope)
	case ast.Return:
		if kids := n.Children(); len(kids) > 0 {
			return flow{sig: sigReturn, ret: it.evalExpr(kids[0], scope)}
		}
		return flow{sig: sigReturn, ret: Void()}
	case ast.Break:
		return flow{sig: sigBreak}
	case ast.Continue:
		return flow{sig: sigContinue}
	default:
		return noFlow
	}
}

func (it *Interpreter) execVarDecl(n ast.Node, scope *Scope) {
	children := n.Children()
	if len(children) == 0 {
		return
	}
	i := 1
	for i < len(children) {
		decl := children[i]
		name := declaratorName(decl)
		i++
		var v Value = Void()
		initialized := false
		if i < len(children) && !isDeclaratorNode(children[i]) {
			v = it.evalExpr(children[i], scope)
			i++
			initialized = true
		}
		if name != "" {
			scope.declare(name, v)
			if initialized {
				it.emit(command.VarSetCmd(it.now, name, nativeValue(v)))
			}
		}
	}
}

func isDeclaratorNode(n ast.Node) bool {
	switch n.Type() {
	case ast.Declarator, ast.ArrayDeclarator, ast.PointerDeclarator:
		return true
	default:
		return false
	}
}

func (it *Interpreter) execIf(n ast.Node, scope *Scope) flow {
	cond := n.Named()["condition"]
	consequent := n.Named()["consequent"]
	alternate := n.Named()["alternate"]

	cv := it.evalExpr(cond, scope)
	result := toBool(cv)
	branch := "else"
	if result {
		branch = "then"
	}
	it.emit(command.IfStatementCmd(it.now, toString(cv), result, branch))

	if result {
		return it.execBlock(consequent, scope)
	}
	if alternate != nil {
		return it.execBlock(alternate, scope)
	}
	return noFlow
}

func (it *Interpreter) execWhile(n ast.Node, scope *Scope) flow {
	cond := n.Named()["condition"]
	body := n.Named()["body"]
	for toBool(it.evalExpr(cond, scope)) {
		if !it.checkpoint() {
			return flow{sig: sigReturn}
		}
		f := it.execBlock(body, scope)
		if f.sig == sigBreak {
			break
		}
		if f.sig == sigReturn {
			return f
		}
	}
	return noFlow
}

func (it *Interpreter) execDoWhile(n ast.Node, scope *Scope) flow {
	cond := n.Named()["condition"]
	body := n.Named()["body"]
	for {
		f := it.execBlock(body, scope)
		if f.sig == sigBreak {
			break
		}
		if f.sig == sigReturn {
			return f
		}
		if !toBool(it.evalExpr(cond, scope)) {
			break
		}
	}
	return noFlow
}

func (it *Interpreter) execFor(n ast.Node, scope *Scope) flow {
	inner := newScope(scope)
	init := n.Named()["initializer"]
	cond := n.Named()["condition"]
	inc := n.Named()["increment"]
	body := n.Named()["body"]

	if init != nil {
		it.execStmt(init, inner)
	}
	for cond == nil || cond.Type() == ast.Empty || toBool(it.evalExpr(cond, inner)) {
		if !it.checkpoint() {
			return flow{sig: sigReturn}
		}
		f := it.execBlock(body, inner)
		if f.sig == sigBreak {
			break
		}
		if f.sig == sigReturn {
			return f
		}
		if inc != nil && inc.Type() != ast.Empty {
			it.evalExpr(inc, inner)
		}
	}
	return noFlow
}

func (it *Interpreter) execRangeFor(n ast.Node, scope *Scope) flow {
	variable := n.Named()["variable"]
	iterable := n.Named()["iterable"]
	body := n.Named()["body"]

	name := declaratorName(variable)
	collection := it.evalExpr(iterable, scope)
	if collection.Kind != KindArray {
		return noFlow
	}
	for _, elem := range collection.Elems {
		inner := newScope(scope)
		inner.declare(name, elem)
		if !it.checkpoint() {
			return flow{sig: sigReturn}
		}
		f := it.execBlock(body, inner)
		if f.sig == sigBreak {
			break
		}
		if f.sig == sigReturn {
			return f
		}
	}
	return noFlow
}

func (it *Interpreter) execSwitch(n ast.Node, scope *Scope) flow {
	discriminant := n.Named()["discriminant"]
	dv := it.evalExpr(discriminant, scope)
	it.emit(command.SwitchStatementCmd(it.now, toString(dv)))

	children := n.Children()
	cases := children[1:]

	// First pass: evaluate every case test (emitting the diagnostic for each)
	// and record which case matches, and where 'default' sits, without
	// running any statement yet — 'default' only fires once we know whether
	// some earlier/later case already matched.
	matchIndex := -1
	defaultIndex := -1
	for i, c := range cases {
		test := c.Named()["test"]
		isDefault := test == nil || test.Type() == ast.Empty
		if isDefault {
			defaultIndex = i
			continue
		}
		tv := it.evalExpr(test, scope)
		caseMatch := valuesEqual(dv, tv)
		it.emit(command.SwitchCaseCmd(it.now, toString(tv), caseMatch))
		if caseMatch && matchIndex == -1 {
			matchIndex = i
		}
	}

	start := matchIndex
	if start == -1 {
		start = defaultIndex
	}
	if start == -1 {
		return noFlow
	}

	for _, c := range cases[start:] {
		for _, stmt := range c.Children()[1:] {
			f := it.execStmt(stmt, scope)
			if f.sig == sigBreak {
				return noFlow
			}
			if f.sig == sigReturn || f.sig == sigContinue {
				return f
			}
		}
	}
	return noFlow
}
