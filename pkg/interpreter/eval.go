package interpreter

import (
	"fmt"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/command"
	"arduinoast.dev/core/pkg/library"
	"arduinoast.dev/core/pkg/platform"
)

// evalExpr evaluates a single expression node per the rules in spec §4.7.2.
func (it *Interpreter) evalExpr(n ast.Node, scope *Scope) Value {
	switch n.Type() {
	case ast.NumberLiteral:
		return numberValue(n.GetValue())
	case ast.StringLiteral:
		return Str(n.GetValue().Str)
	case ast.CharLiteral:
		return Int(n.GetValue().I64)
	case ast.Constant:
		v := n.GetValue()
		if v.Kind == ast.VNull {
			return Null()
		}
		return Bool(v.Bool)
	case ast.Identifier:
		return it.resolveIdentifier(n.GetValue().Str, scope)
	case ast.BinaryOp:
		return it.evalBinary(n, scope)
	case ast.UnaryOp:
		return it.evalUnary(n, scope)
	case ast.Postfix:
		return it.evalPostfix(n, scope)
	case ast.Assignment:
		return it.evalAssignment(n, scope)
	case ast.Ternary:
		cond := it.evalExpr(n.Named()["condition"], scope)
		if toBool(cond) {
			return it.evalExpr(n.Named()["consequent"], scope)
		}
		return it.evalExpr(n.Named()["alternate"], scope)
	case ast.Comma:
		children := n.Children()
		var last Value
		for _, c := range children {
			last = it.evalExpr(c, scope)
		}
		return last
	case ast.FuncCall:
		return it.evalCall(n, scope)
	case ast.ConstructorCall:
		return it.evalConstructorCall(n, scope)
	case ast.ArrayAccess:
		obj := it.evalExpr(n.Named()["object"], scope)
		idx := toInt(it.evalExpr(n.Named()["index"], scope))
		if obj.Kind == KindArray && idx >= 0 && int(idx) < len(obj.Elems) {
			return obj.Elems[idx]
		}
		return Void()
	case ast.MemberAccess:
		// Bare member-access expressions (not part of a call) only arise for
		// constant lookups like Serial1.something in this dialect; the object
		// is not evaluated and the result is Void since there is no general
		// struct model.
		return Void()
	case ast.ArrayInitializer:
		var elems []Value
		for _, c := range n.Children() {
			elems = append(elems, it.evalExpr(c, scope))
		}
		return Array(elems)
	case ast.Sizeof:
		return Int(4) // no real type system: every operand reports a 4-byte placeholder size
	case ast.Error:
		return Void()
	default:
		return Void()
	}
}

func numberValue(v ast.Value) Value {
	switch v.Kind {
	case ast.VFloat32, ast.VFloat64:
		return Float(v.F64)
	case ast.VUint32:
		return Int(int64(v.U32))
	default:
		return Int(v.I64)
	}
}

// resolveIdentifier checks, in order: lexical scope, the profile's named pins
// (LED_BUILTIN, A0, ...), common constants (HIGH/LOW/...), the profile's
// defines (which resolve to 1), then known library constants — spec §4.5's
// platform profile feeds identifier resolution alongside normal variables.
func (it *Interpreter) resolveIdentifier(name string, scope *Scope) Value {
	if v, ok := scope.lookup(name); ok {
		return v
	}
	if pin, ok := it.profile.Pins[name]; ok {
		return Int(int64(pin))
	}
	if v, ok := platform.CommonConstants[name]; ok {
		return Int(v)
	}
	if _, ok := it.profile.Defines[name]; ok {
		return Int(1)
	}
	if v, ok := knownLibraryConstants[name]; ok {
		return Int(v)
	}
	return Void()
}

// knownLibraryConstants covers the handful of non-platform named constants a
// sketch references directly (e.g. Adafruit_NeoPixel's color-order flags),
// grounded on the same constants pkg/preprocess.knownLibraries injects as
// macros when #include activates a library.
var knownLibraryConstants = map[string]int64{
	"NEO_GRB": 0x52, "NEO_RGB": 0x06, "NEO_KHZ800": 0x0000,
}

func (it *Interpreter) evalBinary(n ast.Node, scope *Scope) Value {
	op := n.(*ast.OperatorNode).Operator
	left := it.evalExpr(n.Named()["left"], scope)

	switch op {
	case "&&":
		if !toBool(left) {
			return Bool(false)
		}
		return Bool(toBool(it.evalExpr(n.Named()["right"], scope)))
	case "||":
		if toBool(left) {
			return Bool(true)
		}
		return Bool(toBool(it.evalExpr(n.Named()["right"], scope)))
	}

	right := it.evalExpr(n.Named()["right"], scope)
	if (op == "/" || op == "%") && isZero(right) {
		it.emit(command.ErrorCmd(it.now, "division by zero", command.RuntimeError))
	}
	return applyBinary(op, left, right)
}

// isZero reports whether a value is the numeric zero that makes '/' and '%'
// undefined; spec §8's boundary behavior requires an ERROR command (and a 0
// result) rather than a panic or a silently wrong answer.
func isZero(v Value) bool {
	return toNumber(v) == 0
}

func applyBinary(op string, left, right Value) Value {
	switch op {
	case "+":
		if left.Kind == KindString || right.Kind == KindString {
			return Str(toString(left) + toString(right))
		}
		return numericResult(toNumber(left)+toNumber(right), isFloaty(left, right))
	case "-":
		return numericResult(toNumber(left)-toNumber(right), isFloaty(left, right))
	case "*":
		return numericResult(toNumber(left)*toNumber(right), isFloaty(left, right))
	case "/":
		r := toNumber(right)
		if r == 0 {
			return numericResult(0, isFloaty(left, right))
		}
		return numericResult(toNumber(left)/r, isFloaty(left, right))
	case "%":
		r := toInt(right)
		if r == 0 {
			return Int(0)
		}
		return Int(toInt(left) % r)
	case "==":
		return Bool(valuesEqual(left, right))
	case "!=":
		return Bool(!valuesEqual(left, right))
	case "<":
		return Bool(toNumber(left) < toNumber(right))
	case ">":
		return Bool(toNumber(left) > toNumber(right))
	case "<=":
		return Bool(toNumber(left) <= toNumber(right))
	case ">=":
		return Bool(toNumber(left) >= toNumber(right))
	case "&":
		return Int(toInt(left) & toInt(right))
	case "|":
		return Int(toInt(left) | toInt(right))
	case "^":
		return Int(toInt(left) ^ toInt(right))
	case "<<":
		return Int(toInt(left) << uint(toInt(right)))
	case ">>":
		return Int(toInt(left) >> uint(toInt(right)))
	default:
		return Void()
	}
}

func valuesEqual(a, b Value) bool {
	if a.Kind == KindString || b.Kind == KindString {
		return toString(a) == toString(b)
	}
	if a.Kind == KindBool || b.Kind == KindBool {
		return toBool(a) == toBool(b)
	}
	return toNumber(a) == toNumber(b)
}

func (it *Interpreter) evalUnary(n ast.Node, scope *Scope) Value {
	op := n.(*ast.OperatorNode).Operator
	operandNode := n.Named()["operand"]

	switch op {
	case "!":
		return Bool(!toBool(it.evalExpr(operandNode, scope)))
	case "-":
		v := it.evalExpr(operandNode, scope)
		return numericResult(-toNumber(v), v.Kind == KindFloat)
	case "~":
		return Int(^toInt(it.evalExpr(operandNode, scope)))
	case "*", "&":
		// No pointer/address-of model: both are transparent pass-throughs.
		return it.evalExpr(operandNode, scope)
	case "++", "--":
		name := identifierName(operandNode)
		cur := it.evalExpr(operandNode, scope)
		delta := int64(1)
		if op == "--" {
			delta = -1
		}
		updated := numericResult(toNumber(cur)+float64(delta), cur.Kind == KindFloat)
		if name != "" {
			scope.assign(name, updated)
		}
		return updated
	}
	return Void()
}

func (it *Interpreter) evalPostfix(n ast.Node, scope *Scope) Value {
	op := n.(*ast.OperatorNode).Operator
	operandNode := n.Named()["operand"]
	name := identifierName(operandNode)
	cur := it.evalExpr(operandNode, scope)
	delta := int64(1)
	if op == "--" {
		delta = -1
	}
	updated := numericResult(toNumber(cur)+float64(delta), cur.Kind == KindFloat)
	if name != "" {
		scope.assign(name, updated)
	}
	return cur
}

func identifierName(n ast.Node) string {
	if n.Type() == ast.Identifier {
		return n.GetValue().Str
	}
	return ""
}

func (it *Interpreter) evalAssignment(n ast.Node, scope *Scope) Value {
	op := n.(*ast.OperatorNode).Operator
	lhs := n.Named()["left"]
	rhs := it.evalExpr(n.Named()["right"], scope)

	name := identifierName(lhs)
	if name == "" {
		// Array-element assignment: a[i] = v.
		if lhs.Type() == ast.ArrayAccess {
			it.assignArrayElement(lhs, rhs, op, scope)
		}
		return rhs
	}

	result := rhs
	if op != "=" {
		cur := it.evalExpr(lhs, scope)
		result = applyBinary(compoundBaseOp(op), cur, rhs)
	}
	scope.assign(name, result)
	it.emit(command.VarSetCmd(it.now, name, nativeValue(result)))
	return result
}

func (it *Interpreter) assignArrayElement(lhs ast.Node, rhs Value, op string, scope *Scope) {
	objName := identifierName(lhs.Named()["object"])
	if objName == "" {
		return
	}
	obj, ok := scope.lookup(objName)
	if !ok || obj.Kind != KindArray {
		return
	}
	idx := int(toInt(it.evalExpr(lhs.Named()["index"], scope)))
	if idx < 0 || idx >= len(obj.Elems) {
		return
	}
	result := rhs
	if op != "=" {
		result = applyBinary(compoundBaseOp(op), obj.Elems[idx], rhs)
	}
	obj.Elems[idx] = result
	scope.assign(objName, obj)
}

func compoundBaseOp(op string) string {
	if len(op) >= 2 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

// ----------------------------------------------------------------------------
// Calls

func (it *Interpreter) evalCall(n ast.Node, scope *Scope) Value {
	callee := n.Named()["callee"]
	argNodes := n.Children()[1:]

	if callee.Type() == ast.MemberAccess {
		return it.evalMethodCall(callee, argNodes, scope)
	}

	name := identifierName(callee)
	args := make([]Value, 0, len(argNodes))
	for _, a := range argNodes {
		args = append(args, it.evalExpr(a, scope))
	}

	if fn, ok := it.functions[name]; ok {
		it.emit(command.FuncCallStart(it.now, name, toAnySlice(args), it.loopIteration))
		result := it.callFunction(fn, args)
		it.emit(command.FuncCallComplete(it.now, name, it.loopIteration))
		return result
	}

	if v, handled := it.callBuiltin(name, args); handled {
		return v
	}

	it.emit(command.ErrorCmd(it.now, "call to undefined function "+name, command.LinkError))
	return Void()
}

func toAnySlice(vals []Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = toString(v)
	}
	return out
}

func (it *Interpreter) evalMethodCall(memberAccess ast.Node, argNodes []ast.Node, scope *Scope) Value {
	objNode := memberAccess.Named()["object"]
	method := identifierName(memberAccess.Named()["property"])

	args := make([]Value, 0, len(argNodes))
	for _, a := range argNodes {
		args = append(args, it.evalExpr(a, scope))
	}

	className, instanceID := it.resolveInstance(objNode, scope)
	if className == "" {
		it.emit(command.ErrorCmd(it.now, "call to unknown library object", command.LibraryError))
		return Void()
	}

	if (className == "Serial" || className == "Serial1") && (method == "print" || method == "println") {
		text := ""
		if len(args) > 0 {
			text = toString(args[0])
		}
		format := "DEC"
		if len(args) > 1 {
			format = toString(args[1])
		}
		if method == "println" {
			it.emit(command.SerialPrintlnCmd(it.now, text, format))
		} else {
			it.emit(command.SerialPrintCmd(it.now, text, format))
		}
		return Void()
	}

	spec, ok := it.registry.Lookup(className, method)
	if !ok {
		it.emit(command.ErrorCmd(it.now, fmt.Sprintf("unknown method %s.%s", className, method), command.LibraryError))
		return Void()
	}

	inst := it.instances[instanceID]
	if spec.Kind == library.Computable {
		result, err := spec.Compute(inst.state, toAnySliceRaw(args))
		if err != nil {
			it.emit(command.ErrorCmd(it.now, err.Error(), command.LibraryError))
			return Void()
		}
		return FromHost(result)
	}

	id := it.requests.NewID(string(command.LibraryMethodRequest), it.now)
	cmd := command.LibraryMethodReq(it.now, className, instanceID, method, toAnySliceRaw(args), id)
	return it.awaitResponse(cmd, id, it.defaultTimeoutMs)
}

// resolveInstance identifies the (className, instanceID) pair an object
// expression refers to: either a variable bound to a constructed instance,
// or a bare class name used as a static singleton (Serial, Serial1).
func (it *Interpreter) resolveInstance(objNode ast.Node, scope *Scope) (string, string) {
	name := identifierName(objNode)
	if name == "" {
		return "", ""
	}
	if v, ok := scope.lookup(name); ok && v.Kind == KindString {
		if inst, ok := it.instances[v.S]; ok {
			return inst.class, v.S
		}
	}
	if it.registry.Has(name) {
		if _, ok := it.instances[name]; !ok {
			it.instances[name] = &instance{class: name, state: map[string]any{}}
		}
		return name, name
	}
	return "", ""
}

func (it *Interpreter) evalConstructorCall(n ast.Node, scope *Scope) Value {
	children := n.Children()
	if len(children) == 0 {
		return Void()
	}
	className := children[0].GetValue().Str
	if !it.registry.Has(className) {
		it.emit(command.ErrorCmd(it.now, "unknown library class "+className, command.LibraryError))
		return Void()
	}
	it.instanceSeq++
	id := fmt.Sprintf("%s#%d", className, it.instanceSeq)
	it.instances[id] = &instance{class: className, state: map[string]any{}}
	return Str(id)
}

func toAnySliceRaw(vals []Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		switch v.Kind {
		case KindInt:
			out[i] = v.I
		case KindFloat:
			out[i] = v.F
		case KindBool:
			out[i] = v.B
		default:
			out[i] = toString(v)
		}
	}
	return out
}

// awaitResponse issues a request and blocks the interpreter goroutine until
// it resolves or times out, per spec §4.7.4 steps 3-6.
func (it *Interpreter) awaitResponse(cmd command.Command, id string, timeoutMs int64) Value {
	pending := it.requests.Open(id, string(cmd.Type), it.now, timeoutMs)
	prev := it.State()
	it.setState(StateWaitingForResponse)
	it.emit(cmd)
	value, err := pending.Wait()
	it.setState(prev)
	if err != nil {
		it.emit(command.ErrorCmd(it.now, err.Error(), command.IOError))
		return Void()
	}
	return FromHost(value)
}
