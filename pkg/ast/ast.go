// Package ast defines the node taxonomy produced by pkg/parser and consumed
// by pkg/compactast and pkg/interpreter.
package ast

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the AST node model.
//
// Every node, whatever its concrete kind, carries the same four things: a type tag
// (NodeType), an optional primitive Value, an ordered list of positional Children and
// a set of named Children (semantic slots such as "left"/"right" or "callee"), plus a
// Flags byte. This is the shape the CompactAST codec round-trips bit-for-bit, so the
// shape itself lives here rather than being reconstructed ad-hoc by each component.
type NodeType uint8

const (
	Program NodeType = 0x01
	Error   NodeType = 0x02
	Comment NodeType = 0x03

	CompoundStmt   NodeType = 0x10
	ExpressionStmt NodeType = 0x11
	If             NodeType = 0x12
	While          NodeType = 0x13
	DoWhile        NodeType = 0x14
	For            NodeType = 0x15
	RangeFor       NodeType = 0x16
	Switch         NodeType = 0x17
	Case           NodeType = 0x18
	Return         NodeType = 0x19
	Break          NodeType = 0x1A
	Continue       NodeType = 0x1B
	Empty          NodeType = 0x1C

	VarDecl  NodeType = 0x20
	FuncDef  NodeType = 0x21
	FuncDecl NodeType = 0x22
	Struct   NodeType = 0x23
	Enum     NodeType = 0x24
	Class    NodeType = 0x25
	Typedef  NodeType = 0x26
	Template NodeType = 0x27

	BinaryOp   NodeType = 0x30
	UnaryOp    NodeType = 0x31
	Assignment NodeType = 0x32
	FuncCall   NodeType = 0x33
	MemberAccess NodeType = 0x34
	ArrayAccess  NodeType = 0x35
	Cast         NodeType = 0x36
	Sizeof       NodeType = 0x37
	Ternary      NodeType = 0x38

	NumberLiteral    NodeType = 0x40
	StringLiteral    NodeType = 0x41
	CharLiteral      NodeType = 0x42
	Identifier       NodeType = 0x43
	Constant         NodeType = 0x44
	ArrayInitializer NodeType = 0x45

	Type                     NodeType = 0x50
	Declarator               NodeType = 0x51
	Param                    NodeType = 0x52
	Postfix                  NodeType = 0x53
	StructType               NodeType = 0x54
	FunctionPointerDeclarator NodeType = 0x55
	Comma                    NodeType = 0x56
	ArrayDeclarator          NodeType = 0x57
	PointerDeclarator        NodeType = 0x58
	ConstructorCall          NodeType = 0x59
)

// Human readable name, used by diagnostics and by the CompactAST fixture tests.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

var nodeTypeNames = map[NodeType]string{
	Program: "Program", Error: "Error", Comment: "Comment",
	CompoundStmt: "CompoundStmt", ExpressionStmt: "ExpressionStmt", If: "If",
	While: "While", DoWhile: "DoWhile", For: "For", RangeFor: "RangeFor",
	Switch: "Switch", Case: "Case", Return: "Return", Break: "Break",
	Continue: "Continue", Empty: "Empty",
	VarDecl: "VarDecl", FuncDef: "FuncDef", FuncDecl: "FuncDecl", Struct: "Struct",
	Enum: "Enum", Class: "Class", Typedef: "Typedef", Template: "Template",
	BinaryOp: "BinaryOp", UnaryOp: "UnaryOp", Assignment: "Assignment",
	FuncCall: "FuncCall", MemberAccess: "MemberAccess", ArrayAccess: "ArrayAccess",
	Cast: "Cast", Sizeof: "Sizeof", Ternary: "Ternary",
	NumberLiteral: "NumberLiteral", StringLiteral: "StringLiteral",
	CharLiteral: "CharLiteral", Identifier: "Identifier", Constant: "Constant",
	ArrayInitializer: "ArrayInitializer",
	Type: "Type", Declarator: "Declarator", Param: "Param", Postfix: "Postfix",
	StructType: "StructType", FunctionPointerDeclarator: "FunctionPointerDeclarator",
	Comma: "Comma", ArrayDeclarator: "ArrayDeclarator",
	PointerDeclarator: "PointerDeclarator", ConstructorCall: "ConstructorCall",
}

// ----------------------------------------------------------------------------
// Flags

// Flags byte, bit0 is reserved by the CompactAST wire format to mean "has children"
// and bit1 to mean "has value" (see pkg/compactast); bits 2+ are free for semantic
// flags such as binding qualifiers copied onto VarDecl/Param nodes.
type Flags uint8

const (
	FlagHasChildren Flags = 1 << 0
	FlagHasValue    Flags = 1 << 1
	FlagConst       Flags = 1 << 2
	FlagStatic      Flags = 1 << 3
	FlagVolatile    Flags = 1 << 4
	FlagExtern      Flags = 1 << 5
)

// ----------------------------------------------------------------------------
// Value

// A literal/operator payload attached to a node. Operator nodes (BinaryOp, UnaryOp,
// Assignment, Postfix) always carry their operator here as a Str value per the
// invariant in spec §3.2. The CompactAST value-type tags in pkg/compactast are
// width-based rather than one per Kind: integers are written in the narrowest
// tag that holds them and read back as VInt64 (VUint32 for the UINT32 tag).
type ValueKind uint8

const (
	VNone ValueKind = iota
	VBool
	VInt32
	VInt64
	VUint32
	VFloat32
	VFloat64
	VString
	VNull
)

type Value struct {
	Kind ValueKind
	Bool bool
	I64  int64
	U32  uint32
	F64  float64
	Str  string
}

func NoValue() Value              { return Value{Kind: VNone} }
func BoolValue(b bool) Value      { return Value{Kind: VBool, Bool: b} }
func Int32Value(v int32) Value    { return Value{Kind: VInt32, I64: int64(v)} }
func Int64Value(v int64) Value    { return Value{Kind: VInt64, I64: v} }
func Uint32Value(v uint32) Value  { return Value{Kind: VUint32, U32: v} }
func Float32Value(v float32) Value { return Value{Kind: VFloat32, F64: float64(v)} }
func Float64Value(v float64) Value { return Value{Kind: VFloat64, F64: v} }
func StringValue(s string) Value  { return Value{Kind: VString, Str: s} }

// ----------------------------------------------------------------------------
// Node

// Node is the common interface every concrete AST node satisfies. Child indices are
// stable and meaningful per node kind, see the table in spec §4.6.4; this package
// only guarantees storage, pkg/parser and pkg/compactast are responsible for wiring
// positional children into the right named slots.
type Node interface {
	Type() NodeType
	GetValue() Value
	SetValue(Value)
	GetFlags() Flags
	SetFlags(Flags)
	Children() []Node
	SetChildren([]Node)
	Named() map[string]Node
	SetNamed(string, Node)
}

// BaseNode is embedded by every concrete node struct and implements the bulk
// of the Node interface, so the shared bookkeeping (kind, value, children,
// named slots) lives once instead of being repeated per node kind; CompactAST
// needs to walk every node generically regardless of its concrete type.
type BaseNode struct {
	Kind     NodeType
	Value    Value
	Flags    Flags
	Kids     []Node
	NamedKids map[string]Node
}

func NewBase(kind NodeType) BaseNode { return BaseNode{Kind: kind, NamedKids: map[string]Node{}} }

func (n *BaseNode) Type() NodeType        { return n.Kind }
func (n *BaseNode) GetValue() Value       { return n.Value }
func (n *BaseNode) SetValue(v Value)      { n.Value = v }
func (n *BaseNode) GetFlags() Flags       { return n.Flags }
func (n *BaseNode) SetFlags(f Flags)      { n.Flags = f }
func (n *BaseNode) Children() []Node      { return n.Kids }
func (n *BaseNode) SetChildren(c []Node)  { n.Kids = c }
func (n *BaseNode) Named() map[string]Node {
	if n.NamedKids == nil {
		n.NamedKids = map[string]Node{}
	}
	return n.NamedKids
}
func (n *BaseNode) SetNamed(slot string, child Node) {
	if n.NamedKids == nil {
		n.NamedKids = map[string]Node{}
	}
	n.NamedKids[slot] = child
}

// Generic node used for every kind that has no operator-specific payload of its own
// (CompoundStmt, If, While, For, FuncCall, VarDecl, ...). A handful of kinds below
// get their own thin wrapper purely so call sites read like "ast.NewOperatorNode(...)"
// instead of "ast.Generic{...}" everywhere.
type Generic struct{ BaseNode }

func NewNode(kind NodeType) *Generic { return &Generic{NewBase(kind)} }

// Operator node: BinaryOp, UnaryOp, Assignment, Postfix. The operator is always
// stored as the node's string Value, per the invariant in spec §3.2 and the
// "known hazard" callout in spec §4.6.5.
type OperatorNode struct {
	BaseNode
	Operator string
}

func NewOperatorNode(kind NodeType, operator string) *OperatorNode {
	n := &OperatorNode{BaseNode: NewBase(kind), Operator: operator}
	n.Value = StringValue(operator)
	return n
}

func (n *OperatorNode) SetValue(v Value) {
	n.BaseNode.SetValue(v)
	if v.Kind == VString {
		n.Operator = v.Str
	}
}

// ErrorNode replaces a construct the parser could not recover from a syntax error,
// per spec §4.3 "Error recovery". Interpreting one emits an ERROR command (§4.7.7).
type ErrorNode struct {
	BaseNode
	Message string
	Line    int
	Column  int
}

func NewErrorNode(message string, line, column int) *ErrorNode {
	n := &ErrorNode{BaseNode: NewBase(Error), Message: message, Line: line, Column: column}
	n.Value = StringValue(message)
	return n
}

// Walk visits node and every descendant depth-first pre-order (the same order
// CompactAST serializes nodes in), following positional children only; named
// children are not visited.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}

// FindErrors scans an AST for ErrorNodes, letting a caller detect "parsed with
// errors" per spec §4.3 ("the caller can scan for errors").
func FindErrors(root Node) []*ErrorNode {
	var errs []*ErrorNode
	Walk(root, func(n Node) {
		if e, ok := n.(*ErrorNode); ok {
			errs = append(errs, e)
		}
	})
	return errs
}
