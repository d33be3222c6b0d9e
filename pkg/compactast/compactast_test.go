package compactast_test

import (
	"testing"

	"arduinoast.dev/core/pkg/ast"
	"arduinoast.dev/core/pkg/compactast"
)

func roundTrip(t *testing.T, name string, root ast.Node) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		encoded, err := compactast.Export(root)
		if err != nil {
			t.Fatalf("unexpected error exporting: %v", err)
		}

		decoded, err := compactast.Parse(encoded)
		if err != nil {
			t.Fatalf("unexpected error parsing: %v", err)
		}

		assertEqual(t, root, decoded)
	})
}

func TestExportParseRoundTrip(t *testing.T) {
	binOp := ast.NewOperatorNode(ast.BinaryOp, "+")
	left := ast.NewNode(ast.NumberLiteral)
	left.SetValue(ast.Int64Value(2))
	right := ast.NewNode(ast.NumberLiteral)
	right.SetValue(ast.Int64Value(40))
	binOp.SetChildren([]ast.Node{left, right})
	binOp.SetNamed("left", left)
	binOp.SetNamed("right", right)

	stmt := ast.NewNode(ast.ExpressionStmt)
	stmt.SetChildren([]ast.Node{binOp})

	body := ast.NewNode(ast.CompoundStmt)
	body.SetChildren([]ast.Node{stmt})

	loop := ast.NewNode(ast.FuncDef)
	loop.SetValue(ast.StringValue("loop"))
	loop.SetChildren([]ast.Node{ast.NewNode(ast.Type), body})

	root := ast.NewNode(ast.Program)
	root.SetChildren([]ast.Node{loop})

	roundTrip(t, "single function with a binary expression", root)

	str := ast.NewNode(ast.StringLiteral)
	str.SetValue(ast.StringValue("hello, world"))
	onlyString := ast.NewNode(ast.Program)
	onlyString.SetChildren([]ast.Node{str})
	roundTrip(t, "string literal payload", onlyString)
}

// TestFuncCallRetainsEveryArgument guards a specific hazard: a FuncCall's
// callee is re-linked into a named slot on read, but every argument must
// still come back as a positional child, not just the callee.
func TestFuncCallRetainsEveryArgument(t *testing.T) {
	callee := ast.NewNode(ast.Identifier)
	callee.SetValue(ast.StringValue("digitalWrite"))
	arg0 := ast.NewNode(ast.Identifier)
	arg0.SetValue(ast.StringValue("LED_BUILTIN"))
	arg1 := ast.NewNode(ast.Identifier)
	arg1.SetValue(ast.StringValue("HIGH"))
	arg2 := ast.NewNode(ast.NumberLiteral)
	arg2.SetValue(ast.Int64Value(3))

	call := ast.NewNode(ast.FuncCall)
	call.SetChildren([]ast.Node{callee, arg0, arg1, arg2})
	call.SetNamed("callee", callee)

	root := ast.NewNode(ast.Program)
	root.SetChildren([]ast.Node{call})

	roundTrip(t, "func call with three arguments", root)
}

// TestRoundTripCoversEveryNodeKind exercises compactast.Export/Parse once per
// ast.NodeType (spec §4.6.4's fixture-suite requirement), so a kind the
// writer/reader mishandles (wrong value tag, dropped children, wrong
// materialized concrete type) fails here instead of only on a real sketch.
func TestRoundTripCoversEveryNodeKind(t *testing.T) {
	ident := func(name string) ast.Node {
		n := ast.NewNode(ast.Identifier)
		n.SetValue(ast.StringValue(name))
		return n
	}
	num := func(v int64) ast.Node {
		n := ast.NewNode(ast.NumberLiteral)
		n.SetValue(ast.Int64Value(v))
		return n
	}
	leaf := func(kind ast.NodeType) ast.Node { return ast.NewNode(kind) }

	fixtures := []struct {
		name string
		node ast.Node
	}{
		{"Error", ast.NewErrorNode("unexpected token", 4, 2)},
		{"Comment", func() ast.Node {
			n := ast.NewNode(ast.Comment)
			n.SetValue(ast.StringValue("// trailing comment"))
			return n
		}()},
		{"CompoundStmt", func() ast.Node {
			n := leaf(ast.CompoundStmt)
			n.SetChildren([]ast.Node{leaf(ast.Empty)})
			return n
		}()},
		{"ExpressionStmt", func() ast.Node {
			n := leaf(ast.ExpressionStmt)
			n.SetChildren([]ast.Node{ident("x")})
			return n
		}()},
		{"If", func() ast.Node {
			n := leaf(ast.If)
			n.SetChildren([]ast.Node{ident("cond"), leaf(ast.CompoundStmt), leaf(ast.CompoundStmt)})
			return n
		}()},
		{"While", func() ast.Node {
			n := leaf(ast.While)
			n.SetChildren([]ast.Node{ident("cond"), leaf(ast.CompoundStmt)})
			return n
		}()},
		{"DoWhile", func() ast.Node {
			n := leaf(ast.DoWhile)
			n.SetChildren([]ast.Node{leaf(ast.CompoundStmt), ident("cond")})
			return n
		}()},
		{"For", func() ast.Node {
			n := leaf(ast.For)
			n.SetChildren([]ast.Node{leaf(ast.Empty), ident("cond"), ident("step"), leaf(ast.CompoundStmt)})
			return n
		}()},
		{"RangeFor", func() ast.Node {
			n := leaf(ast.RangeFor)
			n.SetChildren([]ast.Node{ident("item"), ident("coll"), leaf(ast.CompoundStmt)})
			return n
		}()},
		{"Switch", func() ast.Node {
			n := leaf(ast.Switch)
			kase := leaf(ast.Case)
			kase.SetChildren([]ast.Node{num(1), leaf(ast.Break)})
			n.SetChildren([]ast.Node{ident("x"), kase})
			return n
		}()},
		{"Case", func() ast.Node {
			n := leaf(ast.Case)
			n.SetChildren([]ast.Node{num(1), leaf(ast.Break)})
			return n
		}()},
		{"Return", func() ast.Node {
			n := leaf(ast.Return)
			n.SetChildren([]ast.Node{num(0)})
			return n
		}()},
		{"Break", leaf(ast.Break)},
		{"Continue", leaf(ast.Continue)},
		{"Empty", leaf(ast.Empty)},
		{"VarDecl", func() ast.Node {
			n := leaf(ast.VarDecl)
			n.SetChildren([]ast.Node{leaf(ast.Type), leaf(ast.Declarator), num(10)})
			return n
		}()},
		{"FuncDef", func() ast.Node {
			n := leaf(ast.FuncDef)
			n.SetValue(ast.StringValue("setup"))
			n.SetChildren([]ast.Node{leaf(ast.Type), leaf(ast.Declarator), leaf(ast.CompoundStmt)})
			return n
		}()},
		{"FuncDecl", func() ast.Node {
			n := leaf(ast.FuncDecl)
			n.SetChildren([]ast.Node{leaf(ast.Type), leaf(ast.Declarator)})
			return n
		}()},
		{"Struct", func() ast.Node {
			n := leaf(ast.Struct)
			n.SetValue(ast.StringValue("Point"))
			n.SetChildren([]ast.Node{leaf(ast.VarDecl)})
			return n
		}()},
		{"Enum", func() ast.Node {
			n := leaf(ast.Enum)
			n.SetValue(ast.StringValue("Mode"))
			n.SetChildren([]ast.Node{ident("ON"), ident("OFF")})
			return n
		}()},
		{"Class", func() ast.Node {
			n := leaf(ast.Class)
			n.SetValue(ast.StringValue("Widget"))
			return n
		}()},
		{"Typedef", func() ast.Node {
			n := leaf(ast.Typedef)
			n.SetChildren([]ast.Node{leaf(ast.Type), leaf(ast.Declarator)})
			return n
		}()},
		{"Template", func() ast.Node {
			n := leaf(ast.Template)
			n.SetChildren([]ast.Node{leaf(ast.FuncDef)})
			return n
		}()},
		{"UnaryOp", func() ast.Node {
			n := ast.NewOperatorNode(ast.UnaryOp, "!")
			n.SetChildren([]ast.Node{ident("flag")})
			return n
		}()},
		{"Assignment", func() ast.Node {
			n := ast.NewOperatorNode(ast.Assignment, "=")
			n.SetChildren([]ast.Node{ident("x"), num(5)})
			return n
		}()},
		{"MemberAccess", func() ast.Node {
			n := leaf(ast.MemberAccess)
			n.SetChildren([]ast.Node{ident("Serial"), ident("println")})
			return n
		}()},
		{"ArrayAccess", func() ast.Node {
			n := leaf(ast.ArrayAccess)
			n.SetChildren([]ast.Node{ident("arr"), num(0)})
			return n
		}()},
		{"Cast", func() ast.Node {
			n := leaf(ast.Cast)
			n.SetChildren([]ast.Node{leaf(ast.Type), ident("x")})
			return n
		}()},
		{"Sizeof", func() ast.Node {
			n := leaf(ast.Sizeof)
			n.SetChildren([]ast.Node{ident("x")})
			return n
		}()},
		{"Ternary", func() ast.Node {
			n := leaf(ast.Ternary)
			n.SetChildren([]ast.Node{ident("cond"), num(10), num(20)})
			return n
		}()},
		{"CharLiteral", func() ast.Node {
			n := leaf(ast.CharLiteral)
			n.SetValue(ast.StringValue("a"))
			return n
		}()},
		{"Constant", func() ast.Node {
			n := leaf(ast.Constant)
			n.SetValue(ast.StringValue("HIGH"))
			return n
		}()},
		{"ArrayInitializer", func() ast.Node {
			n := leaf(ast.ArrayInitializer)
			n.SetChildren([]ast.Node{num(1), num(2), num(3)})
			return n
		}()},
		{"Type", leaf(ast.Type)},
		{"Declarator", func() ast.Node {
			n := leaf(ast.Declarator)
			n.SetValue(ast.StringValue("x"))
			return n
		}()},
		{"Param", func() ast.Node {
			n := leaf(ast.Param)
			n.SetChildren([]ast.Node{leaf(ast.Type), leaf(ast.Declarator)})
			return n
		}()},
		{"Postfix", func() ast.Node {
			n := ast.NewOperatorNode(ast.Postfix, "++")
			n.SetChildren([]ast.Node{ident("i")})
			return n
		}()},
		{"StructType", func() ast.Node {
			n := leaf(ast.StructType)
			n.SetValue(ast.StringValue("Point"))
			return n
		}()},
		{"FunctionPointerDeclarator", func() ast.Node {
			n := leaf(ast.FunctionPointerDeclarator)
			n.SetValue(ast.StringValue("cb"))
			return n
		}()},
		{"Comma", func() ast.Node {
			n := leaf(ast.Comma)
			n.SetChildren([]ast.Node{ident("a"), ident("b")})
			return n
		}()},
		{"ArrayDeclarator", func() ast.Node {
			n := leaf(ast.ArrayDeclarator)
			n.SetValue(ast.StringValue("arr"))
			n.SetChildren([]ast.Node{num(4)})
			return n
		}()},
		{"PointerDeclarator", func() ast.Node {
			n := leaf(ast.PointerDeclarator)
			n.SetValue(ast.StringValue("p"))
			return n
		}()},
		{"ConstructorCall", func() ast.Node {
			n := leaf(ast.ConstructorCall)
			n.SetChildren([]ast.Node{ident("Servo"), num(9)})
			return n
		}()},
	}

	for _, fx := range fixtures {
		root := ast.NewNode(ast.Program)
		root.SetChildren([]ast.Node{fx.node})
		roundTrip(t, fx.name, root)
	}
}

// assertEqual walks both trees in lockstep comparing type, value, and child
// count; exact struct equality is not meaningful across the export/parse
// boundary since concrete node types differ (e.g. the reader materializes
// ast.Generic for every kind except operators and Error), only the
// observable shape is.
func assertEqual(t *testing.T, want, got ast.Node) {
	t.Helper()
	if want.Type() != got.Type() {
		t.Fatalf("expected type %s, got %s", want.Type(), got.Type())
	}
	if want.GetValue() != got.GetValue() {
		t.Fatalf("expected value %+v, got %+v", want.GetValue(), got.GetValue())
	}
	if len(want.Children()) != len(got.Children()) {
		t.Fatalf("expected %d children, got %d", len(want.Children()), len(got.Children()))
	}
	for i := range want.Children() {
		assertEqual(t, want.Children()[i], got.Children()[i])
	}
}
