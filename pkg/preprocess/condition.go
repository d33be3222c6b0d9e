package preprocess

import (
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// #if / #elif constant-expression grammar

// This section evaluates the small, unambiguous linear grammar spec §4.2 requires
// for '#if'/'#elif' guards: integer literals, 'defined(X)', '!', '&&', '||',
// parentheses and comparisons, with undefined identifiers resolving to 0. It is
// a small enough grammar to hand to goparsec directly, unlike the larger,
// ambiguous expression grammar pkg/parser implements by hand for the sketch
// body itself.
var condAST = pc.NewAST("if_expr", 100)

var (
	pCondOr  pc.Parser
	pCondAnd pc.Parser
	pCondNot pc.Parser
	pCondCmp pc.Parser
	pCondPrim pc.Parser
)

func init() {
	pIdent := pc.Token(`[A-Za-z_][0-9A-Za-z_]*`, "IDENT")
	pLParen := pc.Atom("(", "LPAREN")
	pRParen := pc.Atom(")", "RPAREN")
	pDefined := condAST.And("defined_expr", nil, pc.Atom("defined", "DEFINED"),
		condAST.OrdChoice("defined_arg", nil,
			condAST.And("parenthesized", nil, pLParen, pIdent, pRParen),
			pIdent,
		),
	)

	// 'forward' lets a rule reference a sibling rule defined later in the chain (needed
	// for parenthesized recursion) by looking the package var up at parse time instead
	// of at combinator-construction time, when it would still be nil.
	forward := func(lookup func() pc.Parser) pc.Parser {
		return func(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return lookup()(s) }
	}

	pCondPrim = condAST.OrdChoice("primary", nil,
		pDefined,
		pc.Int(),
		condAST.And("grouped", nil, pLParen, forward(func() pc.Parser { return pCondOr }), pRParen),
		pIdent,
	)

	pCondNot = condAST.OrdChoice("unary", nil,
		condAST.And("not_expr", nil, pc.Atom("!", "NOT"), forward(func() pc.Parser { return pCondNot })),
		pCondPrim,
	)

	cmpOp := condAST.OrdChoice("cmp_op", nil,
		pc.Atom("==", "EQ"), pc.Atom("!=", "NE"),
		pc.Atom("<=", "LE"), pc.Atom(">=", "GE"),
		pc.Atom("<", "LT"), pc.Atom(">", "GT"),
	)
	pCondCmp = condAST.OrdChoice("comparison", nil,
		condAST.And("cmp_expr", nil, pCondNot, cmpOp, pCondNot),
		pCondNot,
	)

	pCondAnd = condAST.OrdChoice("logical_and", nil,
		condAST.And("and_expr", nil, pCondCmp, pc.Atom("&&", "AND"), forward(func() pc.Parser { return pCondAnd })),
		pCondCmp,
	)

	pCondOr = condAST.OrdChoice("logical_or", nil,
		condAST.And("or_expr", nil, pCondAnd, pc.Atom("||", "OR"), forward(func() pc.Parser { return pCondOr })),
		pCondAnd,
	)
}

// EvalCondition evaluates a '#if'/'#elif' guard expression against the macro table
// accumulated so far, returning a C-style truthiness integer (nonzero is true).
// Undefined identifiers resolve to 0, per spec §4.2.
func EvalCondition(expr string, macros map[string]string) (int64, error) {
	root, _ := condAST.Parsewith(pCondOr, pc.NewScanner([]byte(expr)))
	if root == nil {
		return 0, nil
	}
	return evalCondNode(root, macros), nil
}

func evalCondNode(n pc.Queryable, macros map[string]string) int64 {
	switch n.GetName() {
	case "or_expr":
		children := n.GetChildren()
		return boolToInt(evalCondNode(children[0], macros) != 0 || evalCondNode(children[len(children)-1], macros) != 0)
	case "and_expr":
		children := n.GetChildren()
		return boolToInt(evalCondNode(children[0], macros) != 0 && evalCondNode(children[len(children)-1], macros) != 0)
	case "not_expr":
		children := n.GetChildren()
		return boolToInt(evalCondNode(children[len(children)-1], macros) == 0)
	case "cmp_expr":
		children := n.GetChildren()
		lhs, op, rhs := evalCondNode(children[0], macros), children[1].GetValue(), evalCondNode(children[2], macros)
		return boolToInt(compare(lhs, op, rhs))
	case "grouped":
		children := n.GetChildren()
		return evalCondNode(children[len(children)-1], macros)
	case "defined_expr":
		children := n.GetChildren()
		name := strings.TrimSpace(children[len(children)-1].GetValue())
		name = strings.Trim(name, "()")
		_, ok := macros[strings.TrimSpace(name)]
		return boolToInt(ok)
	case "IDENT":
		if v, ok := macros[n.GetValue()]; ok {
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64); err == nil {
				return i
			}
			return 1 // defined to a non-numeric value is still truthy
		}
		return 0
	default:
		if i, err := strconv.ParseInt(n.GetValue(), 0, 64); err == nil {
			return i
		}
		if len(n.GetChildren()) > 0 {
			return evalCondNode(n.GetChildren()[0], macros)
		}
		return 0
	}
}

func compare(lhs int64, op string, rhs int64) bool {
	switch op {
	case "==":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<=":
		return lhs <= rhs
	case ">=":
		return lhs >= rhs
	case "<":
		return lhs < rhs
	case ">":
		return lhs > rhs
	default:
		return false
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
