package colexpr

import (
	"io"
	"strings"
)

// Expr = name | Neg | Plus | Add | Sub | Mul
// Neg = '-' Expr
// Plus = '+' Expr
// Add = Expr '+' Expr
// Sub = Expr '-' Expr
// Mul = Expr '*' Expr

// Expr is a parsed expression that can be evaluated with a context.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// names is the list of column names used in the expression.
	names []string
}

// maxDepth is the deepest nesting of terms the parser accepts. It bounds both
// parser recursion and the height of the resulting tree, which evaluation
// recurses over.
const maxDepth = 10000

// parsectx holds general data for parsing.
type parsectx struct {
	// names is the set of column names that have been seen this parse.
	names map[string]bool
	// depth is the number of active parseterm calls.
	depth int
}

// join creates an operator node, failing if the result would be too tall.
func (p *parsectx) join(kind nodeKind, left, right *node, col int) (*node, error) {
	h := left.height
	if right != nil && right.height > h {
		h = right.height
	}
	h++
	if h > maxDepth {
		return nil, &DepthError{Col: col, Max: maxDepth}
	}
	return &node{kind: kind, left: left, right: right, height: h}, nil
}

// Parse parses an expression so it can be evaluated with a context. The
// expression is read to EOF. Two operands with no operator between them are
// an error rather than an implicit multiplication.
func Parse(src io.RuneScanner) (*Expr, error) {
	scan := lex(src)
	p := parsectx{
		names: make(map[string]bool),
	}
	n, err := parseterm(scan, &p, exprprec)
	if err != nil {
		return nil, err
	}
	if tok := scan.must(); tok.kind != tokenEOF {
		panic("colexpr: parse ended on " + tok.String())
	}
	ex := Expr{
		n:     n,
		names: make([]string, 0, len(p.names)),
	}
	for k := range p.names {
		ex.names = append(ex.names, k)
	}
	sortstrs(ex.names)
	return &ex, nil
}

// ParseString is a shortcut to parse an expression from a string.
func ParseString(src string) (*Expr, error) {
	return Parse(strings.NewReader(src))
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// parseterm parses a single term, consuming binary operators that bind more
// tightly than until. If there is no error, then parseterm pushes the last
// token it scans, which is either EOF or an operator that belongs to a caller.
func parseterm(scan *lexer, p *parsectx, until operator) (*node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, &DepthError{Col: scan.rune, Max: maxDepth}
	}
	n, err := parselhs(scan, p)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenIdent:
			// a b is not a product.
			return nil, &OperandError{Col: tok.pos, Operand: tok.text}
		case tokenOp:
			prec := binop(tok.text)
			if prec.op == nodeNone {
				return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: false}
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			n, err = p.join(prec.op, n, rhs, tok.pos)
			if err != nil {
				return nil, err
			}
		case tokenEOF:
			scan.push(tok)
			return n, nil
		default:
			panic("colexpr: unknown token: " + tok.String())
		}
	}
}

// parselhs parses the first component of a term. I.e., operators are unary
// and any encountered token must be valid as the start of a subexpression.
func parselhs(scan *lexer, p *parsectx) (*node, error) {
	tok, err := scan.next()
	if err != nil {
		return nil, err
	}
	var n *node
	switch tok.kind {
	case tokenIdent:
		p.names[tok.text] = true
		n = &node{kind: nodeName, name: tok.text}
	case tokenOp:
		prec := unop(tok.text)
		if prec.op == nodeNone {
			return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: true}
		}
		rhs, err := parseterm(scan, p, prec)
		if err != nil {
			return nil, err
		}
		n, err = p.join(prec.op, rhs, nil, tok.pos)
		if err != nil {
			return nil, err
		}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos}
	default:
		panic("colexpr: unknown token: " + tok.String())
	}
	return n, nil
}

// Vars returns the column names used when evaluating the expression, sorted.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// String creates a string representation of the parsed expression, with
// alternating round and square brackets grouping each term.
func (e *Expr) String() string {
	var b strings.Builder
	e.n.fmt(&b, false)
	return b.String()
}

type operator struct {
	// prec is the precedence value. Higher is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of nodeNone.
func binop(text string) operator {
	switch text {
	case "+":
		return operator{1, false, nodeAdd}
	case "-":
		return operator{1, false, nodeSub}
	case "*":
		return operator{5, false, nodeMul}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	switch text {
	case "+":
		return operator{10, true, nodeNop}
	case "-":
		return operator{10, true, nodeNeg}
	default:
		return operator{}
	}
}

// exprprec is the precedence required to parse an entire subexpression.
var exprprec = operator{-128, true, nodeNone}
