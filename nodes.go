package colexpr

import (
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression.
type node struct {
	kind nodeKind

	name string

	left  *node
	right *node

	// height is the length of the longest path to a leaf.
	height int
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeName // push lookup(name)

	nodeNeg // evaluate left, then negate
	nodeAdd // evaluate left, add right
	nodeSub // evaluate left, sub right
	nodeMul // evaluate left, mul right
	nodeNop // evaluate left
)

func (k nodeKind) String() string {
	switch k {
	case nodeNone:
		return "None"
	case nodeName:
		return "Name"
	case nodeNeg:
		return "Neg"
	case nodeAdd:
		return "Add"
	case nodeSub:
		return "Sub"
	case nodeMul:
		return "Mul"
	case nodeNop:
		return "Nop"
	default:
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b, false)
	return b.String()
}

func (n *node) fmt(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
		if n.left != nil {
			n.left.fmt(b, square)
		}
		b.WriteByte('#')
		if n.right != nil {
			n.right.fmt(b, square)
		}
		b.WriteByte('$')
	case nodeName:
		b.WriteString(n.name)
	case nodeNeg:
		b.WriteByte('-')
		n.left.fmt(b, !square)
	case nodeAdd:
		n.left.fmt(b, !square)
		b.WriteString(" + ")
		n.right.fmt(b, !square)
	case nodeSub:
		n.left.fmt(b, !square)
		b.WriteString(" - ")
		n.right.fmt(b, !square)
	case nodeMul:
		n.left.fmt(b, !square)
		b.WriteString(" * ")
		n.right.fmt(b, !square)
	case nodeNop:
		b.WriteByte('+')
		n.left.fmt(b, !square)
	default:
		panic("colexpr: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}
