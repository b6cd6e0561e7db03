package colexpr

import (
	"log/slog"
	"math/big"
	"strconv"
)

// Context is a context for evaluating expressions over tables. It is not safe
// to use a Context concurrently.
type Context struct {
	stack []*big.Float
	// names binds each name in the expression to the current row's value.
	names map[string]*big.Float
	prec  uint
	log   *slog.Logger
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	precopt uint
	logopt  struct {
		log *slog.Logger
	}
)

func (precopt) ctxOption() {}
func (logopt) ctxOption()  {}

// Prec sets the precision of calculations.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// Logger sets the logger that receives a debug record whenever Derive rejects
// a virtual column. The default is to log nothing.
func Logger(log *slog.Logger) ContextOption {
	return logopt{log}
}

// NewContext creates a new evaluation context. If no precision is given, the
// default is 64.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{prec: 64}
	return ctx.Clone(opts...)
}

// EvalColumns evaluates an expression once for each row of a table, with each
// name in the expression bound to that row's value in the column of the same
// name. A name that is not a column is a *NameError. The result has one value
// per row and shares no storage with t.
func (ctx *Context) EvalColumns(e *Expr, t *Table) ([]*big.Float, error) {
	cols := make([][]*big.Float, len(e.names))
	for i, name := range e.names {
		k, ok := t.index[name]
		if !ok {
			return nil, &NameError{Name: name}
		}
		cols[i] = t.cols[k].Values
	}
	ctx.names = make(map[string]*big.Float, len(e.names))
	defer func() { ctx.names = nil }()
	r := make([]*big.Float, t.rows)
	for row := range r {
		// Name lookups copy onto the stack, so binding the table's own values
		// never exposes them to modification.
		for i, name := range e.names {
			ctx.names[name] = cols[i][row]
		}
		v, err := ctx.eval(e)
		if err != nil {
			return nil, err
		}
		r[row] = v
	}
	return r, nil
}

// eval evaluates an expression with the current bindings. The result belongs
// to the caller.
func (ctx *Context) eval(e *Expr) (*big.Float, error) {
	switch len(ctx.stack) {
	case 0: // do nothing
	case 1:
		// The previous result was handed out.
		ctx.stack[0] = new(big.Float).SetPrec(ctx.prec)
		ctx.stack = ctx.stack[:0]
	default:
		panic("colexpr: eval during eval")
	}
	if err := e.n.eval(ctx); err != nil {
		ctx.stack = ctx.stack[:0]
		return nil, err
	}
	if len(ctx.stack) != 1 {
		panic("colexpr: inconsistent stack: " + strconv.Itoa(len(ctx.stack)) + " items (bad AST?)")
	}
	return ctx.stack[0], nil
}

// Prec returns the precision to which values are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone creates a copy of a context and applies options to it. If several
// options set the precision, the last one wins.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		stack: make([]*big.Float, 0, cap(ctx.stack)),
		prec:  ctx.prec,
		log:   ctx.log,
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case nil:
			// do nothing
		case precopt:
			n.prec = uint(opt)
		case logopt:
			n.log = opt.log
		default:
			panic("colexpr: unknown option type")
		}
	}
	return &n
}

// push ensures a settable value on the stack.
func (ctx *Context) push() *big.Float {
	if len(ctx.stack) < cap(ctx.stack) {
		ctx.stack = ctx.stack[:len(ctx.stack)+1]
		if ctx.stack[len(ctx.stack)-1] == nil {
			ctx.stack[len(ctx.stack)-1] = new(big.Float).SetPrec(ctx.prec)
		}
	} else {
		ctx.stack = append(ctx.stack, new(big.Float).SetPrec(ctx.prec))
	}
	return ctx.stack[len(ctx.stack)-1]
}

// pop removes the top from the stack and returns it. The returned value may be
// modified by future node evaluations.
func (ctx *Context) pop() *big.Float {
	r := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return r
}

// top is a shortcut to get the top element of the stack.
func (ctx *Context) top() *big.Float {
	return ctx.stack[len(ctx.stack)-1]
}

// operands evaluates both sides of a binary node and returns the left operand,
// which receives the result, and the right.
func (n *node) operands(ctx *Context) (l, r *big.Float, err error) {
	if err := n.left.eval(ctx); err != nil {
		return nil, nil, err
	}
	if err := n.right.eval(ctx); err != nil {
		return nil, nil, err
	}
	r = ctx.pop()
	l = ctx.top()
	return l, r, nil
}

// eval pushes the node's value to the context's stack.
func (n *node) eval(ctx *Context) error {
	switch n.kind {
	case nodeName:
		v := ctx.names[n.name]
		if v == nil {
			return &NameError{Name: n.name}
		}
		ctx.push().Set(v)
	case nodeNeg:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		v := ctx.top()
		v.Neg(v)
	case nodeAdd:
		l, r, err := n.operands(ctx)
		if err != nil {
			return err
		}
		// inf + -inf has no value.
		if l.IsInf() && r.IsInf() && l.Signbit() != r.Signbit() {
			return &DomainError{X: r, Func: "+"}
		}
		l.Add(l, r)
	case nodeSub:
		l, r, err := n.operands(ctx)
		if err != nil {
			return err
		}
		if l.IsInf() && r.IsInf() && l.Signbit() == r.Signbit() {
			return &DomainError{X: r, Func: "-"}
		}
		l.Sub(l, r)
	case nodeMul:
		l, r, err := n.operands(ctx)
		if err != nil {
			return err
		}
		if l.Sign() == 0 && r.IsInf() || l.IsInf() && r.Sign() == 0 {
			return &DomainError{X: r, Func: "*"}
		}
		l.Mul(l, r)
	case nodeNop:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
	default:
		panic("colexpr: invalid AST node " + n.kind.String())
	}
	return nil
}

// NameError is an error from evaluating an expression that uses a name with no
// column.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined column: " + strconv.Quote(err.Name)
}

// DomainError is an error returned when an operator is applied to operands
// for which it has no value, such as inf - inf. DomainError unwraps to
// big.ErrNaN.
type DomainError struct {
	// X is the right operand.
	X *big.Float
	// Func is the operator.
	Func string
}

func (err *DomainError) Error() string {
	return err.X.String() + " outside domain of " + err.Func
}

func (err *DomainError) Unwrap() error {
	return big.ErrNaN{}
}
