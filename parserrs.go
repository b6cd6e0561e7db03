package colexpr

import "strconv"

// OperatorError is an error indicating an operator token that is not
// understood by the parser in its position, e.g. a leading "*". It implements
// InputError.
type OperatorError struct {
	// Col is the position of the operator.
	Col int
	// Operator is the token that was not understood.
	Operator string
	// Unary is whether the parser expected a unary operator at the time.
	Unary bool
}

func (err *OperatorError) Error() string {
	s := "binary"
	if err.Unary {
		s = "unary"
	}
	return errpos(err.Col, "unknown "+s+" operator "+strconv.Quote(err.Operator))
}

func (err *OperatorError) Pos() int {
	return err.Col
}

// OperandError is an error indicating an operand that directly follows
// another operand with no operator between them. It implements InputError.
type OperandError struct {
	// Col is the position of the second operand.
	Col int
	// Operand is the second operand.
	Operand string
}

func (err *OperandError) Error() string {
	return errpos(err.Col, "missing operator before "+strconv.Quote(err.Operand))
}

func (err *OperandError) Pos() int {
	return err.Col
}

// EmptyExpressionError is an error indicating an empty subexpression, such as
// the input ending right after an operator.
type EmptyExpressionError struct {
	// Col is the position of the end of input.
	Col int
}

func (err *EmptyExpressionError) Error() string {
	if err.Col <= 1 {
		return errpos(err.Col, "no expression")
	}
	return errpos(err.Col, "no expression at end")
}

func (err *EmptyExpressionError) Pos() int {
	return err.Col
}

// DepthError is an error indicating an expression nested more deeply than the
// parser allows, such as a long run of unary minus signs. It implements
// InputError.
type DepthError struct {
	// Col is the position at which the limit was exceeded.
	Col int
	// Max is the limit.
	Max int
}

func (err *DepthError) Error() string {
	return errpos(err.Col, "expression nested deeper than "+strconv.Itoa(err.Max)+" terms")
}

func (err *DepthError) Pos() int {
	return err.Col
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid expression syntax implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*OperandError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*LexError)(nil)
	_ InputError = (*DepthError)(nil)
)
