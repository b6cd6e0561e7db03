package colexpr

import (
	"log/slog"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	columnNameRE = regexp.MustCompile(`^[A-Za-z_]+$`)
	expressionRE = regexp.MustCompile(`^[A-Za-z_\s+\-*]+$`)
	operandRE    = regexp.MustCompile(`[A-Za-z_]+`)
)

// ErrRejected marks every error returned by Derive.
var ErrRejected = errors.New("virtual column rejected")

// AddVirtualColumn returns a copy of t with a column named newColumn holding
// the value of expression for each row. If anything about the request is
// invalid, the result is an empty table instead; check it with Empty. Use
// Derive to learn why a column was rejected.
func AddVirtualColumn(t *Table, expression, newColumn string, opts ...ContextOption) *Table {
	r, err := Derive(t, expression, newColumn, opts...)
	if err != nil {
		return Rejected()
	}
	return r
}

// Derive is like AddVirtualColumn but reports failures as errors. It uses a
// new context created with opts, so concurrent calls may share t.
func Derive(t *Table, expression, newColumn string, opts ...ContextOption) (*Table, error) {
	return NewContext(opts...).Derive(t, expression, newColumn)
}

// Derive returns a copy of t with a column named newColumn holding the value
// of expression for each row. The checks happen in order:
//
//  1. newColumn must be one or more ASCII letters or underscores, else
//     *ColumnNameError.
//  2. expression must consist of letters, underscores, whitespace, and the
//     operators + - *, else *CharsetError.
//  3. every name in expression must be a column of t, else
//     *UnknownColumnError.
//  4. expression must parse and evaluate; otherwise the error wraps an
//     InputError, *DomainError, or a recovered panic.
//
// An expression with no names at all passes the third check and fails the
// fourth, as does one nested more than 10000 terms deep. If t already has a
// column named newColumn, it is replaced in place. t is never modified. Every
// error satisfies errors.Is(err, ErrRejected).
//
// Values have no NaN. A row that computes inf - inf or 0 * inf is a
// *DomainError, and the whole column is rejected rather than that row alone.
func (ctx *Context) Derive(t *Table, expression, newColumn string) (r *Table, err error) {
	defer func() {
		if err == nil {
			return
		}
		err = errors.Mark(err, ErrRejected)
		if ctx.log != nil {
			ctx.log.Debug("rejected virtual column",
				slog.String("column", newColumn),
				slog.String("expression", expression),
				slog.String("reason", RejectionOf(err).String()),
				slog.Any("err", err),
			)
		}
	}()
	if t == nil {
		t = Rejected()
	}
	if err := validate(expression, newColumn); err != nil {
		return nil, err
	}
	for _, name := range Operands(expression) {
		if !t.Has(name) {
			return nil, &UnknownColumnError{Name: name}
		}
	}
	vals, err := ctx.derive(t, expression)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluating %q", expression)
	}
	return t.with(newColumn, vals), nil
}

// Validate runs the checks of Derive that need no table: the new column name
// and the characters of expression. Its errors are marked like those of Derive.
func Validate(expression, newColumn string) error {
	if err := validate(expression, newColumn); err != nil {
		return errors.Mark(err, ErrRejected)
	}
	return nil
}

func validate(expression, newColumn string) error {
	if !columnNameRE.MatchString(newColumn) {
		return &ColumnNameError{Name: newColumn}
	}
	if !expressionRE.MatchString(expression) {
		return charsetError(expression)
	}
	return nil
}

// derive parses and evaluates expression over t, turning panics into errors.
func (ctx *Context) derive(t *Table, expression string) (vals []*big.Float, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx.stack = ctx.stack[:0]
			vals, err = nil, errors.Newf("recovered: %v", r)
		}
	}()
	e, err := ParseString(expression)
	if err != nil {
		return nil, err
	}
	return ctx.EvalColumns(e, t)
}

// Operands returns the maximal runs of letters and underscores in expression
// in order of first appearance, without repeats. These are the column names
// the expression uses.
func Operands(expression string) []string {
	all := operandRE.FindAllString(expression, -1)
	if len(all) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(all))
	r := all[:0]
	for _, name := range all {
		if seen[name] {
			continue
		}
		seen[name] = true
		r = append(r, name)
	}
	return r
}

// charsetError finds the first rune of expression outside the expression
// alphabet. expression must not match expressionRE.
func charsetError(expression string) *CharsetError {
	col := 0
	for _, r := range expression {
		col++
		if !isNameRune(r) && !strings.ContainsRune(Operators+"\t\n\f\r ", r) {
			return &CharsetError{Col: col, Char: r}
		}
	}
	// Only the empty string gets here.
	return &CharsetError{}
}

// ColumnNameError is an error indicating that the name for a new column is
// not one or more ASCII letters and underscores.
type ColumnNameError struct {
	// Name is the rejected name.
	Name string
}

func (err *ColumnNameError) Error() string {
	return "invalid column name " + strconv.Quote(err.Name)
}

// CharsetError is an error indicating an expression that is empty or contains
// a character other than letters, underscores, whitespace, and operators. It
// implements InputError.
type CharsetError struct {
	// Col is the position of the first invalid rune, counted from 1, or 0 if
	// the expression is empty.
	Col int
	// Char is the invalid rune.
	Char rune
}

func (err *CharsetError) Error() string {
	if err.Col == 0 {
		return "empty expression"
	}
	return errpos(err.Col, "invalid character "+strconv.QuoteRune(err.Char))
}

func (err *CharsetError) Pos() int {
	return err.Col
}

// UnknownColumnError is an error indicating that an expression names a column
// the table does not have.
type UnknownColumnError struct {
	// Name is the missing column.
	Name string
}

func (err *UnknownColumnError) Error() string {
	return "unknown column " + strconv.Quote(err.Name)
}

// Rejection classifies the errors returned by Derive.
type Rejection int

const (
	// NotRejected is the classification of a nil error or an error that did
	// not come from Derive.
	NotRejected Rejection = iota
	// InvalidColumnName means the new column name was not valid.
	InvalidColumnName
	// InvalidCharacters means the expression was empty or had characters
	// outside the expression alphabet.
	InvalidCharacters
	// UnknownColumn means the expression used a name that is not a column.
	UnknownColumn
	// MalformedExpression means the expression could not be parsed or
	// evaluated.
	MalformedExpression
)

func (r Rejection) String() string {
	switch r {
	case NotRejected:
		return "not rejected"
	case InvalidColumnName:
		return "invalid column name"
	case InvalidCharacters:
		return "invalid characters"
	case UnknownColumn:
		return "unknown column"
	case MalformedExpression:
		return "malformed expression"
	default:
		return "Rejection(" + strconv.Itoa(int(r)) + ")"
	}
}

// RejectionOf classifies an error returned by Derive.
func RejectionOf(err error) Rejection {
	switch {
	case err == nil, !errors.Is(err, ErrRejected):
		return NotRejected
	case errors.HasType(err, (*ColumnNameError)(nil)):
		return InvalidColumnName
	case errors.HasType(err, (*CharsetError)(nil)):
		return InvalidCharacters
	case errors.HasType(err, (*UnknownColumnError)(nil)):
		return UnknownColumn
	default:
		return MalformedExpression
	}
}

var _ InputError = (*CharsetError)(nil)
