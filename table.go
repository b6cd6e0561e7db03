package colexpr

import (
	"math/big"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Column is a named sequence of values.
type Column struct {
	Name   string
	Values []*big.Float
}

// Floats creates a column from float64 values. Like big.Float.SetFloat64, it
// panics with big.ErrNaN if any value is NaN.
func Floats(name string, vals ...float64) Column {
	c := Column{Name: name, Values: make([]*big.Float, len(vals))}
	for i, v := range vals {
		c.Values[i] = new(big.Float).SetFloat64(v)
	}
	return c
}

// Ints creates a column from int64 values.
func Ints(name string, vals ...int64) Column {
	c := Column{Name: name, Values: make([]*big.Float, len(vals))}
	for i, v := range vals {
		c.Values[i] = new(big.Float).SetInt64(v)
	}
	return c
}

// Table is an ordered collection of uniquely named columns of equal length.
// Tables are never modified after creation, so a Table is safe to share
// between goroutines.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// NewTable creates a table from columns in order. The values are copied. All
// columns must have the same length and distinct names.
func NewTable(cols ...Column) (*Table, error) {
	t := Table{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c.Values)
		}
		if len(c.Values) != t.rows {
			return nil, &LengthError{Column: c.Name, Len: len(c.Values), Want: t.rows}
		}
		if _, ok := t.index[c.Name]; ok {
			return nil, &DuplicateColumnError{Name: c.Name}
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, Column{Name: c.Name, Values: copyvals(c.Values)})
	}
	return &t, nil
}

// Rejected returns the table used to signal that a virtual column could not be
// built: a new table with no columns and no rows.
func Rejected() *Table {
	return &Table{}
}

// Empty returns whether the table has no columns. This is how callers of
// AddVirtualColumn detect failure.
func (t *Table) Empty() bool {
	return t == nil || len(t.cols) == 0
}

// NumCols returns the number of columns in the table.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// NumRows returns the number of values in each column.
func (t *Table) NumRows() int {
	return t.rows
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	r := make([]string, len(t.cols))
	for i, c := range t.cols {
		r[i] = c.Name
	}
	return r
}

// Has returns whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]*big.Float, bool) {
	k, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return copyvals(t.cols[k].Values), true
}

// Float64s returns the values of the named column rounded to float64.
func (t *Table) Float64s(name string) ([]float64, bool) {
	k, ok := t.index[name]
	if !ok {
		return nil, false
	}
	vals := t.cols[k].Values
	r := make([]float64, len(vals))
	for i, v := range vals {
		r[i], _ = v.Float64()
	}
	return r, true
}

// With returns a new table with a column set to a copy of vals. If the table
// already has a column with the same name, it is replaced in its position;
// otherwise the column is appended. The receiver is not modified. Panics if
// len(vals) differs from the number of rows in a table that has columns.
func (t *Table) With(name string, vals []*big.Float) *Table {
	return t.with(name, copyvals(vals))
}

// with is With without copying vals. The new table shares column storage with
// t, which is fine because tables are never modified.
func (t *Table) with(name string, vals []*big.Float) *Table {
	if len(t.cols) != 0 && len(vals) != t.rows {
		panic("colexpr: column " + strconv.Quote(name) + " has " + strconv.Itoa(len(vals)) + " values for " + strconv.Itoa(t.rows) + " rows")
	}
	n := Table{
		cols:  make([]Column, len(t.cols), len(t.cols)+1),
		index: make(map[string]int, len(t.cols)+1),
		rows:  len(vals),
	}
	copy(n.cols, t.cols)
	for k, v := range t.index {
		n.index[k] = v
	}
	if k, ok := n.index[name]; ok {
		n.cols[k] = Column{Name: name, Values: vals}
		return &n
	}
	n.index[name] = len(n.cols)
	n.cols = append(n.cols, Column{Name: name, Values: vals})
	return &n
}

// Equal returns whether two tables have the same column names in the same
// order with equal values.
func (t *Table) Equal(u *Table) bool {
	if t.Empty() || u.Empty() {
		return t.Empty() == u.Empty()
	}
	if len(t.cols) != len(u.cols) || t.rows != u.rows {
		return false
	}
	for i, c := range t.cols {
		d := u.cols[i]
		if c.Name != d.Name {
			return false
		}
		for j, v := range c.Values {
			if v.Cmp(d.Values[j]) != 0 {
				return false
			}
		}
	}
	return true
}

// String formats the table as tab-aligned text with a header line.
func (t *Table) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for i, c := range t.cols {
		if i > 0 {
			w.Write([]byte{'\t'})
		}
		w.Write([]byte(c.Name))
	}
	w.Write([]byte{'\n'})
	for r := 0; r < t.rows; r++ {
		for i, c := range t.cols {
			if i > 0 {
				w.Write([]byte{'\t'})
			}
			w.Write([]byte(c.Values[r].Text('g', -1)))
		}
		w.Write([]byte{'\n'})
	}
	w.Flush()
	return b.String()
}

func copyvals(vals []*big.Float) []*big.Float {
	r := make([]*big.Float, len(vals))
	for i, v := range vals {
		r[i] = new(big.Float).Copy(v)
	}
	return r
}

// LengthError is an error creating a table from columns of different lengths.
type LengthError struct {
	// Column is the name of the column with the wrong length.
	Column string
	// Len is the length of the column.
	Len int
	// Want is the length of the first column.
	Want int
}

func (err *LengthError) Error() string {
	return "column " + strconv.Quote(err.Column) + " has " + strconv.Itoa(err.Len) + " values, want " + strconv.Itoa(err.Want)
}

// DuplicateColumnError is an error creating a table with two columns of the
// same name.
type DuplicateColumnError struct {
	// Name is the repeated column name.
	Name string
}

func (err *DuplicateColumnError) Error() string {
	return "duplicate column " + strconv.Quote(err.Name)
}
