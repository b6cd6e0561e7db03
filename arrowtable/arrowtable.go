// Package arrowtable adds virtual columns to Arrow records.
//
// Only numeric columns without nulls can be used as operands. Computed columns
// are float64.
package arrowtable

import (
	"math"
	"math/big"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"

	"github.com/zephyrtronium/colexpr"
)

// FromRecord converts every column of rec to a table column.
func FromRecord(rec arrow.Record) (*colexpr.Table, error) {
	return fromRecord(rec, func(string) bool { return true })
}

func fromRecord(rec arrow.Record, want func(name string) bool) (*colexpr.Table, error) {
	cols := make([]colexpr.Column, 0, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		name := rec.ColumnName(i)
		if !want(name) {
			continue
		}
		vals, err := values(rec.Column(i))
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		cols = append(cols, colexpr.Column{Name: name, Values: vals})
	}
	return colexpr.NewTable(cols...)
}

// values converts a numeric array to big floats.
func values(arr arrow.Array) ([]*big.Float, error) {
	if n := arr.NullN(); n > 0 {
		return nil, errors.Newf("%d nulls", n)
	}
	switch a := arr.(type) {
	case *array.Int8:
		return ints(a.Int8Values()), nil
	case *array.Int16:
		return ints(a.Int16Values()), nil
	case *array.Int32:
		return ints(a.Int32Values()), nil
	case *array.Int64:
		return ints(a.Int64Values()), nil
	case *array.Uint8:
		return uints(a.Uint8Values()), nil
	case *array.Uint16:
		return uints(a.Uint16Values()), nil
	case *array.Uint32:
		return uints(a.Uint32Values()), nil
	case *array.Uint64:
		return uints(a.Uint64Values()), nil
	case *array.Float32:
		return floats(a.Float32Values())
	case *array.Float64:
		return floats(a.Float64Values())
	default:
		return nil, errors.Newf("unsupported type %s", arr.DataType())
	}
}

func ints[T int8 | int16 | int32 | int64](v []T) []*big.Float {
	r := make([]*big.Float, len(v))
	for i, x := range v {
		r[i] = new(big.Float).SetInt64(int64(x))
	}
	return r
}

func uints[T uint8 | uint16 | uint32 | uint64](v []T) []*big.Float {
	r := make([]*big.Float, len(v))
	for i, x := range v {
		r[i] = new(big.Float).SetUint64(uint64(x))
	}
	return r
}

func floats[T float32 | float64](v []T) ([]*big.Float, error) {
	r := make([]*big.Float, len(v))
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) {
			return nil, errors.Newf("NaN in row %d", i)
		}
		r[i] = new(big.Float).SetFloat64(f)
	}
	return r, nil
}

// ToRecord converts a table to a record with a float64 column for each table
// column. The caller must release the result.
func ToRecord(mem memory.Allocator, t *colexpr.Table) arrow.Record {
	names := t.Names()
	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	for i, name := range names {
		vals, _ := t.Float64s(name)
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
		cols[i] = float64Array(mem, vals)
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(t.NumRows()))
}

// AddVirtualColumn returns a new record with the columns of rec plus a float64
// column named newColumn computed from expression as by colexpr.Derive. Only
// the columns named in expression are converted, so other columns may have
// any type. A column of rec named newColumn is replaced in place. The caller
// must release the result; rec is not released.
//
// The column name and expression characters are checked before any column is
// converted, so they are reported ahead of conversion errors. Conversion
// errors, such as an operand column with nulls, are not marked with
// colexpr.ErrRejected.
func AddVirtualColumn(mem memory.Allocator, rec arrow.Record, expression, newColumn string, opts ...colexpr.ContextOption) (arrow.Record, error) {
	if err := colexpr.Validate(expression, newColumn); err != nil {
		return nil, err
	}
	used := make(map[string]bool)
	for _, name := range colexpr.Operands(expression) {
		used[name] = true
	}
	t, err := fromRecord(rec, func(name string) bool { return used[name] })
	if err != nil {
		return nil, err
	}
	d, err := colexpr.Derive(t, expression, newColumn, opts...)
	if err != nil {
		return nil, err
	}
	vals, _ := d.Float64s(newColumn)
	arr := float64Array(mem, vals)
	defer arr.Release()

	field := arrow.Field{Name: newColumn, Type: arrow.PrimitiveTypes.Float64}
	fields := append([]arrow.Field(nil), rec.Schema().Fields()...)
	cols := append([]arrow.Array(nil), rec.Columns()...)
	if k := rec.Schema().FieldIndices(newColumn); len(k) > 0 {
		fields[k[0]] = field
		cols[k[0]] = arr
	} else {
		fields = append(fields, field)
		cols = append(cols, arr)
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

func float64Array(mem memory.Allocator, vals []float64) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, nil)
	return b.NewArray()
}
