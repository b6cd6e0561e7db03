package colexpr_test

import (
	"testing"

	"github.com/zephyrtronium/colexpr"
)

func FuzzEval(f *testing.F) {
	f.Add("x")
	f.Add("y")
	f.Add("x*-x--x")
	tbl, err := colexpr.NewTable(colexpr.Ints("x", 0, 1, -1))
	if err != nil {
		f.Fatal(err)
	}
	f.Fuzz(func(t *testing.T, s string) {
		a, err := colexpr.ParseString(s)
		if err != nil {
			return
		}
		r, err := colexpr.NewContext().EvalColumns(a, tbl)
		if err == nil && len(r) != tbl.NumRows() {
			t.Errorf("%q gave %d values for %d rows", s, len(r), tbl.NumRows())
		}
	})
}
