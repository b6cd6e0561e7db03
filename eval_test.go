package colexpr_test

import (
	"errors"
	"math"
	"math/big"
	"regexp"
	"testing"

	"github.com/zephyrtronium/colexpr"
)

// evalRow evaluates src over a one-row table with the given columns.
func evalRow(t *testing.T, ctx *colexpr.Context, src string, cols ...colexpr.Column) (*big.Float, error) {
	t.Helper()
	a, err := colexpr.ParseString(src)
	if err != nil {
		t.Fatalf("%q failed to parse: %v", src, err)
	}
	tbl, err := colexpr.NewTable(cols...)
	if err != nil {
		t.Fatal(err)
	}
	r, err := ctx.EvalColumns(a, tbl)
	if err != nil {
		if r != nil {
			t.Errorf("evaluating %q gave non-nil result %v with error", src, r)
		}
		return nil, err
	}
	if len(r) != 1 {
		t.Fatalf("evaluating %q over one row gave %d values", src, len(r))
	}
	return r[0], nil
}

func TestEval(t *testing.T) {
	type vv struct {
		n string
		v float64
	}
	cases := []struct {
		name string
		src  string
		vars []vv
		r    float64
	}{
		{"ident", "x", []vv{{"x", 4}}, 4},
		{"plus", "+x", []vv{{"x", 4}}, 4},
		{"neg", "-x", []vv{{"x", 4}}, -4},
		{"add", "x+y", []vv{{"x", 4}, {"y", 5}}, 9},
		{"sub", "x-y-z", []vv{{"x", 4}, {"y", 5}, {"z", 6}}, 4 - 5 - 6},
		{"mul", "x*y*z", []vv{{"x", 4}, {"y", 5}, {"z", 6}}, 4 * 5 * 6},
		{"asc", "x+y*z", []vv{{"x", 4}, {"y", 5}, {"z", 6}}, 4 + 5*6},
		{"desc", "x*y+z", []vv{{"x", 4}, {"y", 5}, {"z", 6}}, 4*5 + 6},
		{"subneg", "x--y", []vv{{"x", 4}, {"y", 5}}, 9},
		{"negmulneg", "-x*-y", []vv{{"x", 4}, {"y", 5}}, 20},
		{"reuse", "x*x-x", []vv{{"x", 4}}, 12},
		{"unused", "x", []vv{{"x", 4}, {"y", 5}}, 4},
		{"inf", "x+y", []vv{{"x", math.Inf(1)}, {"y", 5}}, math.Inf(1)},
	}
	ctx := colexpr.NewContext(colexpr.Prec(64))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cols := make([]colexpr.Column, len(c.vars))
			for i, x := range c.vars {
				cols[i] = colexpr.Floats(x.n, x.v)
			}
			r, err := evalRow(t, ctx, c.src, cols...)
			if err != nil {
				t.Fatal("evaluation error:", err)
			}
			if f, _ := r.Float64(); f != c.r {
				t.Errorf("wrong result: want %g, got %g", c.r, r)
			}
		})
	}
}

func TestEvalUndefNames(t *testing.T) {
	cases := []struct {
		name string
		src  string
		r    []string
	}{
		{"x", "x", []string{"x"}},
		{"plus", "+x", []string{"x"}},
		{"neg", "-x", []string{"x"}},
		{"add", "x+y", []string{"x", "y"}},
		{"sub", "x-w", []string{"x"}},
		{"mul", "w*y", []string{"y"}},
	}
	ure := regexp.MustCompile(`(?i)\bundef`)
	vre := regexp.MustCompile(`(?i)\bcolumn`)
	ctx := colexpr.NewContext()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := evalRow(t, ctx, c.src, colexpr.Floats("w", 1))
			if err == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			u, ok := err.(*colexpr.NameError)
			if !ok {
				t.Fatalf("error was %#v, not NameError", err)
			}
			msg := err.Error()
			if !ure.MatchString(msg) {
				t.Errorf(`%q doesn't mention "undef"`, msg)
			}
			if !vre.MatchString(msg) {
				t.Errorf(`%q doesn't mention "column"`, msg)
			}
			for _, v := range c.r {
				if v == u.Name {
					xre := regexp.MustCompile(`\b` + v + `\b`)
					if !xre.MatchString(msg) {
						t.Errorf(`%q doesn't mention %q`, msg, v)
					}
					return
				}
			}
			t.Errorf("NameError on %q, not in %q", u.Name, c.r)
		})
	}
}

func TestEvalOpError(t *testing.T) {
	inf := math.Inf(1)
	cases := []struct {
		name string
		src  string
		x, y float64
	}{
		{"add-inf", "x+y", inf, -inf},
		{"add-neginf", "x+y", -inf, inf},
		{"sub-inf", "x-y", inf, inf},
		{"sub-neginf", "x-y", -inf, -inf},
		{"mul-zero-inf", "x*y", 0, inf},
		{"mul-inf-zero", "x*y", -inf, 0},
		{"neg-add", "-x+y", -inf, -inf},
	}
	ctx := colexpr.NewContext()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			x, y := colexpr.Floats("x", c.x), colexpr.Floats("y", c.y)
			_, err := evalRow(t, ctx, c.src, x, y)
			if err == nil {
				t.Fatalf("evaluating %q gave no error", c.src)
			}
			if _, ok := err.(*colexpr.DomainError); !ok {
				t.Errorf("%#v is not *colexpr.DomainError", err)
			}
			if !errors.As(err, new(big.ErrNaN)) {
				t.Errorf("%#v does not unwrap to big.ErrNaN", err)
			}
			// The context must be reusable after an error.
			if _, err := evalRow(t, ctx, "x", x); err != nil {
				t.Errorf("context unusable after error: %v", err)
			}
		})
	}
}

func TestContextPrec(t *testing.T) {
	ctx := colexpr.NewContext()
	if p := ctx.Prec(); p != 64 {
		t.Errorf("default precision should be 64, got %d", p)
	}
	ctx = ctx.Clone(colexpr.Prec(200), colexpr.Prec(8))
	if p := ctx.Prec(); p != 8 {
		t.Errorf("last precision should win: want 8, got %d", p)
	}
	if p := ctx.Clone().Prec(); p != 8 {
		t.Errorf("clone should keep precision 8, got %d", p)
	}
	r, err := evalRow(t, ctx, "x*x", colexpr.Ints("x", 3))
	if err != nil {
		t.Fatal(err)
	}
	if p := r.Prec(); p != 8 {
		t.Errorf("result should have precision 8, got %d", p)
	}
}

func TestEvalColumns(t *testing.T) {
	tbl, err := colexpr.NewTable(colexpr.Ints("x", 1, 2, 3), colexpr.Ints("y", 4, 5, 6))
	if err != nil {
		t.Fatal(err)
	}
	a, err := colexpr.ParseString("x + y * x")
	if err != nil {
		t.Fatal(err)
	}
	ctx := colexpr.NewContext()
	r, err := ctx.EvalColumns(a, tbl)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 12, 21}
	if len(r) != len(want) {
		t.Fatalf("want %d values, got %d", len(want), len(r))
	}
	for i, v := range r {
		if f, _ := v.Float64(); f != want[i] {
			t.Errorf("row %d: want %g, got %g", i, want[i], v)
		}
	}
	// Results must not alias each other or the table.
	r[0].SetInt64(100)
	if f, _ := r[1].Float64(); f != 12 {
		t.Errorf("row 1 changed to %g after modifying row 0", r[1])
	}
	x, _ := tbl.Float64s("x")
	if x[0] != 1 {
		t.Errorf("table changed after modifying result: x = %v", x)
	}
}

func TestEvalColumnsMissing(t *testing.T) {
	tbl, err := colexpr.NewTable(colexpr.Ints("x", 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	a, err := colexpr.ParseString("x + q")
	if err != nil {
		t.Fatal(err)
	}
	r, err := colexpr.NewContext().EvalColumns(a, tbl)
	if r != nil {
		t.Errorf("non-nil result %v", r)
	}
	var ne *colexpr.NameError
	if !errors.As(err, &ne) || ne.Name != "q" {
		t.Errorf("want NameError for q, got %#v", err)
	}
}

func BenchmarkEvalColumns(b *testing.B) {
	vals := make([]int64, 1000)
	for i := range vals {
		vals[i] = int64(i)
	}
	tbl, err := colexpr.NewTable(colexpr.Ints("x", vals...), colexpr.Ints("y", vals...), colexpr.Ints("z", vals...))
	if err != nil {
		b.Fatal(err)
	}
	a, err := colexpr.ParseString("x + y * z - x")
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		colexpr.NewContext().EvalColumns(a, tbl)
	}
}
