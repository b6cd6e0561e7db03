// Package colexpr computes virtual columns: new table columns whose values
// come from arithmetic on existing columns.
//
// Expressions are deliberately small. Operands are column names made of ASCII
// letters and underscores, and the only operators are +, -, and *, with the
// usual precedence and unary + and -. There are no numbers, brackets, or
// functions. "price * qty - discount" is an expression; "a b" is not, and
// neither is "a * * b".
//
// AddVirtualColumn returns an empty table whenever it cannot build the column.
// Derive does the same work and reports why.
package colexpr
