package listquery

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Condition is a boolean SQL predicate fragment with its placeholder args.
// An empty Expr matches everything: no filters must never mean no rows.
type Condition struct {
	Expr string
	Args []any
}

func (c Condition) IsZero() bool { return c.Expr == "" }

// Compile builds one predicate from the advanced filter list. It is
// defensive-total: unknown column ids, operators illegal for the column's
// variant and uncoercible values all turn the item into a no-op instead of
// an error.
func Compile(t *Table, filters []FilterItem, joinOperator string) Condition {
	conds := make([]Condition, 0, len(filters))
	for _, item := range filters {
		col, ok := t.Column(item.ID)
		if !ok {
			continue
		}
		if !operatorAllowed(col.Variant, item.Operator) {
			continue
		}
		cond, ok := buildCondition(col, item)
		if !ok {
			continue
		}
		conds = append(conds, cond)
	}
	return Join(joinOperator, conds)
}

// Join combines conditions with AND/OR. Zero conditions yield the empty
// (match-all) condition.
func Join(joinOperator string, conds []Condition) Condition {
	conds = nonZero(conds)
	if len(conds) == 0 {
		return Condition{}
	}
	if len(conds) == 1 {
		return conds[0]
	}

	sep := " AND "
	if joinOperator == JoinOr {
		sep = " OR "
	}

	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		parts = append(parts, "("+c.Expr+")")
		args = append(args, c.Args...)
	}
	return Condition{Expr: strings.Join(parts, sep), Args: args}
}

// And is the simple-mode combinator: all present field filters must hold.
func And(conds ...Condition) Condition {
	return Join(JoinAnd, conds)
}

func nonZero(conds []Condition) []Condition {
	out := conds[:0]
	for _, c := range conds {
		if !c.IsZero() {
			out = append(out, c)
		}
	}
	return out
}

func buildCondition(col Column, item FilterItem) (Condition, bool) {
	switch item.Operator {
	case OpIsEmpty:
		return emptyCond(col, false), true
	case OpIsNotEmpty:
		return emptyCond(col, true), true
	}

	if item.Value.IsZero() {
		return Condition{}, false
	}

	switch item.Operator {
	case OpILike:
		return ContainsFold(col.Name, item.Value.First()), true
	case OpNotILike:
		c := ContainsFold(col.Name, item.Value.First())
		return Condition{Expr: "NOT (" + c.Expr + ")", Args: c.Args}, true
	case OpEq, OpNe:
		arg, ok := coerce(col.Variant, item.Value.First())
		if !ok {
			return Condition{}, false
		}
		op := "="
		if item.Operator == OpNe {
			op = "<>"
		}
		return Condition{Expr: col.Name + " " + op + " ?", Args: []any{arg}}, true
	case OpLt, OpGt:
		arg, ok := coerce(col.Variant, item.Value.First())
		if !ok {
			return Condition{}, false
		}
		op := "<"
		if item.Operator == OpGt {
			op = ">"
		}
		return Condition{Expr: col.Name + " " + op + " ?", Args: []any{arg}}, true
	case OpIsBetween:
		return betweenCond(col, item.Value.Strings())
	case OpInArray, OpNotInArray:
		return inCond(col, item.Operator, item.Value.Strings())
	}
	return Condition{}, false
}

// emptyCond tests null/blank-ness. String-backed variants count the empty
// string as empty; numeric and date columns test NULL only.
func emptyCond(col Column, negate bool) Condition {
	stringBacked := col.Variant == VariantText || col.Variant == VariantSelect || col.Variant == VariantMultiSelect
	if negate {
		if stringBacked {
			return Condition{Expr: "(" + col.Name + " IS NOT NULL AND " + col.Name + " <> '')"}
		}
		return Condition{Expr: col.Name + " IS NOT NULL"}
	}
	if stringBacked {
		return Condition{Expr: "(" + col.Name + " IS NULL OR " + col.Name + " = '')"}
	}
	return Condition{Expr: col.Name + " IS NULL"}
}

// ContainsFold is a case-insensitive substring match.
func ContainsFold(name, value string) Condition {
	return Condition{
		Expr: "LOWER(" + name + ") LIKE ?",
		Args: []any{"%" + strings.ToLower(value) + "%"},
	}
}

func EqString(name, value string) Condition {
	return Condition{Expr: name + " = ?", Args: []any{value}}
}

func EqBool(name string, value bool) Condition {
	return Condition{Expr: name + " = ?", Args: []any{value}}
}

// OnOrAfter / OnOrBefore bound a timestamp column inclusively; used by the
// simple-mode from/to date range.
func OnOrAfter(name string, t time.Time) Condition {
	return Condition{Expr: name + " >= ?", Args: []any{t}}
}

func OnOrBefore(name string, t time.Time) Condition {
	return Condition{Expr: name + " <= ?", Args: []any{t}}
}

func betweenCond(col Column, values []string) (Condition, bool) {
	if len(values) != 2 {
		return Condition{}, false
	}
	lo, okLo := coerce(col.Variant, values[0])
	hi, okHi := coerce(col.Variant, values[1])
	if !okLo || !okHi {
		return Condition{}, false
	}
	// reversed bounds are swapped, not rejected
	if compareCoerced(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return Condition{Expr: col.Name + " BETWEEN ? AND ?", Args: []any{lo, hi}}, true
}

func inCond(col Column, op Operator, values []string) (Condition, bool) {
	vals := make([]any, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return Condition{}, false
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
	kw := "IN"
	if op == OpNotInArray {
		kw = "NOT IN"
	}
	return Condition{Expr: fmt.Sprintf("%s %s (%s)", col.Name, kw, placeholders), Args: vals}, true
}

// coerce converts the wire string into the argument type the column
// compares against. A failed coercion makes the filter a no-op.
func coerce(v Variant, raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	switch v {
	case VariantNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case VariantBoolean:
		switch raw {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
		return nil, false
	case VariantDate, VariantDateRange:
		t, ok := parseTimestamp(raw)
		if !ok {
			return nil, false
		}
		return t, true
	default:
		return raw, true
	}
}

func compareCoerced(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		return av.Compare(b.(time.Time))
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

// parseTimestamp accepts unix milliseconds (what the table UI sends),
// RFC 3339 and plain dates.
func parseTimestamp(raw string) (time.Time, bool) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
