// Package listquery turns untrusted URL table state (page, sort, per-column
// filters, join operator) into cached, paginated SQL reads. It is shared by
// every console table; call sites supply only a column descriptor map, a
// scan function and simple-mode conditions.
package listquery

// Variant is the semantic type of a filterable column. It determines the
// legal operator set.
type Variant string

const (
	VariantText        Variant = "text"
	VariantNumber      Variant = "number"
	VariantBoolean     Variant = "boolean"
	VariantDate        Variant = "date"
	VariantDateRange   Variant = "dateRange"
	VariantSelect      Variant = "select"
	VariantMultiSelect Variant = "multiSelect"
)

// Option is one selectable value of a select/multiSelect column.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Column describes one filterable/sortable field. Name is the SQL identifier
// and is always taken from the descriptor, never from request input.
type Column struct {
	ID      string
	Name    string
	Variant Variant
	Options []Option
}

// Table is the descriptor set of one SQL table. CreatedAt names the creation
// timestamp column used as the deterministic fallback sort.
type Table struct {
	Name      string
	CreatedAt string
	Columns   []Column
}

// Column resolves a column id. Unknown ids report ok=false and the caller
// skips the filter or sort entry.
func (t *Table) Column(id string) (Column, bool) {
	for _, c := range t.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Operator ids as they travel in filter item JSON.
type Operator string

const (
	OpILike      Operator = "iLike"
	OpNotILike   Operator = "notILike"
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpLt         Operator = "lt"
	OpGt         Operator = "gt"
	OpIsBetween  Operator = "isBetween"
	OpIsEmpty    Operator = "isEmpty"
	OpIsNotEmpty Operator = "isNotEmpty"
	OpInArray    Operator = "inArray"
	OpNotInArray Operator = "notInArray"
)

var operatorsByVariant = map[Variant][]Operator{
	VariantText:        {OpILike, OpNotILike, OpEq, OpNe, OpIsEmpty, OpIsNotEmpty},
	VariantNumber:      {OpEq, OpNe, OpGt, OpLt, OpIsBetween, OpIsEmpty, OpIsNotEmpty},
	VariantBoolean:     {OpEq, OpNe},
	VariantDate:        {OpEq, OpNe, OpLt, OpGt, OpIsBetween, OpIsEmpty, OpIsNotEmpty},
	VariantDateRange:   {OpEq, OpNe, OpLt, OpGt, OpIsBetween, OpIsEmpty, OpIsNotEmpty},
	VariantSelect:      {OpEq, OpNe, OpIsEmpty, OpIsNotEmpty},
	VariantMultiSelect: {OpInArray, OpNotInArray, OpIsEmpty, OpIsNotEmpty},
}

// operatorAllowed reports whether op is legal for the variant. Illegal
// combinations are skipped, never rejected with an error.
func operatorAllowed(v Variant, op Operator) bool {
	for _, allowed := range operatorsByVariant[v] {
		if allowed == op {
			return true
		}
	}
	return false
}
