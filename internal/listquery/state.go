package listquery

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultPage    = 1
	defaultPerPage = 10

	FlagAdvancedTable = "advancedTable"
	FlagFloatingBar   = "floatingBar"

	JoinAnd = "and"
	JoinOr  = "or"
)

var knownFlags = map[string]bool{
	FlagAdvancedTable: true,
	FlagFloatingBar:   true,
}

// Value is a filter value that may be a single string or a list of strings
// on the wire ("is between" and multiSelect operators carry lists).
type Value struct {
	items   []string
	isArray bool
}

func NewValue(s string) Value { return Value{items: []string{s}} }

func NewValues(items ...string) Value { return Value{items: items, isArray: true} }

func (v Value) Strings() []string { return v.items }

func (v Value) First() string {
	if len(v.items) == 0 {
		return ""
	}
	return v.items[0]
}

// IsZero reports a value that makes its filter a no-op: absent, empty
// string, or an empty list.
func (v Value) IsZero() bool {
	for _, s := range v.items {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = Value{}
		return nil
	case strings.HasPrefix(s, "["):
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*v = Value{items: items, isArray: true}
		return nil
	case strings.HasPrefix(s, `"`):
		var item string
		if err := json.Unmarshal(b, &item); err != nil {
			return err
		}
		*v = Value{items: []string{item}}
		return nil
	default:
		// bare number or bool; keep the literal text
		*v = Value{items: []string{s}}
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isArray {
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	if len(v.items) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(v.items[0])
}

// FilterItem is one advanced-mode filter as sent by the table UI.
type FilterItem struct {
	ID       string   `json:"id"`
	Value    Value    `json:"value"`
	Variant  Variant  `json:"variant"`
	Operator Operator `json:"operator"`
	FilterID string   `json:"filterId"`
	RowID    string   `json:"rowId,omitempty"`
}

type SortItem struct {
	ID   string
	Desc bool
}

// State is the full view state of one table, rebuilt from the URL on every
// request and never mutated afterwards.
type State struct {
	Page         int
	PerPage      int
	Sort         []SortItem
	Flags        []string
	Filters      []FilterItem
	JoinOperator string
	Simple       map[string]string
}

// ParseState decodes URL query values into a State. Parsing is total: any
// malformed or missing parameter falls back to its default instead of
// failing the request. simpleKeys names the table's simple-mode fields.
func ParseState(q url.Values, t *Table, simpleKeys []string) State {
	st := State{
		Page:         parsePositiveInt(q.Get("page"), defaultPage),
		PerPage:      parsePositiveInt(q.Get("perPage"), defaultPerPage),
		Sort:         parseSort(q.Get("sort"), t),
		Flags:        parseFlags(q["flags"]),
		Filters:      parseFilters(q["filters"]),
		JoinOperator: parseJoinOperator(q.Get("joinOperator")),
		Simple:       make(map[string]string, len(simpleKeys)),
	}
	for _, key := range simpleKeys {
		st.Simple[key] = q.Get(key)
	}
	return st
}

// Encode serializes the state back into URL query values. Encode and
// ParseState round-trip: ParseState(st.Encode(), t, keys) == st.
func (st State) Encode() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(st.Page))
	q.Set("perPage", strconv.Itoa(st.PerPage))
	if s := encodeSort(st.Sort); s != "" {
		q.Set("sort", s)
	}
	for _, f := range st.Flags {
		q.Add("flags", f)
	}
	for _, item := range st.Filters {
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		q.Add("filters", string(b))
	}
	q.Set("joinOperator", st.JoinOperator)

	keys := make([]string, 0, len(st.Simple))
	for k := range st.Simple {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if st.Simple[k] != "" {
			q.Set(k, st.Simple[k])
		}
	}
	return q
}

// HasFlag reports whether a feature flag is set.
func (st State) HasFlag(flag string) bool {
	for _, f := range st.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Offset is the LIMIT offset of the current page.
func (st State) Offset() int {
	return (st.Page - 1) * st.PerPage
}

// ValidFilters drops no-op items before compilation: empty values (unless
// the operator tests emptiness itself) and isBetween items that do not carry
// exactly two operands.
func ValidFilters(items []FilterItem) []FilterItem {
	out := make([]FilterItem, 0, len(items))
	for _, item := range items {
		if item.Operator == OpIsEmpty || item.Operator == OpIsNotEmpty {
			out = append(out, item)
			continue
		}
		if item.Value.IsZero() {
			continue
		}
		if item.Operator == OpIsBetween && len(item.Value.Strings()) != 2 {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parsePositiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func parseJoinOperator(raw string) string {
	if raw == JoinOr {
		return JoinOr
	}
	return JoinAnd
}

func parseFlags(raw []string) []string {
	flags := make([]string, 0, len(raw))
	for _, f := range raw {
		if knownFlags[f] {
			flags = append(flags, f)
		}
	}
	return flags
}

// parseSort reads a comma list of "<id>.<asc|desc>" elements. Unknown
// column ids and malformed elements are dropped; an empty result falls back
// to newest-first on the creation timestamp.
func parseSort(raw string, t *Table) []SortItem {
	items := make([]SortItem, 0, 2)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		dot := strings.LastIndex(part, ".")
		if dot <= 0 {
			continue
		}
		id, dir := part[:dot], part[dot+1:]
		if dir != "asc" && dir != "desc" {
			continue
		}
		if _, ok := t.Column(id); !ok {
			continue
		}
		items = append(items, SortItem{ID: id, Desc: dir == "desc"})
	}
	if len(items) == 0 {
		return []SortItem{{ID: "createdAt", Desc: true}}
	}
	return items
}

func encodeSort(items []SortItem) string {
	parts := make([]string, 0, len(items))
	for _, s := range items {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		parts = append(parts, s.ID+"."+dir)
	}
	return strings.Join(parts, ",")
}

// parseFilters decodes each repeated "filters" parameter as one JSON filter
// item. Undecodable items and items without a column id are dropped.
func parseFilters(raw []string) []FilterItem {
	items := make([]FilterItem, 0, len(raw))
	for _, r := range raw {
		var item FilterItem
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			continue
		}
		if item.ID == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
