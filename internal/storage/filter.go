package storage

import (
	"strconv"
	"strings"

	"cashflow/internal/core"
)

// Dialect selects the placeholder style and string functions of the target
// database.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Filter narrows a transaction query. Zero-valued fields impose no
// constraint; set fields are AND-combined.
type Filter struct {
	Kind        core.Kind
	Category    string
	Subcategory string
	DateFrom    core.Date // inclusive
	DateTo      core.Date // inclusive
	Search      string    // case-sensitive substring of description, account or tags
	TenantID    string
}

// allValues are the selector labels that mean "no constraint".
var allValues = map[string]struct{}{
	"all": {}, "any": {}, "todos": {}, "todas": {},
}

// IsAll reports whether a selector value means "no constraint".
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	_, ok := allValues[strings.ToLower(v)]
	return ok
}

// Normalize trims selectors and clears the ones that mean "all".
// Search text is a literal substring and is kept verbatim.
func (f Filter) Normalize() Filter {
	sel := func(v string) string {
		if IsAll(v) {
			return ""
		}
		return strings.TrimSpace(v)
	}
	f.Kind = core.Kind(sel(string(f.Kind)))
	f.Category = sel(f.Category)
	f.Subcategory = sel(f.Subcategory)
	f.TenantID = strings.TrimSpace(f.TenantID)
	return f
}

// Match applies the filter to a single transaction in memory.
func (f Filter) Match(t core.Transaction) bool {
	if f.TenantID != "" && t.TenantID != f.TenantID {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Subcategory != "" && t.Subcategory != f.Subcategory {
		return false
	}
	if !f.DateFrom.IsZero() && t.Date.Before(f.DateFrom.Time) {
		return false
	}
	if !f.DateTo.IsZero() && t.Date.After(f.DateTo.Time) {
		return false
	}
	if f.Search != "" &&
		!strings.Contains(t.Description, f.Search) &&
		!strings.Contains(t.Account, f.Search) &&
		!strings.Contains(t.Tags, f.Search) {
		return false
	}
	return true
}

// Where renders the filter as a parameterized WHERE clause. It returns an
// empty clause when the filter imposes no constraint. User input only ever
// travels through args.
func (f Filter) Where(d Dialect) (string, []any) {
	p := &predicate{dialect: d}
	if f.TenantID != "" {
		p.eq("tenant_id", f.TenantID)
	}
	if f.Kind != "" {
		p.eq("kind", string(f.Kind))
	}
	if f.Category != "" {
		p.eq("category", f.Category)
	}
	if f.Subcategory != "" {
		p.eq("subcategory", f.Subcategory)
	}
	if !f.DateFrom.IsZero() {
		p.cmp("date", ">=", p.date(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		p.cmp("date", "<=", p.date(f.DateTo))
	}
	if f.Search != "" {
		p.contains([]string{"description", "account", "tags"}, f.Search)
	}
	return p.build()
}

type predicate struct {
	dialect Dialect
	clauses []string
	args    []any
}

func (p *predicate) bind(v any) string {
	p.args = append(p.args, v)
	if p.dialect == DialectPostgres {
		return "$" + strconv.Itoa(len(p.args))
	}
	return "?"
}

func (p *predicate) date(d core.Date) any {
	if p.dialect == DialectPostgres {
		return d.Time
	}
	return d.String()
}

func (p *predicate) eq(col string, v any) {
	p.cmp(col, "=", v)
}

func (p *predicate) cmp(col, op string, v any) {
	p.clauses = append(p.clauses, col+" "+op+" "+p.bind(v))
}

// contains matches a literal substring in any of cols. instr/strpos are used
// instead of LIKE so that '%' and '_' in user text are not wildcards and the
// match stays case-sensitive.
func (p *predicate) contains(cols []string, needle string) {
	fn := "instr"
	if p.dialect == DialectPostgres {
		fn = "strpos"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fn + "(" + c + ", " + p.bind(needle) + ") > 0"
	}
	p.clauses = append(p.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (p *predicate) build() (string, []any) {
	if len(p.clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(p.clauses, " AND "), p.args
}
