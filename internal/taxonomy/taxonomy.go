// Package taxonomy holds the static two-level category taxonomy.
//
// The taxonomy is parsed once from an embedded YAML document and never
// mutated afterwards. Every accessor returns a copy, so callers cannot change
// the shared definition. Unknown keys produce empty results, never errors.
package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"cashflow/internal/core"
)

//go:embed taxonomy.yaml
var defaultYAML []byte

// Category is a named category owning its ordered subcategories.
type Category struct {
	Name          string   `yaml:"name" json:"name"`
	Subcategories []string `yaml:"subcategories" json:"subcategories"`
}

// Taxonomy maps each Kind to an ordered list of categories.
type Taxonomy struct {
	byKind map[core.Kind][]Category
	index  map[core.Kind]map[string]int
}

type document struct {
	Expense []Category `yaml:"expense"`
	Income  []Category `yaml:"income"`
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns the process-wide taxonomy built from the embedded definition.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
		}
		defaultTax = t
	})
	return defaultTax
}

// Parse builds a Taxonomy from a YAML document with `expense` and `income`
// lists. Names are trimmed; empty or duplicate names are rejected.
func Parse(data []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	t := &Taxonomy{
		byKind: make(map[core.Kind][]Category, 2),
		index:  make(map[core.Kind]map[string]int, 2),
	}
	for kind, cats := range map[core.Kind][]Category{
		core.KindExpense: doc.Expense,
		core.KindIncome:  doc.Income,
	} {
		idx := make(map[string]int, len(cats))
		clean := make([]Category, 0, len(cats))
		for _, c := range cats {
			name := strings.TrimSpace(c.Name)
			if name == "" {
				return nil, fmt.Errorf("%s taxonomy: empty category name", kind)
			}
			if _, dup := idx[name]; dup {
				return nil, fmt.Errorf("%s taxonomy: duplicate category %q", kind, name)
			}
			subs := make([]string, 0, len(c.Subcategories))
			for _, s := range c.Subcategories {
				if s = strings.TrimSpace(s); s != "" {
					subs = append(subs, s)
				}
			}
			idx[name] = len(clean)
			clean = append(clean, Category{Name: name, Subcategories: subs})
		}
		t.byKind[kind] = clean
		t.index[kind] = idx
	}
	return t, nil
}

// Categories lists category names for kind in definition order.
func (t *Taxonomy) Categories(kind core.Kind) []string {
	cats := t.byKind[kind]
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

// Subcategories lists the subcategories of category under kind.
func (t *Taxonomy) Subcategories(category string, kind core.Kind) []string {
	i, ok := t.index[kind][category]
	if !ok {
		return []string{}
	}
	return append([]string{}, t.byKind[kind][i].Subcategories...)
}

// AllCategories returns expense names followed by income names not already
// listed.
func (t *Taxonomy) AllCategories() []string {
	out := t.Categories(core.KindExpense)
	for _, name := range t.Categories(core.KindIncome) {
		if _, seen := t.index[core.KindExpense][name]; !seen {
			out = append(out, name)
		}
	}
	return out
}

// AnySubcategories looks category up in the expense mapping first and falls
// back to the income mapping.
func (t *Taxonomy) AnySubcategories(category string) []string {
	if _, ok := t.index[core.KindExpense][category]; ok {
		return t.Subcategories(category, core.KindExpense)
	}
	return t.Subcategories(category, core.KindIncome)
}

// Contains reports whether (category, subcategory) is a valid pair for kind.
func (t *Taxonomy) Contains(kind core.Kind, category, subcategory string) bool {
	return t.Check(kind, category, subcategory) == nil
}

// Check is Contains with a ValidationError describing the mismatch.
func (t *Taxonomy) Check(kind core.Kind, category, subcategory string) error {
	i, ok := t.index[kind][category]
	if !ok {
		return &core.ValidationError{Field: "category", Err: core.ErrUnknownCategory}
	}
	for _, s := range t.byKind[kind][i].Subcategories {
		if s == subcategory {
			return nil
		}
	}
	return &core.ValidationError{Field: "subcategory", Err: core.ErrUnknownSubcategory}
}

// Tree returns a copy of the full definition for kind.
func (t *Taxonomy) Tree(kind core.Kind) []Category {
	cats := t.byKind[kind]
	out := make([]Category, len(cats))
	for i, c := range cats {
		out[i] = Category{Name: c.Name, Subcategories: append([]string{}, c.Subcategories...)}
	}
	return out
}
