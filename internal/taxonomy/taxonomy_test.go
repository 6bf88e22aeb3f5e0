package taxonomy

import (
	"errors"
	"testing"

	"cashflow/internal/core"
)

func TestDefaultOrderAndLookup(t *testing.T) {
	tax := Default()

	cats := tax.Categories(core.KindExpense)
	if len(cats) == 0 || cats[0] != "Housing" || cats[1] != "Food" {
		t.Fatalf("expense categories not in definition order: %v", cats)
	}
	inc := tax.Categories(core.KindIncome)
	if len(inc) != 5 || inc[0] != "Salary" {
		t.Fatalf("unexpected income categories: %v", inc)
	}

	subs := tax.Subcategories("Salary", core.KindIncome)
	if len(subs) != 3 || subs[0] != "Salary" || subs[2] != "Bonus" {
		t.Fatalf("unexpected salary subcategories: %v", subs)
	}
	if got := tax.Subcategories("Salary", core.KindExpense); len(got) != 0 {
		t.Fatalf("income category must not resolve under expense: %v", got)
	}
	if got := tax.Subcategories("Nope", core.KindExpense); got == nil || len(got) != 0 {
		t.Fatalf("unknown category must yield an empty, non-nil slice: %#v", got)
	}
}

func TestAllCategoriesDedupes(t *testing.T) {
	tax, err := Parse([]byte(`
expense:
  - name: Food
    subcategories: [Groceries]
  - name: Other
    subcategories: [Misc]
income:
  - name: Salary
    subcategories: [Monthly]
  - name: Other
    subcategories: [Gifts]
`))
	if err != nil {
		t.Fatal(err)
	}
	all := tax.AllCategories()
	want := []string{"Food", "Other", "Salary"}
	if len(all) != len(want) {
		t.Fatalf("got %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("got %v, want %v", all, want)
		}
	}

	// Expense mapping wins for names present in both.
	if subs := tax.AnySubcategories("Other"); len(subs) != 1 || subs[0] != "Misc" {
		t.Fatalf("AnySubcategories(Other) = %v", subs)
	}
	if subs := tax.AnySubcategories("Salary"); len(subs) != 1 || subs[0] != "Monthly" {
		t.Fatalf("AnySubcategories(Salary) = %v", subs)
	}
	if subs := tax.AnySubcategories("Unknown"); len(subs) != 0 {
		t.Fatalf("AnySubcategories(Unknown) = %v", subs)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	tax := Default()
	subs := tax.Subcategories("Food", core.KindExpense)
	subs[0] = "mutated"
	if tax.Subcategories("Food", core.KindExpense)[0] == "mutated" {
		t.Fatalf("taxonomy was mutated through a returned slice")
	}
	cats := tax.Categories(core.KindExpense)
	cats[0] = "mutated"
	if tax.Categories(core.KindExpense)[0] == "mutated" {
		t.Fatalf("taxonomy was mutated through a returned slice")
	}
}

func TestCheck(t *testing.T) {
	tax := Default()
	if err := tax.Check(core.KindExpense, "Food", "Supermarket"); err != nil {
		t.Fatalf("expected valid pair, got %v", err)
	}
	if err := tax.Check(core.KindIncome, "Food", "Supermarket"); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if err := tax.Check(core.KindExpense, "Food", "Salary"); !errors.Is(err, core.ErrUnknownSubcategory) {
		t.Fatalf("expected ErrUnknownSubcategory, got %v", err)
	}
	if !tax.Contains(core.KindIncome, "Returns", "Dividends") {
		t.Fatalf("expected income pair to be valid")
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
expense:
  - name: Food
  - name: " Food "
`))
	if err == nil {
		t.Fatalf("expected duplicate category error")
	}
	if _, err := Parse([]byte("expense: [")); err == nil {
		t.Fatalf("expected YAML error")
	}
}
