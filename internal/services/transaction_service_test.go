package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"cashflow/internal/core"
	"cashflow/internal/storage"
	"cashflow/internal/storage/memory"
	"cashflow/internal/taxonomy"
)

type recordingPublisher struct {
	mu   sync.Mutex
	txs  []core.Transaction
	fail bool
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.txs = append(p.txs, t)
	return nil
}

func validInput() NewTransaction {
	return NewTransaction{
		Date:        "2025-01-12",
		Kind:        "Expense",
		Category:    "Food",
		Subcategory: "Supermarket",
		Description: "  Weekly groceries\n",
		Amount:      "123,45",
		Account:     "Checking",
	}
}

func TestNewTransactionService(t *testing.T) {
	service := NewTransactionService(nil, nil, nil)
	if service == nil {
		t.Fatal("NewTransactionService should return a non-nil service")
	}
	if service.taxonomy == nil {
		t.Error("NewTransactionService should default to the embedded taxonomy")
	}
}

func TestTransactionService_Create(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	service := NewTransactionService(store, taxonomy.Default(), pub)
	ctx := context.Background()

	created, err := service.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
	if created.Kind != core.KindExpense || created.Amount.Cents != 12345 || created.Description != "Weekly groceries" {
		t.Errorf("unexpected created transaction: %+v", created)
	}

	got, _ := store.Query(ctx, storage.Filter{})
	if len(got) != 1 {
		t.Fatalf("expected 1 stored transaction, got %d", len(got))
	}
	if got[0].Amount.Cents != 12345 || got[0].Description != "Weekly groceries" {
		t.Errorf("unexpected stored transaction: %+v", got[0])
	}
	if len(pub.txs) != 1 || pub.txs[0].ID != created.ID {
		t.Errorf("expected one published event for id %d, got %+v", created.ID, pub.txs)
	}
}

func TestTransactionService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewTransaction)
		want   error
	}{
		{"bad date", func(n *NewTransaction) { n.Date = "12/01/2025" }, core.ErrInvalidDate},
		{"bad kind", func(n *NewTransaction) { n.Kind = "Transfer" }, core.ErrInvalidKind},
		{"no category", func(n *NewTransaction) { n.Category = " " }, core.ErrEmptyCategory},
		{"no subcategory", func(n *NewTransaction) { n.Subcategory = "" }, core.ErrEmptySubcategory},
		{"category of other kind", func(n *NewTransaction) { n.Kind = "Income" }, core.ErrUnknownCategory},
		{"foreign subcategory", func(n *NewTransaction) { n.Subcategory = "Bonus" }, core.ErrUnknownSubcategory},
		{"zero amount", func(n *NewTransaction) { n.Amount = "0" }, core.ErrInvalidAmount},
		{"negative amount", func(n *NewTransaction) { n.Amount = "-5" }, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			pub := &recordingPublisher{}
			service := NewTransactionService(store, nil, pub)
			in := validInput()
			tt.mutate(&in)

			_, err := service.Create(context.Background(), in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !core.IsValidation(err) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
			got, _ := store.Query(context.Background(), storage.Filter{})
			if len(got) != 0 || len(pub.txs) != 0 {
				t.Errorf("nothing should be stored or published on validation failure")
			}
		})
	}
}

func TestTransactionService_CreatePublishFailureIsNotFatal(t *testing.T) {
	service := NewTransactionService(memory.NewStore(), nil, &recordingPublisher{fail: true})
	if _, err := service.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("publish failure must not fail Create: %v", err)
	}
}

const importCSV = `date,kind,category,subcategory,description,amount,account,tags
2025-01-01,Income,Salary,Salary,Pay,3000.00,,
2025-01-02,Expense,Food,Bakery,,abc,,
2025-01-03,Expense,Made Up,Whatever,,10.00,,
`

func TestTransactionService_ImportSkipInvalid(t *testing.T) {
	store := memory.NewStore()
	service := NewTransactionService(store, nil, nil)
	ctx := context.Background()

	res, err := service.Import(ctx, strings.NewReader(importCSV), "acme", SkipInvalid)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0].Line != 3 {
		t.Fatalf("expected a single error on line 3, got %+v", res.Errors)
	}

	got, _ := store.Query(ctx, storage.Filter{TenantID: "acme"})
	if len(got) != 2 {
		t.Fatalf("expected 2 tenant rows, got %d", len(got))
	}
}

func TestTransactionService_ImportAbortOnError(t *testing.T) {
	store := memory.NewStore()
	service := NewTransactionService(store, nil, nil)

	res, err := service.Import(context.Background(), strings.NewReader(importCSV), "", AbortOnError)
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("rows before the failure stay imported, got %+v", res)
	}
}

func TestTransactionService_ImportMissingColumns(t *testing.T) {
	store := memory.NewStore()
	service := NewTransactionService(store, nil, nil)

	_, err := service.Import(context.Background(), strings.NewReader("date,kind\n2025-01-01,Income\n"), "", SkipInvalid)
	if !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	got, _ := store.Query(context.Background(), storage.Filter{})
	if len(got) != 0 {
		t.Fatalf("nothing should be imported")
	}
}

func TestTransactionService_ExportThenImport(t *testing.T) {
	src := memory.NewStore()
	service := NewTransactionService(src, nil, nil)
	ctx := context.Background()
	for _, in := range []NewTransaction{
		validInput(),
		{Date: "2025-01-10", Kind: "Income", Category: "Salary", Subcategory: "Bonus", Amount: "500"},
	} {
		if _, err := service.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := service.Export(ctx, &buf, storage.Filter{})
	if err != nil || n != 2 {
		t.Fatalf("Export: n=%d err=%v", n, err)
	}

	dst := memory.NewStore()
	res, err := NewTransactionService(dst, nil, nil).Import(ctx, &buf, "", AbortOnError)
	if err != nil || res.Imported != 2 {
		t.Fatalf("Import: %+v %v", res, err)
	}

	a, _ := src.Query(ctx, storage.Filter{})
	b, _ := dst.Query(ctx, storage.Filter{})
	for i := range a {
		a[i].ID, b[i].ID = 0, 0
		if a[i] != b[i] {
			t.Errorf("row %d differs after round trip: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParseImportPolicy(t *testing.T) {
	if p, err := ParseImportPolicy("skip"); err != nil || p != SkipInvalid {
		t.Errorf("skip: %v %v", p, err)
	}
	if p, err := ParseImportPolicy(""); err != nil || p != AbortOnError {
		t.Errorf("empty: %v %v", p, err)
	}
	if _, err := ParseImportPolicy("maybe"); !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTransactionService_Close(t *testing.T) {
	service := &TransactionService{}
	if err := service.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}
