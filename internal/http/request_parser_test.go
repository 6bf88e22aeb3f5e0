package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    func(t *testing.T, got storage.Filter)
		wantErr bool
	}{
		{
			name:  "all selectors mean no constraint",
			query: url.Values{"kind": {"Todos"}, "category": {"Todas"}, "subcategory": {"all"}},
			want: func(t *testing.T, got storage.Filter) {
				if got.Kind != "" || got.Category != "" || got.Subcategory != "" {
					t.Errorf("expected empty selectors, got %+v", got)
				}
			},
		},
		{
			name:  "kind, range and search",
			query: url.Values{"kind": {"despesa"}, "from": {"2025-01-01"}, "to": {"2025-01-31"}, "q": {"50%"}},
			want: func(t *testing.T, got storage.Filter) {
				if got.Kind != core.KindExpense || got.DateFrom.String() != "2025-01-01" || got.DateTo.String() != "2025-01-31" {
					t.Errorf("unexpected filter %+v", got)
				}
				if got.Search != "50%" {
					t.Errorf("Search = %q", got.Search)
				}
			},
		},
		{
			name:  "month shortcut",
			query: url.Values{"month": {"2024-02"}},
			want: func(t *testing.T, got storage.Filter) {
				if got.DateFrom.String() != "2024-02-01" || got.DateTo.String() != "2024-02-29" {
					t.Errorf("month bounds = %s..%s", got.DateFrom, got.DateTo)
				}
			},
		},
		{
			name:  "search is not trimmed",
			query: url.Values{"q": {" pay"}},
			want: func(t *testing.T, got storage.Filter) {
				if got.Search != " pay" {
					t.Errorf("Search = %q", got.Search)
				}
			},
		},
		{
			name:  "search alias",
			query: url.Values{"search": {"rent"}},
			want: func(t *testing.T, got storage.Filter) {
				if got.Search != "rent" {
					t.Errorf("Search = %q", got.Search)
				}
			},
		},
		{name: "bad kind", query: url.Values{"kind": {"Transfer"}}, wantErr: true},
		{name: "bad date", query: url.Values{"from": {"31/01/2025"}}, wantErr: true},
		{name: "bad month", query: url.Values{"month": {"2025-13"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.query, "acme")
			if tt.wantErr {
				if err == nil || !isBadRequest(err) {
					t.Fatalf("expected request error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}
			if got.TenantID != "acme" {
				t.Errorf("TenantID = %q", got.TenantID)
			}
			tt.want(t, got)
		})
	}
}

func TestTenantFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := tenantFrom(req, "home"); got != "home" {
		t.Errorf("fallback tenant = %q", got)
	}
	req.Header.Set(HeaderTenantID, " acme ")
	if got := tenantFrom(req, "home"); got != "acme" {
		t.Errorf("header tenant = %q", got)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"date": "2025-01-02", "kind": "Expense", "amount": 42.50, "tags": "a,b"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	// Numbers keep their literal text.
	if amount := parser.Get("amount"); amount != "42.50" {
		t.Errorf("Get('amount') = %q, want '42.50'", amount)
	}

	in := parser.Transaction("acme")
	if in.Date != "2025-01-02" || in.Kind != "Expense" || in.Tags != "a,b" || in.TenantID != "acme" {
		t.Errorf("Transaction() = %+v", in)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "type=Income&category=Salary&description=june+pay&amount=10%2C5"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	in := parser.Transaction("")
	if in.Kind != "Income" || in.Description != "june pay" || in.Amount != "10,5" {
		t.Errorf("Transaction() = %+v", in)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"date": `))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err == nil || !isBadRequest(err) {
		t.Fatalf("expected request error, got %v", err)
	}
	if again := parser.Parse(); again != err {
		t.Errorf("Parse() should be idempotent")
	}
}
