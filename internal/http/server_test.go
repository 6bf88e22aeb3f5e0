package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "cashflow/internal/log"
	"cashflow/internal/report"
	"cashflow/internal/services"
	"cashflow/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewStore()
	srv := NewServer(":0", Deps{
		Service:            services.NewTransactionService(store, nil, nil),
		Engine:             report.NewEngine(store),
		Ready:              store.Ping,
		Logger:             applog.New(applog.Config{Output: &bytes.Buffer{}}),
		DefaultTenant:      "",
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "http_requests_total 3") {
		t.Errorf("metrics = %d %q", rr.Code, rr.Body.String())
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	store := memory.NewStore()
	srv := NewServer(":0", Deps{
		Service: services.NewTransactionService(store, nil, nil),
		Engine:  report.NewEngine(store),
		Ready:   func(context.Context) error { return errors.New("db down") },
		Logger:  applog.New(applog.Config{Output: &bytes.Buffer{}}),
	})
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestTaxonomyEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/taxonomy/categories?kind=Income", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	cats := decode(t, rr)["categories"].([]any)
	if len(cats) == 0 || cats[0] != "Salary" {
		t.Errorf("income categories = %v", cats)
	}

	rr = do(t, srv, http.MethodGet, "/api/taxonomy/categories?kind=Todos", "", "")
	all := decode(t, rr)["categories"].([]any)
	if len(all) <= len(cats) || all[0] != "Housing" {
		t.Errorf("all categories = %v", all)
	}

	rr = do(t, srv, http.MethodGet, "/api/taxonomy/subcategories?category=Salary", "", "")
	subs := decode(t, rr)["subcategories"].([]any)
	if len(subs) != 3 {
		t.Errorf("any subcategories of Salary = %v", subs)
	}

	rr = do(t, srv, http.MethodGet, "/api/taxonomy/subcategories?category=Nope&kind=Expense", "", "")
	if subs := decode(t, rr)["subcategories"].([]any); len(subs) != 0 {
		t.Errorf("unknown category should be empty, got %v", subs)
	}

	rr = do(t, srv, http.MethodGet, "/api/taxonomy/categories?kind=bogus", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad kind status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/taxonomy", "", "")
	if tree := decode(t, rr); tree["expense"] == nil || tree["income"] == nil {
		t.Errorf("tree = %v", tree)
	}
}

func TestCreateTransactionStatusCodes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
		field       string
	}{
		{"json", "application/json", `{"date":"2025-01-10","kind":"Expense","category":"Food","subcategory":"Supermarket","amount":12.5}`, http.StatusCreated, ""},
		{"form", "application/x-www-form-urlencoded", "date=2025-01-11&type=Income&category=Salary&subcategory=Salary&amount=1000,00", http.StatusCreated, ""},
		{"zero amount", "application/json", `{"date":"2025-01-10","kind":"Expense","category":"Food","subcategory":"Supermarket","amount":"0"}`, http.StatusUnprocessableEntity, "amount"},
		{"missing category", "application/json", `{"date":"2025-01-10","kind":"Expense","subcategory":"Supermarket","amount":"3"}`, http.StatusUnprocessableEntity, "category"},
		{"wrong taxonomy pair", "application/json", `{"date":"2025-01-10","kind":"Income","category":"Food","subcategory":"Supermarket","amount":"3"}`, http.StatusUnprocessableEntity, "category"},
		{"malformed json", "application/json", `{"date":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.contentType, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if tt.field != "" {
				if got := decode(t, rr)["field"]; got != tt.field {
					t.Errorf("field = %v, want %s", got, tt.field)
				}
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/transactions", "", "")
	list := decode(t, rr)
	if list["count"].(float64) != 2 {
		t.Fatalf("count = %v", list["count"])
	}
	first := list["transactions"].([]any)[0].(map[string]any)
	if first["date"] != "2025-01-11" || first["amount"].(float64) != 1000 {
		t.Errorf("most recent first expected, got %v", first)
	}
}

func TestListFiltersAndTenants(t *testing.T) {
	srv := newTestServer(t)
	post := func(tenant, body string) {
		t.Helper()
		rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", body, HeaderTenantID, tenant)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
		}
	}
	post("acme", `{"date":"2025-02-01","kind":"Expense","category":"Food","subcategory":"Restaurant","amount":"40","description":"100% pizza"}`)
	post("acme", `{"date":"2025-02-03","kind":"Expense","category":"Housing","subcategory":"Rent","amount":"900"}`)
	post("other", `{"date":"2025-02-02","kind":"Expense","category":"Food","subcategory":"Restaurant","amount":"15"}`)

	count := func(query string, tenant string) float64 {
		t.Helper()
		rr := do(t, srv, http.MethodGet, "/api/transactions"+query, "", "", HeaderTenantID, tenant)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", query, rr.Code)
		}
		return decode(t, rr)["count"].(float64)
	}

	if got := count("", "acme"); got != 2 {
		t.Errorf("acme count = %v", got)
	}
	if got := count("?category=Food&kind=Todos", "acme"); got != 1 {
		t.Errorf("food count = %v", got)
	}
	if got := count("?q=%25", "acme"); got != 1 {
		t.Errorf("literal percent search = %v", got)
	}
	if got := count("?from=2025-02-02&to=2025-02-03", "acme"); got != 1 {
		t.Errorf("date range count = %v", got)
	}
	if got := count("?category=Nothing", "acme"); got != 0 {
		t.Errorf("unmatched filter should be empty, got %v", got)
	}

	rr := do(t, srv, http.MethodGet, "/api/transactions?from=02/01/2025", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed date status=%d", rr.Code)
	}
}

func TestReports(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`{"date":"2025-01-05","kind":"Income","category":"Salary","subcategory":"Salary","amount":"1000"}`,
		`{"date":"2025-01-06","kind":"Expense","category":"Housing","subcategory":"Rent","amount":"400"}`,
		`{"date":"2025-02-05","kind":"Income","category":"Salary","subcategory":"Salary","amount":"1000"}`,
		`{"date":"2025-02-06","kind":"Expense","category":"Food","subcategory":"Supermarket","amount":"50"}`,
		`{"date":"2025-02-07","kind":"Expense","category":"Housing","subcategory":"Rent","amount":"200"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rr.Code, rr.Body.String())
		}
	}

	totals := decode(t, do(t, srv, http.MethodGet, "/api/reports/totals", "", ""))
	if totals["income"].(float64) != 2000 || totals["expense"].(float64) != 650 || totals["balance"].(float64) != 1350 {
		t.Errorf("totals = %v", totals)
	}

	months := decode(t, do(t, srv, http.MethodGet, "/api/reports/cashflow", "", ""))["months"].([]any)
	if len(months) != 2 || months[0].(map[string]any)["label"] != "Jan/2025" || months[1].(map[string]any)["net"].(float64) != 750 {
		t.Errorf("cashflow = %v", months)
	}

	breakdown := decode(t, do(t, srv, http.MethodGet, "/api/reports/breakdown?from=2025-02-01", "", ""))["months"].([]any)
	if len(breakdown) != 1 || breakdown[0].(map[string]any)["expense"].(float64) != 250 {
		t.Errorf("breakdown = %v", breakdown)
	}

	cats := decode(t, do(t, srv, http.MethodGet, "/api/reports/categories?kind=Income", "", ""))
	if cats["kind"] != "Income" {
		t.Errorf("category sums kind = %v", cats["kind"])
	}
	cats = decode(t, do(t, srv, http.MethodGet, "/api/reports/categories", "", ""))
	rows := cats["categories"].([]any)
	if len(rows) != 2 || rows[0].(map[string]any)["category"] != "Housing" {
		t.Errorf("category sums = %v", rows)
	}

	advice := decode(t, do(t, srv, http.MethodGet, "/api/reports/advice", "", ""))
	if !advice["advice"].(map[string]any)["available"].(bool) {
		t.Errorf("advice should be available: %v", advice)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestServer(t)
	body := `{"date":"2025-03-01","kind":"Expense","category":"Food","subcategory":"Supermarket","amount":"12.34","tags":"weekly"}`
	if rr := do(t, src, http.MethodPost, "/api/transactions", "application/json", body); rr.Code != http.StatusCreated {
		t.Fatalf("seed: %d", rr.Code)
	}

	rr := do(t, src, http.MethodGet, "/api/export.csv", "", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	csvDoc := rr.Body.String()
	if !strings.HasPrefix(csvDoc, "date,kind,category,subcategory,description,amount,account,tags") {
		t.Fatalf("unexpected export: %q", csvDoc)
	}

	dst := newTestServer(t)
	rr = do(t, dst, http.MethodPost, "/api/import", "text/csv", csvDoc)
	if rr.Code != http.StatusOK || decode(t, rr)["imported"].(float64) != 1 {
		t.Fatalf("import: %d %s", rr.Code, rr.Body.String())
	}
	again := do(t, dst, http.MethodGet, "/api/export.csv", "", "")
	if again.Body.String() != csvDoc {
		t.Errorf("round trip mismatch:\n%s\n%s", csvDoc, again.Body.String())
	}
}

func TestImportPolicies(t *testing.T) {
	doc := "date,kind,category,subcategory,description,amount,account,tags\n" +
		"2025-01-01,Expense,Food,Supermarket,,10,,\n" +
		"2025-01-02,Expense,Food,Supermarket,,-5,,\n" +
		"2025-01-03,Expense,Food,Supermarket,,7,,\n"

	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/import?policy=skip", "text/csv", doc)
	res := decode(t, rr)
	if rr.Code != http.StatusOK || res["imported"].(float64) != 2 || res["skipped"].(float64) != 1 {
		t.Fatalf("skip: %d %v", rr.Code, res)
	}
	if line := res["errors"].([]any)[0].(map[string]any)["line"].(float64); line != 3 {
		t.Errorf("error line = %v, want 3", line)
	}

	srv = newTestServer(t)
	rr = do(t, srv, http.MethodPost, "/api/import", "text/csv", doc)
	res = decode(t, rr)
	if rr.Code != http.StatusUnprocessableEntity || res["imported"].(float64) != 1 {
		t.Fatalf("abort: %d %v", rr.Code, res)
	}
	if line, _ := res["line"].(float64); line != 3 {
		t.Errorf("abort line = %v, want 3", res["line"])
	}

	rr = do(t, srv, http.MethodPost, "/api/import", "text/csv", "date,kind\n2025-01-01,Expense\n")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing columns status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/import?policy=maybe", "text/csv", doc)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown policy status=%d", rr.Code)
	}
}

func TestImportMalformedQuoting(t *testing.T) {
	doc := "date,kind,category,subcategory,description,amount,account,tags\n" +
		"2025-01-01,Expense,Food,Supermarket,a \"bad\" quote,10,,\n"

	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/import", "text/csv", doc)
	res := decode(t, rr)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("abort: %d %v", rr.Code, res)
	}
	if line, _ := res["line"].(float64); line != 2 {
		t.Errorf("line = %v, want 2", res["line"])
	}
	if res["imported"].(float64) != 0 {
		t.Errorf("imported = %v", res["imported"])
	}

	rr = do(t, srv, http.MethodPost, "/api/import?policy=skip", "text/csv", doc)
	res = decode(t, rr)
	if rr.Code != http.StatusOK || res["skipped"].(float64) != 1 {
		t.Fatalf("skip: %d %v", rr.Code, res)
	}
}

func TestImportMultipart(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "tx.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("Date,Type,Category,Subcategory,Description,Amount,Account,Tags\n2025-01-01,income,Salary,Bonus,,250,,\n"))
	_ = mw.Close()

	rr := do(t, srv, http.MethodPost, "/api/import", mw.FormDataContentType(), buf.String())
	if rr.Code != http.StatusOK || decode(t, rr)["imported"].(float64) != 1 {
		t.Fatalf("multipart import: %d %s", rr.Code, rr.Body.String())
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	if rr := do(t, srv, http.MethodGet, "/api/nope", "", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions", "", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status=%d", rr.Code)
	}
}
