package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
	"cashflow/internal/storage"
	"cashflow/internal/transfer"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}

	if s.deps.Ready != nil {
		ctx, cancel := withTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("transactions_created_total", "counter", "Transactions stored through the API", s.appMetrics.createdTotal())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

// parseKindParam returns ok=false when the parameter means "any kind".
func parseKindParam(r *http.Request) (core.Kind, bool, error) {
	v := r.URL.Query().Get("kind")
	if storage.IsAll(v) {
		return "", false, nil
	}
	kind, err := core.ParseKind(v)
	if err != nil {
		return "", false, badRequest(err, "invalid kind %q", v)
	}
	return kind, true, nil
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"expense": s.deps.Taxonomy.Tree(core.KindExpense),
		"income":  s.deps.Taxonomy.Tree(core.KindIncome),
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	kind, ok, err := parseKindParam(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	cats := s.deps.Taxonomy.AllCategories()
	if ok {
		cats = s.deps.Taxonomy.Categories(kind)
	}
	NewJSONResponse().Body(map[string]any{"kind": kind, "categories": cats}).Write(w)
}

func (s *Server) handleSubcategories(w http.ResponseWriter, r *http.Request) {
	kind, ok, err := parseKindParam(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	subs := s.deps.Taxonomy.AnySubcategories(category)
	if ok {
		subs = s.deps.Taxonomy.Subcategories(category, kind)
	}
	NewJSONResponse().Body(map[string]any{"category": category, "kind": kind, "subcategories": subs}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tenant := s.tenant(r)
	in := parser.Transaction(tenant)

	t, err := s.deps.Service.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.appMetrics.addCreated(1)

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionCreated(r.Context(), t.ID, string(t.Kind), t.Category, t.Subcategory, t.Amount.Cents, t.TenantID)

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]int64{"id": t.ID}).
		Write(w)
}

func (s *Server) filter(r *http.Request) (storage.Filter, error) {
	return ParseFilter(r.URL.Query(), s.tenant(r))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.deps.Service.List(r.Context(), f)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"count":        len(txs),
		"transactions": toTransactionJSON(txs),
	}).Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	totals, err := s.deps.Engine.Totals(r.Context(), f)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(totals).Write(w)
}

func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	rows, err := s.deps.Engine.MonthlyCashflow(r.Context(), f.DateFrom, f.DateTo, f.TenantID)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"months": rows}).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	rows, err := s.deps.Engine.MonthlyBreakdown(r.Context(), f.DateFrom, f.DateTo, f.TenantID)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"months": rows}).Write(w)
}

// handleCategorySums sums expenses per category under the full filter. With
// kind=Income it sums income per category over the date range instead.
func (s *Server) handleCategorySums(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	kind := core.KindExpense
	var sums []core.CategoryAmount
	if f.Kind == core.KindIncome {
		kind = core.KindIncome
		sums, err = s.deps.Engine.CategorySumsByKind(r.Context(), kind, f.DateFrom, f.DateTo, f.TenantID)
	} else {
		sums, err = s.deps.Engine.CategorySums(r.Context(), f)
	}
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"kind": kind, "categories": sums}).Write(w)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	advice, err := s.deps.Engine.Advice(r.Context(), f)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"advice": advice,
		"alerts": advice.Alerts(),
	}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := s.filter(r)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	n, err := s.deps.Service.Export(r.Context(), &buf, f)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.Header().Set("X-Total-Count", fmt.Sprint(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport accepts a raw CSV body or a multipart upload in field "file".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	policy, err := services.ParseImportPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, applog.OpImport, badRequest(err, "missing file upload"))
			return
		}
		defer file.Close()
		body = file
	}

	tenant := s.tenant(r)
	res, err := s.deps.Service.Import(r.Context(), body, tenant, policy)
	s.appMetrics.addCreated(res.Imported)
	if err != nil {
		if !core.IsValidation(err) {
			writeError(w, r, applog.OpImport, err)
			return
		}
		resp := ErrorFor(err)
		body := map[string]any{
			"error":    err.Error(),
			"imported": res.Imported,
			"skipped":  res.Skipped,
			"errors":   res.Errors,
		}
		var re transfer.RowError
		if errors.As(err, &re) {
			body["line"] = re.Line
		}
		NewJSONResponse().Status(resp.statusCode).Body(body).Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogImport(r.Context(), tenant, res.Imported, res.Skipped)
	NewJSONResponse().Body(res).Write(w)
}
