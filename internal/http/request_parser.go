// Package http exposes the transaction store, taxonomy and reports as a JSON
// API on a chi router.
//
// This file holds the request-side helpers: filter and tenant extraction and
// a body parser accepting both JSON and form-encoded entries.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cashflow/internal/core"
	"cashflow/internal/services"
	"cashflow/internal/storage"
)

// HeaderTenantID selects the tenant of a request.
const HeaderTenantID = "X-Tenant-ID"

// requestError is a malformed request: the client sent something that is not
// even a candidate for validation. It maps to 400.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error, format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...), err: err}
}

func isBadRequest(err error) bool {
	var re *requestError
	return errors.As(err, &re)
}

// tenantFrom returns the X-Tenant-ID header, or fallback when it is absent.
func tenantFrom(r *http.Request, fallback string) string {
	if t := strings.TrimSpace(r.Header.Get(HeaderTenantID)); t != "" {
		return t
	}
	return fallback
}

// ParseFilter reads kind, category, subcategory, from, to and q from query.
// Selector values meaning "all" impose no constraint. Malformed kinds or
// dates are request errors.
func ParseFilter(query url.Values, tenant string) (storage.Filter, error) {
	f := storage.Filter{
		Category:    query.Get("category"),
		Subcategory: query.Get("subcategory"),
		Search:      query.Get("q"),
		TenantID:    tenant,
	}
	if f.Search == "" {
		f.Search = query.Get("search")
	}

	if v := query.Get("kind"); !storage.IsAll(v) {
		kind, err := core.ParseKind(v)
		if err != nil {
			return storage.Filter{}, badRequest(err, "invalid kind %q", v)
		}
		f.Kind = kind
	}

	var err error
	if f.DateFrom, err = parseDateParam(query, "from"); err != nil {
		return storage.Filter{}, err
	}
	if f.DateTo, err = parseDateParam(query, "to"); err != nil {
		return storage.Filter{}, err
	}
	if m := strings.TrimSpace(query.Get("month")); m != "" {
		ym, err := core.ParseYearMonth(m)
		if err != nil {
			return storage.Filter{}, badRequest(err, "invalid month %q", m)
		}
		f.DateFrom, f.DateTo = ym.First(), ym.Last()
	}
	return f.Normalize(), nil
}

// parseDateParam returns the zero date when key is absent.
func parseDateParam(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest(err, "invalid %s date %q", key, v)
	}
	return d, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data. Failures are request
// errors.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = badRequest(p.err, "read request body")
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = badRequest(err, "malformed JSON body")
			return p.err
		}
		return nil
	}

	var err error
	if p.formData, err = url.ParseQuery(string(body)); err != nil {
		p.err = badRequest(err, "malformed form body")
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return strings.TrimSpace(stringValue(p.jsonData[key]))
	}
	if p.formData != nil {
		return strings.TrimSpace(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Transaction maps the parsed body to a service input. "type" is accepted as
// an alias of "kind".
func (p *RequestBodyParser) Transaction(tenant string) services.NewTransaction {
	kind := p.Get("kind")
	if kind == "" {
		kind = p.Get("type")
	}
	return services.NewTransaction{
		Date:        p.Get("date"),
		Kind:        kind,
		Category:    p.Get("category"),
		Subcategory: p.Get("subcategory"),
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Account:     p.Get("account"),
		Tags:        p.Get("tags"),
		TenantID:    tenant,
	}
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// literal text.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
