package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/transfer"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Line  int    `json:"line,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ErrorFor maps err to a response: request errors are 400, validation errors
// 422 and everything else 500 with a generic message.
func ErrorFor(err error) *JSONResponseBuilder {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
	case isBadRequest(err):
		return BadRequestError(err.Error())
	case core.IsValidation(err):
		body := errorBody{Error: err.Error()}
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			body.Field = ve.Field
		}
		var re transfer.RowError
		if errors.As(err, &re) {
			body.Line = re.Line
		}
		return NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(body)
	default:
		return InternalServerError("internal server error")
	}
}

// writeError writes ErrorFor(err) and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, operation, nil)
	}
	resp.Write(w)
}

// transactionJSON is the wire form of a stored transaction.
type transactionJSON struct {
	ID          int64      `json:"id"`
	Date        core.Date  `json:"date"`
	Kind        core.Kind  `json:"kind"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Account     string     `json:"account"`
	Tags        string     `json:"tags"`
	TenantID    string     `json:"tenant_id,omitempty"`
}

func toTransactionJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = transactionJSON{
			ID:          t.ID,
			Date:        t.Date,
			Kind:        t.Kind,
			Category:    t.Category,
			Subcategory: t.Subcategory,
			Description: t.Description,
			Amount:      t.Amount,
			Account:     t.Account,
			Tags:        t.Tags,
			TenantID:    t.TenantID,
		}
	}
	return out
}
