// Package transfer reads and writes transactions as CSV.
package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cashflow/internal/core"
)

// Columns is the export header and the set of columns an import requires.
var Columns = []string{"date", "kind", "category", "subcategory", "description", "amount", "account", "tags"}

// headerAliases maps legacy column names onto Columns.
var headerAliases = map[string]string{
	"data":         "date",
	"tipo":         "kind",
	"type":         "kind",
	"categoria":    "category",
	"subcategoria": "subcategory",
	"descricao":    "description",
	"valor":        "amount",
	"conta":        "account",
}

const bom = "\ufeff"

// Write emits the header followed by one row per transaction, in order.
func Write(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		rec := []string{
			t.Date.String(),
			string(t.Kind),
			t.Category,
			t.Subcategory,
			t.Description,
			t.Amount.String(),
			t.Account,
			t.Tags,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RowError is a rejected data row. Line is 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

func (e RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line  int    `json:"line"`
		Error string `json:"error"`
	}{e.Line, e.Err.Error()})
}

// Row is one parsed data row or the reason it was rejected.
type Row struct {
	Line        int
	Transaction core.Transaction
	Err         error
}

// Reader decodes transactions from CSV.
type Reader struct {
	cr   *csv.Reader
	cols map[string]int
}

// NewReader reads and validates the header. A header missing any of
// Columns rejects the whole input with a ValidationError wrapping
// core.ErrMissingColumns.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.ValidationError{Field: "file", Err: fmt.Errorf("%w: %s", core.ErrMissingColumns, strings.Join(Columns, ", "))}
	}
	if err != nil {
		return nil, &core.ValidationError{Field: "file", Err: fmt.Errorf("read csv header: %w", err)}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if canon, ok := headerAliases[h]; ok {
			h = canon
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var missing []string
	for _, c := range Columns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &core.ValidationError{
			Field: "file",
			Err:   fmt.Errorf("%w: %s", core.ErrMissingColumns, strings.Join(missing, ", ")),
		}
	}
	return &Reader{cr: cr, cols: cols}, nil
}

// Next returns the next row. It returns io.EOF after the last row. Malformed
// rows are returned with Err set so the caller decides whether to continue.
func (r *Reader) Next() (Row, error) {
	for {
		rec, err := r.cr.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return Row{Line: pe.Line, Err: &core.ValidationError{Field: "row", Err: pe.Err}}, nil
			}
			return Row{}, err
		}
		if blank(rec) {
			continue
		}
		line, _ := r.cr.FieldPos(0)
		t, err := r.parse(rec)
		return Row{Line: line, Transaction: t, Err: err}, nil
	}
}

func (r *Reader) field(rec []string, name string) string {
	i := r.cols[name]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parse applies the same checks as a manual entry, minus taxonomy
// membership.
func (r *Reader) parse(rec []string) (core.Transaction, error) {
	date, err := core.ParseDate(r.field(rec, "date"))
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(r.field(rec, "kind"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseMoney(r.field(rec, "amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:        date,
		Kind:        kind,
		Category:    r.field(rec, "category"),
		Subcategory: r.field(rec, "subcategory"),
		Description: r.field(rec, "description"),
		Amount:      amount,
		Account:     r.field(rec, "account"),
		Tags:        r.field(rec, "tags"),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
