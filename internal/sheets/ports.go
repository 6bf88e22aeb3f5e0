package sheets

import (
	"context"

	"cashflow/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter publishes a transaction list to a spreadsheet.
	TransactionExporter interface {
		// Export replaces the target range with txs and returns a reference
		// to the written range.
		Export(ctx context.Context, txs []core.Transaction) (ref string, err error)
	}
)
