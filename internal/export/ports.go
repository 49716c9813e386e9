// Package export defines the outbound port the export worker writes through
// and a factory over its adapters.
package export

import (
	"context"

	"ledger/internal/storage"
)

// Exporter is the outbound port for the spreadsheet sink.
type Exporter interface {
	// Append writes one transaction row. Appending the same transaction at
	// a newer version replaces the previous row.
	Append(ctx context.Context, t storage.ExportTransaction) error

	// Delete removes the row for a transaction id, if present.
	Delete(ctx context.Context, id int64) error
}
