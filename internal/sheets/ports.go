// Package sheets defines the port for mirroring savings snapshots to an
// external spreadsheet. The mirror is optional and strictly best-effort;
// the database stays the source of truth.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// SavingsMirror appends finalized monthly savings rows to a spreadsheet.
type SavingsMirror interface {
	AppendSnapshot(ctx context.Context, s core.MonthlySaving) error
}
