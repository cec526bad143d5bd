// Package ledger defines the storage ports the reporting services depend on.
package ledger

import (
	"context"
	"errors"
	"time"

	"saldo/internal/core"
)

var ErrNotFound = errors.New("not found")

type ImportStatus string

const (
	ImportPending ImportStatus = "pending"
	ImportDone    ImportStatus = "done"
	ImportFailed  ImportStatus = "failed"
)

// Import is an uploaded CSV waiting for, or finished with, processing.
type Import struct {
	ID        string       `json:"id"`
	Filename  string       `json:"filename"`
	Body      []byte       `json:"-"`
	Status    ImportStatus `json:"status"`
	Imported  int          `json:"imported"`
	Skipped   int          `json:"skipped"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// SyncOp is the pending mirror action for a transaction.
type SyncOp string

const (
	SyncUpsert SyncOp = "upsert"
	SyncDelete SyncOp = "delete"
)

// SyncItem is one outstanding mirror action.
type SyncItem struct {
	TransactionID string
	Op            SyncOp
	Attempts      int
}

// Ports for outbound adapters.
type (
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// CreateTransaction stores tx, assigning an ID when empty.
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	// SettingsStore returns zero values for settings that were never saved.
	SettingsStore interface {
		ClosingDay(ctx context.Context) (int, error)
		SetClosingDay(ctx context.Context, day int) error
		SpendingLimit(ctx context.Context) (core.Money, error)
		SetSpendingLimit(ctx context.Context, limit core.Money) error
	}

	ImportQueue interface {
		SaveImport(ctx context.Context, imp Import) (Import, error)
		GetImport(ctx context.Context, id string) (Import, error)
		PendingImports(ctx context.Context, limit int) ([]Import, error)
		FinishImport(ctx context.Context, id string, imported, skipped int, errMsg string) error
	}

	// SyncTracker records which transactions still need mirroring.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]SyncItem, error)
		MarkSynced(ctx context.Context, id string) error
		MarkSyncError(ctx context.Context, id string, msg string) error
	}

	// ChangeTracker exposes a counter that every committed change to
	// transactions or settings increments, whichever process made it.
	ChangeTracker interface {
		ChangeVersion(ctx context.Context) (int64, error)
	}

	// Mirror is an external copy of the ledger, such as a spreadsheet.
	Mirror interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		Delete(ctx context.Context, id string) error
	}

	// Store is the full persistence surface implemented by every backend.
	Store interface {
		TransactionLister
		TransactionWriter
		SettingsStore
		ImportQueue
		SyncTracker
		ChangeTracker
		Close() error
	}
)
