package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	settingClosingDay    = "closing_day"
	settingSpendingLimit = "spending_limit_cents"
)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectTransaction = `SELECT id, tx_date, title, amount_cents, tx_type, category FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx    core.Transaction
		date  string
		cents int64
		typ   string
	)
	if err := row.Scan(&tx.ID, &date, &tx.Title, &cents, &typ, &tx.Category); err != nil {
		return core.Transaction{}, err
	}
	// Unparseable dates stay zero and are excluded by the analytics.
	tx.Date, _ = core.ParseDate(date)
	tx.Amount = core.Money{Cents: cents}
	tx.Type = core.TxType(typ)
	return tx, nil
}

// ListTransactions implements ledger.TransactionLister
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+` ORDER BY tx_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return tx, nil
}

// CreateTransaction inserts the row and queues it for mirroring in one SQL transaction.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := r.withTx(ctx, func(q *sql.Tx) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO transactions (id, tx_date, title, amount_cents, tx_type, category) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date.String(), t.Title, t.Amount.Cents, string(t.Type), t.Category)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := bumpVersion(ctx, q); err != nil {
			return err
		}
		return queueSync(ctx, q, t.ID, ledger.SyncUpsert)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(q *sql.Tx) error {
		res, err := q.ExecContext(ctx,
			`UPDATE transactions SET tx_date = ?, title = ?, amount_cents = ?, tx_type = ?, category = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			t.Date.String(), t.Title, t.Amount.Cents, string(t.Type), t.Category, t.ID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		if err := bumpVersion(ctx, q); err != nil {
			return err
		}
		return queueSync(ctx, q, t.ID, ledger.SyncUpsert)
	})
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.withTx(ctx, func(q *sql.Tx) error {
		res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		if err := bumpVersion(ctx, q); err != nil {
			return err
		}
		return queueSync(ctx, q, id, ledger.SyncDelete)
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Settings

func (r *SQLiteRepository) getSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

func (r *SQLiteRepository) setSetting(ctx context.Context, key, value string) error {
	return r.withTx(ctx, func(q *sql.Tx) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value)
		if err != nil {
			return fmt.Errorf("set setting %s: %w", key, err)
		}
		return bumpVersion(ctx, q)
	})
}

// bumpVersion must run inside the transaction that changes report inputs.
func bumpVersion(ctx context.Context, q *sql.Tx) error {
	if _, err := q.ExecContext(ctx, `UPDATE ledger_version SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump ledger version: %w", err)
	}
	return nil
}

// ChangeVersion reads the counter shared by every process using this database.
func (r *SQLiteRepository) ChangeVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, `SELECT version FROM ledger_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read ledger version: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) ClosingDay(ctx context.Context) (int, error) {
	v, err := r.getSetting(ctx, settingClosingDay)
	if err != nil || v == "" {
		return 0, err
	}
	day, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("stored closing day %q: %w", v, err)
	}
	return day, nil
}

func (r *SQLiteRepository) SetClosingDay(ctx context.Context, day int) error {
	if _, err := core.CycleConfigFromDay(day); err != nil {
		return err
	}
	return r.setSetting(ctx, settingClosingDay, strconv.Itoa(day))
}

func (r *SQLiteRepository) SpendingLimit(ctx context.Context) (core.Money, error) {
	v, err := r.getSetting(ctx, settingSpendingLimit)
	if err != nil || v == "" {
		return core.Money{}, err
	}
	cents, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return core.Money{}, fmt.Errorf("stored spending limit %q: %w", v, err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) SetSpendingLimit(ctx context.Context, limit core.Money) error {
	if limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return r.setSetting(ctx, settingSpendingLimit, strconv.FormatInt(limit.Cents, 10))
}

// Imports

func (r *SQLiteRepository) SaveImport(ctx context.Context, imp ledger.Import) (ledger.Import, error) {
	if imp.ID == "" {
		imp.ID = uuid.NewString()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}
	if imp.Status == "" {
		imp.Status = ledger.ImportPending
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO imports (id, filename, body, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		imp.ID, imp.Filename, imp.Body, string(imp.Status), imp.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return ledger.Import{}, fmt.Errorf("insert import: %w", err)
	}
	return imp, nil
}

const selectImport = `SELECT id, filename, body, status, imported, skipped, error, created_at FROM imports`

func scanImport(row rowScanner) (ledger.Import, error) {
	var (
		imp     ledger.Import
		status  string
		created string
	)
	if err := row.Scan(&imp.ID, &imp.Filename, &imp.Body, &status, &imp.Imported, &imp.Skipped, &imp.Error, &created); err != nil {
		return ledger.Import{}, err
	}
	imp.Status = ledger.ImportStatus(status)
	imp.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return imp, nil
}

func (r *SQLiteRepository) GetImport(ctx context.Context, id string) (ledger.Import, error) {
	imp, err := scanImport(r.db.QueryRowContext(ctx, selectImport+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Import{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Import{}, fmt.Errorf("get import: %w", err)
	}
	return imp, nil
}

func (r *SQLiteRepository) PendingImports(ctx context.Context, limit int) ([]ledger.Import, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, selectImport+` WHERE status = ? ORDER BY created_at LIMIT ?`, string(ledger.ImportPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending imports: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.Import, 0)
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// FinishImport records the outcome and drops the uploaded body.
func (r *SQLiteRepository) FinishImport(ctx context.Context, id string, imported, skipped int, errMsg string) error {
	status := ledger.ImportDone
	if errMsg != "" {
		status = ledger.ImportFailed
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE imports SET status = ?, imported = ?, skipped = ?, error = ?, body = NULL WHERE id = ?`,
		string(status), imported, skipped, errMsg, id)
	if err != nil {
		return fmt.Errorf("finish import: %w", err)
	}
	return requireRow(res)
}

// Sync outbox

func queueSync(ctx context.Context, q *sql.Tx, id string, op ledger.SyncOp) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO sync_outbox (transaction_id, op) VALUES (?, ?)
		 ON CONFLICT(transaction_id) DO UPDATE SET op = excluded.op, attempts = 0, last_error = ''`,
		id, string(op))
	if err != nil {
		return fmt.Errorf("queue sync: %w", err)
	}
	return nil
}

// PendingSync returns outbox entries oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]ledger.SyncItem, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT transaction_id, op, attempts FROM sync_outbox ORDER BY queued_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.SyncItem, 0)
	for rows.Next() {
		var (
			item ledger.SyncItem
			op   string
		)
		if err := rows.Scan(&item.TransactionID, &op, &item.Attempts); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		item.Op = ledger.SyncOp(op)
		out = append(out, item)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as successfully mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_outbox WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed mirror attempt
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_outbox SET attempts = attempts + 1, last_error = ? WHERE transaction_id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "error", msg)
	return nil
}
