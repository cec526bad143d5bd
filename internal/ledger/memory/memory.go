// Package memory is an in-process ledger.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/importer"
	"saldo/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	items      []core.Transaction
	closingDay int
	limit      core.Money
	version    int64
	imports    map[string]ledger.Import
	sync       map[string]*ledger.SyncItem
	syncOrder  []string
}

var _ ledger.Store = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	s := &Store{
		imports: make(map[string]ledger.Import),
		sync:    make(map[string]*ledger.SyncItem),
	}
	for _, tx := range seed {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		s.items = append(s.items, tx)
	}
	return s
}

// NewFromFile seeds the store from a CSV export. Rows the importer rejects
// are dropped. An empty path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	res, err := importer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return New(res.Transactions...), nil
}

func (s *Store) Close() error { return nil }

// ListTransactions returns a copy so callers can aggregate without holding the lock.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Transaction{}, ledger.ErrNotFound
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	s.version++
	s.queueSync(tx.ID, ledger.SyncUpsert)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(tx.ID)
	if i < 0 {
		return ledger.ErrNotFound
	}
	s.items[i] = tx
	s.version++
	s.queueSync(tx.ID, ledger.SyncUpsert)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ledger.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.version++
	s.queueSync(id, ledger.SyncDelete)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, tx := range s.items {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) ClosingDay(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closingDay, nil
}

func (s *Store) SetClosingDay(_ context.Context, day int) error {
	if _, err := core.CycleConfigFromDay(day); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closingDay = day
	s.version++
	return nil
}

func (s *Store) SpendingLimit(_ context.Context) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit, nil
}

func (s *Store) SetSpendingLimit(_ context.Context, limit core.Money) error {
	if limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	s.version++
	return nil
}

func (s *Store) ChangeVersion(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

func (s *Store) SaveImport(_ context.Context, imp ledger.Import) (ledger.Import, error) {
	if imp.ID == "" {
		imp.ID = uuid.NewString()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}
	if imp.Status == "" {
		imp.Status = ledger.ImportPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports[imp.ID] = imp
	return imp, nil
}

func (s *Store) GetImport(_ context.Context, id string) (ledger.Import, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[id]
	if !ok {
		return ledger.Import{}, ledger.ErrNotFound
	}
	return imp, nil
}

func (s *Store) PendingImports(_ context.Context, limit int) ([]ledger.Import, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Import, 0)
	for _, imp := range s.imports {
		if imp.Status == ledger.ImportPending {
			out = append(out, imp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FinishImport(_ context.Context, id string, imported, skipped int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[id]
	if !ok {
		return ledger.ErrNotFound
	}
	imp.Imported, imp.Skipped, imp.Error = imported, skipped, errMsg
	imp.Status = ledger.ImportDone
	if errMsg != "" {
		imp.Status = ledger.ImportFailed
	}
	imp.Body = nil
	s.imports[id] = imp
	return nil
}

// queueSync must be called with mu held.
func (s *Store) queueSync(id string, op ledger.SyncOp) {
	if item, ok := s.sync[id]; ok {
		item.Op = op
		return
	}
	s.sync[id] = &ledger.SyncItem{TransactionID: id, Op: op}
	s.syncOrder = append(s.syncOrder, id)
}

func (s *Store) PendingSync(_ context.Context, limit int) ([]ledger.SyncItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.SyncItem, 0)
	for _, id := range s.syncOrder {
		if item, ok := s.sync[id]; ok {
			out = append(out, *item)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sync, id)
	for i, v := range s.syncOrder {
		if v == id {
			s.syncOrder = append(s.syncOrder[:i], s.syncOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, id string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.sync[id]; ok {
		item.Attempts++
	}
	return nil
}
