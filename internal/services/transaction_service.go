package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// Invalidator drops derived data after a write.
type Invalidator interface {
	Invalidate()
}

// TransactionService orchestrates writes across the store and the broker.
// Writes land in the store first; events are best effort.
type TransactionService struct {
	store     ledger.Store
	publisher EventPublisher
	reports   Invalidator
	imports   *ImportProcessor
	logger    *log.Logger

	// finished imports already reflected in the report cache
	seenMu sync.Mutex
	seen   map[string]struct{}
}

// NewTransactionService wires the write path. publisher may be nil, in which
// case imports are processed inline.
func NewTransactionService(store ledger.Store, publisher EventPublisher, reports Invalidator, logger *log.Logger) *TransactionService {
	s := &TransactionService{
		store:     store,
		publisher: publisher,
		reports:   reports,
		logger:    logger.WithComponent(log.ComponentLedger),
		seen:      make(map[string]struct{}),
	}
	s.imports = NewImportProcessor(store, store, reports, logger)
	return s
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Create validates and stores a transaction, returning it with its new ID.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = normalize(tx)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.afterWrite(ctx, amqp.TransactionCreated, created.ID)

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(created.ID, string(created.Type), created.Amount.Cents, created.Category).ToSlice()...)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = normalize(tx)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.afterWrite(ctx, amqp.TransactionUpdated, tx.ID)
	s.logger.InfoContext(ctx, "Transaction updated", log.FieldTxID, tx.ID)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.afterWrite(ctx, amqp.TransactionDeleted, id)
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id)
	return nil
}

// SetClosingDay validates and stores the billing cycle closing day.
func (s *TransactionService) SetClosingDay(ctx context.Context, day int) (core.CycleConfig, error) {
	cfg, err := core.CycleConfigFromDay(day)
	if err != nil {
		return core.CycleConfig{}, err
	}
	if err := s.store.SetClosingDay(ctx, cfg.Day()); err != nil {
		return core.CycleConfig{}, fmt.Errorf("save closing day: %w", err)
	}
	s.reports.Invalidate()
	s.logger.InfoContext(ctx, "Closing day updated", log.FieldClosingDay, cfg.Day())
	return cfg, nil
}

// SetSpendingLimit stores the monthly limit. Zero clears it.
func (s *TransactionService) SetSpendingLimit(ctx context.Context, limit core.Money) error {
	if limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if err := s.store.SetSpendingLimit(ctx, limit); err != nil {
		return fmt.Errorf("save spending limit: %w", err)
	}
	s.reports.Invalidate()
	s.logger.InfoContext(ctx, "Spending limit updated", log.FieldAmountCents, limit.Cents)
	return nil
}

// RequestImport stores an uploaded CSV. With a broker the worker picks it
// up from the import.requested event; without one it is processed now.
func (s *TransactionService) RequestImport(ctx context.Context, filename string, body []byte) (ledger.Import, error) {
	imp, err := s.store.SaveImport(ctx, ledger.Import{
		Filename: filename,
		Body:     body,
		Status:   ledger.ImportPending,
	})
	if err != nil {
		return ledger.Import{}, fmt.Errorf("save import: %w", err)
	}
	s.logger.InfoContext(ctx, "Import requested", log.FieldImportID, imp.ID, log.FieldFilename, filename)

	if s.publisher == nil {
		if err := s.imports.Process(ctx, imp.ID); err != nil {
			return ledger.Import{}, err
		}
		return s.store.GetImport(ctx, imp.ID)
	}

	if err := s.publisher.Publish(ctx, amqp.NewEvent(amqp.ImportRequested, imp.ID)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish import event", log.FieldImportID, imp.ID, log.FieldError, err)
		// Don't fail the request, the worker sweep picks up pending imports
	}
	return imp, nil
}

// ImportStatus returns an import. The first time a finished import is seen
// the report cache is dropped, since the rows were written by another process.
func (s *TransactionService) ImportStatus(ctx context.Context, id string) (ledger.Import, error) {
	imp, err := s.store.GetImport(ctx, id)
	if err != nil {
		return ledger.Import{}, err
	}
	if imp.Status != ledger.ImportPending {
		s.seenMu.Lock()
		_, ok := s.seen[id]
		s.seen[id] = struct{}{}
		s.seenMu.Unlock()
		if !ok {
			s.reports.Invalidate()
		}
	}
	return imp, nil
}

func (s *TransactionService) afterWrite(ctx context.Context, kind amqp.EventKind, id string) {
	s.reports.Invalidate()

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping event", log.FieldEventKind, kind)
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewEvent(kind, id)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			log.FieldEventKind, kind, log.FieldTxID, id, log.FieldError, err)
		// Don't fail the request, the transaction is saved and queued for sync
	}
}

func normalize(tx core.Transaction) core.Transaction {
	tx.Title = strings.TrimSpace(tx.Title)
	tx.Category = strings.TrimSpace(tx.Category)
	return tx
}

// Close closes the store and the broker connection.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
