// Package worker consumes ledger events in the background process.
package worker

import (
	"context"
	"fmt"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/log"
)

// Importer processes stored CSV uploads.
type Importer interface {
	Process(ctx context.Context, id string) error
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// Syncer mirrors outstanding transaction changes.
type Syncer interface {
	SyncOne(ctx context.Context, id string) error
	ProcessBatch(ctx context.Context) int
}

// EventWorker routes broker events to the import and mirror processors.
type EventWorker struct {
	imports   Importer
	syncer    Syncer
	batchSize int
	logger    *log.Logger
}

// NewEventWorker builds a worker. syncer may be nil when no mirror is
// configured; transaction events are then acknowledged and dropped.
func NewEventWorker(imports Importer, syncer Syncer, batchSize int, logger *log.Logger) *EventWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &EventWorker{
		imports:   imports,
		syncer:    syncer,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler. A returned error requeues the message.
func (w *EventWorker) HandleEvent(ctx context.Context, ev amqp.Event) error {
	w.logger.InfoContext(ctx, "Processing event", log.FieldEventKind, ev.Kind, "id", ev.ID)

	switch ev.Kind {
	case amqp.ImportRequested:
		if err := w.imports.Process(ctx, ev.ID); err != nil {
			return fmt.Errorf("process import: %w", err)
		}
	case amqp.TransactionCreated, amqp.TransactionUpdated, amqp.TransactionDeleted:
		if w.syncer == nil {
			w.logger.DebugContext(ctx, "No mirror configured, skipping sync", log.FieldTxID, ev.ID)
			return nil
		}
		if err := w.syncer.SyncOne(ctx, ev.ID); err != nil {
			return fmt.Errorf("sync transaction: %w", err)
		}
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", log.FieldEventKind, ev.Kind)
	}
	return nil
}

// ProcessPending is the backup sweep for events that were lost.
func (w *EventWorker) ProcessPending(ctx context.Context) error {
	n, err := w.imports.ProcessPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("process pending imports: %w", err)
	}
	synced := 0
	if w.syncer != nil {
		synced = w.syncer.ProcessBatch(ctx)
	}
	if n > 0 || synced > 0 {
		w.logger.InfoContext(ctx, "Processed pending work", "imports", n, "synced", synced)
	}
	return nil
}

// RunSweeps calls ProcessPending immediately and then on every tick until
// ctx is done.
func (w *EventWorker) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessPending(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Pending sweep failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
