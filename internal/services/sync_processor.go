package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"saldo/internal/ledger"
	"saldo/internal/log"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an item is left alone (default: 5)
	MaxRetries int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   5,
	}
}

// SyncProcessor drains the sync outbox into the mirror.
type SyncProcessor struct {
	tracker ledger.SyncTracker
	txs     ledger.TransactionWriter
	mirror  ledger.Mirror
	config  SyncProcessorConfig
	logger  *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(tracker ledger.SyncTracker, txs ledger.TransactionWriter, mirror ledger.Mirror, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &SyncProcessor{
		tracker: tracker,
		txs:     txs,
		mirror:  mirror,
		config:  config,
		logger:  logger.WithComponent(log.ComponentSheets),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch mirrors one batch of outbox items and returns how many
// succeeded.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.tracker.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to get pending sync items", log.FieldError, err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	p.logger.DebugContext(ctx, "Processing sync batch", log.FieldCount, len(items))

	synced := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return synced
		}
		if item.Attempts >= p.config.MaxRetries {
			continue
		}
		if err := p.process(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		synced++
	}
	return synced
}

// SyncOne mirrors a single transaction's outstanding action, if any.
func (p *SyncProcessor) SyncOne(ctx context.Context, id string) error {
	items, err := p.tracker.PendingSync(ctx, 0)
	if err != nil {
		return fmt.Errorf("get pending sync items: %w", err)
	}
	for _, item := range items {
		if item.TransactionID != id {
			continue
		}
		if err := p.process(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
			return err
		}
		return nil
	}
	p.logger.DebugContext(ctx, "Nothing to sync", log.FieldTxID, id)
	return nil
}

// process replaces the mirrored row. Removing first keeps retried appends
// from duplicating rows.
func (p *SyncProcessor) process(ctx context.Context, item ledger.SyncItem) error {
	switch item.Op {
	case ledger.SyncUpsert:
		tx, err := p.txs.GetTransaction(ctx, item.TransactionID)
		if errors.Is(err, ledger.ErrNotFound) {
			// Deleted after being queued; the delete will be queued separately.
			return p.tracker.MarkSynced(ctx, item.TransactionID)
		}
		if err != nil {
			return fmt.Errorf("get transaction %s: %w", item.TransactionID, err)
		}
		if err := p.mirror.Delete(ctx, tx.ID); err != nil {
			return fmt.Errorf("remove stale row: %w", err)
		}
		ref, err := p.mirror.Append(ctx, tx)
		if err != nil {
			return fmt.Errorf("append to mirror: %w", err)
		}
		p.logger.InfoContext(ctx, "Synced transaction", log.FieldTxID, tx.ID, log.FieldSheetsRef, ref)
	case ledger.SyncDelete:
		if err := p.mirror.Delete(ctx, item.TransactionID); err != nil {
			return fmt.Errorf("delete from mirror: %w", err)
		}
		p.logger.InfoContext(ctx, "Deleted transaction from mirror", log.FieldTxID, item.TransactionID)
	default:
		return fmt.Errorf("unknown sync operation: %s", item.Op)
	}

	if err := p.tracker.MarkSynced(ctx, item.TransactionID); err != nil {
		p.logger.WarnContext(ctx, "Failed to mark transaction as synced", log.FieldTxID, item.TransactionID, log.FieldError, err)
		// Don't fail the item, the mirror is already up to date
	}
	return nil
}

func (p *SyncProcessor) handleFailure(ctx context.Context, item ledger.SyncItem, processErr error) {
	attempt := item.Attempts + 1
	p.logger.WarnContext(ctx, "Sync processing failed",
		log.FieldTxID, item.TransactionID,
		log.FieldSyncOp, item.Op,
		log.FieldAttempt, attempt,
		log.FieldError, processErr)

	if err := p.tracker.MarkSyncError(ctx, item.TransactionID, processErr.Error()); err != nil {
		p.logger.ErrorContext(ctx, "Failed to record sync error", log.FieldTxID, item.TransactionID, log.FieldError, err)
	}
	if attempt >= p.config.MaxRetries {
		p.logger.ErrorContext(ctx, "Sync item failed permanently after max retries",
			log.FieldTxID, item.TransactionID, log.FieldAttempt, attempt)
	}
}
