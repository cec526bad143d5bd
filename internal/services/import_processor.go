package services

import (
	"context"
	"errors"
	"fmt"

	"saldo/internal/importer"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

// ImportProcessor turns stored CSV uploads into transactions.
type ImportProcessor struct {
	imports ledger.ImportQueue
	writer  ledger.TransactionWriter
	reports Invalidator
	logger  *log.Logger
}

// NewImportProcessor builds a processor. reports may be nil when the caller
// holds no report cache.
func NewImportProcessor(imports ledger.ImportQueue, writer ledger.TransactionWriter, reports Invalidator, logger *log.Logger) *ImportProcessor {
	return &ImportProcessor{
		imports: imports,
		writer:  writer,
		reports: reports,
		logger:  logger.WithComponent(log.ComponentImport),
	}
}

// Process imports one upload. Finished imports are left untouched so that
// redelivered events are harmless.
func (p *ImportProcessor) Process(ctx context.Context, id string) error {
	imp, err := p.imports.GetImport(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		p.logger.WarnContext(ctx, "Import not found, skipping", log.FieldImportID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get import %s: %w", id, err)
	}
	if imp.Status != ledger.ImportPending {
		p.logger.DebugContext(ctx, "Import already finished", log.FieldImportID, id, "status", imp.Status)
		return nil
	}

	res, err := importer.ParseBytes(imp.Body)
	if err != nil {
		p.logger.WarnContext(ctx, "Import rejected", log.FieldImportID, id, log.FieldError, err)
		return p.imports.FinishImport(ctx, id, 0, 0, err.Error())
	}

	for _, rowErr := range res.Errors {
		p.logger.DebugContext(ctx, "Skipping CSV row", log.FieldImportID, id, "line", rowErr.Line, "reason", rowErr.Reason)
	}

	imported, skipped := 0, len(res.Errors)
	for _, tx := range res.Transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.writer.CreateTransaction(ctx, tx); err != nil {
			p.logger.WarnContext(ctx, "Failed to store imported transaction", log.FieldImportID, id, log.FieldError, err)
			skipped++
			continue
		}
		imported++
	}

	if err := p.imports.FinishImport(ctx, id, imported, skipped, ""); err != nil {
		return fmt.Errorf("finish import %s: %w", id, err)
	}
	if imported > 0 && p.reports != nil {
		p.reports.Invalidate()
	}

	p.logger.InfoContext(ctx, "Import finished",
		log.FieldImportID, id,
		log.FieldFilename, imp.Filename,
		"imported", imported,
		"skipped", skipped)
	return nil
}

// ProcessPending sweeps uploads whose event was lost.
func (p *ImportProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := p.imports.PendingImports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending imports: %w", err)
	}
	done := 0
	for _, imp := range pending {
		if err := p.Process(ctx, imp.ID); err != nil {
			p.logger.ErrorContext(ctx, "Failed to process pending import", log.FieldImportID, imp.ID, log.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}
