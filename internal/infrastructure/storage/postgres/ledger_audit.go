package postgres

import (
	"context"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
)

// Compile-time checks.
var (
	_ ledger.PostingAudit   = (*LedgerAudit)(nil)
	_ ledger.EventPublisher = (*LedgerEvents)(nil)
)

// LedgerAudit records posted entry sets into the audit trail. Large
// multi-line postings (opnames, backflushes) benefit from the audit
// service's zstd payload compression.
type LedgerAudit struct {
	audit *AuditService
}

// NewLedgerAudit creates the posting audit adapter.
func NewLedgerAudit(audit *AuditService) *LedgerAudit {
	return &LedgerAudit{audit: audit}
}

// RecordPosted implements ledger.PostingAudit.
func (a *LedgerAudit) RecordPosted(ctx context.Context, referenceType string, recorderID id.ID, entries []entity.LedgerEntry) error {
	lines := make([]map[string]any, len(entries))
	for i := range entries {
		e := &entries[i]
		lines[i] = map[string]any{
			"entryId":   e.ID,
			"item":      e.ItemRef.String(),
			"warehouse": e.WarehouseID,
			"bin":       e.BinID,
			"type":      e.EntryType,
			"qtyIn":     e.QtyIn,
			"qtyOut":    e.QtyOut,
			"unitCost":  e.UnitCost,
			"reference": e.ReferenceNumber,
		}
	}

	entityID := recorderID
	if id.IsNil(entityID) {
		entityID = entries[0].ID
	}

	return a.audit.LogChange(ctx, "LedgerEntry", entityID, AuditActionPost, map[string]any{
		"referenceType": referenceType,
		"entries":       lines,
	})
}

// LedgerEvents hands posted entries to the transactional outbox.
type LedgerEvents struct {
	publisher *OutboxPublisher
}

// NewLedgerEvents creates the outbox adapter.
func NewLedgerEvents(publisher *OutboxPublisher) *LedgerEvents {
	return &LedgerEvents{publisher: publisher}
}

// PublishEntries implements ledger.EventPublisher. One event per entry,
// committed in the posting transaction; the relay delivers them later.
func (e *LedgerEvents) PublishEntries(ctx context.Context, entries []entity.LedgerEntry) error {
	events := make([]DomainEvent, len(entries))
	for i := range entries {
		entry := &entries[i]
		events[i] = DomainEvent{
			AggregateType: "LedgerEntry",
			AggregateID:   entry.ID,
			EventType:     "LedgerEntryPosted",
			Payload:       entry,
		}
	}
	return e.publisher.PublishBatch(ctx, events)
}
