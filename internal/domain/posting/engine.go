// Package posting provides the document posting engine: the single path
// by which documents record their movements into the inventory ledgers.
//
// Posting is one-way. A posted document is immutable; mistakes are fixed
// by posting a correcting document with compensating entries, never by
// unposting or rewriting the ledger.
package posting

import (
	"context"
	"fmt"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/domain/ledger"
	"kardex/pkg/logger"
)

// Postable is implemented by documents that post ledger entries.
// entity.Document provides GetID, IsPosted, CanPost and MarkPosted;
// document types add GetDocumentType and GenerateEntries.
type Postable interface {
	GetID() id.ID
	GetCompanyID() id.ID
	IsPosted() bool
	CanPost(ctx context.Context) error
	MarkPosted()
	GetDocumentType() string

	// GenerateEntries produces the entry requests this document posts.
	// An empty set is valid (e.g. a stock count with no variance).
	GenerateEntries(ctx context.Context) ([]ledger.EntryRequest, error)
}

// Engine coordinates document posting: validation, entry generation,
// atomic ledger write and document state update in one transaction.
type Engine struct {
	poster    *ledger.Poster
	txManager tx.Manager
}

// NewEngine creates a posting engine.
func NewEngine(poster *ledger.Poster, txManager tx.Manager) *Engine {
	return &Engine{
		poster:    poster,
		txManager: txManager,
	}
}

// Post records the document's movements and marks it posted.
// updateDoc persists the document state inside the same transaction, so
// a document can never be marked posted without its entries, nor entries
// committed for an unmarked document.
func (e *Engine) Post(ctx context.Context, doc Postable, updateDoc func(ctx context.Context) error) error {
	if doc.IsPosted() {
		return apperror.NewAlreadyPosted(doc.GetDocumentType(), doc.GetID().String())
	}

	if err := doc.CanPost(ctx); err != nil {
		return err
	}

	reqs, err := doc.GenerateEntries(ctx)
	if err != nil {
		return fmt.Errorf("generate entries: %w", err)
	}

	// Stamp the recorder so every entry traces back to this document.
	for i := range reqs {
		reqs[i].RecorderID = doc.GetID()
		reqs[i].RecorderType = doc.GetDocumentType()
	}

	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if len(reqs) > 0 {
			if _, err := e.poster.PostSet(ctx, doc.GetCompanyID(), reqs); err != nil {
				return err
			}
		}

		doc.MarkPosted()
		if err := updateDoc(ctx); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "document posted",
		"type", doc.GetDocumentType(),
		"id", doc.GetID(),
		"entries", len(reqs),
	)
	return nil
}
