// Package audit provides helpers that stamp the acting user onto entities.
package audit

import (
	"context"

	appctx "kardex/internal/core/context"
	"kardex/internal/core/id"
)

// EnrichCreatedByDirect sets CreatedBy and UpdatedBy from the request
// context. Use in BeforeCreate hooks; a missing user is a no-op.
func EnrichCreatedByDirect(ctx context.Context, createdBy, updatedBy *string) {
	userID := contextUserID(ctx)
	if userID != "" && createdBy != nil && updatedBy != nil {
		*createdBy = userID
		*updatedBy = userID
	}
}

// EnrichUpdatedByDirect sets UpdatedBy from the request context.
// Use in BeforeUpdate hooks.
func EnrichUpdatedByDirect(ctx context.Context, updatedBy *string) {
	userID := contextUserID(ctx)
	if userID != "" && updatedBy != nil {
		*updatedBy = userID
	}
}

func contextUserID(ctx context.Context) string {
	userID := appctx.GetUserID(ctx)
	if id.IsNil(userID) {
		return ""
	}
	return userID.String()
}
