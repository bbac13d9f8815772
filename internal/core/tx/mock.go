package tx

import "context"

// MockManager is a test implementation of Manager that runs the function
// directly without a real transaction. Use in unit tests together with
// in-memory repositories.
type MockManager struct{}

// RunInTransaction implements Manager.
func (MockManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ReadOnly implements ReadOnlyManager.
func (MockManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Ensure compile-time interface compliance.
var _ ReadOnlyManager = MockManager{}
