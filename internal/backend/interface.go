package backend

import (
	"context"

	"mesa/internal/billing"
	"mesa/internal/core"
	"mesa/internal/dashboard"
)

// Store is the unified persistence surface the application needs: the
// billing engine's write port, the dashboard's read port, and collaborator
// creation. Both storage backends satisfy it.
type Store interface {
	billing.Store
	dashboard.Reader

	CreateCard(ctx context.Context, c *core.Card) error
	CreateIncome(ctx context.Context, in *core.Income) error
	CreateMesa(ctx context.Context, name string) (int64, error)
	InvoicesByMesa(ctx context.Context, mesaID int64) ([]*core.Invoice, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates storage backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
