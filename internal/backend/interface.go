package backend

import (
	"context"

	"github.com/jonssons-io/project-yoshi-sub001/internal/core"
	"github.com/jonssons-io/project-yoshi-sub001/internal/services"
	"github.com/jonssons-io/project-yoshi-sub001/internal/storage"
	"github.com/jonssons-io/project-yoshi-sub001/internal/storage/memory"
)

// Store is everything the ledger services read plus the bootstrap writes
// callers use to set a household up.
type Store interface {
	services.Store

	CreateHousehold(ctx context.Context, name, ownerUserID string) (core.Household, error)
	AddMember(ctx context.Context, householdID, userID string) error
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	RenameAccount(ctx context.Context, id, name string) error
	ArchiveAccount(ctx context.Context, id string, archived bool) error
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	LinkAccount(ctx context.Context, budgetID, accountID string) error
	Close() error
}

var (
	_ Store = (*storage.SQLiteRepository)(nil)
	_ Store = (*memory.Store)(nil)
)

// Services bundles the ledger components over one store.
type Services struct {
	Accounts    *services.AccountLedger
	Series      *services.BalanceSeries
	Allocations *services.AllocationLedger
	Transfers   *services.TransferCoordinator
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the services wired over it and the
// cleanup that releases both.
type BackendResult struct {
	Store    Store
	Services Services
	// EventsEnabled reports whether writes are published to AMQP.
	EventsEnabled bool
	Cleanup       CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP; empty URL means no events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Clock for CurrentBalance; nil means time.Now
	Clock services.Clock
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
