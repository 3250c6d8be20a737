package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
	"github.com/jonssons-io/project-yoshi-sub001/internal/services"
	"github.com/jonssons-io/project-yoshi-sub001/internal/storage"
	"github.com/jonssons-io/project-yoshi-sub001/internal/storage/memory"
)

const publishDrainTimeout = 5 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(config)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	client := f.connectAMQP(ctx, config)

	// A nil pointer stored in the interface would not compare equal to nil,
	// so the publisher is only set when a client exists. Services only
	// enqueue; broker retries happen on the background publisher.
	var (
		publisher services.EventPublisher
		async     *amqp.AsyncPublisher
	)
	if client != nil {
		async = amqp.NewAsyncPublisher(client, amqp.DefaultPublishBuffer)
		publisher = async
	}

	result := &BackendResult{
		Store: store,
		Services: Services{
			Accounts:    services.NewAccountLedger(store, config.Clock),
			Series:      services.NewBalanceSeries(store),
			Allocations: services.NewAllocationLedger(store, publisher),
			Transfers:   services.NewTransferCoordinator(store, publisher),
		},
		EventsEnabled: client != nil,
		Cleanup: func() error {
			var errs []error
			if async != nil {
				drainCtx, cancel := context.WithTimeout(context.Background(), publishDrainTimeout)
				errs = append(errs, async.Close(drainCtx))
				cancel()
				published, failed, dropped := async.Stats()
				f.logger.Info("Ledger event publisher stopped",
					"published", published,
					"failed", failed,
					"dropped", dropped)
			}
			if client != nil {
				errs = append(errs, client.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

// connectAMQP returns nil when AMQP is not configured or unreachable;
// the ledger keeps working without events.
func (f *DefaultFactory) connectAMQP(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
			log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
