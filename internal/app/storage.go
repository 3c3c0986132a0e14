// Package app assembles repositories and services for the configured
// storage driver.
package app

import (
	"context"
	"fmt"

	"stockroom/internal/core/config"
	"stockroom/internal/core/numerator"
	"stockroom/internal/core/tx"
	"stockroom/internal/domain/audit"
	"stockroom/internal/domain/catalogs/category"
	"stockroom/internal/domain/catalogs/location"
	"stockroom/internal/domain/catalogs/product"
	"stockroom/internal/domain/catalogs/supplier"
	po "stockroom/internal/domain/documents/purchase_order"
	"stockroom/internal/domain/ledger"
	pgnumerator "stockroom/internal/infrastructure/numerator"
	"stockroom/internal/infrastructure/storage/memory"
	"stockroom/internal/infrastructure/storage/postgres"
	"stockroom/internal/infrastructure/storage/postgres/catalog_repo"
	"stockroom/internal/infrastructure/storage/postgres/document_repo"
	"stockroom/internal/infrastructure/storage/postgres/ledger_repo"
	"stockroom/pkg/logger"
)

// Storage is one backing store: a transaction manager plus every repository.
type Storage struct {
	TxManager tx.Manager

	Categories     category.Repository
	Suppliers      supplier.Repository
	Products       product.Repository
	Locations      location.Repository
	StockLevels    ledger.StockLevelRepository
	Transactions   ledger.TransactionRepository
	PurchaseOrders po.Repository
	Numerator      numerator.Generator
	Audit          audit.Recorder

	// Ping reports readiness of the store
	Ping func(ctx context.Context) error

	close func()
}

// Close releases the store's resources.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// NewMemoryStorage returns a fresh in-process store.
func NewMemoryStorage() *Storage {
	repos := memory.NewRepositories()
	return &Storage{
		TxManager:      repos.Store,
		Categories:     repos.Categories,
		Suppliers:      repos.Suppliers,
		Products:       repos.Products,
		Locations:      repos.Locations,
		StockLevels:    repos.StockLevels,
		Transactions:   repos.Transactions,
		PurchaseOrders: repos.PurchaseOrders,
		Numerator:      repos.Numerator,
		Audit:          repos.Audit,
		Ping:           func(context.Context) error { return nil },
	}
}

// NewPostgresStorage builds repositories over an open pool.
func NewPostgresStorage(pool *postgres.Pool, cfg config.DatabaseConfig) (*Storage, error) {
	txm := postgres.NewTxManager(pool, cfg.StatementTimeout)

	auditLog, err := postgres.NewAuditLog(txm)
	if err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	return &Storage{
		TxManager:      txm,
		Categories:     catalog_repo.NewCategoryRepo(txm),
		Suppliers:      catalog_repo.NewSupplierRepo(txm),
		Products:       catalog_repo.NewProductRepo(txm),
		Locations:      catalog_repo.NewLocationRepo(txm),
		StockLevels:    ledger_repo.NewStockLevelRepo(txm),
		Transactions:   ledger_repo.NewTransactionRepo(txm),
		PurchaseOrders: document_repo.NewPurchaseOrderRepo(txm),
		Numerator:      pgnumerator.New(txm),
		Audit:          auditLog,
		Ping:           pool.Ping,
	}, nil
}

// OpenStorage opens the driver selected by cfg, migrating the schema first
// when configured to.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn(ctx, "using in-memory storage; data is lost on restart")
		return NewMemoryStorage(), nil

	case config.DriverPostgres, "":
		if cfg.Database.MigrateOnStart {
			if err := migrateUp(ctx, cfg.Database.URL); err != nil {
				return nil, err
			}
		}

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		storage, err := NewPostgresStorage(pool, cfg.Database)
		if err != nil {
			pool.Close()
			return nil, err
		}
		storage.close = pool.Close
		return storage, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func migrateUp(ctx context.Context, databaseURL string) error {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}
