package database

import (
	"fmt"

	"github.com/asakaida/eurocore/internal/infrastructure/config"
	"github.com/asakaida/eurocore/internal/infrastructure/logging"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Badger represents an embedded BadgerDB store
type Badger struct {
	DB *badger.DB
}

// NewBadger opens the embedded store described by cfg.
func NewBadger(cfg *config.BadgerConfig, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	opts = opts.
		WithLogger(logging.NewBadgerLogger(logger)).
		WithMemTableSize(16 << 20).     // 16MB instead of 64MB
		WithValueLogFileSize(64 << 20). // 64MB instead of 1GB
		WithNumMemtables(2).
		WithValueThreshold(1024)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Badger{DB: db}, nil
}

// NewBadgerInMemory opens a throwaway in-memory store, used by tests.
func NewBadgerInMemory() (*Badger, error) {
	return NewBadger(&config.BadgerConfig{InMemory: true}, nil)
}

// Close closes the store
func (b *Badger) Close() error {
	if b.DB != nil {
		return b.DB.Close()
	}
	return nil
}
