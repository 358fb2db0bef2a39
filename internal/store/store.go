package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

type Kind string

const (
	KindRetail Kind = "retail"
	KindMandi  Kind = "mandi"
)

// RecordStore keeps the latest uploaded dataset of each kind. A replace swaps
// the whole dataset atomically; readers never see a half-written upload.
type RecordStore interface {
	ReplaceRetail(ctx context.Context, meta models.DatasetMeta, records []models.RetailRecord) error
	ReplaceMandi(ctx context.Context, meta models.DatasetMeta, records []models.MandiRecord) error
	Retail(ctx context.Context) ([]models.RetailRecord, models.DatasetMeta, error)
	Mandi(ctx context.Context) ([]models.MandiRecord, models.DatasetMeta, error)
	// Meta returns the current dataset metadata without loading records.
	Meta(ctx context.Context, kind Kind) (models.DatasetMeta, error)
	Ping(ctx context.Context) error
	Name() string
	Close() error
}

var ErrClosed = errors.New("store is closed")

// Error is a storage failure with the driver and operation that produced it.
type Error struct {
	Driver string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Driver, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(driver, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Driver: driver, Op: op, Err: err}
}

func Open(cfg config.Config) (RecordStore, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return NewMemory(), nil
	case "badger":
		return OpenBadger(cfg.BadgerPath)
	case "postgres":
		return OpenPostgres(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
