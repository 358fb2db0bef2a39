package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

type MemoryStore struct {
	mu         sync.RWMutex
	closed     bool
	retail     []models.RetailRecord
	mandi      []models.MandiRecord
	retailMeta models.DatasetMeta
	mandiMeta  models.DatasetMeta
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) ReplaceRetail(ctx context.Context, meta models.DatasetMeta, records []models.RetailRecord) error {
	if err := ctx.Err(); err != nil {
		return wrap("memory", "replace retail", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return wrap("memory", "replace retail", ErrClosed)
	}
	m.retail = append([]models.RetailRecord(nil), records...)
	m.retailMeta = meta
	return nil
}

func (m *MemoryStore) ReplaceMandi(ctx context.Context, meta models.DatasetMeta, records []models.MandiRecord) error {
	if err := ctx.Err(); err != nil {
		return wrap("memory", "replace mandi", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return wrap("memory", "replace mandi", ErrClosed)
	}
	m.mandi = append([]models.MandiRecord(nil), records...)
	m.mandiMeta = meta
	return nil
}

func (m *MemoryStore) Retail(ctx context.Context) ([]models.RetailRecord, models.DatasetMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, models.DatasetMeta{}, wrap("memory", "read retail", ErrClosed)
	}
	return append([]models.RetailRecord{}, m.retail...), m.retailMeta, nil
}

func (m *MemoryStore) Mandi(ctx context.Context) ([]models.MandiRecord, models.DatasetMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, models.DatasetMeta{}, wrap("memory", "read mandi", ErrClosed)
	}
	return append([]models.MandiRecord{}, m.mandi...), m.mandiMeta, nil
}

func (m *MemoryStore) Meta(ctx context.Context, kind Kind) (models.DatasetMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return models.DatasetMeta{}, wrap("memory", "meta", ErrClosed)
	}
	switch kind {
	case KindRetail:
		return m.retailMeta, nil
	case KindMandi:
		return m.mandiMeta, nil
	default:
		return models.DatasetMeta{}, wrap("memory", "meta", fmt.Errorf("unknown dataset %q", kind))
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return wrap("memory", "ping", ErrClosed)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
