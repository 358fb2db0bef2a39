package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timshannon/badgerhold/v4"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func meta(version string, rows int) models.DatasetMeta {
	return models.DatasetMeta{
		Version:    version,
		Filename:   version + ".csv",
		Rows:       rows,
		UploadedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func exerciseStore(t *testing.T, s RecordStore) {
	ctx := context.Background()

	retail, m, err := s.Retail(ctx)
	require.NoError(t, err)
	assert.NotNil(t, retail)
	assert.Empty(t, retail)
	assert.True(t, m.Empty())

	first := []models.RetailRecord{
		{Date: d("2024-03-01"), Product: "Onions", SalesQuantity: 120, SalesValue: 3000},
		{Date: d("2024-03-02"), Product: "Potatoes", SalesQuantity: 80, SalesValue: 1600},
	}
	require.NoError(t, s.ReplaceRetail(ctx, meta("v1", 2), first))

	retail, m, err = s.Retail(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, retail)
	assert.Equal(t, "v1", m.Version)
	assert.Equal(t, 2, m.Rows)
	assert.True(t, m.UploadedAt.Equal(meta("v1", 2).UploadedAt))

	onlyMeta, err := s.Meta(ctx, KindRetail)
	require.NoError(t, err)
	assert.Equal(t, "v1", onlyMeta.Version)
	onlyMeta, err = s.Meta(ctx, KindMandi)
	require.NoError(t, err)
	assert.True(t, onlyMeta.Empty())

	second := []models.RetailRecord{
		{Date: d("2024-03-05"), Product: "Garlic", SalesQuantity: 10, SalesValue: 900},
	}
	require.NoError(t, s.ReplaceRetail(ctx, meta("v2", 1), second))
	retail, m, err = s.Retail(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, retail, "a replace drops the previous upload")
	assert.Equal(t, "v2", m.Version)

	prices := []models.MandiRecord{
		{Date: d("2024-03-01"), Product: "Onions", Price: 22.5, Location: "Lasalgaon"},
		{Date: d("2024-03-01"), Product: "Onions", Price: 23, Location: "Pimpalgaon"},
	}
	require.NoError(t, s.ReplaceMandi(ctx, meta("m1", 2), prices))
	mandi, mm, err := s.Mandi(ctx)
	require.NoError(t, err)
	assert.Equal(t, prices, mandi)
	assert.Equal(t, "m1", mm.Version)

	retail, _, err = s.Retail(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, retail, "datasets are independent")

	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)

	require.NoError(t, s.Close())
	_, _, err := s.Retail(context.Background())
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "memory", se.Driver)
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	s := NewMemory()
	records := []models.RetailRecord{{Date: d("2024-03-01"), Product: "Onions", SalesQuantity: 1}}
	require.NoError(t, s.ReplaceRetail(context.Background(), meta("v1", 1), records))

	records[0].Product = "changed"
	got, _, err := s.Retail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Onions", got[0].Product)

	got[0].Product = "changed too"
	again, _, _ := s.Retail(context.Background())
	assert.Equal(t, "Onions", again[0].Product)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.ReplaceMandi(ctx, meta("v", 1), []models.MandiRecord{{Date: d("2024-03-01"), Product: "Onions", Price: 20}})
		}()
		go func() {
			defer wg.Done()
			_, _, _ = s.Mandi(ctx)
		}()
	}
	wg.Wait()

	got, _, err := s.Mandi(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger(filepath.Join(t.TempDir(), "agris"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestBadgerStoreLargeUploadAcrossBatches(t *testing.T) {
	s, err := OpenBadger(filepath.Join(t.TempDir(), "agris"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	records := make([]models.MandiRecord, badgerBatch*2+5)
	for i := range records {
		records[i] = models.MandiRecord{Date: d("2024-03-01").AddDate(0, 0, i%30), Product: "Onions", Price: float64(i)}
	}
	require.NoError(t, s.ReplaceMandi(context.Background(), meta("big", len(records)), records))

	got, m, err := s.Mandi(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(records), m.Rows)
	require.Len(t, got, len(records))
	assert.Equal(t, records[len(records)-1].Price, got[len(got)-1].Price)
}

func TestBadgerStoreReplaceAfterVeryLargeDataset(t *testing.T) {
	if testing.Short() {
		t.Skip("writes 200k rows")
	}
	s, err := OpenBadger(filepath.Join(t.TempDir(), "agris"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	big := make([]models.RetailRecord, 200_000)
	for i := range big {
		big[i] = models.RetailRecord{Date: d("2024-01-01").AddDate(0, 0, i%60), Product: "Onions", SalesQuantity: float64(i)}
	}
	require.NoError(t, s.ReplaceRetail(ctx, meta("v1", len(big)), big))

	small := []models.RetailRecord{{Date: d("2024-03-01"), Product: "Potatoes", SalesQuantity: 7}}
	require.NoError(t, s.ReplaceRetail(ctx, meta("v2", 1), small))

	got, m, err := s.Retail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", m.Version)
	assert.Equal(t, small, got)

	stale, err := s.store.Count(&retailRow{}, badgerhold.Where("Version").Eq("v1"))
	require.NoError(t, err)
	assert.Zero(t, stale)

	require.NoError(t, s.ReplaceRetail(ctx, meta("v3", 1), small))
	m, err = s.Meta(ctx, KindRetail)
	require.NoError(t, err)
	assert.Equal(t, "v3", m.Version)
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agris")
	s, err := OpenBadger(path)
	require.NoError(t, err)
	records := []models.RetailRecord{{Date: d("2024-03-01"), Product: "Onions", SalesQuantity: 5}}
	require.NoError(t, s.ReplaceRetail(context.Background(), meta("v1", 1), records))
	require.NoError(t, s.Close())

	s, err = OpenBadger(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, m, err := s.Retail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, "v1", m.Version)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	s, err = Open(config.Config{StoreDriver: "badger", BadgerPath: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	assert.Equal(t, "badger", s.Name())
	require.NoError(t, s.Close())

	_, err = Open(config.Config{StoreDriver: "sqlite"})
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("AGRIS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AGRIS_TEST_DATABASE_URL not set")
	}
	s, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.ReplaceRetail(ctx, models.DatasetMeta{}, nil))
	require.NoError(t, s.ReplaceMandi(ctx, models.DatasetMeta{}, nil))
	exerciseStore(t, s)
}
