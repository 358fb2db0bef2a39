package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/phuslu/log"
	"github.com/timshannon/badgerhold/v4"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

const badgerBatch = 1000

type retailRow struct {
	Version       string
	Seq           int
	Date          time.Time
	Product       string
	SalesQuantity float64
	SalesValue    float64
}

type mandiRow struct {
	Version  string
	Seq      int
	Date     time.Time
	Product  string
	Price    float64
	Location string
}

func rowKey(version string, seq int) string {
	return fmt.Sprintf("%s/%08d", version, seq)
}

func (r *retailRow) key() string { return rowKey(r.Version, r.Seq) }
func (r *mandiRow) key() string  { return rowKey(r.Version, r.Seq) }

type datasetRow struct {
	Kind       string
	Version    string
	Filename   string
	Rows       int
	UploadedAt time.Time
}

// BadgerStore writes each upload under its own version, flips the dataset
// pointer, then drops rows of older versions in batches. Reads run in one
// snapshot.
type BadgerStore struct {
	store *badgerhold.Store
	path  string
}

func OpenBadger(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, wrap("badger", "open", fmt.Errorf("creating %s: %w", path, err))
	}
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, wrap("badger", "open", err)
	}
	return &BadgerStore{store: store, path: path}, nil
}

func (b *BadgerStore) Name() string { return "badger" }

func (b *BadgerStore) ReplaceRetail(ctx context.Context, meta models.DatasetMeta, records []models.RetailRecord) error {
	rows := make([]any, len(records))
	for i, r := range records {
		rows[i] = &retailRow{
			Version:       meta.Version,
			Seq:           i,
			Date:          r.Date,
			Product:       r.Product,
			SalesQuantity: r.SalesQuantity,
			SalesValue:    r.SalesValue,
		}
	}
	return b.replace(ctx, KindRetail, meta, rows, func(ctx context.Context, keep string) (int, error) {
		return pruneRows[retailRow](ctx, b, keep)
	})
}

func (b *BadgerStore) ReplaceMandi(ctx context.Context, meta models.DatasetMeta, records []models.MandiRecord) error {
	rows := make([]any, len(records))
	for i, r := range records {
		rows[i] = &mandiRow{
			Version:  meta.Version,
			Seq:      i,
			Date:     r.Date,
			Product:  r.Product,
			Price:    r.Price,
			Location: r.Location,
		}
	}
	return b.replace(ctx, KindMandi, meta, rows, func(ctx context.Context, keep string) (int, error) {
		return pruneRows[mandiRow](ctx, b, keep)
	})
}

func (b *BadgerStore) replace(ctx context.Context, kind Kind, meta models.DatasetMeta, rows []any, prune func(context.Context, string) (int, error)) error {
	op := "replace " + string(kind)
	for start := 0; start < len(rows); start += badgerBatch {
		if err := ctx.Err(); err != nil {
			return wrap("badger", op, err)
		}
		end := min(start+badgerBatch, len(rows))
		err := b.store.Badger().Update(func(tx *badger.Txn) error {
			for i := start; i < end; i++ {
				if err := b.store.TxInsert(tx, rowKey(meta.Version, i), rows[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return wrap("badger", op, err)
		}
	}

	err := b.store.Upsert(string(kind), &datasetRow{
		Kind:       string(kind),
		Version:    meta.Version,
		Filename:   meta.Filename,
		Rows:       meta.Rows,
		UploadedAt: meta.UploadedAt,
	})
	if err != nil {
		return wrap("badger", op, err)
	}

	// The new version is live from here on. A failed prune leaves stale rows
	// that the next replace of this kind picks up again.
	removed, err := prune(ctx, meta.Version)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Str("version", meta.Version).Int("removed", removed).Msg("badger prune incomplete")
		return nil
	}
	log.Debug().Str("kind", string(kind)).Str("version", meta.Version).Int("removed", removed).Msg("badger prune done")
	return nil
}

// pruneRows deletes rows of every version except keep, at most badgerBatch
// rows per transaction.
func pruneRows[T any, P interface {
	*T
	key() string
}](ctx context.Context, b *BadgerStore, keep string) (int, error) {
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n := 0
		err := b.store.Badger().Update(func(tx *badger.Txn) error {
			var rows []T
			if err := b.store.TxFind(tx, &rows, badgerhold.Where("Version").Ne(keep).Limit(badgerBatch)); err != nil {
				return err
			}
			for i := range rows {
				if err := b.store.TxDelete(tx, P(&rows[i]).key(), rows[i]); err != nil {
					return err
				}
			}
			n = len(rows)
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed += n
		if n < badgerBatch {
			return removed, nil
		}
	}
}

func (b *BadgerStore) meta(tx *badger.Txn, kind Kind) (models.DatasetMeta, error) {
	var d datasetRow
	if err := b.store.TxGet(tx, string(kind), &d); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.DatasetMeta{}, nil
		}
		return models.DatasetMeta{}, err
	}
	return models.DatasetMeta{Version: d.Version, Filename: d.Filename, Rows: d.Rows, UploadedAt: d.UploadedAt}, nil
}

func (b *BadgerStore) Retail(ctx context.Context) ([]models.RetailRecord, models.DatasetMeta, error) {
	out := []models.RetailRecord{}
	var meta models.DatasetMeta
	err := b.store.Badger().View(func(tx *badger.Txn) error {
		var err error
		if meta, err = b.meta(tx, KindRetail); err != nil || meta.Empty() {
			return err
		}
		var rows []retailRow
		if err := b.store.TxFind(tx, &rows, badgerhold.Where("Version").Eq(meta.Version)); err != nil {
			return err
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
		for _, r := range rows {
			out = append(out, models.RetailRecord{
				Date:          r.Date.UTC(),
				Product:       r.Product,
				SalesQuantity: r.SalesQuantity,
				SalesValue:    r.SalesValue,
			})
		}
		return nil
	})
	if err != nil {
		return nil, models.DatasetMeta{}, wrap("badger", "read retail", err)
	}
	return out, meta, nil
}

func (b *BadgerStore) Mandi(ctx context.Context) ([]models.MandiRecord, models.DatasetMeta, error) {
	out := []models.MandiRecord{}
	var meta models.DatasetMeta
	err := b.store.Badger().View(func(tx *badger.Txn) error {
		var err error
		if meta, err = b.meta(tx, KindMandi); err != nil || meta.Empty() {
			return err
		}
		var rows []mandiRow
		if err := b.store.TxFind(tx, &rows, badgerhold.Where("Version").Eq(meta.Version)); err != nil {
			return err
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
		for _, r := range rows {
			out = append(out, models.MandiRecord{
				Date:     r.Date.UTC(),
				Product:  r.Product,
				Price:    r.Price,
				Location: r.Location,
			})
		}
		return nil
	})
	if err != nil {
		return nil, models.DatasetMeta{}, wrap("badger", "read mandi", err)
	}
	return out, meta, nil
}

func (b *BadgerStore) Meta(ctx context.Context, kind Kind) (models.DatasetMeta, error) {
	var meta models.DatasetMeta
	err := b.store.Badger().View(func(tx *badger.Txn) error {
		var err error
		meta, err = b.meta(tx, kind)
		return err
	})
	return meta, wrap("badger", "meta", err)
}

func (b *BadgerStore) Ping(ctx context.Context) error {
	if b.store.Badger().IsClosed() {
		return wrap("badger", "ping", ErrClosed)
	}
	return nil
}

func (b *BadgerStore) Close() error {
	return b.store.Close()
}
