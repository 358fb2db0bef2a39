package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

const postgresBatch = 500

type retailModel struct {
	ID            uint      `gorm:"primaryKey"`
	Date          time.Time `gorm:"type:date;not null;index"`
	Product       string    `gorm:"size:128;not null;index"`
	SalesQuantity float64   `gorm:"not null"`
	SalesValue    float64   `gorm:"not null"`
}

func (retailModel) TableName() string { return "retail_records" }

type mandiModel struct {
	ID       uint      `gorm:"primaryKey"`
	Date     time.Time `gorm:"type:date;not null;index"`
	Product  string    `gorm:"size:128;not null;index"`
	Price    float64   `gorm:"not null"`
	Location string    `gorm:"size:128"`
}

func (mandiModel) TableName() string { return "mandi_records" }

type datasetModel struct {
	Kind       string `gorm:"primaryKey;size:16"`
	Version    string `gorm:"size:36;not null"`
	Filename   string
	Rows       int
	UploadedAt time.Time
}

func (datasetModel) TableName() string { return "datasets" }

type PostgresStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, wrap("postgres", "open", err)
	}
	if err := db.AutoMigrate(&retailModel{}, &mandiModel{}, &datasetModel{}); err != nil {
		return nil, wrap("postgres", "migrate", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Name() string { return "postgres" }

func (p *PostgresStore) ReplaceRetail(ctx context.Context, meta models.DatasetMeta, records []models.RetailRecord) error {
	rows := make([]retailModel, len(records))
	for i, r := range records {
		rows[i] = retailModel{Date: r.Date, Product: r.Product, SalesQuantity: r.SalesQuantity, SalesValue: r.SalesValue}
	}
	return wrap("postgres", "replace retail", p.replace(ctx, KindRetail, meta, &retailModel{}, rows, len(rows)))
}

func (p *PostgresStore) ReplaceMandi(ctx context.Context, meta models.DatasetMeta, records []models.MandiRecord) error {
	rows := make([]mandiModel, len(records))
	for i, r := range records {
		rows[i] = mandiModel{Date: r.Date, Product: r.Product, Price: r.Price, Location: r.Location}
	}
	return wrap("postgres", "replace mandi", p.replace(ctx, KindMandi, meta, &mandiModel{}, rows, len(rows)))
}

func (p *PostgresStore) replace(ctx context.Context, kind Kind, meta models.DatasetMeta, table, rows any, n int) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return err
		}
		if n > 0 {
			if err := tx.CreateInBatches(rows, postgresBatch).Error; err != nil {
				return err
			}
		}
		return tx.Save(&datasetModel{
			Kind:       string(kind),
			Version:    meta.Version,
			Filename:   meta.Filename,
			Rows:       meta.Rows,
			UploadedAt: meta.UploadedAt,
		}).Error
	})
}

func (p *PostgresStore) meta(tx *gorm.DB, kind Kind) (models.DatasetMeta, error) {
	var d datasetModel
	err := tx.First(&d, "kind = ?", string(kind)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DatasetMeta{}, nil
	}
	if err != nil {
		return models.DatasetMeta{}, err
	}
	return models.DatasetMeta{Version: d.Version, Filename: d.Filename, Rows: d.Rows, UploadedAt: d.UploadedAt}, nil
}

func (p *PostgresStore) Retail(ctx context.Context) ([]models.RetailRecord, models.DatasetMeta, error) {
	out := []models.RetailRecord{}
	var meta models.DatasetMeta
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if meta, err = p.meta(tx, KindRetail); err != nil {
			return err
		}
		var rows []retailModel
		if err := tx.Order("id").Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			out = append(out, models.RetailRecord{Date: r.Date.UTC(), Product: r.Product, SalesQuantity: r.SalesQuantity, SalesValue: r.SalesValue})
		}
		return nil
	})
	if err != nil {
		return nil, models.DatasetMeta{}, wrap("postgres", "read retail", err)
	}
	return out, meta, nil
}

func (p *PostgresStore) Mandi(ctx context.Context) ([]models.MandiRecord, models.DatasetMeta, error) {
	out := []models.MandiRecord{}
	var meta models.DatasetMeta
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if meta, err = p.meta(tx, KindMandi); err != nil {
			return err
		}
		var rows []mandiModel
		if err := tx.Order("id").Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			out = append(out, models.MandiRecord{Date: r.Date.UTC(), Product: r.Product, Price: r.Price, Location: r.Location})
		}
		return nil
	})
	if err != nil {
		return nil, models.DatasetMeta{}, wrap("postgres", "read mandi", err)
	}
	return out, meta, nil
}

func (p *PostgresStore) Meta(ctx context.Context, kind Kind) (models.DatasetMeta, error) {
	meta, err := p.meta(p.db.WithContext(ctx), kind)
	return meta, wrap("postgres", "meta", err)
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return wrap("postgres", "ping", err)
	}
	return wrap("postgres", "ping", sqlDB.PingContext(ctx))
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
