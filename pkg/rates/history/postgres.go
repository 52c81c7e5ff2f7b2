package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
)

// Postgres implements Store on a PostgreSQL database via gorm.
type Postgres struct {
	db     *gorm.DB
	logger *logging.Logger
}

// NewPostgres opens the database and migrates the schema.
func NewPostgres(dsn string, logger *logging.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&TickerRow{}, &TimestampRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Postgres{db: db, logger: logger}, nil
}

// Append writes one snapshot's rates plus its timestamp marker in a single
// transaction, so a partially written snapshot never becomes queryable.
func (p *Postgres) Append(ctx context.Context, date int64, tickers sources.Tickers) error {
	rows := buildRows(date, tickers)

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}

		marker := TimestampRow{ID: uuid.NewString(), Date: date}
		return tx.Create(&marker).Error
	})
}

// History returns snapshots matching the query, newest first.
func (p *Postgres) History(ctx context.Context, q Query) ([]Snapshot, error) {
	if q.From != 0 && q.To != 0 && q.To < q.From {
		return nil, ErrInvalidRange
	}

	limit := q.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	dateQuery := p.db.WithContext(ctx).Model(&TickerRow{}).Distinct("date")
	if q.From != 0 {
		dateQuery = dateQuery.Where("date >= ?", q.From)
	}
	if q.To != 0 {
		dateQuery = dateQuery.Where("date <= ?", q.To)
	}
	if q.Coin != "" {
		dateQuery = applyCoinFilter(dateQuery, q.Coin)
	}

	var dates []int64
	if err := dateQuery.Order("date desc").Limit(limit).Pluck("date", &dates).Error; err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return []Snapshot{}, nil
	}

	rowQuery := p.db.WithContext(ctx).Where("date IN ?", dates)
	if q.Coin != "" {
		rowQuery = applyCoinFilter(rowQuery, q.Coin)
	}

	var rows []TickerRow
	if err := rowQuery.Find(&rows).Error; err != nil {
		return nil, err
	}

	markers, err := p.loadMarkers(ctx, dates)
	if err != nil {
		return nil, err
	}

	return buildSnapshots(rows, markers), nil
}

// NearestBefore returns the latest snapshot saved at or before the given
// timestamp, or nil when none exists.
func (p *Postgres) NearestBefore(ctx context.Context, timestamp int64) (*Snapshot, error) {
	var marker TimestampRow
	err := p.db.WithContext(ctx).
		Where("date <= ?", timestamp).
		Order("date desc").
		First(&marker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rows []TickerRow
	if err := p.db.WithContext(ctx).Where("date = ?", marker.Date).Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := buildSnapshots(rows, map[int64]string{marker.Date: marker.ID})
	if len(snapshots) == 0 {
		return &Snapshot{ID: marker.ID, Date: marker.Date, Tickers: sources.Tickers{}}, nil
	}

	return &snapshots[0], nil
}

func (p *Postgres) loadMarkers(ctx context.Context, dates []int64) (map[int64]string, error) {
	var rows []TimestampRow
	if err := p.db.WithContext(ctx).Where("date IN ?", dates).Find(&rows).Error; err != nil {
		return nil, err
	}

	markers := make(map[int64]string, len(rows))
	for _, row := range rows {
		markers[row.Date] = row.ID
	}
	return markers, nil
}

// applyCoinFilter restricts rows by coin. "A/B" matches quote and base
// exactly; a bare coin matches either side of the pair.
func applyCoinFilter(db *gorm.DB, coin string) *gorm.DB {
	if quote, base, ok := sources.SplitPair(coin); ok {
		return db.Where("quote = ? AND base = ?", quote, base)
	}
	return db.Where("quote = ? OR base = ?", coin, coin)
}
