package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"water-quality-api/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var readingColumns = []string{"id", "ph", "turbidity", "temperature", "ml_label", "final_status", "recorded_at"}

type PostgresOptions struct {
	DSN         string
	Table       string
	Timeout     time.Duration
	AutoMigrate bool
}

type Postgres struct {
	db      *gorm.DB
	table   string
	timeout time.Duration
}

// OpenPostgres connects, pings and checks the readings table. Any failure
// here is a startup failure.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	if opts.Table == "" {
		opts.Table = models.Reading{}.TableName()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, classify("open", err)
	}

	s := &Postgres{db: db, table: opts.Table, timeout: opts.Timeout}
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Migrate(ctx, opts.AutoMigrate); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Postgres) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

// Migrate creates the table when create is set and it does not exist yet,
// then verifies every column the model needs. Existing tables are never altered.
func (s *Postgres) Migrate(ctx context.Context, create bool) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	m := s.query(ctx).Migrator()
	if !m.HasTable(s.table) {
		if !create {
			return fmt.Errorf("%w: table %q does not exist", ErrSchema, s.table)
		}
		if err := s.query(ctx).AutoMigrate(&models.Reading{}); err != nil {
			return classify("migrate", err)
		}
	}
	for _, col := range readingColumns {
		if !m.HasColumn(&models.Reading{}, col) {
			return fmt.Errorf("%w: table %q has no column %q", ErrSchema, s.table, col)
		}
	}
	return nil
}

// appendSQL stamps recorded_at with the database clock, clamped to the newest
// stored row, inside the same statement that assigns the sequence id.
const appendSQL = `INSERT INTO ? (ph, turbidity, temperature, ml_label, final_status, recorded_at)
VALUES (?, ?, ?, ?, ?, GREATEST(clock_timestamp(), COALESCE((SELECT max(recorded_at) FROM ?), '-infinity')))
RETURNING id, recorded_at`

func (s *Postgres) Append(ctx context.Context, r *models.Reading) (int64, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var mlLabel any
	if r.MLLabel != nil {
		mlLabel = string(*r.MLLabel)
	}
	table := clause.Table{Name: s.table}

	var out struct {
		ID         int64
		RecordedAt time.Time
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One writer at a time, so sequence order is commit order.
		if err := tx.Exec("LOCK TABLE ? IN EXCLUSIVE MODE", table).Error; err != nil {
			return err
		}
		return tx.Raw(appendSQL,
			table, r.PH, r.Turbidity, r.Temperature, mlLabel, string(r.FinalStatus), table,
		).Scan(&out).Error
	})
	if err != nil {
		return 0, classify("append", err)
	}

	r.ID = out.ID
	r.RecordedAt = out.RecordedAt.UTC()
	return r.ID, nil
}

func (s *Postgres) Latest(ctx context.Context) (*models.Reading, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var rows []models.Reading
	if err := s.query(ctx).Order("id DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, classify("latest", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *Postgres) History(ctx context.Context, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		return []models.Reading{}, nil
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	rows := make([]models.Reading, 0, limit)
	if err := s.query(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, classify("history", err)
	}
	slices.Reverse(rows)
	return rows, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return classify("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
