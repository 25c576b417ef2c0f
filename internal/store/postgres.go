package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

type record struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)"`
	Phase     string         `gorm:"type:varchar(20);not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (record) TableName() string {
	return "auction_states"
}

// Postgres stores the document in the auction_states table through gorm on
// top of a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	db   *gorm.DB
}

func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{pool: pool, db: db}, nil
}

func (p *Postgres) Load(ctx context.Context) (engine.State, bool, error) {
	var rec record
	err := p.db.WithContext(ctx).First(&rec, "id = ?", DocumentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.State{}, false, nil
	}
	if err != nil {
		return engine.State{}, false, fmt.Errorf("load auction state: %w", err)
	}
	s, err := decode(rec.Payload)
	if err != nil {
		return engine.State{}, false, err
	}
	return s, true, nil
}

func (p *Postgres) Save(ctx context.Context, s engine.State) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	rec := record{ID: DocumentID, Phase: string(s.Phase), Payload: datatypes.JSON(b), UpdatedAt: time.Now().UTC()}
	err = p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save auction state: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	p.pool.Close()
	return err
}
