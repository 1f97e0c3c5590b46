package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	Timeout         time.Duration // bound on every store round trip
	ConnectAttempts int
}

// Store is the Game Session Store. It is the single source of truth for
// Mines sessions, coinflip records and Meme Royale battles.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

// Open connects, retrying with backoff, and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 5
	}

	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; ; attempt++ {
		db, err = connect(ctx, dialector)
		if err == nil {
			break
		}
		if attempt >= cfg.ConnectAttempts {
			return nil, fmt.Errorf("%w: database: %v", models.ErrUnavailable, err)
		}

		wait := b.Duration()
		logging.Warn(ctx).Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("database not reachable")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: database: %v", models.ErrUnavailable, ctx.Err())
		case <-time.After(wait):
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		// sqlite has no row locks; one connection serializes writers instead.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		sqlDB.SetConnMaxLifetime(10 * time.Minute)
	}

	s := &Store{db: db, timeout: cfg.Timeout, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func connect(ctx context.Context, dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logging.NewGormLogger()})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the engine owns.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.MinesSession{},
		&models.CoinflipRecord{},
		&models.Coin{},
		&models.Battle{},
		&models.Stake{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return s.mapErr(ctx, sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NowMillis is the store clock in epoch milliseconds.
func (s *Store) NowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// mapErr fails closed: a round trip that ran out of budget or lost its
// connection is reported as unavailable, never as success.
func (s *Store) mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if models.KindOf(err) != models.KindInternal {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || ctx.Err() != nil {
		return fmt.Errorf("%w: store: %v", models.ErrUnavailable, err)
	}
	return fmt.Errorf("store: %w", err)
}
