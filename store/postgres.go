package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store wraps a *gorm.DB with the Metadata Store's five operations.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL and tunes the connection pool, following the
// same pool-sizing choices as the teacher's own startup path: 10 idle
// connections, 100 max open, 1 hour max connection lifetime.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, classify(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, classify(err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

// EnsureSchema creates the five dimension and two fact tables if they do
// not already exist. If dropIfExists is true every table is dropped first.
// A failure here is a fatal condition per spec's error taxonomy; callers
// (cli/initdb.go) are expected to exit non-zero rather than retry.
func (s *Store) EnsureSchema(dropIfExists bool) error {
	models := []interface{}{&Job{}, &TDACode{}, &Server{}, &Target{}, &Task{}, &RunTime{}, &Result{}}

	if dropIfExists {
		// Fact tables first: they hold foreign keys into the dimension
		// tables, so dropping in this order never violates a constraint.
		if err := s.db.Migrator().DropTable(&Result{}, &RunTime{}, &Job{}, &TDACode{}, &Server{}, &Target{}, &Task{}); err != nil {
			return err
		}
	}

	return s.db.AutoMigrate(models...)
}

// GetOrCreateID is a race-free upsert: INSERT ... ON CONFLICT DO NOTHING,
// then SELECT. Two concurrent callers never create duplicate rows and
// neither ever fails on the uniqueness constraint.
func (s *Store) GetOrCreateID(ctx context.Context, dim Dimension, name string) (uint, error) {
	if !dim.valid() {
		return 0, fmt.Errorf("store: unknown dimension %q", dim)
	}

	db := s.db.WithContext(ctx)
	insertSQL := fmt.Sprintf("INSERT INTO %s (name) VALUES (?) ON CONFLICT (name) DO NOTHING", dim)
	if err := db.Exec(insertSQL, name).Error; err != nil {
		return 0, classify(err)
	}

	var id uint
	selectSQL := fmt.Sprintf("SELECT id FROM %s WHERE name = ?", dim)
	if err := db.Raw(selectSQL, name).Scan(&id).Error; err != nil {
		return 0, classify(err)
	}
	if id == 0 {
		return 0, fmt.Errorf("store: %s row for %q not found after upsert", dim, name)
	}
	return id, nil
}

// hostname resolves the local server dimension's name, grounded on the
// original implementation's socket.gethostname() default.
func hostname() (string, error) {
	return os.Hostname()
}
