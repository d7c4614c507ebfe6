package database

import (
	"context"
	"errors"
	"time"

	"github.com/op/go-logging"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("database")

var (
	// ErrConflict is returned when an insert lost a uniqueness race.
	ErrConflict = errors.New("conflicting record already exists")
	// ErrNotFound aliases gorm's sentinel so callers need not import gorm.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = gorm.ErrDuplicatedKey
)

type Database struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db, now: time.Now}
}

// Now is the store clock: UTC with microsecond precision, matching what the
// timestamp columns can hold.
func (d *Database) Now() time.Time {
	return d.now().UTC().Truncate(time.Microsecond)
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
