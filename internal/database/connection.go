package database

import (
	"errors"
	"time"

	"github.com/thereayou/relay-chat/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the PostgreSQL store and migrates the schema.
func (d *Database) Connect(dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return err
	}

	d.db = db
	if d.now == nil {
		d.now = time.Now
	}
	return d.Migrate()
}

func (d *Database) Migrate() error {
	return d.db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationMember{},
		&models.Message{},
	)
}

// GormConfig is shared by every dialect so that timestamps and
// constraint errors behave the same in production and in tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
		TranslateError: true,
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	log.Warningf(format, args...)
}
