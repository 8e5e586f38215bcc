package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

var defaultPermissions = []entities.Permission{
	{Codename: entities.PermissionCanMarkReturned, Name: "Set book as returned"},
}

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// NewDatabase opens (or creates) a SQLite catalog database at dbPath.
func NewDatabase(dbPath string) (*Database, error) {
	return Open(config.Database{Driver: config.DatabaseDriverSQLite, Path: dbPath})
}

// Open connects to the configured store, migrates the schema and seeds permissions.
func Open(cfg config.Database) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DatabaseDriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
		cfg.Driver = config.DatabaseDriverSQLite
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("database DSN is required for postgres")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormLog := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	database := &Database{DB: db, Driver: cfg.Driver}

	if err := database.seedPermissions(); err != nil {
		return nil, fmt.Errorf("failed to seed permissions: %w", err)
	}

	if cfg.Driver == config.DatabaseDriverSQLite {
		log.Printf("Database initialized successfully at %s", cfg.Path)
	} else {
		log.Printf("Database initialized successfully (%s)", cfg.Driver)
	}

	return database, nil
}

// Migrate creates or updates every table used by the application.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.Permission{},
		&entities.User{},
		&entities.Genre{},
		&entities.Language{},
		&entities.Author{},
		&entities.Book{},
		&entities.BookInstance{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// sqliteDSN enables foreign key enforcement so ON DELETE SET NULL is honoured.
func sqliteDSN(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity to the underlying store.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) seedPermissions() error {
	for _, perm := range defaultPermissions {
		var existing entities.Permission
		result := d.DB.Where("codename = ?", perm.Codename).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := d.DB.Create(&perm).Error; err != nil {
				return fmt.Errorf("failed to create permission %s: %w", perm.Codename, err)
			}
			log.Printf("Created permission: %s", perm.Codename)
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
