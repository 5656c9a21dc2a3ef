package database

import (
	"bookcatalog/pkg/models"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Index names are part of the persisted schema and must not change.
const (
	IndexPublicationYear = "idx_publicationYear"
	IndexCreatedAt       = "idx_created_at"
)

type Config struct {
	Driver     string
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	MaxRetries int
	RetryDelay time.Duration
}

func ConfigFromEnv() Config {
	cfg := Config{
		Driver:     getEnv("DB_DRIVER", DriverSQLite),
		SQLitePath: getEnv("SQLITE_PATH", "catalog.db"),
		Host:       getEnv("DB_HOST", "localhost"),
		User:       getEnv("DB_USER", "program"),
		Password:   getEnv("DB_PASSWORD", "test"),
		Name:       getEnv("DB_NAME", "catalog"),
		MaxRetries: 10,
		RetryDelay: 5 * time.Second,
	}
	switch cfg.Driver {
	case DriverMySQL:
		cfg.Port = getEnv("DB_PORT", "3306")
	default:
		cfg.Port = getEnv("DB_PORT", "5432")
	}
	return cfg
}

func (c Config) Dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverSQLite:
		return sqlite.Open(c.SQLitePath + "?_foreign_keys=on"), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.Host, c.User, c.Password, c.Name, c.Port)
		return postgres.Open(dsn), nil
	case DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// GormConfig keeps table names singular: book, author, book_author.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	}
}

// Open connects, sizes the pool, migrates the schema and creates the report
// indexes. Network drivers are retried while the server comes up.
func Open(cfg Config) (*gorm.DB, error) {
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	attempts := 1
	if cfg.Driver != DriverSQLite && cfg.MaxRetries > 1 {
		attempts = cfg.MaxRetries
	}

	var db *gorm.DB
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, GormConfig())
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d/%d failed: %v", i+1, attempts, err)
		if i < attempts-1 {
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return EnsureIndexes(db)
}

// EnsureIndexes creates the indexes backing the report queries unless they
// already exist. Safe to call on every start.
func EnsureIndexes(db *gorm.DB) error {
	indexes := []struct {
		name   string
		column string
	}{
		{IndexPublicationYear, "publication_year"},
		{IndexCreatedAt, "created_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(&models.Book{}, idx.name) {
			continue
		}
		err := db.Exec("CREATE INDEX ? ON ? (?)",
			clause.Column{Name: idx.name},
			clause.Table{Name: "book"},
			clause.Column{Name: idx.column},
		).Error
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
		log.Printf("Created index %s on book(%s)", idx.name, idx.column)
	}
	return nil
}

func InitCatalogDB() *gorm.DB {
	cfg := ConfigFromEnv()
	if cfg.Driver == DriverSQLite {
		log.Printf("Connecting to catalog database: sqlite file %s", cfg.SQLitePath)
	} else {
		log.Printf("Connecting to catalog database: %s %s@%s:%s/%s", cfg.Driver, cfg.User, cfg.Host, cfg.Port, cfg.Name)
	}

	db, err := Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	log.Println("Database connection established successfully")
	return db
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
