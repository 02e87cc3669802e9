package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported store kinds.
const (
	KindSqlite   = "sqlite"
	KindPostgres = "postgres"
)

const memoryDSN = "file::memory:?cache=shared"

// PostgresConfig holds connection settings for the Postgres backend.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the libpq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// Manager owns the GORM connection behind the neighbor snapshot table.
type Manager struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	// IsValid is true while a connection is open.
	IsValid bool
	// ShouldSaveLocal is set when the connection is SQLite, whether
	// requested or reached through the Postgres fallback.
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Logger: log,
	}
}

// Open connects to the store of the given kind.
func (m *Manager) Open(kind string, pg PostgresConfig) error {
	switch kind {
	case KindPostgres:
		return m.Connect(pg)
	case KindSqlite:
		return m.ConnectSqlite(m.SqliteFilePath)
	default:
		return fmt.Errorf("unknown database kind: %s", kind)
	}
}

// Connect establishes a Postgres connection, falling back to SQLite at
// SqliteFilePath when Postgres is unreachable.
func (m *Manager) Connect(cfg PostgresConfig) error {
	m.Logger.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).
		Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), m.gormConfig(false))
	if err == nil {
		err = m.attach(db)
	}
	if err == nil {
		err = m.SqlDB.Ping()
	}
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		return m.ConnectSqlite(m.SqliteFilePath)
	}

	m.SqlDB.SetMaxOpenConns(10)
	m.IsValid = true
	m.Logger.Info().Str("host", cfg.Host).Msg("Connected to Postgres DB")
	return nil
}

// ConnectSqlite opens a SQLite database. An empty path keeps it in memory.
func (m *Manager) ConnectSqlite(path string) error {
	dsn := path
	if dsn == "" {
		dsn = memoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), m.gormConfig(true))
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	if err := m.attach(db); err != nil {
		m.IsValid = false
		return err
	}

	m.ShouldSaveLocal = true
	m.IsValid = true
	if path == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	return nil
}

func (m *Manager) attach(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.DB, m.SqlDB = db, sqlDB
	return nil
}

func (m *Manager) gormConfig(prepare bool) *gorm.Config {
	return &gorm.Config{
		PrepareStmt:            prepare,
		SkipDefaultTransaction: true,
		Logger: logger.New(gormWriter{m.Logger}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// gormWriter sends GORM's slow query and error lines to zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Str("source", "gorm").Msgf(format, args...)
}

// Setup migrates the given models.
func (m *Manager) Setup(models ...any) error {
	if m.DB == nil {
		return fmt.Errorf("db not connected")
	}

	start := time.Now()
	if err := m.DB.AutoMigrate(models...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Info().Int("models", len(models)).Dur("duration", time.Since(start)).Msg("Database schema migrated")
	return nil
}

// DumpMemoryToDisk copies the SQLite database to path with VACUUM INTO,
// replacing any file already there.
func (m *Manager) DumpMemoryToDisk(path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if m.DB == nil || m.DB.Dialector.Name() != "sqlite" {
		return fmt.Errorf("dump requires a sqlite connection")
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}

	start := time.Now()
	if err := m.DB.Exec("VACUUM INTO '" + strings.ReplaceAll("file:"+path, "'", "''") + "';").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}

	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped SQLite DB to disk")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}
