package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Options selects and locates the store
type Options struct {
	Driver  string
	DataDir string
	URL     string
}

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	driver   string
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool records the pool limits applied to the handle
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// Open connects to the configured store, runs migrations and prepares hot statements
func Open(ctx context.Context, opts Options) (*DB, error) {
	var (
		handle *sql.DB
		err    error
	)

	switch opts.Driver {
	case DriverSQLite, "":
		opts.Driver = DriverSQLite
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath := filepath.Join(opts.DataDir, "campus_pulse.db")
		handle, err = sql.Open(DriverSQLite, dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000")
	case DriverPostgres:
		if opts.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		handle, err = sql.Open(DriverPostgres, opts.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(handle, 25, 5, 5*time.Minute)
	if opts.Driver == DriverSQLite {
		// one writer at a time keeps per-user transactions from tripping SQLITE_BUSY
		pool = NewConnectionPool(handle, 1, 1, 0)
	}

	db := &DB{
		DB:       handle,
		driver:   opts.Driver,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := db.migrate(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := db.initPreparedStatements(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"driver", db.driver,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return db, nil
}

func (db *DB) Driver() string {
	return db.driver
}

// Rebind rewrites ? placeholders into the driver's bind syntax
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (db *DB) serialPK() string {
	if db.driver == DriverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// migrate creates the necessary tables
func (db *DB) migrate(ctx context.Context) error {
	pk := db.serialPK()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + pk + `,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_suspicious BOOLEAN NOT NULL DEFAULT FALSE,
			trust_score INTEGER NOT NULL DEFAULT 50,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS skills (
			id ` + pk + `,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			skill_name TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS interests (
			id ` + pk + `,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			interest_name TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id ` + pk + `,
			creator_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			event_date TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id ` + pk + `,
			sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS subjects (
			id ` + pk + `,
			subject_name TEXT NOT NULL,
			total_classes INTEGER NOT NULL DEFAULT 40
		)`,

		`CREATE TABLE IF NOT EXISTS attendance_records (
			id ` + pk + `,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
			classes_attended INTEGER NOT NULL DEFAULT 0,
			recent_absences_last_5 INTEGER NOT NULL DEFAULT 0,
			days_since_last_present INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user_id, subject_id)
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id ` + pk + `,
			project_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			required_skills TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_skills_user_id ON skills(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interests_user_id ON interests(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_creator_id ON events(creator_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender_id ON messages(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_id ON messages(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_user_id ON attendance_records(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements prepares the population reads every analytics run performs
func (db *DB) initPreparedStatements(ctx context.Context) error {
	statements := map[string]string{
		stmtListProfiles:     profileSelect + ` ORDER BY u.id`,
		stmtListSkills:       `SELECT user_id, skill_name FROM skills ORDER BY id`,
		stmtListInterests:    `SELECT user_id, interest_name FROM interests ORDER BY id`,
		stmtListAttendance:   attendanceSelect + ` ORDER BY ar.id`,
		stmtUpdateDetection:  `UPDATE users SET is_suspicious = ?, trust_score = ? WHERE id = ?`,
		stmtUpdateTrustScore: `UPDATE users SET trust_score = ? WHERE id = ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.PrepareContext(ctx, db.Rebind(query))
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	stats := db.pool.GetStats()
	stats["driver"] = db.driver
	return stats
}

// HealthCheck pings the store
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
