package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with pooling and prepared statements.
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling.
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool configures pooling on an open database handle.
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

// GetStats returns connection pool statistics.
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (or creates) the agency database under dataDir.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "agencydesk.db")
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

// NewTestDB opens an in-memory database for tests.
func NewTestDB() (*DB, error) {
	db, err := sql.Open("sqlite3", "file::memory:?_pragma=foreign_keys(ON)&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	// A single connection keeps the shared in-memory database alive.
	pool := NewConnectionPool(db, 1, 1, time.Hour)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	return database, nil
}

// migrate creates the schema. All domain tables are tenant-scoped by agency_id.
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS agencies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			plan TEXT NOT NULL DEFAULT 'free',
			stripe_customer_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			pin_hash TEXT NOT NULL,
			pin_salt TEXT NOT NULL,
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(agency_id, email),
			FOREIGN KEY (agency_id) REFERENCES agencies(id)
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			tenure_months INTEGER NOT NULL DEFAULT 0,
			product_count INTEGER NOT NULL DEFAULT 0,
			retention_score REAL NOT NULL DEFAULT 0,
			engagement TEXT NOT NULL DEFAULT 'medium',
			claims_satisfied BOOLEAN,
			nps INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (agency_id) REFERENCES agencies(id)
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			customer_id TEXT,
			assignee_id TEXT,
			title TEXT NOT NULL,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			priority TEXT NOT NULL DEFAULT 'normal',
			due_date DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (agency_id) REFERENCES agencies(id)
		)`,

		`CREATE TABLE IF NOT EXISTS propensity_snapshots (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			score REAL NOT NULL,
			tier TEXT NOT NULL,
			estimated_referrals REAL NOT NULL,
			breakdown TEXT, -- JSON per-factor sub-scores
			created_at DATETIME NOT NULL,
			UNIQUE(agency_id, customer_id),
			FOREIGN KEY (agency_id) REFERENCES agencies(id),
			FOREIGN KEY (customer_id) REFERENCES customers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS scoring_runs (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			customers_scored INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (agency_id) REFERENCES agencies(id)
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			agency_id TEXT NOT NULL,
			stripe_payment_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (agency_id) REFERENCES agencies(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_agents_agency ON agents(agency_id)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_agency ON customers(agency_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_agency ON tasks(agency_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(agency_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(agency_id, assignee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_agency_score ON propensity_snapshots(agency_id, score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scoring_runs_agency ON scoring_runs(agency_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_agency ON payments(agency_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements prepares the hot-path queries.
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"get_agent_by_email": `SELECT id, agency_id, name, email, pin_hash, pin_salt,
			failed_attempts, locked_until, created_at, updated_at
			FROM agents WHERE agency_id = ? AND email = ?`,

		"insert_snapshot": `INSERT INTO propensity_snapshots (
			id, agency_id, customer_id, score, tier, estimated_referrals, breakdown, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agency_id, customer_id) DO UPDATE SET
			score = excluded.score,
			tier = excluded.tier,
			estimated_referrals = excluded.estimated_referrals,
			breakdown = excluded.breakdown,
			created_at = excluded.created_at`,

		"get_top_prospects": `SELECT s.id, s.agency_id, s.customer_id, c.name, s.score, s.tier,
			s.estimated_referrals, s.breakdown, s.created_at
			FROM propensity_snapshots s
			JOIN customers c ON c.id = s.customer_id
			WHERE s.agency_id = ?
			ORDER BY s.score DESC
			LIMIT ?`,

		"count_scoring_runs_since": `SELECT COALESCE(SUM(customers_scored), 0)
			FROM scoring_runs WHERE agency_id = ? AND created_at >= ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement by name.
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics.
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the prepared statements and the connection.
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
