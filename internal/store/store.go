package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkondo/contractviz/internal/normalize"
	"github.com/mkondo/contractviz/pkg/models"
)

var (
	// ErrDuplicateDigest indicates an attempt to record a source file
	// whose digest is already in the ledger. The ingest gate checks the
	// ledger first, so reaching this error means the gate was bypassed.
	ErrDuplicateDigest = errors.New("duplicate source file digest")

	// ErrUnknownContract indicates a lookup for a contract key that does
	// not exist.
	ErrUnknownContract = errors.New("unknown contract")
)

// Store wraps the database connection
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection and initializes the schema.
// Safe to call on every request; schema creation is idempotent.
func Open(dbPath string) (*Store, error) {
	// busy_timeout makes readers wait out a concurrent writer's commit
	// instead of failing fast; set via DSN so every pooled connection
	// gets it.
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{conn: conn, path: dbPath}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}

// initSchema creates the necessary tables
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS source_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		digest TEXT NOT NULL UNIQUE,
		ingested_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract_id INTEGER NOT NULL REFERENCES contracts(id),
		date TEXT NOT NULL,
		slot TEXT NOT NULL,
		kwh REAL NOT NULL,
		UNIQUE(contract_id, date, slot)
	);
	CREATE INDEX IF NOT EXISTS idx_readings_contract_date ON readings(contract_id, date);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Tx is a write transaction. A full file ingest (contracts, readings
// and the ledger entry) runs inside a single Tx so readers never see a
// ledger entry without its readings, or vice versa.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Safe to defer after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// EnsureContract returns the surrogate key for a contract name,
// creating the contract if it does not exist yet. Idempotent.
func (t *Tx) EnsureContract(name string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM contracts WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up contract: %w", err)
	}

	res, err := t.tx.Exec(`INSERT INTO contracts (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("creating contract: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading contract key: %w", err)
	}
	return id, nil
}

// UpsertReadings inserts or overwrites readings keyed by
// (contract, date, slot). Last write wins.
func (t *Tx) UpsertReadings(contractID int64, rows []normalize.Row) error {
	stmt, err := t.tx.Prepare(`
	INSERT INTO readings (contract_id, date, slot, kwh)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(contract_id, date, slot) DO UPDATE SET kwh = excluded.kwh
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(contractID, row.Date, row.Slot, row.KWh); err != nil {
			return fmt.Errorf("upserting reading %s %s: %w", row.Date, row.Slot, err)
		}
	}

	return nil
}

// RecordIngestedFile appends to the source file ledger. The UNIQUE
// constraint on digest enforces dedup independently of the gate's
// pre-check; a collision surfaces as ErrDuplicateDigest.
func (t *Tx) RecordIngestedFile(name, digest string) error {
	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := t.tx.Exec(`INSERT INTO source_files (name, digest, ingested_at) VALUES (?, ?, ?)`,
		name, digest, ingestedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: source_files.digest") {
			return fmt.Errorf("%w: %s", ErrDuplicateDigest, digest)
		}
		return fmt.Errorf("recording source file: %w", err)
	}
	return nil
}

// HasSourceFile reports whether a digest is already in the ledger
func (s *Store) HasSourceFile(digest string) (bool, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM source_files WHERE digest = ?`, digest).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying source files: %w", err)
	}
	return n > 0, nil
}

// ListSourceFiles returns the ledger, newest first
func (s *Store) ListSourceFiles() ([]models.SourceFile, error) {
	rows, err := s.conn.Query(`SELECT id, name, digest, ingested_at FROM source_files ORDER BY ingested_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying source files: %w", err)
	}
	defer rows.Close()

	var results []models.SourceFile
	for rows.Next() {
		var sf models.SourceFile
		var ingestedAt string
		if err := rows.Scan(&sf.ID, &sf.Name, &sf.Digest, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sf.IngestedAt, err = time.Parse(time.RFC3339, ingestedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing ingested_at: %w", err)
		}
		results = append(results, sf)
	}

	return results, rows.Err()
}

// ListContracts returns all contracts sorted by name
func (s *Store) ListContracts() ([]models.Contract, error) {
	rows, err := s.conn.Query(`SELECT id, name FROM contracts ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying contracts: %w", err)
	}
	defer rows.Close()

	var results []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, c)
	}

	return results, rows.Err()
}

// GetContract looks up a contract by surrogate key
func (s *Store) GetContract(id int64) (*models.Contract, error) {
	var c models.Contract
	err := s.conn.QueryRow(`SELECT id, name FROM contracts WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: key %d", ErrUnknownContract, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying contract: %w", err)
	}
	return &c, nil
}

// GetContractByName looks up a contract by its external identifier
func (s *Store) GetContractByName(name string) (*models.Contract, error) {
	var c models.Contract
	err := s.conn.QueryRow(`SELECT id, name FROM contracts WHERE name = ?`, name).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying contract: %w", err)
	}
	return &c, nil
}

// ListDates returns the distinct dates with readings for a contract,
// sorted ascending
func (s *Store) ListDates(contractID int64) ([]string, error) {
	rows, err := s.conn.Query(`SELECT DISTINCT date FROM readings WHERE contract_id = ? ORDER BY date ASC`, contractID)
	if err != nil {
		return nil, fmt.Errorf("querying dates: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, date)
	}

	return results, rows.Err()
}

// GetSeries returns the half-hour series for one contract and day,
// sorted by slot. Empty when no readings exist; never an error.
func (s *Store) GetSeries(contractID int64, date string) ([]models.SeriesPoint, error) {
	rows, err := s.conn.Query(`SELECT slot, kwh FROM readings WHERE contract_id = ? AND date = ? ORDER BY slot ASC`,
		contractID, date)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var results []models.SeriesPoint
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Slot, &p.KWh); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, p)
	}

	return results, rows.Err()
}

// Summary returns store-wide record counts
func (s *Store) Summary() (*models.Summary, error) {
	var sum models.Summary
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM source_files`).Scan(&sum.SourceFiles); err != nil {
		return nil, fmt.Errorf("counting source files: %w", err)
	}
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM contracts`).Scan(&sum.Contracts); err != nil {
		return nil, fmt.Errorf("counting contracts: %w", err)
	}
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&sum.Readings); err != nil {
		return nil, fmt.Errorf("counting readings: %w", err)
	}
	return &sum, nil
}

// Reset destroys all data in the store. Irreversible; confirmation is
// the caller's responsibility.
func (s *Store) Reset() error {
	_, err := s.conn.Exec(`
	DELETE FROM readings;
	DELETE FROM contracts;
	DELETE FROM source_files;
	`)
	if err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}
	return nil
}

// ExportTo writes a consistent snapshot of the store to dest using
// VACUUM INTO. The destination must not already exist.
func (s *Store) ExportTo(dest string) error {
	if _, err := s.conn.Exec(`VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("exporting store: %w", err)
	}
	return nil
}

// ExportBytes returns a consistent snapshot of the store as raw bytes
// in sqlite's native file format.
func (s *Store) ExportBytes() ([]byte, error) {
	tmp, err := os.MkdirTemp("", "contractviz-export")
	if err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	dest := filepath.Join(tmp, "export.db")
	if err := s.ExportTo(dest); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	return data, nil
}
