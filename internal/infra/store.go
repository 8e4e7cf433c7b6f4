// Package infra implements infrastructure concerns (storage, host
// adapters, foreground detection).
package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/screenguard/screenguard/internal/domain"
)

const storeDBName = "screenguard.db"

// EncryptedStore implements domain.LimitStore and domain.SessionStore
// using a SQLCipher encrypted SQLite database. Limits and the ignore list
// persist across restarts; cooldown state never touches the store.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted store.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedStore{db: db, dbPath: dbPath}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates the schema if it doesn't exist.
func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS limits (
		package TEXT PRIMARY KEY,
		limit_minutes INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ignored (
		package TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_package_start
		ON sessions(package, started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_start
		ON sessions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path (for tests and status output).
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Limit returns the configured limit, or domain.ErrNoLimit if absent.
func (s *EncryptedStore) Limit(pkg domain.PackageID) (*domain.TimerLimit, error) {
	var minutes int
	err := s.db.QueryRow(
		`SELECT limit_minutes FROM limits WHERE package = ?`, string(pkg),
	).Scan(&minutes)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoLimit
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query limit: %w", err)
	}
	return &domain.TimerLimit{Package: pkg, LimitMinutes: minutes}, nil
}

// SetLimit creates or updates a limit.
func (s *EncryptedStore) SetLimit(limit domain.TimerLimit) error {
	if limit.LimitMinutes <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit.LimitMinutes)
	}
	_, err := s.db.Exec(`
		INSERT INTO limits (package, limit_minutes) VALUES (?, ?)
		ON CONFLICT(package) DO UPDATE SET limit_minutes = excluded.limit_minutes`,
		string(limit.Package), limit.LimitMinutes)
	if err != nil {
		return fmt.Errorf("failed to set limit: %w", err)
	}
	return nil
}

// RemoveLimit deletes a limit. Removing an absent limit is a no-op.
func (s *EncryptedStore) RemoveLimit(pkg domain.PackageID) error {
	_, err := s.db.Exec(`DELETE FROM limits WHERE package = ?`, string(pkg))
	if err != nil {
		return fmt.Errorf("failed to remove limit: %w", err)
	}
	return nil
}

// Limits returns all configured limits, ordered by package.
func (s *EncryptedStore) Limits() ([]domain.TimerLimit, error) {
	rows, err := s.db.Query(`SELECT package, limit_minutes FROM limits ORDER BY package`)
	if err != nil {
		return nil, fmt.Errorf("failed to query limits: %w", err)
	}
	defer rows.Close()

	var limits []domain.TimerLimit
	for rows.Next() {
		var pkg string
		var minutes int
		if err := rows.Scan(&pkg, &minutes); err != nil {
			return nil, err
		}
		limits = append(limits, domain.TimerLimit{
			Package:      domain.PackageID(pkg),
			LimitMinutes: minutes,
		})
	}
	return limits, rows.Err()
}

// IsIgnored reports whether the package is on the ignore list.
func (s *EncryptedStore) IsIgnored(pkg domain.PackageID) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM ignored WHERE package = ?`, string(pkg),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ignore list: %w", err)
	}
	return true, nil
}

// SetIgnored adds or removes a package from the ignore list.
func (s *EncryptedStore) SetIgnored(pkg domain.PackageID, ignored bool) error {
	var err error
	if ignored {
		_, err = s.db.Exec(
			`INSERT INTO ignored (package) VALUES (?) ON CONFLICT(package) DO NOTHING`,
			string(pkg))
	} else {
		_, err = s.db.Exec(`DELETE FROM ignored WHERE package = ?`, string(pkg))
	}
	if err != nil {
		return fmt.Errorf("failed to update ignore list: %w", err)
	}
	return nil
}

// Ignored returns all ignored packages, ordered.
func (s *EncryptedStore) Ignored() ([]domain.PackageID, error) {
	rows, err := s.db.Query(`SELECT package FROM ignored ORDER BY package`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignore list: %w", err)
	}
	defer rows.Close()

	var pkgs []domain.PackageID
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, err
		}
		pkgs = append(pkgs, domain.PackageID(pkg))
	}
	return pkgs, rows.Err()
}

// UpsertSession inserts a session or updates its end time and duration.
func (s *EncryptedStore) UpsertSession(rec domain.SessionRecord) (int64, error) {
	if rec.ID != 0 {
		_, err := s.db.Exec(`
			UPDATE sessions SET ended_at = ?, duration_ms = ? WHERE id = ?`,
			timeToMillis(rec.EndedAt), rec.Duration.Milliseconds(), rec.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update session: %w", err)
		}
		return rec.ID, nil
	}

	result, err := s.db.Exec(`
		INSERT INTO sessions (package, started_at, ended_at, duration_ms)
		VALUES (?, ?, ?, ?)`,
		string(rec.Package), timeToMillis(rec.StartedAt),
		timeToMillis(rec.EndedAt), rec.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	return result.LastInsertId()
}

// UsageSince aggregates sessions starting in [since, until) for one package.
func (s *EncryptedStore) UsageSince(ctx context.Context, pkg domain.PackageID, since, until time.Time) (domain.UsageSnapshot, error) {
	snapshot := domain.UsageSnapshot{Package: pkg}

	rows, err := s.db.QueryContext(ctx, `
		SELECT started_at, duration_ms FROM sessions
		WHERE package = ? AND started_at >= ? AND started_at < ?
		ORDER BY started_at`,
		string(pkg), timeToMillis(since), timeToMillis(until))
	if err != nil {
		return snapshot, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var startedAt, durationMs int64
		if err := rows.Scan(&startedAt, &durationMs); err != nil {
			return snapshot, err
		}
		snapshot.SessionStarts = append(snapshot.SessionStarts, millisToTime(startedAt))
		snapshot.TotalForeground += time.Duration(durationMs) * time.Millisecond
	}
	return snapshot, rows.Err()
}

// TotalsSince aggregates sessions per package for reporting.
func (s *EncryptedStore) TotalsSince(ctx context.Context, since, until time.Time) ([]domain.UsageTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT package, started_at, duration_ms FROM sessions
		WHERE started_at >= ? AND started_at < ?
		ORDER BY package, started_at`,
		timeToMillis(since), timeToMillis(until))
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	var totals []domain.UsageTotal
	index := make(map[domain.PackageID]int)

	for rows.Next() {
		var pkg string
		var startedAt, durationMs int64
		if err := rows.Scan(&pkg, &startedAt, &durationMs); err != nil {
			return nil, err
		}
		id := domain.PackageID(pkg)
		i, ok := index[id]
		if !ok {
			i = len(totals)
			index[id] = i
			totals = append(totals, domain.UsageTotal{Package: id})
		}
		totals[i].TotalForeground += time.Duration(durationMs) * time.Millisecond
		totals[i].SessionStarts = append(totals[i].SessionStarts, millisToTime(startedAt))
	}
	return totals, rows.Err()
}

// PurgeBefore deletes sessions that started before the cutoff.
func (s *EncryptedStore) PurgeBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM sessions WHERE started_at < ?`, timeToMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Ensure EncryptedStore implements the store interfaces.
var (
	_ domain.LimitStore   = (*EncryptedStore)(nil)
	_ domain.SessionStore = (*EncryptedStore)(nil)
)
