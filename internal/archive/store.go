package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bobbin/internal/config"
	"bobbin/internal/logevent"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; an archive created by another version is refused.
const schemaVersion = 1

// ErrSchemaMismatch indicates the archive was created with a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// timeLayout keeps fractional seconds fixed-width so lexicographic order of
// stored timestamps matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages event persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Session is one watch run recorded in the archive.
type Session struct {
	ID        string
	Directory string
	StartedAt time.Time
}

// StoredEvent is an archived event together with its archive bookkeeping.
type StoredEvent struct {
	ID         int64
	Session    string
	RecordedAt time.Time
	Event      logevent.Event
}

// Query narrows RecentEvents results. Zero values mean no filtering; a
// non-positive limit falls back to 50 rows.
type Query struct {
	Limit      int
	Severity   logevent.Severity
	Identifier string
	Session    string
}

// Open initializes or connects to the event archive and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.ArchivePath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the archive file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: archive has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginSession records the start of a watch run and returns its identity.
func (s *Store) BeginSession(ctx context.Context, directory string) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		Directory: directory,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, directory, started_at) VALUES (?, ?, ?)`,
		session.ID,
		session.Directory,
		session.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// InsertEvent archives one completed event under the given session.
func (s *Store) InsertEvent(ctx context.Context, sessionID string, ev logevent.Event) error {
	var metadataJSON any
	if ev.Metadata != nil {
		data, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = string(data)
	}
	rawJSON, err := json.Marshal(ev.RawLines)
	if err != nil {
		return fmt.Errorf("marshal raw lines: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (
            session_id, identifier, ts, scope, severity, message,
            metadata_json, raw_lines, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		ev.Identifier,
		ev.Timestamp,
		ev.Scope,
		string(ev.Severity),
		ev.Message,
		metadataJSON,
		string(rawJSON),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents returns archived events matching the query, newest first.
func (s *Store) RecentEvents(ctx context.Context, q Query) ([]StoredEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	var clauses []string
	var args []any
	if q.Session != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, q.Session)
	}
	if q.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, string(q.Severity))
	}
	if q.Identifier != "" {
		clauses = append(clauses, "identifier = ?")
		args = append(args, q.Identifier)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		stored, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, stored)
	}
	return events, rows.Err()
}

// Sessions returns all recorded sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, directory, started_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session    Session
			startedRaw string
		)
		if err := rows.Scan(&session.ID, &session.Directory, &startedRaw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			session.StartedAt = started
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

const eventColumns = "id, session_id, identifier, ts, scope, severity, message, metadata_json, raw_lines, recorded_at"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (StoredEvent, error) {
	var (
		stored      StoredEvent
		severityRaw string
		metadataRaw sql.NullString
		rawLinesRaw string
		recordedRaw string
	)
	if err := scanner.Scan(
		&stored.ID,
		&stored.Session,
		&stored.Event.Identifier,
		&stored.Event.Timestamp,
		&stored.Event.Scope,
		&severityRaw,
		&stored.Event.Message,
		&metadataRaw,
		&rawLinesRaw,
		&recordedRaw,
	); err != nil {
		return StoredEvent{}, fmt.Errorf("scan event: %w", err)
	}

	stored.Event.Severity = logevent.Severity(severityRaw)
	if metadataRaw.Valid {
		meta := &logevent.Metadata{}
		if err := json.Unmarshal([]byte(metadataRaw.String), meta); err != nil {
			return StoredEvent{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
		stored.Event.Metadata = meta
	}
	if err := json.Unmarshal([]byte(rawLinesRaw), &stored.Event.RawLines); err != nil {
		return StoredEvent{}, fmt.Errorf("unmarshal raw lines: %w", err)
	}
	if recorded, err := time.Parse(time.RFC3339Nano, recordedRaw); err == nil {
		stored.RecordedAt = recorded
	}
	return stored, nil
}
