package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const maxOpenConns = 4

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Session pins one pooled connection for the lifetime of a request or CLI
// command. It must be closed on every path.
type Session struct {
	conn *sql.Conn
}

// Session acquires a dedicated connection.
func (s *SQLiteStore) Session(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire store session: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Close returns the connection to the pool. Safe to call twice.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// AppendTranslation inserts rec in its own transaction and returns it with
// ID and CreatedAt filled in. Nothing is written if any step fails.
func (s *Session) AppendTranslation(ctx context.Context, rec TranslationRecord) (saved TranslationRecord, err error) {
	if s == nil || s.conn == nil {
		return TranslationRecord{}, fmt.Errorf("store session is closed")
	}
	if strings.TrimSpace(rec.VideoName) == "" || strings.TrimSpace(rec.Language) == "" {
		return TranslationRecord{}, fmt.Errorf("video name and language are required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return TranslationRecord{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO translations (video_name, language, translation, srt_link, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.VideoName,
		rec.Language,
		rec.Translation,
		rec.ArtifactPath,
		rec.CreatedAt,
	)
	if err != nil {
		return TranslationRecord{}, fmt.Errorf("insert translation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TranslationRecord{}, fmt.Errorf("read translation id: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return TranslationRecord{}, fmt.Errorf("commit translation: %w", err)
	}

	rec.ID = id
	return rec, nil
}

// ListByVideo returns the records of one video, oldest first. No match
// yields an empty slice.
func (s *Session) ListByVideo(ctx context.Context, videoName string) ([]TranslationRecord, error) {
	return s.query(ctx,
		`SELECT id, video_name, language, translation, srt_link, created_at
		 FROM translations
		 WHERE video_name = ?
		 ORDER BY id ASC`,
		videoName,
	)
}

// ListAll returns every record, oldest first.
func (s *Session) ListAll(ctx context.Context) ([]TranslationRecord, error) {
	return s.query(ctx,
		`SELECT id, video_name, language, translation, srt_link, created_at
		 FROM translations
		 ORDER BY id ASC`,
	)
}

func (s *Session) query(ctx context.Context, query string, args ...any) ([]TranslationRecord, error) {
	if s == nil || s.conn == nil {
		return nil, fmt.Errorf("store session is closed")
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]TranslationRecord, 0)
	for rows.Next() {
		var item TranslationRecord
		if err := rows.Scan(&item.ID, &item.VideoName, &item.Language, &item.Translation, &item.ArtifactPath, &item.CreatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
