package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/wingo/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	path   string // sqlite only
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(full)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, driver: "sqlite", path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewPostgresStore connects to PostgreSQL and creates the tables if needed.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLStore{db: db, driver: "postgres"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS overrides (
		id          TEXT PRIMARY KEY,
		serial      TEXT NOT NULL,
		color       TEXT NOT NULL,
		size        TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		supersedes  TEXT,
		chat_id     TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_overrides_serial_version ON overrides(serial, version);
	CREATE INDEX IF NOT EXISTS idx_overrides_created ON overrides(created_at);

	CREATE TABLE IF NOT EXISTS chat_history (
		chat_id     TEXT PRIMARY KEY,
		last_serial TEXT NOT NULL,
		color       TEXT NOT NULL,
		size        TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// q rewrites ? placeholders to $n for postgres.
func (s *SQLStore) q(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) GetOverride(ctx context.Context, serial string) (*model.Override, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, serial, color, size, version, supersedes, chat_id, created_at
		FROM overrides WHERE serial = ?
		ORDER BY version DESC LIMIT 1`), serial)

	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("override %s: %w", serial, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *SQLStore) PutOverride(ctx context.Context, p OverrideParams) (*model.Override, error) {
	if err := validateOverride(p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	id := ulid.Make().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Check for existing latest version
	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx, s.q(
		`SELECT id, version FROM overrides WHERE serial = ?
		 ORDER BY version DESC LIMIT 1`), p.Serial).Scan(&prevID, &prevVersion)

	version := 1
	var supersedes *string
	switch {
	case err == nil:
		version = prevVersion + 1
		supersedes = &prevID
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("read previous override: %w", err)
	}

	var chatID *string
	if p.ChatID != "" {
		chatID = &p.ChatID
	}

	_, err = tx.ExecContext(ctx, s.q(
		`INSERT INTO overrides (id, serial, color, size, version, supersedes, chat_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, p.Serial, string(p.Color), string(p.Size), version, supersedes, chatID,
		now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert override: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	o := &model.Override{
		ID:        id,
		Serial:    p.Serial,
		Outcome:   p.Outcome,
		Version:   version,
		ChatID:    p.ChatID,
		CreatedAt: now,
	}
	if supersedes != nil {
		o.Supersedes = *supersedes
	}
	return o, nil
}

// OverrideHistory returns every version of the override for serial, newest
// first.
func (s *SQLStore) OverrideHistory(ctx context.Context, serial string) ([]model.Override, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, serial, color, size, version, supersedes, chat_id, created_at
		FROM overrides WHERE serial = ?
		ORDER BY version DESC`), serial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides, err := scanOverrides(rows)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return nil, fmt.Errorf("override %s: %w", serial, ErrNotFound)
	}
	return overrides, nil
}

func (s *SQLStore) ListOverrides(ctx context.Context, p ListParams) ([]model.Override, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := "1 = 1"
	args := []interface{}{}
	if p.Prefix != "" {
		where = `o.serial LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(p.Prefix)+"%")
	}

	// Only the latest version of each serial
	query := fmt.Sprintf(`
		SELECT o.id, o.serial, o.color, o.size, o.version, o.supersedes, o.chat_id, o.created_at
		FROM overrides o
		INNER JOIN (
			SELECT serial, MAX(version) AS max_ver
			FROM overrides GROUP BY serial
		) latest ON o.serial = latest.serial AND o.version = latest.max_ver
		WHERE %s
		ORDER BY o.created_at DESC, o.serial
		LIMIT ?`, where)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOverrides(rows)
}

func (s *SQLStore) GetChat(ctx context.Context, chatID string) (*model.ChatEntry, error) {
	var e model.ChatEntry
	var color, size, updatedAt string
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT chat_id, last_serial, color, size, updated_at FROM chat_history WHERE chat_id = ?`),
		chatID).Scan(&e.ChatID, &e.LastSerial, &color, &size, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	e.Color = model.Color(color)
	e.Size = model.Size(size)
	e.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &e, nil
}

func (s *SQLStore) PutChat(ctx context.Context, p ChatParams) (*model.ChatEntry, error) {
	if err := validateChat(p); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO chat_history (chat_id, last_serial, color, size, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET
			last_serial = excluded.last_serial,
			color = excluded.color,
			size = excluded.size,
			updated_at = excluded.updated_at`),
		p.ChatID, p.Serial, string(p.Color), string(p.Size), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("upsert chat: %w", err)
	}
	return &model.ChatEntry{
		ChatID:     p.ChatID,
		LastSerial: p.Serial,
		Outcome:    p.Outcome,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOverride(row scanner) (model.Override, error) {
	var o model.Override
	var color, size, createdAt string
	var supersedes, chatID sql.NullString

	err := row.Scan(&o.ID, &o.Serial, &color, &size, &o.Version, &supersedes, &chatID, &createdAt)
	if err != nil {
		return o, err
	}

	o.Color = model.Color(color)
	o.Size = model.Size(size)
	o.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if supersedes.Valid {
		o.Supersedes = supersedes.String
	}
	if chatID.Valid {
		o.ChatID = chatID.String
	}
	return o, nil
}

func scanOverrides(rows *sql.Rows) ([]model.Override, error) {
	var overrides []model.Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
