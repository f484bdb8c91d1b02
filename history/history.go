// Package history persists per-document viewing state in a local sqlite
// database: the last page viewed for each document path, and a log of
// viewing sessions. The render cache itself is never persisted.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Position is the last viewed page for one document path.
type Position struct {
	bun.BaseModel `bun:"table:positions,alias:p"`

	Path      string    `bun:"path,pk"`
	Page      int       `bun:"page,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Session is one viewing of a document, from open to close.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID       string     `bun:"id,pk"` // ULID as string
	Path     string     `bun:"path,notnull"`
	OpenedAt time.Time  `bun:"opened_at,notnull"`
	ClosedAt *time.Time `bun:"closed_at,nullzero"`
	LastPage int        `bun:"last_page,notnull"`
}

// Store is a sqlite-backed history database.
type Store struct {
	db *bun.DB
}

// Open creates or opens the history database at path, creating parent
// directories and tables as needed. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	connectionString := fmt.Sprintf("file:%s?cache=shared&mode=rwc", path)
	sqlDB, err := sql.Open(sqliteshim.ShimName, connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening history database %s: %w", path, err)
	}

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	// Option to turn on verbose logging just returns failures otherwise
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(false)))

	st := &Store{db: db}
	if err := st.createTables(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (st *Store) createTables(ctx context.Context) error {
	for _, model := range []any{(*Position)(nil), (*Session)(nil)} {
		if _, err := st.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating history tables: %w", err)
		}
	}
	return nil
}

// LastPage returns the recorded page for a document path, and whether a
// record exists.
func (st *Store) LastPage(ctx context.Context, path string) (int, bool, error) {
	pos := new(Position)
	err := st.db.NewSelect().Model(pos).Where("path = ?", path).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("looking up position for %s: %w", path, err)
	}
	return pos.Page, true, nil
}

// RestorePage returns the last viewed page for a document path, clamped
// to [0, pageCount). Documents shrink between viewings when they are
// regenerated, so a stale record may point past the end.
func (st *Store) RestorePage(ctx context.Context, path string, pageCount int) (int, bool, error) {
	page, ok, err := st.LastPage(ctx, path)
	if err != nil || !ok {
		return 0, ok, err
	}
	if page >= pageCount {
		page = pageCount - 1
	}
	if page < 0 {
		page = 0
	}
	return page, true, nil
}

// RecordPage upserts the last viewed page for a document path.
func (st *Store) RecordPage(ctx context.Context, path string, page int) error {
	pos := &Position{Path: path, Page: page, UpdatedAt: time.Now()}
	_, err := st.db.NewInsert().
		Model(pos).
		On("CONFLICT (path) DO UPDATE").
		Set("page = EXCLUDED.page").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recording position for %s: %w", path, err)
	}
	return nil
}

// BeginSession records the start of a viewing session and returns its ID.
func (st *Store) BeginSession(ctx context.Context, path string, page int) (string, error) {
	session := &Session{
		ID:       ulid.Make().String(),
		Path:     path,
		OpenedAt: time.Now(),
		LastPage: page,
	}
	if _, err := st.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return "", fmt.Errorf("recording session start: %w", err)
	}
	return session.ID, nil
}

// EndSession closes a viewing session with the final page.
func (st *Store) EndSession(ctx context.Context, id string, page int) error {
	now := time.Now()
	_, err := st.db.NewUpdate().
		Model((*Session)(nil)).
		Set("closed_at = ?", now).
		Set("last_page = ?", page).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recording session end: %w", err)
	}
	return nil
}

// RecentSessions returns the most recent sessions, newest first.
func (st *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	var sessions []Session
	err := st.db.NewSelect().
		Model(&sessions).
		Order("opened_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	return st.db.Close()
}
