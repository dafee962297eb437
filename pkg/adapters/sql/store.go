// Package sql persists projects in a relational database. Postgres and
// SQLite share one schema and one set of statements.
package sql

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/river-berlin/unibase/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	scad       TEXT NOT NULL,
	stl        TEXT NOT NULL,
	history    TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store implements ports.ProjectStore on database/sql.
type Store struct {
	db      *stdsql.DB
	dialect Dialect
}

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := stdsql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect.Name, err)
	}
	if dialect.singleConn {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect.Name, err)
	}

	store, err := NewFromDB(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewFromDB wraps an existing handle and creates the schema if needed.
func NewFromDB(ctx context.Context, db *stdsql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create projects table: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Save upserts the project row.
func (s *Store) Save(ctx context.Context, projectID string, project *domain.Project) error {
	history := project.History
	if history == nil {
		history = []domain.ConversationEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	query := s.dialect.bind(`
		INSERT INTO projects (id, scad, stl, history, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			scad = excluded.scad,
			stl = excluded.stl,
			history = excluded.history,
			updated_at = excluded.updated_at`)

	_, err = s.db.ExecContext(ctx, query,
		projectID, project.SCAD, project.STL, string(historyJSON),
		project.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", projectID, err)
	}
	return nil
}

// Load reads the project row.
func (s *Store) Load(ctx context.Context, projectID string) (*domain.Project, error) {
	query := s.dialect.bind(`SELECT scad, stl, history, updated_at FROM projects WHERE id = ?`)

	var (
		project              = domain.Project{ID: projectID}
		historyJSON, updated string
	)
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(&project.SCAD, &project.STL, &historyJSON, &updated)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	if err := json.Unmarshal([]byte(historyJSON), &project.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if project.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &project, nil
}

// Delete removes the project row.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.bind(`DELETE FROM projects WHERE id = ?`), projectID)
	return err
}

// List returns project IDs ordered by ID.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
