package database

import (
	"database/sql"
	"fmt"
	"time"

	"frameforge/internal/database/migrations"
	"frameforge/internal/ff"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// timeLayout is how timestamps are written to TEXT columns.
const timeLayout = time.RFC3339Nano

// SQLiteStore persists projects and frames in SQLite. It implements both
// ff.ProjectStore and ff.FrameStore; each Save replaces its table inside a
// single transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the database at path, which can be a file path or
// ":memory:". The schema is not migrated; call MigrateUp or CheckMigrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database,
	// and the PRAGMA below is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Project operations

func (s *SQLiteStore) LoadProjects() ([]ff.Project, error) {
	rows, err := s.db.Query(`SELECT id, name, description, created_at, updated_at
		FROM projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []ff.Project
	for rows.Next() {
		var p ff.Project
		var created, updated string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		if p.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading projects: %w", err)
	}
	return projects, nil
}

func (s *SQLiteStore) SaveProjects(projects []ff.Project) error {
	return s.replace("projects", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO projects (id, position, name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range projects {
			_, err := stmt.Exec(p.ID, i, p.Name, p.Description, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
			if err != nil {
				return fmt.Errorf("inserting project %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// Frame operations

func (s *SQLiteStore) LoadFrames() ([]ff.Frame, error) {
	rows, err := s.db.Query(`SELECT id, project_id, frame_order, prompt, dialogue, speaker,
		camera_movement, duration, style, mood, image_key, credit_cost
		FROM frames ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer rows.Close()

	var frames []ff.Frame
	for rows.Next() {
		var f ff.Frame
		var cost sql.NullInt64
		err := rows.Scan(&f.ID, &f.ProjectID, &f.Order, &f.Prompt, &f.Dialogue, &f.Speaker,
			&f.CameraMovement, &f.Duration, &f.Style, &f.Mood, &f.ImageKey, &cost)
		if err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		if cost.Valid {
			f.CreditCost = ff.Ptr(int(cost.Int64))
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading frames: %w", err)
	}
	return frames, nil
}

func (s *SQLiteStore) SaveFrames(frames []ff.Frame) error {
	return s.replace("frames", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO frames (id, position, project_id, frame_order, prompt,
			dialogue, speaker, camera_movement, duration, style, mood, image_key, credit_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, f := range frames {
			var cost sql.NullInt64
			if f.CreditCost != nil {
				cost = sql.NullInt64{Int64: int64(*f.CreditCost), Valid: true}
			}
			_, err := stmt.Exec(f.ID, i, f.ProjectID, f.Order, f.Prompt, f.Dialogue, f.Speaker,
				string(f.CameraMovement), f.Duration, string(f.Style), string(f.Mood), f.ImageKey, cost)
			if err != nil {
				return fmt.Errorf("inserting frame %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

// replace empties table and refills it with insert inside one transaction.
// table is always a constant from this file.
func (s *SQLiteStore) replace(table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("saving %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", table, err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.Up(s.db)
}

// SchemaStatus reports the applied and latest schema versions.
func (s *SQLiteStore) SchemaStatus() (migrations.Status, error) {
	return migrations.Inspect(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

var (
	_ ff.ProjectStore = (*SQLiteStore)(nil)
	_ ff.FrameStore   = (*SQLiteStore)(nil)
)
