// Package store handles SQLite persistence of the course registry and study plans.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/classgrid/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for registry snapshots and plans.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			credit REAL NOT NULL,
			category TEXT NOT NULL,
			sweetness INTEGER NOT NULL,
			coolness INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS course_cells (
			course_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			day INTEGER NOT NULL,
			period INTEGER NOT NULL,
			PRIMARY KEY (course_id, day, period)
		);`,
		`CREATE TABLE IF NOT EXISTS plans (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS plan_blocks (
			plan_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			course TEXT NOT NULL,
			PRIMARY KEY (plan_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCourses replaces the stored registry snapshot.
func (s *Store) SaveCourses(ctx context.Context, courses []model.Course) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM course_cells`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM courses`); err != nil {
		return err
	}
	for i, c := range courses {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO courses (id, position, name, credit, category, sweetness, coolness)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Name, c.Credit, c.Category, c.Sweetness, c.Coolness,
		); err != nil {
			return err
		}
		for j, cell := range c.Cells {
			if _, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO course_cells (course_id, position, day, period) VALUES (?, ?, ?, ?)`,
				c.ID, j, cell.Day, cell.Period,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// LoadCourses returns the stored registry snapshot in its saved order.
func (s *Store) LoadCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, credit, category, sweetness, coolness FROM courses ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var courses []model.Course
	index := map[string]int{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Credit, &c.Category, &c.Sweetness, &c.Coolness); err != nil {
			return nil, err
		}
		index[c.ID] = len(courses)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, nil
	}

	cellRows, err := s.db.QueryContext(ctx,
		`SELECT course_id, day, period FROM course_cells ORDER BY course_id, position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cellRows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for cellRows.Next() {
		var id string
		var cell model.Cell
		if err := cellRows.Scan(&id, &cell.Day, &cell.Period); err != nil {
			return nil, err
		}
		if pos, ok := index[id]; ok {
			courses[pos].Cells = append(courses[pos].Cells, cell)
		}
	}
	if err := cellRows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// SavePlan stores a generated schedule and returns its id.
func (s *Store) SavePlan(ctx context.Context, createdAt time.Time, blocks []model.BlockAssignment) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO plans (created_at) VALUES (?)`, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO plan_blocks (plan_id, position, start_at, end_at, course) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, b := range blocks {
		if _, err = stmt.ExecContext(ctx, id, i, b.Start.Format(time.RFC3339Nano), b.End.Format(time.RFC3339Nano), b.Course); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// LatestPlan returns the blocks of the most recently saved plan, or nil when none exists.
func (s *Store) LatestPlan(ctx context.Context) ([]model.BlockAssignment, error) {
	var planID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM plans ORDER BY id DESC LIMIT 1`).Scan(&planID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT start_at, end_at, course FROM plan_blocks WHERE plan_id = ? ORDER BY position ASC`, planID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var blocks []model.BlockAssignment
	for rows.Next() {
		var startAt, endAt string
		var b model.BlockAssignment
		if err := rows.Scan(&startAt, &endAt, &b.Course); err != nil {
			return nil, err
		}
		if b.Start, err = time.Parse(time.RFC3339Nano, startAt); err != nil {
			return nil, err
		}
		if b.End, err = time.Parse(time.RFC3339Nano, endAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}
