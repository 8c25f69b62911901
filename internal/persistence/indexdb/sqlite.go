package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a secondary read-model over saved projects and committed
// edits. Writes go through a single writer goroutine; the editor never waits
// on the database.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqEdit
)

type req struct {
	kind reqKind

	save SaveRow
	edit EditRow
}

// SaveRow records one written project snapshot.
type SaveRow struct {
	ProjectID string
	Rev       uint64
	Path      string
	Pieces    int
	SavedAt   string
}

// EditRow records one committed mutation.
type EditRow struct {
	ProjectID string
	Rev       uint64
	Op        string
	Session   string
	AtUnix    int64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			rev INTEGER NOT NULL,
			path TEXT NOT NULL,
			pieces INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_project ON saves(project_id, id);`,
		`CREATE TABLE IF NOT EXISTS edits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			rev INTEGER NOT NULL,
			op TEXT NOT NULL,
			session TEXT,
			at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_project ON edits(project_id, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordSave(row SaveRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if row.SavedAt == "" {
		row.SavedAt = time.Now().UTC().Format(time.RFC3339)
	}
	select {
	case s.ch <- req{kind: reqSave, save: row}:
	default:
		// Drop if the indexer falls behind; snapshots on disk remain the
		// source of truth.
	}
}

func (s *SQLiteIndex) RecordEdit(row EditRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: row}:
	default:
	}
}

// LatestSave returns the most recent snapshot row for a project, if any.
func (s *SQLiteIndex) LatestSave(projectID string) (SaveRow, bool, error) {
	var row SaveRow
	err := s.db.QueryRow(
		`SELECT project_id, rev, path, pieces, saved_at FROM saves WHERE project_id = ? ORDER BY id DESC LIMIT 1;`,
		projectID,
	).Scan(&row.ProjectID, &row.Rev, &row.Path, &row.Pieces, &row.SavedAt)
	if err == sql.ErrNoRows {
		return SaveRow{}, false, nil
	}
	if err != nil {
		return SaveRow{}, false, err
	}
	return row, true, nil
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqSave:
			_, _ = s.db.Exec(
				`INSERT INTO saves(project_id, rev, path, pieces, saved_at) VALUES(?,?,?,?,?);`,
				r.save.ProjectID, r.save.Rev, r.save.Path, r.save.Pieces, r.save.SavedAt,
			)
		case reqEdit:
			_, _ = s.db.Exec(
				`INSERT INTO edits(project_id, rev, op, session, at_unix) VALUES(?,?,?,?,?);`,
				r.edit.ProjectID, r.edit.Rev, r.edit.Op, r.edit.Session, r.edit.AtUnix,
			)
		}
	}
}
