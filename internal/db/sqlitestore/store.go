// Package sqlitestore implements the paper and staff stores on SQLite for
// single-node deployments and tests.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/gokatarajesh/paper-builder/internal/db/model"
)

const schema = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS staff (
  staff_id      TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name  TEXT NOT NULL,
  institution   TEXT NOT NULL DEFAULT '',
  created_at    INTEGER NOT NULL,
  last_login_at INTEGER
);

CREATE TABLE IF NOT EXISTS papers (
  paper_id     TEXT PRIMARY KEY,
  owner_id     TEXT NOT NULL REFERENCES staff(staff_id) ON DELETE CASCADE,
  paper_name   TEXT NOT NULL DEFAULT '',
  class_name   TEXT NOT NULL DEFAULT '',
  subject_name TEXT NOT NULL DEFAULT '',
  total_marks  INTEGER NOT NULL DEFAULT 0,
  document     TEXT NOT NULL,
  created_at   INTEGER NOT NULL,
  updated_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_papers_owner_updated ON papers(owner_id, updated_at DESC);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and ensures the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	memory := path == ":memory:" || path == ""
	if memory {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) InsertPaper(ctx context.Context, arg model.InsertPaperParams) (model.Paper, error) {
	ts := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `INSERT INTO papers
		(paper_id, owner_id, paper_name, class_name, subject_name, total_marks, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.PaperID.String(), arg.OwnerID.String(), arg.PaperName, arg.ClassName, arg.SubjectName,
		arg.TotalMarks, string(arg.Document), ts, ts)
	if err != nil {
		return model.Paper{}, mapError(err)
	}
	return s.GetPaper(ctx, arg.PaperID)
}

func (s *Store) GetPaper(ctx context.Context, paperID uuid.UUID) (model.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT paper_id, owner_id, paper_name, class_name, subject_name,
		total_marks, document, created_at, updated_at FROM papers WHERE paper_id = ?`, paperID.String())

	var (
		p                  model.Paper
		doc                string
		created, updated   int64
		paperKey, ownerKey string
	)
	if err := row.Scan(&paperKey, &ownerKey, &p.PaperName, &p.ClassName, &p.SubjectName, &p.TotalMarks, &doc, &created, &updated); err != nil {
		return model.Paper{}, mapError(err)
	}
	var err error
	if p.PaperID, err = uuid.Parse(paperKey); err != nil {
		return model.Paper{}, fmt.Errorf("paper id: %w", err)
	}
	if p.OwnerID, err = uuid.Parse(ownerKey); err != nil {
		return model.Paper{}, fmt.Errorf("owner id: %w", err)
	}
	p.Document = []byte(doc)
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return p, nil
}

func (s *Store) UpdatePaper(ctx context.Context, arg model.UpdatePaperParams) (model.Paper, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE papers
		SET paper_name = ?, class_name = ?, subject_name = ?, total_marks = ?, document = ?, updated_at = ?
		WHERE paper_id = ? AND owner_id = ?`,
		arg.PaperName, arg.ClassName, arg.SubjectName, arg.TotalMarks, string(arg.Document), s.now().UnixMilli(),
		arg.PaperID.String(), arg.OwnerID.String())
	if err != nil {
		return model.Paper{}, mapError(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Paper{}, err
	} else if n == 0 {
		return model.Paper{}, model.ErrNotFound
	}
	return s.GetPaper(ctx, arg.PaperID)
}

func (s *Store) DeletePaper(ctx context.Context, arg model.DeletePaperParams) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE paper_id = ? AND owner_id = ?`,
		arg.PaperID.String(), arg.OwnerID.String())
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) ListPapersByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PaperSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT paper_id, paper_name, class_name, subject_name, total_marks, updated_at
		FROM papers WHERE owner_id = ? ORDER BY updated_at DESC, paper_id`, ownerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.PaperSummary{}
	for rows.Next() {
		var (
			i       model.PaperSummary
			key     string
			updated int64
		)
		if err := rows.Scan(&key, &i.PaperName, &i.ClassName, &i.SubjectName, &i.TotalMarks, &updated); err != nil {
			return nil, err
		}
		if i.PaperID, err = uuid.Parse(key); err != nil {
			return nil, fmt.Errorf("paper id: %w", err)
		}
		i.UpdatedAt = time.UnixMilli(updated).UTC()
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *Store) CreateStaff(ctx context.Context, arg model.CreateStaffParams) (model.Staff, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO staff (staff_id, email, password_hash, display_name, institution, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.StaffID.String(), arg.Email, arg.PasswordHash, arg.DisplayName, arg.Institution, s.now().UnixMilli())
	if err != nil {
		return model.Staff{}, mapError(err)
	}
	return s.GetStaffByID(ctx, arg.StaffID)
}

func (s *Store) GetStaffByEmail(ctx context.Context, email string) (model.Staff, error) {
	return s.getStaff(ctx, `email = ?`, email)
}

func (s *Store) GetStaffByID(ctx context.Context, staffID uuid.UUID) (model.Staff, error) {
	return s.getStaff(ctx, `staff_id = ?`, staffID.String())
}

func (s *Store) UpdateStaffLogin(ctx context.Context, staffID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE staff SET last_login_at = ? WHERE staff_id = ?`, s.now().UnixMilli(), staffID.String())
	return err
}

func (s *Store) getStaff(ctx context.Context, where string, arg any) (model.Staff, error) {
	row := s.db.QueryRowContext(ctx, `SELECT staff_id, email, password_hash, display_name, institution, created_at, last_login_at
		FROM staff WHERE `+where, arg)

	var (
		st        model.Staff
		key       string
		created   int64
		lastLogin sql.NullInt64
	)
	if err := row.Scan(&key, &st.Email, &st.PasswordHash, &st.DisplayName, &st.Institution, &created, &lastLogin); err != nil {
		return model.Staff{}, mapError(err)
	}
	var err error
	if st.StaffID, err = uuid.Parse(key); err != nil {
		return model.Staff{}, fmt.Errorf("staff id: %w", err)
	}
	st.CreatedAt = time.UnixMilli(created).UTC()
	if lastLogin.Valid {
		t := time.UnixMilli(lastLogin.Int64).UTC()
		st.LastLoginAt = &t
	}
	return st, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	}
	return err
}
