// Package pgstore implements the paper and staff stores on PostgreSQL via pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gokatarajesh/paper-builder/internal/db/model"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

const paperColumns = `paper_id, owner_id, paper_name, class_name, subject_name, total_marks, document, created_at, updated_at`

const insertPaper = `INSERT INTO papers (paper_id, owner_id, paper_name, class_name, subject_name, total_marks, document)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + paperColumns

func (s *Store) InsertPaper(ctx context.Context, arg model.InsertPaperParams) (model.Paper, error) {
	row := s.db.QueryRow(ctx, insertPaper,
		arg.PaperID, arg.OwnerID, arg.PaperName, arg.ClassName, arg.SubjectName, arg.TotalMarks, arg.Document)
	return scanPaper(row)
}

const getPaper = `SELECT ` + paperColumns + ` FROM papers WHERE paper_id = $1`

func (s *Store) GetPaper(ctx context.Context, paperID uuid.UUID) (model.Paper, error) {
	return scanPaper(s.db.QueryRow(ctx, getPaper, paperID))
}

const updatePaper = `UPDATE papers
SET paper_name = $3, class_name = $4, subject_name = $5, total_marks = $6, document = $7, updated_at = now()
WHERE paper_id = $1 AND owner_id = $2
RETURNING ` + paperColumns

func (s *Store) UpdatePaper(ctx context.Context, arg model.UpdatePaperParams) (model.Paper, error) {
	row := s.db.QueryRow(ctx, updatePaper,
		arg.PaperID, arg.OwnerID, arg.PaperName, arg.ClassName, arg.SubjectName, arg.TotalMarks, arg.Document)
	return scanPaper(row)
}

const deletePaper = `DELETE FROM papers WHERE paper_id = $1 AND owner_id = $2`

func (s *Store) DeletePaper(ctx context.Context, arg model.DeletePaperParams) error {
	tag, err := s.db.Exec(ctx, deletePaper, arg.PaperID, arg.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

const listPapersByOwner = `SELECT paper_id, paper_name, class_name, subject_name, total_marks, updated_at
FROM papers WHERE owner_id = $1 ORDER BY updated_at DESC`

func (s *Store) ListPapersByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PaperSummary, error) {
	rows, err := s.db.Query(ctx, listPapersByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.PaperSummary{}
	for rows.Next() {
		var i model.PaperSummary
		if err := rows.Scan(&i.PaperID, &i.PaperName, &i.ClassName, &i.SubjectName, &i.TotalMarks, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const staffColumns = `staff_id, email, password_hash, display_name, institution, created_at, last_login_at`

const createStaff = `INSERT INTO staff (staff_id, email, password_hash, display_name, institution)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + staffColumns

func (s *Store) CreateStaff(ctx context.Context, arg model.CreateStaffParams) (model.Staff, error) {
	row := s.db.QueryRow(ctx, createStaff, arg.StaffID, arg.Email, arg.PasswordHash, arg.DisplayName, arg.Institution)
	return scanStaff(row)
}

const getStaffByEmail = `SELECT ` + staffColumns + ` FROM staff WHERE email = $1`

func (s *Store) GetStaffByEmail(ctx context.Context, email string) (model.Staff, error) {
	return scanStaff(s.db.QueryRow(ctx, getStaffByEmail, email))
}

const getStaffByID = `SELECT ` + staffColumns + ` FROM staff WHERE staff_id = $1`

func (s *Store) GetStaffByID(ctx context.Context, staffID uuid.UUID) (model.Staff, error) {
	return scanStaff(s.db.QueryRow(ctx, getStaffByID, staffID))
}

const updateStaffLogin = `UPDATE staff SET last_login_at = now() WHERE staff_id = $1`

func (s *Store) UpdateStaffLogin(ctx context.Context, staffID uuid.UUID) error {
	_, err := s.db.Exec(ctx, updateStaffLogin, staffID)
	return err
}

// Ping checks the connection for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "SELECT 1")
	return err
}

func scanPaper(row pgx.Row) (model.Paper, error) {
	var p model.Paper
	err := row.Scan(&p.PaperID, &p.OwnerID, &p.PaperName, &p.ClassName, &p.SubjectName, &p.TotalMarks, &p.Document, &p.CreatedAt, &p.UpdatedAt)
	return p, mapError(err)
}

func scanStaff(row pgx.Row) (model.Staff, error) {
	var st model.Staff
	err := row.Scan(&st.StaffID, &st.Email, &st.PasswordHash, &st.DisplayName, &st.Institution, &st.CreatedAt, &st.LastLoginAt)
	return st, mapError(err)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", model.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
