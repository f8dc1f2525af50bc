// Package model holds the row types and parameters shared by the SQL stores.
package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("row not found")

// ErrConflict is returned when a unique constraint rejects a write.
var ErrConflict = errors.New("row already exists")

type Staff struct {
	StaffID      uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	Institution  string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

type CreateStaffParams struct {
	StaffID      uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	Institution  string
}

type Paper struct {
	PaperID     uuid.UUID
	OwnerID     uuid.UUID
	PaperName   string
	ClassName   string
	SubjectName string
	TotalMarks  int32
	Document    []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type InsertPaperParams struct {
	PaperID     uuid.UUID
	OwnerID     uuid.UUID
	PaperName   string
	ClassName   string
	SubjectName string
	TotalMarks  int32
	Document    []byte
}

// UpdatePaperParams replaces a paper owned by OwnerID.
type UpdatePaperParams struct {
	PaperID     uuid.UUID
	OwnerID     uuid.UUID
	PaperName   string
	ClassName   string
	SubjectName string
	TotalMarks  int32
	Document    []byte
}

type DeletePaperParams struct {
	PaperID uuid.UUID
	OwnerID uuid.UUID
}

type PaperSummary struct {
	PaperID     uuid.UUID
	PaperName   string
	ClassName   string
	SubjectName string
	TotalMarks  int32
	UpdatedAt   time.Time
}
