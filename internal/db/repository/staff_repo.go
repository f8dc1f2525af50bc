package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gokatarajesh/paper-builder/internal/db/model"
)

type staffStore interface {
	CreateStaff(ctx context.Context, arg model.CreateStaffParams) (model.Staff, error)
	GetStaffByEmail(ctx context.Context, email string) (model.Staff, error)
	GetStaffByID(ctx context.Context, staffID uuid.UUID) (model.Staff, error)
	UpdateStaffLogin(ctx context.Context, staffID uuid.UUID) error
}

// StaffRepository exposes typed DB operations required by auth flows.
type StaffRepository struct {
	store staffStore
}

func NewStaffRepository(store staffStore) *StaffRepository {
	return &StaffRepository{store: store}
}

// Create inserts a staff account. Emails are stored lower-cased.
func (r *StaffRepository) Create(ctx context.Context, params model.CreateStaffParams) (model.Staff, error) {
	if params.StaffID == uuid.Nil {
		params.StaffID = uuid.New()
	}
	params.Email = normaliseEmail(params.Email)
	return r.store.CreateStaff(ctx, params)
}

// GetByEmail fetches an account by email if present.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (model.Staff, error) {
	return r.store.GetStaffByEmail(ctx, normaliseEmail(email))
}

// GetByID fetches an account by ID.
func (r *StaffRepository) GetByID(ctx context.Context, staffID uuid.UUID) (model.Staff, error) {
	return r.store.GetStaffByID(ctx, staffID)
}

// UpdateLogin records the last login timestamp.
func (r *StaffRepository) UpdateLogin(ctx context.Context, staffID uuid.UUID) error {
	return r.store.UpdateStaffLogin(ctx, staffID)
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
