package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gokatarajesh/paper-builder/internal/db/model"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

// ErrCorruptDocument marks a stored row whose document cannot be decoded.
var ErrCorruptDocument = errors.New("stored paper document is corrupt")

type paperStore interface {
	InsertPaper(ctx context.Context, arg model.InsertPaperParams) (model.Paper, error)
	GetPaper(ctx context.Context, paperID uuid.UUID) (model.Paper, error)
	UpdatePaper(ctx context.Context, arg model.UpdatePaperParams) (model.Paper, error)
	DeletePaper(ctx context.Context, arg model.DeletePaperParams) error
	ListPapersByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PaperSummary, error)
}

// PaperRepository stores whole paper documents as JSON alongside a few indexed columns.
type PaperRepository struct {
	store paperStore
}

// NewPaperRepository wraps a SQL store for paper documents.
func NewPaperRepository(store paperStore) *PaperRepository {
	return &PaperRepository{store: store}
}

// Create inserts doc under a new id owned by ownerID.
func (r *PaperRepository) Create(ctx context.Context, ownerID uuid.UUID, doc paper.Document) (paper.Document, error) {
	return r.CreateWithID(ctx, ownerID, uuid.New(), doc)
}

// CreateWithID inserts under a caller-chosen id. An existing id fails with
// model.ErrConflict.
func (r *PaperRepository) CreateWithID(ctx context.Context, ownerID, paperID uuid.UUID, doc paper.Document) (paper.Document, error) {
	doc = doc.WithID(paperID.String()).WithOwner(ownerID.String())
	body, err := encodeDocument(doc)
	if err != nil {
		return paper.Document{}, err
	}
	row, err := r.store.InsertPaper(ctx, model.InsertPaperParams{
		PaperID:     paperID,
		OwnerID:     ownerID,
		PaperName:   doc.PaperName,
		ClassName:   doc.Info.Class,
		SubjectName: doc.Info.Subject,
		TotalMarks:  int32(doc.Totals().Grand),
		Document:    body,
	})
	if err != nil {
		return paper.Document{}, err
	}
	return decodeDocument(row)
}

// Get loads a paper by id regardless of owner; callers enforce ownership.
func (r *PaperRepository) Get(ctx context.Context, paperID uuid.UUID) (paper.Document, error) {
	row, err := r.store.GetPaper(ctx, paperID)
	if err != nil {
		return paper.Document{}, err
	}
	return decodeDocument(row)
}

// Update replaces the stored document. It returns model.ErrNotFound when the paper
// does not exist or belongs to someone else.
func (r *PaperRepository) Update(ctx context.Context, ownerID, paperID uuid.UUID, doc paper.Document) (paper.Document, error) {
	doc = doc.WithID(paperID.String()).WithOwner(ownerID.String())
	body, err := encodeDocument(doc)
	if err != nil {
		return paper.Document{}, err
	}
	row, err := r.store.UpdatePaper(ctx, model.UpdatePaperParams{
		PaperID:     paperID,
		OwnerID:     ownerID,
		PaperName:   doc.PaperName,
		ClassName:   doc.Info.Class,
		SubjectName: doc.Info.Subject,
		TotalMarks:  int32(doc.Totals().Grand),
		Document:    body,
	})
	if err != nil {
		return paper.Document{}, err
	}
	return decodeDocument(row)
}

// Delete removes a paper owned by ownerID.
func (r *PaperRepository) Delete(ctx context.Context, ownerID, paperID uuid.UUID) error {
	return r.store.DeletePaper(ctx, model.DeletePaperParams{PaperID: paperID, OwnerID: ownerID})
}

// ListByOwner returns summaries, most recently updated first.
func (r *PaperRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PaperSummary, error) {
	return r.store.ListPapersByOwner(ctx, ownerID)
}

func encodeDocument(doc paper.Document) ([]byte, error) {
	body, err := json.Marshal(doc.Record())
	if err != nil {
		return nil, fmt.Errorf("encode paper: %w", err)
	}
	return body, nil
}

func decodeDocument(row model.Paper) (paper.Document, error) {
	var rec paper.Record
	if err := json.Unmarshal(row.Document, &rec); err != nil {
		return paper.Document{}, fmt.Errorf("%w: paper %s: %w", ErrCorruptDocument, row.PaperID, err)
	}
	rec.ID = row.PaperID.String()
	rec.OwnerID = row.OwnerID.String()
	doc, err := paper.FromRecord(rec)
	if err != nil {
		return paper.Document{}, fmt.Errorf("%w: paper %s: %w", ErrCorruptDocument, row.PaperID, err)
	}
	return doc, nil
}
