// Package papers is the persistence gateway for finished paper documents.
package papers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/db/model"
	"github.com/gokatarajesh/paper-builder/internal/db/repository"
	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/metrics"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

// Summary is one row of the owner's paper list.
type Summary struct {
	ID         string    `json:"id"`
	PaperName  string    `json:"paperName"`
	Class      string    `json:"class"`
	Subject    string    `json:"subject"`
	TotalMarks int       `json:"totalMarks"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Service reads and writes whole documents on behalf of their owner.
type Service struct {
	repo    *repository.PaperRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewService wires the gateway. A nil m records into unregistered collectors.
func NewService(repo *repository.PaperRepository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger.With().Str("component", "papers").Logger(),
	}
}

// Create stores doc as a new paper and returns its id.
func (s *Service) Create(ctx context.Context, session auth.Session, doc paper.Document) (id string, err error) {
	defer s.observe("create", &err)

	if err := checkSession("papers.create", session); err != nil {
		return "", err
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	created, err := s.repo.Create(ctx, session.StaffID, doc)
	if err != nil {
		return "", classify("papers.create", err)
	}
	s.logger.Info().Str("paper_id", created.ID).Str("staff_id", session.StaffID.String()).
		Int("total_marks", created.Totals().Grand).Msg("paper created")
	return created.ID, nil
}

// Put stores doc under an id reserved by the caller. The first call inserts; a
// repeat by the same owner replaces the stored document, so retrying is safe.
// An id owned by someone else is reported as missing.
func (s *Service) Put(ctx context.Context, session auth.Session, id string, doc paper.Document) (saved paper.Document, err error) {
	defer s.observe("put", &err)

	if err := checkSession("papers.put", session); err != nil {
		return paper.Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return paper.Document{}, err
	}
	paperID, err := parseID("papers.put", id)
	if err != nil {
		return paper.Document{}, err
	}

	saved, err = s.repo.CreateWithID(ctx, session.StaffID, paperID, doc)
	if errors.Is(err, model.ErrConflict) {
		saved, err = s.repo.Update(ctx, session.StaffID, paperID, doc)
	}
	if err != nil {
		return paper.Document{}, classify("papers.put", err)
	}
	s.logger.Info().Str("paper_id", saved.ID).Str("staff_id", session.StaffID.String()).
		Int("total_marks", saved.Totals().Grand).Msg("paper stored")
	return saved, nil
}

// Get loads a paper. Papers owned by someone else are reported as missing.
func (s *Service) Get(ctx context.Context, session auth.Session, id string) (doc paper.Document, err error) {
	defer s.observe("get", &err)

	if err := checkSession("papers.get", session); err != nil {
		return paper.Document{}, err
	}
	paperID, err := parseID("papers.get", id)
	if err != nil {
		return paper.Document{}, err
	}

	doc, err = s.repo.Get(ctx, paperID)
	if err != nil {
		return paper.Document{}, classify("papers.get", err)
	}
	if doc.OwnerID != session.StaffID.String() {
		return paper.Document{}, failure.NotFound("papers.get", "paper")
	}
	return doc, nil
}

// Update replaces the stored document wholesale.
func (s *Service) Update(ctx context.Context, session auth.Session, id string, doc paper.Document) (saved paper.Document, err error) {
	defer s.observe("update", &err)

	if err := checkSession("papers.update", session); err != nil {
		return paper.Document{}, err
	}
	paperID, err := parseID("papers.update", id)
	if err != nil {
		return paper.Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return paper.Document{}, err
	}

	saved, err = s.repo.Update(ctx, session.StaffID, paperID, doc)
	if err != nil {
		return paper.Document{}, classify("papers.update", err)
	}
	s.logger.Info().Str("paper_id", saved.ID).Int("total_marks", saved.Totals().Grand).Msg("paper updated")
	return saved, nil
}

// Delete removes a paper owned by the session.
func (s *Service) Delete(ctx context.Context, session auth.Session, id string) (err error) {
	defer s.observe("delete", &err)

	if err := checkSession("papers.delete", session); err != nil {
		return err
	}
	paperID, err := parseID("papers.delete", id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, session.StaffID, paperID); err != nil {
		return classify("papers.delete", err)
	}
	s.logger.Info().Str("paper_id", id).Msg("paper deleted")
	return nil
}

// ListByOwner returns the session owner's papers, most recently updated first.
func (s *Service) ListByOwner(ctx context.Context, session auth.Session) (list []Summary, err error) {
	defer s.observe("list", &err)

	if err := checkSession("papers.list", session); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, session.StaffID)
	if err != nil {
		return nil, classify("papers.list", err)
	}
	list = make([]Summary, 0, len(rows))
	for _, row := range rows {
		list = append(list, Summary{
			ID:         row.PaperID.String(),
			PaperName:  row.PaperName,
			Class:      row.ClassName,
			Subject:    row.SubjectName,
			TotalMarks: int(row.TotalMarks),
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return list, nil
}

func (s *Service) observe(op string, err *error) {
	s.metrics.PaperOps.WithLabelValues(op, metrics.Outcome(*err)).Inc()
	if *err != nil && failure.KindOf(*err) != failure.KindNotFound && failure.KindOf(*err) != failure.KindConstraint {
		s.logger.Error().Err(*err).Str("op", op).Msg("paper operation failed")
	}
}

func checkSession(op string, session auth.Session) error {
	if !session.Valid() {
		return failure.Constraint(op, "sign in to manage papers")
	}
	return nil
}

func parseID(op, id string) (uuid.UUID, error) {
	paperID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, failure.NotFound(op, "paper")
	}
	return paperID, nil
}

// classify maps store errors onto failure kinds.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return failure.NotFound(op, "paper")
	case errors.Is(err, repository.ErrCorruptDocument):
		return failure.Unexpected(op, err)
	default:
		return failure.Transport(op, err)
	}
}
