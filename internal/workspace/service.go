// Package workspace orchestrates a staff member's editing session: the draft
// paper, its open selection round and the hand-off to persistence.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/bank"
	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/metrics"
	"github.com/gokatarajesh/paper-builder/internal/paper"
	"github.com/gokatarajesh/paper-builder/internal/paper/scoring"
	"github.com/gokatarajesh/paper-builder/internal/selection"
	ws "github.com/gokatarajesh/paper-builder/pkg/http/ws"
)

type poolResolver interface {
	Resolve(ctx context.Context, q bank.Query) ([]paper.Question, error)
}

type paperGateway interface {
	Put(ctx context.Context, session auth.Session, id string, doc paper.Document) (paper.Document, error)
	Get(ctx context.Context, session auth.Session, id string) (paper.Document, error)
	Update(ctx context.Context, session auth.Session, id string, doc paper.Document) (paper.Document, error)
}

// Notifier pushes draft updates to the owner's open preview.
type Notifier interface {
	NotifyDraft(staffID uuid.UUID, draftID string, msg ws.Message) error
}

// Prefetcher warms the bank cache for a class ahead of the first search.
type Prefetcher interface {
	Enqueue(class string) bool
}

// ServiceOptions configures optional collaborators.
type ServiceOptions struct {
	Notifier   Notifier
	Prefetcher Prefetcher
	Metrics    *metrics.Metrics
}

// Service applies editing operations to drafts stored in Redis.
type Service struct {
	state    *StateManager
	pool     poolResolver
	papers   paperGateway
	notifier Notifier
	prefetch Prefetcher
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the workspace.
func NewService(state *StateManager, pool poolResolver, papers paperGateway, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	return &Service{
		state:    state,
		pool:     pool,
		papers:   papers,
		notifier: opts.Notifier,
		prefetch: opts.Prefetcher,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "workspace").Logger(),
		now:      time.Now,
	}
}

// Header is the editable paper metadata.
type Header struct {
	PaperName string      `json:"paperName"`
	Info      paper.Info  `json:"info"`
	Style     paper.Style `json:"style"`
}

// OpenRequest starts or repeats a search inside a selection round.
type OpenRequest struct {
	Query    bank.Query `json:"filters"`
	Required int        `json:"required"`
}

// Notice explains why a search produced no candidates.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SelectionResult is the selection view after an operation.
type SelectionResult struct {
	selection.View
	Notice  *Notice `json:"notice,omitempty"`
	Changed bool    `json:"changed"`
	Sampled int     `json:"sampled,omitempty"`
}

// NewDraft starts an empty paper for the session's owner.
func (s *Service) NewDraft(ctx context.Context, session auth.Session, h Header) (*Draft, error) {
	const op = "workspace.new_draft"
	if err := checkSession(op, session); err != nil {
		return nil, err
	}
	doc := paper.New(session.StaffID.String(), h.Info, h.Style).WithPaperName(strings.TrimSpace(h.PaperName))
	d := &Draft{
		ID:              uuid.NewString(),
		OwnerID:         session.StaffID.String(),
		ReservedPaperID: uuid.NewString(),
		Document:        doc,
		Selection:       selection.New(),
	}
	if err := s.store(ctx, op, d); err != nil {
		return nil, err
	}
	s.warm(h.Info.Class)
	s.logger.Info().Str("draft_id", d.ID).Str("staff_id", d.OwnerID).Msg("draft created")
	return d, nil
}

// LoadDraft re-hydrates a saved paper into a new draft.
func (s *Service) LoadDraft(ctx context.Context, session auth.Session, paperID string) (*Draft, error) {
	const op = "workspace.load_draft"
	if err := checkSession(op, session); err != nil {
		return nil, err
	}
	doc, err := s.papers.Get(ctx, session, paperID)
	if err != nil {
		s.record(op, err)
		return nil, err
	}
	d := &Draft{
		ID:        uuid.NewString(),
		OwnerID:   session.StaffID.String(),
		PaperID:   doc.ID,
		Document:  doc,
		Selection: selection.New(),
	}
	if err := s.store(ctx, op, d); err != nil {
		return nil, err
	}
	s.warm(doc.Info.Class)
	s.logger.Info().Str("draft_id", d.ID).Str("paper_id", doc.ID).Msg("draft loaded from paper")
	return d, nil
}

// GetDraft returns the draft owned by the session.
func (s *Service) GetDraft(ctx context.Context, session auth.Session, draftID string) (*Draft, error) {
	return s.load(ctx, "workspace.get_draft", session, draftID)
}

// Discard drops a draft without saving.
func (s *Service) Discard(ctx context.Context, session auth.Session, draftID string) error {
	const op = "workspace.discard"
	if _, err := s.load(ctx, op, session, draftID); err != nil {
		return err
	}
	if err := s.state.DeleteDraft(ctx, draftID); err != nil {
		err = failure.Transport(op, err)
		s.record(op, err)
		return err
	}
	s.record(op, nil)
	return nil
}

// UpdateHeader replaces the paper name, header info and style.
func (s *Service) UpdateHeader(ctx context.Context, session auth.Session, draftID string, h Header) (*Draft, error) {
	return s.mutate(ctx, "workspace.update_header", session, draftID, func(d *Draft) error {
		classChanged := !strings.EqualFold(strings.TrimSpace(d.Document.Info.Class), strings.TrimSpace(h.Info.Class))
		d.Document = d.Document.WithPaperName(strings.TrimSpace(h.PaperName)).WithInfo(h.Info).WithStyle(h.Style)
		if classChanged {
			s.warm(h.Info.Class)
		}
		return nil
	})
}

// OpenSelection resolves a candidate pool for the filters and loads it into the
// draft's selection round, opening the round if needed. Questions already on the
// paper are left out. A missing or empty pool is reported as a notice with an
// empty candidate list.
func (s *Service) OpenSelection(ctx context.Context, session auth.Session, draftID string, req OpenRequest) (*SelectionResult, error) {
	const op = "workspace.open_selection"
	unlock, err := s.lock(ctx, op, draftID, "search", "a search is already in progress")
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock, draftID)

	res := &SelectionResult{}
	_, err = s.mutate(ctx, op, session, draftID, func(d *Draft) error {
		if err := prepareSelection(d.Selection, req); err != nil {
			return err
		}

		q := req.Query
		q.Category = d.Selection.Category()
		if strings.TrimSpace(q.Class) == "" {
			q.Class = d.Document.Info.Class
		}
		if strings.TrimSpace(q.Subject) == "" {
			q.Subject = d.Document.Info.Subject
		}

		candidates, err := s.pool.Resolve(ctx, q)
		switch {
		case failure.Is(err, failure.KindNotFound), failure.Is(err, failure.KindEmpty):
			res.Notice = &Notice{Kind: failure.KindOf(err).String(), Message: failure.Message(err)}
			candidates = nil
		case err != nil:
			return err
		}

		fresh := candidates[:0:0]
		for _, c := range candidates {
			if !d.Document.ContainsOrigin(q.Category, c.ID) {
				fresh = append(fresh, c)
			}
		}
		if len(candidates) > 0 && len(fresh) == 0 {
			res.Notice = &Notice{Kind: failure.KindEmpty.String(), Message: "every matching question is already on the paper"}
		}
		if err := d.Selection.Load(fresh); err != nil {
			return err
		}
		if q.Marks > 0 && !d.Selection.Seeded() {
			if err := d.Selection.Override(scoring.FieldMarks, q.Marks); err != nil {
				return err
			}
		}
		d.Filters = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.selectionResult(ctx, session, draftID, res)
}

// prepareSelection moves the round to a state that can accept a search for req.
func prepareSelection(sel *selection.Session, req OpenRequest) error {
	category := req.Query.Category
	if c, err := paper.ParseCategory(string(category)); err == nil {
		category = c
	}
	switch sel.State() {
	case selection.StateClosed:
		if !category.Valid() {
			return failure.Constraint("workspace.open_selection", "choose a question type")
		}
		return sel.Open(category, req.Required)
	case selection.StateFilters:
		if category.Valid() && category != sel.Category() {
			if err := sel.SetCategory(category); err != nil {
				return err
			}
		}
	case selection.StateSelecting:
		if sel.Seeded() {
			return nil
		}
		if category.Valid() && category != sel.Category() {
			required := req.Required
			if required < 1 {
				required = sel.Required()
			}
			sel.Close()
			return sel.Open(category, required)
		}
	}
	if req.Required > 0 && req.Required != sel.Required() {
		return sel.SetRequired(req.Required)
	}
	return nil
}

// EditBatch opens a selection round seeded with a committed batch.
func (s *Service) EditBatch(ctx context.Context, session auth.Session, draftID string, c paper.Category, index int) (*SelectionResult, error) {
	_, err := s.mutate(ctx, "workspace.edit_batch", session, draftID, func(d *Draft) error {
		b, err := d.Document.Batch(c, index)
		if err != nil {
			return err
		}
		return d.Selection.OpenForEdit(c, index, b)
	})
	if err != nil {
		return nil, err
	}
	return s.selectionResult(ctx, session, draftID, &SelectionResult{})
}

// Toggle flips one candidate in or out of the selection.
func (s *Service) Toggle(ctx context.Context, session auth.Session, draftID, tempID string) (*SelectionResult, error) {
	res := &SelectionResult{}
	_, err := s.mutate(ctx, "workspace.toggle", session, draftID, func(d *Draft) error {
		changed, err := d.Selection.Toggle(tempID)
		res.Changed = changed
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.selectionResult(ctx, session, draftID, res)
}

// Random replaces the selection with a random sample of k candidates.
func (s *Service) Random(ctx context.Context, session auth.Session, draftID string, k int) (*SelectionResult, error) {
	res := &SelectionResult{}
	_, err := s.mutate(ctx, "workspace.random", session, draftID, func(d *Draft) error {
		n, err := d.Selection.RandomSample(k)
		res.Sampled = n
		res.Changed = n > 0
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.selectionResult(ctx, session, draftID, res)
}

// View projects the selection round without changing it.
func (s *Service) View(ctx context.Context, session auth.Session, draftID string, onlySelected bool) (*SelectionResult, error) {
	d, err := s.load(ctx, "workspace.view", session, draftID)
	if err != nil {
		return nil, err
	}
	return &SelectionResult{View: d.Selection.View(onlySelected)}, nil
}

// Override changes one field of the batch config being built.
func (s *Service) Override(ctx context.Context, session auth.Session, draftID string, field scoring.Field, value int) (*SelectionResult, error) {
	_, err := s.mutate(ctx, "workspace.override", session, draftID, func(d *Draft) error {
		return d.Selection.Override(field, value)
	})
	if err != nil {
		return nil, err
	}
	return s.selectionResult(ctx, session, draftID, &SelectionResult{})
}

// SetRequired changes how many questions the round asks for.
func (s *Service) SetRequired(ctx context.Context, session auth.Session, draftID string, n int) (*SelectionResult, error) {
	_, err := s.mutate(ctx, "workspace.set_required", session, draftID, func(d *Draft) error {
		return d.Selection.SetRequired(n)
	})
	if err != nil {
		return nil, err
	}
	return s.selectionResult(ctx, session, draftID, &SelectionResult{})
}

// Commit turns the selection into a batch on the paper. A round opened from an
// existing batch replaces it.
func (s *Service) Commit(ctx context.Context, session auth.Session, draftID string) (*Draft, error) {
	return s.mutate(ctx, "workspace.commit", session, draftID, func(d *Draft) error {
		res, err := d.Selection.Commit()
		if err != nil {
			return err
		}
		var next paper.Document
		if res.Target != nil {
			next, err = d.Document.ReplaceBatch(res.Target.Category, res.Target.BatchIndex, res.Batch)
		} else {
			next, err = d.Document.AddBatch(res.Batch)
		}
		if err != nil {
			return err
		}
		d.Document = next
		return nil
	})
}

// CloseSelection abandons the selection round.
func (s *Service) CloseSelection(ctx context.Context, session auth.Session, draftID string) (*Draft, error) {
	return s.mutate(ctx, "workspace.close_selection", session, draftID, func(d *Draft) error {
		d.Selection.Close()
		return nil
	})
}

// RemoveQuestion removes one question from the paper.
func (s *Service) RemoveQuestion(ctx context.Context, session auth.Session, draftID, tempID string) (*Draft, error) {
	const op = "workspace.remove_question"
	return s.mutate(ctx, op, session, draftID, func(d *Draft) error {
		next, ok := d.Document.RemoveQuestion(tempID)
		if !ok {
			return failure.NotFound(op, fmt.Sprintf("question %q", tempID))
		}
		d.Document = next
		return nil
	})
}

// RemoveBatch removes a whole batch from the paper.
func (s *Service) RemoveBatch(ctx context.Context, session auth.Session, draftID string, c paper.Category, index int) (*Draft, error) {
	return s.mutate(ctx, "workspace.remove_batch", session, draftID, func(d *Draft) error {
		if t, ok := d.Selection.Target(); ok && t.Category == c {
			return failure.Constraint("workspace.remove_batch", "close the open selection before removing batches of this section")
		}
		next, err := d.Document.RemoveBatch(c, index)
		if err != nil {
			return err
		}
		d.Document = next
		return nil
	})
}

// EditQuestionText rewrites the text of one placed question.
func (s *Service) EditQuestionText(ctx context.Context, session auth.Session, draftID string, c paper.Category, batchIndex, questionIndex int, text string) (*Draft, error) {
	return s.mutate(ctx, "workspace.edit_text", session, draftID, func(d *Draft) error {
		next, err := d.Document.EditQuestionText(c, batchIndex, questionIndex, text)
		if err != nil {
			return err
		}
		d.Document = next
		return nil
	})
}

// EditOption rewrites one option of a placed multiple choice question.
func (s *Service) EditOption(ctx context.Context, session auth.Session, draftID string, batchIndex, questionIndex int, key, text string) (*Draft, error) {
	return s.mutate(ctx, "workspace.edit_option", session, draftID, func(d *Draft) error {
		next, err := d.Document.EditOption(batchIndex, questionIndex, key, text)
		if err != nil {
			return err
		}
		d.Document = next
		return nil
	})
}

// Save persists the draft's paper. The first save writes under the id reserved
// when the draft was created, so a retry after a failed draft write replaces that
// paper rather than creating a second one.
func (s *Service) Save(ctx context.Context, session auth.Session, draftID string) (*Draft, error) {
	const op = "workspace.save"
	unlock, err := s.lock(ctx, op, draftID, "save", "a save is already in progress")
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock, draftID)

	return s.mutate(ctx, op, session, draftID, func(d *Draft) error {
		if d.PaperID == "" {
			if d.ReservedPaperID == "" {
				d.ReservedPaperID = uuid.NewString()
			}
			saved, err := s.papers.Put(ctx, session, d.ReservedPaperID, d.Document)
			if err != nil {
				return err
			}
			d.PaperID = saved.ID
			d.ReservedPaperID = ""
			d.Document = saved
			return nil
		}
		saved, err := s.papers.Update(ctx, session, d.PaperID, d.Document)
		if err != nil {
			return err
		}
		d.Document = saved
		return nil
	})
}

// mutate loads the draft, applies fn to it and stores the result. When fn fails
// nothing is written, so the stored draft is unchanged.
func (s *Service) mutate(ctx context.Context, op string, session auth.Session, draftID string, fn func(*Draft) error) (*Draft, error) {
	d, err := s.load(ctx, op, session, draftID)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		s.record(op, err)
		return nil, err
	}
	if err := s.store(ctx, op, d); err != nil {
		return nil, err
	}
	s.notify(d)
	return d, nil
}

func (s *Service) load(ctx context.Context, op string, session auth.Session, draftID string) (*Draft, error) {
	if err := checkSession(op, session); err != nil {
		return nil, err
	}
	d, err := s.state.GetDraft(ctx, draftID)
	if err != nil {
		err = failure.Transport(op, err)
		s.record(op, err)
		return nil, err
	}
	if d == nil || d.OwnerID != session.StaffID.String() {
		err = failure.NotFound(op, "draft")
		s.record(op, err)
		return nil, err
	}
	return d, nil
}

func (s *Service) store(ctx context.Context, op string, d *Draft) error {
	d.UpdatedAt = s.now().UTC()
	if err := s.state.StoreDraft(ctx, d); err != nil {
		err = failure.Transport(op, err)
		s.record(op, err)
		return err
	}
	s.record(op, nil)
	return nil
}

func (s *Service) lock(ctx context.Context, op, draftID, name, busy string) (func() error, error) {
	unlock, err := s.state.LockDraft(ctx, draftID, name)
	if errors.Is(err, ErrLockHeld) {
		err = failure.Constraint(op, busy)
	} else if err != nil {
		err = failure.Transport(op, err)
	}
	if err != nil {
		s.record(op, err)
		return nil, err
	}
	return unlock, nil
}

func (s *Service) unlock(unlock func() error, draftID string) {
	if err := unlock(); err != nil {
		s.logger.Warn().Err(err).Str("draft_id", draftID).Msg("release draft lock failed")
	}
}

func (s *Service) selectionResult(ctx context.Context, session auth.Session, draftID string, res *SelectionResult) (*SelectionResult, error) {
	d, err := s.load(ctx, "workspace.view", session, draftID)
	if err != nil {
		return nil, err
	}
	res.View = d.Selection.View(false)
	return res, nil
}

func (s *Service) record(op string, err error) {
	s.metrics.DraftOps.WithLabelValues(strings.TrimPrefix(op, "workspace."), metrics.Outcome(err)).Inc()
	if err != nil && failure.KindOf(err) != failure.KindConstraint && failure.KindOf(err) != failure.KindNotFound {
		s.logger.Error().Err(err).Str("op", op).Msg("draft operation failed")
	}
}

func (s *Service) warm(class string) {
	if s.prefetch == nil || strings.TrimSpace(class) == "" {
		return
	}
	s.prefetch.Enqueue(class)
}

// notify pushes the new totals to the owner's preview. Delivery is best effort.
func (s *Service) notify(d *Draft) {
	if s.notifier == nil {
		return
	}
	staffID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return
	}
	msg, err := ws.NewMessage(ws.TypeDraftUpdated, UpdatePayload(d))
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode draft update")
		return
	}
	if err := s.notifier.NotifyDraft(staffID, d.ID, msg); err != nil {
		s.logger.Debug().Err(err).Str("draft_id", d.ID).Msg("draft update not delivered")
	}
}

// UpdatePayload summarises a draft for the preview push.
func UpdatePayload(d *Draft) ws.DraftUpdatedPayload {
	totals := d.Document.Totals()
	p := ws.DraftUpdatedPayload{
		DraftID:       d.ID,
		PaperID:       d.PaperID,
		Sections:      make(map[string]int, len(totals.Sections)),
		GrandTotal:    totals.Grand,
		QuestionCount: d.Document.QuestionCount(),
		Notes:         []ws.SectionNote{},
		Selection:     d.Selection.State().String(),
	}
	for c, marks := range totals.Sections {
		p.Sections[string(c)] = marks
	}
	for _, n := range d.Document.SectionNotes() {
		p.Notes = append(p.Notes, ws.SectionNote{Category: string(n.Category), BatchIndex: n.BatchIndex, Note: n.Note})
	}
	return p
}

func checkSession(op string, session auth.Session) error {
	if !session.Valid() {
		return failure.Constraint(op, "sign in to edit papers")
	}
	return nil
}
