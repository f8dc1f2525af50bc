// Package selection holds the transient state of one "add questions" round: the
// candidate pool, the tentative selection and the batch config being built.
package selection

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/paper"
	"github.com/gokatarajesh/paper-builder/internal/paper/scoring"
)

// State is the modal step the session is in.
type State int

const (
	StateClosed State = iota
	StateFilters
	StateSelecting
)

func (s State) String() string {
	switch s {
	case StateFilters:
		return "filters"
	case StateSelecting:
		return "selecting"
	default:
		return "closed"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "closed", "":
		*s = StateClosed
	case "filters":
		*s = StateFilters
	case "selecting":
		*s = StateSelecting
	default:
		return fmt.Errorf("unknown selection state %q", text)
	}
	return nil
}

// Target identifies the committed batch a session is re-editing.
type Target struct {
	Category   paper.Category `json:"category"`
	BatchIndex int            `json:"batchIndex"`
}

// Session is not safe for concurrent use; a draft owns exactly one.
type Session struct {
	state      State
	category   paper.Category
	required   int
	candidates []paper.Question
	selected   []string
	seeded     bool
	target     *Target
	resolver   *scoring.Resolver
}

// New returns a closed session.
func New() *Session {
	return &Session{}
}

func (s *Session) State() State { return s.state }

// Seeded reports whether the selection was seeded from an existing batch.
func (s *Session) Seeded() bool { return s.seeded }

func (s *Session) Category() paper.Category { return s.category }

func (s *Session) Required() int { return s.required }

// Target returns the batch being re-edited, if any.
func (s *Session) Target() (Target, bool) {
	if s.target == nil {
		return Target{}, false
	}
	return *s.target, true
}

// Config returns the batch config the session would commit with.
func (s *Session) Config() paper.BatchConfig {
	if s.resolver == nil {
		return paper.BatchConfig{}
	}
	return s.resolver.Config()
}

// Open moves a closed session to the filters step.
func (s *Session) Open(c paper.Category, required int) error {
	const op = "selection.open"
	if s.state != StateClosed {
		return failure.Constraint(op, "a selection is already open")
	}
	if !c.Valid() {
		return failure.Constraint(op, fmt.Sprintf("unknown question type %q", c))
	}
	if required < 1 {
		return failure.Constraint(op, "request at least one question")
	}
	*s = Session{
		state:    StateFilters,
		category: c,
		required: required,
		resolver: scoring.New(c, required),
	}
	return nil
}

// SetCategory changes the category while filters are being chosen.
func (s *Session) SetCategory(c paper.Category) error {
	const op = "selection.set_category"
	if s.state != StateFilters {
		return failure.Constraint(op, "the question type can only change before searching")
	}
	if !c.Valid() {
		return failure.Constraint(op, fmt.Sprintf("unknown question type %q", c))
	}
	s.category = c
	s.resolver.SetCategory(c)
	return nil
}

// Load installs a resolved candidate pool. From the filters step it starts an empty
// selection; a repeated search replaces the pool, except in a seeded session where
// new candidates are appended and the selection is kept.
func (s *Session) Load(candidates []paper.Question) error {
	const op = "selection.load"
	switch s.state {
	case StateFilters:
		s.state = StateSelecting
		s.candidates = cloneQuestions(candidates)
		s.selected = nil
	case StateSelecting:
		if s.seeded {
			s.candidates = appendNew(s.candidates, candidates)
			return nil
		}
		s.candidates = cloneQuestions(candidates)
		s.selected = nil
	default:
		return failure.Constraint(op, "open a selection before searching")
	}
	return nil
}

// OpenForEdit seeds a closed session from a committed batch. The selection starts as
// the batch's questions and the batch config is pinned.
func (s *Session) OpenForEdit(c paper.Category, batchIndex int, b paper.Batch) error {
	const op = "selection.open_for_edit"
	if s.state != StateClosed {
		return failure.Constraint(op, "a selection is already open")
	}
	if b.Type != c {
		return failure.Constraint(op, "batch type does not match its section")
	}
	if len(b.Questions) == 0 {
		return failure.Constraint(op, "the batch has no questions left to edit")
	}

	cfg := b.Config
	if cfg.Total != len(b.Questions) {
		cfg.Total = len(b.Questions)
	}
	candidates := cloneQuestions(b.Questions)
	selected := make([]string, len(candidates))
	for i, q := range candidates {
		selected[i] = q.TempID
	}
	*s = Session{
		state:      StateSelecting,
		category:   c,
		required:   cfg.Total,
		candidates: candidates,
		selected:   selected,
		seeded:     true,
		target:     &Target{Category: c, BatchIndex: batchIndex},
		resolver:   scoring.Pinned(c, cfg),
	}
	return nil
}

// Close discards the session from any state.
func (s *Session) Close() {
	*s = Session{}
}

// Toggle removes tempID from the selection or adds it while under the cap. Adding
// beyond the cap is ignored. It reports whether the selection changed.
func (s *Session) Toggle(tempID string) (bool, error) {
	const op = "selection.toggle"
	if s.state != StateSelecting {
		return false, failure.Constraint(op, "no candidates loaded")
	}
	if s.indexOfCandidate(tempID) < 0 {
		return false, failure.NotFound(op, fmt.Sprintf("question %q", tempID))
	}
	for i, id := range s.selected {
		if id == tempID {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return true, nil
		}
	}
	if len(s.selected) >= s.required {
		return false, nil
	}
	s.selected = append(s.selected, tempID)
	return true, nil
}

// RandomSample shuffles the candidate pool in place and selects its first
// min(k, required, pool size) entries. k <= 0 samples the required count.
func (s *Session) RandomSample(k int) (int, error) {
	const op = "selection.random"
	if s.state != StateSelecting {
		return 0, failure.Constraint(op, "no candidates loaded")
	}
	if k <= 0 {
		k = s.required
	}
	n := min(k, s.required, len(s.candidates))

	rand.Shuffle(len(s.candidates), func(i, j int) {
		s.candidates[i], s.candidates[j] = s.candidates[j], s.candidates[i]
	})
	s.selected = make([]string, n)
	for i := 0; i < n; i++ {
		s.selected[i] = s.candidates[i].TempID
	}
	return n, nil
}

// SetRequired changes the requested count. A smaller cap drops the most recently
// selected questions.
func (s *Session) SetRequired(n int) error {
	const op = "selection.set_required"
	if s.state == StateClosed {
		return failure.Constraint(op, "no selection is open")
	}
	if n < 1 {
		return failure.Constraint(op, "request at least one question")
	}
	s.required = n
	s.resolver.SetRequired(n)
	if len(s.selected) > n {
		s.selected = s.selected[:n:n]
	}
	return nil
}

// Override applies a manual config change. Overriding the total also moves the cap.
func (s *Session) Override(field scoring.Field, value int) error {
	const op = "selection.override"
	if s.state == StateClosed {
		return failure.Constraint(op, "no selection is open")
	}
	if err := s.resolver.Override(field, value); err != nil {
		return err
	}
	if field == scoring.FieldTotal {
		s.required = value
		if len(s.selected) > value {
			s.selected = s.selected[:value:value]
		}
	}
	return nil
}

// Result is a committed selection ready for the document.
type Result struct {
	Batch  paper.Batch
	Target *Target
}

// Commit hands off the selection once it holds exactly the required count, then
// closes the session. Questions keep candidate order.
func (s *Session) Commit() (Result, error) {
	const op = "selection.commit"
	if s.state != StateSelecting {
		return Result{}, failure.Constraint(op, "no candidates loaded")
	}
	if len(s.selected) != s.required {
		return Result{}, failure.Constraint(op, fmt.Sprintf("select exactly %d questions (selected %d)", s.required, len(s.selected)))
	}

	chosen := s.selectedSet()
	questions := make([]paper.Question, 0, s.required)
	for _, q := range s.candidates {
		if _, ok := chosen[q.TempID]; ok {
			questions = append(questions, q.Clone())
		}
	}
	cfg := s.resolver.Config()
	cfg.Total = s.required

	res := Result{
		Batch:  paper.Batch{Type: s.category, Config: cfg, Questions: questions},
		Target: s.target,
	}
	s.Close()
	return res, nil
}

// Candidate is one row of the selection view.
type Candidate struct {
	paper.Question
	Selected bool `json:"selected"`
}

// View is a read-only projection of the session.
type View struct {
	State      State             `json:"state"`
	Category   paper.Category    `json:"category,omitempty"`
	Required   int               `json:"required"`
	Selected   int               `json:"selectedCount"`
	Available  int               `json:"available"`
	Editing    *Target           `json:"editing,omitempty"`
	Config     paper.BatchConfig `json:"config"`
	Candidates []Candidate       `json:"candidates"`
}

// View projects the session for display without changing it.
func (s *Session) View(onlySelected bool) View {
	v := View{
		State:      s.state,
		Category:   s.category,
		Required:   s.required,
		Selected:   len(s.selected),
		Available:  len(s.candidates),
		Config:     s.Config(),
		Candidates: []Candidate{},
	}
	if s.target != nil {
		t := *s.target
		v.Editing = &t
	}
	chosen := s.selectedSet()
	for _, q := range s.candidates {
		_, ok := chosen[q.TempID]
		if onlySelected && !ok {
			continue
		}
		v.Candidates = append(v.Candidates, Candidate{Question: q.Clone(), Selected: ok})
	}
	return v
}

func (s *Session) selectedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.selected))
	for _, id := range s.selected {
		set[id] = struct{}{}
	}
	return set
}

func (s *Session) indexOfCandidate(tempID string) int {
	for i, q := range s.candidates {
		if q.TempID == tempID {
			return i
		}
	}
	return -1
}

func cloneQuestions(qs []paper.Question) []paper.Question {
	out := make([]paper.Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

// appendNew adds candidates whose bank id and temp id are not already present.
func appendNew(existing, incoming []paper.Question) []paper.Question {
	ids := make(map[string]struct{}, len(existing))
	temps := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		if q.ID != "" {
			ids[q.ID] = struct{}{}
		}
		temps[q.TempID] = struct{}{}
	}
	for _, q := range incoming {
		if _, dup := temps[q.TempID]; dup {
			continue
		}
		if _, dup := ids[q.ID]; q.ID != "" && dup {
			continue
		}
		existing = append(existing, q.Clone())
	}
	return existing
}

type snapshot struct {
	State      State             `json:"state"`
	Category   paper.Category    `json:"category,omitempty"`
	Required   int               `json:"required,omitempty"`
	Candidates []paper.Question  `json:"candidates,omitempty"`
	Selected   []string          `json:"selected,omitempty"`
	Seeded     bool              `json:"seeded,omitempty"`
	Target     *Target           `json:"target,omitempty"`
	Resolver   *scoring.Resolver `json:"resolver,omitempty"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		State:      s.state,
		Category:   s.category,
		Required:   s.required,
		Candidates: s.candidates,
		Selected:   s.selected,
		Seeded:     s.seeded,
		Target:     s.target,
		Resolver:   s.resolver,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.State != StateClosed && snap.Resolver == nil {
		return fmt.Errorf("selection: %s session without config", snap.State)
	}
	*s = Session{
		state:      snap.State,
		category:   snap.Category,
		required:   snap.Required,
		candidates: snap.Candidates,
		selected:   snap.Selected,
		seeded:     snap.Seeded,
		target:     snap.Target,
		resolver:   snap.Resolver,
	}
	return nil
}
