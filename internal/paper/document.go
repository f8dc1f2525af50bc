package paper

import (
	"fmt"
	"strings"

	"github.com/gokatarajesh/paper-builder/internal/failure"
)

// Totals are the derived marks of a document.
type Totals struct {
	Sections map[Category]int `json:"sections"`
	Grand    int              `json:"grandTotal"`
}

// RecomputeTotals sums marks per category and across categories.
func RecomputeTotals(sections map[Category][]Batch) Totals {
	t := Totals{Sections: make(map[Category]int, len(Categories))}
	for _, c := range Categories {
		sum := 0
		for _, b := range sections[c] {
			sum += b.Marks()
		}
		t.Sections[c] = sum
		t.Grand += sum
	}
	return t
}

// SectionNote is a choice instruction for one batch of a section.
type SectionNote struct {
	Category   Category `json:"category"`
	BatchIndex int      `json:"batchIndex"`
	Note       string   `json:"note"`
}

// Document is the assembled paper. It is a value: every mutating method returns a
// new Document and leaves the receiver untouched.
type Document struct {
	ID        string
	OwnerID   string
	PaperName string
	Info      Info
	Style     Style

	sections map[Category][]Batch
	totals   Totals
}

// New starts an empty paper for an owner.
func New(ownerID string, info Info, style Style) Document {
	d := Document{
		OwnerID:  ownerID,
		Info:     info,
		Style:    style,
		sections: map[Category][]Batch{},
	}
	d.totals = RecomputeTotals(d.sections)
	d.Info.TotalMarks = d.totals.Grand
	return d
}

// Batches returns a copy of the batches of one category.
func (d Document) Batches(c Category) []Batch {
	src := d.sections[c]
	out := make([]Batch, len(src))
	for i, b := range src {
		out[i] = b.clone()
	}
	return out
}

// Batch returns a copy of a single batch.
func (d Document) Batch(c Category, index int) (Batch, error) {
	src := d.sections[c]
	if index < 0 || index >= len(src) {
		return Batch{}, failure.NotFound("paper.batch", fmt.Sprintf("%s batch %d", c, index+1))
	}
	return src[index].clone(), nil
}

// Totals returns the cached totals.
func (d Document) Totals() Totals {
	sections := make(map[Category]int, len(d.totals.Sections))
	for k, v := range d.totals.Sections {
		sections[k] = v
	}
	return Totals{Sections: sections, Grand: d.totals.Grand}
}

// QuestionCount counts questions across all batches.
func (d Document) QuestionCount() int {
	n := 0
	for _, c := range Categories {
		for _, b := range d.sections[c] {
			n += len(b.Questions)
		}
	}
	return n
}

// ContainsOrigin reports whether a bank question is already placed in the category.
func (d Document) ContainsOrigin(c Category, bankID string) bool {
	if bankID == "" {
		return false
	}
	for _, b := range d.sections[c] {
		for _, q := range b.Questions {
			if q.ID == bankID {
				return true
			}
		}
	}
	return false
}

// SectionNotes lists the choice instructions to print, in section order.
func (d Document) SectionNotes() []SectionNote {
	var notes []SectionNote
	for _, c := range Categories {
		for i, b := range d.sections[c] {
			if note := b.ChoiceNote(); note != "" {
				notes = append(notes, SectionNote{Category: c, BatchIndex: i, Note: note})
			}
		}
	}
	return notes
}

// Validate rejects documents that cannot be saved.
func (d Document) Validate() error {
	if d.QuestionCount() == 0 {
		return failure.Constraint("paper.validate", "paper has no questions; add at least one batch before saving")
	}
	return nil
}

func (d Document) WithID(id string) Document {
	d.ID = id
	return d
}

func (d Document) WithOwner(ownerID string) Document {
	d.OwnerID = ownerID
	return d
}

func (d Document) WithPaperName(name string) Document {
	d.PaperName = name
	return d
}

func (d Document) WithInfo(info Info) Document {
	info.TotalMarks = d.totals.Grand
	d.Info = info
	return d
}

func (d Document) WithStyle(style Style) Document {
	d.Style = style
	return d
}

// AddBatch appends a committed batch to its category. Every question is stamped
// with the batch's marks per question.
func (d Document) AddBatch(b Batch) (Document, error) {
	prepared, err := d.prepare("paper.add_batch", b, -1)
	if err != nil {
		return d, err
	}
	return d.transform(func(sections map[Category][]Batch) {
		sections[prepared.Type] = append(sections[prepared.Type], prepared)
	}), nil
}

// ReplaceBatch swaps the batch at index for a re-edited one.
func (d Document) ReplaceBatch(c Category, index int, b Batch) (Document, error) {
	if index < 0 || index >= len(d.sections[c]) {
		return d, failure.NotFound("paper.replace_batch", fmt.Sprintf("%s batch %d", c, index+1))
	}
	if b.Type != c {
		return d, failure.Constraint("paper.replace_batch", "a batch cannot change its question type")
	}
	prepared, err := d.prepare("paper.replace_batch", b, index)
	if err != nil {
		return d, err
	}
	return d.transform(func(sections map[Category][]Batch) {
		sections[c][index] = prepared
	}), nil
}

// RemoveBatch drops a whole batch.
func (d Document) RemoveBatch(c Category, index int) (Document, error) {
	if index < 0 || index >= len(d.sections[c]) {
		return d, failure.NotFound("paper.remove_batch", fmt.Sprintf("%s batch %d", c, index+1))
	}
	return d.transform(func(sections map[Category][]Batch) {
		list := sections[c]
		sections[c] = append(list[:index:index], list[index+1:]...)
	}), nil
}

// RemoveQuestion removes the single question with tempID. A batch emptied this way
// stays in place.
func (d Document) RemoveQuestion(tempID string) (Document, bool) {
	for _, c := range Categories {
		for bi, b := range d.sections[c] {
			for qi, q := range b.Questions {
				if q.TempID != tempID {
					continue
				}
				return d.transform(func(sections map[Category][]Batch) {
					qs := sections[c][bi].Questions
					sections[c][bi].Questions = append(qs[:qi:qi], qs[qi+1:]...)
				}), true
			}
		}
	}
	return d, false
}

// EditQuestionText replaces the text of one question; marks, order and identity are kept.
func (d Document) EditQuestionText(c Category, batchIndex, questionIndex int, text string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return d, failure.Constraint("paper.edit_text", "question text cannot be empty")
	}
	if err := d.checkPosition("paper.edit_text", c, batchIndex, questionIndex); err != nil {
		return d, err
	}
	return d.transform(func(sections map[Category][]Batch) {
		sections[c][batchIndex].Questions[questionIndex].Text = text
	}), nil
}

// EditOption replaces the text of one MCQ option.
func (d Document) EditOption(batchIndex, questionIndex int, key, text string) (Document, error) {
	if err := d.checkPosition("paper.edit_option", CategoryMCQ, batchIndex, questionIndex); err != nil {
		return d, err
	}
	q := d.sections[CategoryMCQ][batchIndex].Questions[questionIndex]
	pos := -1
	for i, opt := range q.Options {
		if opt.Key == key {
			pos = i
			break
		}
	}
	if pos < 0 {
		return d, failure.NotFound("paper.edit_option", fmt.Sprintf("option %q", key))
	}
	return d.transform(func(sections map[Category][]Batch) {
		sections[CategoryMCQ][batchIndex].Questions[questionIndex].Options[pos].Text = text
	}), nil
}

func (d Document) checkPosition(op string, c Category, batchIndex, questionIndex int) error {
	batches := d.sections[c]
	if batchIndex < 0 || batchIndex >= len(batches) {
		return failure.NotFound(op, fmt.Sprintf("%s batch %d", c, batchIndex+1))
	}
	if questionIndex < 0 || questionIndex >= len(batches[batchIndex].Questions) {
		return failure.NotFound(op, fmt.Sprintf("question %d of %s batch %d", questionIndex+1, c, batchIndex+1))
	}
	return nil
}

// prepare validates a batch for commit and returns the copy that will be stored.
// skip is the index of the batch being replaced in the same category, or -1.
func (d Document) prepare(op string, b Batch, skip int) (Batch, error) {
	if !b.Type.Valid() {
		return Batch{}, failure.Constraint(op, fmt.Sprintf("unknown question type %q", b.Type))
	}
	cfg := b.Config
	if cfg.Total < 1 {
		return Batch{}, failure.Constraint(op, "a batch needs at least one question")
	}
	if len(b.Questions) != cfg.Total {
		return Batch{}, failure.Constraint(op, fmt.Sprintf("select exactly %d questions (selected %d)", cfg.Total, len(b.Questions)))
	}
	if cfg.Attempt < 1 || cfg.Attempt > cfg.Total {
		return Batch{}, failure.Constraint(op, fmt.Sprintf("attempt must be between 1 and %d", cfg.Total))
	}
	if cfg.MarksPerQuestion < 1 {
		return Batch{}, failure.Constraint(op, "marks per question must be positive")
	}
	if cfg.LayoutColumns == 0 {
		cfg.LayoutColumns = 1
	}
	if cfg.LayoutColumns != 1 && cfg.LayoutColumns != 2 {
		return Batch{}, failure.Constraint(op, "layout must be 1 or 2 columns")
	}

	existing := map[string]struct{}{}
	for _, c := range Categories {
		for bi, eb := range d.sections[c] {
			if c == b.Type && bi == skip {
				continue
			}
			for _, q := range eb.Questions {
				existing[q.TempID] = struct{}{}
			}
		}
	}

	out := b.clone()
	out.Config = cfg
	for i := range out.Questions {
		q := &out.Questions[i]
		if q.TempID == "" {
			return Batch{}, failure.Constraint(op, fmt.Sprintf("question %d has no identity", i+1))
		}
		if _, dup := existing[q.TempID]; dup {
			return Batch{}, failure.Constraint(op, fmt.Sprintf("question %q is already on the paper", q.TempID))
		}
		existing[q.TempID] = struct{}{}
		if b.Type == CategoryMCQ && len(q.Options) == 0 {
			return Batch{}, failure.Constraint(op, fmt.Sprintf("multiple choice question %d has no options", i+1))
		}
		q.Category = b.Type
		q.Marks = cfg.MarksPerQuestion
	}
	return out, nil
}

// transform applies fn to a private copy of the sections and recomputes totals.
func (d Document) transform(fn func(map[Category][]Batch)) Document {
	next := make(map[Category][]Batch, len(d.sections))
	for c, batches := range d.sections {
		copied := make([]Batch, len(batches))
		for i, b := range batches {
			copied[i] = b.clone()
		}
		next[c] = copied
	}
	fn(next)
	d.sections = next
	d.totals = RecomputeTotals(next)
	d.Info.TotalMarks = d.totals.Grand
	return d
}
