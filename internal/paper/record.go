package paper

import (
	"encoding/json"
	"fmt"
)

// Record is the persisted shape of a paper. Batches are stored flat, in section order.
type Record struct {
	ID        string  `json:"id,omitempty"`
	OwnerID   string  `json:"ownerId"`
	PaperName string  `json:"paperName"`
	Batches   []Batch `json:"batches"`
	Info      Info    `json:"info"`
	Style     Style   `json:"style"`
}

// Record flattens the document for storage.
func (d Document) Record() Record {
	rec := Record{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		PaperName: d.PaperName,
		Batches:   []Batch{},
		Info:      d.Info,
		Style:     d.Style,
	}
	rec.Info.TotalMarks = d.totals.Grand
	for _, c := range Categories {
		rec.Batches = append(rec.Batches, d.Batches(c)...)
	}
	return rec
}

// FromRecord rebuilds a document from storage. Batches may arrive mixed; they are
// partitioned by their stored type (or their first question's type when the batch
// has none). Entries without a usable tempId get a fresh one.
func FromRecord(rec Record) (Document, error) {
	d := Document{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		PaperName: rec.PaperName,
		Info:      rec.Info,
		Style:     rec.Style,
	}
	sections := map[Category][]Batch{}
	seen := map[string]struct{}{}

	for bi, raw := range rec.Batches {
		c, err := batchCategory(raw)
		if err != nil {
			return Document{}, fmt.Errorf("batch %d: %w", bi+1, err)
		}
		b := raw.clone()
		b.Type = c
		b.Config = normaliseConfig(c, b.Config, len(b.Questions))
		for qi := range b.Questions {
			q := &b.Questions[qi]
			q.Category = c
			if _, dup := seen[q.TempID]; q.TempID == "" || dup {
				q.TempID = NewTempID(c, qi)
			}
			seen[q.TempID] = struct{}{}
			if q.Marks < 1 {
				q.Marks = b.Config.MarksPerQuestion
			}
		}
		sections[c] = append(sections[c], b)
	}

	d.sections = sections
	d.totals = RecomputeTotals(sections)
	d.Info.TotalMarks = d.totals.Grand
	return d, nil
}

func batchCategory(b Batch) (Category, error) {
	if c, err := ParseCategory(string(b.Type)); err == nil {
		return c, nil
	}
	if len(b.Questions) > 0 {
		if c, err := ParseCategory(string(b.Questions[0].Category)); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown question type %q", b.Type)
}

func normaliseConfig(c Category, cfg BatchConfig, count int) BatchConfig {
	if cfg.Total < 1 {
		cfg.Total = count
	}
	if cfg.MarksPerQuestion < 1 {
		cfg.MarksPerQuestion = c.DefaultMarks()
	}
	if cfg.Attempt < 1 || cfg.Attempt > cfg.Total {
		cfg.Attempt = cfg.Total
	}
	if cfg.LayoutColumns != 2 {
		cfg.LayoutColumns = 1
	}
	return cfg
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Record())
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	doc, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
