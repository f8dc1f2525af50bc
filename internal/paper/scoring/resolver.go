package scoring

import (
	"fmt"

	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

// Field names a manually overridable part of a batch config.
type Field string

const (
	FieldMarks   Field = "marks"
	FieldAttempt Field = "attempt"
	FieldLayout  Field = "layout"
	FieldTotal   Field = "total"
)

// Choice caps: how many questions a student answers by default.
const (
	DefaultShortAttempt = 8
	DefaultLongAttempt  = 3
)

// DeriveDefaults returns the starting config for a category and requested count.
// MCQ sections are always attempted in full.
func DeriveDefaults(c paper.Category, required int) paper.BatchConfig {
	cfg := paper.BatchConfig{
		Total:            required,
		Attempt:          required,
		MarksPerQuestion: c.DefaultMarks(),
		LayoutColumns:    1,
	}
	switch c {
	case paper.CategoryShort:
		cfg.Attempt = min(DefaultShortAttempt, required)
	case paper.CategoryLong:
		cfg.Attempt = min(DefaultLongAttempt, required)
	}
	return cfg
}

// Resolver tracks the config of the batch being built. Category and count changes
// re-derive the defaults, keeping any field the user overrode. A resolver pinned
// from an existing batch keeps its stored config instead.
type Resolver struct {
	Category paper.Category    `json:"category"`
	Current  paper.BatchConfig `json:"config"`
	IsPinned bool              `json:"pinned"`
	Manual   map[Field]int     `json:"manual,omitempty"`
}

// New starts an unpinned resolver.
func New(c paper.Category, required int) *Resolver {
	return &Resolver{Category: c, Current: DeriveDefaults(c, required)}
}

// Pinned starts from a stored config, as when re-opening a batch for edit.
func Pinned(c paper.Category, existing paper.BatchConfig) *Resolver {
	r := &Resolver{Category: c, Current: existing, IsPinned: true}
	r.clamp()
	return r
}

// Config returns the current config.
func (r *Resolver) Config() paper.BatchConfig {
	return r.Current
}

// SetCategory switches the category; defaults are re-derived unless pinned.
func (r *Resolver) SetCategory(c paper.Category) {
	r.Category = c
	if !r.IsPinned {
		r.derive(r.Current.Total)
	}
	r.clamp()
}

// SetRequired changes the requested count; defaults are re-derived unless pinned.
func (r *Resolver) SetRequired(required int) {
	if r.IsPinned {
		r.Current.Total = required
	} else {
		r.derive(required)
	}
	r.clamp()
}

// derive recomputes the defaults for required and lays the manual values over them.
func (r *Resolver) derive(required int) {
	next := DeriveDefaults(r.Category, required)
	if v, ok := r.Manual[FieldMarks]; ok {
		next.MarksPerQuestion = v
	}
	if r.Category != paper.CategoryMCQ {
		if v, ok := r.Manual[FieldAttempt]; ok {
			next.Attempt = v
		}
		if v, ok := r.Manual[FieldLayout]; ok {
			next.LayoutColumns = v
		}
	}
	r.Current = next
}

// Override applies a manual change. Unless pinned, the value is remembered and
// survives later category and count changes. Attempt values above the total are
// clamped, not rejected.
func (r *Resolver) Override(field Field, value int) error {
	const op = "scoring.override"
	next := r.Current
	switch field {
	case FieldMarks:
		if value < 1 {
			return failure.Constraint(op, "marks per question must be positive")
		}
		next.MarksPerQuestion = value
	case FieldAttempt:
		if r.Category == paper.CategoryMCQ {
			return failure.Constraint(op, "multiple choice sections are attempted in full")
		}
		if value < 1 {
			return failure.Constraint(op, "attempt must be at least 1")
		}
		next.Attempt = value
	case FieldLayout:
		if r.Category == paper.CategoryMCQ {
			return failure.Constraint(op, "layout columns apply to short and long questions only")
		}
		if value != 1 && value != 2 {
			return failure.Constraint(op, "layout must be 1 or 2 columns")
		}
		next.LayoutColumns = value
	case FieldTotal:
		if value < 1 {
			return failure.Constraint(op, "a batch needs at least one question")
		}
		next.Total = value
	default:
		return failure.Constraint(op, fmt.Sprintf("unknown config field %q", field))
	}
	if r.IsPinned {
		r.Current = next
		r.clamp()
		return nil
	}
	if field == FieldTotal {
		r.derive(value)
	} else {
		if r.Manual == nil {
			r.Manual = make(map[Field]int)
		}
		r.Manual[field] = value
		r.derive(next.Total)
	}
	r.clamp()
	return nil
}

func (r *Resolver) clamp() {
	if r.Category == paper.CategoryMCQ {
		r.Current.LayoutColumns = 1
		r.Current.Attempt = r.Current.Total
	}
	if r.Current.Attempt > r.Current.Total {
		r.Current.Attempt = r.Current.Total
	}
}
