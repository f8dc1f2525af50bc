package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

func TestDeriveDefaults(t *testing.T) {
	tests := []struct {
		name     string
		category paper.Category
		required int
		want     paper.BatchConfig
	}{
		{"mcq attempts everything", paper.CategoryMCQ, 10, paper.BatchConfig{Total: 10, Attempt: 10, MarksPerQuestion: 1, LayoutColumns: 1}},
		{"short capped at eight", paper.CategoryShort, 12, paper.BatchConfig{Total: 12, Attempt: 8, MarksPerQuestion: 2, LayoutColumns: 1}},
		{"short below cap", paper.CategoryShort, 5, paper.BatchConfig{Total: 5, Attempt: 5, MarksPerQuestion: 2, LayoutColumns: 1}},
		{"long capped at three", paper.CategoryLong, 5, paper.BatchConfig{Total: 5, Attempt: 3, MarksPerQuestion: 5, LayoutColumns: 1}},
		{"long below cap", paper.CategoryLong, 2, paper.BatchConfig{Total: 2, Attempt: 2, MarksPerQuestion: 5, LayoutColumns: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDefaults(tt.category, tt.required))
		})
	}
}

func TestUnpinnedResolverFollowsCategoryAndCount(t *testing.T) {
	r := New(paper.CategoryShort, 10)
	assert.Equal(t, 8, r.Config().Attempt)

	r.SetCategory(paper.CategoryLong)
	assert.Equal(t, paper.BatchConfig{Total: 10, Attempt: 3, MarksPerQuestion: 5, LayoutColumns: 1}, r.Config())

	r.SetRequired(2)
	assert.Equal(t, 2, r.Config().Attempt)
	assert.False(t, r.IsPinned)
}

func TestOverrideKeepsDefaultsFollowingChanges(t *testing.T) {
	r := New(paper.CategoryShort, 10)
	require.NoError(t, r.Override(FieldMarks, 3))
	assert.False(t, r.IsPinned)

	r.SetCategory(paper.CategoryLong)
	assert.Equal(t, paper.BatchConfig{Total: 10, Attempt: 3, MarksPerQuestion: 3, LayoutColumns: 1}, r.Config())

	r.SetRequired(5)
	r.SetRequired(12)
	assert.Equal(t, paper.BatchConfig{Total: 12, Attempt: 3, MarksPerQuestion: 3, LayoutColumns: 1}, r.Config())
}

func TestOverriddenAttemptSurvivesCountChanges(t *testing.T) {
	r := New(paper.CategoryShort, 10)
	require.NoError(t, r.Override(FieldAttempt, 6))
	require.NoError(t, r.Override(FieldLayout, 2))

	r.SetRequired(4)
	assert.Equal(t, paper.BatchConfig{Total: 4, Attempt: 4, MarksPerQuestion: 2, LayoutColumns: 2}, r.Config())

	r.SetRequired(12)
	assert.Equal(t, paper.BatchConfig{Total: 12, Attempt: 6, MarksPerQuestion: 2, LayoutColumns: 2}, r.Config())

	r.SetCategory(paper.CategoryMCQ)
	assert.Equal(t, paper.BatchConfig{Total: 12, Attempt: 12, MarksPerQuestion: 1, LayoutColumns: 1}, r.Config())

	require.NoError(t, r.Override(FieldTotal, 7))
	r.SetCategory(paper.CategoryLong)
	assert.Equal(t, paper.BatchConfig{Total: 7, Attempt: 6, MarksPerQuestion: 5, LayoutColumns: 2}, r.Config())
}

func TestPinnedOverrideDoesNotRederive(t *testing.T) {
	r := Pinned(paper.CategoryShort, paper.BatchConfig{Total: 6, Attempt: 4, MarksPerQuestion: 3, LayoutColumns: 2})
	require.NoError(t, r.Override(FieldAttempt, 5))
	require.NoError(t, r.Override(FieldTotal, 8))
	assert.Equal(t, paper.BatchConfig{Total: 8, Attempt: 5, MarksPerQuestion: 3, LayoutColumns: 2}, r.Config())
	assert.Empty(t, r.Manual)
}

func TestOverrideClampsAttempt(t *testing.T) {
	r := New(paper.CategoryLong, 4)
	require.NoError(t, r.Override(FieldAttempt, 9))
	assert.Equal(t, 4, r.Config().Attempt)

	r.SetRequired(2)
	assert.Equal(t, 2, r.Config().Attempt)
}

func TestOverrideRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		category paper.Category
		field    Field
		value    int
	}{
		{"zero marks", paper.CategoryShort, FieldMarks, 0},
		{"zero attempt", paper.CategoryShort, FieldAttempt, 0},
		{"mcq attempt", paper.CategoryMCQ, FieldAttempt, 3},
		{"three columns", paper.CategoryLong, FieldLayout, 3},
		{"mcq layout", paper.CategoryMCQ, FieldLayout, 2},
		{"zero total", paper.CategoryLong, FieldTotal, 0},
		{"unknown field", paper.CategoryLong, Field("colour"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.category, 5)
			before := r.Config()

			err := r.Override(tt.field, tt.value)
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.KindConstraint))
			assert.Equal(t, before, r.Config())
			assert.False(t, r.IsPinned)
		})
	}
}

func TestPinnedFromExistingBatch(t *testing.T) {
	r := Pinned(paper.CategoryShort, paper.BatchConfig{Total: 6, Attempt: 4, MarksPerQuestion: 3, LayoutColumns: 2})
	assert.Equal(t, paper.BatchConfig{Total: 6, Attempt: 4, MarksPerQuestion: 3, LayoutColumns: 2}, r.Config())

	r.SetRequired(3)
	assert.Equal(t, paper.BatchConfig{Total: 3, Attempt: 3, MarksPerQuestion: 3, LayoutColumns: 2}, r.Config())

	mcq := Pinned(paper.CategoryMCQ, paper.BatchConfig{Total: 5, Attempt: 2, MarksPerQuestion: 1, LayoutColumns: 2})
	assert.Equal(t, 5, mcq.Config().Attempt)
	assert.Equal(t, 1, mcq.Config().LayoutColumns)
}

func TestAttemptNeverExceedsTotal(t *testing.T) {
	for _, c := range paper.Categories {
		for required := 1; required <= 15; required++ {
			r := New(c, required)
			cfg := r.Config()
			assert.LessOrEqual(t, cfg.Attempt, cfg.Total)
			assert.GreaterOrEqual(t, cfg.Attempt, 1)
			if c == paper.CategoryMCQ {
				assert.Equal(t, cfg.Total, cfg.Attempt)
			}
		}
	}
}
