package sqlitestore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/paper-builder/internal/db/model"
	"github.com/gokatarajesh/paper-builder/internal/db/repository"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

type tickingClock struct {
	t time.Time
}

func (c *tickingClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	clock := &tickingClock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
	store.now = clock.now
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createStaff(t *testing.T, store *Store, email string) model.Staff {
	t.Helper()
	st, err := store.CreateStaff(context.Background(), model.CreateStaffParams{
		StaffID:      uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "Teacher",
		Institution:  "City School",
	})
	require.NoError(t, err)
	return st
}

func TestStaffLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	st := createStaff(t, store, "a@school.edu")
	assert.Nil(t, st.LastLoginAt)

	byEmail, err := store.GetStaffByEmail(ctx, "a@school.edu")
	require.NoError(t, err)
	assert.Equal(t, st.StaffID, byEmail.StaffID)
	assert.Equal(t, "City School", byEmail.Institution)

	require.NoError(t, store.UpdateStaffLogin(ctx, st.StaffID))
	byID, err := store.GetStaffByID(ctx, st.StaffID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLoginAt)

	_, err = store.CreateStaff(ctx, model.CreateStaffParams{StaffID: uuid.New(), Email: "a@school.edu", PasswordHash: "x", DisplayName: "Dup"})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = store.GetStaffByEmail(ctx, "missing@school.edu")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPaperLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	owner := createStaff(t, store, "owner@school.edu")
	other := createStaff(t, store, "other@school.edu")

	id := uuid.New()
	inserted, err := store.InsertPaper(ctx, model.InsertPaperParams{
		PaperID: id, OwnerID: owner.StaffID, PaperName: "Mid term", ClassName: "9", SubjectName: "Physics",
		TotalMarks: 26, Document: []byte(`{"batches":[]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, id, inserted.PaperID)
	assert.Equal(t, owner.StaffID, inserted.OwnerID)
	assert.JSONEq(t, `{"batches":[]}`, string(inserted.Document))

	_, err = store.UpdatePaper(ctx, model.UpdatePaperParams{PaperID: id, OwnerID: other.StaffID, PaperName: "Hijack", Document: []byte(`{}`)})
	assert.ErrorIs(t, err, model.ErrNotFound)

	updated, err := store.UpdatePaper(ctx, model.UpdatePaperParams{
		PaperID: id, OwnerID: owner.StaffID, PaperName: "Final", ClassName: "9", SubjectName: "Physics",
		TotalMarks: 30, Document: []byte(`{"batches":[1]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.PaperName)
	assert.Equal(t, int32(30), updated.TotalMarks)
	assert.True(t, updated.UpdatedAt.After(inserted.UpdatedAt))

	assert.ErrorIs(t, store.DeletePaper(ctx, model.DeletePaperParams{PaperID: id, OwnerID: other.StaffID}), model.ErrNotFound)
	require.NoError(t, store.DeletePaper(ctx, model.DeletePaperParams{PaperID: id, OwnerID: owner.StaffID}))

	_, err = store.GetPaper(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListPapersByOwnerNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	owner := createStaff(t, store, "owner@school.edu")
	other := createStaff(t, store, "other@school.edu")

	var ids []uuid.UUID
	for _, name := range []string{"First", "Second", "Third"} {
		id := uuid.New()
		ids = append(ids, id)
		_, err := store.InsertPaper(ctx, model.InsertPaperParams{PaperID: id, OwnerID: owner.StaffID, PaperName: name, Document: []byte(`{}`)})
		require.NoError(t, err)
	}
	_, err := store.InsertPaper(ctx, model.InsertPaperParams{PaperID: uuid.New(), OwnerID: other.StaffID, PaperName: "Not mine", Document: []byte(`{}`)})
	require.NoError(t, err)

	list, err := store.ListPapersByOwner(ctx, owner.StaffID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Third", "Second", "First"}, []string{list[0].PaperName, list[1].PaperName, list[2].PaperName})
	assert.Equal(t, ids[2], list[0].PaperID)

	empty, err := store.ListPapersByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryRoundTripThroughSQLite(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	owner := createStaff(t, store, "owner@school.edu")
	repo := repository.NewPaperRepository(store)

	mcq := func(prefix string) []paper.Question {
		qs := make([]paper.Question, 5)
		for i := range qs {
			qs[i] = paper.Question{
				TempID:  prefix + string(rune('a'+i)),
				Text:    "Pick one " + prefix + string(rune('a'+i)),
				Options: paper.Options{{Key: "c", Text: "third"}, {Key: "a", Text: "first"}},
			}
		}
		return qs
	}
	short := make([]paper.Question, 10)
	for i := range short {
		short[i] = paper.Question{TempID: "s" + string(rune('a'+i)), Text: "Short " + string(rune('a'+i))}
	}

	doc := paper.New("", paper.Info{Class: "Class 9", Subject: "Physics", Date: "2026-03-01", Time: "3h"}, paper.Style{FontFamily: "Georgia", ShortColumns: 2})
	var err error
	doc, err = doc.AddBatch(paper.Batch{Type: paper.CategoryMCQ, Config: paper.BatchConfig{Total: 5, Attempt: 5, MarksPerQuestion: 1}, Questions: mcq("m")})
	require.NoError(t, err)
	doc, err = doc.AddBatch(paper.Batch{Type: paper.CategoryMCQ, Config: paper.BatchConfig{Total: 5, Attempt: 5, MarksPerQuestion: 1}, Questions: mcq("n")})
	require.NoError(t, err)
	doc, err = doc.AddBatch(paper.Batch{Type: paper.CategoryShort, Config: paper.BatchConfig{Total: 10, Attempt: 8, MarksPerQuestion: 2, LayoutColumns: 2}, Questions: short})
	require.NoError(t, err)
	require.Equal(t, 26, doc.Totals().Grand)

	created, err := repo.Create(ctx, owner.StaffID, doc)
	require.NoError(t, err)

	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	loaded, err := repo.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 26, loaded.Totals().Grand)
	assert.Equal(t, doc.Info, loaded.Info)
	assert.Equal(t, doc.Style, loaded.Style)
	assert.Equal(t, owner.StaffID.String(), loaded.OwnerID)
	for _, c := range paper.Categories {
		assert.Equal(t, doc.Batches(c), loaded.Batches(c), c)
	}
	assert.Equal(t, []paper.SectionNote{{Category: paper.CategoryShort, BatchIndex: 0, Note: "Attempt any 8 questions out of 10"}}, loaded.SectionNotes())

	summaries, err := repo.ListByOwner(ctx, owner.StaffID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int32(26), summaries[0].TotalMarks)
	assert.Equal(t, "Class 9", summaries[0].ClassName)
}
