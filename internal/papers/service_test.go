package papers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/db/model"
	"github.com/gokatarajesh/paper-builder/internal/db/repository"
	"github.com/gokatarajesh/paper-builder/internal/db/sqlitestore"
	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

type failingStore struct {
	mock.Mock
}

func (m *failingStore) InsertPaper(ctx context.Context, arg model.InsertPaperParams) (model.Paper, error) {
	args := m.Called(ctx, arg)
	return model.Paper{}, args.Error(0)
}

func (m *failingStore) GetPaper(ctx context.Context, paperID uuid.UUID) (model.Paper, error) {
	args := m.Called(ctx, paperID)
	return model.Paper{}, args.Error(0)
}

func (m *failingStore) UpdatePaper(ctx context.Context, arg model.UpdatePaperParams) (model.Paper, error) {
	args := m.Called(ctx, arg)
	return model.Paper{}, args.Error(0)
}

func (m *failingStore) DeletePaper(ctx context.Context, arg model.DeletePaperParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *failingStore) ListPapersByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PaperSummary, error) {
	args := m.Called(ctx, ownerID)
	return nil, args.Error(0)
}

func shortBatch(prefix string, n, attempt int) paper.Batch {
	qs := make([]paper.Question, n)
	for i := range qs {
		qs[i] = paper.Question{TempID: fmt.Sprintf("%s-%d", prefix, i), Text: fmt.Sprintf("Explain %s %d", prefix, i)}
	}
	return paper.Batch{
		Type:      paper.CategoryShort,
		Config:    paper.BatchConfig{Total: n, Attempt: attempt, MarksPerQuestion: 2, LayoutColumns: 1},
		Questions: qs,
	}
}

func sampleDoc(t *testing.T) paper.Document {
	t.Helper()
	doc := paper.New("", paper.Info{Class: "Class 9", Subject: "Physics"}, paper.Style{})
	doc, err := doc.AddBatch(shortBatch("s", 5, 4))
	require.NoError(t, err)
	return doc.WithPaperName("Unit test")
}

// sqliteService returns a gateway backed by an in-memory database and two staff sessions.
func sqliteService(t *testing.T) (*Service, auth.Session, auth.Session) {
	t.Helper()
	store, err := sqlitestore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	staffRepo := repository.NewStaffRepository(store)
	var sessions []auth.Session
	for _, email := range []string{"owner@school.edu", "other@school.edu"} {
		st, err := staffRepo.Create(context.Background(), model.CreateStaffParams{Email: email, PasswordHash: "x", DisplayName: email})
		require.NoError(t, err)
		sessions = append(sessions, auth.Session{StaffID: st.StaffID, DisplayName: st.DisplayName})
	}
	return NewService(repository.NewPaperRepository(store), nil, zerolog.Nop()), sessions[0], sessions[1]
}

func TestCreateGetRoundTrip(t *testing.T) {
	svc, owner, _ := sqliteService(t)
	ctx := context.Background()
	doc := sampleDoc(t)

	id, err := svc.Create(ctx, owner, doc)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := svc.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, doc.Totals(), loaded.Totals())
	assert.Equal(t, doc.Batches(paper.CategoryShort), loaded.Batches(paper.CategoryShort))
	assert.Equal(t, "Unit test", loaded.PaperName)
}

func TestZeroQuestionDocumentNeverReachesStore(t *testing.T) {
	store := new(failingStore)
	svc := NewService(repository.NewPaperRepository(store), nil, zerolog.Nop())
	session := auth.Session{StaffID: uuid.New()}
	empty := paper.New("", paper.Info{Class: "9"}, paper.Style{})

	_, err := svc.Create(context.Background(), session, empty)
	assert.True(t, failure.Is(err, failure.KindConstraint))

	_, err = svc.Update(context.Background(), session, uuid.NewString(), empty)
	assert.True(t, failure.Is(err, failure.KindConstraint))

	store.AssertNotCalled(t, "InsertPaper", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpdatePaper", mock.Anything, mock.Anything)
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, owner, other := sqliteService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, owner, sampleDoc(t))
	require.NoError(t, err)

	_, err = svc.Get(ctx, other, id)
	assert.True(t, failure.Is(err, failure.KindNotFound))

	_, err = svc.Update(ctx, other, id, sampleDoc(t))
	assert.True(t, failure.Is(err, failure.KindNotFound))

	err = svc.Delete(ctx, other, id)
	assert.True(t, failure.Is(err, failure.KindNotFound))

	list, err := svc.ListByOwner(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Summary{ID: id, PaperName: "Unit test", Class: "Class 9", Subject: "Physics", TotalMarks: 10, UpdatedAt: list[0].UpdatedAt}, list[0])
}

func TestUpdateReplacesWholeDocument(t *testing.T) {
	svc, owner, _ := sqliteService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, owner, sampleDoc(t))
	require.NoError(t, err)

	next, err := sampleDoc(t).AddBatch(shortBatch("t", 3, 3))
	require.NoError(t, err)
	saved, err := svc.Update(ctx, owner, id, next)
	require.NoError(t, err)
	assert.Equal(t, 16, saved.Totals().Grand)

	loaded, err := svc.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Len(t, loaded.Batches(paper.CategoryShort), 2)

	require.NoError(t, svc.Delete(ctx, owner, id))
	_, err = svc.Get(ctx, owner, id)
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestPutIsIdempotentPerOwner(t *testing.T) {
	svc, owner, other := sqliteService(t)
	ctx := context.Background()
	id := uuid.NewString()

	first, err := svc.Put(ctx, owner, id, sampleDoc(t))
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	next, err := sampleDoc(t).AddBatch(shortBatch("t", 3, 3))
	require.NoError(t, err)
	again, err := svc.Put(ctx, owner, id, next)
	require.NoError(t, err)
	assert.Equal(t, 16, again.Totals().Grand)

	list, err := svc.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 16, list[0].TotalMarks)

	_, err = svc.Put(ctx, other, id, sampleDoc(t))
	assert.True(t, failure.Is(err, failure.KindNotFound))
	loaded, err := svc.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, 16, loaded.Totals().Grand, "another owner cannot overwrite")

	_, err = svc.Put(ctx, owner, "not-a-uuid", sampleDoc(t))
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestStoreFailuresAreTransport(t *testing.T) {
	store := new(failingStore)
	svc := NewService(repository.NewPaperRepository(store), nil, zerolog.Nop())
	session := auth.Session{StaffID: uuid.New()}
	down := errors.New("connection refused")

	store.On("InsertPaper", mock.Anything, mock.Anything).Return(down)
	store.On("GetPaper", mock.Anything, mock.Anything).Return(model.ErrNotFound)
	store.On("ListPapersByOwner", mock.Anything, session.StaffID).Return(down)

	_, err := svc.Create(context.Background(), session, sampleDoc(t))
	assert.True(t, failure.Is(err, failure.KindTransport))
	assert.ErrorIs(t, err, down)

	_, err = svc.Get(context.Background(), session, uuid.NewString())
	assert.True(t, failure.Is(err, failure.KindNotFound))

	_, err = svc.Get(context.Background(), session, "not-a-uuid")
	assert.True(t, failure.Is(err, failure.KindNotFound))

	_, err = svc.ListByOwner(context.Background(), session)
	assert.True(t, failure.Is(err, failure.KindTransport))

	_, err = svc.ListByOwner(context.Background(), auth.Session{})
	assert.True(t, failure.Is(err, failure.KindConstraint))
}

func TestHTTPCreateAndGet(t *testing.T) {
	svc, owner, _ := sqliteService(t)
	h := NewHTTPHandler(svc, zerolog.Nop())
	mux := http.NewServeMux()
	withOwner := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), owner)))
		})
	}
	h.Register(mux, withOwner)

	body, err := json.Marshal(sampleDoc(t))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/papers", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/papers/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Totals paper.Totals        `json:"totals"`
		Notes  []paper.SectionNote `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 10, view.Totals.Grand)
	require.Len(t, view.Notes, 1)
	assert.Equal(t, "Attempt any 4 questions out of 5", view.Notes[0].Note)

	empty, err := json.Marshal(paper.New("", paper.Info{}, paper.Style{}))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/papers", bytes.NewReader(empty)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/papers/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
