package bank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

func newTestService(src Source) *Service {
	return NewService(src, nil, ServiceOptions{FetchTimeout: time.Second}, zerolog.Nop())
}

func TestServiceResolve(t *testing.T) {
	svc := newTestService(&countingSource{payload: []byte(sampleBank)})

	qs, err := svc.Resolve(context.Background(), Query{Class: "9", Subject: "Physics", Chapters: []string{"Motion"}, Category: paper.CategoryShort})
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestServiceTransportFailure(t *testing.T) {
	svc := newTestService(&countingSource{err: errors.New("dial tcp: connection refused")})

	_, err := svc.Resolve(context.Background(), Query{Class: "9", Subject: "Physics", Chapters: []string{"Motion"}, Category: paper.CategoryShort})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindTransport))
	assert.Equal(t, "service unavailable, please retry", failure.Message(err))
}

func TestServiceMalformedPayload(t *testing.T) {
	svc := newTestService(&countingSource{payload: []byte(`"not a bank"`)})

	_, err := svc.Resolve(context.Background(), Query{Class: "9", Subject: "Physics", Chapters: []string{"Motion"}, Category: paper.CategoryShort})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindUnexpected))
}

func TestServiceRejectsInvalidQueryBeforeFetching(t *testing.T) {
	src := &countingSource{payload: []byte(sampleBank)}
	svc := newTestService(src)

	_, err := svc.Resolve(context.Background(), Query{Class: "9", Subject: "Physics", Category: paper.CategoryShort})
	assert.True(t, failure.Is(err, failure.KindConstraint))
	assert.Equal(t, 0, src.calls)
}

type recordingWarmer struct {
	warmed chan string
	err    error
}

func (w *recordingWarmer) Warm(_ context.Context, class string) error {
	w.warmed <- class
	return w.err
}

func TestPrefetcherWarmsQueuedClasses(t *testing.T) {
	warmer := &recordingWarmer{warmed: make(chan string, 2), err: errors.New("ignored")}
	worker := NewPrefetcher(warmer, 4, zerolog.Nop(), time.Second)
	go worker.Run()
	defer worker.Stop()

	assert.True(t, worker.Enqueue("Class 9"))
	assert.True(t, worker.Enqueue("Class 10"))

	for _, want := range []string{"Class 9", "Class 10"} {
		select {
		case got := <-warmer.warmed:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("class %q was not warmed", want)
		}
	}
}

func TestPrefetcherDropsWhenFull(t *testing.T) {
	worker := NewPrefetcher(&recordingWarmer{warmed: make(chan string, 1)}, 1, zerolog.Nop(), time.Second)

	assert.True(t, worker.Enqueue("9"))
	assert.False(t, worker.Enqueue("10"))
	assert.False(t, worker.Enqueue(""))

	var nilWorker *Prefetcher
	assert.False(t, nilWorker.Enqueue("9"))
}

func TestPrefetcherStopIsRepeatable(t *testing.T) {
	worker := NewPrefetcher(&recordingWarmer{warmed: make(chan string, 1)}, 1, zerolog.Nop(), time.Second)
	done := make(chan struct{})
	go func() {
		worker.Run()
		close(done)
	}()

	assert.NotPanics(t, func() {
		worker.Stop()
		worker.Stop()
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("prefetcher did not stop")
	}
}
