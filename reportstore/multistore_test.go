package reportstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStore is a scriptable backend for fallback tests.
type stubStore struct {
	name      string
	available bool
	data      map[interfaces.ContentID][]byte
	fetchErr  error
	storeErr  error
}

func newStubStore(name string, available bool) *stubStore {
	return &stubStore{
		name:      name,
		available: available,
		data:      map[interfaces.ContentID][]byte{},
	}
}

func (s *stubStore) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	data, ok := s.data[id]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	return data, nil
}

func (s *stubStore) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	if s.storeErr != nil {
		return id, s.storeErr
	}
	s.data[id] = data
	return id, nil
}

func (s *stubStore) Available(ctx context.Context) bool { return s.available }
func (s *stubStore) Name() string                       { return s.name }
func (s *stubStore) LocationURI() string                { return "stub://" + s.name }

func TestMultiStoreFetchFallsBack(t *testing.T) {
	ctx := context.Background()
	report := []byte(`{"summary":"no critical findings"}`)
	id := interfaces.ComputeID(report)

	down := newStubStore("down", false)
	failing := newStubStore("failing", true)
	failing.fetchErr = errors.New("timeout")
	holding := newStubStore("holding", true)
	holding.data[id] = report

	multi := NewMultiStore([]interfaces.ReportStorage{down, failing, holding}, testLogger())

	data, err := multi.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, report, data)
}

func TestMultiStoreFetchAggregatesFailures(t *testing.T) {
	ctx := context.Background()

	failing := newStubStore("failing", true)
	failing.fetchErr = errors.New("timeout")
	empty := newStubStore("empty", true)

	multi := NewMultiStore([]interfaces.ReportStorage{failing, empty}, testLogger())

	_, err := multi.Fetch(ctx, interfaces.ComputeID([]byte("missing")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.Contains(t, err.Error(), "empty")
}

func TestMultiStoreStoreWritesAllAvailable(t *testing.T) {
	ctx := context.Background()
	report := []byte("report body")

	first := newStubStore("first", true)
	down := newStubStore("down", false)
	second := newStubStore("second", true)

	multi := NewMultiStore([]interfaces.ReportStorage{first, down, second}, testLogger())

	id, err := multi.Store(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(report), id)
	assert.Contains(t, first.data, id)
	assert.Contains(t, second.data, id)
	assert.NotContains(t, down.data, id)
}

func TestMultiStoreStoreFailsWhenAllFail(t *testing.T) {
	ctx := context.Background()

	failing := newStubStore("failing", true)
	failing.storeErr = errors.New("read-only")

	multi := NewMultiStore([]interfaces.ReportStorage{failing}, testLogger())

	_, err := multi.Store(ctx, []byte("report"))
	assert.Error(t, err)
}

func TestMultiStoreAvailable(t *testing.T) {
	ctx := context.Background()

	multi := NewMultiStore([]interfaces.ReportStorage{newStubStore("down", false)}, testLogger())
	assert.False(t, multi.Available(ctx))

	multi = NewMultiStore([]interfaces.ReportStorage{newStubStore("down", false), newStubStore("up", true)}, testLogger())
	assert.True(t, multi.Available(ctx))
}
