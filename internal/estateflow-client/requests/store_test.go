package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, b Backend) *Store {
	t.Helper()
	n := 0
	return NewStore(b,
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string { n++; return fmt.Sprintf("req-%d", n) }),
	)
}

func stored(t *testing.T, b Backend) []Request {
	t.Helper()
	raw, err := b.Load(context.Background())
	require.NoError(t, err)
	var out []Request
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSeed(t *testing.T) {
	seed, err := Seed()
	require.NoError(t, err)
	require.Len(t, seed, 7)
	assert.Equal(t, "sitamarhi", seed[0].ID)
	assert.Equal(t, StatusPending, seed[5].Status)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), seed[0].CreatedAt)
}

func TestLoad_SeedsEmptyBackendAndPersists(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)

	require.NoError(t, s.Load(context.Background()))

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 7)
	assert.Len(t, stored(t, b), 7)
}

func TestLoad_KeepsStoredData(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Save(context.Background(), []byte(`[{"id":"x","property":"Solo","status":"Open","createdAt":"2024-02-01T00:00:00.000Z"}]`)))
	s := newTestStore(t, b)

	require.NoError(t, s.Load(context.Background()))
	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Solo", all[0].Property)
}

func TestLoad_CorruptDocumentIsReseeded(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Save(context.Background(), []byte(`{not json`)))
	s := newTestStore(t, b)

	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, stored(t, b), 7)
}

func TestAdd_PrependsWithDefaults(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	ctx := context.Background()

	r, err := s.Add(ctx, Draft{Property: "Villa", LoanAmount: 1.5, Months: 12})
	require.NoError(t, err)

	assert.Equal(t, "req-1", r.ID)
	assert.Equal(t, StatusOpen, r.Status)
	assert.Equal(t, 0, r.ProofSubmitted)
	assert.Equal(t, 6, r.TotalProofs)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Equal(t, fmt.Sprintf("blockchain_%d", fixedNow.UnixMilli()), r.BlockchainID)

	persisted := stored(t, b)
	require.Len(t, persisted, 8)
	assert.Equal(t, "req-1", persisted[0].ID)
}

func TestAdd_KeepsGivenBlockchainID(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend())

	r, err := s.Add(context.Background(), Draft{Property: "Loft", BlockchainID: "42", TxHash: "0xabc", LocalEcho: true})
	require.NoError(t, err)
	assert.Equal(t, "42", r.BlockchainID)
	assert.Equal(t, "0xabc", r.TxHash)
	assert.True(t, r.LocalEcho)
}

func TestUpdate_MergesPatch(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	ctx := context.Background()

	status := StatusCompleted
	proofs := 6
	r, err := s.Update(ctx, "goa", Patch{Status: &status, ProofSubmitted: &proofs})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 6, r.ProofSubmitted)
	assert.Equal(t, "Goa", r.Property)

	got, err := s.Get(ctx, "goa")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	for _, p := range stored(t, b) {
		if p.ID == "goa" {
			assert.Equal(t, StatusCompleted, p.Status)
		}
	}
}

func TestUpdate_Errors(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend())
	ctx := context.Background()

	_, err := s.Update(ctx, "missing", Patch{})
	assert.ErrorIs(t, err, ErrRequestNotFound)

	bad := Status("Archived")
	_, err = s.Update(ctx, "goa", Patch{Status: &bad})
	assert.Error(t, err)
}

func TestDelete_Idempotent(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "goa"))
	require.NoError(t, s.Delete(ctx, "goa"))

	_, err := s.Get(ctx, "goa")
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.Len(t, stored(t, b), 6)
}

func TestQueriesAndStats(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend())
	ctx := context.Background()

	open, err := s.Open(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 6)

	pending, err := s.ByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p5", pending[0].ID)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, st.Total)
	assert.Equal(t, 6, st.Open)
	assert.Equal(t, 1, st.Pending)
	assert.InDelta(t, 1644995.0, st.TotalValue, 0.001)
}

func TestClearThenRefreshReseeds(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	ctx := context.Background()
	_, err := s.Add(ctx, Draft{Property: "Villa"})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Refresh(ctx))
	all, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestReset(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "goa"))

	require.NoError(t, s.Reset(ctx))
	_, err := s.Get(ctx, "goa")
	require.NoError(t, err)
	assert.Len(t, stored(t, b), 7)
}

func TestRefresh_SeesExternalWrites(t *testing.T) {
	b := NewMemoryBackend()
	a := newTestStore(t, b)
	other := newTestStore(t, b)
	ctx := context.Background()
	require.NoError(t, a.Load(ctx))

	_, err := other.Add(ctx, Draft{Property: "Elsewhere"})
	require.NoError(t, err)

	require.NoError(t, a.Refresh(ctx))
	all, err := a.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", all[0].Property)
}

func TestInspect(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	ctx := context.Background()

	in, err := s.Inspect(ctx)
	require.NoError(t, err)
	assert.False(t, in.Present)
	assert.Equal(t, "memory", in.Backend)

	require.NoError(t, s.Load(ctx))
	in, err = s.Inspect(ctx)
	require.NoError(t, err)
	assert.True(t, in.Present)
	assert.True(t, in.Valid)
	assert.Equal(t, 7, in.Count)
	assert.Equal(t, ImageRef{Property: "Sitamarhi", Image: "/properties/1.png"}, in.Images[0])
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "estate-flow-requests.json")
	b := NewFileBackend(path)
	ctx := context.Background()

	_, err := b.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	s := newTestStore(t, b)
	_, err = s.Add(ctx, Draft{Property: "Villa"})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := newTestStore(t, NewFileBackend(path))
	all, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 8)
	assert.Equal(t, "Villa", all[0].Property)

	require.NoError(t, b.Remove(ctx))
	require.NoError(t, b.Remove(ctx))
}
