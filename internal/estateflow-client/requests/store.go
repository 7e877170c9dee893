// Package requests is the local request cache. It is advisory: authoritative state lives
// on-chain, nothing here is reconciled against it, and concurrent writers sharing a
// backend key are last-write-wins.
package requests

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/metrics"
)

var ErrRequestNotFound = errors.New("request not found")

type Store struct {
	backend Backend
	now     func() time.Time
	newID   func() string

	mu     sync.RWMutex
	items  []Request
	loaded bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Backend() Backend { return s.backend }

// Load reads the backend. A missing, empty or unreadable document is replaced by the seed
// catalog, which is persisted right away.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Refresh discards the in-memory copy and reads the backend again.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	items, err := s.read(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		seed, err := Seed()
		if err != nil {
			return err
		}
		log.Info("request cache empty, using seed catalog", "backend", s.backend.Name(), "count", len(seed))
		items = seed
		s.items = items
		s.loaded = true
		return s.writeLocked(ctx)
	}

	s.items = items
	s.loaded = true
	metrics.CachedRequests.Set(float64(len(items)))
	return nil
}

func (s *Store) read(ctx context.Context) ([]Request, error) {
	raw, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Request
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Error("stored requests unreadable, reseeding", "backend", s.backend.Name(), "error", err)
		return nil, nil
	}
	return items, nil
}

func (s *Store) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.loadLocked(ctx)
}

func (s *Store) writeLocked(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return errors.Wrap(err, "encode requests")
	}
	metrics.CachedRequests.Set(float64(len(s.items)))
	if err := s.backend.Save(ctx, data); err != nil {
		metrics.StoreWriteErrors.WithLabelValues(s.backend.Name()).Inc()
		log.Error("failed to persist requests", "backend", s.backend.Name(), "error", err)
		return err
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	return append([]Request(nil), s.items...), nil
}

func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return Request{}, err
	}
	for _, r := range s.items {
		if r.ID == id {
			return r, nil
		}
	}
	return Request{}, errors.Wrapf(ErrRequestNotFound, "%q", id)
}

// Add prepends a new Open request with no proofs submitted.
func (s *Store) Add(ctx context.Context, d Draft) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return Request{}, err
	}

	now := s.now()
	r := Request{
		ID:              s.newID(),
		Property:        d.Property,
		Rate:            d.Rate,
		Months:          d.Months,
		Status:          StatusOpen,
		ProofSubmitted:  0,
		TotalProofs:     d.TotalProofs,
		LoanAmount:      d.LoanAmount,
		Image:           d.Image,
		Description:     d.Description,
		CollateralType:  d.CollateralType,
		YieldPreference: d.YieldPreference,
		CreatedAt:       now.UTC(),
		Creator:         d.Creator,
		TxHash:          d.TxHash,
		BlockchainID:    d.BlockchainID,
		LocalEcho:       d.LocalEcho,
	}
	if r.BlockchainID == "" {
		r.BlockchainID = constants.BlockchainIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if r.TotalProofs == 0 {
		r.TotalProofs = constants.DefaultTotalProofs
	}

	s.items = append([]Request{r}, s.items...)
	if err := s.writeLocked(ctx); err != nil {
		return r, err
	}
	log.Info("request cached", "id", r.ID, "property", r.Property, "blockchainId", r.BlockchainID)
	return r, nil
}

func (s *Store) Update(ctx context.Context, id string, p Patch) (Request, error) {
	if err := p.Validate(); err != nil {
		return Request{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return Request{}, err
	}

	for i, r := range s.items {
		if r.ID != id {
			continue
		}
		updated := p.apply(r)
		s.items[i] = updated
		return updated, s.writeLocked(ctx)
	}
	return Request{}, errors.Wrapf(ErrRequestNotFound, "%q", id)
}

// Delete removes id; deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	kept := s.items[:0:0]
	for _, r := range s.items {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.items) {
		return nil
	}
	s.items = kept
	return s.writeLocked(ctx)
}

func (s *Store) ByStatus(ctx context.Context, status Status) ([]Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(all))
	for _, r := range all {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Open(ctx context.Context) ([]Request, error) {
	return s.ByStatus(ctx, StatusOpen)
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	all, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, r := range all {
		st.Total++
		st.TotalValue += r.LoanAmount
		switch r.Status {
		case StatusOpen:
			st.Open++
		case StatusPending:
			st.Pending++
		case StatusCompleted:
			st.Completed++
		case StatusRejected:
			st.Rejected++
		}
	}
	return st, nil
}

// Reset drops the stored document and writes the seed catalog.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx); err != nil {
		return err
	}
	seed, err := Seed()
	if err != nil {
		return err
	}
	s.items = seed
	s.loaded = true
	log.Info("request cache reset to seed catalog", "backend", s.backend.Name())
	return s.writeLocked(ctx)
}

// Clear drops the stored document and empties the in-memory list. The next Load seeds again.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx); err != nil {
		return err
	}
	s.items = []Request{}
	s.loaded = true
	metrics.CachedRequests.Set(0)
	log.Info("request cache cleared", "backend", s.backend.Name())
	return nil
}

// Inspect reports what the backend currently holds, without touching the in-memory list.
func (s *Store) Inspect(ctx context.Context) (Inspection, error) {
	out := Inspection{Backend: s.backend.Name(), Key: s.backend.Key()}

	raw, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Present = true
	out.Raw = string(raw)

	var items []Request
	if err := json.Unmarshal(raw, &items); err != nil {
		return out, nil
	}
	out.Valid = true
	out.Count = len(items)
	for _, r := range items {
		out.Images = append(out.Images, ImageRef{Property: r.Property, Image: r.Image})
	}
	return out, nil
}
