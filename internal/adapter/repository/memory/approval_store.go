package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codit04/cypherd/internal/domain"
)

// ApprovalStore keeps pending approvals in process memory.
// A single mutex guards the map, so Consume is an atomic get-and-delete.
type ApprovalStore struct {
	mu        sync.Mutex
	approvals map[string]*domain.PendingApproval
	now       func() time.Time
	newID     func() string
}

// ApprovalStoreOption configures an ApprovalStore.
type ApprovalStoreOption func(*ApprovalStore)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) ApprovalStoreOption {
	return func(s *ApprovalStore) { s.now = now }
}

// WithIDGenerator overrides approval id generation.
func WithIDGenerator(newID func() string) ApprovalStoreOption {
	return func(s *ApprovalStore) { s.newID = newID }
}

// NewApprovalStore creates an empty ApprovalStore.
func NewApprovalStore(opts ...ApprovalStoreOption) *ApprovalStore {
	s := &ApprovalStore{
		approvals: make(map[string]*domain.PendingApproval),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new approval expiring ttl from now.
func (s *ApprovalStore) Create(ctx context.Context, draft domain.ApprovalDraft, ttl time.Duration) (*domain.PendingApproval, error) {
	approval := domain.NewPendingApproval(s.newID(), draft, s.now().UTC(), ttl)

	s.mu.Lock()
	s.approvals[approval.ID] = approval
	s.mu.Unlock()

	return copyApproval(approval), nil
}

// Get returns a live approval without removing it.
func (s *ApprovalStore) Get(ctx context.Context, id string) (*domain.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval, ok := s.approvals[id]
	if !ok {
		return nil, domain.ErrApprovalNotFound
	}
	if approval.IsExpiredAt(s.now()) {
		return nil, domain.ErrApprovalExpired
	}
	return copyApproval(approval), nil
}

// Consume removes and returns a live approval. Expired approvals are removed
// and reported as domain.ErrApprovalExpired.
func (s *ApprovalStore) Consume(ctx context.Context, id string) (*domain.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval, ok := s.approvals[id]
	if !ok {
		return nil, domain.ErrApprovalNotFound
	}
	delete(s.approvals, id)

	if approval.IsExpiredAt(s.now()) {
		return nil, domain.ErrApprovalExpired
	}
	return approval, nil
}

// SweepExpired removes every approval whose expiry is before now.
func (s *ApprovalStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, approval := range s.approvals {
		if approval.ExpiresAt.Before(now) {
			delete(s.approvals, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored approvals, expired or not.
func (s *ApprovalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.approvals)
}

func copyApproval(a *domain.PendingApproval) *domain.PendingApproval {
	c := *a
	return &c
}
