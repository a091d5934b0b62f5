package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
)

const (
	approvalKeyPrefix = "cypherd:approval:"
	approvalIndexKey  = "cypherd:approvals:expiry"
)

// ApprovalStore implements usecase.ApprovalStore on Redis so several
// service instances share one single-use guarantee.
//
// Records outlive their expiry by the retention window so a late Consume
// reports domain.ErrApprovalExpired instead of domain.ErrApprovalNotFound.
type ApprovalStore struct {
	client    redis.UniversalClient
	retention time.Duration
	now       func() time.Time
}

// NewApprovalStore creates a new ApprovalStore.
func NewApprovalStore(client redis.UniversalClient, retention time.Duration) *ApprovalStore {
	return &ApprovalStore{
		client:    client,
		retention: retention,
		now:       time.Now,
	}
}

// WithClock overrides the wall clock used for expiry decisions.
func (s *ApprovalStore) WithClock(now func() time.Time) *ApprovalStore {
	s.now = now
	return s
}

type approvalRecord struct {
	ID               string           `json:"id"`
	SenderAccountID  string           `json:"sender_account_id"`
	SenderAddress    string           `json:"sender_address"`
	RecipientAddress string           `json:"recipient_address"`
	AmountEth        decimal.Decimal  `json:"amount_eth"`
	AmountUsd        *decimal.Decimal `json:"amount_usd,omitempty"`
	OriginalQuoteEth *decimal.Decimal `json:"original_quote_eth,omitempty"`
	Memo             string           `json:"memo,omitempty"`
	Message          string           `json:"message"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
}

func toRecord(a *domain.PendingApproval) approvalRecord {
	return approvalRecord{
		ID:               a.ID,
		SenderAccountID:  a.SenderAccountID,
		SenderAddress:    a.SenderAddress,
		RecipientAddress: a.RecipientAddress,
		AmountEth:        a.AmountEth,
		AmountUsd:        a.AmountUsd,
		OriginalQuoteEth: a.OriginalQuoteEth,
		Memo:             a.Memo,
		Message:          a.Message,
		CreatedAt:        a.CreatedAt,
		ExpiresAt:        a.ExpiresAt,
	}
}

func (r approvalRecord) toDomain() *domain.PendingApproval {
	return &domain.PendingApproval{
		ID:               r.ID,
		Message:          r.Message,
		SenderAccountID:  r.SenderAccountID,
		SenderAddress:    r.SenderAddress,
		RecipientAddress: r.RecipientAddress,
		AmountEth:        r.AmountEth,
		AmountUsd:        r.AmountUsd,
		OriginalQuoteEth: r.OriginalQuoteEth,
		Memo:             r.Memo,
		CreatedAt:        r.CreatedAt,
		ExpiresAt:        r.ExpiresAt,
	}
}

// Create stores a new approval and indexes its expiry.
func (s *ApprovalStore) Create(ctx context.Context, draft domain.ApprovalDraft, ttl time.Duration) (*domain.PendingApproval, error) {
	approval := domain.NewPendingApproval(uuid.NewString(), draft, s.now().UTC(), ttl)

	data, err := json.Marshal(toRecord(approval))
	if err != nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, approvalKeyPrefix+approval.ID, data, ttl+s.retention)
		pipe.ZAdd(ctx, approvalIndexKey, redis.Z{
			Score:  expiryScore(approval.ExpiresAt),
			Member: approval.ID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store approval: %w", err)
	}

	return approval, nil
}

// Get returns a live approval without removing it.
func (s *ApprovalStore) Get(ctx context.Context, id string) (*domain.PendingApproval, error) {
	data, err := s.client.Get(ctx, approvalKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}

	approval, err := decodeApproval(data)
	if err != nil {
		return nil, err
	}
	if approval.IsExpiredAt(s.now()) {
		return nil, domain.ErrApprovalExpired
	}
	return approval, nil
}

// Consume atomically removes and returns a live approval using GETDEL.
func (s *ApprovalStore) Consume(ctx context.Context, id string) (*domain.PendingApproval, error) {
	data, err := s.client.GetDel(ctx, approvalKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}

	// Index cleanup is housekeeping; the key is already gone.
	_ = s.client.ZRem(ctx, approvalIndexKey, id).Err()

	approval, err := decodeApproval(data)
	if err != nil {
		return nil, err
	}
	if approval.IsExpiredAt(s.now()) {
		return nil, domain.ErrApprovalExpired
	}
	return approval, nil
}

// SweepExpired deletes approvals whose expiry is before now.
func (s *ApprovalStore) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, approvalIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(expiryScore(s.now()), 'f', -1, 64),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	dels := make([]*redis.IntCmd, 0, len(ids))
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			dels = append(dels, pipe.Del(ctx, approvalKeyPrefix+id))
		}
		members := make([]any, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.ZRem(ctx, approvalIndexKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, cmd := range dels {
		removed += int(cmd.Val())
	}
	return removed, nil
}

// expiryScore orders the expiry index in microseconds; float64 holds them exactly.
func expiryScore(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func decodeApproval(data []byte) (*domain.PendingApproval, error) {
	var rec approvalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode approval: %w", err)
	}
	return rec.toDomain(), nil
}
