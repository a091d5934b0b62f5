package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
)

// ApprovalUseCase mints and maintains pending transfer approvals.
type ApprovalUseCase struct {
	accountRepo  AccountRepository
	approvals    ApprovalStore
	oracle       PriceOracle
	ttl          time.Duration
	quoteTimeout time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// ApprovalConfig holds ApprovalUseCase dependencies.
type ApprovalConfig struct {
	AccountRepo  AccountRepository
	Approvals    ApprovalStore
	Oracle       PriceOracle
	TTL          time.Duration
	QuoteTimeout time.Duration
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// NewApprovalUseCase creates a new ApprovalUseCase.
func NewApprovalUseCase(cfg ApprovalConfig) *ApprovalUseCase {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultApprovalTTL
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = DefaultQuoteTimeout
	}
	return &ApprovalUseCase{
		accountRepo:  cfg.AccountRepo,
		approvals:    cfg.Approvals,
		oracle:       cfg.Oracle,
		ttl:          cfg.TTL,
		quoteTimeout: cfg.QuoteTimeout,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// CreateApprovalInput represents input for requesting a transfer approval.
// Exactly one of AmountEth and AmountUsd must be set.
type CreateApprovalInput struct {
	FromAccountID string
	ToAddress     string
	AmountEth     *decimal.Decimal
	AmountUsd     *decimal.Decimal
	Memo          string
}

// Validate checks the request before any lookup happens.
func (in CreateApprovalInput) Validate() error {
	if (in.AmountEth == nil) == (in.AmountUsd == nil) {
		return domain.ErrAmountDenomination
	}
	if in.AmountEth != nil {
		if err := domain.ValidateEthAmount(*in.AmountEth); err != nil {
			return err
		}
	}
	if in.AmountUsd != nil {
		if err := domain.ValidateUsdAmount(*in.AmountUsd); err != nil {
			return err
		}
	}
	if err := domain.ValidateAddress(in.ToAddress); err != nil {
		return err
	}
	return domain.ValidateMemo(in.Memo)
}

// CreateApproval validates the request, captures a USD quote if needed and
// stores a pending approval the sender has to sign.
func (uc *ApprovalUseCase) CreateApproval(ctx context.Context, input CreateApprovalInput) (*domain.PendingApproval, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	sender, err := uc.accountRepo.GetByID(ctx, input.FromAccountID)
	if err != nil {
		return nil, err
	}

	if domain.NormalizeAddress(sender.Address) == domain.NormalizeAddress(input.ToAddress) {
		return nil, domain.ErrSelfTransfer
	}

	draft := domain.ApprovalDraft{
		SenderAccountID:  sender.ID,
		SenderAddress:    sender.Address,
		RecipientAddress: input.ToAddress,
		Memo:             input.Memo,
	}

	if input.AmountUsd != nil {
		quote, err := fetchQuote(ctx, uc.oracle, *input.AmountUsd, uc.quoteTimeout)
		if err != nil {
			return nil, err
		}
		usd := *input.AmountUsd
		eth := quote.EthAmount
		draft.AmountUsd = &usd
		draft.OriginalQuoteEth = &eth
		draft.AmountEth = eth
	} else {
		draft.AmountEth = *input.AmountEth
	}

	approval, err := uc.approvals.Create(ctx, draft, uc.ttl)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ApprovalsCreated.WithLabelValues(denomination(approval)).Inc()
	}

	uc.logger.Info().
		Str("approval_id", approval.ID).
		Str("account_id", sender.ID).
		Str("amount_eth", approval.AmountEth.String()).
		Bool("usd", approval.IsUSD()).
		Time("expires_at", approval.ExpiresAt).
		Msg("approval created")

	return approval, nil
}

// GetApproval returns a live approval without consuming it.
func (uc *ApprovalUseCase) GetApproval(ctx context.Context, id string) (*domain.PendingApproval, error) {
	return uc.approvals.Get(ctx, id)
}

// SweepExpired removes approvals nobody executed in time.
func (uc *ApprovalUseCase) SweepExpired(ctx context.Context) (int, error) {
	n, err := uc.approvals.SweepExpired(ctx)
	if err != nil {
		return 0, err
	}
	if uc.metrics != nil && n > 0 {
		uc.metrics.ApprovalsSwept.Add(float64(n))
	}
	return n, nil
}

func denomination(a *domain.PendingApproval) string {
	if a.IsUSD() {
		return "usd"
	}
	return "eth"
}

// fetchQuote calls the oracle under a bounded deadline and normalizes its errors
// to domain.ErrUpstreamTimeout or domain.ErrUpstreamFailure.
func fetchQuote(ctx context.Context, oracle PriceOracle, usd decimal.Decimal, timeout time.Duration) (*domain.Quote, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: no price oracle configured", domain.ErrUpstreamFailure)
	}

	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	quote, err := oracle.QuoteEthForUsd(qctx, usd)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, domain.ErrUpstreamFailure):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	if quote == nil || quote.EthAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: empty quote", domain.ErrUpstreamFailure)
	}
	return quote, nil
}
