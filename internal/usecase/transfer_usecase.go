package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
)

// TransferNotifier is told about every settled transaction.
type TransferNotifier interface {
	NotifyTransfer(ctx context.Context, record *domain.TransactionRecord, sender, recipient *domain.Account)
}

// TransferUseCase executes signed approvals against the ledger.
type TransferUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	approvals       ApprovalStore
	verifier        SignatureVerifier
	oracle          PriceOracle
	guard           *PriceGuard
	notifier        TransferNotifier
	publisher       EventPublisher
	retrier         Retrier
	idGen           IDGenerator
	metrics         *metrics.Metrics
	logger          zerolog.Logger

	quoteTimeout    time.Duration
	settlementGrace time.Duration
	now             func() time.Time

	background sync.WaitGroup
}

// TransferConfig holds TransferUseCase dependencies.
// Notifier, Publisher, Retrier and Metrics are optional.
type TransferConfig struct {
	TxManager       TransactionManager
	AccountRepo     AccountRepository
	TransactionRepo TransactionRepository
	Approvals       ApprovalStore
	Verifier        SignatureVerifier
	Oracle          PriceOracle
	Guard           *PriceGuard
	Notifier        TransferNotifier
	Publisher       EventPublisher
	Retrier         Retrier
	IDGen           IDGenerator
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
	QuoteTimeout    time.Duration
	// SettlementGrace extends the expiry re-check done after signature and price validation.
	SettlementGrace time.Duration
	Now             func() time.Time
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(cfg TransferConfig) *TransferUseCase {
	if cfg.Guard == nil {
		cfg.Guard = NewPriceGuard(decimal.Zero)
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = DefaultQuoteTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TransferUseCase{
		txManager:       cfg.TxManager,
		accountRepo:     cfg.AccountRepo,
		transactionRepo: cfg.TransactionRepo,
		approvals:       cfg.Approvals,
		verifier:        cfg.Verifier,
		oracle:          cfg.Oracle,
		guard:           cfg.Guard,
		notifier:        cfg.Notifier,
		publisher:       cfg.Publisher,
		retrier:         cfg.Retrier,
		idGen:           cfg.IDGen,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		quoteTimeout:    cfg.QuoteTimeout,
		settlementGrace: cfg.SettlementGrace,
		now:             cfg.Now,
	}
}

// ExecuteApprovalInput represents a signed approval submission.
type ExecuteApprovalInput struct {
	ApprovalID string
	Signature  string
}

// ExecuteApproval consumes the approval, verifies the signature, re-prices USD
// transfers and settles the debit and credit in one unit of work.
//
// The approval is consumed before anything else, so a rejected submission
// needs a fresh approval.
func (uc *TransferUseCase) ExecuteApproval(ctx context.Context, input ExecuteApprovalInput) (*domain.TransactionRecord, error) {
	start := time.Now()

	record, err := uc.execute(ctx, input)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.TransfersRejected.WithLabelValues(RejectionReason(err)).Inc()
		}
		uc.logger.Warn().
			Err(err).
			Str("approval_id", input.ApprovalID).
			Str("reason", RejectionReason(err)).
			Msg("approval rejected")
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransfersExecuted.WithLabelValues(string(record.Type)).Inc()
		uc.metrics.TransferDuration.Observe(time.Since(start).Seconds())
		uc.metrics.TransferAmount.Observe(record.Amount.InexactFloat64())
	}

	return record, nil
}

func (uc *TransferUseCase) execute(ctx context.Context, input ExecuteApprovalInput) (*domain.TransactionRecord, error) {
	// 1. Single-use consumption
	approval, err := uc.approvals.Consume(ctx, input.ApprovalID)
	if err != nil {
		return nil, err
	}

	// 2. Sender as of now
	sender, err := uc.accountRepo.GetByID(ctx, approval.SenderAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			uc.logger.Error().
				Str("approval_id", approval.ID).
				Str("account_id", approval.SenderAccountID).
				Msg("sender account missing for pending approval")
		}
		return nil, err
	}

	// 3. Signature
	if !uc.verifier.Verify(approval.Message, input.Signature, sender.Address) {
		return nil, domain.ErrInvalidSignature
	}

	// 4. Price re-validation
	amount := approval.AmountEth
	if approval.IsUSD() {
		amount, err = uc.revalidatePrice(ctx, approval)
		if err != nil {
			return nil, err
		}
	}

	if approval.IsExpiredAt(uc.now().Add(-uc.settlementGrace)) {
		return nil, fmt.Errorf("%w: expired during validation", domain.ErrApprovalExpired)
	}

	// 5. Balance on the snapshot; settle re-checks under lock
	if err := sender.ValidateDebit(amount); err != nil {
		return nil, err
	}

	// 6. Recipient resolution
	recipient, err := uc.accountRepo.GetByAddress(ctx, approval.RecipientAddress)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		recipient = nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	if recipient != nil && recipient.ID == sender.ID {
		return nil, domain.ErrSelfTransfer
	}

	// 7-8. Debit, credit and record atomically
	record, err := uc.settle(ctx, approval, sender, recipient, amount)
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("transaction_id", record.ID).
		Str("approval_id", approval.ID).
		Str("amount", record.Amount.String()).
		Str("type", string(record.Type)).
		Msg("transfer settled")

	// 9. Best effort
	uc.afterCommit(ctx, record, sender, recipient)

	return record, nil
}

func (uc *TransferUseCase) revalidatePrice(ctx context.Context, approval *domain.PendingApproval) (decimal.Decimal, error) {
	quote, err := fetchQuote(ctx, uc.oracle, *approval.AmountUsd, uc.quoteTimeout)
	if err != nil {
		return decimal.Zero, err
	}

	original := approval.AmountEth
	if approval.OriginalQuoteEth != nil {
		original = *approval.OriginalQuoteEth
	}

	if uc.metrics != nil {
		uc.metrics.PriceDrift.Observe(DriftPercent(original, quote.EthAmount).InexactFloat64())
	}

	if err := uc.guard.Check(original, quote.EthAmount); err != nil {
		return decimal.Zero, err
	}

	// Tolerance bounds drift; the fresh quote is what moves.
	return quote.EthAmount, nil
}

func (uc *TransferUseCase) settle(
	ctx context.Context,
	approval *domain.PendingApproval,
	sender, recipient *domain.Account,
	amount decimal.Decimal,
) (*domain.TransactionRecord, error) {
	var record *domain.TransactionRecord

	run := func() error {
		rec, err := uc.settleOnce(ctx, approval, sender, recipient, amount)
		if err != nil {
			return err
		}
		record = rec
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, run)
	} else {
		err = run()
	}
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	return record, nil
}

func (uc *TransferUseCase) settleOnce(
	ctx context.Context,
	approval *domain.PendingApproval,
	sender, recipient *domain.Account,
	amount decimal.Decimal,
) (*domain.TransactionRecord, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// Lock in sorted order (DEADLOCK PREVENTION)
	ids := []string{sender.ID}
	if recipient != nil {
		ids = append(ids, recipient.ID)
	}
	sort.Strings(ids)

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	locked, err := uc.accountRepo.GetByIDsForUpdate(txCtx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(ids) {
		return nil, domain.ErrAccountNotFound
	}

	accounts := make(map[string]*domain.Account, len(locked))
	for _, a := range locked {
		accounts[a.ID] = a
	}

	from := accounts[sender.ID]
	if from == nil {
		return nil, domain.ErrAccountNotFound
	}
	if err := from.ValidateDebit(amount); err != nil {
		return nil, err
	}

	now := uc.now().UTC()

	if err := uc.accountRepo.UpdateBalance(txCtx, tx, from.ID, from.ApplyDebit(amount), now); err != nil {
		return nil, err
	}

	record := &domain.TransactionRecord{
		ID:            uc.idGen.Generate(),
		ApprovalID:    approval.ID,
		FromAccountID: &from.ID,
		FromAddress:   domain.NormalizeAddress(from.Address),
		ToAddress:     approval.RecipientAddress,
		Amount:        amount,
		Memo:          approval.Memo,
		Type:          domain.TransactionTypeSend,
		Status:        domain.TransactionStatusCompleted,
		CreatedAt:     now,
	}

	if recipient != nil {
		to := accounts[recipient.ID]
		if to == nil {
			return nil, domain.ErrAccountNotFound
		}
		if err := uc.accountRepo.UpdateBalance(txCtx, tx, to.ID, to.ApplyCredit(amount), now); err != nil {
			return nil, err
		}
		record.ToAccountID = &to.ID
		if from.SameWallet(to) {
			record.Type = domain.TransactionTypeInternal
		}
	}

	if _, err := uc.transactionRepo.Append(txCtx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return record, nil
}

// afterCommit runs notifications and event publishing detached from the request.
func (uc *TransferUseCase) afterCommit(ctx context.Context, record *domain.TransactionRecord, sender, recipient *domain.Account) {
	if uc.notifier == nil && uc.publisher == nil {
		return
	}

	bg := context.WithoutCancel(ctx)
	uc.background.Add(1)
	go func() {
		defer uc.background.Done()

		bgCtx, cancel := context.WithTimeout(bg, DefaultNotifyTimeout)
		defer cancel()

		if uc.notifier != nil {
			uc.notifier.NotifyTransfer(bgCtx, record, sender, recipient)
		}

		if uc.publisher != nil {
			event := domain.NewTransactionCompletedEvent(uc.idGen.Generate(), record)
			err := uc.publisher.Publish(bgCtx, event)
			if uc.metrics != nil {
				uc.metrics.EventsPublished.WithLabelValues(outcome(err)).Inc()
			}
			if err != nil {
				uc.logger.Error().Err(err).Str("transaction_id", record.ID).Msg("failed to publish transaction event")
			}
		}
	}()
}

// Wait blocks until post-commit work started so far has finished.
func (uc *TransferUseCase) Wait() {
	uc.background.Wait()
}

// RejectionReason maps an execution error to a stable label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrApprovalNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrApprovalExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, domain.ErrPriceDrift):
		return "price_drift"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.Is(err, domain.ErrUpstreamFailure):
		return "upstream_failure"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrSelfTransfer):
		return "self_transfer"
	default:
		return "persistence_failure"
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrPersistenceFailure)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
