package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/infrastructure/ethsig"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
	"github.com/codit04/cypherd/internal/usecase"
	"github.com/codit04/cypherd/internal/usecase/mocks"
)

func TestTransferUseCase_InternalTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	rec, err := h.execute(t, approval, keyA)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeInternal, rec.Type)
	assert.Equal(t, domain.TransactionStatusCompleted, rec.Status)
	assert.Equal(t, approval.ID, rec.ApprovalID)
	assert.Equal(t, addrA, rec.FromAddress)
	assert.Equal(t, addrB, rec.ToAddress)
	require.NotNil(t, rec.FromAccountID)
	require.NotNil(t, rec.ToAccountID)
	assert.Equal(t, "w1-0", *rec.FromAccountID)
	assert.Equal(t, "w1-1", *rec.ToAccountID)
	assert.True(t, rec.Amount.Equal(d("0.5")))

	assert.True(t, h.balance(t, "w1-0").Equal(d("1.5")))
	assert.True(t, h.balance(t, "w1-1").Equal(d("0.5")))
	assert.True(t, h.ledger.TotalBalance().Equal(d("3")), "internal transfers conserve the total")

	stored, err := h.txRepo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ApprovalID, stored.ApprovalID)

	h.transfers.Wait()
	events := h.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeTransactionCompleted, events[0].EventType)
	assert.Equal(t, rec.ID, events[0].AggregateID)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransfersExecuted.WithLabelValues("internal")))
}

func TestTransferUseCase_ReplayRejected(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	_, err := h.execute(t, approval, keyA)
	require.NoError(t, err)

	_, err = h.execute(t, approval, keyA)
	assert.ErrorIs(t, err, domain.ErrApprovalNotFound)
	assert.True(t, h.balance(t, "w1-0").Equal(d("1.5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransfersRejected.WithLabelValues("not_found")))
}

func TestTransferUseCase_ConcurrentExecuteAtMostOnce(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	sig := sign(t, keyA, approval.Message)

	const workers = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		notFound  atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.transfers.ExecuteApproval(context.Background(), usecase.ExecuteApprovalInput{
				ApprovalID: approval.ID,
				Signature:  sig,
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrApprovalNotFound):
				notFound.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), notFound.Load())
	assert.True(t, h.balance(t, "w1-0").Equal(d("1.5")))
	assert.True(t, h.balance(t, "w1-1").Equal(d("0.5")))
}

func TestTransferUseCase_ConcurrentApprovalsNoLostUpdates(t *testing.T) {
	h := newHarness(t)

	const transfers = 20
	approvals := make([]*domain.PendingApproval, transfers)
	sigs := make([]string, transfers)
	for i := range approvals {
		approvals[i] = h.createEth(t, "w1-0", addrB, "0.1")
		sigs[i] = sign(t, keyA, approvals[i].Message)
	}

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := range approvals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.transfers.ExecuteApproval(context.Background(), usecase.ExecuteApprovalInput{
				ApprovalID: approvals[i].ID,
				Signature:  sigs[i],
			})
			if err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.True(t, h.balance(t, "w1-0").Equal(d("0")), "got %s", h.balance(t, "w1-0"))
	assert.True(t, h.balance(t, "w1-1").Equal(d("2")))
}

func TestTransferUseCase_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"executed at T+29s", 29 * time.Second, nil},
		{"executed at T+30s", 30 * time.Second, nil},
		{"executed at T+31s", 31 * time.Second, domain.ErrApprovalExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			approval := h.createEth(t, "w1-0", addrB, "0.5")

			h.clock.Advance(tt.elapsed)
			_, err := h.execute(t, approval, keyA)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, h.balance(t, "w1-0").Equal(d("1.5")))
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, h.balance(t, "w1-0").Equal(d("2")))
		})
	}
}

func TestTransferUseCase_WrongKeyRejected(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	_, err := h.execute(t, approval, keyB)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Equal(t, "bad_signature", usecase.RejectionReason(err))

	assert.True(t, h.balance(t, "w1-0").Equal(d("2")))
	assert.True(t, h.balance(t, "w1-1").Equal(d("0")))

	// The approval was consumed by the failed attempt.
	_, err = h.execute(t, approval, keyA)
	assert.ErrorIs(t, err, domain.ErrApprovalNotFound)
}

func TestTransferUseCase_MalformedSignatureRejected(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	_, err := h.transfers.ExecuteApproval(context.Background(), usecase.ExecuteApprovalInput{
		ApprovalID: approval.ID,
		Signature:  "0xdeadbeef",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTransferUseCase_InsufficientBalance(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "2.000001")
	_, err := h.execute(t, approval, keyA)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	var balErr *domain.InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.True(t, balErr.Available.Equal(d("2")))
	assert.True(t, balErr.Required.Equal(d("2.000001")))

	assert.True(t, h.balance(t, "w1-0").Equal(d("2")))
	assert.True(t, h.balance(t, "w1-1").Equal(d("0")))

	txs, err := h.txRepo.ListByAccount(context.Background(), "w1-0", 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTransferUseCase_ExactBalance(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "2.0")
	_, err := h.execute(t, approval, keyA)
	require.NoError(t, err)
	assert.True(t, h.balance(t, "w1-0").IsZero())
	assert.True(t, h.balance(t, "w1-1").Equal(d("2")))
}

func TestTransferUseCase_ExternalRecipient(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrExternal, "0.25")
	rec, err := h.execute(t, approval, keyA)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeSend, rec.Type)
	assert.Nil(t, rec.ToAccountID)
	assert.Equal(t, addrExternal, rec.ToAddress)
	assert.True(t, h.balance(t, "w1-0").Equal(d("1.75")))
	assert.True(t, h.ledger.TotalBalance().Equal(d("2.75")))
}

func TestTransferUseCase_KnownRecipientInAnotherWallet(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrC, "0.25")
	rec, err := h.execute(t, approval, keyA)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeSend, rec.Type)
	require.NotNil(t, rec.ToAccountID)
	assert.Equal(t, "w2-0", *rec.ToAccountID)
	assert.True(t, h.balance(t, "w2-0").Equal(d("1.25")))
	assert.True(t, h.ledger.TotalBalance().Equal(d("3")))
}

func TestTransferUseCase_RecipientResolvedAtExecution(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrExternal, "0.5")

	now := h.clock.Now()
	h.ledger.AddAccount(&domain.Account{ID: "w1-2", WalletID: "w1", Address: addrExternal, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now})

	rec, err := h.execute(t, approval, keyA)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeInternal, rec.Type)
	assert.True(t, h.balance(t, "w1-2").Equal(d("0.5")))
}

func TestTransferUseCase_SenderDeletedAfterApproval(t *testing.T) {
	h := newHarness(t)

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	h.ledger.DeleteAccount("w1-0")

	_, err := h.execute(t, approval, keyA)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.True(t, h.balance(t, "w1-1").IsZero())
}

func TestTransferUseCase_UsdWithinTolerance(t *testing.T) {
	h := newHarness(t)

	approval := h.createUsd(t, "w1-0", addrB, "100")
	require.NotNil(t, approval.OriginalQuoteEth)
	assert.Equal(t, "0.045", approval.OriginalQuoteEth.String())
	assert.Contains(t, approval.Message, "($100 USD)")

	h.oracle.SetRate(d("0.000451"))

	rec, err := h.execute(t, approval, keyA)
	require.NoError(t, err)
	assert.Equal(t, "0.0451", rec.Amount.String(), "the fresh quote is settled")
	assert.True(t, h.balance(t, "w1-0").Equal(d("1.9549")))
	assert.True(t, h.balance(t, "w1-1").Equal(d("0.0451")))
}

func TestTransferUseCase_UsdPriceDrift(t *testing.T) {
	h := newHarness(t)

	approval := h.createUsd(t, "w1-0", addrB, "100")
	h.oracle.SetRate(d("0.000455"))

	_, err := h.execute(t, approval, keyA)
	require.ErrorIs(t, err, domain.ErrPriceDrift)

	var drift *domain.PriceDriftError
	require.True(t, errors.As(err, &drift))
	assert.Equal(t, "0.045", drift.Original.String())
	assert.Equal(t, "0.0455", drift.Current.String())
	assert.Equal(t, "1.11", drift.DeltaPercent.StringFixed(2))
	assert.Equal(t, "1", drift.TolerancePercent.String())

	assert.True(t, h.balance(t, "w1-0").Equal(d("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.TransfersRejected.WithLabelValues("price_drift")))
}

func TestTransferUseCase_OracleFailuresDoNotMutate(t *testing.T) {
	tests := []struct {
		name    string
		quote   func(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error)
		wantErr error
	}{
		{
			name: "deadline exceeded",
			quote: func(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			wantErr: domain.ErrUpstreamTimeout,
		},
		{
			name: "upstream error",
			quote: func(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
				return nil, fmt.Errorf("%w: status 500", domain.ErrUpstreamFailure)
			},
			wantErr: domain.ErrUpstreamFailure,
		},
		{
			name: "unclassified error",
			quote: func(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
				return nil, errBoom
			},
			wantErr: domain.ErrUpstreamFailure,
		},
		{
			name: "empty quote",
			quote: func(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
				return &domain.Quote{}, nil
			},
			wantErr: domain.ErrUpstreamFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			oracle := mocks.NewMockPriceOracle(ctrl)
			gomock.InOrder(
				oracle.EXPECT().QuoteEthForUsd(gomock.Any(), gomock.Any()).
					Return(&domain.Quote{UsdAmount: d("100"), EthAmount: d("0.045"), Rate: d("0.00045")}, nil),
				oracle.EXPECT().QuoteEthForUsd(gomock.Any(), gomock.Any()).DoAndReturn(tt.quote),
			)

			h := newHarness(t, withOracle(oracle), withQuoteTimeout(20*time.Millisecond))
			approval := h.createUsd(t, "w1-0", addrB, "100")

			_, err := h.execute(t, approval, keyA)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, h.balance(t, "w1-0").Equal(d("2")))
			assert.True(t, h.balance(t, "w1-1").IsZero())
		})
	}
}

func TestTransferUseCase_SlowQuotePastExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockPriceOracle(ctrl)

	var h *harness
	gomock.InOrder(
		oracle.EXPECT().QuoteEthForUsd(gomock.Any(), gomock.Any()).
			Return(&domain.Quote{EthAmount: d("0.045")}, nil),
		oracle.EXPECT().QuoteEthForUsd(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
				h.clock.Advance(5 * time.Second)
				return &domain.Quote{EthAmount: d("0.045")}, nil
			}),
	)

	h = newHarness(t, withOracle(oracle))
	approval := h.createUsd(t, "w1-0", addrB, "100")

	h.clock.Advance(29 * time.Second)
	_, err := h.execute(t, approval, keyA)
	assert.ErrorIs(t, err, domain.ErrApprovalExpired)
	assert.True(t, h.balance(t, "w1-0").Equal(d("2")))
}

func TestTransferUseCase_NotificationFailureSwallowed(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errBoom
	require.NoError(t, h.prefs.Upsert(context.Background(), &domain.NotificationPreferences{
		WalletID:       "w1",
		PhoneNumber:    "+14155550123",
		Enabled:        true,
		NotifyIncoming: true,
		NotifyOutgoing: true,
	}))

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	rec, err := h.execute(t, approval, keyA)
	require.NoError(t, err)
	require.NotNil(t, rec)

	h.transfers.Wait()
	sent := h.notifier.Sent()
	require.Len(t, sent, 2, "sender and recipient share the wallet")
	assert.Contains(t, sent[0].Message, "*Internal Transfer*")
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.NotificationsSent.WithLabelValues("error")))
	assert.True(t, h.balance(t, "w1-0").Equal(d("1.5")))
}

func TestTransferUseCase_PublishFailureSwallowed(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errBoom

	approval := h.createEth(t, "w1-0", addrB, "0.5")
	_, err := h.execute(t, approval, keyA)
	require.NoError(t, err)

	h.transfers.Wait()
	assert.Len(t, h.publisher.Events(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.EventsPublished.WithLabelValues("error")))
}

func TestTransferUseCase_PersistenceFailures(t *testing.T) {
	sender := &domain.Account{ID: "w1-0", WalletID: "w1", Address: addrA, Balance: d("2")}
	recipient := &domain.Account{ID: "w1-1", WalletID: "w1", Address: addrB, Balance: d("0")}
	approval := domain.NewPendingApproval("ap-1", domain.ApprovalDraft{
		SenderAccountID:  sender.ID,
		SenderAddress:    sender.Address,
		RecipientAddress: recipient.Address,
		AmountEth:        d("0.5"),
	}, time.Now().UTC(), time.Minute)

	tests := []struct {
		name  string
		setup func(*mocks.MockTransactionManager, *mocks.MockAccountRepository, *mocks.MockTransactionRepository) *bool
	}{
		{
			name: "begin fails",
			setup: func(txm *mocks.MockTransactionManager, _ *mocks.MockAccountRepository, _ *mocks.MockTransactionRepository) *bool {
				txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) { return nil, errBoom }
				return nil
			},
		},
		{
			name: "append fails and rolls back",
			setup: func(txm *mocks.MockTransactionManager, _ *mocks.MockAccountRepository, txRepo *mocks.MockTransactionRepository) *bool {
				rolledBack := false
				txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
					return &mocks.MockTransaction{
						CommitFunc:   func(ctx context.Context) error { t.Error("commit must not be called"); return nil },
						RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
					}, nil
				}
				txRepo.AppendFunc = func(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) (string, error) {
					return "", errBoom
				}
				return &rolledBack
			},
		},
		{
			name: "commit fails",
			setup: func(txm *mocks.MockTransactionManager, _ *mocks.MockAccountRepository, _ *mocks.MockTransactionRepository) *bool {
				txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
					return &mocks.MockTransaction{CommitFunc: func(ctx context.Context) error { return errBoom }}, nil
				}
				return nil
			},
		},
		{
			name: "balance update fails",
			setup: func(_ *mocks.MockTransactionManager, accounts *mocks.MockAccountRepository, _ *mocks.MockTransactionRepository) *bool {
				accounts.UpdateBalanceFunc = func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
					return errBoom
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			verifier := mocks.NewMockSignatureVerifier(ctrl)
			verifier.EXPECT().Verify(approval.Message, "sig", addrA).Return(true)

			txm := mocks.NewMockTransactionManager()
			accounts := mocks.NewMockAccountRepository(sender, recipient)
			txRepo := mocks.NewMockTransactionRepository()
			rolledBack := tt.setup(txm, accounts, txRepo)

			m := metrics.New(prometheus.NewRegistry())
			uc := usecase.NewTransferUseCase(usecase.TransferConfig{
				TxManager:       txm,
				AccountRepo:     accounts,
				TransactionRepo: txRepo,
				Approvals: &mocks.MockApprovalStore{
					ConsumeFunc: func(ctx context.Context, id string) (*domain.PendingApproval, error) { return approval, nil },
				},
				Verifier: verifier,
				IDGen:    mocks.NewMockIDGenerator(),
				Metrics:  m,
				Logger:   zerolog.Nop(),
			})

			_, err := uc.ExecuteApproval(context.Background(), usecase.ExecuteApprovalInput{ApprovalID: "ap-1", Signature: "sig"})
			assert.ErrorIs(t, err, domain.ErrPersistenceFailure)
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, "persistence_failure", usecase.RejectionReason(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersRejected.WithLabelValues("persistence_failure")))
			if rolledBack != nil {
				assert.True(t, *rolledBack)
			}
		})
	}
}

func TestTransferUseCase_RetriesThroughRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockSignatureVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(true)

	sender := &domain.Account{ID: "w1-0", WalletID: "w1", Address: addrA, Balance: d("2")}
	approval := domain.NewPendingApproval("ap-1", domain.ApprovalDraft{
		SenderAccountID:  sender.ID,
		SenderAddress:    sender.Address,
		RecipientAddress: addrExternal,
		AmountEth:        d("1"),
	}, time.Now().UTC(), time.Minute)

	retrier := &mocks.MockRetrier{}
	uc := usecase.NewTransferUseCase(usecase.TransferConfig{
		TxManager:       mocks.NewMockTransactionManager(),
		AccountRepo:     mocks.NewMockAccountRepository(sender),
		TransactionRepo: mocks.NewMockTransactionRepository(),
		Approvals: &mocks.MockApprovalStore{
			ConsumeFunc: func(ctx context.Context, id string) (*domain.PendingApproval, error) { return approval, nil },
		},
		Verifier: verifier,
		Retrier:  retrier,
		IDGen:    mocks.NewMockIDGenerator(),
		Logger:   zerolog.Nop(),
	})

	rec, err := uc.ExecuteApproval(context.Background(), usecase.ExecuteApprovalInput{ApprovalID: "ap-1", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, "mock-id-1", rec.ID)
	assert.Equal(t, 1, retrier.Calls)
}

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrApprovalNotFound, "not_found"},
		{domain.ErrApprovalExpired, "expired"},
		{domain.ErrInvalidSignature, "bad_signature"},
		{&domain.PriceDriftError{}, "price_drift"},
		{&domain.InsufficientBalanceError{}, "insufficient_balance"},
		{fmt.Errorf("%w: slow", domain.ErrUpstreamTimeout), "upstream_timeout"},
		{domain.ErrUpstreamFailure, "upstream_failure"},
		{domain.ErrAccountNotFound, "account_not_found"},
		{domain.ErrSelfTransfer, "self_transfer"},
		{fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, errBoom), "persistence_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, usecase.RejectionReason(tt.err))
		})
	}
}

func sign(t *testing.T, key, message string) string {
	t.Helper()
	sig, err := ethsig.Sign(key, message)
	require.NoError(t, err)
	return sig
}
