package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/codit04/cypherd/internal/adapter/oracle"
	"github.com/codit04/cypherd/internal/adapter/repository/memory"
	"github.com/codit04/cypherd/internal/adapter/repository/postgres"
	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/infrastructure/ethsig"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
	"github.com/codit04/cypherd/internal/usecase"
	"github.com/codit04/cypherd/internal/usecase/mocks"
)

const (
	keyA = "0x0000000000000000000000000000000000000000000000000000000000000001"
	keyB = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

	addrA        = "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf"
	addrB        = "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"
	addrC        = "0x3333333333333333333333333333333333333333"
	addrExternal = "0x1111111111111111111111111111111111111111"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMessage struct {
	Phone   string
	Message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Phone: phone, Message: message})
	return n.err
}

func (n *recordingNotifier) Sent() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []*domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.Event(nil), p.events...)
}

// harness wires the usecases to the memory ledger, the memory approval store,
// real signature verification and a static oracle.
type harness struct {
	clock     *fakeClock
	ledger    *memory.Ledger
	store     *memory.ApprovalStore
	prefs     *memory.PreferencesRepository
	txRepo    *memory.TransactionRepository
	oracle    *oracle.StaticOracle
	notifier  *recordingNotifier
	publisher *recordingPublisher
	metrics   *metrics.Metrics

	approvals     *usecase.ApprovalUseCase
	transfers     *usecase.TransferUseCase
	notifications *usecase.NotificationUseCase
}

type harnessOption func(*usecase.TransferConfig, *usecase.ApprovalConfig)

func withOracle(o usecase.PriceOracle) harnessOption {
	return func(tc *usecase.TransferConfig, ac *usecase.ApprovalConfig) {
		tc.Oracle = o
		ac.Oracle = o
	}
}

func withQuoteTimeout(d time.Duration) harnessOption {
	return func(tc *usecase.TransferConfig, ac *usecase.ApprovalConfig) {
		tc.QuoteTimeout = d
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		clock:     &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		ledger:    memory.NewLedger(),
		oracle:    oracle.NewStaticOracle(d("0.00045")),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	h.store = memory.NewApprovalStore(memory.WithClock(h.clock.Now))
	h.prefs = memory.NewPreferencesRepository(h.ledger)
	h.txRepo = memory.NewTransactionRepository(h.ledger)

	now := h.clock.Now()
	for _, a := range []*domain.Account{
		{ID: "w1-0", WalletID: "w1", Address: addrA, Label: "Account 1", Index: 0, Balance: d("2.0"), CreatedAt: now, UpdatedAt: now},
		{ID: "w1-1", WalletID: "w1", Address: addrB, Label: "Account 2", Index: 1, Balance: d("0"), CreatedAt: now, UpdatedAt: now},
		{ID: "w2-0", WalletID: "w2", Address: addrC, Label: "Account 1", Index: 0, Balance: d("1"), CreatedAt: now, UpdatedAt: now},
	} {
		h.ledger.AddAccount(a)
	}

	logger := zerolog.Nop()
	h.notifications = usecase.NewNotificationUseCase(h.prefs, h.notifier, h.metrics, logger)

	ac := usecase.ApprovalConfig{
		AccountRepo: h.ledger,
		Approvals:   h.store,
		Oracle:      h.oracle,
		Metrics:     h.metrics,
		Logger:      logger,
	}
	tc := usecase.TransferConfig{
		TxManager:       h.ledger,
		AccountRepo:     h.ledger,
		TransactionRepo: h.txRepo,
		Approvals:       h.store,
		Verifier:        ethsig.NewVerifier(),
		Oracle:          h.oracle,
		Guard:           usecase.NewPriceGuard(d("1")),
		Notifier:        h.notifications,
		Publisher:       h.publisher,
		Retrier:         &mocks.MockRetrier{},
		IDGen:           postgres.NewULIDGenerator(),
		Metrics:         h.metrics,
		Logger:          logger,
		Now:             h.clock.Now,
	}
	for _, opt := range opts {
		opt(&tc, &ac)
	}

	h.approvals = usecase.NewApprovalUseCase(ac)
	h.transfers = usecase.NewTransferUseCase(tc)
	t.Cleanup(h.transfers.Wait)

	return h
}

func (h *harness) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a, err := h.ledger.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}

func (h *harness) createEth(t *testing.T, from, to, amount string) *domain.PendingApproval {
	t.Helper()
	amt := d(amount)
	a, err := h.approvals.CreateApproval(context.Background(), usecase.CreateApprovalInput{
		FromAccountID: from,
		ToAddress:     to,
		AmountEth:     &amt,
	})
	require.NoError(t, err)
	return a
}

func (h *harness) createUsd(t *testing.T, from, to, amount string) *domain.PendingApproval {
	t.Helper()
	amt := d(amount)
	a, err := h.approvals.CreateApproval(context.Background(), usecase.CreateApprovalInput{
		FromAccountID: from,
		ToAddress:     to,
		AmountUsd:     &amt,
	})
	require.NoError(t, err)
	return a
}

func (h *harness) execute(t *testing.T, approval *domain.PendingApproval, key string) (*domain.TransactionRecord, error) {
	t.Helper()
	sig, err := ethsig.Sign(key, approval.Message)
	require.NoError(t, err)
	return h.transfers.ExecuteApproval(context.Background(), usecase.ExecuteApprovalInput{
		ApprovalID: approval.ID,
		Signature:  sig,
	})
}

var errBoom = errors.New("boom")
