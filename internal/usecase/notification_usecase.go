package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
)

const messageFooter = "_Mock Web3 Wallet_"

// NotificationUseCase manages notification preferences and transfer messages.
type NotificationUseCase struct {
	prefsRepo NotificationPreferencesRepository
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewNotificationUseCase creates a new NotificationUseCase.
func NewNotificationUseCase(prefsRepo NotificationPreferencesRepository, notifier Notifier, m *metrics.Metrics, logger zerolog.Logger) *NotificationUseCase {
	return &NotificationUseCase{
		prefsRepo: prefsRepo,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.With().Str("component", "notifications").Logger(),
		now:       time.Now,
	}
}

// NotifyTransfer tells the sender and a known recipient about a settled transfer.
// Failures are logged and never returned.
func (uc *NotificationUseCase) NotifyTransfer(ctx context.Context, record *domain.TransactionRecord, sender, recipient *domain.Account) {
	if record == nil || sender == nil {
		return
	}

	if prefs := uc.preferences(ctx, sender.WalletID); prefs.WantsOutgoing() {
		kind := domain.TransactionTypeSend
		if record.Type == domain.TransactionTypeInternal {
			kind = domain.TransactionTypeInternal
		}
		uc.send(ctx, prefs.PhoneNumber, record, FormatTransferMessage(kind, record))
	}

	if recipient == nil {
		return
	}

	if prefs := uc.preferences(ctx, recipient.WalletID); prefs.WantsIncoming() {
		kind := domain.TransactionTypeReceive
		if record.Type == domain.TransactionTypeInternal {
			kind = domain.TransactionTypeInternal
		}
		uc.send(ctx, prefs.PhoneNumber, record, FormatTransferMessage(kind, record))
	}
}

func (uc *NotificationUseCase) preferences(ctx context.Context, walletID string) *domain.NotificationPreferences {
	if walletID == "" {
		return nil
	}
	prefs, err := uc.prefsRepo.GetByWalletID(ctx, walletID)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferencesNotFound) {
			uc.logger.Warn().Err(err).Str("wallet_id", walletID).Msg("failed to load notification preferences")
		}
		return nil
	}
	return prefs
}

func (uc *NotificationUseCase) send(ctx context.Context, phone string, record *domain.TransactionRecord, message string) {
	if uc.notifier == nil {
		return
	}

	err := uc.notifier.Notify(ctx, phone, message)
	if uc.metrics != nil {
		uc.metrics.NotificationsSent.WithLabelValues(outcome(err)).Inc()
	}
	if err != nil {
		uc.logger.Error().Err(err).Str("transaction_id", record.ID).Msg("failed to send transfer notification")
		return
	}
	uc.logger.Debug().Str("transaction_id", record.ID).Msg("transfer notification sent")
}

// GetPreferences returns the preferences of a wallet.
func (uc *NotificationUseCase) GetPreferences(ctx context.Context, walletID string) (*domain.NotificationPreferences, error) {
	return uc.prefsRepo.GetByWalletID(ctx, walletID)
}

// UpdatePreferencesInput represents a full replacement of a wallet's preferences.
type UpdatePreferencesInput struct {
	WalletID       string
	PhoneNumber    string
	Enabled        bool
	NotifyIncoming bool
	NotifyOutgoing bool
	NotifySecurity bool
}

// UpdatePreferences validates and stores the preferences of a wallet.
func (uc *NotificationUseCase) UpdatePreferences(ctx context.Context, input UpdatePreferencesInput) (*domain.NotificationPreferences, error) {
	prefs := &domain.NotificationPreferences{
		WalletID:       input.WalletID,
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		Enabled:        input.Enabled,
		NotifyIncoming: input.NotifyIncoming,
		NotifyOutgoing: input.NotifyOutgoing,
		NotifySecurity: input.NotifySecurity,
		UpdatedAt:      uc.now().UTC(),
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	if err := uc.prefsRepo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}

	uc.logger.Info().Str("wallet_id", prefs.WalletID).Bool("enabled", prefs.Enabled).Msg("notification preferences updated")
	return prefs, nil
}

// SendTestNotification delivers a fixed message so a user can check their number.
func (uc *NotificationUseCase) SendTestNotification(ctx context.Context, phone string) error {
	if err := domain.ValidatePhoneNumber(phone); err != nil {
		return err
	}
	if uc.notifier == nil {
		return errors.New("no notifier configured")
	}

	msg := "✅ *Test Notification*\n\nYour notifications are configured correctly!\n\n" + messageFooter
	err := uc.notifier.Notify(ctx, phone, msg)
	if uc.metrics != nil {
		uc.metrics.NotificationsSent.WithLabelValues(outcome(err)).Inc()
	}
	return err
}

// FormatTransferMessage renders the text sent for a transfer as seen by one side.
func FormatTransferMessage(kind domain.TransactionType, record *domain.TransactionRecord) string {
	var b strings.Builder

	switch kind {
	case domain.TransactionTypeSend:
		b.WriteString("🔴 *Transaction Sent*\n\n")
		fmt.Fprintf(&b, "Amount: %s ETH\n", record.Amount.String())
		fmt.Fprintf(&b, "To: %s\n", shortAddress(record.ToAddress))
		fmt.Fprintf(&b, "From: %s\n", shortAddress(record.FromAddress))
	case domain.TransactionTypeReceive:
		b.WriteString("🟢 *Transaction Received*\n\n")
		fmt.Fprintf(&b, "Amount: %s ETH\n", record.Amount.String())
		fmt.Fprintf(&b, "From: %s\n", shortAddress(record.FromAddress))
		fmt.Fprintf(&b, "To: %s\n", shortAddress(record.ToAddress))
	default:
		b.WriteString("🔄 *Internal Transfer*\n\n")
		fmt.Fprintf(&b, "Amount: %s ETH\n", record.Amount.String())
		fmt.Fprintf(&b, "From: %s\n", shortAddress(record.FromAddress))
		fmt.Fprintf(&b, "To: %s\n", shortAddress(record.ToAddress))
	}

	fmt.Fprintf(&b, "TX ID: %s\n", shortID(record.ID))
	if record.Memo != "" {
		fmt.Fprintf(&b, "Memo: %s\n", record.Memo)
	}
	b.WriteString("\n" + messageFooter)

	return b.String()
}

func shortAddress(addr string) string {
	if len(addr) <= 18 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-8:]
}

func shortID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "..."
}
