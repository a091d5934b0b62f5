package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/codit04/cypherd/internal/domain"
)

const getPreferencesByWallet = `SELECT wallet_id, phone_number, enabled, notify_incoming, notify_outgoing, notify_security, updated_at
FROM notification_preferences WHERE wallet_id = $1`

const upsertPreferences = `INSERT INTO notification_preferences
	(wallet_id, phone_number, enabled, notify_incoming, notify_outgoing, notify_security, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (wallet_id) DO UPDATE SET
	phone_number = EXCLUDED.phone_number,
	enabled = EXCLUDED.enabled,
	notify_incoming = EXCLUDED.notify_incoming,
	notify_outgoing = EXCLUDED.notify_outgoing,
	notify_security = EXCLUDED.notify_security,
	updated_at = EXCLUDED.updated_at`

// NotificationPreferencesRepository implements usecase.NotificationPreferencesRepository.
type NotificationPreferencesRepository struct {
	db DBTX
}

// NewNotificationPreferencesRepository creates a new NotificationPreferencesRepository.
func NewNotificationPreferencesRepository(db DBTX) *NotificationPreferencesRepository {
	return &NotificationPreferencesRepository{db: db}
}

// GetByWalletID retrieves the preferences of a wallet.
func (r *NotificationPreferencesRepository) GetByWalletID(ctx context.Context, walletID string) (*domain.NotificationPreferences, error) {
	var p domain.NotificationPreferences

	err := r.db.QueryRow(ctx, getPreferencesByWallet, walletID).Scan(
		&p.WalletID, &p.PhoneNumber, &p.Enabled, &p.NotifyIncoming, &p.NotifyOutgoing, &p.NotifySecurity, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPreferencesNotFound
		}

		return nil, err
	}

	return &p, nil
}

// Upsert creates or replaces the preferences of a wallet.
func (r *NotificationPreferencesRepository) Upsert(ctx context.Context, prefs *domain.NotificationPreferences) error {
	_, err := r.db.Exec(ctx, upsertPreferences,
		prefs.WalletID, prefs.PhoneNumber, prefs.Enabled,
		prefs.NotifyIncoming, prefs.NotifyOutgoing, prefs.NotifySecurity, prefs.UpdatedAt)

	return err
}
