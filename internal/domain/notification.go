package domain

import "time"

// NotificationPreferences controls which transfer messages a wallet receives.
type NotificationPreferences struct {
	WalletID       string
	PhoneNumber    string
	Enabled        bool
	NotifyIncoming bool
	NotifyOutgoing bool
	NotifySecurity bool
	UpdatedAt      time.Time
}

// Validate checks the phone number when notifications are enabled.
func (p *NotificationPreferences) Validate() error {
	if p.Enabled || p.PhoneNumber != "" {
		return ValidatePhoneNumber(p.PhoneNumber)
	}
	return nil
}

// WantsOutgoing reports whether the wallet is notified about its own sends.
func (p *NotificationPreferences) WantsOutgoing() bool {
	return p != nil && p.Enabled && p.NotifyOutgoing && p.PhoneNumber != ""
}

// WantsIncoming reports whether the wallet is notified about received funds.
func (p *NotificationPreferences) WantsIncoming() bool {
	return p != nil && p.Enabled && p.NotifyIncoming && p.PhoneNumber != ""
}
