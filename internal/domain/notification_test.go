package domain

import (
	"errors"
	"testing"
)

func TestNotificationPreferences(t *testing.T) {
	t.Run("enabled without phone is invalid", func(t *testing.T) {
		p := &NotificationPreferences{Enabled: true}
		if err := p.Validate(); !errors.Is(err, ErrInvalidPhoneNumber) {
			t.Fatalf("expected ErrInvalidPhoneNumber, got %v", err)
		}
	})

	t.Run("disabled without phone is valid", func(t *testing.T) {
		p := &NotificationPreferences{}
		if err := p.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("direction flags", func(t *testing.T) {
		p := &NotificationPreferences{Enabled: true, PhoneNumber: "+14155550123", NotifyOutgoing: true}
		if !p.WantsOutgoing() {
			t.Error("expected outgoing")
		}
		if p.WantsIncoming() {
			t.Error("did not expect incoming")
		}

		var none *NotificationPreferences
		if none.WantsIncoming() || none.WantsOutgoing() {
			t.Error("nil preferences never notify")
		}
	})
}
