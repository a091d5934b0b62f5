package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codit04/cypherd/internal/adapter/http/dto"
	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

type notificationServiceStub struct {
	getFn    func(ctx context.Context, walletID string) (*domain.NotificationPreferences, error)
	updateFn func(ctx context.Context, input usecase.UpdatePreferencesInput) (*domain.NotificationPreferences, error)
	testFn   func(ctx context.Context, phone string) error
}

func (s *notificationServiceStub) GetPreferences(ctx context.Context, walletID string) (*domain.NotificationPreferences, error) {
	return s.getFn(ctx, walletID)
}

func (s *notificationServiceStub) UpdatePreferences(ctx context.Context, input usecase.UpdatePreferencesInput) (*domain.NotificationPreferences, error) {
	return s.updateFn(ctx, input)
}

func (s *notificationServiceStub) SendTestNotification(ctx context.Context, phone string) error {
	return s.testFn(ctx, phone)
}

func TestNotificationHandler_GetPreferences(t *testing.T) {
	handler := NewNotificationHandler(&notificationServiceStub{
		getFn: func(ctx context.Context, walletID string) (*domain.NotificationPreferences, error) {
			if walletID == "w2" {
				return nil, domain.ErrPreferencesNotFound
			}
			return &domain.NotificationPreferences{WalletID: walletID, Enabled: true, PhoneNumber: "+14155550123"}, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/wallets/w1/notifications", nil), "id", "w1")
	rec := httptest.NewRecorder()
	handler.GetPreferences(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.NotificationPreferencesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.WalletID != "w1" || !resp.Enabled {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = setChiURLParam(httptest.NewRequest(http.MethodGet, "/wallets/w2/notifications", nil), "id", "w2")
	rec = httptest.NewRecorder()
	handler.GetPreferences(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNotificationHandler_UpdatePreferences(t *testing.T) {
	var captured usecase.UpdatePreferencesInput
	handler := NewNotificationHandler(&notificationServiceStub{
		updateFn: func(ctx context.Context, input usecase.UpdatePreferencesInput) (*domain.NotificationPreferences, error) {
			captured = input
			if input.PhoneNumber == "bad" {
				return nil, domain.ErrInvalidPhoneNumber
			}
			return &domain.NotificationPreferences{WalletID: input.WalletID, PhoneNumber: input.PhoneNumber, Enabled: input.Enabled}, nil
		},
	})

	body := `{"phone_number":"+14155550123","enabled":true,"notify_incoming":true,"notify_outgoing":false}`
	req := setChiURLParam(httptest.NewRequest(http.MethodPut, "/wallets/w1/notifications", strings.NewReader(body)), "id", "w1")
	rec := httptest.NewRecorder()
	handler.UpdatePreferences(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.WalletID != "w1" || !captured.NotifyIncoming || captured.NotifyOutgoing {
		t.Fatalf("unexpected input: %+v", captured)
	}

	req = setChiURLParam(httptest.NewRequest(http.MethodPut, "/wallets/w1/notifications", strings.NewReader(`{"phone_number":"bad","enabled":true}`)), "id", "w1")
	rec = httptest.NewRecorder()
	handler.UpdatePreferences(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNotificationHandler_SendTest(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"sent", nil, http.StatusOK},
		{"invalid phone", domain.ErrInvalidPhoneNumber, http.StatusBadRequest},
		{"delivery failed", errors.New("webhook down"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewNotificationHandler(&notificationServiceStub{
				testFn: func(ctx context.Context, phone string) error {
					if phone != "+14155550123" {
						t.Fatalf("unexpected phone %s", phone)
					}
					return tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/notifications/test", strings.NewReader(`{"phone_number":"+14155550123"}`))
			rec := httptest.NewRecorder()
			handler.SendTest(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
