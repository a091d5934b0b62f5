package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codit04/cypherd/internal/adapter/http/dto"
	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

// NotificationService defines the behavior needed by NotificationHandler.
type NotificationService interface {
	GetPreferences(ctx context.Context, walletID string) (*domain.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, input usecase.UpdatePreferencesInput) (*domain.NotificationPreferences, error)
	SendTestNotification(ctx context.Context, phone string) error
}

// NotificationHandler manages notification preferences.
type NotificationHandler struct {
	notificationUC NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationUC NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationUC: notificationUC}
}

// GetPreferences returns the preferences of a wallet.
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "id")

	prefs, err := h.notificationUC.GetPreferences(r.Context(), walletID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationPreferencesFromDomain(prefs))
}

// UpdatePreferences replaces the preferences of a wallet.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "id")

	var req dto.UpdateNotificationPreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prefs, err := h.notificationUC.UpdatePreferences(r.Context(), req.ToUseCaseInput(walletID))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationPreferencesFromDomain(prefs))
}

// SendTest sends a test message to a phone number.
func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req dto.TestNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.notificationUC.SendTestNotification(r.Context(), req.PhoneNumber); err != nil {
		status, code := mapDomainError(err)
		if status == http.StatusInternalServerError {
			status, code = http.StatusBadGateway, "notification_failed"
		}
		writeError(w, status, code, publicMessage(status, err), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
