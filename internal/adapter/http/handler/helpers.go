package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/codit04/cypherd/internal/adapter/http/dto"
	"github.com/codit04/cypherd/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// writeDomainError maps err to a status and an error body.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := mapDomainError(err)
	writeError(w, status, code, publicMessage(status, err), errorDetails(err))
}

// publicMessage keeps server-side failure causes out of 5xx bodies; they are logged instead.
func publicMessage(status int, err error) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	log.Error().Err(err).Int("status", status).Msg("request failed")
	return http.StatusText(status)
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrApprovalNotFound):
		return http.StatusNotFound, "approval_not_found"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound, "transaction_not_found"
	case errors.Is(err, domain.ErrPreferencesNotFound):
		return http.StatusNotFound, "preferences_not_found"
	case errors.Is(err, domain.ErrApprovalExpired):
		return http.StatusGone, "approval_expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, domain.ErrPriceDrift):
		return http.StatusConflict, "price_drift"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountDenomination),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidMemo),
		errors.Is(err, domain.ErrMemoTooLong),
		errors.Is(err, domain.ErrInvalidPhoneNumber):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway, "upstream_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorDetails exposes the numbers behind balance and price rejections.
func errorDetails(err error) map[string]string {
	var balErr *domain.InsufficientBalanceError
	if errors.As(err, &balErr) {
		return map[string]string{
			"available": balErr.Available.String(),
			"required":  balErr.Required.String(),
		}
	}

	var driftErr *domain.PriceDriftError
	if errors.As(err, &driftErr) {
		return map[string]string{
			"original":          driftErr.Original.String(),
			"current":           driftErr.Current.String(),
			"delta_percent":     driftErr.DeltaPercent.StringFixed(4),
			"tolerance_percent": driftErr.TolerancePercent.String(),
		}
	}

	return nil
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
