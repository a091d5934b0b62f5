package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codit04/cypherd/internal/adapter/http/dto"
	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

// ApprovalService defines the approval operations needed by ApprovalHandler.
type ApprovalService interface {
	CreateApproval(ctx context.Context, input usecase.CreateApprovalInput) (*domain.PendingApproval, error)
	GetApproval(ctx context.Context, id string) (*domain.PendingApproval, error)
	SweepExpired(ctx context.Context) (int, error)
}

// TransferService defines the execution step needed by ApprovalHandler.
type TransferService interface {
	ExecuteApproval(ctx context.Context, input usecase.ExecuteApprovalInput) (*domain.TransactionRecord, error)
}

// ApprovalHandler handles the approve-then-execute flow.
type ApprovalHandler struct {
	approvalUC ApprovalService
	transferUC TransferService
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(approvalUC ApprovalService, transferUC TransferService) *ApprovalHandler {
	return &ApprovalHandler{approvalUC: approvalUC, transferUC: transferUC}
}

// Create mints a pending approval for the client to sign.
func (h *ApprovalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	approval, err := h.approvalUC.CreateApproval(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ApprovalFromDomain(approval))
}

// Get returns a live approval without consuming it.
func (h *ApprovalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing approval ID", nil)
		return
	}

	approval, err := h.approvalUC.GetApproval(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ApprovalFromDomain(approval))
}

// Execute settles a signed approval.
func (h *ApprovalHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing approval ID", nil)
		return
	}

	var req dto.ExecuteApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Signature == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "signature is required", nil)
		return
	}

	record, err := h.transferUC.ExecuteApproval(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(record))
}

// Sweep removes expired approvals on demand.
func (h *ApprovalHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.approvalUC.SweepExpired(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SweepResponse{Removed: n})
}
