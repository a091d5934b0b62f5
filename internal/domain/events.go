package domain

import "time"

// Event types
const (
	EventTypeTransactionCompleted = "transaction.completed"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
)

// Event is a domain event handed to a publisher after commit.
type Event struct {
	ID            string         `json:"id"`
	AggregateID   string         `json:"aggregate_id"`
	AggregateType string         `json:"aggregate_type"`
	EventType     string         `json:"event_type"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TransactionCompletedEvent payload
type TransactionCompletedEvent struct {
	TransactionID string `json:"transaction_id"`
	ApprovalID    string `json:"approval_id"`
	FromAddress   string `json:"from_address"`
	ToAddress     string `json:"to_address"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	CreatedAt     string `json:"created_at"`
}

// NewTransactionCompletedEvent builds the event for a settled transaction.
func NewTransactionCompletedEvent(id string, rec *TransactionRecord) *Event {
	return &Event{
		ID:            id,
		AggregateID:   rec.ID,
		AggregateType: AggregateTypeTransaction,
		EventType:     EventTypeTransactionCompleted,
		Payload: map[string]any{
			"transaction_id": rec.ID,
			"approval_id":    rec.ApprovalID,
			"from_address":   rec.FromAddress,
			"to_address":     rec.ToAddress,
			"amount":         rec.Amount.String(),
			"type":           string(rec.Type),
			"created_at":     rec.CreatedAt.Format(time.RFC3339Nano),
		},
		CreatedAt: rec.CreatedAt,
	}
}
