package shared

// EventType names the domain event carried by an outbox row
type EventType string

const (
	EventTypeTransactionCreated       EventType = "TRANSACTION_CREATED"
	EventTypeTransactionStatusUpdated EventType = "TRANSACTION_STATUS_UPDATED"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
