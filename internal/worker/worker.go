package worker

import (
	"context"
	"encoding/json"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// AuditStore appends audit records; replays are dropped on event id
type AuditStore interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// AuditWorker consumes the order event stream and keeps an append-only
// audit trail of order lifecycle transitions
type AuditWorker struct {
	consumer *broker.Consumer
	store    AuditStore
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, store AuditStore) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		store:    store,
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

// auditedEvent pulls out the fields shared by every order event that is
// worth a trail entry
type auditedEvent struct {
	models.BaseEvent
	OrderID int64  `json:"order_id"`
	UserID  string `json:"user_id"`
}

func (w *AuditWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event auditedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Skipping unparseable event: %v", err)
		return nil
	}

	if event.EventID == "" || event.OrderID == 0 {
		return nil
	}

	entry := &models.AuditLog{
		EventID:   event.EventID,
		EventType: event.EventType,
		OrderID:   event.OrderID,
		UserID:    event.UserID,
		Detail:    string(msg.Value),
	}

	return w.store.InsertAuditLog(ctx, entry)
}
