package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"checkout-service/internal/apperr"
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider event types the reconciler acts on; everything else is an
// accepted no-op so the provider never retries events we don't care about.
const (
	eventChargeSuccess = "charge.success"
	eventChargeFailed  = "charge.failed"
)

// WebhookService reconciles order payment state against asynchronous,
// at-least-once provider webhook deliveries
type WebhookService struct {
	orders    OrderStore
	publisher Publisher
	secretKey string
	logger    *zap.Logger
}

// NewWebhookService creates a new webhook reconciler with the shared
// secret injected at construction time
func NewWebhookService(orders OrderStore, publisher Publisher, secretKey string) *WebhookService {
	return &WebhookService{
		orders:    orders,
		publisher: publisher,
		secretKey: secretKey,
		logger:    util.GetLogger(),
	}
}

// paymentEvent is the inbound payload validated at the boundary.
// Unknown or malformed shapes route to the same ignore branch as
// irrelevant events.
type paymentEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Metadata  struct {
			OrderID     string `json:"orderId"`
			UserID      string `json:"userId"`
			OrderNumber string `json:"orderNumber"`
		} `json:"metadata"`
	} `json:"data"`
}

// Reconcile verifies the delivery and applies the idempotent payment
// transition to the matching order. rawBody must be the exact request
// bytes: any re-serialization before hashing invalidates the signature.
// Safe to invoke any number of times with the same payload.
func (ws *WebhookService) Reconcile(ctx context.Context, rawBody []byte, signature string) error {
	ctx, span := util.StartSpan(ctx, "WebhookService.Reconcile")
	defer span.End()

	if ws.secretKey == "" {
		return apperr.Configuration("payment provider secret key not configured")
	}

	if !gateway.VerifySignature(ws.secretKey, rawBody, signature) {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultForbidden).Inc()
		return apperr.Forbidden("invalid webhook signature")
	}

	var event paymentEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		ws.logger.Warn("Ignoring malformed webhook payload", zap.Error(err))
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultIgnored).Inc()
		return nil
	}

	switch event.Event {
	case eventChargeSuccess:
		return ws.applyChargeSuccess(ctx, &event)
	case eventChargeFailed:
		return ws.applyChargeFailed(ctx, &event)
	default:
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultIgnored).Inc()
		return nil
	}
}

func (ws *WebhookService) applyChargeSuccess(ctx context.Context, event *paymentEvent) error {
	orderID, ok := ws.correlate(event)
	if !ok {
		return nil
	}

	applied, err := ws.orders.MarkOrderPaid(ctx, orderID, event.Data.Reference)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultFailed).Inc()
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !applied {
		// Already paid, or the reference belongs to a superseded
		// initialization attempt. Either way, nothing to do.
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultNoMatch).Inc()
		return nil
	}

	util.WebhookEventsTotal.WithLabelValues(util.WebhookResultApplied).Inc()
	util.OrdersPaidTotal.Inc()
	ws.logger.Info("Order reconciled to paid",
		zap.Int64("order_id", orderID),
		zap.String("reference", event.Data.Reference))

	if ws.publisher != nil {
		paid := &models.OrderPaidEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPaid,
				Timestamp: time.Now(),
			},
			OrderID:   orderID,
			Reference: event.Data.Reference,
		}
		if err := ws.publisher.PublishOrderPaid(ctx, paid); err != nil {
			ws.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
		}
	}
	return nil
}

func (ws *WebhookService) applyChargeFailed(ctx context.Context, event *paymentEvent) error {
	orderID, ok := ws.correlate(event)
	if !ok {
		return nil
	}

	applied, err := ws.orders.MarkOrderPaymentFailed(ctx, orderID, event.Data.Reference)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultFailed).Inc()
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if !applied {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultNoMatch).Inc()
		return nil
	}

	util.WebhookEventsTotal.WithLabelValues(util.WebhookResultApplied).Inc()
	ws.logger.Warn("Order payment marked failed",
		zap.Int64("order_id", orderID),
		zap.String("reference", event.Data.Reference))

	if ws.publisher != nil {
		failed := &models.PaymentFailedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentFailed,
				Timestamp: time.Now(),
			},
			OrderID:   orderID,
			Reference: event.Data.Reference,
		}
		if err := ws.publisher.PublishPaymentFailed(ctx, failed); err != nil {
			ws.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
		}
	}
	return nil
}

// correlate extracts the order id carried in the round-tripped metadata.
// Events without a usable reference or order id cannot match any order
// and are counted as ignored.
func (ws *WebhookService) correlate(event *paymentEvent) (int64, bool) {
	if event.Data.Reference == "" || event.Data.Metadata.OrderID == "" {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultIgnored).Inc()
		return 0, false
	}

	orderID, err := strconv.ParseInt(event.Data.Metadata.OrderID, 10, 64)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookResultIgnored).Inc()
		return 0, false
	}
	return orderID, true
}
