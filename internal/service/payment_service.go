package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"checkout-service/config"
	"checkout-service/internal/apperr"
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService drives materialized orders through the external
// payment provider
type PaymentService struct {
	orders    OrderStore
	gateway   PaymentGateway
	publisher Publisher
	cfg       config.PaymentConfig
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service. The provider
// credentials are injected here, never read from the environment at
// call time.
func NewPaymentService(orders OrderStore, gw PaymentGateway, publisher Publisher, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{
		orders:    orders,
		gateway:   gw,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// PaymentInitResult carries the hosted-payment redirect for the buyer
type PaymentInitResult struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// InitializePayment opens a hosted payment transaction for an order.
// Already-paid orders short-circuit to the stored authorization data
// without another provider call. Each fresh attempt gets its own
// reference, so a webhook for a superseded attempt cannot match.
func (ps *PaymentService) InitializePayment(ctx context.Context, customerID string, orderID int64) (*PaymentInitResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitializePayment")
	defer span.End()

	order, err := ps.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	if !sameOwner(order.UserID, customerID) {
		return nil, apperr.Forbidden("you are not authorized to pay for this order")
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return &PaymentInitResult{
			AuthorizationURL: order.PaymentAuthorizationURL,
			Reference:        order.PaymentReference,
		}, nil
	}

	if ps.cfg.SecretKey == "" {
		return nil, apperr.Configuration("payment provider secret key not configured")
	}

	util.PaymentInitAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentInitLatency.Observe(time.Since(start).Seconds())
	}()

	email := order.ContactEmail
	if email == "" {
		email = ps.cfg.FallbackEmail
	}

	reference := fmt.Sprintf("%s-%s-%d", ps.cfg.ReferencePrefix, order.OrderNumber, time.Now().UnixMilli())

	result, err := ps.gateway.InitializeTransaction(ctx, gateway.InitializeRequest{
		// Provider expects the amount in its minor currency unit
		Amount:    order.TotalAmount * 100,
		Email:     email,
		Reference: reference,
		Currency:  ps.cfg.Currency,
		Metadata: gateway.TxMetadata{
			OrderID:     strconv.FormatInt(order.ID, 10),
			UserID:      customerID,
			OrderNumber: order.OrderNumber,
		},
	})
	if err != nil {
		util.PaymentInitFailedTotal.WithLabelValues("provider_error").Inc()
		return nil, apperr.Upstream("unable to initialize payment", err)
	}

	if err := ps.orders.SetPaymentInitiated(ctx, order.ID, ps.cfg.Provider, reference, result.AuthorizationURL); err != nil {
		util.PaymentInitFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("persist payment initiation: %w", err)
	}

	ps.logger.Info("Payment initialized",
		zap.Int64("order_id", order.ID),
		zap.String("reference", reference))

	if ps.publisher != nil {
		event := &models.PaymentInitiatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentInitiated,
				Timestamp: time.Now(),
			},
			OrderID:   order.ID,
			UserID:    order.UserID,
			Provider:  ps.cfg.Provider,
			Reference: reference,
			Amount:    order.TotalAmount,
		}
		if err := ps.publisher.PublishPaymentInitiated(ctx, event); err != nil {
			ps.logger.Error("Failed to publish PaymentInitiated event", zap.Error(err))
		}
	}

	return &PaymentInitResult{
		AuthorizationURL: result.AuthorizationURL,
		Reference:        reference,
	}, nil
}
