package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/apperr"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Retries for the rare order-number uniqueness collision. Each retry
// rolls a fresh suffix inside the service.
const orderNumberRetries = 3

const signatureHeader = "x-paystack-signature"

// Handler contains HTTP handlers
type Handler struct {
	orderService    *service.OrderService
	paymentService  *service.PaymentService
	webhookService  *service.WebhookService
	shippingService *service.ShippingService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	webhookService *service.WebhookService,
	shippingService *service.ShippingService,
) *Handler {
	return &Handler{
		orderService:    orderService,
		paymentService:  paymentService,
		webhookService:  webhookService,
		shippingService: shippingService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id", h.updateOrder)
		v1.POST("/orders/:id/payment", h.initializePayment)
		v1.POST("/payments/webhook", h.paymentWebhook)
		v1.POST("/shipping/estimate", h.shippingEstimate)
		v1.GET("/shipping/cost", h.currentShippingCost)
		v1.POST("/shipping/rates", h.createShippingRate)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// customerID extracts the authenticated customer identity set by the
// upstream gateway. Session issuance happens outside this service.
func customerID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader("X-Customer-ID"))
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing customer identity"})
		return "", false
	}
	return id, true
}

// createOrder materializes cart lines into an order
func (h *Handler) createOrder(c *gin.Context) {
	userID, ok := customerID(c)
	if !ok {
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var lastErr error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		order, err := h.orderService.CreateOrder(c.Request.Context(), userID, &req)
		if err == nil {
			c.JSON(http.StatusCreated, gin.H{"order": order})
			return
		}
		lastErr = err
		if !errors.Is(err, store.ErrDuplicateOrderNumber) {
			break
		}
	}
	respondError(c, lastErr)
}

// listOrders handles the customer-scoped order listing
func (h *Handler) listOrders(c *gin.Context) {
	userID, ok := customerID(c)
	if !ok {
		return
	}

	filter := store.OrderFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	if v := c.Query("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date"})
			return
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date"})
			return
		}
		filter.EndDate = &t
	}

	result, err := h.orderService.ListOrders(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	userID, ok := customerID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// updateOrder handles fulfillment-side updates (admin path; admin
// authentication is enforced upstream)
func (h *Handler) updateOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req service.UpdateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.UpdateFulfillment(c.Request.Context(), orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// initializePayment opens a hosted payment transaction for an order
func (h *Handler) initializePayment(c *gin.Context) {
	userID, ok := customerID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	result, err := h.paymentService.InitializePayment(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// paymentWebhook receives provider payment notifications. The exact raw
// request bytes feed signature verification; re-serializing the body
// first would invalidate the signature.
func (h *Handler) paymentWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	signature := c.GetHeader(signatureHeader)
	if err := h.webhookService.Reconcile(c.Request.Context(), rawBody, signature); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
}

type shippingEstimateRequest struct {
	CartItemIDs []int64 `json:"cart_item_ids"`
}

// shippingEstimate returns the pre-checkout shipping cost
func (h *Handler) shippingEstimate(c *gin.Context) {
	userID, ok := customerID(c)
	if !ok {
		return
	}

	var req shippingEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	cost, err := h.shippingService.Estimate(c.Request.Context(), userID, req.CartItemIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipping_cost": cost})
}

// currentShippingCost returns the configured flat cost
func (h *Handler) currentShippingCost(c *gin.Context) {
	cost, err := h.shippingService.CurrentCost(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost})
}

type createShippingRateRequest struct {
	Name string `json:"name"`
	Cost int64  `json:"cost" binding:"required"`
}

// createShippingRate stores a new flat cost (admin path)
func (h *Handler) createShippingRate(c *gin.Context) {
	var req createShippingRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	rate, err := h.shippingService.SetRate(c.Request.Context(), req.Name, req.Cost)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rate": rate})
}

// respondError maps classified service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUpstream:
		status = http.StatusBadGateway
	case apperr.KindConfiguration:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
