package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/juani-castore/mozo-prototipo/internal/database"
	"github.com/juani-castore/mozo-prototipo/internal/domain"
	"github.com/juani-castore/mozo-prototipo/internal/service"
)

type Server struct {
	admission service.AdmissionService
	checkout  service.CheckoutService
	health    database.Service
	logger    *zap.Logger
	engine    *gin.Engine
}

func New(
	admission service.AdmissionService,
	checkout service.CheckoutService,
	health database.Service,
	allowedOrigins []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		admission: admission,
		checkout:  checkout,
		health:    health,
		logger:    logger.Named("http"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	engine.POST("/create-checkout", s.createCheckout)
	engine.POST("/confirm-payment", s.confirmPayment)
	engine.POST("/payment-webhook", s.paymentWebhook)
	engine.GET("/health", s.healthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type customerInfoRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email"`
	PickupTime string `json:"pickupTime"`
	Comments   string `json:"comments"`
}

type createCheckoutRequest struct {
	CorrelationToken string              `json:"correlationToken"`
	CustomerInfo     customerInfoRequest `json:"customerInfo" binding:"required"`
	// Cart emptiness and contents are validated by the checkout service.
	Cart []cartItemRequest `json:"cart"`
}

func (s *Server) createCheckout(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	cart := make([]service.CartItem, 0, len(req.Cart))
	for _, row := range req.Cart {
		cart = append(cart, service.CartItem{ProductID: row.ProductID, Quantity: row.Quantity})
	}

	result, err := s.checkout.CreateCheckout(c.Request.Context(), req.CorrelationToken, service.CustomerInfo{
		Name:       req.CustomerInfo.Name,
		Email:      req.CustomerInfo.Email,
		PickupTime: req.CustomerInfo.PickupTime,
		Comments:   req.CustomerInfo.Comments,
	}, cart)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCart),
			errors.Is(err, domain.ErrInvalidQuantity),
			errors.Is(err, domain.ErrProductNotFound):
			writeError(c, http.StatusBadRequest, "InvalidCart", err.Error())
		default:
			s.logger.Error("create_checkout_failed", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "Internal", "could not create checkout link")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkoutUrl":      result.CheckoutURL,
		"correlationToken": result.CorrelationToken,
	})
}

type confirmPaymentRequest struct {
	PaymentID        string `json:"paymentId" binding:"required"`
	CorrelationToken string `json:"correlationToken"`
}

func (s *Server) confirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	orderNumber, err := s.admission.Admit(c.Request.Context(), req.PaymentID, req.CorrelationToken)
	if err != nil {
		s.writeAdmissionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderNumber": orderNumber})
}

// webhookNotification is the provider's native push shape. data.id may come
// as a number or a string depending on the event source.
type webhookNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID jsonID `json:"id"`
	} `json:"data"`
}

// paymentWebhook acknowledges with 200 every outcome that a provider retry
// could not improve; only transient infrastructure failures return 5xx.
func (s *Server) paymentWebhook(c *gin.Context) {
	var note webhookNotification
	if err := c.ShouldBindJSON(&note); err != nil {
		// Malformed notifications will not get better on redelivery.
		c.Status(http.StatusOK)
		return
	}
	if note.Type != "payment" || note.Data.ID == "" {
		c.Status(http.StatusOK)
		return
	}

	orderNumber, err := s.admission.Admit(c.Request.Context(), string(note.Data.ID), "")
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotApproved):
			c.Status(http.StatusOK)
		case errors.Is(err, domain.ErrOrderContentMissing):
			// Surfaced via logs/metrics inside the admission service; a
			// retry cannot recover a lost staging record.
			c.Status(http.StatusOK)
		default:
			s.logger.Error("webhook_admission_failed",
				zap.String("payment_id", string(note.Data.ID)),
				zap.Error(err),
			)
			c.Status(http.StatusServiceUnavailable)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderNumber": orderNumber})
}

func (s *Server) healthCheck(c *gin.Context) {
	stats := s.health.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

func (s *Server) writeAdmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPaymentNotApproved):
		writeError(c, http.StatusPaymentRequired, "PaymentNotApproved", err.Error())
	case errors.Is(err, domain.ErrOrderContentMissing):
		writeError(c, http.StatusNotFound, "OrderContentMissing", err.Error())
	case errors.Is(err, domain.ErrPaymentProviderUnavailable):
		writeError(c, http.StatusServiceUnavailable, "PaymentProviderUnavailable", err.Error())
	default:
		s.logger.Error("admission_failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal", "could not confirm payment")
	}
}

func writeError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{"errorKind": kind, "message": message})
}
