package handlers

import (
	"io"
	"net/http"

	"boletera/internal/models"

	"github.com/gin-gonic/gin"
)

// CreatePaymentIntent - POST /api/payments/intent
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	var req models.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.services.Payments.CreateIntent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayment - GET /api/payments/:transactionId
func (h *Handlers) GetPayment(c *gin.Context) {
	payment, err := h.services.Payments.GetByTransactionID(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// PaymentWebhook - POST /api/webhooks/payment
// The body stays raw so the signature can be verified over the exact
// bytes the gateway sent. Only a signature failure is reported back as a
// non-success status; everything else is acknowledged.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	if err := h.services.Payments.HandleNotification(c.Request.Context(), body); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
