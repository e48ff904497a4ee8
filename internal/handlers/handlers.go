package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "boletera/internal/errors"
	"boletera/internal/models"
	"boletera/internal/service"
	"boletera/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
	proofs   *storage.ProofStorage
}

func NewHandlers(services *service.Services, proofs *storage.ProofStorage) *Handlers {
	return &Handlers{
		services: services,
		proofs:   proofs,
	}
}

// respondError maps domain errors onto the HTTP taxonomy. Unknown errors
// are logged with context and returned as an opaque 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidNumber),
		errors.Is(err, apperrors.ErrMissingBuyerFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotAvailable),
		errors.Is(err, apperrors.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAccessDenied):
		// Deliberately opaque: reveals nothing about the route or ticket.
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, apperrors.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case errors.Is(err, apperrors.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
	default:
		slog.Error("Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ListTickets - GET /api/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	tickets, err := h.services.Tickets.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// GetTicket - GET /api/tickets/:number
func (h *Handlers) GetTicket(c *gin.Context) {
	ticket, err := h.services.Tickets.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// BuyTicket - POST /api/tickets/:number/buy
// Multipart form: name, phone, and an optional payment-proof image. A
// buy without proof reserves the ticket; a buy with proof marks it paid
// directly.
func (h *Handlers) BuyTicket(c *gin.Context) {
	var req models.BuyTicketRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proofURL := ""
	if file, err := c.FormFile("proof"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read proof upload"})
			return
		}
		defer src.Close()

		proofURL, err = h.proofs.Save(file.Filename, src)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	resp, err := h.services.Tickets.Buy(c.Request.Context(), c.Param("number"), &req, proofURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats - GET /api/tickets/stats
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.services.Tickets.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPublicResults - GET /api/tickets/results
func (h *Handlers) GetPublicResults(c *gin.Context) {
	results, err := h.services.Admin.PublicResults(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetDrawingStatus - GET /api/tickets/drawing
func (h *Handlers) GetDrawingStatus(c *gin.Context) {
	drawing, err := h.services.Admin.DrawingStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, drawing)
}
