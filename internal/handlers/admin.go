package handlers

import (
	"net/http"

	"boletera/internal/models"

	"github.com/gin-gonic/gin"
)

// Admin routes carry the shared secret as a path segment; the request
// logger only ever records the route template, never the raw URL.

// AdminListSold - GET /api/admin/:secret/sold
func (h *Handlers) AdminListSold(c *gin.Context) {
	tickets, err := h.services.Admin.ListSoldOrReserved(c.Request.Context(), c.Param("secret"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// AdminFinalizeDrawing - POST /api/admin/:secret/finalize-drawing
func (h *Handlers) AdminFinalizeDrawing(c *gin.Context) {
	var req models.FinalizeDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drawing, err := h.services.Admin.FinalizeDrawing(c.Request.Context(), c.Param("secret"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, drawing)
}

// AdminForceMarkPaid - POST /api/admin/:secret/:number/mark-paid
func (h *Handlers) AdminForceMarkPaid(c *gin.Context) {
	err := h.services.Admin.ForceMarkPaid(c.Request.Context(), c.Param("secret"), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// AdminForceRelease - POST /api/admin/:secret/:number/release
func (h *Handlers) AdminForceRelease(c *gin.Context) {
	err := h.services.Admin.ForceRelease(c.Request.Context(), c.Param("secret"), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// AdminForceMarkReserved - POST /api/admin/:secret/:number/mark-reserved
func (h *Handlers) AdminForceMarkReserved(c *gin.Context) {
	err := h.services.Admin.ForceMarkReserved(c.Request.Context(), c.Param("secret"), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// AdminResetDrawing - POST /api/admin/:secret/reset-drawing
// Out-of-band escape hatch, distinct from finalization.
func (h *Handlers) AdminResetDrawing(c *gin.Context) {
	err := h.services.Admin.ResetDrawing(c.Request.Context(), c.Param("secret"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}
