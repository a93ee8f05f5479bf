package claim

import (
	"errors"
	"net/http"

	"casevault/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create serves POST /internal/claims, called by the game backend when a
// player files a claim.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created.Snapshot())
}

// Pending serves GET /claims/pending — the reconciliation snapshot.
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// Get serves GET /claims/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	cl, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cl.Snapshot())
}

// Approve serves POST /claims/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.resolveAction(c, func(id uuid.UUID, staffID int64) (*Claim, error) {
		return h.svc.Approve(c.Request.Context(), id, staffID)
	})
}

// Deny serves POST /claims/:id/deny.
func (h *Handler) Deny(c *gin.Context) {
	var req DenyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "admin_comment is required")
		return
	}

	h.resolveAction(c, func(id uuid.UUID, staffID int64) (*Claim, error) {
		return h.svc.Deny(c.Request.Context(), id, staffID, req.AdminComment)
	})
}

// Return serves POST /claims/:id/return.
func (h *Handler) Return(c *gin.Context) {
	var req struct {
		AdminComment string `json:"admin_comment"`
	}
	_ = c.ShouldBindJSON(&req)

	h.resolveAction(c, func(id uuid.UUID, staffID int64) (*Claim, error) {
		return h.svc.Return(c.Request.Context(), id, staffID, req.AdminComment)
	})
}

func (h *Handler) resolveAction(c *gin.Context, fn func(id uuid.UUID, staffID int64) (*Claim, error)) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	cl, err := fn(id, c.GetInt64("viewer_id"))
	if err != nil {
		// An already-resolved claim still returns its current state so the
		// acting client can roll its optimistic update back to the truth.
		if errors.Is(err, ErrAlreadyResolved) && cl != nil {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ALREADY_RESOLVED",
					"message": "Claim was already resolved",
				},
				"data": cl.Snapshot(),
			})
			return
		}
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, cl.Snapshot())
}

func (h *Handler) claimID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid claim ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Claim not found")
	case errors.Is(err, ErrAlreadyResolved):
		response.Error(c, http.StatusConflict, "ALREADY_RESOLVED", "Claim was already resolved")
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		c.Error(err) // logged by the error middleware
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
