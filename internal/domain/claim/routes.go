package claim

import "github.com/gin-gonic/gin"

// RegisterStaffRoutes mounts the staff-facing claim endpoints. The caller
// is expected to wrap the group with auth + role middleware; actions may
// additionally be rate limited.
func (h *Handler) RegisterStaffRoutes(r gin.IRouter, actions ...gin.HandlerFunc) {
	claims := r.Group("/claims")
	{
		claims.GET("/pending", h.Pending)
		claims.GET("/:id", h.Get)

		act := claims.Group("/", actions...)
		{
			act.POST("/:id/approve", h.Approve)
			act.POST("/:id/deny", h.Deny)
			act.POST("/:id/return", h.Return)
		}
	}
}

// RegisterInternalRoutes mounts the game-backend endpoints.
func (h *Handler) RegisterInternalRoutes(r gin.IRouter) {
	r.POST("/claims", h.Create)
}
