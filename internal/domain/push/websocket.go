package push

import (
	"log"
	"net/http"

	"casevault/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // origins are filtered by the CORS layer
}

// WSHandler upgrades staff dashboard connections onto the hub.
type WSHandler struct {
	hub *Hub
	jwt *jwt.Service
}

func NewWSHandler(hub *Hub, jwtService *jwt.Service) *WSHandler {
	return &WSHandler{hub: hub, jwt: jwtService}
}

// HandleWebSocket serves GET /ws/claims?token=JWT.
//
// Browsers cannot set headers on WebSocket upgrades, so the bearer token
// travels as a query parameter.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Token is required. Use ?token=YOUR_JWT_TOKEN",
		})
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid or expired token",
		})
		return
	}

	if claims.Role != "admin" && claims.Role != "moderator" {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Staff role required",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("push: upgrade failed: %v", err)
		return
	}

	log.Printf("push: viewer %d connected", claims.ViewerID)
	h.hub.ServeWS(conn, claims.ViewerID)
	log.Printf("push: viewer %d disconnected", claims.ViewerID)
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/claims", h.HandleWebSocket)
}
