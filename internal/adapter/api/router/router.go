package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kinmel/internal/adapter/api/handler"
	"kinmel/internal/adapter/api/middleware"
)

// Setup wires the gateway's HTTP surface: health, metrics, the chat
// websocket endpoint and the polling fallback for the agent dashboard.
// Websocket authentication happens inside the handler so query-param
// credentials work for upgrades.
func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, healthHandler *handler.HealthHandler, wsHandler *handler.WebSocketHandler, chatHandler *handler.ChatHandler) {
	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws/chat", wsHandler.HandleWebSocket)

	admin := e.Group("/api/admin", authMiddleware.Authenticate)
	admin.GET("/chat/rooms", chatHandler.ListOpenRooms)
}
