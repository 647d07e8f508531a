package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"kinmel/internal/domain/repository"
	"kinmel/internal/infrastructure/firebase"
	ws "kinmel/internal/infrastructure/websocket"
	"kinmel/pkg/errors"
	"kinmel/pkg/logger"
	"kinmel/pkg/response"
)

type WebSocketHandler struct {
	wsManager    *ws.Manager
	eventHandler *ws.EventHandler
	verifier     firebase.TokenVerifier
	userRepo     repository.UserRepository
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, eventHandler *ws.EventHandler, verifier firebase.TokenVerifier, userRepo repository.UserRepository) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:    wsManager,
		eventHandler: eventHandler,
		verifier:     verifier,
		userRepo:     userRepo,
	}
}

// HandleWebSocket authenticates the handshake and hands the connection to
// the manager. Rejections happen before the upgrade: the caller never gets a
// session it could subscribe with.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return response.Error(c, errors.AuthRequired())
	}

	ctx := c.Request().Context()

	userID, err := h.verifier.VerifyToken(ctx, token)
	if err != nil {
		return response.Error(c, errors.InvalidCredential(err))
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return response.Error(c, errors.UserUnavailable(err))
	}
	if !user.Active {
		return response.Error(c, errors.UserUnavailable(nil))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("websocket: upgrade failed for user %s: %v", userID, err)
		return err
	}

	client := &ws.Client{
		Session: ws.Session{
			ConnID: uuid.New().String(),
			UserID: user.ID,
			Role:   user.Role,
		},
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.wsManager.Register(client)

	go client.ReadPump(h.wsManager, h.eventHandler)
	go client.WritePump()

	return nil
}

// bearerToken pulls the credential from the Authorization header, falling
// back to the token query param browsers and mobile clients use for
// websocket upgrades.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.QueryParam("token")
}
