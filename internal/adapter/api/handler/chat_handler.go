package handler

import (
	"github.com/labstack/echo/v4"

	"kinmel/internal/domain/repository"
	"kinmel/internal/usecase"
	"kinmel/pkg/errors"
	"kinmel/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
	userRepo    repository.UserRepository
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, userRepo repository.UserRepository) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
		userRepo:    userRepo,
	}
}

// ListOpenRooms serves the admin dashboard's room queue over plain HTTP, for
// clients that poll instead of holding a socket open.
func (h *ChatHandler) ListOpenRooms(c echo.Context) error {
	uid := c.Get("uid").(string)

	user, err := h.userRepo.GetByID(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, errors.UserUnavailable(err))
	}

	rooms, err := h.chatUseCase.ListOpenRooms(c.Request().Context(), user.Role)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, rooms)
}
