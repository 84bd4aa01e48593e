package dto

import (
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// UserResponse представляет пользователя в формате для клиента
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse содержит пользователя и выданный access-токен
type LoginResponse struct {
	User        *UserResponse `json:"user"`
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
}

// WSTicketResponse содержит одноразовый билет для WebSocket-подключения
type WSTicketResponse struct {
	Ticket string `json:"ticket"`
}

// NewUserResponse создает DTO для пользователя
func NewUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// NewLoginResponse создает DTO для результата входа
func NewLoginResponse(user *entity.User, accessToken string) *LoginResponse {
	return &LoginResponse{
		User:        NewUserResponse(user),
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
}
