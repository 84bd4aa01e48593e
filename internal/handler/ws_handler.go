package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/websocket"
	"github.com/yourusername/livequiz-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsHub       *websocket.Hub
	wsManager   *websocket.Manager
	coordinator *service.GameCoordinator
	jwtService  *auth.JWTService
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	coordinator *service.GameCoordinator,
	jwtService *auth.JWTService,
) *WSHandler {
	handler := &WSHandler{
		wsHub:       wsHub,
		wsManager:   wsManager,
		coordinator: coordinator,
		jwtService:  jwtService,
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()

	return handler
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Пустой Origin - не браузерный клиент (мобильное приложение, curl и т.д.)
		if origin == "" {
			return true
		}

		// Список разрешенных origin (синхронизирован с CORS в main.go)
		allowedOrigins := []string{
			"http://localhost:5173",
			"http://localhost:8000",
			"http://localhost:3000",
		}

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
		return false
	},
	EnableCompression: true,
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Аутентификация - по одноразовому билету (?ticket=...), принадлежность
// к сессии (?session_id=...) проверяется до апгрейда соединения.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем тикет - это секретные данные аутентификации
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.jwtService.ParseWSTicket(ticket)
	if err != nil {
		log.Printf("WebSocket: Invalid or expired ticket - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}

	sessionIDStr := c.Query("session_id")
	sessionID64, err := strconv.ParseUint(sessionIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id parameter"})
		return
	}
	sessionID := uint(sessionID64)

	// Подключаться к сессии могут только ее участники
	participant, err := h.coordinator.IsParticipant(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}

	log.Printf("WebSocket: Connection upgraded for UserID=%d SessionID=%d", claims.UserID, sessionID)

	client := websocket.NewClient(h.wsHub, conn, fmt.Sprintf("%d", claims.UserID), sessionID, participant.IsHost)

	// Запускаем прослушивание сообщений
	client.StartPumps(h.wsManager.HandleMessage)
}

// registerMessageHandlers регистрирует обработчики для различных типов сообщений
func (h *WSHandler) registerMessageHandlers() {
	// Ответ на текущий вопрос
	h.wsManager.RegisterHandler("user:answer", func(data json.RawMessage, client *websocket.Client) error {
		var answerEvent struct {
			QuestionID        uint   `json:"question_id"`
			SelectedAnswerIDs []uint `json:"selected_answer_ids"`
			ElapsedMs         int64  `json:"elapsed_ms"`
		}
		// Ошибка парсинга - фатальна
		if err := json.Unmarshal(data, &answerEvent); err != nil {
			log.Printf("[WSHandler] Ошибка парсинга user:answer: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse user:answer event")
			return err
		}

		userID := client.GetUserIDUint()
		if userID == 0 {
			h.wsManager.SendErrorToClient(client, "internal_error", "Invalid user ID format")
			return fmt.Errorf("invalid user id %q", client.UserID)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Ошибка фиксации не закрывает соединение: клиент получает
		// server:error и может продолжать игру
		if _, err := h.coordinator.SubmitAnswer(ctx, client.SessionID, userID, service.SubmitAnswerInput{
			QuestionID:        answerEvent.QuestionID,
			SelectedAnswerIDs: answerEvent.SelectedAnswerIDs,
			ClientElapsedMs:   answerEvent.ElapsedMs,
		}); err != nil {
			log.Printf("[WSHandler] Ошибка при фиксации ответа пользователя %d на вопрос %d: %v", userID, answerEvent.QuestionID, err)
			h.wsManager.SendErrorToClient(client, "answer_error", err.Error())
		}
		return nil
	})

	// Проверка соединения
	h.wsManager.RegisterHandler("user:heartbeat", func(data json.RawMessage, client *websocket.Client) error {
		heartbeatResponse := map[string]interface{}{
			"timestamp": time.Now().UnixMilli(),
		}
		if err := h.wsManager.SendToUserInSession(client.SessionID, client.UserID, "server:heartbeat", heartbeatResponse); err != nil {
			log.Printf("[WSHandler] WARNING: Ошибка при отправке server:heartbeat пользователю %s: %v", client.UserID, err)
		}
		return nil // Никогда не закрываем соединение из-за heartbeat
	})
}
