package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/service"
)

// GameHandler обрабатывает запросы жизненного цикла игровых сессий
type GameHandler struct {
	coordinator *service.GameCoordinator
}

// NewGameHandler создает новый обработчик игровых сессий
func NewGameHandler(coordinator *service.GameCoordinator) *GameHandler {
	return &GameHandler{coordinator: coordinator}
}

// CreateSessionRequest представляет запрос на создание сессии
type CreateSessionRequest struct {
	QuizID   uint   `json:"quiz_id" binding:"required"`
	Nickname string `json:"nickname" binding:"required,min=1,max=50"`
}

// CreateSession создает сессию по викторине; создатель становится ведущим
func (h *GameHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uint)

	session, participant, err := h.coordinator.CreateSession(c.Request.Context(), req.QuizID, userID, req.Nickname)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.JoinSessionResponse{
		Session:     dto.NewSessionResponse(session),
		Participant: dto.NewParticipantResponse(participant),
	})
}

// JoinSessionRequest представляет запрос на вход в сессию по коду
type JoinSessionRequest struct {
	Code     string `json:"code" binding:"required,min=4,max=10"`
	Nickname string `json:"nickname" binding:"required,min=1,max=50"`
}

// JoinSession впускает участника в зал ожидания по коду сессии.
// Повторный вход того же пользователя идемпотентен.
func (h *GameHandler) JoinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uint)
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	session, participant, err := h.coordinator.JoinSession(c.Request.Context(), code, userID, req.Nickname)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.JoinSessionResponse{
		Session:     dto.NewSessionResponse(session),
		Participant: dto.NewParticipantResponse(participant),
	})
}

// StartSession запускает игру. Доступно только ведущему.
func (h *GameHandler) StartSession(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)
	userID := c.MustGet("user_id").(uint)

	if err := h.coordinator.StartSession(c.Request.Context(), sessionID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// AdvanceQuestion переводит сессию к следующему вопросу. Доступно только
// ведущему; на последнем вопросе завершает игру.
func (h *GameHandler) AdvanceQuestion(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)
	userID := c.MustGet("user_id").(uint)

	if err := h.coordinator.AdvanceQuestion(c.Request.Context(), sessionID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "advanced"})
}

// EndSession досрочно завершает игру. Доступно только ведущему.
func (h *GameHandler) EndSession(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)
	userID := c.MustGet("user_id").(uint)

	if err := h.coordinator.EndSession(c.Request.Context(), sessionID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "finished"})
}

// GetState возвращает согласованный снимок состояния сессии.
// Используется поллинг-клиентами и при восстановлении после обрыва связи.
func (h *GameHandler) GetState(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)

	snapshot, err := h.coordinator.GetSnapshot(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetCurrentQuestion возвращает текущий вопрос без признаков правильности
func (h *GameHandler) GetCurrentQuestion(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)

	question, secondsLeft, err := h.coordinator.GetCurrentQuestion(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question":     question,
		"seconds_left": secondsLeft,
	})
}

// SubmitAnswerRequest представляет запрос на отправку ответа
type SubmitAnswerRequest struct {
	QuestionID        uint   `json:"question_id" binding:"required"`
	SelectedAnswerIDs []uint `json:"selected_answer_ids" binding:"required,min=1"`
	ElapsedMs         int64  `json:"elapsed_ms"`
}

// SubmitAnswer фиксирует ответ участника на текущий вопрос.
// Первый зафиксированный ответ окончателен; повторы отклоняются.
func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(uint)
	userID := c.MustGet("user_id").(uint)

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.coordinator.SubmitAnswer(c.Request.Context(), sessionID, userID, service.SubmitAnswerInput{
		QuestionID:        req.QuestionID,
		SelectedAnswerIDs: req.SelectedAnswerIDs,
		ClientElapsedMs:   req.ElapsedMs,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmitAnswerResponse(result))
}
