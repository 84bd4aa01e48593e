package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/service"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// CreateQuiz обрабатывает запрос на создание викторины.
// Викторина создается целиком: вопросы и варианты ответов одним запросом.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var input service.QuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uint)

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), userID, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, true))
}

// GetQuiz возвращает викторину с вопросами.
// Признаки правильности вариантов скрыты на уровне DTO.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint) // Получаем из контекста

	quiz, err := h.quizService.GetQuizWithQuestions(c.Request.Context(), quizID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true))
}

// UpdateQuiz заменяет викторину целиком. Доступно только автору и только
// если на викторину не ссылается живая сессия.
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	var input service.QuizInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quizID := c.MustGet("quizID").(uint)
	userID := c.MustGet("user_id").(uint)

	quiz, err := h.quizService.UpdateQuiz(c.Request.Context(), quizID, userID, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true))
}

// ListQuizzes возвращает пагинированный список викторин с фильтрами
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	filters := repository.QuizFilters{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if publicStr := c.Query("is_public"); publicStr != "" {
		isPublic := publicStr == "true"
		filters.IsPublic = &isPublic
	}

	quizzes, total, err := h.quizService.ListQuizzes(c.Request.Context(), filters, page, perPage)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedQuizResponse(quizzes, total, page, perPage))
}

// DeleteQuiz удаляет викторину. Доступно только автору и только если
// на викторину не ссылается живая сессия.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	userID := c.MustGet("user_id").(uint)

	if err := h.quizService.DeleteQuiz(c.Request.Context(), quizID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
