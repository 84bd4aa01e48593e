package dto

import (
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// AnswerResponse представляет вариант ответа в формате для клиента.
// Признак правильности никогда не сериализуется.
type AnswerResponse struct {
	ID         uint   `json:"id"`
	Text       string `json:"text"`
	OrderIndex int    `json:"order_index"`
}

// QuestionResponse представляет вопрос в формате для ответа клиенту
type QuestionResponse struct {
	ID           uint             `json:"id"`
	QuizID       uint             `json:"quiz_id"`
	QuestionType string           `json:"question_type"`
	Text         string           `json:"text"`
	Points       int              `json:"points"`
	TimeLimitSec int              `json:"time_limit_sec"`
	MediaURL     string           `json:"media_url,omitempty"`
	OrderIndex   int              `json:"order_index"`
	Answers      []AnswerResponse `json:"answers"`
}

// QuizResponse представляет викторину в формате для ответа клиенту
type QuizResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	Difficulty    string             `json:"difficulty"`
	Category      string             `json:"category"`
	IsPublic      bool               `json:"is_public"`
	CreatedBy     uint               `json:"created_by"`
	QuestionCount int                `json:"question_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PaginatedQuizResponse представляет пагинированный список викторин
type PaginatedQuizResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// NewAnswerResponse создает DTO для варианта ответа
func NewAnswerResponse(a *entity.Answer) AnswerResponse {
	return AnswerResponse{
		ID:         a.ID,
		Text:       a.Text,
		OrderIndex: a.OrderIndex,
	}
}

// NewQuestionResponse создает DTO для вопроса.
// Правильные варианты не раскрываются: AnswerResponse не содержит is_correct.
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	answersDTO := make([]AnswerResponse, len(q.Answers))
	for i := range q.Answers {
		answersDTO[i] = NewAnswerResponse(&q.Answers[i])
	}

	return QuestionResponse{
		ID:           q.ID,
		QuizID:       q.QuizID,
		QuestionType: q.QuestionType,
		Text:         q.Text,
		Points:       q.Points,
		TimeLimitSec: q.TimeLimitSec,
		MediaURL:     q.MediaURL,
		OrderIndex:   q.OrderIndex,
		Answers:      answersDTO,
	}
}

// NewQuizResponse создает DTO для викторины
func NewQuizResponse(quiz *entity.Quiz, includeQuestions bool) *QuizResponse {
	if quiz == nil {
		return nil
	}

	var questionsDTO []QuestionResponse
	if includeQuestions {
		questionsDTO = make([]QuestionResponse, len(quiz.Questions))
		for i := range quiz.Questions {
			questionsDTO[i] = NewQuestionResponse(&quiz.Questions[i])
		}
	}

	return &QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		Difficulty:    quiz.Difficulty,
		Category:      quiz.Category,
		IsPublic:      quiz.IsPublic,
		CreatedBy:     quiz.CreatedBy,
		QuestionCount: quiz.QuestionCount(),
		Questions:     questionsDTO,
		CreatedAt:     quiz.CreatedAt,
		UpdatedAt:     quiz.UpdatedAt,
	}
}

// NewPaginatedQuizResponse создает DTO для пагинированного списка викторин
func NewPaginatedQuizResponse(quizzes []entity.Quiz, total int64, page, perPage int) *PaginatedQuizResponse {
	list := make([]*QuizResponse, len(quizzes))
	for i := range quizzes {
		// Передаем false, чтобы не включать вопросы в список
		list[i] = NewQuizResponse(&quizzes[i], false)
	}
	return &PaginatedQuizResponse{
		Quizzes: list,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}
