package service

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// Лимиты агрегата викторины
const (
	MaxQuestionsPerQuiz   = 100
	MaxAnswersPerQuestion = 10
)

// QuestionInput - вопрос при создании викторины
type QuestionInput struct {
	QuestionType string        `json:"question_type"`
	Text         string        `json:"text"`
	Points       int           `json:"points"`
	TimeLimitSec int           `json:"time_limit_sec"`
	MediaURL     string        `json:"media_url"`
	Answers      []AnswerInput `json:"answers"`
}

// AnswerInput - вариант ответа при создании викторины
type AnswerInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizInput - викторина при создании
type QuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Difficulty  string          `json:"difficulty"`
	Category    string          `json:"category"`
	IsPublic    bool            `json:"is_public"`
	Questions   []QuestionInput `json:"questions"`
}

// QuizService предоставляет методы для работы с викторинами
type QuizService struct {
	quizRepo    repository.QuizRepository
	sessionRepo repository.GameSessionRepository
}

// NewQuizService создает новый сервис викторин
func NewQuizService(quizRepo repository.QuizRepository, sessionRepo repository.GameSessionRepository) *QuizService {
	return &QuizService{
		quizRepo:    quizRepo,
		sessionRepo: sessionRepo,
	}
}

// CreateQuiz создает викторину как целостный агрегат: вопросы и варианты
// ответов валидируются и сохраняются вместе с викториной.
func (s *QuizService) CreateQuiz(ctx context.Context, createdBy uint, input QuizInput) (*entity.Quiz, error) {
	if err := validateQuizInput(input); err != nil {
		return nil, err
	}

	quiz := buildQuizAggregate(input)
	quiz.CreatedBy = createdBy

	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	log.Printf("[QuizService] Викторина #%d создана пользователем %d (%d вопросов)", quiz.ID, createdBy, len(quiz.Questions))
	return quiz, nil
}

// UpdateQuiz заменяет викторину целиком: агрегат пересобирается и
// валидируется так же, как при создании. Доступно только автору;
// викторина, на которую ссылается живая сессия, защищена от правки.
func (s *QuizService) UpdateQuiz(ctx context.Context, quizID, userID uint, input QuizInput) (*entity.Quiz, error) {
	existing, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if existing.CreatedBy != userID {
		return nil, apperrors.ErrNotAuthorized
	}

	liveCount, err := s.sessionRepo.CountLiveByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if liveCount > 0 {
		log.Printf("[QuizService] Отказ правки викторины #%d: живых сессий %d", quizID, liveCount)
		return nil, apperrors.ErrQuizInPlay
	}

	if err := validateQuizInput(input); err != nil {
		return nil, err
	}

	quiz := buildQuizAggregate(input)
	quiz.ID = existing.ID
	quiz.CreatedBy = existing.CreatedBy

	if err := s.quizRepo.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	log.Printf("[QuizService] Викторина #%d обновлена пользователем %d (%d вопросов)", quiz.ID, userID, len(quiz.Questions))
	return quiz, nil
}

// buildQuizAggregate собирает агрегат викторины снизу вверх из входных
// данных, проставляя порядок и значения по умолчанию
func buildQuizAggregate(input QuizInput) *entity.Quiz {
	quiz := &entity.Quiz{
		Title:       input.Title,
		Description: input.Description,
		Difficulty:  normalizeDifficulty(input.Difficulty),
		Category:    input.Category,
		IsPublic:    input.IsPublic,
	}
	if quiz.Category == "" {
		quiz.Category = "General"
	}

	for i, q := range input.Questions {
		question := entity.Question{
			QuestionType: q.QuestionType,
			Text:         q.Text,
			Points:       q.Points,
			TimeLimitSec: q.TimeLimitSec,
			MediaURL:     q.MediaURL,
			OrderIndex:   i,
		}
		if question.Points <= 0 {
			question.Points = 10
		}
		if question.TimeLimitSec <= 0 {
			question.TimeLimitSec = 30
		}
		for j, a := range q.Answers {
			question.Answers = append(question.Answers, entity.Answer{
				Text:       a.Text,
				IsCorrect:  a.IsCorrect,
				OrderIndex: j,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

// GetQuizByID возвращает викторину по ID
func (s *QuizService) GetQuizByID(ctx context.Context, quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(ctx, quizID)
}

// GetQuizWithQuestions возвращает викторину с вопросами
func (s *QuizService) GetQuizWithQuestions(ctx context.Context, quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(ctx, quizID)
}

// ListQuizzes возвращает список викторин с фильтрацией и пагинацией
func (s *QuizService) ListQuizzes(ctx context.Context, filters repository.QuizFilters, page, pageSize int) ([]entity.Quiz, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.quizRepo.List(ctx, filters, pageSize, offset)
}

// DeleteQuiz удаляет викторину. Викторина, на которую ссылается живая
// сессия, защищена от удаления.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID, userID uint) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return err
	}

	if quiz.CreatedBy != userID {
		return apperrors.ErrNotAuthorized
	}

	liveCount, err := s.sessionRepo.CountLiveByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if liveCount > 0 {
		log.Printf("[QuizService] Отказ удаления викторины #%d: живых сессий %d", quizID, liveCount)
		return apperrors.ErrQuizInPlay
	}

	return s.quizRepo.Delete(ctx, quizID)
}

// validateQuizInput проверяет целостность агрегата викторины снизу вверх:
// каждый вариант, затем каждый вопрос с учетом его типа, затем викторина.
func validateQuizInput(input QuizInput) error {
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if len(input.Questions) == 0 {
		return fmt.Errorf("%w: quiz must have at least one question", apperrors.ErrValidation)
	}
	if len(input.Questions) > MaxQuestionsPerQuiz {
		return fmt.Errorf("%w: quiz cannot have more than %d questions", apperrors.ErrValidation, MaxQuestionsPerQuiz)
	}

	for i, q := range input.Questions {
		if err := validateQuestionInput(q); err != nil {
			return fmt.Errorf("question #%d: %w", i+1, err)
		}
	}
	return nil
}

// validateQuestionInput проверяет вопрос с учетом его типа:
// single_choice - ровно один правильный из 2+ вариантов;
// multiple_choice - не менее одного правильного из 2+ вариантов;
// true_false - ровно два варианта, ровно один правильный.
func validateQuestionInput(q QuestionInput) error {
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", apperrors.ErrValidation)
	}

	correctCount := 0
	for _, a := range q.Answers {
		if a.Text == "" {
			return fmt.Errorf("%w: answer text is required", apperrors.ErrValidation)
		}
		if a.IsCorrect {
			correctCount++
		}
	}

	switch q.QuestionType {
	case entity.QuestionTypeSingleChoice:
		if len(q.Answers) < 2 {
			return fmt.Errorf("%w: single_choice question requires at least 2 answers", apperrors.ErrValidation)
		}
		if correctCount != 1 {
			return fmt.Errorf("%w: single_choice question requires exactly one correct answer", apperrors.ErrValidation)
		}
	case entity.QuestionTypeMultipleChoice:
		if len(q.Answers) < 2 {
			return fmt.Errorf("%w: multiple_choice question requires at least 2 answers", apperrors.ErrValidation)
		}
		if correctCount < 1 {
			return fmt.Errorf("%w: multiple_choice question requires at least one correct answer", apperrors.ErrValidation)
		}
	case entity.QuestionTypeTrueFalse:
		if len(q.Answers) != 2 {
			return fmt.Errorf("%w: true_false question requires exactly 2 answers", apperrors.ErrValidation)
		}
		if correctCount != 1 {
			return fmt.Errorf("%w: true_false question requires exactly one correct answer", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, q.QuestionType)
	}

	if len(q.Answers) > MaxAnswersPerQuestion {
		return fmt.Errorf("%w: question cannot have more than %d answers", apperrors.ErrValidation, MaxAnswersPerQuestion)
	}
	return nil
}

// normalizeDifficulty приводит сложность к одному из известных уровней
func normalizeDifficulty(difficulty string) string {
	switch difficulty {
	case entity.QuizDifficultyEasy, entity.QuizDifficultyMedium, entity.QuizDifficultyHard:
		return difficulty
	default:
		return entity.QuizDifficultyMedium
	}
}
