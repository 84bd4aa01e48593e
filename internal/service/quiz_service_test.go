package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// ============================================================================
// Хелперы
// ============================================================================

func validQuizInput() QuizInput {
	return QuizInput{
		Title:      "География",
		Category:   "Наука",
		Difficulty: entity.QuizDifficultyEasy,
		IsPublic:   true,
		Questions: []QuestionInput{
			{
				QuestionType: entity.QuestionTypeSingleChoice,
				Text:         "Столица Франции?",
				Points:       10,
				TimeLimitSec: 30,
				Answers: []AnswerInput{
					{Text: "Париж", IsCorrect: true},
					{Text: "Лион"},
				},
			},
			{
				QuestionType: entity.QuestionTypeTrueFalse,
				Text:         "Нил длиннее Волги",
				Answers: []AnswerInput{
					{Text: "Да", IsCorrect: true},
					{Text: "Нет"},
				},
			},
		},
	}
}

func newTestQuizService() (*QuizService, *MockQuizRepo, *MockSessionRepo) {
	quizRepo := new(MockQuizRepo)
	sessionRepo := new(MockSessionRepo)
	return NewQuizService(quizRepo, sessionRepo), quizRepo, sessionRepo
}

// ============================================================================
// Тесты создания викторины
// ============================================================================

func TestQuizService_CreateQuiz_Success(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	quizRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Quiz")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.Quiz).ID = 5
		}).Return(nil)

	quiz, err := service.CreateQuiz(context.Background(), 1, validQuizInput())

	assert.NoError(t, err)
	assert.Equal(t, uint(5), quiz.ID)
	assert.Equal(t, uint(1), quiz.CreatedBy)
	assert.Len(t, quiz.Questions, 2)
	// Порядок вопросов и вариантов фиксируется индексами
	assert.Equal(t, 0, quiz.Questions[0].OrderIndex)
	assert.Equal(t, 1, quiz.Questions[1].OrderIndex)
	assert.Equal(t, 1, quiz.Questions[0].Answers[1].OrderIndex)
	quizRepo.AssertExpectations(t)
}

func TestQuizService_CreateQuiz_Defaults(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	input := validQuizInput()
	input.Category = ""
	input.Difficulty = "nightmare"
	input.Questions[0].Points = 0
	input.Questions[0].TimeLimitSec = 0
	quizRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Quiz")).Return(nil)

	quiz, err := service.CreateQuiz(context.Background(), 1, input)

	assert.NoError(t, err)
	assert.Equal(t, "General", quiz.Category)
	assert.Equal(t, entity.QuizDifficultyMedium, quiz.Difficulty, "Неизвестная сложность приводится к medium")
	assert.Equal(t, 10, quiz.Questions[0].Points)
	assert.Equal(t, 30, quiz.Questions[0].TimeLimitSec)
}

func TestQuizService_CreateQuiz_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*QuizInput)
	}{
		{
			name:   "пустой заголовок",
			mutate: func(in *QuizInput) { in.Title = "" },
		},
		{
			name:   "без вопросов",
			mutate: func(in *QuizInput) { in.Questions = nil },
		},
		{
			name:   "пустой текст вопроса",
			mutate: func(in *QuizInput) { in.Questions[0].Text = "" },
		},
		{
			name:   "пустой текст варианта",
			mutate: func(in *QuizInput) { in.Questions[0].Answers[0].Text = "" },
		},
		{
			name: "single_choice с одним вариантом",
			mutate: func(in *QuizInput) {
				in.Questions[0].Answers = in.Questions[0].Answers[:1]
			},
		},
		{
			name: "single_choice без правильного ответа",
			mutate: func(in *QuizInput) {
				in.Questions[0].Answers[0].IsCorrect = false
			},
		},
		{
			name: "single_choice с двумя правильными",
			mutate: func(in *QuizInput) {
				in.Questions[0].Answers[1].IsCorrect = true
			},
		},
		{
			name: "true_false с тремя вариантами",
			mutate: func(in *QuizInput) {
				in.Questions[1].Answers = append(in.Questions[1].Answers, AnswerInput{Text: "Не знаю"})
			},
		},
		{
			name: "multiple_choice без правильных",
			mutate: func(in *QuizInput) {
				in.Questions[0].QuestionType = entity.QuestionTypeMultipleChoice
				in.Questions[0].Answers[0].IsCorrect = false
			},
		},
		{
			name: "неизвестный тип вопроса",
			mutate: func(in *QuizInput) {
				in.Questions[0].QuestionType = "essay"
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service, quizRepo, _ := newTestQuizService()
			input := validQuizInput()
			tc.mutate(&input)

			_, err := service.CreateQuiz(context.Background(), 1, input)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			quizRepo.AssertNotCalled(t, "Create")
		})
	}
}

// ============================================================================
// Тесты редактирования викторины
// ============================================================================

func TestQuizService_UpdateQuiz_Success(t *testing.T) {
	service, quizRepo, sessionRepo := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)
	sessionRepo.On("CountLiveByQuiz", mock.Anything, uint(5)).Return(int64(0), nil)
	quizRepo.On("Update", mock.Anything, mock.AnythingOfType("*entity.Quiz")).Return(nil)

	input := validQuizInput()
	input.Title = "География, версия 2"
	quiz, err := service.UpdateQuiz(context.Background(), 5, 1, input)

	assert.NoError(t, err)
	assert.Equal(t, uint(5), quiz.ID, "ID викторины сохраняется")
	assert.Equal(t, uint(1), quiz.CreatedBy, "Автор сохраняется")
	assert.Equal(t, "География, версия 2", quiz.Title)
	assert.Len(t, quiz.Questions, 2)
	quizRepo.AssertExpectations(t)
}

func TestQuizService_UpdateQuiz_NotOwner(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)

	_, err := service.UpdateQuiz(context.Background(), 5, 2, validQuizInput())

	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized, "Править викторину может только автор")
	quizRepo.AssertNotCalled(t, "Update")
}

func TestQuizService_UpdateQuiz_LiveSessionExists(t *testing.T) {
	service, quizRepo, sessionRepo := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)
	sessionRepo.On("CountLiveByQuiz", mock.Anything, uint(5)).Return(int64(1), nil)

	_, err := service.UpdateQuiz(context.Background(), 5, 1, validQuizInput())

	assert.ErrorIs(t, err, apperrors.ErrQuizInPlay, "Викторина с живыми сессиями защищена от правок")
	quizRepo.AssertNotCalled(t, "Update")
}

func TestQuizService_UpdateQuiz_ValidationError(t *testing.T) {
	service, quizRepo, sessionRepo := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)
	sessionRepo.On("CountLiveByQuiz", mock.Anything, uint(5)).Return(int64(0), nil)

	input := validQuizInput()
	input.Questions = nil
	_, err := service.UpdateQuiz(context.Background(), 5, 1, input)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	quizRepo.AssertNotCalled(t, "Update")
}

func TestQuizService_UpdateQuiz_NotFound(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(404)).Return(nil, apperrors.ErrNotFound)

	_, err := service.UpdateQuiz(context.Background(), 404, 1, validQuizInput())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// Тесты удаления викторины
// ============================================================================

func TestQuizService_DeleteQuiz_Success(t *testing.T) {
	service, quizRepo, sessionRepo := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)
	sessionRepo.On("CountLiveByQuiz", mock.Anything, uint(5)).Return(int64(0), nil)
	quizRepo.On("Delete", mock.Anything, uint(5)).Return(nil)

	err := service.DeleteQuiz(context.Background(), 5, 1)

	assert.NoError(t, err)
	quizRepo.AssertExpectations(t)
}

func TestQuizService_DeleteQuiz_NotOwner(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)

	err := service.DeleteQuiz(context.Background(), 5, 2)

	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized, "Удалять викторину может только автор")
	quizRepo.AssertNotCalled(t, "Delete")
}

func TestQuizService_DeleteQuiz_LiveSessionExists(t *testing.T) {
	service, quizRepo, sessionRepo := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(5)).Return(&entity.Quiz{ID: 5, CreatedBy: 1}, nil)
	sessionRepo.On("CountLiveByQuiz", mock.Anything, uint(5)).Return(int64(2), nil)

	err := service.DeleteQuiz(context.Background(), 5, 1)

	assert.ErrorIs(t, err, apperrors.ErrQuizInPlay, "Викторина с живыми сессиями защищена от удаления")
	quizRepo.AssertNotCalled(t, "Delete")
}

func TestQuizService_DeleteQuiz_NotFound(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	quizRepo.On("GetByID", mock.Anything, uint(404)).Return(nil, apperrors.ErrNotFound)

	err := service.DeleteQuiz(context.Background(), 404, 1)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// Тесты списка викторин
// ============================================================================

func TestQuizService_ListQuizzes_PaginationClamping(t *testing.T) {
	service, quizRepo, _ := newTestQuizService()

	quizRepo.On("List", mock.Anything, mock.Anything, 20, 0).
		Return([]entity.Quiz{{ID: 1}}, int64(1), nil)

	quizzes, total, err := service.ListQuizzes(context.Background(), repository.QuizFilters{}, -3, 500)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, quizzes, 1)
	quizRepo.AssertExpectations(t)
}
