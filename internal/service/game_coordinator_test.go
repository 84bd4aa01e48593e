package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service/gamesession"
)

// ============================================================================
// Моки для GameCoordinator
// ============================================================================

// MockSessionRepo реализует repository.GameSessionRepository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, session *entity.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepo) GetByID(ctx context.Context, id uint) (*entity.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepo) GetByCode(ctx context.Context, code string) (*entity.GameSession, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepo) UpdateState(ctx context.Context, session *entity.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepo) CountLiveByQuiz(ctx context.Context, quizID uint) (int64, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

// MockParticipantRepo реализует repository.ParticipantRepository
type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) Create(ctx context.Context, participant *entity.Participant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

func (m *MockParticipantRepo) GetByID(ctx context.Context, id uint) (*entity.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Participant), args.Error(1)
}

func (m *MockParticipantRepo) GetBySessionAndUser(ctx context.Context, sessionID, userID uint) (*entity.Participant, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Participant), args.Error(1)
}

func (m *MockParticipantRepo) ListBySession(ctx context.Context, sessionID uint) ([]entity.Participant, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Participant), args.Error(1)
}

// MockAnswerRepo реализует repository.SubmittedAnswerRepository
type MockAnswerRepo struct {
	mock.Mock
}

func (m *MockAnswerRepo) HasAnswered(ctx context.Context, participantID, questionID uint) (bool, error) {
	args := m.Called(ctx, participantID, questionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnswerRepo) RecordWithScore(ctx context.Context, answer *entity.SubmittedAnswer) (int, error) {
	args := m.Called(ctx, answer)
	return args.Int(0), args.Error(1)
}

func (m *MockAnswerRepo) CountBySessionQuestion(ctx context.Context, sessionID, questionID uint) (int64, error) {
	args := m.Called(ctx, sessionID, questionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnswerRepo) ListBySession(ctx context.Context, sessionID uint) ([]entity.SubmittedAnswer, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SubmittedAnswer), args.Error(1)
}

// MockQuizRepo реализует repository.QuizRepository
type MockQuizRepo struct {
	mock.Mock
}

func (m *MockQuizRepo) Create(ctx context.Context, quiz *entity.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) GetByID(ctx context.Context, id uint) (*entity.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) GetWithQuestions(ctx context.Context, id uint) (*entity.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) List(ctx context.Context, filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) {
	args := m.Called(ctx, filters, limit, offset)
	return args.Get(0).([]entity.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepo) Update(ctx context.Context, quiz *entity.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher реализует gamesession.EventPublisher.
// Собственный мьютекс нужен: таймер вопроса публикует из фоновой горутины.
type MockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	SessionID uint
	UserID    string
	EventType string
}

func (m *MockPublisher) BroadcastToSession(sessionID uint, eventType string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{SessionID: sessionID, EventType: eventType})
	return nil
}

func (m *MockPublisher) SendToUserInSession(sessionID uint, userID string, eventType string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{SessionID: sessionID, UserID: userID, EventType: eventType})
	return nil
}

func (m *MockPublisher) CloseSession(sessionID uint) {}

// EventTypes возвращает типы опубликованных событий в порядке публикации
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.EventType
	}
	return types
}

// ============================================================================
// Хелперы
// ============================================================================

func testQuiz() *entity.Quiz {
	return &entity.Quiz{
		ID:        7,
		Title:     "Тестовая викторина",
		CreatedBy: 1,
		Questions: []entity.Question{
			{
				ID: 100, QuizID: 7, QuestionType: entity.QuestionTypeSingleChoice,
				Text: "Вопрос 1", Points: 10, TimeLimitSec: 30, OrderIndex: 0,
				Answers: []entity.Answer{
					{ID: 1001, QuestionID: 100, Text: "Верно", IsCorrect: true},
					{ID: 1002, QuestionID: 100, Text: "Неверно"},
				},
			},
			{
				ID: 101, QuizID: 7, QuestionType: entity.QuestionTypeSingleChoice,
				Text: "Вопрос 2", Points: 10, TimeLimitSec: 30, OrderIndex: 1,
				Answers: []entity.Answer{
					{ID: 1011, QuestionID: 101, Text: "Верно", IsCorrect: true},
					{ID: 1012, QuestionID: 101, Text: "Неверно"},
				},
			},
		},
	}
}

type coordinatorMocks struct {
	sessionRepo     *MockSessionRepo
	participantRepo *MockParticipantRepo
	answerRepo      *MockAnswerRepo
	quizRepo        *MockQuizRepo
	publisher       *MockPublisher
}

func newTestCoordinator(t *testing.T) (*GameCoordinator, *coordinatorMocks) {
	t.Helper()
	mocks := &coordinatorMocks{
		sessionRepo:     new(MockSessionRepo),
		participantRepo: new(MockParticipantRepo),
		answerRepo:      new(MockAnswerRepo),
		quizRepo:        new(MockQuizRepo),
		publisher:       new(MockPublisher),
	}

	config := gamesession.DefaultConfig()
	config.TimerTick = time.Hour // Таймер вопроса не тикает во время теста

	coordinator := NewGameCoordinator(&gamesession.Dependencies{
		SessionRepo:     mocks.sessionRepo,
		ParticipantRepo: mocks.participantRepo,
		AnswerRepo:      mocks.answerRepo,
		QuizRepo:        mocks.quizRepo,
		Publisher:       mocks.publisher,
		Config:          config,
	})
	return coordinator, mocks
}

// createTestSession прогоняет CreateSession с типовыми ожиданиями моков
func createTestSession(t *testing.T, coordinator *GameCoordinator, mocks *coordinatorMocks) *entity.GameSession {
	t.Helper()
	mocks.quizRepo.On("GetWithQuestions", mock.Anything, uint(7)).Return(testQuiz(), nil)
	mocks.sessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
	mocks.sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.GameSession")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.GameSession).ID = 42
		}).Return(nil)
	mocks.participantRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Participant")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.Participant).ID = 500
		}).Return(nil)

	session, host, err := coordinator.CreateSession(context.Background(), 7, 1, "host")
	assert.NoError(t, err)
	assert.NotNil(t, host)
	return session
}

// ============================================================================
// Тесты жизненного цикла
// ============================================================================

func TestGameCoordinator_CreateSession_Success(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)

	session := createTestSession(t, coordinator, mocks)

	assert.Equal(t, uint(42), session.ID)
	assert.Equal(t, entity.SessionStatusWaiting, session.Status)
	assert.Len(t, session.Code, gamesession.DefaultCodeLength)
	assert.Equal(t, uint(1), session.HostUserID)
	mocks.sessionRepo.AssertExpectations(t)
	mocks.participantRepo.AssertExpectations(t)
}

func TestGameCoordinator_CreateSession_EmptyQuiz(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)

	emptyQuiz := &entity.Quiz{ID: 7, Title: "Пустая"}
	mocks.quizRepo.On("GetWithQuestions", mock.Anything, uint(7)).Return(emptyQuiz, nil)

	_, _, err := coordinator.CreateSession(context.Background(), 7, 1, "host")

	assert.ErrorIs(t, err, apperrors.ErrValidation, "Сессия по викторине без вопросов не создается")
	mocks.sessionRepo.AssertNotCalled(t, "Create")
}

func TestGameCoordinator_JoinSession_Success(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("GetByCode", mock.Anything, session.Code).Return(session, nil)
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(nil, apperrors.ErrNotFound).Once()

	_, participant, err := coordinator.JoinSession(context.Background(), session.Code, 2, "alice")

	assert.NoError(t, err)
	assert.Equal(t, uint(2), participant.UserID)
	assert.False(t, participant.IsHost)
	assert.Contains(t, mocks.publisher.EventTypes(), "PARTICIPANT_JOINED")
}

func TestGameCoordinator_JoinSession_Idempotent(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	existing := &entity.Participant{ID: 501, SessionID: session.ID, UserID: 2, Nickname: "alice"}
	mocks.sessionRepo.On("GetByCode", mock.Anything, session.Code).Return(session, nil)
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(existing, nil)

	_, participant, err := coordinator.JoinSession(context.Background(), session.Code, 2, "alice")

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, participant.ID, "Повторный вход возвращает существующего участника")
	// Create вызывался один раз — для ведущего при создании сессии
	mocks.participantRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestGameCoordinator_JoinSession_AfterStart(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	mocks.sessionRepo.On("GetByCode", mock.Anything, session.Code).Return(session, nil)
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(3)).
		Return(nil, apperrors.ErrNotFound)

	_, _, err := coordinator.JoinSession(context.Background(), session.Code, 3, "late")

	assert.ErrorIs(t, err, apperrors.ErrSessionStarted, "Новые участники после старта не принимаются")
}

func TestGameCoordinator_StartSession_NotHost(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	err := coordinator.StartSession(context.Background(), session.ID, 99)

	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	assert.NotContains(t, mocks.publisher.EventTypes(), "GAME_STARTED")
}

func TestGameCoordinator_StartSession_Success(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	var persisted entity.GameSession
	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).
		Run(func(args mock.Arguments) {
			persisted = *args.Get(1).(*entity.GameSession)
		}).Return(nil)

	err := coordinator.StartSession(context.Background(), session.ID, 1)

	assert.NoError(t, err)
	assert.Equal(t, entity.SessionStatusInProgress, persisted.Status)
	assert.Equal(t, 0, persisted.CurrentQuestionIndex)
	assert.NotNil(t, persisted.StartedAt)

	types := mocks.publisher.EventTypes()
	assert.Contains(t, types, "GAME_STARTED")
	assert.Contains(t, types, "QUESTION_CHANGED")
}

func TestGameCoordinator_StartSession_Twice(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	err := coordinator.StartSession(context.Background(), session.ID, 1)

	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "Повторный старт недопустим")
}

func TestGameCoordinator_StartSession_StorageFailure(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).
		Return(errors.New("connection refused")).Once()
	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).
		Return(nil)

	err := coordinator.StartSession(context.Background(), session.ID, 1)

	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	// При сбое записи оперативное состояние не меняется: сессия осталась
	// в WAITING, и повторный старт проходит вместо ErrInvalidTransition
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))
}

func TestGameCoordinator_AdvanceQuestion_ToNextAndFinish(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	var persisted []entity.GameSession
	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).
		Run(func(args mock.Arguments) {
			persisted = append(persisted, *args.Get(1).(*entity.GameSession))
		}).Return(nil)
	mocks.participantRepo.On("ListBySession", mock.Anything, session.ID).Return([]entity.Participant{}, nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	// Переход ко второму вопросу
	assert.NoError(t, coordinator.AdvanceQuestion(context.Background(), session.ID, 1))

	// Переход с последнего вопроса завершает игру
	assert.NoError(t, coordinator.AdvanceQuestion(context.Background(), session.ID, 1))

	if assert.Len(t, persisted, 3, "Каждый переход фиксируется в хранилище") {
		assert.Equal(t, 1, persisted[1].CurrentQuestionIndex)
		assert.Equal(t, entity.SessionStatusFinished, persisted[2].Status)
		assert.NotNil(t, persisted[2].EndedAt)
	}
	assert.Contains(t, mocks.publisher.EventTypes(), "GAME_ENDED")
}

func TestGameCoordinator_EndSession_NotHost(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	err := coordinator.EndSession(context.Background(), session.ID, 2)

	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	assert.NotContains(t, mocks.publisher.EventTypes(), "GAME_ENDED")
}

func TestGameCoordinator_CreateSession_ReturnsDetachedCopy(t *testing.T) {
	// Возвращаемая сессия — копия: хендлер читает ее без замка,
	// дальнейший ход игры ее не трогает
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	mocks.participantRepo.On("ListBySession", mock.Anything, session.ID).Return([]entity.Participant{}, nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	assert.Equal(t, entity.SessionStatusWaiting, session.Status,
		"Копия не отслеживает живое состояние")

	snapshot, err := coordinator.GetSnapshot(context.Background(), session.ID)
	assert.NoError(t, err)
	assert.Equal(t, entity.SessionStatusInProgress, snapshot.Status)
}

func TestGameCoordinator_JoinSession_ReturnsDetachedCopy(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("GetByCode", mock.Anything, session.Code).Return(session, nil)
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(nil, apperrors.ErrNotFound).Once()

	joined, _, err := coordinator.JoinSession(context.Background(), session.Code, 2, "alice")
	assert.NoError(t, err)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	assert.Equal(t, entity.SessionStatusWaiting, joined.Status,
		"Копия не отслеживает живое состояние")
}

func TestGameCoordinator_JoinSession_CreateRace(t *testing.T) {
	// Два инстанса регистрируют одного пользователя одновременно:
	// второй Create упирается в уникальный индекс (session_id, user_id),
	// и вход разрешается идемпотентно существующим участником
	coordinator, mocks := newTestCoordinator(t)

	mocks.quizRepo.On("GetWithQuestions", mock.Anything, uint(7)).Return(testQuiz(), nil)
	mocks.sessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
	mocks.sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.GameSession")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.GameSession).ID = 42
		}).Return(nil)
	mocks.participantRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Participant")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.Participant).ID = 500
		}).Return(nil).Once()

	session, _, err := coordinator.CreateSession(context.Background(), 7, 1, "host")
	assert.NoError(t, err)

	existing := &entity.Participant{ID: 501, SessionID: session.ID, UserID: 2, Nickname: "alice"}
	mocks.sessionRepo.On("GetByCode", mock.Anything, session.Code).Return(session, nil)
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.participantRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Participant")).
		Return(apperrors.ErrAlreadyJoined)
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(existing, nil)

	_, participant, err := coordinator.JoinSession(context.Background(), session.Code, 2, "alice")

	assert.NoError(t, err, "Гонка входа не должна превращаться в ошибку хранилища")
	assert.Equal(t, existing.ID, participant.ID)
}

// ============================================================================
// Тесты приема ответов
// ============================================================================

// startedSession создает и запускает сессию с участником user=2 (ID 600)
func startedSession(t *testing.T, coordinator *GameCoordinator, mocks *coordinatorMocks) (*entity.GameSession, *entity.Participant) {
	t.Helper()
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	participant := &entity.Participant{ID: 600, SessionID: session.ID, UserID: 2, Nickname: "alice"}
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(participant, nil)
	return session, participant
}

func TestGameCoordinator_SubmitAnswer_Success(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session, participant := startedSession(t, coordinator, mocks)

	mocks.answerRepo.On("HasAnswered", mock.Anything, participant.ID, uint(100)).Return(false, nil)
	mocks.answerRepo.On("RecordWithScore", mock.Anything, mock.AnythingOfType("*entity.SubmittedAnswer")).
		Return(12, nil)
	mocks.answerRepo.On("CountBySessionQuestion", mock.Anything, session.ID, uint(100)).Return(int64(1), nil)

	result, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{1001},
	})

	assert.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 12, result.TotalScore)
	assert.Greater(t, result.PointsAwarded, 0, "Быстрый правильный ответ приносит очки с бонусом")

	// Подтверждение уходит отправителю, счетчик — ведущему
	types := mocks.publisher.EventTypes()
	assert.Contains(t, types, "ANSWER_RECEIVED")
	assert.Contains(t, types, "ANSWER_TALLY")
}

func TestGameCoordinator_SubmitAnswer_BeforeStart(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{1001},
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "До старта игры ответы не принимаются")
}

func TestGameCoordinator_SubmitAnswer_NotParticipant(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session := createTestSession(t, coordinator, mocks)

	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(99)).
		Return(nil, apperrors.ErrNotFound)

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 99, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{1001},
	})

	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
}

func TestGameCoordinator_SubmitAnswer_StaleQuestion(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session, _ := startedSession(t, coordinator, mocks)

	// Ведущий успел перейти ко второму вопросу
	assert.NoError(t, coordinator.AdvanceQuestion(context.Background(), session.ID, 1))

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100, // Первый вопрос уже не текущий
		SelectedAnswerIDs: []uint{1001},
	})

	assert.ErrorIs(t, err, apperrors.ErrStaleQuestion)
	mocks.answerRepo.AssertNotCalled(t, "RecordWithScore")
}

func TestGameCoordinator_SubmitAnswer_Duplicate(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session, participant := startedSession(t, coordinator, mocks)

	mocks.answerRepo.On("HasAnswered", mock.Anything, participant.ID, uint(100)).Return(true, nil)

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{1001},
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyAnswered)
	mocks.answerRepo.AssertNotCalled(t, "RecordWithScore")
}

func TestGameCoordinator_SubmitAnswer_ConcurrentDuplicate(t *testing.T) {
	// Гонка: проверка HasAnswered прошла, но конкурирующая запись успела
	// первой — уникальный индекс БД дает ErrAlreadyAnswered
	coordinator, mocks := newTestCoordinator(t)
	session, participant := startedSession(t, coordinator, mocks)

	mocks.answerRepo.On("HasAnswered", mock.Anything, participant.ID, uint(100)).Return(false, nil)
	mocks.answerRepo.On("RecordWithScore", mock.Anything, mock.AnythingOfType("*entity.SubmittedAnswer")).
		Return(0, apperrors.ErrAlreadyAnswered)

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{1001},
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyAnswered)
}

// fakeAnswerStore - потокобезопасное хранилище ответов в памяти.
// Уникальность пары (участник, вопрос) арбитрируется как уникальным
// индексом БД: побеждает первая запись.
type fakeAnswerStore struct {
	mu      sync.Mutex
	records map[[2]uint]entity.SubmittedAnswer
	score   int
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{records: make(map[[2]uint]entity.SubmittedAnswer)}
}

func (f *fakeAnswerStore) HasAnswered(ctx context.Context, participantID, questionID uint) (bool, error) {
	// Намеренно false: гонку конкурирующих вставок разрешает RecordWithScore
	return false, nil
}

func (f *fakeAnswerStore) RecordWithScore(ctx context.Context, answer *entity.SubmittedAnswer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uint{answer.ParticipantID, answer.QuestionID}
	if _, ok := f.records[key]; ok {
		return 0, apperrors.ErrAlreadyAnswered
	}
	f.records[key] = *answer
	f.score += answer.PointsAwarded
	return f.score, nil
}

func (f *fakeAnswerStore) CountBySessionQuestion(ctx context.Context, sessionID, questionID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.records)), nil
}

func (f *fakeAnswerStore) ListBySession(ctx context.Context, sessionID uint) ([]entity.SubmittedAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	answers := make([]entity.SubmittedAnswer, 0, len(f.records))
	for _, answer := range f.records {
		answers = append(answers, answer)
	}
	return answers, nil
}

func TestGameCoordinator_SubmitAnswer_FirstCommitterWins(t *testing.T) {
	// N конкурирующих отправок одного участника на один вопрос:
	// фиксируется ровно одна, остальные получают ErrAlreadyAnswered
	mocks := &coordinatorMocks{
		sessionRepo:     new(MockSessionRepo),
		participantRepo: new(MockParticipantRepo),
		quizRepo:        new(MockQuizRepo),
		publisher:       new(MockPublisher),
	}
	store := newFakeAnswerStore()

	config := gamesession.DefaultConfig()
	config.TimerTick = time.Hour

	coordinator := NewGameCoordinator(&gamesession.Dependencies{
		SessionRepo:     mocks.sessionRepo,
		ParticipantRepo: mocks.participantRepo,
		AnswerRepo:      store,
		QuizRepo:        mocks.quizRepo,
		Publisher:       mocks.publisher,
		Config:          config,
	})

	session := createTestSession(t, coordinator, mocks)
	mocks.sessionRepo.On("UpdateState", mock.Anything, mock.AnythingOfType("*entity.GameSession")).Return(nil)
	assert.NoError(t, coordinator.StartSession(context.Background(), session.ID, 1))

	participant := &entity.Participant{ID: 600, SessionID: session.ID, UserID: 2, Nickname: "alice"}
	mocks.participantRepo.On("GetBySessionAndUser", mock.Anything, session.ID, uint(2)).
		Return(participant, nil)

	const attempts = 16
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
				QuestionID:        100,
				SelectedAnswerIDs: []uint{1001},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrAlreadyAnswered):
			rejected++
		default:
			t.Fatalf("неожиданная ошибка отправки: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded, "Фиксируется ровно один ответ")
	assert.Equal(t, attempts-1, rejected)
	assert.Len(t, store.records, 1)
}

func TestGameCoordinator_SubmitAnswer_InvalidSelection(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session, participant := startedSession(t, coordinator, mocks)

	mocks.answerRepo.On("HasAnswered", mock.Anything, participant.ID, uint(100)).Return(false, nil)

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{9999}, // Чужой вариант ответа
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mocks.answerRepo.AssertNotCalled(t, "RecordWithScore")
}

func TestGameCoordinator_SubmitAnswer_StorageFailure(t *testing.T) {
	coordinator, mocks := newTestCoordinator(t)
	session, participant := startedSession(t, coordinator, mocks)

	mocks.answerRepo.On("HasAnswered", mock.Anything, participant.ID, uint(100)).Return(false, nil)
	mocks.answerRepo.On("RecordWithScore", mock.Anything, mock.AnythingOfType("*entity.SubmittedAnswer")).
		Return(0, errors.New("connection reset"))

	_, err := coordinator.SubmitAnswer(context.Background(), session.ID, 2, SubmitAnswerInput{
		QuestionID:        100,
		SelectedAnswerIDs: []uint{1001},
	})

	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

// ============================================================================
// Тесты восстановления состояния
// ============================================================================

func TestGameCoordinator_LiveState_LazyLoad(t *testing.T) {
	// После рестарта процесса оперативного состояния нет:
	// оно поднимается из хранилища при первом обращении
	coordinator, mocks := newTestCoordinator(t)

	stored := &entity.GameSession{
		ID:         42,
		Code:       "ABC234",
		Status:     entity.SessionStatusWaiting,
		QuizID:     7,
		HostUserID: 1,
	}
	mocks.sessionRepo.On("GetByID", mock.Anything, uint(42)).Return(stored, nil).Once()
	mocks.participantRepo.On("ListBySession", mock.Anything, uint(42)).Return([]entity.Participant{}, nil)

	snapshot, err := coordinator.GetSnapshot(context.Background(), 42)

	assert.NoError(t, err)
	assert.Equal(t, uint(42), snapshot.SessionID)
	assert.Equal(t, entity.SessionStatusWaiting, snapshot.Status)

	// Повторное обращение берет состояние из памяти
	_, err = coordinator.GetSnapshot(context.Background(), 42)
	assert.NoError(t, err)
	mocks.sessionRepo.AssertNumberOfCalls(t, "GetByID", 1)
}
