package gamesession

import (
	"sync"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
)

// Константы значений по умолчанию
const (
	DefaultCodeLength      = 6
	DefaultCodeMaxAttempts = 10
)

// Config содержит настройки координатора игровых сессий
type Config struct {
	// Длина кода подключения к сессии
	CodeLength int

	// Число попыток генерации уникального кода до отказа
	CodeMaxAttempts int

	// Таймаут записи состояния в хранилище
	StoreTimeout time.Duration

	// Интервал рассылки таймера текущего вопроса
	TimerTick time.Duration

	// Автоматический переход к следующему вопросу по истечении таймера
	AutoAdvance bool

	// Максимум участников на сессию (0 - без ограничения)
	MaxParticipants int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CodeLength:      DefaultCodeLength,
		CodeMaxAttempts: DefaultCodeMaxAttempts,
		StoreTimeout:    3 * time.Second,
		TimerTick:       time.Second,
		AutoAdvance:     false,
		MaxParticipants: 0,
	}
}

// EventPublisher определяет интерфейс рассылки событий подписчикам сессии.
// Реализуется websocket.Manager.
type EventPublisher interface {
	BroadcastToSession(sessionID uint, eventType string, data interface{}) error
	SendToUserInSession(sessionID uint, userID string, eventType string, data interface{}) error
	CloseSession(sessionID uint)
}

// Dependencies содержит зависимости координатора игровых сессий
type Dependencies struct {
	SessionRepo     repository.GameSessionRepository
	ParticipantRepo repository.ParticipantRepository
	AnswerRepo      repository.SubmittedAnswerRepository
	QuizRepo        repository.QuizRepository
	CacheRepo       repository.CacheRepository
	Publisher       EventPublisher
	Config          *Config
}

// LiveState хранит оперативное состояние одной игровой сессии.
// Все мутации состояния идут под Mu: блокировка своя у каждой сессии,
// операции в разных сессиях друг друга не задерживают.
type LiveState struct {
	Session *entity.GameSession

	// Викторина с вопросами, загруженная при старте игры
	Quiz *entity.Quiz

	// Время показа текущего вопроса (Unix ms), 0 если вопрос не показан
	QuestionStartedAtMs int64

	// Отмена таймера текущего вопроса
	timerCancel func()

	Mu sync.Mutex
}

// NewLiveState создает оперативное состояние для сессии
func NewLiveState(session *entity.GameSession) *LiveState {
	return &LiveState{Session: session}
}

// CurrentQuestion возвращает текущий вопрос или nil, если игра не идет.
// Вызывающий должен держать Mu.
func (s *LiveState) CurrentQuestion() *entity.Question {
	if s.Quiz == nil || !s.Session.IsInProgress() {
		return nil
	}
	return s.Quiz.QuestionAt(s.Session.CurrentQuestionIndex)
}

// StartQuestionTimer запоминает функцию отмены таймера вопроса,
// останавливая предыдущий таймер, если он был.
// Вызывающий должен держать Mu.
func (s *LiveState) StartQuestionTimer(cancel func()) {
	if s.timerCancel != nil {
		s.timerCancel()
	}
	s.timerCancel = cancel
}

// StopQuestionTimer останавливает таймер текущего вопроса.
// Вызывающий должен держать Mu.
func (s *LiveState) StopQuestionTimer() {
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}
