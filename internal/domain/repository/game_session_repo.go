package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// GameSessionRepository определяет методы для работы с игровыми сессиями.
// Чтение после записи консистентно в пределах одной сессии.
type GameSessionRepository interface {
	Create(ctx context.Context, session *entity.GameSession) error
	GetByID(ctx context.Context, id uint) (*entity.GameSession, error)
	GetByCode(ctx context.Context, code string) (*entity.GameSession, error)
	// UpdateState персистирует статус, текущий индекс вопроса и отметки
	// started_at/ended_at. Вызывается только координатором под замком сессии.
	UpdateState(ctx context.Context, session *entity.GameSession) error
	// CountLiveByQuiz возвращает количество сессий викторины в статусах
	// WAITING/IN_PROGRESS. Используется для защиты викторины от правок.
	CountLiveByQuiz(ctx context.Context, quizID uint) (int64, error)
	// CodeInUse проверяет, занят ли код среди живых (WAITING/IN_PROGRESS) сессий
	CodeInUse(ctx context.Context, code string) (bool, error)
}

// ParticipantRepository определяет методы для работы с участниками сессии
type ParticipantRepository interface {
	Create(ctx context.Context, participant *entity.Participant) error
	GetByID(ctx context.Context, id uint) (*entity.Participant, error)
	// GetBySessionAndUser возвращает участника по паре (сессия, пользователь).
	// Используется для идемпотентного повторного входа.
	GetBySessionAndUser(ctx context.Context, sessionID, userID uint) (*entity.Participant, error)
	ListBySession(ctx context.Context, sessionID uint) ([]entity.Participant, error)
}

// SubmittedAnswerRepository определяет методы для работы с ответами участников
type SubmittedAnswerRepository interface {
	// HasAnswered проверяет наличие ответа пары (участник, вопрос)
	HasAnswered(ctx context.Context, participantID, questionID uint) (bool, error)
	// RecordWithScore в одной транзакции сохраняет ответ и прибавляет
	// начисленные очки к total_score участника. Возвращает новый суммарный
	// счет. Нарушение уникальности (участник, вопрос) транслируется
	// в ErrAlreadyAnswered.
	RecordWithScore(ctx context.Context, answer *entity.SubmittedAnswer) (int, error)
	// CountBySessionQuestion возвращает число ответов на вопрос в сессии
	// (для агрегата "N из M ответили").
	CountBySessionQuestion(ctx context.Context, sessionID, questionID uint) (int64, error)
	ListBySession(ctx context.Context, sessionID uint) ([]entity.SubmittedAnswer, error)
}
