package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// GameSessionRepo реализует repository.GameSessionRepository
type GameSessionRepo struct {
	db *gorm.DB
}

// NewGameSessionRepo создает новый репозиторий игровых сессий
func NewGameSessionRepo(db *gorm.DB) *GameSessionRepo {
	return &GameSessionRepo{db: db}
}

// Create создает новую игровую сессию.
// Уникальный индекс по code служит страховкой от коллизий кодов.
func (r *GameSessionRepo) Create(ctx context.Context, session *entity.GameSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrCodeSpaceExhausted
	}
	return err
}

// GetByID возвращает сессию по ID
func (r *GameSessionRepo) GetByID(ctx context.Context, id uint) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByCode возвращает живую сессию по коду подключения.
// Завершенные сессии по коду не ищутся: их коды могут быть переиспользованы.
func (r *GameSessionRepo) GetByCode(ctx context.Context, code string) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.WithContext(ctx).
		Where("code = ? AND status IN ?", code,
			[]string{entity.SessionStatusWaiting, entity.SessionStatusInProgress}).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateState точечно персистирует изменяемую часть состояния сессии
func (r *GameSessionRepo) UpdateState(ctx context.Context, session *entity.GameSession) error {
	result := r.db.WithContext(ctx).Model(&entity.GameSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"status":                 session.Status,
			"current_question_index": session.CurrentQuestionIndex,
			"started_at":             session.StartedAt,
			"ended_at":               session.EndedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CountLiveByQuiz возвращает количество живых сессий викторины
func (r *GameSessionRepo) CountLiveByQuiz(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.GameSession{}).
		Where("quiz_id = ? AND status IN ?", quizID,
			[]string{entity.SessionStatusWaiting, entity.SessionStatusInProgress}).
		Count(&count).Error
	return count, err
}

// CodeInUse проверяет, занят ли код среди живых сессий.
// Коды завершенных сессий могут переиспользоваться.
func (r *GameSessionRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.GameSession{}).
		Where("code = ? AND status IN ?", code,
			[]string{entity.SessionStatusWaiting, entity.SessionStatusInProgress}).
		Count(&count).Error
	return count > 0, err
}
