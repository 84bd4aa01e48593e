package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// Create добавляет участника в сессию.
// Нарушение уникального индекса (session_id, user_id) — гонка двойного
// входа — возвращается как ErrAlreadyJoined; координатор разрешает ее
// идемпотентно.
func (r *ParticipantRepo) Create(ctx context.Context, participant *entity.Participant) error {
	err := r.db.WithContext(ctx).Create(participant).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrAlreadyJoined
	}
	return err
}

// GetByID возвращает участника по ID
func (r *ParticipantRepo) GetByID(ctx context.Context, id uint) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.WithContext(ctx).First(&participant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// GetBySessionAndUser возвращает участника по паре (сессия, пользователь)
func (r *ParticipantRepo) GetBySessionAndUser(ctx context.Context, sessionID, userID uint) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// ListBySession возвращает участников сессии в порядке присоединения
func (r *ParticipantRepo) ListBySession(ctx context.Context, sessionID uint) ([]entity.Participant, error) {
	var participants []entity.Participant
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error
	return participants, err
}
