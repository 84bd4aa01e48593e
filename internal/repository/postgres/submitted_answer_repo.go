package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// SubmittedAnswerRepo реализует repository.SubmittedAnswerRepository
type SubmittedAnswerRepo struct {
	db *gorm.DB
}

// NewSubmittedAnswerRepo создает новый репозиторий ответов участников
func NewSubmittedAnswerRepo(db *gorm.DB) *SubmittedAnswerRepo {
	return &SubmittedAnswerRepo{db: db}
}

// HasAnswered проверяет, отвечал ли участник на вопрос
func (r *SubmittedAnswerRepo) HasAnswered(ctx context.Context, participantID, questionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SubmittedAnswer{}).
		Where("participant_id = ? AND question_id = ?", participantID, questionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordWithScore в одной транзакции сохраняет ответ и прибавляет очки
// к total_score участника. Возвращает новый суммарный счет участника.
// Нарушение уникальности (participant_id, question_id) означает, что
// конкурирующий ответ успел первым — возвращается ErrAlreadyAnswered.
func (r *SubmittedAnswerRepo) RecordWithScore(ctx context.Context, answer *entity.SubmittedAnswer) (int, error) {
	var totalScore int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(answer).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.ErrAlreadyAnswered
			}
			return err
		}

		if answer.PointsAwarded > 0 {
			err := tx.Model(&entity.Participant{}).
				Where("id = ?", answer.ParticipantID).
				Update("total_score", gorm.Expr("total_score + ?", answer.PointsAwarded)).Error
			if err != nil {
				return err
			}
		}

		// Читаем итоговый счет в той же транзакции
		var participant entity.Participant
		if err := tx.Select("total_score").First(&participant, answer.ParticipantID).Error; err != nil {
			return err
		}
		totalScore = participant.TotalScore
		return nil
	})
	if err != nil {
		return 0, err
	}

	return totalScore, nil
}

// CountBySessionQuestion возвращает число ответов на вопрос в сессии
func (r *SubmittedAnswerRepo) CountBySessionQuestion(ctx context.Context, sessionID, questionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SubmittedAnswer{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Count(&count).Error
	return count, err
}

// ListBySession возвращает все ответы сессии в порядке фиксации
func (r *SubmittedAnswerRepo) ListBySession(ctx context.Context, sessionID uint) ([]entity.SubmittedAnswer, error) {
	var answers []entity.SubmittedAnswer
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("answered_at ASC, id ASC").
		Find(&answers).Error
	return answers, err
}
