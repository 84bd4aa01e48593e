package entity

import (
	"time"
)

// Константы статусов игровой сессии.
// Машина состояний строго однонаправленная:
// WAITING → IN_PROGRESS → FINISHED, без пропусков и возвратов.
const (
	SessionStatusWaiting    = "WAITING"
	SessionStatusInProgress = "IN_PROGRESS"
	SessionStatusFinished   = "FINISHED"
)

// GameSession представляет живую игровую сессию по викторине.
// На время жизни сессии её состоянием монопольно владеет координатор;
// хранилище лишь персистирует его.
type GameSession struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	// Уникальность кода среди живых сессий обеспечивает частичный
	// уникальный индекс в миграциях (коды завершенных сессий переиспользуемы).
	Code                 string     `gorm:"size:10;not null;index" json:"code"`
	Status               string     `gorm:"size:20;not null;default:'WAITING';index" json:"status"`
	QuizID               uint       `gorm:"not null;index" json:"quiz_id"`
	HostUserID           uint       `gorm:"not null;index" json:"host_user_id"`
	CurrentQuestionIndex int        `gorm:"not null;default:0" json:"current_question_index"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (GameSession) TableName() string {
	return "game_sessions"
}

// IsWaiting проверяет, находится ли сессия в зале ожидания
func (s *GameSession) IsWaiting() bool {
	return s.Status == SessionStatusWaiting
}

// IsInProgress проверяет, идет ли игра
func (s *GameSession) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// IsFinished проверяет, завершена ли сессия
func (s *GameSession) IsFinished() bool {
	return s.Status == SessionStatusFinished
}

// CanTransitionTo проверяет допустимость перехода в указанный статус.
// Допустимы только WAITING → IN_PROGRESS и IN_PROGRESS → FINISHED.
func (s *GameSession) CanTransitionTo(status string) bool {
	switch s.Status {
	case SessionStatusWaiting:
		return status == SessionStatusInProgress
	case SessionStatusInProgress:
		return status == SessionStatusFinished
	default:
		return false
	}
}
