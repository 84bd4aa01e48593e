package entity

import (
	"time"
)

// Participant представляет участника игровой сессии.
// Ровно один участник на сессию имеет права ведущего (IsHost).
// TotalScore монотонно не убывает в течение сессии.
type Participant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;index;uniqueIndex:idx_session_user" json:"session_id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_session_user" json:"user_id"`
	Nickname   string    `gorm:"size:50;not null" json:"nickname"`
	IsHost     bool      `gorm:"not null;default:false" json:"is_host"`
	TotalScore int       `gorm:"not null;default:0" json:"total_score"`
	JoinedAt   time.Time `gorm:"not null" json:"joined_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Participant) TableName() string {
	return "participants"
}
