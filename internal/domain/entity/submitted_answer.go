package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// UintArray - пользовательский тип для работы с JSONB
type UintArray []uint

// Scan реализует интерфейс sql.Scanner для UintArray
// Используется GORM для чтения JSONB данных из базы
func (a *UintArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*a = UintArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*a = UintArray{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Value реализует интерфейс driver.Valuer для UintArray
// Используется GORM для записи UintArray в JSONB в базе
func (a UintArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(a)
}

// SubmittedAnswer представляет зафиксированный ответ участника на вопрос.
// Инвариант: не более одной записи на пару (участник, вопрос) — координатор
// проверяет это до записи, а уникальный индекс в БД служит страховкой.
type SubmittedAnswer struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SessionID         uint      `gorm:"not null;index" json:"session_id"`
	ParticipantID     uint      `gorm:"not null;index;uniqueIndex:idx_participant_question" json:"participant_id"`
	QuestionID        uint      `gorm:"not null;index;uniqueIndex:idx_participant_question" json:"question_id"`
	SelectedAnswerIDs UintArray `gorm:"type:jsonb;not null" json:"selected_answer_ids"`
	IsCorrect         bool      `gorm:"not null" json:"is_correct"`
	PointsAwarded     int       `gorm:"not null;default:0" json:"points_awarded"`
	TimeToAnswerMs    int64     `gorm:"not null" json:"time_to_answer_ms"`
	AnsweredAt        time.Time `gorm:"not null" json:"answered_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (SubmittedAnswer) TableName() string {
	return "submitted_answers"
}
