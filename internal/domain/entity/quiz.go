package entity

import (
	"time"
)

// Константы уровней сложности викторины
const (
	QuizDifficultyEasy   = "easy"
	QuizDifficultyMedium = "medium"
	QuizDifficultyHard   = "hard"
)

// Quiz представляет викторину — неизменяемый агрегат вопросов.
// Для ядра сессий викторина доступна только для чтения: редактирование
// викторины, на которую ссылается живая сессия, отклоняется.
type Quiz struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:100;not null" json:"title"`
	Description string     `gorm:"size:500;not null;default:''" json:"description"`
	Difficulty  string     `gorm:"size:20;not null;default:'medium'" json:"difficulty"`
	Category    string     `gorm:"size:50;not null;default:'General'" json:"category"`
	IsPublic    bool       `gorm:"not null;default:false" json:"is_public"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`
	Questions   []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// QuestionCount возвращает количество вопросов в викторине
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}

// QuestionAt возвращает вопрос по индексу или nil, если индекс вне диапазона
func (q *Quiz) QuestionAt(index int) *Question {
	if index < 0 || index >= len(q.Questions) {
		return nil
	}
	return &q.Questions[index]
}
