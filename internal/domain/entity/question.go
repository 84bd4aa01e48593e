package entity

import (
	"time"
)

// Константы типов вопросов
const (
	QuestionTypeSingleChoice   = "single_choice"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
)

// SpeedBonusFactor — максимальная надбавка за скорость: 20% от базовых очков
const SpeedBonusFactor = 0.2

// Question представляет вопрос викторины
type Question struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	QuizID       uint      `gorm:"not null;index" json:"quiz_id"`
	QuestionType string    `gorm:"size:20;not null;default:'single_choice'" json:"question_type"`
	Text         string    `gorm:"size:500;not null" json:"text"`
	Points       int       `gorm:"not null;default:10" json:"points"`
	TimeLimitSec int       `gorm:"not null;default:30" json:"time_limit_sec"`
	MediaURL     string    `gorm:"size:255;not null;default:''" json:"media_url,omitempty"`
	OrderIndex   int       `gorm:"not null;default:0" json:"order_index"`
	Answers      []Answer  `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// TimeLimitMs возвращает лимит времени вопроса в миллисекундах
func (q *Question) TimeLimitMs() int64 {
	return int64(q.TimeLimitSec) * 1000
}

// CorrectAnswerIDs возвращает ID всех правильных вариантов
func (q *Question) CorrectAnswerIDs() []uint {
	ids := make([]uint, 0, 1)
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// AnswerByID возвращает вариант ответа по ID или nil, если он не принадлежит вопросу
func (q *Question) AnswerByID(answerID uint) *Answer {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return &q.Answers[i]
		}
	}
	return nil
}

// IsCorrectSelection проверяет, является ли выбор правильным для типа вопроса.
// single_choice и true_false: единственный выбранный вариант должен быть правильным.
// multiple_choice: множество выбранных вариантов должно совпадать с множеством правильных.
func (q *Question) IsCorrectSelection(answerIDs []uint) bool {
	if len(answerIDs) == 0 {
		return false
	}

	if q.QuestionType != QuestionTypeMultipleChoice {
		if len(answerIDs) != 1 {
			return false
		}
		answer := q.AnswerByID(answerIDs[0])
		return answer != nil && answer.IsCorrect
	}

	correct := q.CorrectAnswerIDs()
	if len(answerIDs) != len(correct) {
		return false
	}
	correctSet := make(map[uint]bool, len(correct))
	for _, id := range correct {
		correctSet[id] = true
	}
	seen := make(map[uint]bool, len(answerIDs))
	for _, id := range answerIDs {
		if !correctSet[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// IsValidSelection проверяет, что выбор корректно сформирован для типа вопроса:
// все ID принадлежат вопросу, нет дубликатов, и для single_choice/true_false
// выбран ровно один вариант.
func (q *Question) IsValidSelection(answerIDs []uint) bool {
	if len(answerIDs) == 0 {
		return false
	}
	if q.QuestionType != QuestionTypeMultipleChoice && len(answerIDs) != 1 {
		return false
	}
	seen := make(map[uint]bool, len(answerIDs))
	for _, id := range answerIDs {
		if q.AnswerByID(id) == nil || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// CalculatePoints рассчитывает очки за ответ на вопрос.
// Неправильный ответ — 0. Правильный — базовые очки плюс бонус за скорость:
// bonus = (1 - elapsed/limit) * 0.2, результат floor(base * (1 + bonus)).
// elapsedMs ограничивается диапазоном [0, limit]; отрицательное или
// отсутствующее значение трактуется как limit (без бонуса). Функция
// детерминирована и никогда не возвращает отрицательные или
// неограниченные значения.
func (q *Question) CalculatePoints(isCorrect bool, elapsedMs int64) int {
	if !isCorrect {
		return 0
	}

	base := q.Points
	limitMs := q.TimeLimitMs()
	if limitMs <= 0 {
		return base
	}

	if elapsedMs < 0 || elapsedMs >= limitMs {
		return base
	}

	bonus := (1 - float64(elapsedMs)/float64(limitMs)) * SpeedBonusFactor
	return int(float64(base) * (1 + bonus))
}
