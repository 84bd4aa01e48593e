package gamesession

import (
	"sort"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuestionView - представление вопроса для участников.
// Признаки правильности вариантов не включаются.
type QuestionView struct {
	ID           uint         `json:"id"`
	Index        int          `json:"index"`
	Text         string       `json:"text"`
	QuestionType string       `json:"question_type"`
	MediaURL     string       `json:"media_url,omitempty"`
	Points       int          `json:"points"`
	TimeLimitSec int          `json:"time_limit_sec"`
	Answers      []AnswerView `json:"answers"`
	TotalCount   int          `json:"total_count"`
}

// AnswerView - вариант ответа без признака правильности
type AnswerView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// ParticipantView - участник в снимке состояния сессии
type ParticipantView struct {
	ID         uint   `json:"id"`
	UserID     uint   `json:"user_id"`
	Nickname   string `json:"nickname"`
	IsHost     bool   `json:"is_host"`
	TotalScore int    `json:"total_score"`
}

// LeaderboardEntry - строка итоговой таблицы
type LeaderboardEntry struct {
	Rank       uint   `json:"rank"`
	UserID     uint   `json:"user_id"`
	Nickname   string `json:"nickname"`
	TotalScore int    `json:"total_score"`
}

// SessionSnapshot - согласованный снимок состояния сессии.
// Используется поллинг-клиентами и при восстановлении соединения.
type SessionSnapshot struct {
	SessionID            uint               `json:"session_id"`
	Code                 string             `json:"code"`
	Status               string             `json:"status"`
	QuizID               uint               `json:"quiz_id"`
	QuizTitle            string             `json:"quiz_title"`
	HostUserID           uint               `json:"host_user_id"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	CurrentQuestion      *QuestionView      `json:"current_question,omitempty"`
	SecondsLeft          int                `json:"seconds_left,omitempty"`
	Participants         []ParticipantView  `json:"participants"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// BuildQuestionView строит безопасное представление вопроса
func BuildQuestionView(q *entity.Question, index, totalCount int) *QuestionView {
	if q == nil {
		return nil
	}
	answers := make([]AnswerView, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, AnswerView{ID: a.ID, Text: a.Text})
	}
	return &QuestionView{
		ID:           q.ID,
		Index:        index,
		Text:         q.Text,
		QuestionType: q.QuestionType,
		MediaURL:     q.MediaURL,
		Points:       q.Points,
		TimeLimitSec: q.TimeLimitSec,
		Answers:      answers,
		TotalCount:   totalCount,
	}
}

// BuildParticipantViews строит представления участников в порядке входа
func BuildParticipantViews(participants []entity.Participant) []ParticipantView {
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, ParticipantView{
			ID:         p.ID,
			UserID:     p.UserID,
			Nickname:   p.Nickname,
			IsHost:     p.IsHost,
			TotalScore: p.TotalScore,
		})
	}
	return views
}

// BuildLeaderboard строит итоговую таблицу: очки по убыванию,
// при равенстве очков выше тот, кто вошел раньше.
func BuildLeaderboard(participants []entity.Participant) []LeaderboardEntry {
	sorted := make([]entity.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	entries := make([]LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		entries = append(entries, LeaderboardEntry{
			Rank:       uint(i + 1),
			UserID:     p.UserID,
			Nickname:   p.Nickname,
			TotalScore: p.TotalScore,
		})
	}
	return entries
}

// SecondsLeft вычисляет остаток времени вопроса по времени показа.
// Возвращает 0, если время показа неизвестно или лимит исчерпан.
func SecondsLeft(questionStartedAtMs int64, timeLimitSec int) int {
	if questionStartedAtMs <= 0 || timeLimitSec <= 0 {
		return 0
	}
	elapsedMs := time.Now().UnixMilli() - questionStartedAtMs
	leftMs := int64(timeLimitSec)*1000 - elapsedMs
	if leftMs <= 0 {
		return 0
	}
	// Округляем вверх, чтобы "1 секунда" не показывалась как 0
	return int((leftMs + 999) / 1000)
}
