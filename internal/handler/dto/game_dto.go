package dto

import (
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/service"
)

// SessionResponse представляет игровую сессию в формате для клиента
type SessionResponse struct {
	ID                   uint       `json:"id"`
	Code                 string     `json:"code"`
	Status               string     `json:"status"`
	QuizID               uint       `json:"quiz_id"`
	HostUserID           uint       `json:"host_user_id"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ParticipantResponse представляет участника сессии
type ParticipantResponse struct {
	ID         uint      `json:"id"`
	SessionID  uint      `json:"session_id"`
	UserID     uint      `json:"user_id"`
	Nickname   string    `json:"nickname"`
	IsHost     bool      `json:"is_host"`
	TotalScore int       `json:"total_score"`
	JoinedAt   time.Time `json:"joined_at"`
}

// JoinSessionResponse объединяет сессию и созданного (или найденного) участника
type JoinSessionResponse struct {
	Session     *SessionResponse     `json:"session"`
	Participant *ParticipantResponse `json:"participant"`
}

// SubmitAnswerResponse представляет результат фиксации ответа
type SubmitAnswerResponse struct {
	QuestionID    uint  `json:"question_id"`
	IsCorrect     bool  `json:"is_correct"`
	PointsAwarded int   `json:"points_awarded"`
	TotalScore    int   `json:"total_score"`
	ElapsedMs     int64 `json:"elapsed_ms"`
}

// NewSessionResponse создает DTO для игровой сессии
func NewSessionResponse(session *entity.GameSession) *SessionResponse {
	if session == nil {
		return nil
	}
	return &SessionResponse{
		ID:                   session.ID,
		Code:                 session.Code,
		Status:               session.Status,
		QuizID:               session.QuizID,
		HostUserID:           session.HostUserID,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		StartedAt:            session.StartedAt,
		EndedAt:              session.EndedAt,
		CreatedAt:            session.CreatedAt,
	}
}

// NewParticipantResponse создает DTO для участника
func NewParticipantResponse(p *entity.Participant) *ParticipantResponse {
	if p == nil {
		return nil
	}
	return &ParticipantResponse{
		ID:         p.ID,
		SessionID:  p.SessionID,
		UserID:     p.UserID,
		Nickname:   p.Nickname,
		IsHost:     p.IsHost,
		TotalScore: p.TotalScore,
		JoinedAt:   p.JoinedAt,
	}
}

// NewSubmitAnswerResponse создает DTO для результата ответа
func NewSubmitAnswerResponse(result *service.SubmitAnswerResult) *SubmitAnswerResponse {
	if result == nil {
		return nil
	}
	return &SubmitAnswerResponse{
		QuestionID:    result.QuestionID,
		IsCorrect:     result.IsCorrect,
		PointsAwarded: result.PointsAwarded,
		TotalScore:    result.TotalScore,
		ElapsedMs:     result.ElapsedMs,
	}
}
