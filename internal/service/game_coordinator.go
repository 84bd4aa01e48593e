package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service/gamesession"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

// formatUserID переводит ID пользователя в строковый формат подписок хаба
func formatUserID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// SubmitAnswerInput - входные данные операции отправки ответа
type SubmitAnswerInput struct {
	QuestionID        uint
	SelectedAnswerIDs []uint
	// ClientElapsedMs - время ответа по часам клиента. Используется как
	// резерв, когда серверное время показа вопроса неизвестно, и в любом
	// случае ограничивается лимитом вопроса.
	ClientElapsedMs int64
}

// SubmitAnswerResult - результат фиксации ответа
type SubmitAnswerResult struct {
	QuestionID    uint  `json:"question_id"`
	IsCorrect     bool  `json:"is_correct"`
	PointsAwarded int   `json:"points_awarded"`
	TotalScore    int   `json:"total_score"`
	ElapsedMs     int64 `json:"elapsed_ms"`
}

// GameCoordinator управляет жизненным циклом игровых сессий: создание,
// вход по коду, ход игры, прием ответов и завершение. Владеет оперативным
// состоянием каждой живой сессии; хранилище служит журналом состояния.
type GameCoordinator struct {
	config *gamesession.Config
	deps   *gamesession.Dependencies
	codes  *gamesession.CodeGenerator

	// Живые сессии: sessionID -> *gamesession.LiveState
	live sync.Map

	// Защищает создание записей в live от гонок
	liveMu sync.Mutex
}

// NewGameCoordinator создает новый координатор игровых сессий
func NewGameCoordinator(deps *gamesession.Dependencies) *GameCoordinator {
	config := deps.Config
	if config == nil {
		config = gamesession.DefaultConfig()
	}
	return &GameCoordinator{
		config: config,
		deps:   deps,
		codes:  gamesession.NewCodeGenerator(config, deps.SessionRepo, deps.CacheRepo),
	}
}

// CreateSession создает сессию по викторине и регистрирует создателя
// как ведущего. Сессия создается в статусе WAITING с уникальным среди
// живых сессий кодом подключения.
func (c *GameCoordinator) CreateSession(ctx context.Context, quizID, hostUserID uint, hostNickname string) (*entity.GameSession, *entity.Participant, error) {
	quiz, err := c.deps.QuizRepo.GetWithQuestions(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if quiz.QuestionCount() == 0 {
		log.Printf("[GameCoordinator] Отказ создания сессии: викторина #%d без вопросов", quizID)
		return nil, nil, apperrors.ErrValidation
	}

	code, err := c.codes.Generate(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer c.codes.Release(code)

	session := &entity.GameSession{
		Code:       code,
		Status:     entity.SessionStatusWaiting,
		QuizID:     quiz.ID,
		HostUserID: hostUserID,
	}

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.deps.SessionRepo.Create(storeCtx, session); err != nil {
		return nil, nil, c.asStoreError(err)
	}

	host := &entity.Participant{
		SessionID: session.ID,
		UserID:    hostUserID,
		Nickname:  hostNickname,
		IsHost:    true,
		JoinedAt:  time.Now(),
	}
	if err := c.deps.ParticipantRepo.Create(storeCtx, host); err != nil {
		return nil, nil, c.asStoreError(err)
	}

	state := gamesession.NewLiveState(session)
	c.live.Store(session.ID, state)

	log.Printf("[GameCoordinator] Сессия #%d создана по викторине #%d, код %s, ведущий user=%d",
		session.ID, quiz.ID, session.Code, hostUserID)
	created := *session
	return &created, host, nil
}

// JoinSession присоединяет пользователя к сессии по коду подключения.
// Операция идемпотентна: повторный вход того же пользователя возвращает
// существующего участника без дублирования. Вход после старта игры
// разрешен только уже зарегистрированным участникам.
// Возвращаемая сессия — копия: живой объект остается под замком сессии.
func (c *GameCoordinator) JoinSession(ctx context.Context, code string, userID uint, nickname string) (*entity.GameSession, *entity.Participant, error) {
	session, err := c.deps.SessionRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	state, err := c.liveState(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()
	session = state.Session

	// Идемпотентный повторный вход
	existing, err := c.deps.ParticipantRepo.GetBySessionAndUser(ctx, session.ID, userID)
	if err == nil {
		log.Printf("[GameCoordinator] Повторный вход участника user=%d в сессию #%d", userID, session.ID)
		joined := *session
		return &joined, existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}

	// Новые участники принимаются только до старта игры
	if !session.IsWaiting() {
		return nil, nil, apperrors.ErrSessionStarted
	}

	if c.config.MaxParticipants > 0 {
		participants, err := c.deps.ParticipantRepo.ListBySession(ctx, session.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(participants) >= c.config.MaxParticipants {
			log.Printf("[GameCoordinator] Сессия #%d заполнена (%d участников)", session.ID, len(participants))
			return nil, nil, apperrors.ErrValidation
		}
	}

	participant := &entity.Participant{
		SessionID: session.ID,
		UserID:    userID,
		Nickname:  nickname,
		JoinedAt:  time.Now(),
	}

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.deps.ParticipantRepo.Create(storeCtx, participant); err != nil {
		// Конкурирующий вход того же пользователя (например, с другого
		// инстанса) успел первым: уникальный индекс (session_id, user_id)
		// сработал, вход разрешается идемпотентно
		if errors.Is(err, apperrors.ErrAlreadyJoined) {
			existing, fetchErr := c.deps.ParticipantRepo.GetBySessionAndUser(ctx, session.ID, userID)
			if fetchErr != nil {
				return nil, nil, fetchErr
			}
			log.Printf("[GameCoordinator] Гонка входа участника user=%d в сессию #%d разрешена идемпотентно", userID, session.ID)
			joined := *session
			return &joined, existing, nil
		}
		return nil, nil, c.asStoreError(err)
	}

	c.publish(session.ID, websocket.PARTICIPANT_JOINED, map[string]interface{}{
		"session_id": session.ID,
		"user_id":    participant.UserID,
		"nickname":   participant.Nickname,
	})

	log.Printf("[GameCoordinator] Участник user=%d (%s) вошел в сессию #%d", userID, nickname, session.ID)
	joined := *session
	return &joined, participant, nil
}

// StartSession переводит сессию из WAITING в IN_PROGRESS и показывает
// первый вопрос. Доступно только ведущему.
func (c *GameCoordinator) StartSession(ctx context.Context, sessionID, userID uint) error {
	state, err := c.liveState(ctx, sessionID)
	if err != nil {
		return err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()
	session := state.Session

	if session.HostUserID != userID {
		return apperrors.ErrNotAuthorized
	}
	if !session.CanTransitionTo(entity.SessionStatusInProgress) {
		return apperrors.ErrInvalidTransition
	}

	quiz, err := c.deps.QuizRepo.GetWithQuestions(ctx, session.QuizID)
	if err != nil {
		return err
	}
	if quiz.QuestionCount() == 0 {
		return apperrors.ErrValidation
	}

	// Сначала фиксируем переход в хранилище, потом применяем в памяти:
	// при сбое записи оперативное состояние не меняется
	now := time.Now()
	updated := *session
	updated.Status = entity.SessionStatusInProgress
	updated.CurrentQuestionIndex = 0
	updated.StartedAt = &now

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.deps.SessionRepo.UpdateState(storeCtx, &updated); err != nil {
		return c.asStoreError(err)
	}

	*session = updated
	state.Quiz = quiz
	state.QuestionStartedAtMs = time.Now().UnixMilli()

	c.publish(sessionID, websocket.GAME_STARTED, map[string]interface{}{
		"session_id":     sessionID,
		"quiz_id":        quiz.ID,
		"quiz_title":     quiz.Title,
		"question_count": quiz.QuestionCount(),
	})
	c.publishQuestion(state)
	c.startQuestionTimer(state)

	log.Printf("[GameCoordinator] Сессия #%d: игра началась, вопросов %d", sessionID, quiz.QuestionCount())
	return nil
}

// AdvanceQuestion переводит сессию к следующему вопросу. На последнем
// вопросе завершает игру. Доступно только ведущему.
func (c *GameCoordinator) AdvanceQuestion(ctx context.Context, sessionID, userID uint) error {
	state, err := c.liveState(ctx, sessionID)
	if err != nil {
		return err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()

	if state.Session.HostUserID != userID {
		return apperrors.ErrNotAuthorized
	}

	return c.advanceLocked(ctx, state)
}

// advanceLocked выполняет переход к следующему вопросу или завершает
// игру. Вызывающий держит state.Mu, права ведущего уже проверены.
func (c *GameCoordinator) advanceLocked(ctx context.Context, state *gamesession.LiveState) error {
	session := state.Session

	if !session.IsInProgress() {
		return apperrors.ErrInvalidTransition
	}

	if err := c.ensureQuizLoaded(ctx, state); err != nil {
		return err
	}

	if session.CurrentQuestionIndex >= state.Quiz.QuestionCount()-1 {
		return c.finishLocked(ctx, state)
	}

	updated := *session
	updated.CurrentQuestionIndex++

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.deps.SessionRepo.UpdateState(storeCtx, &updated); err != nil {
		return c.asStoreError(err)
	}

	*session = updated
	state.QuestionStartedAtMs = time.Now().UnixMilli()

	c.publishQuestion(state)
	c.startQuestionTimer(state)

	log.Printf("[GameCoordinator] Сессия #%d: переход к вопросу %d", session.ID, session.CurrentQuestionIndex)
	return nil
}

// EndSession досрочно завершает игру. Доступно только ведущему.
func (c *GameCoordinator) EndSession(ctx context.Context, sessionID, userID uint) error {
	state, err := c.liveState(ctx, sessionID)
	if err != nil {
		return err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()

	if state.Session.HostUserID != userID {
		return apperrors.ErrNotAuthorized
	}

	return c.finishLocked(ctx, state)
}

// finishLocked завершает игру: персистирует FINISHED, рассылает итоговую
// таблицу и закрывает подписки сессии. Вызывающий держит state.Mu.
func (c *GameCoordinator) finishLocked(ctx context.Context, state *gamesession.LiveState) error {
	session := state.Session

	if !session.CanTransitionTo(entity.SessionStatusFinished) {
		return apperrors.ErrInvalidTransition
	}

	now := time.Now()
	updated := *session
	updated.Status = entity.SessionStatusFinished
	updated.EndedAt = &now

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.deps.SessionRepo.UpdateState(storeCtx, &updated); err != nil {
		return c.asStoreError(err)
	}

	*session = updated
	state.StopQuestionTimer()
	state.QuestionStartedAtMs = 0

	participants, err := c.deps.ParticipantRepo.ListBySession(ctx, session.ID)
	if err != nil {
		// Игра уже завершена; итоговую таблицу доставить не удалось
		log.Printf("[GameCoordinator] Сессия #%d: ошибка загрузки участников для итоговой таблицы: %v", session.ID, err)
		participants = nil
	}

	c.publish(session.ID, websocket.GAME_ENDED, map[string]interface{}{
		"session_id":  session.ID,
		"leaderboard": gamesession.BuildLeaderboard(participants),
	})

	if c.deps.Publisher != nil {
		c.deps.Publisher.CloseSession(session.ID)
	}
	c.live.Delete(session.ID)

	log.Printf("[GameCoordinator] Сессия #%d завершена", session.ID)
	return nil
}

// SubmitAnswer фиксирует ответ участника на текущий вопрос.
// Цепочка проверок: сессия в игре, участник принадлежит сессии, вопрос
// текущий, повторных ответов нет, выбор корректно сформирован. Побеждает
// первый зафиксированный ответ; устаревшие ответы отклоняются.
func (c *GameCoordinator) SubmitAnswer(ctx context.Context, sessionID, userID uint, input SubmitAnswerInput) (*SubmitAnswerResult, error) {
	state, err := c.liveState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()
	session := state.Session

	if !session.IsInProgress() {
		return nil, apperrors.ErrInvalidTransition
	}

	participant, err := c.deps.ParticipantRepo.GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotAuthorized
		}
		return nil, err
	}

	if err := c.ensureQuizLoaded(ctx, state); err != nil {
		return nil, err
	}

	question := state.CurrentQuestion()
	if question == nil {
		return nil, apperrors.ErrInvalidTransition
	}
	if question.ID != input.QuestionID {
		return nil, apperrors.ErrStaleQuestion
	}

	answered, err := c.deps.AnswerRepo.HasAnswered(ctx, participant.ID, question.ID)
	if err != nil {
		return nil, err
	}
	if answered {
		return nil, apperrors.ErrAlreadyAnswered
	}

	if !question.IsValidSelection(input.SelectedAnswerIDs) {
		return nil, apperrors.ErrValidation
	}

	elapsedMs := c.elapsedMs(state, question, input.ClientElapsedMs)
	isCorrect := question.IsCorrectSelection(input.SelectedAnswerIDs)
	points := question.CalculatePoints(isCorrect, elapsedMs)

	answer := &entity.SubmittedAnswer{
		SessionID:         sessionID,
		ParticipantID:     participant.ID,
		QuestionID:        question.ID,
		SelectedAnswerIDs: input.SelectedAnswerIDs,
		IsCorrect:         isCorrect,
		PointsAwarded:     points,
		TimeToAnswerMs:    elapsedMs,
		AnsweredAt:        time.Now(),
	}

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()
	totalScore, err := c.deps.AnswerRepo.RecordWithScore(storeCtx, answer)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyAnswered) {
			// Конкурирующий ответ успел первым
			return nil, apperrors.ErrAlreadyAnswered
		}
		return nil, c.asStoreError(err)
	}

	result := &SubmitAnswerResult{
		QuestionID:    question.ID,
		IsCorrect:     isCorrect,
		PointsAwarded: points,
		TotalScore:    totalScore,
		ElapsedMs:     elapsedMs,
	}

	// Подтверждение - только отправителю
	c.publishToUser(sessionID, participant.UserID, websocket.ANSWER_RECEIVED, result)

	// Счетчик ответов - только ведущему
	if count, err := c.deps.AnswerRepo.CountBySessionQuestion(ctx, sessionID, question.ID); err == nil {
		c.publishToUser(sessionID, session.HostUserID, websocket.ANSWER_TALLY, map[string]interface{}{
			"session_id":    sessionID,
			"question_id":   question.ID,
			"answers_count": count,
		})
	}

	log.Printf("[GameCoordinator] Сессия #%d: ответ участника #%d на вопрос #%d зафиксирован (+%d очков за %d мс)",
		sessionID, participant.ID, question.ID, points, elapsedMs)
	return result, nil
}

// GetSnapshot возвращает согласованный снимок состояния сессии.
// Снимок строится под замком сессии и не отстает от опубликованных событий.
func (c *GameCoordinator) GetSnapshot(ctx context.Context, sessionID uint) (*gamesession.SessionSnapshot, error) {
	state, err := c.liveState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()
	session := state.Session

	snapshot := &gamesession.SessionSnapshot{
		SessionID:            session.ID,
		Code:                 session.Code,
		Status:               session.Status,
		QuizID:               session.QuizID,
		HostUserID:           session.HostUserID,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
	}

	participants, err := c.deps.ParticipantRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snapshot.Participants = gamesession.BuildParticipantViews(participants)

	if session.IsInProgress() {
		if err := c.ensureQuizLoaded(ctx, state); err != nil {
			return nil, err
		}
		snapshot.QuizTitle = state.Quiz.Title
		question := state.CurrentQuestion()
		if question != nil {
			snapshot.CurrentQuestion = gamesession.BuildQuestionView(question, session.CurrentQuestionIndex, state.Quiz.QuestionCount())
			snapshot.SecondsLeft = gamesession.SecondsLeft(state.QuestionStartedAtMs, question.TimeLimitSec)
		}
	}

	if session.IsFinished() {
		snapshot.Leaderboard = gamesession.BuildLeaderboard(participants)
	}

	return snapshot, nil
}

// GetCurrentQuestion возвращает текущий вопрос сессии для поллинг-клиентов.
// Для сессии вне игры возвращает ErrInvalidTransition.
func (c *GameCoordinator) GetCurrentQuestion(ctx context.Context, sessionID uint) (*gamesession.QuestionView, int, error) {
	state, err := c.liveState(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()
	session := state.Session

	if !session.IsInProgress() {
		return nil, 0, apperrors.ErrInvalidTransition
	}
	if err := c.ensureQuizLoaded(ctx, state); err != nil {
		return nil, 0, err
	}

	question := state.CurrentQuestion()
	if question == nil {
		return nil, 0, apperrors.ErrNotFound
	}

	view := gamesession.BuildQuestionView(question, session.CurrentQuestionIndex, state.Quiz.QuestionCount())
	secondsLeft := gamesession.SecondsLeft(state.QuestionStartedAtMs, question.TimeLimitSec)
	return view, secondsLeft, nil
}

// SessionResults возвращает участников и все ответы завершенной сессии.
// Используется экспортом результатов.
func (c *GameCoordinator) SessionResults(ctx context.Context, sessionID uint) (*entity.GameSession, []entity.Participant, []entity.SubmittedAnswer, error) {
	session, err := c.deps.SessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}

	participants, err := c.deps.ParticipantRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}

	answers, err := c.deps.AnswerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}

	return session, participants, answers, nil
}

// IsParticipant проверяет принадлежность пользователя сессии.
// Используется при выдаче WS-подписок.
func (c *GameCoordinator) IsParticipant(ctx context.Context, sessionID, userID uint) (*entity.Participant, error) {
	participant, err := c.deps.ParticipantRepo.GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotAuthorized
		}
		return nil, err
	}
	return participant, nil
}

// liveState возвращает оперативное состояние сессии, поднимая его из
// хранилища при первом обращении (например, после рестарта процесса).
func (c *GameCoordinator) liveState(ctx context.Context, sessionID uint) (*gamesession.LiveState, error) {
	if value, ok := c.live.Load(sessionID); ok {
		return value.(*gamesession.LiveState), nil
	}

	c.liveMu.Lock()
	defer c.liveMu.Unlock()

	// Проверяем повторно под замком
	if value, ok := c.live.Load(sessionID); ok {
		return value.(*gamesession.LiveState), nil
	}

	session, err := c.deps.SessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := gamesession.NewLiveState(session)
	c.live.Store(sessionID, state)
	log.Printf("[GameCoordinator] Состояние сессии #%d поднято из хранилища (статус %s)", sessionID, session.Status)
	return state, nil
}

// ensureQuizLoaded догружает викторину в оперативное состояние.
// Вызывающий держит state.Mu.
func (c *GameCoordinator) ensureQuizLoaded(ctx context.Context, state *gamesession.LiveState) error {
	if state.Quiz != nil {
		return nil
	}
	quiz, err := c.deps.QuizRepo.GetWithQuestions(ctx, state.Session.QuizID)
	if err != nil {
		return err
	}
	state.Quiz = quiz
	return nil
}

// elapsedMs вычисляет время ответа. Серверное время показа вопроса
// авторитетно; заявленное клиентом значение используется только как
// резерв и в обоих случаях ограничивается лимитом вопроса.
func (c *GameCoordinator) elapsedMs(state *gamesession.LiveState, question *entity.Question, clientElapsedMs int64) int64 {
	limitMs := question.TimeLimitMs()

	var elapsed int64
	if state.QuestionStartedAtMs > 0 {
		elapsed = time.Now().UnixMilli() - state.QuestionStartedAtMs
	} else {
		elapsed = clientElapsedMs
	}

	if elapsed < 0 {
		return 0
	}
	if limitMs > 0 && elapsed > limitMs {
		return limitMs
	}
	return elapsed
}

// publishQuestion рассылает текущий вопрос подписчикам сессии.
// Вызывающий держит state.Mu.
func (c *GameCoordinator) publishQuestion(state *gamesession.LiveState) {
	question := state.CurrentQuestion()
	if question == nil {
		return
	}
	view := gamesession.BuildQuestionView(question, state.Session.CurrentQuestionIndex, state.Quiz.QuestionCount())
	c.publish(state.Session.ID, websocket.QUESTION_CHANGED, map[string]interface{}{
		"session_id": state.Session.ID,
		"question":   view,
	})
}

// startQuestionTimer запускает рассылку отсчета времени текущего вопроса.
// Отсчет информационный: истечение лимита не блокирует прием ответов,
// но при включенном AutoAdvance инициирует переход к следующему вопросу.
// Вызывающий держит state.Mu.
func (c *GameCoordinator) startQuestionTimer(state *gamesession.LiveState) {
	question := state.CurrentQuestion()
	if question == nil || question.TimeLimitSec <= 0 {
		state.StopQuestionTimer()
		return
	}

	timerCtx, cancel := context.WithCancel(context.Background())
	state.StartQuestionTimer(cancel)

	sessionID := state.Session.ID
	questionID := question.ID
	startedAtMs := state.QuestionStartedAtMs
	timeLimitSec := question.TimeLimitSec

	go c.runQuestionTimer(timerCtx, state, sessionID, questionID, startedAtMs, timeLimitSec)
}

// runQuestionTimer рассылает QUESTION_TIMER до истечения лимита или отмены
func (c *GameCoordinator) runQuestionTimer(ctx context.Context, state *gamesession.LiveState, sessionID, questionID uint, startedAtMs int64, timeLimitSec int) {
	tick := c.config.TimerTick
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			secondsLeft := gamesession.SecondsLeft(startedAtMs, timeLimitSec)
			c.publish(sessionID, websocket.QUESTION_TIMER, map[string]interface{}{
				"session_id":   sessionID,
				"question_id":  questionID,
				"seconds_left": secondsLeft,
			})

			if secondsLeft <= 0 {
				log.Printf("[GameCoordinator] Сессия #%d: время вопроса #%d истекло", sessionID, questionID)
				if c.config.AutoAdvance {
					c.autoAdvance(state, questionID)
				}
				return
			}
		}
	}
}

// autoAdvance выполняет автоматический переход после истечения таймера.
// Переход идет через тот же замок сессии, что и ручной: если ведущий
// успел перейти сам, текущий вопрос уже другой и переход не выполняется.
func (c *GameCoordinator) autoAdvance(state *gamesession.LiveState, questionID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.StoreTimeout+time.Second)
	defer cancel()

	state.Mu.Lock()
	defer state.Mu.Unlock()

	question := state.CurrentQuestion()
	if question == nil || question.ID != questionID {
		return
	}

	if err := c.advanceLocked(ctx, state); err != nil {
		log.Printf("[GameCoordinator] Сессия #%d: ошибка автоперехода: %v", state.Session.ID, err)
	}
}

// storeContext оборачивает контекст таймаутом записи в хранилище
func (c *GameCoordinator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.config.StoreTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// asStoreError переводит сбои хранилища в ErrStorageUnavailable.
// Доменные ошибки проходят без изменений.
func (c *GameCoordinator) asStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrAlreadyAnswered),
		errors.Is(err, apperrors.ErrCodeSpaceExhausted),
		errors.Is(err, apperrors.ErrValidation):
		return err
	}
	log.Printf("[GameCoordinator] Сбой хранилища: %v", err)
	return apperrors.ErrStorageUnavailable
}

// publish рассылает событие всем подписчикам сессии. Доставка
// негарантированная: ошибки публикации логируются и не влияют на операцию.
func (c *GameCoordinator) publish(sessionID uint, eventType string, data interface{}) {
	if c.deps.Publisher == nil {
		return
	}
	if err := c.deps.Publisher.BroadcastToSession(sessionID, eventType, data); err != nil {
		log.Printf("[GameCoordinator] Ошибка рассылки %s в сессию #%d: %v", eventType, sessionID, err)
	}
}

// publishToUser отправляет событие одному пользователю сессии
func (c *GameCoordinator) publishToUser(sessionID, userID uint, eventType string, data interface{}) {
	if c.deps.Publisher == nil {
		return
	}
	if err := c.deps.Publisher.SendToUserInSession(sessionID, formatUserID(userID), eventType, data); err != nil {
		log.Printf("[GameCoordinator] Ошибка отправки %s пользователю %d в сессии #%d: %v", eventType, userID, sessionID, err)
	}
}
