package websocket

// Типы сообщений игровой сессии
const (
	// GAME_STARTED сообщает о начале игры в сессии
	GAME_STARTED = "GAME_STARTED"

	// GAME_ENDED сообщает о завершении игры и несет итоговую таблицу
	GAME_ENDED = "GAME_ENDED"

	// QUESTION_CHANGED сообщает о переходе к новому вопросу
	QUESTION_CHANGED = "QUESTION_CHANGED"

	// QUESTION_TIMER несет отсчет оставшегося времени вопроса
	QUESTION_TIMER = "QUESTION_TIMER"

	// PARTICIPANT_JOINED сообщает о присоединении нового участника
	PARTICIPANT_JOINED = "PARTICIPANT_JOINED"

	// ANSWER_RECEIVED подтверждает прием ответа (только отправителю)
	ANSWER_RECEIVED = "ANSWER_RECEIVED"

	// ANSWER_TALLY несет счетчик полученных ответов (только ведущему)
	ANSWER_TALLY = "ANSWER_TALLY"
)
