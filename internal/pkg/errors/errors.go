package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены
	// (сессия, участник, вопрос, викторина).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок аутентификации (неверный токен).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAuthorized используется, когда участник без прав ведущего
	// пытается выполнить действие, доступное только ведущему.
	ErrNotAuthorized = errors.New("host authority required")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")
)

// Ошибки жизненного цикла игровой сессии
var (
	// ErrInvalidTransition возвращается, когда операция недопустима
	// для текущего статуса сессии (например, submitAnswer для FINISHED).
	ErrInvalidTransition = errors.New("operation is not allowed in current session status")

	// ErrSessionStarted возвращается при попытке присоединиться
	// к сессии, которая уже вышла из статуса WAITING.
	ErrSessionStarted = errors.New("session already started")

	// ErrAlreadyJoined возвращается хранилищем, когда пара
	// (сессия, пользователь) уже зарегистрирована. Координатор разрешает
	// такую гонку идемпотентно, возвращая существующего участника.
	ErrAlreadyJoined = errors.New("participant already joined the session")

	// ErrAlreadyAnswered возвращается, когда участник уже отвечал
	// на этот вопрос. Побеждает первый зафиксированный ответ.
	ErrAlreadyAnswered = errors.New("question already answered by participant")

	// ErrStaleQuestion возвращается, когда ответ ссылается на вопрос,
	// который уже не является текущим. Такие ответы отклоняются, а не
	// засчитываются молча.
	ErrStaleQuestion = errors.New("answer refers to a non-current question")

	// ErrQuizInPlay возвращается при попытке изменить викторину,
	// на которую ссылается живая сессия.
	ErrQuizInPlay = errors.New("quiz is referenced by a live session")

	// ErrCodeSpaceExhausted возвращается, когда не удалось сгенерировать
	// уникальный код сессии за отведенное число попыток.
	ErrCodeSpaceExhausted = errors.New("failed to allocate a unique join code")

	// ErrStorageUnavailable возвращается, когда операция с хранилищем
	// не уложилась в таймаут или завершилась сбоем. Вызывающая сторона
	// может повторить запрос; частичное состояние не публикуется.
	ErrStorageUnavailable = errors.New("session store unavailable")
)
