package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

func TestHandleServiceError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"не найдено", apperrors.ErrNotFound, http.StatusNotFound},
		{"не аутентифицирован", apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"нет прав", apperrors.ErrNotAuthorized, http.StatusForbidden},
		{"ошибка валидации", apperrors.ErrValidation, http.StatusBadRequest},
		{"недопустимый переход", apperrors.ErrInvalidTransition, http.StatusConflict},
		{"игра уже началась", apperrors.ErrSessionStarted, http.StatusConflict},
		{"повторный ответ", apperrors.ErrAlreadyAnswered, http.StatusConflict},
		{"устаревший вопрос", apperrors.ErrStaleQuestion, http.StatusConflict},
		{"викторина в игре", apperrors.ErrQuizInPlay, http.StatusConflict},
		{"коды исчерпаны", apperrors.ErrCodeSpaceExhausted, http.StatusServiceUnavailable},
		{"хранилище недоступно", apperrors.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"обернутая валидация", fmt.Errorf("%w: пустой заголовок", apperrors.ErrValidation), http.StatusBadRequest},
		{"неизвестная ошибка", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)

			handleServiceError(c, tc.err)

			assert.Equal(t, tc.status, recorder.Code)
		})
	}
}

func TestHandleServiceError_UnknownErrorHidesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	handleServiceError(c, errors.New("password for db: hunter2"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "hunter2", "Детали внутренних ошибок не отдаются клиенту")
}
