package gamesession

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// Алфавит кодов подключения: без 0/O, 1/I, чтобы код легко диктовался вслух
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Бронь кода в кеше живет дольше, чем типичное создание сессии,
// чтобы конкурирующая генерация не выдала тот же код до записи в БД
const codeReservationTTL = 30 * time.Second

// CodeGenerator выдает уникальные коды подключения к сессиям.
// Уникальность проверяется среди живых сессий (ожидание и игра):
// коды завершенных сессий возвращаются в оборот.
type CodeGenerator struct {
	length      int
	maxAttempts int
	sessionRepo repository.GameSessionRepository
	cacheRepo   repository.CacheRepository
}

// NewCodeGenerator создает генератор кодов подключения
func NewCodeGenerator(config *Config, sessionRepo repository.GameSessionRepository, cacheRepo repository.CacheRepository) *CodeGenerator {
	length := config.CodeLength
	if length <= 0 {
		length = DefaultCodeLength
	}
	maxAttempts := config.CodeMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeMaxAttempts
	}
	return &CodeGenerator{
		length:      length,
		maxAttempts: maxAttempts,
		sessionRepo: sessionRepo,
		cacheRepo:   cacheRepo,
	}
}

// Generate возвращает код, не занятый ни одной живой сессией.
// После maxAttempts неудачных попыток возвращает ErrCodeSpaceExhausted.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := randomCode(g.length)
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}

		inUse, err := g.sessionRepo.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if inUse {
			log.Printf("[CodeGenerator] Код %s занят живой сессией (попытка %d/%d)", code, attempt, g.maxAttempts)
			continue
		}

		// Резервируем код в кеше, чтобы параллельное создание сессий
		// не выдало один и тот же код двум ведущим
		if g.cacheRepo != nil {
			reserved, err := g.cacheRepo.SetNX(codeReservationKey(code), 1, codeReservationTTL)
			if err != nil {
				// Кеш недоступен: полагаемся на частичный уникальный индекс в БД
				log.Printf("[CodeGenerator] Кеш недоступен при брони кода %s: %v", code, err)
				return code, nil
			}
			if !reserved {
				log.Printf("[CodeGenerator] Код %s забронирован конкурентом (попытка %d/%d)", code, attempt, g.maxAttempts)
				continue
			}
		}

		return code, nil
	}

	return "", apperrors.ErrCodeSpaceExhausted
}

// Release снимает бронь с кода после записи сессии в БД или при откате
func (g *CodeGenerator) Release(code string) {
	if g.cacheRepo == nil {
		return
	}
	if err := g.cacheRepo.Delete(codeReservationKey(code)); err != nil {
		log.Printf("[CodeGenerator] Ошибка снятия брони с кода %s: %v", code, err)
	}
}

func codeReservationKey(code string) string {
	return "session_code_reservation:" + code
}

// randomCode генерирует криптографически случайный код заданной длины
func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
