package gamesession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// ============================================================================
// Моки для CodeGenerator
// ============================================================================

// MockSessionRepoForCodes реализует repository.GameSessionRepository
type MockSessionRepoForCodes struct {
	mock.Mock
}

func (m *MockSessionRepoForCodes) Create(ctx context.Context, session *entity.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepoForCodes) GetByID(ctx context.Context, id uint) (*entity.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepoForCodes) GetByCode(ctx context.Context, code string) (*entity.GameSession, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockSessionRepoForCodes) UpdateState(ctx context.Context, session *entity.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepoForCodes) CountLiveByQuiz(ctx context.Context, quizID uint) (int64, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepoForCodes) CodeInUse(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

// MockCacheRepoForCodes реализует repository.CacheRepository
type MockCacheRepoForCodes struct {
	mock.Mock
}

func (m *MockCacheRepoForCodes) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForCodes) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepoForCodes) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepoForCodes) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepoForCodes) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForCodes) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepoForCodes) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepoForCodes) ExpireAt(key string, expiration time.Time) error {
	args := m.Called(key, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForCodes) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepoForCodes) SAdd(key string, members ...interface{}) error {
	args := m.Called(key, members)
	return args.Error(0)
}

func (m *MockCacheRepoForCodes) SMembers(key string) ([]string, error) {
	args := m.Called(key)
	return args.Get(0).([]string), args.Error(1)
}

// ============================================================================
// Тесты
// ============================================================================

func TestCodeGenerator_Generate_Success(t *testing.T) {
	// Arrange
	mockSessionRepo := new(MockSessionRepoForCodes)
	mockCacheRepo := new(MockCacheRepoForCodes)

	mockSessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
	mockCacheRepo.On("SetNX", mock.AnythingOfType("string"), 1, codeReservationTTL).Return(true, nil)

	generator := NewCodeGenerator(DefaultConfig(), mockSessionRepo, mockCacheRepo)

	// Act
	code, err := generator.Generate(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.Len(t, code, DefaultCodeLength)
	for _, r := range code {
		assert.Contains(t, codeAlphabet, string(r), "Код должен состоять только из символов алфавита")
	}
	mockSessionRepo.AssertExpectations(t)
	mockCacheRepo.AssertExpectations(t)
}

func TestCodeGenerator_Generate_RetriesOnCollision(t *testing.T) {
	// Arrange: первая попытка попадает на занятый код, вторая свободна
	mockSessionRepo := new(MockSessionRepoForCodes)
	mockCacheRepo := new(MockCacheRepoForCodes)

	mockSessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Once()
	mockSessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
	mockCacheRepo.On("SetNX", mock.AnythingOfType("string"), 1, codeReservationTTL).Return(true, nil).Once()

	generator := NewCodeGenerator(DefaultConfig(), mockSessionRepo, mockCacheRepo)

	// Act
	code, err := generator.Generate(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.Len(t, code, DefaultCodeLength)
	mockSessionRepo.AssertExpectations(t)
}

func TestCodeGenerator_Generate_Exhausted(t *testing.T) {
	// Arrange: все попытки попадают на занятые коды
	mockSessionRepo := new(MockSessionRepoForCodes)
	mockSessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)

	config := DefaultConfig()
	config.CodeMaxAttempts = 3
	generator := NewCodeGenerator(config, mockSessionRepo, nil)

	// Act
	_, err := generator.Generate(context.Background())

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrCodeSpaceExhausted)
	mockSessionRepo.AssertNumberOfCalls(t, "CodeInUse", 3)
}

func TestCodeGenerator_Generate_CacheUnavailable(t *testing.T) {
	// Arrange: кеш недоступен, код выдается — страховкой служит
	// частичный уникальный индекс в БД
	mockSessionRepo := new(MockSessionRepoForCodes)
	mockCacheRepo := new(MockCacheRepoForCodes)

	mockSessionRepo.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
	mockCacheRepo.On("SetNX", mock.AnythingOfType("string"), 1, codeReservationTTL).Return(false, errors.New("redis down"))

	generator := NewCodeGenerator(DefaultConfig(), mockSessionRepo, mockCacheRepo)

	// Act
	code, err := generator.Generate(context.Background())

	// Assert
	assert.NoError(t, err, "Недоступность кеша не должна блокировать создание сессии")
	assert.Len(t, code, DefaultCodeLength)
}

func TestCodeGenerator_Release(t *testing.T) {
	// Arrange
	mockCacheRepo := new(MockCacheRepoForCodes)
	mockCacheRepo.On("Delete", codeReservationKey("ABC234")).Return(nil)

	generator := NewCodeGenerator(DefaultConfig(), new(MockSessionRepoForCodes), mockCacheRepo)

	// Act
	generator.Release("ABC234")

	// Assert
	mockCacheRepo.AssertExpectations(t)
}
