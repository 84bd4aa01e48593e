package repository

import (
	"context"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// QuizFilters определяет фильтры для поиска викторин
type QuizFilters struct {
	Category string // Фильтр по категории
	Search   string // Поиск по названию/описанию
	IsPublic *bool  // Фильтр по публичности
}

// QuizRepository определяет методы для работы с викторинами.
// Викторина сохраняется как целостный агрегат: ответы внутри вопросов,
// вопросы внутри викторины, без пост-фактум правки обратных ссылок.
type QuizRepository interface {
	Create(ctx context.Context, quiz *entity.Quiz) error
	GetByID(ctx context.Context, id uint) (*entity.Quiz, error)
	// GetWithQuestions возвращает викторину с вопросами и вариантами ответов,
	// отсортированными по order_index.
	GetWithQuestions(ctx context.Context, id uint) (*entity.Quiz, error)
	List(ctx context.Context, filters QuizFilters, limit, offset int) ([]entity.Quiz, int64, error)

	// Update заменяет викторину целиком: скалярные поля и агрегат вопросов
	Update(ctx context.Context, quiz *entity.Quiz) error
	Delete(ctx context.Context, id uint) error
}
