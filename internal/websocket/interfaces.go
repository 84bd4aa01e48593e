package websocket

import (
	"context"
)

// HubInterface определяет возможности хаба для Manager.
type HubInterface interface {
	// BroadcastToSession отправляет байтовое сообщение всем клиентам сессии
	BroadcastToSession(sessionID uint, message []byte)

	// SendToUserInSession отправляет сообщение конкретному пользователю сессии.
	// Возвращает true, если клиент найден и сообщение поставлено в очередь.
	SendToUserInSession(sessionID uint, userID string, message []byte) bool

	// CloseSession отключает всех клиентов сессии и удаляет ее из реестра
	CloseSession(sessionID uint)

	// SessionClientCount возвращает число подключенных клиентов сессии
	SessionClientCount(sessionID uint) int

	// ClientCount возвращает общее число подключенных клиентов
	ClientCount() int
}

// PubSubProvider определяет интерфейс для провайдеров публикации/подписки
type PubSubProvider interface {
	// Publish публикует сообщение в указанный канал
	Publish(channel string, message []byte) error

	// Subscribe подписывается на указанный канал и возвращает канал для сообщений
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	// Close закрывает все соединения и освобождает ресурсы
	Close() error
}
