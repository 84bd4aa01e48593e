package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager обрабатывает WebSocket сообщения и публикует события сессий
type Manager struct {
	hub            HubInterface
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub HubInterface) *Manager {
	return &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если обработка не удалась и соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("Failed to unmarshal message from %s: %v, Message: %s", client.UserID, err, string(message))
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err // Ошибка парсинга - закрываем соединение
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		log.Printf("No handler registered for message type '%s' from client %s", event.Type, client.UserID)
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil // Неизвестный тип - не закрываем соединение
	}

	rawMessage, _ := json.Marshal(event.Data)
	if err := handler(rawMessage, client); err != nil {
		log.Printf("Handler for type '%s' returned error for client %s: %v", event.Type, client.UserID, err)
		return err
	}

	return nil
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту.
// Этот метод НЕ закрывает соединение.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	errorEvent := Event{
		Type: "server:error",
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	}
	jsonBytes, err := json.Marshal(errorEvent)
	if err != nil {
		log.Printf("ERROR marshaling error event for client %s: %v", client.UserID, err)
		return
	}
	if !m.hub.SendToUserInSession(client.SessionID, client.UserID, jsonBytes) {
		log.Printf("ERROR sending error to client %s: client not connected", client.UserID)
	}
}

// BroadcastToSession отправляет событие всем клиентам сессии
func (m *Manager) BroadcastToSession(sessionID uint, eventType string, data interface{}) error {
	jsonBytes, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s for session %d: %w", eventType, sessionID, err)
	}

	log.Printf("[WebSocket] Рассылка события <%s> в сессию %d", eventType, sessionID)
	m.hub.BroadcastToSession(sessionID, jsonBytes)
	return nil
}

// SendToUserInSession отправляет событие конкретному пользователю сессии
func (m *Manager) SendToUserInSession(sessionID uint, userID string, eventType string, data interface{}) error {
	jsonBytes, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s for user %s: %w", eventType, userID, err)
	}

	m.hub.SendToUserInSession(sessionID, userID, jsonBytes)
	return nil
}

// CloseSession отключает всех подписчиков завершенной сессии
func (m *Manager) CloseSession(sessionID uint) {
	log.Printf("[WebSocket] Закрытие подписок сессии %d", sessionID)
	m.hub.CloseSession(sessionID)
}

// SessionClientCount возвращает число подключенных клиентов сессии
func (m *Manager) SessionClientCount(sessionID uint) int {
	return m.hub.SessionClientCount(sessionID)
}

// GetMetrics возвращает текущие метрики WebSocket-системы
func (m *Manager) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"client_count": m.hub.ClientCount(),
	}
}
