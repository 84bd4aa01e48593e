package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionMessage несет сообщение, адресованное подписчикам одной сессии.
// Пустой UserID означает рассылку всем клиентам сессии.
type sessionMessage struct {
	SessionID uint
	UserID    string
	Payload   []byte
}

// relayEnvelope - формат сообщения, пересылаемого между инстансами через Pub/Sub
type relayEnvelope struct {
	InstanceID string          `json:"instance_id"`
	SessionID  uint            `json:"session_id"`
	UserID     string          `json:"user_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// HubConfig содержит настройки хаба
type HubConfig struct {
	// BroadcastBuffer задает размер очереди исходящих сообщений
	BroadcastBuffer int

	// ClusterEnabled включает пересылку сообщений между инстансами
	ClusterEnabled bool

	// ClusterChannel - канал Pub/Sub для пересылки
	ClusterChannel string

	// InstanceID - уникальный ID инстанса, генерируется если пуст
	InstanceID string
}

// DefaultHubConfig возвращает настройки хаба по умолчанию
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BroadcastBuffer: 256,
		ClusterEnabled:  false,
		ClusterChannel:  "livequiz:events",
	}
}

// Hub ведет реестр подписчиков по игровым сессиям и рассылает им сообщения.
// Все изменения реестра и доставка идут через один цикл Run, поэтому
// порядок сообщений внутри сессии сохраняется.
type Hub struct {
	// Реестр: sessionID -> множество клиентов
	sessions map[uint]map[*Client]bool

	register     chan *Client
	unregister   chan *Client
	broadcast    chan sessionMessage
	closeSession chan uint

	// Общее число клиентов, под защитой mu для читателей вне цикла Run
	mu          sync.RWMutex
	clientCount int

	config HubConfig
	pubsub PubSubProvider

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый хаб. Провайдер Pub/Sub может быть NoOpPubSub
// для одиночного режима.
func NewHub(config HubConfig, pubsub PubSubProvider) *Hub {
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 256
	}
	if config.InstanceID == "" {
		config.InstanceID = "instance_" + uuid.New().String()
	}
	if pubsub == nil {
		pubsub = &NoOpPubSub{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:     make(map[uint]map[*Client]bool),
		register:     make(chan *Client, 64),
		unregister:   make(chan *Client, 64),
		broadcast:    make(chan sessionMessage, config.BroadcastBuffer),
		closeSession: make(chan uint, 16),
		config:       config,
		pubsub:       pubsub,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run запускает основной цикл хаба. Блокирует до вызова Stop.
func (h *Hub) Run() {
	log.Printf("[Hub %s] Запуск основного цикла", h.config.InstanceID)

	if h.config.ClusterEnabled {
		go h.listenCluster()
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.deliverLocal(msg)
		case sessionID := <-h.closeSession:
			h.teardownSession(sessionID)
		case <-h.ctx.Done():
			log.Printf("[Hub %s] Основной цикл остановлен", h.config.InstanceID)
			return
		}
	}
}

// Stop останавливает цикл хаба и отключает всех клиентов
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, clients := range h.sessions {
		for client := range clients {
			client.CloseSend()
		}
		delete(h.sessions, sessionID)
	}
	h.clientCount = 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.sessions[client.SessionID]
	if !ok {
		clients = make(map[*Client]bool)
		h.sessions[client.SessionID] = clients
	}

	// Старое соединение того же пользователя вытесняется новым
	for existing := range clients {
		if existing.UserID == client.UserID {
			log.Printf("[Hub] Вытеснение старого соединения %s пользователя %s в сессии %d",
				existing.ConnectionID, existing.UserID, client.SessionID)
			existing.CloseSend()
			delete(clients, existing)
			h.clientCount--
		}
	}

	clients[client] = true
	h.clientCount++
	h.mu.Unlock()

	// Сообщаем клиенту о завершении регистрации
	select {
	case client.registrationComplete <- struct{}{}:
	default:
	}

	log.Printf("[Hub] Клиент %s (Conn: %s) зарегистрирован в сессии %d", client.UserID, client.ConnectionID, client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, registered := clients[client]; !registered {
		return
	}

	delete(clients, client)
	h.clientCount--
	client.CloseSend()

	// Пустую сессию убираем из реестра
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}

	log.Printf("[Hub] Клиент %s (Conn: %s) отключен от сессии %d", client.UserID, client.ConnectionID, client.SessionID)
}

// deliverLocal доставляет сообщение локальным подписчикам сессии.
// Доставка негарантированная: при переполненном буфере клиента
// сообщение отбрасывается с записью в лог.
func (h *Hub) deliverLocal(msg sessionMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.sessions[msg.SessionID]
	if !ok {
		return
	}

	for client := range clients {
		if msg.UserID != "" && client.UserID != msg.UserID {
			continue
		}
		if client.IsSendClosed() {
			continue
		}
		select {
		case client.send <- msg.Payload:
		default:
			log.Printf("[Hub] Буфер клиента %s (Conn: %s) переполнен, сообщение типа %s отброшено",
				client.UserID, client.ConnectionID, messageTypeFromBytes(msg.Payload))
		}
	}
}

func (h *Hub) teardownSession(sessionID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	for client := range clients {
		client.CloseSend()
		h.clientCount--
	}
	delete(h.sessions, sessionID)
	log.Printf("[Hub] Сессия %d закрыта, отключено клиентов: %d", sessionID, len(clients))
}

// BroadcastToSession отправляет сообщение всем клиентам сессии.
// В кластерном режиме сообщение также пересылается другим инстансам.
func (h *Hub) BroadcastToSession(sessionID uint, message []byte) {
	h.enqueue(sessionMessage{SessionID: sessionID, Payload: message})
	h.relayToCluster(sessionID, "", message)
}

// SendToUserInSession отправляет сообщение конкретному пользователю сессии.
// Возвращает true, если пользователь подключен локально.
func (h *Hub) SendToUserInSession(sessionID uint, userID string, message []byte) bool {
	h.mu.RLock()
	found := false
	if clients, ok := h.sessions[sessionID]; ok {
		for client := range clients {
			if client.UserID == userID {
				found = true
				break
			}
		}
	}
	h.mu.RUnlock()

	h.enqueue(sessionMessage{SessionID: sessionID, UserID: userID, Payload: message})
	if !found {
		h.relayToCluster(sessionID, userID, message)
	}
	return found
}

// CloseSession отключает всех клиентов сессии и удаляет ее из реестра
func (h *Hub) CloseSession(sessionID uint) {
	select {
	case h.closeSession <- sessionID:
	case <-h.ctx.Done():
	}
}

// SessionClientCount возвращает число подключенных клиентов сессии
func (h *Hub) SessionClientCount(sessionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// ClientCount возвращает общее число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientCount
}

func (h *Hub) enqueue(msg sessionMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Очередь хаба переполнена: доставка негарантированная, сообщение
		// отбрасывается, чтобы не блокировать вызывающего
		log.Printf("[Hub] Очередь рассылки переполнена, сообщение для сессии %d отброшено", msg.SessionID)
	}
}

// relayToCluster пересылает сообщение другим инстансам через Pub/Sub
func (h *Hub) relayToCluster(sessionID uint, userID string, message []byte) {
	if !h.config.ClusterEnabled {
		return
	}

	envelope := relayEnvelope{
		InstanceID: h.config.InstanceID,
		SessionID:  sessionID,
		UserID:     userID,
		Payload:    message,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("[Hub] Ошибка сериализации конверта для сессии %d: %v", sessionID, err)
		return
	}
	if err := h.pubsub.Publish(h.config.ClusterChannel, data); err != nil {
		log.Printf("[Hub] Ошибка публикации в канал кластера %s: %v", h.config.ClusterChannel, err)
	}
}

// listenCluster принимает сообщения от других инстансов и доставляет их
// локальным подписчикам
func (h *Hub) listenCluster() {
	messages, err := h.pubsub.Subscribe(h.ctx, h.config.ClusterChannel)
	if err != nil {
		log.Printf("[Hub] Ошибка подписки на канал кластера %s: %v", h.config.ClusterChannel, err)
		return
	}

	log.Printf("[Hub %s] Подписка на канал кластера %s активна", h.config.InstanceID, h.config.ClusterChannel)

	for {
		select {
		case <-h.ctx.Done():
			return
		case data, ok := <-messages:
			if !ok {
				log.Printf("[Hub] Канал кластера %s закрыт", h.config.ClusterChannel)
				return
			}

			var envelope relayEnvelope
			if err := json.Unmarshal(data, &envelope); err != nil {
				log.Printf("[Hub] Ошибка десериализации сообщения кластера: %v", err)
				continue
			}

			// Собственные сообщения уже доставлены локально
			if envelope.InstanceID == h.config.InstanceID {
				continue
			}

			h.enqueue(sessionMessage{
				SessionID: envelope.SessionID,
				UserID:    envelope.UserID,
				Payload:   envelope.Payload,
			})
		}
	}
}

// WaitStopped ожидает остановки хаба не дольше timeout.
// Используется при graceful shutdown сервера.
func (h *Hub) WaitStopped(timeout time.Duration) bool {
	select {
	case <-h.ctx.Done():
		return true
	case <-time.After(timeout):
		return false
	}
}
