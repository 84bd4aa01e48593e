package websocket

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Хелперы
// ============================================================================

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(DefaultHubConfig(), &NoOpPubSub{})
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// registerTestClient регистрирует клиента без реального соединения:
// помпы не запускаются, сообщения читаются напрямую из канала send
func registerTestClient(t *testing.T, hub *Hub, userID string, sessionID uint) *Client {
	t.Helper()
	client := NewClient(hub, nil, userID, sessionID, false)
	hub.register <- client
	select {
	case <-client.registrationComplete:
	case <-time.After(2 * time.Second):
		t.Fatalf("клиент %s не зарегистрировался за отведенное время", userID)
	}
	return client
}

func receiveMessage(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		require.True(t, ok, "Канал send закрыт раньше ожидаемого")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("клиент %s не получил сообщение за отведенное время", client.UserID)
		return nil
	}
}

func assertNoMessage(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.send:
		t.Fatalf("клиент %s получил неожиданное сообщение: %s", client.UserID, msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// ============================================================================
// Тесты хаба
// ============================================================================

func TestHub_BroadcastToSession_DeliversToAllInOrder(t *testing.T) {
	hub := newRunningHub(t)
	alice := registerTestClient(t, hub, "1", 42)
	bob := registerTestClient(t, hub, "2", 42)

	hub.BroadcastToSession(42, []byte("first"))
	hub.BroadcastToSession(42, []byte("second"))

	// Порядок сообщений внутри сессии сохраняется
	assert.Equal(t, "first", string(receiveMessage(t, alice)))
	assert.Equal(t, "second", string(receiveMessage(t, alice)))
	assert.Equal(t, "first", string(receiveMessage(t, bob)))
	assert.Equal(t, "second", string(receiveMessage(t, bob)))
}

func TestHub_BroadcastToSession_IsolatedBySession(t *testing.T) {
	hub := newRunningHub(t)
	alice := registerTestClient(t, hub, "1", 42)
	outsider := registerTestClient(t, hub, "3", 99)

	hub.BroadcastToSession(42, []byte("hello"))

	assert.Equal(t, "hello", string(receiveMessage(t, alice)))
	assertNoMessage(t, outsider)
}

func TestHub_SendToUserInSession_TargetsSingleUser(t *testing.T) {
	hub := newRunningHub(t)
	alice := registerTestClient(t, hub, "1", 42)
	bob := registerTestClient(t, hub, "2", 42)

	found := hub.SendToUserInSession(42, "2", []byte("secret"))

	assert.True(t, found, "Подключенный пользователь должен быть найден")
	assert.Equal(t, "secret", string(receiveMessage(t, bob)))
	assertNoMessage(t, alice)
}

func TestHub_SendToUserInSession_UserNotConnected(t *testing.T) {
	hub := newRunningHub(t)
	registerTestClient(t, hub, "1", 42)

	found := hub.SendToUserInSession(42, "777", []byte("void"))

	assert.False(t, found)
}

func TestHub_Register_EvictsPreviousConnection(t *testing.T) {
	hub := newRunningHub(t)
	first := registerTestClient(t, hub, "1", 42)

	second := registerTestClient(t, hub, "1", 42)

	// Старое соединение вытеснено, новое получает сообщения
	assert.True(t, first.IsSendClosed(), "Старое соединение должно быть закрыто")
	assert.Equal(t, 1, hub.SessionClientCount(42))

	hub.BroadcastToSession(42, []byte("after-evict"))
	assert.Equal(t, "after-evict", string(receiveMessage(t, second)))
}

func TestHub_CloseSession_DisconnectsAll(t *testing.T) {
	hub := newRunningHub(t)
	alice := registerTestClient(t, hub, "1", 42)
	bob := registerTestClient(t, hub, "2", 42)
	outsider := registerTestClient(t, hub, "3", 99)

	hub.CloseSession(42)

	assert.Eventually(t, func() bool {
		return hub.SessionClientCount(42) == 0
	}, 2*time.Second, 10*time.Millisecond, "Все клиенты сессии должны быть отключены")
	assert.True(t, alice.IsSendClosed())
	assert.True(t, bob.IsSendClosed())
	assert.False(t, outsider.IsSendClosed(), "Клиенты других сессий не затрагиваются")
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_Unregister_RemovesClient(t *testing.T) {
	hub := newRunningHub(t)
	alice := registerTestClient(t, hub, "1", 42)
	registerTestClient(t, hub, "2", 42)

	hub.unregister <- alice

	assert.Eventually(t, func() bool {
		return hub.SessionClientCount(42) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, alice.IsSendClosed())
}

// ============================================================================
// Тесты менеджера
// ============================================================================

func TestManager_BroadcastToSession_WrapsInEvent(t *testing.T) {
	hub := newRunningHub(t)
	manager := NewManager(hub)
	alice := registerTestClient(t, hub, "1", 42)

	err := manager.BroadcastToSession(42, "QUESTION_CHANGED", map[string]interface{}{"question_id": 100})

	assert.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(receiveMessage(t, alice), &event))
	assert.Equal(t, "QUESTION_CHANGED", event.Type)
}

func TestManager_HandleMessage_UnknownType(t *testing.T) {
	hub := newRunningHub(t)
	manager := NewManager(hub)
	alice := registerTestClient(t, hub, "1", 42)

	err := manager.HandleMessage([]byte(`{"type":"user:mystery","data":{}}`), alice)

	// Неизвестный тип не рвет соединение, но клиент получает server:error
	assert.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(receiveMessage(t, alice), &event))
	assert.Equal(t, "server:error", event.Type)
}

func TestManager_HandleMessage_InvalidJSON(t *testing.T) {
	hub := newRunningHub(t)
	manager := NewManager(hub)
	alice := registerTestClient(t, hub, "1", 42)

	err := manager.HandleMessage([]byte("not-json"), alice)

	assert.Error(t, err, "Ошибка парсинга должна закрывать соединение")
}

func TestManager_HandleMessage_DispatchesToHandler(t *testing.T) {
	hub := newRunningHub(t)
	manager := NewManager(hub)
	alice := registerTestClient(t, hub, "1", 42)

	var gotData string
	manager.RegisterHandler("user:heartbeat", func(data json.RawMessage, client *Client) error {
		gotData = string(data)
		return nil
	})

	err := manager.HandleMessage([]byte(`{"type":"user:heartbeat","data":{"seq":7}}`), alice)

	assert.NoError(t, err)
	assert.JSONEq(t, `{"seq":7}`, gotData)
}

func TestManager_HandleMessage_HandlerError(t *testing.T) {
	hub := newRunningHub(t)
	manager := NewManager(hub)
	alice := registerTestClient(t, hub, "1", 42)

	manager.RegisterHandler("user:answer", func(data json.RawMessage, client *Client) error {
		return fmt.Errorf("handler failed")
	})

	err := manager.HandleMessage([]byte(`{"type":"user:answer","data":{}}`), alice)

	assert.Error(t, err)
}
