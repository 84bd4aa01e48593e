package websocket

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// NoOpPubSub реализует PubSubProvider для одиночного режима работы.
// Этот провайдер не выполняет реальных действий и используется, когда
// горизонтальное масштабирование отключено.
type NoOpPubSub struct{}

// Publish реализует метод PubSubProvider.Publish для NoOpPubSub
func (p *NoOpPubSub) Publish(channel string, message []byte) error {
	return nil
}

// Subscribe реализует метод PubSubProvider.Subscribe для NoOpPubSub
func (p *NoOpPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	// Возвращаем пустой канал, который никогда не получит сообщения
	msgCh := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(msgCh)
	}()
	return msgCh, nil
}

// Close реализует метод PubSubProvider.Close для NoOpPubSub
func (p *NoOpPubSub) Close() error {
	return nil
}

// RedisPubSub реализует PubSubProvider с использованием Redis
type RedisPubSub struct {
	client redis.UniversalClient

	ctx    context.Context
	cancel context.CancelFunc

	// Хранит активные подписки (channel -> *redis.PubSub)
	subscriptions sync.Map
	mu            sync.Mutex
}

// NewRedisPubSub создает новый Redis Pub/Sub провайдер, используя существующий UniversalClient.
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}

	// Проверяем соединение клиента перед использованием
	ctx, cancelCheck := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCheck()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("provided redis client failed ping check: %w", err)
	}

	ctxPubSub, cancelPubSub := context.WithCancel(context.Background())

	rp := &RedisPubSub{
		client: client,
		ctx:    ctxPubSub,
		cancel: cancelPubSub,
	}

	log.Println("RedisPubSub provider created using existing client.")
	return rp, nil
}

// Publish публикует сообщение в указанный канал
func (p *RedisPubSub) Publish(channel string, message []byte) error {
	cmd := p.client.Publish(p.ctx, channel, message)
	if err := cmd.Err(); err != nil {
		log.Printf("RedisPubSub: Error publishing to channel '%s': %v", channel, err)
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на указанный канал Redis
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Printf("RedisPubSub: Subscribing to channel '%s'", channel)

	pubsub := p.client.Subscribe(p.ctx, channel)

	// Ждем подтверждения подписки
	_, err := pubsub.Receive(p.ctx)
	if err != nil {
		pubsub.Close()
		log.Printf("RedisPubSub: Error receiving subscription confirmation for channel '%s': %v", channel, err)
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}

	p.subscriptions.Store(channel, pubsub)
	log.Printf("RedisPubSub: Successfully subscribed to channel '%s'", channel)

	msgCh := make(chan []byte, 100)

	// Горутина читает сообщения из Redis и пересылает в канал подписчика
	go func() {
		defer func() {
			p.subscriptions.Delete(channel)
			pubsub.Close()
			close(msgCh)
			log.Printf("RedisPubSub: Unsubscribed and closed channel '%s'", channel)
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					log.Printf("RedisPubSub: Redis channel '%s' closed by server.", channel)
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-p.ctx.Done():
					return
				case <-ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgCh, nil
}

// Close закрывает все активные подписки и клиента Redis
func (p *RedisPubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Println("RedisPubSub: Closing Redis client and all subscriptions...")
	p.cancel()

	var lastErr error

	p.subscriptions.Range(func(key, value interface{}) bool {
		channel := key.(string)
		pubsub, ok := value.(*redis.PubSub)
		if ok {
			if err := pubsub.Close(); err != nil {
				log.Printf("RedisPubSub: Error closing subscription to channel '%s': %v", channel, err)
				lastErr = err
			}
		}
		return true
	})

	if p.client != nil {
		if err := p.client.Close(); err != nil {
			log.Printf("RedisPubSub: Error closing Redis client: %v", err)
			lastErr = err
		}
	}

	log.Println("RedisPubSub: Closed.")
	return lastErr
}
