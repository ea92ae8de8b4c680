// Package events publishes domain events to the live-update channel and the
// message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"cattube/internal/models"
)

type Publisher interface {
	PublishVideoTranscoded(ctx context.Context, ev models.VideoTranscoded) error
}

// VideoChannel is the pub/sub channel carrying one owner's video events.
func VideoChannel(ownerID string) string {
	return "video_updates:" + ownerID
}

// RedisPublisher fans events out to websocket hubs through redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishVideoTranscoded(ctx context.Context, ev models.VideoTranscoded) error {
	data, err := json.Marshal(models.WSMessage{Type: models.EventVideoTranscoded, Payload: ev})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, VideoChannel(ev.OwnerID.String()), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

type userSender interface {
	SendToUser(userID uuid.UUID, msg interface{})
}

// LocalPublisher hands events straight to this process's websocket hub. It
// replaces RedisPublisher when no redis is configured and only reaches
// sockets held by this instance.
type LocalPublisher struct {
	hub userSender
}

func NewLocalPublisher(hub userSender) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) PublishVideoTranscoded(ctx context.Context, ev models.VideoTranscoded) error {
	p.hub.SendToUser(ev.OwnerID, models.WSMessage{Type: models.EventVideoTranscoded, Payload: ev})
	return nil
}

// AMQPPublisher sends events to a durable topic exchange, routed by event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) PublishVideoTranscoded(ctx context.Context, ev models.VideoTranscoded) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		models.EventVideoTranscoded,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         models.EventVideoTranscoded,
			MessageId:    ev.VideoID.String(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}

// Multi publishes to every configured publisher and joins their errors.
type Multi []Publisher

func (m Multi) PublishVideoTranscoded(ctx context.Context, ev models.VideoTranscoded) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishVideoTranscoded(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
