// Package realtime publishes seat snapshots to the transport that pushes
// updates to connected viewers. Delivery is fire-and-forget: a broken broker
// must never block a hold, release or booking.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const seatUpdateExchange = "seat.update"

type AMQPBroadcaster struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPBroadcaster(url string) *AMQPBroadcaster {
	return &AMQPBroadcaster{
		url: url,
	}
}

// Broadcast publishes the snapshot to the seat.update topic exchange under
// routing key showtime.{id}, so a transport can bind a single showtime or
// showtime.* for everything.
func (b *AMQPBroadcaster) Broadcast(ctx context.Context, showtimeID int, snapshot domain.SeatSnapshot) error {
	ch, err := b.channel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		seatUpdateExchange,
		fmt.Sprintf("showtime.%d", showtimeID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now().UTC(),
			Body:        body,
		},
	)
	if err != nil {
		// Drop the cached channel so the next broadcast redials.
		b.reset()
		return err
	}

	return nil
}

func (b *AMQPBroadcaster) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch != nil && !b.conn.IsClosed() {
		return b.ch, nil
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = ch.ExchangeDeclare(
		seatUpdateExchange,
		"topic",
		false, // durable; snapshots are transient by nature
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	b.conn = conn
	b.ch = ch

	return ch, nil
}

func (b *AMQPBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch != nil {
		b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

func (b *AMQPBroadcaster) Close() {
	b.reset()
}
