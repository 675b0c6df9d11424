package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tickethub/orders-service/internal/monitoring"
)

// Bus is the RabbitMQ transport. Topics map to routing keys on a single
// durable direct exchange; each registered handler consumes a durable queue
// named "<group>.<topic>" bound to its topic, which gives queue-group
// load balancing across instances of the same service while other services
// bind their own queues and receive their own copy.
type Bus struct {
	url      string
	exchange string
	group    string

	mu       sync.Mutex
	conn     *amqp.Connection // publisher connection, lazily re-dialed
	handlers map[string]Handler
}

// NewBus returns a Bus for the given broker URL. No connection is made
// until the first publish or StartConsumer.
func NewBus(url, exchange, group string) *Bus {
	return &Bus{
		url:      url,
		exchange: exchange,
		group:    group,
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler to the dispatch table. It must be called before
// StartConsumer; registering two handlers for one topic is a programming
// error and panics.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.handlers[h.Topic()]; dup {
		panic("queue: duplicate handler for topic " + h.Topic())
	}
	b.handlers[h.Topic()] = h
}

// Publish sends body to the topic's routing key on the shared exchange.
// Messages are marked persistent so they survive broker restarts. A failure
// propagates to the caller; the local state change must then not be treated
// as visible to the outside world.
func (b *Bus) Publish(ctx context.Context, topic string, body []byte) error {
	conn, err := b.publisherConn()
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := b.declareExchange(ch); err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, b.exchange, topic, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	monitoring.EventPublished(topic)
	return nil
}

func (b *Bus) publisherConn() (*amqp.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, err
	}
	b.conn = conn
	return conn, nil
}

func (b *Bus) declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(b.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

// StartConsumer connects to the broker and consumes every registered
// topic's queue until ctx is cancelled. It runs a reconnect loop with
// exponential backoff, so a broker outage pauses consumption instead of
// killing the service. Handler errors reject the delivery with requeue,
// which is how version conflicts wait for their predecessor event.
func (b *Bus) StartConsumer(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(b.url)
		if err != nil {
			log.Printf("orders-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := b.consumeAll(ctx, conn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("orders-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

// consumeAll opens one channel per registered topic and blocks until any of
// them fails or ctx is cancelled.
func (b *Bus) consumeAll(ctx context.Context, conn *amqp.Connection) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	errc := make(chan error, len(handlers))
	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			errc <- b.consumeTopic(ctx, conn, h)
		}(h)
	}

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	// Closing the connection unblocks the remaining topic consumers.
	_ = conn.Close()
	wg.Wait()
	return err
}

func (b *Bus) consumeTopic(ctx context.Context, conn *amqp.Connection, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("orders-consumer: set QoS failed: %v", err)
	}
	if err := b.declareExchange(ch); err != nil {
		return err
	}
	queueName := b.group + "." + h.Topic()
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, h.Topic(), b.exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", queueName, err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", queueName, err)
	}

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			monitoring.EventReceived(h.Topic())
			if err := h.Handle(ctx, d.Body); err != nil {
				log.Printf("orders-consumer: %s handler: %v", h.Topic(), err)
				monitoring.EventRequeued(h.Topic())
				_ = d.Nack(false, true) // leave on the queue for redelivery
				continue
			}
			monitoring.EventAcked(h.Topic())
			_ = d.Ack(false)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
