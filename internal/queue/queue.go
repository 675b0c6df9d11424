// Package queue defines the event transport used between services: topics,
// payload types, the publish/subscribe abstraction and its RabbitMQ and
// in-memory implementations.
//
// Delivery is at-least-once. A handler acknowledges by returning nil;
// returning an error leaves the message on the queue for redelivery, which
// is the resync mechanism for transient races such as out-of-order version
// updates.
package queue

import "context"

// Handler processes messages delivered on a single topic. Handle is invoked
// once per delivery; returning nil acknowledges the message and returning an
// error requeues it.
type Handler interface {
	Topic() string
	Handle(ctx context.Context, body []byte) error
}

// Publisher hands a serialized event to the transport for durable delivery.
// Publish is synchronous: an error means the outside world must not be
// assumed to know about the state change.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// Subscriber registers handlers before the consumer starts. Each handler's
// topic is consumed under this service's queue group, so one instance of the
// group receives each message while other groups get their own copy.
type Subscriber interface {
	Register(h Handler)
}
