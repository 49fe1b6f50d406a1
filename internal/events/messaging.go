package events

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderCreatedQueue       = "order.created"
	OrderStatusChangedQueue = "order.statuschanged"
)

// MustDial connects to RabbitMQ or exits the process. Broker
// availability is a startup requirement, not a per-request concern.
func MustDial(url string) *amqp.Connection {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	return conn
}
