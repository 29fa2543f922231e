package interfaces

import "context"

// Delivery is one consumed message. Ack and Nack are terminal; Nack never
// requeues, it dead-letters.
type Delivery struct {
	Body []byte
	Ack  func() error
	Nack func() error
}

// Publisher sends persistent messages to named queues.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Consumer delivers messages one at a time (prefetch 1) to the handler.
// Run blocks until ctx is cancelled, finishing any in-flight delivery.
type Consumer interface {
	Run(ctx context.Context, queue string, handler func(ctx context.Context, d Delivery)) error
}
