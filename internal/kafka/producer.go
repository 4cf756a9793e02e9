// Package kafka publishes order lifecycle events for downstream consumers.
package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer wraps a kafka-go writer with a buffered inbox so request handlers
// never block on broker I/O. Messages still queued when the inbox closes are
// flushed before the writer shuts down.
type Producer struct {
	w       *kafka.Writer
	lg      *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewProducer creates a Producer for the given brokers and topic. buf sizes
// the inbox; when it is full, Publish drops the message rather than blocking.
func NewProducer(brokers []string, topic string, buf int, lg *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		lg:      lg,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start launches the delivery loop. It runs until the context is cancelled or
// Close is called, then flushes the remaining inbox.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					return
				}
				p.write(m)
			}
		}
	}()
}

// Publish enqueues a message. It never blocks: when the inbox is full the
// message is dropped and logged, keeping event delivery strictly best-effort
// from the request path's point of view.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Headers: headers}:
	default:
		p.lg.Warn("event inbox full, dropping message", zap.ByteString("key", key))
	}
}

// Close stops accepting messages and lets the delivery loop flush and exit.
func (p *Producer) Close() { close(p.inbox) }

// WaitClosed blocks until the delivery loop has finished.
func (p *Producer) WaitClosed() { <-p.closeCh }

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.lg.Error("write kafka message", zap.Error(err), zap.ByteString("key", m.Key))
	}
}

func (p *Producer) drain() {
	for {
		select {
		case m, ok := <-p.inbox:
			if !ok {
				_ = p.w.Close()
				return
			}
			p.write(m)
		default:
			_ = p.w.Close()
			return
		}
	}
}
