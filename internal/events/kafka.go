package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var timeNow = time.Now

// ErrBufferFull is returned when the producer inbox cannot take more messages.
var ErrBufferFull = errors.New("events: producer buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher buffers envelopes and writes them from a single goroutine.
type KafkaPublisher struct {
	logger   *slog.Logger
	producer string
	w        messageWriter

	mu      sync.RWMutex
	started bool
	closed  bool
	inbox   chan kafka.Message
	done   chan struct{}
}

// NewKafkaPublisher builds a publisher writing to topic. Messages are keyed
// by correlation id so events of one sale stay ordered.
func NewKafkaPublisher(logger *slog.Logger, producer string, brokers []string, topic string, buf int) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(logger, producer, w, buf)
}

func newKafkaPublisher(logger *slog.Logger, producer string, w messageWriter, buf int) *KafkaPublisher {
	if buf <= 0 {
		buf = 256
	}
	return &KafkaPublisher{
		logger:   logger,
		producer: producer,
		w:        w,
		inbox:    make(chan kafka.Message, buf),
		done:     make(chan struct{}),
	}
}

// Start runs the write loop until Close drains the inbox. Calls after the
// first, or after Close, do nothing.
func (p *KafkaPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.logger.Error("kafka write failed", slog.String("key", string(m.Key)), slog.Any("error", err))
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.logger.Warn("kafka writer close", slog.Any("error", err))
		}
	}()
}

// Publish enqueues an event without blocking the request path.
func (p *KafkaPublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	env, err := NewEnvelope(p.producer, eventType, key, payload, timeNow())
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events, flushes the inbox and waits for the writer.
// A publisher that was never started drops its inbox and closes the writer.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	first := !p.closed
	if first {
		p.closed = true
		close(p.inbox)
	}
	started := p.started
	p.mu.Unlock()

	if started {
		<-p.done
		return
	}
	if first {
		if err := p.w.Close(); err != nil {
			p.logger.Warn("kafka writer close", slog.Any("error", err))
		}
	}
}
