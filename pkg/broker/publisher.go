// Package broker publishes domain events to RabbitMQ.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("broker unavailable")

// Publisher sends a payload to a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Config describes the AMQP connection and breaker thresholds.
type Config struct {
	URL             string
	Exchange        string
	DialTimeout     time.Duration
	PublishTimeout  time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	BreakerHalfOpen uint32
	BreakerInterval time.Duration
}

// AMQPPublisher writes persistent JSON messages to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewAMQPPublisher dials RabbitMQ and declares the exchange.
func NewAMQPPublisher(cfg Config, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Dial: amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("rabbitmq publisher connected", zap.String("exchange", cfg.Exchange))
	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		timeout:  cfg.PublishTimeout,
		logger:   logger,
	}, nil
}

// Publish sends payload to the exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug("event published", zap.String("routing_key", routingKey), zap.Int("size", len(payload)))
	return nil
}

// Close tears down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("close rabbitmq channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// BreakerPublisher guards a Publisher with a circuit breaker so an unhealthy
// broker fails fast instead of stalling the event workers.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next with the configured breaker.
func NewBreakerPublisher(next Publisher, cfg Config, logger *zap.Logger) *BreakerPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        "rabbitmq",
		MaxRequests: cfg.BreakerHalfOpen,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &BreakerPublisher{next: next, breaker: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Publish forwards to the wrapped publisher unless the breaker is open.
func (p *BreakerPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, routingKey, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// State reports the breaker state name.
func (p *BreakerPublisher) State() string {
	return p.breaker.State().String()
}

// Close closes the wrapped publisher.
func (p *BreakerPublisher) Close() error {
	return p.next.Close()
}

// LogPublisher records events in the log instead of sending them. It stands in
// when event publication is disabled or the broker cannot be reached at boot.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the routing key and payload size.
func (p *LogPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Info("event publication skipped", zap.String("routing_key", routingKey), zap.Int("size", len(payload)))
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
