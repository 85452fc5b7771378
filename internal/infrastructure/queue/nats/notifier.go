package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Notifier broadcasts index-rebuilt events over NATS so serving processes
// reload the persisted index without a restart. Subscription is fire and
// forget: a missed event only delays the reload until the next publish.
type Notifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, subject string, logger *slog.Logger) (*Notifier, error) {
	return NewWithOptions(url, subject, logger, Options{})
}

func NewWithOptions(url, subject string, logger *slog.Logger, options Options) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("geogli-chatbot"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Notifier{conn: conn, subject: subject, logger: logger}, nil
}

func (n *Notifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *Notifier) PublishIndexRebuilt(_ context.Context) error {
	if err := n.conn.Publish(n.subject, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
		return fmt.Errorf("nats publish index rebuilt: %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// SubscribeIndexRebuilt registers the reload handler and returns. The
// subscription lives until the context is cancelled.
func (n *Notifier) SubscribeIndexRebuilt(ctx context.Context, handler func(context.Context) error) error {
	sub, err := n.conn.Subscribe(n.subject, func(_ *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		if err := handler(ctx); err != nil {
			n.logger.Error("index reload after rebuild failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			n.logger.Warn("nats drain subscription", slog.Any("error", err))
		}
	}()
	return nil
}
