package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime"
)

const defaultNATSSubject = "pipeline.events"

type natsBus struct {
	log     *logger.Logger
	nc      *nats.Conn
	subject string

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNATSBus(log *logger.Logger, url, subject string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("missing NATS_URL")
	}
	nc, err := nats.Connect(url,
		nats.Name("pipeline-backend"),
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNATSBusFromConn(log, nc, subject), nil
}

// NewNATSBusFromConn takes ownership of nc; Close drains it.
func NewNATSBusFromConn(log *logger.Logger, nc *nats.Conn, subject string) Bus {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = defaultNATSSubject
	}
	return &natsBus{
		log:     log.With("service", "NATSBus"),
		nc:      nc,
		subject: subject,
	}
}

func (b *natsBus) Publish(ctx context.Context, msg realtime.Message) error {
	if b == nil || b.nc == nil {
		return fmt.Errorf("nats bus not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, raw)
}

func (b *natsBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if b == nil || b.nc == nil {
		return fmt.Errorf("nats bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub, err := b.nc.Subscribe(b.subject, func(m *nats.Msg) {
		var msg realtime.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			b.log.Warn("bad nats bus payload", "error", err)
			return
		}
		onMsg(msg)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	// the subscription is registered with the server once the flush returns
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush: %w", err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (b *natsBus) Close() error {
	if b == nil || b.nc == nil {
		return nil
	}
	b.mu.Lock()
	for _, s := range b.subs {
		_ = s.Unsubscribe()
	}
	b.subs = nil
	b.mu.Unlock()
	b.nc.Close()
	return nil
}
