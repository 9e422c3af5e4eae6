package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

const (
	DriverRedis = "redis"
	DriverNATS  = "nats"
	DriverNone  = "none"
)

type Config struct {
	Driver       string
	RedisAddr    string
	RedisChannel string
	NATSURL      string
	NATSSubject  string
}

// New picks the bus for cfg.Driver. An empty driver selects redis when an
// address is configured, then nats, then the no-op bus.
func New(log *logger.Logger, cfg Config) (Bus, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		switch {
		case strings.TrimSpace(cfg.RedisAddr) != "":
			driver = DriverRedis
		case strings.TrimSpace(cfg.NATSURL) != "":
			driver = DriverNATS
		default:
			driver = DriverNone
		}
	}
	switch driver {
	case DriverRedis:
		return NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
	case DriverNATS:
		return NewNATSBus(log, cfg.NATSURL, cfg.NATSSubject)
	case DriverNone:
		return Nop(), nil
	}
	return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
}

type nopBus struct{}

func (nopBus) Publish(context.Context, realtime.Message) error { return nil }
func (nopBus) StartForwarder(context.Context, func(realtime.Message)) error {
	return nil
}
func (nopBus) Close() error { return nil }

// Nop drops every message.
func Nop() Bus { return nopBus{} }
