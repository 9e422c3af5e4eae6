package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime"
)

func startEmbeddedNATS(t *testing.T) *nats.Conn {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:  "127.0.0.1",
		Port:  -1,
		NoLog: true,
	})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready")
	}
	t.Cleanup(ns.Shutdown)

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
	require.NoError(t, err)
	return nc
}

func roundTrip(t *testing.T, b Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.Message, 1)
	require.NoError(t, b.StartForwarder(ctx, func(m realtime.Message) { got <- m }))

	userID := uuid.New()
	msg, err := realtime.NewMessage(realtime.UserChannel(userID), realtime.EventNotificationCreated, map[string]string{"title": "Asset Completed - Chair"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, msg))

	select {
	case m := <-got:
		assert.Equal(t, "user:"+userID.String(), m.Channel)
		assert.Equal(t, realtime.EventNotificationCreated, m.Event)
		assert.JSONEq(t, `{"title":"Asset Completed - Chair"}`, string(m.Data))
	case <-time.After(3 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	b := NewRedisBusFromClient(logger.Nop(), rdb, "")
	defer b.Close()

	roundTrip(t, b)
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	_, err := NewRedisBus(logger.Nop(), " ", "")
	assert.Error(t, err)
}

func TestNATSBusRoundTrip(t *testing.T) {
	nc := startEmbeddedNATS(t)
	b := NewNATSBusFromConn(logger.Nop(), nc, "")
	defer b.Close()

	roundTrip(t, b)
}

func TestNewSelectsDriver(t *testing.T) {
	b, err := New(logger.Nop(), Config{})
	require.NoError(t, err)
	assert.NoError(t, b.Publish(context.Background(), realtime.Message{}))

	mr := miniredis.RunT(t)
	b, err = New(logger.Nop(), Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	_, isRedis := b.(*redisBus)
	assert.True(t, isRedis)
	assert.NoError(t, b.Close())

	_, err = New(logger.Nop(), Config{Driver: "kafka"})
	assert.Error(t, err)
}
