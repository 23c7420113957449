package exporter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSinkPublishesBatchToChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sink, err := NewRedisSink(ctx, mr.Addr(), "insalata.events")
	require.NoError(t, err)
	defer sink.Close()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, "insalata.events")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	events := []Event{{Kind: "new", ObjectType: "host", GlobalID: "host-1", Values: map[string]interface{}{"ip": "10.0.0.1"}, At: time.Now().UTC()}}
	require.NoError(t, sink.Write(ctx, events))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got []Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "host-1", got[0].GlobalID)
}

func TestNewRedisSinkFailsOnUnreachableAddr(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisSink(ctx, "127.0.0.1:1", "insalata.events")
	assert.Error(t, err)
}
