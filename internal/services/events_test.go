package services

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"askrelay/internal/models"
)

func TestRedisEventPublisher_Publish(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed event tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	channel := "relay_events_test_" + uuid.NewString()
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	publisher := NewRedisEventPublisher(client, channel)
	event := models.RelayEvent{ID: uuid.New(), Model: "test-model", Messages: 3, Outcome: "OK"}
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	var got models.RelayEvent
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.ID != event.ID || got.Messages != 3 || got.Outcome != "OK" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestRedisEventPublisher_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	publisher := NewRedisEventPublisher(client, "relay_events")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := publisher.Publish(ctx, models.RelayEvent{ID: uuid.New()}); err == nil {
		t.Fatal("expected publish to fail without a server")
	}
}
