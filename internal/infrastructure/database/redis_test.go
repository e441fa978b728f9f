package database

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/gdugdh24/soundmatch-backend/internal/config"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	host, portStr, _ := strings.Cut(mr.Addr(), ":")
	port, _ := strconv.Atoi(portStr)

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Host: host, Port: port})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := NewRedisClient(context.Background(), &config.RedisConfig{Host: host, Port: port}); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}
