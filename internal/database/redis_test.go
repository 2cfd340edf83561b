package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer rdb.Close()

	if _, err := NewRedisClient(context.Background(), "not-a-url", zerolog.Nop()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPingWithRetry(t *testing.T) {
	calls := 0
	err := pingWithRetry(context.Background(), zerolog.Nop(), "x", 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d, want success on third call", err, calls)
	}

	calls = 0
	boom := errors.New("down")
	err = pingWithRetry(context.Background(), zerolog.Nop(), "x", 2, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 2 {
		t.Fatalf("err=%v calls=%d, want last error after 2 calls", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pingWithRetry(ctx, zerolog.Nop(), "x", 5, time.Hour, func(context.Context) error { return boom })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
