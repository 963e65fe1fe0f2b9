package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/partsdesk/partsdesk-go/internal/cache"
	"github.com/partsdesk/partsdesk-go/internal/cache/memory"
)

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := memory.New(time.Minute, 0)
	defer c.Close()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get() on absent key error = %v, want ErrNotFound", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want v", got)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := memory.New(time.Minute, 0)
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrExpired) {
		t.Errorf("Get() on expired key error = %v, want ErrExpired", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := memory.New(time.Minute, 0)
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("abc"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got[0] = 'X'

	again, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(again) != "abc" {
		t.Errorf("cached value mutated through a returned slice: %q", again)
	}
}

func TestDriverRegistration(t *testing.T) {
	c, err := cache.New("memory", map[string]any{"default_ttl_seconds": 60})
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Errorf("Get() error = %v", err)
	}

	if _, err := cache.New("bogus", nil); err == nil {
		t.Error("expected error for unknown cache driver")
	}
}
