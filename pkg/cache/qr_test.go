package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQRCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryQRCache(time.Minute)

	if _, ok, _ := c.Get(ctx, "s1"); ok {
		t.Fatal("empty cache returned a value")
	}
	if err := c.Set(ctx, "s1", "2@abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	qr, ok, err := c.Get(ctx, "s1")
	if err != nil || !ok || qr != "2@abc" {
		t.Fatalf("get = %q %v %v", qr, ok, err)
	}
	if err := c.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "s1"); ok {
		t.Fatal("value survived delete")
	}
}

func TestMemoryQRCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryQRCache(30 * time.Second)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "s1", "qr")
	now = now.Add(31 * time.Second)

	if _, ok, _ := c.Get(ctx, "s1"); ok {
		t.Fatal("expired value returned")
	}
}
