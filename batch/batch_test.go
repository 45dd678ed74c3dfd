package batch

import (
	"context"
	"testing"
)

func TestFromContextWithoutCache(t *testing.T) {
	if c := FromContext(context.Background()); c != nil {
		t.Fatalf("expected nil cache, got %#v", c)
	}
	if c := FromContext(nil); c != nil {
		t.Fatalf("expected nil cache for nil context, got %#v", c)
	}
}

func TestRequestCacheRoundTrip(t *testing.T) {
	ctx := WithCache(context.Background())
	cache := FromContext(ctx)
	if cache == nil {
		t.Fatal("expected cache on context")
	}

	if _, ok, err := cache.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("Get on empty cache = (%v, %v)", ok, err)
	}
	if err := cache.Set(ctx, "k", 7); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok || value != 7 {
		t.Fatalf("Get = (%v, %v, %v), want (7, true, nil)", value, ok, err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatal("value survived Delete")
	}
}

func TestCachesAreRequestScoped(t *testing.T) {
	a := WithCache(context.Background())
	b := WithCache(context.Background())
	FromContext(a).Set(a, "k", "a")

	if _, ok, _ := FromContext(b).Get(b, "k"); ok {
		t.Fatal("cache leaked across requests")
	}
}
