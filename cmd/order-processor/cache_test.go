package main

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakePriceSource struct {
	prices map[string]string
	calls  int
	err    error
}

func (f *fakePriceSource) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	raw, ok := f.prices[productID]
	if !ok {
		return decimal.Zero, false, nil
	}
	price, err := decimal.NewFromString(raw)
	return price, true, err
}

func TestCachedPricesMissThenHit(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	src := &fakePriceSource{prices: map[string]string{"p1": "19.99"}}
	cache := newCachedPrices(src, rc, time.Minute)
	ctx := context.Background()

	price, found, err := cache.ProductPrice(ctx, "p1")
	if err != nil || !found || price.String() != "19.99" {
		t.Fatalf("miss: price=%s found=%v err=%v", price, found, err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one source call, got %d", src.calls)
	}

	price, found, err = cache.ProductPrice(ctx, "p1")
	if err != nil || !found || price.String() != "19.99" {
		t.Fatalf("hit: price=%s found=%v err=%v", price, found, err)
	}
	if src.calls != 1 {
		t.Fatalf("hit must not reach the source, calls=%d", src.calls)
	}
	if got, err := m.Get(priceCachePrefix + "p1"); err != nil || got != "19.99" {
		t.Fatalf("unexpected cache entry %q err=%v", got, err)
	}
}

func TestCachedPricesUnknownProductNotCached(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	src := &fakePriceSource{}
	cache := newCachedPrices(src, rc, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		price, found, err := cache.ProductPrice(ctx, "ghost")
		if err != nil || found || !price.IsZero() {
			t.Fatalf("lookup %d: price=%s found=%v err=%v", i, price, found, err)
		}
	}
	if src.calls != 2 {
		t.Fatalf("misses are not negative-cached, calls=%d", src.calls)
	}
}

func TestCachedPricesExpiry(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	src := &fakePriceSource{prices: map[string]string{"p1": "5"}}
	cache := newCachedPrices(src, rc, time.Minute)
	ctx := context.Background()

	if _, _, err := cache.ProductPrice(ctx, "p1"); err != nil {
		t.Fatalf("prime: %v", err)
	}
	m.FastForward(2 * time.Minute)
	if _, _, err := cache.ProductPrice(ctx, "p1"); err != nil {
		t.Fatalf("after expiry: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refill after expiry, calls=%d", src.calls)
	}
}

func TestCachedPricesSourceFailurePropagates(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	src := &fakePriceSource{err: errors.New("table outage")}
	cache := newCachedPrices(src, rc, time.Minute)

	if _, _, err := cache.ProductPrice(context.Background(), "p1"); err == nil {
		t.Fatal("expected error")
	}
}
