package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/domain"
)

const priceCachePrefix = "price:"

// cachedPrices is a read-through price cache in front of the products table.
// Prices are read-only reference data for this pipeline, so a slightly stale
// cached value is acceptable. Cache problems degrade to table reads.
type cachedPrices struct {
	source domain.ProductSource
	redis  *redis.Client
	ttl    time.Duration
}

func newCachedPrices(source domain.ProductSource, rc *redis.Client, ttl time.Duration) *cachedPrices {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedPrices{source: source, redis: rc, ttl: ttl}
}

func (c *cachedPrices) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	if c.redis == nil {
		return c.source.ProductPrice(ctx, productID)
	}
	key := priceCachePrefix + productID
	val, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		if price, perr := decimal.NewFromString(val); perr == nil {
			return price, true, nil
		}
		log.WithField("product", productID).Warn("dropping unparsable cached price")
		c.redis.Del(ctx, key)
	} else if err != redis.Nil {
		log.WithError(err).WithField("product", productID).Warn("price cache read failed")
	}

	price, found, err := c.source.ProductPrice(ctx, productID)
	if err != nil || !found {
		return price, found, err
	}
	if serr := c.redis.Set(ctx, key, price.String(), c.ttl).Err(); serr != nil {
		log.WithError(serr).WithField("product", productID).Warn("price cache write failed")
	}
	return price, true, nil
}
