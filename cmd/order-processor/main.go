package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/domain"
	"github.com/ST10266083/ABC-Store-Functions/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("order processor starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	orderQueue := envString("ORDER_QUEUE", "orderqueue")
	productsTable := envString("PRODUCTS_TABLE", "Products")
	ordersTable := envString("ORDERS_TABLE", "Orders")
	batchSize := envInt("DEQUEUE_BATCH", 16)
	idleDelay := envDur("IDLE_DELAY", time.Second)

	store, err := storage.New(connStr, productsTable, ordersTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureQueue(ctx, orderQueue); err != nil {
		log.Fatalf("ensure queue: %v", err)
	}
	if err := store.EnsureTable(ctx, productsTable); err != nil {
		log.Fatalf("ensure products table: %v", err)
	}
	if err := store.EnsureTable(ctx, ordersTable); err != nil {
		log.Fatalf("ensure orders table: %v", err)
	}

	var products domain.ProductSource = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc := redis.NewClient(redisOptions(redisConn))
		products = newCachedPrices(store, rc, envDur("PRICE_CACHE_TTL", 5*time.Minute))
		log.Info("price cache enabled")
	}

	proc := domain.NewOrderProcessor(products, store)
	logger := log.StandardLogger()

	run(ctx, store, proc, orderQueue, batchSize, idleDelay, logger)
	log.Info("order processor stopped")
}

// queueSource is the slice of Storage the consumer loop needs.
type queueSource interface {
	Dequeue(ctx context.Context, name string, max int) ([]*azqueue.DequeuedMessage, error)
	DeleteMessage(ctx context.Context, name, id, receipt string) error
}

// run polls the order queue until the context is canceled. Messages in a
// batch are handled concurrently; the batch is joined before the next poll
// so shutdown never abandons an acked-but-unfinished message.
func run(ctx context.Context, queue queueSource, proc orderHandler, orderQueue string, batchSize int, idleDelay time.Duration, logger *log.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		msgs, err := queue.Dequeue(ctx, orderQueue, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Error("dequeue failed")
			sleep(ctx, idleDelay)
			continue
		}
		if len(msgs) == 0 {
			sleep(ctx, idleDelay)
			continue
		}
		var wg sync.WaitGroup
		for _, msg := range msgs {
			wg.Add(1)
			go func(m *azqueue.DequeuedMessage) {
				defer wg.Done()
				handleMessage(ctx, queue, proc, orderQueue, m, logger)
			}(msg)
		}
		wg.Wait()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Fatalf("invalid %s: %s", key, v)
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Fatalf("invalid %s: %s", key, v)
	}
	return def
}

func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
