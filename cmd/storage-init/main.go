package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	orderQueue := os.Getenv("ORDER_QUEUE")
	if orderQueue == "" {
		orderQueue = "orderqueue"
	}

	ctx := context.Background()

	store, err := storage.New(connStr, "Products", "Orders")
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	tables := []string{"Products", "Orders"}
	if v := os.Getenv("EXTRA_TABLES"); v != "" {
		tables = append(tables, splitNames(v)...)
	}
	for _, name := range tables {
		if err := store.EnsureTable(ctx, name); err != nil {
			log.Fatalf("create table %s: %v", name, err)
		}
	}

	queues := []string{orderQueue, orderQueue + "-preview"}
	if v := os.Getenv("EXTRA_QUEUES"); v != "" {
		queues = append(queues, splitNames(v)...)
	}
	for _, name := range queues {
		if err := store.EnsureQueue(ctx, name); err != nil {
			log.Fatalf("create queue %s: %v", name, err)
		}
	}

	if v := os.Getenv("BLOB_CONTAINERS"); v != "" {
		blobs, err := storage.NewBlobStore(connStr)
		if err != nil {
			log.Fatalf("blob storage: %v", err)
		}
		for _, name := range splitNames(v) {
			if err := blobs.EnsureContainer(ctx, name); err != nil {
				log.Fatalf("create container %s: %v", name, err)
			}
		}
	}

	if v := os.Getenv("FILE_SHARES"); v != "" {
		files, err := storage.NewFileStore(connStr)
		if err != nil {
			log.Fatalf("file storage: %v", err)
		}
		for _, name := range splitNames(v) {
			if err := files.EnsureShare(ctx, name); err != nil {
				log.Fatalf("create share %s: %v", name, err)
			}
		}
	}

	log.Info("storage init complete")
}

func splitNames(v string) []string {
	names := []string{}
	for _, n := range strings.Split(v, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
