package main

import (
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/api"
	"github.com/ST10266083/ABC-Store-Functions/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	orderQueue := os.Getenv("ORDER_QUEUE")
	if orderQueue == "" {
		orderQueue = "orderqueue"
	}
	productsTable := os.Getenv("PRODUCTS_TABLE")
	if productsTable == "" {
		productsTable = "Products"
	}
	ordersTable := os.Getenv("ORDERS_TABLE")
	if ordersTable == "" {
		ordersTable = "Orders"
	}

	store, err := storage.New(connStr, productsTable, ordersTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	blobs, err := storage.NewBlobStore(connStr)
	if err != nil {
		log.Fatalf("blob storage: %v", err)
	}
	files, err := storage.NewFileStore(connStr)
	if err != nil {
		log.Fatalf("file storage: %v", err)
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	logger := log.New()
	api.Register(e, orderQueue, store, store, blobs, files, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
