package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/ST10266083/ABC-Store-Functions/domain"
)

const (
	// previewSuffix names the short-lived mirror of the primary order queue.
	previewSuffix = "-preview"
	// previewTTL bounds how long preview copies stay retrievable.
	previewTTL = 10 * time.Minute

	requestMaxSize = 1 << 20

	peekDefaultCount = 10
	peekMaxCount     = 32
)

// Register wires up all API routes on the provided Echo instance.
// orderQueue is the well-known primary order queue name used by the
// preview fan-out rule.
func Register(e *echo.Echo, orderQueue string, queues QueueStore, tables TableStore, blobs BlobStore, files FileStore, logger *log.Logger) {
	e.POST("/api/queues/:queue", enqueueOrder(queues, orderQueue, logger))
	e.GET("/api/queues/:queue/peek", peekQueue(queues))
	e.POST("/api/tables/:table", upsertEntity(tables))

	e.GET("/api/blobs/:container", listBlobs(blobs))
	e.GET("/api/blobs/:container/*", downloadBlob(blobs))
	e.POST("/api/blobs/:container/*", uploadBlob(blobs))
	e.DELETE("/api/blobs/:container/*", deleteBlob(blobs))

	e.GET("/api/files/:share", listFiles(files))
	e.POST("/api/files/:share/path/*", uploadFile(files))
	e.GET("/api/files/:share/path/*", downloadFile(files))
	e.DELETE("/api/files/:share/path/*", deleteFile(files))

	e.GET("/healthz", healthz())
}

type errorResponse struct {
	Error string `json:"error"`
}

type queuedResponse struct {
	Queued bool `json:"queued"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func problem(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// enqueueOrder is the order producer: validate, ensure the target queue,
// send, and mirror to the preview queue when the target is the primary
// order queue. The caller never waits for the consumer.
func enqueueOrder(queues QueueStore, orderQueue string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		queue := c.Param("queue")

		lr := io.LimitReader(c.Request().Body, requestMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		var req domain.OrderRequest
		if err := dec.Decode(&req); err != nil {
			return problem(c, http.StatusBadRequest, "invalid payload")
		}
		if err := req.Validate(); err != nil {
			return problem(c, http.StatusBadRequest, err.Error())
		}

		payload, err := req.Encode()
		if err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "failed to serialize order")
		}

		if err := queues.EnsureQueue(ctx, queue); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "queue unavailable")
		}
		if err := queues.Enqueue(ctx, queue, payload, 0); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "failed to enqueue order")
		}

		// Best-effort side channel: a preview failure never fails the
		// primary enqueue.
		if strings.EqualFold(queue, orderQueue) {
			preview := orderQueue + previewSuffix
			if err := queues.EnsureQueue(ctx, preview); err != nil {
				logger.WithError(err).WithField("queue", preview).Warn("preview queue unavailable")
			} else if err := queues.Enqueue(ctx, preview, payload, previewTTL); err != nil {
				logger.WithError(err).WithField("queue", preview).Warn("preview enqueue failed")
			}
		}

		return c.JSON(http.StatusCreated, queuedResponse{Queued: true})
	}
}

func peekQueue(queues QueueStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		queue := c.Param("queue")

		count := peekDefaultCount
		if v := strings.TrimSpace(c.QueryParam("count")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > peekMaxCount {
				n = peekDefaultCount
			}
			count = n
		}

		if err := queues.EnsureQueue(ctx, queue); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "queue unavailable")
		}
		msgs, err := queues.Peek(ctx, queue, count)
		if err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "peek failed")
		}
		return c.JSON(http.StatusOK, msgs)
	}
}

type upsertEntityRequest struct {
	PartitionKey string         `json:"partitionKey"`
	RowKey       string         `json:"rowKey"`
	Properties   map[string]any `json:"properties"`
}

func upsertEntity(tables TableStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		table := c.Param("table")

		lr := io.LimitReader(c.Request().Body, requestMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		var req upsertEntityRequest
		if err := dec.Decode(&req); err != nil {
			return problem(c, http.StatusBadRequest, "invalid payload")
		}
		if strings.TrimSpace(req.PartitionKey) == "" || strings.TrimSpace(req.RowKey) == "" {
			return problem(c, http.StatusBadRequest, "partitionKey and rowKey required")
		}

		if err := tables.UpsertEntity(ctx, table, req.PartitionKey, req.RowKey, req.Properties); err != nil {
			c.Logger().Error(err)
			return problem(c, http.StatusInternalServerError, "upsert failed")
		}
		return c.JSON(http.StatusCreated, okResponse{OK: true})
	}
}
