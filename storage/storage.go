package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/shopspring/decimal"

	"github.com/ST10266083/ABC-Store-Functions/domain"
)

// Storage provides access to the tables and queues of the storage account.
type Storage struct {
	tables        *aztables.ServiceClient
	queues        *azqueue.ServiceClient
	productsTable string
	ordersTable   string
}

// New creates a Storage instance from the given connection string.
func New(connStr, productsTable, ordersTable string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	tsvc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	qsvc, err := azqueue.NewServiceClientFromConnectionString(connStr, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{tables: tsvc, queues: qsvc, productsTable: productsTable, ordersTable: ordersTable}, nil
}

// EnsureQueue creates the named queue if it does not exist yet.
func (s *Storage) EnsureQueue(ctx context.Context, name string) error {
	q := s.queues.NewQueueClient(name)
	_, err := q.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}

// Enqueue sends a payload to the named queue. A positive ttl bounds how long
// the message stays retrievable; zero keeps the service default.
func (s *Storage) Enqueue(ctx context.Context, name, payload string, ttl time.Duration) error {
	var opts *azqueue.EnqueueMessageOptions
	if ttl > 0 {
		ttlSecs := int32(ttl / time.Second)
		opts = &azqueue.EnqueueMessageOptions{TimeToLive: &ttlSecs}
	}
	_, err := s.queues.NewQueueClient(name).EnqueueMessage(ctx, payload, opts)
	return err
}

// Peek returns up to count leading messages without removing or locking them.
func (s *Storage) Peek(ctx context.Context, name string, count int) ([]domain.QueuedMessage, error) {
	n := int32(count)
	resp, err := s.queues.NewQueueClient(name).PeekMessages(ctx, &azqueue.PeekMessagesOptions{NumberOfMessages: &n})
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.QueuedMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		var qm domain.QueuedMessage
		if m.MessageText != nil {
			qm.MessageText = *m.MessageText
		}
		if m.InsertionTime != nil {
			qm.InsertedOn = *m.InsertionTime
		}
		msgs = append(msgs, qm)
	}
	return msgs, nil
}

// Dequeue retrieves up to max messages from the named queue. Visibility of
// the returned messages is managed by the queue service.
func (s *Storage) Dequeue(ctx context.Context, name string, max int) ([]*azqueue.DequeuedMessage, error) {
	n := int32(max)
	resp, err := s.queues.NewQueueClient(name).DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{NumberOfMessages: &n})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// DeleteMessage removes a processed message from the named queue.
func (s *Storage) DeleteMessage(ctx context.Context, name, id, receipt string) error {
	_, err := s.queues.NewQueueClient(name).DeleteMessage(ctx, id, receipt, nil)
	return err
}

// EnsureTable creates the named table if it does not exist yet.
func (s *Storage) EnsureTable(ctx context.Context, name string) error {
	c := s.tables.NewClient(name)
	_, err := c.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return err
		}
	}
	return nil
}

// ProductPrice queries the products table for partition "Product" and the
// given row key, taking the first match only. The boolean result is false
// when no product row exists.
func (s *Storage) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and RowKey eq '%s'",
		domain.ProductPartition, escapeODataString(productID))
	top := int32(1)
	pager := s.tables.NewClient(s.productsTable).NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
		Top:    &top,
	})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return decimal.Zero, false, err
		}
		for _, e := range resp.Entities {
			price, err := decodeProductPrice(e)
			if err != nil {
				return decimal.Zero, false, err
			}
			return price, true, nil
		}
	}
	return decimal.Zero, false, nil
}

// InsertOrder appends a processed-order row. Inserts never overwrite: row
// keys are unique per write, so conflicts indicate a bug upstream.
func (s *Storage) InsertOrder(ctx context.Context, ent domain.OrderEntity) error {
	payload, err := json.Marshal(ent)
	if err == nil {
		_, err = s.tables.NewClient(s.ordersTable).AddEntity(ctx, payload, nil)
	}
	return err
}

// UpsertEntity creates or fully overwrites an entity in the named table.
func (s *Storage) UpsertEntity(ctx context.Context, table, partitionKey, rowKey string, props map[string]any) error {
	if err := s.EnsureTable(ctx, table); err != nil {
		return err
	}
	ent := map[string]any{
		"PartitionKey": partitionKey,
		"RowKey":       rowKey,
	}
	for k, v := range props {
		if k == "" || k == "PartitionKey" || k == "RowKey" {
			continue
		}
		ent[k] = v
	}
	payload, err := json.Marshal(ent)
	if err == nil {
		_, err = s.tables.NewClient(table).UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	}
	return err
}

func decodeProductPrice(data []byte) (decimal.Decimal, error) {
	var raw struct {
		Price any `json:"Price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return decimal.Zero, err
	}
	return priceDecimal(raw.Price)
}

// priceDecimal coerces a table property into an exact decimal. Prices stored
// as numbers or as strings are both accepted.
func priceDecimal(v any) (decimal.Decimal, error) {
	switch p := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		return decimal.NewFromString(p)
	case float64:
		return decimal.NewFromFloat(p), nil
	case json.Number:
		return decimal.NewFromString(p.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %T", v)
	}
}

func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
