package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ProductSource resolves the current price of a product. The boolean result
// reports whether a matching product row exists.
type ProductSource interface {
	ProductPrice(ctx context.Context, productID string) (decimal.Decimal, bool, error)
}

// OrderWriter appends processed-order rows.
type OrderWriter interface {
	InsertOrder(ctx context.Context, ent OrderEntity) error
}

// OrderProcessor turns a dequeued order request into a processed-order row.
type OrderProcessor struct {
	products ProductSource
	orders   OrderWriter
	now      func() time.Time
	newID    func() string
}

func NewOrderProcessor(products ProductSource, orders OrderWriter) *OrderProcessor {
	return &OrderProcessor{
		products: products,
		orders:   orders,
		now:      time.Now,
		newID:    newOrderID,
	}
}

// Process resolves the price, computes the total with exact decimal
// arithmetic, and persists the order under a fresh row key. An unknown
// product is not an error: the order processes at price zero. Any store
// failure is returned so the message stays eligible for redelivery.
func (p *OrderProcessor) Process(ctx context.Context, req OrderRequest) (OrderEntity, error) {
	price, found, err := p.products.ProductPrice(ctx, req.ProductID)
	if err != nil {
		return OrderEntity{}, fmt.Errorf("price lookup for %q: %w", req.ProductID, err)
	}
	if !found {
		price = decimal.Zero
		log.WithField("product", req.ProductID).Warn("no matching product, pricing order at zero")
	}
	total := price.Mul(decimal.NewFromInt(int64(req.Quantity)))

	ent := OrderEntity{
		Entity:          Entity{PartitionKey: OrderPartition, RowKey: p.newID()},
		CustomerID:      req.CustomerID,
		ProductID:       req.ProductID,
		Quantity:        int32(req.Quantity),
		QuantityType:    EdmInt32,
		TotalPrice:      total.String(),
		Status:          StatusProcessed,
		ProcessedOn:     p.now().UTC().Format(time.RFC3339Nano),
		ProcessedOnType: EdmDateTime,
	}
	if err := p.orders.InsertOrder(ctx, ent); err != nil {
		return OrderEntity{}, fmt.Errorf("persist order: %w", err)
	}
	return ent, nil
}

// newOrderID returns a dashless random UUID. Row keys are generated fresh at
// write time, so redelivered messages produce distinct rows.
func newOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
