package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeProducts struct {
	prices map[string]string
	err    error
}

func (f *fakeProducts) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	raw, ok := f.prices[productID]
	if !ok {
		return decimal.Zero, false, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return price, true, nil
}

type fakeOrders struct {
	rows []OrderEntity
	err  error
}

func (f *fakeOrders) InsertOrder(ctx context.Context, ent OrderEntity) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, ent)
	return nil
}

func TestProcessComputesExactTotal(t *testing.T) {
	products := &fakeProducts{prices: map[string]string{"p1": "19.99"}}
	orders := &fakeOrders{}
	proc := NewOrderProcessor(products, orders)

	ent, err := proc.Process(context.Background(), OrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 3})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if ent.TotalPrice != "59.97" {
		t.Fatalf("expected total 59.97, got %s", ent.TotalPrice)
	}
	if len(orders.rows) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(orders.rows))
	}
	row := orders.rows[0]
	if row.PartitionKey != OrderPartition || row.RowKey == "" {
		t.Fatalf("unexpected keys: %#v", row.Entity)
	}
	if row.CustomerID != "c1" || row.ProductID != "p1" || row.Quantity != 3 {
		t.Fatalf("unexpected row: %#v", row)
	}
	if row.Status != StatusProcessed {
		t.Fatalf("unexpected status %q", row.Status)
	}
	if row.QuantityType != EdmInt32 || row.ProcessedOnType != EdmDateTime {
		t.Fatalf("missing odata annotations: %#v", row)
	}
	if _, perr := time.Parse(time.RFC3339Nano, row.ProcessedOn); perr != nil {
		t.Fatalf("bad ProcessedOn %q: %v", row.ProcessedOn, perr)
	}
}

func TestProcessUnknownProductPricesAtZero(t *testing.T) {
	orders := &fakeOrders{}
	proc := NewOrderProcessor(&fakeProducts{}, orders)

	ent, err := proc.Process(context.Background(), OrderRequest{CustomerID: "c1", ProductID: "ghost", Quantity: 5})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if ent.TotalPrice != "0" {
		t.Fatalf("expected zero total, got %s", ent.TotalPrice)
	}
	if ent.Status != StatusProcessed {
		t.Fatalf("expected Processed status, got %q", ent.Status)
	}
}

func TestProcessPriceLookupFailure(t *testing.T) {
	orders := &fakeOrders{}
	proc := NewOrderProcessor(&fakeProducts{err: errors.New("table outage")}, orders)

	if _, err := proc.Process(context.Background(), OrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 1}); err == nil {
		t.Fatal("expected error")
	}
	if len(orders.rows) != 0 {
		t.Fatalf("no row should be written, got %d", len(orders.rows))
	}
}

func TestProcessPersistFailurePropagates(t *testing.T) {
	products := &fakeProducts{prices: map[string]string{"p1": "2.50"}}
	orders := &fakeOrders{err: errors.New("store outage")}
	proc := NewOrderProcessor(products, orders)

	if _, err := proc.Process(context.Background(), OrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 1}); err == nil {
		t.Fatal("expected error so the message stays queued")
	}
}

// Redelivery of the same payload is double-processed: row keys are generated
// fresh per write, so no de-duplication happens. This pins the current
// behavior on purpose.
func TestProcessRedeliveryProducesDistinctRows(t *testing.T) {
	products := &fakeProducts{prices: map[string]string{"p1": "10"}}
	orders := &fakeOrders{}
	proc := NewOrderProcessor(products, orders)

	req := OrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 2}
	if _, err := proc.Process(context.Background(), req); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if _, err := proc.Process(context.Background(), req); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(orders.rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(orders.rows))
	}
	if orders.rows[0].RowKey == orders.rows[1].RowKey {
		t.Fatalf("row keys must differ, both %q", orders.rows[0].RowKey)
	}
	if orders.rows[0].TotalPrice != "20" || orders.rows[1].TotalPrice != "20" {
		t.Fatalf("unexpected totals: %q %q", orders.rows[0].TotalPrice, orders.rows[1].TotalPrice)
	}
}
