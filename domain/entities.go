package domain

// Entity represents base table entity keys.
type Entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

const (
	EdmInt32    = "Edm.Int32"
	EdmDateTime = "Edm.DateTime"
)

// Partition keys used by the pipeline. Products are externally owned and
// read-only here; Orders rows are append-only.
const (
	ProductPartition = "Product"
	OrderPartition   = "Order"
)

// StatusProcessed is the only status a processed order ever carries.
const StatusProcessed = "Processed"

// OrderEntity is the processed-order row written by the consumer.
type OrderEntity struct {
	Entity
	CustomerID      string `json:"CustomerId"`
	ProductID       string `json:"ProductId"`
	Quantity        int32  `json:"Quantity"`
	QuantityType    string `json:"Quantity@odata.type"`
	TotalPrice      string `json:"TotalPrice"`
	Status          string `json:"Status"`
	ProcessedOn     string `json:"ProcessedOn"`
	ProcessedOnType string `json:"ProcessedOn@odata.type"`
}
