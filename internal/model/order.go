package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a production order.
type OrderStatus string

// Order statuses. Orders only ever transition open -> closed.
const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusClosed OrderStatus = "closed"
)

// ParseOrderStatus converts a string into an OrderStatus, accepting the
// Spanish states used by the accounting export.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "open", "abierta", "abierto":
		return OrderStatusOpen, nil
	case "closed", "cerrada", "cerrado":
		return OrderStatusClosed, nil
	}
	return "", fmt.Errorf("unknown order status: %q", s)
}

// ProductionOrder is an operational record of a production run (an "OP").
// Orders are created by accounting ingestion and are read-only to the
// reconciliation and KPI stages.
type ProductionOrder struct {
	CampaignID   string
	Number       string
	Type         Process
	Status       OrderStatus
	EstimatedQty decimal.Decimal
	ProducedQty  decimal.Decimal
	TotalCost    decimal.Decimal
}
