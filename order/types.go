package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type Type string

const (
	TypeMarket Type = "market"
	TypeLimit  Type = "limit"
	TypeStop   Type = "stop"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusDone     Status = "done"
	StatusReceived Status = "received"
	StatusSettled  Status = "settled"
	StatusRejected Status = "rejected"
	// StatusAll is only meaningful as a list filter.
	StatusAll Status = "all"
)

// SelfTradePrevention decides what happens when two orders of the same
// account would match.
type SelfTradePrevention string

const (
	DecrementAndCancel SelfTradePrevention = "dc"
	CancelOldest       SelfTradePrevention = "co"
	CancelNewest       SelfTradePrevention = "cn"
	CancelBoth         SelfTradePrevention = "cb"
)

type TimeInForce string

const (
	GoodTillCanceled  TimeInForce = "GTC"
	GoodTillTime      TimeInForce = "GTT"
	ImmediateOrCancel TimeInForce = "IOC"
	FillOrKill        TimeInForce = "FOK"
)

// CancelAfter is only valid together with GoodTillTime.
type CancelAfter string

const (
	CancelAfterMinute CancelAfter = "min"
	CancelAfterHour   CancelAfter = "hour"
	CancelAfterDay    CancelAfter = "day"
)

type Stop string

const (
	StopLoss  Stop = "loss"
	StopEntry Stop = "entry"
)

// ZeroSize is what the exchange reports for quantities without fills.
const ZeroSize = "0.00000000"

// Order is a snapshot of an order as reported by the exchange. All
// quantities are decimal strings exactly as received.
type Order struct {
	ID             string              `json:"id"`
	ClientOID      string              `json:"client_oid,omitempty"`
	ProductID      string              `json:"product_id"`
	Side           Side                `json:"side"`
	Type           Type                `json:"type"`
	STP            SelfTradePrevention `json:"stp,omitempty"`
	Stop           Stop                `json:"stop,omitempty"`
	StopPrice      string              `json:"stop_price,omitempty"`
	Price          string              `json:"price,omitempty"`
	Size           string              `json:"size,omitempty"`
	Funds          string              `json:"funds,omitempty"`
	SpecifiedFunds string              `json:"specified_funds,omitempty"`
	TimeInForce    TimeInForce         `json:"time_in_force,omitempty"`
	ExpireTime     string              `json:"expire_time,omitempty"`
	PostOnly       bool                `json:"post_only"`
	Status         Status              `json:"status"`
	FilledSize     string              `json:"filled_size"`
	ExecutedValue  string              `json:"executed_value"`
	FillFees       string              `json:"fill_fees"`
	Settled        bool                `json:"settled"`
	CreatedAt      string              `json:"created_at"`
	DoneAt         string              `json:"done_at,omitempty"`
	DoneReason     string              `json:"done_reason,omitempty"`
	RejectReason   string              `json:"reject_reason,omitempty"`
}

// CreatedTime parses CreatedAt.
func (o Order) CreatedTime() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, o.CreatedAt)
}

// RemainingSize is Size minus FilledSize. Funds-only market orders have no
// size and report zero.
func (o Order) RemainingSize() (decimal.Decimal, error) {
	if o.Size == "" {
		return decimal.Zero, nil
	}

	size, err := decimal.NewFromString(o.Size)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse size %q: %w", o.Size, err)
	}

	filled := decimal.Zero
	if o.FilledSize != "" {
		filled, err = decimal.NewFromString(o.FilledSize)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse filled_size %q: %w", o.FilledSize, err)
		}
	}

	return size.Sub(filled), nil
}

// NewOrder is the request body of PlaceOrder. Either Size or Funds is set;
// Price only for limit orders. Nothing is validated locally.
type NewOrder struct {
	ClientOID   string              `json:"client_oid,omitempty"`
	ProductID   string              `json:"product_id"`
	Side        Side                `json:"side"`
	Type        Type                `json:"type,omitempty"`
	STP         SelfTradePrevention `json:"stp,omitempty"`
	Stop        Stop                `json:"stop,omitempty"`
	StopPrice   string              `json:"stop_price,omitempty"`
	Price       string              `json:"price,omitempty"`
	Size        string              `json:"size,omitempty"`
	Funds       string              `json:"funds,omitempty"`
	TimeInForce TimeInForce         `json:"time_in_force,omitempty"`
	CancelAfter CancelAfter         `json:"cancel_after,omitempty"`
	PostOnly    bool                `json:"post_only,omitempty"`
}

// Pagination holds the cursors of the CB-AFTER and CB-BEFORE headers.
type Pagination struct {
	After  string
	Before string
}

type PaginatedOrders struct {
	Data       []Order
	Pagination Pagination
}

// ListOptions filters GetOrders. Status values are sent in the given order.
type ListOptions struct {
	Status    []Status
	ProductID string
	After     string
	Before    string
	Limit     int
}
