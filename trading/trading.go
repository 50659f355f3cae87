package trading

import "context"

// Client is an exchange-neutral way to trade a base/quote pair.
type Client interface {
	Sell(context.Context, SellRequest) (TradeResponse, error)
	Buy(context.Context, BuyRequest) (TradeResponse, error)
	GetOrderDetail(context.Context, GetOrderDetailRequest) (GetOrderDetailResponse, error)
}

type SellRequest struct {
	TradeRequest
}

type BuyRequest struct {
	TradeRequest
}

// TradeRequest amounts are decimal strings in base currency.
// ClientOrderID makes the request idempotent on the exchange.
type TradeRequest struct {
	Base          string
	Quote         string
	Amount        string
	ClientOrderID string
}

type TradeResponse struct {
	OrderID       string
	ClientOrderID string
	Status        string
}

// GetOrderDetailRequest looks an order up by OrderID, or by ClientOrderID
// when OrderID is empty.
type GetOrderDetailRequest struct {
	Base          string
	Quote         string
	OrderID       string
	ClientOrderID string
}

type GetOrderDetailResponse struct {
	Status        string
	FilledSize    string
	ExecutedValue string
	FillFees      string
	Done          bool
}
