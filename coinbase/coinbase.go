package coinbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"coinbase-pro-go/order"
	"coinbase-pro-go/trading"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderAPI is the subset of order.API the client needs.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, newOrder order.NewOrder) (*order.Order, error)
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	GetOrderByClientID(ctx context.Context, clientOID string) (*order.Order, error)
}

type client struct {
	orders OrderAPI
}

func NewClient(orders OrderAPI) trading.Client {
	return &client{
		orders: orders,
	}
}

func (c *client) Sell(ctx context.Context, req trading.SellRequest) (trading.TradeResponse, error) {
	return c.marketOrder(ctx, order.SideSell, req.TradeRequest)
}

func (c *client) Buy(ctx context.Context, req trading.BuyRequest) (trading.TradeResponse, error) {
	return c.marketOrder(ctx, order.SideBuy, req.TradeRequest)
}

func (c *client) marketOrder(ctx context.Context, side order.Side, req trading.TradeRequest) (trading.TradeResponse, error) {
	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	placed, err := c.orders.PlaceOrder(ctx, order.NewOrder{
		ClientOID: clientOrderID,
		ProductID: productID(req.Base, req.Quote),
		Side:      side,
		Type:      order.TypeMarket,
		Size:      req.Amount,
	})
	if err != nil {
		return trading.TradeResponse{}, err
	}

	return trading.TradeResponse{
		OrderID:       placed.ID,
		ClientOrderID: clientOrderID,
		Status:        string(placed.Status),
	}, nil
}

func (c *client) GetOrderDetail(ctx context.Context, req trading.GetOrderDetailRequest) (trading.GetOrderDetailResponse, error) {
	var (
		o   *order.Order
		err error
	)
	if req.OrderID != "" {
		o, err = c.orders.GetOrder(ctx, req.OrderID)
	} else {
		o, err = c.orders.GetOrderByClientID(ctx, req.ClientOrderID)
	}
	if err != nil {
		return trading.GetOrderDetailResponse{}, err
	}
	if o == nil {
		return trading.GetOrderDetailResponse{}, fmt.Errorf("%s %s%s: %w", productID(req.Base, req.Quote), req.OrderID, req.ClientOrderID, ErrOrderNotFound)
	}

	return trading.GetOrderDetailResponse{
		Status:        string(o.Status),
		FilledSize:    o.FilledSize,
		ExecutedValue: o.ExecutedValue,
		FillFees:      o.FillFees,
		Done:          o.Status == order.StatusDone,
	}, nil
}

func productID(base, quote string) string {
	return fmt.Sprintf("%s-%s", base, quote)
}
