package main

import (
	"context"
	"errors"
	"fmt"

	"coinbase-pro-go/coinbase"
	"coinbase-pro-go/order"
	"coinbase-pro-go/trading"
)

var errUsage = errors.New("invalid arguments, see -h")

// run executes one CLI command against api and returns what should be printed.
func run(ctx context.Context, api *order.API, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "list":
		opts := &order.ListOptions{}
		for _, status := range args {
			opts.Status = append(opts.Status, order.Status(status))
		}
		orders, err := api.GetOrders(ctx, opts)
		if err != nil {
			return nil, err
		}
		return orders.Data, nil

	case "get":
		if len(args) != 1 {
			return nil, errUsage
		}
		return api.GetOrder(ctx, args[0])

	case "get-client":
		if len(args) != 1 {
			return nil, errUsage
		}
		return api.GetOrderByClientID(ctx, args[0])

	case "place":
		if len(args) < 4 || len(args) > 5 {
			return nil, errUsage
		}
		newOrder := order.NewOrder{
			ProductID: args[0],
			Side:      order.Side(args[1]),
			Type:      order.Type(args[2]),
			Size:      args[3],
		}
		if len(args) == 5 {
			newOrder.Price = args[4]
		}
		return api.PlaceOrder(ctx, newOrder)

	case "cancel":
		if len(args) < 1 || len(args) > 2 {
			return nil, errUsage
		}
		productID := ""
		if len(args) == 2 {
			productID = args[1]
		}
		return api.CancelOrder(ctx, args[0], productID)

	case "cancel-all":
		if len(args) > 1 {
			return nil, errUsage
		}
		productID := ""
		if len(args) == 1 {
			productID = args[0]
		}
		return api.CancelOpenOrders(ctx, productID)

	case "buy", "sell":
		if len(args) != 3 {
			return nil, errUsage
		}
		req := trading.TradeRequest{Base: args[0], Quote: args[1], Amount: args[2]}
		client := coinbase.NewClient(api)
		if cmd == "buy" {
			return client.Buy(ctx, trading.BuyRequest{TradeRequest: req})
		}
		return client.Sell(ctx, trading.SellRequest{TradeRequest: req})
	}

	return nil, fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}
