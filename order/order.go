package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"coinbase-pro-go/rest"
)

// Path of the orders resource.
const Path = "/orders"

// Transport performs authenticated requests. Non-2xx answers must be
// returned as *rest.Error.
//
//go:generate mockgen -source order.go -destination=mock/transport_mock.go -package=order_mock
type Transport interface {
	Request(ctx context.Context, method, path string, query url.Values, body any) (*rest.Response, error)
}

// API exposes the orders resource. It holds no state besides the transport.
type API struct {
	transport Transport
}

func NewAPI(transport Transport) *API {
	return &API{transport: transport}
}

// PlaceOrder submits a new order and returns the exchange's view of it.
func (a *API) PlaceOrder(ctx context.Context, newOrder NewOrder) (*Order, error) {
	res, err := a.transport.Request(ctx, http.MethodPost, Path, nil, newOrder)
	if err != nil {
		return nil, err
	}

	var placed Order
	if err := res.Decode(&placed); err != nil {
		return nil, err
	}

	return &placed, nil
}

// GetOrders lists orders. A nil opts sends no query string.
func (a *API) GetOrders(ctx context.Context, opts *ListOptions) (*PaginatedOrders, error) {
	res, err := a.transport.Request(ctx, http.MethodGet, Path, opts.values(), nil)
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := res.Decode(&orders); err != nil {
		return nil, err
	}

	return &PaginatedOrders{
		Data: orders,
		Pagination: Pagination{
			After:  res.Header.Get("CB-AFTER"),
			Before: res.Header.Get("CB-BEFORE"),
		},
	}, nil
}

// GetOrder fetches a single order. It returns nil without error when the
// exchange answers 404; any other failure is returned unchanged.
func (a *API) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return a.getOrder(ctx, Path+"/"+url.PathEscape(orderID))
}

// GetOrderByClientID looks an order up by the client_oid given at placement.
// Same not-found policy as GetOrder.
func (a *API) GetOrderByClientID(ctx context.Context, clientOID string) (*Order, error) {
	return a.getOrder(ctx, Path+"/client:"+url.PathEscape(clientOID))
}

func (a *API) getOrder(ctx context.Context, path string) (*Order, error) {
	res, err := a.transport.Request(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		var apiErr *rest.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var o Order
	if err := res.Decode(&o); err != nil {
		return nil, err
	}

	return &o, nil
}

// CancelOrder cancels one order and returns its id. productID is optional
// and only speeds up the lookup on the exchange side.
func (a *API) CancelOrder(ctx context.Context, orderID, productID string) (string, error) {
	res, err := a.transport.Request(ctx, http.MethodDelete, Path+"/"+url.PathEscape(orderID), productQuery(productID), nil)
	if err != nil {
		return "", err
	}

	// Some deployments answer with the bare id instead of a JSON string.
	if bare := strings.TrimSpace(string(res.Body)); bare != "" && !json.Valid(res.Body) {
		return bare, nil
	}

	var canceledID *string
	if err := res.Decode(&canceledID); err != nil {
		return "", err
	}
	if canceledID == nil || *canceledID == "" {
		return "", errors.New("decode response body: empty canceled order id")
	}

	return *canceledID, nil
}

// CancelOpenOrders cancels every open order, or only those of productID
// when it is set, and returns the canceled ids.
func (a *API) CancelOpenOrders(ctx context.Context, productID string) ([]string, error) {
	res, err := a.transport.Request(ctx, http.MethodDelete, Path, productQuery(productID), nil)
	if err != nil {
		return nil, err
	}

	var canceledIDs []string
	if err := res.Decode(&canceledIDs); err != nil {
		return nil, err
	}

	return canceledIDs, nil
}

func productQuery(productID string) url.Values {
	if productID == "" {
		return nil
	}

	return url.Values{"product_id": []string{productID}}
}

func (o *ListOptions) values() url.Values {
	if o == nil {
		return nil
	}

	q := url.Values{}
	for _, status := range o.Status {
		q.Add("status", string(status))
	}
	if o.ProductID != "" {
		q.Set("product_id", o.ProductID)
	}
	if o.After != "" {
		q.Set("after", o.After)
	}
	if o.Before != "" {
		q.Set("before", o.Before)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}

	return q
}
