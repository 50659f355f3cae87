package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinbase-pro-go/order"
	"coinbase-pro-go/rest"
)

type recordedRequest struct {
	method string
	uri    string
	body   []byte
}

// newTestAPI serves handler behind a real rest.Client and records every request.
func newTestAPI(t *testing.T, handler http.HandlerFunc) (*order.API, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		requests = append(requests, recordedRequest{method: r.Method, uri: r.URL.RequestURI(), body: body})
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	cli := rest.NewClient(rest.Config{URL: ts.URL, APIKey: "key", APISecret: "c2VjcmV0", Passphrase: "pass"}, ts.Client())

	return order.NewAPI(cli), &requests
}

func placedOrderHandler(t *testing.T, id, size string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newOrder order.NewOrder
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&newOrder)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_ = json.NewEncoder(w).Encode(order.Order{
			CreatedAt:     "2019-04-22T20:21:20.897409Z",
			ExecutedValue: "0.0000000000000000",
			FillFees:      "0.0000000000000000",
			FilledSize:    "0.00000000",
			Funds:         "207850.8486540300000000",
			ID:            id,
			ProductID:     newOrder.ProductID,
			Side:          newOrder.Side,
			Size:          size,
			Status:        order.StatusPending,
			STP:           order.DecrementAndCancel,
			Type:          newOrder.Type,
		})
	}
}

func TestAPI_PlaceOrder(t *testing.T) {
	testCases := []struct {
		name     string
		newOrder order.NewOrder
		respSize string
		wantBody string
	}{
		{
			name: "market buy",
			newOrder: order.NewOrder{
				ProductID: "BTC-EUR",
				Side:      order.SideBuy,
				Size:      "0.1",
				Type:      order.TypeMarket,
			},
			respSize: "0.10000000",
			wantBody: `{"product_id":"BTC-EUR","side":"buy","size":"0.1","type":"market"}`,
		},
		{
			name: "limit buy",
			newOrder: order.NewOrder{
				Price:     "18427.33",
				ProductID: "BTC-EUR",
				Side:      order.SideBuy,
				Size:      "1",
				Type:      order.TypeLimit,
			},
			respSize: "1.00000000",
			wantBody: `{"price":"18427.33","product_id":"BTC-EUR","side":"buy","size":"1","type":"limit"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, requests := newTestAPI(t, placedOrderHandler(t, "8eba9e7b-08d6-4667-90ca-6db445d743c0", tc.respSize))

			placed, err := api.PlaceOrder(context.Background(), tc.newOrder)
			require.NoError(t, err)

			require.Len(t, *requests, 1)
			assert.Equal(t, http.MethodPost, (*requests)[0].method)
			assert.Equal(t, "/orders", (*requests)[0].uri)
			assert.JSONEq(t, tc.wantBody, string((*requests)[0].body))

			assert.Equal(t, tc.respSize, placed.Size)
			assert.Equal(t, order.StatusPending, placed.Status)
			assert.Equal(t, tc.newOrder.ProductID, placed.ProductID)
			assert.Equal(t, tc.newOrder.Side, placed.Side)
			assert.Equal(t, tc.newOrder.Type, placed.Type)
			assert.Equal(t, "207850.8486540300000000", placed.Funds)
			assert.Equal(t, "0.0000000000000000", placed.FillFees)
		})
	}
}

const openOrdersBody = `[{
	"created_at": "2019-04-22T20:21:20.897409Z",
	"executed_value": "0.0000000000000000",
	"fill_fees": "0.0000000000000000",
	"filled_size": "0.00000000",
	"funds": "207850.8486540300000000",
	"id": "8eba9e7b-08d6-4667-90ca-6db445d743c0",
	"post_only": false,
	"product_id": "BTC-EUR",
	"settled": false,
	"side": "buy",
	"size": "0.10000000",
	"status": "open",
	"stp": "dc",
	"type": "market"
}]`

func TestAPI_GetOrders(t *testing.T) {
	testCases := []struct {
		name    string
		opts    *order.ListOptions
		wantURI string
	}{
		{
			name:    "no filter",
			wantURI: "/orders",
		},
		{
			name:    "empty options",
			opts:    &order.ListOptions{},
			wantURI: "/orders",
		},
		{
			name:    "repeated status",
			opts:    &order.ListOptions{Status: []order.Status{order.StatusOpen, order.StatusPending}},
			wantURI: "/orders?status=open&status=pending",
		},
		{
			name:    "status order preserved",
			opts:    &order.ListOptions{Status: []order.Status{order.StatusPending, order.StatusOpen, order.StatusPending}},
			wantURI: "/orders?status=pending&status=open&status=pending",
		},
		{
			name: "product and paging",
			opts: &order.ListOptions{
				Status:    []order.Status{order.StatusAll},
				ProductID: "BTC-EUR",
				After:     "10",
				Limit:     5,
			},
			wantURI: "/orders?after=10&limit=5&product_id=BTC-EUR&status=all",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, requests := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("CB-AFTER", "9")
				w.Header().Set("CB-BEFORE", "1")
				_, _ = io.WriteString(w, openOrdersBody)
			})

			openOrders, err := api.GetOrders(context.Background(), tc.opts)
			require.NoError(t, err)

			require.Len(t, *requests, 1)
			assert.Equal(t, http.MethodGet, (*requests)[0].method)
			assert.Equal(t, tc.wantURI, (*requests)[0].uri)

			require.Len(t, openOrders.Data, 1)
			assert.Equal(t, order.StatusOpen, openOrders.Data[0].Status)
			assert.Equal(t, "0.10000000", openOrders.Data[0].Size)
			assert.Equal(t, order.Pagination{After: "9", Before: "1"}, openOrders.Pagination)
		})
	}
}

func TestAPI_GetOrder(t *testing.T) {
	const orderID = "8eba9e7b-08d6-4667-90ca-6db445d743c1"

	api, requests := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"created_at": "2016-12-08T20:09:05.508883Z",
			"done_at": "2016-12-08T20:09:05.527Z",
			"done_reason": "filled",
			"executed_value": "9.9750556620000000",
			"fill_fees": "0.0249376391550000",
			"filled_size": "0.01291771",
			"funds": "9.9750623400000000",
			"id": "`+orderID+`",
			"post_only": false,
			"product_id": "BTC-USD",
			"settled": true,
			"side": "buy",
			"size": "1.00000000",
			"specified_funds": "10.0000000000000000",
			"status": "done",
			"stp": "dc",
			"type": "market"
		}`)
	})

	o, err := api.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, o)

	assert.Equal(t, "/orders/"+orderID, (*requests)[0].uri)
	assert.Equal(t, orderID, o.ID)
	assert.Equal(t, order.StatusDone, o.Status)
	assert.Equal(t, "filled", o.DoneReason)
	assert.True(t, o.Settled)
	assert.Equal(t, "9.9750556620000000", o.ExecutedValue)
	assert.Equal(t, "0.0249376391550000", o.FillFees)
	assert.Equal(t, "0.01291771", o.FilledSize)
	assert.Equal(t, "10.0000000000000000", o.SpecifiedFunds)

	created, err := o.CreatedTime()
	require.NoError(t, err)
	assert.Equal(t, 2016, created.Year())

	remaining, err := o.RemainingSize()
	require.NoError(t, err)
	assert.Equal(t, "0.98708229", remaining.String())
}

func TestAPI_GetOrderStatusPolicy(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		wantErr    bool
		wantStatus int
	}{
		{name: "not found returns nil", status: http.StatusNotFound},
		{name: "forbidden is rethrown", status: http.StatusForbidden, wantErr: true, wantStatus: http.StatusForbidden},
		{name: "bad request is rethrown", status: http.StatusBadRequest, wantErr: true, wantStatus: http.StatusBadRequest},
		{name: "server error is rethrown", status: http.StatusInternalServerError, wantErr: true, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, requests := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			o, err := api.GetOrder(context.Background(), "123")
			assert.Nil(t, o)
			assert.Equal(t, "/orders/123", (*requests)[0].uri)

			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}

			var apiErr *rest.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.wantStatus, apiErr.StatusCode)
		})
	}
}

func TestAPI_CancelOrder(t *testing.T) {
	const orderID = "8eba9e7b-08d6-4667-90ca-6db445d743c1"

	testCases := []struct {
		name      string
		productID string
		respBody  string
		wantURI   string
		wantErr   bool
	}{
		{
			name:     "json string body",
			respBody: `"` + orderID + `"`,
			wantURI:  "/orders/" + orderID,
		},
		{
			name:     "bare body",
			respBody: orderID,
			wantURI:  "/orders/" + orderID,
		},
		{
			name:      "with product id",
			productID: "BTC-USD",
			respBody:  `"` + orderID + `"`,
			wantURI:   "/orders/" + orderID + "?product_id=BTC-USD",
		},
		{
			name:     "json object body",
			respBody: `{"message":"weird"}`,
			wantURI:  "/orders/" + orderID,
			wantErr:  true,
		},
		{
			name:     "empty body",
			respBody: "",
			wantURI:  "/orders/" + orderID,
			wantErr:  true,
		},
		{
			name:     "null body",
			respBody: "null",
			wantURI:  "/orders/" + orderID,
			wantErr:  true,
		},
		{
			name:     "number body",
			respBody: "42",
			wantURI:  "/orders/" + orderID,
			wantErr:  true,
		},
		{
			name:     "empty json string body",
			respBody: `""`,
			wantURI:  "/orders/" + orderID,
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, requests := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.respBody)
			})

			canceledID, err := api.CancelOrder(context.Background(), orderID, tc.productID)

			require.Len(t, *requests, 1)
			assert.Equal(t, http.MethodDelete, (*requests)[0].method)
			assert.Equal(t, tc.wantURI, (*requests)[0].uri)

			if tc.wantErr {
				assert.ErrorContains(t, err, "decode response body")
				assert.Empty(t, canceledID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, orderID, canceledID)
		})
	}
}

func TestAPI_CancelOpenOrders(t *testing.T) {
	testCases := []struct {
		name      string
		productID string
		wantURI   string
	}{
		{name: "all products", wantURI: "/orders"},
		{name: "single product", productID: "ETH-EUR", wantURI: "/orders?product_id=ETH-EUR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api, requests := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `["8eba9e7b-08d6-4667-90ca-6db445d743c1","b0ba16c1-749c-4f96-b2e5-95192d721f92"]`)
			})

			canceledIDs, err := api.CancelOpenOrders(context.Background(), tc.productID)
			require.NoError(t, err)

			require.Len(t, *requests, 1)
			assert.Equal(t, http.MethodDelete, (*requests)[0].method)
			assert.Equal(t, tc.wantURI, (*requests)[0].uri)
			assert.Equal(t, []string{"8eba9e7b-08d6-4667-90ca-6db445d743c1", "b0ba16c1-749c-4f96-b2e5-95192d721f92"}, canceledIDs)
		})
	}
}
