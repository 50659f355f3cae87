package sandbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"coinbase-pro-go/order"
	"coinbase-pro-go/rest"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Credentials the sandbox expects. An empty APIKey disables authentication.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

type handler struct {
	store       *Store
	credentials Credentials
	logger      *zap.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var newOrder order.NewOrder
	if err := json.NewDecoder(r.Body).Decode(&newOrder); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	placed, err := h.store.Place(newOrder)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("product_id", placed.ProductID),
		zap.String("side", string(placed.Side)),
		zap.String("type", string(placed.Type)),
	)
	writeJSON(w, http.StatusOK, placed)
}

func (h *handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	statuses := make([]order.Status, 0, len(q["status"]))
	for _, status := range q["status"] {
		statuses = append(statuses, order.Status(status))
	}

	limit := defaultPageLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPageLimit {
			writeMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	page := paginate(h.store.List(statuses, q.Get("product_id")), q.Get("after"), q.Get("before"), limit)
	if len(page) > 0 {
		w.Header().Set("CB-BEFORE", page[0].ID)
		w.Header().Set("CB-AFTER", page[len(page)-1].ID)
	}
	writeJSON(w, http.StatusOK, page)
}

// paginate pages a newest-first list. after returns orders older than the
// cursor, before returns orders newer than it.
func paginate(orders []order.Order, after, before string, limit int) []order.Order {
	start, end := 0, len(orders)
	for i, o := range orders {
		if after != "" && o.ID == after {
			start = i + 1
		}
		if before != "" && o.ID == before {
			end = i
		}
	}
	if start > end {
		return []order.Order{}
	}

	page := orders[start:end]
	if before != "" && len(page) > limit {
		return page[len(page)-limit:]
	}
	if len(page) > limit {
		return page[:limit]
	}

	return page
}

func (h *handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathVar(w, r, "id")
	if !ok {
		return
	}

	o, err := h.store.Get(orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *handler) GetOrderByClientOID(w http.ResponseWriter, r *http.Request) {
	clientOID, ok := pathVar(w, r, "clientOID")
	if !ok {
		return
	}

	o, err := h.store.GetByClientOID(clientOID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathVar(w, r, "id")
	if !ok {
		return
	}

	canceled, err := h.store.Cancel(orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if hint := r.URL.Query().Get("product_id"); hint != "" && hint != canceled.ProductID {
		h.logger.Debug("cancel product hint mismatch",
			zap.String("order_id", canceled.ID),
			zap.String("product_id", canceled.ProductID),
			zap.String("hint", hint),
		)
	}

	h.logger.Info("order canceled", zap.String("order_id", canceled.ID))
	writeJSON(w, http.StatusOK, canceled.ID)
}

func (h *handler) CancelOpenOrders(w http.ResponseWriter, r *http.Request) {
	canceledIDs := h.store.CancelAll(r.URL.Query().Get("product_id"))

	h.logger.Info("open orders canceled",
		zap.String("product_id", r.URL.Query().Get("product_id")),
		zap.Int("count", len(canceledIDs)),
	)
	writeJSON(w, http.StatusOK, canceledIDs)
}

// Authenticate verifies the CB-ACCESS-* headers with the same signer the
// rest client uses.
func (h *handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.credentials.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		timestamp, err := strconv.ParseInt(r.Header.Get("CB-ACCESS-TIMESTAMP"), 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid timestamp")
			return
		}

		want := rest.Sign(h.credentials.APISecret, timestamp, r.Method, r.URL.RequestURI(), string(body))
		if r.Header.Get("CB-ACCESS-KEY") != h.credentials.APIKey ||
			r.Header.Get("CB-ACCESS-PASSPHRASE") != h.credentials.Passphrase ||
			r.Header.Get("CB-ACCESS-SIGN") != want {
			h.logger.Warn("rejected request", zap.String("method", r.Method), zap.String("uri", r.URL.RequestURI()))
			writeMessage(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// pathVar returns a decoded route variable. The router matches on the
// escaped path so ids may carry encoded slashes.
func pathVar(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(mux.Vars(r)[name])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid "+name)
		return "", false
	}

	return v, true
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		writeMessage(w, http.StatusNotFound, ErrOrderNotFound.Error())
	case errors.Is(err, ErrOrderNotOpen), errors.Is(err, ErrInvalidOrder):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
