package sandbox

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coinbase-pro-go/order"
)

var (
	ErrOrderNotFound = errors.New("NotFound")
	ErrOrderNotOpen  = errors.New("order already done")
	ErrInvalidOrder  = errors.New("invalid order")
)

const (
	sizeDecimals  = 8
	valueDecimals = 16
)

// DefaultFeeRate is the taker fee applied by Fill.
var DefaultFeeRate = decimal.RequireFromString("0.005")

var defaultListStatuses = []order.Status{order.StatusOpen, order.StatusPending, order.StatusActive}

// Store keeps orders in memory. Canceled orders are removed, as the
// exchange forgets them too.
type Store struct {
	mu      sync.Mutex
	orders  map[string]*entry
	seq     int64
	feeRate decimal.Decimal
	now     func() time.Time
}

type entry struct {
	order order.Order
	seq   int64
}

func NewStore(feeRate decimal.Decimal) *Store {
	return &Store{
		orders:  make(map[string]*entry),
		feeRate: feeRate,
		now:     time.Now,
	}
}

// Place validates newOrder the way the exchange does and stores it as pending.
func (s *Store) Place(newOrder order.NewOrder) (order.Order, error) {
	o := order.Order{
		ID:            uuid.NewString(),
		ClientOID:     newOrder.ClientOID,
		ProductID:     newOrder.ProductID,
		Side:          newOrder.Side,
		Type:          newOrder.Type,
		STP:           newOrder.STP,
		Stop:          newOrder.Stop,
		TimeInForce:   newOrder.TimeInForce,
		PostOnly:      newOrder.PostOnly,
		Status:        order.StatusPending,
		FilledSize:    order.ZeroSize,
		ExecutedValue: decimal.Zero.StringFixed(valueDecimals),
		FillFees:      decimal.Zero.StringFixed(valueDecimals),
	}
	if o.Type == "" {
		o.Type = order.TypeLimit
	}
	if o.STP == "" {
		o.STP = order.DecrementAndCancel
	}
	if o.ProductID == "" {
		return order.Order{}, fmt.Errorf("%w: product_id is required", ErrInvalidOrder)
	}
	if o.Side != order.SideBuy && o.Side != order.SideSell {
		return order.Order{}, fmt.Errorf("%w: side must be buy or sell", ErrInvalidOrder)
	}

	var err error
	if o.Size, err = normalize("size", newOrder.Size, sizeDecimals); err != nil {
		return order.Order{}, err
	}
	if o.Funds, err = normalize("funds", newOrder.Funds, valueDecimals); err != nil {
		return order.Order{}, err
	}
	if o.Price, err = normalize("price", newOrder.Price, sizeDecimals); err != nil {
		return order.Order{}, err
	}
	if o.StopPrice, err = normalize("stop_price", newOrder.StopPrice, sizeDecimals); err != nil {
		return order.Order{}, err
	}

	switch o.Type {
	case order.TypeLimit:
		if o.Price == "" || o.Size == "" {
			return order.Order{}, fmt.Errorf("%w: limit orders need price and size", ErrInvalidOrder)
		}
		if o.TimeInForce == "" {
			o.TimeInForce = order.GoodTillCanceled
		}
	case order.TypeMarket:
		if o.Size == "" && o.Funds == "" {
			return order.Order{}, fmt.Errorf("%w: market orders need size or funds", ErrInvalidOrder)
		}
		o.Price = ""
		o.SpecifiedFunds = o.Funds
	case order.TypeStop:
		if o.StopPrice == "" {
			return order.Order{}, fmt.Errorf("%w: stop orders need stop_price", ErrInvalidOrder)
		}
	default:
		return order.Order{}, fmt.Errorf("%w: unknown type %q", ErrInvalidOrder, o.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o.CreatedAt = s.now().UTC().Format(time.RFC3339Nano)
	s.seq++
	s.orders[o.ID] = &entry{order: o, seq: s.seq}

	return o, nil
}

func normalize(field, value string, places int32) (string, error) {
	if value == "" {
		return "", nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s %q is not a decimal", ErrInvalidOrder, field, value)
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("%w: %s must be positive", ErrInvalidOrder, field)
	}

	return d.StringFixed(places), nil
}

// Activate moves a pending order onto the book.
func (s *Store) Activate(orderID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.orders[orderID]
	if !ok {
		return order.Order{}, ErrOrderNotFound
	}
	if e.order.Status != order.StatusPending {
		return order.Order{}, fmt.Errorf("%w: status %s", ErrOrderNotOpen, e.order.Status)
	}
	e.order.Status = order.StatusOpen

	return e.order, nil
}

// Fill executes size at price against an order. The order is done once the
// filled size reaches its size; funds-only orders are done after one fill.
func (s *Store) Fill(orderID string, size, price decimal.Decimal) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.orders[orderID]
	if !ok {
		return order.Order{}, ErrOrderNotFound
	}
	if !isOpen(e.order.Status) {
		return order.Order{}, ErrOrderNotOpen
	}

	o := &e.order
	filled := decimal.RequireFromString(o.FilledSize).Add(size)
	if o.Size != "" && filled.GreaterThan(decimal.RequireFromString(o.Size)) {
		return order.Order{}, fmt.Errorf("%w: fill exceeds size %s", ErrInvalidOrder, o.Size)
	}

	value := size.Mul(price)
	o.FilledSize = filled.StringFixed(sizeDecimals)
	o.ExecutedValue = decimal.RequireFromString(o.ExecutedValue).Add(value).StringFixed(valueDecimals)
	o.FillFees = decimal.RequireFromString(o.FillFees).Add(value.Mul(s.feeRate)).StringFixed(valueDecimals)
	if o.Status == order.StatusPending {
		o.Status = order.StatusOpen
	}

	if o.Size == "" || filled.Equal(decimal.RequireFromString(o.Size)) {
		o.Status = order.StatusDone
		o.DoneReason = "filled"
		o.DoneAt = s.now().UTC().Format(time.RFC3339Nano)
		o.Settled = true
	}

	return *o, nil
}

func (s *Store) Get(orderID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.orders[orderID]
	if !ok {
		return order.Order{}, ErrOrderNotFound
	}

	return e.order, nil
}

func (s *Store) GetByClientOID(clientOID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.orders {
		if clientOID != "" && e.order.ClientOID == clientOID {
			return e.order, nil
		}
	}

	return order.Order{}, ErrOrderNotFound
}

// List returns matching orders, newest first. No statuses means open,
// pending and active; StatusAll matches everything.
func (s *Store) List(statuses []order.Status, productID string) []order.Order {
	if len(statuses) == 0 {
		statuses = defaultListStatuses
	}

	wanted := make(map[order.Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	s.mu.Lock()
	entries := make([]*entry, 0, len(s.orders))
	for _, e := range s.orders {
		if productID != "" && e.order.ProductID != productID {
			continue
		}
		if !wanted[order.StatusAll] && !wanted[e.order.Status] {
			continue
		}
		entries = append(entries, e)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	out := make([]order.Order, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.order)
	}

	return out
}

// Cancel removes an open order and returns its product. The order id alone
// identifies it; callers treat product_id as a lookup hint only.
func (s *Store) Cancel(orderID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.orders[orderID]
	if !ok {
		return order.Order{}, ErrOrderNotFound
	}
	if !isOpen(e.order.Status) {
		return order.Order{}, ErrOrderNotOpen
	}
	delete(s.orders, orderID)

	return e.order, nil
}

// CancelAll removes every open order, optionally scoped to one product.
func (s *Store) CancelAll(productID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	canceled := make([]*entry, 0)
	for _, e := range s.orders {
		if !isOpen(e.order.Status) {
			continue
		}
		if productID != "" && e.order.ProductID != productID {
			continue
		}
		canceled = append(canceled, e)
	}
	sort.Slice(canceled, func(i, j int) bool { return canceled[i].seq < canceled[j].seq })

	ids := make([]string, 0, len(canceled))
	for _, e := range canceled {
		delete(s.orders, e.order.ID)
		ids = append(ids, e.order.ID)
	}

	return ids
}

func isOpen(status order.Status) bool {
	switch status {
	case order.StatusOpen, order.StatusPending, order.StatusActive, order.StatusReceived:
		return true
	}

	return false
}
