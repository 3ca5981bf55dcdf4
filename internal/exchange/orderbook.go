package exchange

import (
	"sort"

	"github.com/xtrntr/simex/internal/models"
)

// OrderBook owns every order of the session, addressed by a stable handle.
// The index keeps handles ordered by timestamp, stable on ties.
type OrderBook struct {
	orders map[int]*models.Order
	index  []int
	nextID int

	nextSaleID int
}

// NewOrderBook creates an order book from a batch of orders, e.g. a CSV load.
// Handles are assigned in supplied order; incoming IDs are ignored.
func NewOrderBook(orders []models.Order) *OrderBook {
	ob := &OrderBook{
		orders: make(map[int]*models.Order, len(orders)),
		index:  make([]int, 0, len(orders)),
	}
	for _, o := range orders {
		ob.nextID++
		o.ID = ob.nextID
		order := o
		ob.orders[order.ID] = &order
		ob.index = append(ob.index, order.ID)
	}
	sort.SliceStable(ob.index, func(i, j int) bool {
		return ob.orders[ob.index[i]].Timestamp < ob.orders[ob.index[j]].Timestamp
	})
	return ob
}

// Len returns the number of resident orders
func (ob *OrderBook) Len() int {
	return len(ob.index)
}

// Insert adds an order after every order sharing its timestamp and returns its handle
func (ob *OrderBook) Insert(order models.Order) int {
	ob.nextID++
	order.ID = ob.nextID
	ob.orders[order.ID] = &order
	ob.insertIndex(order.ID)
	return order.ID
}

// Get returns the live order behind a handle
func (ob *OrderBook) Get(id int) (*models.Order, bool) {
	o, ok := ob.orders[id]
	return o, ok
}

// Remove drops an order from the book, e.g. on cancellation
func (ob *OrderBook) Remove(id int) bool {
	if !ob.removeIndex(id) {
		return false
	}
	delete(ob.orders, id)
	return true
}

// Restamp moves an order to another time key, keeping it behind existing orders at that key
func (ob *OrderBook) Restamp(id int, timestamp string) bool {
	o, ok := ob.orders[id]
	if !ok {
		return false
	}
	ob.removeIndex(id)
	o.Timestamp = timestamp
	ob.insertIndex(id)
	return true
}

// Prune removes orders whose amount has been consumed
func (ob *OrderBook) Prune() int {
	kept := ob.index[:0]
	removed := 0
	for _, id := range ob.index {
		if ob.orders[id].Amount <= 0 {
			delete(ob.orders, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	ob.index = kept
	return removed
}

// All returns a copy of the book in timestamp order
func (ob *OrderBook) All() []models.Order {
	out := make([]models.Order, 0, len(ob.index))
	for _, id := range ob.index {
		out = append(out, *ob.orders[id])
	}
	return out
}

// KnownProducts returns the distinct products in the book, sorted
func (ob *OrderBook) KnownProducts() []string {
	seen := make(map[string]bool)
	var products []string
	for _, id := range ob.index {
		p := ob.orders[id].Product
		if !seen[p] {
			seen[p] = true
			products = append(products, p)
		}
	}
	sort.Strings(products)
	return products
}

// Orders returns the live orders of one type, product and timestamp, in book order
func (ob *OrderBook) Orders(typ models.OrderType, product, timestamp string) []*models.Order {
	var out []*models.Order
	for i := ob.lowerBound(timestamp); i < len(ob.index); i++ {
		o := ob.orders[ob.index[i]]
		if o.Timestamp != timestamp {
			break
		}
		if o.Type == typ && o.Product == product && o.Amount > 0 {
			out = append(out, o)
		}
	}
	return out
}

// EarliestTime returns the first timestamp in the book
func (ob *OrderBook) EarliestTime() (string, error) {
	if len(ob.index) == 0 {
		return "", models.ErrEmptyBook
	}
	return ob.orders[ob.index[0]].Timestamp, nil
}

// NextTime returns the first timestamp after t, wrapping to the earliest when t is the last
func (ob *OrderBook) NextTime(t string) (string, error) {
	if len(ob.index) == 0 {
		return "", models.ErrEmptyBook
	}
	i := ob.upperBound(t)
	if i == len(ob.index) {
		i = 0
	}
	return ob.orders[ob.index[i]].Timestamp, nil
}

func (ob *OrderBook) lowerBound(timestamp string) int {
	return sort.Search(len(ob.index), func(i int) bool {
		return ob.orders[ob.index[i]].Timestamp >= timestamp
	})
}

func (ob *OrderBook) upperBound(timestamp string) int {
	return sort.Search(len(ob.index), func(i int) bool {
		return ob.orders[ob.index[i]].Timestamp > timestamp
	})
}

func (ob *OrderBook) insertIndex(id int) {
	i := ob.upperBound(ob.orders[id].Timestamp)
	ob.index = append(ob.index, 0)
	copy(ob.index[i+1:], ob.index[i:])
	ob.index[i] = id
}

func (ob *OrderBook) removeIndex(id int) bool {
	o, ok := ob.orders[id]
	if !ok {
		return false
	}
	for i := ob.lowerBound(o.Timestamp); i < len(ob.index); i++ {
		if ob.index[i] == id {
			ob.index = append(ob.index[:i], ob.index[i+1:]...)
			return true
		}
		if ob.orders[ob.index[i]].Timestamp != o.Timestamp {
			break
		}
	}
	return false
}
