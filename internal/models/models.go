package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// OrderType tags an order record as an open ask/bid or a sale produced by matching
type OrderType int

const (
	Unknown OrderType = iota
	Ask
	Bid
	AskSale
	BidSale
)

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrEmptyBook        = errors.New("order book is empty")
	ErrEmptyInput       = errors.New("no orders supplied")
	ErrUnknownOrderType = errors.New("unknown order type")
)

// MalformedProductError reports a product string that is not BASE/QUOTE
type MalformedProductError struct {
	Product string
}

func (e *MalformedProductError) Error() string {
	return fmt.Sprintf("malformed product %q: want BASE/QUOTE", e.Product)
}

// Order represents an ask or bid resting in the book, or a sale
type Order struct {
	ID        int       `json:"id"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Timestamp string    `json:"timestamp"` // Discrete time key, compared lexicographically
	Product   string    `json:"product"`
	Type      OrderType `json:"type"`
	Owner     string    `json:"owner,omitempty"` // Empty for dataset orders
}

// Sale represents a matched quantity, always priced at the ask.
// ID numbers the sales of one book in the order they were produced.
type Sale struct {
	Order
	AskID int `json:"ask_id"`
	BidID int `json:"bid_id"`
}

func (t OrderType) String() string {
	switch t {
	case Ask:
		return "ask"
	case Bid:
		return "bid"
	case AskSale:
		return "asksale"
	case BidSale:
		return "bidsale"
	}
	return "unknown"
}

// MarshalText encodes the type by name so JSON payloads stay readable
func (t OrderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *OrderType) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseOrderType resolves the textual kind used by the CSV feed and the menu
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ask":
		return Ask, nil
	case "bid":
		return Bid, nil
	case "asksale":
		return AskSale, nil
	case "bidsale":
		return BidSale, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownOrderType, s)
}

// SplitProduct splits BASE/QUOTE into its two asset symbols
func SplitProduct(product string) (base, quote string, err error) {
	parts := strings.Split(product, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &MalformedProductError{Product: product}
	}
	return parts[0], parts[1], nil
}

// Validate checks the fields every resident order must carry
func (o Order) Validate() error {
	if o.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if _, _, err := SplitProduct(o.Product); err != nil {
		return err
	}
	if o.Type != Ask && o.Type != Bid {
		return fmt.Errorf("%w: %v", ErrUnknownOrderType, o.Type)
	}
	if !positive(o.Price) {
		return fmt.Errorf("price must be a positive number, got %v", o.Price)
	}
	if !positive(o.Amount) {
		return fmt.Errorf("amount must be a positive number, got %v", o.Amount)
	}
	return nil
}

// positive rejects zero, negatives, NaN and infinities
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
