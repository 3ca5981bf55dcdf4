package wallet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/simex/internal/models"
)

// Wallet holds per-asset balances for one account.
// Funds committed to open orders are tracked as holds; the available
// balance is the balance minus everything on hold.
type Wallet struct {
	balances map[string]decimal.Decimal
	reserved map[string]decimal.Decimal
	holds    map[int]*hold
}

type hold struct {
	asset     string
	perUnit   decimal.Decimal // Reserved funds per unit of order amount
	remaining decimal.Decimal
}

// NewWallet creates an empty wallet
func NewWallet() *Wallet {
	return &Wallet{
		balances: make(map[string]decimal.Decimal),
		reserved: make(map[string]decimal.Decimal),
		holds:    make(map[int]*hold),
	}
}

// Deposit adds amount of asset to the wallet
func (w *Wallet) Deposit(asset string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("deposit %s: %w", asset, models.ErrNegativeAmount)
	}
	w.balances[asset] = w.balances[asset].Add(decimal.NewFromFloat(amount))
	return nil
}

// Withdraw removes amount of asset if enough is available.
// It returns false for an unknown asset or insufficient funds.
func (w *Wallet) Withdraw(asset string, amount float64) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("withdraw %s: %w", asset, models.ErrNegativeAmount)
	}
	if _, ok := w.balances[asset]; !ok {
		return false, nil
	}
	if !w.HasAtLeast(asset, amount) {
		return false, nil
	}
	w.balances[asset] = w.balances[asset].Sub(decimal.NewFromFloat(amount))
	return true, nil
}

// HasAtLeast reports whether at least amount of asset is available
func (w *Wallet) HasAtLeast(asset string, amount float64) bool {
	if amount <= 0 {
		return true
	}
	if _, ok := w.balances[asset]; !ok {
		return false
	}
	return w.available(asset).GreaterThanOrEqual(decimal.NewFromFloat(amount))
}

// CanAdmit checks whether the wallet could pay for order.
// An ask needs the base asset, a bid needs amount*price of the quote asset.
func (w *Wallet) CanAdmit(order models.Order) (bool, error) {
	asset, need, err := requirement(order)
	if err != nil {
		return false, err
	}
	if asset == "" {
		return false, nil
	}
	return w.HasAtLeast(asset, need.InexactFloat64()), nil
}

// Reserve admits order and puts its funds on hold until it is filled or released.
// order.ID must be the book handle.
func (w *Wallet) Reserve(order models.Order) (bool, error) {
	asset, need, err := requirement(order)
	if err != nil {
		return false, err
	}
	if asset == "" || !w.HasAtLeast(asset, need.InexactFloat64()) {
		return false, nil
	}
	if _, exists := w.holds[order.ID]; exists {
		return false, fmt.Errorf("order %d already has a hold", order.ID)
	}

	perUnit := decimal.NewFromInt(1)
	if order.Type == models.Bid {
		perUnit = decimal.NewFromFloat(order.Price)
	}
	w.holds[order.ID] = &hold{asset: asset, perUnit: perUnit, remaining: need}
	w.reserved[asset] = w.reserved[asset].Add(need)
	return true, nil
}

// ReleaseFill frees the hold share of filled units of an order
func (w *Wallet) ReleaseFill(orderID int, filled float64) {
	h, ok := w.holds[orderID]
	if !ok || filled <= 0 {
		return
	}
	release := decimal.Min(h.perUnit.Mul(decimal.NewFromFloat(filled)), h.remaining)
	h.remaining = h.remaining.Sub(release)
	w.reserved[h.asset] = w.reserved[h.asset].Sub(release)
	if !h.remaining.IsPositive() {
		delete(w.holds, orderID)
	}
}

// Release drops whatever is still on hold for an order, e.g. on cancellation
func (w *Wallet) Release(orderID int) {
	h, ok := w.holds[orderID]
	if !ok {
		return
	}
	w.reserved[h.asset] = w.reserved[h.asset].Sub(h.remaining)
	delete(w.holds, orderID)
}

// Settle applies a sale's balance deltas. It does not re-check funds;
// admission is the only gate.
func (w *Wallet) Settle(sale models.Sale) error {
	base, quote, err := models.SplitProduct(sale.Product)
	if err != nil {
		return fmt.Errorf("settle sale: %w", err)
	}
	amount := decimal.NewFromFloat(sale.Amount)
	value := amount.Mul(decimal.NewFromFloat(sale.Price))

	switch sale.Type {
	case models.AskSale:
		w.balances[quote] = w.balances[quote].Add(value)
		w.balances[base] = w.balances[base].Sub(amount)
	case models.BidSale:
		w.balances[base] = w.balances[base].Add(amount)
		w.balances[quote] = w.balances[quote].Sub(value)
	default:
		return fmt.Errorf("settle sale: %w: %v", models.ErrUnknownOrderType, sale.Type)
	}
	return nil
}

// Balance returns the full balance of asset, including funds on hold
func (w *Wallet) Balance(asset string) float64 {
	return w.balances[asset].InexactFloat64()
}

// Reserved returns the funds of asset on hold for open orders
func (w *Wallet) Reserved(asset string) float64 {
	return w.reserved[asset].InexactFloat64()
}

// Available returns the balance of asset not on hold
func (w *Wallet) Available(asset string) float64 {
	return w.available(asset).InexactFloat64()
}

// Balances returns a copy of every balance
func (w *Wallet) Balances() map[string]float64 {
	out := make(map[string]float64, len(w.balances))
	for asset, b := range w.balances {
		out[asset] = b.InexactFloat64()
	}
	return out
}

func (w *Wallet) String() string {
	assets := make([]string, 0, len(w.balances))
	for asset := range w.balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	var sb strings.Builder
	for _, asset := range assets {
		fmt.Fprintf(&sb, "%s : %s", asset, w.balances[asset].String())
		if r := w.reserved[asset]; r.IsPositive() {
			fmt.Fprintf(&sb, " (%s on hold)", r.String())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (w *Wallet) available(asset string) decimal.Decimal {
	return w.balances[asset].Sub(w.reserved[asset])
}

// requirement returns the asset and quantity an order commits.
// Sale records commit nothing and yield an empty asset.
func requirement(order models.Order) (string, decimal.Decimal, error) {
	base, quote, err := models.SplitProduct(order.Product)
	if err != nil {
		return "", decimal.Zero, err
	}
	amount := decimal.NewFromFloat(order.Amount)
	switch order.Type {
	case models.Ask:
		return base, amount, nil
	case models.Bid:
		return quote, amount.Mul(decimal.NewFromFloat(order.Price)), nil
	}
	return "", decimal.Zero, nil
}
