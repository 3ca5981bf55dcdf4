package exchange

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/simex/internal/models"
)

// MatchAsksToBids matches the open asks and bids of one product and timestamp.
// Amounts are reduced on the live orders; consumed orders are pruned afterwards
// and partially filled ones stay in the book. user names the session account:
// sales touching one of its orders are tagged with it so the caller knows which
// to settle.
func (ob *OrderBook) MatchAsksToBids(product, timestamp, user string) []models.Sale {
	asks := ob.Orders(models.Ask, product, timestamp)
	bids := ob.Orders(models.Bid, product, timestamp)
	if len(asks) == 0 || len(bids) == 0 {
		return nil
	}

	// Cheapest seller first, highest buyer first; equal prices keep book order
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })

	var sales []models.Sale
	for _, ask := range asks {
		for _, bid := range bids {
			if bid.Amount <= 0 || bid.Price < ask.Price {
				continue
			}

			sale := newSale(ask, bid, timestamp, user)
			ob.nextSaleID++
			sale.ID = ob.nextSaleID

			if bid.Amount == ask.Amount {
				sale.Amount = ask.Amount
				sales = append(sales, sale)
				bid.Amount = 0
				ask.Amount = 0
				break
			}
			if bid.Amount > ask.Amount {
				sale.Amount = ask.Amount
				sales = append(sales, sale)
				bid.Amount = subtract(bid.Amount, ask.Amount)
				ask.Amount = 0
				break
			}

			// Bid is smaller: it empties and the ask keeps looking
			sale.Amount = bid.Amount
			sales = append(sales, sale)
			ask.Amount = subtract(ask.Amount, bid.Amount)
			bid.Amount = 0
		}
	}

	ob.Prune()
	return sales
}

// newSale prices the sale at the ask and tags the side that belongs to user
func newSale(ask, bid *models.Order, timestamp, user string) models.Sale {
	sale := models.Sale{
		Order: models.Order{
			Price:     ask.Price,
			Timestamp: timestamp,
			Product:   ask.Product,
			Type:      models.AskSale,
		},
		AskID: ask.ID,
		BidID: bid.ID,
	}
	if user == "" {
		return sale
	}
	if bid.Owner == user {
		sale.Type = models.BidSale
		sale.Owner = user
	}
	if ask.Owner == user {
		sale.Type = models.AskSale
		sale.Owner = user
	}
	return sale
}

// subtract avoids float residue such as 2 - 1.9 leaving 0.10000000000000009
func subtract(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}
