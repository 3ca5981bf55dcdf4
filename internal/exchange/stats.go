package exchange

import "github.com/xtrntr/simex/internal/models"

// HighPrice returns the highest price among orders
func HighPrice(orders []*models.Order) (float64, error) {
	if len(orders) == 0 {
		return 0, models.ErrEmptyInput
	}
	max := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price > max {
			max = o.Price
		}
	}
	return max, nil
}

// LowPrice returns the lowest price among orders
func LowPrice(orders []*models.Order) (float64, error) {
	if len(orders) == 0 {
		return 0, models.ErrEmptyInput
	}
	min := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price < min {
			min = o.Price
		}
	}
	return min, nil
}

// AveragePrice returns the mean price; on empty input it reports ErrEmptyInput with 0
func AveragePrice(orders []*models.Order) (float64, error) {
	if len(orders) == 0 {
		return 0, models.ErrEmptyInput
	}
	sum := 0.0
	for _, o := range orders {
		sum += o.Price
	}
	return sum / float64(len(orders)), nil
}

// Spread returns the lowest ask minus the highest bid
func Spread(asks, bids []*models.Order) (float64, error) {
	low, err := LowPrice(asks)
	if err != nil {
		return 0, err
	}
	high, err := HighPrice(bids)
	if err != nil {
		return 0, err
	}
	return low - high, nil
}

// SliceStats summarises one side of a slice for display
type SliceStats struct {
	Count   int     `json:"count"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Average float64 `json:"average"`
}

// Summarize builds SliceStats, leaving prices zero when orders is empty
func Summarize(orders []*models.Order) SliceStats {
	s := SliceStats{Count: len(orders)}
	if len(orders) == 0 {
		return s
	}
	s.High, _ = HighPrice(orders)
	s.Low, _ = LowPrice(orders)
	s.Average, _ = AveragePrice(orders)
	return s
}
