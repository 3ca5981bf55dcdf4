package csvreader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/xtrntr/simex/internal/models"
)

// Result holds the orders read from a feed and how many lines were rejected
type Result struct {
	Orders  []models.Order
	Skipped int
}

// ReadFile reads an order feed from path
func ReadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open order feed: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses timestamp,product,kind,price,amount records.
// Bad records are logged and skipped; only I/O failures are returned.
func Read(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	res := &Result{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				log.Printf("Skipping unreadable line %d: %v", parseErr.Line, err)
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to read order feed: %w", err)
		}

		order, err := ParseRecord(record)
		if err != nil {
			line, _ := cr.FieldPos(0)
			log.Printf("Skipping line %d: %v", line, err)
			res.Skipped++
			continue
		}
		res.Orders = append(res.Orders, order)
	}
	log.Printf("Read %d orders (%d skipped)", len(res.Orders), res.Skipped)
	return res, nil
}

// ParseRecord turns one tokenised line into a validated open order
func ParseRecord(tokens []string) (models.Order, error) {
	if len(tokens) != 5 {
		return models.Order{}, fmt.Errorf("expected 5 fields, got %d", len(tokens))
	}
	typ, err := models.ParseOrderType(tokens[2])
	if err != nil {
		return models.Order{}, err
	}
	return ParseOrder(tokens[0], tokens[1], typ, tokens[3], tokens[4])
}

// ParseOrder builds an order from its textual price and amount, as typed into the menu
func ParseOrder(timestamp, product string, typ models.OrderType, price, amount string) (models.Order, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return models.Order{}, fmt.Errorf("bad price %q: %w", price, err)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return models.Order{}, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	o := models.Order{
		Timestamp: strings.TrimSpace(timestamp),
		Product:   strings.TrimSpace(product),
		Type:      typ,
		Price:     p,
		Amount:    a,
	}
	if err := o.Validate(); err != nil {
		return models.Order{}, err
	}
	return o, nil
}
