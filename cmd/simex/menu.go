package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/xtrntr/simex/internal/csvreader"
	"github.com/xtrntr/simex/internal/models"
	"github.com/xtrntr/simex/internal/session"
)

const menuText = `1: Print help
2: Print exchange stats
3: Make an ask
4: Make a bid
5: Print wallet
6: Continue
Type 'exit' to quit the program
=========
Type in 1-6 or 'exit': `

// Menu is the line-oriented front end over a session
type Menu struct {
	session *session.Session
	in      *bufio.Scanner
	out     io.Writer
}

// NewMenu creates a menu reading commands from in and writing to out
func NewMenu(s *session.Session, in io.Reader, out io.Writer) *Menu {
	return &Menu{session: s, in: bufio.NewScanner(in), out: out}
}

// Run loops until the user types exit or input ends
func (m *Menu) Run() error {
	for {
		fmt.Fprintf(m.out, "Current time is: %s\n", m.session.CurrentTime())
		fmt.Fprint(m.out, menuText)

		line, ok := m.readLine()
		if !ok {
			return m.in.Err()
		}
		switch line {
		case "exit":
			fmt.Fprintln(m.out, "Exiting program. Goodbye!")
			return nil
		case "1":
			m.printHelp()
		case "2":
			m.printMarketStats()
		case "3":
			m.enterOrder(models.Ask)
		case "4":
			m.enterOrder(models.Bid)
		case "5":
			fmt.Fprint(m.out, m.session.WalletString())
		case "6":
			if err := m.advance(); err != nil {
				return err
			}
		default:
			fmt.Fprintln(m.out, "Invalid input. Please enter a number between 1-6 or 'exit'.")
		}
	}
}

func (m *Menu) readLine() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) printHelp() {
	fmt.Fprintln(m.out, "Help - Your aim is to make money. Analyse the market and make bids and asks.")
}

func (m *Menu) printMarketStats() {
	for _, p := range m.session.Products() {
		st := m.session.Stats(p)
		fmt.Fprintf(m.out, "Product: %s\n", p)
		fmt.Fprintf(m.out, "Asks seen: %d\n", st.Asks.Count)
		if st.Asks.Count > 0 {
			fmt.Fprintf(m.out, "Max ask: %g\nMin ask: %g\nAvg ask: %g\n", st.Asks.High, st.Asks.Low, st.Asks.Average)
		} else {
			fmt.Fprintln(m.out, "No asks found for this time frame.")
		}
		fmt.Fprintf(m.out, "Bids seen: %d\n", st.Bids.Count)
		if st.Bids.Count > 0 {
			fmt.Fprintf(m.out, "Max bid: %g\nMin bid: %g\nAvg bid: %g\n", st.Bids.High, st.Bids.Low, st.Bids.Average)
		}
		if st.Spread != nil {
			fmt.Fprintf(m.out, "Spread: %g\n", *st.Spread)
		}
	}
}

func (m *Menu) enterOrder(typ models.OrderType) {
	fmt.Fprintf(m.out, "Make a %s - enter: product,price,amount eg ETH/BTC,200,0.5\n", typ)
	line, ok := m.readLine()
	if !ok {
		return
	}

	tokens := strings.Split(line, ",")
	if len(tokens) != 3 {
		fmt.Fprintln(m.out, "Invalid input format. Please enter in the format: product,price,amount.")
		return
	}
	order, err := csvreader.ParseOrder(m.session.CurrentTime(), tokens[0], typ, tokens[1], tokens[2])
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return
	}

	id, admitted, err := m.session.EnterOrder(order.Type, order.Product, order.Price, order.Amount)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return
	}
	if !admitted {
		fmt.Fprintln(m.out, "Not enough funds in wallet to fulfill this order.")
		return
	}
	fmt.Fprintf(m.out, "Created %s order %d: %s price: %g amount: %g\n", typ, id, order.Product, order.Price, order.Amount)
}

func (m *Menu) advance() error {
	fmt.Fprintln(m.out, "Going to next time frame...")
	adv, err := m.session.Advance()
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Sales: %d\n", len(adv.Sales))
	for _, sale := range adv.Sales {
		fmt.Fprintf(m.out, "%s %s price: %g amount: %g\n", sale.Type, sale.Product, sale.Price, sale.Amount)
	}
	if adv.Wrapped {
		fmt.Fprintln(m.out, "Reached the end of the data, starting over.")
	}
	return nil
}
