package session

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/xtrntr/simex/internal/exchange"
	"github.com/xtrntr/simex/internal/models"
	"github.com/xtrntr/simex/internal/wallet"
)

// Options configures a session
type Options struct {
	User         string // Account name tagged onto orders entered through the session
	CarryForward bool   // Move the user's unfilled orders into the next time slice
}

// Advance describes one step of the simulated clock
type Advance struct {
	SessionID string        `json:"session_id"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Sales     []models.Sale `json:"sales"`
	Wrapped   bool          `json:"wrapped"`
}

// Stats summarises one product at the current time
type Stats struct {
	Product string              `json:"product"`
	Time    string              `json:"time"`
	Asks    exchange.SliceStats `json:"asks"`
	Bids    exchange.SliceStats `json:"bids"`
	Spread  *float64            `json:"spread,omitempty"`
}

// Slice is a copy of the open orders of one product at the current time
type Slice struct {
	Product string         `json:"product"`
	Time    string         `json:"time"`
	Asks    []models.Order `json:"asks"`
	Bids    []models.Order `json:"bids"`
}

// Holdings is a copy of the session wallet
type Holdings struct {
	Balances map[string]float64 `json:"balances"`
	Reserved map[string]float64 `json:"reserved"`
}

// Session drives admission, matching and settlement over the simulated clock
type Session struct {
	ID string

	mu        sync.Mutex
	opts      Options
	book      *exchange.OrderBook
	wallet    *wallet.Wallet
	current   string
	open      map[int]bool // Handles of the user's resident orders
	lastSales []models.Sale
	listeners []func(Advance)
}

// New creates a session over orders, starting at the earliest timestamp
func New(orders []models.Order, opts Options) (*Session, error) {
	book := exchange.NewOrderBook(orders)
	current, err := book.EarliestTime()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &Session{
		ID:      uuid.NewString(),
		opts:    opts,
		book:    book,
		wallet:  wallet.NewWallet(),
		current: current,
		open:    make(map[int]bool),
	}, nil
}

// OnAdvance registers fn to be called after every time step
func (s *Session) OnAdvance(fn func(Advance)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Deposit funds the session wallet. A negative amount is a caller bug and panics.
func (s *Session) Deposit(asset string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mustLedger(s.wallet.Deposit(asset, amount))
}

// CurrentTime returns the timestamp of the slice being traded
func (s *Session) CurrentTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Products returns the known products
func (s *Session) Products() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.KnownProducts()
}

// EnterOrder places a user order in the current slice if the wallet can cover it.
// Insufficient funds is reported as admitted == false; invalid input as an error.
func (s *Session) EnterOrder(typ models.OrderType, product string, price, amount float64) (id int, admitted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := models.Order{
		Price:     price,
		Amount:    amount,
		Timestamp: s.current,
		Product:   product,
		Type:      typ,
		Owner:     s.opts.User,
	}
	if err := order.Validate(); err != nil {
		return 0, false, fmt.Errorf("invalid order: %w", err)
	}

	id = s.book.Insert(order)
	order.ID = id
	ok, err := s.wallet.Reserve(order)
	mustLedger(err)
	if !ok {
		s.book.Remove(id)
		log.Printf("Rejected %s %s %g@%g: insufficient funds", typ, product, amount, price)
		return 0, false, nil
	}
	s.open[id] = true
	return id, true, nil
}

// Cancel removes one of the user's open orders and releases its funds
func (s *Session) Cancel(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open[id] {
		return false
	}
	s.book.Remove(id)
	s.wallet.Release(id)
	delete(s.open, id)
	return true
}

// OpenOrders returns copies of the user's resident orders
func (s *Session) OpenOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Order, 0, len(s.open))
	for id := range s.open {
		if o, ok := s.book.Get(id); ok {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Advance matches every product at the current time, settles the user's
// sales and moves the clock to the next timestamp.
func (s *Session) Advance() (Advance, error) {
	s.mu.Lock()

	adv := Advance{SessionID: s.ID, From: s.current}
	for _, product := range s.book.KnownProducts() {
		sales := s.book.MatchAsksToBids(product, s.current, s.opts.User)
		for _, sale := range sales {
			s.settle(sale)
		}
		adv.Sales = append(adv.Sales, sales...)
	}
	s.closeFilled()

	next, err := s.book.NextTime(s.current)
	if err != nil {
		s.mu.Unlock()
		return Advance{}, fmt.Errorf("failed to advance session: %w", err)
	}
	adv.To = next
	adv.Wrapped = next <= s.current
	if s.opts.CarryForward && !adv.Wrapped {
		s.carryForward(next)
	}
	s.current = next
	s.lastSales = adv.Sales
	listeners := append([]func(Advance){}, s.listeners...)
	s.mu.Unlock()

	log.Printf("Advanced %s -> %s with %d sales", adv.From, adv.To, len(adv.Sales))
	for _, fn := range listeners {
		fn(adv)
	}
	return adv, nil
}

// LastSales returns the sales produced by the most recent advance
func (s *Session) LastSales() []models.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Sale{}, s.lastSales...)
}

// Stats summarises asks and bids of product at the current time
func (s *Session) Stats(product string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	asks := s.book.Orders(models.Ask, product, s.current)
	bids := s.book.Orders(models.Bid, product, s.current)
	st := Stats{
		Product: product,
		Time:    s.current,
		Asks:    exchange.Summarize(asks),
		Bids:    exchange.Summarize(bids),
	}
	if spread, err := exchange.Spread(asks, bids); err == nil {
		st.Spread = &spread
	}
	return st
}

// Slice returns copies of the open orders of product at the current time
func (s *Session) Slice(product string) Slice {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Slice{
		Product: product,
		Time:    s.current,
		Asks:    copyOrders(s.book.Orders(models.Ask, product, s.current)),
		Bids:    copyOrders(s.book.Orders(models.Bid, product, s.current)),
	}
}

// Holdings returns the wallet balances and funds on hold
func (s *Session) Holdings() Holdings {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := Holdings{Balances: s.wallet.Balances(), Reserved: map[string]float64{}}
	for asset := range h.Balances {
		if r := s.wallet.Reserved(asset); r > 0 {
			h.Reserved[asset] = r
		}
	}
	return h
}

// WalletString renders the wallet for the menu
func (s *Session) WalletString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet.String()
}

// settle applies a sale touching the user's orders. A user trading with
// itself nets to zero at the ask price, so only the holds move.
func (s *Session) settle(sale models.Sale) {
	askMine, bidMine := s.open[sale.AskID], s.open[sale.BidID]
	if sale.Owner == s.opts.User && s.opts.User != "" && !(askMine && bidMine) {
		mustLedger(s.wallet.Settle(sale))
	}
	if askMine {
		s.wallet.ReleaseFill(sale.AskID, sale.Amount)
	}
	if bidMine {
		s.wallet.ReleaseFill(sale.BidID, sale.Amount)
	}
}

// closeFilled forgets user orders the book has pruned
func (s *Session) closeFilled() {
	for id := range s.open {
		if _, ok := s.book.Get(id); !ok {
			s.wallet.Release(id)
			delete(s.open, id)
		}
	}
}

func (s *Session) carryForward(next string) {
	ids := make([]int, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if o, ok := s.book.Get(id); ok && o.Timestamp == s.current {
			s.book.Restamp(id, next)
		}
	}
}

func copyOrders(orders []*models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out
}

// mustLedger panics on ledger errors, which only a broken caller can cause
func mustLedger(err error) {
	if err != nil {
		panic(fmt.Sprintf("ledger contract violated: %v", err))
	}
}
