package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtrntr/simex/internal/models"
	"github.com/xtrntr/simex/internal/session"
)

func runMenu(t *testing.T, input string) (*session.Session, string) {
	t.Helper()
	s, err := session.New([]models.Order{
		{Timestamp: "t1", Product: "ETH/BTC", Type: models.Ask, Price: 0.02, Amount: 1},
		{Timestamp: "t2", Product: "ETH/BTC", Type: models.Bid, Price: 0.01, Amount: 1},
	}, session.Options{User: "simuser", CarryForward: true})
	require.NoError(t, err)
	s.Deposit("BTC", 10)

	var out bytes.Buffer
	require.NoError(t, NewMenu(s, strings.NewReader(input), &out).Run())
	return s, out.String()
}

func TestMenu(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "Help",
			input:    "1\nexit\n",
			contains: []string{"Current time is: t1", "Your aim is to make money", "Goodbye"},
		},
		{
			name:     "Stats",
			input:    "2\nexit\n",
			contains: []string{"Product: ETH/BTC", "Asks seen: 1", "Max ask: 0.02", "Bids seen: 0"},
		},
		{
			name:     "Wallet",
			input:    "5\nexit\n",
			contains: []string{"BTC : 10"},
		},
		{
			name:     "BadOption",
			input:    "9\nexit\n",
			contains: []string{"Invalid input"},
		},
		{
			name:     "AskWithoutFunds",
			input:    "3\nETH/BTC,0.02,1\nexit\n",
			contains: []string{"Not enough funds"},
		},
		{
			name:     "BadFormat",
			input:    "4\nETH/BTC,0.02\nexit\n",
			contains: []string{"Invalid input format"},
		},
		{
			name:     "BadPrice",
			input:    "4\nETH/BTC,abc,1\nexit\n",
			contains: []string{"Error: bad price"},
		},
		{
			name:     "NaNPrice",
			input:    "4\nETH/BTC,NaN,1\n5\nexit\n",
			contains: []string{"Error: price must be a positive number", "BTC : 10", "Goodbye"},
		},
		{
			name:     "BidAndContinue",
			input:    "4\nETH/BTC,0.02,1\n6\n5\nexit\n",
			contains: []string{"Created bid order", "Sales: 1", "bidsale ETH/BTC price: 0.02 amount: 1", "Current time is: t2", "ETH : 1"},
		},
		{
			name:     "Wraps",
			input:    "6\n6\nexit\n",
			contains: []string{"starting over"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := runMenu(t, tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestMenu_EndOfInput(t *testing.T) {
	s, out := runMenu(t, "6\n")
	assert.Equal(t, "t2", s.CurrentTime())
	assert.NotContains(t, out, "Goodbye")
}
