package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtrntr/simex/internal/auth"
	"github.com/xtrntr/simex/internal/models"
	"github.com/xtrntr/simex/internal/session"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	session *session.Session
	handler *Handler
	router  *chi.Mux
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	s, err := session.New([]models.Order{
		{Timestamp: "t1", Product: "ETH/BTC", Type: models.Ask, Price: 0.02, Amount: 1},
		{Timestamp: "t1", Product: "ETH/BTC", Type: models.Bid, Price: 0.019, Amount: 2},
		{Timestamp: "t2", Product: "ETH/BTC", Type: models.Ask, Price: 0.021, Amount: 1},
	}, session.Options{User: "simuser", CarryForward: true})
	require.NoError(t, err)
	s.Deposit("BTC", 10)

	hash, err := bcrypt.GenerateFromPassword([]byte("testpass"), bcrypt.MinCost)
	require.NoError(t, err)
	h := NewHandler(s, auth.NewAuthService("operator", string(hash), "test-secret", s.ID))
	return &testEnv{session: s, handler: h, router: NewRouter(h)}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHandler_Health(t *testing.T) {
	e := setup(t)
	w := e.do(t, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandler_Login(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectToken    bool
	}{
		{
			name: "Success",
			requestBody: map[string]interface{}{
				"username": "operator",
				"password": "testpass",
			},
			expectedStatus: http.StatusOK,
			expectToken:    true,
		},
		{
			name: "Invalid Credentials",
			requestBody: map[string]interface{}{
				"username": "operator",
				"password": "wrongpass",
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, "POST", "/auth/login", tt.requestBody, "")
			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			if tt.expectToken {
				assert.NotEmpty(t, response["token"])
			} else {
				assert.Contains(t, response, "error")
			}
		})
	}

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader("{"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_TimeAndProducts(t *testing.T) {
	e := setup(t)

	w := e.do(t, "GET", "/time", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tm map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tm))
	assert.Equal(t, e.session.ID, tm["session_id"])
	assert.Equal(t, "t1", tm["current_time"])

	w = e.do(t, "GET", "/products", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["ETH/BTC"]`, w.Body.String())
}

func TestHandler_ProductQuery(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{name: "StatsMissingProduct", target: "/stats", expectedStatus: http.StatusBadRequest},
		{name: "StatsUnknownProduct", target: "/stats?product=XRP/BTC", expectedStatus: http.StatusNotFound},
		{name: "Stats", target: "/stats?product=ETH/BTC", expectedStatus: http.StatusOK},
		{name: "OrderBookMissingProduct", target: "/orderbook", expectedStatus: http.StatusBadRequest},
		{name: "OrderBook", target: "/orderbook?product=ETH/BTC", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, "GET", tt.target, nil, "")
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandler_GetStats(t *testing.T) {
	e := setup(t)

	w := e.do(t, "GET", "/stats?product=ETH/BTC", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var st session.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "t1", st.Time)
	assert.Equal(t, 1, st.Asks.Count)
	assert.Equal(t, 0.019, st.Bids.High)
	require.NotNil(t, st.Spread)
	assert.InDelta(t, 0.001, *st.Spread, 1e-12)
}

func TestHandler_GetOrderBook(t *testing.T) {
	e := setup(t)

	w := e.do(t, "GET", "/orderbook?product=ETH/BTC", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	asks, ok := response["asks"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, asks, 1)

	bids, ok := response["bids"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, bids, 1)
}

func TestHandler_GetSales(t *testing.T) {
	e := setup(t)

	w := e.do(t, "GET", "/sales", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	_, ok, err := e.session.EnterOrder(models.Bid, "ETH/BTC", 0.02, 1)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = e.session.Advance()
	require.NoError(t, err)

	w = e.do(t, "GET", "/sales", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sales []models.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sales))
	require.Len(t, sales, 1)
	assert.Equal(t, models.BidSale, sales[0].Type)
	assert.Equal(t, "simuser", sales[0].Owner)
}

func TestHandler_GetWallet(t *testing.T) {
	e := setup(t)

	w := e.do(t, "GET", "/wallet", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, "GET", "/wallet", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := e.handler.AuthService.Login("operator", "testpass")
	require.NoError(t, err)

	w = e.do(t, "GET", "/wallet", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var holdings session.Holdings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &holdings))
	assert.Equal(t, map[string]float64{"BTC": 10}, holdings.Balances)
}

func TestHandler_WebSocket(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg SliceMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, e.session.ID, msg.SessionID)
	assert.Equal(t, "t1", msg.Time)
	assert.Empty(t, msg.Sales)

	_, err = e.session.Advance()
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "t1", msg.From)
	assert.Equal(t, "t2", msg.Time)
	assert.False(t, msg.Wrapped)
	assert.Equal(t, 1, e.handler.Hub.Len())
}
