package apihttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"tempo/internal/closer"
	"tempo/internal/engine"
	"tempo/internal/gateway/exchange"
	"tempo/internal/store"
)

// stubGateway is a hard-coded gateway; handler tests never reach the
// fire path, so only the closer methods matter.
type stubGateway struct {
	position *exchange.PositionSnapshot
}

func (s *stubGateway) Name() string { return "stub" }

func (s *stubGateway) SymbolMetadata(ctx context.Context, symbol string) (*exchange.SymbolMetadata, error) {
	return &exchange.SymbolMetadata{Symbol: symbol, StepSize: "0.001", PricePrecision: 2}, nil
}

func (s *stubGateway) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	return 50000, nil
}

func (s *stubGateway) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	return &exchange.OrderResult{OrderID: 1}, nil
}

func (s *stubGateway) Position(ctx context.Context, symbol string) (*exchange.PositionSnapshot, error) {
	return s.position, nil
}

func (s *stubGateway) OrderStatus(ctx context.Context, symbol string, orderID int64) (*exchange.OrderStatus, error) {
	return &exchange.OrderStatus{OrderID: orderID}, nil
}

func (s *stubGateway) SetLeverage(ctx context.Context, symbol string, leverage int) error { return nil }
func (s *stubGateway) SetMarginMode(ctx context.Context, symbol, mode string) error       { return nil }

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	gw := &stubGateway{}
	st := store.New()
	eng := engine.New(ctx, gw, st, closer.New(gw), nil, engine.Settings{})
	router := gin.New()
	NewRouter(eng, closer.New(gw), nil, nil).Register(router.Group("/api"))
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterScheduleOrder(t *testing.T) {
	router := testRouter(t)
	scheduledAt := time.Now().Add(time.Hour).Format(time.RFC3339)

	t.Run("create then fetch and cancel", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/schedule-order",
			`{"symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":0.01,"scheduledAt":"`+scheduledAt+`"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		id := gjson.Get(w.Body.String(), "order.id").String()
		require.NotEmpty(t, id)

		w = doRequest(router, http.MethodGet, "/api/scheduled-orders", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "count").Int())

		w = doRequest(router, http.MethodGet, "/api/scheduled-orders/"+id, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "scheduled", gjson.Get(w.Body.String(), "order.status").String())

		w = doRequest(router, http.MethodDelete, "/api/scheduled-order/"+id, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "cancelled", gjson.Get(w.Body.String(), "order.status").String())

		// a second cancel is an invalid state
		w = doRequest(router, http.MethodDelete, "/api/scheduled-order/"+id, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/schedule-order",
			`{"symbol":"BTCUSDT","side":"BUY","quantity":0.01,"scheduledAt":"2020-01-01T00:00:00Z"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "future")
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/schedule-order", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/scheduled-orders/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = doRequest(router, http.MethodDelete, "/api/scheduled-order/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("preset reference without registry is 400", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/schedule-order",
			`{"preset":"btc-scalp","scheduledAt":"`+scheduledAt+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouterClosePosition(t *testing.T) {
	router := testRouter(t)

	t.Run("missing symbol", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/close-position", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("flat symbol reports not closed", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/close-position", `{"symbol":"btcusdt"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, gjson.Get(w.Body.String(), "closed").Bool())
	})
}

func TestRouterHistoryDisabled(t *testing.T) {
	router := testRouter(t)
	w := doRequest(router, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
