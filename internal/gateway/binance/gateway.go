// Package binance implements exchange.Gateway on the Binance USDT-M
// futures REST API via the go-binance SDK.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/futures"

	"tempo/internal/gateway/exchange"
)

type Gateway struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Gateway, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Gateway{cfg: final, client: client}, nil
}

func (g *Gateway) Name() string { return "binance-futures" }

func (g *Gateway) SymbolMetadata(ctx context.Context, symbol string) (*exchange.SymbolMetadata, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		meta := &exchange.SymbolMetadata{
			Symbol:         s.Symbol,
			PricePrecision: s.PricePrecision,
		}
		// Filters come back as loosely typed maps with string values.
		for _, f := range s.Filters {
			if f["filterType"] != "LOT_SIZE" {
				continue
			}
			meta.StepSize, _ = f["stepSize"].(string)
			meta.MinQty, _ = f["minQty"].(string)
			meta.MaxQty, _ = f["maxQty"].(string)
		}
		return meta, nil
	}
	return nil, fmt.Errorf("symbol %s not found in exchange info", symbol)
}

func (g *Gateway) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = normalizeSymbol(symbol)
	res, err := g.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("no premium index for %s", symbol)
	}
	price, err := strconv.ParseFloat(res[0].MarkPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing mark price %q: %w", res[0].MarkPrice, err)
	}
	return price, nil
}

func (g *Gateway) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	svc := g.client.NewCreateOrderService().
		Symbol(normalizeSymbol(req.Symbol)).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderType(req.Type)).
		Quantity(formatAmount(req.Quantity, req.QuantityPrecision))
	if req.Type == exchange.OrderTypeLimit {
		svc = svc.Price(formatAmount(req.Price, req.PricePrecision))
		tif := req.TimeInForce
		if tif == "" {
			tif = exchange.TimeInForceGTC
		}
		svc = svc.TimeInForce(futures.TimeInForceType(tif))
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	return &exchange.OrderResult{OrderID: res.OrderID, Status: string(res.Status)}, nil
}

func (g *Gateway) Position(ctx context.Context, symbol string) (*exchange.PositionSnapshot, error) {
	symbol = normalizeSymbol(symbol)
	risks, err := g.client.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range risks {
		amt, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		mark, _ := strconv.ParseFloat(p.MarkPrice, 64)
		return &exchange.PositionSnapshot{
			Symbol:      p.Symbol,
			PositionAmt: amt,
			EntryPrice:  entry,
			MarkPrice:   mark,
		}, nil
	}
	return nil, nil
}

func (g *Gateway) OrderStatus(ctx context.Context, symbol string, orderID int64) (*exchange.OrderStatus, error) {
	o, err := g.client.NewGetOrderService().
		Symbol(normalizeSymbol(symbol)).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	executed, _ := strconv.ParseFloat(o.ExecutedQuantity, 64)
	return &exchange.OrderStatus{
		OrderID:     o.OrderID,
		Status:      string(o.Status),
		ExecutedQty: executed,
		Filled:      o.Status == futures.OrderStatusTypeFilled || executed > 0,
	}, nil
}

func (g *Gateway) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := g.client.NewChangeLeverageService().
		Symbol(normalizeSymbol(symbol)).
		Leverage(leverage).
		Do(ctx)
	return err
}

func (g *Gateway) SetMarginMode(ctx context.Context, symbol, mode string) error {
	marginType := futures.MarginTypeCrossed
	if strings.EqualFold(mode, exchange.MarginModeIsolated) {
		marginType = futures.MarginTypeIsolated
	}
	return g.client.NewChangeMarginTypeService().
		Symbol(normalizeSymbol(symbol)).
		MarginType(marginType).
		Do(ctx)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// formatAmount renders an order amount for the wire. Binance rejects
// amounts with more digits than the symbol precision allows.
func formatAmount(v float64, precision int) string {
	if precision > 0 {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
