// Package closer flattens an open position with a single reduce-only
// market order. A flat symbol is an expected no-op, not an error.
package closer

import (
	"context"
	"fmt"

	"tempo/internal/gateway/exchange"
	"tempo/internal/logger"
	"tempo/internal/precision"
)

type Closer struct {
	gw exchange.Gateway
}

func New(gw exchange.Gateway) *Closer {
	return &Closer{gw: gw}
}

// Outcome reports one close attempt. NoPosition marks the soft no-op case
// (nothing open, or position amount exactly zero).
type Outcome struct {
	Closed     bool
	NoPosition bool
	OrderID    int64
	Message    string
	Err        error
}

// Close fetches the current position for symbol and, if one is open,
// submits exactly one reduce-only MARKET order on the opposite side for
// the full rounded size.
func (c *Closer) Close(ctx context.Context, symbol string) Outcome {
	pos, err := c.gw.Position(ctx, symbol)
	if err != nil {
		return Outcome{Err: fmt.Errorf("fetching position for %s: %w", symbol, err)}
	}
	if pos == nil || pos.PositionAmt == 0 {
		return Outcome{NoPosition: true, Message: fmt.Sprintf("no open position for %s", symbol)}
	}

	side := exchange.SideSell
	if pos.PositionAmt < 0 {
		side = exchange.SideBuy
	}
	quantity := pos.PositionAmt
	if quantity < 0 {
		quantity = -quantity
	}

	// Rounding uses live metadata; the position size may not sit on the
	// current step grid after partial fills.
	qtyPrecision := 0
	if meta, err := c.gw.SymbolMetadata(ctx, symbol); err == nil && meta != nil {
		spec := precision.Resolve(*meta)
		quantity = precision.RoundQuantity(quantity, spec.StepSize, spec.QuantityPrecision)
		qtyPrecision = spec.QuantityPrecision
	} else if err != nil {
		logger.Warnf("closer: metadata fetch failed for %s, closing with raw quantity: %v", symbol, err)
	}

	res, err := c.gw.SubmitOrder(ctx, exchange.OrderRequest{
		Symbol:            symbol,
		Side:              side,
		Type:              exchange.OrderTypeMarket,
		Quantity:          quantity,
		ReduceOnly:        true,
		QuantityPrecision: qtyPrecision,
	})
	if err != nil {
		return Outcome{Err: fmt.Errorf("closing %s: %w", symbol, err)}
	}
	logger.Infof("closer: closed %s side=%s qty=%v orderId=%d", symbol, side, quantity, res.OrderID)
	return Outcome{
		Closed:  true,
		OrderID: res.OrderID,
		Message: fmt.Sprintf("closed %s position: orderId %d", symbol, res.OrderID),
	}
}
