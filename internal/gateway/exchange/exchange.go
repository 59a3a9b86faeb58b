// Package exchange defines the capability interface the execution engine
// needs from a derivatives exchange. The engine never talks to an exchange
// SDK directly; it sees only this contract.
package exchange

import "context"

type Gateway interface {
	Name() string

	// SymbolMetadata returns live filter data for one symbol. Callers
	// re-read it at fire time; cached values may be stale.
	SymbolMetadata(ctx context.Context, symbol string) (*SymbolMetadata, error)

	// MarkPrice returns the current mark price for the symbol.
	MarkPrice(ctx context.Context, symbol string) (float64, error)

	// SubmitOrder places one order and returns the exchange-assigned id.
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)

	// Position returns the open position for the symbol, or nil when flat.
	Position(ctx context.Context, symbol string) (*PositionSnapshot, error)

	// OrderStatus reports fill progress for a previously submitted order.
	OrderStatus(ctx context.Context, symbol string, orderID int64) (*OrderStatus, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error

	SetMarginMode(ctx context.Context, symbol, mode string) error
}
