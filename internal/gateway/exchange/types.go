package exchange

// Order sides, types and margin modes use the exchange's uppercase wire
// values directly.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"

	MarginModeCrossed  = "CROSSED"
	MarginModeIsolated = "ISOLATED"

	TimeInForceGTC = "GTC"
)

// SymbolMetadata carries the per-symbol filter values needed for quantity
// rounding. Filter fields keep the exchange's string form; the precision
// package owns parsing.
type SymbolMetadata struct {
	Symbol         string
	StepSize       string
	MinQty         string
	MaxQty         string
	PricePrecision int
}

// OrderRequest describes one order submission.
type OrderRequest struct {
	Symbol      string
	Side        string
	Type        string
	Quantity    float64
	Price       float64 // required for LIMIT
	TimeInForce string
	ReduceOnly  bool

	// QuantityPrecision / PricePrecision format the numeric fields for the
	// wire; zero falls back to a full-precision rendering.
	QuantityPrecision int
	PricePrecision    int
}

// OrderResult is the exchange's acknowledgement of a submission.
type OrderResult struct {
	OrderID int64
	Status  string
}

// OrderStatus reports fill progress. Filled is true for full fills and for
// any partial fill with executed quantity above zero.
type OrderStatus struct {
	OrderID     int64
	Status      string
	ExecutedQty float64
	Filled      bool
}

// PositionSnapshot is the transient position view consumed by the closer.
// PositionAmt is signed: positive long, negative short.
type PositionSnapshot struct {
	Symbol      string
	PositionAmt float64
	EntryPrice  float64
	MarkPrice   float64
}
