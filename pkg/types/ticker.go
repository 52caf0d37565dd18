package types

import "fmt"

// TickerEpsilon is the tolerance applied to the yes.bid + no.ask <= 1
// economic sanity bound.
const TickerEpsilon = 0.01

// SideQuote holds the best bid/ask and cumulative volume for one contract
// side. Bid and Ask are nil when that side of the book is empty.
type SideQuote struct {
	Bid    *float64 `json:"bid"`
	Ask    *float64 `json:"ask"`
	Volume float64  `json:"volume"`
}

// TickerSummary is the canonical YES/NO view of a single market.
type TickerSummary struct {
	Yes SideQuote `json:"yes"`
	No  SideQuote `json:"no"`
}

// TickerSnapshot is the unit emitted to subscribed clients. Prices are
// decimals in [0,1]; volume is in venue-native units.
type TickerSnapshot struct {
	Type      string        `json:"type"`
	MarketKey string        `json:"market_key"`
	Platform  Platform      `json:"platform"`
	Summary   TickerSummary `json:"summary"`
	Timestamp int64         `json:"timestamp"`
}

// Validate enforces the publication invariants: per side 0 <= bid <= ask <= 1
// when both are present, each price alone within [0,1], and
// yes.bid + no.ask <= 1 + epsilon when both exist.
func (t *TickerSnapshot) Validate() error {
	if err := validateSide("yes", t.Summary.Yes); err != nil {
		return err
	}

	if err := validateSide("no", t.Summary.No); err != nil {
		return err
	}

	if t.Summary.Yes.Bid != nil && t.Summary.No.Ask != nil {
		sum := *t.Summary.Yes.Bid + *t.Summary.No.Ask
		if sum > 1+TickerEpsilon {
			return &ValidationError{
				Field:   "summary",
				Message: fmt.Sprintf("yes.bid + no.ask = %.4f exceeds 1 + epsilon", sum),
			}
		}
	}

	return nil
}

func validateSide(name string, q SideQuote) error {
	if q.Bid != nil && (*q.Bid < 0 || *q.Bid > 1) {
		return &ValidationError{Field: name + ".bid", Message: fmt.Sprintf("%.4f outside [0,1]", *q.Bid)}
	}

	if q.Ask != nil && (*q.Ask < 0 || *q.Ask > 1) {
		return &ValidationError{Field: name + ".ask", Message: fmt.Sprintf("%.4f outside [0,1]", *q.Ask)}
	}

	if q.Bid != nil && q.Ask != nil && *q.Bid > *q.Ask {
		return &ValidationError{
			Field:   name,
			Message: fmt.Sprintf("bid %.4f above ask %.4f", *q.Bid, *q.Ask),
		}
	}

	if q.Volume < 0 {
		return &ValidationError{Field: name + ".volume", Message: "cannot be negative"}
	}

	return nil
}

// Float returns a pointer to v, for building optional quote fields.
func Float(v float64) *float64 { return &v }
