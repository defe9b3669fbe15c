package journal

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ftjournal/errs"
)

// DerivePnL returns (net, gross). When the amount already includes fees it
// is the net figure and gross adds the fees back; otherwise it is gross
// and net subtracts them. Decimal arithmetic keeps 0.1+0.2 style drift out
// of stored values.
func DerivePnL(amount, fees float64, includesFees bool) (net, gross float64) {
	a := decimal.NewFromFloat(amount)
	f := decimal.NewFromFloat(fees)
	if includesFees {
		return a.InexactFloat64(), a.Add(f).InexactFloat64()
	}
	return a.Sub(f).InexactFloat64(), a.InexactFloat64()
}

// Validate checks the business rules every write must satisfy. Numbers
// must be finite before DerivePnL sees them.
func (in TradeInput) Validate() error {
	if strings.TrimSpace(in.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", errs.ErrValidation)
	}
	for _, n := range []struct {
		name string
		v    float64
	}{{"qty", in.Qty}, {"fees", in.Fees}, {"pnl_amount", in.PnLAmount}} {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
			return fmt.Errorf("%w: %s must be a finite number", errs.ErrValidation, n.name)
		}
	}
	if in.Qty <= 0 {
		return fmt.Errorf("%w: qty must be > 0", errs.ErrValidation)
	}
	if in.ExitTimeUTC <= in.EntryTimeUTC {
		return fmt.Errorf("%w: exit time must be after entry time", errs.ErrValidation)
	}
	if in.Fees < 0 {
		return fmt.Errorf("%w: fees must be >= 0", errs.ErrValidation)
	}
	return nil
}
