package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// Price-level touch checks go through decimal so a level computed as
// entry + k*distance compares exactly against the same arithmetic done
// elsewhere, instead of drifting on float rounding.

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// stopHit reports whether price has touched the protective stop.
func stopHit(side Side, price, stop float64) bool {
	if stop <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return decimalGTE(price, stop)
	}
	return decimalLTE(price, stop)
}

// targetHit reports whether price has touched a profit target.
func targetHit(side Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return decimalLTE(price, target)
	}
	return decimalGTE(price, target)
}
