package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var domainOnce sync.Once

// Domain collectors are usable before registration so library code and tests
// never have to care whether metrics were wired.
var (
	// CheckoutTotal counts checkout commit outcomes.
	CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "checkout_total",
		Help:      "Count of checkout commit attempts by outcome.",
	}, []string{"result"})
	// StockConflictTotal counts compare-and-swap stock decrement conflicts.
	StockConflictTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_conflict_total",
		Help:      "Number of concurrent stock decrement conflicts observed.",
	})
	// LoyaltyAccrualTotal counts loyalty accrual outcomes.
	LoyaltyAccrualTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "loyalty_accrual_total",
		Help:      "Count of loyalty accrual attempts by outcome.",
	}, []string{"result"})
)

// MustRegisterDomainMetrics registers the domain collectors with the given
// registerer (DefaultRegisterer when nil). Safe to call more than once.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = registerCounterVec(reg, CheckoutTotal)
		StockConflictTotal = registerCounter(reg, StockConflictTotal)
		LoyaltyAccrualTotal = registerCounterVec(reg, LoyaltyAccrualTotal)
	})
}
