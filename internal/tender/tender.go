package tender

import "math"

// Tolerance absorbs floating rounding when comparing tender sums against the
// charged total, expressed in currency units.
const Tolerance = 0.01

// Kind identifies a payment instrument type.
type Kind string

const (
	KindCash          Kind = "cash"
	KindCard          Kind = "card"
	KindDigitalWallet Kind = "digital_wallet"
	KindStoreCredit   Kind = "store_credit"
)

// Valid reports whether the kind is one of the supported instruments.
func (k Kind) Valid() bool {
	switch k {
	case KindCash, KindCard, KindDigitalWallet, KindStoreCredit:
		return true
	}
	return false
}

// Tender is one payment instrument within a checkout. Approval codes and
// external transaction IDs are opaque; authorization happens upstream and the
// reconciler treats them as already verified.
type Tender struct {
	Kind          Kind    `json:"kind" validate:"required"`
	Amount        float64 `json:"amount" validate:"required"`
	CardLastFour  string  `json:"cardLastFour,omitempty"`
	TransactionID string  `json:"transactionId,omitempty"`
	ApprovalCode  string  `json:"approvalCode,omitempty"`
}

// Result reports a successful reconciliation. Change is non-zero only for a
// single cash tender paying over the total.
type Result struct {
	Change float64
}

// Reject codes returned to callers so forms can react per field.
const (
	ReasonNoTenders      = "NO_TENDERS"
	ReasonUnknownKind    = "UNKNOWN_KIND"
	ReasonNonPositive    = "NON_POSITIVE_AMOUNT"
	ReasonCashShort      = "CASH_INSUFFICIENT"
	ReasonAmountMismatch = "AMOUNT_MISMATCH"
	ReasonSumMismatch    = "SUM_MISMATCH"
)

// Rejection is the terminal outcome of a failed reconciliation. It carries the
// signed difference (sum − required) so split-payment forms can prompt for the
// exact correction. Re-invoking Reconcile is always safe; rejection has no
// side effects.
type Rejection struct {
	Reason     string  `json:"reason"`
	Difference float64 `json:"difference"`
}

func (r *Rejection) Error() string {
	return "tender rejected: " + r.Reason
}

// Reconcile validates the proposed tender set against the required total.
// One tender applies single-instrument rules: cash must cover the total
// (change is computed from the overage), every other kind must match it
// exactly within Tolerance. Two or more tenders reconcile as a split whose
// sum must match the total within Tolerance.
func Reconcile(tenders []Tender, requiredTotal float64) (Result, *Rejection) {
	if len(tenders) == 0 {
		return Result{}, &Rejection{Reason: ReasonNoTenders}
	}
	var sum float64
	for _, t := range tenders {
		if !t.Kind.Valid() {
			return Result{}, &Rejection{Reason: ReasonUnknownKind}
		}
		if t.Amount <= 0 {
			return Result{}, &Rejection{Reason: ReasonNonPositive}
		}
		sum += t.Amount
	}

	if len(tenders) == 1 {
		t := tenders[0]
		if t.Kind == KindCash {
			if t.Amount < requiredTotal-Tolerance {
				return Result{}, &Rejection{Reason: ReasonCashShort, Difference: t.Amount - requiredTotal}
			}
			change := t.Amount - requiredTotal
			if change < 0 {
				change = 0
			}
			return Result{Change: change}, nil
		}
		if math.Abs(t.Amount-requiredTotal) > Tolerance {
			return Result{}, &Rejection{Reason: ReasonAmountMismatch, Difference: t.Amount - requiredTotal}
		}
		return Result{}, nil
	}

	if diff := sum - requiredTotal; math.Abs(diff) > Tolerance {
		return Result{}, &Rejection{Reason: ReasonSumMismatch, Difference: diff}
	}
	return Result{}, nil
}
