package ledger

import (
	"github.com/fibc/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the derived stock of one material. It is never stored.
type Balance struct {
	MaterialID uuid.UUID       `json:"material_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Class      MaterialClass   `json:"class"`
	Unit       string          `json:"unit"`
	TotalIn    decimal.Decimal `json:"total_in"`
	TotalOut   decimal.Decimal `json:"total_out"`
	Balance    decimal.Decimal `json:"balance"`
}

// ComputeBalance sums the movements that reference materialID as Σin − Σout.
// The result does not depend on the order of movements.
func ComputeBalance(materialID uuid.UUID, movements []Movement) decimal.Decimal {
	total := decimal.Zero
	for i := range movements {
		if movements[i].MaterialID != materialID {
			continue
		}
		total = total.Add(movements[i].SignedQuantity())
	}
	return total
}

// SumBalances adds the balances of several materials, e.g. all materials of a class
func SumBalances(balances []Balance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Balance)
	}
	return total
}

// Verdict is the outcome of comparing a physical count with the ledger
type Verdict string

const (
	VerdictBalanced   Verdict = "balanced"
	VerdictDiscrepant Verdict = "discrepant"
)

// TolerancePolicy decides how far a count may drift from the ledger balance
type TolerancePolicy struct {
	threshold decimal.Decimal
}

// NewTolerancePolicy creates a policy; the threshold is inclusive and must not be negative
func NewTolerancePolicy(threshold decimal.Decimal) (TolerancePolicy, error) {
	if threshold.IsNegative() {
		return TolerancePolicy{}, shared.NewValidationError("Balance tolerance cannot be negative")
	}
	return TolerancePolicy{threshold: threshold}, nil
}

// Threshold returns the configured tolerance
func (p TolerancePolicy) Threshold() decimal.Decimal {
	return p.threshold
}

// Reconciliation compares a counted quantity with the ledger balance
type Reconciliation struct {
	MaterialID    uuid.UUID       `json:"material_id"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Counted       decimal.Decimal `json:"counted"`
	Difference    decimal.Decimal `json:"difference"`
	Tolerance     decimal.Decimal `json:"tolerance"`
	Verdict       Verdict         `json:"verdict"`
}

// Reconcile classifies counted against ledgerBalance
func (p TolerancePolicy) Reconcile(materialID uuid.UUID, ledgerBalance, counted decimal.Decimal) Reconciliation {
	diff := counted.Sub(ledgerBalance)
	verdict := VerdictBalanced
	if diff.Abs().GreaterThan(p.threshold) {
		verdict = VerdictDiscrepant
	}
	return Reconciliation{
		MaterialID:    materialID,
		LedgerBalance: ledgerBalance,
		Counted:       counted,
		Difference:    diff,
		Tolerance:     p.threshold,
		Verdict:       verdict,
	}
}
