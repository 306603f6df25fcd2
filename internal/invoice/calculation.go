package invoice

import (
	"github.com/shopspring/decimal"
)

// CalculationResult carries the consortium figures computed for an eligible
// customer. It is attached to the Record only when the calculation engine ran;
// ineligible customers never get one.
type CalculationResult struct {
	// Utility-billed value of the compensated share, before any discount.
	CompensatedAmount decimal.Decimal `json:"valor_comp"`
	// Utility-billed flag surcharge over the compensated share.
	FlagCompAmount decimal.Decimal `json:"valor_band_comp"`

	// The same two figures after the customer's negotiated discounts.
	DiscountedAmount     decimal.Decimal `json:"valor_com_desconto"`
	DiscountedFlagAmount decimal.Decimal `json:"valor_bandeira_com_desconto"`

	// What the consortium charges for the compensated share.
	ConsortiumValue decimal.Decimal `json:"valor_consorcio"`
	// What the customer saves against the utility's full price.
	Economy decimal.Decimal `json:"valor_economia"`

	// Whole-bill figures: consortium charge plus the utility invoice, net of
	// late-payment interest and fines, with and without discounts.
	TotalPayable      decimal.Decimal `json:"valor_total"`
	UndiscountedTotal decimal.Decimal `json:"valor_s_desconto"`

	// True when injected energy fully covered consumption in the cycle.
	CompensationAdequate bool `json:"compensacao_adequada"`
}
