package calc

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
	"github.com/aupus-smart/invoice-engine/internal/registry"
)

// Monetary outputs are rounded half-up to the utility's native currency
// precision, matching the utility's own rounding to avoid reconciliation
// drift.
const currencyPlaces = 2

var (
	one        = decimal.NewFromInt(1)
	defaultCut = decimal.RequireFromString("0.05")
)

// Engine computes the consortium figures for eligible (CLA) customers.
// Callers check eligibility before invoking; the engine treats anything else
// as a precondition violation.
type Engine struct {
	logger *slog.Logger

	// fullCompensation rebalances the compensated / non-compensated split
	// down to the supply type's minimum billable consumption before
	// computing, increasing the compensated share.
	fullCompensation bool

	defaultInvoiceDiscount decimal.Decimal
	defaultFlagDiscount    decimal.Decimal
}

type Option func(*Engine)

// WithFullCompensation turns the full-compensation rebalancing policy on.
func WithFullCompensation(enabled bool) Option {
	return func(e *Engine) { e.fullCompensation = enabled }
}

// WithDefaultDiscounts overrides the discounts applied when the registry row
// leaves them blank.
func WithDefaultDiscounts(invoice, flag decimal.Decimal) Option {
	return func(e *Engine) {
		e.defaultInvoiceDiscount = invoice
		e.defaultFlagDiscount = flag
	}
}

func New(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:                 logger,
		defaultInvoiceDiscount: defaultCut,
		defaultFlagDiscount:    defaultCut,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate computes the consortium figures for one record. The input record
// is not mutated; rebalancing under the full-compensation policy happens on a
// working copy.
func (e *Engine) Calculate(rec *invoice.Record, entry *registry.Entry) (*invoice.CalculationResult, error) {
	if entry == nil {
		return nil, &common.CalculationError{
			Kind:   common.KindMissingRegistryData,
			Detail: "no registry entry",
		}
	}
	if !entry.Eligible() {
		return nil, &common.CalculationError{
			Kind:   common.KindIneligibleCustomer,
			Detail: "type code " + entry.TypeCode,
		}
	}

	r := *rec
	if e.fullCompensation {
		e.rebalance(&r)
	}

	quant := r.Total.ConsumptionComp
	if !quant.IsPositive() {
		quant = r.InjectedEnergy
	}
	if !quant.IsPositive() {
		return nil, &common.CalculationError{
			Kind:   common.KindInconsistentSCEE,
			Detail: "no compensated energy in cycle",
		}
	}

	rate := compensationRate(&r, entry.CalcMode)
	if !rate.IsPositive() {
		return nil, &common.CalculationError{
			Kind:   common.KindMissingRequiredField,
			Detail: "no compensation rate on record",
		}
	}

	// Flag surcharges only count toward the compensated share while the
	// combined tax factor is positive; a degenerate tax block voids them.
	taxFactor := one.Sub(r.PIS.Aliquot).Sub(r.COFINS.Aliquot).Mul(one.Sub(r.ICMS.Aliquot))
	yellowRate, redRate := flagRates(&r)

	compensated := quant.Mul(rate)
	flagComp := decimal.Zero
	if taxFactor.IsPositive() {
		flagComp = yellowRate.Add(redRate).Mul(quant)
	}

	invoiceDiscount := entry.InvoiceDiscount
	if !invoiceDiscount.IsPositive() {
		invoiceDiscount = e.defaultInvoiceDiscount
	}
	flagDiscount := entry.FlagDiscount
	if !flagDiscount.IsPositive() {
		flagDiscount = e.defaultFlagDiscount
	}

	discounted := compensated.Mul(one.Sub(invoiceDiscount))
	discountedFlag := flagComp.Mul(one.Sub(flagDiscount))
	consortium := discounted.Add(discountedFlag)
	economy := compensated.Add(flagComp).Sub(consortium)

	charges := r.InterestAmount.Add(r.FineAmount)
	totalPayable := consortium.Add(r.UtilityTotal).Sub(charges)
	undiscounted := compensated.Add(flagComp).Add(r.UtilityTotal).Sub(charges)

	res := &invoice.CalculationResult{
		CompensatedAmount:    compensated.Round(currencyPlaces),
		FlagCompAmount:       flagComp.Round(currencyPlaces),
		DiscountedAmount:     discounted.Round(currencyPlaces),
		DiscountedFlagAmount: discountedFlag.Round(currencyPlaces),
		ConsortiumValue:      consortium.Round(currencyPlaces),
		Economy:              economy.Round(currencyPlaces),
		TotalPayable:         totalPayable.Round(currencyPlaces),
		UndiscountedTotal:    undiscounted.Round(currencyPlaces),
		CompensationAdequate: r.CompensationFull,
	}
	e.logger.Debug("calc.done",
		"uc", r.UC,
		"quantity", quant,
		"rate", rate,
		"consortium", res.ConsortiumValue,
		"economy", res.Economy)
	return res, nil
}

// compensationRate walks the rate ladder for the record's posts. The
// non-compensated rate is the utility's price for energy the customer would
// have paid without compensation; the off-peak rate leads because it covers
// the bulk of white-modality consumption. Mode 1 prefers the no-tax column
// and falls back to the taxed ladder.
func compensationRate(r *invoice.Record, mode int) decimal.Decimal {
	buckets := []*invoice.Energy{&r.OffPeak, &r.Peak, &r.Intermediate, &r.Total}
	if mode == 1 {
		for _, b := range buckets {
			if b.RateNonCompNoTax.IsPositive() {
				return b.RateNonCompNoTax
			}
		}
	}
	for _, b := range buckets {
		if b.RateNonComp.IsPositive() {
			return b.RateNonComp
		}
	}
	for _, b := range buckets {
		if b.Rate.IsPositive() {
			return b.Rate
		}
	}
	for _, b := range buckets {
		if b.RateComp.IsPositive() {
			return b.RateComp
		}
	}
	return decimal.Zero
}

// flagRates returns the first non-zero yellow and red surcharge rates across
// the posts.
func flagRates(r *invoice.Record) (yellow, red decimal.Decimal) {
	for _, b := range []*invoice.Energy{&r.Peak, &r.OffPeak, &r.Intermediate, &r.Total} {
		if yellow.IsZero() {
			yellow = b.FlagYellowRate
		}
		if red.IsZero() {
			red = b.FlagRedRate
		}
		if yellow.IsPositive() && red.IsPositive() {
			break
		}
	}
	return yellow, red
}

// rebalance applies the full-compensation policy: shrink the non-compensated
// share down to the supply type's minimum billable consumption and move the
// difference into the compensated share, adjusting the utility total and the
// flag surcharge accordingly. Records already at or below the minimum are
// left untouched.
func (e *Engine) rebalance(r *invoice.Record) {
	minimum := decimal.NewFromInt(r.SupplyType.MinimumBillableKWh())
	total := r.Total.Consumption
	nonComp := r.Total.ConsumptionNonComp

	hasCompensation := r.Total.ConsumptionComp.IsPositive() || r.InjectedEnergy.IsPositive()
	if hasCompensation {
		if nonComp.Equal(minimum) || !total.GreaterThan(minimum) || !nonComp.GreaterThan(minimum) {
			return
		}
	} else {
		if !total.GreaterThan(minimum) {
			return
		}
		nonComp = total
	}

	newNonComp := minimum
	moved := nonComp.Sub(newNonComp)

	rate := r.Total.RateNonComp
	if !rate.IsPositive() {
		rate = r.Total.Rate
	}
	if rate.IsPositive() {
		diff := moved.Mul(rate)
		r.Total.AmountNonComp = newNonComp.Mul(rate)
		r.UtilityTotal = r.UtilityTotal.Sub(diff)
	}

	yellowRate, redRate := flagRates(r)
	if flagRate := yellowRate.Add(redRate); flagRate.IsPositive() {
		flagDiff := moved.Mul(flagRate)
		r.UtilityTotal = r.UtilityTotal.Sub(flagDiff)
		r.FlagTotal = decimal.Max(r.FlagTotal.Sub(flagDiff), decimal.Zero)
	}

	r.Total.ConsumptionNonComp = newNonComp
	r.Total.ConsumptionComp = total.Sub(newNonComp)

	e.logger.Debug("calc.rebalance",
		"uc", r.UC,
		"minimum", minimum,
		"non_compensated", newNonComp,
		"compensated", r.Total.ConsumptionComp)
}
