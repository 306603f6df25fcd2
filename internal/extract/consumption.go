package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/constants"
	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

// Consumption lines follow the utility's billing-table layout: the kWh unit
// token, then rate, quantity, tax-inclusive columns, billed amount, and
// optionally the no-tax rate a few columns later.
const (
	rateOffset      = 1
	quantityOffset  = 2
	amountOffset    = 4
	rateNoTaxOffset = 7
)

var sceeLineMarkers = []string{
	"SCEE", "EXCEDENTE", "CRÉDITO", "CREDITO", "GERAÇÃO", "GERACAO",
	"SALDO", "INJEÇÃO", "INJECAO", "CADASTRO RATEIO",
}

// extractConsumption walks the billing table and accumulates consumption
// lines into the record's post buckets. Compensated extractors additionally
// route COMPENSADO / NÃO COMPENSADO variants into the split fields.
func extractConsumption(loc *document.Locator, rec *invoice.Record, compensated bool) error {
	var firstErr error
	loc.EachLine(func(_ int, line string) bool {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "BANDEIRA") || isSCEELine(upper) {
			return true
		}
		parts := strings.Fields(line)
		kwh := kwhIndex(parts)
		if kwh == -1 || kwh+amountOffset >= len(parts) {
			return true
		}

		kind := consumptionKind(upper)
		if kind != kindPlain && !compensated {
			return true
		}

		qty, err := document.RawValue{
			Field: "consumo",
			Text:  strings.ReplaceAll(parts[kwh+quantityOffset], ".", ""),
		}.AsDecimal()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		rate, err := document.RawValue{Field: "rs_consumo", Text: parts[kwh+rateOffset]}.AsDecimal()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		amount, err := document.RawValue{Field: "valor_consumo", Text: parts[kwh+amountOffset]}.AsDecimal()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		rateNoTax := decimal.Zero
		if kwh+rateNoTaxOffset < len(parts) {
			// Best effort: not every layout prints the no-tax column.
			if v, err := (document.RawValue{Field: "rs_consumo_si", Text: parts[kwh+rateNoTaxOffset]}).AsDecimal(); err == nil {
				rateNoTax = v
			}
		}

		e := rec.Post(postOf(upper))
		switch kind {
		case kindCompensated:
			e.ConsumptionComp = qty
			e.RateComp = rate
			e.AmountComp = amount
		case kindNonCompensated:
			e.ConsumptionNonComp = qty
			e.RateNonComp = rate
			e.AmountNonComp = amount
			if rateNoTax.IsPositive() {
				e.RateNonCompNoTax = rateNoTax
			}
		default:
			e.Consumption = qty
			e.Rate = rate
			e.Amount = amount
		}
		return true
	})
	return firstErr
}

type lineKind int

const (
	kindPlain lineKind = iota
	kindCompensated
	kindNonCompensated
)

func consumptionKind(upper string) lineKind {
	switch {
	case strings.Contains(upper, "NÃO COMPENSADO") || strings.Contains(upper, "NAO COMPENSADO"):
		return kindNonCompensated
	case strings.Contains(upper, "COMPENSADO"):
		return kindCompensated
	default:
		return kindPlain
	}
}

// postOf maps the line's time-of-use wording onto a tariff post. Conventional
// lines carry no post wording and land on Total.
func postOf(upper string) constants.TariffPost {
	switch {
	case strings.Contains(upper, "FORA PONTA") || strings.Contains(upper, "FORA-PONTA"):
		return constants.PostOffPeak
	case strings.Contains(upper, "PONTA"):
		return constants.PostPeak
	case strings.Contains(upper, "INTERMEDIÁRIO") || strings.Contains(upper, "INTERMEDIARIO"):
		return constants.PostIntermediate
	default:
		return constants.PostTotal
	}
}

func kwhIndex(parts []string) int {
	for i, p := range parts {
		if strings.EqualFold(p, "KWH") {
			return i
		}
	}
	return -1
}

func isSCEELine(upper string) bool {
	for _, m := range sceeLineMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// extractFlags accumulates tariff-flag (bandeira) surcharge lines. Absence of
// any flag section is valid: the record keeps zero amounts and a green flag.
func extractFlags(loc *document.Locator, rec *invoice.Record) error {
	rec.Flag = constants.FlagGreen
	loc.EachLine(func(_ int, line string) bool {
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, "BANDEIRA") {
			return true
		}
		yellow := strings.Contains(upper, "AMARELA")
		red := strings.Contains(upper, "VERMELHA")
		if !yellow && !red {
			return true
		}

		parts := strings.Fields(line)
		kwh := kwhIndex(parts)
		rate := decimal.Zero
		amount := decimal.Zero
		if kwh != -1 && kwh+rateOffset < len(parts) {
			if v, err := (document.RawValue{Field: "rs_adc_bandeira", Text: parts[kwh+rateOffset]}).AsDecimal(); err == nil {
				rate = v
			}
		}
		if kwh != -1 && kwh+amountOffset < len(parts) {
			if v, err := (document.RawValue{Field: "valor_adc_bandeira", Text: parts[kwh+amountOffset]}).AsDecimal(); err == nil {
				amount = v
			}
		}
		if amount.IsZero() {
			if v, ok := lastAmountToken(line); ok {
				amount = v
			}
		}

		e := rec.Post(postOf(upper))
		if yellow {
			e.FlagYellowRate = rate
			if rec.Flag == constants.FlagRed || rec.Flag == constants.FlagYellowRed {
				rec.Flag = constants.FlagYellowRed
			} else {
				rec.Flag = constants.FlagYellow
			}
		} else {
			e.FlagRedRate = rate
			if rec.Flag == constants.FlagYellow || rec.Flag == constants.FlagYellowRed {
				rec.Flag = constants.FlagYellowRed
			} else {
				rec.Flag = constants.FlagRed
			}
		}
		e.FlagAmount = e.FlagAmount.Add(amount)
		rec.FlagTotal = rec.FlagTotal.Add(amount)
		return true
	})
	return nil
}
