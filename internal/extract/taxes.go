package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aupus-smart/invoice-engine/internal/document"
	"github.com/aupus-smart/invoice-engine/internal/invoice"
)

// Inline tax-line patterns: "NAME BASE ALIQUOT% AMOUNT", e.g.
// "PIS/PASEP 86,34 0,798% 0,69". Some layouts instead print the name on its
// own line followed by aliquot, base and amount on the next three lines; the
// sequential fallback below covers those.
var (
	icmsLine   = regexp.MustCompile(`(?i)\bICMS\b\s+([\d.,]+)\s+([\d.,]+%?)\s+([\d.,]+)`)
	pisLine    = regexp.MustCompile(`(?i)\bPIS(?:/PASEP)?\b\s+([\d.,]+)\s+([\d.,]+%?)\s+([\d.,]+)`)
	cofinsLine = regexp.MustCompile(`(?i)\bCOFINS\b\s+([\d.,]+)\s+([\d.,]+%?)\s+([\d.,]+)`)

	one = decimal.NewFromInt(1)
)

// extractTaxes fills ICMS, PIS and COFINS. All three taxes are always present
// on the record; invoices that omit one leave it at exact zero.
func extractTaxes(loc *document.Locator, rec *invoice.Record) error {
	taxes := []struct {
		name string
		re   *regexp.Regexp
		dst  *invoice.Tax
	}{
		{"icms", icmsLine, &rec.ICMS},
		{"pis", pisLine, &rec.PIS},
		{"cofins", cofinsLine, &rec.COFINS},
	}
	for _, t := range taxes {
		v, ok := loc.Find(t.name, t.re)
		if !ok {
			continue
		}
		tax, err := coerceTax(t.name, v.Group(1), v.Group(2), v.Group(3))
		if err != nil {
			return err
		}
		*t.dst = tax
	}

	// Sequential fallback: "ICMS\n19%\n86,34\n16,40".
	if rec.ICMS.Amount.IsZero() && rec.PIS.Amount.IsZero() && rec.COFINS.Amount.IsZero() {
		return extractTaxesSequential(loc, rec)
	}
	return nil
}

func extractTaxesSequential(loc *document.Locator, rec *invoice.Record) error {
	var firstErr error
	names := map[string]*invoice.Tax{
		"ICMS":      &rec.ICMS,
		"PIS":       &rec.PIS,
		"PIS/PASEP": &rec.PIS,
		"COFINS":    &rec.COFINS,
	}
	var lines []string
	loc.EachLine(func(_ int, line string) bool {
		lines = append(lines, strings.TrimSpace(line))
		return true
	})
	for i, line := range lines {
		dst, ok := names[strings.ToUpper(line)]
		if !ok || i+3 >= len(lines) {
			continue
		}
		tax, err := coerceTax(strings.ToLower(line), lines[i+2], lines[i+1], lines[i+3])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		*dst = tax
	}
	return firstErr
}

// coerceTax converts the three tokens of a tax line. Aliquots without an
// explicit percent sign still print as percentages (19, not 0.19); anything
// above 1 is normalized to a fraction.
func coerceTax(field, baseTok, aliquotTok, amountTok string) (invoice.Tax, error) {
	base, err := document.RawValue{Field: field + ".base", Text: baseTok}.AsDecimal()
	if err != nil {
		return invoice.Tax{}, err
	}
	aliquot, err := document.RawValue{Field: field + ".aliquota", Text: aliquotTok}.AsDecimal()
	if err != nil {
		return invoice.Tax{}, err
	}
	if aliquot.GreaterThan(one) {
		aliquot = aliquot.Div(decimal.NewFromInt(100))
	}
	amount, err := document.RawValue{Field: field + ".valor", Text: amountTok}.AsDecimal()
	if err != nil {
		return invoice.Tax{}, err
	}
	return invoice.Tax{Base: base, Aliquot: aliquot, Amount: amount}, nil
}
